package replay

import (
	"time"

	"gopkg.in/yaml.v2"

	"github.com/aimerfeng/aegisquant-hybrid-sub000/pkg/errors"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/pkg/schema"
)

// Config controls one replay session.
type Config struct {
	// InitialCapital is the starting account balance.
	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital" jsonschema:"title=Initial Capital,description=Starting account balance,default=10000"`
	// TradeSize is the unsigned quantity used for every fill.
	TradeSize float64 `yaml:"trade_size" json:"trade_size" jsonschema:"title=Trade Size,description=Quantity per fill,default=1"`
	// DecimalPrecision is the number of fractional digits quantities are
	// rounded to.
	DecimalPrecision int32 `yaml:"decimal_precision" json:"decimal_precision" jsonschema:"title=Decimal Precision,default=8"`
	// PlayDelay is the pause between bars in Play mode.
	PlayDelay time.Duration `yaml:"play_delay" json:"play_delay" jsonschema:"title=Play Delay,description=Pause between bars during playback"`
}

// DefaultConfig returns a config with conventional backtest defaults.
func DefaultConfig() Config {
	return Config{
		InitialCapital:   10000,
		TradeSize:        1,
		DecimalPrecision: 8,
		PlayDelay:        0,
	}
}

// ParseConfig parses a YAML config document, filling defaults for omitted
// fields.
func ParseConfig(content string) (Config, error) {
	config := DefaultConfig()

	if err := yaml.Unmarshal([]byte(content), &config); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse replay config", err)
	}

	if config.InitialCapital <= 0 {
		return Config{}, errors.New(errors.ErrCodeInvalidConfiguration, "initial_capital must be positive")
	}

	if config.TradeSize <= 0 {
		return Config{}, errors.New(errors.ErrCodeInvalidConfiguration, "trade_size must be positive")
	}

	return config, nil
}

// GenerateSchemaJSON returns the JSON schema of the config document.
func GenerateSchemaJSON() (string, error) {
	return schema.ToJSONSchema(Config{})
}
