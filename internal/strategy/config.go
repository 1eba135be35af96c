package strategy

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/expr"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/indicator"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/pkg/errors"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/pkg/schema"
)

// ParameterSpec declares a tunable strategy parameter.
type ParameterSpec struct {
	Type    string  `yaml:"type" json:"type" validate:"omitempty,oneof=int float"`
	Default float64 `yaml:"default" json:"default"`
	Min     float64 `yaml:"min" json:"min"`
	Max     float64 `yaml:"max" json:"max"`
}

// IndicatorSpec declares a named indicator binding. Numeric fields are
// strings so that they can reference strategy parameters via $name.
type IndicatorSpec struct {
	Kind    string `yaml:"kind" json:"kind" validate:"required"`
	Period  string `yaml:"period,omitempty" json:"period,omitempty"`
	Fast    string `yaml:"fast,omitempty" json:"fast,omitempty"`
	Slow    string `yaml:"slow,omitempty" json:"slow,omitempty"`
	Signal  string `yaml:"signal,omitempty" json:"signal,omitempty"`
	KPeriod string `yaml:"k_period,omitempty" json:"k_period,omitempty"`
	DPeriod string `yaml:"d_period,omitempty" json:"d_period,omitempty"`
	StdDev  string `yaml:"stddev,omitempty" json:"stddev,omitempty"`
}

// Rules holds the two condition strings of a rule-based strategy.
type Rules struct {
	Buy  string `yaml:"buy" json:"buy" validate:"required"`
	Sell string `yaml:"sell" json:"sell" validate:"required"`
}

// RuleConfig is the declarative strategy configuration document.
type RuleConfig struct {
	SchemaVersion string                   `yaml:"schema_version,omitempty" json:"schema_version,omitempty"`
	Name          string                   `yaml:"name" json:"name" validate:"required"`
	Description   string                   `yaml:"description,omitempty" json:"description,omitempty"`
	Parameters    map[string]ParameterSpec `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Indicators    map[string]IndicatorSpec `yaml:"indicators,omitempty" json:"indicators,omitempty"`
	Rules         Rules                    `yaml:"rules" json:"rules"`
}

// GenerateSchemaJSON returns the JSON schema of the config document, for
// editor tooling.
func (c RuleConfig) GenerateSchemaJSON() (string, error) {
	return schema.ToJSONSchema(c)
}

// ParseRuleConfig parses and validates a YAML strategy configuration.
// Load errors are reported synchronously; a config that fails any check
// is not admitted.
func ParseRuleConfig(content string) (RuleConfig, error) {
	var config RuleConfig

	if err := yaml.Unmarshal([]byte(content), &config); err != nil {
		return RuleConfig{}, errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to parse strategy config", err)
	}

	if err := CheckSchemaCompatibility(config.SchemaVersion); err != nil {
		return RuleConfig{}, err
	}

	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return RuleConfig{}, errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid strategy config", err)
	}

	for name, spec := range config.Indicators {
		if _, err := indicatorKind(spec.Kind); err != nil {
			return RuleConfig{}, errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "indicator %q", name)
		}
	}

	if diags := validateConditions(config); len(diags) > 0 {
		return RuleConfig{}, errors.Newf(errors.ErrCodeStrategyConfigError,
			"condition validation failed: %s", formatDiagnostics(diags))
	}

	return config, nil
}

// knownVariables returns every variable name the config's conditions may
// legally reference: parameters, built-in tick values, and the binding
// names of each declared indicator.
func (c RuleConfig) knownVariables() map[string]struct{} {
	known := map[string]struct{}{
		"price":  {},
		"volume": {},
	}

	for name := range c.Parameters {
		known[name] = struct{}{}
	}

	for name, spec := range c.Indicators {
		for _, binding := range spec.bindingNames(name) {
			known[binding] = struct{}{}
		}
	}

	return known
}

// bindingNames returns the variable names an indicator declaration binds
// on each tick. Tuple-valued indicators bind one variable per component.
func (s IndicatorSpec) bindingNames(name string) []string {
	switch indicator.Kind(strings.ToLower(s.Kind)) {
	case indicator.KindMACD:
		return []string{name, name + "_signal", name + "_hist"}
	case indicator.KindBollinger:
		return []string{name, name + "_upper", name + "_middle", name + "_lower"}
	case indicator.KindStochastic:
		return []string{name + "_k", name + "_d"}
	default:
		return []string{name}
	}
}

func validateConditions(config RuleConfig) []expr.Diagnostic {
	known := config.knownVariables()

	diags := expr.Validate(config.Rules.Buy, known)
	diags = append(diags, expr.Validate(config.Rules.Sell, known)...)

	return diags
}

func formatDiagnostics(diags []expr.Diagnostic) string {
	messages := make([]string, 0, len(diags))
	for _, d := range diags {
		messages = append(messages, fmt.Sprintf("%s: %s", d.Code, d.Message))
	}

	return strings.Join(messages, "; ")
}

func indicatorKind(kind string) (indicator.Kind, error) {
	k := indicator.Kind(strings.ToLower(strings.TrimSpace(kind)))

	switch k {
	case indicator.KindSMA, indicator.KindEMA, indicator.KindRSI, indicator.KindMACD,
		indicator.KindBollinger, indicator.KindATR, indicator.KindStochastic:
		return k, nil
	default:
		return "", errors.Newf(errors.ErrCodeIndicatorNotFound, "unknown indicator kind %q", kind)
	}
}

// resolveNumber resolves an indicator parameter string that is either a
// numeric literal or a $name reference into the strategy parameters.
func resolveNumber(value string, params map[string]float64, fallback float64) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}

	if strings.HasPrefix(value, "$") {
		resolved, ok := params[value[1:]]
		if !ok {
			return 0, errors.Newf(errors.ErrCodeMissingParameter, "unknown parameter reference %s", value)
		}

		return resolved, nil
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "invalid numeric value %q", value)
	}

	return parsed, nil
}
