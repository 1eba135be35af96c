package strategy

import (
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/aimerfeng/aegisquant-hybrid-sub000/pkg/errors"
)

// SupportedSchemaVersion is the configuration schema version this engine
// understands.
const SupportedSchemaVersion = "1.0.0"

// CheckSchemaCompatibility checks whether a config document's declared
// schema version can be loaded by this engine.
//
// Compatibility rules:
//   - An empty version is accepted (legacy configs predate versioning)
//   - "main" (development build) skips the check
//   - Major and minor versions must match exactly; patch may differ
func CheckSchemaCompatibility(configVersion string) error {
	configVersion = strings.TrimPrefix(strings.TrimSpace(configVersion), "v")

	if configVersion == "" || configVersion == "main" {
		return nil
	}

	supported := semver.MustParse(SupportedSchemaVersion)

	declared, err := semver.NewVersion(configVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid schema_version %q", configVersion)
	}

	if declared.Major() != supported.Major() {
		return errors.Newf(errors.ErrCodeInvalidVersion,
			"schema major version mismatch: engine supports %d.x.x but config declares %d.x.x",
			supported.Major(), declared.Major())
	}

	if declared.Minor() != supported.Minor() {
		return errors.Newf(errors.ErrCodeInvalidVersion,
			"schema minor version mismatch: engine supports %d.%d.x but config declares %d.%d.x",
			supported.Major(), supported.Minor(), declared.Major(), declared.Minor())
	}

	return nil
}
