package schema

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// ToJSONSchema renders the JSON schema of a config document as an
// indented, self-contained document with no $ref indirection, so it can
// be printed by the CLI or served to an editor as-is.
func ToJSONSchema[T any](t T) (string, error) {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}

	schema := r.Reflect(t)

	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(out), nil
}
