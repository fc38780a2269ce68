package config

import (
	"encoding/json"
	"strings"

	"github.com/invopop/jsonschema"
)

// Schema returns a JSON schema of the config file, for editors.
func Schema() ([]byte, error) {
	r := &jsonschema.Reflector{
		FieldNameTag: "yaml",
		// untagged fields are matched lowercased, like the decoder does
		KeyNamer: strings.ToLower,
	}
	schema := r.Reflect(&Config{})
	schema.Title = "vaframes configuration"
	schema.Description = "Surface pools allocated by the vaframes daemon"

	return json.MarshalIndent(schema, "", "  ")
}
