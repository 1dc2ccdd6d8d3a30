package server

import (
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// compileSchema checks that a template's schema_json compiles as a JSON
// Schema. Opt-in at the API boundary only; the store treats schema_json as an
// opaque blob and accepts anything.
func compileSchema(schemaJSON string) error {
	_, err := jsonschema.CompileString("template.json", schemaJSON)
	return err
}
