package config

import (
	"encoding/json"
	"sync"

	"github.com/grovetools/queued/schema"
	"github.com/invopop/jsonschema"
)

// GenerateSchema generates the JSON Schema for queued.yml from the Config
// struct. Extension sections are not described.
func GenerateSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		// Unknown keys are captured as extensions before validation runs.
		AllowAdditionalProperties:  false,
		ExpandedStruct:             true,
		RequiredFromJSONSchemaTags: true,
		FieldNameTag:               "yaml",
	}

	s := r.Reflect(&Config{})
	s.Title = "queued configuration"
	s.Description = "Schema for queued.yml properties."
	s.Version = "http://json-schema.org/draft-07/schema#"

	return json.MarshalIndent(s, "", "  ")
}

// SchemaValidator validates configuration against the generated schema.
type SchemaValidator struct {
	validator *schema.Validator
}

var (
	compileOnce sync.Once
	compiled    *schema.Validator
	compileErr  error
)

// NewSchemaValidator returns a validator for the generated schema. The
// schema is generated and compiled once per process.
func NewSchemaValidator() (*SchemaValidator, error) {
	compileOnce.Do(func() {
		var data []byte
		data, compileErr = GenerateSchema()
		if compileErr != nil {
			return
		}
		compiled, compileErr = schema.NewValidator("queued.json", data)
	})
	if compileErr != nil {
		return nil, compileErr
	}
	return &SchemaValidator{validator: compiled}, nil
}

// Validate validates configuration data against the schema.
func (v *SchemaValidator) Validate(configData interface{}) error {
	return v.validator.Validate(configData)
}
