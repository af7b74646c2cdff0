// Command logging-schema-generator writes the schema of the "logging"
// section of queued.yml.
package main

import (
	"encoding/json"
	"log"
	"os"

	"github.com/grovetools/queued/logging"
	"github.com/invopop/jsonschema"
)

func main() {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: true,
		ExpandedStruct:            true,
		FieldNameTag:              "yaml",
	}

	schema := r.Reflect(&logging.Config{})
	schema.Title = "queued logging configuration"
	schema.Description = "Schema for the 'logging' section in queued.yml."
	schema.Required = nil

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		log.Fatalf("Error marshaling schema: %v", err)
	}

	if err := os.WriteFile("logging.schema.json", data, 0644); err != nil {
		log.Fatalf("Error writing schema file: %v", err)
	}

	log.Printf("Generated logging schema at logging.schema.json")
}
