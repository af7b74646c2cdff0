package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "interval": {"type": "string", "pattern": "^[0-9]+s$"},
    "db": {"type": "integer", "minimum": 0}
  },
  "additionalProperties": false
}`

func TestValidator(t *testing.T) {
	v, err := NewValidator("test.json", []byte(testSchema))
	require.NoError(t, err)

	type doc struct {
		Interval string `json:"interval,omitempty"`
		DB       int    `json:"db"`
	}

	assert.NoError(t, v.Validate(doc{Interval: "10s"}))

	err = v.Validate(doc{Interval: "ten", DB: -1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/interval")
	assert.Contains(t, err.Error(), "/db")

	err = v.Validate(map[string]any{"extra": true})
	assert.Error(t, err)
}

func TestNewValidatorRejectsBadSchema(t *testing.T) {
	_, err := NewValidator("bad.json", []byte(`{"type": 12}`))
	assert.Error(t, err)
}
