package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeepsPropertyOrder(t *testing.T) {
	s := MustParse(`{"properties":{"zeta":{},"alpha":{},"mid":{"type":"string"}}}`)

	names := make([]string, len(s.Properties))
	for i, p := range s.Properties {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, names)
	assert.Equal(t, []Type{TypeString}, s.Properties[2].Schema.Types)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		schema string
		errMsg string
	}{
		{"empty", ``, "empty document"},
		{"not an object", `"string"`, "must be an object or a boolean"},
		{"unknown type", `{"type":"date"}`, `unknown type "date"`},
		{"bad type list", `{"type":[1]}`, "must be a string or an array"},
		{"bad pattern", `{"pattern":"("}`, "schema /pattern"},
		{"negative min length", `{"minLength":-1}`, "must be non-negative"},
		{"zero multiple of", `{"multipleOf":0}`, "greater than zero"},
		{"enum not array", `{"enum":"a"}`, "must be an array"},
		{"nested error path", `{"properties":{"a":{"items":{"type":"nope"}}}}`, "schema /properties/a/items/type"},
		{"all of not array", `{"allOf":{}}`, "must be an array of schemas"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.schema))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSchemaJSONRoundTripKeepsSource(t *testing.T) {
	src := `{"type":"object","properties":{"b":{"type":"integer","default":3},"a":{}}}`

	var s Schema
	require.NoError(t, json.Unmarshal([]byte(src), &s))
	out, err := json.Marshal(&s)
	require.NoError(t, err)

	assert.Equal(t, src, string(out))
	assert.True(t, s.Properties[0].Schema.HasDefault)
	assert.Equal(t, json.Number("3"), s.Properties[0].Schema.Default)
}

func TestSchemaEmbeddedInStruct(t *testing.T) {
	var wrapper struct {
		Schema *Schema `json:"schema"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"schema":{"required":["x"]}}`), &wrapper))
	require.NotNil(t, wrapper.Schema)
	assert.Equal(t, []string{"x"}, wrapper.Schema.RequiredFields())

	require.NoError(t, json.Unmarshal([]byte(`{"schema":null}`), &wrapper))
	assert.Nil(t, wrapper.Schema)
}

func TestNilSchemaMarshalsAsTrue(t *testing.T) {
	var s *Schema
	b, err := s.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "true", string(b))
	assert.Nil(t, s.RequiredFields())
}

func TestSchemaString(t *testing.T) {
	s := MustParse(`{"type":"string"}`)
	assert.Equal(t, "{\n  \"type\": \"string\"\n}", s.String())
}
