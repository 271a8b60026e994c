// Package schema holds a typed representation of the JSON Schema subset used
// to constrain execution arguments, together with a structural validator.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dlclark/regexp2"
)

// patternTimeout bounds a single pattern match; ECMAScript patterns may
// backtrack.
const patternTimeout = 250 * time.Millisecond

type Type string

const (
	TypeNull    Type = "null"
	TypeBoolean Type = "boolean"
	TypeObject  Type = "object"
	TypeArray   Type = "array"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeString  Type = "string"
)

func (t Type) valid() bool {
	switch t {
	case TypeNull, TypeBoolean, TypeObject, TypeArray, TypeNumber, TypeInteger, TypeString:
		return true
	}
	return false
}

// Property is a named entry of "properties". Declaration order is kept because
// it defines the order errors are reported in.
type Property struct {
	Name   string
	Schema *Schema
}

// Schema is one node of a JSON Schema document. A nil *Schema accepts every
// value.
type Schema struct {
	raw json.RawMessage

	// boolean schema (true / false); nil for object schemas
	fixed *bool

	Title       string
	Description string
	Types       []Type

	Properties           []Property
	Required             []string
	AdditionalProperties *Schema

	Items       *Schema
	MinItems    *int
	MaxItems    *int
	UniqueItems bool

	Enum     []any
	Const    any
	HasConst bool

	MinLength *int
	MaxLength *int
	Pattern   *regexp2.Regexp

	Minimum          *float64
	Maximum          *float64
	ExclusiveMinimum *float64
	ExclusiveMaximum *float64
	MultipleOf       *float64

	AllOf []*Schema
	AnyOf []*Schema
	OneOf []*Schema
	Not   *Schema

	Default    any
	HasDefault bool
}

var ErrEmptySchema = errors.New("schema: empty document")

// Parse builds a Schema from its JSON encoding.
func Parse(data []byte) (*Schema, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptySchema
	}
	s := &Schema{}
	if err := s.parse(data, ""); err != nil {
		return nil, err
	}
	return s, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(data string) *Schema {
	s, err := Parse([]byte(data))
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*s = *parsed
	return nil
}

// MarshalJSON returns the document the schema was parsed from.
func (s *Schema) MarshalJSON() ([]byte, error) {
	if s == nil || len(s.raw) == 0 {
		return []byte("true"), nil
	}
	return s.raw, nil
}

// String renders the schema as indented JSON for display.
func (s *Schema) String() string {
	raw, _ := s.MarshalJSON()
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

// RequiredFields lists the top-level required property names.
func (s *Schema) RequiredFields() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.Required...)
}

func (s *Schema) parse(data []byte, at string) error {
	s.raw = append(json.RawMessage(nil), data...)

	switch data[0] {
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return fieldErr(at, err)
		}
		s.fixed = &b
		return nil
	case '{':
	default:
		return fieldErr(at, errors.New("schema must be an object or a boolean"))
	}

	var kw map[string]json.RawMessage
	if err := json.Unmarshal(data, &kw); err != nil {
		return fieldErr(at, err)
	}

	if v, ok := kw["title"]; ok {
		if err := json.Unmarshal(v, &s.Title); err != nil {
			return fieldErr(at+"/title", err)
		}
	}
	if v, ok := kw["description"]; ok {
		if err := json.Unmarshal(v, &s.Description); err != nil {
			return fieldErr(at+"/description", err)
		}
	}
	if v, ok := kw["type"]; ok {
		types, err := parseTypes(v)
		if err != nil {
			return fieldErr(at+"/type", err)
		}
		s.Types = types
	}
	if v, ok := kw["properties"]; ok {
		props, err := parseProperties(v, at+"/properties")
		if err != nil {
			return err
		}
		s.Properties = props
	}
	if v, ok := kw["required"]; ok {
		if err := json.Unmarshal(v, &s.Required); err != nil {
			return fieldErr(at+"/required", err)
		}
	}
	var err error
	if s.AdditionalProperties, err = parseChild(kw, "additionalProperties", at); err != nil {
		return err
	}
	if s.Items, err = parseChild(kw, "items", at); err != nil {
		return err
	}
	if s.Not, err = parseChild(kw, "not", at); err != nil {
		return err
	}
	if s.AllOf, err = parseChildren(kw, "allOf", at); err != nil {
		return err
	}
	if s.AnyOf, err = parseChildren(kw, "anyOf", at); err != nil {
		return err
	}
	if s.OneOf, err = parseChildren(kw, "oneOf", at); err != nil {
		return err
	}

	for _, b := range []struct {
		name string
		dst  **int
	}{
		{"minItems", &s.MinItems},
		{"maxItems", &s.MaxItems},
		{"minLength", &s.MinLength},
		{"maxLength", &s.MaxLength},
	} {
		if v, ok := kw[b.name]; ok {
			var n int
			if err := json.Unmarshal(v, &n); err != nil {
				return fieldErr(at+"/"+b.name, err)
			}
			if n < 0 {
				return fieldErr(at+"/"+b.name, errors.New("must be non-negative"))
			}
			*b.dst = &n
		}
	}
	if v, ok := kw["uniqueItems"]; ok {
		if err := json.Unmarshal(v, &s.UniqueItems); err != nil {
			return fieldErr(at+"/uniqueItems", err)
		}
	}

	for _, b := range []struct {
		name string
		dst  **float64
	}{
		{"minimum", &s.Minimum},
		{"maximum", &s.Maximum},
		{"multipleOf", &s.MultipleOf},
	} {
		if v, ok := kw[b.name]; ok {
			var f float64
			if err := json.Unmarshal(v, &f); err != nil {
				return fieldErr(at+"/"+b.name, err)
			}
			*b.dst = &f
		}
	}
	if s.MultipleOf != nil && *s.MultipleOf <= 0 {
		return fieldErr(at+"/multipleOf", errors.New("must be greater than zero"))
	}
	// draft-04 spells exclusive bounds as booleans modifying minimum/maximum.
	var draft4 bool
	if s.ExclusiveMinimum, draft4, err = parseExclusive(kw, "exclusiveMinimum", s.Minimum, at); err != nil {
		return err
	}
	if draft4 {
		s.Minimum = nil
	}
	if s.ExclusiveMaximum, draft4, err = parseExclusive(kw, "exclusiveMaximum", s.Maximum, at); err != nil {
		return err
	}
	if draft4 {
		s.Maximum = nil
	}

	if v, ok := kw["pattern"]; ok {
		var p string
		if err := json.Unmarshal(v, &p); err != nil {
			return fieldErr(at+"/pattern", err)
		}
		re, err := regexp2.Compile(p, regexp2.ECMAScript)
		if err != nil {
			return fieldErr(at+"/pattern", err)
		}
		re.MatchTimeout = patternTimeout
		s.Pattern = re
	}
	if v, ok := kw["enum"]; ok {
		val, err := decodeValue(v)
		if err != nil {
			return fieldErr(at+"/enum", err)
		}
		list, ok := val.([]any)
		if !ok {
			return fieldErr(at+"/enum", errors.New("must be an array"))
		}
		s.Enum = list
	}
	if v, ok := kw["const"]; ok {
		val, err := decodeValue(v)
		if err != nil {
			return fieldErr(at+"/const", err)
		}
		s.Const, s.HasConst = val, true
	}
	if v, ok := kw["default"]; ok {
		val, err := decodeValue(v)
		if err != nil {
			return fieldErr(at+"/default", err)
		}
		s.Default, s.HasDefault = val, true
	}
	return nil
}

func parseTypes(raw json.RawMessage) ([]Type, error) {
	var one Type
	if err := json.Unmarshal(raw, &one); err == nil {
		if !one.valid() {
			return nil, fmt.Errorf("unknown type %q", one)
		}
		return []Type{one}, nil
	}
	var many []Type
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, errors.New("must be a string or an array of strings")
	}
	for _, t := range many {
		if !t.valid() {
			return nil, fmt.Errorf("unknown type %q", t)
		}
	}
	return many, nil
}

func parseProperties(raw json.RawMessage, at string) ([]Property, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fieldErr(at, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fieldErr(at, errors.New("must be an object"))
	}
	var props []Property
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fieldErr(at, err)
		}
		name, _ := tok.(string)
		var child json.RawMessage
		if err := dec.Decode(&child); err != nil {
			return nil, fieldErr(at+"/"+name, err)
		}
		sub := &Schema{}
		if err := sub.parse(bytes.TrimSpace(child), at+"/"+name); err != nil {
			return nil, err
		}
		props = append(props, Property{Name: name, Schema: sub})
	}
	return props, nil
}

func parseChild(kw map[string]json.RawMessage, name, at string) (*Schema, error) {
	v, ok := kw[name]
	if !ok {
		return nil, nil
	}
	sub := &Schema{}
	if err := sub.parse(bytes.TrimSpace(v), at+"/"+name); err != nil {
		return nil, err
	}
	return sub, nil
}

func parseChildren(kw map[string]json.RawMessage, name, at string) ([]*Schema, error) {
	v, ok := kw[name]
	if !ok {
		return nil, nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(v, &list); err != nil {
		return nil, fieldErr(at+"/"+name, errors.New("must be an array of schemas"))
	}
	out := make([]*Schema, 0, len(list))
	for i, item := range list {
		sub := &Schema{}
		if err := sub.parse(bytes.TrimSpace(item), fmt.Sprintf("%s/%s/%d", at, name, i)); err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, nil
}

func parseExclusive(kw map[string]json.RawMessage, name string, bound *float64, at string) (*float64, bool, error) {
	v, ok := kw[name]
	if !ok {
		return nil, false, nil
	}
	var b bool
	if err := json.Unmarshal(v, &b); err == nil {
		if !b || bound == nil {
			return nil, false, nil
		}
		f := *bound
		return &f, true, nil
	}
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		return nil, false, fieldErr(at+"/"+name, errors.New("must be a number or a boolean"))
	}
	return &f, false, nil
}

// decodeValue decodes arbitrary JSON keeping numbers as json.Number.
func decodeValue(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after top-level value")
	}
	return v, nil
}

func fieldErr(at string, err error) error {
	if at == "" {
		at = "(root)"
	}
	return fmt.Errorf("schema %s: %w", at, err)
}
