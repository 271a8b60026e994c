package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Validate parses raw as JSON and checks it against s. It has no side effects;
// the same inputs always produce the same Result.
func Validate(s *Schema, raw string) Result {
	v, err := decodeValue([]byte(raw))
	if err != nil {
		return Result{Errors: []Error{{Kind: AlwaysFail, Path: []string{}, Detail: err.Error()}}}
	}
	return ValidateValue(s, v)
}

// ValidateValue checks an already decoded value. Numbers may be json.Number
// or any Go numeric type.
func ValidateValue(s *Schema, v any) Result {
	v = ApplyDefaults(s, v)
	errs := evaluate(s, v, []string{})
	if len(errs) > 0 {
		return Result{Errors: errs}
	}
	return Result{Value: v}
}

// ApplyDefaults returns v with missing object properties filled from their
// schema defaults. v itself is not modified.
func ApplyDefaults(s *Schema, v any) any {
	if s == nil || s.fixed != nil {
		return v
	}
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = item
		}
		known := make(map[string]bool, len(s.Properties))
		for _, p := range s.Properties {
			known[p.Name] = true
			if item, ok := out[p.Name]; ok {
				out[p.Name] = ApplyDefaults(p.Schema, item)
			} else if p.Schema != nil && p.Schema.HasDefault {
				out[p.Name] = ApplyDefaults(p.Schema, deepCopy(p.Schema.Default))
			}
		}
		if s.AdditionalProperties != nil {
			for k, item := range out {
				if !known[k] {
					out[k] = ApplyDefaults(s.AdditionalProperties, item)
				}
			}
		}
		v = out
	case []any:
		if s.Items != nil {
			out := make([]any, len(val))
			for i, item := range val {
				out[i] = ApplyDefaults(s.Items, item)
			}
			v = out
		}
	}
	for _, sub := range s.AllOf {
		v = ApplyDefaults(sub, v)
	}
	return v
}

func evaluate(s *Schema, v any, path []string) []Error {
	if s == nil {
		return nil
	}
	if s.fixed != nil {
		if *s.fixed {
			return nil
		}
		return []Error{{Kind: AlwaysFail, Path: path}}
	}

	if len(s.Types) > 0 && !matchesAnyType(s.Types, v) {
		return []Error{{Kind: InvalidType, Path: path, Expected: joinTypes(s.Types)}}
	}

	var errs []Error
	if len(s.Enum) > 0 && !containsValue(s.Enum, v) {
		errs = append(errs, other(path, "value must be one of %s", describeValues(s.Enum)))
	}
	if s.HasConst && !equalValues(s.Const, v) {
		errs = append(errs, other(path, "value must be %s", describeValue(s.Const)))
	}

	switch val := v.(type) {
	case string:
		errs = append(errs, evaluateString(s, val, path)...)
	case map[string]any:
		errs = append(errs, evaluateObject(s, val, path)...)
	case []any:
		errs = append(errs, evaluateArray(s, val, path)...)
	default:
		if f, ok := toFloat(v); ok {
			errs = append(errs, evaluateNumber(s, f, path)...)
		}
	}

	for _, sub := range s.AllOf {
		errs = append(errs, evaluate(sub, v, path)...)
	}
	if len(s.AnyOf) > 0 {
		matched := false
		for _, sub := range s.AnyOf {
			if len(evaluate(sub, v, path)) == 0 {
				matched = true
				break
			}
		}
		if !matched {
			errs = append(errs, other(path, "value does not match any of the allowed schemas"))
		}
	}
	if len(s.OneOf) > 0 {
		matches := 0
		for _, sub := range s.OneOf {
			if len(evaluate(sub, v, path)) == 0 {
				matches++
			}
		}
		if matches != 1 {
			errs = append(errs, other(path, "value must match exactly one schema, matched %d", matches))
		}
	}
	if s.Not != nil && len(evaluate(s.Not, v, path)) == 0 {
		errs = append(errs, other(path, "value matches a disallowed schema"))
	}
	return errs
}

func evaluateString(s *Schema, v string, path []string) []Error {
	var errs []Error
	n := utf8.RuneCountInString(v)
	if s.MinLength != nil && n < *s.MinLength {
		errs = append(errs, other(path, "must be at least %d characters", *s.MinLength))
	}
	if s.MaxLength != nil && n > *s.MaxLength {
		errs = append(errs, other(path, "must be at most %d characters", *s.MaxLength))
	}
	if s.Pattern != nil {
		ok, err := s.Pattern.MatchString(v)
		switch {
		case err != nil:
			errs = append(errs, other(path, "pattern %s could not be evaluated: %v", s.Pattern.String(), err))
		case !ok:
			errs = append(errs, other(path, "must match pattern %s", s.Pattern.String()))
		}
	}
	return errs
}

func evaluateNumber(s *Schema, v float64, path []string) []Error {
	var errs []Error
	if s.Minimum != nil && v < *s.Minimum {
		errs = append(errs, other(path, "must be >= %s", formatFloat(*s.Minimum)))
	}
	if s.ExclusiveMinimum != nil && v <= *s.ExclusiveMinimum {
		errs = append(errs, other(path, "must be > %s", formatFloat(*s.ExclusiveMinimum)))
	}
	if s.Maximum != nil && v > *s.Maximum {
		errs = append(errs, other(path, "must be <= %s", formatFloat(*s.Maximum)))
	}
	if s.ExclusiveMaximum != nil && v >= *s.ExclusiveMaximum {
		errs = append(errs, other(path, "must be < %s", formatFloat(*s.ExclusiveMaximum)))
	}
	if s.MultipleOf != nil {
		q := v / *s.MultipleOf
		if math.Abs(q-math.Round(q)) > 1e-9 {
			errs = append(errs, other(path, "must be a multiple of %s", formatFloat(*s.MultipleOf)))
		}
	}
	return errs
}

func evaluateObject(s *Schema, v map[string]any, path []string) []Error {
	var errs []Error
	var missing []string
	for _, name := range s.Required {
		if _, ok := v[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		errs = append(errs, Error{Kind: MissingRequiredField, Path: path, Fields: missing})
		for _, name := range missing {
			errs = append(errs, Error{Kind: RequiredPropertyUnsatisfied, Path: child(path, name)})
		}
	}

	known := make(map[string]bool, len(s.Properties))
	for _, p := range s.Properties {
		known[p.Name] = true
		if item, ok := v[p.Name]; ok {
			errs = append(errs, evaluate(p.Schema, item, child(path, p.Name))...)
		}
	}

	if s.AdditionalProperties != nil {
		var extra []string
		for k := range v {
			if !known[k] {
				extra = append(extra, k)
			}
		}
		sort.Strings(extra)
		for _, k := range extra {
			if ap := s.AdditionalProperties; ap.fixed != nil && !*ap.fixed {
				errs = append(errs, other(child(path, k), "property is not allowed"))
				continue
			}
			errs = append(errs, evaluate(s.AdditionalProperties, v[k], child(path, k))...)
		}
	}
	return errs
}

func evaluateArray(s *Schema, v []any, path []string) []Error {
	var errs []Error
	if s.MinItems != nil && len(v) < *s.MinItems {
		errs = append(errs, other(path, "must contain at least %d items", *s.MinItems))
	}
	if s.MaxItems != nil && len(v) > *s.MaxItems {
		errs = append(errs, other(path, "must contain at most %d items", *s.MaxItems))
	}
	if s.UniqueItems {
	outer:
		for i := range v {
			for j := i + 1; j < len(v); j++ {
				if equalValues(v[i], v[j]) {
					errs = append(errs, other(path, "items %d and %d are equal", i, j))
					break outer
				}
			}
		}
	}
	if s.Items != nil {
		for i, item := range v {
			errs = append(errs, evaluate(s.Items, item, child(path, strconv.Itoa(i)))...)
		}
	}
	return errs
}

// child copies path so sibling errors never share a backing array.
func child(path []string, name string) []string {
	out := make([]string, len(path)+1)
	copy(out, path)
	out[len(path)] = name
	return out
}

func other(path []string, format string, args ...any) Error {
	return Error{Kind: Other, Path: path, Detail: fmt.Sprintf(format, args...)}
}

func matchesAnyType(types []Type, v any) bool {
	for _, t := range types {
		if matchesType(t, v) {
			return true
		}
	}
	return false
}

func matchesType(t Type, v any) bool {
	switch t {
	case TypeNull:
		return v == nil
	case TypeBoolean:
		_, ok := v.(bool)
		return ok
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeObject:
		_, ok := v.(map[string]any)
		return ok
	case TypeArray:
		_, ok := v.([]any)
		return ok
	case TypeNumber:
		_, ok := toFloat(v)
		return ok
	case TypeInteger:
		f, ok := toFloat(v)
		return ok && f == math.Trunc(f) && !math.IsInf(f, 0)
	}
	return false
}

func joinTypes(types []Type) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, " or ")
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func containsValue(list []any, v any) bool {
	for _, item := range list {
		if equalValues(item, v) {
			return true
		}
	}
	return false
}

func equalValues(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	switch av := a.(type) {
	case nil:
		return b == nil
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !equalValues(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, item := range av {
			bi, ok := bv[k]
			if !ok || !equalValues(item, bi) {
				return false
			}
		}
		return true
	}
	return false
}

func deepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = deepCopy(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopy(item)
		}
		return out
	}
	return v
}

func describeValue(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func describeValues(list []any) string {
	parts := make([]string, len(list))
	for i, v := range list {
		parts[i] = describeValue(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
