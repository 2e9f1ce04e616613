package argspec

import (
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/roach88/orca/internal/value"
)

var (
	typeBool     = value.TypeOf[bool]()
	typeInt      = value.TypeOf[int64]()
	typeReal     = value.TypeOf[float64]()
	typeComplex  = value.TypeOf[complex128]()
	typeText     = value.TypeOf[string]()
	typeIntVec   = value.TypeOf[[]int64]()
	typeRealVec  = value.TypeOf[[]float64]()
	typeTextList = value.TypeOf[[]string]()
)

// coerce converts a decoded plan value (YAML or CUE) to the Go type of t.
// Integers widen to reals and complex numbers; integral reals narrow to
// integers; lists convert element-wise.
func coerce(raw any, t value.Type) (any, bool) {
	switch {
	case t.Equal(typeBool):
		b, ok := raw.(bool)
		return b, ok
	case t.Equal(typeText):
		s, ok := raw.(string)
		return s, ok
	case t.Equal(typeInt):
		return toInt(raw)
	case t.Equal(typeReal):
		return toReal(raw)
	case t.Equal(typeComplex):
		return toComplex(raw)
	case t.Equal(typeIntVec):
		return toList(raw, toInt)
	case t.Equal(typeRealVec):
		return toList(raw, toReal)
	case t.Equal(typeTextList):
		return toList(raw, func(v any) (string, bool) {
			s, ok := v.(string)
			return s, ok
		})
	}
	if t.Accepts(raw) {
		return raw, true
	}
	return nil, false
}

func toInt(raw any) (int64, bool) {
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
			return 0, false
		}
		return int64(f), true
	}
	return 0, false
}

func toReal(raw any) (float64, bool) {
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	if i, ok := toInt(raw); ok {
		return float64(i), true
	}
	return 0, false
}

func toComplex(raw any) (complex128, bool) {
	switch x := raw.(type) {
	case complex128:
		return x, true
	case complex64:
		return complex128(x), true
	case string:
		c, err := strconv.ParseComplex(strings.ReplaceAll(x, " ", ""), 128)
		return c, err == nil
	}
	if f, ok := toReal(raw); ok {
		return complex(f, 0), true
	}
	return 0, false
}

func toList[E any](raw any, elem func(any) (E, bool)) ([]E, bool) {
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]E, rv.Len())
	for i := range out {
		e, ok := elem(rv.Index(i).Interface())
		if !ok {
			return nil, false
		}
		out[i] = e
	}
	return out, true
}

// describe names the type of a raw plan value for error messages.
func describe(raw any) string {
	if raw == nil {
		return "null"
	}
	if _, ok := toInt(raw); ok {
		if _, isFloat := raw.(float64); !isFloat {
			return "integer"
		}
	}
	switch reflect.ValueOf(raw).Kind() {
	case reflect.Float32, reflect.Float64:
		return "real"
	case reflect.Slice:
		return "list"
	case reflect.Map:
		return "mapping"
	}
	return value.TypeOfValue(raw).Name()
}

// trimRef strips the "$" that marks a store key in plans.
func trimRef(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), "$")
}

// isRef reports whether a literal slot argument is a "$key" reference.
func isRef(raw any) (string, bool) {
	s, ok := raw.(string)
	if !ok || !strings.HasPrefix(strings.TrimSpace(s), "$") {
		return "", false
	}
	return trimRef(s), true
}
