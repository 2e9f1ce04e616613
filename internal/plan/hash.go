package plan

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// DomainPlan prefixes plan hashes so they never collide with other
// content hashes. The version suffix allows changing the encoding.
const DomainPlan = "orca/plan/v1"

// Hash returns the content hash of the enabled steps: SHA-256 over the
// domain, a NUL separator and the canonical JSON of the descriptors.
// Positions, lines and disabled steps do not contribute, so reformatting
// a plan file keeps its hash.
func Hash(p *Plan) (string, error) {
	steps := make([]any, len(p.Steps))
	for i, s := range p.Steps {
		obj := map[string]any{"name": s.Name}
		if len(s.In) > 0 {
			obj["in"] = s.In
		}
		if len(s.Out) > 0 {
			obj["out"] = s.Out
		}
		if s.Note != "" {
			obj["note"] = s.Note
		}
		if s.Fallible {
			obj["fallible"] = true
		}
		steps[i] = obj
	}
	data, err := MarshalCanonical(steps)
	if err != nil {
		return "", fmt.Errorf("hash plan: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(DomainPlan))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// MarshalCanonical encodes decoded plan values as canonical JSON: object
// keys sorted by UTF-16 code units, strings NFC normalized, no HTML
// escaping, integers without exponent and reals in shortest form.
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case nil:
		return fmt.Errorf("null is not allowed in plans")
	case string:
		return writeString(buf, x)
	case bool:
		buf.WriteString(strconv.FormatBool(x))
	case int:
		buf.WriteString(strconv.Itoa(x))
	case int64:
		buf.WriteString(strconv.FormatInt(x, 10))
	case uint64:
		buf.WriteString(strconv.FormatUint(x, 10))
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("non-finite number %v", x)
		}
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			// 2.0 and 2 are the same argument once coerced.
			buf.WriteString(strconv.FormatInt(int64(x), 10))
			return nil
		}
		buf.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
	case []any:
		buf.WriteByte('[')
		for i, e := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, e); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		slices.SortFunc(keys, compareUTF16)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, x[k]); err != nil {
				return fmt.Errorf("%q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported value %T", v)
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'}))
	return nil
}

// compareUTF16 orders strings by UTF-16 code units, which differs from
// byte order for characters outside the BMP.
func compareUTF16(a, b string) int {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	return slices.Compare(ua, ub)
}
