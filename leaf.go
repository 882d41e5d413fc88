package kvtree

import (
	"encoding"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/spf13/cast"
)

// ErrUnencodableScalar is wrapped by LeafEncoder errors for values that have
// no representation among string, number, bool and null.
var ErrUnencodableScalar = errors.New("kvtree: unencodable scalar")

// LeafEncoder converts terminal values into leaves and map keys into object
// keys. Implementations must be safe for concurrent use.
type LeafEncoder interface {
	EncodeScalar(v any) (Leaf, error)
	KeyString(k any) (string, error)
}

// DefaultLeafEncoder encodes Go scalars the way encoding/json does, except
// that time.Time is normalized to UTC RFC3339 and time.Duration renders as
// its String form.
type DefaultLeafEncoder struct{}

var (
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
	timeType          = reflect.TypeFor[time.Time]()
	durationType      = reflect.TypeFor[time.Duration]()
	numberType        = reflect.TypeFor[json.Number]()
)

func (DefaultLeafEncoder) EncodeScalar(v any) (Leaf, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case string:
		return String(x), nil
	case bool:
		return Bool(x), nil
	case time.Time:
		return String(formatTime(x)), nil
	case time.Duration:
		return String(x.String()), nil
	case json.Number:
		if _, err := strconv.ParseFloat(string(x), 64); err != nil {
			return Leaf{}, fmt.Errorf("%w: json.Number %q", ErrUnencodableScalar, string(x))
		}
		return Number(string(x)), nil
	case []byte:
		return String(base64.StdEncoding.EncodeToString(x)), nil
	case encoding.TextMarshaler:
		b, err := x.MarshalText()
		if err != nil {
			return Leaf{}, fmt.Errorf("%w: %T: %w", ErrUnencodableScalar, v, err)
		}
		return String(string(b)), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Number(strconv.FormatInt(rv.Int(), 10)), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Number(strconv.FormatUint(rv.Uint(), 10)), nil
	case reflect.Float32, reflect.Float64:
		text, err := formatFloat(rv.Float(), rv.Type().Bits())
		if err != nil {
			return Leaf{}, err
		}
		return Number(text), nil
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return String(base64.StdEncoding.EncodeToString(rv.Bytes())), nil
		}
	}
	return Leaf{}, fmt.Errorf("%w: %T", ErrUnencodableScalar, v)
}

// KeyString coerces a map key to its object key. Strings pass through, time
// keys use the same RFC3339 form as time leaves, floats use the same text as
// number leaves, and other scalars go through cast after being reduced to
// their underlying basic type. A nil key renders
// as "null".
func (DefaultLeafEncoder) KeyString(k any) (string, error) {
	switch x := k.(type) {
	case nil:
		return "null", nil
	case string:
		return x, nil
	case time.Time:
		return formatTime(x), nil
	case encoding.TextMarshaler:
		b, err := x.MarshalText()
		if err != nil {
			return "", fmt.Errorf("%w: key %T: %w", ErrUnencodableScalar, k, err)
		}
		return string(b), nil
	}
	rv := reflect.ValueOf(k)
	if rv.Kind() == reflect.Float32 || rv.Kind() == reflect.Float64 {
		// same text as the number leaf, not cast's float64 widening
		s, err := formatFloat(rv.Float(), rv.Type().Bits())
		if err != nil {
			return "", fmt.Errorf("key: %w", err)
		}
		return s, nil
	}
	base, ok := basicValue(rv)
	if !ok {
		return "", fmt.Errorf("%w: key %T", ErrUnencodableScalar, k)
	}
	s, err := cast.ToStringE(base)
	if err != nil {
		return "", fmt.Errorf("%w: key %T: %w", ErrUnencodableScalar, k, err)
	}
	return s, nil
}

// basicValue strips a named type down to the predeclared type cast knows.
func basicValue(rv reflect.Value) (any, bool) {
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true
	case reflect.Bool:
		return rv.Bool(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint(), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return nil, false
	}
}

// formatFloat follows encoding/json: shortest representation, exponent form
// only for very large or very small magnitudes.
func formatFloat(f float64, bits int) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%w: %v", ErrUnencodableScalar, f)
	}
	abs := math.Abs(f)
	format := byte('f')
	if abs != 0 {
		if bits == 64 && (abs < 1e-6 || abs >= 1e21) || bits == 32 && (float32(abs) < 1e-6 || float32(abs) >= 1e21) {
			format = 'e'
		}
	}
	s := strconv.FormatFloat(f, format, -1, bits)
	if format == 'e' {
		// clean up e-09 to e-9
		n := len(s)
		if n >= 4 && s[n-4] == 'e' && s[n-3] == '-' && s[n-2] == '0' {
			s = s[:n-2] + s[n-1:]
		}
	}
	return s, nil
}

func formatTime(t time.Time) string {
	// Normalize to UTC and format using RFC3339Nano (Go trims trailing zeros)
	return t.UTC().Format(time.RFC3339Nano)
}
