package typed

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Helpers to coerce Go and JSON inputs to integers (accept exponent/float forms if integral)
func coerceToInt64(v interface{}) (int64, error) {
	switch t := v.(type) {
	case int:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case uint8:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case uint:
		return coerceToInt64(uint64(t))
	case uint64:
		if t > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", t)
		}
		return int64(t), nil
	case json.Number:
		// Try integer first
		if iv, err := t.Int64(); err == nil {
			return iv, nil
		}
		return integralFloat(t.String())
	case float32:
		return coerceToInt64(float64(t))
	case float64:
		if t != math.Trunc(t) || t < math.MinInt64 || t >= math.MaxInt64 {
			return 0, fmt.Errorf("non-integer numeric for integer field")
		}
		return int64(t), nil
	case string:
		// allow explicit integer strings
		if strings.ContainsAny(t, ".eE") {
			return integralFloat(t)
		}
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, fmt.Errorf("expected integer-like, got %T", v)
	}
}

func integralFloat(s string) (int64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("non-integer numeric for integer field")
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("value %s out of range for integer field", s)
	}
	return int64(f), nil
}

func coerceToUint64(v interface{}) (uint64, error) {
	switch t := v.(type) {
	case uint:
		return uint64(t), nil
	case uint8:
		return uint64(t), nil
	case uint16:
		return uint64(t), nil
	case uint32:
		return uint64(t), nil
	case uint64:
		return t, nil
	case int, int8, int16, int32, int64:
		i, _ := coerceToInt64(t)
		if i < 0 {
			return 0, fmt.Errorf("negative value %d for unsigned field", i)
		}
		return uint64(i), nil
	case json.Number:
		if uv, err := strconv.ParseUint(t.String(), 10, 64); err == nil {
			return uv, nil
		}
		return nonNegativeIntegralFloat(t.String())
	case float32:
		return coerceToUint64(float64(t))
	case float64:
		if t < 0 || t != math.Trunc(t) || t >= math.MaxUint64 {
			return 0, fmt.Errorf("non-integer numeric for unsigned field")
		}
		return uint64(t), nil
	case string:
		if strings.ContainsAny(t, ".eE") {
			return nonNegativeIntegralFloat(t)
		}
		return strconv.ParseUint(t, 10, 64)
	default:
		return 0, fmt.Errorf("expected unsigned-integer-like, got %T", v)
	}
}

func nonNegativeIntegralFloat(s string) (uint64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 || f != math.Trunc(f) {
		return 0, fmt.Errorf("non-integer numeric for unsigned field")
	}
	if f >= math.MaxUint64 {
		return 0, fmt.Errorf("value %s out of range for unsigned field", s)
	}
	return uint64(f), nil
}

// coerceToFloat64 accepts numbers and the JSON spellings "NaN", "Infinity" and "-Infinity".
func coerceToFloat64(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case json.Number:
		return t.Float64()
	case string:
		switch t {
		case "NaN":
			return math.NaN(), nil
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		}
		return strconv.ParseFloat(t, 64)
	default:
		if i, err := coerceToInt64(v); err == nil {
			return float64(i), nil
		}
		if u, err := coerceToUint64(v); err == nil {
			return float64(u), nil
		}
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}

func coerceToBool(v interface{}) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		return strconv.ParseBool(t)
	default:
		return false, fmt.Errorf("expected bool, got %T", v)
	}
}

// coerceToBytes takes []byte as is and strings as standard or URL-safe base64, padded or not.
func coerceToBytes(v interface{}) ([]byte, error) {
	switch t := v.(type) {
	case []byte:
		return t, nil
	case string:
		for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.URLEncoding, base64.RawStdEncoding, base64.RawURLEncoding} {
			if b, err := enc.DecodeString(t); err == nil {
				return b, nil
			}
		}
		return nil, fmt.Errorf("bytes value is not valid base64")
	default:
		return nil, fmt.Errorf("expected []byte or base64 string, got %T", v)
	}
}

func coerceToString(v interface{}) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}
