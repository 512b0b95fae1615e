package migrate

import (
	"strconv"
	"strings"

	"github.com/Dicklesworthstone/aidb/internal/valuetype"
)

// convertCell converts a raw stored cell value (as scanned from a SQLite
// row or decoded from a document's JSON body — both surface as
// string/[]byte/int64/float64/bool/nil to Go) into target's canonical
// representation. It reports false when v looks like target but cannot
// actually be converted, so the caller can skip and count the row rather
// than silently corrupting data, per the spec's "non-convertible rows are
// skipped and counted" policy.
func convertCell(v any, target valuetype.CanonicalType) (any, bool) {
	if v == nil {
		return nil, true
	}

	switch target {
	case valuetype.TypeStr:
		return stringifyCell(v), true
	case valuetype.TypeInt:
		n, ok := toInt64(v)
		return n, ok
	case valuetype.TypeFloat:
		f, ok := toFloat64(v)
		return f, ok
	default:
		// The widening lattice never targets bool/ip/uuid/datetime/array/
		// object; reaching here means a caller asked for a conversion the
		// lattice does not define.
		return nil, false
	}
}

func stringifyCell(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

func toInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case float64:
		return int64(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	case []byte:
		return toInt64(string(t))
	default:
		return 0, false
	}
}

func toFloat64(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case []byte:
		return toFloat64(string(t))
	default:
		return 0, false
	}
}
