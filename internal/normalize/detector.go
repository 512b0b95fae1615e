// Package normalize converts raw, loosely-typed records (as decoded from
// JSON) into canonical Record values: stringified scalars are coerced to
// their true semantic type, the identity field is validated, and an
// ingestion timestamp is stamped onto every record.
package normalize

import (
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Dicklesworthstone/aidb/internal/valuetype"
)

// nullVariants are case-insensitive string spellings of "no value".
var nullVariants = map[string]struct{}{
	"null": {}, "none": {}, "nil": {}, "": {},
}

// boolTrueVariants and boolFalseVariants are deliberately narrow: the
// source corpus reserves "0"/"1" for genuine integers, so only the word
// forms are treated as booleans.
var boolTrueVariants = map[string]struct{}{"true": {}, "yes": {}}
var boolFalseVariants = map[string]struct{}{"false": {}, "no": {}}

var uuidPattern = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// datetimeFormats mirrors the fixed format list used for type detection.
// Order matters only for parsing (first match wins); it does not affect
// detection, which only cares whether any format matches.
var datetimeFormats = []string{
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05.999999999Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"2006/01/02",
	"02-01-2006",
	"01-02-2006",
}

// TypeDetector owns string-leaf type detection and coercion. It holds no
// state; it exists as a type so callers can stub it in tests if ever
// needed, matching the house style of small stateless detector types.
type TypeDetector struct{}

// Detect reports the canonical type of an already Go-typed value (as
// produced by encoding/json.Unmarshal into an any): nil, bool, numeric,
// []any, map[string]any, or string. String leaves are further inspected
// via DetectString.
func (TypeDetector) Detect(v any) valuetype.CanonicalType {
	switch t := v.(type) {
	case nil:
		return valuetype.TypeNull
	case bool:
		return valuetype.TypeBool
	case int, int32, int64:
		return valuetype.TypeInt
	case float32, float64:
		return valuetype.TypeFloat
	case []any:
		return valuetype.TypeArray
	case map[string]any:
		return valuetype.TypeObject
	case string:
		return TypeDetector{}.DetectString(t)
	default:
		return valuetype.TypeStr
	}
}

// DetectString classifies a trimmed string leaf in priority order: IP,
// UUID, datetime, else plain string. It does not special-case null/bool
// aliases; that is Coerce's job, since detection and coercion serve
// slightly different questions (what does this look like vs. what should
// it become).
func (TypeDetector) DetectString(raw string) valuetype.CanonicalType {
	s := strings.TrimSpace(raw)
	if isIPAddress(s) {
		return valuetype.TypeIP
	}
	if uuidPattern.MatchString(s) {
		return valuetype.TypeUUID
	}
	if _, ok := parseDatetime(s); ok {
		return valuetype.TypeDatetime
	}
	return valuetype.TypeStr
}

func isIPAddress(s string) bool {
	return net.ParseIP(s) != nil
}

func parseDatetime(s string) (time.Time, bool) {
	for _, layout := range datetimeFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CoerceResult is the outcome of coercing a single string leaf.
type CoerceResult struct {
	Value   valuetype.Value
	Coerced bool // true if the Go dynamic type actually changed
	Failed  bool // true if a type looked plausible but conversion failed
	// AttemptedType is set when Failed is true: what we tried to coerce to.
	AttemptedType valuetype.CanonicalType
}

// Coerce runs the full coercion cascade against a trimmed string leaf, in
// the mandated priority order: null-alias, bool-alias, int, float, IP,
// UUID, datetime, else string. Booleans are checked before integers so
// "true"/"false"/"yes"/"no" are never misread as 0/1 integers.
func (d TypeDetector) Coerce(raw string) CoerceResult {
	s := strings.TrimSpace(raw)
	lower := strings.ToLower(s)

	if _, ok := nullVariants[lower]; ok {
		return CoerceResult{Value: valuetype.Null(), Coerced: true}
	}

	if _, ok := boolTrueVariants[lower]; ok {
		return CoerceResult{Value: valuetype.NewScalar(valuetype.TypeBool, true), Coerced: true}
	}
	if _, ok := boolFalseVariants[lower]; ok {
		return CoerceResult{Value: valuetype.NewScalar(valuetype.TypeBool, false), Coerced: true}
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return CoerceResult{Value: valuetype.NewScalar(valuetype.TypeInt, n), Coerced: true}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return CoerceResult{Value: valuetype.NewScalar(valuetype.TypeFloat, f), Coerced: true}
	}

	if isIPAddress(s) {
		return CoerceResult{Value: valuetype.NewScalar(valuetype.TypeIP, s), Coerced: true}
	}
	if uuidPattern.MatchString(s) {
		return CoerceResult{Value: valuetype.NewScalar(valuetype.TypeUUID, strings.ToLower(s)), Coerced: true}
	}
	if t, ok := parseDatetime(s); ok {
		return CoerceResult{Value: valuetype.NewScalar(valuetype.TypeDatetime, t), Coerced: true}
	}

	// Nothing matched: stays a string. This is not a coercion failure;
	// failure means a value looked like a richer type but couldn't finish
	// parsing, which this cascade never leaves half-matched.
	return CoerceResult{Value: valuetype.NewScalar(valuetype.TypeStr, s), Coerced: false}
}
