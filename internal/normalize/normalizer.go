package normalize

import (
	"errors"
	"time"

	"github.com/Dicklesworthstone/aidb/internal/valuetype"
)

// ErrMissingIdentity is returned when a raw record lacks a non-empty
// "username" field, the one field every record must carry.
var ErrMissingIdentity = errors.New("normalize: required field \"username\" is missing or empty")

// CoercionEntry records one field whose string representation was
// successfully coerced to a richer canonical type.
type CoercionEntry struct {
	Field    string
	FromType valuetype.CanonicalType
	ToType   valuetype.CanonicalType
}

// FailedCoercion records one field that looked like a richer type but
// could not be converted, and was therefore kept as a plain string.
type FailedCoercion struct {
	Field         string
	AttemptedType valuetype.CanonicalType
}

// CoercionMetadata summarizes what the normalizer changed about a record.
// Normalize returns it alongside the record rather than inside it. The
// pipeline orchestrator discards it, so neither flush results nor the
// status CLI command report it.
type CoercionMetadata struct {
	SuccessfulCoercions []CoercionEntry
	FailedCoercions     []FailedCoercion
}

// Clock abstracts "now" so tests can inject a fixed time instead of
// depending on wall-clock behavior.
type Clock func() time.Time

// Normalizer converts raw decoded-JSON records into canonical Records.
type Normalizer struct {
	detector TypeDetector
	now      Clock
}

// New builds a Normalizer using the real wall clock.
func New() *Normalizer {
	return &Normalizer{detector: TypeDetector{}, now: time.Now}
}

// NewWithClock builds a Normalizer using a caller-supplied clock, for
// deterministic tests.
func NewWithClock(clock Clock) *Normalizer {
	return &Normalizer{detector: TypeDetector{}, now: clock}
}

// Normalize validates, coerces and timestamps a raw record. raw is the
// direct result of decoding a JSON object (map[string]any with nested
// map[string]any/[]any/string/float64/bool/nil). The original map is never
// mutated; a fresh Record is returned alongside its coercion metadata.
func (n *Normalizer) Normalize(raw map[string]any) (valuetype.Record, CoercionMetadata, error) {
	if err := validateRequiredFields(raw); err != nil {
		return nil, CoercionMetadata{}, err
	}

	meta := CoercionMetadata{}
	out := make(valuetype.Record, len(raw)+1)

	for key, value := range raw {
		out[key] = n.normalizeValue(value, key, &meta)
	}

	out["sys_ingested_at"] = valuetype.NewScalar(valuetype.TypeStr, n.now().UTC().Format(time.RFC3339Nano))

	return out, meta, nil
}

func validateRequiredFields(raw map[string]any) error {
	v, ok := raw["username"]
	if !ok || v == nil {
		return ErrMissingIdentity
	}
	s, ok := v.(string)
	if ok && s == "" {
		return ErrMissingIdentity
	}
	return nil
}

// normalizeValue recurses through nested structure, coercing string
// leaves and otherwise preserving shape (objects/arrays are flattened
// later, by the field analyzer, not here).
func (n *Normalizer) normalizeValue(value any, field string, meta *CoercionMetadata) valuetype.Value {
	switch t := value.(type) {
	case nil:
		return valuetype.Null()
	case map[string]any:
		fields := make(map[string]valuetype.Value, len(t))
		for k, v := range t {
			fields[k] = n.normalizeValue(v, field+"."+k, meta)
		}
		return valuetype.NewObject(fields)
	case []any:
		items := make([]valuetype.Value, len(t))
		for i, v := range t {
			items[i] = n.normalizeValue(v, field, meta)
		}
		return valuetype.NewArray(items)
	case bool:
		return valuetype.NewScalar(valuetype.TypeBool, t)
	case int:
		return valuetype.NewScalar(valuetype.TypeInt, int64(t))
	case int64:
		return valuetype.NewScalar(valuetype.TypeInt, t)
	case float64:
		return valuetype.NewScalar(valuetype.TypeFloat, t)
	case string:
		result := n.detector.Coerce(t)
		if result.Coerced && result.Value.CanonicalType() != valuetype.TypeStr {
			meta.SuccessfulCoercions = append(meta.SuccessfulCoercions, CoercionEntry{
				Field:    field,
				FromType: valuetype.TypeStr,
				ToType:   result.Value.CanonicalType(),
			})
		} else if result.Failed {
			meta.FailedCoercions = append(meta.FailedCoercions, FailedCoercion{
				Field:         field,
				AttemptedType: result.AttemptedType,
			})
		}
		return result.Value
	default:
		return valuetype.NewScalar(valuetype.TypeStr, t)
	}
}
