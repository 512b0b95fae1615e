package classify

import "github.com/Dicklesworthstone/aidb/internal/valuetype"

// WideningAction describes how a (stored, incoming) type conflict should
// be resolved.
type WideningAction string

const (
	// ActionNoop means the incoming type carries no new information
	// (null widens to anything without requiring a schema change).
	ActionNoop WideningAction = "noop"
	// ActionWiden means the stored column/field should be altered to the
	// wider type and existing values converted.
	ActionWiden WideningAction = "widen"
	// ActionMigrateToDocument means the conflict cannot be resolved by
	// widening a scalar column; the field must move to the document
	// store instead.
	ActionMigrateToDocument WideningAction = "migrate-to-document"
)

type typePair struct {
	from valuetype.CanonicalType
	to   valuetype.CanonicalType
}

// wideningTable is the widening lattice encoded as data, per the design
// note that it must be reviewable and testable in isolation rather than
// buried in conditional code. Every entry not in this table that involves
// an array/object incoming value where the stored type is scalar is
// handled specially in Widen (migrate-to-document), since the lattice
// proper only covers scalar-to-scalar widenings.
var wideningTable = map[typePair]valuetype.CanonicalType{
	{valuetype.TypeInt, valuetype.TypeFloat}:    valuetype.TypeFloat,
	{valuetype.TypeInt, valuetype.TypeStr}:      valuetype.TypeStr,
	{valuetype.TypeFloat, valuetype.TypeStr}:    valuetype.TypeStr,
	{valuetype.TypeBool, valuetype.TypeInt}:     valuetype.TypeInt,
	{valuetype.TypeBool, valuetype.TypeFloat}:   valuetype.TypeFloat,
	{valuetype.TypeBool, valuetype.TypeStr}:     valuetype.TypeStr,
	{valuetype.TypeDatetime, valuetype.TypeStr}: valuetype.TypeStr,
	{valuetype.TypeIP, valuetype.TypeStr}:       valuetype.TypeStr,
	{valuetype.TypeUUID, valuetype.TypeStr}:     valuetype.TypeStr,
}

// WideningResult is the outcome of consulting the lattice for a single
// (stored, incoming) type pair.
type WideningResult struct {
	CanWiden   bool
	WidenedTo  valuetype.CanonicalType
	Action     WideningAction
}

// Widen consults the lattice for the (stored, incoming) canonical type
// pair. null widens to anything as a no-op. Any scalar widens to str
// (every entry in the table targets str, except bool->int, bool->float
// and int->float, all explicitly listed). array/object incoming against a
// scalar stored type can never widen; the caller must migrate the field
// to the document store instead.
func Widen(stored, incoming valuetype.CanonicalType) WideningResult {
	if stored == incoming {
		return WideningResult{CanWiden: true, WidenedTo: stored, Action: ActionNoop}
	}
	if incoming == valuetype.TypeNull || stored == valuetype.TypeNull {
		if stored == valuetype.TypeNull {
			return WideningResult{CanWiden: true, WidenedTo: incoming, Action: ActionNoop}
		}
		return WideningResult{CanWiden: true, WidenedTo: stored, Action: ActionNoop}
	}

	if incoming == valuetype.TypeArray || incoming == valuetype.TypeObject {
		if stored != valuetype.TypeArray && stored != valuetype.TypeObject {
			return WideningResult{CanWiden: false, Action: ActionMigrateToDocument}
		}
	}

	if to, ok := wideningTable[typePair{stored, incoming}]; ok {
		return WideningResult{CanWiden: true, WidenedTo: to, Action: ActionWiden}
	}

	return WideningResult{CanWiden: false, Action: ActionMigrateToDocument}
}
