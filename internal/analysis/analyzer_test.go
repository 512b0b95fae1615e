package analysis

import (
	"testing"

	"github.com/Dicklesworthstone/aidb/internal/valuetype"
)

func rec(fields map[string]valuetype.Value) valuetype.Record {
	return valuetype.Record(fields)
}

func TestAnalyzeBatchPresenceEqualsSumOfTypeCounts(t *testing.T) {
	a := NewFieldAnalyzer()
	batch := []valuetype.Record{
		rec(map[string]valuetype.Value{"steps": valuetype.NewScalar(valuetype.TypeInt, int64(1))}),
		rec(map[string]valuetype.Value{"steps": valuetype.NewScalar(valuetype.TypeStr, "oops")}),
		rec(map[string]valuetype.Value{"steps": valuetype.Null()}),
	}
	a.AnalyzeBatch(batch)

	s := a.Stats()["steps"]
	sum := 0
	for _, c := range s.TypeCounts {
		sum += c
	}
	if sum != s.PresenceCount {
		t.Errorf("presence_count=%d sum(type_counts)=%d", s.PresenceCount, sum)
	}
}

func TestTypeStabilityRange(t *testing.T) {
	a := NewFieldAnalyzer()
	batch := []valuetype.Record{
		rec(map[string]valuetype.Value{"x": valuetype.NewScalar(valuetype.TypeInt, int64(1))}),
		rec(map[string]valuetype.Value{"x": valuetype.NewScalar(valuetype.TypeInt, int64(2))}),
		rec(map[string]valuetype.Value{"x": valuetype.NewScalar(valuetype.TypeStr, "three")}),
	}
	a.AnalyzeBatch(batch)
	s := a.Stats()["x"]
	if s.TypeStability() < 0 || s.TypeStability() > 1 {
		t.Errorf("type stability out of range: %f", s.TypeStability())
	}
	want := 2.0 / 3.0
	if got := s.TypeStability(); got != want {
		t.Errorf("type stability = %f, want %f", got, want)
	}
}

func TestFlattenSkipsUnderscorePrefixedKeys(t *testing.T) {
	a := NewFieldAnalyzer()
	a.AnalyzeBatch([]valuetype.Record{
		rec(map[string]valuetype.Value{
			"username":            valuetype.NewScalar(valuetype.TypeStr, "alice"),
			"_coercion_metadata":   valuetype.NewObject(nil),
		}),
	})
	if _, ok := a.Stats()["_coercion_metadata"]; ok {
		t.Errorf("internal field should have been skipped")
	}
	if _, ok := a.Stats()["username"]; !ok {
		t.Errorf("username should have been recorded")
	}
}

func TestFlattenNestedObjectAndArray(t *testing.T) {
	a := NewFieldAnalyzer()
	a.AnalyzeBatch([]valuetype.Record{
		rec(map[string]valuetype.Value{
			"username": valuetype.NewScalar(valuetype.TypeStr, "bob"),
			"metadata": valuetype.NewObject(map[string]valuetype.Value{
				"sensor": valuetype.NewObject(map[string]valuetype.Value{
					"v":   valuetype.NewScalar(valuetype.TypeFloat, 2.1),
					"cal": valuetype.NewScalar(valuetype.TypeBool, false),
				}),
			}),
			"tags": valuetype.NewArray([]valuetype.Value{valuetype.NewScalar(valuetype.TypeStr, "a")}),
		}),
	})
	stats := a.Stats()

	if _, ok := stats["metadata.sensor.v"]; !ok {
		t.Fatalf("metadata.sensor.v should be a tracked path")
	}
	if stats["metadata.sensor.v"].DominantType() != valuetype.TypeFloat {
		t.Errorf("metadata.sensor.v dominant type = %v", stats["metadata.sensor.v"].DominantType())
	}
	if stats["metadata"].DominantType() != valuetype.TypeObject {
		t.Errorf("metadata dominant type = %v, want object", stats["metadata"].DominantType())
	}
	if stats["tags"].DominantType() != valuetype.TypeArray {
		t.Errorf("tags dominant type = %v, want array", stats["tags"].DominantType())
	}
	if stats["metadata.sensor.v"].NestingDepth != 2 {
		t.Errorf("metadata.sensor.v nesting depth = %d, want 2", stats["metadata.sensor.v"].NestingDepth)
	}
}

func TestUniqueValuesBoundedAt1000(t *testing.T) {
	a := NewFieldAnalyzer()
	batch := make([]valuetype.Record, 0, 1500)
	for i := 0; i < 1500; i++ {
		batch = append(batch, rec(map[string]valuetype.Value{
			"id": valuetype.NewScalar(valuetype.TypeInt, int64(i)),
		}))
	}
	a.AnalyzeBatch(batch)
	s := a.Stats()["id"]
	if len(s.UniqueValues) != maxUniqueValues {
		t.Errorf("unique values = %d, want %d", len(s.UniqueValues), maxUniqueValues)
	}
	if s.PresenceCount != 1500 {
		t.Errorf("presence count = %d, want 1500 (bound only applies to the set)", s.PresenceCount)
	}
}

func TestUnhashableValuesBumpUnhashableCounter(t *testing.T) {
	a := NewFieldAnalyzer()
	a.AnalyzeBatch([]valuetype.Record{
		rec(map[string]valuetype.Value{
			"tags": valuetype.NewArray([]valuetype.Value{valuetype.NewScalar(valuetype.TypeStr, "a")}),
		}),
		rec(map[string]valuetype.Value{
			"tags": valuetype.NewArray([]valuetype.Value{valuetype.NewScalar(valuetype.TypeStr, "b")}),
		}),
	})
	s := a.Stats()["tags"]
	if s.UniqueCountUnhashable != 2 {
		t.Errorf("unhashable count = %d, want 2", s.UniqueCountUnhashable)
	}
	if len(s.UniqueValues) != 0 {
		t.Errorf("unique values should stay empty for unhashable kinds")
	}
}
