package classify

import (
	"testing"

	"github.com/Dicklesworthstone/aidb/internal/analysis"
	"github.com/Dicklesworthstone/aidb/internal/valuetype"
)

func statsWithUniformType(path string, t valuetype.CanonicalType, presence, total int) *analysis.FieldStats {
	s := analysis.NewFieldStats(path, 0)
	for i := 0; i < presence; i++ {
		s.TypeCounts[t]++
	}
	s.PresenceCount = presence
	for i := 0; i < presence && i < 1000; i++ {
		s.UniqueValues[path+string(rune('a'+i%26))+string(rune(i))] = struct{}{}
	}
	return s
}

func TestBoundaryPresenceRatioAtThreshold(t *testing.T) {
	c := New(DefaultThresholds())
	total := 100
	presence := 70 // exactly ceil(0.7 * 100)
	s := statsWithUniformType("steps", valuetype.TypeInt, presence, total)

	d := c.classifyOne("steps", s, total)
	if d.Backend != BackendSQL {
		t.Errorf("backend = %v, want SQL at exact threshold", d.Backend)
	}
}

func TestBoundaryPresenceRatioOneShortFallsToDoc(t *testing.T) {
	c := New(DefaultThresholds())
	total := 100
	presence := 69 // one record short of ceil(0.7*100)=70
	s := statsWithUniformType("steps", valuetype.TypeInt, presence, total)

	d := c.classifyOne("steps", s, total)
	if d.Backend != BackendDOC {
		t.Errorf("backend = %v, want DOC one record short", d.Backend)
	}
}

func TestSingleNonDominantObservationDropsStabilityBelowThreshold(t *testing.T) {
	c := New(DefaultThresholds())
	total := 100
	s := analysis.NewFieldStats("steps", 0)
	s.PresenceCount = 100
	s.TypeCounts[valuetype.TypeInt] = 89
	s.TypeCounts[valuetype.TypeStr] = 11 // stability 0.89 < 0.9

	d := c.classifyOne("steps", s, total)
	if d.Backend != BackendDOC {
		t.Errorf("backend = %v, want DOC when stability drops below threshold", d.Backend)
	}
}

func TestLinkingFieldAlwaysBoth(t *testing.T) {
	c := New(DefaultThresholds())
	s := statsWithUniformType("username", valuetype.TypeStr, 10, 100)
	d := c.classifyOne("username", s, 100)
	if d.Backend != BackendBOTH {
		t.Errorf("backend = %v, want BOTH for linking field", d.Backend)
	}
	if d.IsNullable {
		t.Errorf("linking field must not be nullable")
	}
}

func TestArrayDominantRoutesDoc(t *testing.T) {
	c := New(DefaultThresholds())
	s := analysis.NewFieldStats("tags", 0)
	s.PresenceCount = 10
	s.TypeCounts[valuetype.TypeArray] = 10
	d := c.classifyOne("tags", s, 10)
	if d.Backend != BackendDOC {
		t.Errorf("backend = %v, want DOC for array dominant", d.Backend)
	}
}

func TestIPVsFloatDisambiguation(t *testing.T) {
	c := New(DefaultThresholds())
	ipStats := statsWithUniformType("ip", valuetype.TypeIP, 60, 60)
	ratioStats := statsWithUniformType("ratio", valuetype.TypeFloat, 60, 60)

	ipDecision := c.classifyOne("ip", ipStats, 60)
	ratioDecision := c.classifyOne("ratio", ratioStats, 60)

	if ipDecision.RelationalType != "VARCHAR(45)" {
		t.Errorf("ip relational type = %s, want VARCHAR(45)", ipDecision.RelationalType)
	}
	if ratioDecision.RelationalType != "DOUBLE" {
		t.Errorf("ratio relational type = %s, want DOUBLE", ratioDecision.RelationalType)
	}
}

func TestPrimaryKeySelectionPicksHighestScore(t *testing.T) {
	c := New(DefaultThresholds())
	stats := map[string]*analysis.FieldStats{
		"username": statsWithUniformType("username", valuetype.TypeStr, 100, 100),
		"user_id":  statsWithUniformType("user_id", valuetype.TypeInt, 100, 100),
	}
	decisions := c.ClassifyAll(stats, 100)

	pkCount := 0
	var pkPath string
	for path, d := range decisions {
		if d.IsPrimaryKey {
			pkCount++
			pkPath = path
		}
	}
	if pkCount != 1 {
		t.Fatalf("expected exactly one primary key, got %d", pkCount)
	}
	if pkPath != "user_id" {
		t.Errorf("expected user_id to win pk scoring (id marker bonus), got %s", pkPath)
	}
}

func TestPrimaryKeyNeverDatetimeOrNested(t *testing.T) {
	c := New(DefaultThresholds())
	stats := map[string]*analysis.FieldStats{
		"sys_ingested_at": statsWithUniformType("sys_ingested_at", valuetype.TypeDatetime, 100, 100),
	}
	decisions := c.ClassifyAll(stats, 100)
	if decisions["sys_ingested_at"].IsPrimaryKey {
		t.Errorf("datetime-typed / timestamp-named field must never become primary key")
	}
}

func TestWideningNullIsNoop(t *testing.T) {
	r := Widen(valuetype.TypeInt, valuetype.TypeNull)
	if !r.CanWiden || r.Action != ActionNoop {
		t.Errorf("null incoming should be a no-op widen: %+v", r)
	}
}

func TestWideningIntToStrIsSafe(t *testing.T) {
	r := Widen(valuetype.TypeInt, valuetype.TypeStr)
	if !r.CanWiden || r.WidenedTo != valuetype.TypeStr {
		t.Errorf("int->str should widen to str: %+v", r)
	}
}

func TestWideningObjectIncomingOnScalarMigratesToDocument(t *testing.T) {
	r := Widen(valuetype.TypeInt, valuetype.TypeObject)
	if r.CanWiden {
		t.Errorf("object incoming on scalar column must not widen")
	}
	if r.Action != ActionMigrateToDocument {
		t.Errorf("action = %v, want migrate-to-document", r.Action)
	}
}

func TestRelationalColumnNameRewritesDotsToUnderscores(t *testing.T) {
	if got := relationalColumnName("metadata.sensor.v"); got != "metadata_sensor_v" {
		t.Errorf("relationalColumnName = %s", got)
	}
}
