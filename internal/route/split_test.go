package route

import (
	"testing"

	"github.com/Dicklesworthstone/aidb/internal/classify"
	"github.com/Dicklesworthstone/aidb/internal/valuetype"
)

func decisionFor(path string, backend classify.Backend, col string) *classify.PlacementDecision {
	return &classify.PlacementDecision{Path: path, Backend: backend, RelationalColumn: col, DocumentPath: path}
}

func TestSplitRoutesByBackend(t *testing.T) {
	record := valuetype.Record{
		"username": valuetype.NewScalar(valuetype.TypeStr, "alice"),
		"steps":    valuetype.NewScalar(valuetype.TypeInt, int64(100)),
		"tags":     valuetype.NewArray([]valuetype.Value{valuetype.NewScalar(valuetype.TypeStr, "a")}),
	}
	decisions := map[string]*classify.PlacementDecision{
		"username": decisionFor("username", classify.BackendBOTH, "username"),
		"steps":    decisionFor("steps", classify.BackendSQL, "steps"),
		"tags":     decisionFor("tags", classify.BackendDOC, "tags"),
	}

	sqlPayload, docPayload := Split(record, decisions)

	if sqlPayload["username"] != "alice" || sqlPayload["steps"] != int64(100) {
		t.Errorf("sqlPayload = %+v", sqlPayload)
	}
	if _, ok := sqlPayload["tags"]; ok {
		t.Errorf("DOC field leaked into sqlPayload: %+v", sqlPayload)
	}
	if docPayload["username"] != "alice" {
		t.Errorf("linking field username missing from docPayload: %+v", docPayload)
	}
	if _, ok := docPayload["tags"]; !ok {
		t.Errorf("DOC field missing from docPayload: %+v", docPayload)
	}
	if _, ok := docPayload["steps"]; ok {
		t.Errorf("pure SQL field leaked into docPayload: %+v", docPayload)
	}
}

func TestSplitUnknownPathDefaultsToDocument(t *testing.T) {
	record := valuetype.Record{"mystery": valuetype.NewScalar(valuetype.TypeStr, "x")}
	_, docPayload := Split(record, map[string]*classify.PlacementDecision{})
	if docPayload["mystery"] != "x" {
		t.Errorf("unknown path should default to document store: %+v", docPayload)
	}
}

func TestSplitKeepsLinkingFieldsJoinableWhenOnlySQLFieldsPresent(t *testing.T) {
	record := valuetype.Record{
		"username": valuetype.NewScalar(valuetype.TypeStr, "alice"),
		"steps":    valuetype.NewScalar(valuetype.TypeInt, int64(5)),
	}
	decisions := map[string]*classify.PlacementDecision{
		"username": decisionFor("username", classify.BackendSQL, "username"),
		"steps":    decisionFor("steps", classify.BackendSQL, "steps"),
	}

	sqlPayload, docPayload := Split(record, decisions)
	if len(sqlPayload) != 2 {
		t.Fatalf("sqlPayload = %+v, want 2 entries", sqlPayload)
	}
	if docPayload["username"] != "alice" {
		t.Errorf("linking field should be backfilled into empty docPayload: %+v", docPayload)
	}
}
