package valuetype

import (
	"encoding/json"
	"testing"
)

func TestEncodeDecodeRecordPreservesIntVsFloat(t *testing.T) {
	r := Record{
		"steps": NewScalar(TypeInt, int64(100)),
		"temp":  NewScalar(TypeFloat, 23.5),
		"tags":  NewArray([]Value{NewScalar(TypeStr, "a")}),
		"meta":  NewObject(map[string]Value{"ok": NewScalar(TypeBool, true)}),
		"note":  Null(),
	}

	encoded := EncodeRecord(r)
	raw, err := json.Marshal(encoded)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var roundTripped map[string]any
	if err := json.Unmarshal(raw, &roundTripped); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	got := DecodeRecord(roundTripped)

	if got["steps"].CanonicalType() != TypeInt || got["steps"].Scalar != int64(100) {
		t.Errorf("steps = %+v, want int64(100)", got["steps"])
	}
	if got["temp"].CanonicalType() != TypeFloat {
		t.Errorf("temp = %+v, want float", got["temp"])
	}
	if got["tags"].CanonicalType() != TypeArray || len(got["tags"].Array) != 1 {
		t.Errorf("tags = %+v", got["tags"])
	}
	if got["meta"].CanonicalType() != TypeObject || got["meta"].Object["ok"].Scalar != true {
		t.Errorf("meta = %+v", got["meta"])
	}
	if !got["note"].IsNull() {
		t.Errorf("note = %+v, want null", got["note"])
	}
}
