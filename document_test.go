package docengine

import "testing"

func TestCloneIsDeep(t *testing.T) {
	d := Doc{"a": 1.0, "nested": Doc{"b": 2.0}, "arr": []interface{}{Doc{"c": 3.0}}}
	clone := d.clone()

	nested := clone["nested"].(Doc)
	nested["b"] = 99.0
	if d["nested"].(Doc)["b"] != 2.0 {
		t.Fatalf("mutating clone's nested doc affected original")
	}

	arr := clone["arr"].([]interface{})
	arr[0].(Doc)["c"] = 99.0
	if d["arr"].([]interface{})[0].(Doc)["c"] != 3.0 {
		t.Fatalf("mutating clone's nested array affected original")
	}
}

func TestGetSetPath(t *testing.T) {
	d := Doc{}
	setPath(d, "a.b.c", 42.0)
	v, ok := getPath(d, "a.b.c")
	if !ok || v != 42.0 {
		t.Fatalf("getPath(a.b.c) = %v, %v, want 42.0, true", v, ok)
	}

	if _, ok := getPath(d, "a.b.missing"); ok {
		t.Fatalf("expected missing intermediate path to be absent")
	}

	deletePath(d, "a.b.c")
	if _, ok := getPath(d, "a.b.c"); ok {
		t.Fatalf("expected deleted path to be absent")
	}
}

func TestValidateStructureRejectsReservedKeys(t *testing.T) {
	if err := validateStructure(Doc{"$set": 1}); err == nil {
		t.Fatalf("expected reserved top-level key to be rejected")
	}
	if err := validateStructure(Doc{"_id": "x", "ok": 1}); err != nil {
		t.Fatalf("expected ordinary document to validate, got %v", err)
	}
}

func TestPrepareDocumentForInsertionPreservesCallerID(t *testing.T) {
	d := Doc{"_id": "explicit-id-123", "x": 1.0}
	prepared, err := prepareDocumentForInsertion(d)
	if err != nil {
		t.Fatalf("prepareDocumentForInsertion: %v", err)
	}
	if prepared["_id"] != "explicit-id-123" {
		t.Fatalf("expected caller-supplied _id to be preserved, got %v", prepared["_id"])
	}
}

func TestPrepareDocumentForInsertionAssignsID(t *testing.T) {
	d := Doc{"x": 1.0}
	prepared, err := prepareDocumentForInsertion(d)
	if err != nil {
		t.Fatalf("prepareDocumentForInsertion: %v", err)
	}
	id, ok := prepared.getID()
	if !ok || len(id) != 16 {
		t.Fatalf("expected a fresh 16-char _id, got %q", id)
	}
}
