package docengine

import "testing"

func TestIndexSetAddToIndexesRollback(t *testing.T) {
	is := newIndexSet()
	is.addIndex(NewIndex("x", true, false))

	a := Doc{"_id": "a", "x": 1.0}
	if err := is.addToIndexes(a); err != nil {
		t.Fatalf("insert a: %v", err)
	}

	// Same x, different _id: passes the _id index, fails the x index.
	b := Doc{"_id": "b", "x": 1.0}
	if err := is.addToIndexes(b); err == nil {
		t.Fatalf("expected rollback on x uniqueness violation")
	}

	idIx, _ := is.get("_id")
	if idIx.len() != 1 {
		t.Fatalf("expected rollback to remove b from the _id index too, got len=%d", idIx.len())
	}
}

func TestIndexSetBulkInsertRollback(t *testing.T) {
	is := newIndexSet()
	docs := []Doc{
		{"_id": "a", "x": 1.0},
		{"_id": "a", "x": 2.0}, // duplicate _id
		{"_id": "c", "x": 3.0},
	}
	if err := is.addManyToIndexes(docs); err == nil {
		t.Fatalf("expected failure on duplicate _id")
	}
	idIx, _ := is.get("_id")
	if idIx.len() != 0 {
		t.Fatalf("expected full rollback, got len=%d", idIx.len())
	}
}

func TestIndexSetUpdateAndRemove(t *testing.T) {
	is := newIndexSet()
	a := Doc{"_id": "a", "x": 1.0}
	if err := is.addToIndexes(a); err != nil {
		t.Fatalf("insert: %v", err)
	}

	newA := Doc{"_id": "a", "x": 2.0}
	if err := is.updateIndexes([]modification{{oldDoc: a, newDoc: newA}}); err != nil {
		t.Fatalf("update: %v", err)
	}

	is.removeFromIndexes(newA)
	idIx, _ := is.get("_id")
	if idIx.len() != 0 {
		t.Fatalf("expected empty set after remove, got %d", idIx.len())
	}
}
