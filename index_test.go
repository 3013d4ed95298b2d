package docengine

import "testing"

func TestIndexUniqueViolation(t *testing.T) {
	ix := NewIndex("x", true, false)
	d1 := Doc{"_id": "a", "x": 1.0}
	d2 := Doc{"_id": "b", "x": 1.0}

	if err := ix.insert(d1); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := ix.insert(d2)
	if err == nil {
		t.Fatalf("expected unique violation")
	}
	de, ok := asDocEngineError(err)
	if !ok || de.Kind != KindUniqueViolation {
		t.Fatalf("expected UniqueViolation, got %v", err)
	}
	if ix.len() != 1 {
		t.Fatalf("expected index to still contain only one entry, got %d", ix.len())
	}
}

func TestIndexSparseSkipsMissingField(t *testing.T) {
	ix := NewIndex("tag", false, true)
	d := Doc{"_id": "a"}
	if err := ix.insert(d); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if ix.len() != 0 {
		t.Fatalf("sparse index should skip doc missing the field, got len=%d", ix.len())
	}
}

func TestIndexGetMatchingAndBetweenBounds(t *testing.T) {
	ix := NewIndex("n", false, false)
	for i, id := range []string{"a", "b", "c"} {
		if err := ix.insert(Doc{"_id": id, "n": float64(i + 1)}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	got := ix.getMatching(2.0)
	if len(got) != 1 || got[0]["_id"] != "b" {
		t.Fatalf("getMatching(2.0) = %v", got)
	}

	got = ix.getBetweenBounds(bounds{hasMin: true, min: 1.0, minIncl: false, hasMax: true, max: 3.0, maxIncl: true})
	if len(got) != 2 {
		t.Fatalf("expected 2 docs in (1,3], got %d", len(got))
	}
}

func TestIndexUpdateRollsBackOnViolation(t *testing.T) {
	ix := NewIndex("x", true, false)
	a := Doc{"_id": "a", "x": 1.0}
	b := Doc{"_id": "b", "x": 2.0}
	if err := ix.insert(a); err != nil {
		t.Fatalf("insert a: %v", err)
	}
	if err := ix.insert(b); err != nil {
		t.Fatalf("insert b: %v", err)
	}

	// Try to update b's x to 1, colliding with a.
	bNew := Doc{"_id": "b", "x": 1.0}
	mods := []modification{{oldDoc: b, newDoc: bNew}}
	if err := ix.update(mods); err == nil {
		t.Fatalf("expected unique violation on update")
	}

	got := ix.getMatching(2.0)
	if len(got) != 1 || got[0]["_id"] != "b" {
		t.Fatalf("expected b to remain at x=2 after rollback, got %v", got)
	}
}

func TestIndexReset(t *testing.T) {
	ix := NewIndex("x", false, false)
	docs := []Doc{{"_id": "a", "x": 1.0}, {"_id": "b", "x": 2.0}}
	if err := ix.reset(docs); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if ix.len() != 2 {
		t.Fatalf("expected 2 entries after reset, got %d", ix.len())
	}
}
