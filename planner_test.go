package docengine

import "testing"

func TestPlanCandidatesEqualityUsesIndex(t *testing.T) {
	is := newIndexSet()
	is.addIndex(NewIndex("x", false, false))
	docs := []Doc{{"_id": "a", "x": 1.0}, {"_id": "b", "x": 2.0}}
	if err := is.addManyToIndexes(docs); err != nil {
		t.Fatalf("seed: %v", err)
	}

	out := planCandidates(is, Doc{"x": 2.0})
	if len(out) != 1 || out[0]["_id"] != "b" {
		t.Fatalf("expected equality plan to return just b, got %v", out)
	}
}

func TestPlanCandidatesMembership(t *testing.T) {
	is := newIndexSet()
	is.addIndex(NewIndex("x", false, false))
	docs := []Doc{{"_id": "a", "x": 1.0}, {"_id": "b", "x": 2.0}, {"_id": "c", "x": 3.0}}
	if err := is.addManyToIndexes(docs); err != nil {
		t.Fatalf("seed: %v", err)
	}

	out := planCandidates(is, Doc{"x": Doc{"$in": []interface{}{1.0, 3.0}}})
	if len(out) != 2 {
		t.Fatalf("expected 2 candidates from $in, got %d", len(out))
	}
}

func TestPlanCandidatesFallbackToIDIndex(t *testing.T) {
	is := newIndexSet()
	docs := []Doc{{"_id": "a", "x": 1.0}, {"_id": "b", "x": 2.0}}
	if err := is.addManyToIndexes(docs); err != nil {
		t.Fatalf("seed: %v", err)
	}

	out := planCandidates(is, Doc{"x": 1.0})
	if len(out) != 2 {
		t.Fatalf("expected full scan fallback (no index on x), got %d", len(out))
	}
}
