package docengine

import "testing"

func TestEqualValuesNestedDocStructural(t *testing.T) {
	a := Doc{"city": "NYC", "zip": 10001.0}
	b := Doc{"city": "LA", "zip": 10001.0}
	c := Doc{"city": "NYC", "zip": 10001.0}

	if equalValues(a, b) {
		t.Fatalf("expected differing nested docs to compare unequal")
	}
	if !equalValues(a, c) {
		t.Fatalf("expected structurally identical nested docs to compare equal")
	}
}

func TestEqualValuesNestedArrayStructural(t *testing.T) {
	a := []interface{}{1.0, "x", Doc{"k": "v"}}
	b := []interface{}{1.0, "x", Doc{"k": "different"}}
	c := []interface{}{1.0, "x", Doc{"k": "v"}}

	if equalValues(a, b) {
		t.Fatalf("expected differing nested arrays to compare unequal")
	}
	if !equalValues(a, c) {
		t.Fatalf("expected structurally identical nested arrays to compare equal")
	}
}

func TestCompareValuesDocOrderingIsDeterministic(t *testing.T) {
	a := Doc{"k": "a"}
	b := Doc{"k": "b"}
	if compareValues(a, b) >= 0 {
		t.Fatalf("expected a < b under canonical JSON ordering")
	}
	if compareValues(b, a) <= 0 {
		t.Fatalf("expected b > a under canonical JSON ordering")
	}
	if compareValues(a, a) != 0 {
		t.Fatalf("expected a doc to compare equal to itself")
	}
}
