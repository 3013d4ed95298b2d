package docengine

import "testing"

func TestParseAggregateSpecValidation(t *testing.T) {
	if _, err := parseAggregateSpec(Doc{"$skip": -1.0}); err == nil {
		t.Fatalf("expected negative $skip to fail")
	}
	if _, err := parseAggregateSpec(Doc{"$limit": "nope"}); err == nil {
		t.Fatalf("expected non-numeric $limit to fail")
	}
	if _, err := parseAggregateSpec(Doc{"$sort": []interface{}{Doc{"a": 2.0}}}); err == nil {
		t.Fatalf("expected $sort direction other than +-1 to fail")
	}

	spec, err := parseAggregateSpec(Doc{"$sort": []interface{}{Doc{"a": -1.0}}, "$skip": 1.0, "$limit": 2.0})
	if err != nil {
		t.Fatalf("valid spec rejected: %v", err)
	}
	if len(spec.sort) != 1 || spec.sort[0].path != "a" || spec.sort[0].dir != -1 {
		t.Fatalf("unexpected parsed sort: %+v", spec.sort)
	}
}

func TestRunAggregateSortSkipLimit(t *testing.T) {
	docs := []Doc{{"a": 1.0}, {"a": 2.0}, {"a": 3.0}}
	spec := aggregateSpec{sort: []sortClause{{path: "a", dir: -1}}, hasLimit: true, limit: 2}

	out := runAggregate(spec, docs, true)
	if len(out) != 2 || out[0]["a"] != 3.0 || out[1]["a"] != 2.0 {
		t.Fatalf("expected [3,2], got %v", out)
	}
}

func TestRunAggregateFindOneIgnoresLimitSkip(t *testing.T) {
	docs := []Doc{{"a": 1.0}, {"a": 2.0}, {"a": 3.0}}
	spec := aggregateSpec{sort: []sortClause{{path: "a", dir: 1}}, hasLimit: true, limit: 1}

	out := runAggregate(spec, docs, false)
	if len(out) != 3 {
		t.Fatalf("expected all 3 candidates (no limit/skip applied), got %d", len(out))
	}
	if out[0]["a"] != 1.0 || out[2]["a"] != 3.0 {
		t.Fatalf("expected ascending sort order, got %v", out)
	}
}

func TestRunAggregateUndefinedFieldOrdering(t *testing.T) {
	// "defined-greater when ascending": an undefined value sorts before a
	// defined one in ascending order, since the defined side counts as
	// the larger value.
	docs := []Doc{{"a": 1.0}, {}}
	spec := aggregateSpec{sort: []sortClause{{path: "a", dir: 1}}}
	out := runAggregate(spec, docs, false)
	if _, ok := out[0]["a"]; ok {
		t.Fatalf("expected undefined-before-defined on ascending sort, got %v", out)
	}
}

func TestRunAggregateSkipBeyondLength(t *testing.T) {
	docs := []Doc{{"a": 1.0}}
	spec := aggregateSpec{hasSkip: true, skip: 5}
	out := runAggregate(spec, docs, true)
	if len(out) != 0 {
		t.Fatalf("expected empty result when $skip exceeds length, got %v", out)
	}
}

func TestRunAggregateZeroLimit(t *testing.T) {
	docs := []Doc{{"a": 1.0}, {"a": 2.0}}
	spec := aggregateSpec{hasLimit: true, limit: 0}
	out := runAggregate(spec, docs, true)
	if len(out) != 0 {
		t.Fatalf("expected empty result for $limit: 0, got %v", out)
	}
}
