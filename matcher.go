package docengine

// A query document maps dotted field paths to clauses. Clauses come in four
// shapes the candidate planner expects as input: a bare equality value,
// {$in: [...]}, a range clause ({$lt/$lte/$gt/$gte: v, ...} possibly
// combined), or anything else, which falls back to equality-against-the-
// raw-value so an operator document with an unrecognized key still matches
// literally.

func isPrimitive(v interface{}) bool {
	switch v.(type) {
	case string, bool, nil, float64, float32,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

// clauseKind classifies a query value so the planner and matcher agree on
// dispatch.
type clauseKind int

const (
	clauseEquality clauseKind = iota
	clauseIn
	clauseRange
	clauseOther
)

func classifyClause(v interface{}) (clauseKind, map[string]interface{}) {
	if isPrimitive(v) {
		return clauseEquality, nil
	}
	op, ok := v.(Doc)
	if !ok {
		if m, ok2 := v.(map[string]interface{}); ok2 {
			op = Doc(m)
		} else {
			return clauseOther, nil
		}
	}
	if in, ok := op["$in"]; ok {
		if arr, ok2 := in.([]interface{}); ok2 {
			_ = arr
			return clauseIn, op
		}
	}
	for _, k := range []string{"$lt", "$lte", "$gt", "$gte"} {
		if _, ok := op[k]; ok {
			return clauseRange, op
		}
	}
	return clauseOther, op
}

// matchesQuery reports whether doc satisfies every clause in q. An empty
// query matches everything.
func matchesQuery(doc Doc, q Doc) bool {
	for path, clause := range q {
		if !matchesClause(doc, path, clause) {
			return false
		}
	}
	return true
}

func matchesClause(doc Doc, path string, clause interface{}) bool {
	actual, present := getPath(doc, path)
	kind, op := classifyClause(clause)
	switch kind {
	case clauseEquality:
		return present && equalValues(actual, clause)
	case clauseIn:
		arr, _ := op["$in"].([]interface{})
		if !present {
			return false
		}
		for _, v := range arr {
			if equalValues(actual, v) {
				return true
			}
		}
		return false
	case clauseRange:
		if !present {
			return false
		}
		return matchesRange(actual, op)
	default:
		return present && equalValues(actual, clause)
	}
}

func matchesRange(actual interface{}, op map[string]interface{}) bool {
	if v, ok := op["$gt"]; ok && compareValues(actual, v) <= 0 {
		return false
	}
	if v, ok := op["$gte"]; ok && compareValues(actual, v) < 0 {
		return false
	}
	if v, ok := op["$lt"]; ok && compareValues(actual, v) >= 0 {
		return false
	}
	if v, ok := op["$lte"]; ok && compareValues(actual, v) > 0 {
		return false
	}
	return true
}

func clauseBounds(op map[string]interface{}) bounds {
	var b bounds
	if v, ok := op["$gt"]; ok {
		b.hasMin, b.min, b.minIncl = true, v, false
	}
	if v, ok := op["$gte"]; ok {
		b.hasMin, b.min, b.minIncl = true, v, true
	}
	if v, ok := op["$lt"]; ok {
		b.hasMax, b.max, b.maxIncl = true, v, false
	}
	if v, ok := op["$lte"]; ok {
		b.hasMax, b.max, b.maxIncl = true, v, true
	}
	return b
}
