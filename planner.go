package docengine

import "sort"

// sortedKeys returns q's top-level keys in a stable order. "First" is
// defined by the query document's own enumeration order, which assumes an
// insertion-ordered map; Go's map type has none, so this substitutes
// lexical key order to get a deterministic, reproducible planner decision.
// See DESIGN.md for this adaptation.
func sortedKeys(q Doc) []string {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// planCandidates picks the narrowest usable index: equality -> membership ->
// range -> fallback, first applicable rule wins, first matching key by
// enumeration order (see sortedKeys).
func planCandidates(is *indexSet, q Doc) []Doc {
	keys := sortedKeys(q)

	for _, k := range keys {
		if ix, ok := is.get(k); ok {
			if kind, _ := classifyClause(q[k]); kind == clauseEquality {
				return ix.getMatching(q[k])
			}
		}
	}

	for _, k := range keys {
		if ix, ok := is.get(k); ok {
			if kind, op := classifyClause(q[k]); kind == clauseIn {
				arr, _ := op["$in"].([]interface{})
				return ix.getMatching(arr...)
			}
		}
	}

	for _, k := range keys {
		if ix, ok := is.get(k); ok {
			if kind, op := classifyClause(q[k]); kind == clauseRange {
				return ix.getBetweenBounds(clauseBounds(op))
			}
		}
	}

	return is.idIndex().getAll()
}
