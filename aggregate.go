package docengine

import "sort"

// sortClause is one {path: direction} entry of an aggregation's $sort list.
type sortClause struct {
	path string
	dir  int // +1 or -1
}

// aggregateSpec is the validated, stored aggregation state attached to the
// collection itself: configured by aggregate(), consumed by the next
// find()/findOne()/update(). Preserving this shared, collection-level
// mutability is a deliberate open-question decision — see DESIGN.md.
type aggregateSpec struct {
	sort  []sortClause
	skip  int
	limit int
	hasSkip  bool
	hasLimit bool
}

// parseAggregateSpec validates a raw aggregation query document and builds
// an aggregateSpec.
func parseAggregateSpec(q Doc) (aggregateSpec, error) {
	var spec aggregateSpec

	if raw, ok := q["$skip"]; ok {
		n, ok := toFloat(raw)
		if !ok || n < 0 {
			return spec, &Error{Kind: KindInvalidParameter, Message: "$skip must be a non-negative number"}
		}
		spec.skip = int(n)
		spec.hasSkip = true
	}

	if raw, ok := q["$limit"]; ok {
		n, ok := toFloat(raw)
		if !ok || n < 0 {
			return spec, &Error{Kind: KindInvalidParameter, Message: "$limit must be a non-negative number"}
		}
		spec.limit = int(n)
		spec.hasLimit = true
	}

	if raw, ok := q["$sort"]; ok {
		clauses, err := parseSortClauses(raw)
		if err != nil {
			return spec, err
		}
		spec.sort = clauses
	}

	return spec, nil
}

func parseSortClauses(raw interface{}) ([]sortClause, error) {
	switch v := raw.(type) {
	case string:
		return []sortClause{{path: v, dir: 1}}, nil
	case []interface{}:
		out := make([]sortClause, 0, len(v))
		for _, item := range v {
			m, ok := item.(Doc)
			if !ok {
				if mm, ok2 := item.(map[string]interface{}); ok2 {
					m = Doc(mm)
				} else {
					return nil, &Error{Kind: KindInvalidParameter, Message: "$sort entry must be a {path: direction} object"}
				}
			}
			for path, dirRaw := range m {
				dir, ok := toFloat(dirRaw)
				if !ok || (dir != 1 && dir != -1) {
					return nil, &Error{Kind: KindInvalidParameter, Message: "$sort direction must be +1 or -1", Field: path}
				}
				out = append(out, sortClause{path: path, dir: int(dir)})
			}
		}
		return out, nil
	default:
		return nil, &Error{Kind: KindInvalidParameter, Message: "$sort must be a path name or a list of {path: direction}"}
	}
}

// runAggregate applies spec.sort to candidates and, if applyLimitSkip is
// true, slices the result by spec.skip/spec.limit.
func runAggregate(spec aggregateSpec, candidates []Doc, applyLimitSkip bool) []Doc {
	out := candidates
	if len(spec.sort) > 0 {
		out = make([]Doc, len(candidates))
		copy(out, candidates)
		sort.SliceStable(out, func(i, j int) bool {
			return compareBySortClauses(out[i], out[j], spec.sort) < 0
		})
	}

	if !applyLimitSkip {
		return out
	}

	skip := 0
	if spec.hasSkip {
		skip = spec.skip
	}
	if skip > len(out) {
		skip = len(out)
	}
	out = out[skip:]

	if lim, ok := effectiveSliceLimit(spec); ok {
		if lim < 0 {
			lim = 0
		}
		if lim > len(out) {
			lim = len(out)
		}
		out = out[:lim]
	}
	return out
}

// effectiveSliceLimit returns how many elements to keep after skip has
// already been applied to the slice (i.e. spec.limit itself, not
// skip+limit, since skip was already consumed above).
func effectiveSliceLimit(spec aggregateSpec) (int, bool) {
	if spec.hasLimit {
		return spec.limit, true
	}
	return 0, false
}

// compareBySortClauses is a clause-by-clause comparator: both defined ->
// compare, direction flips the sign; exactly one defined -> the defined
// side wins according to direction; both undefined -> next clause;
// exhausted -> 0.
func compareBySortClauses(a, b Doc, clauses []sortClause) int {
	for _, c := range clauses {
		av, aok := getPath(a, c.path)
		bv, bok := getPath(b, c.path)
		switch {
		case aok && bok:
			cmp := compareValues(av, bv)
			if cmp == 0 {
				continue
			}
			if cmp > 0 {
				return c.dir
			}
			return -c.dir
		case aok && !bok:
			return c.dir
		case !aok && bok:
			return -c.dir
		default:
			continue
		}
	}
	return 0
}
