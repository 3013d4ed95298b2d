package docengine

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Doc is a JSON-style document: a tree of named fields whose leaves are
// strings, numbers, booleans, nil, []interface{}, or nested Doc values.
type Doc map[string]interface{}

// pathCache memoizes the strings.Split result for dotted field paths, since
// the planner, matcher, and modifier all re-walk the same handful of paths
// on every call. Bounded so a pathological caller can't grow it without
// limit.
var pathCache = mustPathCache()

func mustPathCache() *lru.Cache[string, []string] {
	c, err := lru.New[string, []string](4096)
	if err != nil {
		// Only possible if size <= 0, which it never is here.
		panic(err)
	}
	return c
}

func splitPath(path string) []string {
	if segs, ok := pathCache.Get(path); ok {
		return segs
	}
	segs := strings.Split(path, ".")
	pathCache.Add(path, segs)
	return segs
}

// getPath returns the value at a dotted path within d, and whether it was
// present. A missing intermediate segment, or an intermediate segment that
// is not itself a document, counts as absent.
func getPath(d Doc, path string) (interface{}, bool) {
	segs := splitPath(path)
	var cur interface{} = d
	for _, seg := range segs {
		m, ok := cur.(Doc)
		if !ok {
			if mm, ok2 := cur.(map[string]interface{}); ok2 {
				m = Doc(mm)
			} else {
				return nil, false
			}
		}
		v, present := m[seg]
		if !present {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// setPath writes value at a dotted path within d, creating intermediate
// Doc levels as needed.
func setPath(d Doc, path string, value interface{}) {
	segs := splitPath(path)
	cur := d
	for i, seg := range segs {
		if i == len(segs)-1 {
			cur[seg] = value
			return
		}
		next, ok := cur[seg].(Doc)
		if !ok {
			if m, ok2 := cur[seg].(map[string]interface{}); ok2 {
				next = Doc(m)
			} else {
				next = Doc{}
			}
			cur[seg] = next
		}
		cur = next
	}
}

// deletePath removes the value at a dotted path within d, if present.
func deletePath(d Doc, path string) {
	segs := splitPath(path)
	cur := d
	for i, seg := range segs {
		if i == len(segs)-1 {
			delete(cur, seg)
			return
		}
		next, ok := cur[seg].(Doc)
		if !ok {
			return
		}
		cur = next
	}
}

// clone produces a deep copy of d. Every document handed to a caller, and
// every document committed to an index, passes through clone.
func (d Doc) clone() Doc {
	if d == nil {
		return nil
	}
	out := make(Doc, len(d))
	for k, v := range d {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case Doc:
		return val.clone()
	case map[string]interface{}:
		return Doc(val).clone()
	case []interface{}:
		cp := make([]interface{}, len(val))
		for i, item := range val {
			cp[i] = deepCopyValue(item)
		}
		return cp
	default:
		return val
	}
}

// getID returns the document's _id and whether it was present as a
// non-empty string.
func (d Doc) getID() (string, bool) {
	v, ok := d["_id"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// validateStructure rejects reserved top-level keys. A key starting with
// '$' is reserved for modifier/marker documents ($set, $$deleted, …) and
// must never appear in a stored document's own fields, except _id which is
// always allowed.
func validateStructure(d Doc) error {
	for k := range d {
		if k == "_id" {
			continue
		}
		if strings.HasPrefix(k, "$") {
			return &Error{Kind: KindInvalidDocument, Message: "reserved key at top level", Field: k}
		}
		if strings.Contains(k, ".") {
			return &Error{Kind: KindInvalidDocument, Message: "field name may not contain '.'", Field: k}
		}
	}
	return nil
}

// prepareDocumentForInsertion assigns a fresh _id when the caller did not
// supply a non-empty one, deep-clones the input, and validates structure.
// Preserving a caller-supplied _id (rather than always overwriting it) is a
// deliberate decision on an open question; see DESIGN.md.
func prepareDocumentForInsertion(d Doc) (Doc, error) {
	clone := d.clone()
	if _, ok := clone.getID(); !ok {
		clone["_id"] = newID()
	}
	if err := validateStructure(clone); err != nil {
		return nil, err
	}
	return clone, nil
}
