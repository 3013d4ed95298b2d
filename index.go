package docengine

import (
	"github.com/google/btree"
)

// Index is a named ordered structure over one dotted field path. It is
// treated by the rest of this package as an external black-box contract:
// insert/remove/update/revertUpdate/getMatching/getBetweenBounds/getAll/
// reset, honoring unique and sparse flags.
//
// The backing ordered container is a github.com/google/btree.BTree keyed by
// composite (value, docID) entries, adapted from a multi-field composite
// key scheme down to a single dotted path.
type Index struct {
	FieldName string
	Unique    bool
	Sparse    bool

	tree *btree.BTree
	// byID tracks, for every document currently indexed, the key value it
	// was indexed under (or that it was sparse-skipped). This lets
	// remove/update locate the old tree entry without re-deriving the key
	// from a document the caller may have already mutated.
	byID map[string]indexedKey
}

type indexedKey struct {
	present bool
	value   interface{}
}

// treeEntry is the btree.Item stored in Index.tree: one per (value, docID)
// pair. For a unique index at most one entry exists per value.
type treeEntry struct {
	value interface{}
	docID string
	doc   Doc
}

func (e treeEntry) Less(other btree.Item) bool {
	o := other.(treeEntry)
	if c := compareValues(e.value, o.value); c != 0 {
		return c < 0
	}
	return e.docID < o.docID
}

// NewIndex constructs an empty index over fieldName. The _id index is
// always created with unique=true by the index set; callers may also
// request unique/sparse for any other field.
func NewIndex(fieldName string, unique, sparse bool) *Index {
	return &Index{
		FieldName: fieldName,
		Unique:    unique,
		Sparse:    sparse,
		tree:      btree.New(32),
		byID:      make(map[string]indexedKey),
	}
}

func (ix *Index) keyFor(doc Doc) (interface{}, bool) {
	v, ok := getPath(doc, ix.FieldName)
	if !ok {
		return nil, false
	}
	return v, true
}

// insert adds doc to the index. Returns ErrUniqueViolation if the index is
// unique and another live document already holds the same key.
func (ix *Index) insert(doc Doc) error {
	id, _ := doc.getID()
	val, present := ix.keyFor(doc)
	if !present {
		if ix.Sparse {
			ix.byID[id] = indexedKey{present: false}
			return nil
		}
		val = nil
	}

	if ix.Unique {
		conflict := false
		ix.tree.AscendGreaterOrEqual(treeEntry{value: val}, func(item btree.Item) bool {
			e := item.(treeEntry)
			if compareValues(e.value, val) == 0 {
				conflict = true
			}
			return false
		})
		if conflict {
			return &Error{Kind: KindUniqueViolation, Message: "duplicate key in unique index", Field: ix.FieldName}
		}
	}

	ix.tree.ReplaceOrInsert(treeEntry{value: val, docID: id, doc: doc})
	ix.byID[id] = indexedKey{present: true, value: val}
	return nil
}

// remove deletes doc from the index. Infallible once the document is
// present.
func (ix *Index) remove(doc Doc) {
	id, _ := doc.getID()
	k, tracked := ix.byID[id]
	if !tracked {
		return
	}
	if k.present {
		ix.tree.Delete(treeEntry{value: k.value, docID: id})
	}
	delete(ix.byID, id)
}

// update applies a modification batch {oldDoc, newDoc} atomically: if any
// entry in the batch would violate uniqueness, the whole batch is rolled
// back and an error is returned, leaving the index unchanged.
func (ix *Index) update(mods []modification) error {
	applied := 0
	for _, m := range mods {
		ix.remove(m.oldDoc)
		if err := ix.insert(m.newDoc); err != nil {
			// Roll back everything applied so far in this batch, then
			// restore the removed-but-not-yet-reinserted old docs.
			for i := 0; i < applied; i++ {
				ix.remove(mods[i].newDoc)
				_ = ix.insert(mods[i].oldDoc)
			}
			_ = ix.insert(m.oldDoc)
			return err
		}
		applied++
	}
	return nil
}

// revertUpdate is the total inverse of a successful update: re-key every
// document in the batch back to its old position.
func (ix *Index) revertUpdate(mods []modification) {
	for _, m := range mods {
		ix.remove(m.newDoc)
		_ = ix.insert(m.oldDoc)
	}
}

// getMatching returns every live document whose indexed key equals value,
// or (for the multi-value form) equals any of values.
func (ix *Index) getMatching(values ...interface{}) []Doc {
	var out []Doc
	for _, v := range values {
		ix.tree.AscendGreaterOrEqual(treeEntry{value: v}, func(item btree.Item) bool {
			e := item.(treeEntry)
			if compareValues(e.value, v) != 0 {
				return false
			}
			out = append(out, e.doc)
			return true
		})
	}
	return out
}

// bounds describes an inclusive/exclusive range for getBetweenBounds,
// rendering the query planner's $gt/$gte/$lt/$lte clause set.
type bounds struct {
	hasMin   bool
	min      interface{}
	minIncl  bool
	hasMax   bool
	max      interface{}
	maxIncl  bool
}

// getBetweenBounds returns every live document whose indexed key falls
// within b.
func (ix *Index) getBetweenBounds(b bounds) []Doc {
	var out []Doc
	visit := func(item btree.Item) bool {
		e := item.(treeEntry)
		if b.hasMax {
			c := compareValues(e.value, b.max)
			if c > 0 || (c == 0 && !b.maxIncl) {
				return false
			}
		}
		if b.hasMin {
			c := compareValues(e.value, b.min)
			if c < 0 || (c == 0 && !b.minIncl) {
				return true
			}
		}
		out = append(out, e.doc)
		return true
	}
	if b.hasMin {
		ix.tree.AscendGreaterOrEqual(treeEntry{value: b.min}, visit)
	} else {
		ix.tree.Ascend(visit)
	}
	return out
}

// getAll returns every live document in the index, in key order.
func (ix *Index) getAll() []Doc {
	out := make([]Doc, 0, ix.tree.Len())
	ix.tree.Ascend(func(item btree.Item) bool {
		out = append(out, item.(treeEntry).doc)
		return true
	})
	return out
}

// reset discards all entries and rebuilds the index from docs, preserving
// FieldName/Unique/Sparse. Used only during persistence replay.
func (ix *Index) reset(docs []Doc) error {
	ix.tree = btree.New(32)
	ix.byID = make(map[string]indexedKey)
	for _, d := range docs {
		if err := ix.insert(d); err != nil {
			return err
		}
	}
	return nil
}

func (ix *Index) len() int {
	return ix.tree.Len()
}
