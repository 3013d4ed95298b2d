package docengine

// modification is the {oldDoc, newDoc} record used to describe a single
// document's transition. For insert, oldDoc is nil; for remove, newDoc is
// nil.
type modification struct {
	oldDoc Doc
	newDoc Doc
}

// indexSet owns every Index for a collection, keyed by field name, and
// implements cross-index atomic mutation with rollback. The "_id" index is
// always present and unique; creation order is tracked via fieldOrder so
// insert/update protocols iterate indexes in the fixed order they were
// created.
type indexSet struct {
	byField   map[string]*Index
	fieldOrder []string
}

func newIndexSet() *indexSet {
	is := &indexSet{byField: make(map[string]*Index)}
	is.addIndex(NewIndex("_id", true, false))
	return is
}

func (is *indexSet) addIndex(ix *Index) {
	is.byField[ix.FieldName] = ix
	is.fieldOrder = append(is.fieldOrder, ix.FieldName)
}

func (is *indexSet) removeIndexByField(fieldName string) {
	if _, ok := is.byField[fieldName]; !ok {
		return
	}
	delete(is.byField, fieldName)
	for i, f := range is.fieldOrder {
		if f == fieldName {
			is.fieldOrder = append(is.fieldOrder[:i], is.fieldOrder[i+1:]...)
			break
		}
	}
}

func (is *indexSet) get(fieldName string) (*Index, bool) {
	ix, ok := is.byField[fieldName]
	return ix, ok
}

func (is *indexSet) idIndex() *Index {
	return is.byField["_id"]
}

// indexes returns every index in creation order.
func (is *indexSet) indexes() []*Index {
	out := make([]*Index, 0, len(is.fieldOrder))
	for _, f := range is.fieldOrder {
		out = append(out, is.byField[f])
	}
	return out
}

// addToIndexes runs the insert protocol: insert into every index in fixed
// order; on failure at index k, remove from indexes 0..k-1 and surface the
// original error. Post-condition on failure: the set is unchanged.
func (is *indexSet) addToIndexes(doc Doc) error {
	order := is.indexes()
	for k, ix := range order {
		if err := ix.insert(doc); err != nil {
			for i := 0; i < k; i++ {
				order[i].remove(doc)
			}
			return err
		}
	}
	return nil
}

// addManyToIndexes runs the bulk-insert protocol: insert each document via
// addToIndexes in order; on failure at document j, remove documents 0..j-1
// from all indexes and surface the failure.
func (is *indexSet) addManyToIndexes(docs []Doc) error {
	for j, d := range docs {
		if err := is.addToIndexes(d); err != nil {
			for i := 0; i < j; i++ {
				is.removeFromIndexes(docs[i])
			}
			return err
		}
	}
	return nil
}

// removeFromIndexes runs the remove protocol: remove doc from every index.
// Infallible once doc is present; not rolled back.
func (is *indexSet) removeFromIndexes(doc Doc) {
	for _, ix := range is.indexes() {
		ix.remove(doc)
	}
}

// updateIndexes runs the update protocol: apply the modification batch to
// every index in fixed order; on failure at index k, revert indexes 0..k-1.
func (is *indexSet) updateIndexes(mods []modification) error {
	order := is.indexes()
	for k, ix := range order {
		if err := ix.update(mods); err != nil {
			for i := 0; i < k; i++ {
				order[i].revertUpdate(mods)
			}
			return err
		}
	}
	return nil
}

// resetIndexes recreates every index's contents from docs, preserving field
// names and flags. Used only during persistence replay.
func (is *indexSet) resetIndexes(docs []Doc) error {
	for _, ix := range is.indexes() {
		if err := ix.reset(docs); err != nil {
			return err
		}
	}
	return nil
}
