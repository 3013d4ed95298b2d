package docengine

import (
	"github.com/kartikbazzad/docengine/internal/logx"
)

// Callback is the result signal every public Collection operation reports
// through: an (err, result) pair delivered once the operation completes.
type Callback func(err error, result interface{})

// UpdateOptions controls Collection.Update.
type UpdateOptions struct {
	Multi  bool
	Upsert bool
}

// RemoveOptions controls Collection.Remove.
type RemoveOptions struct {
	Multi bool
}

// EnsureIndexOptions describes a requested index.
type EnsureIndexOptions struct {
	FieldName string
	Unique    bool
	Sparse    bool
}

// UpdateResult is what Update reports as its result value.
type UpdateResult struct {
	NumReplaced int
	Upserted    bool
	UpsertedDoc Doc
}

// Collection is the public facade: insert/find/findOne/count/update/remove/
// aggregate/ensureIndex/removeIndex/loadDatabase/getAllData, each enqueued
// through the executor so every operation observes strict FIFO ordering.
type Collection struct {
	name      string
	opts      Options
	exec      *executor
	persist   Persister
	log       *logx.Logger

	// Below this point, every field is touched exclusively from inside
	// executor-run commands; no other synchronization guards them. The
	// executor is the collection's sole mutual exclusion mechanism.
	indexes *indexSet
	agg     aggregateSpec
}

// NewCollection constructs a Collection per opts. In-memory collections
// (opts.Filename == "" or opts.InMemoryOnly) start with the executor ready
// immediately; persistent collections start paused until LoadDatabase
// completes. If opts.Autoload is set, LoadDatabase runs synchronously
// before returning.
func NewCollection(name string, opts Options) *Collection {
	log := opts.Logger
	if log == nil {
		log = logx.Nop()
	}
	log = log.With(name)

	var persist Persister
	switch {
	case !opts.persistent():
		persist = noopPersister{}
	case opts.Backend == BackendSQLite:
		sp, err := newSQLitePersister(opts.Filename, opts.CorruptAlertThreshold)
		if err != nil {
			log.Error("open sqlite persister: %v", err)
			persist = noopPersister{}
		} else {
			persist = sp
		}
	default:
		persist = newFilePersister(opts.Filename, opts.FsyncOnCommit, opts.CorruptAlertThreshold)
	}

	c := &Collection{
		name:    name,
		opts:    opts,
		exec:    newExecutor(log),
		persist: persist,
		log:     log,
		indexes: newIndexSet(),
	}

	if !opts.persistent() {
		c.exec.markReady()
	}

	if opts.Autoload && opts.persistent() {
		done := make(chan struct{})
		c.LoadDatabase(func(_ error, _ interface{}) {
			close(done)
		})
		<-done
	}

	return c
}

// Close releases the executor's worker. The collection must not be used
// afterward.
func (c *Collection) Close() {
	c.exec.close()
	c.persist.Close()
}

// LoadDatabase replays the persistence log into the index set and marks the
// executor ready. It is submitted with the bypass flag so it runs even
// while the executor is paused.
func (c *Collection) LoadDatabase(cb Callback) {
	c.exec.enqueue(true, func() {
		docs, specs, err := c.persist.Load()
		if err != nil {
			c.exec.markReady()
			cb(err, nil)
			return
		}

		fresh := newIndexSet()
		for _, spec := range specs {
			fresh.addIndex(NewIndex(spec.FieldName, spec.Unique, spec.Sparse))
		}
		if err := fresh.resetIndexes(docs); err != nil {
			c.exec.markReady()
			cb(err, nil)
			return
		}
		c.indexes = fresh
		c.exec.markReady()
		cb(nil, nil)
	})
}

// Insert inserts a single document or a slice of documents.
func (c *Collection) Insert(docOrDocs interface{}, cb Callback) {
	c.exec.enqueue(false, func() {
		switch v := docOrDocs.(type) {
		case Doc:
			c.insertOne(v, cb)
		case []Doc:
			c.insertMany(v, cb)
		default:
			cb(&Error{Kind: KindInvalidDocument, Message: "insert requires a Doc or []Doc"}, nil)
		}
	})
}

func (c *Collection) insertOne(d Doc, cb Callback) {
	prepared, err := prepareDocumentForInsertion(d)
	if err != nil {
		cb(err, nil)
		return
	}
	if err := c.indexes.addToIndexes(prepared); err != nil {
		cb(err, nil)
		return
	}
	if err := c.persist.Append([]Doc{prepared}); err != nil {
		// Open question, decided: in-memory state is not rolled back on
		// persistence failure.
		cb(wrapError(KindPersistenceFailure, "persist insert", err), nil)
		return
	}
	cb(nil, prepared.clone())
}

func (c *Collection) insertMany(docs []Doc, cb Callback) {
	prepared := make([]Doc, 0, len(docs))
	for _, d := range docs {
		p, err := prepareDocumentForInsertion(d)
		if err != nil {
			cb(err, nil)
			return
		}
		prepared = append(prepared, p)
	}
	if err := c.indexes.addManyToIndexes(prepared); err != nil {
		cb(err, nil)
		return
	}
	if err := c.persist.Append(prepared); err != nil {
		cb(wrapError(KindPersistenceFailure, "persist bulk insert", err), nil)
		return
	}
	out := make([]Doc, len(prepared))
	for i, d := range prepared {
		out[i] = d.clone()
	}
	cb(nil, out)
}

// Count returns the number of live documents matching query.
func (c *Collection) Count(query Doc, cb Callback) {
	c.exec.enqueue(false, func() {
		candidates := planCandidates(c.indexes, query)
		n := 0
		for _, d := range candidates {
			if matchesQuery(d, query) {
				n++
			}
		}
		cb(nil, n)
	})
}

// Find returns every live document matching query, aggregated by the
// collection's currently configured sort/skip/limit.
func (c *Collection) Find(query Doc, cb Callback) {
	c.exec.enqueue(false, func() {
		candidates := planCandidates(c.indexes, query)
		matches := make([]Doc, 0, len(candidates))
		for _, d := range candidates {
			if matchesQuery(d, query) {
				matches = append(matches, d.clone())
			}
		}
		result := runAggregate(c.agg, matches, true)
		cb(nil, result)
	})
}

// FindOne returns the last matching document in aggregated-candidate order,
// or nil. Sort applies to the candidate domain before matching, and
// skip/limit are never honored.
func (c *Collection) FindOne(query Doc, cb Callback) {
	c.exec.enqueue(false, func() {
		candidates := planCandidates(c.indexes, query)
		ordered := runAggregate(c.agg, candidates, false)
		var last Doc
		for _, d := range ordered {
			if matchesQuery(d, query) {
				last = d
			}
		}
		if last == nil {
			cb(nil, nil)
			return
		}
		cb(nil, last.clone())
	})
}

// Aggregate validates and stores aggregation state for subsequent Find/
// FindOne/Update calls on this collection.
func (c *Collection) Aggregate(spec Doc, cb Callback) {
	c.exec.enqueue(false, func() {
		parsed, err := parseAggregateSpec(spec)
		if err != nil {
			if cb != nil {
				cb(err, nil)
			}
			return
		}
		c.agg = parsed
		if cb != nil {
			cb(nil, nil)
		}
	})
}

// Update applies updateQuery to documents matching query.
func (c *Collection) Update(query, updateQuery Doc, options UpdateOptions, cb Callback) {
	c.exec.enqueue(false, func() {
		if options.Upsert {
			candidates := planCandidates(c.indexes, query)
			found := false
			for _, d := range candidates {
				if matchesQuery(d, query) {
					found = true
					break
				}
			}
			if !found {
				template := applyModifier(query.clone(), updateQuery)
				prepared, err := prepareDocumentForInsertion(template)
				if err != nil {
					cb(err, nil)
					return
				}
				if err := c.indexes.addToIndexes(prepared); err != nil {
					cb(err, nil)
					return
				}
				if err := c.persist.Append([]Doc{prepared}); err != nil {
					cb(wrapError(KindPersistenceFailure, "persist upsert", err), nil)
					return
				}
				cb(nil, UpdateResult{NumReplaced: 1, Upserted: true, UpsertedDoc: prepared.clone()})
				return
			}
		}

		candidates := planCandidates(c.indexes, query)
		matches := make([]Doc, 0, len(candidates))
		for _, d := range candidates {
			if matchesQuery(d, query) {
				matches = append(matches, d)
			}
		}
		surviving := runAggregate(c.agg, matches, options.Multi)
		if !options.Multi && len(surviving) > 1 {
			surviving = surviving[:1]
		}

		mods := make([]modification, 0, len(surviving))
		persistBatch := make([]Doc, 0, len(surviving))
		for _, old := range surviving {
			newDoc, err := applyModifierChecked(old, updateQuery)
			if err != nil {
				cb(err, nil)
				return
			}
			mods = append(mods, modification{oldDoc: old, newDoc: newDoc})
			persistBatch = append(persistBatch, newDoc)
		}

		if err := c.indexes.updateIndexes(mods); err != nil {
			cb(err, nil)
			return
		}
		if err := c.persist.Append(persistBatch); err != nil {
			cb(wrapError(KindPersistenceFailure, "persist update", err), nil)
			return
		}
		cb(nil, UpdateResult{NumReplaced: len(mods)})
	})
}

// Remove deletes documents matching query.
func (c *Collection) Remove(query Doc, options RemoveOptions, cb Callback) {
	c.exec.enqueue(false, func() {
		candidates := planCandidates(c.indexes, query)
		matches := make([]Doc, 0, len(candidates))
		for _, d := range candidates {
			if matchesQuery(d, query) {
				matches = append(matches, d)
			}
		}
		surviving := runAggregate(c.agg, matches, options.Multi)
		if !options.Multi && len(surviving) > 1 {
			surviving = surviving[:1]
		}

		tombstones := make([]Doc, 0, len(surviving))
		for _, d := range surviving {
			id, _ := d.getID()
			tombstones = append(tombstones, tombstone(id))
			c.indexes.removeFromIndexes(d)
		}
		if err := c.persist.Append(tombstones); err != nil {
			cb(wrapError(KindPersistenceFailure, "persist remove", err), nil)
			return
		}
		cb(nil, len(surviving))
	})
}

// EnsureIndex creates an index over fieldName if absent, bulk-inserting the
// live document set. On a uniqueness conflict the partially populated index
// is discarded and the error surfaces.
func (c *Collection) EnsureIndex(options EnsureIndexOptions, cb Callback) {
	c.exec.enqueue(false, func() {
		if options.FieldName == "" {
			cb(&Error{Kind: KindMissingField, Message: "ensureIndex requires fieldName"}, nil)
			return
		}
		if _, exists := c.indexes.get(options.FieldName); exists {
			cb(nil, nil)
			return
		}

		ix := NewIndex(options.FieldName, options.Unique, options.Sparse)
		live := c.indexes.idIndex().getAll()
		if err := ix.reset(live); err != nil {
			cb(err, nil)
			return
		}
		c.indexes.addIndex(ix)

		spec := indexSpec{FieldName: options.FieldName, Unique: options.Unique, Sparse: options.Sparse}
		if err := c.persist.Append([]Doc{indexCreatedMarker(spec)}); err != nil {
			c.indexes.removeIndexByField(options.FieldName)
			cb(wrapError(KindPersistenceFailure, "persist index creation", err), nil)
			return
		}
		cb(nil, nil)
	})
}

// RemoveIndex deletes the index over fieldName unconditionally.
func (c *Collection) RemoveIndex(fieldName string, cb Callback) {
	c.exec.enqueue(false, func() {
		c.indexes.removeIndexByField(fieldName)
		if err := c.persist.Append([]Doc{indexRemovedMarker(fieldName)}); err != nil {
			cb(wrapError(KindPersistenceFailure, "persist index removal", err), nil)
			return
		}
		cb(nil, nil)
	})
}

// GetAllData synchronously snapshots every live document via the _id index.
// The snapshot is taken by a command enqueued through the executor like any
// other operation; GetAllData blocks the caller until that command has run.
func (c *Collection) GetAllData() []Doc {
	done := make(chan []Doc, 1)
	c.exec.enqueue(false, func() {
		all := c.indexes.idIndex().getAll()
		out := make([]Doc, len(all))
		for i, d := range all {
			out[i] = d.clone()
		}
		done <- out
	})
	return <-done
}

func (c *Collection) Name() string { return c.name }

// snapshotForCompaction synchronously captures the live document set and
// current non-_id index specs, for use by a background Compactor. Like
// GetAllData, it enqueues through the executor.
func (c *Collection) snapshotForCompaction() ([]Doc, []indexSpec) {
	type result struct {
		docs  []Doc
		specs []indexSpec
	}
	done := make(chan result, 1)
	c.exec.enqueue(false, func() {
		all := c.indexes.idIndex().getAll()
		docs := make([]Doc, len(all))
		for i, d := range all {
			docs[i] = d.clone()
		}
		var specs []indexSpec
		for _, ix := range c.indexes.indexes() {
			if ix.FieldName == "_id" {
				continue
			}
			specs = append(specs, indexSpec{FieldName: ix.FieldName, Unique: ix.Unique, Sparse: ix.Sparse})
		}
		done <- result{docs: docs, specs: specs}
	})
	r := <-done
	return r.docs, r.specs
}
