package docengine

import (
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/kartikbazzad/docengine/internal/logx"
)

// Compactor periodically rewrites collections' persistence logs to drop
// entries superseded by a later entry for the same _id, bounding log
// growth. Compaction work for multiple collections runs on a bounded
// goroutine pool; CompactAll starts one waiting goroutine per collection,
// but no more than the pool's capacity of compactions run at once.
//
// Compaction only ever touches a collection's durable log through its
// Persister; it never reaches into live index state, so it runs safely
// concurrently with normal executor traffic.
type Compactor struct {
	pool *ants.PoolWithFunc
	log  *logx.Logger
}

type compactTask struct {
	col  *Collection
	done chan error
}

// NewCompactor builds a Compactor that runs at most concurrency compactions
// at once.
func NewCompactor(concurrency int, log *logx.Logger) (*Compactor, error) {
	if log == nil {
		log = logx.Nop()
	}
	log = log.With("compactor")

	c := &Compactor{log: log}
	pool, err := ants.NewPoolWithFunc(concurrency, func(arg interface{}) {
		t := arg.(*compactTask)
		t.done <- c.compactOne(t.col)
	})
	if err != nil {
		return nil, wrapError(KindPersistenceFailure, "start compactor pool", err)
	}
	c.pool = pool
	return c, nil
}

func (c *Compactor) compactOne(col *Collection) error {
	compactable, ok := col.persist.(Compactable)
	if !ok {
		c.log.Debug("collection %q: persister does not support compaction, skipping", col.Name())
		return nil
	}
	docs, specs := col.snapshotForCompaction()
	if err := compactable.Compact(docs, specs); err != nil {
		c.log.Error("collection %q: compaction failed: %v", col.Name(), err)
		return err
	}
	c.log.Info("collection %q: compacted log to %d live documents", col.Name(), len(docs))
	return nil
}

// Compact runs a single collection's compaction and blocks for its result.
func (c *Compactor) Compact(col *Collection) error {
	t := &compactTask{col: col, done: make(chan error, 1)}
	if err := c.pool.Invoke(t); err != nil {
		return wrapError(KindPersistenceFailure, "submit compaction task", err)
	}
	return <-t.done
}

// CompactAll runs compaction for every given collection in parallel,
// returning one error per collection (nil where compaction succeeded or was
// a no-op).
func (c *Compactor) CompactAll(cols []*Collection) []error {
	errs := make([]error, len(cols))
	var wg sync.WaitGroup
	for i, col := range cols {
		wg.Add(1)
		go func(i int, col *Collection) {
			defer wg.Done()
			errs[i] = c.Compact(col)
		}(i, col)
	}
	wg.Wait()
	return errs
}

// Close releases the compactor's worker pool.
func (c *Compactor) Close() {
	c.pool.Release()
}
