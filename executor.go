package docengine

import (
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/kartikbazzad/docengine/internal/logx"
)

// command is one FIFO queue entry: a closure plus a bypass flag that lets
// it run even while the queue is not yet marked ready.
type command struct {
	bypass bool
	run    func()
}

// executor is the strict FIFO queue of command envelopes that serializes
// every public operation on a Collection. The single dedicated worker is a
// github.com/panjf2000/ants/v2 pool of capacity 1, narrowed to exactly one
// worker so the pool itself, not an application-level mutex, is what
// guarantees serialization.
type executor struct {
	mu       sync.Mutex
	ready    bool
	draining bool
	pending  []*command
	pool     *ants.Pool
	log      *logx.Logger
}

func newExecutor(log *logx.Logger) *executor {
	pool, err := ants.NewPool(1)
	if err != nil {
		// A capacity-1 pool can only fail to construct on invalid size,
		// which 1 never is.
		panic(err)
	}
	if log == nil {
		log = logx.Nop()
	}
	return &executor{pool: pool, log: log}
}

// enqueue appends a command to the tail of the queue and attempts to start
// it. In-memory collections call enqueue with ready already true; persistent
// collections enqueue normal commands before ready flips, and they simply
// wait at the head until markReady releases them.
func (e *executor) enqueue(bypass bool, fn func()) {
	e.mu.Lock()
	e.pending = append(e.pending, &command{bypass: bypass, run: fn})
	e.mu.Unlock()
	e.pump()
}

// markReady flips the ready flag and releases whatever is now eligible to
// run. Called by loadDatabase's bypass command once replay completes.
func (e *executor) markReady() {
	e.mu.Lock()
	e.ready = true
	e.mu.Unlock()
	e.pump()
}

// pump submits the queue head to the worker if it is eligible (ready, or
// itself bypass-flagged) and nothing else is already in flight. Only ever
// looks at the head: the executor never reorders or skips ahead.
func (e *executor) pump() {
	e.mu.Lock()
	if e.draining || len(e.pending) == 0 {
		e.mu.Unlock()
		return
	}
	head := e.pending[0]
	if !e.ready && !head.bypass {
		e.mu.Unlock()
		return
	}
	e.pending = e.pending[1:]
	e.draining = true
	e.mu.Unlock()

	if err := e.pool.Submit(e.runAndContinue(head)); err != nil {
		e.log.Error("executor: submit failed: %v", err)
		e.mu.Lock()
		e.draining = false
		e.mu.Unlock()
		// A failed command still must report through its own callback;
		// running it inline keeps that contract even if the pool itself
		// is unavailable (e.g. already released).
		head.run()
		e.pump()
	}
}

func (e *executor) runAndContinue(c *command) func() {
	return func() {
		c.run()
		e.mu.Lock()
		e.draining = false
		e.mu.Unlock()
		// Submitting from inside the pool's only worker would block on
		// that same worker, so the next head is submitted from a fresh
		// goroutine once this one returns to the pool.
		go e.pump()
	}
}

// close releases the worker pool. A closed executor must not be enqueued to
// again.
func (e *executor) close() {
	e.pool.Release()
}
