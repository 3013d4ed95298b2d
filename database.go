package docengine

import (
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kartikbazzad/docengine/internal/logx"
)

// Database is a thin multi-collection registry holding named *Collection
// instances. It introduces no
// cross-collection transaction semantics: each collection still serializes
// independently through its own executor, and Open replays the logs of
// persistent collections opened with Autoload concurrently since their
// replays are independent of one another.
type Database struct {
	mu          sync.RWMutex
	collections map[string]*Collection
	log         *logx.Logger
}

// NewDatabase constructs an empty registry.
func NewDatabase(log *logx.Logger) *Database {
	if log == nil {
		log = logx.Nop()
	}
	return &Database{collections: make(map[string]*Collection), log: log.With("database")}
}

// CollectionSpec names a collection to create under Open.
type CollectionSpec struct {
	Name    string
	Options Options
}

// Open creates a Collection for each CollectionSpec and, for every one
// whose Options are persistent and have Autoload set, replays its log in
// parallel via
// errgroup.Group — cross-collection atomicity across these replays isn't
// attempted, so nothing here coordinates them beyond waiting for all to
// finish.
func (db *Database) Open(specs []CollectionSpec) error {
	db.mu.Lock()
	built := make(map[string]*Collection, len(specs))
	for _, s := range specs {
		opts := s.Options
		if opts.Logger == nil {
			opts.Logger = db.log
		}
		// Autoload is handled by the errgroup below instead of inline in
		// NewCollection, so replay of multiple collections overlaps.
		autoload := opts.Autoload
		opts.Autoload = false
		c := NewCollection(s.Name, opts)
		built[s.Name] = c
		db.collections[s.Name] = c
		if autoload {
			_ = autoload // replayed below
		}
	}
	db.mu.Unlock()

	var g errgroup.Group
	for _, s := range specs {
		s := s
		if !s.Options.Autoload || !s.Options.persistent() {
			continue
		}
		c := built[s.Name]
		g.Go(func() error {
			done := make(chan error, 1)
			c.LoadDatabase(func(err error, _ interface{}) { done <- err })
			return <-done
		})
	}
	return g.Wait()
}

// Collection returns the named collection, or false if it hasn't been
// opened.
func (db *Database) Collection(name string) (*Collection, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	c, ok := db.collections[name]
	return c, ok
}

// Close closes every registered collection.
func (db *Database) Close() {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, c := range db.collections {
		c.Close()
	}
}

// Names returns every registered collection name.
func (db *Database) Names() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]string, 0, len(db.collections))
	for n := range db.collections {
		out = append(out, n)
	}
	return out
}

func (db *Database) String() string {
	return fmt.Sprintf("Database(%d collections)", len(db.collections))
}
