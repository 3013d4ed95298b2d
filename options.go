package docengine

import "github.com/kartikbazzad/docengine/internal/logx"

// Options configures a Collection, narrowed to what a single-collection
// append log needs.
type Options struct {
	// Filename is the path to the persistence log. Empty means in-memory.
	Filename string

	// InMemoryOnly forces in-memory operation even if Filename is set.
	InMemoryOnly bool

	// Autoload, if true, makes NewCollection call LoadDatabase before
	// returning.
	Autoload bool

	// FsyncOnCommit requests an fsync after every persistNewState batch,
	// trading throughput for durability. Honored by filePersister.
	FsyncOnCommit bool

	// CorruptAlertThreshold bounds how many malformed log lines a replay
	// will silently skip before failing with a PersistenceFailure. Zero
	// means "skip none" (any malformed line is fatal).
	CorruptAlertThreshold int

	// Backend selects the persistence collaborator for a persistent
	// collection. Zero value BackendNDJSON is the default.
	Backend Backend

	// Logger, if nil, defaults to a no-op logger.
	Logger *logx.Logger
}

// Backend names a concrete Persister implementation.
type Backend int

const (
	// BackendNDJSON is the default: one JSON document per line.
	BackendNDJSON Backend = iota
	// BackendSQLite stores log entries as rows in a SQLite table.
	BackendSQLite
)

func (o Options) persistent() bool {
	return o.Filename != "" && !o.InMemoryOnly
}
