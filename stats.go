package docengine

import (
	"os"

	"github.com/dustin/go-humanize"
)

// Stats is a live snapshot of a collection's size.
type Stats struct {
	LiveDocuments int
	IndexCounts   map[string]int
	LogSizeBytes  int64
}

// Human renders LogSizeBytes as a human-readable size instead of a raw
// byte count.
func (s Stats) Human() string {
	return humanize.Bytes(uint64(s.LogSizeBytes))
}

// Stats computes a point-in-time snapshot. Like GetAllData, it is read-only
// and serializes through the executor like any other operation.
func (c *Collection) Stats() Stats {
	done := make(chan Stats, 1)
	c.exec.enqueue(false, func() {
		counts := make(map[string]int)
		for _, ix := range c.indexes.indexes() {
			counts[ix.FieldName] = ix.len()
		}
		var size int64
		if c.opts.persistent() {
			if fi, err := os.Stat(c.opts.Filename); err == nil {
				size = fi.Size()
			}
		}
		done <- Stats{
			LiveDocuments: c.indexes.idIndex().len(),
			IndexCounts:   counts,
			LogSizeBytes:  size,
		}
	})
	return <-done
}
