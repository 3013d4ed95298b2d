package docengine

import (
	"bufio"
	"encoding/json"
	"os"
)

// Compactable is implemented by persisters that can rewrite their log from
// scratch, dropping superseded entries. Not every Persister need support
// this (noopPersister doesn't); callers type-assert before using it.
type Compactable interface {
	Compact(docs []Doc, specs []indexSpec) error
}

// indexSpec is the persisted {fieldName, unique, sparse} declaration for a
// non-_id index, folded from $$indexCreated/$$indexRemoved markers during
// replay.
type indexSpec struct {
	FieldName string
	Unique    bool
	Sparse    bool
}

// Persister is the persistence collaborator: append entries to a durable
// log, and replay that log back into a document set plus an index-flag set
// on load.
type Persister interface {
	// Load reads the entire log and folds it: a document
	// entry supersedes prior entries with the same _id; a tombstone
	// removes the _id; index markers mutate the index-flag set. Order of
	// replay follows file order.
	Load() ([]Doc, []indexSpec, error)

	// Append writes entries atomically (all or nothing per call).
	Append(entries []Doc) error

	// Close releases any underlying file handle.
	Close() error
}

// noopPersister backs in-memory collections; Append/Load are no-ops so the
// collection facade never has to special-case InMemoryOnly.
type noopPersister struct{}

func (noopPersister) Load() ([]Doc, []indexSpec, error) { return nil, nil, nil }
func (noopPersister) Append(_ []Doc) error              { return nil }
func (noopPersister) Close() error                      { return nil }

// filePersister is a line-delimited JSON append log, one document-like
// value per line.
type filePersister struct {
	filename              string
	fsync                 bool
	corruptAlertThreshold int
}

func newFilePersister(filename string, fsync bool, corruptAlertThreshold int) *filePersister {
	return &filePersister{filename: filename, fsync: fsync, corruptAlertThreshold: corruptAlertThreshold}
}

func (p *filePersister) Load() ([]Doc, []indexSpec, error) {
	f, err := os.OpenFile(p.filename, os.O_RDONLY|os.O_CREATE, 0o644)
	if err != nil {
		return nil, nil, wrapError(KindPersistenceFailure, "open persistence log", err)
	}
	defer f.Close()

	byID := make(map[string]Doc)
	order := make([]string, 0)
	specsByField := make(map[string]indexSpec)
	specOrder := make([]string, 0)
	corrupt := 0

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var raw map[string]interface{}
		if err := json.Unmarshal(line, &raw); err != nil {
			corrupt++
			if corrupt > p.corruptAlertThreshold {
				return nil, nil, wrapError(KindPersistenceFailure, "corrupt persistence log line", err)
			}
			continue
		}

		if del, ok := raw["$$deleted"]; ok {
			if b, _ := del.(bool); b {
				if id, ok := raw["_id"].(string); ok {
					if _, existed := byID[id]; existed {
						delete(byID, id)
					}
				}
				continue
			}
		}
		if created, ok := raw["$$indexCreated"].(map[string]interface{}); ok {
			fn, _ := created["fieldName"].(string)
			unique, _ := created["unique"].(bool)
			sparse, _ := created["sparse"].(bool)
			if _, existed := specsByField[fn]; !existed {
				specOrder = append(specOrder, fn)
			}
			specsByField[fn] = indexSpec{FieldName: fn, Unique: unique, Sparse: sparse}
			continue
		}
		if removed, ok := raw["$$indexRemoved"].(string); ok {
			delete(specsByField, removed)
			for i, fn := range specOrder {
				if fn == removed {
					specOrder = append(specOrder[:i], specOrder[i+1:]...)
					break
				}
			}
			continue
		}

		d := Doc(raw)
		id, _ := d.getID()
		if _, existed := byID[id]; !existed {
			order = append(order, id)
		}
		byID[id] = d
	}
	if err := sc.Err(); err != nil {
		return nil, nil, wrapError(KindPersistenceFailure, "reading persistence log", err)
	}

	docs := make([]Doc, 0, len(order))
	for _, id := range order {
		if d, ok := byID[id]; ok {
			docs = append(docs, d)
		}
	}
	specs := make([]indexSpec, 0, len(specOrder))
	for _, fn := range specOrder {
		specs = append(specs, specsByField[fn])
	}
	return docs, specs, nil
}

func (p *filePersister) Append(entries []Doc) error {
	f, err := os.OpenFile(p.filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return wrapError(KindPersistenceFailure, "open persistence log for append", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return wrapError(KindPersistenceFailure, "encode persistence log entry", err)
		}
	}
	if err := w.Flush(); err != nil {
		return wrapError(KindPersistenceFailure, "flush persistence log", err)
	}
	if p.fsync {
		if err := f.Sync(); err != nil {
			return wrapError(KindPersistenceFailure, "fsync persistence log", err)
		}
	}
	return nil
}

func (p *filePersister) Close() error { return nil }

// Compact rewrites the log to contain exactly one entry per live document
// plus the current index markers, then atomically replaces the old file.
// Run out-of-band from the executor: it only touches the durable log via
// this Persister, never live index state.
func (p *filePersister) Compact(docs []Doc, specs []indexSpec) error {
	tmp := p.filename + ".compact.tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return wrapError(KindPersistenceFailure, "open compaction temp file", err)
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, spec := range specs {
		if err := enc.Encode(indexCreatedMarker(spec)); err != nil {
			f.Close()
			os.Remove(tmp)
			return wrapError(KindPersistenceFailure, "write compacted index marker", err)
		}
	}
	for _, d := range docs {
		if err := enc.Encode(d); err != nil {
			f.Close()
			os.Remove(tmp)
			return wrapError(KindPersistenceFailure, "write compacted document", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return wrapError(KindPersistenceFailure, "flush compaction temp file", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return wrapError(KindPersistenceFailure, "close compaction temp file", err)
	}
	if err := os.Rename(tmp, p.filename); err != nil {
		os.Remove(tmp)
		return wrapError(KindPersistenceFailure, "replace persistence log with compacted copy", err)
	}
	return nil
}

func tombstone(id string) Doc {
	return Doc{"$$deleted": true, "_id": id}
}

func indexCreatedMarker(spec indexSpec) Doc {
	return Doc{"$$indexCreated": Doc{
		"fieldName": spec.FieldName,
		"unique":    spec.Unique,
		"sparse":    spec.Sparse,
	}}
}

func indexRemovedMarker(fieldName string) Doc {
	return Doc{"$$indexRemoved": fieldName}
}
