package docengine

import (
	"database/sql"
	"encoding/json"

	_ "modernc.org/sqlite"
)

// sqlitePersister is an alternate Persister backed by a single SQLite table
// instead of a flat NDJSON file, using the "sqlite" driver name and WAL
// journal mode the same way the load-test harness opens its results
// database.
type sqlitePersister struct {
	db                    *sql.DB
	corruptAlertThreshold int
}

// newSQLitePersister opens (creating if absent) a SQLite-backed log at
// path.
func newSQLitePersister(path string, corruptAlertThreshold int) (*sqlitePersister, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, wrapError(KindPersistenceFailure, "open sqlite persistence log", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS log_entries (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			payload TEXT NOT NULL
		)`); err != nil {
		db.Close()
		return nil, wrapError(KindPersistenceFailure, "init sqlite schema", err)
	}
	return &sqlitePersister{db: db, corruptAlertThreshold: corruptAlertThreshold}, nil
}

func (p *sqlitePersister) Load() ([]Doc, []indexSpec, error) {
	rows, err := p.db.Query(`SELECT payload FROM log_entries ORDER BY seq ASC`)
	if err != nil {
		return nil, nil, wrapError(KindPersistenceFailure, "query sqlite persistence log", err)
	}
	defer rows.Close()

	byID := make(map[string]Doc)
	order := make([]string, 0)
	specsByField := make(map[string]indexSpec)
	specOrder := make([]string, 0)
	corrupt := 0

	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, nil, wrapError(KindPersistenceFailure, "scan sqlite persistence row", err)
		}
		var raw map[string]interface{}
		if err := json.Unmarshal([]byte(payload), &raw); err != nil {
			corrupt++
			if corrupt > p.corruptAlertThreshold {
				return nil, nil, wrapError(KindPersistenceFailure, "corrupt sqlite persistence row", err)
			}
			continue
		}

		if del, ok := raw["$$deleted"]; ok {
			if b, _ := del.(bool); b {
				if id, ok := raw["_id"].(string); ok {
					delete(byID, id)
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
	if err := rows.Err(); err != nil {
		return nil, nil, wrapError(KindPersistenceFailure, "iterate sqlite persistence rows", err)
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

func (p *sqlitePersister) Append(entries []Doc) error {
	tx, err := p.db.Begin()
	if err != nil {
		return wrapError(KindPersistenceFailure, "begin sqlite persistence tx", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO log_entries(payload) VALUES (?)`)
	if err != nil {
		tx.Rollback()
		return wrapError(KindPersistenceFailure, "prepare sqlite insert", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		payload, err := json.Marshal(e)
		if err != nil {
			tx.Rollback()
			return wrapError(KindPersistenceFailure, "marshal sqlite persistence entry", err)
		}
		if _, err := stmt.Exec(string(payload)); err != nil {
			tx.Rollback()
			return wrapError(KindPersistenceFailure, "insert sqlite persistence entry", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return wrapError(KindPersistenceFailure, "commit sqlite persistence tx", err)
	}
	return nil
}

func (p *sqlitePersister) Close() error {
	return p.db.Close()
}

// Compact replaces every row with exactly one entry per live document plus
// the current index markers, inside a single transaction.
func (p *sqlitePersister) Compact(docs []Doc, specs []indexSpec) error {
	tx, err := p.db.Begin()
	if err != nil {
		return wrapError(KindPersistenceFailure, "begin sqlite compaction tx", err)
	}
	if _, err := tx.Exec(`DELETE FROM log_entries`); err != nil {
		tx.Rollback()
		return wrapError(KindPersistenceFailure, "clear sqlite log for compaction", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO log_entries(payload) VALUES (?)`)
	if err != nil {
		tx.Rollback()
		return wrapError(KindPersistenceFailure, "prepare sqlite compaction insert", err)
	}
	defer stmt.Close()

	for _, spec := range specs {
		payload, _ := json.Marshal(indexCreatedMarker(spec))
		if _, err := stmt.Exec(string(payload)); err != nil {
			tx.Rollback()
			return wrapError(KindPersistenceFailure, "write compacted index marker", err)
		}
	}
	for _, d := range docs {
		payload, err := json.Marshal(d)
		if err != nil {
			tx.Rollback()
			return wrapError(KindPersistenceFailure, "marshal compacted document", err)
		}
		if _, err := stmt.Exec(string(payload)); err != nil {
			tx.Rollback()
			return wrapError(KindPersistenceFailure, "write compacted document", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return wrapError(KindPersistenceFailure, "commit sqlite compaction tx", err)
	}
	return nil
}
