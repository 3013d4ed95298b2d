package docengine

import (
	"path/filepath"
	"testing"
)

func syncCall(op func(Callback)) (error, interface{}) {
	done := make(chan struct{})
	var gotErr error
	var gotResult interface{}
	op(func(err error, result interface{}) {
		gotErr = err
		gotResult = result
		close(done)
	})
	<-done
	return gotErr, gotResult
}

func TestInsertDuplicateIDFails(t *testing.T) {
	col := NewCollection("t", Options{})
	defer col.Close()

	if err, _ := syncCall(func(cb Callback) { col.Insert(Doc{"_id": "a", "x": 1.0}, cb) }); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err, _ := syncCall(func(cb Callback) { col.Insert(Doc{"_id": "a", "x": 2.0}, cb) })
	if err == nil {
		t.Fatalf("expected second insert with duplicate _id to fail")
	}
	de, ok := asDocEngineError(err)
	if !ok || de.Kind != KindUniqueViolation {
		t.Fatalf("expected UniqueViolation, got %v", err)
	}

	_, result := syncCall(func(cb Callback) { col.Find(Doc{}, cb) })
	docs := result.([]Doc)
	if len(docs) != 1 || docs[0]["x"] != 1.0 {
		t.Fatalf("expected exactly the first doc to remain, got %v", docs)
	}
}

func TestEnsureIndexFailsOnExistingConflict(t *testing.T) {
	col := NewCollection("t", Options{})
	defer col.Close()

	for _, d := range []Doc{{"_id": "a", "x": 1.0}, {"_id": "b", "x": 1.0}} {
		if err, _ := syncCall(func(cb Callback) { col.Insert(d, cb) }); err != nil {
			t.Fatalf("seed insert: %v", err)
		}
	}

	err, _ := syncCall(func(cb Callback) {
		col.EnsureIndex(EnsureIndexOptions{FieldName: "x", Unique: true}, cb)
	})
	if err == nil {
		t.Fatalf("expected ensureIndex to fail on existing duplicate values")
	}
	if _, exists := col.indexes.get("x"); exists {
		t.Fatalf("expected partially-built index to be discarded on failure")
	}
}

func TestAggregateSortLimit(t *testing.T) {
	col := NewCollection("t", Options{})
	defer col.Close()

	for _, d := range []Doc{{"a": 1.0}, {"a": 2.0}, {"a": 3.0}} {
		if err, _ := syncCall(func(cb Callback) { col.Insert(d, cb) }); err != nil {
			t.Fatalf("seed insert: %v", err)
		}
	}

	_, _ = syncCall(func(cb Callback) {
		col.Aggregate(Doc{"$sort": []interface{}{Doc{"a": -1.0}}, "$limit": 2.0}, cb)
	})
	_, result := syncCall(func(cb Callback) { col.Find(Doc{}, cb) })
	docs := result.([]Doc)
	if len(docs) != 2 || docs[0]["a"] != 3.0 || docs[1]["a"] != 2.0 {
		t.Fatalf("expected [3,2], got %v", docs)
	}
}

func TestUpsertInsertsWhenAbsent(t *testing.T) {
	col := NewCollection("t", Options{})
	defer col.Close()

	_, result := syncCall(func(cb Callback) {
		col.Update(Doc{"_id": "missing"}, Doc{"$set": Doc{"x": 9.0}}, UpdateOptions{Upsert: true}, cb)
	})
	ur := result.(UpdateResult)
	if ur.NumReplaced != 1 || !ur.Upserted {
		t.Fatalf("expected upsert result {1,true}, got %+v", ur)
	}

	_, found := syncCall(func(cb Callback) { col.FindOne(Doc{"_id": "missing"}, cb) })
	doc := found.(Doc)
	if doc == nil || doc["x"] != 9.0 {
		t.Fatalf("expected upserted doc with x=9, got %v", doc)
	}
}

func TestFileBackedReopenReplaysIndexes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.log")

	col := NewCollection("t", Options{Filename: path, Autoload: true})
	for _, d := range []Doc{{"tag": "a"}, {"tag": "b"}, {"tag": "c"}} {
		if err, _ := syncCall(func(cb Callback) { col.Insert(d, cb) }); err != nil {
			t.Fatalf("seed insert: %v", err)
		}
	}
	if err, _ := syncCall(func(cb Callback) { col.EnsureIndex(EnsureIndexOptions{FieldName: "tag"}, cb) }); err != nil {
		t.Fatalf("ensureIndex: %v", err)
	}
	col.Close()

	reopened := NewCollection("t", Options{Filename: path})
	defer reopened.Close()
	if err, _ := syncCall(func(cb Callback) { reopened.LoadDatabase(cb) }); err != nil {
		t.Fatalf("loadDatabase: %v", err)
	}

	ix, ok := reopened.indexes.get("tag")
	if !ok {
		t.Fatalf("expected tag index to be recreated on replay")
	}
	if ix.len() != 3 {
		t.Fatalf("expected 3 docs in tag index after replay, got %d", ix.len())
	}
}

func TestRemoveMultiClearsCollection(t *testing.T) {
	col := NewCollection("t", Options{})
	defer col.Close()

	for i := 0; i < 5; i++ {
		if err, _ := syncCall(func(cb Callback) { col.Insert(Doc{"i": float64(i)}, cb) }); err != nil {
			t.Fatalf("seed insert: %v", err)
		}
	}

	_, result := syncCall(func(cb Callback) { col.Remove(Doc{}, RemoveOptions{Multi: true}, cb) })
	if n := result.(int); n != 5 {
		t.Fatalf("expected 5 removed, got %d", n)
	}

	if got := col.GetAllData(); len(got) != 0 {
		t.Fatalf("expected empty collection after multi-remove, got %v", got)
	}
}
