// docengine-shell is an interactive, in-process REPL for exercising an
// embedded docengine.Collection: insert/find/update/remove/ensureIndex
// against a single file-backed or in-memory collection. No socket, no IPC.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"

	"github.com/kartikbazzad/docengine"
	"github.com/kartikbazzad/docengine/internal/logx"
)

func main() {
	filename := flag.String("f", "", "persistence log path (empty = in-memory)")
	sqliteBackend := flag.Bool("sqlite", false, "use the sqlite persistence backend instead of NDJSON")
	flag.Parse()

	opts := docengine.Options{
		Filename: *filename,
		Autoload: *filename != "",
		Logger:   logx.New("docengine-shell"),
	}
	if *sqliteBackend {
		opts.Backend = docengine.BackendSQLite
	}

	col := docengine.NewCollection("shell", opts)
	defer col.Close()

	r := &repl{col: col}
	if err := r.run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type repl struct {
	col   *docengine.Collection
	liner *liner.State
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".docengine_shell_history")
}

func (r *repl) run() error {
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return r.runBatch()
	}

	r.liner = liner.NewLiner()
	defer r.liner.Close()
	r.liner.SetCtrlCAborts(true)

	if f, err := os.Open(historyFile()); err == nil {
		r.liner.ReadHistory(f)
		f.Close()
	}

	fmt.Println("docengine shell - type 'help' for commands")

	for {
		line, err := r.liner.Prompt("docengine> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nbye")
				break
			}
			return fmt.Errorf("reading input: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.liner.AppendHistory(line)
		if !r.dispatch(line) {
			break
		}
	}
	r.saveHistory()
	return nil
}

func (r *repl) runBatch() error {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return err
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !r.dispatch(line) {
			break
		}
	}
	return nil
}

func (r *repl) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			r.liner.WriteHistory(f)
			f.Close()
		}
	}
}

// dispatch runs one command line; returns false to stop the loop.
func (r *repl) dispatch(line string) bool {
	parts := strings.SplitN(line, " ", 2)
	cmd := strings.ToLower(parts[0])
	rest := ""
	if len(parts) > 1 {
		rest = strings.TrimSpace(parts[1])
	}

	switch cmd {
	case "exit", "quit", "q":
		fmt.Println("bye")
		return false
	case "help", "?":
		r.printHelp()
	case "insert":
		r.cmdInsert(rest)
	case "find":
		r.cmdFind(rest)
	case "findone":
		r.cmdFindOne(rest)
	case "update":
		r.cmdUpdate(rest)
	case "remove":
		r.cmdRemove(rest)
	case "ensureindex":
		r.cmdEnsureIndex(rest)
	case "count":
		r.cmdCount(rest)
	case "stats":
		r.cmdStats()
	default:
		fmt.Printf("unknown command: %s (type 'help')\n", cmd)
	}
	return true
}

func (r *repl) printHelp() {
	fmt.Println(`commands:
  insert <json-doc>
  find <json-query>
  findone <json-query>
  update <json-query> <json-update> [multi] [upsert]
  remove <json-query> [multi]
  ensureindex <field> [unique] [sparse]
  count <json-query>
  stats
  exit`)
}

func parseDoc(s string) (docengine.Doc, error) {
	if s == "" {
		s = "{}"
	}
	var d docengine.Doc
	if err := json.Unmarshal([]byte(s), &d); err != nil {
		return nil, err
	}
	return d, nil
}

func (r *repl) cmdInsert(arg string) {
	d, err := parseDoc(arg)
	if err != nil {
		fmt.Println("parse error:", err)
		return
	}
	wait(func(cb docengine.Callback) { r.col.Insert(d, cb) })
}

func (r *repl) cmdFind(arg string) {
	q, err := parseDoc(arg)
	if err != nil {
		fmt.Println("parse error:", err)
		return
	}
	wait(func(cb docengine.Callback) { r.col.Find(q, cb) })
}

func (r *repl) cmdFindOne(arg string) {
	q, err := parseDoc(arg)
	if err != nil {
		fmt.Println("parse error:", err)
		return
	}
	wait(func(cb docengine.Callback) { r.col.FindOne(q, cb) })
}

func (r *repl) cmdCount(arg string) {
	q, err := parseDoc(arg)
	if err != nil {
		fmt.Println("parse error:", err)
		return
	}
	wait(func(cb docengine.Callback) { r.col.Count(q, cb) })
}

func (r *repl) cmdUpdate(arg string) {
	jsonEnd := 0
	depth := 0
	started := false
	for i, ch := range arg {
		if ch == '{' {
			depth++
			started = true
		} else if ch == '}' {
			depth--
			if started && depth == 0 {
				jsonEnd = i + 1
				break
			}
		}
	}
	if jsonEnd == 0 {
		fmt.Println("usage: update <json-query> <json-update> [multi] [upsert]")
		return
	}
	rest := strings.TrimSpace(arg[jsonEnd:])
	q, err := parseDoc(arg[:jsonEnd])
	if err != nil {
		fmt.Println("parse error:", err)
		return
	}

	depth = 0
	started = false
	updateEnd := 0
	for i, ch := range rest {
		if ch == '{' {
			depth++
			started = true
		} else if ch == '}' {
			depth--
			if started && depth == 0 {
				updateEnd = i + 1
				break
			}
		}
	}
	if updateEnd == 0 {
		fmt.Println("missing update document")
		return
	}
	upd, err := parseDoc(rest[:updateEnd])
	if err != nil {
		fmt.Println("parse error:", err)
		return
	}
	flags := strings.Fields(rest[updateEnd:])
	opts := docengine.UpdateOptions{}
	for _, f := range flags {
		switch f {
		case "multi":
			opts.Multi = true
		case "upsert":
			opts.Upsert = true
		}
	}
	wait(func(cb docengine.Callback) { r.col.Update(q, upd, opts, cb) })
}

func (r *repl) cmdRemove(arg string) {
	flags := strings.Fields(arg)
	multi := false
	jsonPart := arg
	if len(flags) > 0 && flags[len(flags)-1] == "multi" {
		multi = true
		jsonPart = strings.TrimSuffix(strings.TrimSpace(arg), "multi")
	}
	q, err := parseDoc(strings.TrimSpace(jsonPart))
	if err != nil {
		fmt.Println("parse error:", err)
		return
	}
	wait(func(cb docengine.Callback) { r.col.Remove(q, docengine.RemoveOptions{Multi: multi}, cb) })
}

func (r *repl) cmdEnsureIndex(arg string) {
	fields := strings.Fields(arg)
	if len(fields) == 0 {
		fmt.Println("usage: ensureindex <field> [unique] [sparse]")
		return
	}
	opts := docengine.EnsureIndexOptions{FieldName: fields[0]}
	for _, f := range fields[1:] {
		switch f {
		case "unique":
			opts.Unique = true
		case "sparse":
			opts.Sparse = true
		}
	}
	wait(func(cb docengine.Callback) { r.col.EnsureIndex(opts, cb) })
}

func (r *repl) cmdStats() {
	s := r.col.Stats()
	fmt.Printf("live=%d log=%s indexes=%v\n", s.LiveDocuments, s.Human(), s.IndexCounts)
}

func wait(op func(docengine.Callback)) {
	done := make(chan struct{})
	op(func(err error, result interface{}) {
		defer close(done)
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		if result == nil {
			fmt.Println("ok")
			return
		}
		b, mErr := json.MarshalIndent(result, "", "  ")
		if mErr != nil {
			fmt.Printf("%v\n", result)
			return
		}
		fmt.Println(string(b))
	})
	<-done
}
