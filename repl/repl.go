// Package repl implements blockdb's interactive shell: a single-process,
// single-connection loop over stdin/stdout, the local-shell surface
// spec.md names in place of a network protocol.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"blockdb/catalog"
	"blockdb/exec"
	"blockdb/index"
	"blockdb/sqlparse"
	"blockdb/storage"
)

// REPL reads statements from an input stream and writes their results
// to an output stream until EOF or a "quit" line.
type REPL struct {
	executor *exec.Executor
	catalog  *catalog.Catalog
	log      zerolog.Logger
	in       *bufio.Scanner
	out      io.Writer
}

func New(executor *exec.Executor, cat *catalog.Catalog, log zerolog.Logger, in io.Reader, out io.Writer) *REPL {
	return &REPL{executor: executor, catalog: cat, log: log, in: bufio.NewScanner(in), out: out}
}

// Run reads lines until EOF or a "quit" command and returns the
// process exit code it implies: 0 for a normal quit or EOF.
func (r *REPL) Run() int {
	for r.in.Scan() {
		line := strings.TrimSpace(r.in.Text())
		if line == "" {
			continue
		}
		switch line {
		case "quit":
			return 0
		case "test":
			r.runSelfTest()
			continue
		}
		r.runSQL(line)
	}
	return 0
}

func (r *REPL) runSQL(line string) {
	stmt, err := sqlparse.Parse(line)
	if err != nil {
		r.log.Error().Str("statement", line).Err(err).Msg("parse failed")
		fmt.Fprintf(r.out, "Error: %s\n", err.Error())
		return
	}
	fmt.Fprintln(r.out, stmt.String())

	result, err := r.executor.Execute(stmt)
	if err != nil {
		r.log.Error().Str("statement", line).Err(err).Msg("execute failed")
		fmt.Fprintf(r.out, "Error: %s\n", err.Error())
		return
	}
	fmt.Fprintln(r.out, result.String())
}

// runSelfTest exercises SlottedPage, HeapTable, and BTreeIndex end to
// end, the in-process stand-in for the course project's
// test_heap_storage/unit_test harness invoked from the shell.
func (r *REPL) runSelfTest() {
	if err := selfTest(r.catalog); err != nil {
		r.log.Error().Err(err).Msg("self-test failed")
		fmt.Fprintln(r.out, "failed")
		return
	}
	fmt.Fprintln(r.out, "ok")
}

func selfTest(cat *catalog.Catalog) error {
	page := storage.NewSlottedPage(make([]byte, storage.BlockSize), true)
	id, err := page.Add([]byte("smoke-test-record"))
	if err != nil {
		return err
	}
	data, ok := page.Get(id)
	if !ok || string(data) != "smoke-test-record" {
		return storage.NewRelationError("self-test: slotted page round-trip failed")
	}

	const tableName = "_self_test"
	schema := []storage.ColumnAttribute{
		{Name: "n", Type: storage.INT},
		{Name: "s", Type: storage.TEXT},
	}
	if err := cat.CreateTableFile(tableName, schema); err != nil {
		return err
	}
	defer func() { _ = cat.DropTableFile(tableName) }()

	table, err := cat.GetTable(tableName)
	if err != nil {
		return err
	}
	handle, err := table.Insert(storage.Row{"n": storage.NewInt(7), "s": storage.NewText("ok")})
	if err != nil {
		return err
	}
	row, err := table.Project(handle, nil)
	if err != nil {
		return err
	}
	if row["n"].Int != 7 || row["s"].Text != "ok" {
		return storage.NewRelationError("self-test: heap table round-trip failed")
	}

	idx, err := index.New(table, "_self_test_idx", []string{"n"})
	if err != nil {
		return err
	}
	defer func() { _ = idx.Drop(cat.Environment()) }()
	if err := idx.Create(cat.Environment()); err != nil {
		return err
	}
	found, ok, err := idx.Lookup(map[string]storage.Value{"n": storage.NewInt(7)})
	if err != nil {
		return err
	}
	if !ok || found != handle {
		return storage.NewRelationError("self-test: btree index lookup failed")
	}
	return nil
}
