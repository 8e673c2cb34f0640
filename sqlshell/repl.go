////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

//go:build !js

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/natefinch/atomic"
	"github.com/peterh/liner"
	"github.com/pkg/errors"

	"github.com/litebridge/litebridge-wasm/sqldb"
)

// replCommands lists every shell command for the help text and completer, in
// display order.
var replCommands = []struct{ usage, description string }{
	{"open <database>", "connect to the named database"},
	{"close", "close the connection and finalize all statements"},
	{"mode", "show the storage mode of the connection"},
	{"exec <sql>", "run a statement; queries print their rows"},
	{"get [int|float|text|blob|bool] <sql>", "run a query for a single value"},
	{"prepare <sql>", "compile a statement and assign it a handle"},
	{"bind <handle> <json array>", "bind values to a statement's parameters"},
	{"step <handle>", "step a statement once and reset it"},
	{"stepfin <handle>", "step a statement once and finalize it"},
	{"finalize <handle>", "finalize a statement"},
	{"handles", "list prepared statements"},
	{"export <file> [passphrase]", "write the database image to a file"},
	{"import <file> [passphrase]", "replace the database with an image"},
	{"help", "show this help"},
	{"quit", "exit the shell"},
}

// prepared is a statement the shell has compiled, keyed by a short alias.
type prepared struct {
	handle sqldb.Handle
	sql    string
}

// REPL drives a database client from interactive terminal input.
type REPL struct {
	db  *sqldb.Database
	out io.Writer

	// stmts maps the short aliases assigned by prepare to bridge handles.
	// order preserves assignment order for the handles listing.
	stmts  map[string]prepared
	order  []string
	nextID int

	database string
	mode     sqldb.StorageMode

	historyFile string
	line        *liner.State
}

// newREPL returns a shell over the given client writing output to out.
func newREPL(db *sqldb.Database, out io.Writer, historyFile string) *REPL {
	return &REPL{
		db:          db,
		out:         out,
		stmts:       make(map[string]prepared),
		historyFile: historyFile,
	}
}

// Run reads and dispatches commands until the user exits.
func (r *REPL) Run() error {
	r.line = liner.NewLiner()
	defer r.line.Close()

	r.line.SetCtrlCAborts(true)
	r.line.SetCompleter(r.completer)

	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}

	fmt.Fprintln(r.out, "sqlshell - type 'help' for available commands.")

	for {
		input, err := r.line.Prompt("sql> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Fprintln(r.out)
				break
			}
			return errors.Wrap(err, "failed to read input")
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		r.line.AppendHistory(input)

		if r.dispatch(input) {
			break
		}
	}

	r.saveHistory()
	return nil
}

// dispatch runs a single command line and reports whether the shell should
// exit. Command errors are printed, not returned.
func (r *REPL) dispatch(input string) bool {
	command, rest := splitCommand(input)

	var err error
	switch strings.ToLower(command) {
	case "quit", "exit", "q":
		return true
	case "help":
		r.printHelp()
	case "open":
		err = r.cmdOpen(rest)
	case "close":
		err = r.cmdClose()
	case "mode":
		r.cmdMode()
	case "exec":
		err = r.cmdExec(rest)
	case "get":
		err = r.cmdGet(rest)
	case "prepare":
		err = r.cmdPrepare(rest)
	case "bind":
		err = r.cmdBind(rest)
	case "step":
		err = r.cmdStep(rest)
	case "stepfin":
		err = r.cmdStepFin(rest)
	case "finalize":
		err = r.cmdFinalize(rest)
	case "handles":
		r.cmdHandles()
	case "export":
		err = r.cmdExport(rest)
	case "import":
		err = r.cmdImport(rest)
	default:
		err = errors.Errorf(
			"unknown command %q; type 'help' for a list", command)
	}

	if err != nil {
		fmt.Fprintf(r.out, "error: %s\n", err)
	}
	return false
}

func (r *REPL) cmdOpen(name string) error {
	if name == "" {
		return errors.New("usage: open <database>")
	}

	mode, err := r.db.Connect(name)
	if err != nil {
		return err
	}

	r.database, r.mode = name, mode
	fmt.Fprintf(r.out, "connected to %q (%s storage, persistent: %t)\n",
		name, mode, mode.Persistent())
	return nil
}

func (r *REPL) cmdClose() error {
	if err := r.db.Close(); err != nil {
		return err
	}

	// Closing finalizes every statement on the far side.
	r.clearStatements()
	r.database, r.mode = "", ""
	fmt.Fprintln(r.out, "closed")
	return nil
}

func (r *REPL) cmdMode() {
	if r.mode == "" {
		fmt.Fprintln(r.out, "not connected")
		return
	}

	fmt.Fprintf(r.out, "%q uses %s storage (persistent: %t)\n",
		r.database, r.mode, r.mode.Persistent())
}

func (r *REPL) cmdExec(sql string) error {
	if sql == "" {
		return errors.New("usage: exec <sql>")
	}

	req := sqldb.ExecRequest{SQL: sql}
	if looksLikeQuery(sql) {
		req.Result = sqldb.ResultRows
	}

	result, err := r.db.Exec(req)
	if err != nil {
		return err
	}

	if req.Result == sqldb.ResultRows {
		r.printRows(result.Columns, result.Rows)
		fmt.Fprintf(r.out, "%d rows\n", len(result.Rows))
	} else {
		fmt.Fprintf(r.out, "ok: %d rows affected, last insert id %d\n",
			result.RowsAffected, result.LastInsertID)
	}
	return nil
}

func (r *REPL) cmdGet(rest string) error {
	if rest == "" {
		return errors.New("usage: get [int|float|text|blob|bool] <sql>")
	}

	hint := sqldb.HintNone
	if first, remainder := splitCommand(rest); remainder != "" {
		switch h := sqldb.TypeHint(strings.ToLower(first)); h {
		case sqldb.HintInt, sqldb.HintFloat, sqldb.HintText, sqldb.HintBlob,
			sqldb.HintBool:
			hint, rest = h, remainder
		}
	}

	value, found, err := r.db.SelectValue(rest, nil, hint)
	if err != nil {
		return err
	}
	if !found {
		fmt.Fprintln(r.out, "(no row)")
		return nil
	}

	if blob, ok := value.([]byte); ok {
		fmt.Fprintf(r.out, "x'%x'\n", blob)
	} else {
		fmt.Fprintln(r.out, formatValue(value))
	}
	return nil
}

func (r *REPL) cmdPrepare(sql string) error {
	if sql == "" {
		return errors.New("usage: prepare <sql>")
	}

	handle, err := r.db.Prepare(sql)
	if err != nil {
		return err
	}

	r.nextID++
	name := fmt.Sprintf("s%d", r.nextID)
	r.stmts[name] = prepared{handle: handle, sql: sql}
	r.order = append(r.order, name)

	fmt.Fprintf(r.out, "%s = %s\n", name, handle)
	return nil
}

func (r *REPL) cmdBind(rest string) error {
	name, arg := splitCommand(rest)
	if name == "" || arg == "" {
		return errors.New(`usage: bind <handle> <json array, e.g. [1, "a"]>`)
	}

	var values []any
	if err := json.Unmarshal([]byte(arg), &values); err != nil {
		return errors.Wrap(err, "bind values must be a JSON array")
	}

	if _, err := r.db.Bind(r.resolve(name), values); err != nil {
		return err
	}

	fmt.Fprintf(r.out, "%s bound\n", name)
	return nil
}

func (r *REPL) cmdStep(name string) error {
	if name == "" {
		return errors.New("usage: step <handle>")
	}

	_, row, err := r.db.StepAndReset(r.resolve(name))
	if err != nil {
		return err
	}

	if row {
		fmt.Fprintln(r.out, "row")
	} else {
		fmt.Fprintln(r.out, "done")
	}
	return nil
}

func (r *REPL) cmdStepFin(name string) error {
	if name == "" {
		return errors.New("usage: stepfin <handle>")
	}

	row, code, err := r.db.StepAndFinalize(r.resolve(name))
	if err != nil {
		return err
	}

	r.forget(name)
	fmt.Fprintf(r.out, "row: %t, finalize code: %d\n", row, code)
	return nil
}

func (r *REPL) cmdFinalize(name string) error {
	if name == "" {
		return errors.New("usage: finalize <handle>")
	}

	code, err := r.db.Finalize(r.resolve(name))
	if err != nil {
		return err
	}

	r.forget(name)
	fmt.Fprintf(r.out, "finalized (code %d)\n", code)
	return nil
}

func (r *REPL) cmdHandles() {
	if len(r.order) == 0 {
		fmt.Fprintln(r.out, "no prepared statements")
		return
	}

	for _, name := range r.order {
		p := r.stmts[name]
		fmt.Fprintf(r.out, "%s  %s  %s\n", name, p.handle, p.sql)
	}
}

func (r *REPL) cmdExport(rest string) error {
	file, passphrase := splitCommand(rest)
	if file == "" {
		return errors.New("usage: export <file> [passphrase]")
	}

	image, err := r.db.Export(passphrase)
	if err != nil {
		return err
	}

	if err = atomic.WriteFile(file, bytes.NewReader(image)); err != nil {
		return errors.Wrapf(err, "failed to write %q", file)
	}

	fmt.Fprintf(r.out, "wrote %d bytes to %s\n", len(image), file)
	return nil
}

func (r *REPL) cmdImport(rest string) error {
	file, passphrase := splitCommand(rest)
	if file == "" {
		return errors.New("usage: import <file> [passphrase]")
	}

	image, err := os.ReadFile(file)
	if err != nil {
		return errors.Wrapf(err, "failed to read %q", file)
	}

	mode, err := r.db.Import(image, passphrase)
	if err != nil {
		return err
	}

	// The import invalidated every handle on the far side.
	r.clearStatements()
	r.mode = mode
	fmt.Fprintf(r.out, "imported %d bytes (%s storage)\n", len(image), mode)
	return nil
}

// resolve maps a shell alias to its bridge handle. Unknown names pass
// through as raw handles so stale ones surface the bridge's own error.
func (r *REPL) resolve(name string) sqldb.Handle {
	if p, exists := r.stmts[name]; exists {
		return p.handle
	}
	return sqldb.Handle(name)
}

// forget drops the alias for a statement that no longer exists.
func (r *REPL) forget(name string) {
	if _, exists := r.stmts[name]; !exists {
		return
	}

	delete(r.stmts, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *REPL) clearStatements() {
	r.stmts = make(map[string]prepared)
	r.order = nil
}

func (r *REPL) printRows(columns []string, rows []any) {
	if len(columns) > 0 {
		fmt.Fprintln(r.out, strings.Join(columns, " | "))
	}

	for _, row := range rows {
		values, ok := row.([]any)
		if !ok {
			fmt.Fprintf(r.out, "%v\n", row)
			continue
		}

		parts := make([]string, len(values))
		for i, v := range values {
			parts[i] = formatValue(v)
		}
		fmt.Fprintln(r.out, strings.Join(parts, " | "))
	}
}

func (r *REPL) printHelp() {
	for _, c := range replCommands {
		fmt.Fprintf(r.out, "  %-38s %s\n", c.usage, c.description)
	}
}

// completer offers command name completions for the start of a line.
func (r *REPL) completer(line string) []string {
	var completions []string
	for _, c := range replCommands {
		name, _ := splitCommand(c.usage)
		if strings.HasPrefix(name, strings.ToLower(line)) {
			completions = append(completions, name+" ")
		}
	}
	return completions
}

func (r *REPL) saveHistory() {
	if r.historyFile == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(r.historyFile), 0700); err != nil {
		return
	}

	if f, err := os.Create(r.historyFile); err == nil {
		r.line.WriteHistory(f)
		f.Close()
	}
}

// formatValue renders a single column value, with NULL spelled out and
// floats kept in their shortest form.
func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// splitCommand separates the first word from the rest of the line.
func splitCommand(s string) (string, string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexFunc(s, unicode.IsSpace); i >= 0 {
		return s[:i], strings.TrimSpace(s[i+1:])
	}
	return s, ""
}

// looksLikeQuery reports whether the statement is expected to produce rows,
// which decides if exec asks the bridge to materialize them.
func looksLikeQuery(sql string) bool {
	first, _ := splitCommand(sql)
	switch strings.ToUpper(first) {
	case "SELECT", "WITH", "VALUES", "PRAGMA", "EXPLAIN":
		return true
	}
	return false
}
