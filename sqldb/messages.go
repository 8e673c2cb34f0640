////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package sqldb

// Handle is an opaque identifier standing in for a prepared statement that
// lives in the background context. It has no meaning on the main thread
// beyond being passed back into later statement calls.
type Handle string

// StorageMode reports which backing store a connection ended up on.
type StorageMode string

const (
	// ModeOPFS is a database file in the origin-private file system. Data
	// survives across sessions.
	ModeOPFS StorageMode = "opfs"

	// ModeIndexedDB is an in-memory database whose image is snapshotted to
	// IndexedDB on close and restored on connect. Data survives across
	// sessions as long as the image is written out.
	ModeIndexedDB StorageMode = "indexeddb"

	// ModeMemory is an in-memory database. Data is lost when the worker is
	// torn down.
	ModeMemory StorageMode = "memory"

	// ModeFile is a database file on disk. Only used by native builds.
	ModeFile StorageMode = "file"
)

// Persistent reports whether data stored under this mode survives the
// background context being torn down.
func (sm StorageMode) Persistent() bool {
	return sm == ModeOPFS || sm == ModeIndexedDB || sm == ModeFile
}

// RowMode determines how rows are materialized when an [ExecRequest] asks for
// rows back.
type RowMode string

const (
	// RowModeList materializes each row as a list of column values in column
	// order.
	RowModeList RowMode = "list"

	// RowModeObject materializes each row as a map of column name to value.
	RowModeObject RowMode = "object"
)

// Result determines what an [ExecRequest] returns.
type Result string

const (
	// ResultNone runs the statement for its side effects only.
	ResultNone Result = "none"

	// ResultValue returns the first column of the first row.
	ResultValue Result = "value"

	// ResultRows returns all rows in the requested RowMode.
	ResultRows Result = "rows"
)

// TypeHint coerces a scalar received over the boundary into a concrete Go
// type. JSON decoding loses type detail (all numbers arrive as float64 and
// blobs arrive base64-encoded), so callers that care pass a hint.
type TypeHint string

const (
	HintNone  TypeHint = ""
	HintInt   TypeHint = "int"
	HintFloat TypeHint = "float"
	HintText  TypeHint = "text"
	HintBlob  TypeHint = "blob"
	HintBool  TypeHint = "bool"
)

// ConnectMessage is JSON marshalled and sent to the worker for
// [Database.Connect].
type ConnectMessage struct {
	DatabaseName string `json:"databaseName"`
}

// ConnectResponse is JSON marshalled and returned by the worker for
// [Database.Connect] and [Database.Import].
type ConnectResponse struct {
	StorageMode StorageMode `json:"storageMode,omitempty"`
	Error       *Error      `json:"error,omitempty"`
}

// CloseResponse is JSON marshalled and returned by the worker for
// [Database.Close].
type CloseResponse struct {
	Error *Error `json:"error,omitempty"`
}

// ExecRequest describes a complete statement execution. The request shape is
// decided at the call boundary; the worker never inspects argument shapes at
// runtime.
type ExecRequest struct {
	// SQL is the statement text to run.
	SQL string `json:"sql"`

	// Bind are values for the statement's parameters, in order. May be nil.
	Bind []any `json:"bind,omitempty"`

	// RowMode selects the row materialization when Result is [ResultRows].
	// Defaults to [RowModeList].
	RowMode RowMode `json:"rowMode,omitempty"`

	// Result selects what the call returns. Defaults to [ResultNone].
	Result Result `json:"result,omitempty"`
}

// ExecResult is what a successful [Database.Exec] returns.
type ExecResult struct {
	// Value is the scalar result when [ResultValue] was requested.
	Value any `json:"value,omitempty"`

	// Columns are the result column names when [ResultRows] was requested.
	Columns []string `json:"columns,omitempty"`

	// Rows are the materialized rows when [ResultRows] was requested. Each
	// element is a []any for [RowModeList] or a map[string]any for
	// [RowModeObject].
	Rows []any `json:"rows,omitempty"`

	// RowsAffected and LastInsertID are reported for statements that modify
	// the database, when the engine provides them.
	RowsAffected int64 `json:"rowsAffected,omitempty"`
	LastInsertID int64 `json:"lastInsertId,omitempty"`
}

// ExecResponse is JSON marshalled and returned by the worker for
// [Database.Exec].
type ExecResponse struct {
	Result *ExecResult `json:"result,omitempty"`
	Error  *Error      `json:"error,omitempty"`
}

// SelectValueMessage is JSON marshalled and sent to the worker for
// [Database.SelectValue].
type SelectValueMessage struct {
	SQL  string `json:"sql"`
	Bind []any  `json:"bind,omitempty"`
}

// SelectValueResponse is JSON marshalled and returned by the worker for
// [Database.SelectValue]. Found is false when the query matched no row; a
// matched row holding SQL NULL reports Found true with a nil Value.
type SelectValueResponse struct {
	Value any    `json:"value,omitempty"`
	Found bool   `json:"found"`
	Error *Error `json:"error,omitempty"`
}

// PrepareMessage is JSON marshalled and sent to the worker for
// [Database.Prepare].
type PrepareMessage struct {
	SQL string `json:"sql"`
}

// HandleResponse is JSON marshalled and returned by the worker for
// [Database.Prepare] and [Database.Bind].
type HandleResponse struct {
	Handle Handle `json:"handle,omitempty"`
	Error  *Error `json:"error,omitempty"`
}

// BindMessage is JSON marshalled and sent to the worker for [Database.Bind].
type BindMessage struct {
	Handle Handle `json:"handle"`
	Values []any  `json:"values,omitempty"`
}

// StepMessage is JSON marshalled and sent to the worker for
// [Database.StepAndReset], [Database.StepAndFinalize], and
// [Database.Finalize].
type StepMessage struct {
	Handle Handle `json:"handle"`
}

// StepResponse is JSON marshalled and returned by the worker for
// [Database.StepAndReset] and [Database.StepAndFinalize]. Row reports
// whether the step produced a row. Code carries the finalize result code for
// [Database.StepAndFinalize].
type StepResponse struct {
	Handle Handle `json:"handle,omitempty"`
	Row    bool   `json:"row"`
	Code   int    `json:"code,omitempty"`
	Error  *Error `json:"error,omitempty"`
}

// FinalizeResponse is JSON marshalled and returned by the worker for
// [Database.Finalize].
type FinalizeResponse struct {
	Code  int    `json:"code"`
	Error *Error `json:"error,omitempty"`
}

// ExportMessage is JSON marshalled and sent to the worker for
// [Database.Export]. An empty passphrase exports the raw database image.
type ExportMessage struct {
	Passphrase string `json:"passphrase,omitempty"`
}

// ExportResponse is JSON marshalled and returned by the worker for
// [Database.Export].
type ExportResponse struct {
	Image []byte `json:"image,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// ImportMessage is JSON marshalled and sent to the worker for
// [Database.Import]. An empty passphrase imports Image as a raw database
// image.
type ImportMessage struct {
	Image      []byte `json:"image"`
	Passphrase string `json:"passphrase,omitempty"`
}
