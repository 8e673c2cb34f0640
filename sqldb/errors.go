////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package sqldb

import "fmt"

// Kind identifies the category of a failed database operation. It crosses the
// worker boundary as part of [Error] so that the caller can match on it.
type Kind string

const (
	// KindInitialization indicates that the database engine failed to load or
	// start.
	KindInitialization Kind = "initialization"

	// KindNotConnected indicates that an operation was attempted before a
	// connection was opened.
	KindNotConnected Kind = "notConnected"

	// KindUnknownHandle indicates that an operation referenced a statement
	// handle that is missing or already finalized.
	KindUnknownHandle Kind = "unknownHandle"

	// KindBadHandleState indicates that an operation was called out of order
	// for the statement's current lifecycle state.
	KindBadHandleState Kind = "badHandleState"

	// KindDecryption indicates that an exported database image could not be
	// opened with the provided passphrase.
	KindDecryption Kind = "decryption"

	// KindExecution indicates that the engine rejected the statement.
	KindExecution Kind = "execution"
)

// Error is a typed database error. It is transmitted as JSON inside response
// messages and reconstructed on the receiving side.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// NewError returns an [Error] of the given kind with a formatted message.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Message
}

// Is reports whether target is an [Error] of the same kind. It allows
// sentinels such as [ErrNotConnected] to match with errors.Is regardless of
// the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinel errors for matching received errors with errors.Is.
var (
	ErrInitialization = &Error{Kind: KindInitialization}
	ErrNotConnected   = &Error{Kind: KindNotConnected}
	ErrUnknownHandle  = &Error{Kind: KindUnknownHandle}
	ErrBadHandleState = &Error{Kind: KindBadHandleState}
	ErrDecryption     = &Error{Kind: KindDecryption}
	ErrExecution      = &Error{Kind: KindExecution}
)
