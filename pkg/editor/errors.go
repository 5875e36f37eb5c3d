// Package editor wires the content tree, edit state, upload orchestration
// and persistence gateway into a single-user editing session.
package editor

import (
	"errors"
	"fmt"
)

var (
	// ErrSubmitInProgress guards against re-entrant submission while an
	// earlier submit has not settled.
	ErrSubmitInProgress = errors.New("editor: submission already in progress")

	// ErrWrongFlow indicates an update-only operation on a create session or
	// vice versa.
	ErrWrongFlow = errors.New("editor: operation not valid for this flow")
)

// PersistenceError wraps a gateway failure after all uploads succeeded. The
// document stays in memory fully resolved, so the user can retry without
// re-uploading media.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("editor: %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
