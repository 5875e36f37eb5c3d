// Package media implements staged file handling, upload orchestration and
// the file diff reconciliation used on content update.
package media

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSlotNotFound indicates an operation on a slot that was never staged.
	ErrSlotNotFound = errors.New("media: slot not found")

	// ErrNothingStaged indicates an upload on a slot with no staged file.
	ErrNothingStaged = errors.New("media: nothing staged")

	// ErrIndexOutOfRange indicates a file removal with an invalid index.
	ErrIndexOutOfRange = errors.New("media: file index out of range")
)

// UploadError is the typed failure for a single object-store upload. Unless
// Superseded is set, the slot has been reverted to idle with its staged bytes
// kept, so the upload can be retried without re-picking the file.
type UploadError struct {
	Filename string
	Key      string
	Err      error

	// Superseded means a later Stage replaced the slot while this upload was
	// in flight. The slot's new state was left untouched and callers must not
	// clear the field the slot addresses.
	Superseded bool
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("media: upload of %s failed: %v", e.Filename, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// BatchError aggregates the failures of a parallel batch upload. The batch
// is all-or-nothing from the caller's point of view: any failure fails the
// submission. Files that completed before a sibling failed stay in the
// object store; nothing issues a compensating delete. URLs holds the
// per-file results in input order, empty at the failed positions, so a
// retry can skip the files that already made it.
type BatchError struct {
	Total    int
	Failures []*UploadError
	URLs     []string
}

func (e *BatchError) Error() string {
	names := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		names[i] = f.Filename
	}
	return fmt.Sprintf("media: %d of %d uploads failed: %s",
		len(e.Failures), e.Total, strings.Join(names, ", "))
}
