// ABOUTME: File diff reconciliation for content attachment lists
// ABOUTME: Separates durable references from newly staged local files

package media

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// pendingFile is a staged attachment awaiting upload. url is set once the
// file makes it to the object store; it survives a failed sibling so a retry
// of the batch skips this file.
type pendingFile struct {
	file        StagedFile
	placeholder string
	url         string
}

// Reconciler tracks, for one editing session, which file references were
// durable at load time and which files were staged afterwards. On submit it
// uploads exactly the not-yet-uploaded staged files and reassembles the
// final ordered reference list, discarding any stale placeholder tail the
// loaded document carried. The creation flow uses the same mechanics with an
// empty durable prefix.
type Reconciler struct {
	mu      sync.Mutex
	kept    []string      // durable refs surviving from load, minus removals
	pending []pendingFile // files staged after load, in staging order
}

// NewReconciler captures the reference list of a freshly loaded document.
// durableCount is the number of leading entries that are durable remote
// URLs; anything beyond it is a stale local placeholder and is dropped here.
func NewReconciler(loadedPaths []string, durableCount int) *Reconciler {
	if durableCount > len(loadedPaths) {
		durableCount = len(loadedPaths)
	}
	if durableCount < 0 {
		durableCount = 0
	}
	return &Reconciler{
		kept: append([]string(nil), loadedPaths[:durableCount]...),
	}
}

// NewReconcilerFromDocument counts the durable prefix itself: every leading
// entry that is not a placeholder handle.
func NewReconcilerFromDocument(loadedPaths []string) *Reconciler {
	durable := 0
	for _, p := range loadedPaths {
		if IsPlaceholder(p) {
			break
		}
		durable++
	}
	return NewReconciler(loadedPaths, durable)
}

// Stage queues a new local file for upload on the next Resolve and returns
// its preview placeholder.
func (r *Reconciler) Stage(f StagedFile) string {
	placeholder := PlaceholderScheme + uuid.NewString() + "/" + f.Name
	r.mu.Lock()
	r.pending = append(r.pending, pendingFile{file: f, placeholder: placeholder})
	r.mu.Unlock()
	return placeholder
}

// Paths returns the combined view the UI shows: surviving durable references
// followed by the pending entries, each shown as its resolved URL when it
// already uploaded or its placeholder otherwise.
func (r *Reconciler) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]string(nil), r.kept...)
	for _, p := range r.pending {
		if p.url != "" {
			out = append(out, p.url)
		} else {
			out = append(out, p.placeholder)
		}
	}
	return out
}

// PendingCount returns how many staged files still await upload.
func (r *Reconciler) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.pending {
		if p.url == "" {
			n++
		}
	}
	return n
}

// Remove drops an entry from the combined view by index. An index inside the
// durable prefix removes an existing reference without issuing a remote
// delete; an index beyond it removes the corresponding pending
// file so it is never uploaded.
func (r *Reconciler) Remove(index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index < 0 || index >= len(r.kept)+len(r.pending) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	if index < len(r.kept) {
		r.kept = append(r.kept[:index], r.kept[index+1:]...)
		return nil
	}
	p := index - len(r.kept)
	r.pending = append(r.pending[:p], r.pending[p+1:]...)
	return nil
}

// Resolve uploads every not-yet-uploaded pending file through the
// orchestrator and returns the final reference list: surviving durable
// references followed by the resolved URLs in staging order. With nothing
// pending the list is returned unchanged and no network call is made.
//
// On a partial batch failure the files that made it keep their URLs, so a
// retry uploads only the failures. After a successful Resolve the reconciler
// collapses onto the resolved list, so retrying a failed persistence call
// does not upload anything twice.
func (r *Reconciler) Resolve(ctx context.Context, up *Orchestrator) ([]string, error) {
	r.mu.Lock()
	var toUpload []StagedFile
	var indexes []int
	for i, p := range r.pending {
		if p.url == "" {
			toUpload = append(toUpload, p.file)
			indexes = append(indexes, i)
		}
	}
	r.mu.Unlock()

	if len(toUpload) > 0 {
		urls, err := up.UploadBatch(ctx, toUpload)
		if err != nil {
			var berr *BatchError
			if errors.As(err, &berr) && len(berr.URLs) == len(toUpload) {
				r.mu.Lock()
				for j, i := range indexes {
					if berr.URLs[j] != "" {
						r.pending[i].url = berr.URLs[j]
					}
				}
				r.mu.Unlock()
			}
			return nil, err
		}
		r.mu.Lock()
		for j, i := range indexes {
			r.pending[i].url = urls[j]
		}
		r.mu.Unlock()
	}

	r.mu.Lock()
	final := append([]string(nil), r.kept...)
	for _, p := range r.pending {
		final = append(final, p.url)
	}
	r.kept = append([]string(nil), final...)
	r.pending = nil
	r.mu.Unlock()

	return final, nil
}
