// ABOUTME: Media upload orchestration with per-slot status tracking
// ABOUTME: Stages files locally, uploads to object storage, resolves URLs

package media

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/edukit/lessonforge/pkg/content"
)

// StagedFile is a locally held file awaiting upload.
type StagedFile struct {
	Name string
	Data []byte
}

// PlaceholderScheme prefixes locally-valid preview references. A reference
// carrying this prefix must never reach persistence.
const PlaceholderScheme = "staged://"

// IsPlaceholder reports whether ref is a local staged-file handle rather
// than a durable URL.
func IsPlaceholder(ref string) bool {
	return len(ref) >= len(PlaceholderScheme) && ref[:len(PlaceholderScheme)] == PlaceholderScheme
}

// Status of a single upload slot.
type Status int

const (
	StatusIdle Status = iota
	StatusUploading
	StatusSuccess
)

func (s Status) String() string {
	switch s {
	case StatusUploading:
		return "uploading"
	case StatusSuccess:
		return "success"
	default:
		return "idle"
	}
}

// SlotKey addresses an upload slot in the content tree. SubHeadingID is
// empty for lesson-level media. Keys use stable node IDs so they survive
// sibling removal and reorder.
type SlotKey struct {
	LessonID     string
	SubHeadingID string
	Kind         content.MediaKind
}

type slot struct {
	status      Status
	staged      *StagedFile
	placeholder string
	remoteURL   string
	gen         uint64 // bumped by Stage/Rehydrate; stale timers check it
}

// Options configure an Orchestrator.
type Options struct {
	// DisplayWindow is how long a slot shows success before reverting to
	// idle. Cosmetic only. Zero disables the auto-revert.
	DisplayWindow time.Duration

	// MaxConcurrent bounds parallel uploads in a batch. Zero means no limit.
	MaxConcurrent int
}

// Orchestrator uploads staged files to an ObjectStore and tracks per-slot
// status. Slots are ephemeral session state: they are rebuilt on load via
// Rehydrate and never persisted. Safe for concurrent use.
type Orchestrator struct {
	mu    sync.Mutex
	store ObjectStore
	slots map[SlotKey]*slot
	opts  Options

	lastKeyTS int64 // monotonic tie-breaker for storage keys
}

// NewOrchestrator returns an orchestrator uploading into store.
func NewOrchestrator(store ObjectStore, opts Options) *Orchestrator {
	return &Orchestrator{
		store: store,
		slots: make(map[SlotKey]*slot),
		opts:  opts,
	}
}

// Stage stores a file locally for a slot and returns a placeholder handle
// the UI can preview before the network round-trip. Staging supersedes any
// earlier state on the slot, including a pending success display.
func (o *Orchestrator) Stage(key SlotKey, f StagedFile) string {
	placeholder := PlaceholderScheme + uuid.NewString() + "/" + f.Name

	o.mu.Lock()
	defer o.mu.Unlock()
	s := o.ensureSlot(key)
	s.gen++
	s.status = StatusIdle
	s.staged = &f
	s.placeholder = placeholder
	s.remoteURL = ""
	return placeholder
}

// Rehydrate seeds a slot from a durable reference already present on a
// loaded document. The slot reports success and has nothing staged.
func (o *Orchestrator) Rehydrate(key SlotKey, url string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := o.ensureSlot(key)
	s.gen++
	s.status = StatusSuccess
	s.staged = nil
	s.placeholder = ""
	s.remoteURL = url
}

// Status returns the current state of a slot. Unknown slots are idle.
func (o *Orchestrator) Status(key SlotKey) Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok := o.slots[key]; ok {
		return s.status
	}
	return StatusIdle
}

// Placeholder returns the preview handle of a staged slot, if any.
func (o *Orchestrator) Placeholder(key SlotKey) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok := o.slots[key]; ok && s.placeholder != "" {
		return s.placeholder, true
	}
	return "", false
}

// RemoteURL returns the durable URL of a successfully uploaded slot.
func (o *Orchestrator) RemoteURL(key SlotKey) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok := o.slots[key]; ok && s.remoteURL != "" {
		return s.remoteURL, true
	}
	return "", false
}

// Upload pushes the staged file of a slot to the object store. On success
// the durable URL is passed to apply (which writes it into the content
// tree), the slot reports success, and after the display window it reverts
// to idle unless a later Stage superseded it. On failure the slot reverts to
// idle immediately with its staged bytes kept for retry, the placeholder is
// cleared, and a *UploadError is returned.
//
// A completion whose slot was superseded by a later Stage leaves the slot
// untouched and never calls apply; the stale result must not clobber the
// newer staging.
func (o *Orchestrator) Upload(ctx context.Context, key SlotKey, apply func(url string)) (string, error) {
	o.mu.Lock()
	s, ok := o.slots[key]
	if !ok {
		o.mu.Unlock()
		return "", fmt.Errorf("%w: %v", ErrSlotNotFound, key)
	}
	if s.staged == nil {
		o.mu.Unlock()
		return "", fmt.Errorf("%w: %v", ErrNothingStaged, key)
	}
	file := *s.staged
	gen := s.gen
	s.status = StatusUploading
	storageKey := o.nextStorageKeyLocked(file.Name)
	o.mu.Unlock()

	if err := o.store.Put(ctx, storageKey, bytes.NewReader(file.Data)); err != nil {
		o.mu.Lock()
		superseded := s.gen != gen
		if !superseded {
			s.status = StatusIdle
			s.placeholder = ""
		}
		o.mu.Unlock()
		return "", &UploadError{Filename: file.Name, Key: storageKey, Err: err, Superseded: superseded}
	}

	url := o.store.PublicURL(storageKey)

	o.mu.Lock()
	current := s.gen == gen
	if current {
		s.status = StatusSuccess
		s.staged = nil
		s.placeholder = ""
		s.remoteURL = url
	}
	o.mu.Unlock()

	if !current {
		return url, nil
	}
	if apply != nil {
		apply(url)
	}
	o.scheduleRevert(key, gen)
	return url, nil
}

// UploadBatch pushes a set of files in parallel and returns their durable
// URLs in input order. The batch succeeds only if every file succeeds;
// otherwise a *BatchError aggregating the per-file failures is returned.
// Files that already completed remain in the object store and their URLs
// travel on the error so callers can skip them on retry.
func (o *Orchestrator) UploadBatch(ctx context.Context, files []StagedFile) ([]string, error) {
	urls := make([]string, len(files))
	failures := make([]*UploadError, len(files))

	var g errgroup.Group
	if o.opts.MaxConcurrent > 0 {
		g.SetLimit(o.opts.MaxConcurrent)
	}

	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			o.mu.Lock()
			storageKey := o.nextStorageKeyLocked(f.Name)
			o.mu.Unlock()

			if err := o.store.Put(ctx, storageKey, bytes.NewReader(f.Data)); err != nil {
				failures[i] = &UploadError{Filename: f.Name, Key: storageKey, Err: err}
				return nil // siblings keep going; failures are aggregated
			}
			urls[i] = o.store.PublicURL(storageKey)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var failed []*UploadError
	for _, f := range failures {
		if f != nil {
			failed = append(failed, f)
		}
	}
	if len(failed) > 0 {
		return nil, &BatchError{Total: len(files), Failures: failed, URLs: urls}
	}
	return urls, nil
}

func (o *Orchestrator) ensureSlot(key SlotKey) *slot {
	s, ok := o.slots[key]
	if !ok {
		s = &slot{}
		o.slots[key] = s
	}
	return s
}

// scheduleRevert flips a success slot back to idle once the display window
// elapses, unless the slot moved on in the meantime.
func (o *Orchestrator) scheduleRevert(key SlotKey, gen uint64) {
	if o.opts.DisplayWindow <= 0 {
		return
	}
	time.AfterFunc(o.opts.DisplayWindow, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if s, ok := o.slots[key]; ok && s.gen == gen && s.status == StatusSuccess {
			s.status = StatusIdle
		}
	})
}

// nextStorageKeyLocked builds a collision-resistant storage key of the form
// <timestamp>_<filename>. The timestamp is forced strictly monotonic so two
// uploads of the same filename in one tick still get distinct keys.
func (o *Orchestrator) nextStorageKeyLocked(filename string) string {
	ts := time.Now().UnixNano()
	if ts <= o.lastKeyTS {
		ts = o.lastKeyTS + 1
	}
	o.lastKeyTS = ts
	return fmt.Sprintf("%d_%s", ts, filename)
}
