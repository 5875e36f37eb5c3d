// ABOUTME: Tests for upload orchestration and slot status tracking
// ABOUTME: Verifies status transitions, batch aggregation and key uniqueness

package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/edukit/lessonforge/pkg/content"
)

// flakyStore fails any Put whose key contains a configured marker and
// records successful objects, for asserting absence of rollback.
type flakyStore struct {
	mu      sync.Mutex
	failOn  string
	puts    int
	objects map[string]bool
}

func newFlakyStore(failOn string) *flakyStore {
	return &flakyStore{failOn: failOn, objects: make(map[string]bool)}
}

func (f *flakyStore) Put(ctx context.Context, key string, body io.Reader) error {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.failOn != "" && strings.Contains(key, f.failOn) {
		return errors.New("storage rejected object")
	}
	f.objects[key] = true
	return nil
}

func (f *flakyStore) PublicURL(key string) string {
	return "https://media.test/" + key
}

func (f *flakyStore) stored() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

// gateStore blocks its single Put until released, so a test can interleave
// slot operations with an in-flight upload.
type gateStore struct {
	entered chan struct{}
	release chan struct{}
	err     error
}

func newGateStore() *gateStore {
	return &gateStore{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gateStore) Put(ctx context.Context, key string, body io.Reader) error {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return err
	}
	close(g.entered)
	<-g.release
	return g.err
}

func (g *gateStore) PublicURL(key string) string { return "https://media.test/" + key }

// onceStore fails the first Put whose key contains the marker, then accepts
// everything, so retry paths can be exercised.
type onceStore struct {
	mu      sync.Mutex
	failOn  string
	tripped bool
	puts    int
	objects map[string]bool
}

func newOnceStore(failOn string) *onceStore {
	return &onceStore{failOn: failOn, objects: make(map[string]bool)}
}

func (s *onceStore) Put(ctx context.Context, key string, body io.Reader) error {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if !s.tripped && s.failOn != "" && strings.Contains(key, s.failOn) {
		s.tripped = true
		return errors.New("transient storage error")
	}
	s.objects[key] = true
	return nil
}

func (s *onceStore) PublicURL(key string) string { return "https://media.test/" + key }

func (s *onceStore) putCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

func slotKey(lesson string, kind content.MediaKind) SlotKey {
	return SlotKey{LessonID: lesson, Kind: kind}
}

func TestStageProducesPlaceholder(t *testing.T) {
	o := NewOrchestrator(NewMemoryStore("https://cdn"), Options{})
	key := slotKey("l1", content.MediaAudio)

	ph := o.Stage(key, StagedFile{Name: "take1.mp3", Data: []byte("xx")})
	if !IsPlaceholder(ph) {
		t.Fatalf("Stage must return a placeholder handle, got %q", ph)
	}
	if o.Status(key) != StatusIdle {
		t.Errorf("Staged slot should be idle, got %v", o.Status(key))
	}
	if got, ok := o.Placeholder(key); !ok || got != ph {
		t.Errorf("Placeholder not tracked on slot")
	}
}

func TestUploadSuccessWritesURL(t *testing.T) {
	store := NewMemoryStore("https://cdn")
	o := NewOrchestrator(store, Options{})
	key := slotKey("l1", content.MediaAudio)
	o.Stage(key, StagedFile{Name: "take1.mp3", Data: []byte("audio-bytes")})

	var applied string
	url, err := o.Upload(context.Background(), key, func(u string) { applied = u })
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if applied != url {
		t.Errorf("apply callback got %q, want %q", applied, url)
	}
	if o.Status(key) != StatusSuccess {
		t.Errorf("Expected success status, got %v", o.Status(key))
	}
	if got, ok := o.RemoteURL(key); !ok || got != url {
		t.Errorf("Remote URL not tracked on slot")
	}
	if !strings.HasSuffix(url, "_take1.mp3") {
		t.Errorf("Storage key should end with the original filename: %q", url)
	}
	if store.Len() != 1 {
		t.Errorf("Expected 1 stored object, got %d", store.Len())
	}
}

func TestUploadFailureRevertsToIdle(t *testing.T) {
	o := NewOrchestrator(newFlakyStore("bad"), Options{})
	key := slotKey("l1", content.MediaVideo)
	o.Stage(key, StagedFile{Name: "bad.mp4", Data: []byte("xx")})

	_, err := o.Upload(context.Background(), key, nil)
	var uerr *UploadError
	if !errors.As(err, &uerr) {
		t.Fatalf("Expected *UploadError, got %v", err)
	}
	if uerr.Filename != "bad.mp4" {
		t.Errorf("Error should carry the filename, got %q", uerr.Filename)
	}
	if o.Status(key) != StatusIdle {
		t.Errorf("Failed slot must revert to idle, got %v", o.Status(key))
	}
	if _, ok := o.Placeholder(key); ok {
		t.Error("Partial reference must be cleared on failure")
	}
}

func TestUploadWithoutStaging(t *testing.T) {
	o := NewOrchestrator(NewMemoryStore("https://cdn"), Options{})

	_, err := o.Upload(context.Background(), slotKey("l1", content.MediaAudio), nil)
	if !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("Expected ErrSlotNotFound, got %v", err)
	}
}

func TestSuccessAutoRevertsAfterDisplayWindow(t *testing.T) {
	o := NewOrchestrator(NewMemoryStore("https://cdn"), Options{DisplayWindow: 20 * time.Millisecond})
	key := slotKey("l1", content.MediaImage)
	o.Stage(key, StagedFile{Name: "pic.png", Data: []byte("xx")})

	if _, err := o.Upload(context.Background(), key, nil); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if o.Status(key) != StatusSuccess {
		t.Fatalf("Expected success right after upload")
	}

	time.Sleep(60 * time.Millisecond)
	if o.Status(key) != StatusIdle {
		t.Errorf("Expected idle after display window, got %v", o.Status(key))
	}
	// The resolved URL survives the cosmetic revert.
	if _, ok := o.RemoteURL(key); !ok {
		t.Error("Remote URL must survive the status revert")
	}
}

func TestLaterStageSupersedesRevert(t *testing.T) {
	o := NewOrchestrator(NewMemoryStore("https://cdn"), Options{DisplayWindow: 20 * time.Millisecond})
	key := slotKey("l1", content.MediaImage)
	o.Stage(key, StagedFile{Name: "a.png", Data: []byte("xx")})
	if _, err := o.Upload(context.Background(), key, nil); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	// Stage again before the revert timer fires; the stale timer must not
	// touch the new slot state.
	ph := o.Stage(key, StagedFile{Name: "b.png", Data: []byte("yy")})
	time.Sleep(60 * time.Millisecond)

	if o.Status(key) != StatusIdle {
		t.Errorf("Superseded slot should be idle-staged, got %v", o.Status(key))
	}
	if got, ok := o.Placeholder(key); !ok || got != ph {
		t.Error("New staging must survive the stale revert timer")
	}
}

func TestRepickDuringUploadDiscardsStaleResult(t *testing.T) {
	store := newGateStore()
	o := NewOrchestrator(store, Options{})
	key := slotKey("l1", content.MediaAudio)
	o.Stage(key, StagedFile{Name: "first.mp3", Data: []byte("a")})

	applied := make(chan string, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = o.Upload(context.Background(), key, func(u string) { applied <- u })
	}()

	// Re-pick the slot while the first upload sits inside Put.
	<-store.entered
	phB := o.Stage(key, StagedFile{Name: "second.mp3", Data: []byte("b")})
	close(store.release)
	<-done

	select {
	case u := <-applied:
		t.Fatalf("Stale upload applied %q over the newer staging", u)
	default:
	}
	if got, ok := o.Placeholder(key); !ok || got != phB {
		t.Errorf("Newer staging's placeholder lost: got %q want %q", got, phB)
	}
	if o.Status(key) != StatusIdle {
		t.Errorf("Superseded slot must stay idle-staged, got %v", o.Status(key))
	}
	if _, ok := o.RemoteURL(key); ok {
		t.Error("Stale result must not set the slot URL")
	}
}

func TestRepickDuringFailedUploadKeepsNewStaging(t *testing.T) {
	store := newGateStore()
	store.err = errors.New("storage down")
	o := NewOrchestrator(store, Options{})
	key := slotKey("l1", content.MediaVideo)
	o.Stage(key, StagedFile{Name: "first.mp4", Data: []byte("a")})

	errc := make(chan error, 1)
	go func() {
		_, err := o.Upload(context.Background(), key, nil)
		errc <- err
	}()

	<-store.entered
	phB := o.Stage(key, StagedFile{Name: "second.mp4", Data: []byte("b")})
	close(store.release)

	err := <-errc
	var uerr *UploadError
	if !errors.As(err, &uerr) {
		t.Fatalf("Expected *UploadError, got %v", err)
	}
	if !uerr.Superseded {
		t.Error("Failure after a later Stage must report superseded")
	}
	if got, ok := o.Placeholder(key); !ok || got != phB {
		t.Errorf("Newer staging's placeholder lost: got %q want %q", got, phB)
	}
	if o.Status(key) != StatusIdle {
		t.Errorf("Slot should remain idle-staged, got %v", o.Status(key))
	}
}

func TestUploadRetryWithoutRestaging(t *testing.T) {
	store := newOnceStore("clip")
	o := NewOrchestrator(store, Options{})
	key := slotKey("l1", content.MediaAudio)
	o.Stage(key, StagedFile{Name: "clip.mp3", Data: []byte("xx")})

	if _, err := o.Upload(context.Background(), key, nil); err == nil {
		t.Fatal("Expected first upload to fail")
	}
	if o.Status(key) != StatusIdle {
		t.Fatalf("Failed slot must revert to idle, got %v", o.Status(key))
	}

	// The staged bytes survive the failure; no re-pick needed.
	url, err := o.Upload(context.Background(), key, nil)
	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if o.Status(key) != StatusSuccess {
		t.Errorf("Expected success after retry, got %v", o.Status(key))
	}
	if !strings.HasSuffix(url, "_clip.mp3") {
		t.Errorf("Unexpected URL after retry: %q", url)
	}
}

func TestBatchAllSucceed(t *testing.T) {
	store := newFlakyStore("")
	o := NewOrchestrator(store, Options{MaxConcurrent: 2})

	files := []StagedFile{
		{Name: "a.pdf", Data: []byte("a")},
		{Name: "b.pdf", Data: []byte("b")},
		{Name: "c.pdf", Data: []byte("c")},
	}
	urls, err := o.UploadBatch(context.Background(), files)
	if err != nil {
		t.Fatalf("Batch failed: %v", err)
	}
	if len(urls) != 3 {
		t.Fatalf("Expected 3 URLs, got %d", len(urls))
	}
	for i, u := range urls {
		if !strings.HasSuffix(u, "_"+files[i].Name) {
			t.Errorf("URL %d out of order: %q", i, u)
		}
	}
}

func TestBatchPartialFailureAggregates(t *testing.T) {
	store := newFlakyStore("bad")
	o := NewOrchestrator(store, Options{})

	files := []StagedFile{
		{Name: "one.pdf", Data: []byte("1")},
		{Name: "bad.pdf", Data: []byte("2")},
		{Name: "three.pdf", Data: []byte("3")},
	}
	_, err := o.UploadBatch(context.Background(), files)

	var berr *BatchError
	if !errors.As(err, &berr) {
		t.Fatalf("Expected *BatchError, got %v", err)
	}
	if berr.Total != 3 || len(berr.Failures) != 1 {
		t.Fatalf("Expected 1 failure of 3, got %d of %d", len(berr.Failures), berr.Total)
	}
	if berr.Failures[0].Filename != "bad.pdf" {
		t.Errorf("Wrong failing file: %s", berr.Failures[0].Filename)
	}
	// Siblings that completed stay in the store; no compensating delete.
	if store.stored() != 2 {
		t.Errorf("Expected 2 orphaned successes, got %d", store.stored())
	}
	// The error carries the per-file results so a retry can skip the
	// completed siblings.
	if len(berr.URLs) != 3 {
		t.Fatalf("Expected per-file URLs on the error, got %v", berr.URLs)
	}
	if berr.URLs[0] == "" || berr.URLs[2] == "" {
		t.Errorf("Completed siblings missing from the error: %v", berr.URLs)
	}
	if berr.URLs[1] != "" {
		t.Errorf("Failed position should be empty, got %q", berr.URLs[1])
	}
}

func TestConcurrentSlotUploadsConverge(t *testing.T) {
	store := NewMemoryStore("https://cdn")
	o := NewOrchestrator(store, Options{})

	const n = 8
	keys := make([]SlotKey, n)
	for i := range keys {
		keys[i] = SlotKey{LessonID: fmt.Sprintf("lesson-%d", i), Kind: content.MediaAudio}
		o.Stage(keys[i], StagedFile{Name: "clip.mp3", Data: []byte{byte(i)}})
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range keys {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = o.Upload(context.Background(), keys[i], nil)
		}(i)
	}
	wg.Wait()

	urls := make(map[string]bool)
	for i, key := range keys {
		if errs[i] != nil {
			t.Fatalf("Upload %d failed: %v", i, errs[i])
		}
		if o.Status(key) != StatusSuccess {
			t.Errorf("Slot %d not success: %v", i, o.Status(key))
		}
		url, ok := o.RemoteURL(key)
		if !ok {
			t.Fatalf("Slot %d has no URL", i)
		}
		urls[url] = true
	}
	// Same filename everywhere, yet every URL distinct: the monotonic
	// timestamp prefix must break ties.
	if len(urls) != n {
		t.Errorf("Expected %d distinct URLs, got %d", n, len(urls))
	}
}

func TestStorageKeysUniqueForSameFilename(t *testing.T) {
	store := NewMemoryStore("https://cdn")
	o := NewOrchestrator(store, Options{})

	files := make([]StagedFile, 16)
	for i := range files {
		files[i] = StagedFile{Name: "same.pdf", Data: bytes.Repeat([]byte{byte(i)}, 4)}
	}
	urls, err := o.UploadBatch(context.Background(), files)
	if err != nil {
		t.Fatalf("Batch failed: %v", err)
	}

	seen := make(map[string]bool)
	for _, u := range urls {
		if seen[u] {
			t.Fatalf("Duplicate storage URL: %s", u)
		}
		seen[u] = true
	}
	if store.Len() != len(files) {
		t.Errorf("Expected %d objects, got %d", len(files), store.Len())
	}
}
