// ABOUTME: File-backed persistence gateway with per-document revisions
// ABOUTME: Each update appends a numbered JSON revision under the doc dir

package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/edukit/lessonforge/pkg/content"
)

const revExt = ".json"

// FileGateway persists documents as JSON files under a root directory. Every
// create or update appends a numbered revision file; the highest sequence is
// the current document. Writes go through a temp file and rename so a crash
// never leaves a half-written revision.
//
// Layout: <root>/<contentID>/<seq>.json
type FileGateway struct {
	mu   sync.Mutex
	root string
}

// NewFileGateway opens (creating if needed) a file gateway rooted at dir.
func NewFileGateway(dir string) (*FileGateway, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("gateway: create root: %w", err)
	}
	return &FileGateway{root: dir}, nil
}

func (g *FileGateway) CreateContent(ctx context.Context, doc *content.ContentDocument) (string, error) {
	if err := CheckResolved(doc); err != nil {
		return "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	id := uuid.NewString()
	stored := doc.Clone()
	stored.ID = id
	stored.UpdatedAt = time.Now()

	if err := os.MkdirAll(g.docDir(id), 0o755); err != nil {
		return "", fmt.Errorf("gateway: create doc dir: %w", err)
	}
	if err := g.writeRevision(id, 1, stored); err != nil {
		return "", err
	}
	return id, nil
}

func (g *FileGateway) GetContentByID(ctx context.Context, id string) (*content.ContentDocument, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	seqs, err := g.revisionSeqs(id)
	if err != nil {
		return nil, err
	}
	rev, err := g.readRevision(id, seqs[len(seqs)-1])
	if err != nil {
		return nil, err
	}
	return rev.Document, nil
}

func (g *FileGateway) UpdateContent(ctx context.Context, id string, doc *content.ContentDocument) error {
	if err := CheckResolved(doc); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	seqs, err := g.revisionSeqs(id)
	if err != nil {
		return err
	}
	stored := doc.Clone()
	stored.ID = id
	stored.UpdatedAt = time.Now()
	return g.writeRevision(id, seqs[len(seqs)-1]+1, stored)
}

func (g *FileGateway) DeleteContent(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	dir := g.docDir(id)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return os.RemoveAll(dir)
}

func (g *FileGateway) ListByTopic(ctx context.Context, topicID string) ([]*content.ContentDocument, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	entries, err := os.ReadDir(g.root)
	if err != nil {
		return nil, fmt.Errorf("gateway: read root: %w", err)
	}

	var out []*content.ContentDocument
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		seqs, err := g.revisionSeqs(e.Name())
		if err != nil {
			continue
		}
		rev, err := g.readRevision(e.Name(), seqs[len(seqs)-1])
		if err != nil {
			continue
		}
		if rev.Document.TopicID == topicID {
			out = append(out, rev.Document)
		}
	}
	return out, nil
}

// Revisions lists the stored revisions of a document, oldest first.
func (g *FileGateway) Revisions(ctx context.Context, id string) ([]Revision, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	seqs, err := g.revisionSeqs(id)
	if err != nil {
		return nil, err
	}
	out := make([]Revision, 0, len(seqs))
	for _, seq := range seqs {
		rev, err := g.readRevision(id, seq)
		if err != nil {
			return nil, err
		}
		out = append(out, *rev)
	}
	return out, nil
}

// GetRevision fetches one historical snapshot by sequence number.
func (g *FileGateway) GetRevision(ctx context.Context, id string, seq int) (*content.ContentDocument, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rev, err := g.readRevision(id, seq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s revision %d", ErrNotFound, id, seq)
	}
	return rev.Document, nil
}

func (g *FileGateway) docDir(id string) string {
	return filepath.Join(g.root, id)
}

func (g *FileGateway) revPath(id string, seq int) string {
	return filepath.Join(g.docDir(id), fmt.Sprintf("%06d%s", seq, revExt))
}

// revisionSeqs returns the sorted revision sequence numbers of a document,
// or ErrNotFound when the document has none.
func (g *FileGateway) revisionSeqs(id string) ([]int, error) {
	entries, err := os.ReadDir(g.docDir(id))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	var seqs []int
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, revExt) {
			continue
		}
		seq, err := strconv.Atoi(strings.TrimSuffix(name, revExt))
		if err != nil {
			continue
		}
		seqs = append(seqs, seq)
	}
	if len(seqs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	sort.Ints(seqs)
	return seqs, nil
}

func (g *FileGateway) writeRevision(id string, seq int, doc *content.ContentDocument) error {
	rev := Revision{Seq: seq, SavedAt: doc.UpdatedAt, Document: doc}
	data, err := json.MarshalIndent(&rev, "", "  ")
	if err != nil {
		return fmt.Errorf("gateway: encode revision: %w", err)
	}

	path := g.revPath(id, seq)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("gateway: write revision: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("gateway: commit revision: %w", err)
	}
	return nil
}

func (g *FileGateway) readRevision(id string, seq int) (*Revision, error) {
	data, err := os.ReadFile(g.revPath(id, seq))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	var rev Revision
	if err := json.Unmarshal(data, &rev); err != nil {
		return nil, fmt.Errorf("gateway: decode revision %s/%d: %w", id, seq, err)
	}
	return &rev, nil
}
