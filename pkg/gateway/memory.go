// ABOUTME: In-memory persistence gateway for tests and examples

package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/edukit/lessonforge/pkg/content"
)

// MemoryGateway keeps documents and their revision history in process
// memory. Safe for concurrent use.
type MemoryGateway struct {
	mu   sync.Mutex
	docs map[string][]Revision
}

// NewMemoryGateway returns an empty in-memory gateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{docs: make(map[string][]Revision)}
}

func (g *MemoryGateway) CreateContent(ctx context.Context, doc *content.ContentDocument) (string, error) {
	if err := CheckResolved(doc); err != nil {
		return "", err
	}
	id := uuid.NewString()
	stored := doc.Clone()
	stored.ID = id
	stored.UpdatedAt = time.Now()

	g.mu.Lock()
	g.docs[id] = []Revision{{Seq: 1, SavedAt: stored.UpdatedAt, Document: stored}}
	g.mu.Unlock()
	return id, nil
}

func (g *MemoryGateway) GetContentByID(ctx context.Context, id string) (*content.ContentDocument, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	revs, ok := g.docs[id]
	if !ok || len(revs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return revs[len(revs)-1].Document.Clone(), nil
}

func (g *MemoryGateway) UpdateContent(ctx context.Context, id string, doc *content.ContentDocument) error {
	if err := CheckResolved(doc); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	revs, ok := g.docs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	stored := doc.Clone()
	stored.ID = id
	stored.UpdatedAt = time.Now()
	g.docs[id] = append(revs, Revision{
		Seq:      len(revs) + 1,
		SavedAt:  stored.UpdatedAt,
		Document: stored,
	})
	return nil
}

func (g *MemoryGateway) DeleteContent(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.docs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(g.docs, id)
	return nil
}

func (g *MemoryGateway) ListByTopic(ctx context.Context, topicID string) ([]*content.ContentDocument, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []*content.ContentDocument
	for _, revs := range g.docs {
		latest := revs[len(revs)-1].Document
		if latest.TopicID == topicID {
			out = append(out, latest.Clone())
		}
	}
	return out, nil
}

func (g *MemoryGateway) Revisions(ctx context.Context, id string) ([]Revision, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	revs, ok := g.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	out := make([]Revision, len(revs))
	for i, r := range revs {
		out[i] = Revision{Seq: r.Seq, SavedAt: r.SavedAt, Document: r.Document.Clone()}
	}
	return out, nil
}

func (g *MemoryGateway) GetRevision(ctx context.Context, id string, seq int) (*content.ContentDocument, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	revs, ok := g.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	for _, r := range revs {
		if r.Seq == seq {
			return r.Document.Clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: %s revision %d", ErrNotFound, id, seq)
}
