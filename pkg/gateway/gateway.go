// ABOUTME: Persistence gateway contract for content documents
// ABOUTME: Implementations must only accept fully-resolved documents

package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edukit/lessonforge/pkg/content"
	"github.com/edukit/lessonforge/pkg/media"
)

var (
	// ErrNotFound indicates the content ID does not exist.
	ErrNotFound = errors.New("gateway: content not found")

	// ErrPlaceholderRef indicates a document still carrying a local
	// staged-file handle; such documents must never be persisted.
	ErrPlaceholderRef = errors.New("gateway: document contains unresolved placeholder reference")
)

// Gateway is create/read/update/delete over serialized content documents.
// Inputs are fully-resolved: every media reference is either empty or a
// durable URL.
type Gateway interface {
	CreateContent(ctx context.Context, doc *content.ContentDocument) (string, error)
	GetContentByID(ctx context.Context, id string) (*content.ContentDocument, error)
	UpdateContent(ctx context.Context, id string, doc *content.ContentDocument) error
	DeleteContent(ctx context.Context, id string) error
	ListByTopic(ctx context.Context, topicID string) ([]*content.ContentDocument, error)
}

// Revision is one persisted snapshot of a document. Gateways that retain
// history implement Historian.
type Revision struct {
	Seq      int                      `json:"seq"`
	SavedAt  time.Time                `json:"saved_at"`
	Document *content.ContentDocument `json:"document"`
}

// Historian exposes the revision history a gateway keeps per document,
// oldest first.
type Historian interface {
	Revisions(ctx context.Context, id string) ([]Revision, error)
	GetRevision(ctx context.Context, id string, seq int) (*content.ContentDocument, error)
}

// CheckResolved rejects documents still holding placeholder references.
// Every gateway implementation calls this before writing.
func CheckResolved(doc *content.ContentDocument) error {
	for i, p := range doc.FilePaths {
		if media.IsPlaceholder(p) {
			return fmt.Errorf("%w: file_paths[%d]", ErrPlaceholderRef, i)
		}
	}
	for _, l := range doc.Lessons {
		for _, ref := range []string{l.AudioRef, l.VideoRef, l.ImageRef} {
			if media.IsPlaceholder(ref) {
				return fmt.Errorf("%w: lesson %s", ErrPlaceholderRef, l.ID)
			}
		}
		for _, s := range l.SubHeadings {
			if media.IsPlaceholder(s.AudioRef) || media.IsPlaceholder(s.ImageRef) {
				return fmt.Errorf("%w: subheading %s", ErrPlaceholderRef, s.ID)
			}
		}
	}
	return nil
}
