// ABOUTME: Single-user editing session over one content document
// ABOUTME: Drives create and update submission flows end to end

package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/edukit/lessonforge/pkg/content"
	"github.com/edukit/lessonforge/pkg/editstate"
	"github.com/edukit/lessonforge/pkg/gateway"
	"github.com/edukit/lessonforge/pkg/media"
)

// Flow distinguishes the creation flow from the update flow.
type Flow int

const (
	FlowCreate Flow = iota
	FlowUpdate
)

// Session owns one content document for its lifetime: created empty or
// hydrated from the gateway, mutated only through the session, and either
// submitted or discarded. There is exactly one writer, so the tree needs no
// locking; the mutex below only guards the isSubmitting flag and the
// content ID shared with submission callers.
type Session struct {
	flow    Flow
	tree    *content.Tree
	edits   *editstate.Controller
	uploads *media.Orchestrator
	recon   *media.Reconciler
	gw      gateway.Gateway

	mu           sync.Mutex
	isSubmitting bool
	contentID    string // set on load (update) or first successful create
}

// NewCreateSession starts the creation flow for a topic with an empty
// document. The reconciler starts with an empty durable prefix; every
// attachment is a pending local file until submission.
func NewCreateSession(topicID string, kind content.MediaKind, up *media.Orchestrator, gw gateway.Gateway) *Session {
	return &Session{
		flow:    FlowCreate,
		tree:    content.NewTree(content.NewDocument(topicID, kind)),
		edits:   editstate.NewController(),
		uploads: up,
		recon:   media.NewReconciler(nil, 0),
		gw:      gw,
	}
}

// NewUpdateSession hydrates the update flow from a persisted document. The
// reconciler captures the durable reference count at load and the upload
// slots are rebuilt from existing remote references.
func NewUpdateSession(ctx context.Context, id string, up *media.Orchestrator, gw gateway.Gateway) (*Session, error) {
	doc, err := gw.GetContentByID(ctx, id)
	if err != nil {
		return nil, &PersistenceError{Op: "load content", Err: err}
	}

	s := &Session{
		flow:      FlowUpdate,
		tree:      content.NewTree(doc),
		edits:     editstate.NewController(),
		uploads:   up,
		recon:     media.NewReconcilerFromDocument(doc.FilePaths),
		gw:        gw,
		contentID: id,
	}
	s.rehydrateSlots(doc)
	return s, nil
}

// Tree exposes the session's content tree for direct edits.
func (s *Session) Tree() *content.Tree { return s.tree }

// Edits exposes the per-field edit state controller.
func (s *Session) Edits() *editstate.Controller { return s.edits }

// Flow returns which flow this session runs.
func (s *Session) Flow() Flow { return s.flow }

// ContentID returns the persisted ID (empty until a create succeeds).
func (s *Session) ContentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contentID
}

// RemoveLesson removes a lesson and invalidates any editors open on it.
func (s *Session) RemoveLesson(lessonID string) error {
	if err := s.tree.RemoveLesson(lessonID); err != nil {
		return err
	}
	s.edits.Invalidate(lessonID)
	return nil
}

// RemoveSubHeading removes a subheading and invalidates its open editors.
func (s *Session) RemoveSubHeading(lessonID, subID string) error {
	if err := s.tree.RemoveSubHeading(lessonID, subID); err != nil {
		return err
	}
	s.edits.Invalidate(subID)
	return nil
}

// StageContentFile queues a content-level file attachment and appends its
// preview placeholder to the document's path list.
func (s *Session) StageContentFile(f media.StagedFile) string {
	placeholder := s.recon.Stage(f)
	s.tree.SetFilePaths(s.recon.Paths())
	return placeholder
}

// RemoveContentFile drops a file from the attachment list by index. An index
// inside the durable prefix removes an existing remote reference (no remote
// delete); beyond it, the pending staged file so it is never uploaded.
func (s *Session) RemoveContentFile(index int) error {
	if err := s.recon.Remove(index); err != nil {
		return err
	}
	s.tree.SetFilePaths(s.recon.Paths())
	return nil
}

// StageSlotMedia stages a file on a lesson- or subheading-level slot and
// writes the preview placeholder into the corresponding tree field.
func (s *Session) StageSlotMedia(key media.SlotKey, f media.StagedFile) (string, error) {
	placeholder := s.uploads.Stage(key, f)
	if err := s.setSlotRef(key, placeholder); err != nil {
		return "", err
	}
	return placeholder, nil
}

// UploadSlotMedia uploads a staged slot and writes the durable URL into the
// tree field the slot addresses. Slot status transitions are handled by the
// orchestrator; on failure the placeholder is cleared from the field too.
// A completion superseded by a later Stage must not touch the field: it
// holds the newer staging's placeholder.
func (s *Session) UploadSlotMedia(ctx context.Context, key media.SlotKey) (string, error) {
	url, err := s.uploads.Upload(ctx, key, func(u string) {
		_ = s.setSlotRef(key, u)
	})
	if err != nil {
		var uerr *media.UploadError
		if errors.As(err, &uerr) && uerr.Superseded {
			return "", err
		}
		_ = s.setSlotRef(key, "")
		return "", err
	}
	return url, nil
}

// SlotStatus reports a slot's upload status.
func (s *Session) SlotStatus(key media.SlotKey) media.Status {
	return s.uploads.Status(key)
}

// EnterField opens an editor on a field, seeding the draft from the current
// committed value.
func (s *Session) EnterField(path, current string) {
	s.edits.Enter(path, current)
}

// SaveField closes an editor and commits its draft through commit. When the
// field was not being edited nothing happens.
func (s *Session) SaveField(path string, commit func(value string) error) error {
	draft, ok := s.edits.Save(path)
	if !ok {
		return nil
	}
	return commit(draft)
}

// CancelField closes an editor discarding the draft; the committed value is
// untouched.
func (s *Session) CancelField(path string) {
	s.edits.Cancel(path)
}

// SubmitCreate validates the document, uploads every staged content file as
// one parallel batch, writes the resolved URLs into the document, and hands
// it to the gateway. Validation failures abort before any network call.
// Upload failures abort the submission with the aggregate batch error;
// completed siblings stay uploaded and are skipped when the submission is
// retried. A gateway failure is returned as a *PersistenceError and leaves
// the fully-resolved document in memory so a retry skips re-uploading.
func (s *Session) SubmitCreate(ctx context.Context) (string, error) {
	if s.flow != FlowCreate {
		return "", ErrWrongFlow
	}
	if err := s.beginSubmit(); err != nil {
		return "", err
	}
	defer s.endSubmit()

	doc := s.tree.Document()
	if err := content.ValidateForSubmission(doc, content.ValidateOptions{
		RequireFiles:    true,
		StagedFileCount: s.recon.PendingCount(),
	}); err != nil {
		return "", err
	}

	paths, err := s.recon.Resolve(ctx, s.uploads)
	if err != nil {
		return "", err
	}
	s.tree.SetFilePaths(paths)

	id, err := s.gw.CreateContent(ctx, s.tree.Document())
	if err != nil {
		return "", &PersistenceError{Op: "create content", Err: err}
	}

	s.mu.Lock()
	s.contentID = id
	s.mu.Unlock()
	return id, nil
}

// SubmitUpdate validates the document, resolves the file diff (uploading
// exactly the files staged after load), and hands the document to the
// gateway. The same error taxonomy as SubmitCreate applies; after a gateway
// failure the reconciler has already collapsed onto the resolved list, so a
// retry performs no further uploads.
func (s *Session) SubmitUpdate(ctx context.Context) error {
	if s.flow != FlowUpdate {
		return ErrWrongFlow
	}
	if err := s.beginSubmit(); err != nil {
		return err
	}
	defer s.endSubmit()

	doc := s.tree.Document()
	if err := content.ValidateForSubmission(doc, content.ValidateOptions{}); err != nil {
		return err
	}

	paths, err := s.recon.Resolve(ctx, s.uploads)
	if err != nil {
		return err
	}
	s.tree.SetFilePaths(paths)

	if err := s.gw.UpdateContent(ctx, s.contentID, s.tree.Document()); err != nil {
		return &PersistenceError{Op: "update content", Err: err}
	}
	return nil
}

// IsSubmitting reports whether a submission is in flight.
func (s *Session) IsSubmitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isSubmitting
}

func (s *Session) beginSubmit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isSubmitting {
		return ErrSubmitInProgress
	}
	s.isSubmitting = true
	return nil
}

func (s *Session) endSubmit() {
	s.mu.Lock()
	s.isSubmitting = false
	s.mu.Unlock()
}

// setSlotRef writes a reference into the tree field a slot key addresses.
func (s *Session) setSlotRef(key media.SlotKey, ref string) error {
	if key.SubHeadingID == "" {
		field, err := lessonFieldForKind(key.Kind)
		if err != nil {
			return err
		}
		return s.tree.SetLessonField(key.LessonID, field, ref)
	}
	field, err := subHeadingFieldForKind(key.Kind)
	if err != nil {
		return err
	}
	return s.tree.SetSubHeadingField(key.LessonID, key.SubHeadingID, field, ref)
}

func lessonFieldForKind(kind content.MediaKind) (string, error) {
	switch kind {
	case content.MediaAudio:
		return content.FieldAudioRef, nil
	case content.MediaVideo:
		return content.FieldVideoRef, nil
	case content.MediaImage:
		return content.FieldImageRef, nil
	default:
		return "", fmt.Errorf("%w: lesson media kind %q", content.ErrUnknownField, kind)
	}
}

func subHeadingFieldForKind(kind content.MediaKind) (string, error) {
	switch kind {
	case content.MediaAudio:
		return content.FieldAudioRef, nil
	case content.MediaImage:
		return content.FieldImageRef, nil
	default:
		return "", fmt.Errorf("%w: subheading media kind %q", content.ErrUnknownField, kind)
	}
}

// rehydrateSlots rebuilds the ephemeral slot map from the durable references
// a loaded document carries.
func (s *Session) rehydrateSlots(doc *content.ContentDocument) {
	for _, l := range doc.Lessons {
		if l.AudioRef != "" {
			s.uploads.Rehydrate(media.SlotKey{LessonID: l.ID, Kind: content.MediaAudio}, l.AudioRef)
		}
		if l.VideoRef != "" {
			s.uploads.Rehydrate(media.SlotKey{LessonID: l.ID, Kind: content.MediaVideo}, l.VideoRef)
		}
		if l.ImageRef != "" {
			s.uploads.Rehydrate(media.SlotKey{LessonID: l.ID, Kind: content.MediaImage}, l.ImageRef)
		}
		for _, sub := range l.SubHeadings {
			if sub.AudioRef != "" {
				s.uploads.Rehydrate(media.SlotKey{LessonID: l.ID, SubHeadingID: sub.ID, Kind: content.MediaAudio}, sub.AudioRef)
			}
			if sub.ImageRef != "" {
				s.uploads.Rehydrate(media.SlotKey{LessonID: l.ID, SubHeadingID: sub.ID, Kind: content.MediaImage}, sub.ImageRef)
			}
		}
	}
}
