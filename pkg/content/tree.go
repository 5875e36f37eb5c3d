// ABOUTME: Copy-on-write operations over a content document tree
// ABOUTME: Lessons and subheadings are addressed by stable identifiers

package content

import (
	"errors"
	"fmt"
)

var (
	// ErrLastLesson is returned when removing the only lesson of a document.
	ErrLastLesson = errors.New("content: document must keep at least one lesson")

	// ErrLastSubHeading is returned when removing the only subheading of a lesson.
	ErrLastSubHeading = errors.New("content: lesson must keep at least one subheading")

	// ErrNotFound is returned when a lesson or subheading ID does not exist.
	ErrNotFound = errors.New("content: node not found")

	// ErrUnknownField is returned by the generic setters for an unknown field name.
	ErrUnknownField = errors.New("content: unknown field")
)

// Tree owns a ContentDocument and applies copy-on-write mutations: every
// operation builds a fresh document value and swaps the reference, so any
// snapshot handed out earlier never changes underneath its holder.
//
// The active lesson is tracked by index and clamped on removal.
type Tree struct {
	doc    *ContentDocument
	active int
}

// NewTree wraps an existing document. The active lesson starts at 0.
func NewTree(doc *ContentDocument) *Tree {
	return &Tree{doc: doc}
}

// Document returns the current document snapshot. Callers must treat it as
// read-only; mutations go through the tree operations.
func (t *Tree) Document() *ContentDocument {
	return t.doc
}

// ActiveIndex returns the index of the currently selected lesson.
func (t *Tree) ActiveIndex() int {
	return t.active
}

// SetActiveIndex selects a lesson by index, clamping to the valid range.
func (t *Tree) SetActiveIndex(i int) {
	if i < 0 {
		i = 0
	}
	if max := len(t.doc.Lessons) - 1; i > max {
		i = max
	}
	t.active = i
}

// ActiveLesson returns the currently selected lesson.
func (t *Tree) ActiveLesson() Lesson {
	return t.doc.Lessons[t.active]
}

// AddLesson appends a new lesson with one empty subheading and returns its ID.
func (t *Tree) AddLesson() string {
	doc := t.doc.Clone()
	lesson := NewLesson()
	doc.Lessons = append(doc.Lessons, lesson)
	t.doc = doc
	return lesson.ID
}

// RemoveLesson removes a lesson by ID. Removing the last remaining lesson is
// rejected with ErrLastLesson and leaves the document untouched. The active
// index is clamped so it stays valid after the splice.
func (t *Tree) RemoveLesson(lessonID string) error {
	if len(t.doc.Lessons) <= 1 {
		return ErrLastLesson
	}
	idx := t.lessonIndex(lessonID)
	if idx < 0 {
		return fmt.Errorf("%w: lesson %s", ErrNotFound, lessonID)
	}

	doc := t.doc.Clone()
	doc.Lessons = append(doc.Lessons[:idx], doc.Lessons[idx+1:]...)
	t.doc = doc
	t.SetActiveIndex(t.active)
	return nil
}

// AddSubHeading appends an empty subheading to a lesson and returns its ID.
func (t *Tree) AddSubHeading(lessonID string) (string, error) {
	idx := t.lessonIndex(lessonID)
	if idx < 0 {
		return "", fmt.Errorf("%w: lesson %s", ErrNotFound, lessonID)
	}

	doc := t.doc.Clone()
	sub := NewSubHeading()
	doc.Lessons[idx].SubHeadings = append(doc.Lessons[idx].SubHeadings, sub)
	t.doc = doc
	return sub.ID, nil
}

// RemoveSubHeading removes a subheading by ID. Removing the last subheading
// of a lesson is rejected with ErrLastSubHeading.
func (t *Tree) RemoveSubHeading(lessonID, subID string) error {
	li := t.lessonIndex(lessonID)
	if li < 0 {
		return fmt.Errorf("%w: lesson %s", ErrNotFound, lessonID)
	}
	lesson := t.doc.Lessons[li]
	if len(lesson.SubHeadings) <= 1 {
		return ErrLastSubHeading
	}
	si := subIndex(lesson, subID)
	if si < 0 {
		return fmt.Errorf("%w: subheading %s", ErrNotFound, subID)
	}

	doc := t.doc.Clone()
	subs := doc.Lessons[li].SubHeadings
	doc.Lessons[li].SubHeadings = append(subs[:si], subs[si+1:]...)
	t.doc = doc
	return nil
}

// SetLessonField sets a named lesson field to value.
func (t *Tree) SetLessonField(lessonID, field, value string) error {
	idx := t.lessonIndex(lessonID)
	if idx < 0 {
		return fmt.Errorf("%w: lesson %s", ErrNotFound, lessonID)
	}

	doc := t.doc.Clone()
	lesson := &doc.Lessons[idx]
	switch field {
	case FieldTitle:
		lesson.Title = value
	case FieldAudioRef:
		lesson.AudioRef = value
	case FieldVideoRef:
		lesson.VideoRef = value
	case FieldImageRef:
		lesson.ImageRef = value
	default:
		return fmt.Errorf("%w: lesson field %q", ErrUnknownField, field)
	}
	t.doc = doc
	return nil
}

// SetSubHeadingField sets a named subheading field to value.
func (t *Tree) SetSubHeadingField(lessonID, subID, field, value string) error {
	li := t.lessonIndex(lessonID)
	if li < 0 {
		return fmt.Errorf("%w: lesson %s", ErrNotFound, lessonID)
	}
	si := subIndex(t.doc.Lessons[li], subID)
	if si < 0 {
		return fmt.Errorf("%w: subheading %s", ErrNotFound, subID)
	}

	doc := t.doc.Clone()
	sub := &doc.Lessons[li].SubHeadings[si]
	switch field {
	case FieldBody:
		sub.Body = value
	case FieldQuestion:
		sub.Question = value
	case FieldExpectedAnswer:
		sub.ExpectedAnswer = value
	case FieldComment:
		sub.Comment = value
	case FieldHint:
		sub.Hint = value
	case FieldAudioRef:
		sub.AudioRef = value
	case FieldImageRef:
		sub.ImageRef = value
	default:
		return fmt.Errorf("%w: subheading field %q", ErrUnknownField, field)
	}
	t.doc = doc
	return nil
}

// SetFilePaths replaces the content-level attachment list.
func (t *Tree) SetFilePaths(paths []string) {
	doc := t.doc.Clone()
	doc.FilePaths = append([]string(nil), paths...)
	t.doc = doc
}

// SetTitle sets the document title.
func (t *Tree) SetTitle(title string) {
	doc := t.doc.Clone()
	doc.Title = title
	t.doc = doc
}

// SetDescription sets the document description.
func (t *Tree) SetDescription(desc string) {
	doc := t.doc.Clone()
	doc.Description = desc
	t.doc = doc
}

// Lesson returns a lesson by ID.
func (t *Tree) Lesson(lessonID string) (Lesson, error) {
	idx := t.lessonIndex(lessonID)
	if idx < 0 {
		return Lesson{}, fmt.Errorf("%w: lesson %s", ErrNotFound, lessonID)
	}
	return t.doc.Lessons[idx], nil
}

// SubHeading returns a subheading by lesson and subheading ID.
func (t *Tree) SubHeading(lessonID, subID string) (SubHeading, error) {
	li := t.lessonIndex(lessonID)
	if li < 0 {
		return SubHeading{}, fmt.Errorf("%w: lesson %s", ErrNotFound, lessonID)
	}
	si := subIndex(t.doc.Lessons[li], subID)
	if si < 0 {
		return SubHeading{}, fmt.Errorf("%w: subheading %s", ErrNotFound, subID)
	}
	return t.doc.Lessons[li].SubHeadings[si], nil
}

func (t *Tree) lessonIndex(lessonID string) int {
	for i, l := range t.doc.Lessons {
		if l.ID == lessonID {
			return i
		}
	}
	return -1
}

func subIndex(l Lesson, subID string) int {
	for i, s := range l.SubHeadings {
		if s.ID == subID {
			return i
		}
	}
	return -1
}
