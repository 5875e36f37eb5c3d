// ABOUTME: Content document data model for hierarchical lessons
// ABOUTME: Defines ContentDocument, Lesson and SubHeading structures

package content

import (
	"time"

	"github.com/google/uuid"
)

// MediaKind classifies the files attached at the content level.
type MediaKind string

const (
	MediaVideo    MediaKind = "video"
	MediaAudio    MediaKind = "audio"
	MediaDocument MediaKind = "document"
	MediaImage    MediaKind = "image"
)

// ContentDocument is the full authorable unit: title, description, ordered
// lessons and the content-level file attachments. It is owned exclusively by
// the editing session until submitted.
type ContentDocument struct {
	ID          string    `json:"id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Lessons     []Lesson  `json:"lessons"`
	FilePaths   []string  `json:"file_paths"`
	FileKind    MediaKind `json:"file_kind"`
	TopicID     string    `json:"topic_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Lesson is a top-level section of a content document. A lesson always has
// at least one subheading.
type Lesson struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	SubHeadings []SubHeading `json:"sub_headings"`
	AudioRef    string       `json:"audio_ref"`
	VideoRef    string       `json:"video_ref"`
	ImageRef    string       `json:"image_ref"`
}

// SubHeading is a leaf section. The text fields may carry math expression
// spans encoded with pkg/mathexpr.
type SubHeading struct {
	ID             string `json:"id"`
	Body           string `json:"body"`
	Question       string `json:"question"`
	ExpectedAnswer string `json:"expected_answer"`
	Comment        string `json:"comment"`
	Hint           string `json:"hint"`
	AudioRef       string `json:"audio_ref"`
	ImageRef       string `json:"image_ref"`
}

// Lesson field names accepted by the generic setters.
const (
	FieldTitle    = "title"
	FieldAudioRef = "audio_ref"
	FieldVideoRef = "video_ref"
	FieldImageRef = "image_ref"
)

// SubHeading field names accepted by the generic setters.
const (
	FieldBody           = "body"
	FieldQuestion       = "question"
	FieldExpectedAnswer = "expected_answer"
	FieldComment        = "comment"
	FieldHint           = "hint"
)

// NewSubHeading returns an empty subheading with a stable identifier.
func NewSubHeading() SubHeading {
	return SubHeading{ID: uuid.NewString()}
}

// NewLesson returns an empty lesson containing one empty subheading.
func NewLesson() Lesson {
	return Lesson{
		ID:          uuid.NewString(),
		SubHeadings: []SubHeading{NewSubHeading()},
	}
}

// NewDocument returns an empty document for a topic with a single empty
// lesson, ready for the creation flow.
func NewDocument(topicID string, kind MediaKind) *ContentDocument {
	now := time.Now()
	return &ContentDocument{
		Title:       "",
		Description: "",
		Lessons:     []Lesson{NewLesson()},
		FilePaths:   []string{},
		FileKind:    kind,
		TopicID:     topicID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Clone returns a deep copy of the document. Slices are copied so the clone
// shares no mutable state with the original.
func (d *ContentDocument) Clone() *ContentDocument {
	out := *d
	out.FilePaths = append([]string(nil), d.FilePaths...)
	out.Lessons = make([]Lesson, len(d.Lessons))
	for i, l := range d.Lessons {
		cl := l
		cl.SubHeadings = append([]SubHeading(nil), l.SubHeadings...)
		out.Lessons[i] = cl
	}
	return &out
}
