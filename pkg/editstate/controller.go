// ABOUTME: Per-field edit/view state tracking with draft buffers
// ABOUTME: Fields are addressed by stable identifier paths, not indices

package editstate

import "strings"

// Mode is the state of a single addressable field.
type Mode int

const (
	// Viewing is the resting state; the committed value is displayed.
	Viewing Mode = iota

	// Editing means an editor is open on the field with a draft value.
	Editing
)

// Controller tracks which fields are being edited and buffers a draft value
// per open field. The committed value is only touched when the caller
// applies the draft returned by Save; Cancel discards the draft and the
// prior committed value stands. Any number of fields may be editing at once.
type Controller struct {
	drafts map[string]string
}

// NewController returns an empty controller with every field in Viewing.
func NewController() *Controller {
	return &Controller{drafts: make(map[string]string)}
}

// Mode returns the current mode of a field path.
func (c *Controller) Mode(path string) Mode {
	if _, ok := c.drafts[path]; ok {
		return Editing
	}
	return Viewing
}

// IsEditing reports whether the field is in Editing mode.
func (c *Controller) IsEditing(path string) bool {
	return c.Mode(path) == Editing
}

// Enter puts the field into Editing mode with the draft seeded from the
// current committed value. Re-entering an already-editing field keeps the
// existing draft.
func (c *Controller) Enter(path, current string) {
	if _, ok := c.drafts[path]; ok {
		return
	}
	c.drafts[path] = current
}

// Toggle flips a field between Viewing and Editing. Leaving Editing via
// Toggle behaves like Cancel.
func (c *Controller) Toggle(path, current string) {
	if c.IsEditing(path) {
		c.Cancel(path)
		return
	}
	c.Enter(path, current)
}

// Draft returns the draft value for an editing field.
func (c *Controller) Draft(path string) (string, bool) {
	v, ok := c.drafts[path]
	return v, ok
}

// SetDraft replaces the draft of an editing field. Ignored when the field is
// not being edited.
func (c *Controller) SetDraft(path, value string) {
	if _, ok := c.drafts[path]; !ok {
		return
	}
	c.drafts[path] = value
}

// Save closes the editor and returns the draft for the caller to commit.
// The second return is false when the field was not being edited.
func (c *Controller) Save(path string) (string, bool) {
	v, ok := c.drafts[path]
	if !ok {
		return "", false
	}
	delete(c.drafts, path)
	return v, true
}

// Cancel closes the editor and discards the draft; the committed value is
// left as it was before Enter.
func (c *Controller) Cancel(path string) {
	delete(c.drafts, path)
}

// OpenCount returns how many fields are currently in Editing mode.
func (c *Controller) OpenCount() int {
	return len(c.drafts)
}

// Invalidate cancels every open editor under a node, used when a lesson or
// subheading is removed from the tree.
func (c *Controller) Invalidate(idPrefix string) {
	for path := range c.drafts {
		if strings.Contains(path, idPrefix) {
			delete(c.drafts, path)
		}
	}
}

// DocumentField builds the path for a document-level field.
func DocumentField(field string) string {
	return "doc/" + field
}

// LessonField builds the path for a lesson field. Paths are keyed by the
// lesson's stable ID so sibling removal cannot shift them.
func LessonField(lessonID, field string) string {
	return "lesson/" + lessonID + "/" + field
}

// SubHeadingField builds the path for a subheading field.
func SubHeadingField(lessonID, subID, field string) string {
	return "lesson/" + lessonID + "/sub/" + subID + "/" + field
}
