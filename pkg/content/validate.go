// ABOUTME: Submission validation for content documents
// ABOUTME: Collects violations in declaration order, surfaces the first group

package content

import (
	"fmt"
	"strings"
)

// Rule identifies a validation rule group, in declaration order.
type Rule int

const (
	RuleTitle Rule = iota
	RuleDescription
	RuleLessonTitle
	RuleFiles
	RuleSubHeadingBody
	RuleSubHeadingAudio
)

func (r Rule) String() string {
	switch r {
	case RuleTitle:
		return "title"
	case RuleDescription:
		return "description"
	case RuleLessonTitle:
		return "lesson_title"
	case RuleFiles:
		return "files"
	case RuleSubHeadingBody:
		return "subheading_body"
	case RuleSubHeadingAudio:
		return "subheading_audio"
	default:
		return "unknown"
	}
}

// Violation is a single failed validation rule with the node it points at.
type Violation struct {
	Rule     Rule
	LessonID string
	SubID    string
	Message  string
}

// ValidationError is the submission-blocking error for a document. It
// carries every collected violation; Error reports the first failing rule
// group, which is the message the user sees.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "content: validation failed"
	}
	first := e.Violations[0]
	rest := ""
	if n := len(e.Violations) - 1; n > 0 {
		rest = fmt.Sprintf(" (+%d more)", n)
	}
	return fmt.Sprintf("content: %s%s", first.Message, rest)
}

// ValidateOptions control flow-dependent rules.
type ValidateOptions struct {
	// RequireFiles enforces at least one staged or attached file. Only the
	// creation flow sets this; updates keep whatever was loaded.
	RequireFiles bool

	// StagedFileCount is the number of locally staged files not yet present
	// in FilePaths. Counted toward the RequireFiles rule.
	StagedFileCount int
}

// ValidateForSubmission checks a document against the submission rules and
// returns a *ValidationError carrying every violation, or nil when clean.
// Rules are evaluated in declaration order and all of them run; the first
// collected violation determines the surfaced message.
func ValidateForSubmission(doc *ContentDocument, opts ValidateOptions) error {
	var violations []Violation

	if strings.TrimSpace(doc.Title) == "" {
		violations = append(violations, Violation{
			Rule:    RuleTitle,
			Message: "content title is required",
		})
	}
	if strings.TrimSpace(doc.Description) == "" {
		violations = append(violations, Violation{
			Rule:    RuleDescription,
			Message: "content description is required",
		})
	}
	for _, lesson := range doc.Lessons {
		if strings.TrimSpace(lesson.Title) == "" {
			violations = append(violations, Violation{
				Rule:     RuleLessonTitle,
				LessonID: lesson.ID,
				Message:  "every lesson needs a title",
			})
		}
	}
	if opts.RequireFiles && len(doc.FilePaths)+opts.StagedFileCount == 0 {
		violations = append(violations, Violation{
			Rule:    RuleFiles,
			Message: "at least one file must be attached",
		})
	}
	for _, lesson := range doc.Lessons {
		for _, sub := range lesson.SubHeadings {
			if strings.TrimSpace(sub.Body) == "" {
				violations = append(violations, Violation{
					Rule:     RuleSubHeadingBody,
					LessonID: lesson.ID,
					SubID:    sub.ID,
					Message:  "every subheading needs body text",
				})
			}
			if strings.TrimSpace(sub.AudioRef) == "" {
				violations = append(violations, Violation{
					Rule:     RuleSubHeadingAudio,
					LessonID: lesson.ID,
					SubID:    sub.ID,
					Message:  "every subheading needs an audio recording",
				})
			}
		}
	}

	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}
