// ABOUTME: Inline math expression codec for lesson text fields
// ABOUTME: Wraps expressions in \( \) delimiters for storage in free text

package mathexpr

import "strings"

// Delimiters used to embed a math expression inside free text. The pair is
// fixed; renderers downstream recognize exactly this form.
const (
	OpenDelim  = `\(`
	CloseDelim = `\)`
)

// Wrap encloses an expression in the delimiter pair so it can be stored
// inline in a text field.
func Wrap(expr string) string {
	return OpenDelim + expr + CloseDelim
}

// Unwrap strips the delimiter pair if and only if text starts with the open
// delimiter and ends with the close delimiter. Plain text passes through
// unchanged, so Unwrap is safe to call on any field value.
func Unwrap(text string) string {
	if !IsWrapped(text) {
		return text
	}
	return text[len(OpenDelim) : len(text)-len(CloseDelim)]
}

// IsWrapped reports whether text is a single wrapped expression.
func IsWrapped(text string) bool {
	return len(text) >= len(OpenDelim)+len(CloseDelim) &&
		strings.HasPrefix(text, OpenDelim) &&
		strings.HasSuffix(text, CloseDelim)
}

// Append adds a wrapped expression to the end of existing field text with
// surrounding whitespace. This is the lesson-creation flow: a field may
// accumulate several expression spans this way. The update editor instead
// replaces the whole field value through Wrap, so it edits exactly one span;
// the asymmetry is deliberate and matched to the authoring UI.
func Append(text, expr string) string {
	wrapped := Wrap(expr)
	if text == "" {
		return wrapped
	}
	return strings.TrimRight(text, " ") + " " + wrapped + " "
}

// Spans returns every wrapped expression found in text, in order, with the
// delimiters removed. Read-only helper; it does not participate in editing.
func Spans(text string) []string {
	var spans []string
	for {
		start := strings.Index(text, OpenDelim)
		if start < 0 {
			return spans
		}
		rest := text[start+len(OpenDelim):]
		end := strings.Index(rest, CloseDelim)
		if end < 0 {
			return spans
		}
		spans = append(spans, rest[:end])
		text = rest[end+len(CloseDelim):]
	}
}
