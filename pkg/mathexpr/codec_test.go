// ABOUTME: Tests for the math expression codec
// ABOUTME: Verifies round-trip, passthrough and span extraction

package mathexpr

import "testing"

func TestWrapUnwrapRoundTrip(t *testing.T) {
	exprs := []string{
		"x^2 + y^2 = z^2",
		"\\frac{a}{b}",
		"",
		"e = mc^2",
		"\\sum_{i=0}^{n} i",
	}

	for _, e := range exprs {
		if got := Unwrap(Wrap(e)); got != e {
			t.Errorf("Unwrap(Wrap(%q)) = %q, want %q", e, got, e)
		}
	}
}

func TestUnwrapPlainTextPassthrough(t *testing.T) {
	texts := []string{
		"plain text",
		"",
		`\(unterminated`,
		`unopened\)`,
		`\)backwards\(`,
	}

	for _, text := range texts {
		if got := Unwrap(text); got != text {
			t.Errorf("Unwrap(%q) = %q, want unchanged", text, got)
		}
	}
}

func TestUnwrapDelimitersOnly(t *testing.T) {
	// The bare delimiter pair is a wrapped empty expression.
	if got := Unwrap(`\(\)`); got != "" {
		t.Errorf("Unwrap of empty span = %q, want empty", got)
	}
}

func TestIsWrapped(t *testing.T) {
	if !IsWrapped(Wrap("a+b")) {
		t.Error("Wrap output should be recognized as wrapped")
	}
	if IsWrapped("a+b") {
		t.Error("plain text should not be recognized as wrapped")
	}
	// Too short to hold both delimiters.
	if IsWrapped(`\(`) {
		t.Error("lone open delimiter should not be wrapped")
	}
}

func TestAppendAccumulatesSpans(t *testing.T) {
	text := Append("", "a+b")
	text = Append(text, "c*d")

	spans := Spans(text)
	if len(spans) != 2 {
		t.Fatalf("Expected 2 spans, got %d: %q", len(spans), text)
	}
	if spans[0] != "a+b" || spans[1] != "c*d" {
		t.Errorf("Unexpected spans: %v", spans)
	}
}

func TestAppendToProse(t *testing.T) {
	text := Append("The identity", "e^{i\\pi} = -1")
	spans := Spans(text)
	if len(spans) != 1 || spans[0] != "e^{i\\pi} = -1" {
		t.Errorf("Unexpected spans in %q: %v", text, spans)
	}
}

func TestSpansIgnoresUnterminated(t *testing.T) {
	text := `intro \(done\) trailing \(open`
	spans := Spans(text)
	if len(spans) != 1 || spans[0] != "done" {
		t.Errorf("Expected single span 'done', got %v", spans)
	}
}
