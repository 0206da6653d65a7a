package browserloop

import (
	"fmt"
	"strings"
)

// Character limits per tool before an observation joins the history. Page
// dumps and DOM listings are the payloads that blow out the model's context
// window.
var defaultObservationCharLimits = map[string]int{
	ToolGetPageContent:  20000,
	ToolGetDOMStructure: 16000,
	ToolExtractData:     12000,
}

// fallbackObservationChars applies to tools without a specific limit.
const fallbackObservationChars = 8000

// observationLineLimit bounds line count after character truncation.
const observationLineLimit = 400

// TruncateObservation bounds an observation before it is appended to the
// conversation history. Truncation keeps the head and tail of the text with
// an omission marker in the middle; the full result has already been echoed
// to the transcript.
func TruncateObservation(text, toolName string) string {
	maxChars, ok := defaultObservationCharLimits[toolName]
	if !ok {
		maxChars = fallbackObservationChars
	}
	result := truncateChars(text, maxChars)
	return truncateLines(result, observationLineLimit)
}

func truncateChars(text string, maxChars int) string {
	if len(text) <= maxChars {
		return text
	}
	half := maxChars / 2
	removed := len(text) - maxChars
	return text[:half] +
		fmt.Sprintf("\n\n[Result truncated: %d characters omitted from the middle. Re-run the tool with more targeted parameters to see specific parts.]\n\n", removed) +
		text[len(text)-half:]
}

func truncateLines(text string, maxLines int) string {
	lines := strings.Split(text, "\n")
	if len(lines) <= maxLines {
		return text
	}
	headCount := maxLines / 2
	tailCount := maxLines - headCount
	omitted := len(lines) - headCount - tailCount
	return strings.Join(lines[:headCount], "\n") +
		fmt.Sprintf("\n[... %d lines omitted ...]\n", omitted) +
		strings.Join(lines[len(lines)-tailCount:], "\n")
}
