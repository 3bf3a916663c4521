// Package message provides the study domain values and the parsers that
// recover them from the worker's free-form text.
package message

// SubtopicList is an ordered list of normalized, de-duplicated bullets.
// Every entry starts with "•".
type SubtopicList []string

// MCQ is a single multiple-choice question.
type MCQ struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	// Correct is one of "A", "B", "C" or "D".
	Correct string `json:"correct"`
}

// Parser names used in fallback diagnostics and metrics labels.
const (
	ParserSubtopics = "subtopics"
	ParserMCQ       = "mcq"
)
