package message

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	bullet = "•"

	// minSubtopics is the smallest parsed list accepted before falling back.
	minSubtopics = 3

	// mcqOptionCount is the number of options a well-formed MCQ carries.
	mcqOptionCount = 4
)

var (
	numberedLine  = regexp.MustCompile(`^\d+\.`)
	optionLine    = regexp.MustCompile(`^[A-D]\)`)
	correctLetter = regexp.MustCompile(`(?i)Correct:\s*([A-D])`)
)

// ParseSubtopics normalizes the worker's subtopic text into a bullet list.
//
// Lines are trimmed and empty lines dropped. Lines already starting with "•"
// are kept; "-", "*" and "N." markers are replaced by "• "; anything else is
// prefixed with "• ". Duplicates are removed keeping the first occurrence,
// and entries of two characters or fewer are discarded.
//
// When fewer than three entries survive, the generic outline from
// FallbackSubtopics is returned and fallback reports true.
func ParseSubtopics(text, topic string) (list SubtopicList, fallback bool) {
	seen := make(map[string]struct{})
	list = SubtopicList{}

	for line := range strings.SplitSeq(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		entry := normalizeBullet(line)
		if _, dup := seen[entry]; dup {
			continue
		}

		seen[entry] = struct{}{}

		if utf8.RuneCountInString(entry) <= 2 {
			continue
		}

		list = append(list, entry)
	}

	if len(list) < minSubtopics {
		return FallbackSubtopics(topic), true
	}

	return list, false
}

func normalizeBullet(line string) string {
	switch {
	case strings.HasPrefix(line, bullet):
		return line
	case strings.HasPrefix(line, "-"), strings.HasPrefix(line, "*"):
		return bullet + " " + strings.TrimSpace(line[1:])
	case numberedLine.MatchString(line):
		return bullet + " " + strings.TrimSpace(line[strings.Index(line, ".")+1:])
	default:
		return bullet + " " + line
	}
}

// FallbackSubtopics returns the five-entry outline used when the worker's
// text yields too few subtopics.
func FallbackSubtopics(topic string) SubtopicList {
	return SubtopicList{
		bullet + " Introduction to " + topic,
		bullet + " Core Concepts in " + topic,
		bullet + " Advanced " + topic + " Topics",
		bullet + " Practical Applications",
		bullet + " " + topic + " Summary and Review",
	}
}

// PlaceholderOptions returns the options substituted when the worker's MCQ
// text does not carry exactly four.
func PlaceholderOptions() []string {
	return []string{"A) Option A", "B) Option B", "C) Option C", "D) Option D"}
}

// ParseMCQ extracts a multiple-choice question from the worker's text.
//
// A "Q:" line sets the question (the last one wins). Lines starting with an
// uppercase letter A-D followed by ")" are collected verbatim as options. A
// "Correct:" line sets the answer letter, matched case-insensitively and
// uppercased; the answer defaults to "A".
//
// Unless exactly four options are found, the options are replaced by
// PlaceholderOptions and fallback reports true. The question and answer are
// kept either way.
func ParseMCQ(text string) (mcq MCQ, fallback bool) {
	mcq.Correct = "A"

	var options []string

	for line := range strings.SplitSeq(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "Q:"):
			mcq.Question = strings.TrimSpace(line[len("Q:"):])
		case optionLine.MatchString(line):
			options = append(options, line)
		case strings.HasPrefix(line, "Correct:"):
			if m := correctLetter.FindStringSubmatch(line); m != nil {
				mcq.Correct = strings.ToUpper(m[1])
			}
		}
	}

	if len(options) != mcqOptionCount {
		mcq.Options = PlaceholderOptions()

		return mcq, true
	}

	mcq.Options = options

	return mcq, false
}
