// Package quiz generates multiple-choice quizzes and runs one quiz per login session.
package quiz

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

var (
	// ErrInvalidFormat means the generated text did not hold n well-formed questions.
	ErrInvalidFormat = errors.New("invalid quiz format")
	// ErrInvalidCount means the requested question count is not offered.
	ErrInvalidCount = errors.New("invalid question count")
)

// OptionsPerQuestion is the fixed number of choices per question.
const OptionsPerQuestion = 4

// AllowedCounts lists the quiz lengths a student may request.
var AllowedCounts = []int{5, 10, 20}

// ValidCount reports whether n is one of AllowedCounts.
func ValidCount(n int) bool {
	return lo.Contains(AllowedCounts, n)
}

// Question is one multiple-choice item. Answer equals one of Options after Normalize.
type Question struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

// Normalize trims surrounding whitespace and lowercases s for answer comparison.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// HasOption reports whether choice matches one of the question's options.
func (q Question) HasOption(choice string) bool {
	n := Normalize(choice)
	return lo.ContainsBy(q.Options, func(o string) bool { return Normalize(o) == n })
}

// Parse extracts the JSON array between the first '[' and the last ']' of text
// and decodes it strictly. It fails when fewer than n questions are found,
// keeps only the first n otherwise, and validates the kept ones.
func Parse(text string, n int) ([]Question, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON array in response", ErrInvalidFormat)
	}

	dec := json.NewDecoder(strings.NewReader(text[start : end+1]))
	dec.DisallowUnknownFields()
	var questions []Question
	if err := dec.Decode(&questions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	if len(questions) < n {
		return nil, fmt.Errorf("%w: got %d questions, want %d", ErrInvalidFormat, len(questions), n)
	}
	questions = questions[:n]
	for i, q := range questions {
		if err := validate(q); err != nil {
			return nil, fmt.Errorf("%w: question %d: %v", ErrInvalidFormat, i+1, err)
		}
	}
	return questions, nil
}

func validate(q Question) error {
	if strings.TrimSpace(q.Question) == "" {
		return errors.New("empty question text")
	}
	if len(q.Options) != OptionsPerQuestion {
		return fmt.Errorf("%d options, want %d", len(q.Options), OptionsPerQuestion)
	}
	if lo.SomeBy(q.Options, func(o string) bool { return strings.TrimSpace(o) == "" }) {
		return errors.New("empty option")
	}
	if !q.HasOption(q.Answer) {
		return fmt.Errorf("answer %q is not one of the options", q.Answer)
	}
	return nil
}
