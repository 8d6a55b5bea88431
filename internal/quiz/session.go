package quiz

import (
	"errors"

	"github.com/samber/lo"
)

var (
	ErrNotRunning      = errors.New("quiz is not running")
	ErrNotFinished     = errors.New("quiz is not finished")
	ErrAtLastQuestion  = errors.New("already at the last question")
	ErrNotLastQuestion = errors.New("quiz can only be finished from the last question")
	ErrInvalidOption   = errors.New("selected option is not one of the choices")
)

// PointsPerQuestion is awarded for each correct answer.
const PointsPerQuestion = 10

// Phase is the lifecycle state of a quiz session. A missing session is idle.
type Phase string

const (
	PhaseRunning  Phase = "running"
	PhaseFinished Phase = "finished"
)

// Session is the transient state of one quiz. An empty string in Answers
// means the question was left unanswered.
type Session struct {
	Topic     string     `json:"topic"`
	Questions []Question `json:"questions"`
	Current   int        `json:"current"`
	Answers   []string   `json:"answers"`
	Phase     Phase      `json:"phase"`
}

// NewSession starts a running quiz at the first question.
func NewSession(topic string, questions []Question) *Session {
	return &Session{
		Topic:     topic,
		Questions: questions,
		Answers:   make([]string, len(questions)),
		Phase:     PhaseRunning,
	}
}

// Question returns the question at the current index.
func (s *Session) Question() Question {
	return s.Questions[s.Current]
}

// Selected returns the answer recorded for the current question.
func (s *Session) Selected() string {
	return s.Answers[s.Current]
}

// IsFirst reports whether the current question is the first one.
func (s *Session) IsFirst() bool { return s.Current == 0 }

// IsLast reports whether the current question is the last one.
func (s *Session) IsLast() bool { return s.Current == len(s.Questions)-1 }

// AnswerAndAdvance records selected for the current question, replacing any
// earlier answer, and moves to the next question. An empty selection is
// recorded as unanswered. It is rejected on the last question.
func (s *Session) AnswerAndAdvance(selected string) error {
	if s.Phase != PhaseRunning {
		return ErrNotRunning
	}
	if s.IsLast() {
		return ErrAtLastQuestion
	}
	if err := s.record(selected); err != nil {
		return err
	}
	s.Current++
	return nil
}

// GoBack moves to the previous question without recording anything.
func (s *Session) GoBack() error {
	if s.Phase != PhaseRunning {
		return ErrNotRunning
	}
	if s.Current > 0 {
		s.Current--
	}
	return nil
}

// Finish records the answer to the last question and ends the quiz.
func (s *Session) Finish(selected string) error {
	if s.Phase != PhaseRunning {
		return ErrNotRunning
	}
	if !s.IsLast() {
		return ErrNotLastQuestion
	}
	if err := s.record(selected); err != nil {
		return err
	}
	s.Phase = PhaseFinished
	return nil
}

func (s *Session) record(selected string) error {
	if selected != "" && !s.Question().HasOption(selected) {
		return ErrInvalidOption
	}
	s.Answers[s.Current] = selected
	return nil
}

// ResultItem describes the outcome of one question.
type ResultItem struct {
	Number    int
	Question  string
	Selected  string
	Correct   string
	IsCorrect bool
}

// Result is the graded quiz.
type Result struct {
	Score int
	Max   int
	Items []ResultItem
}

// Score grades a finished quiz.
func (s *Session) Score() (*Result, error) {
	if s.Phase != PhaseFinished {
		return nil, ErrNotFinished
	}
	items := lo.Map(s.Questions, func(q Question, i int) ResultItem {
		return ResultItem{
			Number:    i + 1,
			Question:  q.Question,
			Selected:  s.Answers[i],
			Correct:   q.Answer,
			IsCorrect: Normalize(s.Answers[i]) == Normalize(q.Answer),
		}
	})
	correct := lo.CountBy(items, func(it ResultItem) bool { return it.IsCorrect })
	return &Result{
		Score: correct * PointsPerQuestion,
		Max:   len(s.Questions) * PointsPerQuestion,
		Items: items,
	}, nil
}
