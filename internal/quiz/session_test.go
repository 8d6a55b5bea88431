package quiz

import (
	"errors"
	"testing"
)

func newTestSession(n int) *Session {
	qs := make([]Question, n)
	for i := range qs {
		qs[i] = Question{
			Question: "q",
			Options:  []string{"A", "B", "C", "D"},
			Answer:   "B",
		}
	}
	return NewSession("topic", qs)
}

// answerAll walks the quiz, answering each question from answers, and finishes.
func answerAll(t *testing.T, s *Session, answers []string) {
	t.Helper()
	for i, a := range answers {
		var err error
		if i == len(answers)-1 {
			err = s.Finish(a)
		} else {
			err = s.AnswerAndAdvance(a)
		}
		if err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
	}
}

func TestNewSessionStartsRunning(t *testing.T) {
	s := newTestSession(5)
	if s.Phase != PhaseRunning || s.Current != 0 || len(s.Answers) != 5 {
		t.Errorf("session = %+v", s)
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name    string
		answers []string
		want    int
	}{
		{"all correct", []string{"B", "B", "B", "B", "B"}, 50},
		{"all wrong", []string{"A", "C", "D", "A", "C"}, 0},
		{"all unanswered", []string{"", "", "", "", ""}, 0},
		{"mixed", []string{"B", "A", "", "b", "D"}, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(5)
			answerAll(t, s, tt.answers)
			res, err := s.Score()
			if err != nil {
				t.Fatalf("Score: %v", err)
			}
			if res.Score != tt.want {
				t.Errorf("Score = %d, want %d", res.Score, tt.want)
			}
			if res.Max != 50 || len(res.Items) != 5 {
				t.Errorf("Max = %d, items = %d", res.Max, len(res.Items))
			}
		})
	}
}

func TestScoreBeforeFinish(t *testing.T) {
	s := newTestSession(5)
	if _, err := s.Score(); !errors.Is(err, ErrNotFinished) {
		t.Errorf("err = %v, want ErrNotFinished", err)
	}
}

func TestNavigation(t *testing.T) {
	s := newTestSession(5)

	if err := s.GoBack(); err != nil {
		t.Fatalf("GoBack: %v", err)
	}
	if s.Current != 0 {
		t.Errorf("GoBack at 0 moved to %d", s.Current)
	}

	if err := s.Finish("B"); !errors.Is(err, ErrNotLastQuestion) {
		t.Errorf("Finish at 0 err = %v", err)
	}

	for i := 0; i < 4; i++ {
		if err := s.AnswerAndAdvance("A"); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}
	if !s.IsLast() {
		t.Fatalf("Current = %d, want last", s.Current)
	}
	if err := s.AnswerAndAdvance("A"); !errors.Is(err, ErrAtLastQuestion) {
		t.Errorf("advance past last err = %v", err)
	}
	if s.Answers[4] != "" || s.Current != 4 {
		t.Errorf("rejected advance changed state: %+v", s)
	}

	if err := s.AnswerAndAdvance("Z"); !errors.Is(err, ErrAtLastQuestion) {
		t.Errorf("err = %v", err)
	}
}

func TestInvalidOptionRejected(t *testing.T) {
	s := newTestSession(5)
	if err := s.AnswerAndAdvance("Z"); !errors.Is(err, ErrInvalidOption) {
		t.Errorf("err = %v, want ErrInvalidOption", err)
	}
	if s.Current != 0 || s.Answers[0] != "" {
		t.Errorf("state changed: %+v", s)
	}
}

func TestRevisitOverwritesAnswer(t *testing.T) {
	s := newTestSession(5)
	if err := s.AnswerAndAdvance("A"); err != nil {
		t.Fatal(err)
	}
	if err := s.GoBack(); err != nil {
		t.Fatal(err)
	}
	if s.Selected() != "A" {
		t.Errorf("Selected = %q, want A", s.Selected())
	}
	if err := s.AnswerAndAdvance("B"); err != nil {
		t.Fatal(err)
	}
	if s.Answers[0] != "B" {
		t.Errorf("Answers[0] = %q, want B", s.Answers[0])
	}
	if s.Current != 1 {
		t.Errorf("Current = %d, want 1", s.Current)
	}
}

func TestFinishedSessionRejectsMoves(t *testing.T) {
	s := newTestSession(5)
	answerAll(t, s, []string{"B", "B", "B", "B", "B"})
	if err := s.GoBack(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("GoBack err = %v", err)
	}
	if err := s.AnswerAndAdvance("B"); !errors.Is(err, ErrNotRunning) {
		t.Errorf("AnswerAndAdvance err = %v", err)
	}
	if err := s.Finish("B"); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Finish err = %v", err)
	}
}

func TestResultItems(t *testing.T) {
	s := newTestSession(5)
	answerAll(t, s, []string{"B", "", "A", "B", "B"})
	res, err := s.Score()
	if err != nil {
		t.Fatal(err)
	}
	second := res.Items[1]
	if second.IsCorrect || second.Selected != "" || second.Correct != "B" || second.Number != 2 {
		t.Errorf("item = %+v", second)
	}
	if !res.Items[0].IsCorrect {
		t.Errorf("item 1 = %+v", res.Items[0])
	}
}
