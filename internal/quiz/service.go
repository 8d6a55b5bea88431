package quiz

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/pavelanni/studybuddy/internal/llm"
	"github.com/pavelanni/studybuddy/internal/model"
)

// Generator produces raw text for a prompt.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// ScoreRecorder persists the latest quiz score on a profile.
type ScoreRecorder interface {
	SetProfileScore(email string, score int) error
}

// Service runs quizzes for logged-in sessions, keyed by session token.
type Service struct {
	gen      Generator
	sessions SessionStore
	scores   ScoreRecorder
}

// NewService creates a quiz service.
func NewService(gen Generator, sessions SessionStore, scores ScoreRecorder) *Service {
	return &Service{gen: gen, sessions: sessions, scores: scores}
}

// Current returns the quiz in progress for key, or nil when idle.
func (s *Service) Current(ctx context.Context, key string) (*Session, error) {
	return s.sessions.Get(ctx, key)
}

// Generate asks the generator for n questions on topic and starts a new quiz.
// On any failure the previously stored state for key is left as it was.
func (s *Service) Generate(ctx context.Context, key, topic string, n int) (*Session, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("topic is required: %w", model.ErrValidation)
	}
	if !ValidCount(n) {
		return nil, fmt.Errorf("%d: %w", n, ErrInvalidCount)
	}

	prompt, err := llm.QuizPrompt(topic, n)
	if err != nil {
		return nil, err
	}
	raw, err := s.gen.GenerateText(ctx, prompt)
	if err != nil {
		return nil, err
	}
	questions, err := Parse(raw, n)
	if err != nil {
		slog.Warn("quiz generation returned unusable output", "topic", topic, "error", err)
		return nil, err
	}

	sess := NewSession(topic, questions)
	if err := s.sessions.Put(ctx, key, sess); err != nil {
		return nil, fmt.Errorf("save quiz session: %w", err)
	}
	slog.Info("quiz generated", "topic", topic, "questions", n)
	return sess, nil
}

// Next records selected and advances.
func (s *Service) Next(ctx context.Context, key, selected string) (*Session, error) {
	return s.update(ctx, key, func(sess *Session) error { return sess.AnswerAndAdvance(selected) })
}

// Prev moves back one question.
func (s *Service) Prev(ctx context.Context, key string) (*Session, error) {
	return s.update(ctx, key, (*Session).GoBack)
}

// Finish records the last answer, grades the quiz, and overwrites the
// owner's profile score with the result. The quiz is stored as finished
// before the score is written; if the score write fails the running quiz
// is put back.
func (s *Service) Finish(ctx context.Context, key, email, selected string) (*Result, error) {
	sess, err := s.sessions.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNotRunning
	}
	running := *sess
	running.Answers = slices.Clone(sess.Answers)

	if err := sess.Finish(selected); err != nil {
		return nil, err
	}
	result, err := sess.Score()
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Put(ctx, key, sess); err != nil {
		return nil, fmt.Errorf("save quiz session: %w", err)
	}
	if err := s.scores.SetProfileScore(email, result.Score); err != nil {
		if rerr := s.sessions.Put(ctx, key, &running); rerr != nil {
			slog.Error("failed to restore running quiz", "error", rerr)
		}
		return nil, fmt.Errorf("save score: %w", err)
	}
	slog.Info("quiz finished", "email", email, "score", result.Score, "max", result.Max)
	return result, nil
}

// Result grades the finished quiz for key without changing anything.
func (s *Service) Result(ctx context.Context, key string) (*Result, error) {
	sess, err := s.sessions.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNotFinished
	}
	return sess.Score()
}

// Reset discards the quiz for key, returning it to idle.
func (s *Service) Reset(ctx context.Context, key string) error {
	return s.sessions.Delete(ctx, key)
}

// Discard drops the quiz of a session that is logging out.
func (s *Service) Discard(token string) error {
	return s.Reset(context.Background(), token)
}

func (s *Service) update(ctx context.Context, key string, fn func(*Session) error) (*Session, error) {
	sess, err := s.sessions.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNotRunning
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	if err := s.sessions.Put(ctx, key, sess); err != nil {
		return nil, fmt.Errorf("save quiz session: %w", err)
	}
	return sess, nil
}
