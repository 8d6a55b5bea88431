package quiz

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pavelanni/studybuddy/internal/llm"
	"github.com/pavelanni/studybuddy/internal/model"
)

type fakeGenerator struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeGenerator) GenerateText(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

type fakeScores struct {
	scores map[string]int
	err    error
}

func (f *fakeScores) SetProfileScore(email string, score int) error {
	if f.err != nil {
		return f.err
	}
	f.scores[email] = score
	return nil
}

const token = "tok"

func newTestService(t *testing.T, gen *fakeGenerator) (*Service, *fakeScores) {
	t.Helper()
	scores := &fakeScores{scores: map[string]int{}}
	return NewService(gen, NewMemoryStore(), scores), scores
}

func TestGenerateFromWellFormedResponse(t *testing.T) {
	gen := &fakeGenerator{reply: "Here you go:\n" + questionsJSON(t, 5)}
	svc, _ := newTestService(t, gen)
	ctx := context.Background()

	sess, err := svc.Generate(ctx, token, "Go channels", 5)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(sess.Questions) != 5 || sess.Current != 0 || sess.Phase != PhaseRunning {
		t.Errorf("session = %+v", sess)
	}
	if !strings.Contains(gen.prompts[0], "Go channels") {
		t.Errorf("prompt = %s", gen.prompts[0])
	}
	stored, err := svc.Current(ctx, token)
	if err != nil || stored == nil {
		t.Fatalf("Current = %v, %v", stored, err)
	}
}

func TestGenerateFailureKeepsIdle(t *testing.T) {
	tests := []struct {
		name    string
		gen     *fakeGenerator
		topic   string
		n       int
		wantErr error
	}{
		{"missing closing bracket", &fakeGenerator{reply: `[{"question":"q"`}, "x", 5, ErrInvalidFormat},
		{"rate limited", &fakeGenerator{err: llm.ErrRateLimited}, "x", 5, llm.ErrRateLimited},
		{"bad count", &fakeGenerator{}, "x", 7, ErrInvalidCount},
		{"empty topic", &fakeGenerator{}, "  ", 5, model.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, tt.gen)
			ctx := context.Background()
			if _, err := svc.Generate(ctx, token, tt.topic, tt.n); !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if sess, _ := svc.Current(ctx, token); sess != nil {
				t.Errorf("session stored after failure: %+v", sess)
			}
		})
	}
}

func TestFailedRegenerateKeepsRunningQuiz(t *testing.T) {
	gen := &fakeGenerator{reply: questionsJSON(t, 5)}
	svc, _ := newTestService(t, gen)
	ctx := context.Background()
	if _, err := svc.Generate(ctx, token, "first", 5); err != nil {
		t.Fatal(err)
	}
	gen.reply = "garbage"
	if _, err := svc.Generate(ctx, token, "second", 5); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("err = %v", err)
	}
	sess, _ := svc.Current(ctx, token)
	if sess == nil || sess.Topic != "first" {
		t.Errorf("session = %+v", sess)
	}
}

func TestFullQuizOverwritesScore(t *testing.T) {
	gen := &fakeGenerator{reply: questionsJSON(t, 5)}
	svc, scores := newTestService(t, gen)
	scores.scores["a@x.com"] = 40
	ctx := context.Background()

	if _, err := svc.Generate(ctx, token, "t", 5); err != nil {
		t.Fatal(err)
	}
	for _, a := range []string{"B. two", "A. one", "B. two", ""} {
		if _, err := svc.Next(ctx, token, a); err != nil {
			t.Fatalf("Next(%q): %v", a, err)
		}
	}
	if _, err := svc.Prev(ctx, token); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Next(ctx, token, "b. two"); err != nil {
		t.Fatal(err)
	}

	res, err := svc.Finish(ctx, token, "a@x.com", "C. three")
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if res.Score != 30 || res.Max != 50 {
		t.Errorf("result = %d/%d, want 30/50", res.Score, res.Max)
	}
	if scores.scores["a@x.com"] != 30 {
		t.Errorf("stored score = %d, want 30", scores.scores["a@x.com"])
	}

	again, err := svc.Result(ctx, token)
	if err != nil || again.Score != 30 {
		t.Errorf("Result = %+v, %v", again, err)
	}

	if err := svc.Reset(ctx, token); err != nil {
		t.Fatal(err)
	}
	if sess, _ := svc.Current(ctx, token); sess != nil {
		t.Error("session still present after reset")
	}
}

func TestFinishScoreFailureKeepsRunning(t *testing.T) {
	gen := &fakeGenerator{reply: questionsJSON(t, 5)}
	svc, scores := newTestService(t, gen)
	ctx := context.Background()
	if _, err := svc.Generate(ctx, token, "t", 5); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		if _, err := svc.Next(ctx, token, ""); err != nil {
			t.Fatal(err)
		}
	}
	scores.err = errors.New("disk full")
	if _, err := svc.Finish(ctx, token, "a@x.com", "B. two"); err == nil {
		t.Fatal("expected error")
	}
	sess, _ := svc.Current(ctx, token)
	if sess == nil || sess.Phase != PhaseRunning || sess.Current != 4 {
		t.Fatalf("session = %+v", sess)
	}
	if got := sess.Answers[4]; got != "" {
		t.Errorf("last answer = %q, want it unrecorded after rollback", got)
	}
}

// failingPutStore stores normally until failPut is set.
type failingPutStore struct {
	*MemoryStore
	failPut bool
}

func (f *failingPutStore) Put(ctx context.Context, key string, sess *Session) error {
	if f.failPut {
		return errors.New("store unavailable")
	}
	return f.MemoryStore.Put(ctx, key, sess)
}

func TestFinishSaveFailureLeavesScoreUntouched(t *testing.T) {
	gen := &fakeGenerator{reply: questionsJSON(t, 5)}
	scores := &fakeScores{scores: map[string]int{"a@x.com": 40}}
	store := &failingPutStore{MemoryStore: NewMemoryStore()}
	svc := NewService(gen, store, scores)
	ctx := context.Background()

	if _, err := svc.Generate(ctx, token, "t", 5); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		if _, err := svc.Next(ctx, token, "B. two"); err != nil {
			t.Fatal(err)
		}
	}
	store.failPut = true
	if _, err := svc.Finish(ctx, token, "a@x.com", "B. two"); err == nil {
		t.Fatal("expected error")
	}
	if scores.scores["a@x.com"] != 40 {
		t.Errorf("score = %d, want 40 (unchanged)", scores.scores["a@x.com"])
	}
	sess, _ := svc.Current(ctx, token)
	if sess == nil || sess.Phase != PhaseRunning {
		t.Errorf("session = %+v", sess)
	}
}

func TestMovesWithoutQuiz(t *testing.T) {
	svc, _ := newTestService(t, &fakeGenerator{})
	ctx := context.Background()
	if _, err := svc.Next(ctx, token, "A"); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Next err = %v", err)
	}
	if _, err := svc.Result(ctx, token); !errors.Is(err, ErrNotFinished) {
		t.Errorf("Result err = %v", err)
	}
}

func TestDiscard(t *testing.T) {
	gen := &fakeGenerator{reply: questionsJSON(t, 5)}
	svc, _ := newTestService(t, gen)
	ctx := context.Background()
	if _, err := svc.Generate(ctx, token, "t", 5); err != nil {
		t.Fatal(err)
	}
	if err := svc.Discard(token); err != nil {
		t.Fatal(err)
	}
	if sess, _ := svc.Current(ctx, token); sess != nil {
		t.Error("session survived Discard")
	}
}

func TestMemoryStoreIsolatesCopies(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	s := newTestSession(5)
	if err := m.Put(ctx, "k", s); err != nil {
		t.Fatal(err)
	}
	s.Current = 3
	got, err := m.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if got.Current != 0 {
		t.Errorf("stored session aliased caller: Current = %d", got.Current)
	}
	if missing, err := m.Get(ctx, "other"); missing != nil || err != nil {
		t.Errorf("Get(missing) = %v, %v", missing, err)
	}
}
