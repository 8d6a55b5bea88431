package auth

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/pavelanni/studybuddy/internal/model"
	"github.com/pavelanni/studybuddy/internal/store"
)

type recordingDiscarder struct {
	tokens []string
}

func (d *recordingDiscarder) Discard(token string) error {
	d.tokens = append(d.tokens, token)
	return nil
}

func newTestService(t *testing.T) (*Service, *store.Store, *recordingDiscarder) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	d := &recordingDiscarder{}
	return New(s, d, time.Hour), s, d
}

func TestLegacyHashDeterministic(t *testing.T) {
	a := LegacyHash("pw1")
	if a != LegacyHash("pw1") {
		t.Fatal("LegacyHash is not deterministic")
	}
	if a == LegacyHash("pw2") {
		t.Fatal("different passwords hashed equal")
	}
	if len(a) != 64 {
		t.Errorf("len = %d, want 64", len(a))
	}
}

func TestCheckPassword(t *testing.T) {
	bc, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	tests := []struct {
		name     string
		stored   string
		password string
		want     bool
	}{
		{"bcrypt match", bc, "secret", true},
		{"bcrypt mismatch", bc, "Secret", false},
		{"legacy match", LegacyHash("secret"), "secret", true},
		{"legacy mismatch", LegacyHash("secret"), "other", false},
		{"garbage", "not-a-hash", "secret", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckPassword(tt.stored, tt.password); got != tt.want {
				t.Errorf("CheckPassword = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCreateAndVerify(t *testing.T) {
	svc, _, _ := newTestService(t)

	if err := svc.CreateCredential("a@x.com", "pw1", "Paris"); err != nil {
		t.Fatalf("CreateCredential: %v", err)
	}
	if ok, _ := svc.Verify("a@x.com", "pw1"); !ok {
		t.Error("Verify(pw1) = false, want true")
	}
	if ok, _ := svc.Verify("a@x.com", "pw2"); ok {
		t.Error("Verify(pw2) = true, want false")
	}
	if ok, _ := svc.Verify("nobody@x.com", "pw1"); ok {
		t.Error("Verify(unknown) = true, want false")
	}

	err := svc.CreateCredential("a@x.com", "other", "Rome")
	if !errors.Is(err, model.ErrAlreadyExists) {
		t.Errorf("duplicate CreateCredential err = %v, want ErrAlreadyExists", err)
	}
	if ok, _ := svc.Verify("a@x.com", "pw1"); !ok {
		t.Error("duplicate create changed the stored password")
	}
}

func TestCreateCredentialValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	tests := []struct {
		name, email, password, answer string
	}{
		{"empty email", "", "pw", "Paris"},
		{"empty password", "a@x.com", "", "Paris"},
		{"blank answer", "a@x.com", "pw", "  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.CreateCredential(tt.email, tt.password, tt.answer)
			if !errors.Is(err, model.ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestReset(t *testing.T) {
	svc, _, _ := newTestService(t)
	if err := svc.CreateCredential("a@x.com", "pw1", "Paris"); err != nil {
		t.Fatalf("CreateCredential: %v", err)
	}

	if err := svc.Reset("a@x.com", "london", "pw9"); !errors.Is(err, model.ErrRecoveryMismatch) {
		t.Fatalf("Reset(wrong answer) err = %v, want ErrRecoveryMismatch", err)
	}
	if ok, _ := svc.Verify("a@x.com", "pw1"); !ok {
		t.Fatal("failed reset changed the password")
	}

	if err := svc.Reset("a@x.com", "  paris ", "pw2"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if ok, _ := svc.Verify("a@x.com", "pw2"); !ok {
		t.Error("Verify(pw2) after reset = false")
	}
	if ok, _ := svc.Verify("a@x.com", "pw1"); ok {
		t.Error("old password still verifies after reset")
	}

	if err := svc.Reset("ghost@x.com", "Paris", "pw"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Reset(unknown) err = %v, want ErrNotFound", err)
	}
}

func TestSignUpCreatesZeroScoreProfile(t *testing.T) {
	svc, s, _ := newTestService(t)
	p, err := svc.SignUp(SignUpRequest{
		Email: "a@x.com", Password: "pw1", RecoveryAnswer: "Paris",
		Name: "Ann", College: "MIT", Department: "CS", Subject: "Algorithms",
	})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if p.Score != 0 || p.Name != "Ann" {
		t.Errorf("profile = %+v", p)
	}
	stored, err := s.GetProfile("a@x.com")
	if err != nil || stored == nil {
		t.Fatalf("GetProfile = %v, %v", stored, err)
	}
	if stored.Subject != "Algorithms" {
		t.Errorf("Subject = %q", stored.Subject)
	}

	_, err = svc.SignUp(SignUpRequest{Email: "b@x.com", Password: "pw", RecoveryAnswer: "x"})
	if !errors.Is(err, model.ErrValidation) {
		t.Errorf("incomplete SignUp err = %v, want ErrValidation", err)
	}
}

func TestLoginLogout(t *testing.T) {
	svc, s, d := newTestService(t)
	if err := svc.CreateCredential("a@x.com", "pw1", "Paris"); err != nil {
		t.Fatalf("CreateCredential: %v", err)
	}

	if _, err := svc.Login("a@x.com", "bad"); !errors.Is(err, model.ErrInvalidCredentials) {
		t.Fatalf("Login(bad) err = %v, want ErrInvalidCredentials", err)
	}

	sess, err := svc.Login("a@x.com", "pw1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.Token == "" || sess.Profile.Email != "a@x.com" || sess.Profile.Score != 0 {
		t.Errorf("session = %+v", sess)
	}

	resolved, err := svc.Resolve(sess.Token)
	if err != nil || resolved == nil {
		t.Fatalf("Resolve = %v, %v", resolved, err)
	}

	if err := svc.Logout(sess.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if resolved, _ := svc.Resolve(sess.Token); resolved != nil {
		t.Error("session still resolves after logout")
	}
	if len(d.tokens) != 1 || d.tokens[0] != sess.Token {
		t.Errorf("discarded = %v", d.tokens)
	}

	entries, err := s.ListActivity("a@x.com")
	if err != nil {
		t.Fatalf("ListActivity: %v", err)
	}
	if len(entries) != 2 || entries[0].Action != model.ActionLogin || entries[1].Action != model.ActionLogout {
		t.Errorf("activity = %+v", entries)
	}

	if p, _ := s.GetProfile("a@x.com"); p == nil {
		t.Error("profile removed by logout")
	}
}

func TestLoginKeepsExistingProfile(t *testing.T) {
	svc, s, _ := newTestService(t)
	if _, err := svc.SignUp(SignUpRequest{
		Email: "a@x.com", Password: "pw1", RecoveryAnswer: "Paris",
		Name: "Ann", College: "MIT", Department: "CS", Subject: "Go",
	}); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if err := s.SetProfileScore("a@x.com", 30); err != nil {
		t.Fatalf("SetProfileScore: %v", err)
	}
	sess, err := svc.Login("a@x.com", "pw1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.Profile.Name != "Ann" || sess.Profile.Score != 30 {
		t.Errorf("profile = %+v", sess.Profile)
	}
}

func TestLegacyCredentialLogin(t *testing.T) {
	svc, s, _ := newTestService(t)
	err := s.CreateCredential(model.Credential{
		Email: "old@x.com", PasswordHash: LegacyHash("pw1"), RecoveryAnswer: "Paris",
	})
	if err != nil {
		t.Fatalf("CreateCredential: %v", err)
	}
	if _, err := svc.Login("old@x.com", "pw1"); err != nil {
		t.Errorf("Login with legacy hash: %v", err)
	}
}
