package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/studybuddy/internal/auth"
	"github.com/pavelanni/studybuddy/internal/extract"
	appI18n "github.com/pavelanni/studybuddy/internal/i18n"
	"github.com/pavelanni/studybuddy/internal/llm"
	"github.com/pavelanni/studybuddy/internal/model"
	"github.com/pavelanni/studybuddy/internal/planner"
	"github.com/pavelanni/studybuddy/internal/quiz"
	"github.com/pavelanni/studybuddy/internal/store"
)

const fiveQuestions = `Here is your quiz:
[
 {"question": "Q1?", "options": ["A. one", "B. two", "C. three", "D. four"], "answer": "B. two"},
 {"question": "Q2?", "options": ["A. one", "B. two", "C. three", "D. four"], "answer": "B. two"},
 {"question": "Q3?", "options": ["A. one", "B. two", "C. three", "D. four"], "answer": "B. two"},
 {"question": "Q4?", "options": ["A. one", "B. two", "C. three", "D. four"], "answer": "B. two"},
 {"question": "Q5?", "options": ["A. one", "B. two", "C. three", "D. four"], "answer": "B. two"}
]`

type fakeAI struct {
	quiz       string
	err        error
	summarized string
}

func (f *fakeAI) Explain(_ context.Context, topic string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "explained " + topic, nil
}

func (f *fakeAI) Ask(_ context.Context, query string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "answered " + query, nil
}

func (f *fakeAI) Summarize(_ context.Context, text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.summarized = text
	return "summary of notes", nil
}

func (f *fakeAI) GenerateText(context.Context, string) (string, error) {
	return f.quiz, f.err
}

func (f *fakeAI) DescribeImage(context.Context, string, []byte) (string, error) {
	return "image text", f.err
}

type testClient struct {
	t      *testing.T
	client *http.Client
	base   string
	db     *store.Store
}

func newTestClient(t *testing.T, ai *fakeAI, cfg model.AppConfig) *testClient {
	t.Helper()
	if err := appI18n.Init("en"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}
	db, err := store.New(filepath.Join(t.TempDir(), "handler.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	quizSvc := quiz.NewService(ai, quiz.NewMemoryStore(), db)
	h, err := New(Services{
		Auth:      auth.New(db, quizSvc, time.Hour),
		Planner:   planner.New(db),
		Quiz:      quizSvc,
		Assistant: ai,
		Extractor: extract.New(ai, cfg.MaxUploadBytes),
	}, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	r := chi.NewRouter()
	r.Use(appI18n.Middleware("/", false))
	if cfg.BasePath != "" {
		r.Route(cfg.BasePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &testClient{t: t, client: &http.Client{Jar: jar}, base: srv.URL + cfg.BasePath, db: db}
}

func defaultConfig() model.AppConfig {
	return model.AppConfig{SessionTTL: time.Hour, MaxUploadBytes: 1 << 20}
}

func (tc *testClient) read(resp *http.Response) string {
	tc.t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		tc.t.Fatalf("read body: %v", err)
	}
	return string(b)
}

func (tc *testClient) get(path string) (*http.Response, string) {
	tc.t.Helper()
	resp, err := tc.client.Get(tc.base + path)
	if err != nil {
		tc.t.Fatalf("GET %s: %v", path, err)
	}
	return resp, tc.read(resp)
}

func (tc *testClient) csrfToken() string {
	u, _ := url.Parse(tc.base + "/")
	for _, c := range tc.client.Jar.Cookies(u) {
		if c.Name == csrfCookieName {
			return c.Value
		}
	}
	return ""
}

func (tc *testClient) post(path string, form url.Values) (*http.Response, string) {
	tc.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	if form.Get("csrf_token") == "" {
		form.Set("csrf_token", tc.csrfToken())
	}
	resp, err := tc.client.PostForm(tc.base+path, form)
	if err != nil {
		tc.t.Fatalf("POST %s: %v", path, err)
	}
	return resp, tc.read(resp)
}

func (tc *testClient) upload(path, name, contentType string, data []byte) (*http.Response, string) {
	tc.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("csrf_token", tc.csrfToken())
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, name))
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		tc.t.Fatal(err)
	}
	_, _ = part.Write(data)
	_ = mw.Close()

	resp, err := tc.client.Post(tc.base+path, mw.FormDataContentType(), &buf)
	if err != nil {
		tc.t.Fatalf("POST %s: %v", path, err)
	}
	return resp, tc.read(resp)
}

// signUpAndLogin registers a@x.com and logs in, leaving the client on the dashboard.
func (tc *testClient) signUpAndLogin() string {
	tc.t.Helper()
	tc.get("/login")
	resp, body := tc.post("/signup", url.Values{
		"email": {"a@x.com"}, "password": {"pw1"}, "fav_place": {"Paris"},
		"name": {"A"}, "college": {"C"}, "dept": {"D"}, "subject": {"Math"},
	})
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Account created") {
		tc.t.Fatalf("signup: %d %s", resp.StatusCode, body)
	}
	resp, body = tc.post("/login", url.Values{"email": {"a@x.com"}, "password": {"pw1"}})
	if resp.StatusCode != http.StatusOK {
		tc.t.Fatalf("login: %d", resp.StatusCode)
	}
	return body
}

func mustContain(t *testing.T, body string, wants ...string) {
	t.Helper()
	for _, w := range wants {
		if !strings.Contains(body, w) {
			t.Errorf("body missing %q", w)
		}
	}
}

func TestRequireAuthRedirectsToLogin(t *testing.T) {
	tc := newTestClient(t, &fakeAI{}, defaultConfig())
	for _, p := range []string{"/", "/quiz", "/planner", "/explain"} {
		resp, body := tc.get(p)
		if resp.Request.URL.Path != "/login" {
			t.Errorf("GET %s ended at %s", p, resp.Request.URL.Path)
		}
		mustContain(t, body, "Create account")
	}
}

func TestSignUpLoginLogout(t *testing.T) {
	tc := newTestClient(t, &fakeAI{}, defaultConfig())
	body := tc.signUpAndLogin()
	mustContain(t, body, "Welcome, A!", "Last quiz score: 0", "Math")

	resp, _ := tc.post("/logout", nil)
	if resp.Request.URL.Path != "/login" {
		t.Errorf("logout ended at %s", resp.Request.URL.Path)
	}
	resp, _ = tc.get("/")
	if resp.Request.URL.Path != "/login" {
		t.Errorf("dashboard after logout ended at %s", resp.Request.URL.Path)
	}

	entries, err := tc.db.ListActivity("a@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Action != model.ActionLogin || entries[1].Action != model.ActionLogout {
		t.Errorf("activity = %+v", entries)
	}
}

func TestLoginErrors(t *testing.T) {
	tc := newTestClient(t, &fakeAI{}, defaultConfig())
	tc.signUpAndLogin()
	tc.post("/logout", nil)

	resp, body := tc.post("/login", url.Values{"email": {"a@x.com"}, "password": {"wrong"}})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	mustContain(t, body, "Invalid email or password.")

	resp, body = tc.post("/signup", url.Values{
		"email": {"a@x.com"}, "password": {"x"}, "fav_place": {"y"},
		"name": {"A"}, "college": {"C"}, "dept": {"D"}, "subject": {"S"},
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate signup status = %d", resp.StatusCode)
	}
	mustContain(t, body, "already exists")

	resp, _ = tc.post("/signup", url.Values{"email": {"b@x.com"}, "password": {"x"}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("incomplete signup status = %d", resp.StatusCode)
	}
}

func TestPasswordReset(t *testing.T) {
	tc := newTestClient(t, &fakeAI{}, defaultConfig())
	tc.signUpAndLogin()
	tc.post("/logout", nil)

	resp, body := tc.post("/reset", url.Values{"email": {"a@x.com"}, "fav_place": {"Rome"}, "new_password": {"pw2"}})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("mismatch status = %d", resp.StatusCode)
	}
	mustContain(t, body, "does not match")

	resp, body = tc.post("/reset", url.Values{"email": {"a@x.com"}, "fav_place": {" paris "}, "new_password": {"pw2"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reset status = %d", resp.StatusCode)
	}
	mustContain(t, body, "Password updated")

	resp, _ = tc.post("/login", url.Values{"email": {"a@x.com"}, "password": {"pw2"}})
	if resp.Request.URL.Path != "/" {
		t.Errorf("login with new password ended at %s", resp.Request.URL.Path)
	}
}

func TestCSRFRequired(t *testing.T) {
	tc := newTestClient(t, &fakeAI{}, defaultConfig())
	tc.get("/login")
	resp, _ := tc.post("/login", url.Values{"csrf_token": {"forged"}, "email": {"a@x.com"}, "password": {"pw1"}})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
}

func TestExplainAndAsk(t *testing.T) {
	ai := &fakeAI{}
	tc := newTestClient(t, ai, defaultConfig())
	tc.signUpAndLogin()

	resp, body := tc.post("/explain", url.Values{"topic": {"gravity"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("explain status = %d", resp.StatusCode)
	}
	mustContain(t, body, "explained gravity")

	resp, body = tc.post("/explain", url.Values{"topic": {"  "}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty topic status = %d", resp.StatusCode)
	}
	mustContain(t, body, "Please enter a topic first.")

	_, body = tc.post("/ask", url.Values{"query": {"what is entropy"}})
	mustContain(t, body, "answered what is entropy")

	ai.err = llm.ErrRateLimited
	resp, body = tc.post("/explain", url.Values{"topic": {"gravity"}})
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("rate limited status = %d", resp.StatusCode)
	}
	mustContain(t, body, "AI limit reached")
}

func TestQuizFlow(t *testing.T) {
	ai := &fakeAI{quiz: fiveQuestions}
	tc := newTestClient(t, ai, defaultConfig())
	tc.signUpAndLogin()

	_, body := tc.get("/quiz")
	mustContain(t, body, "Generate quiz")

	resp, body := tc.post("/quiz/generate", url.Values{"topic": {"numbers"}, "count": {"5"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("generate status = %d", resp.StatusCode)
	}
	mustContain(t, body, "5 questions generated.", "Question 1 of 5", "Q1?")

	for i := 0; i < 4; i++ {
		_, body = tc.post("/quiz/answer", url.Values{"action": {"next"}, "answer": {"B. two"}})
	}
	mustContain(t, body, "Question 5 of 5", "Finish quiz")

	_, body = tc.post("/quiz/answer", url.Values{"action": {"prev"}})
	mustContain(t, body, "Question 4 of 5")
	_, _ = tc.post("/quiz/answer", url.Values{"action": {"next"}, "answer": {"A. one"}})

	_, body = tc.post("/quiz/answer", url.Values{"action": {"finish"}, "answer": {"B. two"}})
	mustContain(t, body, "Quiz results", "Final score: 40 / 50", "Correct answer: B. two")

	_, body = tc.get("/")
	mustContain(t, body, "Last quiz score: 40")

	_, body = tc.post("/quiz/reset", nil)
	mustContain(t, body, "Generate quiz")
}

func TestQuizGenerateInvalidOutput(t *testing.T) {
	ai := &fakeAI{quiz: `[{"question": "Q1?"`}
	tc := newTestClient(t, ai, defaultConfig())
	tc.signUpAndLogin()

	resp, body := tc.post("/quiz/generate", url.Values{"topic": {"numbers"}, "count": {"5"}})
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
	mustContain(t, body, "invalid quiz")

	_, body = tc.get("/quiz")
	mustContain(t, body, "Generate quiz")
}

func TestQuizAnswerWithoutQuiz(t *testing.T) {
	tc := newTestClient(t, &fakeAI{}, defaultConfig())
	tc.signUpAndLogin()
	resp, body := tc.post("/quiz/answer", url.Values{"action": {"next"}, "answer": {"A"}})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
	mustContain(t, body, "no quiz in progress")
}

func TestPlannerFlow(t *testing.T) {
	tc := newTestClient(t, &fakeAI{}, defaultConfig())
	tc.signUpAndLogin()

	_, body := tc.get("/planner")
	mustContain(t, body, "No tasks yet.")

	resp, body := tc.post("/planner", url.Values{"task": {"Read ch.3"}, "subject": {"Physics"}, "deadline": {"2025-01-01"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add status = %d", resp.StatusCode)
	}
	mustContain(t, body, "Read ch.3", "Physics", "2025-01-01", "1 task", "Mark done")

	resp, _ = tc.post("/planner", url.Values{"task": {"x"}, "subject": {"y"}, "deadline": {"tomorrow"}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad deadline status = %d", resp.StatusCode)
	}

	tasks, err := tc.db.ListTasks("a@x.com")
	if err != nil || len(tasks) != 1 {
		t.Fatalf("tasks = %v, %v", tasks, err)
	}
	id := tasks[0].ID

	_, body = tc.post("/planner/"+id+"/toggle", nil)
	mustContain(t, body, "Completed", "Mark pending")

	_, body = tc.post("/planner/"+id+"/delete", nil)
	mustContain(t, body, "No tasks yet.")

	resp, _ = tc.post("/planner/"+id+"/delete", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("delete missing status = %d", resp.StatusCode)
	}
}

func TestSummarize(t *testing.T) {
	ai := &fakeAI{}
	tc := newTestClient(t, ai, defaultConfig())
	tc.signUpAndLogin()
	tc.get("/summarize")

	resp, body := tc.upload("/summarize", "notes.txt", "text/plain", []byte("mitochondria make energy"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	mustContain(t, body, "summary of notes", "Download summary")
	if ai.summarized != "mitochondria make energy" {
		t.Errorf("summarized %q", ai.summarized)
	}

	resp, body = tc.post("/summarize", url.Values{"download": {"1"}, "summary": {"summary of notes"}})
	if got := resp.Header.Get("Content-Disposition"); !strings.Contains(got, "summary.txt") {
		t.Errorf("Content-Disposition = %q", got)
	}
	if body != "summary of notes" {
		t.Errorf("download body = %q", body)
	}
}

func TestSummarizeRejections(t *testing.T) {
	cfg := defaultConfig()
	cfg.MaxUploadBytes = 8
	tc := newTestClient(t, &fakeAI{}, cfg)
	tc.signUpAndLogin()
	tc.get("/summarize")

	resp, _ := tc.upload("/summarize", "big.txt", "text/plain", []byte("more than eight bytes"))
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("too large status = %d", resp.StatusCode)
	}

	resp, body := tc.upload("/summarize", "blank.txt", "text/plain", []byte("   "))
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("blank status = %d", resp.StatusCode)
	}
	mustContain(t, body, "No readable content found.")

	resp, _ = tc.upload("/summarize", "a.zip", "application/zip", []byte("PK"))
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("zip status = %d", resp.StatusCode)
	}
}

func TestBasePath(t *testing.T) {
	cfg := defaultConfig()
	cfg.BasePath = "/sb"
	tc := newTestClient(t, &fakeAI{}, cfg)

	resp, body := tc.get("/")
	if resp.Request.URL.Path != "/sb/login" {
		t.Errorf("redirected to %s", resp.Request.URL.Path)
	}
	mustContain(t, body, `action="/sb/signup"`)
}
