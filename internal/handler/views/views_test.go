package views

import (
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"

	appI18n "github.com/pavelanni/studybuddy/internal/i18n"
	"github.com/pavelanni/studybuddy/internal/model"
	"github.com/pavelanni/studybuddy/internal/quiz"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	if err := appI18n.Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	ctx := appI18n.WithLocalizer(context.Background(), appI18n.NewLocalizer("en"))
	ctx = model.ContextWithBasePath(ctx, "/sb")
	return model.ContextWithCSRFToken(ctx, "tok123")
}

func renderString(t *testing.T, ctx context.Context, c templ.Component) string {
	t.Helper()
	var sb strings.Builder
	if err := c.Render(ctx, &sb); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return sb.String()
}

func assertContains(t *testing.T, html string, wants ...string) {
	t.Helper()
	for _, w := range wants {
		if !strings.Contains(html, w) {
			t.Errorf("output missing %q", w)
		}
	}
}

func TestLoginPage(t *testing.T) {
	ctx := testContext(t)
	html := renderString(t, ctx, LoginPage(LoginView{
		Flash: Flash{Error: "bad <input>"},
		Email: `a"b@x.com`,
	}))

	assertContains(t, html,
		"<!doctype html>",
		`<html lang="en">`,
		`action="/sb/login"`,
		`action="/sb/signup"`,
		`action="/sb/reset"`,
		`<input type="hidden" name="csrf_token" value="tok123">`,
		`<p class="error" role="alert">bad &lt;input&gt;</p>`,
		`value="a&#34;b@x.com"`,
		"Create account",
		"Your smart study companion",
	)
	if strings.Contains(html, "Log out") {
		t.Error("anonymous page shows the logout button")
	}
}

func TestLayoutNavigationWhenLoggedIn(t *testing.T) {
	ctx := model.ContextWithSession(testContext(t), &model.UserSession{
		Token:   "s",
		Profile: model.Profile{Email: "a@x.com"},
	})
	html := renderString(t, ctx, DashboardPage(model.Profile{Email: "a@x.com", Score: 7}))

	assertContains(t, html,
		`<a href="/sb/quiz">`,
		`action="/sb/logout"`,
		"Log out",
		"Welcome, a@x.com!",
		"Last quiz score: 7",
	)
	if strings.Contains(html, "College:") {
		t.Error("empty college is rendered")
	}
}

func TestQuizPageStates(t *testing.T) {
	ctx := testContext(t)
	questions := []quiz.Question{
		{Question: "Q1?", Options: []string{"A. one", "B. two"}, Answer: "A. one"},
		{Question: "Q2?", Options: []string{"A. one", "B. two"}, Answer: "B. two"},
	}

	t.Run("idle", func(t *testing.T) {
		html := renderString(t, ctx, QuizPage(QuizView{Counts: quiz.AllowedCounts, Count: 10}))
		assertContains(t, html, "Generate quiz", `name="count" value="10" checked>`, `action="/sb/quiz/generate"`)
	})

	t.Run("running", func(t *testing.T) {
		sess := quiz.NewSession("go", questions)
		sess.Answers[0] = "B. two"
		html := renderString(t, ctx, QuizPage(QuizView{Session: sess}))
		assertContains(t, html,
			"Question 1 of 2",
			`value="B. two" checked>`,
			`value="prev" disabled>`,
			`value="next"`,
		)
		if strings.Contains(html, `value="finish"`) {
			t.Error("first question offers finish")
		}
	})

	t.Run("results", func(t *testing.T) {
		res := &quiz.Result{Score: 10, Max: 20, Items: []quiz.ResultItem{
			{Number: 1, Question: "Q1?", Selected: "A. one", Correct: "A. one", IsCorrect: true},
			{Number: 2, Question: "Q2?", Correct: "B. two"},
		}}
		html := renderString(t, ctx, QuizPage(QuizView{Result: res}))
		assertContains(t, html,
			"Quiz results",
			"Your answer: Not answered",
			"Correct answer: B. two",
			"Final score: 10 / 20",
			`action="/sb/quiz/reset"`,
		)
	})
}

func TestPlannerPage(t *testing.T) {
	ctx := testContext(t)

	html := renderString(t, ctx, PlannerPage(PlannerView{}))
	assertContains(t, html, "<details open>", "No tasks yet.")

	html = renderString(t, ctx, PlannerPage(PlannerView{Tasks: []model.StudyTask{
		{ID: "t1", Task: "Read <ch.3>", Subject: "Physics", Deadline: "2025-01-01", Status: model.TaskCompleted},
		{ID: "t2", Task: "Lab", Subject: "Chemistry", Deadline: "2025-02-01", Status: model.TaskPending},
	}}))
	assertContains(t, html,
		"<details>",
		"2 tasks",
		"<td>1</td><td>Read &lt;ch.3&gt;</td>",
		`action="/sb/planner/t1/toggle"`,
		`action="/sb/planner/t2/delete"`,
		"Mark pending",
		"Mark done",
	)
}

func TestSummarizePage(t *testing.T) {
	ctx := testContext(t)

	html := renderString(t, ctx, SummarizePage(SummarizeView{MaxMB: 10}))
	assertContains(t, html, `enctype="multipart/form-data"`, "(max 10 MB)")
	if strings.Contains(html, "Download summary") {
		t.Error("download form shown without a summary")
	}

	html = renderString(t, ctx, SummarizePage(SummarizeView{MaxMB: 10, Summary: `say "hi"`}))
	assertContains(t, html, `<div class="result">say &#34;hi&#34;</div>`, `name="summary" value="say &#34;hi&#34;"`, "Download summary")
}

func TestTextPages(t *testing.T) {
	ctx := testContext(t)

	html := renderString(t, ctx, ExplainPage(TextView{Input: "gravity", Result: "it pulls"}))
	assertContains(t, html, `name="topic" value="gravity"`, `<div class="result">it pulls</div>`)

	html = renderString(t, ctx, AskPage(TextView{Input: "why?"}))
	assertContains(t, html, `<textarea name="query" rows="4">why?</textarea>`)
	if strings.Contains(html, `class="result"`) {
		t.Error("empty answer is rendered")
	}
}
