// Package views renders the HTML pages as templ components.
package views

import (
	"context"

	"github.com/pavelanni/studybuddy/internal/model"
	"github.com/pavelanni/studybuddy/internal/quiz"
)

// path prefixes p with the base path the app is mounted under.
func path(ctx context.Context, p string) string {
	return model.BasePathFromContext(ctx) + p
}

type mode struct {
	Path  string
	Title string
	Hint  string
}

// modes feeds both the navigation bar and the dashboard cards.
var modes = []mode{
	{"/explain", "ModeExplain", "ModeExplainHint"},
	{"/summarize", "ModeSummarize", "ModeSummarizeHint"},
	{"/quiz", "ModeQuiz", "ModeQuizHint"},
	{"/planner", "ModePlanner", "ModePlannerHint"},
	{"/ask", "ModeAsk", "ModeAskHint"},
}

// Flash is a one-off message shown at the top of a page.
type Flash struct {
	Error  string
	Notice string
}

// LoginView backs the login, sign-up and reset forms.
type LoginView struct {
	Flash
	Email string
}

// TextView backs the single-input pages (explain and ask).
type TextView struct {
	Flash
	Input  string
	Result string
}

// SummarizeView backs the note summarizer.
type SummarizeView struct {
	Flash
	MaxMB   int64
	Summary string
}

// QuizView backs all three quiz states. Session nil and Result nil is idle.
type QuizView struct {
	Flash
	Topic   string
	Counts  []int
	Count   int
	Session *quiz.Session
	Result  *quiz.Result
}

// PlannerView backs the study planner.
type PlannerView struct {
	Flash
	Tasks    []model.StudyTask
	Task     string
	Subject  string
	Deadline string
}
