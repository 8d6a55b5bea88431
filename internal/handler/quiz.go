package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/pavelanni/studybuddy/internal/handler/views"
	appI18n "github.com/pavelanni/studybuddy/internal/i18n"
	"github.com/pavelanni/studybuddy/internal/model"
	"github.com/pavelanni/studybuddy/internal/quiz"
)

const defaultQuizCount = 10

// quizView loads whatever state the session's quiz is in.
func (h *Handler) quizView(r *http.Request, f views.Flash) (views.QuizView, error) {
	v := views.QuizView{Flash: f, Counts: quiz.AllowedCounts, Count: defaultQuizCount}
	sess := model.SessionFromContext(r.Context())
	current, err := h.quiz.Current(r.Context(), sess.Token)
	if err != nil {
		return v, err
	}
	if current == nil {
		return v, nil
	}
	v.Topic = current.Topic
	if current.Phase == quiz.PhaseFinished {
		res, err := current.Score()
		if err != nil {
			return v, err
		}
		v.Result = res
		return v, nil
	}
	v.Session = current
	return v, nil
}

func (h *Handler) renderQuiz(w http.ResponseWriter, r *http.Request, status int, f views.Flash) {
	v, err := h.quizView(r, f)
	if err != nil {
		msg, code := failure(r.Context(), err)
		v.Error = msg
		status = code
	}
	render(w, r, status, views.QuizPage(v))
}

func (h *Handler) handleQuizPage(w http.ResponseWriter, r *http.Request) {
	var f views.Flash
	if n, err := strconv.Atoi(r.URL.Query().Get("generated")); err == nil && n > 0 {
		f.Notice = appI18n.Tp(r.Context(), "QuestionsGenerated", n)
	}
	h.renderQuiz(w, r, http.StatusOK, f)
}

func (h *Handler) handleQuizGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := model.SessionFromContext(ctx)
	topic := r.FormValue("topic")

	count := defaultQuizCount
	if c := r.FormValue("count"); c != "" {
		n, err := strconv.Atoi(c)
		if err != nil {
			h.renderQuiz(w, r, http.StatusBadRequest, views.Flash{Error: appI18n.T(ctx, "FieldsRequired")})
			return
		}
		count = n
	}

	generated, err := h.quiz.Generate(ctx, sess.Token, topic, count)
	if err != nil {
		msg, status := failure(ctx, err)
		if errors.Is(err, model.ErrValidation) {
			msg = appI18n.T(ctx, "EnterTopicFirst")
		}
		v := views.QuizView{Flash: views.Flash{Error: msg}, Counts: quiz.AllowedCounts, Count: count, Topic: topic}
		render(w, r, status, views.QuizPage(v))
		return
	}
	http.Redirect(w, r, h.path("/quiz?generated="+strconv.Itoa(len(generated.Questions))), http.StatusSeeOther)
}

func (h *Handler) handleQuizAnswer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := model.SessionFromContext(ctx)
	selected := r.FormValue("answer")

	var err error
	switch r.FormValue("action") {
	case "prev":
		_, err = h.quiz.Prev(ctx, sess.Token)
	case "finish":
		_, err = h.quiz.Finish(ctx, sess.Token, sess.Profile.Email, selected)
	default:
		_, err = h.quiz.Next(ctx, sess.Token, selected)
	}
	if err != nil {
		msg, status := failure(ctx, err)
		h.renderQuiz(w, r, status, views.Flash{Error: msg})
		return
	}
	http.Redirect(w, r, h.path("/quiz"), http.StatusSeeOther)
}

func (h *Handler) handleQuizReset(w http.ResponseWriter, r *http.Request) {
	sess := model.SessionFromContext(r.Context())
	if err := h.quiz.Reset(r.Context(), sess.Token); err != nil {
		msg, status := failure(r.Context(), err)
		h.renderQuiz(w, r, status, views.Flash{Error: msg})
		return
	}
	http.Redirect(w, r, h.path("/quiz"), http.StatusSeeOther)
}
