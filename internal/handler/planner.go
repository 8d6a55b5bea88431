package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/studybuddy/internal/handler/views"
	appI18n "github.com/pavelanni/studybuddy/internal/i18n"
	"github.com/pavelanni/studybuddy/internal/model"
)

func (h *Handler) renderPlanner(w http.ResponseWriter, r *http.Request, status int, v views.PlannerView) {
	sess := model.SessionFromContext(r.Context())
	tasks, err := h.planner.List(sess.Profile.Email)
	if err != nil {
		msg, code := failure(r.Context(), err)
		v.Error, status = msg, code
	}
	v.Tasks = tasks
	render(w, r, status, views.PlannerPage(v))
}

func (h *Handler) handlePlannerPage(w http.ResponseWriter, r *http.Request) {
	h.renderPlanner(w, r, http.StatusOK, views.PlannerView{})
}

func (h *Handler) handleAddTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := model.SessionFromContext(ctx)
	v := views.PlannerView{
		Task:     r.FormValue("task"),
		Subject:  r.FormValue("subject"),
		Deadline: r.FormValue("deadline"),
	}

	_, err := h.planner.Add(sess.Profile.Email, v.Task, v.Subject, v.Deadline)
	if errors.Is(err, model.ErrValidation) {
		v.Error = appI18n.T(ctx, "InvalidDeadline")
		h.renderPlanner(w, r, http.StatusBadRequest, v)
		return
	}
	if err != nil {
		msg, status := failure(ctx, err)
		v.Error = msg
		h.renderPlanner(w, r, status, v)
		return
	}
	http.Redirect(w, r, h.path("/planner"), http.StatusSeeOther)
}

func (h *Handler) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	sess := model.SessionFromContext(r.Context())
	h.afterTaskChange(w, r, h.planner.Toggle(sess.Profile.Email, chi.URLParam(r, "taskID")))
}

func (h *Handler) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	sess := model.SessionFromContext(r.Context())
	h.afterTaskChange(w, r, h.planner.DeleteByID(sess.Profile.Email, chi.URLParam(r, "taskID")))
}

func (h *Handler) afterTaskChange(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		msg, status := failure(r.Context(), err)
		h.renderPlanner(w, r, status, views.PlannerView{Flash: views.Flash{Error: msg}})
		return
	}
	http.Redirect(w, r, h.path("/planner"), http.StatusSeeOther)
}
