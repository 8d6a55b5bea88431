package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pavelanni/studybuddy/internal/extract"
	"github.com/pavelanni/studybuddy/internal/handler/views"
	appI18n "github.com/pavelanni/studybuddy/internal/i18n"
)

func (h *Handler) handleExplainPage(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, views.ExplainPage(views.TextView{}))
}

func (h *Handler) handleExplain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	topic := strings.TrimSpace(r.FormValue("topic"))
	if topic == "" {
		render(w, r, http.StatusBadRequest, views.ExplainPage(views.TextView{
			Flash: views.Flash{Error: appI18n.T(ctx, "EnterTopicFirst")},
		}))
		return
	}

	text, err := h.assistant.Explain(ctx, topic)
	if err != nil {
		msg, status := failure(ctx, err)
		render(w, r, status, views.ExplainPage(views.TextView{Flash: views.Flash{Error: msg}, Input: topic}))
		return
	}
	render(w, r, http.StatusOK, views.ExplainPage(views.TextView{Input: topic, Result: text}))
}

func (h *Handler) handleAskPage(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, views.AskPage(views.TextView{}))
}

func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := strings.TrimSpace(r.FormValue("query"))
	if query == "" {
		render(w, r, http.StatusBadRequest, views.AskPage(views.TextView{
			Flash: views.Flash{Error: appI18n.T(ctx, "EnterQuestionFirst")},
		}))
		return
	}

	text, err := h.assistant.Ask(ctx, query)
	if err != nil {
		msg, status := failure(ctx, err)
		render(w, r, status, views.AskPage(views.TextView{Flash: views.Flash{Error: msg}, Input: query}))
		return
	}
	render(w, r, http.StatusOK, views.AskPage(views.TextView{Input: query, Result: text}))
}

func (h *Handler) summarizeView(f views.Flash, summary string) views.SummarizeView {
	return views.SummarizeView{Flash: f, MaxMB: h.config.MaxUploadBytes >> 20, Summary: summary}
}

func (h *Handler) handleSummarizePage(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, views.SummarizePage(h.summarizeView(views.Flash{}, "")))
}

func (h *Handler) handleSummarize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.FormValue("download") == "1" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="summary.txt"`)
		_, _ = io.WriteString(w, r.FormValue("summary"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		render(w, r, http.StatusBadRequest, views.SummarizePage(h.summarizeView(
			views.Flash{Error: appI18n.T(ctx, "NoFile")}, "")))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		msg, status := failure(ctx, err)
		render(w, r, status, views.SummarizePage(h.summarizeView(views.Flash{Error: msg}, "")))
		return
	}

	text, err := h.extractor.Text(ctx, extract.Upload{
		Name:     header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Data:     data,
	})
	if errors.Is(err, extract.ErrTooLarge) {
		msg := appI18n.Td(ctx, "FileTooLarge", map[string]any{"MB": h.config.MaxUploadBytes >> 20})
		render(w, r, http.StatusRequestEntityTooLarge, views.SummarizePage(h.summarizeView(views.Flash{Error: msg}, "")))
		return
	}
	if err != nil {
		msg, status := failure(ctx, err)
		render(w, r, status, views.SummarizePage(h.summarizeView(views.Flash{Error: msg}, "")))
		return
	}

	summary, err := h.assistant.Summarize(ctx, text)
	if err != nil {
		msg, status := failure(ctx, err)
		render(w, r, status, views.SummarizePage(h.summarizeView(views.Flash{Error: msg}, "")))
		return
	}
	slog.Info("summarized upload", "file", header.Filename, "bytes", len(data))
	render(w, r, http.StatusOK, views.SummarizePage(h.summarizeView(
		views.Flash{Notice: appI18n.T(ctx, "SummaryReady")}, summary)))
}
