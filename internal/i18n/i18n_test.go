package i18n

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	loc := NewLocalizer(lang)
	return WithLocalizer(context.Background(), loc)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	if got := T(ctx, "AppTitle"); got != "StudyBuddy AI" {
		t.Errorf("T(AppTitle) = %q, want 'StudyBuddy AI'", got)
	}
	if got := T(ctx, "GenerateQuiz"); got != "Generate quiz" {
		t.Errorf("T(GenerateQuiz) = %q", got)
	}
}

func TestTranslateRussian(t *testing.T) {
	ctx := initLang(t, "ru")

	if got := T(ctx, "GenerateQuiz"); got != "Создать тест" {
		t.Errorf("T(GenerateQuiz) = %q, want 'Создать тест'", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	tests := []struct {
		lang  string
		count int
		want  string
	}{
		{"en", 1, "1 task"},
		{"en", 5, "5 tasks"},
		{"ru", 1, "1 задача"},
		{"ru", 3, "3 задачи"},
		{"ru", 5, "5 задач"},
	}
	for _, tt := range tests {
		ctx := initLang(t, tt.lang)
		if got := Tp(ctx, "TasksCount", tt.count); got != tt.want {
			t.Errorf("Tp(%s, TasksCount, %d) = %q, want %q", tt.lang, tt.count, got, tt.want)
		}
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "FinalScore", map[string]any{"Score": 30, "Max": 50})
	if got != "Final score: 30 / 50" {
		t.Errorf("Td(FinalScore) = %q", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	if got := T(ctx, "NonExistentKey"); got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestLocalesHaveSameKeys(t *testing.T) {
	load := func(name string) map[string]any {
		data, err := localeFS.ReadFile("locales/" + name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		m := map[string]any{}
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("parse %s: %v", name, err)
		}
		return m
	}
	en, ru := load("en.json"), load("ru.json")
	for k := range en {
		if _, ok := ru[k]; !ok {
			t.Errorf("ru.json missing %q", k)
		}
	}
	for k := range ru {
		if _, ok := en[k]; !ok {
			t.Errorf("en.json missing %q", k)
		}
	}
}

func TestMiddlewareNegotiation(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	tests := []struct {
		name   string
		target string
		cookie string
		accept string
		want   string
	}{
		{"default", "/", "", "", "en"},
		{"accept-language", "/", "", "ru-RU,ru;q=0.9", "ru"},
		{"cookie beats header", "/", "en", "ru", "en"},
		{"query beats cookie", "/?lang=ru", "en", "", "ru"},
		{"unsupported query ignored", "/?lang=xx", "", "", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got, title string
			h := Middleware("/", false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = Lang(r.Context())
				title = T(r.Context(), "GenerateQuiz")
			}))
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: LangCookie, Value: tt.cookie})
			}
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if got != tt.want {
				t.Errorf("lang = %q, want %q", got, tt.want)
			}
			if tt.want == "ru" && title != "Создать тест" {
				t.Errorf("title = %q", title)
			}
		})
	}
}
