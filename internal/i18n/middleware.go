package i18n

import "net/http"

// LangCookie remembers a language picked with the ?lang= query parameter.
const LangCookie = "lang"

// Middleware injects a localizer into every request context. The language
// comes from ?lang=, then the lang cookie, then Accept-Language, falling
// back to the default passed to Init.
func Middleware(cookiePath string, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var prefs []string
			if q := r.URL.Query().Get("lang"); q != "" && Supported(q) {
				http.SetCookie(w, &http.Cookie{
					Name:     LangCookie,
					Value:    q,
					Path:     cookiePath,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
				prefs = append(prefs, q)
			}
			if c, err := r.Cookie(LangCookie); err == nil && Supported(c.Value) {
				prefs = append(prefs, c.Value)
			}
			prefs = append(prefs, r.Header.Get("Accept-Language"))

			lang := Match(prefs...)
			ctx := WithLocalizer(WithLang(r.Context(), lang), NewLocalizer(lang))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
