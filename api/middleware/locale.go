package middleware

import (
	"net/http"

	"github.com/angelmondragon/poslite-backend/pkg/i18n"
)

// Locale resolves the label language from the lang query parameter or the
// Accept-Language header and stores it on the request context.
func Locale(defaultLang string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pref := r.URL.Query().Get("lang")
			if pref == "" {
				pref = r.Header.Get("Accept-Language")
			}
			lang := i18n.Resolve(pref, defaultLang)
			w.Header().Set("Content-Language", lang)
			next.ServeHTTP(w, r.WithContext(WithLanguage(r.Context(), lang)))
		})
	}
}
