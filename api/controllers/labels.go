package controllers

import (
	"net/http"

	"github.com/angelmondragon/poslite-backend/api/middleware"
	"github.com/angelmondragon/poslite-backend/api/responses"
	"github.com/angelmondragon/poslite-backend/pkg/i18n"
)

type labelsResponse struct {
	Language  string            `json:"language"`
	Supported []string          `json:"supported"`
	Labels    map[string]string `json:"labels"`
}

// Labels returns the UI label table for the request language.
func Labels() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lang := middleware.LanguageFromContext(r.Context())
		responses.WriteSuccess(w, labelsResponse{
			Language:  lang,
			Supported: i18n.Supported(),
			Labels:    i18n.Labels(lang),
		})
	}
}
