package controllers

import (
	"net/http"

	"github.com/angelmondragon/poslite-backend/api/middleware"
	"github.com/angelmondragon/poslite-backend/api/responses"
	"github.com/angelmondragon/poslite-backend/api/validators"
	"github.com/angelmondragon/poslite-backend/internal/auth"
	pkgerrors "github.com/angelmondragon/poslite-backend/pkg/errors"
	"github.com/angelmondragon/poslite-backend/pkg/logger"
)

// AuthLogin wires the login endpoint into the HTTP layer.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// AuthLogout revokes the token that authenticated the request.
func AuthLogout(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accessID, expiresAt := middleware.AccessTokenFromContext(r.Context())
		if accessID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
			return
		}
		if err := svc.Logout(r.Context(), accessID, expiresAt); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// AuthWhoAmI echoes the operator identity carried by the token.
func AuthWhoAmI() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{
			"username": middleware.UsernameFromContext(r.Context()),
			"role":     middleware.RoleFromContext(r.Context()),
		})
	}
}
