package controllers

import (
	"net/http"

	"github.com/royaliq/storefront/api/middleware"
	"github.com/royaliq/storefront/api/responses"
	"github.com/royaliq/storefront/api/validators"
	sessionsvc "github.com/royaliq/storefront/internal/session"
	"github.com/royaliq/storefront/internal/upstream"
	"github.com/royaliq/storefront/pkg/config"
	pkgerrors "github.com/royaliq/storefront/pkg/errors"
	"github.com/royaliq/storefront/pkg/logger"
)

type loginRequest struct {
	Phone    string `json:"phone" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type signupRequest struct {
	Name     string `json:"name" validate:"required"`
	Phone    string `json:"phone" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
	Email    string `json:"email" validate:"omitempty,email"`
}

type sessionResponse struct {
	Customer *upstream.Customer `json:"customer"`
}

func setSessionCookie(w http.ResponseWriter, cfg config.VisitorConfig, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Session,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, cfg config.VisitorConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Session,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionInit resolves the customer behind an existing session cookie.
// Anonymous shoppers get a null customer, never an error.
func SessionInit(svc sessionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		visitorID := middleware.VisitorIDFromContext(r.Context())
		token := middleware.SessionTokenFromContext(r.Context())
		customer := svc.Initialize(r.Context(), visitorID, token)
		responses.WriteSuccess(w, sessionResponse{Customer: customer})
	}
}

func SessionLogin(svc sessionsvc.Service, cfg config.VisitorConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session service unavailable"))
			return
		}

		var payload loginRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		visitorID := middleware.VisitorIDFromContext(r.Context())
		customer, token, err := svc.Login(r.Context(), visitorID, upstream.LoginParams{
			Phone:    payload.Phone,
			Password: payload.Password,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		setSessionCookie(w, cfg, token)
		responses.WriteSuccess(w, sessionResponse{Customer: customer})
	}
}

func SessionSignup(svc sessionsvc.Service, cfg config.VisitorConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session service unavailable"))
			return
		}

		var payload signupRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		visitorID := middleware.VisitorIDFromContext(r.Context())
		customer, token, err := svc.Signup(r.Context(), visitorID, upstream.SignupParams{
			Name:     payload.Name,
			Phone:    payload.Phone,
			Password: payload.Password,
			Email:    payload.Email,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		setSessionCookie(w, cfg, token)
		responses.WriteSuccessStatus(w, http.StatusCreated, sessionResponse{Customer: customer})
	}
}

// SessionLogout drops the cached identity and clears the cookie even when
// the upstream revocation fails.
func SessionLogout(svc sessionsvc.Service, cfg config.VisitorConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		visitorID := middleware.VisitorIDFromContext(r.Context())
		token := middleware.SessionTokenFromContext(r.Context())
		svc.Logout(r.Context(), visitorID, token)
		clearSessionCookie(w, cfg)
		responses.WriteSuccess(w, sessionResponse{Customer: nil})
	}
}
