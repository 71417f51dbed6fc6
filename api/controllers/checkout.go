package controllers

import (
	"net/http"

	"github.com/royaliq/storefront/api/middleware"
	"github.com/royaliq/storefront/api/responses"
	"github.com/royaliq/storefront/api/validators"
	checkoutsvc "github.com/royaliq/storefront/internal/checkout"
	"github.com/royaliq/storefront/pkg/logger"
)

type draftRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type submitRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func CheckoutState(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		visitorID := middleware.VisitorIDFromContext(r.Context())
		state, err := svc.State(r.Context(), visitorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, state)
	}
}

func CheckoutBegin(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		visitorID := middleware.VisitorIDFromContext(r.Context())
		state, err := svc.Begin(r.Context(), visitorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, state)
	}
}

func CheckoutBack(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		visitorID := middleware.VisitorIDFromContext(r.Context())
		state, err := svc.Back(r.Context(), visitorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, state)
	}
}

func CheckoutClose(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		visitorID := middleware.VisitorIDFromContext(r.Context())
		state, err := svc.Close(r.Context(), visitorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, state)
	}
}

func CheckoutSetDraft(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload draftRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		visitorID := middleware.VisitorIDFromContext(r.Context())
		state, err := svc.SetDraft(r.Context(), visitorID, checkoutsvc.Draft{
			Name:  payload.Name,
			Phone: payload.Phone,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, state)
	}
}

// CheckoutSubmit places the order for the bag's current lines using the
// buyer details in the body.
func CheckoutSubmit(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload submitRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		visitorID := middleware.VisitorIDFromContext(r.Context())
		order, err := svc.Submit(r.Context(), visitorID, checkoutsvc.Draft{
			Name:  payload.Name,
			Phone: payload.Phone,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}
