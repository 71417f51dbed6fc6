package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/royaliq/storefront/api/middleware"
	"github.com/royaliq/storefront/api/responses"
	"github.com/royaliq/storefront/api/validators"
	"github.com/royaliq/storefront/internal/payment"
	pkgerrors "github.com/royaliq/storefront/pkg/errors"
	"github.com/royaliq/storefront/pkg/logger"
)

type completePaymentRequest struct {
	ProviderOrderID   string `json:"razorpay_order_id" validate:"required"`
	ProviderPaymentID string `json:"razorpay_payment_id" validate:"required"`
	ProviderSignature string `json:"razorpay_signature" validate:"required"`
}

type failPaymentRequest struct {
	Message string `json:"message"`
}

// PaymentStart opens a fresh payment attempt and returns the descriptor the
// storefront hands to the hosted widget.
func PaymentStart(orch *payment.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if orch == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment orchestrator unavailable"))
			return
		}

		visitorID := middleware.VisitorIDFromContext(r.Context())
		session := middleware.SessionTokenFromContext(r.Context())
		attempt, err := orch.Start(r.Context(), visitorID, session)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, attempt)
	}
}

// PaymentComplete verifies the credentials the widget handed back for a
// live attempt.
func PaymentComplete(orch *payment.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if orch == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment orchestrator unavailable"))
			return
		}

		var payload completePaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		visitorID := middleware.VisitorIDFromContext(r.Context())
		attemptID := chi.URLParam(r, "attemptID")
		result, err := orch.Complete(r.Context(), visitorID, attemptID, payment.Result{
			ProviderOrderID:   payload.ProviderOrderID,
			ProviderPaymentID: payload.ProviderPaymentID,
			ProviderSignature: payload.ProviderSignature,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// PaymentFail records that the shopper dismissed or the provider rejected
// the attempt. The bag is untouched.
func PaymentFail(orch *payment.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if orch == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment orchestrator unavailable"))
			return
		}

		var payload failPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		visitorID := middleware.VisitorIDFromContext(r.Context())
		attemptID := chi.URLParam(r, "attemptID")
		if err := orch.Fail(r.Context(), visitorID, attemptID, payload.Message); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "failed"})
	}
}
