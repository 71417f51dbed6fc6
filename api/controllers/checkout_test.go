package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	checkoutsvc "github.com/royaliq/storefront/internal/checkout"
	"github.com/royaliq/storefront/internal/upstream"
	pkgerrors "github.com/royaliq/storefront/pkg/errors"
)

type stubCheckout struct {
	state checkoutsvc.State
	order *upstream.Order
	err   error

	draft     checkoutsvc.Draft
	submitted checkoutsvc.Draft
}

func (s *stubCheckout) State(ctx context.Context, visitorID string) (checkoutsvc.State, error) {
	return s.state, s.err
}

func (s *stubCheckout) Begin(ctx context.Context, visitorID string) (checkoutsvc.State, error) {
	return s.state, s.err
}

func (s *stubCheckout) Back(ctx context.Context, visitorID string) (checkoutsvc.State, error) {
	return s.state, s.err
}

func (s *stubCheckout) Close(ctx context.Context, visitorID string) (checkoutsvc.State, error) {
	return s.state, s.err
}

func (s *stubCheckout) SetDraft(ctx context.Context, visitorID string, draft checkoutsvc.Draft) (checkoutsvc.State, error) {
	s.draft = draft
	return s.state, s.err
}

func (s *stubCheckout) Submit(ctx context.Context, visitorID string, draft checkoutsvc.Draft) (*upstream.Order, error) {
	s.submitted = draft
	return s.order, s.err
}

func TestCheckoutSubmitMapsBuyerDetails(t *testing.T) {
	svc := &stubCheckout{order: &upstream.Order{ID: "ord-1", Status: "pending"}}
	handler := CheckoutSubmit(svc, nil)

	body := strings.NewReader(`{"name":"Asha","phone":"9876543210"}`)
	req := withVisitor(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/submit", body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.submitted.Name != "Asha" || svc.submitted.Phone != "9876543210" {
		t.Fatalf("unexpected draft: %+v", svc.submitted)
	}

	var envelope struct {
		Data upstream.Order `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != "ord-1" {
		t.Fatalf("unexpected order id %q", envelope.Data.ID)
	}
}

func TestCheckoutSubmitBusyFlow(t *testing.T) {
	svc := &stubCheckout{err: pkgerrors.New(pkgerrors.CodeStateConflict, "an order submission is already in flight")}
	handler := CheckoutSubmit(svc, nil)

	body := strings.NewReader(`{"name":"Asha","phone":"9876543210"}`)
	req := withVisitor(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/submit", body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}

func TestCheckoutSetDraftPersists(t *testing.T) {
	svc := &stubCheckout{state: checkoutsvc.State{Step: checkoutsvc.StepCheckout}}
	handler := CheckoutSetDraft(svc, nil)

	body := strings.NewReader(`{"name":"Asha","phone":"98765"}`)
	req := withVisitor(httptest.NewRequest(http.MethodPut, "/api/v1/checkout/draft", body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.draft.Name != "Asha" || svc.draft.Phone != "98765" {
		t.Fatalf("unexpected draft: %+v", svc.draft)
	}
}

func TestCheckoutBeginEmptyBag(t *testing.T) {
	svc := &stubCheckout{err: pkgerrors.New(pkgerrors.CodeStateConflict, "bag is empty")}
	handler := CheckoutBegin(svc, nil)

	req := withVisitor(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/begin", nil))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}
