package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/royaliq/storefront/api/middleware"
	"github.com/royaliq/storefront/api/responses"
	"github.com/royaliq/storefront/api/validators"
	cartsvc "github.com/royaliq/storefront/internal/cart"
	"github.com/royaliq/storefront/internal/catalog"
	pkgerrors "github.com/royaliq/storefront/pkg/errors"
	"github.com/royaliq/storefront/pkg/logger"
)

type addItemRequest struct {
	SKU string `json:"sku" validate:"required"`
	Qty int    `json:"qty"`
}

type drawerRequest struct {
	Open bool `json:"open"`
}

// bagResponse flattens the snapshot with the derived totals the storefront
// renders next to the bag.
type bagResponse struct {
	Lines        []cartsvc.Line  `json:"lines"`
	DrawerOpen   bool            `json:"drawer_open"`
	Count        int             `json:"count"`
	Total        decimal.Decimal `json:"total"`
	AllOnRequest bool            `json:"all_on_request"`
}

func newBagResponse(snapshot cartsvc.Snapshot) bagResponse {
	return bagResponse{
		Lines:        snapshot.Lines,
		DrawerOpen:   snapshot.DrawerOpen,
		Count:        snapshot.Count(),
		Total:        snapshot.Total(),
		AllOnRequest: snapshot.AllOnRequest(),
	}
}

func CartGet(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		visitorID := middleware.VisitorIDFromContext(r.Context())
		snapshot, err := svc.Get(r.Context(), visitorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newBagResponse(snapshot))
	}
}

// CartAddItem resolves the SKU against the catalogue and adds the captured
// product snapshot to the bag.
func CartAddItem(carts cartsvc.Service, products catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if carts == nil || products == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := products.Get(r.Context(), payload.SKU)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		visitorID := middleware.VisitorIDFromContext(r.Context())
		snapshot, err := carts.AddItem(r.Context(), visitorID, *product, payload.Qty)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newBagResponse(snapshot))
	}
}

func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		visitorID := middleware.VisitorIDFromContext(r.Context())
		sku := chi.URLParam(r, "sku")
		snapshot, err := svc.RemoveItem(r.Context(), visitorID, sku)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newBagResponse(snapshot))
	}
}

func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		visitorID := middleware.VisitorIDFromContext(r.Context())
		snapshot, err := svc.Clear(r.Context(), visitorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newBagResponse(snapshot))
	}
}

func CartSetDrawer(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload drawerRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		visitorID := middleware.VisitorIDFromContext(r.Context())
		snapshot, err := svc.SetDrawerOpen(r.Context(), visitorID, payload.Open)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newBagResponse(snapshot))
	}
}
