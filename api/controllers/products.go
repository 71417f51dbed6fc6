package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/royaliq/storefront/api/responses"
	"github.com/royaliq/storefront/api/validators"
	"github.com/royaliq/storefront/internal/catalog"
	"github.com/royaliq/storefront/internal/upstream"
	pkgerrors "github.com/royaliq/storefront/pkg/errors"
	"github.com/royaliq/storefront/pkg/logger"
)

// ProductList proxies the catalogue listing with optional search, category
// and limit filters.
func ProductList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 500)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		products, err := svc.List(r.Context(), upstream.ProductQuery{
			Search:   validators.QueryString(r, "q"),
			Category: validators.QueryString(r, "category"),
			Limit:    limit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, products)
	}
}

func ProductGet(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		sku := chi.URLParam(r, "sku")
		product, err := svc.Get(r.Context(), sku)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}
