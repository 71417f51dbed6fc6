package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/royaliq/storefront/api/controllers"
	"github.com/royaliq/storefront/api/middleware"
	cartsvc "github.com/royaliq/storefront/internal/cart"
	"github.com/royaliq/storefront/internal/catalog"
	checkoutsvc "github.com/royaliq/storefront/internal/checkout"
	"github.com/royaliq/storefront/internal/payment"
	sessionsvc "github.com/royaliq/storefront/internal/session"
	"github.com/royaliq/storefront/pkg/auth/visitor"
	"github.com/royaliq/storefront/pkg/config"
	"github.com/royaliq/storefront/pkg/logger"
)

// RouterParams collects everything the HTTP surface needs.
type RouterParams struct {
	Config         *config.Config
	Logger         *logger.Logger
	Visitors       *visitor.Manager
	ReadyDeps      map[string]controllers.Pinger
	Catalog        catalog.Service
	Carts          cartsvc.Service
	Checkout       checkoutsvc.Service
	Payments       *payment.Orchestrator
	Sessions       sessionsvc.Service
	MetricsHandler http.Handler
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.ReadyDeps))
	})

	metricsHandler := params.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Visitor(params.Visitors, cfg.Visitor, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(params.Catalog, logg))
			r.Get("/{sku}", controllers.ProductGet(params.Catalog, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(params.Carts, logg))
			r.Post("/items", controllers.CartAddItem(params.Carts, params.Catalog, logg))
			r.Delete("/items/{sku}", controllers.CartRemoveItem(params.Carts, logg))
			r.Post("/clear", controllers.CartClear(params.Carts, logg))
			r.Post("/drawer", controllers.CartSetDrawer(params.Carts, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", controllers.CheckoutState(params.Checkout, logg))
			r.Post("/begin", controllers.CheckoutBegin(params.Checkout, logg))
			r.Post("/back", controllers.CheckoutBack(params.Checkout, logg))
			r.Post("/close", controllers.CheckoutClose(params.Checkout, logg))
			r.Put("/draft", controllers.CheckoutSetDraft(params.Checkout, logg))
			r.Post("/submit", controllers.CheckoutSubmit(params.Checkout, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/", controllers.PaymentStart(params.Payments, logg))
			r.Post("/{attemptID}/complete", controllers.PaymentComplete(params.Payments, logg))
			r.Post("/{attemptID}/fail", controllers.PaymentFail(params.Payments, logg))
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/init", controllers.SessionInit(params.Sessions, logg))
			r.Post("/login", controllers.SessionLogin(params.Sessions, cfg.Visitor, logg))
			r.Post("/signup", controllers.SessionSignup(params.Sessions, cfg.Visitor, logg))
			r.Post("/logout", controllers.SessionLogout(params.Sessions, cfg.Visitor, logg))
		})
	})

	return r
}
