package router

import (
	"net/http"

	"shopflow/internal/handler"
	"shopflow/internal/middleware"
	"shopflow/internal/model"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers served by the router.
type Handlers struct {
	Orders *handler.OrderHandler
	Wallet *handler.WalletHandler
	Stock  *handler.StockHandler
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, apiKey string, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// RequestID -> Recovery -> Logging -> CORS, then APIKeyAuth -> Identity on /api
	r.Use(chimw.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS)

	// Health check endpoint (no authentication required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(apiKey, logger))
		r.Use(middleware.Identity(logger))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.Orders.Create)
			r.Get("/", h.Orders.List)
			r.Get("/{id}", h.Orders.Get)
			r.Post("/{id}/pay", h.Orders.Pay)
			r.Put("/{id}/cancel", h.Orders.Cancel)
			r.Put("/{id}/receive", h.Orders.Receive)
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", h.Wallet.Get)
			r.Get("/transactions", h.Wallet.Transactions)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(model.PermOrderManage, logger))
				r.Get("/orders", h.Orders.AdminList)
				r.Get("/orders/{id}", h.Orders.Get)
				r.Put("/orders/{id}/ship", h.Orders.Ship)
				r.Put("/orders/{id}/cancel", h.Orders.Cancel)
			})

			r.With(middleware.RequirePermission(model.PermWalletManage, logger)).
				Post("/wallets/{userID}/deposit", h.Wallet.Deposit)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(model.PermStockManage, logger))
				r.Get("/stock/{productID}", h.Stock.Get)
				r.Post("/stock/restock", h.Stock.Restock)
			})
		})
	})

	return r
}
