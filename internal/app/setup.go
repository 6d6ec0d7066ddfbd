// Package app contains the application setup for the storefront service.
package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	cartservice "github.com/mkarev/storefront/internal/cart/service"
	cartstore "github.com/mkarev/storefront/internal/cart/store"
	cartrest "github.com/mkarev/storefront/internal/cart/transport/rest"
	catalogservice "github.com/mkarev/storefront/internal/catalog/service"
	catalogstore "github.com/mkarev/storefront/internal/catalog/store"
	catalogrest "github.com/mkarev/storefront/internal/catalog/transport/rest"
	"github.com/mkarev/storefront/internal/config"
	"github.com/mkarev/storefront/pkg/auth"
	"github.com/mkarev/storefront/pkg/messaging"
	"github.com/mkarev/storefront/pkg/server"
	"github.com/mkarev/storefront/pkg/web"
)

type Dependencies struct {
	ProductService catalogservice.ProductService
	CartService    cartservice.CartService
	AuthMw         func(http.Handler) http.Handler
	Logger         *slog.Logger
}

// SetupDependencies wires the stores, services and auth middleware. The cart
// service and the product service share the same product store, so cart
// reservations and admin stock adjustments act on one ledger.
func SetupDependencies(ctx context.Context, dbPool *pgxpool.Pool, publisher messaging.Publisher, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	products := catalogstore.NewPgStore(dbPool)
	carts := cartstore.NewPgStore(dbPool)

	authMw := web.AuthMiddleware
	if cfg.IdP.Enabled {
		verifier, err := auth.NewJWTVerifier(ctx, cfg.IdP)
		if err != nil {
			return nil, err
		}
		authMw = auth.Middleware(verifier)
	}

	return &Dependencies{
		ProductService: catalogservice.NewService(products),
		CartService:    cartservice.NewService(carts, products, publisher, logger),
		AuthMw:         authMw,
		Logger:         logger,
	}, nil
}

// SetupHttpHandler initializes the HTTP routes for the storefront application.
// Used by E2E tests to set up the HTTP server with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return mux
}

// wireRoutes sets up the HTTP routes for the storefront application.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	productHandler := catalogrest.NewHandler(deps.ProductService, deps.Logger)
	productHandler.RegisterRoutes(mux)

	cartHandler := cartrest.NewHandler(deps.CartService, deps.Logger)
	cartHandler.RegisterRoutes(mux, deps.AuthMw)
}

// SetupHttpServer creates and configures an HTTP server for the storefront application.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {

	mux := SetupHttpHandler(deps)

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}

	return server.NewHTTPServer(httpCfg, mux)
}
