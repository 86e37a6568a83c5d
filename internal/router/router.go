package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/tv-reposteria/api/internal/config"
	"github.com/tv-reposteria/api/internal/database"
	"github.com/tv-reposteria/api/internal/enum"
	"github.com/tv-reposteria/api/internal/handler"
	mw "github.com/tv-reposteria/api/internal/middleware"
	"github.com/tv-reposteria/api/internal/service"
	"github.com/tv-reposteria/api/internal/ws"
)

const version = "1.0.0"

// New creates a Chi router with all application routes wired up.
// Ledger dates and the dashboard use loc.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, loc *time.Location) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger(log.StandardLogger()))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", health(pool))

	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/{channel}", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	catalogService := service.NewCatalogService(queries)
	inventoryService := service.NewInventoryService(queries, pool, func(db database.DBTX) service.PurchaseStore {
		return database.New(db)
	}, loc)
	orderService := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	})
	statusService := service.NewOrderStatusService(pool, func(db database.DBTX) service.OrderStatusStore {
		return database.New(db)
	}, loc)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		inventoryHandler := handler.NewInventoryHandler(inventoryService, queries, hub)
		r.Route("/inventory", inventoryHandler.RegisterRoutes)

		productHandler := handler.NewProductHandler(catalogService, queries)
		variationHandler := handler.NewVariationHandler(catalogService, queries)
		r.Route("/products", func(r chi.Router) {
			productHandler.RegisterRoutes(r)
			r.Route("/{pid}/variations", variationHandler.RegisterRoutes)
		})

		pricingHandler := handler.NewPricingHandler()
		pricingHandler.RegisterRoutes(r)

		orderHandler := handler.NewOrderHandler(orderService, statusService, queries, hub)
		r.Route("/orders", orderHandler.RegisterRoutes)

		// Owner-only routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleOwner))

			ledgerHandler := handler.NewLedgerHandler(queries)
			ledgerHandler.RegisterRoutes(r)

			userHandler := handler.NewUserHandler(queries)
			r.Route("/users", userHandler.RegisterRoutes)
		})
	})

	log.Debug("router initialized with all handlers")
	return r
}

func health(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if pool != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := pool.Ping(ctx); err != nil {
				log.WithError(err).Warn("health: database unreachable")
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"degraded","database":"unreachable","version":"` + version + `"}`))
				return
			}
		}
		w.Write([]byte(`{"status":"ok","version":"` + version + `"}`))
	}
}
