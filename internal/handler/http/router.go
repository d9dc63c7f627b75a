package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KampusMeal/kampusmeal-backend/internal/auth"
	"github.com/KampusMeal/kampusmeal-backend/internal/domain"
	"github.com/KampusMeal/kampusmeal-backend/internal/repository"
	"github.com/KampusMeal/kampusmeal-backend/internal/service"
	"github.com/KampusMeal/kampusmeal-backend/pkg/health"
	"github.com/KampusMeal/kampusmeal-backend/pkg/middleware"
)

// RouterConfig bundles the dependencies needed to build the API router.
type RouterConfig struct {
	AuthService    *service.AuthService
	CatalogService *service.CatalogService
	CartService    *service.CartService
	OrderService   *service.OrderService
	ReviewService  *service.ReviewService

	JWTManager *auth.JWTManager
	UserRepo   repository.UserRepository
	StallRepo  repository.StallRepository

	HealthHandler *health.Handler
	Logger        *slog.Logger
	CORS          middleware.CORSConfig
}

// NewRouter creates a chi router with all API routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.PrometheusMetrics("kampusmeal"))
	r.Use(middleware.Tracing("kampusmeal"))
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check and metrics endpoints
	r.Get("/health/live", cfg.HealthHandler.LivenessHandler())
	r.Get("/health/ready", cfg.HealthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	authHandler := NewAuthHandler(cfg.AuthService, cfg.Logger)
	stallHandler := NewStallHandler(cfg.CatalogService, cfg.Logger)
	menuHandler := NewMenuHandler(cfg.CatalogService, cfg.Logger)
	cartHandler := NewCartHandler(cfg.CartService, cfg.Logger)
	orderHandler := NewOrderHandler(cfg.OrderService, cfg.Logger)
	reviewHandler := NewReviewHandler(cfg.ReviewService, cfg.Logger)

	authenticate := Authenticate(cfg.JWTManager, cfg.UserRepo, cfg.StallRepo, cfg.Logger)
	requireOwner := RequireRole(cfg.Logger, domain.RoleStallOwner)
	requireUser := RequireRole(cfg.Logger, domain.RoleUser)

	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints
		r.Route("/auth", func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.RefreshToken)
		})

		r.Get("/stalls", stallHandler.ListStalls)
		r.Get("/stalls/{stallID}", stallHandler.GetStall)
		r.Get("/stalls/{stallID}/menu", menuHandler.ListMenu)
		r.Get("/stalls/{stallID}/reviews", reviewHandler.ListStallReviews)
		r.Get("/menu/{itemID}", menuHandler.GetMenuItem)

		// Authenticated endpoints
		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Get("/users/me", authHandler.GetProfile)
			r.Get("/reviews/order/{orderID}", reviewHandler.GetOrderReview)

			r.Route("/cart", func(r chi.Router) {
				r.Use(ContentTypeJSON)
				r.Get("/", cartHandler.GetCart)
				r.Delete("/", cartHandler.ClearCart)
				r.Post("/items", cartHandler.AddItem)
				r.Patch("/items/{menuItemID}", cartHandler.UpdateItemQuantity)
				r.Delete("/items/{menuItemID}", cartHandler.RemoveItem)
			})

			r.Route("/orders", func(r chi.Router) {
				// Buyer endpoints; checkout and proof upload are multipart,
				// so they stay outside the JSON content-type gate.
				r.Group(func(r chi.Router) {
					r.Use(requireUser)
					r.Post("/checkout", orderHandler.Checkout)
					r.Patch("/{orderID}/upload-proof", orderHandler.ResubmitProof)
					r.Get("/", orderHandler.ListMyOrders)
					r.Get("/{orderID}", orderHandler.GetMyOrder)
				})

				// Seller endpoints; the static my-stall segment takes
				// priority over the {orderID} match.
				r.Route("/my-stall/orders", func(r chi.Router) {
					r.Use(requireOwner)
					r.Get("/", orderHandler.ListStallOrders)
					r.Get("/{orderID}", orderHandler.GetStallOrder)
					r.Patch("/{orderID}/confirm", orderHandler.ConfirmOrder)
					r.With(ContentTypeJSON).Patch("/{orderID}/reject", orderHandler.RejectOrder)
					r.Patch("/{orderID}/ready", orderHandler.ReadyOrder)
					r.Patch("/{orderID}/complete", orderHandler.CompleteOrder)
				})
			})

			r.With(requireUser, ContentTypeJSON).Post("/reviews", reviewHandler.CreateReview)

			// Stall-owner catalog management
			r.Group(func(r chi.Router) {
				r.Use(requireOwner)

				r.With(ContentTypeJSON).Post("/stalls", stallHandler.CreateStall)
				r.With(ContentTypeJSON).Put("/stalls/{stallID}", stallHandler.UpdateStall)
				r.Post("/stalls/{stallID}/image", stallHandler.UploadStallImage)

				r.With(ContentTypeJSON).Post("/stalls/{stallID}/menu", menuHandler.CreateMenuItem)
				r.With(ContentTypeJSON).Put("/menu/{itemID}", menuHandler.UpdateMenuItem)
				r.Delete("/menu/{itemID}", menuHandler.DeleteMenuItem)
				r.Post("/menu/{itemID}/image", menuHandler.UploadMenuImage)
			})
		})
	})

	return r
}
