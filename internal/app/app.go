package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/KampusMeal/kampusmeal-backend/internal/auth"
	"github.com/KampusMeal/kampusmeal-backend/internal/config"
	"github.com/KampusMeal/kampusmeal-backend/internal/event"
	handler "github.com/KampusMeal/kampusmeal-backend/internal/handler/http"
	mongorepo "github.com/KampusMeal/kampusmeal-backend/internal/repository/mongo"
	redisrepo "github.com/KampusMeal/kampusmeal-backend/internal/repository/redis"
	"github.com/KampusMeal/kampusmeal-backend/internal/service"
	"github.com/KampusMeal/kampusmeal-backend/internal/storage/memory"
	"github.com/KampusMeal/kampusmeal-backend/pkg/health"
	pkgkafka "github.com/KampusMeal/kampusmeal-backend/pkg/kafka"
	"github.com/KampusMeal/kampusmeal-backend/pkg/middleware"
)

// App wires together all dependencies and runs the API server.
type App struct {
	cfg         *config.Config
	logger      *slog.Logger
	mongoClient *mongo.Client
	rdb         *redis.Client
	producer    *pkgkafka.Producer
	httpServer  *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// MongoDB client.
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := mongoClient.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	db := mongoClient.Database(cfg.MongoDatabase)
	logger.Info("connected to MongoDB",
		slog.String("database", cfg.MongoDatabase),
	)

	// Redis client for the cart store.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis",
		slog.String("addr", cfg.RedisAddr),
		slog.Int("db", cfg.RedisDB),
	)

	// Kafka producer.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Repositories.
	userRepo := mongorepo.NewUserRepository(db)
	stallRepo := mongorepo.NewStallRepository(db)
	menuRepo := mongorepo.NewMenuRepository(db)
	orderRepo := mongorepo.NewOrderRepository(db)
	reviewRepo := mongorepo.NewReviewRepository(db)
	if err := reviewRepo.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("ensure review indexes: %w", err)
	}
	cartRepo := redisrepo.NewCartRepository(rdb, time.Duration(cfg.CartTTL)*time.Hour)

	// Supporting components.
	store := memory.New(cfg.StorageBaseURL)
	jwtManager := auth.NewJWTManager(
		cfg.JWTSecret,
		time.Duration(cfg.AccessTokenMinutes)*time.Minute,
		time.Duration(cfg.RefreshTokenHours)*time.Hour,
	)
	eventProducer := event.NewProducer(producer, logger)

	// Services.
	authService := service.NewAuthService(userRepo, jwtManager, logger)
	catalogService := service.NewCatalogService(stallRepo, menuRepo, store, logger)
	cartService := service.NewCartService(cartRepo, stallRepo, menuRepo, logger)
	orderService := service.NewOrderService(orderRepo, cartRepo, stallRepo, store, eventProducer,
		service.Fees{AppFee: cfg.AppFee, DeliveryFee: cfg.DeliveryFee}, logger)
	reviewService := service.NewReviewService(reviewRepo, orderRepo, stallRepo, userRepo, eventProducer, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("mongodb", func(ctx context.Context) error {
		return mongoClient.Ping(ctx, readpref.Primary())
	})
	healthHandler.Register("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	healthHandler.Register("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	router := handler.NewRouter(handler.RouterConfig{
		AuthService:    authService,
		CatalogService: catalogService,
		CartService:    cartService,
		OrderService:   orderService,
		ReviewService:  reviewService,
		JWTManager:     jwtManager,
		UserRepo:       userRepo,
		StallRepo:      stallRepo,
		HealthHandler:  healthHandler,
		Logger:         logger,
		CORS: middleware.CORSConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			Environment:    cfg.Environment,
		},
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:         cfg,
		logger:      logger,
		mongoClient: mongoClient,
		rdb:         rdb,
		producer:    producer,
		httpServer:  httpServer,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
	}

	if err := a.rdb.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
	}

	if err := a.mongoClient.Disconnect(shutdownCtx); err != nil {
		a.logger.Error("mongodb disconnect error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}
