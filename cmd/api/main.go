package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redisclient "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/eventgate/booking-core/internal/adapters/crdb"
	mongoadapter "github.com/eventgate/booking-core/internal/adapters/mongo"
	redisadapter "github.com/eventgate/booking-core/internal/adapters/redis"
	"github.com/eventgate/booking-core/internal/booking"
	"github.com/eventgate/booking-core/internal/config"
	"github.com/eventgate/booking-core/internal/gateway"
	httphandler "github.com/eventgate/booking-core/internal/http"
	"github.com/eventgate/booking-core/internal/idempotency"
	"github.com/eventgate/booking-core/internal/observability"
	"github.com/eventgate/booking-core/internal/rateLimit"
	"github.com/eventgate/booking-core/internal/settlement"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()
	repo := crdb.NewRepository(pool)

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	mongoDB := mongoClient.Database("bookingcore")
	catalog := mongoadapter.NewCatalogRepository(mongoDB, logger)
	audit := mongoadapter.NewAuditLogger(mongoDB, logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	cache := redisadapter.NewCache(redisClient)
	idemp := idempotency.NewIdempotency(redisadapter.NewIdempotency(redisClient), time.Hour)
	rl := rateLimit.NewRateLimiter(cache)

	gw := gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewayClientID, cfg.GatewayClientSecret, logger)

	bookings := booking.NewService(repo, catalog, gw, cfg.ReturnURLBase, logger)
	engine := settlement.NewEngine(repo, catalog, gw, cache, audit, cfg.PlatformAdminID, logger)

	handlers := httphandler.NewHandlers(cfg, repo, bookings, engine, idemp, audit, logger)
	r := httphandler.SetupRouter(handlers, logger, rl, idemp)

	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}
