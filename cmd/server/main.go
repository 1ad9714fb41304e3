package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/todo-backend/internal/config"
	"github.com/AnshRaj112/todo-backend/internal/database"
	"github.com/AnshRaj112/todo-backend/internal/routes"
	"github.com/AnshRaj112/todo-backend/internal/services"
	"github.com/AnshRaj112/todo-backend/internal/store"
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.JWTSecret == config.DefaultJWTSecret {
		log.Println("⚠️  WARNING: JWT_SECRET not set, using the development default. Set it before deploying.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.StoreDriver, err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := stores.Close(closeCtx); err != nil {
			log.Printf("Error closing store: %v", err)
		}
	}()
	log.Printf("✅ Using %s store", cfg.StoreDriver)

	// Redis is optional: without it there is no shared rate limit or account cache, and events stay local.
	var rdb *redis.Client
	if cfg.RedisURI != "" {
		log.Printf("Connecting to Redis...")
		rdb, err = database.ConnectRedis(ctx, cfg.RedisURI)
		if err != nil {
			log.Fatal("Failed to connect to Redis:", err)
		}
		defer rdb.Close()

		stores.Accounts = store.NewCachedAccountStore(stores.Accounts, rdb, store.DefaultAccountCacheTTL)
	} else {
		log.Println("Warning: REDIS_URI not set. Redis rate limiting and cross-instance events are disabled")
	}

	tokens := services.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)

	events := services.NewEventHub(rdb)
	go events.Run(ctx)

	var uploader services.Uploader
	if cfg.CloudinaryEnabled() {
		cs, err := services.NewCloudinaryService(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			log.Printf("Warning: Failed to initialize Cloudinary: %v", err)
			log.Println("File uploads will not be available")
		} else {
			uploader = cs
			log.Println("✅ Cloudinary service initialized")
		}
	} else {
		log.Println("Warning: Cloudinary credentials not found. File uploads will not be available")
	}

	router := routes.NewRouter(routes.Deps{
		Accounts:        stores.Accounts,
		Tasks:           stores.Tasks,
		Tokens:          tokens,
		Events:          events,
		Uploader:        uploader,
		Redis:           rdb,
		AllowedOrigins:  cfg.AllowedOrigins,
		Production:      cfg.IsProduction(),
		RateLimitMax:    cfg.RateLimitMax,
		RateLimitWindow: cfg.RateLimitWindow,
	})
	if cfg.IsProduction() {
		log.Println("✅ Production security enabled (security headers, per-IP + auth rate limiting)")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Printf("🚀 Todo API running on :%s (env: %s)", cfg.Port, cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
}

func openStores(ctx context.Context, cfg *config.Config) (*store.Stores, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		log.Printf("Connecting to PostgreSQL...")
		db, err := database.ConnectPostgres(ctx, cfg.PostgresURI)
		if err != nil {
			return nil, err
		}
		if err := database.InitPostgresTables(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return store.NewPostgresStores(db), nil

	case config.StoreMongo:
		log.Printf("Connecting to MongoDB: %s", database.MaskMongoURI(cfg.MongoURI))
		client, db, err := database.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureMongoIndexes(ctx, db); err != nil {
			client.Disconnect(context.Background())
			return nil, err
		}
		return store.NewMongoStores(client, db), nil

	default:
		return store.NewMemoryStores(), nil
	}
}
