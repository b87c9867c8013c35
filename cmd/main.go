package main

import (
	"context"
	"fmt"
	"log" // Using standard log for early errors before zap is set up
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AK-GUPTA-20/blog-backend/internal/config"
	"github.com/AK-GUPTA-20/blog-backend/internal/database"
	"github.com/AK-GUPTA-20/blog-backend/internal/handlers"
	"github.com/AK-GUPTA-20/blog-backend/internal/mailer"
	"github.com/AK-GUPTA-20/blog-backend/internal/middleware"
	"github.com/AK-GUPTA-20/blog-backend/internal/repository"
	"github.com/AK-GUPTA-20/blog-backend/internal/routes"
	"github.com/AK-GUPTA-20/blog-backend/internal/server"
	"github.com/AK-GUPTA-20/blog-backend/internal/services"
	"github.com/AK-GUPTA-20/blog-backend/internal/storage"
	"github.com/AK-GUPTA-20/blog-backend/internal/token"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables:", err)
	}

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var logger *zap.Logger
	if cfg.IsProduction() {
		logger, _ = zap.NewProduction()
	} else {
		logger, _ = zap.NewDevelopment()
	}
	defer func() {
		_ = logger.Sync()
	}()
	sugar := logger.Sugar()
	sugar.Infof("Starting blog-backend in %s environment on port %d", cfg.App.Env, cfg.App.Port)

	db, mongoClient, err := database.ConnectMongo(cfg.Mongo.URI, cfg.Mongo.Database, sugar)
	if err != nil {
		sugar.Fatal(err)
	}
	rdb, err := database.ConnectRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, sugar)
	if err != nil {
		sugar.Fatal(err)
	}

	mail := mailer.NewBrevoClient(cfg.Brevo.APIKey, cfg.Brevo.FromEmail, cfg.Brevo.FromName)
	if !mail.IsConfigured() {
		sugar.Warn("Brevo client not fully configured. Email delivery will fail.")
	} else {
		sugar.Info("Brevo client configured.")
	}

	images, err := storage.NewS3Store(context.Background(), cfg.AWS.Region, cfg.AWS.Bucket, cfg.AWS.Endpoint, cfg.AWS.PublicRead)
	if err != nil {
		sugar.Fatalf("failed to initialize S3 storage: %v", err)
	}

	userRepo := repository.NewMongoUserRepo(db)
	postRepo := repository.NewMongoPostRepo(db)
	tokens := token.NewManager(cfg.App.JWT.Secret, cfg.App.JWT.ExpireDays)

	authSvc := services.NewAuthService(userRepo, tokens, mail, images, cfg, logger)
	postSvc := services.NewPostService(postRepo, userRepo, logger)

	cookieOpts := handlers.CookieOptions{
		Production: cfg.IsProduction(),
		ExpireDays: cfg.App.JWT.CookieExpireDays,
	}
	authHandler := handlers.NewAuthHandler(authSvc, cookieOpts, logger)
	postHandler := handlers.NewPostHandler(postSvc, logger)

	window := time.Duration(cfg.Security.RateLimitWindowMins) * time.Minute
	apiLimiter := middleware.NewRateLimiter(rdb, "rl:api", cfg.Security.APIRateLimit, window,
		"Too many requests. Please try again later.").ByIP()
	authLimiter := middleware.NewRateLimiter(rdb, "rl:auth", cfg.Security.AuthRateLimit, window,
		"Too many authentication attempts. Please try again later.").ByIP()

	app := server.New(cfg, logger)
	routes.Setup(app, authHandler, postHandler, middleware.RequireAuth(tokens, userRepo), apiLimiter, authLimiter)

	go func() {
		listenAddr := fmt.Sprintf(":%d", cfg.App.Port)
		sugar.Infof("Server listening on %s", listenAddr)
		if err := app.Listen(listenAddr); err != nil {
			sugar.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	sugar.Info("Shutting down server...")

	ctxShut, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()

	if err := app.ShutdownWithContext(ctxShut); err != nil {
		sugar.Errorf("Fiber app shutdown error: %v", err)
	}
	if err := mongoClient.Disconnect(ctxShut); err != nil {
		sugar.Errorf("MongoDB disconnect error: %v", err)
	}
	if err := rdb.Close(); err != nil {
		sugar.Errorf("Redis client close error: %v", err)
	}

	sugar.Info("Graceful shutdown complete.")
}
