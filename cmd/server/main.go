package main // Entry point package

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/library-circulation/internal/config"
	"github.com/iliyamo/library-circulation/internal/database"
	"github.com/iliyamo/library-circulation/internal/handler"
	"github.com/iliyamo/library-circulation/internal/inmemory"
	"github.com/iliyamo/library-circulation/internal/middleware"
	"github.com/iliyamo/library-circulation/internal/model"
	"github.com/iliyamo/library-circulation/internal/queue"
	"github.com/iliyamo/library-circulation/internal/repository"
	"github.com/iliyamo/library-circulation/internal/router"
	"github.com/iliyamo/library-circulation/internal/service"
	"github.com/iliyamo/library-circulation/internal/store"
	"github.com/iliyamo/library-circulation/internal/utils"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}
	cfg := config.Load() // Load environment config

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.Env)}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(cfg)
	if err != nil {
		logger.Error("open store", "driver", cfg.StorageDriver, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	// Redis is optional; without it rate limiting and caching are off.
	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		logger.Warn("redis unavailable; rate limiting and response cache disabled")
	} else {
		defer func() { _ = rdb.Close() }()
	}

	amqpCfg := config.LoadAMQPConfig()
	var pub service.Publisher
	if amqpCfg.PublishEnabled {
		pub = queue.NewPublisher(amqpCfg.URL, amqpCfg.Queue, logger)
	}
	if amqpCfg.ConsumerEnabled {
		consumer := queue.NewConsumer(amqpCfg.URL, amqpCfg.Queue, amqpCfg.LogDir, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("event consumer stopped", "err", err)
			}
		}()
	}

	svc := service.New(st, pub, service.Options{
		FinePerDay:      cfg.FinePerDay,
		BulkConcurrency: cfg.BulkConcurrency,
		Logger:          logger,
	})

	if err := ensureAdmin(ctx, st, cfg); err != nil {
		logger.Error("bootstrap admin", "err", err)
		os.Exit(1)
	}

	e := echo.New()
	e.HideBanner = true
	e.JSONSerializer = utils.JSONSerializer{}
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(logger))

	cacheCfg := config.LoadCacheConfig()
	mws := router.Middlewares{
		JWTSecret:       cfg.JWTSecret,
		RateLimit:       middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		Cache:           middleware.NewRedisCache(cacheCfg, rdb),
		CacheInvalidate: middleware.NewCacheInvalidator(cacheCfg, rdb),
	}
	books := handler.NewBookHandler(svc.Inventory)
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, st), mws)
	router.RegisterLibrary(e, books,
		handler.NewMembershipHandler(svc.Memberships, svc.Quota),
		handler.NewWaitlistHandler(svc.Waitlist), mws)
	router.RegisterCirculation(e,
		handler.NewIssueRequestHandler(svc.IssueRequests, svc.Bulk),
		handler.NewLoanHandler(svc.Loans), books, mws)

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", "addr", addr, "env", cfg.Env, "storage", cfg.StorageDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "err", err)
	}
	logger.Info("stopped")
}

func logLevel(env string) slog.Level {
	if env == "dev" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// openStore returns the configured store and a function releasing it.
func openStore(cfg config.Config) (store.Store, func(), error) {
	if cfg.StorageDriver == config.DriverMemory {
		st, err := inmemory.New()
		if err != nil {
			return nil, nil, err
		}
		return st, func() {}, nil
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, nil, err
	}
	if cfg.MigrateOnStart {
		if err := database.Migrate(db, cfg.DBName); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
	}
	return repository.NewStore(db), func() { _ = db.Close() }, nil
}

// ensureAdmin creates the ADMIN_EMAIL account on first start. An existing
// account is left untouched.
func ensureAdmin(ctx context.Context, accounts store.Accounts, cfg config.Config) error {
	if cfg.AdminEmail == "" {
		return nil
	}
	if _, err := accounts.GetUserByEmail(ctx, cfg.AdminEmail); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if len(cfg.AdminPassword) < utils.MinPasswordLen {
		return fmt.Errorf("ADMIN_PASSWORD must be at least %d characters", utils.MinPasswordLen)
	}
	hash, err := utils.HashPassword(cfg.AdminPassword, cfg.BcryptCost)
	if err != nil {
		return err
	}
	u := model.User{Email: cfg.AdminEmail, PasswordHash: hash, Role: model.RoleAdmin, IsActive: true}
	if err := accounts.CreateUser(ctx, &u); err != nil && !errors.Is(err, store.ErrDuplicate) {
		return err
	}
	slog.Info("admin account created", "email", u.Email, "user_id", u.ID)
	return nil
}
