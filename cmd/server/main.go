package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/iliyamo/smartfix/internal/booking"
	"github.com/iliyamo/smartfix/internal/config"
	"github.com/iliyamo/smartfix/internal/database"
	"github.com/iliyamo/smartfix/internal/handler"
	"github.com/iliyamo/smartfix/internal/inventory"
	"github.com/iliyamo/smartfix/internal/logger"
	"github.com/iliyamo/smartfix/internal/metrics"
	"github.com/iliyamo/smartfix/internal/middleware"
	"github.com/iliyamo/smartfix/internal/pos"
	"github.com/iliyamo/smartfix/internal/profile"
	"github.com/iliyamo/smartfix/internal/queue"
	"github.com/iliyamo/smartfix/internal/repository"
	"github.com/iliyamo/smartfix/internal/router"
	queue_publisher "github.com/iliyamo/smartfix/internal/service"
	"github.com/iliyamo/smartfix/internal/zipcode"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	rdb := config.NewRedisClient(ctx, config.LoadRedisConfig())
	if rdb == nil {
		log.Warn("redis unavailable: caching and rate limiting disabled, carts kept in memory")
	} else {
		defer rdb.Close()
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	cacheCfg := config.LoadCacheConfig()
	rlCfg := config.LoadRateLimitConfig()

	// repositories
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	customers := repository.NewCustomerRepo(db)
	bookings := repository.NewBookingRepo(db)
	records := repository.NewCustomerRecordsRepo(db)
	catalog := repository.NewCatalogRepo(db)
	support := repository.NewSupportRepo(db)
	stock := repository.NewInventoryRepo(db)
	sales := repository.NewSaleRepo(db)

	publisher := queue_publisher.New(cfg.RabbitURL, log)
	consumer := queue.NewConsumer(cfg.RabbitURL, records, records, log)
	go func() {
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("event consumer stopped", zap.Error(err))
		}
	}()

	go purgeTokens(ctx, tokens, log)

	// services
	bookingSvc := booking.NewService(bookings, customers, catalog, publisher, log, m)
	posSvc := pos.NewService(pos.NewStore(rdb, cfg.POS.CartTTL), sales, bookings, stock, publisher, cfg.POS, log, m)
	inventorySvc := inventory.NewService(stock, log)
	loader := profile.NewLoader(customers, bookings, records, support, catalog, cfg.Profile.LoadTimeout, log, m)
	zip := zipcode.New(cfg.Zip, rdb, log)

	invalidate := handler.CacheInvalidator(func(ctx context.Context) error {
		return middleware.InvalidateCache(ctx, rdb, cacheCfg.Prefix)
	})

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(logger.RequestLogger(log))
	e.Use(m.Middleware())
	e.Use(middleware.NewRateLimiter(rlCfg, rdb, log))

	publicCache := middleware.NewRedisCache(cacheCfg, rdb)
	dashboardCache := middleware.NewRedisCache(cacheCfg.WithTTL(cacheCfg.DashboardTTL), rdb)
	writeLimit := middleware.NewWriteLimiter(rlCfg, rdb, log)

	staff := handler.NewStaffHandler(bookings, support, customers, sales, stock, invalidate, log)
	router.RegisterRoutes(e, handler.Ready(db, rdb))
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens, log), cfg.JWTSecret, writeLimit)
	router.RegisterPublic(e,
		handler.NewPublicHandler(catalog, zip, bookings, log),
		handler.NewBookingHandler(bookingSvc, invalidate, log),
		staff, cfg.JWTSecret, publicCache, writeLimit)
	router.RegisterCustomer(e, handler.NewProfileHandler(loader, users, log), cfg.JWTSecret)
	router.RegisterStaff(e, staff, cfg.JWTSecret, dashboardCache)
	router.RegisterPOS(e, handler.NewPOSHandler(posSvc, invalidate, log), cfg.JWTSecret)
	router.RegisterInventory(e, handler.NewInventoryHandler(inventorySvc, invalidate, log), cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}

// purgeTokens drops refresh tokens that expired more than a day ago, once at
// startup and then every six hours.
func purgeTokens(ctx context.Context, tokens *repository.TokenRepo, log *zap.Logger) {
	t := time.NewTicker(6 * time.Hour)
	defer t.Stop()
	for {
		n, err := tokens.PurgeExpired(ctx, time.Now().Add(-24*time.Hour))
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("refresh token purge failed", zap.Error(err))
		} else if n > 0 {
			log.Info("purged expired refresh tokens", zap.Int64("rows", n))
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
