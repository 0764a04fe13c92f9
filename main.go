package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	config "github.com/DaniDevGS/triven-shop/configs"
	"github.com/DaniDevGS/triven-shop/internal/auth"
	"github.com/DaniDevGS/triven-shop/internal/cart"
	"github.com/DaniDevGS/triven-shop/internal/catalog"
	"github.com/DaniDevGS/triven-shop/internal/db"
	"github.com/DaniDevGS/triven-shop/internal/events"
	"github.com/DaniDevGS/triven-shop/internal/exchange"
	"github.com/DaniDevGS/triven-shop/internal/handlers"
	"github.com/DaniDevGS/triven-shop/internal/logkey"
	"github.com/DaniDevGS/triven-shop/internal/middleware"
	"github.com/DaniDevGS/triven-shop/internal/notifier"
	"github.com/DaniDevGS/triven-shop/internal/orders"
	"github.com/DaniDevGS/triven-shop/internal/session"
	"github.com/DaniDevGS/triven-shop/internal/uploads"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	config.LoadEnv()
	appCfg := config.LoadAppConfig()

	if os.Getenv("GIN_MODE") == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── database ──
	if err := db.Init(config.LoadDBConfig()); err != nil {
		slog.Error("database init failed", slog.String(logkey.ERROR, err.Error()))
		os.Exit(1)
	}

	// ── session state ──
	var sessions session.Store = session.NewMemoryStore()
	if appCfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: appCfg.RedisAddr, Password: appCfg.RedisPassword})
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Error("redis unreachable", slog.String(logkey.ERROR, err.Error()))
			os.Exit(1)
		}
		defer rdb.Close()
		sessions = session.NewRedisStore(rdb, appCfg.SessionTTL)
	}

	// ── exchange rate ──
	var rates exchange.RateProvider = exchange.Unavailable
	if exCfg := config.LoadExchangeConfig(); exCfg.URL != "" {
		rates = exchange.NewHTTPProvider(exCfg.URL, exCfg.Field, exCfg.TTL)
	}

	// ── notifications ──
	var publisher events.Publisher = events.Nop{}
	if kafkaCfg := config.LoadKafkaConfig(); len(kafkaCfg.Brokers) > 0 {
		kp, err := events.NewKafkaPublisher(kafkaCfg)
		if err != nil {
			slog.Error("kafka init failed", slog.String(logkey.ERROR, err.Error()))
			os.Exit(1)
		}
		publisher = kp
	}
	defer publisher.Close()

	var mailer notifier.Mailer
	if sender, err := notifier.NewEmailSender(ctx, config.LoadEmailConfig()); err != nil {
		slog.Warn("order e-mails disabled", slog.String(logkey.ERROR, err.Error()))
	} else {
		mailer = sender
	}

	var alerter notifier.ManagerAlerter
	if atCfg := config.LoadAfricaTalkingConfig(); atCfg.APIKey != "" && atCfg.ManagerPhone != "" {
		alerter = notifier.NewSMSSender(atCfg)
	}

	dispatcher := notifier.NewDispatcher(mailer, alerter, publisher)

	// ── services ──
	store := uploads.NewStore(appCfg.UploadDir)
	products := catalog.NewService(db.DB, store, rates)

	authService := auth.NewService(db.DB, sessions, appCfg.ManagerUsernames)
	if oidcCfg := config.LoadOIDCConfig(); oidcCfg.Issuer != "" {
		if err := authService.EnableOIDC(ctx, oidcCfg); err != nil {
			slog.Error("OIDC init failed", slog.String(logkey.ERROR, err.Error()))
			os.Exit(1)
		}
	}

	var limiter *middleware.RateLimiter
	if appCfg.RateLimitRPS > 0 {
		limiter = middleware.NewRateLimiter(appCfg.RateLimitRPS, appCfg.RateLimitBurst)
	}

	r := handlers.API(handlers.Deps{
		Auth:           authService,
		Catalog:        products,
		Cart:           cart.NewService(products, rates),
		Orders:         orders.NewService(db.DB, store),
		Sessions:       sessions,
		Notifier:       dispatcher,
		Uploads:        store,
		SessionSecret:  appCfg.SessionSecret,
		WhatsAppNumber: appCfg.WhatsAppNumber,
		CORSOrigins:    appCfg.CORSOrigins,
		RateLimiter:    limiter,
	})

	// ── serve ──
	srv := &http.Server{Addr: appCfg.Addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		slog.Info("storefront listening", slog.String("addr", appCfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", slog.String(logkey.ERROR, err.Error()))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", slog.String(logkey.ERROR, err.Error()))
	}
	dispatcher.Wait()
}
