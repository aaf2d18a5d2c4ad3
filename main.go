package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/config"
	"github.com/yeremiapane/restaurant-pos/events"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/policy"
	"github.com/yeremiapane/restaurant-pos/router"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/telemetry"
	"github.com/yeremiapane/restaurant-pos/utils"
)

func main() {
	utils.InitLogger()

	cfg, err := config.Load()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to load config: %v", err)
	}
	utils.InitLoggerWithLevel(cfg.LogLevel)
	utils.SetJWTSecret(cfg.JWTSecret)
	if cfg.JWTSecret == "" {
		utils.ErrorLogger.Warn("JWT_SECRET is not set, using the built-in development key")
	}
	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "restaurant-pos", cfg.OTELEndpoint)
	if err != nil {
		utils.ErrorLogger.Warnf("Tracing disabled: %v", err)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	autoMigrate(db)

	hub := kds.NewHub()
	notifiers := events.Multi{hub}
	if cfg.AMQPURL != "" {
		publisher, err := events.DialAMQP(cfg.AMQPURL, utils.ErrorLogger)
		if err != nil {
			utils.ErrorLogger.Warnf("AMQP publishing disabled: %v", err)
		} else {
			defer publisher.Close()
			notifiers = append(notifiers, publisher)
			utils.InfoLogger.Infof("Publishing events to exchange %s", events.Exchange)
		}
	}

	loyalty := services.NewLoyaltyService(db, notifiers, cfg.PointsUnit)
	deps := router.Deps{
		DB:             db,
		Policy:         policy.Default(),
		Hub:            hub,
		Tables:         services.NewTableService(db, notifiers, cfg.TableNamePrefix),
		Catalog:        services.NewCatalogService(db, notifiers),
		Orders:         services.NewOrderService(db, notifiers, loyalty, services.NewPricing(cfg.TaxRate)),
		Loyalty:        loyalty,
		CORSOrigins:    cfg.CORSOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}
	r := router.SetupRouter(deps)
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		utils.ErrorLogger.Warnf("Trusted proxies: %v", err)
	}

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		utils.InfoLogger.Infof("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatal(err)
		}
	}()

	<-ctx.Done()
	utils.InfoLogger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownWait)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.ErrorLogger.Errorf("Server shutdown: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		utils.ErrorLogger.Errorf("Tracing shutdown: %v", err)
	}
}

func autoMigrate(db *gorm.DB) {
	if err := db.AutoMigrate(models.All()...); err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
}
