package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mashura/salesbridge/appctx"
	"github.com/mashura/salesbridge/config"
	"github.com/mashura/salesbridge/locations"
	"github.com/mashura/salesbridge/sap"
	"github.com/mashura/salesbridge/shopify"
	"github.com/mashura/salesbridge/syncservice"
	"github.com/mashura/salesbridge/tracking"
)

func main() {
	logger := config.GetLogger()

	settings, err := config.GetSettings()
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "settings"}).Fatal(err)
	}

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	mapping, err := locations.LoadMapping(settings.LocationMappingFile)
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "locations"}).Fatal(err)
	}
	resolver := locations.NewResolver(mapping, logger)

	storefront, err := shopify.NewClient(settings.ShopDomain, settings.ShopAccessToken, settings.ShopAPIVersion, logger)
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "shopify"}).Fatal(err)
	}

	ledger, err := sap.NewClient(settings.LedgerBaseURL, settings.LedgerCompanyDB, settings.LedgerUsername, settings.LedgerPassword, logger)
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "sap"}).Fatal(err)
	}
	defer ledger.Logout(context.Background())

	trackingStore, err := tracking.Open(settings.TrackingFile)
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "tracking"}).Fatal(err)
	}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(appctx.Set(c.Request.Context(), appctx.ContextKeyCorrelationId, cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		c.Next()
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length")
	corsConfig.AllowCredentials = true

	r.Use(cors.New(corsConfig))
	r.Use(requestLogger(logger))
	r.Use(gin.Recovery())

	// Wiring happens after the server starts listening (Cloud Run wants the
	// port open fast), so the runner is assembled lazily below and handlers
	// read it through the holder's atomic pointer.
	var holder syncservice.RunnerHolder

	r.GET("/api/sync/status", syncservice.StatusHandler())
	r.POST("/api/sync/trigger", holder.Wrap(syncservice.TriggerSyncHandler))
	r.GET("/api/sync/runs", syncservice.SyncHistoryHandler())
	r.GET("/api/sync/runs/:id", syncservice.SyncRunDetailHandler())
	r.POST("/api/sync/runs/:id/retry", holder.Wrap(syncservice.RetrySyncRunHandler))

	// Pub/Sub push endpoint for async triggers.
	r.POST("/pubsub/sales-sync", holder.Wrap(syncservice.PubSubPushHandler))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	srv := &http.Server{
		Addr:    ":" + settings.Port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()

	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		if err := syncservice.AutoMigrate(db); err != nil {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Error(err)
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	states := syncservice.NewGormStateStore(db)
	orch := syncservice.NewOrchestrator(storefront, ledger, states, trackingStore, resolver, logger)
	runner := syncservice.NewRunner(orch, storefront, trackingStore, db, settings, logger)
	holder.Set(runner)

	go runner.Start(sigCtx)

	select {
	case <-sigCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	case err := <-serverErrCh:
		if err != nil && err != http.ErrServerClosed {
			logger.WithFields(logrus.Fields{"field": "server"}).Error(err)
		}
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		cid, _ := appctx.GetString(c.Request.Context(), appctx.ContextKeyCorrelationId)
		logger.WithFields(logrus.Fields{
			"status":         c.Writer.Status(),
			"method":         c.Request.Method,
			"path":           c.Request.URL.Path,
			"latency":        latency.String(),
			"correlation_id": cid,
		}).Info("request")
	}
}
