// Command quoteserver boots the freight-rate quoting engine: it wires
// every catalog source, cache tier, and event bus, then serves the
// gorilla/mux hot path and the gin admin surface side by side, mirroring
// the two-server layout of the teacher's offer_management_engine/main.go.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/redis/go-redis/v9"

	"github.com/iaros/freightquote/internal/carrier"
	"github.com/iaros/freightquote/internal/config"
	"github.com/iaros/freightquote/internal/distance"
	"github.com/iaros/freightquote/internal/events"
	"github.com/iaros/freightquote/internal/geo"
	"github.com/iaros/freightquote/internal/httpapi"
	"github.com/iaros/freightquote/internal/logging"
	"github.com/iaros/freightquote/internal/metrics"
	"github.com/iaros/freightquote/internal/quote"
	"github.com/iaros/freightquote/internal/zone"
)

func main() {
	configPath := flag.String("config", os.Getenv("FREIGHTQUOTE_CONFIG"), "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	log := logging.New(logging.Config{
		Level:       os.Getenv("FREIGHTQUOTE_LOG_LEVEL"),
		Service:     "quoteserver",
		Environment: os.Getenv("FREIGHTQUOTE_ENV"),
	})
	defer log.Sync()

	secretResolver, err := config.NewSecretResolver(cfg.Vault.Address, "secret/data/freightquote", log)
	if err != nil {
		log.Warn("vault resolver unavailable, continuing on environment secrets", zap.Error(err))
	}
	if secretResolver != nil {
		if key, ok := secretResolver.Resolve(context.Background(), cfg.Distance.APIKeyEnv); ok {
			os.Setenv(cfg.Distance.APIKeyEnv, key)
		}
	}

	zones, err := zone.Load(cfg.Catalog.ZoneFile)
	if err != nil {
		log.Fatal("failed to load pincode zone index", zap.Error(err))
	}
	centroids, err := geo.Load(cfg.Catalog.CentroidFile)
	if err != nil {
		log.Fatal("failed to load pincode centroid index", zap.Error(err))
	}

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		log.Fatal("failed to connect to mongo", zap.Error(err))
	}
	defer mongoClient.Disconnect(context.Background())
	mongoDB := mongoClient.Database(cfg.Mongo.Database)
	dbSource := carrier.NewDBCarrierSource(mongoDB, log)

	var auditStore *carrier.AuditStore
	if err := carrier.MigrateAuditSchema(cfg.Postgres.DSN); err != nil {
		log.Warn("carrier audit schema migration failed, audit trail disabled", zap.Error(err))
	} else if pg, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{}); err != nil {
		log.Warn("failed to connect to postgres, carrier audit trail disabled", zap.Error(err))
	} else {
		auditStore = carrier.NewAuditStore(pg)
	}

	registry := carrier.NewRegistry(cfg.Catalog.UTSFDir, zones, log)
	if err := registry.Reload(); err != nil {
		log.Fatal("initial UTSF catalog load failed", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	cacheTTL := time.Duration(cfg.Quote.CacheTTLSeconds) * time.Second
	resultCache := quote.NewResultCache(rdb, cacheTTL, log)

	invalidationBus, err := events.NewInvalidationBus(cfg.NATS.URL, cfg.NATS.Subject, log)
	if err != nil {
		log.Warn("NATS invalidation bus unavailable, cache flushes stay local-only", zap.Error(err))
	}
	defer invalidationBus.Close()
	if invalidationBus != nil {
		unsubscribe, err := invalidationBus.Subscribe(func(msg events.InvalidationMessage) {
			resultCache.InvalidateAll(context.Background())
		})
		if err != nil {
			log.Warn("failed to subscribe to invalidation subject", zap.Error(err))
		} else {
			defer unsubscribe()
		}
	}

	anomalyStream := events.NewAnomalyStream(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
	defer anomalyStream.Close()

	distanceClient := distance.New(distance.Config{
		BaseURL: cfg.Distance.BaseURL,
		APIKey:  cfg.DistanceAPIKey(),
		Timeout: time.Duration(cfg.Distance.TimeoutMS) * time.Millisecond,
	}, log)

	collectors := metrics.New()

	engine := &quote.Engine{
		Zones:        zones,
		Centroids:    centroids,
		Registry:     registry,
		DBSource:     dbSource,
		Distance:     distanceClient,
		Cache:        resultCache,
		Invalidation: invalidationBus,
		Anomalies:    anomalyStream,
		BatchSize:    cfg.Quote.CarrierBatchSize,
		Metrics:      collectors,
		Log:          log,
	}

	reloadSchedule := cron.New()
	if _, err := reloadSchedule.AddFunc(cfg.Catalog.ReloadCron, func() {
		if err := registry.Reload(); err != nil {
			log.Warn("scheduled UTSF catalog reload failed", zap.Error(err))
			return
		}
		resultCache.InvalidateAll(context.Background())
		invalidationBus.PublishInvalidation("scheduled_reload", "")
	}); err != nil {
		log.Warn("failed to register catalog reload schedule", zap.Error(err))
	}
	reloadSchedule.Start()
	defer reloadSchedule.Stop()

	hotPath := &httpapi.HotPathController{Engine: engine, Metrics: collectors, Log: log}
	admin := &httpapi.AdminRouter{
		Registry:     registry,
		AuditStore:   auditStore,
		Cache:        resultCache,
		Invalidation: invalidationBus,
		Log:          log,
	}

	hotPathServer := &http.Server{Addr: cfg.HTTP.HotPathAddr, Handler: hotPath.Router()}
	adminServer := &http.Server{Addr: cfg.HTTP.AdminAddr, Handler: admin.Router()}

	go func() {
		log.Info("starting hot-path server", zap.String("addr", cfg.HTTP.HotPathAddr))
		if err := hotPathServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("hot-path server failed", zap.Error(err))
		}
	}()
	go func() {
		log.Info("starting admin server", zap.String("addr", cfg.HTTP.AdminAddr))
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("admin server failed", zap.Error(err))
		}
	}()

	quitCh := make(chan os.Signal, 1)
	signal.Notify(quitCh, syscall.SIGINT, syscall.SIGTERM)
	<-quitCh

	log.Info("shutting down quoteserver")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := hotPathServer.Shutdown(ctx); err != nil {
		log.Warn("hot-path server shutdown error", zap.Error(err))
	}
	if err := adminServer.Shutdown(ctx); err != nil {
		log.Warn("admin server shutdown error", zap.Error(err))
	}
	log.Info("quoteserver exited")
}
