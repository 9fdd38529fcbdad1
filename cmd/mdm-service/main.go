package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/auscare-mdm/platform/pkg/cache"
	"github.com/auscare-mdm/platform/pkg/common/config"
	"github.com/auscare-mdm/platform/pkg/common/database"
	"github.com/auscare-mdm/platform/pkg/common/kafka"
	"github.com/auscare-mdm/platform/pkg/common/logger"
	"github.com/auscare-mdm/platform/pkg/common/models"
	"github.com/auscare-mdm/platform/pkg/fields"
	"github.com/auscare-mdm/platform/pkg/golden"
	"github.com/auscare-mdm/platform/pkg/matching"
	"github.com/auscare-mdm/platform/pkg/observability/metrics"
	"github.com/auscare-mdm/platform/pkg/oracle"
	"github.com/auscare-mdm/platform/pkg/quality"
	"github.com/auscare-mdm/platform/pkg/source"
	"github.com/auscare-mdm/platform/pkg/stewardship"
	"github.com/gorilla/mux"
)

func main() {
	logger.Init()
	metrics.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	goldenRepo := golden.NewRepository(db, cfg.GoldenTable)
	if err := goldenRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate golden record tables")
	}

	catalog, err := fields.Load(cfg.FieldCatalogPath)
	if err != nil {
		logger.Log.WithError(err).Warn("falling back to default field catalog")
		catalog = fields.DefaultCatalog()
	}

	resultCache := cache.New(cfg.CacheTTL)
	snapshots := cache.NewSnapshotStore(database.GetRedis(), "mdm:snapshot:")

	oracleClient := oracle.NewLLMClient(cfg.OracleAPIKey, cfg.OracleBaseURL, cfg.OracleModelName, cfg.OracleTimeout)

	producer := kafka.NewProducer(cfg.GoldenOutputTopic)
	defer producer.Close()

	decisionProducer := kafka.NewProducer(cfg.DecisionTopic)
	defer decisionProducer.Close()

	var dlq *kafka.Producer
	if cfg.DLQTopic != "" {
		dlq = kafka.NewProducer(cfg.DLQTopic)
		defer dlq.Close()
	}

	sourceRepo := source.NewRepository(db, cfg.SourceTable)
	sourceSvc := source.NewService(sourceRepo, resultCache, snapshots)

	scorer := quality.NewScorer(oracleClient)
	qualitySvc := quality.NewService(sourceSvc, scorer, resultCache, snapshots, cfg.SourceTable)

	matcher := matching.NewMatcher(oracleClient, cfg.RetainThreshold, cfg.HighlightThreshold, cfg.MatcherMaxRecords)
	matchingSvc := matching.NewService(sourceSvc, matcher, resultCache, snapshots, cfg.SourceTable)

	builder := golden.NewBuilder(oracleClient, catalog)
	var dlqPublisher golden.EventPublisher
	if dlq != nil {
		dlqPublisher = dlq
	}
	goldenSvc := golden.NewService(sourceSvc, matchingSvc, builder, goldenRepo, producer, dlqPublisher)

	workflow := stewardship.NewWorkflow(goldenRepo, catalog, decisionProducer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Source table changes upstream invalidate every cached pass.
	consumer := kafka.NewConsumer(cfg.SourceUpdatedTopic, "mdm-service")
	defer consumer.Close()
	go func() {
		err := consumer.Consume(ctx, func(ctx context.Context, event models.Event) error {
			logger.Log.WithField("event_id", event.ID).Info("source table updated, invalidating result cache")
			resultCache.InvalidateAll()
			return nil
		})
		if err != nil && ctx.Err() == nil {
			logger.Log.WithError(err).Error("source-updated consumer stopped")
		}
	}()

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.ObserveCache(resultCache.Stats())
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	router.HandleFunc("/api/v1/cache/invalidate", func(w http.ResponseWriter, r *http.Request) {
		resultCache.InvalidateAll()
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodPost)

	source.NewHTTPHandler(sourceSvc).Register(router)
	quality.NewHTTPHandler(qualitySvc).Register(router)
	matching.NewHTTPHandler(matchingSvc).Register(router)
	golden.NewHTTPHandler(goldenSvc).Register(router)
	stewardship.NewHTTPHandler(workflow, cfg.MaxRequestBody).Register(router)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("MDM Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down MDM Service...")
	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	if err := database.ClosePostgres(); err != nil {
		logger.Log.WithError(err).Error("failed to close postgres")
	}
	if err := database.CloseRedis(); err != nil {
		logger.Log.WithError(err).Error("failed to close redis")
	}

	logger.Log.Info("MDM Service stopped")
}
