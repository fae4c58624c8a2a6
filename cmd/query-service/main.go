package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/smarthealth/platform/pkg/clinical"
	"github.com/smarthealth/platform/pkg/common/config"
	"github.com/smarthealth/platform/pkg/common/database"
	"github.com/smarthealth/platform/pkg/common/kafka"
	"github.com/smarthealth/platform/pkg/common/logger"
	"github.com/smarthealth/platform/pkg/common/middleware"
	"github.com/smarthealth/platform/pkg/llm"
	"github.com/smarthealth/platform/pkg/observability/metrics"
	"github.com/smarthealth/platform/pkg/query"
	"github.com/smarthealth/platform/pkg/retrieval"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.ConnectPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Cannot start without PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redisClient := database.ConnectRedis(cfg)
	defer database.CloseRedis(redisClient)

	rules, err := llm.LoadRules(cfg.ClassifierRulesPath)
	if err != nil {
		logger.Log.WithError(err).Warn("Classifier rules file unavailable, using defaults")
	}
	classifier := llm.NewClassifier(rules)

	aggregator := clinical.NewAggregator(clinical.NewRepository(db))

	embedder := retrieval.NewHTTPEmbedder(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMEmbeddingModel, cfg.LLMTimeout)
	retriever := retrieval.NewService(embedder, retrieval.NewRepository(db))

	generator := llm.NewService(
		llm.NewHTTPClient(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModelName),
		classifier,
		llm.Options{
			Attempts:           cfg.LLMRetryAttempts,
			Backoff:            cfg.LLMRetryBackoff,
			AttemptTimeout:     cfg.LLMTimeout,
			FallbackConfidence: cfg.FallbackConfidence,
		},
	)

	auditRepo := query.NewAuditRepository(db)
	if err := auditRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Warn("Audit log migration failed")
	}

	service := query.NewService(aggregator, retriever, generator, classifier, query.Options{
		MaxContextTokens: cfg.MaxContextTokens,
		Search: retrieval.SearchOptions{
			TopK:           cfg.RetrievalTopK,
			PerSourceLimit: cfg.RetrievalPerSource,
			MinScore:       cfg.RetrievalMinScore,
			YearsBack:      cfg.RetrievalYearsBack,
		},
	}).
		WithAudit(auditRepo).
		WithSequencer(query.NewRedisSequencer(redisClient))

	var producer *kafka.Producer
	if cfg.KafkaEnabled {
		producer = kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaAuditTopic)
		defer producer.Close()
		service = service.WithEvents(producer)
	}

	router := mux.NewRouter()
	router.Use(middleware.Recovery, middleware.Logging)
	router.HandleFunc("/health", healthCheck).Methods(http.MethodGet)
	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	handler := query.NewHTTPHandler(service, auditRepo, cfg.MaxRequestBody)
	handler.Register(router)

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
		}).Info("Query Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Query Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Query Service stopped")
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
