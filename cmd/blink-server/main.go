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

	"github.com/redis/go-redis/v9"

	"blink/internal/analytics"
	"blink/internal/api"
	"blink/internal/catalog"
	"blink/internal/config"
	"blink/internal/db"
	"blink/internal/gateway"
	"blink/internal/intent"
	"blink/internal/llm"
	"blink/internal/menu"
	"blink/internal/mqtt"
	"blink/internal/orchestrator"
	"blink/internal/satisfaction"
	"blink/internal/session"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stdout, nil)).Error("load config failed", "error", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Error("load catalog failed", "path", cfg.CatalogPath, "error", err)
		os.Exit(1)
	}
	logger.Info("menu catalog loaded", "path", cfg.CatalogPath, "items", cat.Len(), "categories", len(cat.Categories()))

	validator := menu.NewValidator(cat, menu.Config{
		Threshold:       cfg.MatchThreshold,
		Margin:          cfg.MatchMargin,
		MaxCandidates:   cfg.MatchSuggestions,
		SuggestionFloor: cfg.SuggestionFloor,
	})

	classifier, err := newClassifier(cfg, validator)
	if err != nil {
		logger.Error("init intent classifier failed", "backend", cfg.IntentBackend, "error", err)
		os.Exit(1)
	}
	router := intent.NewRouter(classifier, cfg.RouterTimeout, logger)

	workflow := gateway.NewRetrying(gateway.NewWebhook(map[string]string{
		gateway.ActionGetMenu:       cfg.MenuWebhookURL,
		gateway.ActionLookupPhone:   cfg.PhoneWebhookURL,
		gateway.ActionVerifyAddress: cfg.AddressWebhookURL,
		gateway.ActionPlaceOrder:    cfg.OrderWebhookURL,
		gateway.ActionTrackEvent:    cfg.AnalyticsWebhookURL,
	}, cfg.GatewayTimeout, logger), 200*time.Millisecond, logger)

	var pos gateway.Gateway = gateway.Stub{}
	if cfg.MQTTBrokerURL != "" {
		posGateway := mqtt.NewPOSGateway(mqtt.POSConfig{
			BrokerURL:   cfg.MQTTBrokerURL,
			ClientID:    cfg.MQTTClientID,
			Username:    cfg.MQTTUsername,
			Password:    cfg.MQTTPassword,
			TopicPrefix: cfg.MQTTTopicPrefix,
			StoreID:     cfg.POSStoreID,
			AckTimeout:  cfg.POSAckTimeout,
		}, logger)
		if err := posGateway.Start(ctx); err != nil {
			logger.Error("start pos gateway failed", "error", err)
			os.Exit(1)
		}
		pos = gateway.NewRetrying(posGateway, 200*time.Millisecond, logger)
	} else {
		logger.Info("pos gateway disabled, using stub", "reason", "MQTT_BROKER_URL not set")
	}

	sinks := analytics.Multi{analytics.LogSink{Logger: logger}}
	if cfg.AnalyticsWebhookURL != "" {
		sinks = append(sinks, analytics.NewWebhookSink(workflow))
	}

	var analyticsStore *db.Store
	if cfg.AnalyticsDBDSN != "" {
		analyticsStore, err = db.New(ctx, cfg.AnalyticsDBDSN)
		if err != nil {
			logger.Error("connect analytics db failed", "error", err)
			os.Exit(1)
		}
		defer analyticsStore.Close()
		if err := analyticsStore.Migrate(ctx); err != nil {
			logger.Error("migrate analytics db failed", "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, analytics.NewPostgresSink(analyticsStore))
	}

	if cfg.AnalyticsRedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.AnalyticsRedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Error("connect analytics redis failed", "addr", cfg.AnalyticsRedisAddr, "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, analytics.NewRedisStreamSink(rdb, cfg.AnalyticsRedisStream, 0))
	}

	publisher := analytics.NewPublisher(sinks, cfg.AnalyticsBuffer, cfg.GatewayTimeout, logger)
	publisherDone := make(chan struct{})
	go func() {
		defer close(publisherDone)
		publisher.Run(ctx)
	}()
	logger.Info("analytics publisher enabled",
		"sinks", len(sinks),
		"buffer", cfg.AnalyticsBuffer,
		"postgres", cfg.AnalyticsDBDSN != "",
		"redis", cfg.AnalyticsRedisAddr != "",
	)

	sessions := session.NewStore(cfg.SessionIdleTimeout, logger)
	go sessions.RunJanitor(ctx, cfg.SessionSweepInterval)

	svc := orchestrator.New(orchestrator.Config{
		OverrideConfidence: cfg.OverrideConfidence,
		TurnTimeout:        cfg.TurnTimeout,
		GatewayTimeout:     cfg.GatewayTimeout,
		HistoryLimit:       cfg.HistoryLimit,
	}, sessions, router, validator, cat, workflow, pos, publisher, logger)
	svc.SetSatisfactionScorer(satisfaction.NewAnalyzer())

	var stats api.Analytics
	if analyticsStore != nil {
		stats = analyticsStore
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(svc, stats, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("blink server started", "addr", cfg.HTTPAddr, "intent_backend", cfg.IntentBackend)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("received shutdown signal")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	cancel()
	<-publisherDone
	logger.Info("analytics flushed", "dropped", publisher.Dropped())
}

func newLogger(format string) *slog.Logger {
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func newClassifier(cfg config.ServerConfig, validator *menu.Validator) (intent.Classifier, error) {
	switch cfg.IntentBackend {
	case "http":
		return intent.NewClient(cfg.IntentServiceURL, cfg.RouterTimeout), nil
	case "rules":
		return intent.NewRulesClassifier(validator), nil
	default:
		provider, err := llm.NewProvider(llm.Config{
			Provider:         cfg.LLMProvider,
			Model:            cfg.LLMModel,
			OpenAIBaseURL:    cfg.OpenAIBaseURL,
			OpenAIAPIKey:     cfg.OpenAIAPIKey,
			AnthropicBaseURL: cfg.AnthropicBaseURL,
			AnthropicAPIKey:  cfg.AnthropicAPIKey,
			Timeout:          cfg.RouterTimeout,
			RPS:              cfg.RouterRPS,
			Burst:            cfg.RouterBurst,
		})
		if err != nil {
			return nil, err
		}
		return intent.NewLLMClassifier(provider, cfg.LLMModel), nil
	}
}
