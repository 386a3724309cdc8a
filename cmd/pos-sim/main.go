// Command pos-sim stands in for a store's point-of-sale terminal: it answers
// orders published by blink-server over MQTT and shows what it received.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"blink/internal/catalog"
	"blink/internal/config"
	"blink/internal/mqtt"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.LoadPOSSimConfig()
	if err != nil {
		logger.Error("load config failed", "error", err)
		os.Exit(1)
	}

	var known []string
	if cfg.CatalogPath != "" {
		cat, err := catalog.Load(cfg.CatalogPath)
		if err != nil {
			logger.Error("load catalog failed", "path", cfg.CatalogPath, "error", err)
			os.Exit(1)
		}
		for _, item := range cat.Entries() {
			known = append(known, item.Name)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sim := mqtt.NewSimulator(mqtt.SimulatorConfig{
		BrokerURL:   cfg.MQTTBrokerURL,
		ClientID:    cfg.MQTTClientID,
		Username:    cfg.MQTTUsername,
		Password:    cfg.MQTTPassword,
		TopicPrefix: cfg.MQTTTopicPrefix,
		StoreID:     cfg.POSStoreID,
		Known:       known,
		MaxTotal:    cfg.MaxTotal,
	}, logger)
	if err := sim.Start(ctx); err != nil {
		logger.Error("start pos simulator failed", "error", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Get("/orders", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"store_id": cfg.POSStoreID, "orders": sim.Orders()})
	})
	r.Post("/online", func(w http.ResponseWriter, _ *http.Request) {
		setOnline(w, sim, true)
	})
	r.Post("/offline", func(w http.ResponseWriter, _ *http.Request) {
		setOnline(w, sim, false)
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("pos simulator started", "addr", cfg.HTTPAddr, "store_id", cfg.POSStoreID, "known_items", len(known))
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
		logger.Error("pos simulator shutdown failed", "error", err)
	}
}

func setOnline(w http.ResponseWriter, sim *mqtt.Simulator, online bool) {
	if err := sim.SetOnline(online); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "online": online})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
