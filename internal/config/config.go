package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type ServerConfig struct {
	HTTPAddr    string
	LogFormat   string
	CatalogPath string

	IntentBackend      string
	IntentServiceURL   string
	LLMProvider        string
	LLMModel           string
	OpenAIBaseURL      string
	OpenAIAPIKey       string
	AnthropicBaseURL   string
	AnthropicAPIKey    string
	RouterTimeout      time.Duration
	RouterRPS          float64
	RouterBurst        int
	OverrideConfidence float64

	GatewayTimeout time.Duration
	TurnTimeout    time.Duration

	SessionIdleTimeout   time.Duration
	SessionSweepInterval time.Duration
	HistoryLimit         int

	MatchThreshold   float64
	MatchMargin      float64
	MatchSuggestions int
	SuggestionFloor  float64

	MenuWebhookURL      string
	PhoneWebhookURL     string
	AddressWebhookURL   string
	OrderWebhookURL     string
	AnalyticsWebhookURL string

	AnalyticsDBDSN       string
	AnalyticsRedisAddr   string
	AnalyticsRedisStream string
	AnalyticsBuffer      int

	MQTTBrokerURL   string
	MQTTClientID    string
	MQTTUsername    string
	MQTTPassword    string
	MQTTTopicPrefix string
	POSStoreID      string
	POSAckTimeout   time.Duration
}

type POSSimConfig struct {
	HTTPAddr        string
	CatalogPath     string
	MaxTotal        float64
	MQTTBrokerURL   string
	MQTTClientID    string
	MQTTUsername    string
	MQTTPassword    string
	MQTTTopicPrefix string
	POSStoreID      string
}

type CLIConfig struct {
	ServerURL   string
	CatalogPath string
}

func LoadServerConfig() (ServerConfig, error) {
	cfg := ServerConfig{
		HTTPAddr:    getenvDefault("BLINK_HTTP_ADDR", ":9020"),
		LogFormat:   strings.ToLower(getenvDefault("LOG_FORMAT", "text")),
		CatalogPath: getenvDefault("CATALOG_PATH", "configs/menu.yaml"),

		IntentBackend:      strings.ToLower(getenvDefault("INTENT_BACKEND", "llm")),
		IntentServiceURL:   strings.TrimRight(os.Getenv("INTENT_SERVICE_URL"), "/"),
		LLMProvider:        strings.ToLower(getenvDefault("LLM_PROVIDER", "openai")),
		LLMModel:           getenvDefault("LLM_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:      getenvDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		AnthropicBaseURL:   getenvDefault("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
		AnthropicAPIKey:    os.Getenv("ANTHROPIC_API_KEY"),
		RouterTimeout:      time.Duration(getenvIntDefault("ROUTER_TIMEOUT_SECONDS", 5)) * time.Second,
		RouterRPS:          getenvFloatDefault("ROUTER_RPS", 0),
		RouterBurst:        getenvIntDefault("ROUTER_BURST", 5),
		OverrideConfidence: getenvFloatDefault("OVERRIDE_CONFIDENCE", 0.6),

		GatewayTimeout: time.Duration(getenvIntDefault("GATEWAY_TIMEOUT_SECONDS", 3)) * time.Second,
		TurnTimeout:    time.Duration(getenvIntDefault("TURN_TIMEOUT_SECONDS", 15)) * time.Second,

		SessionIdleTimeout:   time.Duration(getenvIntDefault("SESSION_IDLE_TIMEOUT_MINUTES", 60)) * time.Minute,
		SessionSweepInterval: time.Duration(getenvIntDefault("SESSION_SWEEP_INTERVAL_SECONDS", 60)) * time.Second,
		HistoryLimit:         getenvIntDefault("HISTORY_LIMIT", 10),

		MatchThreshold:   getenvFloatDefault("MATCH_THRESHOLD", 0.75),
		MatchMargin:      getenvFloatDefault("MATCH_MARGIN", 0.08),
		MatchSuggestions: getenvIntDefault("MATCH_SUGGESTIONS", 3),
		SuggestionFloor:  getenvFloatDefault("SUGGESTION_FLOOR", 0.45),

		MenuWebhookURL:      os.Getenv("N8N_MENU_WEBHOOK_URL"),
		PhoneWebhookURL:     os.Getenv("N8N_PHONE_WEBHOOK_URL"),
		AddressWebhookURL:   os.Getenv("N8N_ADDRESS_WEBHOOK_URL"),
		OrderWebhookURL:     os.Getenv("N8N_ORDER_WEBHOOK_URL"),
		AnalyticsWebhookURL: os.Getenv("N8N_ANALYTICS_WEBHOOK_URL"),

		AnalyticsDBDSN:       os.Getenv("ANALYTICS_DB_DSN"),
		AnalyticsRedisAddr:   os.Getenv("ANALYTICS_REDIS_ADDR"),
		AnalyticsRedisStream: getenvDefault("ANALYTICS_REDIS_STREAM", "blink:turns"),
		AnalyticsBuffer:      getenvIntDefault("ANALYTICS_BUFFER", 256),

		MQTTBrokerURL:   os.Getenv("MQTT_BROKER_URL"),
		MQTTClientID:    getenvDefault("MQTT_CLIENT_ID", "blink-orchestrator"),
		MQTTUsername:    os.Getenv("MQTT_USERNAME"),
		MQTTPassword:    os.Getenv("MQTT_PASSWORD"),
		MQTTTopicPrefix: getenvDefault("MQTT_TOPIC_PREFIX", "blink"),
		POSStoreID:      getenvDefault("POS_STORE_ID", "main"),
		POSAckTimeout:   time.Duration(getenvIntDefault("POS_ACK_TIMEOUT_SECONDS", 3)) * time.Second,
	}

	if cfg.CatalogPath == "" {
		return ServerConfig{}, fmt.Errorf("CATALOG_PATH is required")
	}

	switch cfg.IntentBackend {
	case "llm":
		if cfg.LLMProvider == "openai" && cfg.OpenAIAPIKey == "" {
			return ServerConfig{}, fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
		}
		if cfg.LLMProvider == "claude" && cfg.AnthropicAPIKey == "" {
			return ServerConfig{}, fmt.Errorf("ANTHROPIC_API_KEY is required when LLM_PROVIDER=claude")
		}
	case "http":
		if cfg.IntentServiceURL == "" {
			return ServerConfig{}, fmt.Errorf("INTENT_SERVICE_URL is required when INTENT_BACKEND=http")
		}
	case "rules":
	default:
		return ServerConfig{}, fmt.Errorf("unsupported INTENT_BACKEND: %s", cfg.IntentBackend)
	}

	if cfg.MatchThreshold <= 0 || cfg.MatchThreshold > 1 {
		return ServerConfig{}, fmt.Errorf("MATCH_THRESHOLD must be in (0,1], got %v", cfg.MatchThreshold)
	}
	if cfg.MatchMargin < 0 || cfg.MatchMargin >= 1 {
		return ServerConfig{}, fmt.Errorf("MATCH_MARGIN must be in [0,1), got %v", cfg.MatchMargin)
	}
	if cfg.OverrideConfidence < 0 || cfg.OverrideConfidence > 1 {
		return ServerConfig{}, fmt.Errorf("OVERRIDE_CONFIDENCE must be in [0,1], got %v", cfg.OverrideConfidence)
	}
	if cfg.SessionIdleTimeout <= 0 {
		return ServerConfig{}, fmt.Errorf("SESSION_IDLE_TIMEOUT_MINUTES must be positive")
	}
	// Every gateway call, including the wait for a POS ack, runs under GATEWAY_TIMEOUT.
	if cfg.GatewayTimeout > 0 && cfg.POSAckTimeout > cfg.GatewayTimeout {
		cfg.POSAckTimeout = cfg.GatewayTimeout
	}

	return cfg, nil
}

func LoadPOSSimConfig() (POSSimConfig, error) {
	cfg := POSSimConfig{
		HTTPAddr:        getenvDefault("POS_SIM_HTTP_ADDR", ":9030"),
		CatalogPath:     os.Getenv("CATALOG_PATH"),
		MaxTotal:        getenvFloatDefault("POS_SIM_MAX_TOTAL", 0),
		MQTTBrokerURL:   os.Getenv("MQTT_BROKER_URL"),
		MQTTClientID:    getenvDefault("POS_SIM_CLIENT_ID", "blink-pos-sim"),
		MQTTUsername:    os.Getenv("MQTT_USERNAME"),
		MQTTPassword:    os.Getenv("MQTT_PASSWORD"),
		MQTTTopicPrefix: getenvDefault("MQTT_TOPIC_PREFIX", "blink"),
		POSStoreID:      getenvDefault("POS_STORE_ID", "main"),
	}
	if cfg.MQTTBrokerURL == "" {
		return POSSimConfig{}, fmt.Errorf("MQTT_BROKER_URL is required")
	}
	return cfg, nil
}

func LoadCLIConfig() CLIConfig {
	return CLIConfig{
		ServerURL:   strings.TrimRight(getenvDefault("BLINK_SERVER_URL", "http://localhost:9020"), "/"),
		CatalogPath: getenvDefault("CATALOG_PATH", "configs/menu.yaml"),
	}
}

func getenvDefault(key, val string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return val
}

func getenvIntDefault(key string, val int) int {
	v := os.Getenv(key)
	if v == "" {
		return val
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return val
	}
	return n
}

func getenvFloatDefault(key string, val float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return val
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return val
	}
	return f
}
