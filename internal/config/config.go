// Package config loads and validates service settings from the environment
// and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/hazard-alert-service/internal/domain"
	"github.com/spf13/viper"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	IngestPath      string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Backend alert sink.
	BackendURL          string
	SinkTimeout         time.Duration
	DispatchMaxInFlight int
	AlertCooldown       time.Duration

	// Hazard model.
	HazardPolicy    domain.Policy
	Zones           domain.ZoneTable
	HazardBaseline  float64
	HazardBaseScore float64

	// Optional Kafka ping stream and alert topic.
	KafkaBrokers       []string
	KafkaPingTopic     string
	KafkaAlertTopic    string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration

	// Optional RabbitMQ alert exchange.
	RabbitMQURL      string
	RabbitMQExchange string
}

const maxBatchSize = 1000

var defaults = map[string]any{
	"HTTP_ADDR":              "0.0.0.0:8081",
	"INGEST_PATH":            "/v1/inputs",
	"LOG_LEVEL":              "info",
	"LOG_FORMAT":             "json",
	"SHUTDOWN_TIMEOUT":       "10s",
	"BACKEND_URL":            "http://localhost:3000/api/v9/alert",
	"SINK_TIMEOUT":           "5s",
	"DISPATCH_MAX_IN_FLIGHT": "256",
	"ALERT_COOLDOWN":         "0s",
	"HAZARD_POLICY":          string(domain.PolicyBox),
	"HAZARD_ZONES_FILE":      "",
	"HAZARD_BASELINE":        "50",
	"HAZARD_BASE_SCORE":      "200",
	"KAFKA_BROKERS":          "",
	"KAFKA_PING_TOPIC":       "",
	"KAFKA_ALERT_TOPIC":      "",
	"KAFKA_GROUP_ID":         "hazard-alert",
	"BATCH_SIZE":             "50",
	"BATCH_FLUSH_INTERVAL":   "500ms",
	"RABBITMQ_URL":           "",
	"RABBITMQ_EXCHANGE":      "hazard_alerts",
}

// Load reads .env (if present), then builds and validates Config from the
// environment. Env vars override .env. Every validation error names the
// offending variable.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // a missing .env is fine

	v.AutomaticEnv()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	cfg := &Config{
		HTTPAddr:         v.GetString("HTTP_ADDR"),
		IngestPath:       v.GetString("INGEST_PATH"),
		LogLevel:         v.GetString("LOG_LEVEL"),
		LogFormat:        v.GetString("LOG_FORMAT"),
		BackendURL:       v.GetString("BACKEND_URL"),
		KafkaBrokers:     parseBrokers(v.GetString("KAFKA_BROKERS")),
		KafkaPingTopic:   v.GetString("KAFKA_PING_TOPIC"),
		KafkaAlertTopic:  v.GetString("KAFKA_ALERT_TOPIC"),
		KafkaGroupID:     v.GetString("KAFKA_GROUP_ID"),
		RabbitMQURL:      v.GetString("RABBITMQ_URL"),
		RabbitMQExchange: v.GetString("RABBITMQ_EXCHANGE"),
	}

	var err error
	if cfg.ShutdownTimeout, err = positiveDuration(v, "SHUTDOWN_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.SinkTimeout, err = positiveDuration(v, "SINK_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.BatchFlushInterval, err = positiveDuration(v, "BATCH_FLUSH_INTERVAL"); err != nil {
		return nil, err
	}
	if cfg.AlertCooldown, err = parseDuration(v, "ALERT_COOLDOWN"); err != nil {
		return nil, err
	}
	if cfg.AlertCooldown < 0 {
		return nil, errors.New("invalid ALERT_COOLDOWN: must not be negative")
	}
	if cfg.DispatchMaxInFlight, err = intInRange(v, "DISPATCH_MAX_IN_FLIGHT", 1, 1<<20); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = intInRange(v, "BATCH_SIZE", 1, maxBatchSize); err != nil {
		return nil, err
	}

	if err := cfg.loadHazard(v); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadHazard(v *viper.Viper) error {
	policy, err := domain.ParsePolicy(strings.ToLower(strings.TrimSpace(v.GetString("HAZARD_POLICY"))))
	if err != nil {
		return fmt.Errorf("invalid HAZARD_POLICY: %w", err)
	}
	c.HazardPolicy = policy

	if c.HazardBaseline, err = parseFloat(v, "HAZARD_BASELINE"); err != nil {
		return err
	}
	if c.HazardBaseScore, err = parseFloat(v, "HAZARD_BASE_SCORE"); err != nil {
		return err
	}
	if c.HazardBaseline < 0 {
		return errors.New("invalid HAZARD_BASELINE: must not be negative")
	}
	if c.HazardBaseScore <= 0 {
		return errors.New("invalid HAZARD_BASE_SCORE: must be positive")
	}

	c.Zones = domain.DefaultZones()
	if path := v.GetString("HAZARD_ZONES_FILE"); path != "" {
		zones, err := LoadZones(path)
		if err != nil {
			return fmt.Errorf("invalid HAZARD_ZONES_FILE: %w", err)
		}
		c.Zones = zones
	}
	return nil
}

func (c *Config) validate() error {
	if c.HTTPAddr == "" {
		return errors.New("HTTP_ADDR is required")
	}
	if !strings.HasPrefix(c.IngestPath, "/") {
		return errors.New("invalid INGEST_PATH: must start with /")
	}
	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("invalid BACKEND_URL: must be an absolute http(s) URL")
	}
	if c.KafkaPingTopic != "" && len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_PING_TOPIC is set but KAFKA_BROKERS is empty")
	}
	if c.KafkaAlertTopic != "" && len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_ALERT_TOPIC is set but KAFKA_BROKERS is empty")
	}
	if c.RabbitMQURL != "" && c.RabbitMQExchange == "" {
		return errors.New("RABBITMQ_EXCHANGE is required when RABBITMQ_URL is set")
	}
	return nil
}

// HazardModel builds the scoring model selected by HAZARD_POLICY.
func (c *Config) HazardModel() domain.HazardModel {
	if c.HazardPolicy == domain.PolicyGraded {
		return domain.NewGradedModel(c.Zones, c.HazardBaseline, c.HazardBaseScore, domain.UniformPerturbation)
	}
	return domain.NewBoxModel(c.Zones)
}

// StreamEnabled reports whether the Kafka ping consumer should run.
func (c *Config) StreamEnabled() bool {
	return len(c.KafkaBrokers) > 0 && c.KafkaPingTopic != ""
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func positiveDuration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := parseDuration(v, key)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

func intInRange(v *viper.Viper, key string, lo, hi int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be between %d and %d", key, lo, hi)
	}
	return n, nil
}

func parseFloat(v *viper.Viper, key string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v.GetString(key)), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid %s: must be a finite number", key)
	}
	return f, nil
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
