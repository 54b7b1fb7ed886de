package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/apflow/invoice-match-service/api"
	"github.com/apflow/invoice-match-service/internal/db"
	"github.com/apflow/invoice-match-service/internal/models"
	"github.com/apflow/invoice-match-service/internal/storage"
)

func main() {
	log := logrus.New()

	config, err := loadConfig("config.yaml")
	if err != nil {
		log.WithError(err).Fatal("loading configuration")
	}
	configureLogger(log, config.Log)

	if err := db.Init(); err != nil {
		log.WithError(err).Warn("running without database, invoices will not be matched or persisted")
	} else {
		defer db.Close()
		log.Info("database connected")
	}

	if err := storage.Init(); err != nil {
		log.WithError(err).Warn("running without object storage, documents will not be archived")
	} else {
		log.Info("object storage connected")
	}

	handler := api.NewHandler(config, log)
	addr := fmt.Sprintf("%s:%s", config.Host, config.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      handler.SetupRoutes(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.WithField("addr", addr).Info("invoice match service listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server stopped")
	}
}

// loadConfig reads the YAML config file and applies environment overrides.
// A missing file is not fatal: the service runs on defaults plus environment.
func loadConfig(path string) (*models.Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	applyEnvOverrides(config)
	return config, nil
}

func defaultConfig() *models.Config {
	return &models.Config{
		Host: "0.0.0.0",
		Port: "8080",
		AI: models.AIConfig{
			DefaultProvider: "openai",
		},
		Matching: models.MatchingConfig{
			FuzzyThreshold:            2,
			AmountTolerancePercent:    5.0,
			PaymentTermsToleranceDays: 1,
		},
		Log: models.LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func applyEnvOverrides(config *models.Config) {
	if v := os.Getenv("PORT"); v != "" {
		config.Port = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		config.AI.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		config.AI.OpenAI.BaseURL = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		config.AI.Gemini.APIKey = v
	}
	if v := os.Getenv("AI_PROVIDER"); v != "" {
		config.AI.DefaultProvider = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		config.Log.Level = v
	}
}

func configureLogger(log *logrus.Logger, cfg models.LogConfig) {
	if cfg.Format == "text" {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
}
