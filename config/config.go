package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	DB       DBConfig       `mapstructure:"db"`
	Detector DetectorConfig `mapstructure:"detector"`
	FaceRec  FaceRecConfig  `mapstructure:"facerec"`
	Scan     ScanConfig     `mapstructure:"scan"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	Cleanup  CleanupConfig  `mapstructure:"cleanup"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	DataDir     string   `mapstructure:"data_dir"`
	UploadDir   string   `mapstructure:"upload_dir"` // Where reference photos and temp scan files live
	UploadURL   string   `mapstructure:"upload_url"` // URL path the upload dir is served under
	PublicURL   string   `mapstructure:"public_url"` // Base URL used when building photoUrl values
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// DBConfig holds case registry database settings.
type DBConfig struct {
	File string `mapstructure:"file"` // SQLite database file
}

// DetectorConfig holds settings for the external object detector service.
type DetectorConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	URL            string `mapstructure:"url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// FaceRecConfig holds settings for the external face embedding service.
type FaceRecConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	URL            string `mapstructure:"url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	Model          string `mapstructure:"model"` // Embedding model requested from the service
}

// ScanConfig holds matching and aggregation parameters.
type ScanConfig struct {
	MatchThreshold float64 `mapstructure:"match_threshold"` // Confidence percentage a match must exceed
	TopK           int     `mapstructure:"top_k"`           // Maximum matches returned per frame
	FrameInterval  int     `mapstructure:"frame_interval"`  // Every Nth video frame is analyzed
	MaxConcurrent  int     `mapstructure:"max_concurrent"`  // Concurrent scans allowed against the model services
}

// MQTTConfig holds settings for the MQTT alert publisher.
type MQTTConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	Broker        string  `mapstructure:"broker"`
	Port          int     `mapstructure:"port"`
	Username      string  `mapstructure:"username"`
	Password      string  `mapstructure:"password"`
	ClientID      string  `mapstructure:"client_id"`
	AlertTopic    string  `mapstructure:"alert_topic"`
	MinConfidence float64 `mapstructure:"min_confidence"` // Minimum confidence before an alert is published
}

// CleanupConfig holds settings for stray upload cleanup.
type CleanupConfig struct {
	RetentionHours int `mapstructure:"retention_hours"`
}

// Load reads configuration from file, environment variables and defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			log.Warnf("Config file %s does not exist, using defaults", configPath)
		} else {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			log.Infof("Config loaded from %s", configPath)
		}
	}

	// Environment variables overlay the file values
	v.AutomaticEnv()
	v.SetEnvPrefix("ECHOPLEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := ensureDirectories(&cfg); err != nil {
		return nil, fmt.Errorf("failed to create required directories: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers default values for the configuration.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8001)
	v.SetDefault("server.data_dir", "/data")
	v.SetDefault("server.upload_dir", "/data/uploads")
	v.SetDefault("server.upload_url", "/uploads")
	v.SetDefault("server.public_url", "http://127.0.0.1:8001")
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173", "http://127.0.0.1:5173"})

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "/data/logs/echoplex.log")

	// DB defaults
	v.SetDefault("db.file", "/data/echoplex.db")

	// Detector defaults
	v.SetDefault("detector.enabled", true)
	v.SetDefault("detector.url", "http://detector:8501")
	v.SetDefault("detector.timeout_seconds", 30)

	// Face recognition defaults
	v.SetDefault("facerec.enabled", true)
	v.SetDefault("facerec.url", "http://facerec:8502")
	v.SetDefault("facerec.timeout_seconds", 30)
	v.SetDefault("facerec.model", "ArcFace")

	// Scan defaults
	v.SetDefault("scan.match_threshold", 40.0)
	v.SetDefault("scan.top_k", 5)
	v.SetDefault("scan.frame_interval", 15)
	v.SetDefault("scan.max_concurrent", 2)

	// MQTT defaults
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.client_id", "echoplex-server")
	v.SetDefault("mqtt.alert_topic", "echoplex/alerts")
	v.SetDefault("mqtt.min_confidence", 60.0)

	// Cleanup defaults
	v.SetDefault("cleanup.retention_hours", 24)
}

// ensureDirectories makes sure all required directories exist.
func ensureDirectories(cfg *Config) error {
	if cfg.Server.DataDir != "" {
		if err := os.MkdirAll(cfg.Server.DataDir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	if err := os.MkdirAll(cfg.Server.UploadDir, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	logDir := filepath.Dir(cfg.Log.File)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	if cfg.DB.File != "" {
		dbDir := filepath.Dir(cfg.DB.File)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	return nil
}
