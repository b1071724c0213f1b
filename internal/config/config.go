// Package config loads and validates the application configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Generator GeneratorConfig `yaml:"generator"`
	Publish   PublishConfig   `yaml:"publish"`
	Retry     RetryConfig     `yaml:"retry"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Notify    NotifyConfig    `yaml:"notify"`
	Daemon    DaemonConfig    `yaml:"daemon"`
}

// DatabaseConfig points at the sqlite database file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// GeneratorConfig holds the text-generation backend settings. Model choice is
// a per-call-site configuration (topic vs draft), not a per-blog one.
type GeneratorConfig struct {
	APIKey           string        `yaml:"api_key"`
	TopicModel       string        `yaml:"topic_model"`
	DraftModel       string        `yaml:"draft_model"`
	TopicMaxTokens   int           `yaml:"topic_max_tokens"`
	DraftMaxTokens   int           `yaml:"draft_max_tokens"`
	TopicTemperature float64       `yaml:"topic_temperature"`
	DraftTemperature float64       `yaml:"draft_temperature"`
	CostCeilingUSD   float64       `yaml:"cost_ceiling_usd"`
	Timeout          time.Duration `yaml:"timeout"`
	FeedTimeout      time.Duration `yaml:"feed_timeout"`
	RecentTitleLimit int           `yaml:"recent_title_limit"`
}

// PublishConfig bounds outbound publish calls.
type PublishConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	// DeadlineMargin stops the orchestrator from starting a new blog when the
	// invocation deadline is closer than this.
	DeadlineMargin time.Duration `yaml:"deadline_margin"`
	MaxRetries     int           `yaml:"max_retries"`
}

// RetryConfig configures the backoff policy for the publishing queue.
type RetryConfig struct {
	Backoff string        `yaml:"backoff"` // fixed|linear|exponential
	Initial time.Duration `yaml:"initial"`
	Max     time.Duration `yaml:"max"`
}

// ArchiveConfig configures the archive-to-storage publish variant.
type ArchiveConfig struct {
	Dir           string        `yaml:"dir"`
	BaseURL       string        `yaml:"base_url"`
	URLTTL        time.Duration `yaml:"url_ttl"`
	SigningSecret string        `yaml:"signing_secret"`
}

// NotifyConfig lists outbound notification endpoints.
type NotifyConfig struct {
	WebhookURLs []string      `yaml:"webhook_urls"`
	Timeout     time.Duration `yaml:"timeout"`
	NATS        NATSConfig    `yaml:"nats"`
}

// NATSConfig configures the optional NATS notification sink.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// DaemonConfig configures the scheduled mode.
type DaemonConfig struct {
	RunInterval   time.Duration `yaml:"run_interval"`
	DrainInterval time.Duration `yaml:"drain_interval"`
	MetricsAddr   string        `yaml:"metrics_addr"`
}

// Load loads configuration from the specified file
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists; process env wins over file values.
	if err := godotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Note: .env file not found or couldn't be loaded: %v\n", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}
