package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SynchronizerConfig holds the core windowing parameters.
type SynchronizerConfig struct {
	UpdateInterval  string `yaml:"update_interval"`
	PollInterval    string `yaml:"poll_interval"`
	ActivateOnStart bool   `yaml:"activate_on_start"`
}

// NATSConfig holds the connection details for the sample and batch subjects.
type NATSConfig struct {
	URL           string `yaml:"url"`
	SampleSubject string `yaml:"sample_subject"`
	BatchSubject  string `yaml:"batch_subject"`
}

// GobConfig holds settings for the on-disk gob batch writer.
type GobConfig struct {
	RootPath string `yaml:"root_path"`
}

// ClickHouseConfig holds the connection details for ClickHouse.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// WriterDef defines a single batch writer from the config file.
type WriterDef struct {
	Type       string           `yaml:"type"`
	Enabled    bool             `yaml:"enabled"`
	Gob        GobConfig        `yaml:"gob"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

// ControlConfig holds the listen addresses for the engine's control surfaces.
type ControlConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	GRPCAddr   string `yaml:"grpc_addr"`
}

// APIConfig holds the listen address for the historical query API.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// AlerterRule defines a single staleness rule. SourceID may be "*" (or
// empty) to match any source. Condition is one of "stale", "no_data" or
// "degraded"; Consecutive is the number of consecutive degraded emissions
// required before the rule fires (minimum 1).
type AlerterRule struct {
	Name        string `yaml:"name"`
	SourceID    string `yaml:"source_id"`
	Condition   string `yaml:"condition"`
	Consecutive int    `yaml:"consecutive"`
}

// AlerterConfig holds the staleness alerter settings.
type AlerterConfig struct {
	Enabled       bool          `yaml:"enabled"`
	CheckInterval string        `yaml:"check_interval"`
	Rules         []AlerterRule `yaml:"rules"`
}

// SMTPConfig holds the settings for the email notifier.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// JournalConfig holds the settings for the probe-side sample journal.
type JournalConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Path              string `yaml:"path"`
	ChannelBufferSize int    `yaml:"channel_buffer_size"`
}

// ProbeConfig holds probe-only settings.
type ProbeConfig struct {
	Journal JournalConfig `yaml:"journal"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Synchronizer SynchronizerConfig `yaml:"synchronizer"`
	NATS         NATSConfig         `yaml:"nats"`
	Writers      []WriterDef        `yaml:"writers"`
	Control      ControlConfig      `yaml:"control"`
	API          APIConfig          `yaml:"api"`
	Alerter      AlerterConfig      `yaml:"alerter"`
	SMTP         SMTPConfig         `yaml:"smtp"`
	Probe        ProbeConfig        `yaml:"probe"`
}

// LoadConfig reads the configuration from a YAML file and returns a Config struct.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	return &cfg, nil
}
