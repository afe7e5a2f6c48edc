package config

import (
	"os"
	"path/filepath"
	"testing"
)

const testYAML = `
synchronizer:
  update_interval: 5s
  poll_interval: 500ms
  activate_on_start: true
nats:
  url: nats://localhost:4222
  sample_subject: samplesync.samples
  batch_subject: samplesync.batches
writers:
  - type: gob
    enabled: true
    gob:
      root_path: ./data/batches
  - type: clickhouse
    enabled: false
    clickhouse:
      host: localhost
      port: 9000
      database: samplesync
alerter:
  enabled: true
  check_interval: 10s
  rules:
    - name: any-source-stale
      source_id: "*"
      condition: stale
      consecutive: 3
`

func TestLoadConfig(t *testing.T) {
	// 1. Write the config to a temp file.
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(path, []byte(testYAML), 0644); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}

	// 2. Load it.
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	// 3. Spot-check the decoded fields.
	if cfg.Synchronizer.UpdateInterval != "5s" {
		t.Errorf("Expected update_interval '5s', got '%s'", cfg.Synchronizer.UpdateInterval)
	}
	if !cfg.Synchronizer.ActivateOnStart {
		t.Error("Expected activate_on_start to be true")
	}
	if cfg.NATS.SampleSubject != "samplesync.samples" {
		t.Errorf("Unexpected sample subject: '%s'", cfg.NATS.SampleSubject)
	}
	if len(cfg.Writers) != 2 {
		t.Fatalf("Expected 2 writer definitions, got %d", len(cfg.Writers))
	}
	if cfg.Writers[0].Type != "gob" || !cfg.Writers[0].Enabled {
		t.Errorf("Unexpected first writer: %+v", cfg.Writers[0])
	}
	if cfg.Writers[1].ClickHouse.Port != 9000 {
		t.Errorf("Expected clickhouse port 9000, got %d", cfg.Writers[1].ClickHouse.Port)
	}
	if len(cfg.Alerter.Rules) != 1 || cfg.Alerter.Rules[0].Consecutive != 3 {
		t.Errorf("Unexpected alerter rules: %+v", cfg.Alerter.Rules)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected an error for a missing config file, got nil")
	}
}
