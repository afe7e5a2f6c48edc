package sink

import (
	"encoding/gob"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"SampleSync/internal/engine/synchronizer"
)

func TestGobWriter_Write(t *testing.T) {
	// 1. Build a batch with one series of each kind.
	ts := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	batch := synchronizer.Batch[float64]{
		"s1": {
			Kind: synchronizer.Windowed,
			Samples: []synchronizer.Sample[float64]{
				{Timestamp: ts, Value: 1.5},
				{Timestamp: ts.Add(time.Second), Value: 2.5},
			},
		},
		"s2": {
			Kind:    synchronizer.StaleFallback,
			Samples: []synchronizer.Sample[float64]{{Timestamp: ts, Value: 7}},
		},
		"s3": {
			Kind: synchronizer.NoData,
		},
	}

	// 2. Write it to a temp directory.
	tmpDir := t.TempDir()
	writer := NewGobWriter(tmpDir)
	timestamp := "2026-08-30_12-00-05"
	if err := writer.Write(batch, timestamp); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	// 3. Verify the batch file decodes back to the original data.
	batchPath := filepath.Join(tmpDir, timestamp, "batch.gob")
	file, err := os.Open(batchPath)
	if err != nil {
		t.Fatalf("Failed to open batch file: %v", err)
	}
	defer file.Close()

	var decoded synchronizer.Batch[float64]
	if err := gob.NewDecoder(file).Decode(&decoded); err != nil {
		t.Fatalf("Failed to decode batch gob: %v", err)
	}
	if len(decoded) != 3 {
		t.Fatalf("Expected 3 sources in decoded batch, got %d", len(decoded))
	}
	if s1 := decoded["s1"]; len(s1.Samples) != 2 || s1.Samples[1].Value != 2.5 {
		t.Errorf("Decoded s1 does not match written batch: %+v", s1)
	}
	if decoded["s3"].Kind != synchronizer.NoData {
		t.Errorf("Expected s3 to stay NoData, got %s", decoded["s3"].Kind)
	}

	// 4. Verify the summary counts.
	summaryBytes, err := os.ReadFile(filepath.Join(tmpDir, timestamp, "summary.json"))
	if err != nil {
		t.Fatalf("Failed to read summary.json: %v", err)
	}
	var summary SummaryData
	if err := json.Unmarshal(summaryBytes, &summary); err != nil {
		t.Fatalf("Failed to unmarshal summary.json: %v", err)
	}
	if summary.Sources != 3 || summary.Samples != 3 {
		t.Errorf("Unexpected summary totals: %+v", summary)
	}
	if summary.Windowed != 1 || summary.Stale != 1 || summary.NoData != 1 {
		t.Errorf("Unexpected kind counts in summary: %+v", summary)
	}
}

func TestGobWriter_RejectsWrongPayload(t *testing.T) {
	writer := NewGobWriter(t.TempDir())
	if err := writer.Write("not a batch", "2026-08-30_12-00-05"); err == nil {
		t.Error("Expected an error for a non-batch payload, got nil")
	}
}
