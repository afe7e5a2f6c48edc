package sink

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"SampleSync/internal/engine/synchronizer"
	"SampleSync/internal/model"
)

// SummaryData holds the metadata for one written batch, internal to the writer.
type SummaryData struct {
	Sources   int    `json:"sources"`
	Samples   int    `json:"samples"`
	Windowed  int    `json:"windowed"`
	Stale     int    `json:"stale"`
	NoData    int    `json:"no_data"`
	Timestamp string `json:"timestamp"`
}

// GobWriter persists emitted batches to disk in gob format, one timestamped
// directory per emission. It implements the model.Writer interface.
type GobWriter struct {
	rootPath string
}

// NewGobWriter creates a new on-disk batch writer.
func NewGobWriter(rootPath string) model.Writer {
	return &GobWriter{rootPath: rootPath}
}

// Write serializes an emitted batch to <root>/<timestamp>/batch.gob together
// with a summary.json. It expects the payload to be a synchronizer.Batch[float64].
func (w *GobWriter) Write(payload interface{}, timestamp string) error {
	batch, ok := payload.(synchronizer.Batch[float64])
	if !ok {
		return fmt.Errorf("invalid payload type for GobWriter: expected synchronizer.Batch[float64], got %T", payload)
	}

	batchDir := filepath.Join(w.rootPath, timestamp)
	if err := os.MkdirAll(batchDir, 0755); err != nil {
		return fmt.Errorf("failed to create batch directory: %w", err)
	}

	filePath := filepath.Join(batchDir, "batch.gob")
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create batch file '%s': %w", filePath, err)
	}
	defer file.Close()

	encoder := gob.NewEncoder(file)
	if err := encoder.Encode(batch); err != nil {
		return fmt.Errorf("failed to encode batch to gob for file '%s': %w", filePath, err)
	}

	summary := SummaryData{
		Sources:   len(batch),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	for _, series := range batch {
		summary.Samples += len(series.Samples)
		switch series.Kind {
		case synchronizer.Windowed:
			summary.Windowed++
		case synchronizer.StaleFallback:
			summary.Stale++
		case synchronizer.NoData:
			summary.NoData++
		}
	}

	summaryPath := filepath.Join(batchDir, "summary.json")
	summaryFile, err := os.Create(summaryPath)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer summaryFile.Close()

	jsonEncoder := json.NewEncoder(summaryFile)
	jsonEncoder.SetIndent("", "  ")
	if err := jsonEncoder.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode summary to json: %w", err)
	}

	return nil
}
