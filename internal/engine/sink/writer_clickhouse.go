package sink

import (
	"context"
	"fmt"
	"log"
	"time"

	"SampleSync/internal/config"
	"SampleSync/internal/engine/synchronizer"
	"SampleSync/internal/model"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

const createTableStatement = `
CREATE TABLE IF NOT EXISTS sample_batches (
    EmittedAt  DateTime64(3),
    SourceID   String,
    Kind       String,
    SampleTime Nullable(DateTime64(3)),
    Value      Nullable(Float64)
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(EmittedAt)
ORDER BY (SourceID, EmittedAt);
`

// ClickHouseWriter persists emitted batches to ClickHouse, one row per
// aligned sample. It implements the model.Writer interface.
type ClickHouseWriter struct {
	conn driver.Conn
}

// NewClickHouseWriter connects to ClickHouse and ensures the batch table exists.
func NewClickHouseWriter(cfg config.ClickHouseConfig) (model.Writer, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Exec(context.Background(), createTableStatement); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	log.Println("Successfully connected to ClickHouse and ensured table exists.")

	return &ClickHouseWriter{conn: conn}, nil
}

func connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: false,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})

	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return conn, nil
}

// Write inserts every aligned sample of the batch into sample_batches. A
// no-data source becomes a single row with null SampleTime and Value.
func (w *ClickHouseWriter) Write(payload interface{}, timestamp string) error {
	batch, ok := payload.(synchronizer.Batch[float64])
	if !ok {
		return fmt.Errorf("invalid payload type for ClickHouseWriter: expected synchronizer.Batch[float64], got %T", payload)
	}

	insert, err := w.conn.PrepareBatch(context.Background(), "INSERT INTO sample_batches")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	emittedAt, _ := time.Parse("2006-01-02_15-04-05", timestamp)
	rowCount := 0
	for sourceID, series := range batch {
		if series.Kind == synchronizer.NoData {
			if err := insert.Append(emittedAt, sourceID, series.Kind.String(), nil, nil); err != nil {
				return fmt.Errorf("failed to append sentinel row for source '%s': %w", sourceID, err)
			}
			rowCount++
			continue
		}
		for _, sample := range series.Samples {
			sampleTime := sample.Timestamp
			value := sample.Value
			if err := insert.Append(emittedAt, sourceID, series.Kind.String(), &sampleTime, &value); err != nil {
				return fmt.Errorf("failed to append row for source '%s': %w", sourceID, err)
			}
			rowCount++
		}
	}

	if err := insert.Send(); err != nil {
		return fmt.Errorf("failed to send batch to clickhouse: %w", err)
	}
	log.Printf("Wrote %d rows to ClickHouse for batch %s.", rowCount, timestamp)
	return nil
}
