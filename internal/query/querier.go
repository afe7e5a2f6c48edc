package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"SampleSync/internal/config"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// HistoryRequest selects persisted aligned samples. All fields are optional;
// an empty request returns the most recent rows up to the limit.
type HistoryRequest struct {
	SourceIDs []string   `json:"source_ids"`
	Start     *time.Time `json:"start"`
	End       *time.Time `json:"end"`
	Limit     int        `json:"limit"`
}

// SampleRow is one persisted aligned sample. SampleTime and Value are nil
// for a no-data sentinel row.
type SampleRow struct {
	EmittedAt  time.Time  `json:"emitted_at"`
	SourceID   string     `json:"source_id"`
	Kind       string     `json:"kind"`
	SampleTime *time.Time `json:"sample_time"`
	Value      *float64   `json:"value"`
}

// SourceSummary describes the most recent state of one source.
type SourceSummary struct {
	SourceID  string     `json:"source_id"`
	LastKind  string     `json:"last_kind"`
	LastValue *float64   `json:"last_value"`
	LastSeen  *time.Time `json:"last_seen"`
	Rows      uint64     `json:"rows"`
}

// Querier defines the interface for querying persisted batch data.
type Querier interface {
	History(ctx context.Context, req *HistoryRequest) ([]SampleRow, error)
	Sources(ctx context.Context) ([]SourceSummary, error)
}

// clickhouseQuerier implements the Querier interface for ClickHouse.
type clickhouseQuerier struct {
	conn driver.Conn
}

// NewClickHouseQuerier creates a new querier for ClickHouse.
func NewClickHouseQuerier(cfg config.ClickHouseConfig) (Querier, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	return &clickhouseQuerier{conn: conn}, nil
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
	})

	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return conn, nil
}

const defaultHistoryLimit = 1000

// History returns persisted aligned samples matching the request, newest first.
func (q *clickhouseQuerier) History(ctx context.Context, req *HistoryRequest) ([]SampleRow, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT EmittedAt, SourceID, Kind, SampleTime, Value
		FROM sample_batches
	`)

	var whereClauses []string
	args := []interface{}{}

	if len(req.SourceIDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(req.SourceIDs)), ",")
		whereClauses = append(whereClauses, fmt.Sprintf("SourceID IN (%s)", placeholders))
		for _, id := range req.SourceIDs {
			args = append(args, id)
		}
	}
	if req.Start != nil {
		whereClauses = append(whereClauses, "EmittedAt >= ?")
		args = append(args, *req.Start)
	}
	if req.End != nil {
		whereClauses = append(whereClauses, "EmittedAt <= ?")
		args = append(args, *req.End)
	}

	if len(whereClauses) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(whereClauses, " AND "))
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	queryBuilder.WriteString(" ORDER BY EmittedAt DESC LIMIT ?")
	args = append(args, limit)

	rows, err := q.conn.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute history query: %w", err)
	}
	defer rows.Close()

	var result []SampleRow
	for rows.Next() {
		var row SampleRow
		if err := rows.Scan(&row.EmittedAt, &row.SourceID, &row.Kind, &row.SampleTime, &row.Value); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		result = append(result, row)
	}

	return result, nil
}

// Sources returns the latest persisted state per source.
func (q *clickhouseQuerier) Sources(ctx context.Context) ([]SourceSummary, error) {
	const query = `
		SELECT
			SourceID,
			argMax(Kind, EmittedAt) AS LastKind,
			argMax(Value, EmittedAt) AS LastValue,
			max(SampleTime) AS LastSeen,
			COUNT(*) AS Rows
		FROM sample_batches
		GROUP BY SourceID
		ORDER BY SourceID
	`

	rows, err := q.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute sources query: %w", err)
	}
	defer rows.Close()

	var summaries []SourceSummary
	for rows.Next() {
		var summary SourceSummary
		if err := rows.Scan(&summary.SourceID, &summary.LastKind, &summary.LastValue, &summary.LastSeen, &summary.Rows); err != nil {
			return nil, fmt.Errorf("failed to scan source summary: %w", err)
		}
		summaries = append(summaries, summary)
	}

	return summaries, nil
}
