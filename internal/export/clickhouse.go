// Package export ships per-tick graph statistics to external stores.
package export

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"GraphTrace/internal/config"
	"GraphTrace/internal/graph"
	"GraphTrace/internal/model"
)

const createTableStatement = `
CREATE TABLE IF NOT EXISTS graph_metrics (
    Timestamp   DateTime,
    SrcAddr     String,
    DstAddr     String,
    FirstSeen   DateTime,
    LastSeen    DateTime,
    ByteCount   UInt64,
    PacketCount UInt64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (SrcAddr, DstAddr, Timestamp);
`

// ClickHouseSink implements replay.SnapshotSink. Each persisted tick's
// connection statistics are batch-inserted into the graph_metrics table.
type ClickHouseSink struct {
	conn driver.Conn
}

// NewClickHouseSink connects to ClickHouse and ensures the metrics table
// exists.
func NewClickHouseSink(cfg config.ClickHouseConfig) (*ClickHouseSink, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Exec(context.Background(), createTableStatement); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	log.Println("Successfully connected to ClickHouse and ensured table exists.")

	return &ClickHouseSink{conn: conn}, nil
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

// WriteSnapshot inserts one row per connection that carries traffic
// statistics.
func (s *ClickHouseSink) WriteSnapshot(snap graph.Snapshot, at time.Time) error {
	batch, err := s.conn.PrepareBatch(context.Background(), "INSERT INTO graph_metrics")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	rows := 0
	for _, rec := range snap.Connections {
		stats, ok := rec.Components[model.KindTrafficStats].(model.TrafficStats)
		if !ok {
			continue
		}
		err = batch.Append(
			at,
			rec.Src.String(),
			rec.Dst.String(),
			stats.FirstSeen,
			stats.LastSeen,
			stats.Bytes,
			stats.Packets,
		)
		if err != nil {
			return fmt.Errorf("failed to append connection to batch: %w", err)
		}
		rows++
	}

	if rows == 0 {
		return batch.Abort()
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	log.Printf("Exported %d connection rows to ClickHouse", rows)
	return nil
}

// Close releases the connection.
func (s *ClickHouseSink) Close() error {
	return s.conn.Close()
}
