package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/flemzord/tgrelay/internal/relay"
)

// Store persists debug exchanges. It implements relay.DebugSink.
type Store struct {
	db *sql.DB
}

var _ relay.DebugSink = (*Store)(nil)

// Open opens (creating if needed) a transcript database at path and
// migrates its schema. The caller closes the Store.
func Open(ctx context.Context, path string, cfg Config) (*Store, error) {
	cfg.defaults()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("transcript.sqlite: open %s: %w", path, err)
	}

	// SQLite handles one writer at a time; limit pool to 1 connection
	// so PRAGMAs apply consistently.
	db.SetMaxOpenConns(1)

	if cfg.walEnabled() {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("transcript.sqlite: enable WAL: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", cfg.BusyTimeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("transcript.sqlite: set busy_timeout: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Record implements relay.DebugSink.
func (s *Store) Record(ctx context.Context, ex relay.Exchange) error {
	ts := ex.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO exchanges
			(message_id, channel, conversation_id, sender, input, output, succeeded, created_ms, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ex.MessageID, ex.Channel, ex.ConversationID, ex.Sender,
		ex.Input, ex.Output, ex.Succeeded,
		ts.UnixMilli(), ex.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("transcript.sqlite: record exchange: %w", err)
	}
	return nil
}

// Recent returns up to limit exchanges for a conversation, oldest first.
func (s *Store) Recent(ctx context.Context, conversationID int64, limit int) ([]relay.Exchange, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT message_id, channel, conversation_id, sender, input, output, succeeded, created_ms, duration_ms
		FROM (
			SELECT * FROM exchanges
			WHERE conversation_id = ?
			ORDER BY id DESC
			LIMIT ?
		)
		ORDER BY id ASC`,
		conversationID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("transcript.sqlite: query exchanges: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []relay.Exchange
	for rows.Next() {
		var (
			ex                    relay.Exchange
			createdMs, durationMs int64
		)
		if err := rows.Scan(&ex.MessageID, &ex.Channel, &ex.ConversationID, &ex.Sender,
			&ex.Input, &ex.Output, &ex.Succeeded, &createdMs, &durationMs); err != nil {
			return nil, fmt.Errorf("transcript.sqlite: scan exchange: %w", err)
		}
		ex.Timestamp = time.UnixMilli(createdMs).UTC()
		ex.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("transcript.sqlite: iterate exchanges: %w", err)
	}
	return out, nil
}

// Count returns the number of stored exchanges.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM exchanges").Scan(&n); err != nil {
		return 0, fmt.Errorf("transcript.sqlite: count exchanges: %w", err)
	}
	return n, nil
}

// Prune deletes exchanges recorded before the cutoff. It implements
// cron.Pruner.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM exchanges WHERE created_ms < ?", before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("transcript.sqlite: prune: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("transcript.sqlite: prune rows affected: %w", err)
	}
	return n, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
