package collectors

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AskRecord is one logged question with its detected facets.
type AskRecord struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Category  string    `json:"category,omitempty"`
	Name      string    `json:"name,omitempty"`
	DateLabel string    `json:"date_label,omitempty"`
	Total     int       `json:"total"`
	CreatedAt time.Time `json:"created_at"`
}

// AskLog persists asked questions to sqlite for later inspection. Recording
// is best effort; callers must never fail a request on a log error.
type AskLog struct {
	db *sql.DB
}

func NewAskLog(db *sql.DB) (*AskLog, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	log := &AskLog{db: db}
	if err := log.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return log, nil
}

func (l *AskLog) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS asks (
		id TEXT PRIMARY KEY,
		message TEXT NOT NULL,
		category TEXT,
		name TEXT,
		date_label TEXT,
		total INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_asks_created_at ON asks(created_at);
	`

	_, err := l.db.Exec(query)
	return err
}

func (l *AskLog) Record(ctx context.Context, rec AskRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	query := `
	INSERT INTO asks (id, message, category, name, date_label, total, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := l.db.ExecContext(ctx, query,
		rec.ID,
		rec.Message,
		rec.Category,
		rec.Name,
		rec.DateLabel,
		rec.Total,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record ask: %w", err)
	}
	return nil
}

func (l *AskLog) Recent(ctx context.Context, limit int) ([]AskRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
	SELECT id, message, category, name, date_label, total, created_at
	FROM asks
	ORDER BY created_at DESC
	LIMIT ?
	`

	rows, err := l.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query asks: %w", err)
	}
	defer rows.Close()

	records := make([]AskRecord, 0, limit)
	for rows.Next() {
		var rec AskRecord
		if err := rows.Scan(&rec.ID, &rec.Message, &rec.Category, &rec.Name, &rec.DateLabel, &rec.Total, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ask: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
