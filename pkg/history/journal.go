package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Capture outcome labels recorded per journal row.
const (
	StatusSaved  = "saved"
	StatusFailed = "failed"
)

// Entry is one capture attempt, successful or not.
type Entry struct {
	URL      string
	Title    string
	Summary  string
	Category string
	Status   string
	Detail   string
}

type JournalConfig struct {
	ConnString string
	TableName  string
}

// Journal keeps an append-only record of capture attempts in Postgres.
type Journal struct {
	config JournalConfig
	pool   *pgxpool.Pool
}

func NewWithConfig(config JournalConfig) (*Journal, error) {
	if config.TableName == "" {
		config.TableName = "captures"
	}

	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	j := &Journal{
		config: config,
		pool:   pool,
	}

	if err := j.initialize(); err != nil {
		pool.Close()
		return nil, err
	}

	return j, nil
}

func (j *Journal) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			url TEXT NOT NULL,
			title TEXT,
			summary TEXT,
			category TEXT,
			status TEXT NOT NULL,
			detail TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, j.config.TableName)

	_, err := j.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	return nil
}

// Record appends one entry. Rows are never updated or deleted.
func (j *Journal) Record(ctx context.Context, entry Entry) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	stmt := fmt.Sprintf(`
		INSERT INTO %s (url, title, summary, category, status, detail)
		VALUES ($1, $2, $3, $4, $5, $6)`, j.config.TableName)

	_, err := j.pool.Exec(ctx, stmt,
		entry.URL,
		entry.Title,
		entry.Summary,
		entry.Category,
		entry.Status,
		entry.Detail,
	)
	if err != nil {
		return fmt.Errorf("failed to record capture: %v", err)
	}

	return nil
}

func (j *Journal) Close() {
	if j.pool != nil {
		j.pool.Close()
	}
}
