// Package journal records one row per ingest cycle outcome in Postgres.
package journal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paolobietolini/atac-realtime/config"
	"github.com/paolobietolini/atac-realtime/pipelines"
)

const createTable = `CREATE TABLE IF NOT EXISTS ingest_runs (
	id             BIGSERIAL PRIMARY KEY,
	run_id         TEXT NOT NULL,
	feed_kind      TEXT NOT NULL,
	started_at     TIMESTAMPTZ NOT NULL,
	duration_ms    BIGINT NOT NULL,
	feed_timestamp BIGINT,
	records        INTEGER NOT NULL,
	partition_key  TEXT,
	result         TEXT NOT NULL,
	stage          TEXT,
	error          TEXT
)`

const insertRun = `INSERT INTO ingest_runs
	(run_id, feed_kind, started_at, duration_ms, feed_timestamp, records, partition_key, result, stage, error)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

type Journal interface {
	Record(ctx context.Context, outcome pipelines.Outcome) error
	Close()
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresJournal struct {
	db    execer
	close func()
}

// Connect opens a pool, checks it and creates the table when missing.
func Connect(ctx context.Context, cfg config.JournalConfig) (*PostgresJournal, error) {
	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("journal: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("journal: ping: %w", err)
	}
	j := &PostgresJournal{db: pool, close: pool.Close}
	if err := j.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return j, nil
}

func (j *PostgresJournal) EnsureSchema(ctx context.Context) error {
	if _, err := j.db.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("journal: create ingest_runs: %w", err)
	}
	return nil
}

func (j *PostgresJournal) Record(ctx context.Context, o pipelines.Outcome) error {
	var feedTimestamp *int64
	if o.FeedTimestamp > 0 {
		ts := int64(o.FeedTimestamp)
		feedTimestamp = &ts
	}
	var stage, errText *string
	if o.Err != nil {
		s, e := string(o.Stage), o.Err.Error()
		stage, errText = &s, &e
	}
	var key *string
	if o.Key != "" {
		key = &o.Key
	}
	_, err := j.db.Exec(ctx, insertRun,
		o.RunID,
		string(o.Kind),
		o.Start,
		o.Duration.Milliseconds(),
		feedTimestamp,
		o.Records,
		key,
		o.Result(),
		stage,
		errText,
	)
	if err != nil {
		return fmt.Errorf("journal: insert run %s: %w", o.RunID, err)
	}
	return nil
}

func (j *PostgresJournal) Close() {
	if j.close != nil {
		j.close()
	}
}

type NopJournal struct{}

func (NopJournal) Record(context.Context, pipelines.Outcome) error { return nil }
func (NopJournal) Close()                                          {}
