// Package runstore persists the rows each batch run writes to its TREC file
// in PostgreSQL, so runs can be compared without keeping result files.
package runstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/resilience"
)

const schema = `CREATE TABLE IF NOT EXISTS run_results (
	run_id      TEXT             NOT NULL,
	query_id    TEXT             NOT NULL,
	rank        INTEGER          NOT NULL,
	external_id TEXT             NOT NULL,
	score       DOUBLE PRECISION NOT NULL,
	model       TEXT             NOT NULL,
	created_at  TIMESTAMPTZ      NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, query_id, rank)
)`

// Execer is the part of *sql.Tx the store writes through.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// TxFunc runs fn in a transaction that commits only when fn succeeds.
type TxFunc func(ctx context.Context, fn func(Execer) error) error

type Store struct {
	inTx   TxFunc
	retry  resilience.RetryConfig
	logger *slog.Logger
}

// New writes through client's connection pool.
func New(client *postgres.Client) *Store {
	return NewWithTx(func(ctx context.Context, fn func(Execer) error) error {
		return client.InTx(ctx, func(tx *sql.Tx) error { return fn(tx) })
	})
}

func NewWithTx(inTx TxFunc) *Store {
	return &Store{
		inTx: inTx,
		retry: resilience.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
		},
		logger: slog.Default().With("component", "runstore"),
	}
}

// EnsureSchema creates the run_results table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.inTx(ctx, func(tx Execer) error {
		if _, err := tx.ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("creating run_results: %w", err)
		}
		return nil
	})
}

// SaveQuery replaces the stored rows of (runID, queryID) with docs, ranked
// from 1 in slice order. Transient failures are retried with backoff.
func (s *Store) SaveQuery(ctx context.Context, runID, queryID, model string, docs []ranker.ScoredDoc) error {
	err := resilience.Retry(ctx, "runstore-save", s.retry, func() error {
		return s.inTx(ctx, func(tx Execer) error {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM run_results WHERE run_id = $1 AND query_id = $2`,
				runID, queryID,
			); err != nil {
				return fmt.Errorf("clearing previous rows: %w", err)
			}
			for i, d := range docs {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO run_results (run_id, query_id, rank, external_id, score, model) VALUES ($1, $2, $3, $4, $5, $6)`,
					runID, queryID, i+1, d.ExternalID, d.Score, model,
				); err != nil {
					return fmt.Errorf("inserting rank %d: %w", i+1, err)
				}
			}
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("saving run %s query %s: %w", runID, queryID, err)
	}
	s.logger.Debug("run results saved", "run_id", runID, "query_id", queryID, "rows", len(docs))
	return nil
}
