// Package runstore persists the ranked predictions of retrieval runs in
// PostgreSQL or SQLite so evaluations can be compared later.
//
// Both backends share one schema:
//
//	CREATE TABLE prediction_runs (
//	    id         TEXT PRIMARY KEY,
//	    dataset    TEXT NOT NULL,
//	    mode       TEXT NOT NULL,
//	    similarity TEXT NOT NULL,
//	    k          INTEGER NOT NULL,
//	    created_at BIGINT NOT NULL  -- unix microseconds
//	);
//	CREATE TABLE predictions (
//	    run_id   TEXT NOT NULL REFERENCES prediction_runs(id) ON DELETE CASCADE,
//	    query_id TEXT NOT NULL,
//	    rank     INTEGER NOT NULL,
//	    type     TEXT NOT NULL,
//	    score    DOUBLE PRECISION NOT NULL,
//	    PRIMARY KEY (run_id, query_id, rank)
//	);
package runstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/retrieval"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/searchindex"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/sqlite"
)

var ErrRunNotFound = errors.New("prediction run not found")

// Run describes one scored pass over a dataset.
type Run struct {
	ID         uuid.UUID `json:"id"`
	Dataset    string    `json:"dataset"`
	Mode       string    `json:"mode"`
	Similarity string    `json:"similarity"`
	K          int       `json:"k"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewRun stamps a fresh run ID and creation time.
func NewRun(dataset string, mode retrieval.Mode, sim retrieval.Similarity, k int) Run {
	return Run{
		ID:         uuid.New(),
		Dataset:    dataset,
		Mode:       mode.String(),
		Similarity: sim.String(),
		K:          k,
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
}

type Store interface {
	Migrate(ctx context.Context) error
	SaveRun(ctx context.Context, run Run, results retrieval.Results) error
	LoadRun(ctx context.Context, id uuid.UUID) (Run, retrieval.Results, error)
	LatestRun(ctx context.Context, dataset, mode string) (Run, error)
}

type dialect int

const (
	dialectPostgres dialect = iota
	dialectSQLite
)

// SQLStore implements Store on database/sql for either backend.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	logger  *slog.Logger
}

var _ Store = (*SQLStore)(nil)

func NewPostgresStore(c *postgres.Client) *SQLStore {
	return &SQLStore{
		db:      c.DB,
		dialect: dialectPostgres,
		logger:  slog.Default().With("component", "runstore", "backend", "postgres"),
	}
}

func NewSQLiteStore(c *sqlite.Client) *SQLStore {
	return &SQLStore{
		db:      c.DB,
		dialect: dialectSQLite,
		logger:  slog.Default().With("component", "runstore", "backend", "sqlite"),
	}
}

// rebind rewrites $n placeholders for SQLite.
func (s *SQLStore) rebind(query string) string {
	if s.dialect == dialectPostgres {
		return query
	}
	var b strings.Builder
	for i := 0; i < len(query); i++ {
		if query[i] == '$' && i+1 < len(query) && query[i+1] >= '0' && query[i+1] <= '9' {
			b.WriteByte('?')
			for i+1 < len(query) && query[i+1] >= '0' && query[i+1] <= '9' {
				i++
			}
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// Migrate creates the schema when it does not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS prediction_runs (
			id         TEXT PRIMARY KEY,
			dataset    TEXT NOT NULL,
			mode       TEXT NOT NULL,
			similarity TEXT NOT NULL,
			k          INTEGER NOT NULL,
			created_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS predictions (
			run_id   TEXT NOT NULL REFERENCES prediction_runs(id) ON DELETE CASCADE,
			query_id TEXT NOT NULL,
			rank     INTEGER NOT NULL,
			type     TEXT NOT NULL,
			score    DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (run_id, query_id, rank)
		)`,
		`CREATE INDEX IF NOT EXISTS prediction_runs_lookup ON prediction_runs (dataset, mode, created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrating run store: %w", err)
		}
	}
	return nil
}

// SaveRun writes run and its rankings in one transaction, retrying transient
// failures.
func (s *SQLStore) SaveRun(ctx context.Context, run Run, results retrieval.Results) error {
	qids := make([]string, 0, len(results))
	for qid := range results {
		qids = append(qids, qid)
	}
	sort.Strings(qids)

	rows := 0
	err := resilience.Retry(ctx, "runstore-save", resilience.RetryConfig{MaxAttempts: 3, InitialDelay: 200 * time.Millisecond}, func() error {
		rows = 0
		return postgres.InTx(ctx, s.db, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, s.rebind(
				`INSERT INTO prediction_runs (id, dataset, mode, similarity, k, created_at) VALUES ($1, $2, $3, $4, $5, $6)`),
				run.ID.String(), run.Dataset, run.Mode, run.Similarity, run.K, run.CreatedAt.UnixMicro(),
			)
			if err != nil {
				return fmt.Errorf("inserting run: %w", err)
			}
			stmt, err := tx.PrepareContext(ctx, s.rebind(
				`INSERT INTO predictions (run_id, query_id, rank, type, score) VALUES ($1, $2, $3, $4, $5)`))
			if err != nil {
				return fmt.Errorf("preparing prediction insert: %w", err)
			}
			defer stmt.Close()
			for _, qid := range qids {
				for rank, hit := range results[qid] {
					if _, err := stmt.ExecContext(ctx, run.ID.String(), qid, rank+1, hit.ID, hit.Score); err != nil {
						return fmt.Errorf("inserting prediction %s/%d: %w", qid, rank+1, err)
					}
					rows++
				}
			}
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("saving run %s: %w", run.ID, err)
	}
	s.logger.Info("prediction run saved",
		"run_id", run.ID.String(),
		"dataset", run.Dataset,
		"mode", run.Mode,
		"queries", len(qids),
		"predictions", rows,
	)
	return nil
}

func (s *SQLStore) scanRun(row *sql.Row) (Run, error) {
	var (
		run     Run
		id      string
		created int64
	)
	err := row.Scan(&id, &run.Dataset, &run.Mode, &run.Similarity, &run.K, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("scanning run: %w", err)
	}
	if run.ID, err = uuid.Parse(id); err != nil {
		return Run{}, fmt.Errorf("parsing run id %q: %w", id, err)
	}
	run.CreatedAt = time.UnixMicro(created).UTC()
	return run, nil
}

// LoadRun returns run id with its rankings.
func (s *SQLStore) LoadRun(ctx context.Context, id uuid.UUID) (Run, retrieval.Results, error) {
	run, err := s.scanRun(s.db.QueryRowContext(ctx, s.rebind(
		`SELECT id, dataset, mode, similarity, k, created_at FROM prediction_runs WHERE id = $1`),
		id.String(),
	))
	if err != nil {
		return Run{}, nil, err
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT query_id, type, score FROM predictions WHERE run_id = $1 ORDER BY query_id, rank`),
		id.String(),
	)
	if err != nil {
		return Run{}, nil, fmt.Errorf("listing predictions: %w", err)
	}
	defer rows.Close()

	results := make(retrieval.Results)
	for rows.Next() {
		var (
			qid string
			hit searchindex.ScoredHit
		)
		if err := rows.Scan(&qid, &hit.ID, &hit.Score); err != nil {
			return Run{}, nil, fmt.Errorf("scanning prediction row: %w", err)
		}
		results[qid] = append(results[qid], hit)
	}
	if err := rows.Err(); err != nil {
		return Run{}, nil, err
	}
	return run, results, nil
}

// LatestRun returns the newest run of dataset in mode. An empty mode matches
// every mode.
func (s *SQLStore) LatestRun(ctx context.Context, dataset, mode string) (Run, error) {
	query := `SELECT id, dataset, mode, similarity, k, created_at FROM prediction_runs WHERE dataset = $1`
	args := []any{dataset}
	if mode != "" {
		query += ` AND mode = $` + strconv.Itoa(len(args)+1)
		args = append(args, mode)
	}
	query += ` ORDER BY created_at DESC LIMIT 1`
	return s.scanRun(s.db.QueryRowContext(ctx, s.rebind(query), args...))
}
