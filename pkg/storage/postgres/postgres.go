// Package postgres provides a PostgreSQL implementation of
// storage.HistoryStore using pgx/v5 connection pooling.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rhuss/webconsole/pkg/storage"
)

// Store is a PostgreSQL-backed HistoryStore.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements storage.HistoryStore at compile time.
var _ storage.HistoryStore = (*Store)(nil)

const selectColumns = `id, session_id, line, query, result, failed, subject, duration_ms, created_at`

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// Append inserts an evaluation record.
func (s *Store) Append(ctx context.Context, e *storage.Entry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO console_history (`+selectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		e.ID, e.SessionID, e.Line, e.Query, e.Result, e.Failed, e.Subject, e.DurationMS, e.CreatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("inserting history entry: %w", err)
	}
	return nil
}

// Get retrieves an entry by ID.
func (s *Store) Get(ctx context.Context, id string) (*storage.Entry, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM console_history WHERE id = $1`, id)

	e, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying history entry: %w", err)
	}
	return e, nil
}

// List returns matching entries, newest first.
func (s *Store) List(ctx context.Context, opts storage.ListOptions) ([]*storage.Entry, error) {
	opts = opts.Normalize()

	var where []string
	var args []any
	if opts.SessionID != "" {
		args = append(args, opts.SessionID)
		where = append(where, fmt.Sprintf("session_id = $%d", len(args)))
	}
	if opts.Subject != "" {
		args = append(args, opts.Subject)
		where = append(where, fmt.Sprintf("subject = $%d", len(args)))
	}

	query := `SELECT ` + selectColumns + ` FROM console_history`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, opts.Limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC, line DESC LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	defer rows.Close()

	out := []*storage.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning history entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	return out, nil
}

// Clear deletes every entry.
func (s *Store) Clear(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM console_history")
	if err != nil {
		return 0, fmt.Errorf("clearing history: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanEntry(row pgx.Row) (*storage.Entry, error) {
	var e storage.Entry
	err := row.Scan(
		&e.ID, &e.SessionID, &e.Line, &e.Query, &e.Result,
		&e.Failed, &e.Subject, &e.DurationMS, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// isDuplicateKey reports a PostgreSQL unique violation (23505).
func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
