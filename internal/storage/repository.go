package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"caucion-alerts/internal/engine"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	createSchemaSQL = `
    CREATE TABLE IF NOT EXISTS rate_history (
        observed_at timestamptz NOT NULL,
        term        text        NOT NULL,
        run_id      text        NOT NULL,
        tna         numeric     NOT NULL,
        net_daily   numeric     NOT NULL,
        level       text        NOT NULL,
        source      text        NOT NULL DEFAULT '',
        created_at  timestamptz NOT NULL DEFAULT now(),
        PRIMARY KEY (observed_at, term)
    );
    CREATE TABLE IF NOT EXISTS transitions (
        id          bigserial PRIMARY KEY,
        run_id      text        NOT NULL,
        term        text        NOT NULL,
        from_level  text        NOT NULL,
        to_level    text        NOT NULL,
        direction   text        NOT NULL,
        tna         numeric     NOT NULL,
        observed_at timestamptz NOT NULL,
        created_at  timestamptz NOT NULL DEFAULT now()
    );
    CREATE TABLE IF NOT EXISTS engine_state (
        id         smallint PRIMARY KEY CHECK (id = 1),
        payload    jsonb       NOT NULL,
        version    bigint      NOT NULL,
        updated_at timestamptz NOT NULL DEFAULT now()
    );`

	insertHistorySQL = `INSERT INTO rate_history (
        observed_at, term, run_id, tna, net_daily, level, source
    ) VALUES ($1,$2,$3,$4,$5,$6,$7)
    ON CONFLICT (observed_at, term) DO NOTHING;`

	listHistoryBetweenSQL = `SELECT
        observed_at, term, run_id, tna, net_daily, level, source, created_at
    FROM rate_history
    WHERE observed_at >= $1 AND observed_at < $2
    ORDER BY observed_at;`

	listRecentHistorySQL = `SELECT
        observed_at, term, run_id, tna, net_daily, level, source, created_at
    FROM rate_history
    ORDER BY observed_at DESC
    LIMIT $1;`

	countHistorySQL = `SELECT COUNT(*) FROM rate_history;`

	insertTransitionSQL = `INSERT INTO transitions (
        run_id, term, from_level, to_level, direction, tna, observed_at
    ) VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id, created_at;`

	listRecentTransitionsSQL = `SELECT
        id, run_id, term, from_level, to_level, direction, tna, observed_at, created_at
    FROM transitions
    ORDER BY created_at DESC
    LIMIT $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// HistoryStore defines operations for rate history persistence.
type HistoryStore interface {
	AppendHistory(ctx context.Context, rows []HistoryRow) (int, error)
	ListHistoryBetween(ctx context.Context, from, to time.Time) ([]HistoryRow, error)
	ListRecentHistory(ctx context.Context, limit int) ([]HistoryRow, error)
	CountHistory(ctx context.Context) (int64, error)
}

// TransitionStore defines operations for transition auditing.
type TransitionStore interface {
	InsertTransition(ctx context.Context, rec TransitionRecord) (TransitionRecord, error)
	ListRecentTransitions(ctx context.Context, limit int) ([]TransitionRecord, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to history and transition tables.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Pool exposes the underlying pool for collaborators that share the
// connection, such as the Postgres state backend.
func (s *Store) Pool() *pgxpool.Pool {
	if s == nil {
		return nil
	}
	return s.pool
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, createSchemaSQL); execErr != nil {
		return fmt.Errorf("ensure schema: %w", execErr)
	}
	return nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// unlock is best effort; the session drop releases it anyway
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// AppendHistory inserts the cycle's rows, skipping duplicates, and
// returns how many actually landed.
func (s *Store) AppendHistory(ctx context.Context, rows []HistoryRow) (int, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}

	wrote := 0
	for _, row := range rows {
		tag, execErr := pool.Exec(ctx, insertHistorySQL,
			row.ObservedAt,
			string(row.Term),
			row.RunID,
			row.TNA.String(),
			row.NetDailyRate.String(),
			row.Level,
			row.Source,
		)
		if execErr != nil {
			return wrote, fmt.Errorf("append history row: %w", execErr)
		}
		wrote += int(tag.RowsAffected())
	}
	return wrote, nil
}

// ListHistoryBetween lists rows within a time window.
func (s *Store) ListHistoryBetween(ctx context.Context, from, to time.Time) ([]HistoryRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listHistoryBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list history between: %w", queryErr)
	}
	defer rows.Close()

	return collectHistory(rows, 0)
}

// ListRecentHistory lists the most recent rows ordered by descending timestamp.
func (s *Store) ListRecentHistory(ctx context.Context, limit int) ([]HistoryRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentHistorySQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent history: %w", queryErr)
	}
	defer rows.Close()

	return collectHistory(rows, limit)
}

// CountHistory counts stored rows.
func (s *Store) CountHistory(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countHistorySQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count history: %w", scanErr)
	}
	return count, nil
}

// InsertTransition persists a fired edge.
func (s *Store) InsertTransition(ctx context.Context, rec TransitionRecord) (TransitionRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return TransitionRecord{}, err
	}

	row := pool.QueryRow(ctx, insertTransitionSQL,
		rec.RunID,
		string(rec.Term),
		rec.FromLevel,
		rec.ToLevel,
		rec.Direction,
		rec.TNA.String(),
		rec.ObservedAt,
	)
	if scanErr := row.Scan(&rec.ID, &rec.CreatedAt); scanErr != nil {
		return TransitionRecord{}, fmt.Errorf("insert transition: %w", scanErr)
	}
	return rec, nil
}

// ListRecentTransitions lists most recent fired edges.
func (s *Store) ListRecentTransitions(ctx context.Context, limit int) ([]TransitionRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentTransitionsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent transitions: %w", queryErr)
	}
	defer rows.Close()

	records := make([]TransitionRecord, 0, limit)
	for rows.Next() {
		var rec TransitionRecord
		var term, tnaStr string
		if err := rows.Scan(
			&rec.ID,
			&rec.RunID,
			&term,
			&rec.FromLevel,
			&rec.ToLevel,
			&rec.Direction,
			&tnaStr,
			&rec.ObservedAt,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}

		tna, convErr := decimal.NewFromString(tnaStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse transition tna: %w", convErr)
		}
		rec.Term = engine.Term(term)
		rec.TNA = tna
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

func collectHistory(rows pgx.Rows, sizeHint int) ([]HistoryRow, error) {
	out := make([]HistoryRow, 0, sizeHint)
	for rows.Next() {
		row, scanErr := scanHistoryRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, row)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func scanHistoryRow(rows pgx.Rows) (HistoryRow, error) {
	var (
		observedAt time.Time
		term       string
		runID      string
		tnaStr     string
		netStr     string
		level      string
		source     string
		createdAt  time.Time
	)

	if err := rows.Scan(
		&observedAt,
		&term,
		&runID,
		&tnaStr,
		&netStr,
		&level,
		&source,
		&createdAt,
	); err != nil {
		return HistoryRow{}, err
	}

	tna, err := decimal.NewFromString(tnaStr)
	if err != nil {
		return HistoryRow{}, fmt.Errorf("parse tna: %w", err)
	}
	net, err := decimal.NewFromString(netStr)
	if err != nil {
		return HistoryRow{}, fmt.Errorf("parse net daily rate: %w", err)
	}

	return HistoryRow{
		RunID:        runID,
		Term:         engine.Term(term),
		TNA:          tna,
		NetDailyRate: net,
		Level:        level,
		Source:       source,
		ObservedAt:   observedAt,
		CreatedAt:    createdAt,
	}, nil
}
