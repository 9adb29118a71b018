package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"caucion-alerts/internal/engine"
)

const (
	selectStateSQL = `SELECT payload, version FROM engine_state WHERE id = 1;`

	insertStateSQL = `INSERT INTO engine_state (id, payload, version)
    VALUES (1, $1, $2)
    ON CONFLICT (id) DO NOTHING;`

	updateStateSQL = `UPDATE engine_state
    SET payload = $1, version = $2, updated_at = now()
    WHERE id = 1 AND version = $3;`
)

// PGStore persists the record as a single versioned row. The WHERE
// version guard on the update is the compare-and-swap: a stale writer
// affects zero rows and aborts with ErrConflict.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore wires a pgx pool into a PGStore.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (p *PGStore) Load(ctx context.Context) (engine.EngineState, error) {
	var payload []byte
	var version int64
	err := p.pool.QueryRow(ctx, selectStateSQL).Scan(&payload, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return engine.NewState(), nil
	}
	if err != nil {
		return engine.EngineState{}, fmt.Errorf("load engine state: %w", err)
	}

	st := engine.NewState()
	if err := json.Unmarshal(payload, &st); err != nil {
		return engine.EngineState{}, fmt.Errorf("parse engine state: %w", err)
	}
	st.Version = version
	if st.Terms == nil {
		st.Terms = make(map[engine.Term]engine.AlertLevel)
	}
	return st, nil
}

func (p *PGStore) Commit(ctx context.Context, st engine.EngineState) error {
	next := st.Clone()
	next.Version = st.Version + 1

	payload, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("marshal engine state: %w", err)
	}

	if st.Version == 0 {
		tag, execErr := p.pool.Exec(ctx, insertStateSQL, payload, next.Version)
		if execErr != nil {
			return fmt.Errorf("insert engine state: %w", execErr)
		}
		if tag.RowsAffected() == 0 {
			return ErrConflict
		}
		return nil
	}

	tag, execErr := p.pool.Exec(ctx, updateStateSQL, payload, next.Version, st.Version)
	if execErr != nil {
		return fmt.Errorf("update engine state: %w", execErr)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

var _ Store = (*PGStore)(nil)
