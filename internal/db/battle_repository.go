package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/hexbattle/internal/model"
)

// BattleRepository stores battles as JSONB snapshots guarded by a version
// column.
type BattleRepository struct {
	pool *pgxpool.Pool
}

// NewBattleRepository creates a new BattleRepository.
func NewBattleRepository(pool *pgxpool.Pool) *BattleRepository {
	return &BattleRepository{pool: pool}
}

// Get loads a battle. It returns model.ErrBattleNotFound when no battle has
// the id.
func (r *BattleRepository) Get(ctx context.Context, id string) (*model.Battle, error) {
	var (
		state   []byte
		version int
	)
	err := r.pool.QueryRow(ctx,
		`SELECT state, version FROM battles WHERE id = $1`, id,
	).Scan(&state, &version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrBattleNotFound
		}
		return nil, fmt.Errorf("querying battle %s: %w", id, err)
	}

	var b model.Battle
	if err := json.Unmarshal(state, &b); err != nil {
		return nil, fmt.Errorf("decoding battle %s: %w", id, err)
	}
	b.Version = version
	return &b, nil
}

// Create inserts a new battle.
func (r *BattleRepository) Create(ctx context.Context, b *model.Battle) error {
	state, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encoding battle %s: %w", b.ID, err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO battles (id, battle_type, version, round, active_user_id, state, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		b.ID, b.Type, b.Version, b.Round, b.ActiveCombatantID, state, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting battle %s: %w", b.ID, err)
	}
	return nil
}

// Save writes the battle if the stored version is still readVersion, and
// appends the log entry in the same transaction. An over battle is deleted
// instead of updated. A version mismatch returns model.ErrStaleVersion.
func (r *BattleRepository) Save(ctx context.Context, b *model.Battle, readVersion int, over bool, entry model.ActionLog) error {
	state, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encoding battle %s: %w", b.ID, err)
	}
	effects, err := json.Marshal(entry.Effects)
	if err != nil {
		return fmt.Errorf("encoding log of battle %s: %w", b.ID, err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction for battle %s: %w", b.ID, err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("rollback failed", "battle", b.ID, "error", err)
		}
	}()

	var query string
	var args []any
	if over {
		query = `DELETE FROM battles WHERE id = $1 AND version = $2`
		args = []any{b.ID, readVersion}
	} else {
		query = `UPDATE battles
		         SET state = $1, version = $2, round = $3, active_user_id = $4, updated_at = $5
		         WHERE id = $6 AND version = $7`
		args = []any{state, b.Version, b.Round, b.ActiveCombatantID, b.UpdatedAt, b.ID, readVersion}
	}
	result, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("writing battle %s: %w", b.ID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("writing battle %s at version %d: %w", b.ID, readVersion, model.ErrStaleVersion)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO battle_actions (battle_id, round, actor_id, action_id, description, effects, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		b.ID, entry.Round, entry.ActorID, entry.ActionID, entry.Description, effects, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("logging action of battle %s: %w", b.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction for battle %s: %w", b.ID, err)
	}
	return nil
}

// ListActive returns the ids of stored battles, least recently updated
// first.
func (r *BattleRepository) ListActive(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM battles ORDER BY updated_at, id`)
	if err != nil {
		return nil, fmt.Errorf("querying active battles: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning active battles: %w", err)
	}
	return ids, nil
}

// History returns the logged actions of a battle in order.
func (r *BattleRepository) History(ctx context.Context, battleID string) ([]model.ActionLog, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT round, actor_id, action_id, description, effects, created_at
		 FROM battle_actions WHERE battle_id = $1 ORDER BY id`, battleID)
	if err != nil {
		return nil, fmt.Errorf("querying history of battle %s: %w", battleID, err)
	}
	defer rows.Close()

	var out []model.ActionLog
	for rows.Next() {
		e := model.ActionLog{BattleID: battleID}
		var effects []byte
		if err := rows.Scan(&e.Round, &e.ActorID, &e.ActionID, &e.Description, &effects, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning history of battle %s: %w", battleID, err)
		}
		if err := json.Unmarshal(effects, &e.Effects); err != nil {
			return nil, fmt.Errorf("decoding history of battle %s: %w", battleID, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history of battle %s: %w", battleID, err)
	}
	return out, nil
}
