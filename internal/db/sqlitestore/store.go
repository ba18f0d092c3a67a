// Package sqlitestore keeps battles in a SQLite file through gorm. It is
// the single-process alternative to the PostgreSQL repository.
package sqlitestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/udisondev/hexbattle/internal/model"
)

type battleRow struct {
	ID           string         `gorm:"primaryKey"`
	BattleType   string         `gorm:"size:16;not null"`
	Version      int            `gorm:"not null"`
	Round        int            `gorm:"not null"`
	ActiveUserID string         `gorm:"size:64"`
	State        datatypes.JSON `gorm:"not null"`
	CreatedAt    time.Time      `gorm:"autoCreateTime:false"`
	UpdatedAt    time.Time      `gorm:"index;autoUpdateTime:false"`
}

func (battleRow) TableName() string { return "battles" }

type actionRow struct {
	ID          uint   `gorm:"primaryKey"`
	BattleID    string `gorm:"index;not null"`
	Round       int
	ActorID     string
	ActionID    string
	Description string
	Effects     datatypes.JSON
	CreatedAt   time.Time `gorm:"autoCreateTime:false"`
}

func (actionRow) TableName() string { return "battle_actions" }

// Store persists battles in SQLite.
type Store struct {
	db *gorm.DB
}

// Open opens the database file and migrates its schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	if err := db.AutoMigrate(&battleRow{}, &actionRow{}); err != nil {
		return nil, fmt.Errorf("migrating sqlite %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting sqlite handle: %w", err)
	}
	return sqlDB.Close()
}

// Get loads a battle. It returns model.ErrBattleNotFound when no battle has
// the id.
func (s *Store) Get(ctx context.Context, id string) (*model.Battle, error) {
	var row battleRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrBattleNotFound
		}
		return nil, fmt.Errorf("querying battle %s: %w", id, err)
	}
	var b model.Battle
	if err := json.Unmarshal(row.State, &b); err != nil {
		return nil, fmt.Errorf("decoding battle %s: %w", id, err)
	}
	b.Version = row.Version
	return &b, nil
}

// Create inserts a new battle.
func (s *Store) Create(ctx context.Context, b *model.Battle) error {
	state, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encoding battle %s: %w", b.ID, err)
	}
	row := battleRow{
		ID:           b.ID,
		BattleType:   b.Type,
		Version:      b.Version,
		Round:        b.Round,
		ActiveUserID: b.ActiveCombatantID,
		State:        state,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("inserting battle %s: %w", b.ID, err)
	}
	return nil
}

// Save writes the battle if the stored version is still readVersion and
// logs the entry in the same transaction. Over battles are deleted.
func (s *Store) Save(ctx context.Context, b *model.Battle, readVersion int, over bool, entry model.ActionLog) error {
	state, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encoding battle %s: %w", b.ID, err)
	}
	effects, err := json.Marshal(entry.Effects)
	if err != nil {
		return fmt.Errorf("encoding log of battle %s: %w", b.ID, err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scope := tx.Where("id = ? AND version = ?", b.ID, readVersion)
		var res *gorm.DB
		if over {
			res = scope.Delete(&battleRow{})
		} else {
			res = scope.Model(&battleRow{}).Updates(map[string]any{
				"state":          datatypes.JSON(state),
				"version":        b.Version,
				"round":          b.Round,
				"active_user_id": b.ActiveCombatantID,
				"updated_at":     b.UpdatedAt,
			})
		}
		if res.Error != nil {
			return fmt.Errorf("writing battle %s: %w", b.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("writing battle %s at version %d: %w", b.ID, readVersion, model.ErrStaleVersion)
		}

		row := actionRow{
			BattleID:    b.ID,
			Round:       entry.Round,
			ActorID:     entry.ActorID,
			ActionID:    entry.ActionID,
			Description: entry.Description,
			Effects:     effects,
			CreatedAt:   entry.CreatedAt,
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("logging action of battle %s: %w", b.ID, err)
		}
		return nil
	})
}

// ListActive returns the ids of stored battles, least recently updated
// first.
func (s *Store) ListActive(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&battleRow{}).Order("updated_at, id").Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("querying active battles: %w", err)
	}
	return ids, nil
}

// History returns the logged actions of a battle in order.
func (s *Store) History(ctx context.Context, battleID string) ([]model.ActionLog, error) {
	var rows []actionRow
	if err := s.db.WithContext(ctx).Where("battle_id = ?", battleID).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying history of battle %s: %w", battleID, err)
	}
	out := make([]model.ActionLog, 0, len(rows))
	for _, r := range rows {
		e := model.ActionLog{
			BattleID:    r.BattleID,
			Round:       r.Round,
			ActorID:     r.ActorID,
			ActionID:    r.ActionID,
			Description: r.Description,
			CreatedAt:   r.CreatedAt,
		}
		if len(r.Effects) > 0 {
			if err := json.Unmarshal(r.Effects, &e.Effects); err != nil {
				return nil, fmt.Errorf("decoding history of battle %s: %w", battleID, err)
			}
		}
		out = append(out, e)
	}
	return out, nil
}
