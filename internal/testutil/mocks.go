package testutil

import (
	"context"
	"slices"
	"sync"

	"github.com/udisondev/hexbattle/internal/model"
)

// MemoryStore is an in-memory battle store for unit tests. It follows the
// conditional write rules of the database stores and does not require
// PostgreSQL.
type MemoryStore struct {
	mu      sync.Mutex
	battles map[string]*model.Battle
	logs    []model.ActionLog
	saves   int
	// conflicts makes the next Saves fail as if another writer won.
	conflicts int
	// Err, when set, is returned by every call.
	Err error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{battles: make(map[string]*model.Battle)}
}

// Get returns a copy of the stored battle.
func (m *MemoryStore) Get(_ context.Context, id string) (*model.Battle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	b, ok := m.battles[id]
	if !ok {
		return nil, model.ErrBattleNotFound
	}
	return b.Clone()
}

// Create stores a copy of the battle, replacing any battle with the id.
func (m *MemoryStore) Create(_ context.Context, b *model.Battle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	c, err := b.Clone()
	if err != nil {
		return err
	}
	m.battles[b.ID] = c
	return nil
}

// Save writes the battle when the stored version is readVersion.
func (m *MemoryStore) Save(_ context.Context, b *model.Battle, readVersion int, over bool, entry model.ActionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.Err != nil {
		return m.Err
	}
	if m.conflicts > 0 {
		m.conflicts--
		return model.ErrStaleVersion
	}
	cur, ok := m.battles[b.ID]
	if !ok {
		return model.ErrBattleNotFound
	}
	if cur.Version != readVersion {
		return model.ErrStaleVersion
	}
	m.logs = append(m.logs, entry)
	if over {
		delete(m.battles, b.ID)
		return nil
	}
	c, err := b.Clone()
	if err != nil {
		return err
	}
	m.battles[b.ID] = c
	return nil
}

// ListActive returns the stored battle ids in order.
func (m *MemoryStore) ListActive(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	ids := make([]string, 0, len(m.battles))
	for id := range m.battles {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// FailNextSaves makes the next n saves report a stale version.
func (m *MemoryStore) FailNextSaves(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conflicts = n
}

// Saves returns how many times Save was called.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Logs returns the saved log entries.
func (m *MemoryStore) Logs() []model.ActionLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.logs)
}

// History returns the saved log entries of a battle.
func (m *MemoryStore) History(_ context.Context, battleID string) ([]model.ActionLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []model.ActionLog
	for _, e := range m.logs {
		if e.BattleID == battleID {
			out = append(out, e)
		}
	}
	return out, nil
}
