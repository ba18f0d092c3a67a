package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/udisondev/hexbattle/internal/model"
	"github.com/udisondev/hexbattle/internal/testutil"
)

type BattleRepositorySuite struct {
	suite.Suite
	repo *BattleRepository
	ctx  context.Context
}

func (s *BattleRepositorySuite) SetupSuite() {
	s.ctx = testutil.ContextWithTimeout(s.T(), 5*time.Minute)
	s.repo = NewBattleRepository(testutil.SetupTestDB(s.T()))
}

func (s *BattleRepositorySuite) SetupTest() {
	_, err := s.repo.pool.Exec(s.ctx, "TRUNCATE TABLE battles, battle_actions")
	s.Require().NoError(err)
}

func (s *BattleRepositorySuite) TestCreateAndGet() {
	b := testutil.Duel("b1")
	s.Require().NoError(s.repo.Create(s.ctx, b))

	got, err := s.repo.Get(s.ctx, "b1")
	s.Require().NoError(err)
	s.Equal(b.ID, got.ID)
	s.Equal(1, got.Version)
	s.Require().Len(got.Combatants, 2)
	s.Equal("a", got.ActiveCombatantID)
	s.True(b.RoundStartAt.Equal(got.RoundStartAt))

	_, err = s.repo.Get(s.ctx, "missing")
	s.ErrorIs(err, model.ErrBattleNotFound)
}

func (s *BattleRepositorySuite) TestSaveIsConditional() {
	b := testutil.Duel("b1")
	s.Require().NoError(s.repo.Create(s.ctx, b))

	b.Version = 2
	b.Round = 2
	b.Find("b").CurHealth = 60
	entry := model.ActionLog{
		BattleID: "b1", Round: 1, ActorID: "a", ActionID: "sp", Description: "a strikes b",
		Effects:   []model.ActionEffect{{Text: "b takes 40.00 damage", Color: model.ColorRed}},
		CreatedAt: testutil.Epoch,
	}
	s.Require().NoError(s.repo.Save(s.ctx, b, 1, false, entry))

	// A writer that read version 1 lost the race.
	err := s.repo.Save(s.ctx, b, 1, false, entry)
	s.ErrorIs(err, model.ErrStaleVersion)

	got, err := s.repo.Get(s.ctx, "b1")
	s.Require().NoError(err)
	s.Equal(2, got.Version)
	s.InDelta(60, got.Find("b").CurHealth, 0)

	history, err := s.repo.History(s.ctx, "b1")
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal("a strikes b", history[0].Description)
	s.Equal(entry.Effects, history[0].Effects)
}

func (s *BattleRepositorySuite) TestSaveOverDeletes() {
	b := testutil.Duel("b1")
	s.Require().NoError(s.repo.Create(s.ctx, b))
	b.Version = 2
	s.Require().NoError(s.repo.Save(s.ctx, b, 1, true, model.ActionLog{BattleID: "b1", CreatedAt: testutil.Epoch}))

	_, err := s.repo.Get(s.ctx, "b1")
	s.ErrorIs(err, model.ErrBattleNotFound)

	history, err := s.repo.History(s.ctx, "b1")
	s.Require().NoError(err)
	s.Len(history, 1, "history outlives the battle")
}

func (s *BattleRepositorySuite) TestListActive() {
	older := testutil.Duel("older")
	newer := testutil.Duel("newer")
	newer.UpdatedAt = older.UpdatedAt.Add(time.Minute)
	s.Require().NoError(s.repo.Create(s.ctx, newer))
	s.Require().NoError(s.repo.Create(s.ctx, older))

	ids, err := s.repo.ListActive(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"older", "newer"}, ids)
}

func TestBattleRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping database tests in short mode")
	}
	suite.Run(t, new(BattleRepositorySuite))
}
