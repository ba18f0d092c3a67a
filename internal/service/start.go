package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/udisondev/hexbattle/internal/game/action"
	"github.com/udisondev/hexbattle/internal/game/effect"
	"github.com/udisondev/hexbattle/internal/game/turn"
	"github.com/udisondev/hexbattle/internal/hexgrid"
	"github.com/udisondev/hexbattle/internal/model"
)

// ErrInvalidSetup is returned when a battle cannot start with the given
// combatants.
var ErrInvalidSetup = errors.New("invalid battle setup")

// Rock assets initial barriers are drawn with.
var barrierAssets = []string{
	"Rock1_1", "Rock1_2", "Rock2_1", "Rock2_2",
	"Rock5_1", "Rock5_2", "Rock6_1", "Rock6_2",
}

// StartRequest describes a new battle. The first combatant is the
// attacker.
type StartRequest struct {
	Type          string             `json:"battleType"`
	Combatants    []*model.Combatant `json:"combatants"`
	HomeVillage   string             `json:"homeVillage,omitempty"`
	RewardScaling float64            `json:"rewardScaling,omitempty"`
}

// Start creates a battle: combatants roll initiative, free tiles may get a
// barrier and the battle opens after the lobby time.
func (s *Battles) Start(ctx context.Context, req StartRequest) (*model.Battle, error) {
	if len(req.Combatants) < 2 {
		return nil, fmt.Errorf("starting battle with %d combatants: %w", len(req.Combatants), ErrInvalidSetup)
	}
	if req.Type == "" {
		req.Type = model.TypeCombat
	}
	if req.RewardScaling <= 0 {
		req.RewardScaling = 1
	}

	id := uuid.NewString()
	rng := Seed(id, 0)
	grid := hexgrid.NewGrid(s.cfg.GridWidth, s.cfg.GridHeight)
	occupied := make(map[hexgrid.Hex]bool, len(req.Combatants))
	seen := make(map[string]bool, len(req.Combatants))
	for _, c := range req.Combatants {
		if c == nil || c.ID == "" || seen[c.ID] {
			return nil, fmt.Errorf("adding combatant without a unique id: %w", ErrInvalidSetup)
		}
		seen[c.ID] = true
		h := c.Hex()
		if !grid.Contains(h) {
			return nil, fmt.Errorf("placing %s at [%d, %d]: %w", c.Name, c.Latitude, c.Longitude, ErrInvalidSetup)
		}
		if occupied[h] {
			return nil, fmt.Errorf("placing %s on an occupied tile: %w", c.Name, ErrInvalidSetup)
		}
		occupied[h] = true

		c.IsOriginal = true
		c.ActionPoints = action.MaxActionPoints
		if req.Type == model.TypeKage {
			c.CurHealth, c.CurChakra, c.CurStamina = c.MaxHealth, c.MaxChakra, c.MaxStamina
			c.IsAI = true
			c.IsOriginal = false
		}
		c.UpdateHighest()
		c.Initiative = turn.RollInitiative(rng, c, req.HomeVillage)
	}

	rotation := turn.Rotation(req.Combatants)
	if req.Type == model.TypeArena {
		rotation = attackerFirst(rotation, req.Combatants[0].ID)
	}

	now := s.machine.Clock.Now()
	start := now
	if req.Type != model.TypeArena && req.Type != model.TypeKage {
		start = now.Add(s.cfg.LobbyDuration)
	}

	b := &model.Battle{
		ID:                id,
		Type:              req.Type,
		Combatants:        req.Combatants,
		GroundEffects:     initialBarriers(rng, grid, occupied, s.cfg.BarrierChance),
		ActiveCombatantID: rotation[0],
		Rotation:          rotation,
		Round:             1,
		RoundStartAt:      start,
		CreatedAt:         start,
		UpdatedAt:         start,
		Version:           1,
		Width:             s.cfg.GridWidth,
		Height:            s.cfg.GridHeight,
		RewardScaling:     req.RewardScaling,
	}
	if err := s.store.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("creating battle: %w", err)
	}

	slog.Info("battle started",
		"battle", b.ID,
		"type", b.Type,
		"combatants", len(b.Combatants),
		"barriers", len(b.GroundEffects),
		"active", b.ActiveCombatantID)
	s.notifier.Publish(ctx, Update{Battle: b})
	return b, nil
}

func attackerFirst(rotation []string, attacker string) []string {
	out := []string{attacker}
	for _, id := range rotation {
		if id != attacker {
			out = append(out, id)
		}
	}
	return out
}

// initialBarriers scatters weak barriers over free tiles.
func initialBarriers(rng *rand.Rand, grid *hexgrid.Grid, occupied map[hexgrid.Hex]bool, chance float64) effect.Tags {
	var out effect.Tags
	for _, h := range grid.Tiles() {
		if occupied[h] || rng.Float64() >= chance {
			continue
		}
		col, row := h.Offset()
		out = append(out, &effect.Barrier{
			Base: effect.Base{
				ID:              fmt.Sprintf("initial-%d-%d", col, row),
				CreatorID:       "ground",
				Power:           2,
				StaticAssetPath: barrierAssets[rng.IntN(len(barrierAssets))],
				Longitude:       col,
				Latitude:        row,
			},
			OriginalPower: 2,
		})
	}
	return out
}
