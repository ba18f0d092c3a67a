package config

import (
	"time"

	"github.com/udisondev/hexbattle/internal/game/combat"
	"github.com/udisondev/hexbattle/internal/model"
	"github.com/udisondev/hexbattle/internal/service"
)

// Combat holds the rules of battles.
type Combat struct {
	RoundDuration time.Duration `yaml:"round_duration"` // time a combatant has to act (default: 30s)
	LobbyDuration time.Duration `yaml:"lobby_duration"` // wait before a regular battle opens (default: 5s)
	TickInterval  time.Duration `yaml:"tick_interval"`  // how often timed out turns are passed (default: 1s)

	GridWidth     int     `yaml:"grid_width"`
	GridHeight    int     `yaml:"grid_height"`
	BarrierChance float64 `yaml:"barrier_chance"`

	// MaxRetries bounds how often a submit is retried after losing a
	// concurrent write.
	MaxRetries int `yaml:"max_retries"`

	AbsorbCap float64        `yaml:"absorb_cap"`
	Formula   combat.Formula `yaml:"formula"`
}

// DefaultCombat returns Combat with the standard rules.
func DefaultCombat() Combat {
	svc := service.DefaultConfig()
	return Combat{
		RoundDuration: 30 * time.Second,
		LobbyDuration: svc.LobbyDuration,
		TickInterval:  time.Second,
		GridWidth:     svc.GridWidth,
		GridHeight:    svc.GridHeight,
		BarrierChance: svc.BarrierChance,
		MaxRetries:    svc.MaxRetries,
		AbsorbCap:     combat.DefaultAbsorbCap,
		Formula:       combat.DefaultFormula(),
	}
}

// Service returns the battle service settings.
func (c Combat) Service() service.Config {
	return service.Config{
		MaxRetries:    c.MaxRetries,
		LobbyDuration: c.LobbyDuration,
		GridWidth:     c.GridWidth,
		GridHeight:    c.GridHeight,
		BarrierChance: c.BarrierChance,
	}
}

// Engine returns the resolver options with the companion templates keyed
// by id.
func (c Combat) Engine(companions []model.Companion) combat.Options {
	byID := make(map[string]model.Companion, len(companions))
	for _, t := range companions {
		byID[t.ID] = t
	}
	return combat.Options{
		Formula:    c.Formula,
		Companions: byID,
		AbsorbCap:  c.AbsorbCap,
	}
}
