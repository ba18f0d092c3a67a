// Package service runs the submit-and-resolve cycle of battles on top of a
// store and a notifier.
package service

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/udisondev/hexbattle/internal/game/action"
	"github.com/udisondev/hexbattle/internal/game/combat"
	"github.com/udisondev/hexbattle/internal/game/outcome"
	"github.com/udisondev/hexbattle/internal/game/turn"
	"github.com/udisondev/hexbattle/internal/model"
)

var (
	// ErrConflict is returned when concurrent writers kept winning the
	// battle for every retry.
	ErrConflict = errors.New("battle changed concurrently")
	// ErrOutdated is returned when the request was made against an older
	// battle version than the stored one.
	ErrOutdated = errors.New("battle version is outdated")
	// ErrNotController is returned when the user does not control the actor.
	ErrNotController = errors.New("user does not control the actor")
	// ErrNotYourTurn is returned when the actor is not the active combatant.
	ErrNotYourTurn = errors.New("not the actor's turn")
	// ErrNoTargets is returned when an action affects no tile.
	ErrNoTargets = errors.New("action affects nothing")
)

// Store persists battles. Save is a conditional write: it fails with
// model.ErrStaleVersion when the stored version is not readVersion. Over
// battles are removed once saved.
type Store interface {
	Get(ctx context.Context, id string) (*model.Battle, error)
	Create(ctx context.Context, b *model.Battle) error
	Save(ctx context.Context, b *model.Battle, readVersion int, over bool, entry model.ActionLog) error
	ListActive(ctx context.Context) ([]string, error)
}

// Update is what viewers receive after a battle changed.
type Update struct {
	Battle   *model.Battle
	Log      []model.ActionEffect
	Outcomes map[string]*outcome.Outcome
	Over     bool
}

// Notifier fans battle updates out to viewers.
type Notifier interface {
	Publish(ctx context.Context, u Update)
}

// ActionRequest is one submitted action.
type ActionRequest struct {
	BattleID  string `json:"battleId"`
	UserID    string `json:"userId"`
	ActorID   string `json:"actorId"`
	ActionID  string `json:"actionId"`
	Longitude int    `json:"longitude"`
	Latitude  int    `json:"latitude"`
	// Version is the battle version the request was made against. Zero
	// skips the check.
	Version int `json:"version"`
}

// Result is the state after a submit.
type Result struct {
	Battle      *model.Battle
	Description string
	Log         []model.ActionEffect
	Outcomes    map[string]*outcome.Outcome
	Over        bool
}

// Config tunes the service.
type Config struct {
	MaxRetries    int
	LobbyDuration time.Duration
	GridWidth     int
	GridHeight    int
	// BarrierChance is the probability a free tile starts with a barrier.
	BarrierChance float64
}

// DefaultConfig returns the default service settings.
func DefaultConfig() Config {
	return Config{
		MaxRetries:    3,
		LobbyDuration: 5 * time.Second,
		GridWidth:     13,
		GridHeight:    5,
		BarrierChance: 0.1,
	}
}

// Battles orchestrates battle state changes.
type Battles struct {
	store    Store
	notifier Notifier
	machine  *turn.Machine
	engine   combat.Options
	cfg      Config
}

// New creates the battle service. A nil notifier drops updates.
func New(store Store, notifier Notifier, machine *turn.Machine, engine combat.Options, cfg Config) *Battles {
	if notifier == nil {
		notifier = discard{}
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Battles{store: store, notifier: notifier, machine: machine, engine: engine, cfg: cfg}
}

type discard struct{}

func (discard) Publish(context.Context, Update) {}

// Seed returns the random source for resolving a battle at a version. The
// same battle and version always roll the same numbers.
func Seed(battleID string, version int) *rand.Rand {
	sum := blake2b.Sum256(fmt.Appendf(nil, "%s:%d", battleID, version))
	return rand.New(rand.NewPCG(binary.LittleEndian.Uint64(sum[:8]), binary.LittleEndian.Uint64(sum[8:16])))
}

// Get returns the battle brought up to date with the clock. The aligned
// state is not persisted.
func (s *Battles) Get(ctx context.Context, id string) (*model.Battle, error) {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading battle %s: %w", id, err)
	}
	if !b.CreatedAt.After(s.machine.Clock.Now()) {
		s.machine.Align(b)
	}
	return b, nil
}

// Submit performs an action and resolves the battle. When another writer
// saved the battle first, the whole cycle is retried on the fresh state.
func (s *Battles) Submit(ctx context.Context, req ActionRequest) (*Result, error) {
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		res, err := s.submit(ctx, req, attempt == 0)
		if errors.Is(err, model.ErrStaleVersion) {
			slog.Debug("battle changed during submit, retrying",
				"battle", req.BattleID,
				"attempt", attempt+1)
			continue
		}
		return res, err
	}
	return nil, fmt.Errorf("submitting to battle %s: %w", req.BattleID, ErrConflict)
}

// submit runs one attempt. The client's version is only checked on the
// first attempt; retries run against whatever the store holds after a
// concurrent write.
func (s *Battles) submit(ctx context.Context, req ActionRequest, first bool) (*Result, error) {
	b, err := s.store.Get(ctx, req.BattleID)
	if err != nil {
		return nil, fmt.Errorf("loading battle %s: %w", req.BattleID, err)
	}
	if first && req.Version != 0 && req.Version != b.Version {
		return nil, fmt.Errorf("battle %s at version %d: %w", b.ID, b.Version, ErrOutdated)
	}
	read := b.Version
	now := s.machine.Clock.Now()
	if b.CreatedAt.After(now) {
		return nil, fmt.Errorf("battle %s starts at %s: %w", b.ID, b.CreatedAt.Format(time.RFC3339), action.ErrBattleNotStarted)
	}
	s.machine.Align(b)

	actor := b.Find(req.ActorID)
	switch {
	case actor == nil || !actor.Alive():
		return nil, fmt.Errorf("acting as %s: %w", req.ActorID, action.ErrActorNotFound)
	case actor.ControllerID != req.UserID:
		return nil, fmt.Errorf("acting as %s: %w", actor.Name, ErrNotController)
	case b.ActiveCombatantID != actor.ID:
		return nil, fmt.Errorf("acting as %s: %w", actor.Name, ErrNotYourTurn)
	}

	var (
		lines       []model.ActionEffect
		description string
	)
	stunned := b.IsStunned(actor.ID)
	if stunned {
		actor.ActionPoints = 0
		description = actor.Name + " is stunned and loses the turn"
	} else {
		out, err := action.Perform(b, action.Request{
			ActorID:   actor.ID,
			ActionID:  req.ActionID,
			Longitude: req.Longitude,
			Latitude:  req.Latitude,
		}, now)
		if err != nil {
			return nil, err
		}
		if !out.Applied {
			return nil, fmt.Errorf("action %s: %w", out.Action.Name, ErrNoTargets)
		}
		description = out.Description
	}
	lines = append(lines, model.ActionEffect{Text: description, Color: model.ColorBlue})

	res, err := s.resolve(b)
	if err != nil {
		return nil, err
	}
	next := res.Battle
	lines = append(lines, res.Log...)
	s.machine.Align(next)

	result := s.conclude(next, description, lines)
	next.Version = read + 1
	entry := model.ActionLog{
		BattleID:    next.ID,
		Round:       b.Round,
		ActorID:     actor.ID,
		ActionID:    req.ActionID,
		Description: description,
		Effects:     lines,
		CreatedAt:   now,
	}
	if err := s.store.Save(ctx, next, read, result.Over, entry); err != nil {
		return nil, fmt.Errorf("saving battle %s: %w", next.ID, err)
	}

	slog.Info("action resolved",
		"battle", next.ID,
		"round", next.Round,
		"actor", actor.ID,
		"action", req.ActionID,
		"over", result.Over)
	s.publish(ctx, result)

	if stunned {
		return result, fmt.Errorf("acting as %s: %w", actor.Name, action.ErrStunned)
	}
	return result, nil
}

func (s *Battles) resolve(b *model.Battle) (*combat.Result, error) {
	opts := s.engine
	opts.Rand = Seed(b.ID, b.Version)
	res, err := combat.New(opts).Resolve(b)
	if err != nil {
		return nil, fmt.Errorf("resolving battle %s: %w", b.ID, err)
	}
	return res, nil
}

// conclude evaluates the outcome of every human original and whether the
// battle is over.
func (s *Battles) conclude(b *model.Battle, description string, lines []model.ActionEffect) *Result {
	outcomes := make(map[string]*outcome.Outcome)
	for _, c := range b.Combatants {
		if !c.IsOriginal || c.IsAI {
			continue
		}
		if o := outcome.Evaluate(b, c.ID); o != nil {
			outcomes[c.ID] = o
		}
	}
	return &Result{
		Battle:      b,
		Description: description,
		Log:         lines,
		Outcomes:    outcomes,
		Over:        outcome.Over(b),
	}
}

func (s *Battles) publish(ctx context.Context, r *Result) {
	s.notifier.Publish(ctx, Update{Battle: r.Battle, Log: r.Log, Outcomes: r.Outcomes, Over: r.Over})
}

// Tick passes the turn of a battle whose active combatant timed out or has
// nothing left to do. It reports whether the battle changed.
func (s *Battles) Tick(ctx context.Context, id string) (bool, error) {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return false, fmt.Errorf("loading battle %s: %w", id, err)
	}
	now := s.machine.Clock.Now()
	if b.CreatedAt.After(now) {
		return false, nil
	}
	read, active := b.Version, b.ActiveCombatantID
	if s.machine.Align(b) != turn.RoundRollover && b.ActiveCombatantID == active {
		return false, nil
	}

	var lines []model.ActionEffect
	if c := b.Find(b.ActiveCombatantID); c != nil {
		lines = append(lines, model.ActionEffect{Text: "It is now " + c.Name + "'s turn", Color: model.ColorBlue})
	}
	result := s.conclude(b, "", lines)
	b.Version = read + 1
	entry := model.ActionLog{BattleID: b.ID, Round: b.Round, ActorID: active, Effects: lines, CreatedAt: now}
	if err := s.store.Save(ctx, b, read, result.Over, entry); err != nil {
		return false, fmt.Errorf("saving battle %s: %w", b.ID, err)
	}
	slog.Debug("turn passed",
		"battle", b.ID,
		"round", b.Round,
		"active", b.ActiveCombatantID)
	s.publish(ctx, result)
	return true, nil
}

// TickAll ticks every active battle. A battle that changed concurrently is
// left for the next tick.
func (s *Battles) TickAll(ctx context.Context) error {
	ids, err := s.store.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("listing active battles: %w", err)
	}
	for _, id := range ids {
		if _, err := s.Tick(ctx, id); err != nil {
			if errors.Is(err, model.ErrStaleVersion) || errors.Is(err, model.ErrBattleNotFound) {
				continue
			}
			slog.Warn("ticking battle", "battle", id, "error", err)
		}
	}
	return nil
}
