// Package api exposes battles over HTTP with gin.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/udisondev/hexbattle/internal/game/action"
	"github.com/udisondev/hexbattle/internal/game/outcome"
	"github.com/udisondev/hexbattle/internal/model"
	"github.com/udisondev/hexbattle/internal/notify"
	"github.com/udisondev/hexbattle/internal/service"
)

const (
	// HeaderUserID carries the authenticated user. Authentication itself
	// happens in front of this service.
	HeaderUserID = "X-User-ID"
	// QueryUserID identifies the user on websocket upgrades, where
	// browsers cannot set headers.
	QueryUserID = "user"

	keyUserID = "userID"
)

// HistoryReader returns the logged actions of a battle.
type HistoryReader interface {
	History(ctx context.Context, battleID string) ([]model.ActionLog, error)
}

// Handler serves the battle endpoints.
type Handler struct {
	battles *service.Battles
	hub     *notify.Hub
	history HistoryReader
}

// NewHandler creates a Handler. A nil history disables the history
// endpoint.
func NewHandler(battles *service.Battles, hub *notify.Hub, history HistoryReader) *Handler {
	return &Handler{battles: battles, hub: hub, history: history}
}

// NewRouter returns a gin engine with every battle route registered.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	battles := router.Group("/api/battles")
	battles.Use(UserRequired())
	{
		battles.POST("", h.StartBattle)
		battles.GET("/:id", h.GetBattle)
		battles.POST("/:id/actions", h.SubmitAction)
		battles.GET("/:id/combatants/:cid/actions", h.ListActions)
		battles.GET("/:id/history", h.GetHistory)
		battles.GET("/:id/ws", h.Watch)
	}
	return router
}

// UserRequired rejects requests without a user id and stores it in the
// context.
func UserRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.GetHeader(HeaderUserID)
		if user == "" {
			user = c.Query(QueryUserID)
		}
		if user == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user id required"})
			return
		}
		c.Set(keyUserID, user)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		slog.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status())
	}
}

type startResponse struct {
	Battle *model.Battle `json:"battle"`
}

// StartBattle creates a battle from the posted setup.
func (h *Handler) StartBattle(c *gin.Context) {
	var req service.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	b, err := h.battles.Start(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, startResponse{Battle: outcome.Mask(b, c.GetString(keyUserID))})
}

// GetBattle returns the battle as the user sees it.
func (h *Handler) GetBattle(c *gin.Context) {
	b, err := h.battles.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, startResponse{Battle: outcome.Mask(b, c.GetString(keyUserID))})
}

type actionBody struct {
	ActorID   string `json:"actorId" binding:"required"`
	ActionID  string `json:"actionId" binding:"required"`
	Longitude int    `json:"longitude"`
	Latitude  int    `json:"latitude"`
	Version   int    `json:"version"`
}

type actionResponse struct {
	Battle      *model.Battle        `json:"battle"`
	Description string               `json:"description"`
	Log         []model.ActionEffect `json:"log"`
	Result      *outcome.Outcome     `json:"result,omitempty"`
	Over        bool                 `json:"over"`
	Message     string               `json:"message,omitempty"`
}

// SubmitAction performs an action for the user's combatant.
func (h *Handler) SubmitAction(c *gin.Context) {
	var body actionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user := c.GetString(keyUserID)
	res, err := h.battles.Submit(c.Request.Context(), service.ActionRequest{
		BattleID:  c.Param("id"),
		UserID:    user,
		ActorID:   body.ActorID,
		ActionID:  body.ActionID,
		Longitude: body.Longitude,
		Latitude:  body.Latitude,
		Version:   body.Version,
	})
	// A stunned actor still passes the turn, so the new state is returned.
	if err != nil && (res == nil || !errors.Is(err, action.ErrStunned)) {
		respondError(c, err)
		return
	}
	resp := actionResponse{
		Battle:      outcome.Mask(res.Battle, user),
		Description: res.Description,
		Log:         res.Log,
		Result:      res.Outcomes[body.ActorID],
		Over:        res.Over,
	}
	if err != nil {
		resp.Message = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

type actionInfo struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Range       int     `json:"range"`
	ActionCost  float64 `json:"actionCost"`
	HealthCost  float64 `json:"healthCost"`
	ChakraCost  float64 `json:"chakraCost"`
	StaminaCost float64 `json:"staminaCost"`
	Cooldown    int     `json:"cooldown"`
	Ready       bool    `json:"ready"`
	Quantity    int     `json:"quantity"`
}

// ListActions returns the actions a combatant the user controls can pick
// with their current costs.
func (h *Handler) ListActions(c *gin.Context) {
	b, err := h.battles.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	actor := b.Find(c.Param("cid"))
	if actor == nil {
		respondError(c, action.ErrActorNotFound)
		return
	}
	if actor.ControllerID != c.GetString(keyUserID) {
		respondError(c, service.ErrNotController)
		return
	}

	opts := action.Available(actor)
	out := make([]actionInfo, 0, len(opts))
	for _, o := range opts {
		hp, cp, sp := action.PoolCost(b, actor, o)
		out = append(out, actionInfo{
			ID:          o.ID,
			Name:        o.Name,
			Range:       o.Range,
			ActionCost:  o.ActionCostPerc,
			HealthCost:  hp,
			ChakraCost:  cp,
			StaminaCost: sp,
			Cooldown:    o.Cooldown,
			Ready:       !model.OnCooldown(o.LastUsedRound, o.Cooldown, b.Round),
			Quantity:    o.Quantity,
		})
	}
	c.JSON(http.StatusOK, gin.H{"actions": out})
}

// GetHistory returns the action log of a battle.
func (h *Handler) GetHistory(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history is not kept"})
		return
	}
	entries, err := h.history.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if entries == nil {
		entries = []model.ActionLog{}
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}

// Watch upgrades to a websocket streaming battle updates.
func (h *Handler) Watch(c *gin.Context) {
	b, err := h.battles.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.hub.Serve(c.Writer, c.Request, b, c.GetString(keyUserID)); err != nil {
		slog.Debug("watch failed", "battle", b.ID, "error", err)
	}
}

func respondError(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrBattleNotFound),
		errors.Is(err, action.ErrActorNotFound),
		errors.Is(err, action.ErrActionNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNotController):
		return http.StatusForbidden
	case errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrOutdated),
		errors.Is(err, service.ErrNotYourTurn),
		errors.Is(err, model.ErrStaleVersion),
		errors.Is(err, action.ErrBattleNotStarted):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidSetup),
		errors.Is(err, service.ErrNoTargets),
		errors.Is(err, action.ErrStunned),
		errors.Is(err, action.ErrOnCooldown),
		errors.Is(err, action.ErrOutOfItems),
		errors.Is(err, action.ErrStealthed),
		errors.Is(err, action.ErrNotEnoughHealth),
		errors.Is(err, action.ErrNotEnoughChakra),
		errors.Is(err, action.ErrNotEnoughStamina),
		errors.Is(err, action.ErrNotEnoughActionPoints),
		errors.Is(err, action.ErrTargetOutOfRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
