package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/hexbattle/internal/game/action"
	"github.com/udisondev/hexbattle/internal/game/combat"
	"github.com/udisondev/hexbattle/internal/game/turn"
	"github.com/udisondev/hexbattle/internal/model"
	"github.com/udisondev/hexbattle/internal/notify"
	"github.com/udisondev/hexbattle/internal/service"
	"github.com/udisondev/hexbattle/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newServer(t *testing.T) (*gin.Engine, *testutil.MemoryStore) {
	t.Helper()
	store := testutil.NewMemoryStore()
	require.NoError(t, store.Create(context.Background(), testutil.Duel("b1")))
	hub := notify.NewHub(0, 0)
	t.Cleanup(hub.Close)
	battles := service.New(store, hub, turn.NewMachine(&turn.FixedClock{T: testutil.Epoch}, 0), combat.Options{}, service.DefaultConfig())
	return NewRouter(NewHandler(battles, hub, store)), store
}

func do(t *testing.T, r http.Handler, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(HeaderUserID, user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestUserRequired(t *testing.T) {
	r, _ := newServer(t)
	w := do(t, r, http.MethodGet, "/api/battles/b1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodGet, "/api/battles/b1?user=a", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetBattle(t *testing.T) {
	r, store := newServer(t)
	b, err := store.Get(context.Background(), "b1")
	require.NoError(t, err)
	b.Find("b").Money = 500
	require.NoError(t, store.Create(context.Background(), b))

	w := do(t, r, http.MethodGet, "/api/battles/b1", "a", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[startResponse](t, w)
	require.NotNil(t, got.Battle)
	assert.Equal(t, "b1", got.Battle.ID)
	assert.Zero(t, got.Battle.Find("b").Money, "opponents are masked")

	w = do(t, r, http.MethodGet, "/api/battles/missing", "a", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitAction(t *testing.T) {
	r, store := newServer(t)

	w := do(t, r, http.MethodPost, "/api/battles/b1/actions", "a", actionBody{
		ActorID: "a", ActionID: action.BasicAttackID, Longitude: 2, Latitude: 2, Version: 1,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[actionResponse](t, w)
	assert.Equal(t, 2, got.Battle.Version)
	assert.NotEmpty(t, got.Description)
	assert.NotEmpty(t, got.Log)
	assert.False(t, got.Over)
	assert.Less(t, got.Battle.Find("b").CurHealth, 100.0)

	history := do(t, r, http.MethodGet, "/api/battles/b1/history", "a", nil)
	require.Equal(t, http.StatusOK, history.Code)
	entries := decode[map[string][]model.ActionLog](t, history)["history"]
	require.Len(t, entries, 1)
	assert.Equal(t, action.BasicAttackID, entries[0].ActionID)
	assert.Len(t, store.Logs(), 1)
}

func TestSubmitActionErrors(t *testing.T) {
	tests := []struct {
		name string
		user string
		body any
		want int
	}{
		{name: "malformed body", user: "a", body: "nope", want: http.StatusBadRequest},
		{name: "missing action", user: "a", body: actionBody{ActorID: "a"}, want: http.StatusBadRequest},
		{name: "not the controller", user: "b", body: actionBody{ActorID: "a", ActionID: action.BasicAttackID, Longitude: 2, Latitude: 2}, want: http.StatusForbidden},
		{name: "not the actor's turn", user: "b", body: actionBody{ActorID: "b", ActionID: action.BasicAttackID, Longitude: 1, Latitude: 2}, want: http.StatusConflict},
		{name: "outdated version", user: "a", body: actionBody{ActorID: "a", ActionID: action.BasicAttackID, Longitude: 2, Latitude: 2, Version: 7}, want: http.StatusConflict},
		{name: "unknown action", user: "a", body: actionBody{ActorID: "a", ActionID: "rasengan"}, want: http.StatusNotFound},
		{name: "out of range", user: "a", body: actionBody{ActorID: "a", ActionID: action.BasicAttackID, Longitude: 6, Latitude: 2}, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newServer(t)
			w := do(t, r, http.MethodPost, "/api/battles/b1/actions", tt.user, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.Contains(t, decode[map[string]string](t, w), "error")
		})
	}
}

func TestStoreFailureIsInternal(t *testing.T) {
	r, store := newServer(t)
	store.Err = testutil.ErrSimulated

	w := do(t, r, http.MethodGet, "/api/battles/b1", "a", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal error", decode[map[string]string](t, w)["error"])
}

func TestStartBattle(t *testing.T) {
	r, store := newServer(t)

	w := do(t, r, http.MethodPost, "/api/battles", "a", service.StartRequest{
		Type:       model.TypeArena,
		Combatants: []*model.Combatant{testutil.Ninja("a", "leaf", 1, 1), testutil.Ninja("b", "sand", 3, 1)},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	got := decode[startResponse](t, w)
	require.NotNil(t, got.Battle)
	assert.Equal(t, "a", got.Battle.ActiveCombatantID)

	_, err := store.Get(context.Background(), got.Battle.ID)
	require.NoError(t, err)

	w = do(t, r, http.MethodPost, "/api/battles", "a", service.StartRequest{
		Combatants: []*model.Combatant{testutil.Ninja("a", "leaf", 1, 1)},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListActions(t *testing.T) {
	r, _ := newServer(t)

	w := do(t, r, http.MethodGet, "/api/battles/b1/combatants/a/actions", "a", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[map[string][]actionInfo](t, w)["actions"]
	require.NotEmpty(t, got)

	var attack *actionInfo
	for i := range got {
		if got[i].ID == action.BasicAttackID {
			attack = &got[i]
		}
	}
	require.NotNil(t, attack)
	assert.True(t, attack.Ready)
	assert.InDelta(t, 60, attack.ActionCost, 0)
	assert.InDelta(t, 10, attack.StaminaCost, 0.001)

	w = do(t, r, http.MethodGet, "/api/battles/b1/combatants/b/actions", "a", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = do(t, r, http.MethodGet, "/api/battles/b1/combatants/zz/actions", "a", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: model.ErrBattleNotFound, want: http.StatusNotFound},
		{err: fmt.Errorf("loading: %w", model.ErrBattleNotFound), want: http.StatusNotFound},
		{err: service.ErrNotController, want: http.StatusForbidden},
		{err: service.ErrConflict, want: http.StatusConflict},
		{err: action.ErrBattleNotStarted, want: http.StatusConflict},
		{err: action.ErrNotEnoughChakra, want: http.StatusBadRequest},
		{err: service.ErrInvalidSetup, want: http.StatusBadRequest},
		{err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusOf(tt.err))
		})
	}
}
