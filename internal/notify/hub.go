// Package notify pushes battle updates to websocket viewers. Every viewer
// receives the battle masked for its own user.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/udisondev/hexbattle/internal/game/outcome"
	"github.com/udisondev/hexbattle/internal/model"
	"github.com/udisondev/hexbattle/internal/service"
)

const (
	defaultSendQueueSize = 16
	defaultWriteTimeout  = 5 * time.Second
	pongWait             = 60 * time.Second
	pingPeriod           = pongWait * 9 / 10
)

// ErrQueueFull is returned when a viewer does not keep up with updates.
var ErrQueueFull = errors.New("send queue full")

// Message is what a viewer receives.
type Message struct {
	Battle  *model.Battle        `json:"battle"`
	Log     []model.ActionEffect `json:"log,omitempty"`
	Outcome *outcome.Outcome     `json:"result,omitempty"`
	Over    bool                 `json:"over"`
}

// Hub tracks viewers per battle.
type Hub struct {
	mu      sync.RWMutex
	viewers map[string]map[*viewer]struct{}

	upgrader      websocket.Upgrader
	sendQueueSize int
	writeTimeout  time.Duration
}

// NewHub creates a Hub. Non-positive values use defaults.
func NewHub(sendQueueSize int, writeTimeout time.Duration) *Hub {
	if sendQueueSize <= 0 {
		sendQueueSize = defaultSendQueueSize
	}
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &Hub{
		viewers:       make(map[string]map[*viewer]struct{}),
		upgrader:      websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 4096},
		sendQueueSize: sendQueueSize,
		writeTimeout:  writeTimeout,
	}
}

// Serve upgrades the request and streams updates of the battle to the user
// until the connection closes. The current battle is sent first.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, current *model.Battle, userID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrading viewer %s: %w", userID, err)
	}
	v := &viewer{
		battleID:     current.ID,
		userID:       userID,
		conn:         conn,
		sendCh:       make(chan []byte, h.sendQueueSize),
		closeCh:      make(chan struct{}),
		writeTimeout: h.writeTimeout,
	}
	if err := v.send(encode(Message{Battle: outcome.Mask(current, userID)})); err != nil {
		v.close()
		return err
	}

	h.add(v)
	defer h.remove(v)
	slog.Debug("viewer connected", "battle", v.battleID, "user", userID)

	go v.writePump()
	v.readPump()
	slog.Debug("viewer disconnected", "battle", v.battleID, "user", userID)
	return nil
}

// Publish sends the update to every viewer of the battle. Slow viewers are
// disconnected.
func (h *Hub) Publish(_ context.Context, u service.Update) {
	if u.Battle == nil {
		return
	}
	h.mu.RLock()
	viewers := make([]*viewer, 0, len(h.viewers[u.Battle.ID]))
	for v := range h.viewers[u.Battle.ID] {
		viewers = append(viewers, v)
	}
	h.mu.RUnlock()

	for _, v := range viewers {
		msg := Message{
			Battle:  outcome.Mask(u.Battle, v.userID),
			Log:     u.Log,
			Outcome: u.Outcomes[v.userID],
			Over:    u.Over,
		}
		if err := v.send(encode(msg)); err != nil {
			slog.Warn("dropping viewer", "battle", v.battleID, "user", v.userID, "error", err)
		}
	}
}

// Viewers returns how many viewers watch the battle.
func (h *Hub) Viewers(battleID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers[battleID])
}

// Close disconnects every viewer.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, set := range h.viewers {
		for v := range set {
			v.close()
		}
		delete(h.viewers, id)
	}
}

func (h *Hub) add(v *viewer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.viewers[v.battleID]
	if !ok {
		set = make(map[*viewer]struct{})
		h.viewers[v.battleID] = set
	}
	set[v] = struct{}{}
}

func (h *Hub) remove(v *viewer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.viewers[v.battleID]; ok {
		delete(set, v)
		if len(set) == 0 {
			delete(h.viewers, v.battleID)
		}
	}
	v.close()
}

func encode(m Message) []byte {
	data, err := json.Marshal(m)
	if err != nil {
		// Battles always encode; they are stored as JSON.
		slog.Error("encoding viewer message", "error", err)
		return nil
	}
	return data
}

// viewer is one websocket connection with its own write queue.
type viewer struct {
	battleID string
	userID   string
	conn     *websocket.Conn

	sendCh       chan []byte
	closeCh      chan struct{}
	closeOnce    sync.Once
	writeTimeout time.Duration
}

// send queues a message without blocking. A full queue closes the viewer.
func (v *viewer) send(data []byte) error {
	if data == nil {
		return nil
	}
	select {
	case <-v.closeCh:
		return websocket.ErrCloseSent
	default:
	}
	select {
	case v.sendCh <- data:
		return nil
	default:
		v.close()
		return ErrQueueFull
	}
}

func (v *viewer) close() {
	v.closeOnce.Do(func() {
		close(v.closeCh)
		_ = v.conn.Close()
	})
}

// writePump is the only writer of the connection.
func (v *viewer) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer v.close()

	for {
		select {
		case data := <-v.sendCh:
			if err := v.conn.SetWriteDeadline(time.Now().Add(v.writeTimeout)); err != nil {
				return
			}
			if err := v.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Debug("viewer write failed", "battle", v.battleID, "user", v.userID, "error", err)
				return
			}
		case <-ticker.C:
			if err := v.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(v.writeTimeout)); err != nil {
				return
			}
		case <-v.closeCh:
			return
		}
	}
}

// readPump discards incoming messages and returns when the connection
// closes.
func (v *viewer) readPump() {
	v.conn.SetReadLimit(512)
	_ = v.conn.SetReadDeadline(time.Now().Add(pongWait))
	v.conn.SetPongHandler(func(string) error {
		return v.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := v.conn.ReadMessage(); err != nil {
			return
		}
	}
}
