package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pefman/w40k-roster/internal/engine"
	"github.com/pefman/w40k-roster/internal/session"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// Message types sent to websocket clients.
const (
	msgState = "state"
	msgError = "error"
)

type wsMsg struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type clientIn struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// wsCommand is the payload of every client command; each type reads the
// fields it needs.
type wsCommand struct {
	CharacterID string `json:"character_id"`
	UnitID      string `json:"unit_id"`
	TransportID string `json:"transport_id"`
}

type wsError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type subscriber struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *subscriber) send(m wsMsg) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(m)
}

// hub fans session views out to every connection watching that session.
type hub struct {
	mu   sync.Mutex
	subs map[string]map[*subscriber]struct{}
	log  *zap.Logger
}

func newHub(log *zap.Logger) *hub {
	return &hub{subs: map[string]map[*subscriber]struct{}{}, log: log}
}

func (h *hub) join(sessionID string, c *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = map[*subscriber]struct{}{}
	}
	h.subs[sessionID][c] = struct{}{}
}

func (h *hub) leave(sessionID string, c *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[sessionID], c)
	if len(h.subs[sessionID]) == 0 {
		delete(h.subs, sessionID)
	}
}

func (h *hub) count(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[sessionID])
}

func (h *hub) broadcast(sessionID string, view session.View) {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subs[sessionID]))
	for c := range h.subs[sessionID] {
		subs = append(subs, c)
	}
	h.mu.Unlock()

	for _, c := range subs {
		if err := c.send(wsMsg{Type: msgState, Data: view}); err != nil {
			h.log.Warn("ws: write failed", zap.String("conn", c.id), zap.Error(err))
		}
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sess, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws: upgrade failed", zap.Error(err))
		return
	}
	c := &subscriber{id: uuid.NewString(), conn: conn}
	s.hub.join(id, c)
	s.log.Info("ws: connect", zap.String("session", id), zap.String("conn", c.id), zap.String("from", r.RemoteAddr))

	if err := c.send(wsMsg{Type: msgState, Data: sess.View()}); err != nil {
		s.log.Warn("ws: write failed", zap.String("conn", c.id), zap.Error(err))
	}
	go s.wsReader(id, c)
}

func (s *Server) wsReader(sessionID string, c *subscriber) {
	defer func() {
		s.hub.leave(sessionID, c)
		_ = c.conn.Close()
		s.log.Info("ws: closed", zap.String("session", sessionID), zap.String("conn", c.id))
	}()
	for {
		var in clientIn
		if err := c.conn.ReadJSON(&in); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("ws: read error", zap.String("conn", c.id), zap.Error(err))
			}
			return
		}
		s.log.Debug("ws: recv", zap.String("conn", c.id), zap.String("type", in.Type))

		var cmd wsCommand
		if len(in.Data) > 0 {
			if err := json.Unmarshal(in.Data, &cmd); err != nil {
				s.reply(c, wsError{Message: "invalid data: " + err.Error(), Status: http.StatusBadRequest})
				continue
			}
		}
		fn := commandFunc(in.Type, cmd)
		if fn == nil {
			s.reply(c, wsError{Message: "unknown command " + in.Type, Status: http.StatusBadRequest})
			continue
		}

		if _, err := s.sessions.Update(context.Background(), sessionID, fn); err != nil {
			s.reply(c, wsError{Message: err.Error(), Status: statusFor(err)})
		}
	}
}

func (s *Server) reply(c *subscriber, e wsError) {
	if err := c.send(wsMsg{Type: msgError, Data: e}); err != nil {
		s.log.Warn("ws: write failed", zap.String("conn", c.id), zap.Error(err))
	}
}

// commandFunc maps a client command onto an engine mutation, or nil for an
// unknown type.
func commandFunc(typ string, cmd wsCommand) func(*engine.Engine) error {
	switch typ {
	case "set_leader":
		return func(e *engine.Engine) error { return e.SetLeaderPairing(cmd.CharacterID, cmd.UnitID) }
	case "remove_leader":
		return func(e *engine.Engine) error { return e.RemoveLeaderPairing(cmd.CharacterID) }
	case "embark":
		return func(e *engine.Engine) error { return e.AssignToTransport(cmd.UnitID, cmd.TransportID) }
	case "disembark":
		return func(e *engine.Engine) error { return e.RemoveFromTransport(cmd.UnitID) }
	}
	return nil
}
