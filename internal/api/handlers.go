package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/pefman/w40k-roster/internal/engine"
	"github.com/pefman/w40k-roster/internal/matching"
	"github.com/pefman/w40k-roster/internal/parser"
	"github.com/pefman/w40k-roster/internal/wahapedia"
)

// ReferenceStatus reports whether the reference index is ready.
type ReferenceStatus struct {
	Loaded  bool               `json:"loaded"`
	Summary *wahapedia.Summary `json:"summary,omitempty"`
}

// EligibleTarget is one unit a character may lead.
type EligibleTarget struct {
	UnitID         string `json:"unit_id"`
	DisplayName    string `json:"display_name"`
	AvailableSlots int    `json:"available_slots"`
}

type leaderRequest struct {
	UnitID string `json:"unit_id"`
}

type transportRequest struct {
	TransportID string `json:"transport_id"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleReference(w http.ResponseWriter, r *http.Request) {
	idx := s.Index()
	if idx == nil {
		writeJSON(w, ReferenceStatus{})
		return
	}
	sum := idx.Summary()
	writeJSON(w, ReferenceStatus{Loaded: true, Summary: &sum})
}

// requireIndex writes a 503 and returns nil while the index is loading.
func (s *Server) requireIndex(w http.ResponseWriter) *wahapedia.Index {
	idx := s.Index()
	if idx == nil {
		writeError(w, http.StatusServiceUnavailable, "reference data is still loading")
	}
	return idx
}

func (s *Server) handleFactions(w http.ResponseWriter, r *http.Request) {
	idx := s.requireIndex(w)
	if idx == nil {
		return
	}
	writeJSON(w, idx.Factions())
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	text, err := readRoster(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	writeJSON(w, parser.Parse(text))
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	idx := s.requireIndex(w)
	if idx == nil {
		return
	}
	text, err := readRoster(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if strings.TrimSpace(text) == "" {
		writeError(w, http.StatusBadRequest, "roster text is empty")
		return
	}

	army, err := matching.NewEnricher(idx, s.log).Enrich(parser.Parse(text))
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	sess, err := s.sessions.Create(r.Context(), text, army)
	if err != nil {
		s.log.Error("create session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not create session")
		return
	}
	writeJSONStatus(w, http.StatusCreated, sess.View())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, sess.View())
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		s.log.Error("session request", zap.Error(err))
	}
	writeError(w, code, err.Error())
}

// mutate applies a command to a session and answers with the new view. The
// store pushes it to websocket subscribers.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, fn func(*engine.Engine) error) {
	id := mux.Vars(r)["id"]
	view, err := s.sessions.Update(r.Context(), id, fn)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, view)
}

func (s *Server) handleSetLeader(w http.ResponseWriter, r *http.Request) {
	var req leaderRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	characterID := mux.Vars(r)["characterId"]
	s.mutate(w, r, func(e *engine.Engine) error {
		return e.SetLeaderPairing(characterID, req.UnitID)
	})
}

func (s *Server) handleRemoveLeader(w http.ResponseWriter, r *http.Request) {
	characterID := mux.Vars(r)["characterId"]
	s.mutate(w, r, func(e *engine.Engine) error {
		return e.RemoveLeaderPairing(characterID)
	})
}

func (s *Server) handleEligible(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	characterID := mux.Vars(r)["characterId"]

	out := []EligibleTarget{}
	err = sess.Inspect(func(e *engine.Engine) error {
		if e.Army().Unit(characterID) == nil {
			return engine.ErrUnknownUnit
		}
		for _, id := range e.EligibleLeaderTargets(characterID) {
			out = append(out, EligibleTarget{
				UnitID:         id,
				DisplayName:    e.Army().Unit(id).DisplayName,
				AvailableSlots: e.AvailableLeaderSlots(id),
			})
		}
		return nil
	})
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, out)
}

func (s *Server) handleEmbark(w http.ResponseWriter, r *http.Request) {
	var req transportRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	unitID := mux.Vars(r)["unitId"]
	s.mutate(w, r, func(e *engine.Engine) error {
		return e.AssignToTransport(unitID, req.TransportID)
	})
}

func (s *Server) handleDisembark(w http.ResponseWriter, r *http.Request) {
	unitID := mux.Vars(r)["unitId"]
	s.mutate(w, r, func(e *engine.Engine) error {
		return e.RemoveFromTransport(unitID)
	})
}
