// Package api serves rosters and allocation sessions over HTTP and websocket,
// and provides a typed client for it.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/pefman/w40k-roster/internal/engine"
	"github.com/pefman/w40k-roster/internal/session"
	"github.com/pefman/w40k-roster/internal/wahapedia"
)

// maxBodyBytes bounds roster uploads and command bodies.
const maxBodyBytes = 1 << 20

type Server struct {
	index    atomic.Pointer[wahapedia.Index]
	sessions *session.Store
	hub      *hub
	log      *zap.Logger
}

func NewServer(sessions *session.Store, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{sessions: sessions, hub: newHub(log), log: log}
	// Broadcasting from the store keeps subscribers in commit order.
	sessions.OnUpdate(func(v session.View) { s.hub.broadcast(v.ID, v) })
	return s
}

// SetIndex publishes the reference index. Requests that need it answer 503
// until it is set.
func (s *Server) SetIndex(idx *wahapedia.Index) { s.index.Store(idx) }

func (s *Server) Index() *wahapedia.Index { return s.index.Load() }

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/reference", s.handleReference).Methods(http.MethodGet)
	api.HandleFunc("/factions", s.handleFactions).Methods(http.MethodGet)
	api.HandleFunc("/parse", s.handleParse).Methods(http.MethodPost)

	api.HandleFunc("/sessions", s.handleCreateSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/leaders/{characterId}", s.handleSetLeader).Methods(http.MethodPut)
	api.HandleFunc("/sessions/{id}/leaders/{characterId}", s.handleRemoveLeader).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/leaders/{characterId}/eligible", s.handleEligible).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/transports/{unitId}", s.handleEmbark).Methods(http.MethodPut)
	api.HandleFunc("/sessions/{id}/transports/{unitId}", s.handleDisembark).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/ws", s.handleWS).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "no such route")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, r.Method+" not allowed")
	})
	return withCORS(r)
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error:   http.StatusText(code),
		Message: msg,
		Status:  code,
	})
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// statusFor maps store and engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, engine.ErrUnknownUnit):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrNotALeader),
		errors.Is(err, engine.ErrNotEligible),
		errors.Is(err, engine.ErrLeaderCap),
		errors.Is(err, engine.ErrTwoPrimaryLeaders),
		errors.Is(err, engine.ErrNotATransport),
		errors.Is(err, engine.ErrExcluded),
		errors.Is(err, engine.ErrOverCapacity),
		errors.Is(err, engine.ErrAttachedLeader),
		errors.Is(err, engine.ErrNoArmy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// readRoster returns the roster text of a request. JSON bodies carry it in
// "text"; anything else is taken verbatim.
func readRoster(w http.ResponseWriter, r *http.Request) (string, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return "", err
		}
		return req.Text, nil
	}
	return string(body), nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
