// Package session keeps one allocation engine per imported army list and
// optionally persists it between restarts.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pefman/w40k-roster/internal/engine"
	"github.com/pefman/w40k-roster/internal/models"
)

var ErrNotFound = errors.New("session not found")

// Record is the persisted form of a session.
type Record struct {
	ID      string                   `json:"id"`
	Created int64                    `json:"created"`
	Updated int64                    `json:"updated"`
	RawText string                   `json:"raw_text,omitempty"`
	Army    *models.EnrichedArmyList `json:"army"`
	State   engine.Snapshot          `json:"state"`
}

// Persister stores records. Load returns ErrNotFound for unknown ids.
type Persister interface {
	Save(ctx context.Context, rec *Record) error
	Load(ctx context.Context, id string) (*Record, error)
}

// TransportLoad is the occupancy of one transport.
type TransportLoad struct {
	UnitID      string   `json:"unit_id"`
	DisplayName string   `json:"display_name"`
	Used        int      `json:"used"`
	Total       int      `json:"total"`
	Passengers  []string `json:"passengers"`
}

// View is what clients see of a session.
type View struct {
	ID                   string                   `json:"id"`
	Created              int64                    `json:"created"`
	Updated              int64                    `json:"updated"`
	Army                 *models.EnrichedArmyList `json:"army"`
	LeaderPairings       map[string][]string      `json:"leader_pairings"`
	TransportAllocations map[string][]string      `json:"transport_allocations"`
	Transports           []TransportLoad          `json:"transports"`
}

type Session struct {
	ID      string
	Created int64
	RawText string

	// writeMu orders whole updates: commit, save and notify.
	writeMu sync.Mutex
	mu      sync.Mutex
	updated int64
	eng     *engine.Engine
}

// commit runs fn against the engine and, on success, captures the record and
// view of the new state in the same critical section.
func (s *Session) commit(fn func(*engine.Engine) error) (*Record, View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(s.eng); err != nil {
		return nil, View{}, err
	}
	s.updated = time.Now().Unix()
	return s.recordLocked(), s.viewLocked(), nil
}

// Inspect runs fn under the session lock without marking the session updated.
func (s *Session) Inspect(fn func(*engine.Engine) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.eng)
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	snap := s.eng.Snapshot()
	v := View{
		ID:                   s.ID,
		Created:              s.Created,
		Updated:              s.updated,
		Army:                 s.eng.Army(),
		LeaderPairings:       snap.LeaderPairings,
		TransportAllocations: snap.TransportAllocations,
		Transports:           []TransportLoad{},
	}
	for _, id := range s.eng.Transports() {
		load := TransportLoad{
			UnitID:     id,
			Used:       s.eng.UsedCapacity(id),
			Total:      s.eng.TotalCapacity(id),
			Passengers: s.eng.Passengers(id),
		}
		if u := v.Army.Unit(id); u != nil {
			load.DisplayName = u.DisplayName
		}
		if load.Passengers == nil {
			load.Passengers = []string{}
		}
		v.Transports = append(v.Transports, load)
	}
	return v
}

func (s *Session) record() *Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordLocked()
}

func (s *Session) recordLocked() *Record {
	return &Record{
		ID:      s.ID,
		Created: s.Created,
		Updated: s.updated,
		RawText: s.RawText,
		Army:    s.eng.Army(),
		State:   s.eng.Snapshot(),
	}
}

// Store holds live sessions in memory. With a Persister every change is
// written through, and sessions missing from memory are loaded lazily.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	persist  Persister
	onUpdate func(View)
	log      *zap.Logger
}

func NewStore(p Persister, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{sessions: map[string]*Session{}, persist: p, log: log}
}

// OnUpdate registers fn to receive the view after every successful Update.
// Calls for one session arrive in commit order.
func (st *Store) OnUpdate(fn func(View)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.onUpdate = fn
}

// Create starts a session for an enriched list.
func (st *Store) Create(ctx context.Context, rawText string, army *models.EnrichedArmyList) (*Session, error) {
	if army == nil {
		return nil, engine.ErrNoArmy
	}
	now := time.Now().Unix()
	s := &Session{
		ID:      uuid.NewString(),
		Created: now,
		RawText: rawText,
		updated: now,
		eng:     engine.New(army),
	}
	if err := st.save(ctx, s); err != nil {
		return nil, err
	}

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	st.log.Info("session created", zap.String("id", s.ID), zap.Int("units", len(army.Units)))
	return s, nil
}

// Get returns a live session, loading it from the persister when needed.
func (st *Store) Get(ctx context.Context, id string) (*Session, error) {
	st.mu.Lock()
	s, ok := st.sessions[id]
	st.mu.Unlock()
	if ok {
		return s, nil
	}
	if st.persist == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	rec, err := st.persist.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	s, err = fromRecord(rec)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	// Another request may have loaded it meanwhile.
	if cur, ok := st.sessions[id]; ok {
		return cur, nil
	}
	st.sessions[id] = s
	st.log.Debug("session loaded", zap.String("id", id))
	return s, nil
}

func fromRecord(rec *Record) (*Session, error) {
	eng := engine.New(rec.Army)
	if err := eng.Restore(rec.State); err != nil {
		return nil, fmt.Errorf("restore session %s: %w", rec.ID, err)
	}
	return &Session{
		ID:      rec.ID,
		Created: rec.Created,
		RawText: rec.RawText,
		updated: rec.Updated,
		eng:     eng,
	}, nil
}

// Update applies fn to a session and persists the result. Engine rejections
// are returned unchanged so callers can match them with errors.Is.
func (st *Store) Update(ctx context.Context, id string, fn func(*engine.Engine) error) (View, error) {
	s, err := st.Get(ctx, id)
	if err != nil {
		return View{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	rec, view, err := s.commit(fn)
	if err != nil {
		return View{}, err
	}
	if err := st.saveRecord(ctx, rec); err != nil {
		st.log.Warn("session not persisted", zap.String("id", id), zap.Error(err))
	}

	st.mu.Lock()
	notify := st.onUpdate
	st.mu.Unlock()
	if notify != nil {
		notify(view)
	}
	return view, nil
}

func (st *Store) save(ctx context.Context, s *Session) error {
	return st.saveRecord(ctx, s.record())
}

func (st *Store) saveRecord(ctx context.Context, rec *Record) error {
	if st.persist == nil {
		return nil
	}
	if err := st.persist.Save(ctx, rec); err != nil {
		return fmt.Errorf("save session %s: %w", rec.ID, err)
	}
	return nil
}

// Len reports how many sessions are held in memory.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
