// Package engine tracks leader attachments and transport embarkation for one
// enriched army list.
package engine

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/pefman/w40k-roster/internal/models"
)

// MaxLeadersPerUnit caps how many characters may lead one unit.
const MaxLeadersPerUnit = 2

var (
	ErrNoArmy            = errors.New("no army list loaded")
	ErrUnknownUnit       = errors.New("unknown unit")
	ErrNotALeader        = errors.New("unit has no leader mapping")
	ErrNotEligible       = errors.New("character cannot lead that unit")
	ErrLeaderCap         = errors.New("unit already has the maximum number of leaders")
	ErrTwoPrimaryLeaders = errors.New("unit cannot have two primary leaders")
	ErrNotATransport     = errors.New("unit has no transport capacity")
	ErrExcluded          = errors.New("transport cannot carry that unit")
	ErrOverCapacity      = errors.New("transport capacity exceeded")
	ErrAttachedLeader    = errors.New("attached leaders embark with their unit")
)

// Snapshot is the full allocation state. Both maps are keyed by instance id
// and keep insertion order inside each list.
type Snapshot struct {
	// host unit -> attached characters
	LeaderPairings map[string][]string `json:"leader_pairings" yaml:"leader_pairings"`
	// transport -> embarked units
	TransportAllocations map[string][]string `json:"transport_allocations" yaml:"transport_allocations"`
}

func NewSnapshot() Snapshot {
	return Snapshot{
		LeaderPairings:       map[string][]string{},
		TransportAllocations: map[string][]string{},
	}
}

// Clone returns a deep copy. A nil map in s becomes an empty one.
func (s Snapshot) Clone() Snapshot {
	out := NewSnapshot()
	for k, v := range s.LeaderPairings {
		out.LeaderPairings[k] = slices.Clone(v)
	}
	for k, v := range s.TransportAllocations {
		out.TransportAllocations[k] = slices.Clone(v)
	}
	return out
}

// removeFrom drops id from every list of rel and deletes emptied keys.
func removeFrom(rel map[string][]string, id string) {
	for k, ids := range rel {
		ids = slices.DeleteFunc(ids, func(s string) bool { return s == id })
		if len(ids) == 0 {
			delete(rel, k)
		} else {
			rel[k] = ids
		}
	}
}

func keyOf(rel map[string][]string, id string) string {
	for k, ids := range rel {
		if slices.Contains(ids, id) {
			return k
		}
	}
	return ""
}

// Engine owns the allocation state for one army list. Every command works on
// a copy of the current Snapshot and commits it only when all checks pass,
// so a rejected command leaves the state untouched. Engine is not safe for
// concurrent use.
type Engine struct {
	army  *models.EnrichedArmyList
	units map[string]*models.EnrichedUnit
	state Snapshot
}

func New(army *models.EnrichedArmyList) *Engine {
	e := &Engine{}
	e.Load(army)
	return e
}

// Load replaces the army list and clears both relations.
func (e *Engine) Load(army *models.EnrichedArmyList) {
	e.army = army
	e.state = NewSnapshot()
	e.units = nil
	if army == nil {
		return
	}
	e.units = make(map[string]*models.EnrichedUnit, len(army.Units))
	for i := range army.Units {
		e.units[army.Units[i].InstanceID] = &army.Units[i]
	}
}

func (e *Engine) Army() *models.EnrichedArmyList { return e.army }

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot { return e.state.Clone() }

func (e *Engine) unit(id string) (*models.EnrichedUnit, error) {
	if e.army == nil {
		return nil, ErrNoArmy
	}
	u, ok := e.units[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownUnit, id)
	}
	return u, nil
}

// SetLeaderPairing attaches a character to unitID, detaching it from its
// previous host first. An empty unitID only detaches.
func (e *Engine) SetLeaderPairing(characterID, unitID string) error {
	char, err := e.unit(characterID)
	if err != nil {
		return err
	}

	next := e.state.Clone()
	removeFrom(next.LeaderPairings, characterID)
	if unitID == "" {
		e.state = next
		return nil
	}

	if char.LeaderMapping == nil {
		return fmt.Errorf("%w: %s", ErrNotALeader, char.DisplayName)
	}
	target, err := e.unit(unitID)
	if err != nil {
		return err
	}
	if !e.canHost(next, char, target) {
		return fmt.Errorf("%w: %s cannot lead %s", ErrNotEligible, char.DisplayName, target.DisplayName)
	}

	existing := next.LeaderPairings[unitID]
	if len(existing) >= MaxLeadersPerUnit {
		return fmt.Errorf("%w: %s", ErrLeaderCap, target.DisplayName)
	}
	if len(existing) == 1 && !e.isSecondary(char) && !e.isSecondary(e.units[existing[0]]) {
		return fmt.Errorf("%w: %s", ErrTwoPrimaryLeaders, target.DisplayName)
	}
	next.LeaderPairings[unitID] = append(existing, characterID)

	// The character now rides with its host.
	removeFrom(next.TransportAllocations, characterID)
	if tid := keyOf(next.TransportAllocations, unitID); tid != "" {
		if err := e.checkTransport(next, e.units[tid], nil); err != nil {
			return err
		}
	}

	e.state = next
	return nil
}

// canHost reports whether target may take char as a leader in state s.
// Leaders do not nest. Only a character with a transport capacity may host,
// and never while it is itself attached or hosting.
func (e *Engine) canHost(s Snapshot, char, target *models.EnrichedUnit) bool {
	switch {
	case target.InstanceID == char.InstanceID:
		return false
	case target.IsCharacter && target.TransportCapacity == nil:
		return false
	case keyOf(s.LeaderPairings, target.InstanceID) != "":
		return false
	case len(s.LeaderPairings[char.InstanceID]) > 0:
		return false
	}
	return char.LeaderMapping.CanLeadName(target.Name)
}

func (e *Engine) isSecondary(u *models.EnrichedUnit) bool {
	return u != nil && u.LeaderMapping != nil && u.LeaderMapping.IsSecondaryLeader
}

// RemoveLeaderPairing detaches a character from whichever unit it leads.
func (e *Engine) RemoveLeaderPairing(characterID string) error {
	if e.army == nil {
		return ErrNoArmy
	}
	next := e.state.Clone()
	removeFrom(next.LeaderPairings, characterID)
	e.state = next
	return nil
}

// AssignToTransport embarks unitID, and any leaders attached to it, on
// transportID. A unit already aboard that transport is left as is.
func (e *Engine) AssignToTransport(unitID, transportID string) error {
	u, err := e.unit(unitID)
	if err != nil {
		return err
	}
	transport, err := e.unit(transportID)
	if err != nil {
		return err
	}
	if transport.TransportCapacity == nil {
		return fmt.Errorf("%w: %s", ErrNotATransport, transport.DisplayName)
	}
	if unitID == transportID {
		return fmt.Errorf("%w: %s cannot carry itself", ErrExcluded, transport.DisplayName)
	}
	if host := keyOf(e.state.LeaderPairings, unitID); host != "" {
		return fmt.Errorf("%w: %s is attached to %s", ErrAttachedLeader, u.DisplayName, e.units[host].DisplayName)
	}
	if keyOf(e.state.TransportAllocations, unitID) == transportID {
		return nil
	}

	next := e.state.Clone()
	removeFrom(next.TransportAllocations, unitID)
	next.TransportAllocations[transportID] = append(next.TransportAllocations[transportID], unitID)
	if err := e.checkTransport(next, transport, u); err != nil {
		return err
	}

	e.state = next
	return nil
}

// RemoveFromTransport disembarks a unit from whichever transport holds it.
func (e *Engine) RemoveFromTransport(unitID string) error {
	if e.army == nil {
		return ErrNoArmy
	}
	next := e.state.Clone()
	removeFrom(next.TransportAllocations, unitID)
	e.state = next
	return nil
}

// checkTransport validates the passengers of transport in state s. When
// candidate is set only it and its leaders are checked against exclusions;
// otherwise every passenger is.
func (e *Engine) checkTransport(s Snapshot, transport, candidate *models.EnrichedUnit) error {
	tc := transport.TransportCapacity
	for _, id := range s.TransportAllocations[transport.InstanceID] {
		if candidate != nil && id != candidate.InstanceID {
			continue
		}
		for _, p := range e.withLeaders(s, id) {
			if exc, ok := excludedBy(p, tc.Exclusions); ok {
				return fmt.Errorf("%w: %s cannot transport %s (%s)", ErrExcluded, transport.DisplayName, p.DisplayName, exc)
			}
		}
	}
	if used := e.usedCapacity(s, transport); used > tc.BaseCapacity {
		return fmt.Errorf("%w: %s needs %d of %d", ErrOverCapacity, transport.DisplayName, used, tc.BaseCapacity)
	}
	return nil
}

// withLeaders returns the unit followed by the characters attached to it.
func (e *Engine) withLeaders(s Snapshot, unitID string) []*models.EnrichedUnit {
	var out []*models.EnrichedUnit
	if u, ok := e.units[unitID]; ok {
		out = append(out, u)
	}
	for _, id := range s.LeaderPairings[unitID] {
		if l, ok := e.units[id]; ok {
			out = append(out, l)
		}
	}
	return out
}

func (e *Engine) usedCapacity(s Snapshot, transport *models.EnrichedUnit) int {
	total := 0
	for _, id := range s.TransportAllocations[transport.InstanceID] {
		for _, p := range e.withLeaders(s, id) {
			total += ModelSlots(p, transport.TransportCapacity)
		}
	}
	return total
}

// HostOf returns the unit a character leads, or "".
func (e *Engine) HostOf(characterID string) string {
	return keyOf(e.state.LeaderPairings, characterID)
}

// TransportOf returns the transport a unit is embarked on, or "".
func (e *Engine) TransportOf(unitID string) string {
	return keyOf(e.state.TransportAllocations, unitID)
}

// Leaders lists the characters attached to a unit.
func (e *Engine) Leaders(unitID string) []string {
	return slices.Clone(e.state.LeaderPairings[unitID])
}

// Passengers lists the units embarked on a transport.
func (e *Engine) Passengers(transportID string) []string {
	return slices.Clone(e.state.TransportAllocations[transportID])
}

// UsedCapacity is the number of model slots taken in a transport, attached
// leaders included. It is 0 for anything that is not a transport.
func (e *Engine) UsedCapacity(transportID string) int {
	t, ok := e.units[transportID]
	if !ok || t.TransportCapacity == nil {
		return 0
	}
	return e.usedCapacity(e.state, t)
}

func (e *Engine) TotalCapacity(transportID string) int {
	t, ok := e.units[transportID]
	if !ok || t.TransportCapacity == nil {
		return 0
	}
	return t.TransportCapacity.BaseCapacity
}

// Transports lists the ids of units with a transport capacity, in list order.
func (e *Engine) Transports() []string {
	if e.army == nil {
		return nil
	}
	var out []string
	for _, u := range e.army.Units {
		if u.TransportCapacity != nil {
			out = append(out, u.InstanceID)
		}
	}
	return out
}

// EligibleLeaderTargets lists, in list order, the units a character may be
// attached to by name. Other characters are skipped unless they carry a
// transport capacity. Occupancy is not considered.
func (e *Engine) EligibleLeaderTargets(characterID string) []string {
	char, ok := e.units[characterID]
	if !ok || char.LeaderMapping == nil {
		return nil
	}
	// The character's own pairing does not count against a new host.
	s := e.state.Clone()
	removeFrom(s.LeaderPairings, characterID)
	var out []string
	for i := range e.army.Units {
		if u := &e.army.Units[i]; e.canHost(s, char, u) {
			out = append(out, u.InstanceID)
		}
	}
	return out
}

// AvailableLeaderSlots reports how many more characters a unit may take.
func (e *Engine) AvailableLeaderSlots(unitID string) int {
	return max(MaxLeadersPerUnit-len(e.state.LeaderPairings[unitID]), 0)
}

// Restore replays a stored snapshot through the commands, leaders first, so
// the result is validated against the current army list. On error the
// current state is kept.
func (e *Engine) Restore(s Snapshot) error {
	if e.army == nil {
		return ErrNoArmy
	}
	scratch := &Engine{army: e.army, units: e.units, state: NewSnapshot()}

	for _, host := range sortedKeys(s.LeaderPairings) {
		for _, char := range s.LeaderPairings[host] {
			if err := scratch.SetLeaderPairing(char, host); err != nil {
				return fmt.Errorf("restore leader %s: %w", char, err)
			}
		}
	}
	for _, tid := range sortedKeys(s.TransportAllocations) {
		for _, uid := range s.TransportAllocations[tid] {
			if err := scratch.AssignToTransport(uid, tid); err != nil {
				return fmt.Errorf("restore transport %s: %w", tid, err)
			}
		}
	}

	e.state = scratch.state
	return nil
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
