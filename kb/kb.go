package kb

import (
	"fmt"
	"sync"
	"time"

	"github.com/signalsfoundry/drone-deconfliction/core"
	"github.com/signalsfoundry/drone-deconfliction/model"
)

// EventType indicates what kind of change happened in the KB.
type EventType int

const (
	EventMissionAdded EventType = iota
	EventMissionRemoved
)

// Event is emitted to subscribers when something interesting happens.
type Event struct {
	Type      EventType
	MissionID string
	Window    model.TimeInterval
}

// KnowledgeBase is an in-memory, thread-safe registry of missions keyed by
// their unique ID. Listing preserves insertion order so detection output is
// reproducible.
type KnowledgeBase struct {
	mu sync.RWMutex

	missions map[string]*core.Mission
	order    []string
	primary  string

	subs    []subscription
	nextSub int
}

type subscription struct {
	id int
	fn func(Event)
}

// NewKnowledgeBase constructs an empty KB.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		missions: make(map[string]*core.Mission),
	}
}

// AddMission registers m. It returns an error if the ID already exists.
func (kb *KnowledgeBase) AddMission(m *core.Mission) error {
	if m == nil {
		return fmt.Errorf("mission is nil")
	}
	kb.mu.Lock()
	if _, exists := kb.missions[m.ID]; exists {
		kb.mu.Unlock()
		return fmt.Errorf("mission with ID %q already exists", m.ID)
	}
	kb.missions[m.ID] = m
	kb.order = append(kb.order, m.ID)
	subs := kb.snapshotSubs()
	kb.mu.Unlock()

	notify(subs, Event{Type: EventMissionAdded, MissionID: m.ID, Window: m.Window()})
	return nil
}

// AddPrimary registers m and marks it as the primary mission.
func (kb *KnowledgeBase) AddPrimary(m *core.Mission) error {
	if err := kb.AddMission(m); err != nil {
		return err
	}
	return kb.SetPrimary(m.ID)
}

// SetPrimary marks an already registered mission as the primary.
func (kb *KnowledgeBase) SetPrimary(id string) error {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	if _, ok := kb.missions[id]; !ok {
		return fmt.Errorf("mission with ID %q not found", id)
	}
	kb.primary = id
	return nil
}

// RemoveMission drops a mission and notifies subscribers.
func (kb *KnowledgeBase) RemoveMission(id string) error {
	kb.mu.Lock()
	m, ok := kb.missions[id]
	if !ok {
		kb.mu.Unlock()
		return fmt.Errorf("mission with ID %q not found", id)
	}
	delete(kb.missions, id)
	for i, oid := range kb.order {
		if oid == id {
			kb.order = append(kb.order[:i], kb.order[i+1:]...)
			break
		}
	}
	if kb.primary == id {
		kb.primary = ""
	}
	subs := kb.snapshotSubs()
	kb.mu.Unlock()

	notify(subs, Event{Type: EventMissionRemoved, MissionID: id, Window: m.Window()})
	return nil
}

// GetMission returns the mission with the given ID, or nil if not found.
func (kb *KnowledgeBase) GetMission(id string) *core.Mission {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.missions[id]
}

// Primary returns the primary mission, or nil if none is set.
func (kb *KnowledgeBase) Primary() *core.Mission {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.missions[kb.primary]
}

// ListMissions returns a snapshot of all missions in insertion order.
func (kb *KnowledgeBase) ListMissions() []*core.Mission {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	res := make([]*core.Mission, 0, len(kb.order))
	for _, id := range kb.order {
		res = append(res, kb.missions[id])
	}
	return res
}

// Others returns every mission except the primary, in insertion order.
func (kb *KnowledgeBase) Others() []*core.Mission {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	res := make([]*core.Mission, 0, len(kb.order))
	for _, id := range kb.order {
		if id == kb.primary {
			continue
		}
		res = append(res, kb.missions[id])
	}
	return res
}

// Span returns the interval covering every registered mission window.
func (kb *KnowledgeBase) Span() (model.TimeInterval, bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	var span model.TimeInterval
	for i, id := range kb.order {
		w := kb.missions[id].Window()
		if i == 0 {
			span = w
			continue
		}
		if w.StartTime.Before(span.StartTime) {
			span.StartTime = w.StartTime
		}
		if w.EndTime.After(span.EndTime) {
			span.EndTime = w.EndTime
		}
	}
	return span, len(kb.order) > 0
}

// PositionsAt returns the interpolated position of every mission airborne
// at t. Missions outside their window are omitted; a mission without a
// generated trajectory is an error. Trajectories must not be regenerated
// concurrently with this call.
func (kb *KnowledgeBase) PositionsAt(t time.Time) (map[string][3]float64, error) {
	missions := kb.ListMissions()
	res := make(map[string][3]float64, len(missions))
	for _, m := range missions {
		wp, ok, err := m.PositionAt(t)
		if err != nil {
			return nil, err
		}
		if ok {
			res[m.ID] = wp.Location()
		}
	}
	return res, nil
}

// Subscribe registers a callback for KB events. It returns an unsubscribe
// function; calling it more than once is a no-op.
func (kb *KnowledgeBase) Subscribe(fn func(Event)) (unsubscribe func()) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.nextSub++
	id := kb.nextSub
	kb.subs = append(kb.subs, subscription{id: id, fn: fn})

	return func() {
		kb.mu.Lock()
		defer kb.mu.Unlock()
		for i, sub := range kb.subs {
			if sub.id == id {
				kb.subs = append(kb.subs[:i:i], kb.subs[i+1:]...)
				return
			}
		}
	}
}

// snapshotSubs copies the callbacks in subscription order. Callers hold mu.
func (kb *KnowledgeBase) snapshotSubs() []func(Event) {
	subs := make([]func(Event), len(kb.subs))
	for i, sub := range kb.subs {
		subs[i] = sub.fn
	}
	return subs
}

// Notify subscribers outside the lock to avoid deadlocks.
func notify(subs []func(Event), e Event) {
	for _, sub := range subs {
		sub(e)
	}
}
