package kb

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/signalsfoundry/wsn-simulator/core"
	"github.com/signalsfoundry/wsn-simulator/model"
)

var (
	// ErrRunExists indicates a run with the same ID is already stored.
	ErrRunExists = errors.New("run already exists")
	// ErrRunNotFound indicates a requested run is not stored.
	ErrRunNotFound = errors.New("run not found")
)

// EventType indicates what kind of change happened in the store.
type EventType int

const (
	EventRunStored EventType = iota
	EventRunDeleted
	EventRunEvicted
)

// Event is emitted to subscribers when the set of stored runs changes.
type Event struct {
	Type EventType
	Run  RunSummary
}

// RunRecord is a finished simulation kept for later retrieval.
type RunRecord struct {
	ID        string       `json:"id"`
	CreatedAt time.Time    `json:"created_at"`
	Nodes     int          `json:"nodes"`
	Params    core.Params  `json:"params"`
	Result    *core.Result `json:"result"`
}

// RunSummary is the listing view of a RunRecord.
type RunSummary struct {
	ID             string         `json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	Protocol       model.Protocol `json:"protocol"`
	Nodes          int            `json:"nodes"`
	Rounds         int            `json:"rounds"`
	Seed           uint64         `json:"seed"`
	DeliveredTotal int            `json:"delivered_total"`
	AliveCount     int            `json:"alive_count"`
}

// Summary condenses the record for listings.
func (r *RunRecord) Summary() RunSummary {
	s := RunSummary{ID: r.ID, CreatedAt: r.CreatedAt, Nodes: r.Nodes}
	if r.Result != nil {
		s.Protocol = r.Result.Protocol
		s.Rounds = r.Result.Rounds
		s.Seed = r.Result.Seed
		s.DeliveredTotal = r.Result.DeliveredTotal
		s.AliveCount = r.Result.AliveCount()
	}
	return s
}

// Store is an in-memory, thread-safe registry of finished runs. It lives
// only as long as the process; nothing is persisted.
//
// When a capacity is set, storing a run beyond it evicts the oldest one.
type Store struct {
	mu sync.RWMutex

	runs     map[string]*RunRecord
	order    []string
	capacity int

	subs   map[int]func(Event)
	nextID int
}

// NewStore constructs an empty store. capacity <= 0 means unbounded.
func NewStore(capacity int) *Store {
	return &Store{
		runs:     make(map[string]*RunRecord),
		capacity: capacity,
		subs:     make(map[int]func(Event)),
	}
}

// Add stores rec. It returns ErrRunExists if the ID is taken.
func (s *Store) Add(rec *RunRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("run record with non-empty ID is required")
	}

	s.mu.Lock()
	if _, exists := s.runs[rec.ID]; exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrRunExists, rec.ID)
	}
	s.runs[rec.ID] = rec
	s.order = append(s.order, rec.ID)

	events := []Event{{Type: EventRunStored, Run: rec.Summary()}}
	for s.capacity > 0 && len(s.order) > s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		if evicted, ok := s.runs[oldest]; ok {
			delete(s.runs, oldest)
			events = append(events, Event{Type: EventRunEvicted, Run: evicted.Summary()})
		}
	}
	subs := s.subscribers()
	s.mu.Unlock()

	// Notify subscribers outside the lock to avoid deadlocks.
	notify(subs, events...)
	return nil
}

// Get returns the run with the given ID.
func (s *Store) Get(id string) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrRunNotFound, id)
	}
	return rec, nil
}

// List returns summaries of all stored runs, oldest first.
func (s *Store) List() []RunSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]RunSummary, 0, len(s.runs))
	for _, rec := range s.runs {
		res = append(res, rec.Summary())
	}
	sort.SliceStable(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].ID < res[j].ID
		}
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	return res
}

// Delete removes the run with the given ID.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	rec, ok := s.runs[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrRunNotFound, id)
	}
	delete(s.runs, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	subs := s.subscribers()
	s.mu.Unlock()

	notify(subs, Event{Type: EventRunDeleted, Run: rec.Summary()})
	return nil
}

// Len reports the number of stored runs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

// Subscribe registers a callback for store events. It returns an
// unsubscribe function that is safe to call more than once.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// subscribers snapshots callbacks in registration order. Caller holds mu.
func (s *Store) subscribers() []func(Event) {
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(Event), len(ids))
	for i, id := range ids {
		out[i] = s.subs[id]
	}
	return out
}

func notify(subs []func(Event), events ...Event) {
	for _, ev := range events {
		for _, fn := range subs {
			fn(ev)
		}
	}
}
