package kb

import (
	"errors"
	"testing"
	"time"

	"github.com/signalsfoundry/wsn-simulator/core"
	"github.com/signalsfoundry/wsn-simulator/model"
)

func record(id string, at time.Time, delivered int) *RunRecord {
	return &RunRecord{
		ID:        id,
		CreatedAt: at,
		Nodes:     2,
		Params:    core.DefaultParams(),
		Result: &core.Result{
			Protocol:       model.ProtocolDirect,
			Rounds:         5,
			FinalNodes:     []*model.SensorNode{model.NewSensorNode(0, model.Point{}), model.NewSensorNode(1, model.Point{})},
			DeliveredTotal: delivered,
		},
	}
}

func TestStoreAddGetList(t *testing.T) {
	s := NewStore(0)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := s.Add(record("b", base.Add(time.Second), 10)); err != nil {
		t.Fatalf("Add b: %v", err)
	}
	if err := s.Add(record("a", base, 20)); err != nil {
		t.Fatalf("Add a: %v", err)
	}

	got, err := s.Get("b")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Result.DeliveredTotal != 10 {
		t.Fatalf("Get returned wrong record: %+v", got)
	}

	list := s.List()
	if len(list) != 2 || list[0].ID != "a" || list[1].ID != "b" {
		t.Fatalf("List order = %+v, want a then b", list)
	}
	if list[0].AliveCount != 2 || list[0].Protocol != model.ProtocolDirect || list[0].Rounds != 5 {
		t.Fatalf("summary = %+v", list[0])
	}
}

func TestStoreDuplicateAndMissing(t *testing.T) {
	s := NewStore(0)
	if err := s.Add(record("x", time.Now(), 0)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add(record("x", time.Now(), 0)); !errors.Is(err, ErrRunExists) {
		t.Fatalf("duplicate Add err = %v, want ErrRunExists", err)
	}
	if _, err := s.Get("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("Get missing err = %v", err)
	}
	if err := s.Delete("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("Delete missing err = %v", err)
	}
	if err := s.Add(nil); err == nil {
		t.Fatalf("expected error for nil record")
	}
}

func TestStoreEvictsOldestBeyondCapacity(t *testing.T) {
	s := NewStore(2)
	var events []Event
	s.Subscribe(func(ev Event) { events = append(events, ev) })

	now := time.Now()
	for i, id := range []string{"r1", "r2", "r3"} {
		if err := s.Add(record(id, now.Add(time.Duration(i)*time.Second), i)); err != nil {
			t.Fatalf("Add %s: %v", id, err)
		}
	}

	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	if _, err := s.Get("r1"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("r1 should have been evicted")
	}
	last := events[len(events)-1]
	if last.Type != EventRunEvicted || last.Run.ID != "r1" {
		t.Fatalf("last event = %+v, want eviction of r1", last)
	}
}

func TestStoreDeleteAndUnsubscribe(t *testing.T) {
	s := NewStore(0)
	calls := 0
	unsubscribe := s.Subscribe(func(Event) { calls++ })

	if err := s.Add(record("d", time.Now(), 1)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Delete("d"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if calls != 2 {
		t.Fatalf("subscriber calls = %d, want 2", calls)
	}

	unsubscribe()
	unsubscribe()
	if err := s.Add(record("e", time.Now(), 1)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if calls != 2 {
		t.Fatalf("unsubscribed callback still invoked")
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
}
