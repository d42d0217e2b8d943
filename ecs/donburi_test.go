package ecs

import (
	"testing"

	"github.com/phanxgames/fairy"

	"github.com/yohamta/donburi"
)

func TestDonburiStore_ImplementsEntityStore(t *testing.T) {
	var _ fairy.EntityStore = NewDonburiStore(donburi.NewWorld())
}

func TestDonburiStore_EmitEvent(t *testing.T) {
	world := donburi.NewWorld()
	store := NewDonburiStore(world)

	var received []fairy.StageEvent
	StageEventType.Subscribe(world, func(w donburi.World, e fairy.StageEvent) {
		received = append(received, e)
	})

	store.EmitEvent(fairy.StageEvent{Type: fairy.EventClick, EntityID: 42, X: 100, Y: 200})
	store.EmitEvent(fairy.StageEvent{Type: fairy.EventFocusIn, EntityID: 7})

	// Events are queued until processed.
	if len(received) != 0 {
		t.Fatalf("received %d events before ProcessEvents", len(received))
	}
	StageEventType.ProcessEvents(world)

	if len(received) != 2 {
		t.Fatalf("expected 2 events, got %d", len(received))
	}
	if e := received[0]; e.Type != fairy.EventClick || e.EntityID != 42 || e.X != 100 || e.Y != 200 {
		t.Errorf("event 0: %+v", e)
	}
	if e := received[1]; e.Type != fairy.EventFocusIn || e.EntityID != 7 {
		t.Errorf("event 1: %+v", e)
	}
}

func TestStore_BindAssignsEntity(t *testing.T) {
	world := donburi.NewWorld()
	store := NewDonburiStore(world)
	n := fairy.NewContainer("panel")

	e := store.Bind(n)
	if n.EntityID == 0 {
		t.Fatal("EntityID not assigned")
	}
	if got, ok := store.Entity(n.EntityID); !ok || got != e {
		t.Errorf("Entity(%d) = %v, %v; want %v", n.EntityID, got, ok, e)
	}
	if got := store.Node(e); got != n {
		t.Errorf("Node(e) = %v, want %v", got, n)
	}
	if again := store.Bind(n); again != e {
		t.Errorf("second Bind created a new entity")
	}
}

func TestStore_Unbind(t *testing.T) {
	world := donburi.NewWorld()
	store := NewDonburiStore(world)
	n := fairy.NewContainer("panel")
	e := store.Bind(n)
	id := n.EntityID

	store.Unbind(n)
	if n.EntityID != 0 {
		t.Errorf("EntityID = %d after Unbind, want 0", n.EntityID)
	}
	if _, ok := store.Entity(id); ok {
		t.Error("entity still registered")
	}
	if world.Valid(e) {
		t.Error("entity still valid in world")
	}
	if store.Node(e) != nil {
		t.Error("Node returned a node for a removed entity")
	}
}

func TestStore_ReceivesStageLifecycle(t *testing.T) {
	world := donburi.NewWorld()
	store := NewDonburiStore(world)
	stage := fairy.NewStage(fairy.StageConfig{}, nil)
	stage.SetEntityStore(store)

	bound := fairy.NewContainer("bound")
	plain := fairy.NewContainer("plain")
	store.Bind(bound)

	var types []fairy.EventType
	StageEventType.Subscribe(world, func(w donburi.World, e fairy.StageEvent) {
		if e.EntityID != bound.EntityID {
			t.Errorf("event for unbound entity %d", e.EntityID)
		}
		types = append(types, e.Type)
	})

	stage.Root().AddChild(bound)
	stage.Root().AddChild(plain)
	stage.Root().RemoveChild(bound)
	StageEventType.ProcessEvents(world)

	want := []fairy.EventType{fairy.EventAddedToStage, fairy.EventRemovedFromStage}
	if len(types) != len(want) {
		t.Fatalf("got events %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event %d = %v, want %v", i, types[i], want[i])
		}
	}
}
