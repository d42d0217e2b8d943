package ecs

import (
	"github.com/phanxgames/fairy"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// StageEventType is the Donburi event type for fairy stage events.
// Subscribe to it in your ECS systems to receive lifecycle, focus and
// pointer notifications of bound nodes.
var StageEventType = events.NewEventType[fairy.StageEvent]()

// NodeData links an entity to its scene graph node.
type NodeData struct {
	Node *fairy.Node
}

// NodeComponent is attached to every entity created by Store.Bind.
var NodeComponent = donburi.NewComponentType[NodeData]()

// Store is an EntityStore backed by a Donburi world.
type Store struct {
	world    donburi.World
	entities map[uint32]donburi.Entity
	nextID   uint32
}

// NewDonburiStore creates a store publishing into world. Events are queued
// and delivered by StageEventType.ProcessEvents.
func NewDonburiStore(world donburi.World) *Store {
	return &Store{world: world, entities: make(map[uint32]donburi.Entity)}
}

// EmitEvent implements fairy.EntityStore.
func (s *Store) EmitEvent(event fairy.StageEvent) {
	StageEventType.Publish(s.world, event)
}

// Bind creates an entity carrying NodeComponent for n and sets n.EntityID.
// A node that is already bound keeps its entity.
func (s *Store) Bind(n *fairy.Node) donburi.Entity {
	if e, ok := s.entities[n.EntityID]; ok && n.EntityID != 0 && s.world.Valid(e) {
		return e
	}
	s.nextID++
	e := s.world.Create(NodeComponent)
	donburi.SetValue(s.world.Entry(e), NodeComponent, NodeData{Node: n})
	n.EntityID = s.nextID
	s.entities[n.EntityID] = e
	return e
}

// Unbind removes the node's entity and clears its EntityID.
func (s *Store) Unbind(n *fairy.Node) {
	e, ok := s.entities[n.EntityID]
	if !ok {
		return
	}
	delete(s.entities, n.EntityID)
	if s.world.Valid(e) {
		s.world.Remove(e)
	}
	n.EntityID = 0
}

// Entity returns the entity bound under id.
func (s *Store) Entity(id uint32) (donburi.Entity, bool) {
	e, ok := s.entities[id]
	return e, ok
}

// Node returns the node linked to e, or nil.
func (s *Store) Node(e donburi.Entity) *fairy.Node {
	if !s.world.Valid(e) {
		return nil
	}
	entry := s.world.Entry(e)
	if !entry.HasComponent(NodeComponent) {
		return nil
	}
	return NodeComponent.Get(entry).Node
}
