// Package ecs bridges fairy stage events into a [Donburi] world.
//
// [NewDonburiStore] returns an [fairy.EntityStore] that publishes every
// lifecycle, focus and pointer event of a bound node as a typed Donburi
// event. [Store.Bind] creates an entity for a node and tags the node with
// its ID so the stage routes the node's events to the world.
//
// Usage:
//
//	store := ecs.NewDonburiStore(world)
//	stage.SetEntityStore(store)
//	store.Bind(button)
//
//	ecs.StageEventType.Subscribe(world, func(w donburi.World, e fairy.StageEvent) {
//		// ...
//	})
//	ecs.StageEventType.ProcessEvents(world)
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
