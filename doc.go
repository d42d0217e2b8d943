// Package fairy is a retained-mode 2D UI scene graph for [Ebitengine].
//
// A tree of display objects with transforms, clipping, masking and painting
// modes is flattened every frame into an ordered list of draw items. Items
// that share a material are moved next to each other wherever no overlap
// forbids it, so a UI with hundreds of widgets renders in a handful of draw
// calls.
//
// # Quick start
//
// The simplest way to get started is [Run], which creates a window and game
// loop for you:
//
//	stage := fairy.NewStage(fairy.StageConfig{DesignWidth: 800, DesignHeight: 600}, nil)
//	// ... add nodes ...
//	fairy.Run(stage, fairy.RunConfig{Title: "My UI", Width: 800, Height: 600})
//
// For full control, implement [ebiten.Game] yourself and call
// [Stage.Update] and [Stage.Draw] directly:
//
//	type Game struct{ stage *fairy.Stage }
//
//	func (g *Game) Update() error         { g.stage.Update(); return nil }
//	func (g *Game) Draw(s *ebiten.Image)  { g.stage.Draw(s) }
//	func (g *Game) Layout(w, h int) (int, int) { return w, h }
//
// # Scene graph
//
// Every element is a [Node]. Containers ([NewContainer]) hold children;
// leaves carry a [Surface] that turns a [MeshFactory] into geometry. The
// typed constructors [NewImage], [NewShape], [NewMovieClip] and [NewLabel]
// cover the common cases, and [NewWrapper] hosts content drawn by outside
// code.
//
//	panel := fairy.NewContainer("panel")
//	panel.SetClipRect(fairy.Rect{Width: 200, Height: 120})
//	stage.Root().AddChild(panel)
//
//	icon := fairy.NewImage("icon", atlas.Region("icon_ok"))
//	icon.SetPosition(16, 16)
//	panel.AddChild(icon.Node)
//
// # Batching
//
// Containers with a clip rect or mask, and containers that opt in with
// [Node.SetFairyBatching], become batching roots. A batching root reorders
// its flattened descendants by material while preserving the paint order of
// anything that overlaps.
//
// # Clipping and masking
//
// Rect clips intersect down the tree and may have soft edges. A mask child
// ([Node.SetMask]) clips the rest of its container to its shape, optionally
// reversed. Nested masks combine.
//
// # Painting
//
// [Node.SetCacheAsBitmap] and [Node.SetFilter] render a subtree offscreen
// and draw the result as a single quad.
//
// # Input and focus
//
// [Stage.Update] polls an [InputSource], hit-tests the tree and dispatches
// roll-over, touch and click callbacks. Focus moves with [Stage.SetFocus]
// and tab navigation with [Stage.FocusNext]. Synthetic input can be queued
// with [Stage.InjectClick] and friends or scripted with [LoadTestScript].
//
// # Logging
//
// The package logs through [log/slog]. It is silent until [SetLogger] is
// called.
//
// Tweens are provided via [gween]; lifecycle events can be published into a
// [Donburi] world with the fairy/ecs adapter.
//
// [Ebitengine]: https://ebitengine.org
// [gween]: https://github.com/tanema/gween
// [Donburi]: https://github.com/yohamta/donburi
package fairy
