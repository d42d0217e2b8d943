package fairy

import (
	"slices"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// EventType identifies a StageEvent.
type EventType uint8

const (
	EventAddedToStage EventType = iota
	EventRemovedFromStage
	EventFocusIn
	EventFocusOut
	EventRollOver
	EventRollOut
	EventTouchBegin
	EventTouchEnd
	EventClick
)

var eventTypeNames = [...]string{
	"AddedToStage", "RemovedFromStage", "FocusIn", "FocusOut",
	"RollOver", "RollOut", "TouchBegin", "TouchEnd", "Click",
}

func (e EventType) String() string {
	if int(e) < len(eventTypeNames) {
		return eventTypeNames[e]
	}
	return "Unknown"
}

// StageEvent describes a lifecycle, focus or pointer notification. Pointer
// fields are zero for lifecycle and focus events.
type StageEvent struct {
	Type      EventType
	Node      *Node
	EntityID  uint32
	X, Y      float64 // screen position
	Button    MouseButton
	PointerID int
	Modifiers KeyModifiers
}

// EntityStore receives every StageEvent whose node carries an EntityID. The
// ecs package provides a donburi-backed implementation.
type EntityStore interface {
	EmitEvent(event StageEvent)
}

// Ticker is advanced once per Stage.Update. Returning false unregisters it.
type Ticker interface {
	Advance(dt float64) bool
}

// StageConfig holds stage settings. The zero value is usable.
type StageConfig struct {
	// DesignWidth and DesignHeight size the default camera viewport.
	DesignWidth, DesignHeight float64
	// TextureGCInterval is the number of frames between texture sweeps
	// (default 60).
	TextureGCInterval int
	// TextureIdleSweeps is how many sweeps an unreferenced texture survives
	// before it is disposed (default 2).
	TextureIdleSweeps int
	// ScreenshotDir receives PNGs queued with Screenshot (default
	// "screenshots").
	ScreenshotDir string
	// Debug logs per-frame statistics at debug level.
	Debug bool
}

func (c *StageConfig) withDefaults() StageConfig {
	out := *c
	if out.DesignWidth <= 0 {
		out.DesignWidth = 800
	}
	if out.DesignHeight <= 0 {
		out.DesignHeight = 600
	}
	if out.TextureGCInterval <= 0 {
		out.TextureGCInterval = 60
	}
	if out.TextureIdleSweeps <= 0 {
		out.TextureIdleSweeps = 2
	}
	if out.ScreenshotDir == "" {
		out.ScreenshotDir = "screenshots"
	}
	return out
}

// Stage is the application context: it owns the root container, the frame
// context, the renderer, input state, focus and the texture registry.
type Stage struct {
	cfg      StageConfig
	root     *Node
	camera   *Camera
	ctx      *FrameContext
	renderer Renderer
	input    InputSource
	store    EntityStore
	debug    bool

	subscribers []func(StageEvent)

	focus *Node

	pointers    [maxPointers]pointerState
	injectQueue []injectedPointer
	touchBuf    []TouchPoint
	testRunner  *TestRunner

	screenshotQueue []string

	tickers      []Ticker
	tickersSpare []Ticker

	textures []*Texture
	sweptAt  uint64
	frame    uint64
	lastDraw frameStats
}

// NewStage creates a stage. A nil renderer selects the ebiten renderer.
func NewStage(cfg StageConfig, r Renderer) *Stage {
	if r == nil {
		r = NewEbitenRenderer()
	}
	s := &Stage{cfg: cfg.withDefaults(), renderer: r}
	s.debug = s.cfg.Debug
	s.root = NewContainer("stage")
	s.root.kind = KindRoot
	s.root.stage = s
	s.camera = NewCamera(Rect{Width: s.cfg.DesignWidth, Height: s.cfg.DesignHeight})
	s.ctx = NewFrameContext(r)
	return s
}

// Root returns the root container.
func (s *Stage) Root() *Node { return s.root }

// Camera returns the default camera used by camera render modes.
func (s *Stage) Camera() *Camera { return s.camera }

// SetCamera replaces the default camera.
func (s *Stage) SetCamera(c *Camera) { s.camera = c }

// Context returns the frame context reused across frames.
func (s *Stage) Context() *FrameContext { return s.ctx }

// Renderer returns the renderer draws are submitted to.
func (s *Stage) Renderer() Renderer { return s.renderer }

// SetInput selects the input source polled by Update. nil disables polling;
// injected events still run.
func (s *Stage) SetInput(in InputSource) { s.input = in }

// SetEntityStore sets the optional ECS bridge.
func (s *Stage) SetEntityStore(store EntityStore) { s.store = store }

// Subscribe registers fn for every stage event.
func (s *Stage) Subscribe(fn func(StageEvent)) {
	s.subscribers = append(s.subscribers, fn)
}

// SetDebugMode toggles per-frame debug statistics.
func (s *Stage) SetDebugMode(enabled bool) { s.debug = enabled }

// Frame returns the number of frames drawn so far.
func (s *Stage) Frame() uint64 { return s.frame }

func (s *Stage) emit(ev StageEvent) {
	if ev.Node != nil {
		ev.EntityID = ev.Node.EntityID
		if ev.Type == EventAddedToStage && ev.Node.ticker != nil {
			s.AddTicker(ev.Node.ticker)
		}
	}
	for _, fn := range s.subscribers {
		fn(ev)
	}
	if s.store != nil && ev.EntityID != 0 {
		s.store.EmitEvent(ev)
	}
}

// AddTicker registers t for per-frame advancement.
func (s *Stage) AddTicker(t Ticker) {
	if !slices.Contains(s.tickers, t) {
		s.tickers = append(s.tickers, t)
	}
}

func (s *Stage) advanceTickers(dt float64) {
	pending := s.tickers
	s.tickers = s.tickersSpare[:0]
	for _, t := range pending {
		if t.Advance(dt) && !slices.Contains(s.tickers, t) {
			s.tickers = append(s.tickers, t)
		}
	}
	clear(pending)
	s.tickersSpare = pending[:0]
}

// --- Focus ---

// Focus returns the focused node, or nil.
func (s *Stage) Focus() *Node { return s.focus }

// SetFocus moves focus to n (nil clears it). Focus-out fires before
// focus-in; if a callback moves focus again the remaining notifications of
// this call are dropped.
func (s *Stage) SetFocus(n *Node) {
	if n != nil && (n.IsDisposed() || n.stage != s) {
		n = nil
	}
	if s.focus == n {
		return
	}
	old := s.focus
	s.focus = n
	if old != nil {
		if old.OnFocusOut != nil {
			old.OnFocusOut()
		}
		s.emit(StageEvent{Type: EventFocusOut, Node: old})
		if s.focus != n {
			return
		}
	}
	if n != nil {
		if n.OnFocusIn != nil {
			n.OnFocusIn()
		}
		s.emit(StageEvent{Type: EventFocusIn, Node: n})
	}
}

// onNodeRemoved releases focus and pointer state held by the subtree of
// child before it is unlinked from its parent.
func (s *Stage) onNodeRemoved(child *Node) {
	if f := s.focus; f != nil && (f == child || child.IsAncestorOf(f)) {
		var next *Node
		for p := child.parent; p != nil; p = p.parent {
			if p.Focusable() && p.stage == s {
				next = p
				break
			}
		}
		s.SetFocus(next)
	}
	inSubtree := func(n *Node) bool { return n == child || child.IsAncestorOf(n) }
	for i := range s.pointers {
		ps := &s.pointers[i]
		ps.rollOver = slices.DeleteFunc(ps.rollOver, inSubtree)
		if ps.touchTarget != nil && inSubtree(ps.touchTarget) {
			ps.touchTarget = nil
		}
	}
}

// tabGroup returns the container that bounds tab navigation from n.
func (s *Stage) tabGroup(n *Node) *Node {
	for p := n; p != nil; p = p.parent {
		if p != n && p.flags&flagTabStopChildren != 0 {
			return p
		}
	}
	return s.root
}

func canTabTo(n *Node) bool {
	if n.flags&flagTabStop == 0 || n.IsDisposed() {
		return false
	}
	for p := n; p != nil; p = p.parent {
		if !p.visible || !p.touchable {
			return false
		}
	}
	return true
}

// FocusNext moves focus to the next tab stop after the focused node, or the
// previous one when backward is true, wrapping within the focus group.
// It reports whether focus moved.
func (s *Stage) FocusNext(backward bool) bool {
	group := s.root
	if s.focus != nil {
		group = s.tabGroup(s.focus)
	}
	it := group.Descendants(backward)
	var first *Node
	passed := s.focus == nil
	for it.Next() {
		n := it.Node()
		if n == s.focus {
			passed = true
			continue
		}
		if !canTabTo(n) {
			continue
		}
		if passed {
			s.SetFocus(n)
			return true
		}
		if first == nil {
			first = n
		}
	}
	if first != nil {
		s.SetFocus(first)
		return true
	}
	return false
}

// --- Textures ---

// RegisterTexture places a root texture under the stage's garbage
// collection: once unreferenced for TextureIdleSweeps sweeps it is disposed.
func (s *Stage) RegisterTexture(t *Texture) {
	if t == nil || !t.IsRoot() || slices.Contains(s.textures, t) {
		return
	}
	s.textures = append(s.textures, t)
}

// Textures returns the registered root textures.
func (s *Stage) Textures() []*Texture { return s.textures }

// SweepTextures disposes registered textures that stayed unreferenced.
func (s *Stage) SweepTextures() {
	s.textures = slices.DeleteFunc(s.textures, func(t *Texture) bool {
		if t.Disposed() {
			return true
		}
		if t.RefCount() > 0 {
			t.idle = 0
			return false
		}
		t.idle++
		if t.idle >= s.cfg.TextureIdleSweeps {
			pkgLogger.Debug("fairy: disposing idle texture", "w", t.Width(), "h", t.Height())
			t.Dispose()
			return true
		}
		return false
	})
}

// --- Frame driver ---

// Update advances one tick at the ebiten TPS rate.
func (s *Stage) Update() {
	s.UpdateDelta(1 / float64(ebiten.TPS()))
}

// UpdateDelta advances one tick of dt seconds: camera, tickers, input and
// the periodic texture sweep.
func (s *Stage) UpdateDelta(dt float64) {
	if s.camera != nil {
		s.camera.update(float32(dt))
	}
	s.advanceTickers(dt)
	if s.testRunner != nil {
		s.testRunner.step(s)
	}
	s.processInput()
	if s.frame >= s.sweptAt+uint64(s.cfg.TextureGCInterval) {
		s.sweptAt = s.frame
		s.SweepTextures()
	}
}

// HitTest returns the topmost touchable node under a screen point.
func (s *Stage) HitTest(screen Vec2) *Node {
	h := hitTester{
		screen:   screen,
		origin:   Vec3{screen.X, screen.Y, 0},
		dir:      Vec3{0, 0, 1},
		forTouch: true,
	}
	return s.root.hitTest(&h)
}

// Draw renders the frame onto an ebiten screen image.
func (s *Stage) Draw(screen *ebiten.Image) {
	s.RenderFrame(NewImageTarget(screen))
}

// RenderFrame runs one update traversal and submits paint captures, then
// the screen list, to dst.
func (s *Stage) RenderFrame(dst RenderTarget) {
	var t0 time.Time
	if s.debug {
		t0 = time.Now()
	}
	ctx := s.ctx
	ctx.Begin()
	s.root.update(ctx)
	ctx.End()
	s.frame++

	var traverse time.Duration
	if s.debug {
		traverse = time.Since(t0)
		t0 = time.Now()
	}
	var rs RenderStats
	for _, job := range ctx.PaintJobs() {
		job.Target.Clear()
		s.render(job.Target, job.Items, &rs)
		if job.Filter != nil && job.Output != nil {
			job.Output.Clear()
			s.renderer.ApplyFilter(job.Filter, job.Target, job.Output)
		}
	}
	s.render(dst, ctx.ScreenItems(), &rs)
	s.flushScreenshots(dst)

	s.lastDraw = ctx.stats
	s.lastDraw.jobs = len(ctx.PaintJobs())
	s.lastDraw.batches = rs.Batches
	s.lastDraw.layers = rs.Layers
	if s.debug {
		s.lastDraw.traverseTime = traverse
		s.lastDraw.submitTime = time.Since(t0)
		s.debugLog(s.lastDraw)
	}
}

// statsReporter is implemented by renderers that count their submissions.
type statsReporter interface {
	Stats() RenderStats
}

func (s *Stage) render(dst RenderTarget, items []DrawItem, acc *RenderStats) {
	s.renderer.Render(dst, items)
	if r, ok := s.renderer.(statsReporter); ok {
		st := r.Stats()
		acc.Batches += st.Batches
		acc.Layers += st.Layers
	}
}

// Dispose tears the stage down: the tree first, then registered textures.
func (s *Stage) Dispose() {
	s.focus = nil
	for i := range s.pointers {
		s.pointers[i] = pointerState{}
	}
	s.root.RemoveChildren(true)
	for _, t := range s.textures {
		t.Dispose()
	}
	s.textures = nil
	s.tickers = nil
}
