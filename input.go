package fairy

import (
	"slices"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// pointer 0 is the mouse, 1-9 are touches
const maxPointers = 10

// TouchPoint is one active touch in screen coordinates.
type TouchPoint struct {
	ID   int
	X, Y float64
}

// InputSource is polled once per Stage.Update.
type InputSource interface {
	// Cursor returns the mouse position in screen coordinates.
	Cursor() (x, y float64)
	// MousePressed reports whether button is held.
	MousePressed(button MouseButton) bool
	// AppendTouches appends the active touches to buf.
	AppendTouches(buf []TouchPoint) []TouchPoint
	// TabPressed reports whether Tab went down this tick.
	TabPressed() bool
	// Modifiers returns the held modifier keys.
	Modifiers() KeyModifiers
}

// EbitenInput reads the ebiten input state.
type EbitenInput struct {
	touchIDs []ebiten.TouchID
}

// Cursor implements InputSource.
func (in *EbitenInput) Cursor() (float64, float64) {
	x, y := ebiten.CursorPosition()
	return float64(x), float64(y)
}

// MousePressed implements InputSource.
func (in *EbitenInput) MousePressed(b MouseButton) bool {
	switch b {
	case MouseButtonRight:
		return ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight)
	case MouseButtonMiddle:
		return ebiten.IsMouseButtonPressed(ebiten.MouseButtonMiddle)
	default:
		return ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	}
}

// AppendTouches implements InputSource.
func (in *EbitenInput) AppendTouches(buf []TouchPoint) []TouchPoint {
	in.touchIDs = ebiten.AppendTouchIDs(in.touchIDs[:0])
	for _, id := range in.touchIDs {
		x, y := ebiten.TouchPosition(id)
		buf = append(buf, TouchPoint{ID: int(id), X: float64(x), Y: float64(y)})
	}
	return buf
}

// TabPressed implements InputSource.
func (in *EbitenInput) TabPressed() bool {
	return inpututil.IsKeyJustPressed(ebiten.KeyTab)
}

// Modifiers implements InputSource.
func (in *EbitenInput) Modifiers() KeyModifiers {
	var mods KeyModifiers
	if ebiten.IsKeyPressed(ebiten.KeyShift) {
		mods |= ModShift
	}
	if ebiten.IsKeyPressed(ebiten.KeyControl) {
		mods |= ModCtrl
	}
	if ebiten.IsKeyPressed(ebiten.KeyAlt) {
		mods |= ModAlt
	}
	if ebiten.IsKeyPressed(ebiten.KeyMeta) {
		mods |= ModMeta
	}
	return mods
}

// pointerState tracks one pointer between ticks.
type pointerState struct {
	active      bool
	touchID     int
	down        bool
	button      MouseButton
	x, y        float64
	touchTarget *Node
	// rollOver is the chain from the hovered node up to the root.
	rollOver      []*Node
	rollOverSpare []*Node
}

// processInput polls the input source and runs the pointer state machines.
func (s *Stage) processInput() {
	var mods KeyModifiers
	if s.input != nil {
		mods = s.input.Modifiers()
	}
	if !s.processInjectedInput(mods) && s.input != nil {
		x, y := s.input.Cursor()
		button, pressed := MouseButtonLeft, false
		for _, b := range [...]MouseButton{MouseButtonLeft, MouseButtonRight, MouseButtonMiddle} {
			if s.input.MousePressed(b) {
				button, pressed = b, true
				break
			}
		}
		s.processPointer(0, x, y, pressed, button, mods)
	}
	if s.input != nil {
		s.processTouches(mods)
		if s.input.TabPressed() {
			s.FocusNext(mods&ModShift != 0)
		}
	}
}

func (s *Stage) processTouches(mods KeyModifiers) {
	s.touchBuf = s.input.AppendTouches(s.touchBuf[:0])
	var seen [maxPointers]bool
	for _, tp := range s.touchBuf {
		slot := s.touchSlot(tp.ID)
		if slot < 0 {
			continue
		}
		seen[slot] = true
		s.processPointer(slot, tp.X, tp.Y, true, MouseButtonLeft, mods)
	}
	for i := 1; i < maxPointers; i++ {
		ps := &s.pointers[i]
		if ps.active && !seen[i] {
			s.processPointer(i, ps.x, ps.y, false, MouseButtonLeft, mods)
			s.updateRollOver(i, nil, mods)
			ps.active = false
		}
	}
}

// touchSlot maps a touch ID to a pointer slot, allocating one if needed.
// Returns -1 when every slot is in use.
func (s *Stage) touchSlot(id int) int {
	for i := 1; i < maxPointers; i++ {
		if s.pointers[i].active && s.pointers[i].touchID == id {
			return i
		}
	}
	for i := 1; i < maxPointers; i++ {
		if !s.pointers[i].active {
			s.pointers[i].active = true
			s.pointers[i].touchID = id
			return i
		}
	}
	return -1
}

// processPointer runs one pointer through hover, press and release.
func (s *Stage) processPointer(id int, x, y float64, pressed bool, button MouseButton, mods KeyModifiers) {
	ps := &s.pointers[id]
	ps.x, ps.y = x, y
	target := s.HitTest(Vec2{x, y})
	s.updateRollOver(id, target, mods)

	switch {
	case pressed && !ps.down:
		ps.down = true
		ps.button = button
		ps.touchTarget = target
		if target != nil {
			for f := target; f != nil; f = f.parent {
				if f.Focusable() {
					s.SetFocus(f)
					break
				}
			}
		}
		s.bubble(EventTouchBegin, target, id, x, y, button, mods)
	case !pressed && ps.down:
		ps.down = false
		begin := ps.touchTarget
		ps.touchTarget = nil
		s.bubble(EventTouchEnd, target, id, x, y, ps.button, mods)
		if begin != nil && target != nil && (begin == target || begin.IsAncestorOf(target)) {
			s.bubble(EventClick, begin, id, x, y, ps.button, mods)
		}
	}
}

// updateRollOver diffs the hovered chain against the previous tick. Nodes
// leaving the chain get roll-out (deepest first), nodes entering get
// roll-over (outermost first).
func (s *Stage) updateRollOver(id int, target *Node, mods KeyModifiers) {
	ps := &s.pointers[id]
	next := ps.rollOverSpare[:0]
	for n := target; n != nil; n = n.parent {
		next = append(next, n)
	}
	prev := ps.rollOver
	ps.rollOver = next
	ps.rollOverSpare = prev

	for _, n := range prev {
		if !slices.Contains(next, n) && !n.IsDisposed() {
			s.dispatchPointer(EventRollOut, n, n, id, ps.x, ps.y, ps.button, mods)
		}
	}
	for i := len(next) - 1; i >= 0; i-- {
		n := next[i]
		if n == nil || slices.Contains(prev, n) || n.IsDisposed() {
			continue
		}
		s.dispatchPointer(EventRollOver, n, n, id, ps.x, ps.y, ps.button, mods)
		// A callback may have removed the rest of the chain.
		if n.stage != s {
			break
		}
	}
	clear(ps.rollOverSpare)
}

// bubble dispatches ev to target and each ancestor, snapshotting the chain
// first so callbacks may restructure the tree.
func (s *Stage) bubble(ev EventType, target *Node, id int, x, y float64, button MouseButton, mods KeyModifiers) {
	if target == nil {
		return
	}
	var buf [16]*Node
	chain := buf[:0]
	for n := target; n != nil; n = n.parent {
		chain = append(chain, n)
	}
	for _, n := range chain {
		if n.IsDisposed() {
			continue
		}
		s.dispatchPointer(ev, n, target, id, x, y, button, mods)
	}
}

func (s *Stage) dispatchPointer(ev EventType, n, target *Node, id int, x, y float64, button MouseButton, mods KeyModifiers) {
	local := n.screenToLocal(Vec2{x, y})
	pc := PointerContext{
		Node: n, Target: target,
		ScreenX: x, ScreenY: y, LocalX: local.X, LocalY: local.Y,
		Button: button, PointerID: id, Modifiers: mods,
	}
	var fn func(PointerContext)
	switch ev {
	case EventRollOver:
		fn = n.OnRollOver
	case EventRollOut:
		fn = n.OnRollOut
	case EventTouchBegin:
		fn = n.OnTouchBegin
	case EventTouchEnd:
		fn = n.OnTouchEnd
	case EventClick:
		fn = n.OnClick
	}
	if fn != nil {
		fn(pc)
	}
	s.emit(StageEvent{Type: ev, Node: n, X: x, Y: y, Button: button, PointerID: id, Modifiers: mods})
}

// screenToLocal converts a screen point through the camera of the nearest
// camera-mode ancestor, if any.
func (n *Node) screenToLocal(p Vec2) Vec2 {
	for a := n; a != nil; a = a.parent {
		if a.container != nil && a.container.renderMode != RenderOverlay {
			if cam := a.cameraFor(); cam != nil {
				o, d := cam.ScreenRay(p)
				return n.WorldToLocal(o, d)
			}
			break
		}
	}
	return n.GlobalToLocal(p)
}
