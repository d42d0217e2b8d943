package fairy

// injectedPointer is one synthetic mouse event in screen coordinates.
type injectedPointer struct {
	x, y    float64
	pressed bool
	button  MouseButton
}

// InjectPress queues a left-button press at a screen point. Each queued
// event replaces the mouse for one Update.
func (s *Stage) InjectPress(x, y float64) {
	s.injectQueue = append(s.injectQueue, injectedPointer{x: x, y: y, pressed: true})
}

// InjectMove queues a move with the button held.
func (s *Stage) InjectMove(x, y float64) {
	s.injectQueue = append(s.injectQueue, injectedPointer{x: x, y: y, pressed: true})
}

// InjectHover queues a move with no button held.
func (s *Stage) InjectHover(x, y float64) {
	s.injectQueue = append(s.injectQueue, injectedPointer{x: x, y: y})
}

// InjectRelease queues a release.
func (s *Stage) InjectRelease(x, y float64) {
	s.injectQueue = append(s.injectQueue, injectedPointer{x: x, y: y})
}

// InjectClick queues a press and a release at the same point (two updates).
func (s *Stage) InjectClick(x, y float64) {
	s.InjectPress(x, y)
	s.InjectRelease(x, y)
}

// InjectDrag queues a press at from, frames-2 interpolated moves and a
// release at to.
func (s *Stage) InjectDrag(fromX, fromY, toX, toY float64, frames int) {
	frames = max(frames, 2)
	s.InjectPress(fromX, fromY)
	steps := frames - 2
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps+1)
		s.InjectMove(fromX+(toX-fromX)*t, fromY+(toY-fromY)*t)
	}
	s.InjectRelease(toX, toY)
}

// PendingInjected returns the number of queued synthetic events.
func (s *Stage) PendingInjected() int { return len(s.injectQueue) }

// processInjectedInput feeds one queued event through pointer 0 and
// reports whether one was consumed.
func (s *Stage) processInjectedInput(mods KeyModifiers) bool {
	if len(s.injectQueue) == 0 {
		return false
	}
	ev := s.injectQueue[0]
	s.injectQueue = append(s.injectQueue[:0], s.injectQueue[1:]...)
	s.processPointer(0, ev.x, ev.y, ev.pressed, ev.button, mods)
	return true
}
