package fairy

import (
	"slices"
	"testing"
)

func newCachedPanel(s *Stage) (*Node, *Shape) {
	panel := NewContainer("panel")
	panel.SetPosition(10, 10)
	panel.SetAlpha(0.5)
	box := newBox("box", 0, 0, 30, 20)
	panel.AddChild(box.Node)
	panel.SetCacheAsBitmap(true)
	s.Root().AddChild(panel)
	return panel, box
}

func TestCacheAsBitmapCapturesOnce(t *testing.T) {
	s, r := newTestStage()
	panel, _ := newCachedPanel(s)

	if panel.PaintTexture() != nil {
		t.Error("PaintTexture before the first capture should be nil")
	}
	s.RenderFrame(newScreen())
	if got := s.LastFrameStats().PaintJobs; got != 1 {
		t.Fatalf("first frame paint jobs = %d, want 1", got)
	}
	if panel.PaintTexture() == nil {
		t.Error("PaintTexture should be set after a capture")
	}

	s.RenderFrame(newScreen())
	if got := s.LastFrameStats().PaintJobs; got != 0 {
		t.Errorf("cached frame paint jobs = %d, want 0", got)
	}

	panel.InvalidateCache()
	s.RenderFrame(newScreen())
	if got := s.LastFrameStats().PaintJobs; got != 1 {
		t.Errorf("paint jobs after InvalidateCache = %d, want 1", got)
	}
	if len(r.created) != 1 {
		t.Errorf("render targets created = %d, want 1 reused target", len(r.created))
	}
}

func TestPaintingJobRenderedBeforeScreen(t *testing.T) {
	s, r := newTestStage()
	newCachedPanel(s)
	screen := newScreen()
	s.RenderFrame(screen)

	if len(r.renders) != 2 {
		t.Fatalf("Render calls = %d, want job then screen", len(r.renders))
	}
	if r.dsts[0] != RenderTarget(r.created[0]) || r.dsts[1] != RenderTarget(screen) {
		t.Error("the capture should be rendered before the screen")
	}
	if r.created[0].clears != 1 {
		t.Errorf("capture target cleared %d times, want 1", r.created[0].clears)
	}

	job := r.renders[0]
	if got := itemNames(job); !slices.Equal(got, []string{"box"}) {
		t.Fatalf("job items = %v, want [box]", got)
	}
	if job[0].Alpha != 1 {
		t.Errorf("captured child alpha = %v, want 1", job[0].Alpha)
	}

	scr := r.renders[1]
	if got := itemNames(scr); !slices.Equal(got, []string{"panel"}) {
		t.Fatalf("screen items = %v, want the panel quad", got)
	}
	if scr[0].Alpha != 0.5 {
		t.Errorf("captured quad alpha = %v, want 0.5", scr[0].Alpha)
	}
}

func TestCaptureTransformIsLocal(t *testing.T) {
	s, r := newTestStage()
	newCachedPanel(s)
	s.RenderFrame(newScreen())

	tr := r.renders[0][0].Transform
	if tr[2] != 0 || tr[5] != 0 {
		t.Errorf("capture translation = (%v, %v), want the panel origin at 0", tr[2], tr[5])
	}
	tr = r.renders[1][0].Transform
	if tr[2] != 10 || tr[5] != 10 {
		t.Errorf("screen quad translation = (%v, %v), want (10, 10)", tr[2], tr[5])
	}
}

func TestLeavePaintingReleasesTargets(t *testing.T) {
	s, r := newTestStage()
	panel, _ := newCachedPanel(s)
	s.RenderFrame(newScreen())

	panel.SetCacheAsBitmap(false)
	if r.released != 1 {
		t.Errorf("released = %d, want 1", r.released)
	}
	if panel.PaintingMode() != 0 || panel.PaintTexture() != nil {
		t.Error("painting state should be cleared")
	}
	r.reset()
	s.RenderFrame(newScreen())
	if got := itemNames(r.last()); !slices.Equal(got, []string{"box"}) {
		t.Errorf("items = %v, want the box drawn directly", got)
	}
}

func TestPaintingModeRequestorsStack(t *testing.T) {
	n := NewContainer("n")
	n.EnterPaintingMode(PaintCacheAsBitmap)
	n.EnterPaintingMode(PaintUser)
	n.LeavePaintingMode(PaintCacheAsBitmap)
	if n.PaintingMode() != PaintUser {
		t.Errorf("PaintingMode = %b, want user only", n.PaintingMode())
	}
	n.LeavePaintingMode(PaintUser)
	if n.PaintingMode() != 0 {
		t.Error("painting mode should end with the last requestor")
	}
}

// --- Filters ---

func TestColorFilterOnLeafFoldsIntoMaterial(t *testing.T) {
	s, r := newTestStage()
	box := newBox("box", 0, 0, 10, 10)
	s.Root().AddChild(box.Node)
	cf := NewColorFilter()
	cf.Grayscale()
	box.SetFilter(cf)

	s.RenderFrame(newScreen())
	if box.PaintingMode() != 0 {
		t.Error("a color filter on a leaf should not paint offscreen")
	}
	items := r.last()
	if len(items) != 1 || items[0].ColorMatrix != &cf.Matrix {
		t.Fatal("item should carry the filter matrix")
	}
	if items[0].Material.Flags&FlagColorFilter == 0 {
		t.Error("material should carry the color filter keyword")
	}

	box.SetFilter(nil)
	s.RenderFrame(newScreen())
	if r.last()[0].ColorMatrix != nil {
		t.Error("removing the filter should clear the matrix")
	}
}

func TestFilterOnContainerPaintsOffscreen(t *testing.T) {
	s, r := newTestStage()
	panel := NewContainer("panel")
	panel.AddChild(newBox("box", 0, 0, 20, 20).Node)
	s.Root().AddChild(panel)
	panel.SetFilter(NewBlurFilter(2))

	s.RenderFrame(newScreen())
	if r.filters != 1 {
		t.Errorf("ApplyFilter calls = %d, want 1", r.filters)
	}
	if len(r.created) != 2 {
		t.Fatalf("targets = %d, want capture and output", len(r.created))
	}
	// Blur padding grows the capture on every side.
	if w := r.created[0].Width(); w != 24 {
		t.Errorf("capture width = %d, want 24", w)
	}

	s.RenderFrame(newScreen())
	if r.filters != 2 {
		t.Errorf("a filtered node captures every frame: ApplyFilter = %d", r.filters)
	}
}

func applyColorMatrix(m [20]float64, c [4]float64) [4]float64 {
	var out [4]float64
	for row := range 4 {
		v := m[row*5+4]
		for k := range 4 {
			v += m[row*5+k] * c[k]
		}
		out[row] = v
	}
	return out
}

func TestColorFilterBrightnessAccumulates(t *testing.T) {
	cf := NewColorFilter()
	cf.AdjustBrightness(0.1)
	cf.AdjustBrightness(0.1)
	got := applyColorMatrix(cf.Matrix, [4]float64{0.5, 0.5, 0.5, 1})
	for i := range 3 {
		if !approxEqual(got[i], 0.7, 1e-9) {
			t.Errorf("channel %d = %v, want 0.7", i, got[i])
		}
	}
	if got[3] != 1 {
		t.Errorf("alpha = %v, want 1", got[3])
	}

	cf.Reset()
	if cf.Matrix != identityColorMatrix {
		t.Error("Reset should restore the identity")
	}
}

func TestColorFilterGrayscale(t *testing.T) {
	cf := NewColorFilter()
	cf.Grayscale()
	got := applyColorMatrix(cf.Matrix, [4]float64{1, 0, 0, 1})
	for i := range 3 {
		if !approxEqual(got[i], lumR, 1e-9) {
			t.Errorf("channel %d = %v, want %v", i, got[i], lumR)
		}
	}
}

func TestColorFilterConcatOrder(t *testing.T) {
	// Brightness then contrast: contrast scales the already offset color.
	cf := NewColorFilter()
	cf.AdjustBrightness(0.2)
	cf.AdjustContrast(1)
	got := applyColorMatrix(cf.Matrix, [4]float64{0.5, 0.5, 0.5, 1})
	// (0.5 + 0.2) * 2 - 0.5
	if !approxEqual(got[0], 0.9, 1e-9) {
		t.Errorf("red = %v, want 0.9", got[0])
	}
}

func TestSaturationMinusOneIsGrayscale(t *testing.T) {
	a, b := NewColorFilter(), NewColorFilter()
	a.AdjustSaturation(-1)
	b.Grayscale()
	for i := range a.Matrix {
		if !approxEqual(a.Matrix[i], b.Matrix[i], 1e-9) {
			t.Fatalf("matrix[%d] = %v, want %v", i, a.Matrix[i], b.Matrix[i])
		}
	}
}

func TestFilterChainPadding(t *testing.T) {
	c := NewFilterChain(NewBlurFilter(3), NewOutlineFilter(2, ColorWhite), NewColorFilter())
	if c.Padding() != 5 {
		t.Errorf("Padding = %d, want 5", c.Padding())
	}
}
