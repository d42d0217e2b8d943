package fairy

import (
	"errors"
	"slices"
	"testing"
)

// fakeNative is a NativeTexture with no GPU backing.
type fakeNative struct {
	w, h     int
	disposed bool
}

func (f *fakeNative) Width() int  { return f.w }
func (f *fakeNative) Height() int { return f.h }
func (f *fakeNative) Dispose()    { f.disposed = true }

// fakeTarget is a RenderTarget that counts clears and reads back zeros.
type fakeTarget struct {
	fakeNative
	clears int
}

func (t *fakeTarget) Clear() { t.clears++ }

func (t *fakeTarget) ReadPixels(buf []byte) { clear(buf) }

// fakeRenderer records every submission.
type fakeRenderer struct {
	renders  [][]DrawItem
	dsts     []RenderTarget
	created  []*fakeTarget
	released int
	filters  int
}

func (r *fakeRenderer) NewRenderTarget(w, h int) RenderTarget {
	t := &fakeTarget{fakeNative: fakeNative{w: w, h: h}}
	r.created = append(r.created, t)
	return t
}

func (r *fakeRenderer) ReleaseRenderTarget(RenderTarget) { r.released++ }

func (r *fakeRenderer) Render(dst RenderTarget, items []DrawItem) {
	r.dsts = append(r.dsts, dst)
	r.renders = append(r.renders, slices.Clone(items))
}

func (r *fakeRenderer) ApplyFilter(Filter, RenderTarget, RenderTarget) { r.filters++ }

// last returns the items of the most recent Render call.
func (r *fakeRenderer) last() []DrawItem {
	if len(r.renders) == 0 {
		return nil
	}
	return r.renders[len(r.renders)-1]
}

func (r *fakeRenderer) reset() {
	r.renders = r.renders[:0]
	r.dsts = r.dsts[:0]
}

func newTestStage() (*Stage, *fakeRenderer) {
	r := &fakeRenderer{}
	return NewStage(StageConfig{DesignWidth: 200, DesignHeight: 200}, r), r
}

func newTestTexture(w, h int) *Texture {
	return NewTexture(&fakeNative{w: w, h: h})
}

func newScreen() *fakeTarget {
	return &fakeTarget{fakeNative: fakeNative{w: 200, h: 200}}
}

// newBox returns a filled w x h shape at (x, y).
func newBox(name string, x, y, w, h float64) *Shape {
	s := NewShape(name)
	s.SetSize(w, h)
	s.SetPosition(x, y)
	s.DrawRect(0, ColorWhite, ColorWhite)
	return s
}

// newTile returns a w x h image of tex at (x, y).
func newTile(name string, tex *Texture, x, y float64) *Image {
	img := NewImage(name, tex)
	img.SetPosition(x, y)
	return img
}

// expectPanic runs fn and checks it panics with an error wrapping want.
func expectPanic(t *testing.T, want error, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatalf("expected panic wrapping %v", want)
		}
		err, ok := r.(error)
		if !ok {
			t.Fatalf("panic value %v is not an error", r)
		}
		if !errors.Is(err, want) {
			t.Errorf("panic = %v, want %v", err, want)
		}
	}()
	fn()
}

func nodeNames(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name
	}
	return out
}

func itemNames(items []DrawItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it.Node != nil {
			out = append(out, it.Node.Name)
		}
	}
	return out
}
