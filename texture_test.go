package fairy

import (
	"runtime"
	"testing"
)

func TestRefCountOnRoot(t *testing.T) {
	root := newTestTexture(64, 64)
	sub := NewSubTexture(root, Rect{X: 0, Y: 0, Width: 16, Height: 16}, false)

	released := 0
	root.OnRelease = func(tex *Texture) {
		if tex != root {
			t.Error("OnRelease should receive the root")
		}
		released++
	}

	sub.AddRef()
	root.AddRef()
	if root.RefCount() != 2 || sub.RefCount() != 2 {
		t.Errorf("RefCount = %d/%d, want 2", root.RefCount(), sub.RefCount())
	}
	sub.ReleaseRef()
	if released != 0 {
		t.Error("OnRelease fired before reaching zero")
	}
	root.ReleaseRef()
	if released != 1 {
		t.Errorf("OnRelease fired %d times, want 1", released)
	}
	if root.Disposed() {
		t.Error("reaching zero references must not dispose the texture")
	}

	// Over-release is ignored.
	root.ReleaseRef()
	if root.RefCount() != 0 {
		t.Errorf("RefCount = %d after over-release", root.RefCount())
	}
}

func TestRootDisposeInvalidatesRegions(t *testing.T) {
	native := &fakeNative{w: 64, h: 64}
	root := NewTexture(native)
	sub := NewSubTexture(root, Rect{X: 8, Y: 8, Width: 16, Height: 16}, false)
	subsub := NewSubTexture(sub, Rect{X: 2, Y: 2, Width: 4, Height: 4}, false)

	root.Dispose()

	if !native.disposed {
		t.Error("native image not disposed")
	}
	for _, tex := range []*Texture{root, sub, subsub} {
		if !tex.Disposed() {
			t.Error("texture should report disposed")
		}
		if tex.Native() != nil {
			t.Error("Native should be nil after root disposal")
		}
		if tex.Root() != nil {
			t.Error("Root should be nil after root disposal")
		}
	}
	expectPanic(t, ErrDisposedTexture, func() {
		NewSubTexture(sub, Rect{Width: 1, Height: 1}, false)
	})
}

func TestSubDisposeKeepsRoot(t *testing.T) {
	root := newTestTexture(32, 32)
	sub := NewSubTexture(root, Rect{Width: 8, Height: 8}, false)
	sub.Dispose()
	if !sub.Disposed() {
		t.Error("sub should be disposed")
	}
	if root.Disposed() {
		t.Error("disposing a region must not dispose its root")
	}
}

func TestSubOfSubResolvesToRoot(t *testing.T) {
	root := newTestTexture(100, 200)
	sub := NewSubTexture(root, Rect{X: 10, Y: 20, Width: 50, Height: 50}, false)
	subsub := NewSubTexture(sub, Rect{X: 5, Y: 5, Width: 10, Height: 10}, false)

	if subsub.Root() != root {
		t.Error("nested region should resolve to the root")
	}
	if got := subsub.Region(); got != (Rect{X: 15, Y: 25, Width: 10, Height: 10}) {
		t.Errorf("Region = %v", got)
	}
}

func TestUVRect(t *testing.T) {
	root := newTestTexture(100, 200)
	sub := NewSubTexture(root, Rect{X: 10, Y: 20, Width: 30, Height: 40}, false)
	want := Rect{X: 0.1, Y: 0.1, Width: 0.3, Height: 0.2}
	got := sub.UVRect()
	if !approxEqual(got.X, want.X, epsilon) || !approxEqual(got.Y, want.Y, epsilon) ||
		!approxEqual(got.Width, want.Width, epsilon) || !approxEqual(got.Height, want.Height, epsilon) {
		t.Errorf("UVRect = %v, want %v", got, want)
	}
}

func TestRotatedRegionSize(t *testing.T) {
	root := newTestTexture(64, 64)
	sub := NewSubTexture(root, Rect{Width: 10, Height: 30}, true)
	if sub.Width() != 30 || sub.Height() != 10 {
		t.Errorf("logical size = %vx%v, want 30x10", sub.Width(), sub.Height())
	}
	if !sub.Rotated() {
		t.Error("Rotated should be true")
	}
}

func TestGetDrawRectTrimmed(t *testing.T) {
	root := newTestTexture(64, 64)
	sub := NewSubTexture(root, Rect{Width: 20, Height: 10}, false)
	sub.SetTrim(Vec2{5, 2}, Vec2{40, 20})

	got := sub.GetDrawRect(Rect{Width: 80, Height: 40})
	want := Rect{X: 10, Y: 4, Width: 40, Height: 20}
	if got != want {
		t.Errorf("GetDrawRect = %v, want %v", got, want)
	}

	plain := NewSubTexture(root, Rect{Width: 20, Height: 10}, false)
	if r := (Rect{Width: 7, Height: 3}); plain.GetDrawRect(r) != r {
		t.Error("untrimmed region should return the draw rect unchanged")
	}
}

func TestReload(t *testing.T) {
	first := &fakeNative{w: 32, h: 32}
	root := NewTexture(first)
	sub := NewSubTexture(root, Rect{X: 4, Y: 4, Width: 8, Height: 8}, false)
	v := root.Version()

	resized := 0
	root.OnSizeChanged = func(*Texture) { resized++ }

	root.Reload(&fakeNative{w: 32, h: 32})
	if resized != 0 {
		t.Error("same-size reload should not report a size change")
	}
	if !first.disposed {
		t.Error("replaced native image should be disposed")
	}
	root.Reload(&fakeNative{w: 64, h: 64})
	if resized != 1 {
		t.Errorf("OnSizeChanged fired %d times, want 1", resized)
	}
	if root.Version() != v+2 || sub.Version() != v+2 {
		t.Errorf("Version = %d, want %d", root.Version(), v+2)
	}
	if sub.Region() != (Rect{X: 4, Y: 4, Width: 8, Height: 8}) {
		t.Error("region rectangle should survive a reload")
	}
	expectPanic(t, ErrNotRootTexture, func() { sub.Reload(&fakeNative{w: 1, h: 1}) })
}

func TestReloadRebuildsMesh(t *testing.T) {
	s, _ := newTestStage()
	root := newTestTexture(32, 32)
	img := NewImage("img", root)
	s.Root().AddChild(img.Node)
	s.RenderFrame(newScreen())
	before := img.Surface().RebuildCount()

	root.Reload(&fakeNative{w: 64, h: 64})
	s.RenderFrame(newScreen())
	if img.Surface().RebuildCount() != before+1 {
		t.Errorf("RebuildCount = %d, want %d", img.Surface().RebuildCount(), before+1)
	}
}

func TestDisposedTextureSkipsNode(t *testing.T) {
	s, r := newTestStage()
	root := newTestTexture(32, 32)
	img := NewImage("img", root)
	s.Root().AddChild(img.Node)
	root.Dispose()

	s.RenderFrame(newScreen())
	if len(r.last()) != 0 {
		t.Errorf("disposed texture still drawn: %v", itemNames(r.last()))
	}
}

// --- Stage texture sweep ---

func TestSweepDisposesIdleTextures(t *testing.T) {
	s := NewStage(StageConfig{TextureIdleSweeps: 2}, &fakeRenderer{})
	idle := newTestTexture(8, 8)
	held := newTestTexture(8, 8)
	held.AddRef()
	s.RegisterTexture(idle)
	s.RegisterTexture(held)
	s.RegisterTexture(held)

	if len(s.Textures()) != 2 {
		t.Fatalf("Textures = %d, want 2", len(s.Textures()))
	}
	s.SweepTextures()
	if idle.Disposed() {
		t.Error("disposed after one idle sweep")
	}
	s.SweepTextures()
	if !idle.Disposed() {
		t.Error("idle texture should be disposed after two sweeps")
	}
	if held.Disposed() {
		t.Error("referenced texture disposed")
	}
	if len(s.Textures()) != 1 {
		t.Errorf("Textures = %d, want 1", len(s.Textures()))
	}
}

func TestSweepRunsOnInterval(t *testing.T) {
	s := NewStage(StageConfig{TextureGCInterval: 1, TextureIdleSweeps: 2}, &fakeRenderer{})
	tex := newTestTexture(8, 8)
	s.RegisterTexture(tex)

	for range 2 {
		s.RenderFrame(newScreen())
		s.UpdateDelta(1.0 / 60)
	}
	if !tex.Disposed() {
		t.Error("texture should be swept by UpdateDelta")
	}
}

func TestSweepResetsOnReference(t *testing.T) {
	s := NewStage(StageConfig{TextureIdleSweeps: 2}, &fakeRenderer{})
	tex := newTestTexture(8, 8)
	s.RegisterTexture(tex)
	s.SweepTextures()
	tex.AddRef()
	tex.ReleaseRef()
	s.SweepTextures()
	if tex.Disposed() {
		t.Error("AddRef should reset the idle count")
	}
}

func TestRegisterSubTextureIgnored(t *testing.T) {
	s := NewStage(StageConfig{}, &fakeRenderer{})
	root := newTestTexture(8, 8)
	s.RegisterTexture(NewSubTexture(root, Rect{Width: 2, Height: 2}, false))
	if len(s.Textures()) != 0 {
		t.Error("only root textures are tracked")
	}
}

func TestReferencedRootSurvivesGC(t *testing.T) {
	s, r := newTestStage()
	native := &fakeNative{w: 64, h: 64}
	img := NewImage("img", NewSubTexture(NewTexture(native), Rect{Width: 16, Height: 16}, false))
	s.Root().AddChild(img.Node)

	runtime.GC()
	runtime.GC()

	tex := img.Texture()
	if tex.Disposed() || tex.RefCount() != 1 {
		t.Fatalf("after GC: disposed %v refcount %d, want a live root with 1 ref", tex.Disposed(), tex.RefCount())
	}
	s.RenderFrame(newScreen())
	if len(r.last()) != 1 {
		t.Errorf("items = %d, want the image drawn", len(r.last()))
	}

	root := tex.Root()
	img.SetTexture(nil)
	if _, ok := liveRoots[root]; ok {
		t.Error("root should be unpinned once its last reference is released")
	}
	if native.disposed {
		t.Error("releasing references must not dispose the native image")
	}
}

func TestDisposeUnpinsRoot(t *testing.T) {
	root := newTestTexture(8, 8)
	root.AddRef()
	if _, ok := liveRoots[root]; !ok {
		t.Fatal("referenced root should be pinned")
	}
	root.Dispose()
	if _, ok := liveRoots[root]; ok {
		t.Error("disposed root still pinned")
	}
}
