package fairy

import (
	"slices"
	"testing"

	"golang.org/x/image/math/f64"
)

// materialRuns counts maximal runs of equal materials in draw order.
func materialRuns(items []DrawItem) int {
	runs := 0
	var last *Material
	for i, it := range items {
		if i == 0 || it.Material != last {
			runs++
		}
		last = it.Material
	}
	return runs
}

func countRunsOf(items []DrawItem, m *Material) int {
	runs := 0
	in := false
	for _, it := range items {
		if it.Material == m {
			if !in {
				runs++
			}
			in = true
		} else {
			in = false
		}
	}
	return runs
}

func TestFairyBatchingGroupsSameMaterial(t *testing.T) {
	s, r := newTestStage()
	texA := newTestTexture(10, 10)
	texB := newTestTexture(10, 10)

	panel := NewContainer("panel")
	panel.SetFairyBatching(true)
	// A B A B A B A B A, laid out in a row with no overlaps.
	var as []*Image
	for i := range 9 {
		tex := texA
		name := "a"
		if i%2 == 1 {
			tex, name = texB, "b"
		}
		img := newTile(name, tex, float64(i*20), 0)
		if tex == texA {
			as = append(as, img)
		}
		panel.AddChild(img.Node)
	}
	s.Root().AddChild(panel)

	s.RenderFrame(newScreen())
	r.reset()
	s.RenderFrame(newScreen())

	items := r.last()
	if len(items) != 9 {
		t.Fatalf("items = %d, want 9", len(items))
	}
	matA := as[0].Surface().Material()
	for _, a := range as {
		if a.Surface().Material() != matA {
			t.Fatal("leaves sharing a texture should share a material")
		}
	}
	if got := countRunsOf(items, matA); got != 1 {
		t.Errorf("material A spans %d runs, want 1: %v", got, itemNames(items))
	}
	if got := materialRuns(items); got != 2 {
		t.Errorf("material runs = %d, want 2", got)
	}
	if got := len(panel.BatchedDescendants()); got != 9 {
		t.Errorf("BatchedDescendants = %d, want 9", got)
	}
}

func TestFairyBatchingRespectsOverlap(t *testing.T) {
	s, r := newTestStage()
	texA := newTestTexture(10, 10)
	texB := newTestTexture(10, 10)

	panel := NewContainer("panel")
	panel.SetFairyBatching(true)
	panel.AddChild(newTile("a1", texA, 0, 0).Node)
	panel.AddChild(newTile("b", texB, 20, 0).Node)
	panel.AddChild(newTile("a2", texA, 25, 5).Node) // overlaps b
	s.Root().AddChild(panel)

	s.RenderFrame(newScreen())
	s.RenderFrame(newScreen())

	if got := itemNames(r.last()); !slices.Equal(got, []string{"a1", "b", "a2"}) {
		t.Errorf("draw order = %v, want [a1 b a2]", got)
	}
}

func TestFairyBatchingStopsAtWrapper(t *testing.T) {
	s, _ := newTestStage()
	texA := newTestTexture(10, 10)

	panel := NewContainer("panel")
	panel.SetFairyBatching(true)
	panel.AddChild(newTile("a1", texA, 0, 0).Node)
	panel.AddChild(NewWrapper("w", &stubWrapped{bounds: Rect{Width: 5, Height: 5}}))
	panel.AddChild(newBox("shape", 100, 100, 5, 5).Node)
	panel.AddChild(newTile("a2", texA, 40, 0).Node)
	s.Root().AddChild(panel)

	s.RenderFrame(newScreen())
	s.RenderFrame(newScreen())

	got := nodeNames(panel.BatchedDescendants())
	if !slices.Equal(got, []string{"a1", "w", "shape", "a2"}) {
		t.Errorf("order = %v, want a2 kept behind the wrapper boundary", got)
	}
}

func TestNestedBatchingRootIsOneElement(t *testing.T) {
	s, _ := newTestStage()
	outer := NewContainer("outer")
	outer.SetFairyBatching(true)
	inner := NewContainer("inner")
	inner.SetClipRect(Rect{Width: 50, Height: 50})
	inner.AddChild(newBox("x", 0, 0, 10, 10).Node)
	inner.AddChild(newBox("y", 20, 0, 10, 10).Node)
	outer.AddChild(inner)
	outer.AddChild(newBox("z", 100, 0, 10, 10).Node)
	s.Root().AddChild(outer)

	s.RenderFrame(newScreen())

	if got := nodeNames(outer.BatchedDescendants()); !slices.Equal(got, []string{"inner", "z"}) {
		t.Errorf("outer descendants = %v, want [inner z]", got)
	}
	if got := nodeNames(inner.BatchedDescendants()); !slices.Equal(got, []string{"x", "y"}) {
		t.Errorf("inner descendants = %v, want [x y]", got)
	}
}

func TestBatchingRootFlags(t *testing.T) {
	n := NewContainer("n")
	if n.IsBatchingRoot() {
		t.Fatal("plain container should not be a batching root")
	}
	n.SetClipRect(Rect{Width: 10, Height: 10})
	if !n.IsBatchingRoot() {
		t.Error("clip rect should make a batching root")
	}
	n.ClearClipRect()
	if n.IsBatchingRoot() {
		t.Error("clearing the clip should drop batching root status")
	}
	n.SetCacheAsBitmap(true)
	if !n.IsBatchingRoot() {
		t.Error("painting mode should make a batching root")
	}
	n.SetCacheAsBitmap(false)
	if n.IsBatchingRoot() {
		t.Error("leaving painting mode should drop batching root status")
	}
}

func TestBoundsOverlapTouchingEdges(t *testing.T) {
	a := [4]float64{0, 0, 10, 10}
	if !boundsOverlap(a, [4]float64{10, 0, 20, 10}) {
		t.Error("touching edges should overlap")
	}
	if boundsOverlap(a, [4]float64{10.5, 0, 20, 10}) {
		t.Error("separated boxes should not overlap")
	}
}

// --- Materials ---

func TestSameRequestSameMaterial(t *testing.T) {
	tex := newTestTexture(8, 8)
	pool := tex.MaterialPool("")
	m1 := pool.GetMaterial(FlagClipped, BlendNormal, 7, 1)
	if !pool.FirstUseThisFrame() {
		t.Error("first request should report first use")
	}
	m2 := pool.GetMaterial(FlagClipped, BlendNormal, 7, 1)
	if m1 != m2 {
		t.Error("identical requests in one frame should share a material")
	}
	if pool.FirstUseThisFrame() {
		t.Error("second request in the same frame is not a first use")
	}
	if m3 := pool.GetMaterial(FlagClipped, BlendNormal, 8, 1); m3 == m1 {
		t.Error("different group should get a different material")
	}
	if m4 := pool.GetMaterial(FlagClipped, BlendAdd, 7, 1); m4 == m1 {
		t.Error("different blend should get a different material")
	}
}

func TestContainersShareMaterial(t *testing.T) {
	s, _ := newTestStage()
	tex := newTestTexture(8, 8)
	c1, c2 := NewContainer("c1"), NewContainer("c2")
	a := newTile("a", tex, 0, 0)
	b := newTile("b", tex, 50, 0)
	c1.AddChild(a.Node)
	c2.AddChild(b.Node)
	s.Root().AddChild(c1)
	s.Root().AddChild(c2)
	s.RenderFrame(newScreen())

	if a.Surface().Material() == nil || a.Surface().Material() != b.Surface().Material() {
		t.Error("same texture, keywords, blend and group should share one material")
	}
}

func TestStaleMaterialReclaimed(t *testing.T) {
	tex := newTestTexture(8, 8)
	pool := tex.MaterialPool("")
	old := pool.GetMaterial(FlagClipped, BlendNormal, 5, 1)
	old.Clip = ClipInfo{ID: 5}

	// One frame later the entry is still considered live.
	if m := pool.GetMaterial(FlagClipped, BlendNormal, 6, 2); m == old {
		t.Error("material reused while still live")
	}
	reused := pool.GetMaterial(FlagClipped, BlendNormal, 9, 4)
	if reused != old {
		t.Error("stale material should be repurposed")
	}
	if reused.Group != 9 || reused.Clip.ID != 0 || reused.Frame() != 4 {
		t.Errorf("repurposed material = group %d clip %d frame %d", reused.Group, reused.Clip.ID, reused.Frame())
	}
	if pool.Len() != 2 {
		t.Errorf("pool size = %d, want 2", pool.Len())
	}
}

func TestKeywordBitsStable(t *testing.T) {
	pool := newTestTexture(8, 8).MaterialPool("custom")
	f1 := pool.KeywordFlags([]string{"OUTLINE"})
	f2 := pool.KeywordFlags([]string{"GLOW", "OUTLINE"})
	if f1 != 1<<firstKeywordBit {
		t.Errorf("first keyword bit = %b", f1)
	}
	if f2 != f1|1<<(firstKeywordBit+1) {
		t.Errorf("flags = %b, want both keyword bits", f2)
	}
	m := pool.GetMaterial(f2, BlendNormal, 0, 1)
	slices.Sort(m.Keywords)
	if !slices.Equal(m.Keywords, []string{"GLOW", "OUTLINE"}) {
		t.Errorf("Keywords = %v", m.Keywords)
	}
	if m.Shader != "custom" {
		t.Errorf("Shader = %q", m.Shader)
	}
}

func TestMultiplyBlendAddsColorFilter(t *testing.T) {
	pool := newTestTexture(8, 8).MaterialPool("")
	m := pool.GetMaterial(0, BlendMultiply, 0, 1)
	if m.Flags&FlagColorFilter == 0 {
		t.Error("multiply blend should add the color filter keyword")
	}
}

func TestDisposedPoolHandsOutUnpooledMaterials(t *testing.T) {
	pool := newTestTexture(8, 8).MaterialPool("")
	pool.GetMaterial(0, BlendNormal, 0, 1)
	pool.Dispose()

	m1 := pool.GetMaterial(0, BlendNormal, 0, 2)
	m2 := pool.GetMaterial(0, BlendNormal, 0, 2)
	if m1 == nil || m1 == m2 {
		t.Error("a disposed pool should return a fresh material per call")
	}
	if !pool.FirstUseThisFrame() {
		t.Error("unpooled materials are always first use")
	}
	if pool.Len() != 0 {
		t.Errorf("pool size = %d after Dispose, want 0", pool.Len())
	}
}

func TestMaterialPoolPerRoot(t *testing.T) {
	root := newTestTexture(64, 64)
	sub := NewSubTexture(root, Rect{X: 0, Y: 0, Width: 16, Height: 16}, false)
	if sub.MaterialPool("") != root.MaterialPool("") {
		t.Error("sub-texture should share its root's pool")
	}
	if root.MaterialPool("") == root.MaterialPool("other") {
		t.Error("pools are per shader")
	}
}

// --- Draw item ordering ---

func TestSortDrawItemsStable(t *testing.T) {
	orders := []int{2, 1, 2, 1, 0, 3, 1}
	items := make([]DrawItem, len(orders))
	for i, o := range orders {
		items[i] = DrawItem{Order: o, Alpha: float64(i)}
	}
	buf := sortDrawItems(items, nil)

	wantTags := []float64{4, 1, 3, 6, 0, 2, 5}
	for i, it := range items {
		if it.Alpha != wantTags[i] {
			t.Fatalf("position %d holds item %v, want %v", i, it.Alpha, wantTags[i])
		}
	}
	if len(buf) != 0 || cap(buf) < len(items) {
		t.Errorf("scratch len %d cap %d", len(buf), cap(buf))
	}
}

// stubWrapped is a Wrapped with fixed bounds that counts draws.
type stubWrapped struct {
	bounds Rect
	draws  int
}

func (w *stubWrapped) Bounds() Rect { return w.bounds }

func (w *stubWrapped) Draw(RenderTarget, f64.Aff3, float64, ClipInfo) { w.draws++ }
