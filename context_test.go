package fairy

import "testing"

func TestRectClipIntersects(t *testing.T) {
	ctx := NewFrameContext(nil)
	ctx.Begin()
	ctx.EnterRectClip(1, Rect{X: 0, Y: 0, Width: 100, Height: 100}, Margin{})
	ctx.EnterRectClip(2, Rect{X: 50, Y: 50, Width: 100, Height: 100}, Margin{})

	clip := ctx.Clip()
	want := Rect{X: 50, Y: 50, Width: 50, Height: 50}
	if clip.Rect != want {
		t.Errorf("nested clip = %v, want %v", clip.Rect, want)
	}
	if clip.ID != 2 || !clip.RectClipped {
		t.Errorf("clip = %+v, want id 2 rect clipped", clip)
	}
	if clip.Box.CX != 75 || clip.Box.CY != 75 || clip.Box.InvHW != 1.0/25 {
		t.Errorf("clip box = %+v", clip.Box)
	}

	ctx.LeaveClipping()
	if got := ctx.Clip().Rect; got != (Rect{Width: 100, Height: 100}) {
		t.Errorf("restored clip = %v", got)
	}
	ctx.LeaveClipping()
	if ctx.Clip().Clipped {
		t.Error("clip should be cleared after the outermost leave")
	}
	ctx.End()
}

func TestRectClipNeverGrows(t *testing.T) {
	ctx := NewFrameContext(nil)
	ctx.Begin()
	ctx.EnterRectClip(1, Rect{X: 10, Y: 10, Width: 20, Height: 20}, Margin{})
	ctx.EnterRectClip(2, Rect{X: 0, Y: 0, Width: 500, Height: 500}, Margin{})
	if got := ctx.Clip().Rect; got != (Rect{X: 10, Y: 10, Width: 20, Height: 20}) {
		t.Errorf("inner clip grew to %v", got)
	}
	ctx.LeaveClipping()
	ctx.LeaveClipping()
	ctx.End()
}

func TestBoxApplyMapsEdgesToUnit(t *testing.T) {
	ctx := NewFrameContext(nil)
	ctx.Begin()
	ctx.EnterRectClip(1, Rect{X: 10, Y: 20, Width: 40, Height: 60}, Margin{})
	box := ctx.Clip().Box
	x, y := box.Apply(10, 80)
	if x != -1 || y != 1 {
		t.Errorf("Apply(corner) = (%v, %v), want (-1, 1)", x, y)
	}
	ctx.LeaveClipping()
	ctx.End()
}

func TestSoftClipFactors(t *testing.T) {
	ctx := NewFrameContext(nil)
	ctx.Begin()
	ctx.EnterRectClip(1, Rect{Width: 100, Height: 40}, Margin{Left: 10, Top: 4})
	clip := ctx.Clip()
	if !clip.Soft {
		t.Fatal("clip should be soft")
	}
	want := [4]float64{5, 5, 10000, 10000}
	if clip.Softness != want {
		t.Errorf("Softness = %v, want %v", clip.Softness, want)
	}
	ctx.LeaveClipping()
	ctx.End()
}

func TestStencilRefsNest(t *testing.T) {
	ctx := NewFrameContext(nil)
	ctx.Begin()

	ctx.EnterStencilClip(1, false)
	outer := ctx.Clip()
	if outer.StencilRef != 1 || outer.StencilCompare != 1 || outer.ParentCompare != 0 {
		t.Errorf("outer = ref %d compare %d parent %d, want 1 1 0",
			outer.StencilRef, outer.StencilCompare, outer.ParentCompare)
	}

	ctx.EnterStencilClip(2, false)
	inner := ctx.Clip()
	if inner.StencilRef != 2 || inner.StencilCompare != 3 || inner.ParentCompare != 1 {
		t.Errorf("inner = ref %d compare %d parent %d, want 2 3 1",
			inner.StencilRef, inner.StencilCompare, inner.ParentCompare)
	}

	ctx.LeaveClipping()
	if ctx.Clip().StencilRef != 1 {
		t.Errorf("ref after leave = %d, want 1", ctx.Clip().StencilRef)
	}
	ctx.LeaveClipping()
	ctx.End()
}

func TestReversedStencilInsideReversed(t *testing.T) {
	ctx := NewFrameContext(nil)
	ctx.Begin()

	ctx.EnterStencilClip(1, true)
	outer := ctx.Clip()
	if outer.StencilRef != 1 || outer.StencilCompare != 0 {
		t.Errorf("outer = ref %d compare %d, want 1 0", outer.StencilRef, outer.StencilCompare)
	}

	ctx.EnterStencilClip(2, true)
	inner := ctx.Clip()
	if inner.StencilRef != 2 {
		t.Errorf("nested ref = %d, want 2", inner.StencilRef)
	}
	if inner.StencilCompare != (2>>1)-1 {
		t.Errorf("nested compare = %d, want %d", inner.StencilCompare, (2>>1)-1)
	}
	if !inner.ReversedMask {
		t.Error("nested clip should be reversed")
	}

	ctx.LeaveClipping()
	ctx.LeaveClipping()
	ctx.End()
}

func TestReversedStencilInsideNormal(t *testing.T) {
	ctx := NewFrameContext(nil)
	ctx.Begin()
	ctx.EnterStencilClip(1, false)
	ctx.EnterStencilClip(2, true)
	if got := ctx.Clip().StencilCompare; got != 1 {
		t.Errorf("compare = %d, want ref-1 = 1", got)
	}
	ctx.LeaveClipping()
	ctx.LeaveClipping()
	ctx.End()
}

func TestStencilStatePerPass(t *testing.T) {
	clip := ClipInfo{Stencil: true, StencilRef: 2, StencilCompare: 3, ParentCompare: 1}

	w := stencilFor(clip, PassMaskWrite)
	if w.Compare != StencilEqual || w.Ref != 3 || w.ReadMask != 1 || w.WriteMask != 2 || w.Op != StencilReplace {
		t.Errorf("writer = %+v", w)
	}
	e := stencilFor(clip, PassMaskErase)
	if e.Compare != StencilAlways || e.WriteMask != 2 || e.Op != StencilZero {
		t.Errorf("eraser = %+v", e)
	}
	n := stencilFor(clip, PassNormal)
	if n.Compare != StencilEqual || n.Ref != 3 || n.ReadMask != 3 || n.Op != StencilKeep || !n.ColorWrite {
		t.Errorf("content = %+v", n)
	}

	first := stencilFor(ClipInfo{Stencil: true, StencilRef: 1, StencilCompare: 1}, PassMaskWrite)
	if first.Compare != StencilAlways {
		t.Errorf("outermost writer compare = %v, want always", first.Compare)
	}
}

func TestLeaveClippingUnbalancedPanics(t *testing.T) {
	ctx := NewFrameContext(nil)
	ctx.Begin()
	expectPanic(t, ErrUnbalancedClip, ctx.LeaveClipping)
}

func TestEndWithPushedClipPanics(t *testing.T) {
	ctx := NewFrameContext(nil)
	ctx.Begin()
	ctx.EnterRectClip(1, Rect{Width: 10, Height: 10}, Margin{})
	expectPanic(t, ErrUnbalancedClip, ctx.End)
}

func TestPaintingModeClearsAndRestoresClip(t *testing.T) {
	ctx := NewFrameContext(nil)
	ctx.Begin()
	ctx.EnterRectClip(1, Rect{Width: 10, Height: 10}, Margin{})
	ctx.EnterPaintingMode()
	if ctx.Clip().Clipped {
		t.Error("painting mode should clear clipping")
	}
	expectPanic(t, ErrUnbalancedClip, ctx.LeaveClipping)

	ctx.LeavePaintingMode()
	if !ctx.Clip().RectClipped {
		t.Error("clip not restored after painting mode")
	}
	expectPanic(t, ErrUnbalancedClip, ctx.LeavePaintingMode)
	ctx.LeaveClipping()
	ctx.End()
}

func TestOnEndCallbacksQueuedDuringDrain(t *testing.T) {
	ctx := NewFrameContext(nil)
	ctx.Begin()
	var order []int
	ctx.OnEnd(func() {
		order = append(order, 1)
		ctx.OnEnd(func() { order = append(order, 2) })
	})
	ctx.End()
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("callbacks ran %v, want [1 2]", order)
	}
}

func TestOnBeginRunsNextFrame(t *testing.T) {
	ctx := NewFrameContext(nil)
	ran := false
	ctx.OnBegin(func() { ran = true })
	ctx.Begin()
	if !ran {
		t.Error("OnBegin callback did not run")
	}
	if ctx.FrameID() != 1 {
		t.Errorf("FrameID = %d, want 1", ctx.FrameID())
	}
	ctx.End()
}

// --- Stage integration ---

func TestAlphaAndGrayedInherit(t *testing.T) {
	s, r := newTestStage()
	p := NewContainer("p")
	p.SetAlpha(0.5)
	p.SetGrayed(true)
	box := newBox("box", 0, 0, 10, 10)
	box.SetAlpha(0.5)
	p.AddChild(box.Node)
	s.Root().AddChild(p)

	s.RenderFrame(newScreen())
	items := r.last()
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	if items[0].Alpha != 0.25 {
		t.Errorf("alpha = %v, want 0.25", items[0].Alpha)
	}
	if items[0].Material.Flags&FlagGrayed == 0 {
		t.Error("grayed flag not inherited")
	}
}

func TestRectClipRecordedOnItems(t *testing.T) {
	s, r := newTestStage()
	p := NewContainer("p")
	p.SetPosition(10, 10)
	p.SetClipRect(Rect{Width: 50, Height: 40})
	p.AddChild(newBox("box", 0, 0, 100, 100).Node)
	s.Root().AddChild(p)

	s.RenderFrame(newScreen())
	items := r.last()
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	it := items[0]
	if !it.Clip.RectClipped || it.Clip.Rect != (Rect{X: 10, Y: 10, Width: 50, Height: 40}) {
		t.Errorf("clip = %+v", it.Clip)
	}
	if it.Material.Flags&FlagClipped == 0 {
		t.Error("material should carry the clipped keyword")
	}
	if it.Material.Group != p.ID {
		t.Errorf("group = %d, want clip owner %d", it.Material.Group, p.ID)
	}
}

func TestMaskEmitsWriterAndEraser(t *testing.T) {
	s, r := newTestStage()
	p := NewContainer("p")
	mask := newBox("mask", 0, 0, 20, 20)
	content := newBox("content", 0, 0, 50, 50)
	p.AddChild(content.Node)
	p.AddChild(mask.Node)
	p.SetMask(mask.Node, false)
	s.Root().AddChild(p)

	s.RenderFrame(newScreen())
	items := r.last()
	if len(items) != 3 {
		t.Fatalf("items = %v, want writer, content, eraser", itemNames(items))
	}
	if items[0].Pass != PassMaskWrite || items[0].Node != mask.Node {
		t.Errorf("first item = %v pass %d, want mask writer", items[0].Node.Name, items[0].Pass)
	}
	if items[1].Node != content.Node || items[1].Pass != PassNormal {
		t.Errorf("second item = %v, want content", items[1].Node.Name)
	}
	if items[2].Pass != PassMaskErase {
		t.Errorf("last item pass = %d, want eraser", items[2].Pass)
	}
	if !items[1].Clip.Stencil || items[1].Material.Flags&FlagStencilTest == 0 {
		t.Error("content should be stencil tested")
	}
	if items[0].Material.Flags&FlagAlphaMask == 0 {
		t.Error("writer should carry the alpha-mask keyword")
	}
	if !p.IsBatchingRoot() {
		t.Error("masked container should be a batching root")
	}
}

func TestHiddenMaskDisablesStencil(t *testing.T) {
	s, r := newTestStage()
	p := NewContainer("p")
	mask := newBox("mask", 0, 0, 20, 20)
	p.AddChild(newBox("content", 0, 0, 50, 50).Node)
	p.AddChild(mask.Node)
	p.SetMask(mask.Node, false)
	mask.SetVisible(false)
	s.Root().AddChild(p)

	s.RenderFrame(newScreen())
	items := r.last()
	if len(items) != 1 || items[0].Clip.Stencil {
		t.Errorf("items = %v, want unclipped content only", itemNames(items))
	}
}
