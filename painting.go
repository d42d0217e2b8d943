package fairy

import "math"

// Painting requestors. A node stays in painting mode while any bit is set.
const (
	PaintFilter uint8 = 1 << iota
	PaintCacheAsBitmap
	PaintBlend
	PaintUser
)

type paintState uint8

const (
	paintNone paintState = iota
	paintActive
	paintSkipChildren
)

// paintingInfo is the offscreen capture state of a node in painting mode.
type paintingInfo struct {
	node    *Node
	mode    uint8
	surface *Surface
	target  RenderTarget
	output  RenderTarget
	texture *Texture
	bounds  Rect
	rtW     int
	rtH     int
	dirty   bool
	valid   bool
	job     *PaintJob
	saved   struct {
		alpha  float64
		grayed bool
	}
	renderer Renderer
}

// EnterPaintingMode renders the node into an offscreen texture from the next
// frame on. requestor is one of the Paint* bits.
func (n *Node) EnterPaintingMode(requestor uint8) {
	if n.painting == nil {
		p := &paintingInfo{node: n, dirty: true}
		p.surface = newSurface(n)
		p.surface.blendMode = n.blendMode
		p.surface.SetMeshFactory(MeshFactoryFunc(p.populate))
		n.painting = p
	}
	old := n.painting.mode
	n.painting.mode |= requestor
	if old == 0 {
		n.painting.dirty = true
		n.updateBatchingFlags()
		n.invalidateBatchingState()
	}
}

// LeavePaintingMode clears requestor. The offscreen texture is released once
// no requestor is left.
func (n *Node) LeavePaintingMode(requestor uint8) {
	p := n.painting
	if p == nil || p.mode&requestor == 0 {
		return
	}
	p.mode &^= requestor
	if p.mode == 0 {
		p.release()
		n.painting = nil
		n.updateBatchingFlags()
		n.invalidateBatchingState()
	}
}

// PaintingMode returns the active requestor bits.
func (n *Node) PaintingMode() uint8 {
	if n.painting == nil {
		return 0
	}
	return n.painting.mode
}

// SetCacheAsBitmap renders the subtree once and reuses the capture until
// InvalidateCache is called or the bounds change.
func (n *Node) SetCacheAsBitmap(v bool) {
	if v {
		n.EnterPaintingMode(PaintCacheAsBitmap)
	} else {
		n.LeavePaintingMode(PaintCacheAsBitmap)
	}
}

// CacheAsBitmap reports whether the subtree is cached.
func (n *Node) CacheAsBitmap() bool { return n.PaintingMode()&PaintCacheAsBitmap != 0 }

// InvalidateCache forces the next frame to capture again.
func (n *Node) InvalidateCache() {
	if n.painting != nil {
		n.painting.dirty = true
	}
}

// PaintTexture returns the captured texture, or nil before the first capture.
func (n *Node) PaintTexture() *Texture {
	if n.painting == nil || !n.painting.valid {
		return nil
	}
	return n.painting.texture
}

// paintBounds returns the local rectangle to capture, padded for the filter.
func (n *Node) paintBounds() Rect {
	r := n.contentRect
	if n.container != nil {
		r = n.Bounds(n)
	}
	if n.filter != nil {
		pad := float64(n.filter.Padding())
		r = Rect{X: r.X - pad, Y: r.Y - pad, Width: r.Width + 2*pad, Height: r.Height + 2*pad}
	}
	return MinMaxRect(math.Floor(r.X), math.Floor(r.Y), math.Ceil(r.XMax()), math.Ceil(r.YMax()))
}

// beginPainting redirects the subtree's draws into the node's offscreen
// target. It reports paintSkipChildren when a cached capture is reused.
func (n *Node) beginPainting(ctx *FrameContext) paintState {
	p := n.painting
	if p == nil || p.mode == 0 {
		return paintNone
	}
	if ctx.renderer == nil {
		n.warnStale("painting mode without a renderer")
		return paintNone
	}
	bounds := n.paintBounds()
	w, h := int(bounds.Width), int(bounds.Height)
	if w <= 0 || h <= 0 {
		return paintNone
	}
	p.saved.alpha, p.saved.grayed = ctx.alpha, ctx.grayed

	if p.mode&PaintCacheAsBitmap != 0 && p.valid && !p.dirty && bounds == p.bounds {
		return paintSkipChildren
	}
	p.ensureTargets(ctx.renderer, w, h)
	if p.bounds != bounds {
		p.bounds = bounds
		p.surface.SetMeshDirty()
	}

	job := &PaintJob{Node: n, Target: p.target, Output: p.output, Filter: n.filter}
	base := translateMat4(-bounds.X, -bounds.Y, 0).Mul(n.WorldMatrix().Inverse())
	ctx.pushPainting(job, base)
	ctx.EnterPaintingMode()
	ctx.alpha, ctx.grayed = 1, false
	p.job = job
	return paintActive
}

// endPainting closes the capture, queues it for submission and draws the
// captured texture into the enclosing target.
func (n *Node) endPainting(ctx *FrameContext, state paintState) {
	if state == paintNone {
		return
	}
	p := n.painting
	if state == paintActive {
		ctx.LeavePaintingMode()
		ctx.popPainting()
		job := p.job
		p.job = nil
		ctx.OnEnd(func() {
			ctx.jobs = append(ctx.jobs, job)
			p.valid = true
			p.dirty = false
		})
	}
	ctx.alpha, ctx.grayed = p.saved.alpha, p.saved.grayed
	p.surface.update(ctx, ctx.alpha*n.alpha, ctx.grayed || n.grayed)
}

func (p *paintingInfo) ensureTargets(r Renderer, w, h int) {
	if p.target != nil && p.rtW >= w && p.rtH >= h && (p.output != nil) == (p.node.filter != nil) {
		return
	}
	p.releaseTargets()
	p.renderer = r
	p.target = r.NewRenderTarget(w, h)
	p.rtW, p.rtH = p.target.Width(), p.target.Height()
	final := p.target
	if p.node.filter != nil {
		p.output = r.NewRenderTarget(w, h)
		final = p.output
	}
	p.texture = NewTexture(final)
	p.valid = false
	p.surface.SetTexture(p.texture)
}

// populate emits one quad covering the captured bounds.
func (p *paintingInfo) populate(vb *VertexBuffer) {
	b := p.bounds
	uv := Rect{Width: b.Width / math.Max(float64(p.rtW), 1), Height: b.Height / math.Max(float64(p.rtH), 1)}
	vb.AddQuad(b, ColorWhite, uv)
	vb.AddTriangles(0)
}

func (p *paintingInfo) releaseTargets() {
	if p.texture != nil {
		p.surface.SetTexture(nil)
		p.texture.invalidate()
		p.texture = nil
	}
	if p.renderer != nil {
		if p.target != nil {
			p.renderer.ReleaseRenderTarget(p.target)
		}
		if p.output != nil {
			p.renderer.ReleaseRenderTarget(p.output)
		}
	}
	p.target, p.output = nil, nil
	p.rtW, p.rtH = 0, 0
}

func (p *paintingInfo) release() {
	p.releaseTargets()
	p.surface.Dispose()
}
