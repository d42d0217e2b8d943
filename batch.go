package fairy

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
)

// EbitenRenderer draws recorded items with ebiten. Consecutive items that
// share a target, source image and render state are coalesced into one
// DrawTriangles32 call. Stencil masks are emulated with offscreen layers:
// content drawn between a mask's write and erase items goes to a layer that
// is masked and composited back when the erase item arrives.
type EbitenRenderer struct {
	pool   renderTexturePool
	layers []renderLayer

	verts    []ebiten.Vertex
	inds     []uint32
	batch    batchKey
	uniforms shaderUniforms
	wrapped  ebitenTarget

	stats RenderStats
}

// RenderStats counts the GPU submissions of the last Render call.
type RenderStats struct {
	Batches int
	Layers  int
}

type renderLayer struct {
	content  *ebiten.Image
	mask     *ebiten.Image
	reversed bool
}

// batchKey is the state a run of items must share to be coalesced.
type batchKey struct {
	dst    *ebiten.Image
	src    *ebiten.Image
	blend  BlendMode
	shaded bool
	grayed bool
	clip   clipKey
	matrix *[20]float64
}

// clipKey is the rect part of a ClipInfo; stencil state is realised by
// layers rather than uniforms.
type clipKey struct {
	clipped  bool
	soft     bool
	box      ClipBox
	softness [4]float64
}

// NewEbitenRenderer creates a renderer with an empty target pool.
func NewEbitenRenderer() *EbitenRenderer {
	return &EbitenRenderer{}
}

// Stats returns counters for the last Render call.
func (r *EbitenRenderer) Stats() RenderStats { return r.stats }

// NewRenderTarget acquires a pooled offscreen target. Dimensions are rounded
// up to powers of two.
func (r *EbitenRenderer) NewRenderTarget(w, h int) RenderTarget {
	return &ebitenTarget{EbitenImage: EbitenImage{img: r.pool.Acquire(w, h)}, pooled: true}
}

// ReleaseRenderTarget returns a target from NewRenderTarget to the pool.
func (r *EbitenRenderer) ReleaseRenderTarget(rt RenderTarget) {
	t, ok := rt.(*ebitenTarget)
	if !ok || !t.pooled || t.img == nil {
		return
	}
	r.pool.Release(t.img)
	t.img = nil
}

// Purge deallocates pooled targets that are not in use.
func (r *EbitenRenderer) Purge() { r.pool.Purge() }

// ApplyFilter runs f from src into dst.
func (r *EbitenRenderer) ApplyFilter(f Filter, src, dst RenderTarget) {
	s, d := imageOf(src), imageOf(dst)
	if s == nil || d == nil {
		pkgLogger.Warn("fairy: filter target is not an ebiten image")
		return
	}
	f.Apply(s, d)
}

// Render draws items onto dst in order.
func (r *EbitenRenderer) Render(dst RenderTarget, items []DrawItem) {
	r.stats = RenderStats{}
	img := imageOf(dst)
	if img == nil {
		pkgLogger.Warn("fairy: render target is not an ebiten image")
		return
	}
	r.layers = append(r.layers[:0], renderLayer{content: img})

	for i := range items {
		it := &items[i]
		switch {
		case it.Wrapped != nil:
			r.flush()
			r.wrapped.img = r.top().content
			it.Wrapped.Draw(&r.wrapped, it.Transform, it.Alpha, it.Clip)
			r.wrapped.img = nil
		case it.Pass == PassMaskWrite:
			r.flush()
			r.pushLayer(it.Clip.ReversedMask)
			r.drawItem(it, r.top().mask)
		case it.Pass == PassMaskErase:
			r.flush()
			r.popLayer()
		default:
			r.drawItem(it, r.top().content)
		}
	}
	r.flush()
	for len(r.layers) > 1 {
		r.popLayer()
	}
	r.layers[0] = renderLayer{}
}

func (r *EbitenRenderer) top() *renderLayer {
	return &r.layers[len(r.layers)-1]
}

func (r *EbitenRenderer) pushLayer(reversed bool) {
	b := r.layers[0].content.Bounds()
	w, h := b.Dx(), b.Dy()
	r.layers = append(r.layers, renderLayer{
		content:  r.pool.Acquire(w, h),
		mask:     r.pool.Acquire(w, h),
		reversed: reversed,
	})
	r.stats.Layers++
}

// popLayer masks the top layer's content and composites it into the layer
// below. A reversed mask erases instead of keeps.
func (r *EbitenRenderer) popLayer() {
	if len(r.layers) < 2 {
		return
	}
	l := r.layers[len(r.layers)-1]
	r.layers = r.layers[:len(r.layers)-1]

	var op ebiten.DrawImageOptions
	if l.reversed {
		op.Blend = BlendErase.EbitenBlend()
	} else {
		op.Blend = BlendMask.EbitenBlend()
	}
	l.content.DrawImage(l.mask, &op)
	r.top().content.DrawImage(l.content, nil)
	r.stats.Batches += 2

	r.pool.Release(l.content)
	r.pool.Release(l.mask)
}

// drawItem appends an item's transformed geometry to the current batch,
// flushing first when its state differs.
func (r *EbitenRenderer) drawItem(it *DrawItem, dst *ebiten.Image) {
	if len(it.Vertices) == 0 || len(it.Indices) == 0 {
		return
	}
	key := batchKey{
		dst:    dst,
		src:    itemSource(it.Material),
		matrix: it.ColorMatrix,
	}
	if m := it.Material; m != nil {
		key.blend = m.Blend
		key.grayed = m.Flags&FlagGrayed != 0
	}
	if it.Clip.RectClipped {
		key.clip = clipKey{clipped: true, soft: it.Clip.Soft, box: it.Clip.Box, softness: it.Clip.Softness}
	}
	key.shaded = key.grayed || key.matrix != nil || key.clip.clipped || projective(it.Vertices)

	if len(r.verts) > 0 && key != r.batch {
		r.flush()
	}
	r.batch = key
	r.verts, r.inds = transformVertices(r.verts, r.inds, it)
}

// flush submits the pending batch.
func (r *EbitenRenderer) flush() {
	if len(r.verts) == 0 {
		return
	}
	k := &r.batch
	if k.shaded {
		var op ebiten.DrawTrianglesShaderOptions
		op.Blend = k.blend.EbitenBlend()
		op.Images[0] = k.src
		clip := ClipInfo{RectClipped: k.clip.clipped, Soft: k.clip.soft, Box: k.clip.box, Softness: k.clip.softness}
		op.Uniforms = r.uniforms.set(clip, k.grayed, k.matrix)
		k.dst.DrawTrianglesShader32(r.verts, r.inds, ensureItemShader(), &op)
	} else {
		var op ebiten.DrawTrianglesOptions
		op.Blend = k.blend.EbitenBlend()
		op.ColorScaleMode = ebiten.ColorScaleModePremultipliedAlpha
		k.dst.DrawTriangles32(r.verts, r.inds, k.src, &op)
	}
	r.stats.Batches++
	r.verts = r.verts[:0]
	r.inds = r.inds[:0]
}

// transformVertices maps an item's local vertices into target space and
// premultiplies their straight colors by the item alpha.
func transformVertices(verts []ebiten.Vertex, inds []uint32, it *DrawItem) ([]ebiten.Vertex, []uint32) {
	base := uint32(len(verts))
	a, b, tx := it.Transform[0], it.Transform[1], it.Transform[2]
	c, d, ty := it.Transform[3], it.Transform[4], it.Transform[5]
	alpha := float32(it.Alpha)
	for _, v := range it.Vertices {
		x, y := float64(v.DstX), float64(v.DstY)
		ca := v.ColorA * alpha
		v.DstX = float32(a*x + b*y + tx)
		v.DstY = float32(c*x + d*y + ty)
		v.ColorR *= ca
		v.ColorG *= ca
		v.ColorB *= ca
		v.ColorA = ca
		verts = append(verts, v)
	}
	for _, i := range it.Indices {
		inds = append(inds, base+i)
	}
	return verts, inds
}

// projective reports whether any vertex carries a perspective divisor.
func projective(verts []ebiten.Vertex) bool {
	for i := range verts {
		if verts[i].Custom0 != 0 {
			return true
		}
	}
	return false
}

// itemSource resolves the image a material samples. Untextured materials
// sample a white pixel; a disposed texture shows the magenta placeholder.
func itemSource(m *Material) *ebiten.Image {
	if m == nil || m.Texture == nil {
		return ensureWhitePixel()
	}
	root := m.Texture.Root()
	if root == nil {
		return ensureMagentaImage()
	}
	if img := imageOf(root.Native()); img != nil {
		return img
	}
	return ensureWhitePixel()
}

var (
	whitePixelImage *ebiten.Image
	magentaImage    *ebiten.Image
)

// ensureWhitePixel returns a lazily-initialized 1x1 white image.
func ensureWhitePixel() *ebiten.Image {
	if whitePixelImage == nil {
		whitePixelImage = ebiten.NewImage(1, 1)
		whitePixelImage.Fill(color.White)
	}
	return whitePixelImage
}

// ensureMagentaImage returns a lazily-initialized 1x1 magenta image.
func ensureMagentaImage() *ebiten.Image {
	if magentaImage == nil {
		magentaImage = ebiten.NewImage(1, 1)
		magentaImage.Fill(color.RGBA{R: 255, B: 255, A: 255})
	}
	return magentaImage
}
