package fairy

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// Filter post-processes the offscreen capture of a node.
type Filter interface {
	// Apply renders src into dst with the effect.
	Apply(src, dst *ebiten.Image)
	// Padding returns the extra pixels the effect needs around the content.
	Padding() int
}

// SetFilter attaches f to the node. A ColorFilter on a node with its own
// surface is folded into the surface's material; anything else renders the
// node offscreen. Passing nil removes the filter.
func (n *Node) SetFilter(f Filter) {
	if n.filter == f {
		return
	}
	if n.surface != nil {
		n.surface.SetColorMatrix(nil)
	}
	n.filter = f
	if cf, ok := f.(*ColorFilter); ok && n.container == nil && n.surface != nil {
		n.surface.SetColorMatrix(&cf.Matrix)
		n.LeavePaintingMode(PaintFilter)
		return
	}
	if f == nil {
		n.LeavePaintingMode(PaintFilter)
		return
	}
	n.EnterPaintingMode(PaintFilter)
	n.painting.dirty = true
}

// Filter returns the attached filter, or nil.
func (n *Node) Filter() Filter { return n.filter }

const colorMatrixShaderSrc = `//kage:unit pixels
package main

var Matrix [20]float

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	c := imageSrc0At(src)
	if c.a > 0 {
		c.rgb /= c.a
	}
	r := Matrix[0]*c.r + Matrix[1]*c.g + Matrix[2]*c.b + Matrix[3]*c.a + Matrix[4]
	g := Matrix[5]*c.r + Matrix[6]*c.g + Matrix[7]*c.b + Matrix[8]*c.a + Matrix[9]
	b := Matrix[10]*c.r + Matrix[11]*c.g + Matrix[12]*c.b + Matrix[13]*c.a + Matrix[14]
	a := clamp(Matrix[15]*c.r + Matrix[16]*c.g + Matrix[17]*c.b + Matrix[18]*c.a + Matrix[19], 0, 1)
	return vec4(clamp(r, 0, 1)*a, clamp(g, 0, 1)*a, clamp(b, 0, 1)*a, a)
}
`

var colorMatrixShader *ebiten.Shader

func ensureColorMatrixShader() *ebiten.Shader {
	if colorMatrixShader == nil {
		s, err := ebiten.NewShader([]byte(colorMatrixShaderSrc))
		if err != nil {
			panic("fairy: failed to compile color matrix shader: " + err.Error())
		}
		colorMatrixShader = s
	}
	return colorMatrixShader
}

// --- ColorFilter ---

// Luminance weights used by grayscale and saturation.
const (
	lumR = 0.299
	lumG = 0.587
	lumB = 0.114
)

var identityColorMatrix = [20]float64{
	1, 0, 0, 0, 0,
	0, 1, 0, 0, 0,
	0, 0, 1, 0, 0,
	0, 0, 0, 1, 0,
}

// ColorFilter transforms colors by a 4x5 row-major matrix. The fifth column
// is an offset. Adjustments compose onto the current matrix.
type ColorFilter struct {
	Matrix [20]float64

	uniforms  map[string]any
	matrixF32 [20]float32
	op        ebiten.DrawRectShaderOptions
}

// NewColorFilter returns an identity color filter.
func NewColorFilter() *ColorFilter {
	f := &ColorFilter{Matrix: identityColorMatrix}
	f.uniforms = map[string]any{"Matrix": f.matrixF32[:]}
	return f
}

// Reset restores the identity matrix.
func (f *ColorFilter) Reset() { f.Matrix = identityColorMatrix }

// Concat multiplies m onto the current matrix.
func (f *ColorFilter) Concat(m [20]float64) {
	var out [20]float64
	for row := 0; row < 4; row++ {
		for col := 0; col < 5; col++ {
			var v float64
			for k := 0; k < 4; k++ {
				v += m[row*5+k] * f.Matrix[k*5+col]
			}
			if col == 4 {
				v += m[row*5+4]
			}
			out[row*5+col] = v
		}
	}
	f.Matrix = out
}

// Grayscale desaturates fully.
func (f *ColorFilter) Grayscale() {
	f.Concat([20]float64{
		lumR, lumG, lumB, 0, 0,
		lumR, lumG, lumB, 0, 0,
		lumR, lumG, lumB, 0, 0,
		0, 0, 0, 1, 0,
	})
}

// Tint blends toward c by amount in [0, 1].
func (f *ColorFilter) Tint(c Color, amount float64) {
	q := 1 - amount
	r, g, b := amount*c.R, amount*c.G, amount*c.B
	f.Concat([20]float64{
		q + r*lumR, r * lumG, r * lumB, 0, 0,
		g * lumR, q + g*lumG, g * lumB, 0, 0,
		b * lumR, b * lumG, q + b*lumB, 0, 0,
		0, 0, 0, 1, 0,
	})
}

// AdjustBrightness offsets each channel by v in [-1, 1].
func (f *ColorFilter) AdjustBrightness(v float64) {
	f.Concat([20]float64{
		1, 0, 0, 0, v,
		0, 1, 0, 0, v,
		0, 0, 1, 0, v,
		0, 0, 0, 1, 0,
	})
}

// AdjustContrast scales around mid gray; v in [-1, 1], 0 is unchanged.
func (f *ColorFilter) AdjustContrast(v float64) {
	s := v + 1
	o := (1 - s) / 2
	f.Concat([20]float64{
		s, 0, 0, 0, o,
		0, s, 0, 0, o,
		0, 0, s, 0, o,
		0, 0, 0, 1, 0,
	})
}

// AdjustSaturation changes saturation; v in [-1, 1], -1 is grayscale.
func (f *ColorFilter) AdjustSaturation(v float64) {
	s := v + 1
	i := 1 - s
	r, g, b := i*lumR, i*lumG, i*lumB
	f.Concat([20]float64{
		r + s, g, b, 0, 0,
		r, g + s, b, 0, 0,
		r, g, b + s, 0, 0,
		0, 0, 0, 1, 0,
	})
}

// AdjustHue rotates hue; v in [-1, 1] maps to [-180, 180] degrees.
func (f *ColorFilter) AdjustHue(v float64) {
	a := v * math.Pi
	c, s := math.Cos(a), math.Sin(a)
	f.Concat([20]float64{
		lumR + c*(1-lumR) + s*-lumR, lumG + c*-lumG + s*-lumG, lumB + c*-lumB + s*(1-lumB), 0, 0,
		lumR + c*-lumR + s*0.143, lumG + c*(1-lumG) + s*0.14, lumB + c*-lumB + s*-0.283, 0, 0,
		lumR + c*-lumR + s*-(1-lumR), lumG + c*-lumG + s*lumG, lumB + c*(1-lumB) + s*lumB, 0, 0,
		0, 0, 0, 1, 0,
	})
}

// Apply renders src through the matrix into dst.
func (f *ColorFilter) Apply(src, dst *ebiten.Image) {
	if f.uniforms == nil {
		f.uniforms = map[string]any{"Matrix": f.matrixF32[:]}
	}
	for i, v := range f.Matrix {
		f.matrixF32[i] = float32(v)
	}
	b := src.Bounds()
	f.op.Images[0] = src
	f.op.Uniforms = f.uniforms
	dst.DrawRectShader(b.Dx(), b.Dy(), ensureColorMatrixShader(), &f.op)
}

// Padding is zero; color transforms keep the bounds.
func (f *ColorFilter) Padding() int { return 0 }

// --- BlurFilter ---

// BlurFilter is a Kawase style blur built from bilinear downscale and
// upscale passes.
type BlurFilter struct {
	Radius int
	temps  []*ebiten.Image
	op     ebiten.DrawImageOptions
}

// NewBlurFilter returns a blur of the given pixel radius.
func NewBlurFilter(radius int) *BlurFilter {
	return &BlurFilter{Radius: max(radius, 0)}
}

func (f *BlurFilter) drawScaled(src, dst *ebiten.Image) {
	sb, db := src.Bounds(), dst.Bounds()
	f.op.GeoM.Reset()
	f.op.ColorScale.Reset()
	f.op.GeoM.Scale(float64(db.Dx())/float64(sb.Dx()), float64(db.Dy())/float64(sb.Dy()))
	f.op.Filter = ebiten.FilterLinear
	dst.DrawImage(src, &f.op)
}

// Apply blurs src into dst.
func (f *BlurFilter) Apply(src, dst *ebiten.Image) {
	if f.Radius <= 0 {
		f.op.GeoM.Reset()
		f.op.ColorScale.Reset()
		f.op.Filter = ebiten.FilterNearest
		dst.DrawImage(src, &f.op)
		return
	}
	passes := max(int(math.Ceil(math.Log2(float64(f.Radius)))), 1)
	for i := passes; i < len(f.temps); i++ {
		if f.temps[i] != nil {
			f.temps[i].Deallocate()
		}
	}
	f.temps = append(f.temps[:min(passes, len(f.temps))], make([]*ebiten.Image, max(passes-len(f.temps), 0))...)

	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	cur := src
	for i := range passes {
		w, h = max(w/2, 1), max(h/2, 1)
		t := f.temps[i]
		if t == nil || t.Bounds().Dx() != w || t.Bounds().Dy() != h {
			if t != nil {
				t.Deallocate()
			}
			t = ebiten.NewImage(w, h)
			f.temps[i] = t
		} else {
			t.Clear()
		}
		f.drawScaled(cur, t)
		cur = t
	}
	for i := passes - 2; i >= 0; i-- {
		f.temps[i].Clear()
		f.drawScaled(cur, f.temps[i])
		cur = f.temps[i]
	}
	f.drawScaled(cur, dst)
}

// Padding returns the radius.
func (f *BlurFilter) Padding() int { return f.Radius }

// --- OutlineFilter ---

// OutlineFilter stamps the source at eight offsets tinted with Color, then
// draws the source on top.
type OutlineFilter struct {
	Thickness int
	Color     Color
	op        ebiten.DrawImageOptions
}

// NewOutlineFilter returns an outline of the given thickness and color.
func NewOutlineFilter(thickness int, c Color) *OutlineFilter {
	return &OutlineFilter{Thickness: thickness, Color: c}
}

// Apply draws the outline and the source into dst.
func (f *OutlineFilter) Apply(src, dst *ebiten.Image) {
	t := float64(f.Thickness)
	for _, off := range [8][2]float64{{-t, 0}, {t, 0}, {0, -t}, {0, t}, {-t, -t}, {t, -t}, {-t, t}, {t, t}} {
		f.op.GeoM.Reset()
		f.op.ColorScale.Reset()
		f.op.GeoM.Translate(off[0], off[1])
		f.op.ColorScale.Scale(float32(f.Color.R*f.Color.A), float32(f.Color.G*f.Color.A),
			float32(f.Color.B*f.Color.A), float32(f.Color.A))
		dst.DrawImage(src, &f.op)
	}
	f.op.GeoM.Reset()
	f.op.ColorScale.Reset()
	dst.DrawImage(src, &f.op)
}

// Padding returns the thickness.
func (f *OutlineFilter) Padding() int { return f.Thickness }

// --- FilterChain ---

// FilterChain applies several filters in order, ping-ponging between two
// scratch images.
type FilterChain struct {
	Filters []Filter
	scratch [2]*ebiten.Image
}

// NewFilterChain returns a chain of filters.
func NewFilterChain(filters ...Filter) *FilterChain {
	return &FilterChain{Filters: filters}
}

func (c *FilterChain) scratchImage(i, w, h int) *ebiten.Image {
	img := c.scratch[i]
	if img == nil || img.Bounds().Dx() != w || img.Bounds().Dy() != h {
		if img != nil {
			img.Deallocate()
		}
		img = ebiten.NewImage(w, h)
		c.scratch[i] = img
	} else {
		img.Clear()
	}
	return img
}

// Apply runs every filter from src, writing the last pass into dst.
func (c *FilterChain) Apply(src, dst *ebiten.Image) {
	switch len(c.Filters) {
	case 0:
		dst.DrawImage(src, nil)
		return
	case 1:
		c.Filters[0].Apply(src, dst)
		return
	}
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	cur := src
	for i, f := range c.Filters {
		if i == len(c.Filters)-1 {
			f.Apply(cur, dst)
			break
		}
		next := c.scratchImage(i%2, w, h)
		f.Apply(cur, next)
		cur = next
	}
}

// Padding sums the padding of every filter.
func (c *FilterChain) Padding() int {
	p := 0
	for _, f := range c.Filters {
		p += f.Padding()
	}
	return p
}
