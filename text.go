package fairy

import (
	"bytes"
	"fmt"
	"image"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/math/f64"
)

// Font wraps an ebiten text/v2 face. Shaping and glyph caching are left to
// ebiten.
type Font struct {
	face *text.GoTextFace
	lh   float64 // cached line height
}

// LoadFont loads a TrueType or OpenType font at the given size.
func LoadFont(ttfData []byte, size float64) (*Font, error) {
	source, err := text.NewGoTextFaceSource(bytes.NewReader(ttfData))
	if err != nil {
		return nil, fmt.Errorf("fairy: failed to parse font data: %w", err)
	}
	return NewFont(&text.GoTextFace{Source: source, Size: size}), nil
}

// NewFont wraps an existing face.
func NewFont(face *text.GoTextFace) *Font {
	m := face.Metrics()
	return &Font{face: face, lh: m.HAscent + m.HDescent + m.HLineGap}
}

// Face returns the underlying face.
func (f *Font) Face() *text.GoTextFace { return f.face }

// LineHeight returns the vertical distance between baselines.
func (f *Font) LineHeight() float64 { return f.lh }

// Measure returns the size of s rendered with this font.
func (f *Font) Measure(s string) (width, height float64) {
	return text.Measure(s, f.face, f.lh)
}

// Label is a wrapper node that draws a string with ebiten's text renderer.
// It takes part in clipping, masking and painting like any node but never
// batches.
type Label struct {
	*Node

	font    *Font
	content string
	color   Color
}

// NewLabel creates a label sized to its text.
func NewLabel(name string, font *Font, content string, c Color) *Label {
	l := &Label{font: font, content: content, color: c}
	l.Node = NewWrapper(name, l)
	l.Owner = l
	return l
}

// Text returns the displayed string.
func (l *Label) Text() string { return l.content }

// SetText replaces the string and resizes the node.
func (l *Label) SetText(s string) {
	if l.content == s {
		return
	}
	l.content = s
	l.SetWrapTarget(l)
}

// Color returns the text color.
func (l *Label) Color() Color { return l.color }

// SetColor sets the text color.
func (l *Label) SetColor(c Color) { l.color = c }

// Bounds implements Wrapped.
func (l *Label) Bounds() Rect {
	if l.font == nil || l.content == "" {
		return Rect{}
	}
	w, h := l.font.Measure(l.content)
	return Rect{Width: w, Height: h}
}

// Draw implements Wrapped.
func (l *Label) Draw(dst RenderTarget, transform f64.Aff3, alpha float64, clip ClipInfo) {
	img := imageOf(dst)
	if img == nil || l.font == nil || l.content == "" {
		return
	}
	if clip.RectClipped {
		r := clip.Rect
		sub := image.Rect(int(math.Floor(r.X)), int(math.Floor(r.Y)), int(math.Ceil(r.XMax())), int(math.Ceil(r.YMax())))
		img = img.SubImage(sub).(*ebiten.Image)
	}
	op := &text.DrawOptions{}
	op.GeoM.SetElement(0, 0, transform[0])
	op.GeoM.SetElement(0, 1, transform[1])
	op.GeoM.SetElement(0, 2, transform[2])
	op.GeoM.SetElement(1, 0, transform[3])
	op.GeoM.SetElement(1, 1, transform[4])
	op.GeoM.SetElement(1, 2, transform[5])
	a := l.color.A * alpha
	op.ColorScale.Scale(float32(l.color.R*a), float32(l.color.G*a), float32(l.color.B*a), float32(a))
	op.LineSpacing = l.font.lh
	text.Draw(img, l.content, l.font.face, op)
}
