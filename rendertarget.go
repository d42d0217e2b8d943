package fairy

import (
	"image"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// EbitenImage is a NativeTexture backed by an ebiten image. Use it to wrap
// loaded images before handing them to NewTexture.
type EbitenImage struct {
	img *ebiten.Image
}

// NewEbitenImage wraps img.
func NewEbitenImage(img *ebiten.Image) *EbitenImage { return &EbitenImage{img: img} }

// Image returns the wrapped image.
func (e *EbitenImage) Image() *ebiten.Image { return e.img }

func (e *EbitenImage) Width() int {
	if e.img == nil {
		return 0
	}
	return e.img.Bounds().Dx()
}

func (e *EbitenImage) Height() int {
	if e.img == nil {
		return 0
	}
	return e.img.Bounds().Dy()
}

// Dispose deallocates the image.
func (e *EbitenImage) Dispose() {
	if e.img != nil {
		e.img.Deallocate()
		e.img = nil
	}
}

// ebitenTarget is a RenderTarget over an ebiten image. pooled targets go
// back to the renderer's pool instead of being deallocated.
type ebitenTarget struct {
	EbitenImage
	pooled bool
}

// NewImageTarget wraps an existing image, typically the screen, as a render
// target. Disposing it is a no-op; the caller owns the image.
func NewImageTarget(img *ebiten.Image) RenderTarget {
	return &ebitenTarget{EbitenImage: EbitenImage{img: img}}
}

func (t *ebitenTarget) Dispose() {}

func (t *ebitenTarget) Clear() {
	if t.img != nil {
		t.img.Clear()
	}
}

func (t *ebitenTarget) ReadPixels(buf []byte) {
	if t.img != nil {
		t.img.ReadPixels(buf)
	}
}

// imageOf resolves the ebiten image behind a native texture, or nil.
func imageOf(nt NativeTexture) *ebiten.Image {
	if nt == nil {
		return nil
	}
	if e, ok := nt.(interface{ Image() *ebiten.Image }); ok {
		return e.Image()
	}
	return nil
}

// --- Render texture pool ---

// renderTexturePool manages reusable offscreen images keyed by power-of-two
// dimensions. After warmup, Acquire/Release are zero-alloc.
type renderTexturePool struct {
	buckets map[uint64][]*ebiten.Image
	live    int
}

// poolKey packs power-of-two width and height into a single uint64.
func poolKey(w, h int) uint64 {
	return uint64(w)<<32 | uint64(h)
}

// Acquire returns a cleared offscreen image with at least (w, h) pixels.
func (p *renderTexturePool) Acquire(w, h int) *ebiten.Image {
	pw := nextPowerOfTwo(w)
	ph := nextPowerOfTwo(h)
	key := poolKey(pw, ph)
	p.live++

	if p.buckets != nil {
		if stack := p.buckets[key]; len(stack) > 0 {
			img := stack[len(stack)-1]
			p.buckets[key] = stack[:len(stack)-1]
			img.Clear()
			return img
		}
	}

	return ebiten.NewImageWithOptions(
		image.Rect(0, 0, pw, ph),
		&ebiten.NewImageOptions{Unmanaged: true},
	)
}

// Release returns an image to the pool. It is cleared on the next Acquire.
func (p *renderTexturePool) Release(img *ebiten.Image) {
	if img == nil {
		return
	}
	b := img.Bounds()
	key := poolKey(b.Dx(), b.Dy())
	if p.buckets == nil {
		p.buckets = make(map[uint64][]*ebiten.Image)
	}
	p.buckets[key] = append(p.buckets[key], img)
	p.live--
}

// Purge deallocates every pooled image not currently handed out.
func (p *renderTexturePool) Purge() {
	for k, stack := range p.buckets {
		for _, img := range stack {
			img.Deallocate()
		}
		delete(p.buckets, k)
	}
}

// nextPowerOfTwo returns the smallest power of two >= n (minimum 1).
func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << int(math.Ceil(math.Log2(float64(n))))
}
