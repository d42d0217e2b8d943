package fairy

import (
	"math"
	"weak"
)

// NativeTexture is an image owned by the host renderer.
type NativeTexture interface {
	Width() int
	Height() int
	Dispose()
}

// Texture is a reference-counted view into a native image. A root texture
// owns its NativeTexture; a sub-texture is a region of a root and only holds
// a weak reference to it, so disposing the root invalidates every region
// derived from it. A root with a positive reference count is pinned in
// liveRoots and cannot be collected while its regions are in use.
type Texture struct {
	native NativeTexture
	root   weak.Pointer[Texture]
	isRoot bool

	region       Rect // pixels within the root
	rotated      bool
	offset       Vec2
	originalSize Vec2

	refCount int
	idle     int // GC sweeps survived at zero references
	version  int
	disposed bool
	pools    map[string]*MaterialPool

	// OnRelease fires when the reference count drops to zero. The texture is
	// not destroyed; the stage sweep disposes it after it stays idle.
	OnRelease func(*Texture)
	// OnSizeChanged fires on a root after Reload changes its dimensions.
	OnSizeChanged func(*Texture)
}

// liveRoots holds the roots whose reference count is above zero.
var liveRoots = make(map[*Texture]struct{})

// NewTexture wraps a native image as a root texture.
func NewTexture(native NativeTexture) *Texture {
	t := &Texture{native: native, isRoot: true}
	w, h := 1.0, 1.0
	if native != nil {
		w, h = float64(native.Width()), float64(native.Height())
	}
	t.region = Rect{Width: w, Height: h}
	t.originalSize = Vec2{w, h}
	return t
}

// NewSubTexture creates a region of parent. region is in parent pixels; a
// rotated region is stored 90 degrees clockwise. Regions of regions resolve
// to the same root.
func NewSubTexture(parent *Texture, region Rect, rotated bool) *Texture {
	root := parent.Root()
	if root == nil {
		contractPanic(ErrDisposedTexture, "sub-texture of a disposed texture")
	}
	if !parent.isRoot {
		region.X += parent.region.X
		region.Y += parent.region.Y
		rotated = rotated != parent.rotated
	}
	t := &Texture{root: weak.Make(root), region: region, rotated: rotated}
	if rotated {
		t.originalSize = Vec2{region.Height, region.Width}
	} else {
		t.originalSize = Vec2{region.Width, region.Height}
	}
	return t
}

// Root returns the texture owning the native image, or nil once it is gone.
func (t *Texture) Root() *Texture {
	if t.isRoot {
		if t.disposed {
			return nil
		}
		return t
	}
	if t.disposed {
		return nil
	}
	r := t.root.Value()
	if r == nil || r.disposed {
		return nil
	}
	return r
}

// IsRoot reports whether t owns its native image.
func (t *Texture) IsRoot() bool { return t.isRoot }

// Disposed reports whether the texture (or its root) was disposed.
func (t *Texture) Disposed() bool { return t.Root() == nil }

// Native returns the root's native image, or nil when disposed.
func (t *Texture) Native() NativeTexture {
	if r := t.Root(); r != nil {
		return r.native
	}
	return nil
}

// Width returns the logical (untrimmed) width.
func (t *Texture) Width() float64 { return t.originalSize.X }

// Height returns the logical (untrimmed) height.
func (t *Texture) Height() float64 { return t.originalSize.Y }

// Region returns the stored rectangle in root pixels.
func (t *Texture) Region() Rect { return t.region }

// Rotated reports whether the region is stored rotated in the atlas.
func (t *Texture) Rotated() bool { return t.rotated }

// Offset returns the trim offset of the region within its logical size.
func (t *Texture) Offset() Vec2 { return t.offset }

// OriginalSize returns the logical size before trimming.
func (t *Texture) OriginalSize() Vec2 { return t.originalSize }

// SetTrim records the trim offset and untrimmed size of an atlas entry.
func (t *Texture) SetTrim(offset, originalSize Vec2) {
	t.offset = offset
	t.originalSize = originalSize
}

// UVRect returns the region in normalized root coordinates.
func (t *Texture) UVRect() Rect {
	root := t.Root()
	if root == nil {
		return Rect{Width: 1, Height: 1}
	}
	rw, rh := root.region.Width, root.region.Height
	if rw <= 0 || rh <= 0 {
		return Rect{Width: 1, Height: 1}
	}
	return Rect{X: t.region.X / rw, Y: t.region.Y / rh, Width: t.region.Width / rw, Height: t.region.Height / rh}
}

// GetDrawRect maps a rectangle of the logical size onto the trimmed content.
func (t *Texture) GetDrawRect(drawRect Rect) Rect {
	w, h := t.region.Width, t.region.Height
	if t.rotated {
		w, h = h, w
	}
	if t.originalSize.X == w && t.originalSize.Y == h && t.offset == (Vec2{}) {
		return drawRect
	}
	sx := drawRect.Width / t.originalSize.X
	sy := drawRect.Height / t.originalSize.Y
	return Rect{
		X:      drawRect.X + t.offset.X*sx,
		Y:      drawRect.Y + t.offset.Y*sy,
		Width:  w * sx,
		Height: h * sy,
	}
}

// --- Reference counting ---

// AddRef increments the root's reference count.
func (t *Texture) AddRef() {
	r := t.Root()
	if r == nil {
		return
	}
	if r.refCount == 0 {
		liveRoots[r] = struct{}{}
	}
	r.refCount++
	r.idle = 0
}

// ReleaseRef decrements the root's reference count. Reaching zero fires
// OnRelease.
func (t *Texture) ReleaseRef() {
	r := t.Root()
	if r == nil {
		return
	}
	if r.refCount <= 0 {
		pkgLogger.Warn("fairy: texture released more often than referenced")
		return
	}
	r.refCount--
	if r.refCount > 0 {
		return
	}
	delete(liveRoots, r)
	if r.OnRelease != nil {
		r.OnRelease(r)
	}
}

// RefCount returns the root's reference count.
func (t *Texture) RefCount() int {
	if r := t.Root(); r != nil {
		return r.refCount
	}
	return 0
}

// --- Lifetime ---

// Reload swaps the root's native image. Regions keep their pixel rectangles;
// OnSizeChanged fires when the dimensions change.
func (t *Texture) Reload(native NativeTexture) {
	if !t.isRoot {
		contractPanic(ErrNotRootTexture, "Reload on a sub-texture")
	}
	oldW, oldH := t.region.Width, t.region.Height
	if t.native != nil && t.native != native {
		t.native.Dispose()
	}
	t.native = native
	t.disposed = false
	w, h := 1.0, 1.0
	if native != nil {
		w, h = float64(native.Width()), float64(native.Height())
	}
	t.region = Rect{Width: w, Height: h}
	t.originalSize = Vec2{w, h}
	t.version++
	if (w != oldW || h != oldH) && t.OnSizeChanged != nil {
		t.OnSizeChanged(t)
	}
}

// Version increments every time the root is reloaded.
func (t *Texture) Version() int {
	if r := t.Root(); r != nil {
		return r.version
	}
	return -1
}

// Dispose releases the native image of a root, invalidating every derived
// region. Disposing a sub-texture only invalidates that region.
func (t *Texture) Dispose() {
	if t.disposed {
		return
	}
	t.disposed = true
	if !t.isRoot {
		return
	}
	delete(liveRoots, t)
	for _, p := range t.pools {
		p.Dispose()
	}
	t.pools = nil
	if t.native != nil {
		t.native.Dispose()
		t.native = nil
	}
}

// MaterialPool returns the pool of materials for this texture's root and the
// named shader ("" is the default shader).
func (t *Texture) MaterialPool(shader string) *MaterialPool {
	r := t.Root()
	if r == nil {
		return nil
	}
	if r.pools == nil {
		r.pools = make(map[string]*MaterialPool)
	}
	p := r.pools[shader]
	if p == nil {
		p = newMaterialPool(r, shader)
		r.pools[shader] = p
	}
	return p
}

// pixelSize returns the root dimensions used to turn UVs into source pixels.
func (t *Texture) pixelSize() (float64, float64) {
	r := t.Root()
	if r == nil {
		return 1, 1
	}
	return math.Max(r.region.Width, 1), math.Max(r.region.Height, 1)
}

// invalidate marks a root disposed without freeing its native image, for
// textures wrapping pooled render targets.
func (t *Texture) invalidate() {
	delete(liveRoots, t)
	t.disposed = true
	t.native = nil
	t.pools = nil
}
