package fairy

import (
	"math"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// scrollAnim holds the active scroll-to tweens for X and Y.
type scrollAnim struct {
	tweenX *gween.Tween
	tweenY *gween.Tween
	doneX  bool
	doneY  bool
}

// Camera projects a container rendered in RenderScreenSpaceCamera or
// RenderWorldSpace mode onto the screen.
type Camera struct {
	// X and Y are the world position the camera centers on.
	X, Y float64
	// Zoom is the scale factor (1 = no zoom).
	Zoom float64
	// Rotation is the camera rotation in radians (clockwise).
	Rotation float64
	// Viewport is the screen rectangle the camera renders into.
	Viewport Rect

	// BoundsEnabled clamps the position so the visible area stays within
	// Bounds.
	BoundsEnabled bool
	Bounds        Rect

	followTarget *Node
	followOffset Vec2
	followLerp   float64

	view    Mat4
	invView Mat4
	state   [4]float64 // X, Y, Zoom, Rotation the view was built from
	built   bool

	scroll *scrollAnim
}

// NewCamera returns a camera centered on the viewport.
func NewCamera(viewport Rect) *Camera {
	return &Camera{
		X:        viewport.Width / 2,
		Y:        viewport.Height / 2,
		Zoom:     1,
		Viewport: viewport,
	}
}

// Follow tracks node's stage position plus offset. A lerp of 1 snaps.
func (c *Camera) Follow(node *Node, offset Vec2, lerp float64) {
	c.followTarget = node
	c.followOffset = offset
	c.followLerp = lerp
}

// Unfollow stops tracking.
func (c *Camera) Unfollow() { c.followTarget = nil }

// ScrollTo animates the camera to (x, y) over duration seconds.
func (c *Camera) ScrollTo(x, y float64, duration float32, easeFn ease.TweenFunc) {
	if easeFn == nil {
		easeFn = ease.Linear
	}
	c.scroll = &scrollAnim{
		tweenX: gween.New(float32(c.X), float32(x), duration, easeFn),
		tweenY: gween.New(float32(c.Y), float32(y), duration, easeFn),
	}
}

// Scrolling reports whether a ScrollTo animation is running.
func (c *Camera) Scrolling() bool { return c.scroll != nil }

// SetBounds enables clamping to bounds.
func (c *Camera) SetBounds(bounds Rect) {
	c.BoundsEnabled = true
	c.Bounds = bounds
}

// ClearBounds disables clamping.
func (c *Camera) ClearBounds() { c.BoundsEnabled = false }

// update advances follow, scroll and clamping by dt seconds.
func (c *Camera) update(dt float32) {
	if t := c.followTarget; t != nil {
		if t.IsDisposed() {
			c.followTarget = nil
		} else {
			p := t.LocalToWorld(Vec2{})
			c.X += (p.X + c.followOffset.X - c.X) * c.followLerp
			c.Y += (p.Y + c.followOffset.Y - c.Y) * c.followLerp
		}
	}
	if s := c.scroll; s != nil {
		if !s.doneX {
			v, done := s.tweenX.Update(dt)
			c.X, s.doneX = float64(v), done
		}
		if !s.doneY {
			v, done := s.tweenY.Update(dt)
			c.Y, s.doneY = float64(v), done
		}
		if s.doneX && s.doneY {
			c.scroll = nil
		}
	}
	if c.BoundsEnabled {
		c.clampToBounds()
	}
}

func (c *Camera) clampToBounds() {
	z := c.zoom()
	halfW := c.Viewport.Width / (2 * z)
	halfH := c.Viewport.Height / (2 * z)
	minX, maxX := c.Bounds.X+halfW, c.Bounds.XMax()-halfW
	minY, maxY := c.Bounds.Y+halfH, c.Bounds.YMax()-halfH
	if minX > maxX {
		c.X = c.Bounds.X + c.Bounds.Width/2
	} else {
		c.X = math.Max(minX, math.Min(c.X, maxX))
	}
	if minY > maxY {
		c.Y = c.Bounds.Y + c.Bounds.Height/2
	} else {
		c.Y = math.Max(minY, math.Min(c.Y, maxY))
	}
}

func (c *Camera) zoom() float64 {
	if c.Zoom == 0 {
		return 1
	}
	return c.Zoom
}

// viewMat4 returns Translate(viewport center) * Scale(zoom) * Rotate(-rotation)
// * Translate(-X, -Y), rebuilt when any input changed.
func (c *Camera) viewMat4() Mat4 {
	state := [4]float64{c.X, c.Y, c.Zoom, c.Rotation}
	if c.built && state == c.state {
		return c.view
	}
	c.state, c.built = state, true
	z := c.zoom()
	cx := c.Viewport.X + c.Viewport.Width/2
	cy := c.Viewport.Y + c.Viewport.Height/2
	c.view = translateMat4(cx, cy, 0).
		Mul(scaleMat4(z, z)).
		Mul(rotationMat4(0, 0, -c.Rotation)).
		Mul(translateMat4(-c.X, -c.Y, 0))
	c.invView = c.view.Inverse()
	return c.view
}

// WorldToScreen converts a world point to screen coordinates.
func (c *Camera) WorldToScreen(p Vec2) Vec2 {
	s := c.viewMat4().MulPoint(Vec3{p.X, p.Y, 0})
	return Vec2{s.X, s.Y}
}

// ScreenToWorld converts a screen point to world coordinates.
func (c *Camera) ScreenToWorld(p Vec2) Vec2 {
	c.viewMat4()
	w := c.invView.MulPoint(Vec3{p.X, p.Y, 0})
	return Vec2{w.X, w.Y}
}

// ScreenRay returns the world-space ray through a screen point, suitable for
// Node.WorldToLocal. The camera is orthographic, so the direction is +Z.
func (c *Camera) ScreenRay(p Vec2) (origin, direction Vec3) {
	w := c.ScreenToWorld(p)
	return Vec3{w.X, w.Y, 0}, Vec3{0, 0, 1}
}

// VisibleBounds returns the world-space AABB of the viewport.
func (c *Camera) VisibleBounds() Rect {
	v := c.Viewport
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range [4]Vec2{{v.X, v.Y}, {v.XMax(), v.Y}, {v.XMax(), v.YMax()}, {v.X, v.YMax()}} {
		w := c.ScreenToWorld(p)
		minX, minY = math.Min(minX, w.X), math.Min(minY, w.Y)
		maxX, maxY = math.Max(maxX, w.X), math.Max(maxY, w.Y)
	}
	return MinMaxRect(minX, minY, maxX, maxY)
}
