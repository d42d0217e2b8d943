package fairy

// HitArea replaces a node's content rectangle for hit testing. Coordinates
// are local to the node.
type HitArea interface {
	Contains(x, y float64) bool
}

// HitRect is an axis-aligned rectangle.
type HitRect struct {
	X, Y, Width, Height float64
}

// Contains reports whether (x, y) lies inside the rectangle, edges included.
func (r HitRect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// HitCircle is a circle.
type HitCircle struct {
	CenterX, CenterY, Radius float64
}

// Contains reports whether (x, y) lies inside or on the circle.
func (c HitCircle) Contains(x, y float64) bool {
	dx := x - c.CenterX
	dy := y - c.CenterY
	return dx*dx+dy*dy <= c.Radius*c.Radius
}

// HitPolygon is a simple polygon in either winding order. Concave outlines
// are supported.
type HitPolygon struct {
	Points []Vec2
}

// Contains runs an even-odd crossing test.
func (p HitPolygon) Contains(x, y float64) bool {
	n := len(p.Points)
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := p.Points[i], p.Points[j]
		if (a.Y > y) != (b.Y > y) && x < (b.X-a.X)*(y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

// hitTester carries one pointer through a hit-test pass. The ray is in
// stage space for overlay subtrees and in camera world space below a camera
// container.
type hitTester struct {
	screen   Vec2
	origin   Vec3
	dir      Vec3
	forTouch bool
}

func (h *hitTester) localPoint(n *Node) Vec2 {
	return n.WorldToLocal(h.origin, h.dir)
}

// hitTest returns the deepest node under the pointer, or nil. Callers have
// already checked visibility and touchability.
func (n *Node) hitTest(h *hitTester) *Node {
	if n.IsDisposed() || n.flags&flagHostDestroyed != 0 {
		return nil
	}
	if n.scale.X == 0 || n.scale.Y == 0 {
		return nil
	}
	c := n.container
	if c == nil {
		r := n.contentRect
		if r.Width == 0 || r.Height == 0 {
			return nil
		}
		p := h.localPoint(n)
		if n.hitArea != nil {
			if n.hitArea.Contains(p.X, p.Y) {
				return n
			}
			return nil
		}
		if r.Contains(p.X, p.Y) {
			return n
		}
		return nil
	}

	saved := *h
	defer func() { *h = saved }()
	if c.renderMode != RenderOverlay {
		if cam := n.cameraFor(); cam != nil {
			h.origin, h.dir = cam.ScreenRay(h.screen)
		}
	}

	p := h.localPoint(n)
	if n.hitArea != nil {
		if !n.hitArea.Contains(p.X, p.Y) {
			return nil
		}
	} else if c.clipRect != nil && !c.clipRect.Contains(p.X, p.Y) {
		return nil
	}
	if m := c.mask; m != nil {
		var hit *Node
		if m.visible {
			hit = m.hitTest(h)
		}
		if reversed := n.ReversedMask(); (hit == nil) != reversed {
			return nil
		}
	}

	var target *Node
	for i := len(c.children) - 1; i >= 0; i-- {
		child := c.children[i]
		if child == c.mask || !child.visible || (h.forTouch && !child.touchable) {
			continue
		}
		if target = child.hitTest(h); target != nil {
			break
		}
	}
	if target != nil && n.flags&flagTouchChildren == 0 {
		target = n
	}
	if target == nil && n.flags&flagOpaque != 0 && (n.hitArea != nil || n.contentRect.Contains(p.X, p.Y)) {
		target = n
	}
	return target
}
