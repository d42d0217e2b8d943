package fairy

import "math"

// minScale keeps inverse transforms (hit-testing, pixel snapping) finite.
const minScale = 0.001

func clampScale(v float64) float64 {
	if v >= 0 && v < minScale {
		return minScale
	}
	if v < 0 && v > -minScale {
		return -minScale
	}
	return v
}

// vertexWarp projects a node's geometry after rotating it about X/Y around the
// pivot, as seen from a camera focalLength in front of the pivot.
type vertexWarp struct {
	rot    Mat4
	inv    Mat4
	pivot  Vec3
	camera Vec3
}

func (w *vertexWarp) apply(v Vec3) Vec3 {
	p := w.rot.MulPoint(v.sub(w.pivot)).add(w.pivot)
	d := p.sub(w.camera)
	if math.Abs(d.Z) < 1e-9 {
		return Vec3{p.X, p.Y, 0}
	}
	t := -w.camera.Z / d.Z
	return Vec3{w.camera.X + d.X*t, w.camera.Y + d.Y*t, 0}
}

// unproject maps a point of the flat local plane back onto the warped plane
// and undoes the rotation. The camera ray is intersected with the rotated
// plane explicitly; the plane may be nearly edge-on to the camera.
func (w *vertexWarp) unproject(q Vec2) Vec2 {
	dir := Vec3{q.X, q.Y, 0}.sub(w.camera)
	normal := w.rot.MulVector(Vec3{0, 0, 1})
	hit, ok := rayPlane(w.camera, dir, w.pivot, normal)
	if !ok {
		return q
	}
	local := w.inv.MulPoint(hit.sub(w.pivot)).add(w.pivot)
	return Vec2{local.X, local.Y}
}

// --- Position ---

// Position returns the logical (unsnapped) local position.
func (n *Node) Position() Vec2 {
	return Vec2{n.pos.X - n.pixelAdjust.X, n.pos.Y - n.pixelAdjust.Y}
}

// X returns the logical local x.
func (n *Node) X() float64 { return n.pos.X - n.pixelAdjust.X }

// Y returns the logical local y.
func (n *Node) Y() float64 { return n.pos.Y - n.pixelAdjust.Y }

// Z returns the local z.
func (n *Node) Z() float64 { return n.pos.Z }

// SetPosition moves the node within its parent.
func (n *Node) SetPosition(x, y float64) {
	n.SetPosition3(x, y, n.pos.Z)
}

// SetPosition3 moves the node, including depth.
func (n *Node) SetPosition3(x, y, z float64) {
	cur := n.pos.sub(n.pixelAdjust)
	if cur.X == x && cur.Y == y && cur.Z == z {
		return
	}
	n.pos = Vec3{x, y, z}
	n.pixelAdjust = Vec3{}
	n.localDirty = true
	n.outlineChanged()
	n.schedulePixelSnap()
}

// schedulePixelSnap defers snapping to the frame after the one that first
// renders the new position, so continuous motion is never snapped.
func (n *Node) schedulePixelSnap() {
	if n.flags&flagPixelPerfect == 0 {
		return
	}
	n.pixelPending = true
	n.pixelCheckAt = n.lastFrame + 1
}

func (n *Node) validatePixelPerfect(frame uint64) {
	n.lastFrame = frame
	if !n.pixelPending || n.flags&flagPixelPerfect == 0 || frame <= n.pixelCheckAt {
		return
	}
	n.pixelPending = false
	if n.rotation != (Vec3{}) {
		return
	}
	snapped := Vec3{math.Round(n.pos.X), math.Round(n.pos.Y), n.pos.Z}
	if snapped != n.pos {
		n.pixelAdjust = snapped.sub(n.pos)
		n.pos = snapped
		n.localDirty = true
	}
}

// removePixelAdjust restores the logical position before further position
// math and re-arms the snap.
func (n *Node) removePixelAdjust() {
	if n.pixelAdjust == (Vec3{}) {
		return
	}
	n.pos = n.pos.sub(n.pixelAdjust)
	n.pixelAdjust = Vec3{}
	n.schedulePixelSnap()
}

// --- Size ---

// Width returns the content width.
func (n *Node) Width() float64 { return n.contentRect.Width }

// Height returns the content height.
func (n *Node) Height() float64 { return n.contentRect.Height }

// ContentRect returns the local content rectangle.
func (n *Node) ContentRect() Rect { return n.contentRect }

// SetSize sets the content size. Setting the current size is a no-op and
// does not dirty the mesh.
func (n *Node) SetSize(w, h float64) {
	if n.contentRect.Width == w && n.contentRect.Height == h {
		return
	}
	n.contentRect.Width = w
	n.contentRect.Height = h
	n.onSizeChanged()
}

// SetWidth sets the content width.
func (n *Node) SetWidth(w float64) { n.SetSize(w, n.contentRect.Height) }

// SetHeight sets the content height.
func (n *Node) SetHeight(h float64) { n.SetSize(n.contentRect.Width, h) }

func (n *Node) onSizeChanged() {
	n.outlineChanged()
	n.applyPivot()
	n.updateWarp()
	if n.surface != nil {
		n.surface.SetMeshDirty()
	}
	if n.painting != nil {
		n.painting.dirty = true
	}
}

// --- Pivot ---

// Pivot returns the pivot as a fraction of the content size.
func (n *Node) Pivot() Vec2 { return n.pivot }

// SetPivot changes the pivot fraction. The content stays where it is and
// Position is unchanged; later rotation, scale, skew and size changes turn
// about the new pivot.
func (n *Node) SetPivot(px, py float64) {
	if n.pivot.X == px && n.pivot.Y == py {
		return
	}
	n.pivot = Vec2{px, py}
	n.updatePivotOffset()
	n.updateWarp()
}

// PivotOffset returns the cached pivot offset (pivot point under rotation,
// skew and scale, relative to the native origin).
func (n *Node) PivotOffset() Vec3 { return n.pivotOffset }

func (n *Node) updatePivotOffset() {
	p := Vec3{n.pivot.X * n.contentRect.Width, n.pivot.Y * n.contentRect.Height, 0}
	n.pivotOffset = n.linearMatrix().MulPoint(p)
}

// applyPivot keeps the pivot point stationary after rotation, scale, skew or
// size changes.
func (n *Node) applyPivot() {
	n.localDirty = true
	n.outlineChanged()
	if n.pivot.X == 0 && n.pivot.Y == 0 {
		n.updatePivotOffset()
		return
	}
	n.removePixelAdjust()
	old := n.pivotOffset
	n.updatePivotOffset()
	n.pos = n.pos.add(old.sub(n.pivotOffset))
}

// --- Scale, rotation, skew ---

// Scale returns the local scale.
func (n *Node) Scale() Vec2 { return n.scale }

// SetScale sets the local scale. Magnitudes below 0.001 are clamped.
func (n *Node) SetScale(sx, sy float64) {
	sx, sy = clampScale(sx), clampScale(sy)
	if n.scale.X == sx && n.scale.Y == sy {
		return
	}
	n.scale = Vec2{sx, sy}
	n.applyPivot()
}

// Rotation returns the rotation about Z in radians.
func (n *Node) Rotation() float64 { return n.rotation.Z }

// RotationX returns the rotation about X in radians.
func (n *Node) RotationX() float64 { return n.rotation.X }

// RotationY returns the rotation about Y in radians.
func (n *Node) RotationY() float64 { return n.rotation.Y }

// SetRotation sets the rotation about Z (radians, clockwise on screen).
func (n *Node) SetRotation(r float64) {
	if n.rotation.Z == r {
		return
	}
	n.rotation.Z = r
	n.applyPivot()
}

// SetRotationX sets the rotation about X. With perspective enabled it warps
// the geometry instead of tilting the transform.
func (n *Node) SetRotationX(r float64) {
	if n.rotation.X == r {
		return
	}
	n.rotation.X = r
	n.applyPivot()
	n.updateWarp()
}

// SetRotationY sets the rotation about Y.
func (n *Node) SetRotationY(r float64) {
	if n.rotation.Y == r {
		return
	}
	n.rotation.Y = r
	n.applyPivot()
	n.updateWarp()
}

// Skew returns the skew angles in radians.
func (n *Node) Skew() Vec2 { return n.skew }

// SetSkew sets the skew angles in radians.
func (n *Node) SetSkew(sx, sy float64) {
	if n.skew.X == sx && n.skew.Y == sy {
		return
	}
	n.skew = Vec2{sx, sy}
	n.applyPivot()
}

// Perspective reports whether X/Y rotation is rendered with perspective.
func (n *Node) Perspective() bool { return n.perspective }

// SetPerspective toggles perspective rendering of X/Y rotation.
func (n *Node) SetPerspective(v bool) {
	if n.perspective == v {
		return
	}
	n.perspective = v
	n.applyPivot()
	n.updateWarp()
}

// FocalLength returns the perspective camera distance.
func (n *Node) FocalLength() float64 { return n.focalLength }

// SetFocalLength sets the perspective camera distance.
func (n *Node) SetFocalLength(f float64) {
	if f <= 0 || n.focalLength == f {
		return
	}
	n.focalLength = f
	n.updateWarp()
}

func (n *Node) updateWarp() {
	if !n.perspective || (n.rotation.X == 0 && n.rotation.Y == 0) {
		if n.warp != nil {
			n.warp = nil
			n.markGeometryDirty()
		}
		return
	}
	rot := rotationMat4(n.rotation.X, n.rotation.Y, 0)
	px := n.pivot.X * n.contentRect.Width
	py := n.pivot.Y * n.contentRect.Height
	n.warp = &vertexWarp{
		rot:    rot,
		inv:    rot.Inverse(),
		pivot:  Vec3{px, py, 0},
		camera: Vec3{px, py, -n.focalLength},
	}
	n.markGeometryDirty()
}

func (n *Node) markGeometryDirty() {
	n.outlineChanged()
	if n.surface != nil {
		n.surface.SetMeshDirty()
	}
}

// --- Matrices ---

// linearMatrix is the transform without translation: rotation, skew, scale.
func (n *Node) linearMatrix() Mat4 {
	rx, ry := n.rotation.X, n.rotation.Y
	if n.perspective {
		rx, ry = 0, 0
	}
	m := rotationMat4(rx, ry, n.rotation.Z)
	if n.skew.X != 0 || n.skew.Y != 0 {
		m = m.Mul(skewMat4(n.skew.X, n.skew.Y))
	}
	return m.Mul(scaleMat4(n.scale.X, n.scale.Y))
}

// LocalMatrix returns the node's transform relative to its parent.
func (n *Node) LocalMatrix() Mat4 {
	if n.localDirty {
		n.localMatrix = translateMat4(n.pos.X, n.pos.Y, n.pos.Z).Mul(n.linearMatrix())
		n.localDirty = false
	}
	return n.localMatrix
}

// WorldMatrix returns the node's transform relative to the stage. Detached
// nodes fall back to their home anchor.
func (n *Node) WorldMatrix() Mat4 {
	p := n.parent
	if p == nil {
		p = n.home
	}
	if p == nil {
		return n.LocalMatrix()
	}
	return p.WorldMatrix().Mul(n.LocalMatrix())
}

func (n *Node) hasPlanarTransform() bool {
	return n.rotation == (Vec3{}) && n.skew == (Vec2{}) && n.warp == nil
}

// --- Coordinate conversion ---

// LocalToWorld converts a local point to stage space.
func (n *Node) LocalToWorld(p Vec2) Vec2 {
	v := Vec3{p.X, p.Y, 0}
	if n.warp != nil {
		v = n.warp.apply(v)
	}
	w := n.WorldMatrix().MulPoint(v)
	return Vec2{w.X, w.Y}
}

// WorldToLocal maps a stage-space ray onto the node's local z=0 plane. For
// the screen overlay the direction is (0, 0, 1).
func (n *Node) WorldToLocal(point, direction Vec3) Vec2 {
	inv := n.WorldMatrix().Inverse()
	o := inv.MulPoint(point)
	d := inv.MulVector(direction)
	local := rayPlaneZ0(o, d)
	if n.warp != nil {
		local = n.warp.unproject(local)
	}
	return local
}

// GlobalToLocal converts a stage-space point using an orthographic ray.
func (n *Node) GlobalToLocal(p Vec2) Vec2 {
	return n.WorldToLocal(Vec3{p.X, p.Y, 0}, Vec3{0, 0, 1})
}

// TransformPoint converts a local point into targetSpace (nil = stage).
func (n *Node) TransformPoint(p Vec2, targetSpace *Node) Vec2 {
	if targetSpace == n {
		return p
	}
	w := n.LocalToWorld(p)
	if targetSpace == nil {
		return w
	}
	return targetSpace.GlobalToLocal(w)
}

// TransformRect converts a local rectangle into targetSpace (nil = stage)
// and returns the axis-aligned bounds of the result.
func (n *Node) TransformRect(r Rect, targetSpace *Node) Rect {
	if targetSpace == n {
		return r
	}
	if targetSpace != nil && targetSpace == n.parent && n.hasPlanarTransform() {
		n.LocalMatrix()
		x0 := n.pos.X + r.X*n.scale.X
		x1 := n.pos.X + r.XMax()*n.scale.X
		y0 := n.pos.Y + r.Y*n.scale.Y
		y1 := n.pos.Y + r.YMax()*n.scale.Y
		return MinMaxRect(math.Min(x0, x1), math.Min(y0, y1), math.Max(x0, x1), math.Max(y0, y1))
	}
	corners := [4]Vec2{
		{r.X, r.Y}, {r.XMax(), r.Y}, {r.X, r.YMax()}, {r.XMax(), r.YMax()},
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		p := n.TransformPoint(c, targetSpace)
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return MinMaxRect(minX, minY, maxX, maxY)
}

// Bounds returns the node's content rectangle in targetSpace (nil = stage).
// Containers without a clip rect report the union of their children.
func (n *Node) Bounds(targetSpace *Node) Rect {
	if c := n.container; c != nil && n.contentRect.Empty() {
		if c.clipRect != nil {
			return n.TransformRect(*c.clipRect, targetSpace)
		}
		var r Rect
		first := true
		for _, child := range c.children {
			if !child.visible || child == c.mask {
				continue
			}
			b := child.Bounds(targetSpace)
			if first {
				r = b
				first = false
			} else {
				r = r.Union(b)
			}
		}
		if first {
			p := n.TransformPoint(Vec2{}, targetSpace)
			return Rect{X: p.X, Y: p.Y}
		}
		return r
	}
	return n.TransformRect(n.contentRect, targetSpace)
}
