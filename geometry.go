package fairy

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// VertexBuffer accumulates the geometry of one surface. Positions are in the
// node's local space; SrcX/SrcY are pixels of the texture root. Colors are
// straight (not premultiplied); premultiplication happens at submission.
type VertexBuffer struct {
	ContentRect    Rect
	UVRect         Rect // normalized region of the texture root
	TextureSize    Vec2 // root pixels
	TextureRotated bool
	VertexColor    Color

	Vertices []ebiten.Vertex
	Indices  []uint32
}

// Reset clears the geometry but keeps the backing arrays.
func (vb *VertexBuffer) Reset() {
	vb.Vertices = vb.Vertices[:0]
	vb.Indices = vb.Indices[:0]
}

// CurrentVertCount returns the number of vertices emitted so far.
func (vb *VertexBuffer) CurrentVertCount() int { return len(vb.Vertices) }

// AddVert appends a vertex with an explicit normalized uv.
func (vb *VertexBuffer) AddVert(x, y float64, c Color, u, v float64) {
	vb.Vertices = append(vb.Vertices, ebiten.Vertex{
		DstX:   float32(x),
		DstY:   float32(y),
		SrcX:   float32(u * vb.TextureSize.X),
		SrcY:   float32(v * vb.TextureSize.Y),
		ColorR: float32(c.R),
		ColorG: float32(c.G),
		ColorB: float32(c.B),
		ColorA: float32(c.A),
	})
}

// AddVertAuto appends a vertex whose uv is interpolated from its position
// within ContentRect, honouring a rotated region.
func (vb *VertexBuffer) AddVertAuto(x, y float64, c Color) {
	s, t := 0.0, 0.0
	if vb.ContentRect.Width != 0 {
		s = (x - vb.ContentRect.X) / vb.ContentRect.Width
	}
	if vb.ContentRect.Height != 0 {
		t = (y - vb.ContentRect.Y) / vb.ContentRect.Height
	}
	u, v := vb.uvAt(s, t)
	vb.AddVert(x, y, c, u, v)
}

// uvAt maps a logical (s, t) in [0, 1] to the stored uv. Rotated regions are
// stored 90 degrees clockwise.
func (vb *VertexBuffer) uvAt(s, t float64) (float64, float64) {
	r := vb.UVRect
	if vb.TextureRotated {
		return r.X + r.Width*(1-t), r.Y + r.Height*s
	}
	return r.X + r.Width*s, r.Y + r.Height*t
}

// AddQuad appends four vertices (top-left, top-right, bottom-right,
// bottom-left) covering rect with the given uv rect. Call AddTriangles to
// index them.
func (vb *VertexBuffer) AddQuad(rect Rect, c Color, uv Rect) {
	saved := vb.UVRect
	vb.UVRect = uv
	corners := [4][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	for _, k := range corners {
		u, v := vb.uvAt(k[0], k[1])
		vb.AddVert(rect.X+rect.Width*k[0], rect.Y+rect.Height*k[1], c, u, v)
	}
	vb.UVRect = saved
}

// AddTriangle appends one triangle by absolute vertex indices.
func (vb *VertexBuffer) AddTriangle(a, b, c int) {
	vb.Indices = append(vb.Indices, uint32(a), uint32(b), uint32(c))
}

// AddTriangles indexes every quad emitted from baseIndex on.
func (vb *VertexBuffer) AddTriangles(baseIndex int) {
	for i := baseIndex; i+3 < len(vb.Vertices); i += 4 {
		vb.AddTriangle(i, i+1, i+2)
		vb.AddTriangle(i+2, i+3, i)
	}
}

// Bounds returns the local bounding box of the emitted vertices.
func (vb *VertexBuffer) Bounds() Rect {
	if len(vb.Vertices) == 0 {
		return Rect{}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, v := range vb.Vertices {
		x, y := float64(v.DstX), float64(v.DstY)
		minX, minY = math.Min(minX, x), math.Min(minY, y)
		maxX, maxY = math.Max(maxX, x), math.Max(maxY, y)
	}
	return MinMaxRect(minX, minY, maxX, maxY)
}

// FixUVForArbitraryQuad applies projective texture coordinates to a single
// non-parallelogram quad so the texture does not shear along the diagonal.
// The q factor is stored in Custom0; the shader divides by it.
func (vb *VertexBuffer) FixUVForArbitraryQuad() {
	if len(vb.Vertices) != 4 {
		return
	}
	var p [4]Vec2
	for i, v := range vb.Vertices {
		p[i] = Vec2{float64(v.DstX), float64(v.DstY)}
	}
	s1 := Vec2{p[2].X - p[0].X, p[2].Y - p[0].Y}
	s2 := Vec2{p[3].X - p[1].X, p[3].Y - p[1].Y}
	den := s1.X*s2.Y - s1.Y*s2.X
	if math.Abs(den) < 1e-9 {
		return
	}
	t := ((p[1].X-p[0].X)*s2.Y - (p[1].Y-p[0].Y)*s2.X) / den
	center := Vec2{p[0].X + s1.X*t, p[0].Y + s1.Y*t}
	var d [4]float64
	for i := range p {
		d[i] = math.Hypot(p[i].X-center.X, p[i].Y-center.Y)
	}
	for i := range vb.Vertices {
		opp := d[(i+2)%4]
		if opp == 0 {
			continue
		}
		q := float32((d[i] + opp) / opp)
		v := &vb.Vertices[i]
		v.SrcX *= q
		v.SrcY *= q
		v.Custom0 = q
	}
}

// MeshFactory fills a VertexBuffer for a surface.
type MeshFactory interface {
	OnPopulateMesh(vb *VertexBuffer)
}

// MeshFactoryFunc adapts a function to MeshFactory.
type MeshFactoryFunc func(vb *VertexBuffer)

// OnPopulateMesh calls f.
func (f MeshFactoryFunc) OnPopulateMesh(vb *VertexBuffer) { f(vb) }

// --- Built-in meshes ---

// RectMesh fills the content rect, optionally with an outline.
type RectMesh struct {
	DrawRect  *Rect // nil uses the content rect
	FillColor *Color
	LineWidth float64
	LineColor Color
}

// OnPopulateMesh implements MeshFactory.
func (m *RectMesh) OnPopulateMesh(vb *VertexBuffer) {
	r := vb.ContentRect
	if m.DrawRect != nil {
		r = *m.DrawRect
	}
	fill := vb.VertexColor
	if m.FillColor != nil {
		fill = *m.FillColor
	}
	lw := m.LineWidth
	if lw <= 0 {
		vb.addAutoQuad(r, fill)
		vb.AddTriangles(0)
		return
	}
	lw = math.Min(lw, math.Min(r.Width, r.Height)/2)
	// Four border strips, then the interior.
	vb.addAutoQuad(Rect{r.X, r.Y, r.Width, lw}, m.LineColor)
	vb.addAutoQuad(Rect{r.X, r.YMax() - lw, r.Width, lw}, m.LineColor)
	vb.addAutoQuad(Rect{r.X, r.Y + lw, lw, r.Height - 2*lw}, m.LineColor)
	vb.addAutoQuad(Rect{r.XMax() - lw, r.Y + lw, lw, r.Height - 2*lw}, m.LineColor)
	if fill.A > 0 {
		vb.addAutoQuad(Rect{r.X + lw, r.Y + lw, r.Width - 2*lw, r.Height - 2*lw}, fill)
	}
	vb.AddTriangles(0)
}

func (vb *VertexBuffer) addAutoQuad(r Rect, c Color) {
	vb.AddVertAuto(r.X, r.Y, c)
	vb.AddVertAuto(r.XMax(), r.Y, c)
	vb.AddVertAuto(r.XMax(), r.YMax(), c)
	vb.AddVertAuto(r.X, r.YMax(), c)
}

// RoundedRectMesh fills the content rect with rounded corners.
type RoundedRectMesh struct {
	TopLeft, TopRight, BottomLeft, BottomRight float64
	FillColor                                  *Color
}

// OnPopulateMesh implements MeshFactory.
func (m *RoundedRectMesh) OnPopulateMesh(vb *VertexBuffer) {
	r := vb.ContentRect
	fill := vb.VertexColor
	if m.FillColor != nil {
		fill = *m.FillColor
	}
	limit := math.Min(r.Width, r.Height) / 2
	radii := [4]float64{
		math.Min(m.TopLeft, limit), math.Min(m.TopRight, limit),
		math.Min(m.BottomRight, limit), math.Min(m.BottomLeft, limit),
	}
	centers := [4]Vec2{
		{r.X + radii[0], r.Y + radii[0]},
		{r.XMax() - radii[1], r.Y + radii[1]},
		{r.XMax() - radii[2], r.YMax() - radii[2]},
		{r.X + radii[3], r.YMax() - radii[3]},
	}
	start := [4]float64{math.Pi, 1.5 * math.Pi, 0, 0.5 * math.Pi}

	center := vb.CurrentVertCount()
	vb.AddVertAuto(r.X+r.Width/2, r.Y+r.Height/2, fill)
	first := vb.CurrentVertCount()
	for i := range 4 {
		segs := max(int(math.Ceil(radii[i]/2)), 1)
		if radii[i] == 0 {
			segs = 0
		}
		for s := 0; s <= segs; s++ {
			a := start[i]
			if segs > 0 {
				a += float64(s) / float64(segs) * math.Pi / 2
			}
			vb.AddVertAuto(centers[i].X+math.Cos(a)*radii[i], centers[i].Y+math.Sin(a)*radii[i], fill)
		}
	}
	last := vb.CurrentVertCount()
	for i := first; i < last; i++ {
		next := i + 1
		if next == last {
			next = first
		}
		vb.AddTriangle(center, i, next)
	}
}

// EllipseMesh fills an ellipse inscribed in the content rect. StartDegree
// and EndDegree select a pie; equal values draw the full ellipse.
type EllipseMesh struct {
	FillColor   *Color
	StartDegree float64
	EndDegree   float64
}

// OnPopulateMesh implements MeshFactory.
func (m *EllipseMesh) OnPopulateMesh(vb *VertexBuffer) {
	r := vb.ContentRect
	fill := vb.VertexColor
	if m.FillColor != nil {
		fill = *m.FillColor
	}
	rx, ry := r.Width/2, r.Height/2
	cx, cy := r.X+rx, r.Y+ry
	span := 360.0
	from := 0.0
	if m.EndDegree != m.StartDegree {
		from = m.StartDegree
		span = math.Min(m.EndDegree-m.StartDegree, 360)
	}
	sides := int(math.Ceil(math.Pi*(rx+ry)/4*span/360)) + 6
	center := vb.CurrentVertCount()
	vb.AddVertAuto(cx, cy, fill)
	for i := 0; i <= sides; i++ {
		a := (from + span*float64(i)/float64(sides)) * math.Pi / 180
		vb.AddVertAuto(cx+math.Cos(a)*rx, cy+math.Sin(a)*ry, fill)
	}
	for i := 1; i <= sides; i++ {
		vb.AddTriangle(center, center+i, center+i+1)
	}
}

// PolygonMesh fills a simple (possibly concave) polygon by ear clipping.
type PolygonMesh struct {
	Points    []Vec2
	Colors    []Color // optional per-point colors
	FillColor *Color
	// FixQuadUV applies projective uvs when the polygon has four points.
	FixQuadUV bool
}

// OnPopulateMesh implements MeshFactory.
func (m *PolygonMesh) OnPopulateMesh(vb *VertexBuffer) {
	if len(m.Points) < 3 {
		return
	}
	fill := vb.VertexColor
	if m.FillColor != nil {
		fill = *m.FillColor
	}
	base := vb.CurrentVertCount()
	for i, p := range m.Points {
		c := fill
		if i < len(m.Colors) {
			c = m.Colors[i]
		}
		vb.AddVertAuto(p.X, p.Y, c)
	}
	for _, tri := range triangulate(m.Points) {
		vb.AddTriangle(base+tri[0], base+tri[1], base+tri[2])
	}
	if m.FixQuadUV && len(m.Points) == 4 {
		vb.FixUVForArbitraryQuad()
	}
}

// triangulate ear-clips a simple polygon of either winding.
func triangulate(pts []Vec2) [][3]int {
	n := len(pts)
	idx := make([]int, n)
	area := 0.0
	for i := range pts {
		idx[i] = i
		j := (i + 1) % n
		area += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	sign := 1.0
	if area < 0 {
		sign = -1
	}
	var tris [][3]int
	for guard := 0; len(idx) > 3 && guard < n*n; guard++ {
		clipped := false
		for i := range idx {
			a := idx[(i+len(idx)-1)%len(idx)]
			b := idx[i]
			c := idx[(i+1)%len(idx)]
			if cross(pts[a], pts[b], pts[c])*sign <= 0 {
				continue
			}
			ear := true
			for _, o := range idx {
				if o != a && o != b && o != c && pointInTriangle(pts[o], pts[a], pts[b], pts[c]) {
					ear = false
					break
				}
			}
			if !ear {
				continue
			}
			tris = append(tris, [3]int{a, b, c})
			idx = append(idx[:i], idx[i+1:]...)
			clipped = true
			break
		}
		if !clipped {
			break
		}
	}
	if len(idx) == 3 {
		tris = append(tris, [3]int{idx[0], idx[1], idx[2]})
	}
	return tris
}

func cross(a, b, c Vec2) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

func pointInTriangle(p, a, b, c Vec2) bool {
	d1 := cross(a, b, p)
	d2 := cross(b, c, p)
	d3 := cross(c, a, p)
	neg := d1 < 0 || d2 < 0 || d3 < 0
	pos := d1 > 0 || d2 > 0 || d3 > 0
	return !(neg && pos)
}
