package fairy

// Image draws a texture stretched over its content rect. Trimmed atlas
// entries keep their transparent margins; rotated regions are unrotated.
type Image struct {
	*Node
}

// NewImage creates an image leaf sized to tex. tex may be nil.
func NewImage(name string, tex *Texture) *Image {
	img := &Image{Node: NewLeaf(name)}
	img.Owner = img
	img.surface.SetMeshFactory(img)
	img.SetTexture(tex)
	if tex != nil {
		img.SetSize(tex.Width(), tex.Height())
	}
	return img
}

// Texture returns the displayed texture.
func (img *Image) Texture() *Texture { return img.surface.Texture() }

// SetTexture swaps the displayed texture. The node keeps its size.
func (img *Image) SetTexture(tex *Texture) {
	if img.surface.Texture() == tex {
		return
	}
	img.surface.SetTexture(tex)
	img.invalidateBatchingState()
}

// Color returns the tint.
func (img *Image) Color() Color { return img.surface.Color() }

// SetColor sets the tint.
func (img *Image) SetColor(c Color) { img.surface.SetColor(c) }

// OnPopulateMesh implements MeshFactory.
func (img *Image) OnPopulateMesh(vb *VertexBuffer) {
	r := vb.ContentRect
	if t := img.surface.Texture(); t != nil {
		r = t.GetDrawRect(r)
	}
	vb.AddQuad(r, vb.VertexColor, vb.UVRect)
	vb.AddTriangles(0)
}

// Shape draws untextured vector geometry.
type Shape struct {
	*Node
}

// NewShape creates an empty shape leaf.
func NewShape(name string) *Shape {
	s := &Shape{Node: NewLeaf(name)}
	s.Owner = s
	return s
}

func (s *Shape) setMesh(f MeshFactory) {
	s.surface.SetMeshFactory(f)
	s.surface.SetMeshDirty()
}

// DrawRect fills the content rect, with a border when lineWidth > 0.
func (s *Shape) DrawRect(lineWidth float64, lineColor, fill Color) {
	s.setMesh(&RectMesh{LineWidth: lineWidth, LineColor: lineColor, FillColor: &fill})
}

// DrawRoundRect fills the content rect with per-corner radii.
func (s *Shape) DrawRoundRect(fill Color, topLeft, topRight, bottomLeft, bottomRight float64) {
	s.setMesh(&RoundedRectMesh{
		TopLeft: topLeft, TopRight: topRight,
		BottomLeft: bottomLeft, BottomRight: bottomRight,
		FillColor: &fill,
	})
}

// DrawEllipse fills the inscribed ellipse.
func (s *Shape) DrawEllipse(fill Color) {
	s.setMesh(&EllipseMesh{FillColor: &fill})
}

// DrawPie fills the ellipse sector between two angles in degrees.
func (s *Shape) DrawPie(fill Color, startDegree, endDegree float64) {
	s.setMesh(&EllipseMesh{FillColor: &fill, StartDegree: startDegree, EndDegree: endDegree})
}

// DrawPolygon fills a simple polygon given in local coordinates.
func (s *Shape) DrawPolygon(points []Vec2, fill Color) {
	s.setMesh(&PolygonMesh{Points: points, FillColor: &fill})
}

// Clear removes the geometry.
func (s *Shape) Clear() { s.setMesh(nil) }

// IsEmpty reports whether no geometry is set.
func (s *Shape) IsEmpty() bool { return s.surface.MeshFactory() == nil }

// MovieClip is an Image that steps through frames at a fixed interval while
// it is on stage.
type MovieClip struct {
	Image

	frames   []*Texture
	interval float64
	frame    int
	elapsed  float64
	playing  bool
	loop     bool
	swing    bool
	reverse  bool

	// OnComplete fires when a non-looping clip reaches its last frame.
	OnComplete func()
}

// NewMovieClip creates a clip showing frames every interval seconds.
func NewMovieClip(name string, frames []*Texture, interval float64) *MovieClip {
	var first *Texture
	if len(frames) > 0 {
		first = frames[0]
	}
	m := &MovieClip{frames: frames, interval: interval, playing: true, loop: true}
	m.Image = *NewImage(name, first)
	m.Owner = m
	m.ticker = m
	return m
}

// Frames returns the frame textures.
func (m *MovieClip) Frames() []*Texture { return m.frames }

// Frame returns the current frame index.
func (m *MovieClip) Frame() int { return m.frame }

// SetFrame jumps to frame i, clamped to the valid range.
func (m *MovieClip) SetFrame(i int) {
	if len(m.frames) == 0 {
		return
	}
	m.frame = min(max(i, 0), len(m.frames)-1)
	m.elapsed = 0
	m.SetTexture(m.frames[m.frame])
}

// Playing reports whether the clip advances.
func (m *MovieClip) Playing() bool { return m.playing }

// SetPlaying starts or pauses the clip.
func (m *MovieClip) SetPlaying(v bool) {
	m.playing = v
	if v && m.stage != nil {
		m.stage.AddTicker(m)
	}
}

// SetLoop selects looping playback.
func (m *MovieClip) SetLoop(v bool) { m.loop = v }

// SetSwing makes a looping clip play back and forth.
func (m *MovieClip) SetSwing(v bool) { m.swing = v }

// Advance implements Ticker. The clip unregisters once it leaves the stage
// or stops playing.
func (m *MovieClip) Advance(dt float64) bool {
	if m.stage == nil || m.IsDisposed() || !m.playing {
		return false
	}
	if len(m.frames) < 2 || m.interval <= 0 {
		return true
	}
	m.elapsed += dt
	for m.elapsed >= m.interval {
		m.elapsed -= m.interval
		if !m.step() {
			m.playing = false
			if m.OnComplete != nil {
				m.OnComplete()
			}
			return false
		}
	}
	return true
}

// step moves one frame and reports whether playback continues.
func (m *MovieClip) step() bool {
	last := len(m.frames) - 1
	next := m.frame + 1
	if m.reverse {
		next = m.frame - 1
	}
	switch {
	case next > last:
		switch {
		case !m.loop:
			return false
		case m.swing:
			m.reverse = true
			next = max(last-1, 0)
		default:
			next = 0
		}
	case next < 0:
		m.reverse = false
		next = min(1, last)
	}
	m.frame = next
	m.SetTexture(m.frames[next])
	return true
}
