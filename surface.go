package fairy

// Surface owns the mesh and render state of one drawable node. Every frame it
// rebuilds its geometry if stale, resolves a pooled material for the active
// clip state and records a draw item.
type Surface struct {
	owner       *Node
	texture     *Texture
	shader      string
	keywords    []string
	blendMode   BlendMode
	color       Color
	colorMatrix *[20]float64
	meshFactory MeshFactory

	vb         VertexBuffer
	meshDirty  bool
	texVersion int
	rebuilds   int

	material    *Material
	maskFlag    uint8 // 1: draw as mask writer this frame
	eraserOrder int
	disposed    bool
}

func newSurface(owner *Node) *Surface {
	return &Surface{owner: owner, color: ColorWhite, meshDirty: true}
}

// Owner returns the node the surface draws for.
func (s *Surface) Owner() *Node { return s.owner }

// Texture returns the bound texture, or nil for untextured geometry.
func (s *Surface) Texture() *Texture { return s.texture }

// SetTexture binds t, taking a reference on it and releasing the previous one.
func (s *Surface) SetTexture(t *Texture) {
	if s.texture == t {
		return
	}
	if t != nil {
		t.AddRef()
	}
	if s.texture != nil {
		s.texture.ReleaseRef()
	}
	s.texture = t
	s.SetMeshDirty()
}

// Shader returns the shader name ("" is the default).
func (s *Surface) Shader() string { return s.shader }

// SetShader selects a named shader.
func (s *Surface) SetShader(name string) { s.shader = name }

// Keywords returns the custom shader keywords.
func (s *Surface) Keywords() []string { return s.keywords }

// EnableKeyword turns a custom shader keyword on or off.
func (s *Surface) EnableKeyword(keyword string, on bool) {
	for i, k := range s.keywords {
		if k == keyword {
			if !on {
				s.keywords = append(s.keywords[:i], s.keywords[i+1:]...)
			}
			return
		}
	}
	if on {
		s.keywords = append(s.keywords, keyword)
	}
}

// Color returns the vertex tint.
func (s *Surface) Color() Color { return s.color }

// SetColor sets the vertex tint used by mesh factories.
func (s *Surface) SetColor(c Color) {
	if s.color == c {
		return
	}
	s.color = c
	s.SetMeshDirty()
}

// SetColorMatrix applies a 4x5 color transform in the fragment stage. nil
// removes it.
func (s *Surface) SetColorMatrix(m *[20]float64) { s.colorMatrix = m }

// SetMeshFactory installs the geometry generator.
func (s *Surface) SetMeshFactory(f MeshFactory) {
	s.meshFactory = f
	s.SetMeshDirty()
}

// MeshFactory returns the geometry generator.
func (s *Surface) MeshFactory() MeshFactory { return s.meshFactory }

// SetMeshDirty schedules a geometry rebuild on the next update.
func (s *Surface) SetMeshDirty() { s.meshDirty = true }

// MeshDirty reports whether a rebuild is pending.
func (s *Surface) MeshDirty() bool { return s.meshDirty }

// RebuildCount returns how many times the mesh was rebuilt.
func (s *Surface) RebuildCount() int { return s.rebuilds }

// Material returns the material resolved on the last update.
func (s *Surface) Material() *Material { return s.material }

// VertexBuffer returns the current geometry.
func (s *Surface) VertexBuffer() *VertexBuffer { return &s.vb }

// Dispose releases the texture reference.
func (s *Surface) Dispose() {
	if s.disposed {
		return
	}
	s.disposed = true
	if s.texture != nil {
		s.texture.ReleaseRef()
		s.texture = nil
	}
	s.material = nil
	s.meshFactory = nil
}

// preUpdateMask marks the surface as the stencil writer for this frame.
func (s *Surface) preUpdateMask() {
	s.maskFlag = 1
}

func (s *Surface) rebuildMesh() {
	s.meshDirty = false
	s.rebuilds++
	vb := &s.vb
	vb.Reset()
	vb.ContentRect = Rect{Width: s.owner.contentRect.Width, Height: s.owner.contentRect.Height}
	vb.VertexColor = s.color
	vb.UVRect = Rect{Width: 1, Height: 1}
	vb.TextureSize = Vec2{1, 1}
	vb.TextureRotated = false
	if t := s.texture; t != nil && !t.Disposed() {
		vb.UVRect = t.UVRect()
		w, h := t.pixelSize()
		vb.TextureSize = Vec2{w, h}
		vb.TextureRotated = t.Rotated()
		s.texVersion = t.Version()
	}
	if s.meshFactory != nil {
		s.meshFactory.OnPopulateMesh(vb)
	}
	if w := s.owner.warp; w != nil {
		for i := range vb.Vertices {
			v := &vb.Vertices[i]
			p := w.apply(Vec3{float64(v.DstX), float64(v.DstY), 0})
			v.DstX, v.DstY = float32(p.X), float32(p.Y)
		}
	}
}

func (s *Surface) update(ctx *FrameContext, alpha float64, grayed bool) {
	writer := s.maskFlag == 1
	s.maskFlag = 0
	if s.disposed {
		return
	}
	tex := s.texture
	if tex != nil {
		if tex.Disposed() {
			s.owner.warnStale("texture disposed")
			return
		}
		if tex.Version() != s.texVersion {
			s.meshDirty = true
		}
	} else {
		tex = ctx.whiteTexture
	}
	if s.meshDirty {
		s.rebuildMesh()
		ctx.stats.rebuilds++
	}
	if len(s.vb.Indices) == 0 {
		return
	}

	clip := ctx.clip
	pass := PassNormal
	var flags MaterialFlags
	if clip.RectClipped {
		flags |= FlagClipped
		if clip.Soft {
			flags |= FlagSoftClipped
		}
	}
	if clip.Stencil {
		if writer {
			flags |= FlagAlphaMask
			pass = PassMaskWrite
		} else {
			flags |= FlagStencilTest
		}
	}
	if grayed {
		flags |= FlagGrayed
	}
	if s.colorMatrix != nil {
		flags |= FlagColorFilter
	}
	pool := tex.MaterialPool(s.shader)
	flags |= pool.KeywordFlags(s.keywords)
	// Keyed by clip ID whenever clipped, not only during stencil passes:
	// the clip rect and soft factors live on the material.
	var group uint32
	if clip.Clipped {
		group = clip.ID
	}
	mat := pool.GetMaterial(flags, s.blendMode, group, ctx.frameID)
	if pool.FirstUseThisFrame() {
		mat.Clip = clip
		mat.Stencil = stencilFor(clip, pass)
	}
	if mat != s.material {
		s.material = mat
		ctx.stats.materialChanges++
		s.owner.invalidateBatchingState()
	}

	transform := ctx.targetMatrix(s.owner).Aff3()
	ctx.record(DrawItem{
		Node:        s.owner,
		Pass:        pass,
		Material:    mat,
		Vertices:    s.vb.Vertices,
		Indices:     s.vb.Indices,
		Transform:   transform,
		Alpha:       alpha,
		ColorMatrix: s.colorMatrix,
		surface:     s,
	})

	if pass == PassMaskWrite {
		eraser := pool.GetMaterial(flags, BlendOff, group, ctx.frameID)
		if pool.FirstUseThisFrame() {
			eraser.Clip = clip
			eraser.Stencil = stencilFor(clip, PassMaskErase)
		}
		ctx.record(DrawItem{
			Node:      s.owner,
			Pass:      PassMaskErase,
			Material:  eraser,
			Vertices:  s.vb.Vertices,
			Indices:   s.vb.Indices,
			Transform: transform,
			Alpha:     alpha,
			surface:   s,
		})
	}
}

// stencilFor builds the stencil state for a pass under clip.
func stencilFor(clip ClipInfo, pass DrawPass) StencilState {
	if !clip.Stencil {
		return StencilState{ColorWrite: true}
	}
	ref := clip.StencilRef
	switch pass {
	case PassMaskWrite:
		st := StencilState{
			Compare:   StencilEqual,
			Ref:       clip.ParentCompare | ref,
			ReadMask:  ref - 1,
			WriteMask: ref,
			Op:        StencilReplace,
			Reversed:  clip.ReversedMask,
		}
		if ref == 1 {
			st.Compare = StencilAlways
		}
		return st
	case PassMaskErase:
		return StencilState{Compare: StencilAlways, WriteMask: ref, Op: StencilZero, Reversed: clip.ReversedMask}
	default:
		return StencilState{
			Compare:    StencilEqual,
			Ref:        clip.StencilCompare,
			ReadMask:   (ref << 1) - 1,
			Op:         StencilKeep,
			ColorWrite: true,
			Reversed:   clip.ReversedMask,
		}
	}
}
