package fairy

// MaterialFlags is the shader keyword bitmask a material is keyed by.
type MaterialFlags uint32

const (
	FlagClipped MaterialFlags = 1 << iota
	FlagSoftClipped
	FlagStencilTest
	FlagAlphaMask
	FlagGrayed
	FlagColorFilter
)

// firstKeywordBit is the first bit handed out to custom keywords.
const firstKeywordBit = 6

// StencilCompare is the stencil test function.
type StencilCompare uint8

const (
	StencilAlways StencilCompare = iota
	StencilEqual
)

// StencilOp is the stencil write operation.
type StencilOp uint8

const (
	StencilKeep StencilOp = iota
	StencilReplace
	StencilZero
)

// StencilState configures stencil testing for one material.
type StencilState struct {
	Compare    StencilCompare
	Ref        int
	ReadMask   int
	WriteMask  int
	Op         StencilOp
	ColorWrite bool
	Reversed   bool
}

// Material is a pooled render state: shader, texture, keyword flags, blend
// mode, and the clip and stencil uniforms of its batch group.
type Material struct {
	Shader   string
	Texture  *Texture
	Flags    MaterialFlags
	Keywords []string
	Blend    BlendMode
	Group    uint32
	Clip     ClipInfo
	Stencil  StencilState

	id    int
	frame uint64
}

// ID returns a pool-unique identifier.
func (m *Material) ID() int { return m.id }

// Frame returns the last frame the material was handed out.
func (m *Material) Frame() uint64 { return m.frame }

// MaterialPool caches materials for one (texture root, shader) pair. At most
// one entry exists per (flags, blend, group); entries untouched for more
// than one frame are repurposed instead of growing the pool.
type MaterialPool struct {
	texture  *Texture
	shader   string
	keywords map[string]int
	nextBit  int
	buckets  map[MaterialFlags][]*Material
	nextID   int
	firstUse bool
	disposed bool
	warned   bool
}

func newMaterialPool(t *Texture, shader string) *MaterialPool {
	return &MaterialPool{
		texture:  t,
		shader:   shader,
		keywords: make(map[string]int),
		nextBit:  firstKeywordBit,
		buckets:  make(map[MaterialFlags][]*Material),
	}
}

// KeywordFlags maps custom keywords to their bits. A keyword keeps the bit
// it was first given for the pool's lifetime.
func (p *MaterialPool) KeywordFlags(keywords []string) MaterialFlags {
	var f MaterialFlags
	for _, k := range keywords {
		bit, ok := p.keywords[k]
		if !ok {
			if p.nextBit >= 32 {
				pkgLogger.Warn("fairy: too many shader keywords", "keyword", k, "shader", p.shader)
				continue
			}
			bit = p.nextBit
			p.nextBit++
			p.keywords[k] = bit
		}
		f |= 1 << bit
	}
	return f
}

// GetMaterial returns the material for flags, blend and group, stamping it
// with frame. Blend modes that need premultiplied output add
// FlagColorFilter.
func (p *MaterialPool) GetMaterial(flags MaterialFlags, blend BlendMode, group uint32, frame uint64) *Material {
	if blend.needsColorFilter() {
		flags |= FlagColorFilter
	}
	if p.disposed {
		// The texture is gone; hand out a throwaway material.
		if !p.warned {
			pkgLogger.Warn("fairy: material requested from a disposed pool", "shader", p.shader)
			p.warned = true
		}
		p.firstUse = true
		return p.newMaterial(flags, blend, group, frame)
	}
	bucket := p.buckets[flags]
	var stale *Material
	for _, m := range bucket {
		if m.Group == group && m.Blend == blend {
			p.firstUse = m.frame != frame
			m.frame = frame
			return m
		}
		if m.frame+1 < frame && (stale == nil || m.frame < stale.frame) {
			stale = m
		}
	}
	p.firstUse = true
	if stale != nil {
		stale.Group = group
		stale.Blend = blend
		stale.Clip = ClipInfo{}
		stale.Stencil = StencilState{}
		stale.frame = frame
		return stale
	}
	m := p.newMaterial(flags, blend, group, frame)
	p.buckets[flags] = append(bucket, m)
	return m
}

func (p *MaterialPool) newMaterial(flags MaterialFlags, blend BlendMode, group uint32, frame uint64) *Material {
	p.nextID++
	return &Material{
		Shader:   p.shader,
		Texture:  p.texture,
		Flags:    flags,
		Keywords: p.keywordsFor(flags),
		Blend:    blend,
		Group:    group,
		id:       p.nextID,
		frame:    frame,
	}
}

// FirstUseThisFrame reports whether the last GetMaterial call handed the
// material out for the first time this frame.
func (p *MaterialPool) FirstUseThisFrame() bool { return p.firstUse }

// Len returns the number of pooled materials.
func (p *MaterialPool) Len() int {
	n := 0
	for _, b := range p.buckets {
		n += len(b)
	}
	return n
}

// Dispose drops every pooled material. Later requests get unpooled
// materials.
func (p *MaterialPool) Dispose() {
	p.buckets = make(map[MaterialFlags][]*Material)
	p.disposed = true
}

func (p *MaterialPool) keywordsFor(flags MaterialFlags) []string {
	var out []string
	for k, bit := range p.keywords {
		if flags&(1<<bit) != 0 {
			out = append(out, k)
		}
	}
	return out
}
