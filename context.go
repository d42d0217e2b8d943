package fairy

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"golang.org/x/image/math/f64"
)

// ClipBox is a rect clip in shader form: center and reciprocal half extents.
type ClipBox struct {
	CX, CY       float64
	InvHW, InvHH float64
}

// Apply maps a target-space point into clip space, where the visible region
// is [-1, 1] on both axes.
func (b ClipBox) Apply(x, y float64) (float64, float64) {
	return (x - b.CX) * b.InvHW, (y - b.CY) * b.InvHH
}

// ClipInfo is the ambient clip state. A snapshot is pushed on every enter
// and restored on the matching leave.
type ClipInfo struct {
	ID          uint32
	Clipped     bool
	RectClipped bool
	Rect        Rect // target space
	Box         ClipBox
	Soft        bool
	Softness    [4]float64 // left, top, right, bottom falloff factors

	Stencil        bool
	StencilRef     int
	StencilCompare int
	ParentCompare  int
	ReversedMask   bool

	painting bool // marks a painting-mode snapshot
}

// softnessFactor converts a fade width in pixels into the factor the shader
// multiplies the clip-space edge distance by.
func softnessFactor(halfExtent, px float64) float64 {
	if px <= 0 {
		return 10000
	}
	return halfExtent / px
}

// DrawPass distinguishes the passes a surface can contribute.
type DrawPass uint8

const (
	PassNormal    DrawPass = iota // ordinary content
	PassMaskWrite                 // mask geometry writing the stencil
	PassMaskErase                 // mask geometry clearing the stencil bit
)

// DrawItem is one surface submission recorded during the update traversal.
// Vertices and Indices alias the surface's mesh and are valid until the next
// update.
type DrawItem struct {
	Node      *Node
	Pass      DrawPass
	Order     int
	Material  *Material
	Vertices  []ebiten.Vertex
	Indices   []uint32
	Transform f64.Aff3
	Alpha     float64
	Clip      ClipInfo

	// ColorMatrix is a 4x5 row-major color transform, nil for none.
	ColorMatrix *[20]float64
	// Wrapped is set for externally drawn content; the mesh fields are empty.
	Wrapped Wrapped

	surface *Surface
}

// PaintJob is an offscreen capture to be rendered before the screen.
type PaintJob struct {
	Node   *Node
	Target RenderTarget
	Output RenderTarget // filter result, nil without filter
	Filter Filter
	Items  []DrawItem
}

type drawFrame struct {
	job  *PaintJob // nil draws to the screen
	base Mat4
}

// FrameContext carries traversal state through one update. A stage reuses a
// single context every frame.
type FrameContext struct {
	frameID        uint64
	alpha          float64
	grayed         bool
	batchingDepth  int
	renderingOrder int

	clip      ClipInfo
	clipStack []ClipInfo

	frames      []drawFrame
	screenItems []DrawItem
	jobs        []*PaintJob
	sortBuf     []DrawItem

	onBegin, onBeginSpare []func()
	onEnd, onEndSpare     []func()

	whiteTexture *Texture
	renderer     Renderer
	stats        frameStats
}

// NewFrameContext creates a context. The renderer allocates painting
// targets; it may be nil when painting is unused.
func NewFrameContext(r Renderer) *FrameContext {
	return &FrameContext{
		renderer:     r,
		whiteTexture: NewTexture(nil),
		alpha:        1,
	}
}

// FrameID returns the current frame number, starting at 1 after the first
// Begin.
func (ctx *FrameContext) FrameID() uint64 { return ctx.frameID }

// Alpha returns the accumulated alpha.
func (ctx *FrameContext) Alpha() float64 { return ctx.alpha }

// Grayed reports whether an ancestor is grayed.
func (ctx *FrameContext) Grayed() bool { return ctx.grayed }

// Clip returns the active clip state.
func (ctx *FrameContext) Clip() ClipInfo { return ctx.clip }

// BatchingDepth returns the number of enclosing batching roots.
func (ctx *FrameContext) BatchingDepth() int { return ctx.batchingDepth }

// Begin resets the context for a new frame and runs callbacks queued with
// OnBegin.
func (ctx *FrameContext) Begin() {
	ctx.frameID++
	ctx.alpha = 1
	ctx.grayed = false
	ctx.batchingDepth = 0
	ctx.renderingOrder = 0
	ctx.clip = ClipInfo{}
	ctx.clipStack = ctx.clipStack[:0]
	ctx.frames = append(ctx.frames[:0], drawFrame{base: Mat4Identity})
	ctx.screenItems = ctx.screenItems[:0]
	ctx.jobs = ctx.jobs[:0]
	ctx.stats = frameStats{}

	for len(ctx.onBegin) > 0 {
		pending := ctx.onBegin
		ctx.onBegin = ctx.onBeginSpare[:0]
		for _, fn := range pending {
			fn()
		}
		clear(pending)
		ctx.onBeginSpare = pending[:0]
	}
}

// End verifies the clip stack is balanced, runs callbacks queued with OnEnd
// (paint captures) and resolves the final draw order.
func (ctx *FrameContext) End() {
	if len(ctx.clipStack) != 0 {
		contractPanic(ErrUnbalancedClip, "%d clip states still pushed at end of frame", len(ctx.clipStack))
	}
	for len(ctx.onEnd) > 0 {
		pending := ctx.onEnd
		ctx.onEnd = ctx.onEndSpare[:0]
		for _, fn := range pending {
			fn()
		}
		clear(pending)
		ctx.onEndSpare = pending[:0]
	}
	ctx.resolveOrder(ctx.screenItems)
	for _, job := range ctx.jobs {
		ctx.resolveOrder(job.Items)
	}
}

// OnBegin queues fn to run at the start of the next frame.
func (ctx *FrameContext) OnBegin(fn func()) { ctx.onBegin = append(ctx.onBegin, fn) }

// OnEnd queues fn to run when the current frame ends. Callbacks queued while
// the queue drains run in the same End call.
func (ctx *FrameContext) OnEnd(fn func()) { ctx.onEnd = append(ctx.onEnd, fn) }

func (ctx *FrameContext) nextOrder() int {
	o := ctx.renderingOrder
	ctx.renderingOrder++
	return o
}

// --- Clipping ---

// EnterRectClip intersects the active rect clip with rect (target space) and
// makes the result current. softness is in target pixels per edge.
func (ctx *FrameContext) EnterRectClip(id uint32, rect Rect, softness Margin) {
	ctx.clipStack = append(ctx.clipStack, ctx.clip)
	if ctx.clip.RectClipped {
		rect = ctx.clip.Rect.Intersection(rect)
	}
	ctx.clip.ID = id
	ctx.clip.Clipped = true
	ctx.clip.RectClipped = true
	ctx.clip.Rect = rect

	hw, hh := rect.Width/2, rect.Height/2
	box := ClipBox{CX: rect.X + hw, CY: rect.Y + hh, InvHW: 1e6, InvHH: 1e6}
	if hw > 0 {
		box.InvHW = 1 / hw
	}
	if hh > 0 {
		box.InvHH = 1 / hh
	}
	ctx.clip.Box = box

	ctx.clip.Soft = softness != (Margin{})
	if ctx.clip.Soft {
		ctx.clip.Softness = [4]float64{
			softnessFactor(hw, softness.Left),
			softnessFactor(hh, softness.Top),
			softnessFactor(hw, softness.Right),
			softnessFactor(hh, softness.Bottom),
		}
	} else {
		ctx.clip.Softness = [4]float64{}
	}
}

// EnterStencilClip allocates the next stencil reference bit for a mask.
func (ctx *FrameContext) EnterStencilClip(id uint32, reversed bool) {
	ctx.clipStack = append(ctx.clipStack, ctx.clip)
	parentReversed := ctx.clip.Stencil && ctx.clip.ReversedMask
	ref := 1
	if ctx.clip.StencilRef != 0 {
		ref = ctx.clip.StencilRef << 1
	}
	var compare int
	switch {
	case !reversed:
		compare = (ref << 1) - 1
	case parentReversed:
		compare = (ref >> 1) - 1
	default:
		compare = ref - 1
	}
	parentCompare := 0
	if ctx.clip.Stencil {
		parentCompare = ctx.clip.StencilCompare
	}
	ctx.clip.ID = id
	ctx.clip.Clipped = true
	ctx.clip.Stencil = true
	ctx.clip.ParentCompare = parentCompare
	ctx.clip.StencilRef = ref
	ctx.clip.StencilCompare = compare
	ctx.clip.ReversedMask = reversed
}

// LeaveClipping restores the clip state saved by the matching enter.
func (ctx *FrameContext) LeaveClipping() {
	if len(ctx.clipStack) == 0 || ctx.clipStack[len(ctx.clipStack)-1].painting {
		contractPanic(ErrUnbalancedClip, "LeaveClipping without matching enter")
	}
	ctx.popClip()
}

// EnterPaintingMode clears all clipping for an offscreen capture.
func (ctx *FrameContext) EnterPaintingMode() {
	saved := ctx.clip
	saved.painting = true
	ctx.clipStack = append(ctx.clipStack, saved)
	ctx.clip = ClipInfo{}
}

// LeavePaintingMode restores the clip state in effect before the capture.
func (ctx *FrameContext) LeavePaintingMode() {
	if len(ctx.clipStack) == 0 || !ctx.clipStack[len(ctx.clipStack)-1].painting {
		contractPanic(ErrUnbalancedClip, "LeavePaintingMode without matching enter")
	}
	ctx.popClip()
	ctx.clip.painting = false
}

func (ctx *FrameContext) popClip() {
	last := len(ctx.clipStack) - 1
	ctx.clip = ctx.clipStack[last]
	ctx.clipStack = ctx.clipStack[:last]
}

// --- Draw targets ---

func (ctx *FrameContext) top() *drawFrame {
	return &ctx.frames[len(ctx.frames)-1]
}

// pushPainting redirects subsequent draws into job. base maps stage space
// into the job's target.
func (ctx *FrameContext) pushPainting(job *PaintJob, base Mat4) {
	ctx.frames = append(ctx.frames, drawFrame{job: job, base: base})
}

func (ctx *FrameContext) popPainting() {
	ctx.frames = ctx.frames[:len(ctx.frames)-1]
}

// pushCamera applies a camera's view to screen draws. Draws into an
// offscreen target keep that target's frame.
func (ctx *FrameContext) pushCamera(cam *Camera) {
	f := *ctx.top()
	if f.job == nil && cam != nil {
		f.base = cam.viewMat4()
	}
	ctx.frames = append(ctx.frames, f)
}

func (ctx *FrameContext) popCamera() {
	ctx.frames = ctx.frames[:len(ctx.frames)-1]
}

// targetMatrix maps n's local space into the current draw target.
func (ctx *FrameContext) targetMatrix(n *Node) Mat4 {
	return ctx.top().base.Mul(n.WorldMatrix())
}

// targetRect maps a local rectangle of n into the current draw target and
// returns its bounds.
func (ctx *FrameContext) targetRect(n *Node, r Rect) Rect {
	m := ctx.targetMatrix(n)
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range [4]Vec3{{r.X, r.Y, 0}, {r.XMax(), r.Y, 0}, {r.X, r.YMax(), 0}, {r.XMax(), r.YMax(), 0}} {
		p := m.MulPoint(c)
		minX, minY = math.Min(minX, p.X), math.Min(minY, p.Y)
		maxX, maxY = math.Max(maxX, p.X), math.Max(maxY, p.Y)
	}
	return MinMaxRect(minX, minY, maxX, maxY)
}

// record appends a draw item to the current target.
func (ctx *FrameContext) record(item DrawItem) {
	item.Clip = ctx.clip
	ctx.stats.items++
	if job := ctx.top().job; job != nil {
		job.Items = append(job.Items, item)
		return
	}
	ctx.screenItems = append(ctx.screenItems, item)
}

// ScreenItems returns the screen draw list sorted by rendering order. Valid
// after End until the next Begin.
func (ctx *FrameContext) ScreenItems() []DrawItem { return ctx.screenItems }

// PaintJobs returns the offscreen captures of this frame, innermost first.
func (ctx *FrameContext) PaintJobs() []*PaintJob { return ctx.jobs }

func (ctx *FrameContext) resolveOrder(items []DrawItem) {
	for i := range items {
		it := &items[i]
		if it.Pass == PassMaskErase && it.surface != nil {
			it.Order = it.surface.eraserOrder
		} else {
			it.Order = it.Node.renderingOrder
		}
	}
	ctx.sortBuf = sortDrawItems(items, ctx.sortBuf)
}
