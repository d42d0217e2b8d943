package fairy

import "golang.org/x/image/math/f64"

// Wrapped is content rendered by code outside the scene graph, such as a
// particle system or a third-party widget. It draws itself directly into
// the current target when its turn in the draw order comes.
type Wrapped interface {
	// Bounds returns the local rectangle the content covers.
	Bounds() Rect
	// Draw renders the content. transform maps local space into dst.
	Draw(dst RenderTarget, transform f64.Aff3, alpha float64, clip ClipInfo)
}

// NewWrapper creates a node hosting w. Wrappers never join a batch: the
// batcher treats them as hard boundaries because their material is unknown.
func NewWrapper(name string, w Wrapped) *Node {
	n := &Node{Name: name}
	nodeDefaults(n, KindWrapper)
	n.flags |= flagSkipBatching
	n.SetWrapTarget(w)
	return n
}

// WrapTarget returns the hosted content.
func (n *Node) WrapTarget() Wrapped { return n.wrapped }

// SetWrapTarget replaces the hosted content and adopts its bounds as the
// node's size.
func (n *Node) SetWrapTarget(w Wrapped) {
	n.wrapped = w
	if w != nil {
		b := w.Bounds()
		n.SetSize(b.Width, b.Height)
	}
	n.invalidateBatchingState()
}

func (n *Node) updateWrapper(ctx *FrameContext) {
	painting := n.beginPainting(ctx)
	if painting == paintSkipChildren {
		n.endPainting(ctx, painting)
		return
	}
	if w := n.wrapped; w != nil {
		alpha := ctx.alpha * n.alpha
		if painting == paintActive {
			alpha = 1
		}
		ctx.record(DrawItem{
			Node:      n,
			Transform: ctx.targetMatrix(n).Aff3(),
			Alpha:     alpha,
			Wrapped:   w,
		})
	}
	n.endPainting(ctx, painting)
}
