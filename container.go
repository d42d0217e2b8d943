package fairy

import "slices"

// RenderMode selects how a container's subtree is projected.
type RenderMode uint8

const (
	RenderOverlay           RenderMode = iota // drawn straight onto the screen
	RenderScreenSpaceCamera                   // projected through a camera, screen-sized
	RenderWorldSpace                          // placed in the world and projected by a camera
)

// containerData is the payload carried by container and root nodes.
type containerData struct {
	children     []*Node
	mask         *Node
	clipRect     *Rect
	clipSoftness Margin
	descendants  []*Node
	renderMode   RenderMode
	camera       *Camera
}

func (n *Node) mustContainer() *containerData {
	if n.container == nil {
		contractPanic(ErrNotContainer, "%q is a %s", n.Name, n.kind)
	}
	return n.container
}

// --- Children ---

// NumChildren returns the number of direct children.
func (n *Node) NumChildren() int {
	if n.container == nil {
		return 0
	}
	return len(n.container.children)
}

// Children returns the direct children, back to front. The slice is owned by
// the node and must not be modified.
func (n *Node) Children() []*Node {
	if n.container == nil {
		return nil
	}
	return n.container.children
}

// AddChild appends child in front of every existing child.
func (n *Node) AddChild(child *Node) *Node {
	return n.AddChildAt(child, n.NumChildren())
}

// AddChildAt inserts child at index (0 is farthest back). A child already
// owned by n is moved instead. A child owned elsewhere is removed from its
// old parent first.
func (n *Node) AddChildAt(child *Node, index int) *Node {
	c := n.mustContainer()
	if child == nil {
		contractPanic(ErrNilChild, "AddChildAt on %q", n.Name)
	}
	if index < 0 || index > len(c.children) {
		contractPanic(ErrIndexOutOfRange, "index %d, count %d", index, len(c.children))
	}
	if child == n || child.IsAncestorOf(n) {
		contractPanic(ErrCycle, "%q cannot contain %q", n.Name, child.Name)
	}
	if child.parent == n {
		if index == len(c.children) {
			index--
		}
		n.SetChildIndex(child, index)
		return child
	}
	if child.parent != nil {
		child.parent.RemoveChild(child)
	}
	c.children = slices.Insert(c.children, index, child)
	child.parent = n
	if n.stage != nil && child.stage == nil {
		child.broadcastAdded(n.stage)
	}
	if n.stage != nil && n.stage.debug {
		debugCheckTreeDepth(child)
		debugCheckChildCount(n)
	}
	n.invalidateContainerBatching(true)
	return child
}

// RemoveChild detaches child. It panics with ErrNotChild if child is not a
// direct child of n.
func (n *Node) RemoveChild(child *Node) *Node {
	idx := n.GetChildIndex(child)
	if idx < 0 {
		name := "<nil>"
		if child != nil {
			name = child.Name
		}
		contractPanic(ErrNotChild, "%q is not a child of %q", name, n.Name)
	}
	return n.RemoveChildAt(idx, false)
}

// RemoveChildAt detaches the child at index, disposing it when dispose is
// true. Stage removal and focus release happen before the child is unlinked.
func (n *Node) RemoveChildAt(index int, dispose bool) *Node {
	c := n.mustContainer()
	if index < 0 || index >= len(c.children) {
		contractPanic(ErrIndexOutOfRange, "index %d, count %d", index, len(c.children))
	}
	child := c.children[index]
	if s := n.stage; s != nil && !child.IsDisposed() {
		child.broadcastRemoved()
		s.onNodeRemoved(child)
		// Callbacks may have restructured the list.
		if index >= len(c.children) || c.children[index] != child {
			index = slices.Index(c.children, child)
			if index < 0 {
				if dispose {
					child.dispose()
				}
				return child
			}
		}
	}
	c.children = slices.Delete(c.children, index, index+1)
	child.parent = nil
	if c.mask == child {
		c.mask = nil
		n.updateBatchingFlags()
	}
	n.invalidateContainerBatching(true)
	if dispose {
		child.dispose()
	}
	return child
}

// RemoveChildren detaches every child, front to back.
func (n *Node) RemoveChildren(dispose bool) {
	for i := n.NumChildren() - 1; i >= 0; i-- {
		if i < n.NumChildren() {
			n.RemoveChildAt(i, dispose)
		}
	}
}

// ChildAt returns the child at index.
func (n *Node) ChildAt(index int) *Node {
	c := n.mustContainer()
	if index < 0 || index >= len(c.children) {
		contractPanic(ErrIndexOutOfRange, "index %d, count %d", index, len(c.children))
	}
	return c.children[index]
}

// GetChild returns the first direct child with the given name, or nil.
func (n *Node) GetChild(name string) *Node {
	for _, child := range n.Children() {
		if child.Name == name {
			return child
		}
	}
	return nil
}

// GetChildIndex returns the index of child, or -1.
func (n *Node) GetChildIndex(child *Node) int {
	if n.container == nil || child == nil {
		return -1
	}
	return slices.Index(n.container.children, child)
}

// Contains reports whether other is n or one of its descendants.
func (n *Node) Contains(other *Node) bool {
	return other == n || n.IsAncestorOf(other)
}

// SetChildIndex moves child to index. Indices past the end append.
func (n *Node) SetChildIndex(child *Node, index int) {
	c := n.mustContainer()
	old := n.GetChildIndex(child)
	if old < 0 {
		contractPanic(ErrNotChild, "SetChildIndex on %q", n.Name)
	}
	if index < 0 {
		contractPanic(ErrIndexOutOfRange, "index %d", index)
	}
	if old == index {
		return
	}
	c.children = slices.Delete(c.children, old, old+1)
	if index >= len(c.children) {
		c.children = append(c.children, child)
	} else {
		c.children = slices.Insert(c.children, index, child)
	}
	n.invalidateContainerBatching(true)
}

// SwapChildren exchanges the positions of two children.
func (n *Node) SwapChildren(a, b *Node) {
	i, j := n.GetChildIndex(a), n.GetChildIndex(b)
	if i < 0 || j < 0 {
		contractPanic(ErrNotChild, "SwapChildren on %q", n.Name)
	}
	n.SwapChildrenAt(i, j)
}

// SwapChildrenAt exchanges the children at two indices.
func (n *Node) SwapChildrenAt(i, j int) {
	c := n.mustContainer()
	if i < 0 || i >= len(c.children) || j < 0 || j >= len(c.children) {
		contractPanic(ErrIndexOutOfRange, "indices %d, %d, count %d", i, j, len(c.children))
	}
	c.children[i], c.children[j] = c.children[j], c.children[i]
	n.invalidateContainerBatching(true)
}

// ChangeChildrenOrder replaces the child order. order must be a permutation
// of the current children.
func (n *Node) ChangeChildrenOrder(order []*Node) {
	c := n.mustContainer()
	if len(order) != len(c.children) {
		contractPanic(ErrIndexOutOfRange, "order has %d nodes, count %d", len(order), len(c.children))
	}
	for _, child := range order {
		if child == nil || child.parent != n {
			contractPanic(ErrNotChild, "ChangeChildrenOrder on %q", n.Name)
		}
	}
	copy(c.children, order)
	n.invalidateContainerBatching(true)
}

// --- Mask & clip ---

// Mask returns the stencil mask node, or nil.
func (n *Node) Mask() *Node {
	if n.container == nil {
		return nil
	}
	return n.container.mask
}

// ReversedMask reports whether content is drawn outside the mask shape.
func (n *Node) ReversedMask() bool { return n.flags&flagReversedMask != 0 }

// SetMask makes mask, which must be a child of n, clip the rest of the
// subtree. nil removes the mask.
func (n *Node) SetMask(mask *Node, reversed bool) {
	c := n.mustContainer()
	if mask != nil && mask.parent != n {
		contractPanic(ErrNotChild, "mask %q must be a child of %q", mask.Name, n.Name)
	}
	if c.mask == mask && n.ReversedMask() == reversed {
		return
	}
	c.mask = mask
	n.setFlag(flagReversedMask, reversed)
	n.updateBatchingFlags()
	n.invalidateContainerBatching(true)
}

// ClipRect returns the local clip rectangle, if any.
func (n *Node) ClipRect() (Rect, bool) {
	if n.container == nil || n.container.clipRect == nil {
		return Rect{}, false
	}
	return *n.container.clipRect, true
}

// SetClipRect clips the subtree to r in local coordinates.
func (n *Node) SetClipRect(r Rect) {
	c := n.mustContainer()
	c.clipRect = &r
	n.outlineChanged()
	n.updateBatchingFlags()
}

// ClearClipRect removes the rectangular clip.
func (n *Node) ClearClipRect() {
	c := n.mustContainer()
	if c.clipRect == nil {
		return
	}
	c.clipRect = nil
	n.outlineChanged()
	n.updateBatchingFlags()
}

// ClipSoftness returns the per-edge fade width in screen pixels.
func (n *Node) ClipSoftness() Margin {
	if n.container == nil {
		return Margin{}
	}
	return n.container.clipSoftness
}

// SetClipSoftness sets the per-edge fade width of the clip rect, in screen
// pixels. Zero edges are hard.
func (n *Node) SetClipSoftness(m Margin) {
	n.mustContainer().clipSoftness = m
}

// Opaque reports whether the container's own rect catches pointer hits.
func (n *Node) Opaque() bool { return n.flags&flagOpaque != 0 }

// SetOpaque makes empty areas of the container hit-testable.
func (n *Node) SetOpaque(v bool) { n.setFlag(flagOpaque, v) }

// TouchChildren reports whether hit-testing descends into children.
func (n *Node) TouchChildren() bool { return n.flags&flagTouchChildren != 0 }

// SetTouchChildren enables or disables hit-testing of children.
func (n *Node) SetTouchChildren(v bool) { n.setFlag(flagTouchChildren, v) }

// SetTabStopChildren makes the container a focus group: tab navigation
// cycles within it.
func (n *Node) SetTabStopChildren(v bool) { n.setFlag(flagTabStopChildren, v) }

// TabStopChildren reports whether the container is a focus group.
func (n *Node) TabStopChildren() bool { return n.flags&flagTabStopChildren != 0 }

// SetRenderMode selects how the subtree is projected. Camera modes require
// a camera; nil falls back to the stage camera.
func (n *Node) SetRenderMode(mode RenderMode, cam *Camera) {
	c := n.mustContainer()
	c.renderMode = mode
	c.camera = cam
	n.outlineChanged()
}

// RenderMode returns the container's projection mode.
func (n *Node) RenderMode() RenderMode {
	if n.container == nil {
		return RenderOverlay
	}
	return n.container.renderMode
}

// --- Batching state ---

// SetFairyBatching opts the container into automatic draw-order batching.
func (n *Node) SetFairyBatching(v bool) {
	n.mustContainer()
	if (n.flags&flagFairyBatching != 0) == v {
		return
	}
	n.setFlag(flagFairyBatching, v)
	n.updateBatchingFlags()
}

// FairyBatching reports whether batching was requested explicitly.
func (n *Node) FairyBatching() bool { return n.flags&flagFairyBatching != 0 }

// IsBatchingRoot reports whether the container owns its own batching pass.
func (n *Node) IsBatchingRoot() bool { return n.flags&flagBatchingRoot != 0 }

// updateBatchingFlags recomputes batching-root status from the opt-in flag,
// clip, mask and painting mode.
func (n *Node) updateBatchingFlags() {
	c := n.container
	if c == nil {
		return
	}
	was := n.flags&flagBatchingRoot != 0
	is := n.flags&flagFairyBatching != 0 || c.clipRect != nil || c.mask != nil ||
		(n.painting != nil && n.painting.mode != 0)
	if was == is {
		return
	}
	n.setFlag(flagBatchingRoot, is)
	if is {
		n.flags |= flagBatchingRequested
	} else {
		c.descendants = c.descendants[:0]
	}
	n.invalidateBatchingState()
}

// outlineChanged marks the cached batching bounds stale. Overlaps may have
// changed, so the enclosing batching root reorders again.
func (n *Node) outlineChanged() {
	n.flags |= flagOutlineChanged
	n.invalidateBatchingState()
}

// invalidateBatchingState flags the nearest batching root that contains n.
func (n *Node) invalidateBatchingState() {
	if n.parent != nil {
		n.parent.invalidateContainerBatching(true)
	}
}

// invalidateContainerBatching flags n itself when its own children changed
// and it is a batching root, otherwise the nearest batching root above it.
func (n *Node) invalidateContainerBatching(childrenChanged bool) {
	if childrenChanged && n.flags&flagBatchingRoot != 0 {
		n.flags |= flagBatchingRequested
		return
	}
	for p := n.parent; p != nil; p = p.parent {
		if p.flags&flagBatchingRoot != 0 {
			p.flags |= flagBatchingRequested
			return
		}
	}
}

// --- Update traversal ---

func (n *Node) update(ctx *FrameContext) {
	if n.flags&flagHostDestroyed != 0 {
		n.warnStale("host object destroyed")
		return
	}
	n.validatePixelPerfect(ctx.frameID)
	switch n.kind {
	case KindContainer, KindRoot:
		n.updateContainer(ctx)
	case KindWrapper:
		n.updateWrapper(ctx)
	default:
		n.updateLeaf(ctx)
	}
}

func (n *Node) updateLeaf(ctx *FrameContext) {
	painting := n.beginPainting(ctx)
	if painting == paintSkipChildren {
		n.endPainting(ctx, painting)
		return
	}
	alpha, grayed := ctx.alpha*n.alpha, ctx.grayed || n.grayed
	if painting == paintActive {
		// alpha and grayed apply once, to the captured quad
		alpha, grayed = 1, false
	}
	if n.surface != nil {
		n.surface.update(ctx, alpha, grayed)
	}
	n.endPainting(ctx, painting)
}

func (n *Node) updateContainer(ctx *FrameContext) {
	c := n.container
	painting := n.beginPainting(ctx)
	if painting == paintSkipChildren {
		n.endPainting(ctx, painting)
		return
	}

	cameraPushed := false
	if c.renderMode != RenderOverlay {
		ctx.pushCamera(n.cameraFor())
		cameraPushed = true
	}

	ownAlpha, ownGrayed := n.alpha, n.grayed
	if painting == paintActive {
		ownAlpha, ownGrayed = 1, false
	}
	if n.surface != nil {
		n.surface.update(ctx, ctx.alpha*ownAlpha, ctx.grayed || ownGrayed)
	}

	clipped := false
	if c.mask != nil && c.mask.visible && c.mask.parent == n {
		ctx.EnterStencilClip(n.ID, n.ReversedMask())
		if s := c.mask.surface; s != nil {
			s.preUpdateMask()
		}
		clipped = true
	} else if c.clipRect != nil {
		ctx.EnterRectClip(n.ID, ctx.targetRect(n, *c.clipRect), c.clipSoftness)
		clipped = true
	}

	savedAlpha, savedGrayed := ctx.alpha, ctx.grayed
	ctx.alpha *= ownAlpha
	ctx.grayed = ctx.grayed || ownGrayed

	root := n.flags&flagBatchingRoot != 0
	if root {
		if n.flags&flagBatchingRequested != 0 {
			n.doFairyBatching()
		}
		ctx.batchingDepth++
	}
	if ctx.batchingDepth > 0 {
		for _, child := range slices.Clone(c.children) {
			if child.parent != n {
				continue
			}
			if child.flags&flagHostDestroyed != 0 {
				child.warnStale("host object destroyed")
				continue
			}
			if child.visible {
				child.update(ctx)
			}
		}
	} else {
		if c.mask != nil {
			c.mask.renderingOrder = ctx.nextOrder()
		}
		for _, child := range slices.Clone(c.children) {
			if child.parent != n {
				continue
			}
			if child.flags&flagHostDestroyed != 0 {
				child.warnStale("host object destroyed")
				continue
			}
			if !child.visible {
				continue
			}
			if child != c.mask {
				child.renderingOrder = ctx.nextOrder()
			}
			child.update(ctx)
		}
		if c.mask != nil && c.mask.surface != nil {
			c.mask.surface.eraserOrder = ctx.nextOrder()
		}
	}
	if root {
		if ctx.batchingDepth == 1 {
			n.setRenderingOrder(ctx)
		}
		ctx.batchingDepth--
	}

	ctx.alpha, ctx.grayed = savedAlpha, savedGrayed
	if clipped {
		ctx.LeaveClipping()
	}
	if cameraPushed {
		ctx.popCamera()
	}
	n.endPainting(ctx, painting)
}

// cameraFor resolves the camera projecting this container.
func (n *Node) cameraFor() *Camera {
	if c := n.container; c != nil && c.camera != nil {
		return c.camera
	}
	if n.stage != nil {
		return n.stage.camera
	}
	return nil
}
