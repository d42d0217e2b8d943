package fairy

// doFairyBatching flattens the subtree into the descendant list and moves
// each element back next to the nearest element sharing its material,
// without crossing an overlapping or skip-batching element.
func (n *Node) doFairyBatching() {
	c := n.container
	n.flags &^= flagBatchingRequested
	c.descendants = c.descendants[:0]
	n.collectChildren(n, false)

	list := c.descendants
	for i := range list {
		cur := list[i]
		mat := cur.batchMaterial()
		if mat == nil || cur.flags&flagSkipBatching != 0 {
			continue
		}
		b := cur.batchBounds
		k, m := -1, i
		var last *Material
		for j := i - 1; j >= 0; j-- {
			test := list[j]
			if test.flags&flagSkipBatching != 0 {
				break
			}
			if tm := test.batchMaterial(); tm != nil {
				if tm != last {
					last = tm
					m = j + 1
				}
				if tm == mat {
					k = m
				}
			}
			if boundsOverlap(b, test.batchBounds) {
				break
			}
		}
		if k != -1 && k != i {
			copy(list[k+1:i+1], list[k:i])
			list[k] = cur
		}
	}
}

// collectChildren appends the visible drawables below n to the initiator's
// descendant list. Nested batching roots are added as single elements and
// batch themselves.
func (n *Node) collectChildren(initiator *Node, outlineChanged bool) {
	ic := initiator.container
	for _, child := range n.container.children {
		if !child.visible || child.flags&flagHostDestroyed != 0 {
			continue
		}
		changed := outlineChanged || child.flags&flagOutlineChanged != 0
		switch {
		case child.container != nil && child.flags&flagBatchingRoot != 0:
			if changed {
				child.cacheBatchBounds(initiator)
			}
			ic.descendants = append(ic.descendants, child)
			if child.flags&flagBatchingRequested != 0 {
				child.doFairyBatching()
			}
		case child.container != nil:
			if child.surface != nil {
				if changed {
					child.cacheBatchBounds(initiator)
				}
				ic.descendants = append(ic.descendants, child)
			}
			child.collectChildren(initiator, changed)
		case child != ic.mask:
			if changed {
				child.cacheBatchBounds(initiator)
			}
			ic.descendants = append(ic.descendants, child)
		}
		child.flags &^= flagOutlineChanged
	}
}

func (n *Node) cacheBatchBounds(space *Node) {
	r := n.Bounds(space)
	n.batchBounds = [4]float64{r.X, r.Y, r.XMax(), r.YMax()}
}

func (n *Node) batchMaterial() *Material {
	if p := n.painting; p != nil && p.mode != 0 {
		return p.surface.material
	}
	if n.surface == nil || n.container != nil && n.flags&flagBatchingRoot != 0 {
		return nil
	}
	return n.surface.material
}

// boundsOverlap tests two xMin, yMin, xMax, yMax boxes. Touching edges count.
func boundsOverlap(a, b [4]float64) bool {
	return max(a[0], b[0]) <= min(a[2], b[2]) &&
		max(a[1], b[1]) <= min(a[3], b[3])
}

// setRenderingOrder numbers the reordered descendant list: mask writer
// first, then content, then the stencil eraser.
func (n *Node) setRenderingOrder(ctx *FrameContext) {
	c := n.container
	if n.flags&flagBatchingRequested != 0 {
		n.doFairyBatching()
	}
	if c.mask != nil {
		c.mask.renderingOrder = ctx.nextOrder()
	}
	for _, child := range c.descendants {
		if child != c.mask {
			child.renderingOrder = ctx.nextOrder()
		}
		if child.flags&flagBatchingRoot != 0 {
			child.setRenderingOrder(ctx)
		}
	}
	if c.mask != nil && c.mask.surface != nil {
		c.mask.surface.eraserOrder = ctx.nextOrder()
	}
}

// BatchedDescendants returns a batching root's flattened drawables in their
// current draw order. Valid after the root has been updated at least once.
func (n *Node) BatchedDescendants() []*Node {
	if n.container == nil {
		return nil
	}
	return n.container.descendants
}
