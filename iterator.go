package fairy

import "iter"

type descendantCursor struct {
	node  *Node
	index int
}

// DescendantIterator walks a container's subtree depth-first using an
// explicit stack, so arbitrarily deep trees never recurse. Forward order is
// pre-order; backward order is its exact mirror.
type DescendantIterator struct {
	root     *Node
	backward bool
	stack    []descendantCursor
	current  *Node
}

// Descendants returns an iterator over every node below n.
func (n *Node) Descendants(backward bool) *DescendantIterator {
	it := &DescendantIterator{root: n, backward: backward}
	it.Reset()
	return it
}

// Reset rewinds the iterator to the start.
func (it *DescendantIterator) Reset() {
	it.current = nil
	it.stack = it.stack[:0]
	if it.root == nil || it.root.container == nil {
		return
	}
	start := 0
	if it.backward {
		start = len(it.root.container.children)
	}
	it.stack = append(it.stack, descendantCursor{it.root, start})
}

// Node returns the node the iterator is positioned on.
func (it *DescendantIterator) Node() *Node { return it.current }

// Next advances to the next node and reports whether one exists.
func (it *DescendantIterator) Next() bool {
	if it.backward {
		return it.prev()
	}
	for len(it.stack) > 0 {
		top := &it.stack[len(it.stack)-1]
		children := top.node.Children()
		if top.index >= len(children) {
			it.stack = it.stack[:len(it.stack)-1]
			continue
		}
		child := children[top.index]
		top.index++
		if child.NumChildren() > 0 {
			it.stack = append(it.stack, descendantCursor{child, 0})
		}
		it.current = child
		return true
	}
	it.current = nil
	return false
}

// prev yields children last to first, each after its own subtree.
func (it *DescendantIterator) prev() bool {
	for len(it.stack) > 0 {
		top := &it.stack[len(it.stack)-1]
		children := top.node.Children()
		if top.index > len(children) {
			top.index = len(children)
		}
		if top.index > 0 {
			top.index--
			child := children[top.index]
			if child.NumChildren() > 0 {
				it.stack = append(it.stack, descendantCursor{child, child.NumChildren()})
				continue
			}
			it.current = child
			return true
		}
		done := top.node
		it.stack = it.stack[:len(it.stack)-1]
		if done != it.root {
			it.current = done
			return true
		}
	}
	it.current = nil
	return false
}

// All returns the remaining sequence as an iter.Seq.
func (it *DescendantIterator) All() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for it.Next() {
			if !yield(it.current) {
				return
			}
		}
	}
}
