package fairy

// nodeIDCounter is a plain counter; the scene graph is single-threaded.
var nodeIDCounter uint32

func nextNodeID() uint32 {
	nodeIDCounter++
	if nodeIDCounter == 0 {
		nodeIDCounter = 1
	}
	return nodeIDCounter
}

type nodeFlags uint32

const (
	flagDisposed nodeFlags = 1 << iota
	flagPixelPerfect
	flagOutlineChanged
	flagBatchingRoot
	flagBatchingRequested
	flagFairyBatching
	flagSkipBatching
	flagTabStop
	flagTabStopChildren
	flagHostDestroyed
	flagDisposedWarned
	flagOpaque
	flagTouchChildren
	flagReversedMask
	flagFocusable
)

// Node is one transformable, clippable, maskable element of the scene graph.
// A single struct serves every variant; container, surface and wrapper state
// live in optional payloads selected by Kind.
type Node struct {
	// Identity
	ID   uint32
	Name string

	// Owner is an opaque back-reference to the higher-level UI object built
	// on top of this node. Never dereferenced by the scene graph.
	Owner    any
	UserData any
	EntityID uint32

	kind   NodeKind
	parent *Node
	home   *Node
	stage  *Stage // non-nil while attached under the stage root

	// Local transform. pos is the native origin position and already includes
	// the pending pixel-perfect adjustment.
	pos          Vec3
	rotation     Vec3 // radians, per axis
	scale        Vec2
	skew         Vec2
	pivot        Vec2
	pivotOffset  Vec3
	perspective  bool
	focalLength  float64
	contentRect  Rect
	pixelAdjust  Vec3
	pixelCheckAt uint64
	pixelPending bool
	lastFrame    uint64
	localMatrix  Mat4
	localDirty   bool
	warp         *vertexWarp

	alpha          float64
	grayed         bool
	visible        bool
	touchable      bool
	blendMode      BlendMode
	renderingOrder int
	flags          nodeFlags

	surface   *Surface
	painting  *paintingInfo
	filter    Filter
	hitArea   HitArea
	container *containerData
	wrapped   Wrapped
	ticker    Ticker

	// Cached bounds in the owning batching root's space: xMin, yMin, xMax, yMax.
	batchBounds [4]float64

	// Per-node callbacks (nil by default; zero cost when unused).
	OnAddedToStage     func()
	OnRemovedFromStage func()
	OnFocusIn          func()
	OnFocusOut         func()
	OnRollOver         func(PointerContext)
	OnRollOut          func(PointerContext)
	OnTouchBegin       func(PointerContext)
	OnTouchEnd         func(PointerContext)
	OnClick            func(PointerContext)
}

// PointerContext carries pointer event data delivered to node callbacks.
type PointerContext struct {
	Node      *Node
	Target    *Node
	ScreenX   float64
	ScreenY   float64
	LocalX    float64
	LocalY    float64
	Button    MouseButton
	PointerID int
	Modifiers KeyModifiers
}

// nodeDefaults sets the common default field values shared by all constructors.
func nodeDefaults(n *Node, kind NodeKind) {
	n.ID = nextNodeID()
	n.kind = kind
	n.scale = Vec2{1, 1}
	n.alpha = 1
	n.visible = true
	n.touchable = true
	n.localDirty = true
	n.focalLength = 2000
	n.flags |= flagOutlineChanged
}

// NewContainer creates a container node with no visual representation.
func NewContainer(name string) *Node {
	n := &Node{Name: name}
	nodeDefaults(n, KindContainer)
	n.container = &containerData{}
	n.flags |= flagTouchChildren
	return n
}

// NewLeaf creates a drawable leaf with an empty Surface. Geometry is supplied
// through Surface().SetMeshFactory or one of the typed constructors in image.go.
func NewLeaf(name string) *Node {
	n := &Node{Name: name}
	nodeDefaults(n, KindLeaf)
	n.surface = newSurface(n)
	return n
}

// Kind returns the node variant.
func (n *Node) Kind() NodeKind { return n.kind }

// IsContainer reports whether the node can hold children.
func (n *Node) IsContainer() bool { return n.container != nil }

// Parent returns the owning container, or nil when detached.
func (n *Node) Parent() *Node { return n.parent }

// Stage returns the stage this node is attached to, or nil.
func (n *Node) Stage() *Stage { return n.stage }

// OnStage reports whether the ancestor chain currently reaches the stage root.
func (n *Node) OnStage() bool { return n.stage != nil }

// SetHome sets the fallback anchor used for world-space math while the node
// has no parent.
func (n *Node) SetHome(home *Node) { n.home = home }

// Home returns the fallback anchor.
func (n *Node) Home() *Node { return n.home }

// Surface returns the drawable surface, or nil for nodes without geometry.
func (n *Node) Surface() *Surface { return n.surface }

// --- Visibility & interaction ---

// Visible reports whether the node is rendered and hit-testable.
func (n *Node) Visible() bool { return n.visible }

// SetVisible shows or hides the node. Hiding invalidates the enclosing
// batching root's descendant list.
func (n *Node) SetVisible(v bool) {
	if n.visible == v {
		return
	}
	n.visible = v
	n.invalidateBatchingState()
}

// Touchable reports whether the node takes part in hit-testing.
func (n *Node) Touchable() bool { return n.touchable }

// SetTouchable enables or disables hit-testing for this node.
func (n *Node) SetTouchable(v bool) { n.touchable = v }

// Alpha returns the node's own alpha.
func (n *Node) Alpha() float64 { return n.alpha }

// SetAlpha sets the node's alpha, multiplied down the tree during update.
func (n *Node) SetAlpha(a float64) { n.alpha = a }

// Grayed reports whether the node renders desaturated.
func (n *Node) Grayed() bool { return n.grayed }

// SetGrayed toggles desaturated rendering for the node and its subtree.
func (n *Node) SetGrayed(v bool) { n.grayed = v }

// BlendMode returns the node's blend mode.
func (n *Node) BlendMode() BlendMode { return n.blendMode }

// SetBlendMode sets the blend mode used by the node's surface.
func (n *Node) SetBlendMode(b BlendMode) {
	if n.blendMode == b {
		return
	}
	n.blendMode = b
	if n.surface != nil {
		n.surface.blendMode = b
	}
	if n.painting != nil {
		n.painting.surface.blendMode = b
	}
}

// RenderingOrder returns the order assigned during the last frame.
func (n *Node) RenderingOrder() int { return n.renderingOrder }

// SetPixelPerfect enables deferred snapping of the position to whole pixels.
func (n *Node) SetPixelPerfect(v bool) { n.setFlag(flagPixelPerfect, v) }

// PixelPerfect reports whether pixel snapping is enabled.
func (n *Node) PixelPerfect() bool { return n.flags&flagPixelPerfect != 0 }

// SetTabStop marks the node as a keyboard focus stop.
func (n *Node) SetTabStop(v bool) {
	n.setFlag(flagTabStop, v)
	if v {
		n.flags |= flagFocusable
	}
}

// TabStop reports whether the node is a keyboard focus stop.
func (n *Node) TabStop() bool { return n.flags&flagTabStop != 0 }

// SetFocusable marks the node as able to receive focus.
func (n *Node) SetFocusable(v bool) { n.setFlag(flagFocusable, v) }

// Focusable reports whether the node can receive focus.
func (n *Node) Focusable() bool { return n.flags&flagFocusable != 0 }

// SetHitArea replaces the content-rect hit test with a custom shape.
func (n *Node) SetHitArea(h HitArea) { n.hitArea = h }

// HitArea returns the custom hit shape, or nil.
func (n *Node) HitArea() HitArea { return n.hitArea }

func (n *Node) setFlag(f nodeFlags, v bool) {
	if v {
		n.flags |= f
	} else {
		n.flags &^= f
	}
}

// --- Stale host resources ---

// MarkHostDestroyed records that the host object backing this node was
// destroyed outside the scene graph. The node is skipped from then on and a
// warning is logged once.
func (n *Node) MarkHostDestroyed() {
	n.flags |= flagHostDestroyed
}

// HostDestroyed reports whether MarkHostDestroyed was called.
func (n *Node) HostDestroyed() bool {
	return n.flags&flagHostDestroyed != 0
}

// warnStale logs a stale-resource warning once per node.
func (n *Node) warnStale(reason string) {
	if n.flags&flagDisposedWarned != 0 {
		return
	}
	n.flags |= flagDisposedWarned
	pkgLogger.Warn("fairy: skipping node with stale resource",
		"node", n.Name, "id", n.ID, "reason", reason)
}

// --- Disposal ---

// Dispose removes this node from its parent, marks it as disposed, and
// recursively disposes all descendants. Calling it again is a no-op.
func (n *Node) Dispose() {
	if n.flags&flagDisposed != 0 {
		return
	}
	if n.parent != nil {
		n.parent.RemoveChild(n)
	}
	n.dispose()
}

func (n *Node) dispose() {
	n.flags |= flagDisposed
	if c := n.container; c != nil {
		for _, child := range c.children {
			child.parent = nil
			child.dispose()
		}
		c.children = nil
		c.descendants = nil
		c.mask = nil
	}
	if n.surface != nil {
		n.surface.Dispose()
	}
	if n.painting != nil {
		n.painting.release()
		n.painting = nil
	}
	n.wrapped = nil
	n.filter = nil
	n.hitArea = nil
	n.parent = nil
	n.stage = nil
	n.home = nil
	n.Owner = nil
	n.UserData = nil
	n.OnAddedToStage = nil
	n.OnRemovedFromStage = nil
	n.OnFocusIn = nil
	n.OnFocusOut = nil
	n.OnRollOver = nil
	n.OnRollOut = nil
	n.OnTouchBegin = nil
	n.OnTouchEnd = nil
	n.OnClick = nil
}

// IsDisposed returns true if this node has been disposed.
func (n *Node) IsDisposed() bool {
	return n.flags&flagDisposed != 0
}

// --- Stage lifecycle ---

// broadcastAdded attaches the subtree to s and notifies every node, parents
// before children.
func (n *Node) broadcastAdded(s *Stage) {
	n.stage = s
	if n.OnAddedToStage != nil {
		n.OnAddedToStage()
	}
	s.emit(StageEvent{Type: EventAddedToStage, Node: n})
	if c := n.container; c != nil {
		// The callback may restructure the tree; walk a snapshot.
		for _, child := range append([]*Node(nil), c.children...) {
			if child.parent == n && child.stage == nil {
				child.broadcastAdded(s)
			}
		}
	}
}

// broadcastRemoved notifies every node in the subtree, then detaches it from
// the stage.
func (n *Node) broadcastRemoved() {
	s := n.stage
	if s == nil {
		return
	}
	if n.OnRemovedFromStage != nil {
		n.OnRemovedFromStage()
	}
	s.emit(StageEvent{Type: EventRemovedFromStage, Node: n})
	if c := n.container; c != nil {
		for _, child := range append([]*Node(nil), c.children...) {
			child.broadcastRemoved()
		}
	}
	n.stage = nil
}

// IsAncestorOf reports whether n is a strict ancestor of other.
func (n *Node) IsAncestorOf(other *Node) bool {
	if other == nil {
		return false
	}
	for p := other.parent; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}
