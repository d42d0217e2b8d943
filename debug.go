package fairy

import (
	"time"
)

// frameStats holds per-frame counters. Timings are only measured in debug
// mode.
type frameStats struct {
	items           int
	rebuilds        int
	materialChanges int
	jobs            int
	batches         int
	layers          int
	traverseTime    time.Duration
	submitTime      time.Duration
}

// FrameStats is the public view of the last rendered frame's counters.
type FrameStats struct {
	Items           int // draw items recorded
	MeshRebuilds    int
	MaterialChanges int
	PaintJobs       int
	Batches         int // draw calls, when the renderer reports them
	Layers          int // stencil layers, when the renderer reports them
	TraverseTime    time.Duration
	SubmitTime      time.Duration
}

// LastFrameStats returns the counters of the last RenderFrame.
func (s *Stage) LastFrameStats() FrameStats {
	d := s.lastDraw
	return FrameStats{
		Items:           d.items,
		MeshRebuilds:    d.rebuilds,
		MaterialChanges: d.materialChanges,
		PaintJobs:       d.jobs,
		Batches:         d.batches,
		Layers:          d.layers,
		TraverseTime:    d.traverseTime,
		SubmitTime:      d.submitTime,
	}
}

// debugLog reports a frame's counters through the package logger.
func (s *Stage) debugLog(stats frameStats) {
	if !s.debug {
		return
	}
	pkgLogger.Debug("fairy: frame",
		"frame", s.frame,
		"traverse", stats.traverseTime,
		"submit", stats.submitTime,
		"total", stats.traverseTime+stats.submitTime,
		"items", stats.items,
		"rebuilds", stats.rebuilds,
		"materialChanges", stats.materialChanges,
		"jobs", stats.jobs,
		"batches", stats.batches,
		"layers", stats.layers,
	)
}

// debugMaxTreeDepth is the depth past which debug mode warns.
const debugMaxTreeDepth = 32

func debugCheckTreeDepth(n *Node) {
	depth := 0
	for p := n; p != nil; p = p.parent {
		depth++
	}
	if depth > debugMaxTreeDepth {
		pkgLogger.Warn("fairy: deep tree", "node", n.Name, "depth", depth, "threshold", debugMaxTreeDepth)
	}
}

// debugMaxChildCount is the child count past which debug mode warns.
const debugMaxChildCount = 1000

func debugCheckChildCount(n *Node) {
	if n.container == nil {
		return
	}
	if c := len(n.container.children); c > debugMaxChildCount {
		pkgLogger.Warn("fairy: wide container", "node", n.Name, "children", c, "threshold", debugMaxChildCount)
	}
}
