package fairy

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// TweenGroup animates up to four values of one node together. Drive it with
// Update, or hand it to Stage.AddTicker. A disposed target stops the group.
type TweenGroup struct {
	tweens [4]*gween.Tween
	values [4]float64
	count  int
	apply  func(v *[4]float64)
	target *Node
	Done   bool
}

func newTweenGroup(node *Node, from, to []float64, duration float32, fn ease.TweenFunc, apply func(v *[4]float64)) *TweenGroup {
	if fn == nil {
		fn = ease.Linear
	}
	g := &TweenGroup{count: len(from), apply: apply, target: node}
	for i := range from {
		g.tweens[i] = gween.New(float32(from[i]), float32(to[i]), duration, fn)
		g.values[i] = from[i]
	}
	return g
}

// Update advances every tween by dt seconds and applies the values.
func (g *TweenGroup) Update(dt float32) {
	if g.Done {
		return
	}
	if g.target != nil && g.target.IsDisposed() {
		g.Done = true
		return
	}
	done := true
	for i := 0; i < g.count; i++ {
		v, finished := g.tweens[i].Update(dt)
		g.values[i] = float64(v)
		done = done && finished
	}
	g.Done = done
	g.apply(&g.values)
}

// Advance implements Ticker.
func (g *TweenGroup) Advance(dt float64) bool {
	g.Update(float32(dt))
	return !g.Done
}

// TweenPosition moves node to (x, y).
func TweenPosition(node *Node, x, y float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	p := node.Position()
	return newTweenGroup(node, []float64{p.X, p.Y}, []float64{x, y}, duration, fn, func(v *[4]float64) {
		node.SetPosition(v[0], v[1])
	})
}

// TweenScale scales node to (sx, sy).
func TweenScale(node *Node, sx, sy float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	s := node.Scale()
	return newTweenGroup(node, []float64{s.X, s.Y}, []float64{sx, sy}, duration, fn, func(v *[4]float64) {
		node.SetScale(v[0], v[1])
	})
}

// TweenRotation rotates node about Z to radians.
func TweenRotation(node *Node, radians float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	return newTweenGroup(node, []float64{node.Rotation()}, []float64{radians}, duration, fn, func(v *[4]float64) {
		node.SetRotation(v[0])
	})
}

// TweenAlpha fades node to alpha.
func TweenAlpha(node *Node, alpha float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	return newTweenGroup(node, []float64{node.Alpha()}, []float64{alpha}, duration, fn, func(v *[4]float64) {
		node.SetAlpha(v[0])
	})
}

// TweenColor blends the surface tint of a drawable node to c. Containers
// without a surface are left untouched.
func TweenColor(node *Node, c Color, duration float32, fn ease.TweenFunc) *TweenGroup {
	from := ColorWhite
	if node.surface != nil {
		from = node.surface.Color()
	}
	return newTweenGroup(node, []float64{from.R, from.G, from.B, from.A}, []float64{c.R, c.G, c.B, c.A}, duration, fn,
		func(v *[4]float64) {
			if node.surface != nil {
				node.surface.SetColor(Color{v[0], v[1], v[2], v[3]})
			}
		})
}
