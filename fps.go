package fairy

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// fpsWidget redraws its canvas with the current FPS and TPS about every half
// second.
type fpsWidget struct {
	canvas  *ebiten.Image
	elapsed float64
}

// NewFPSWidget creates an image node that displays the current FPS and TPS.
// Add it last under the stage root so it draws on top.
func NewFPSWidget() *Image {
	// 100x32 is enough for "FPS: 60.0\nTPS: 60.0"
	w := &fpsWidget{canvas: ebiten.NewImage(100, 32), elapsed: 0.5}
	img := NewImage("fps_widget", NewTexture(NewEbitenImage(w.canvas)))
	img.ticker = w
	img.SetTouchable(false)
	return img
}

func (w *fpsWidget) Advance(dt float64) bool {
	w.elapsed += dt
	if w.elapsed < 0.5 {
		return true
	}
	w.elapsed = 0

	w.canvas.Fill(color.RGBA{0, 0, 0, 128})
	ebitenutil.DebugPrint(w.canvas, fmt.Sprintf("FPS: %.1f\nTPS: %.1f", ebiten.ActualFPS(), ebiten.ActualTPS()))
	return true
}
