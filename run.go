package fairy

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
)

// RunConfig configures the window opened by Run.
type RunConfig struct {
	Title      string
	Width      int
	Height     int
	Background color.Color
	ShowFPS    bool

	// TPS overrides ebiten's tick rate when positive.
	TPS int

	// Update runs once per tick before the stage advances. Returning an error
	// stops the game loop.
	Update func() error
}

// stageGame adapts a Stage to ebiten.Game.
type stageGame struct {
	stage *Stage
	cfg   RunConfig
}

func (g *stageGame) Update() error {
	if g.cfg.Update != nil {
		if err := g.cfg.Update(); err != nil {
			return err
		}
	}
	g.stage.Update()
	return nil
}

func (g *stageGame) Draw(screen *ebiten.Image) {
	if g.cfg.Background != nil {
		screen.Fill(g.cfg.Background)
	}
	g.stage.Draw(screen)
}

func (g *stageGame) Layout(_, _ int) (int, int) {
	return g.cfg.Width, g.cfg.Height
}

// Run opens a window and drives the stage until it closes or Update fails.
// A zero size falls back to the stage's design size.
func Run(s *Stage, cfg RunConfig) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = int(s.cfg.DesignWidth), int(s.cfg.DesignHeight)
	}
	if cfg.Title != "" {
		ebiten.SetWindowTitle(cfg.Title)
	}
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	if cfg.TPS > 0 {
		ebiten.SetTPS(cfg.TPS)
	}
	if s.input == nil {
		s.SetInput(&EbitenInput{})
	}
	if cfg.ShowFPS {
		s.Root().AddChild(NewFPSWidget().Node)
	}
	return ebiten.RunGame(&stageGame{stage: s, cfg: cfg})
}
