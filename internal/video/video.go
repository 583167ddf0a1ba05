// Package video implements the windowing and presentation layer: an
// ebiten.Game that blits rendered frames to a scaled window and
// translates keyboard state into joypad button state.
package video

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"

	"nescore/internal/joypad"
	"nescore/internal/render"
)

// keymap is the single default keyboard layout for player 1. This core
// only ever drives one physical controller, so there is no persisted
// or configurable binding table.
var keymap = map[ebiten.Key]joypad.Button{
	ebiten.KeyArrowUp:    joypad.Up,
	ebiten.KeyArrowDown:  joypad.Down,
	ebiten.KeyArrowLeft:  joypad.Left,
	ebiten.KeyArrowRight: joypad.Right,
	ebiten.KeyZ:          joypad.A,
	ebiten.KeyX:          joypad.B,
	ebiten.KeyEnter:      joypad.Start,
	ebiten.KeyShift:      joypad.Select,
}

// FrameSource supplies the next frame to draw and drains host input
// into the emulated controller each tick. Step runs however many CPU
// cycles are needed to reach the next frame boundary.
type FrameSource interface {
	Step()
	CurrentFrame() *render.Frame
	Joypad1() *joypad.Joypad
}

// Game implements ebiten.Game for the emulator core.
type Game struct {
	source FrameSource
	scale  int

	screen *ebiten.Image
	pixels []byte
}

// NewGame returns a Game that renders at the given integer scale.
func NewGame(source FrameSource, scale int) *Game {
	if scale < 1 {
		scale = 1
	}
	return &Game{
		source: source,
		scale:  scale,
		screen: ebiten.NewImage(render.Width, render.Height),
		pixels: make([]byte, render.Width*render.Height*4),
	}
}

// Update implements ebiten.Game.Update.
func (g *Game) Update() error {
	g.applyInput()
	g.source.Step()
	return nil
}

// applyInput mirrors keyboard state into the emulated controller every
// tick; it does not edge-detect, since the joypad only cares about the
// current physical state at the moment it's strobed.
func (g *Game) applyInput() {
	pad := g.source.Joypad1()
	for key, button := range keymap {
		pad.SetButton(button, ebiten.IsKeyPressed(key))
	}
}

// Draw implements ebiten.Game.Draw.
func (g *Game) Draw(screen *ebiten.Image) {
	frame := g.source.CurrentFrame()
	if frame == nil {
		screen.Fill(color.Black)
		return
	}

	for i := 0; i < render.Width*render.Height; i++ {
		g.pixels[i*4+0] = frame.Pix[i*3+0]
		g.pixels[i*4+1] = frame.Pix[i*3+1]
		g.pixels[i*4+2] = frame.Pix[i*3+2]
		g.pixels[i*4+3] = 0xff
	}
	g.screen.WritePixels(g.pixels)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(g.scale), float64(g.scale))
	screen.DrawImage(g.screen, op)
}

// Layout implements ebiten.Game.Layout, fixing the window to an exact
// integer multiple of the NES picture.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return render.Width * g.scale, render.Height * g.scale
}

// WindowTitle is the title ebiten.RunGame's caller should set before
// starting the loop.
func WindowTitle(romName string) string {
	return fmt.Sprintf("nescore - %s", romName)
}
