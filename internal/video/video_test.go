package video

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"nescore/internal/joypad"
	"nescore/internal/render"
)

type fakeSource struct {
	steps int
	frame *render.Frame
	pad   *joypad.Joypad
}

func (f *fakeSource) Step()                      { f.steps++ }
func (f *fakeSource) CurrentFrame() *render.Frame { return f.frame }
func (f *fakeSource) Joypad1() *joypad.Joypad     { return f.pad }

func TestUpdateStepsTheSource(t *testing.T) {
	src := &fakeSource{pad: joypad.New()}
	g := NewGame(src, 2)
	assert.NoError(t, g.Update())
	assert.Equal(t, 1, src.steps)
}

func TestDrawWithNilFrameDoesNotPanic(t *testing.T) {
	src := &fakeSource{pad: joypad.New()}
	g := NewGame(src, 3)
	assert.NotPanics(t, func() { g.Draw(g.screen) })
}

func TestLayoutScalesToIntegerMultipleOfFrameSize(t *testing.T) {
	src := &fakeSource{pad: joypad.New()}
	g := NewGame(src, 4)
	w, h := g.Layout(999, 999)
	assert.Equal(t, render.Width*4, w)
	assert.Equal(t, render.Height*4, h)
}

func TestWindowTitleIncludesROMName(t *testing.T) {
	assert.Equal(t, "nescore - smb.nes", WindowTitle("smb.nes"))
}

func TestKeymapCoversTheEightStandardButtons(t *testing.T) {
	seen := map[joypad.Button]bool{}
	for _, b := range keymap {
		seen[b] = true
	}
	for _, want := range []joypad.Button{
		joypad.Up, joypad.Down, joypad.Left, joypad.Right,
		joypad.A, joypad.B, joypad.Start, joypad.Select,
	} {
		assert.True(t, seen[want], "missing binding for button %v", want)
	}
}
