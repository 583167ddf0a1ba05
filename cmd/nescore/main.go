// Command nescore loads an iNES ROM and runs it in a windowed
// Ebitengine front end, headless for a fixed number of frames, or
// under the terminal single-step monitor.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"
	"github.com/hajimehoshi/ebiten/v2"

	"nescore/internal/bus"
	"nescore/internal/cartridge"
	"nescore/internal/cpu"
	"nescore/internal/debugutil"
	"nescore/internal/joypad"
	"nescore/internal/monitor"
	"nescore/internal/render"
	"nescore/internal/video"
)

func main() {
	romPath := flag.String("rom", "", "path to an iNES (.nes) ROM file")
	scale := flag.Int("scale", 3, "integer window scale factor")
	headless := flag.Bool("headless", false, "run without a window, for a fixed number of frames")
	frames := flag.Int("frames", 60, "frame count for -headless mode")
	useMonitor := flag.Bool("monitor", false, "run the terminal register/timing dashboard instead of the window")
	flag.Parse()
	defer glog.Flush()

	if *romPath == "" {
		fmt.Fprintln(os.Stderr, "usage: nescore -rom path/to/game.nes [-scale N] [-headless] [-monitor]")
		os.Exit(2)
	}

	m, err := newMachine(*romPath)
	if err != nil {
		glog.Fatalf("nescore: failed to load %s: %v", *romPath, err)
	}
	glog.Infof("nescore: loaded %s", *romPath)

	switch {
	case *useMonitor:
		if err := monitor.Run(monitorAdapter{m}); err != nil {
			glog.Fatalf("nescore: monitor exited with error: %v", err)
		}
	case *headless:
		runHeadless(m, *frames)
	default:
		ebiten.SetWindowTitle(video.WindowTitle(*romPath))
		ebiten.SetWindowSize(render.Width*(*scale), render.Height*(*scale))
		game := video.NewGame(frameAdapter{m}, *scale)
		if err := ebiten.RunGame(game); err != nil {
			glog.Fatalf("nescore: window closed with error: %v", err)
		}
	}
}

// machine wires the CPU, bus, and cartridge together and keeps the
// most recently rendered frame for the presentation layer to read.
type machine struct {
	bus   *bus.Bus
	cpu   *cpu.CPU
	frame *render.Frame
}

func newMachine(romPath string) (*machine, error) {
	cart, err := cartridge.LoadFile(romPath)
	if err != nil {
		return nil, err
	}

	m := &machine{frame: render.NewFrame()}
	m.bus = bus.New(cart, nil)
	m.cpu = cpu.New(m.bus)
	return m, nil
}

func runHeadless(m *machine, frameCount int) {
	defer debugutil.RecoverAndDump("headless run", func() interface{} { return m.cpu })

	start := m.bus.Frames()
	for m.bus.Frames() < start+uint64(frameCount) {
		m.cpu.StepOnce()
		if m.cpu.Halted() {
			glog.Infof("nescore: halted via BRK after %d frames", m.bus.Frames()-start)
			return
		}
	}
	glog.Infof("nescore: ran %d frames, %d bus cycles", frameCount, m.bus.Cycles())
}

// frameAdapter exposes machine as video.FrameSource.
type frameAdapter struct{ m *machine }

func (a frameAdapter) Step() {
	target := a.m.bus.Frames() + 1
	for a.m.bus.Frames() < target && !a.m.cpu.Halted() {
		a.m.cpu.StepOnce()
	}
	a.m.frame = render.Render(a.m.bus.PPU())
}

func (a frameAdapter) CurrentFrame() *render.Frame { return a.m.frame }
func (a frameAdapter) Joypad1() *joypad.Joypad     { return a.m.bus.Joypad1() }

// monitorAdapter exposes machine as monitor.Target.
type monitorAdapter struct{ m *machine }

func (a monitorAdapter) Step() { a.m.cpu.StepOnce() }

func (a monitorAdapter) Snapshot() monitor.Snapshot {
	c, b, p := a.m.cpu, a.m.bus, a.m.bus.PPU()
	return monitor.Snapshot{
		A: c.A, X: c.X, Y: c.Y, SP: c.SP, PC: c.PC,
		C: c.C, Z: c.Z, I: c.I, D: c.D, V: c.V, N: c.N,
		Scanline:  p.Scanline(),
		Cycle:     p.Cycle(),
		Frame:     b.Frames(),
		BusCycles: b.Cycles(),
		Halted:    c.Halted(),
	}
}
