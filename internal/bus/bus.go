// Package bus implements the NES system bus: CPU-visible address
// decoding, RAM/PPU-register mirroring, OAM DMA, and the cycle
// counter that keeps the PPU three dots ahead of every CPU cycle.
package bus

import (
	"nescore/internal/cartridge"
	"nescore/internal/joypad"
	"nescore/internal/ppu"
)

const (
	ramMirrorsEnd = 0x1fff
	ppuStart      = 0x2000
	ppuMirrorsEnd = 0x3fff
	oamDMAReg     = 0x4014
	joypad1Reg    = 0x4016
	joypad2Reg    = 0x4017
)

// FrameCallback is invoked once per VBlank, after the NMI edge has
// been latched but before the CPU is asked to service it — the point
// at which a presentation front end (internal/video, internal/monitor)
// samples PPU state and drives polled input.
type FrameCallback func(p *ppu.PPU, pad1 *joypad.Joypad)

// Bus wires CPU RAM, the cartridge, the PPU, and joypad 1 onto one
// 16-bit address space.
type Bus struct {
	ram  [0x800]uint8
	cart *cartridge.Cartridge
	ppu  *ppu.PPU
	pad1 *joypad.Joypad

	cycles  uint64
	frames  uint64
	onFrame FrameCallback
}

// New builds a bus around cart, with onFrame invoked on every rising
// NMI edge. onFrame may be nil.
func New(cart *cartridge.Cartridge, onFrame FrameCallback) *Bus {
	b := &Bus{
		cart: cart,
		ppu:  ppu.New(cart, cart.Mirroring()),
		pad1: joypad.New(),
		onFrame: onFrame,
	}
	return b
}

// PPU exposes the bus's PPU instance, mainly for tests and for the
// presentation layer's direct frame callback argument.
func (b *Bus) PPU() *ppu.PPU { return b.ppu }

// Joypad1 exposes joypad 1 so a presentation front end can set button
// state from keyboard/gamepad input.
func (b *Bus) Joypad1() *joypad.Joypad { return b.pad1 }

// Cycles returns the total CPU cycle count since power-on.
func (b *Bus) Cycles() uint64 { return b.cycles }

// Frames returns the number of completed frames, counted at the NMI
// rising edge the same way onFrame is triggered.
func (b *Bus) Frames() uint64 { return b.frames }

// Read8 reads one byte from the full CPU address space.
func (b *Bus) Read8(addr uint16) uint8 {
	switch {
	case addr <= ramMirrorsEnd:
		return b.ram[addr&0x07ff]
	case addr == 0x2000, addr == 0x2001, addr == 0x2003, addr == 0x2005, addr == 0x2006, addr == oamDMAReg:
		return 0 // write-only registers read back as open bus; this core returns 0 rather than modeling open bus
	case addr == 0x2002 || addr == 0x2004 || addr == 0x2007:
		return b.ppu.ReadRegister(addr)
	case addr >= 0x2008 && addr <= ppuMirrorsEnd:
		return b.Read8(0x2000 + addr&0x0007)
	case addr == joypad1Reg:
		return b.pad1.Read()
	case addr == joypad2Reg:
		return 0 // joypad 2 is not implemented
	case addr >= 0x4000 && addr <= 0x4015:
		return 0 // no APU
	case addr >= 0x8000:
		return b.cart.ReadPRG(addr)
	default:
		return 0
	}
}

// Write8 writes one byte into the full CPU address space.
func (b *Bus) Write8(addr uint16, value uint8) {
	switch {
	case addr <= ramMirrorsEnd:
		b.ram[addr&0x07ff] = value
	case addr >= ppuStart && addr <= 0x2007:
		// 0x2002 is read-only on real hardware; forwarding it anyway
		// lets the PPU's own illegal-write panic fire.
		b.ppu.WriteRegister(addr, value)
	case addr >= 0x2008 && addr <= ppuMirrorsEnd:
		b.Write8(0x2000+addr&0x0007, value)
	case addr == oamDMAReg:
		b.doOAMDMA(value)
	case addr == joypad1Reg:
		b.pad1.Write(value)
	case addr == joypad2Reg:
		// joypad 2 is not implemented; write ignored
	case addr >= 0x4000 && addr <= 0x4015:
		// no APU
	case addr >= 0x8000:
		b.cart.WritePRG(addr, value)
	}
}

// doOAMDMA copies 256 bytes starting at page*0x100 into OAM, exactly
// as a $4014 write does on real hardware.
func (b *Bus) doOAMDMA(page uint8) {
	var buf [256]uint8
	base := uint16(page) << 8
	for i := range buf {
		buf[i] = b.Read8(base + uint16(i))
	}
	b.ppu.WriteOAMDMA(buf)

	// The real DMA stalls the CPU for 513 or 514 cycles depending on
	// whether the write lands on an odd CPU cycle; this core charges
	// the stall to the bus's cycle counter without driving the PPU for
	// those cycles, per the documented sub-instruction timing non-goal.
	stall := uint64(513)
	if b.cycles%2 == 1 {
		stall = 514
	}
	b.cycles += stall
}

// Tick advances the bus by n CPU cycles, driving the PPU three dots
// per CPU cycle and firing the frame callback on the NMI rising edge.
func (b *Bus) Tick(n int) {
	b.cycles += uint64(n)

	nmiBefore := b.ppu.NMIPending()
	b.ppu.Tick(n * 3)
	nmiAfter := b.ppu.NMIPending()

	if !nmiBefore && nmiAfter {
		b.frames++
		if b.onFrame != nil {
			b.onFrame(b.ppu, b.pad1)
		}
	}
}

// PollNMI consumes the PPU's pending NMI flag; the CPU calls this
// between instructions to decide whether to service an interrupt.
func (b *Bus) PollNMI() bool { return b.ppu.PollNMI() }
