// Package cpu implements the 6502 CPU: registers, addressing modes,
// the documented instruction set, and NMI servicing between
// instructions. It never touches memory directly — every access goes
// through the Memory interface, which the system bus implements.
package cpu

import "fmt"

// AddressingMode identifies how an instruction's operand address is
// computed.
type AddressingMode int

const (
	Implied AddressingMode = iota
	Accumulator
	Immediate
	ZeroPage
	ZeroPageX
	ZeroPageY
	Relative
	Absolute
	AbsoluteX
	AbsoluteY
	Indirect
	IndirectX // (zp,X)
	IndirectY // (zp),Y
)

const (
	stackBase   = 0x0100
	nmiVector   = 0xfffa
	resetVector = 0xfffc

	flagC = 0x01
	flagZ = 0x02
	flagI = 0x04
	flagD = 0x08
	flagB = 0x10
	flagU = 0x20 // unused, always read back as 1
	flagV = 0x40
	flagN = 0x80
)

// Memory is the CPU's only window onto the rest of the system. The
// bus implements this.
type Memory interface {
	Read8(addr uint16) uint8
	Write8(addr uint16, value uint8)
	Tick(n int)
	PollNMI() bool
}

// Instruction is one entry in the 256-slot opcode dispatch table.
type Instruction struct {
	Name   string
	Bytes  uint8
	Cycles uint8
	Mode   AddressingMode
}

// CPU holds the seven architectural registers and the bus it talks to.
type CPU struct {
	A, X, Y uint8
	SP      uint8
	PC      uint16

	C, Z, I, D, V, N bool

	bus          Memory
	instructions [256]*Instruction
	halted       bool
}

// New creates a CPU wired to bus and performs a power-on reset.
func New(bus Memory) *CPU {
	c := &CPU{bus: bus}
	c.initInstructions()
	c.Reset()
	return c
}

// Reset returns the CPU to its power-up state and loads PC from the
// reset vector.
func (c *CPU) Reset() {
	c.A, c.X, c.Y = 0, 0, 0
	c.SP = 0xfd
	c.C, c.Z, c.D, c.V, c.N = false, false, false, false, false
	c.I = true
	c.halted = false
	c.PC = c.read16(resetVector)
}

// Halted reports whether a BRK has stopped the run loop.
func (c *CPU) Halted() bool { return c.halted }

func (c *CPU) read16(addr uint16) uint16 {
	lo := uint16(c.bus.Read8(addr))
	hi := uint16(c.bus.Read8(addr + 1))
	return hi<<8 | lo
}

func (c *CPU) push(value uint8) {
	c.bus.Write8(stackBase+uint16(c.SP), value)
	c.SP--
}

func (c *CPU) pull() uint8 {
	c.SP++
	return c.bus.Read8(stackBase + uint16(c.SP))
}

func (c *CPU) pushWord(value uint16) {
	c.push(uint8(value >> 8))
	c.push(uint8(value))
}

func (c *CPU) pullWord() uint16 {
	lo := uint16(c.pull())
	hi := uint16(c.pull())
	return hi<<8 | lo
}

func (c *CPU) setZN(value uint8) {
	c.Z = value == 0
	c.N = value&flagN != 0
}

// statusByte packs the flags into P, with the Break bit set to b and
// the always-1 unused bit forced on — the layout PHP and NMI servicing
// push onto the stack.
func (c *CPU) statusByte(b bool) uint8 {
	var p uint8
	if c.C {
		p |= flagC
	}
	if c.Z {
		p |= flagZ
	}
	if c.I {
		p |= flagI
	}
	if c.D {
		p |= flagD
	}
	if b {
		p |= flagB
	}
	p |= flagU
	if c.V {
		p |= flagV
	}
	if c.N {
		p |= flagN
	}
	return p
}

// loadStatusByte restores C/Z/I/D/V/N from p. Bits 4 and 5 carry no
// persistent state in this core — PLP's rule that they "force bit 4
// off, bit 5 on" falls out naturally because nothing ever reads them
// back except a later PHP, which always re-encodes them itself.
func (c *CPU) loadStatusByte(p uint8) {
	c.C = p&flagC != 0
	c.Z = p&flagZ != 0
	c.I = p&flagI != 0
	c.D = p&flagD != 0
	c.V = p&flagV != 0
	c.N = p&flagN != 0
}

// operandAddress resolves the effective address for mode, reading
// operand bytes starting at operandPC. It never advances PC.
func (c *CPU) operandAddress(mode AddressingMode, operandPC uint16) uint16 {
	switch mode {
	case Implied, Accumulator:
		return 0
	case Immediate:
		return operandPC
	case ZeroPage:
		return uint16(c.bus.Read8(operandPC))
	case ZeroPageX:
		base := c.bus.Read8(operandPC)
		return uint16(base + c.X)
	case ZeroPageY:
		base := c.bus.Read8(operandPC)
		return uint16(base + c.Y)
	case Absolute:
		return c.read16(operandPC)
	case AbsoluteX:
		return c.read16(operandPC) + uint16(c.X)
	case AbsoluteY:
		return c.read16(operandPC) + uint16(c.Y)
	case Indirect:
		ptr := c.read16(operandPC)
		return c.readIndirectWithPageBug(ptr)
	case IndirectX:
		base := c.bus.Read8(operandPC) + c.X
		lo := uint16(c.bus.Read8(uint16(base)))
		hi := uint16(c.bus.Read8(uint16(base + 1)))
		return hi<<8 | lo
	case IndirectY:
		base := c.bus.Read8(operandPC)
		lo := uint16(c.bus.Read8(uint16(base)))
		hi := uint16(c.bus.Read8(uint16(base + 1)))
		return (hi<<8 | lo) + uint16(c.Y)
	case Relative:
		offset := int8(c.bus.Read8(operandPC))
		return operandPC + 1 + uint16(offset)
	default:
		panic(fmt.Sprintf("cpu: unhandled addressing mode %d", mode))
	}
}

// readIndirectWithPageBug reproduces the JMP (ind) hardware bug: when
// ptr's low byte is 0xFF, the high byte wraps within the same page
// instead of crossing into the next one.
func (c *CPU) readIndirectWithPageBug(ptr uint16) uint16 {
	lo := uint16(c.bus.Read8(ptr))
	var hiAddr uint16
	if ptr&0x00ff == 0x00ff {
		hiAddr = ptr & 0xff00
	} else {
		hiAddr = ptr + 1
	}
	hi := uint16(c.bus.Read8(hiAddr))
	return hi<<8 | lo
}

// Step fetches, decodes and executes one instruction, then ticks the
// bus by the instruction's base cycle count.
func (c *CPU) Step() uint8 {
	opcode := c.bus.Read8(c.PC)
	instr := c.instructions[opcode]
	if instr == nil {
		panic(&UnsupportedOpcodeError{Opcode: opcode, PC: c.PC})
	}

	operandPC := c.PC + 1
	addr := c.operandAddress(instr.Mode, operandPC)
	c.PC += uint16(instr.Bytes)

	c.execute(instr, addr)
	c.bus.Tick(int(instr.Cycles))
	return instr.Cycles
}

// serviceNMI pushes PC and P (break bit clear, as hardware interrupts
// do) and jumps to the NMI vector, charging 2 cycles.
func (c *CPU) serviceNMI() {
	c.pushWord(c.PC)
	c.push(c.statusByte(false))
	c.I = true
	c.PC = c.read16(nmiVector)
	c.bus.Tick(2)
}

// StepOnce services a pending NMI if one is latched, then executes one
// instruction. It is the unit of work a single-step debugger drives.
func (c *CPU) StepOnce() {
	if c.bus.PollNMI() {
		c.serviceNMI()
	}
	c.Step()
}

// RunWithCallback runs instructions forever, calling cb before each
// one, until a BRK halts the CPU. cb may be nil.
func (c *CPU) RunWithCallback(cb func(*CPU)) {
	for {
		if c.bus.PollNMI() {
			c.serviceNMI()
		}
		if cb != nil {
			cb(c)
		}
		c.Step()
		if c.halted {
			return
		}
	}
}

// Run is RunWithCallback with no per-instruction hook.
func (c *CPU) Run() { c.RunWithCallback(nil) }

// UnsupportedOpcodeError reports an opcode outside the 151 documented
// instructions, which is treated as a programming error that aborts
// the run.
type UnsupportedOpcodeError struct {
	Opcode uint8
	PC     uint16
}

func (e *UnsupportedOpcodeError) Error() string {
	return fmt.Sprintf("cpu: unsupported opcode 0x%02X at PC=0x%04X", e.Opcode, e.PC)
}
