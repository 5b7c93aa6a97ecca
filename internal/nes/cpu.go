package nes

import "fmt"

const (
	stackStartAddr = uint16(0x100)

	nmiVector   = uint16(0xfffa)
	resetVector = uint16(0xfffc)
	irqVector   = uint16(0xfffe)

	powerOnStatus = flagU | flagB | flagI
	powerOnSP     = uint8(0xfd)

	resetCycles     = 7
	interruptCycles = 7
	// the copy takes 512 cycles plus one to halt, and one more to align when
	// it starts on an odd cycle
	dmaCycles = 513
)

type pendingFlag struct {
	value bool
	set   bool
}

// Registers is a snapshot of the register file.
type Registers struct {
	A      uint8
	X      uint8
	Y      uint8
	SP     uint8
	PC     uint16
	P      Status
	Cycles uint64
}

func (r Registers) StatusString() string {
	return r.P.String()
}

type CPU struct {
	a           uint8
	x           uint8
	y           uint8
	p           Status
	sp          uint8
	pc          uint16
	mem         ReadWriter
	cycles      uint64 // cycles spent by the current step
	totalCycles uint64

	nmiPending bool
	irqLine    bool
	// irqInhibit is the interrupt disable value the IRQ poll sees. CLI, SEI
	// and PLP change it one instruction late through pendingIRQInhibit.
	irqInhibit        bool
	pendingIRQInhibit pendingFlag
	dmaPending        bool

	err error
}

func NewCPU(mem ReadWriter) *CPU {
	c := &CPU{
		mem: mem,
	}
	c.powerOn()
	return c
}

func (c *CPU) powerOn() {
	c.a = 0
	c.x = 0
	c.y = 0
	c.p = Status(powerOnStatus)
	c.sp = powerOnSP
	c.nmiPending = false
	c.irqInhibit = true
	c.pendingIRQInhibit = pendingFlag{}
	c.dmaPending = false
	c.err = nil
}

// Reset puts the registers in their power-on state and charges the reset
// sequence. PC is left to the caller, which loads it from the reset vector.
func (c *CPU) Reset() {
	c.powerOn()
	c.totalCycles += resetCycles
}

func (c *CPU) SetPC(pc uint16) {
	c.pc = pc
}

// Cycles returns the number of cycles elapsed since the CPU was created.
func (c *CPU) Cycles() uint64 {
	return c.totalCycles
}

// Err returns the fatal error that halted the CPU, if any.
func (c *CPU) Err() error {
	return c.err
}

func (c *CPU) Registers() Registers {
	return Registers{
		A:      c.a,
		X:      c.x,
		Y:      c.y,
		SP:     c.sp,
		PC:     c.pc,
		P:      c.p,
		Cycles: c.totalCycles,
	}
}

// NMI latches a non-maskable interrupt request. It is serviced at the next
// instruction boundary.
func (c *CPU) NMI() {
	c.nmiPending = true
}

// SetIRQ drives the level sensitive interrupt request line.
func (c *CPU) SetIRQ(active bool) {
	c.irqLine = active
}

func (c *CPU) read8(addr uint16) uint8 {
	return c.mem.Read8(addr)
}

func (c *CPU) read16(addr uint16) uint16 {
	return read16(c.mem, addr)
}

func (c *CPU) read16Wrapped(addr uint16) uint16 {
	return read16Wrapped(c.mem, addr)
}

func (c *CPU) write8(addr uint16, data uint8) {
	c.mem.Write8(addr, data)
	if addr == oamDMA {
		c.dmaPending = true
	}
}

func (c *CPU) fetch8() uint8 {
	data := c.read8(c.pc)
	c.pc++
	return data
}

func (c *CPU) fetch16() uint16 {
	data := c.read16(c.pc)
	c.pc += 2
	return data
}

func (c *CPU) setFlagsZN(value uint8) {
	c.p.set(flagZ, value == 0)
	c.p.set(flagN, value&flagN > 0)
}

func (c *CPU) stackPop8() uint8 {
	c.sp++
	return c.read8(stackStartAddr | uint16(c.sp))
}

func (c *CPU) stackPop16() uint16 {
	lo := uint16(c.stackPop8())
	hi := uint16(c.stackPop8())
	return lo | hi<<8
}

func (c *CPU) stackPush8(data uint8) {
	c.write8(stackStartAddr|uint16(c.sp), data)
	c.sp--
}

func (c *CPU) stackPush16(data uint16) {
	lo := uint8(data & 0xff)
	hi := uint8(data >> 8)
	c.stackPush8(hi)
	c.stackPush8(lo)
}

// Step executes one instruction, or enters a pending interrupt, and returns
// the number of cycles it took including any DMA stall it triggered.
// After a fatal error the CPU stops advancing and keeps returning it.
func (c *CPU) Step() (uint64, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.cycles = 0

	inhibit := c.irqInhibit
	if c.pendingIRQInhibit.set {
		c.irqInhibit = c.pendingIRQInhibit.value
		c.pendingIRQInhibit = pendingFlag{}
	}

	switch {
	case c.nmiPending:
		c.nmiPending = false
		c.interrupt(nmiVector)
	case c.irqLine && !inhibit:
		c.interrupt(irqVector)
	default:
		if err := c.execute(); err != nil {
			c.err = err
			return 0, err
		}
	}
	c.totalCycles += c.cycles

	if c.dmaPending {
		c.dmaPending = false
		stall := uint64(dmaCycles)
		if c.totalCycles%2 == 1 {
			stall++
		}
		c.totalCycles += stall
		c.cycles += stall
	}
	return c.cycles, nil
}

// Run executes instructions until at least cycles have elapsed since the call.
func (c *CPU) Run(cycles uint64) error {
	target := c.totalCycles + cycles
	for c.totalCycles < target {
		if _, err := c.Step(); err != nil {
			return err
		}
	}
	return nil
}

func (c *CPU) execute() error {
	pc := c.pc
	opcode := c.fetch8()
	in := opcodes[opcode]
	if !in.valid() {
		c.pc = pc
		return &OpcodeError{Opcode: opcode, PC: pc}
	}

	op := c.resolve(in.mode, in.op.access())
	c.cycles = uint64(in.cycles)
	if in.pageCycle && op.pageCrossed {
		c.cycles++
	}

	if err := c.dispatch(in.op, op); err != nil {
		c.pc = pc
		return fmt.Errorf("%s {%s} at $%04X: %w", in.op, in.mode, pc, err)
	}

	switch in.op {
	case opCLI, opSEI, opPLP:
		c.pendingIRQInhibit = pendingFlag{value: c.p.InterruptDisable(), set: true}
	default:
		c.irqInhibit = c.p.InterruptDisable()
	}
	return nil
}

func (c *CPU) dispatch(m mnemonic, op operand) error {
	switch m {
	case opADC:
		c.adc(op.value)
	case opAND:
		c.and(op.value)
	case opASL:
		return c.asl(op)
	case opBCC:
		c.branchIf(!c.p.Carry(), op.addr)
	case opBCS:
		c.branchIf(c.p.Carry(), op.addr)
	case opBEQ:
		c.branchIf(c.p.Zero(), op.addr)
	case opBIT:
		c.bit(op.value)
	case opBMI:
		c.branchIf(c.p.Negative(), op.addr)
	case opBNE:
		c.branchIf(!c.p.Zero(), op.addr)
	case opBPL:
		c.branchIf(!c.p.Negative(), op.addr)
	case opBRK:
		c.brk()
	case opBVC:
		c.branchIf(!c.p.Overflow(), op.addr)
	case opBVS:
		c.branchIf(c.p.Overflow(), op.addr)
	case opCLC:
		c.p.set(flagC, false)
	case opCLD:
		c.p.set(flagD, false)
	case opCLI:
		c.p.set(flagI, false)
	case opCLV:
		c.p.set(flagV, false)
	case opCMP:
		c.compare(c.a, op.value)
	case opCPX:
		c.compare(c.x, op.value)
	case opCPY:
		c.compare(c.y, op.value)
	case opDEC:
		return c.dec(op)
	case opDEX:
		c.x--
		c.setFlagsZN(c.x)
	case opDEY:
		c.y--
		c.setFlagsZN(c.y)
	case opEOR:
		c.eor(op.value)
	case opINC:
		return c.inc(op)
	case opINX:
		c.x++
		c.setFlagsZN(c.x)
	case opINY:
		c.y++
		c.setFlagsZN(c.y)
	case opJMP:
		c.pc = op.addr
	case opJSR:
		c.jsr(op.addr)
	case opLDA:
		c.a = op.value
		c.setFlagsZN(c.a)
	case opLDX:
		c.x = op.value
		c.setFlagsZN(c.x)
	case opLDY:
		c.y = op.value
		c.setFlagsZN(c.y)
	case opLSR:
		return c.lsr(op)
	case opNOP:
	case opORA:
		c.ora(op.value)
	case opPHA:
		c.stackPush8(c.a)
	case opPHP:
		c.stackPush8(c.p.Byte() | flagB)
	case opPLA:
		c.a = c.stackPop8()
		c.setFlagsZN(c.a)
	case opPLP:
		c.plp()
	case opROL:
		return c.rol(op)
	case opROR:
		return c.ror(op)
	case opRTI:
		c.rti()
	case opRTS:
		c.pc = c.stackPop16() + 1
	case opSBC:
		c.sbc(op.value)
	case opSEC:
		c.p.set(flagC, true)
	case opSED:
		c.p.set(flagD, true)
	case opSEI:
		c.p.set(flagI, true)
	case opSTA:
		return c.writeBack(op, c.a)
	case opSTX:
		return c.writeBack(op, c.x)
	case opSTY:
		return c.writeBack(op, c.y)
	case opTAX:
		c.x = c.a
		c.setFlagsZN(c.x)
	case opTAY:
		c.y = c.a
		c.setFlagsZN(c.y)
	case opTSX:
		c.x = c.sp
		c.setFlagsZN(c.x)
	case opTXA:
		c.a = c.x
		c.setFlagsZN(c.a)
	case opTXS:
		// the only transfer that leaves the flags alone
		c.sp = c.x
	case opTYA:
		c.a = c.y
		c.setFlagsZN(c.a)
	default:
		return fmt.Errorf("no handler for %s", m)
	}
	return nil
}

// interrupt pushes PC and the status with B clear, then jumps through vector.
func (c *CPU) interrupt(vector uint16) {
	c.stackPush16(c.pc)
	c.stackPush8(c.p.Byte() &^ flagB)
	c.p.set(flagI, true)
	c.irqInhibit = true
	c.pc = c.read16(vector)
	c.cycles = interruptCycles
}

// Add with Carry
// A = A + M + C
//
// Flags affected: C, Z, N, V
func (c *CPU) adc(m uint8) {
	r16 := uint16(c.a) + uint16(m)
	if c.p.Carry() {
		r16++
	}
	r8 := uint8(r16)
	c.p.set(flagC, r16 > 0xff)
	c.setFlagsZN(r8)
	c.p.set(flagV, isSameSign(c.a, m) && !isSameSign(c.a, r8))
	c.a = r8
}

// Subtract with Carry
// A = A - M - (1 - C)
//
// Flags affected: C (clear on borrow), Z, N, V
func (c *CPU) sbc(m uint8) {
	r16 := uint16(c.a) - uint16(m)
	if !c.p.Carry() {
		r16--
	}
	r8 := uint8(r16)
	c.p.set(flagC, r16 < 0x100)
	c.setFlagsZN(r8)
	c.p.set(flagV, !isSameSign(c.a, m) && !isSameSign(c.a, r8))
	c.a = r8
}

func (c *CPU) and(m uint8) {
	c.a &= m
	c.setFlagsZN(c.a)
}

func (c *CPU) eor(m uint8) {
	c.a ^= m
	c.setFlagsZN(c.a)
}

func (c *CPU) ora(m uint8) {
	c.a |= m
	c.setFlagsZN(c.a)
}

// Bit Test
// Z <- A & M == 0, N <- M7, V <- M6
func (c *CPU) bit(m uint8) {
	c.p.set(flagZ, c.a&m == 0)
	c.p.set(flagN, m&flagN > 0)
	c.p.set(flagV, m&flagV > 0)
}

func (c *CPU) compare(reg, m uint8) {
	c.p.set(flagC, reg >= m)
	c.setFlagsZN(reg - m)
}

// Arithmetic Shift Left
// C <- M7, M << 1
func (c *CPU) asl(op operand) error {
	c.p.set(flagC, op.value&0x80 > 0)
	r := op.value << 1
	c.setFlagsZN(r)
	return c.modify(op, r)
}

// Logical Shift Right
// C <- M0, M >> 1
func (c *CPU) lsr(op operand) error {
	c.p.set(flagC, op.value&0x1 > 0)
	r := op.value >> 1
	c.setFlagsZN(r)
	return c.modify(op, r)
}

func (c *CPU) rol(op operand) error {
	r := op.value << 1
	if c.p.Carry() {
		r |= 0x1
	}
	c.p.set(flagC, op.value&0x80 > 0)
	c.setFlagsZN(r)
	return c.modify(op, r)
}

func (c *CPU) ror(op operand) error {
	r := op.value >> 1
	if c.p.Carry() {
		r |= 0x80
	}
	c.p.set(flagC, op.value&0x1 > 0)
	c.setFlagsZN(r)
	return c.modify(op, r)
}

func (c *CPU) dec(op operand) error {
	r := op.value - 1
	c.setFlagsZN(r)
	return c.modify(op, r)
}

func (c *CPU) inc(op operand) error {
	r := op.value + 1
	c.setFlagsZN(r)
	return c.modify(op, r)
}

// branchIf jumps to target when condition holds. A taken branch costs one
// cycle, and one more when target is on another page than the next
// instruction.
func (c *CPU) branchIf(condition bool, target uint16) {
	if !condition {
		return
	}
	c.cycles++
	if isDiffPage(c.pc, target) {
		c.cycles++
	}
	c.pc = target
}

func (c *CPU) brk() {
	// BRK has a padding byte after the opcode
	c.pc++
	c.stackPush16(c.pc)
	c.stackPush8(c.p.Byte() | flagB)
	c.p.set(flagI, true)
	c.pc = c.read16(irqVector)
}

// jsr pushes the address of the last byte of the JSR instruction.
func (c *CPU) jsr(target uint16) {
	c.stackPush16(c.pc - 1)
	c.pc = target
}

func (c *CPU) plp() {
	c.p = Status(c.stackPop8()|flagU) &^ Status(flagB)
}

func (c *CPU) rti() {
	c.plp()
	c.pc = c.stackPop16()
}
