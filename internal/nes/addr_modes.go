package nes

type addrMode uint8

const (
	addrModeIMM  addrMode = iota + 1 // Immediate
	addrModeZP                       // Zero Page
	addrModeZPX                      // Zero Page X
	addrModeZPY                      // Zero Page Y
	addrModeABS                      // Absolute
	addrModeABSX                     // Absolute X
	addrModeABSY                     // Absolute Y
	addrModeIND                      // Indirect
	addrModeINDX                     // Indirect X
	addrModeINDY                     // Indirect Y
	addrModeREL                      // Relative
	addrModeACC                      // Accumulator
	addrModeIMP                      // Implied
)

func (mode addrMode) String() string {
	switch mode {
	case addrModeIMM:
		return "IMM"
	case addrModeZP:
		return "ZP"
	case addrModeZPX:
		return "ZPX"
	case addrModeZPY:
		return "ZPY"
	case addrModeABS:
		return "ABS"
	case addrModeABSX:
		return "ABSX"
	case addrModeABSY:
		return "ABSY"
	case addrModeIND:
		return "IND"
	case addrModeINDX:
		return "INDX"
	case addrModeINDY:
		return "INDY"
	case addrModeREL:
		return "REL"
	case addrModeACC:
		return "ACC"
	case addrModeIMP:
		return "IMP"
	}
	return "???"
}

// size is the instruction length in bytes including the opcode.
func (mode addrMode) size() uint16 {
	switch mode {
	case addrModeABS, addrModeABSX, addrModeABSY, addrModeIND:
		return 3
	case addrModeACC, addrModeIMP:
		return 1
	}
	return 2
}

type operandKind uint8

const (
	operandNone operandKind = iota // implied
	operandAcc                     // the accumulator, written back to A
	operandImm                     // an instruction byte, never written back
	operandMem                     // a bus location at addr
)

// operand is the result of resolving an addressing mode for one instruction.
type operand struct {
	kind        operandKind
	value       uint8
	addr        uint16
	pageCrossed bool
}

func isSameSign(a, b uint8) bool {
	return (a^b)&0x80 == 0
}

func isDiffPage(a, b uint16) bool {
	return a&0xff00 != b&0xff00
}

// resolve consumes the operand bytes of the current instruction and computes
// its effective address. The target is read only when the instruction needs
// its value, so stores never touch the location they overwrite.
func (c *CPU) resolve(mode addrMode, acc access) operand {
	var op operand

	switch mode {
	case addrModeIMP:
		return op

	case addrModeACC:
		op.kind = operandAcc
		op.value = c.a
		return op

	case addrModeIMM:
		op.kind = operandImm
		op.value = c.fetch8()
		return op

	case addrModeZP:
		op.addr = uint16(c.fetch8())

	case addrModeZPX:
		op.addr = uint16(c.fetch8() + c.x)

	case addrModeZPY:
		op.addr = uint16(c.fetch8() + c.y)

	case addrModeABS:
		op.addr = c.fetch16()

	case addrModeABSX:
		op.addr, op.pageCrossed = c.indexed(c.fetch16(), c.x, acc)

	case addrModeABSY:
		op.addr, op.pageCrossed = c.indexed(c.fetch16(), c.y, acc)

	case addrModeIND:
		// only JMP uses it; the pointer's high byte never leaves its page
		op.addr = c.read16Wrapped(c.fetch16())

	case addrModeINDX:
		op.addr = c.read16Wrapped(uint16(c.fetch8() + c.x))

	case addrModeINDY:
		base := c.read16Wrapped(uint16(c.fetch8()))
		op.addr, op.pageCrossed = c.indexed(base, c.y, acc)

	case addrModeREL:
		offset := uint16(c.fetch8())
		if offset&0x80 > 0 {
			offset |= 0xff00 // add leading 1 s to save the sign
		}
		op.addr = c.pc + offset
	}

	op.kind = operandMem
	if mode != addrModeREL && (acc == accessRead || acc == accessModify) {
		op.value = c.read8(op.addr)
	}
	return op
}

// indexed adds index to base. The hardware adds to the low byte first and
// reads from the not yet carried address; that read is only skipped for
// loads that stay within the page.
func (c *CPU) indexed(base uint16, index uint8, acc access) (uint16, bool) {
	addr := base + uint16(index)
	crossed := isDiffPage(base, addr)
	if crossed || acc == accessWrite || acc == accessModify {
		c.read8(base&0xff00 | addr&0x00ff)
	}
	return addr, crossed
}

// writeBack stores the result of a read-modify-write or store instruction.
func (c *CPU) writeBack(op operand, data uint8) error {
	switch op.kind {
	case operandAcc:
		c.a = data
		return nil
	case operandMem:
		c.write8(op.addr, data)
		return nil
	}
	return ErrIllegalWriteBack
}

// modify performs the hardware's double write of a read-modify-write
// instruction: the unmodified value first, then the result.
func (c *CPU) modify(op operand, data uint8) error {
	if op.kind == operandMem {
		c.write8(op.addr, op.value)
	}
	return c.writeBack(op, data)
}
