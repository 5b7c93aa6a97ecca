package nes

import (
	"fmt"
	"strings"
)

type DisasmLine struct {
	Addr uint16
	Size uint16
	Text string
}

func (l DisasmLine) String() string {
	return fmt.Sprintf("$%04X: %s", l.Addr, l.Text)
}

// disassembleAt decodes the instruction at addr. Unknown opcodes decode as a
// single "???" byte.
func disassembleAt(peek func(uint16) uint8, addr uint16) (string, uint16) {
	in := opcodes[peek(addr)]
	if !in.valid() {
		return "???", 1
	}
	return operandText(in, peek, addr+1), in.mode.size()
}

func operandText(in instr, peek func(uint16) uint8, pc uint16) string {
	name := in.op.String()
	switch in.mode {
	case addrModeIMM:
		return fmt.Sprintf("%s #$%02X", name, peek(pc))
	case addrModeZP:
		return fmt.Sprintf("%s $%02X", name, peek(pc))
	case addrModeZPX:
		return fmt.Sprintf("%s $%02X,X", name, peek(pc))
	case addrModeZPY:
		return fmt.Sprintf("%s $%02X,Y", name, peek(pc))
	case addrModeABS:
		return fmt.Sprintf("%s $%04X", name, read16(peekReader(peek), pc))
	case addrModeABSX:
		return fmt.Sprintf("%s $%04X,X", name, read16(peekReader(peek), pc))
	case addrModeABSY:
		return fmt.Sprintf("%s $%04X,Y", name, read16(peekReader(peek), pc))
	case addrModeIND:
		return fmt.Sprintf("%s ($%04X)", name, read16(peekReader(peek), pc))
	case addrModeINDX:
		return fmt.Sprintf("%s ($%02X,X)", name, peek(pc))
	case addrModeINDY:
		return fmt.Sprintf("%s ($%02X),Y", name, peek(pc))
	case addrModeREL:
		offset := uint16(peek(pc))
		if offset&0x80 > 0 {
			offset |= 0xff00 // add leading 1 s to save the sign
		}
		return fmt.Sprintf("%s $%04X", name, pc+1+offset)
	case addrModeACC:
		return name + " A"
	}
	return name
}

// peekReader adapts a peek function to the read side of ReadWriter.
type peekReader func(uint16) uint8

func (p peekReader) Read8(addr uint16) uint8 { return p(addr) }
func (p peekReader) Write8(uint16, uint8)    {}

// Disassemble decodes count instructions starting at from. Memory is read
// through Peek when mem supports it.
func Disassemble(mem ReadWriter, from uint16, count int) []DisasmLine {
	peek := peekFunc(mem)
	lines := make([]DisasmLine, 0, count)
	addr := from
	for i := 0; i < count; i++ {
		text, size := disassembleAt(peek, addr)
		if in := opcodes[peek(addr)]; in.valid() {
			text = fmt.Sprintf("%s {%s}", text, in.mode)
		}
		lines = append(lines, DisasmLine{Addr: addr, Size: size, Text: text})
		addr += size
	}
	return lines
}

// TraceLine formats the instruction at PC and the registers before it runs,
// the way nestest logs are written.
func (c *CPU) TraceLine() string {
	peek := peekFunc(c.mem)
	text, size := disassembleAt(peek, c.pc)

	var raw strings.Builder
	for i := uint16(0); i < size; i++ {
		fmt.Fprintf(&raw, "%02X ", peek(c.pc+i))
	}

	return fmt.Sprintf("%04X  %-9s %-31s A:%02X X:%02X Y:%02X P:%02X SP:%02X CYC:%d",
		c.pc, raw.String(), text, c.a, c.x, c.y, c.p.Byte(), c.sp, c.totalCycles)
}
