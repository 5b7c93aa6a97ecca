package nes

type ReadWriter interface {
	Read8(addr uint16) uint8
	Write8(addr uint16, data uint8)
}

// Peeker reads without the side effects a bus read can have on registers.
type Peeker interface {
	Peek(addr uint16) uint8
}

// Peripheral is the register file mapped at $2000-$2007 and $4014.
// Addresses are passed with the mirrors already folded.
type Peripheral interface {
	ReadRegister(addr uint16) uint8
	WriteRegister(addr uint16, data uint8)
}

func read16(mem ReadWriter, addr uint16) uint16 {
	lo := uint16(mem.Read8(addr))
	hi := uint16(mem.Read8(addr + 1))
	return lo | hi<<8
}

// read16Wrapped reads a little-endian word whose high byte is fetched from
// the same page as the low byte: reading $10FF takes the high byte from $1000.
func read16Wrapped(mem ReadWriter, addr uint16) uint16 {
	lo := uint16(mem.Read8(addr))
	hi := uint16(mem.Read8(addr&0xff00 | (addr+1)&0x00ff))
	return lo | hi<<8
}

func peekFunc(mem ReadWriter) func(uint16) uint8 {
	if p, ok := mem.(Peeker); ok {
		return p.Peek
	}
	return mem.Read8
}

// $0000-$07FF: 2 KB of internal RAM
// $0800-$1FFF: Mirrors of $0000-$07FF
// $2000-$2007: PPU (Picture Processing Unit) registers
// $2008-$3FFF: Mirrors of $2000-$2007 (every 8 bytes)
// $4000-$4017: APU (Audio Processing Unit) and I/O registers, $4014 is OAMDMA
// $4018-$401F: APU and I/O functionality that is normally disabled
// $4020-$5FFF: Expansion area
// $6000-$FFFF: Cartridge space, PRG-RAM and PRG-ROM
//
// Everything that is not backed by a device reads as open bus: the last
// value that was driven on the data bus.
type cpuMemory struct {
	ram  *RAM
	regs Peripheral
	cart ReadWriter

	openBus uint8
}

func newCPUMemory(ram *RAM, regs Peripheral) *cpuMemory {
	return &cpuMemory{ram: ram, regs: regs}
}

func ppuRegister(addr uint16) uint16 {
	return 0x2000 | addr&0x7
}

func (m *cpuMemory) Read8(addr uint16) uint8 {
	switch {
	// read from ram
	case addr < 0x2000:
		m.openBus = m.ram.Read8(addr & 0x07FF)
	// read from ppu
	case addr < 0x4000:
		m.openBus = m.regs.ReadRegister(ppuRegister(addr))
	case addr == oamDMA:
		m.openBus = m.regs.ReadRegister(addr)
	// apu, io and expansion are not connected
	case addr < 0x6000:
	// read from cartridge
	default:
		if m.cart != nil {
			m.openBus = m.cart.Read8(addr)
		}
	}
	return m.openBus
}

func (m *cpuMemory) Write8(addr uint16, data uint8) {
	m.openBus = data
	switch {
	// write to ram
	case addr < 0x2000:
		m.ram.Write8(addr&0x07FF, data)
	// write to ppu
	case addr < 0x4000:
		m.regs.WriteRegister(ppuRegister(addr), data)
	case addr == oamDMA:
		m.regs.WriteRegister(addr, data)
		m.dma(data)
	case addr < 0x6000:
	// write to cartridge
	default:
		if m.cart != nil {
			m.cart.Write8(addr, data)
		}
	}
}

// dma copies the page selected by the write to OAMDMA into OAMDATA in
// ascending address order. The CPU accounts for the stall.
func (m *cpuMemory) dma(page uint8) {
	base := uint16(page) << 8
	for i := uint16(0); i < 0x100; i++ {
		m.regs.WriteRegister(oamData, m.Read8(base+i))
	}
}

// Peek reads addr without disturbing registers or the open bus latch.
func (m *cpuMemory) Peek(addr uint16) uint8 {
	switch {
	case addr < 0x2000:
		return m.ram.Read8(addr & 0x07FF)
	case addr < 0x4000 || addr == oamDMA:
		reg := addr
		if addr < 0x4000 {
			reg = ppuRegister(addr)
		}
		if p, ok := m.regs.(Peeker); ok {
			return p.Peek(reg)
		}
	case addr < 0x6000:
	default:
		if m.cart != nil {
			return m.cart.Read8(addr)
		}
	}
	return m.openBus
}

func (m *cpuMemory) Read16(addr uint16) uint16 {
	return read16(m, addr)
}

func (m *cpuMemory) Read16Wrapped(addr uint16) uint16 {
	return read16Wrapped(m, addr)
}
