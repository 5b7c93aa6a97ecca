package nes

import "fmt"

// Mapper translates CPU addresses in cartridge space ($6000-$FFFF).
type Mapper interface {
	ReadWriter
}

func NewMapper(cart *Cart) (Mapper, error) {
	switch cart.mapperID {
	case 0:
		return &Mapper0{cart}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnsupportedMapper, cart.mapperID)
}

// Mapper0 (NROM): 16 or 32 KB of PRG ROM at $8000, mirrored when there is
// a single bank, and 8 KB of PRG RAM at $6000.
type Mapper0 struct {
	cart *Cart
}

func (m Mapper0) mapAddr(addr uint16) uint16 {
	if m.cart.prgBanks > 1 {
		return addr & 0x7FFF
	}
	return addr & 0x3FFF
}

func (m Mapper0) Read8(addr uint16) uint8 {
	switch {
	// Read from PRG RAM
	case addr >= 0x6000 && addr < 0x8000:
		return m.cart.prgRAM[addr-0x6000]
	// Read from PRG ROM
	case addr >= 0x8000:
		return m.cart.prgMem[m.mapAddr(addr)]
	}
	return 0
}

func (m *Mapper0) Write8(addr uint16, data uint8) {
	// PRG ROM is read only
	if addr >= 0x6000 && addr < 0x8000 {
		m.cart.prgRAM[addr-0x6000] = data
	}
}
