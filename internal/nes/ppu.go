package nes

const (
	ppuCtrl   = uint16(0x2000)
	ppuMask   = uint16(0x2001)
	ppuStatus = uint16(0x2002)
	oamAddr   = uint16(0x2003)
	oamData   = uint16(0x2004)
	ppuScroll = uint16(0x2005)
	ppuAddr   = uint16(0x2006)
	ppuData   = uint16(0x2007)
	oamDMA    = uint16(0x4014)
)

const (
	ctrlIncrement32 = uint8(1 << 2)
	ctrlNMIEnable   = uint8(1 << 7)
	statusVBlank    = uint8(1 << 7)

	dotsPerScanLine = 341
	scanLinesFrame  = 262
	vblankScanLine  = 241
	preRenderLine   = 261
)

// PPU models the register file of the picture processing unit and the
// dot/scanline counter that drives vblank and its NMI. Pixel rendering and
// VRAM are not modelled: PPUDATA reads return the last value written.
type PPU struct {
	// Registers
	ppuctrl   uint8
	ppumask   uint8
	ppustatus uint8
	oamaddr   uint8
	ppuscroll [2]uint8
	ppuaddr   uint16
	ppudata   uint8
	oamdma    uint8

	oam         [0x100]uint8
	writeToggle bool
	// last value driven on the PPU's data bus, returned by write-only
	// registers
	latch uint8

	nmi      bool
	cycles   uint16
	scanLine uint16
	frame    uint64
}

func NewPPU() *PPU {
	return &PPU{}
}

func (p *PPU) ReadRegister(addr uint16) uint8 {
	switch addr {
	case ppuStatus:
		p.latch = p.ppustatus&0xe0 | p.latch&0x1f
		p.ppustatus &^= statusVBlank
		p.writeToggle = false
	case oamData:
		p.latch = p.oam[p.oamaddr]
	case ppuData:
		p.latch = p.ppudata
		p.incrementAddr()
	}
	return p.latch
}

func (p *PPU) WriteRegister(addr uint16, data uint8) {
	p.latch = data
	switch addr {
	case ppuCtrl:
		// enabling NMI during vblank fires it straight away
		if p.ppuctrl&ctrlNMIEnable == 0 && data&ctrlNMIEnable > 0 && p.ppustatus&statusVBlank > 0 {
			p.nmi = true
		}
		p.ppuctrl = data
	case ppuMask:
		p.ppumask = data
	case oamAddr:
		p.oamaddr = data
	case oamData:
		p.oam[p.oamaddr] = data
		p.oamaddr++
	case ppuScroll:
		p.ppuscroll[p.toggle()] = data
	case ppuAddr:
		if p.toggle() == 0 {
			p.ppuaddr = uint16(data&0x3f)<<8 | p.ppuaddr&0x00ff
		} else {
			p.ppuaddr = p.ppuaddr&0xff00 | uint16(data)
		}
	case ppuData:
		p.ppudata = data
		p.incrementAddr()
	case oamDMA:
		p.oamdma = data
	}
}

// Peek returns what ReadRegister would without changing any state.
func (p *PPU) Peek(addr uint16) uint8 {
	switch addr {
	case ppuStatus:
		return p.ppustatus&0xe0 | p.latch&0x1f
	case oamData:
		return p.oam[p.oamaddr]
	case ppuData:
		return p.ppudata
	}
	return p.latch
}

// toggle returns the index of the current write of a two-write register and
// flips the shared write latch.
func (p *PPU) toggle() int {
	i := 0
	if p.writeToggle {
		i = 1
	}
	p.writeToggle = !p.writeToggle
	return i
}

func (p *PPU) incrementAddr() {
	if p.ppuctrl&ctrlIncrement32 > 0 {
		p.ppuaddr += 32
	} else {
		p.ppuaddr++
	}
	p.ppuaddr &= 0x3fff
}

// Tic advances the PPU by one dot and reports whether it requests an NMI.
func (p *PPU) Tic() bool {
	p.cycles++
	if p.cycles >= dotsPerScanLine {
		p.cycles = 0
		p.scanLine++
		if p.scanLine >= scanLinesFrame {
			p.scanLine = 0
			p.frame++
		}
	}

	if p.cycles == 1 {
		switch p.scanLine {
		case vblankScanLine:
			p.ppustatus |= statusVBlank
			if p.ppuctrl&ctrlNMIEnable > 0 {
				p.nmi = true
			}
		case preRenderLine:
			p.ppustatus &^= statusVBlank
		}
	}

	nmi := p.nmi
	p.nmi = false
	return nmi
}

func (p *PPU) Frame() uint64 {
	return p.frame
}
