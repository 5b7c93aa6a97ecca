package nes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPPU_Registers(t *testing.T) {
	t.Run("write-only registers read back the latch", func(t *testing.T) {
		ppu := NewPPU()
		ppu.WriteRegister(ppuMask, 0xab)

		assert.Equal(t, uint8(0xab), ppu.ReadRegister(ppuCtrl))
		assert.Equal(t, uint8(0xab), ppu.ReadRegister(ppuScroll))
	})

	t.Run("status takes its low bits from the latch", func(t *testing.T) {
		ppu := NewPPU()
		ppu.ppustatus = statusVBlank
		ppu.WriteRegister(ppuMask, 0x1f)

		assert.Equal(t, uint8(0x9f), ppu.ReadRegister(ppuStatus))
		assert.Equal(t, uint8(0x1f), ppu.ReadRegister(ppuStatus), "vblank is cleared by the read")
	})

	t.Run("status read resets the write toggle", func(t *testing.T) {
		ppu := NewPPU()
		ppu.WriteRegister(ppuScroll, 1)
		ppu.ReadRegister(ppuStatus)
		ppu.WriteRegister(ppuScroll, 2)

		assert.Equal(t, [2]uint8{2, 0}, ppu.ppuscroll)
	})

	t.Run("address and data", func(t *testing.T) {
		ppu := NewPPU()
		ppu.WriteRegister(ppuAddr, 0x21)
		ppu.WriteRegister(ppuAddr, 0x08)
		assert.Equal(t, uint16(0x2108), ppu.ppuaddr)

		ppu.WriteRegister(ppuData, 0x55)
		assert.Equal(t, uint16(0x2109), ppu.ppuaddr)
		assert.Equal(t, uint8(0x55), ppu.ReadRegister(ppuData))
		assert.Equal(t, uint16(0x210a), ppu.ppuaddr)

		ppu.WriteRegister(ppuCtrl, ctrlIncrement32)
		ppu.WriteRegister(ppuData, 0x66)
		assert.Equal(t, uint16(0x212a), ppu.ppuaddr)
	})

	t.Run("OAM", func(t *testing.T) {
		ppu := NewPPU()
		ppu.WriteRegister(oamAddr, 0xff)
		ppu.WriteRegister(oamData, 7)
		ppu.WriteRegister(oamData, 8)

		assert.Equal(t, uint8(7), ppu.oam[0xff])
		assert.Equal(t, uint8(8), ppu.oam[0x00])
		ppu.WriteRegister(oamAddr, 0xff)
		assert.Equal(t, uint8(7), ppu.ReadRegister(oamData))
		assert.Equal(t, uint8(0xff), ppu.oamaddr, "reads do not increment")
	})

	t.Run("OAMDMA is latched", func(t *testing.T) {
		ppu := NewPPU()
		ppu.WriteRegister(oamDMA, 0x03)
		assert.Equal(t, uint8(0x03), ppu.oamdma)
	})
}

func TestPPU_Tic(t *testing.T) {
	ppu := NewPPU()
	ppu.WriteRegister(ppuCtrl, ctrlNMIEnable)

	vblankDot := vblankScanLine*dotsPerScanLine + 1
	nmiAt := -1
	for i := 1; i <= vblankDot; i++ {
		if ppu.Tic() && nmiAt < 0 {
			nmiAt = i
		}
	}
	assert.Equal(t, vblankDot, nmiAt)
	assert.Equal(t, statusVBlank, ppu.ppustatus&statusVBlank)

	for i := vblankDot; i < preRenderLine*dotsPerScanLine+1; i++ {
		assert.False(t, ppu.Tic(), "one NMI per vblank")
	}
	assert.Zero(t, ppu.ppustatus&statusVBlank, "cleared on the pre-render line")

	for i := preRenderLine*dotsPerScanLine + 1; i < scanLinesFrame*dotsPerScanLine; i++ {
		ppu.Tic()
	}
	assert.Equal(t, uint64(1), ppu.Frame())
}

func TestPPU_NMIEnabledDuringVBlank(t *testing.T) {
	ppu := NewPPU()
	ppu.ppustatus = statusVBlank

	ppu.WriteRegister(ppuCtrl, ctrlNMIEnable)

	assert.True(t, ppu.Tic())
	assert.False(t, ppu.Tic())
}
