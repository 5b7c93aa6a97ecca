package nes

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inesImage builds an iNES file. patch may fill in the PRG ROM.
func inesImage(prgBanks, chrBanks, flags6, flags7 uint8, patch func(prg []uint8)) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{'N', 'E', 'S', 0x1a, prgBanks, chrBanks, flags6, flags7})
	buf.Write(make([]byte, 8))
	if flags6&0x4 != 0 {
		buf.Write(bytes.Repeat([]byte{0xee}, trainerSizeBytes))
	}
	prg := make([]uint8, int(prgBanks)*prgBankSizeBytes)
	if patch != nil {
		patch(prg)
	}
	buf.Write(prg)
	buf.Write(make([]byte, int(chrBanks)*chrBankSizeBytes))
	return buf.Bytes()
}

// poke writes data into a single bank PRG image at the CPU address addr.
func poke(prg []uint8, addr uint16, data ...uint8) {
	for i, b := range data {
		prg[(addr+uint16(i))&0x3fff] = b
	}
}

func TestNewCart(t *testing.T) {
	t.Run("single bank is mirrored", func(t *testing.T) {
		img := inesImage(1, 1, 0x01, 0, func(prg []uint8) {
			poke(prg, 0x8000, 0xa9)
			poke(prg, resetVector, 0x00, 0x80)
		})

		cart, err := NewCart(bytes.NewReader(img))

		require.NoError(t, err)
		assert.Equal(t, uint8(0), cart.MapperID())
		assert.Equal(t, uint8(1), cart.mirror)
		assert.Len(t, cart.chrMem, chrBankSizeBytes)
		assert.Equal(t, uint8(0xa9), cart.Read8(0x8000))
		assert.Equal(t, uint8(0xa9), cart.Read8(0xc000))
		assert.Equal(t, uint8(0x00), cart.Read8(0xfffc))
		assert.Equal(t, uint8(0x80), cart.Read8(0xfffd))
	})

	t.Run("two banks", func(t *testing.T) {
		img := inesImage(2, 0, 0, 0, func(prg []uint8) {
			prg[0x4000] = 0x42
		})

		cart, err := NewCart(bytes.NewReader(img))

		require.NoError(t, err)
		assert.Equal(t, uint8(0x00), cart.Read8(0x8000))
		assert.Equal(t, uint8(0x42), cart.Read8(0xc000))
	})

	t.Run("PRG RAM is writable and PRG ROM is not", func(t *testing.T) {
		img := inesImage(1, 0, 0, 0, func(prg []uint8) {
			prg[0] = 0x11
		})
		cart, err := NewCart(bytes.NewReader(img))
		require.NoError(t, err)

		cart.Write8(0x6000, 0x05)
		cart.Write8(0x7fff, 0x06)
		cart.Write8(0x8000, 0x09)

		assert.Equal(t, uint8(0x05), cart.Read8(0x6000))
		assert.Equal(t, uint8(0x06), cart.Read8(0x7fff))
		assert.Equal(t, uint8(0x11), cart.Read8(0x8000))
	})

	t.Run("trainer is skipped", func(t *testing.T) {
		img := inesImage(1, 0, 0x04, 0, func(prg []uint8) {
			prg[0] = 0xa9
		})

		cart, err := NewCart(bytes.NewReader(img))

		require.NoError(t, err)
		assert.Equal(t, uint8(0xa9), cart.Read8(0x8000))
	})

	t.Run("bad magic", func(t *testing.T) {
		img := inesImage(1, 0, 0, 0, nil)
		img[3] = 0

		_, err := NewCart(bytes.NewReader(img))

		assert.ErrorIs(t, err, ErrInvalidHeader)
	})

	t.Run("no PRG ROM", func(t *testing.T) {
		_, err := NewCart(bytes.NewReader(inesImage(0, 1, 0, 0, nil)))

		assert.ErrorIs(t, err, ErrInvalidHeader)
	})

	t.Run("unsupported mapper", func(t *testing.T) {
		_, err := NewCart(bytes.NewReader(inesImage(1, 0, 0x10, 0x20, nil)))

		require.ErrorIs(t, err, ErrUnsupportedMapper)
		assert.Contains(t, err.Error(), "33")
	})

	t.Run("truncated PRG ROM", func(t *testing.T) {
		img := inesImage(1, 0, 0, 0, nil)

		_, err := NewCart(bytes.NewReader(img[:16+100]))

		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("short header", func(t *testing.T) {
		_, err := NewCart(bytes.NewReader([]byte{'N', 'E', 'S'}))

		assert.Error(t, err)
	})
}

func TestNewCartFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.nes")
	require.NoError(t, os.WriteFile(path, inesImage(1, 1, 0, 0, func(prg []uint8) {
		prg[0] = 0xea
	}), 0o644))

	cart, err := NewCartFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, uint8(0xea), cart.Read8(0x8000))

	_, err = NewCartFromFile(filepath.Join(t.TempDir(), "missing.nes"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
