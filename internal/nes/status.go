package nes

import "strings"

const (
	flagC = uint8(1 << iota) // Carry
	flagZ                    // Zero
	flagI                    // Interrupt Disable
	flagD                    // Decimal Mode
	flagB                    // Break Command
	flagU                    // Unused, always reads as set
	flagV                    // Overflow
	flagN                    // Negative
)

// Status is the packed processor status register.
//
//	7  bit  0
//	---- ----
//	NV_B DIZC
type Status uint8

// StatusFromByte unpacks a status byte. The unused bit always reads as set.
func StatusFromByte(b uint8) Status {
	return Status(b | flagU)
}

// Byte packs the status register into a single byte.
func (s Status) Byte() uint8 {
	return uint8(s) | flagU
}

func (s Status) get(flag uint8) bool {
	return uint8(s)&flag > 0
}

func (s *Status) set(flag uint8, v bool) {
	if v {
		*s |= Status(flag)
		return
	}
	*s &= ^Status(flag)
}

func (s Status) Negative() bool         { return s.get(flagN) }
func (s Status) Overflow() bool         { return s.get(flagV) }
func (s Status) Break() bool            { return s.get(flagB) }
func (s Status) Decimal() bool          { return s.get(flagD) }
func (s Status) InterruptDisable() bool { return s.get(flagI) }
func (s Status) Zero() bool             { return s.get(flagZ) }
func (s Status) Carry() bool            { return s.get(flagC) }

// String renders the flags as "NV-BDIZC", upper case for set flags.
func (s Status) String() string {
	const names = "NV-BDIZC"
	var b strings.Builder
	for i := 0; i < 8; i++ {
		c := names[i]
		if !s.get(1 << (7 - i)) {
			c = strings.ToLower(string(c))[0]
		}
		b.WriteByte(c)
	}
	return b.String()
}
