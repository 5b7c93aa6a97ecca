package nes

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownOpcode is returned when the CPU fetches a byte that has no
	// entry in the instruction table. The CPU halts on it.
	ErrUnknownOpcode = errors.New("unknown opcode")

	// ErrIllegalWriteBack is returned when an instruction tries to store its
	// result through an addressing mode without a writable target.
	ErrIllegalWriteBack = errors.New("illegal write-back")

	ErrInvalidHeader     = errors.New("invalid iNES header")
	ErrUnsupportedMapper = errors.New("unsupported mapper")
)

// OpcodeError reports the opcode that halted the CPU and where it was fetched.
type OpcodeError struct {
	Opcode uint8
	PC     uint16
}

func (e *OpcodeError) Error() string {
	return fmt.Sprintf("unknown opcode $%02X at $%04X", e.Opcode, e.PC)
}

func (e *OpcodeError) Unwrap() error {
	return ErrUnknownOpcode
}
