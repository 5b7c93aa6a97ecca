package nes

type mnemonic uint8

const (
	opADC mnemonic = iota + 1
	opAND
	opASL
	opBCC
	opBCS
	opBEQ
	opBIT
	opBMI
	opBNE
	opBPL
	opBRK
	opBVC
	opBVS
	opCLC
	opCLD
	opCLI
	opCLV
	opCMP
	opCPX
	opCPY
	opDEC
	opDEX
	opDEY
	opEOR
	opINC
	opINX
	opINY
	opJMP
	opJSR
	opLDA
	opLDX
	opLDY
	opLSR
	opNOP
	opORA
	opPHA
	opPHP
	opPLA
	opPLP
	opROL
	opROR
	opRTI
	opRTS
	opSBC
	opSEC
	opSED
	opSEI
	opSTA
	opSTX
	opSTY
	opTAX
	opTAY
	opTSX
	opTXA
	opTXS
	opTYA
)

var mnemonicNames = [...]string{
	opADC: "ADC", opAND: "AND", opASL: "ASL", opBCC: "BCC", opBCS: "BCS",
	opBEQ: "BEQ", opBIT: "BIT", opBMI: "BMI", opBNE: "BNE", opBPL: "BPL",
	opBRK: "BRK", opBVC: "BVC", opBVS: "BVS", opCLC: "CLC", opCLD: "CLD",
	opCLI: "CLI", opCLV: "CLV", opCMP: "CMP", opCPX: "CPX", opCPY: "CPY",
	opDEC: "DEC", opDEX: "DEX", opDEY: "DEY", opEOR: "EOR", opINC: "INC",
	opINX: "INX", opINY: "INY", opJMP: "JMP", opJSR: "JSR", opLDA: "LDA",
	opLDX: "LDX", opLDY: "LDY", opLSR: "LSR", opNOP: "NOP", opORA: "ORA",
	opPHA: "PHA", opPHP: "PHP", opPLA: "PLA", opPLP: "PLP", opROL: "ROL",
	opROR: "ROR", opRTI: "RTI", opRTS: "RTS", opSBC: "SBC", opSEC: "SEC",
	opSED: "SED", opSEI: "SEI", opSTA: "STA", opSTX: "STX", opSTY: "STY",
	opTAX: "TAX", opTAY: "TAY", opTSX: "TSX", opTXA: "TXA", opTXS: "TXS",
	opTYA: "TYA",
}

func (m mnemonic) String() string {
	if int(m) < len(mnemonicNames) && mnemonicNames[m] != "" {
		return mnemonicNames[m]
	}
	return "???"
}

// access describes what an instruction does with its memory operand.
type access uint8

const (
	accessNone   access = iota // implied, jumps and branches
	accessRead                 // loads, arithmetic, compares
	accessWrite                // stores
	accessModify               // read-modify-write
)

func (m mnemonic) access() access {
	switch m {
	case opADC, opAND, opBIT, opCMP, opCPX, opCPY, opEOR,
		opLDA, opLDX, opLDY, opORA, opSBC:
		return accessRead
	case opSTA, opSTX, opSTY:
		return accessWrite
	case opASL, opLSR, opROL, opROR, opINC, opDEC:
		return accessModify
	}
	return accessNone
}

// instr describes one opcode. pageCycle marks opcodes that take one more
// cycle when resolving their operand crosses a page.
type instr struct {
	op        mnemonic
	mode      addrMode
	cycles    uint8
	pageCycle bool
}

func (in instr) valid() bool {
	return in.op != 0
}

// opcodes holds the documented instruction set. Empty entries are opcodes
// the console never executes.
var opcodes = [0x100]instr{
	0x00: {op: opBRK, mode: addrModeIMP, cycles: 7},
	0x01: {op: opORA, mode: addrModeINDX, cycles: 6},
	0x05: {op: opORA, mode: addrModeZP, cycles: 3},
	0x06: {op: opASL, mode: addrModeZP, cycles: 5},
	0x08: {op: opPHP, mode: addrModeIMP, cycles: 3},
	0x09: {op: opORA, mode: addrModeIMM, cycles: 2},
	0x0a: {op: opASL, mode: addrModeACC, cycles: 2},
	0x0d: {op: opORA, mode: addrModeABS, cycles: 4},
	0x0e: {op: opASL, mode: addrModeABS, cycles: 6},
	0x10: {op: opBPL, mode: addrModeREL, cycles: 2},
	0x11: {op: opORA, mode: addrModeINDY, cycles: 5, pageCycle: true},
	0x15: {op: opORA, mode: addrModeZPX, cycles: 4},
	0x16: {op: opASL, mode: addrModeZPX, cycles: 6},
	0x18: {op: opCLC, mode: addrModeIMP, cycles: 2},
	0x19: {op: opORA, mode: addrModeABSY, cycles: 4, pageCycle: true},
	0x1d: {op: opORA, mode: addrModeABSX, cycles: 4, pageCycle: true},
	0x1e: {op: opASL, mode: addrModeABSX, cycles: 7},
	0x20: {op: opJSR, mode: addrModeABS, cycles: 6},
	0x21: {op: opAND, mode: addrModeINDX, cycles: 6},
	0x24: {op: opBIT, mode: addrModeZP, cycles: 3},
	0x25: {op: opAND, mode: addrModeZP, cycles: 3},
	0x26: {op: opROL, mode: addrModeZP, cycles: 5},
	0x28: {op: opPLP, mode: addrModeIMP, cycles: 4},
	0x29: {op: opAND, mode: addrModeIMM, cycles: 2},
	0x2a: {op: opROL, mode: addrModeACC, cycles: 2},
	0x2c: {op: opBIT, mode: addrModeABS, cycles: 4},
	0x2d: {op: opAND, mode: addrModeABS, cycles: 4},
	0x2e: {op: opROL, mode: addrModeABS, cycles: 6},
	0x30: {op: opBMI, mode: addrModeREL, cycles: 2},
	0x31: {op: opAND, mode: addrModeINDY, cycles: 5, pageCycle: true},
	0x35: {op: opAND, mode: addrModeZPX, cycles: 4},
	0x36: {op: opROL, mode: addrModeZPX, cycles: 6},
	0x38: {op: opSEC, mode: addrModeIMP, cycles: 2},
	0x39: {op: opAND, mode: addrModeABSY, cycles: 4, pageCycle: true},
	0x3d: {op: opAND, mode: addrModeABSX, cycles: 4, pageCycle: true},
	0x3e: {op: opROL, mode: addrModeABSX, cycles: 7},
	0x40: {op: opRTI, mode: addrModeIMP, cycles: 6},
	0x41: {op: opEOR, mode: addrModeINDX, cycles: 6},
	0x45: {op: opEOR, mode: addrModeZP, cycles: 3},
	0x46: {op: opLSR, mode: addrModeZP, cycles: 5},
	0x48: {op: opPHA, mode: addrModeIMP, cycles: 3},
	0x49: {op: opEOR, mode: addrModeIMM, cycles: 2},
	0x4a: {op: opLSR, mode: addrModeACC, cycles: 2},
	0x4c: {op: opJMP, mode: addrModeABS, cycles: 3},
	0x4d: {op: opEOR, mode: addrModeABS, cycles: 4},
	0x4e: {op: opLSR, mode: addrModeABS, cycles: 6},
	0x50: {op: opBVC, mode: addrModeREL, cycles: 2},
	0x51: {op: opEOR, mode: addrModeINDY, cycles: 5, pageCycle: true},
	0x55: {op: opEOR, mode: addrModeZPX, cycles: 4},
	0x56: {op: opLSR, mode: addrModeZPX, cycles: 6},
	0x58: {op: opCLI, mode: addrModeIMP, cycles: 2},
	0x59: {op: opEOR, mode: addrModeABSY, cycles: 4, pageCycle: true},
	0x5d: {op: opEOR, mode: addrModeABSX, cycles: 4, pageCycle: true},
	0x5e: {op: opLSR, mode: addrModeABSX, cycles: 7},
	0x60: {op: opRTS, mode: addrModeIMP, cycles: 6},
	0x61: {op: opADC, mode: addrModeINDX, cycles: 6},
	0x65: {op: opADC, mode: addrModeZP, cycles: 3},
	0x66: {op: opROR, mode: addrModeZP, cycles: 5},
	0x68: {op: opPLA, mode: addrModeIMP, cycles: 4},
	0x69: {op: opADC, mode: addrModeIMM, cycles: 2},
	0x6a: {op: opROR, mode: addrModeACC, cycles: 2},
	0x6c: {op: opJMP, mode: addrModeIND, cycles: 5},
	0x6d: {op: opADC, mode: addrModeABS, cycles: 4},
	0x6e: {op: opROR, mode: addrModeABS, cycles: 6},
	0x70: {op: opBVS, mode: addrModeREL, cycles: 2},
	0x71: {op: opADC, mode: addrModeINDY, cycles: 5, pageCycle: true},
	0x75: {op: opADC, mode: addrModeZPX, cycles: 4},
	0x76: {op: opROR, mode: addrModeZPX, cycles: 6},
	0x78: {op: opSEI, mode: addrModeIMP, cycles: 2},
	0x79: {op: opADC, mode: addrModeABSY, cycles: 4, pageCycle: true},
	0x7d: {op: opADC, mode: addrModeABSX, cycles: 4, pageCycle: true},
	0x7e: {op: opROR, mode: addrModeABSX, cycles: 7},
	0x81: {op: opSTA, mode: addrModeINDX, cycles: 6},
	0x84: {op: opSTY, mode: addrModeZP, cycles: 3},
	0x85: {op: opSTA, mode: addrModeZP, cycles: 3},
	0x86: {op: opSTX, mode: addrModeZP, cycles: 3},
	0x88: {op: opDEY, mode: addrModeIMP, cycles: 2},
	0x8a: {op: opTXA, mode: addrModeIMP, cycles: 2},
	0x8c: {op: opSTY, mode: addrModeABS, cycles: 4},
	0x8d: {op: opSTA, mode: addrModeABS, cycles: 4},
	0x8e: {op: opSTX, mode: addrModeABS, cycles: 4},
	0x90: {op: opBCC, mode: addrModeREL, cycles: 2},
	0x91: {op: opSTA, mode: addrModeINDY, cycles: 6},
	0x94: {op: opSTY, mode: addrModeZPX, cycles: 4},
	0x95: {op: opSTA, mode: addrModeZPX, cycles: 4},
	0x96: {op: opSTX, mode: addrModeZPY, cycles: 4},
	0x98: {op: opTYA, mode: addrModeIMP, cycles: 2},
	0x99: {op: opSTA, mode: addrModeABSY, cycles: 5},
	0x9a: {op: opTXS, mode: addrModeIMP, cycles: 2},
	0x9d: {op: opSTA, mode: addrModeABSX, cycles: 5},
	0xa0: {op: opLDY, mode: addrModeIMM, cycles: 2},
	0xa1: {op: opLDA, mode: addrModeINDX, cycles: 6},
	0xa2: {op: opLDX, mode: addrModeIMM, cycles: 2},
	0xa4: {op: opLDY, mode: addrModeZP, cycles: 3},
	0xa5: {op: opLDA, mode: addrModeZP, cycles: 3},
	0xa6: {op: opLDX, mode: addrModeZP, cycles: 3},
	0xa8: {op: opTAY, mode: addrModeIMP, cycles: 2},
	0xa9: {op: opLDA, mode: addrModeIMM, cycles: 2},
	0xaa: {op: opTAX, mode: addrModeIMP, cycles: 2},
	0xac: {op: opLDY, mode: addrModeABS, cycles: 4},
	0xad: {op: opLDA, mode: addrModeABS, cycles: 4},
	0xae: {op: opLDX, mode: addrModeABS, cycles: 4},
	0xb0: {op: opBCS, mode: addrModeREL, cycles: 2},
	0xb1: {op: opLDA, mode: addrModeINDY, cycles: 5, pageCycle: true},
	0xb4: {op: opLDY, mode: addrModeZPX, cycles: 4},
	0xb5: {op: opLDA, mode: addrModeZPX, cycles: 4},
	0xb6: {op: opLDX, mode: addrModeZPY, cycles: 4},
	0xb8: {op: opCLV, mode: addrModeIMP, cycles: 2},
	0xb9: {op: opLDA, mode: addrModeABSY, cycles: 4, pageCycle: true},
	0xba: {op: opTSX, mode: addrModeIMP, cycles: 2},
	0xbc: {op: opLDY, mode: addrModeABSX, cycles: 4, pageCycle: true},
	0xbd: {op: opLDA, mode: addrModeABSX, cycles: 4, pageCycle: true},
	0xbe: {op: opLDX, mode: addrModeABSY, cycles: 4, pageCycle: true},
	0xc0: {op: opCPY, mode: addrModeIMM, cycles: 2},
	0xc1: {op: opCMP, mode: addrModeINDX, cycles: 6},
	0xc4: {op: opCPY, mode: addrModeZP, cycles: 3},
	0xc5: {op: opCMP, mode: addrModeZP, cycles: 3},
	0xc6: {op: opDEC, mode: addrModeZP, cycles: 5},
	0xc8: {op: opINY, mode: addrModeIMP, cycles: 2},
	0xc9: {op: opCMP, mode: addrModeIMM, cycles: 2},
	0xca: {op: opDEX, mode: addrModeIMP, cycles: 2},
	0xcc: {op: opCPY, mode: addrModeABS, cycles: 4},
	0xcd: {op: opCMP, mode: addrModeABS, cycles: 4},
	0xce: {op: opDEC, mode: addrModeABS, cycles: 6},
	0xd0: {op: opBNE, mode: addrModeREL, cycles: 2},
	0xd1: {op: opCMP, mode: addrModeINDY, cycles: 5, pageCycle: true},
	0xd5: {op: opCMP, mode: addrModeZPX, cycles: 4},
	0xd6: {op: opDEC, mode: addrModeZPX, cycles: 6},
	0xd8: {op: opCLD, mode: addrModeIMP, cycles: 2},
	0xd9: {op: opCMP, mode: addrModeABSY, cycles: 4, pageCycle: true},
	0xdd: {op: opCMP, mode: addrModeABSX, cycles: 4, pageCycle: true},
	0xde: {op: opDEC, mode: addrModeABSX, cycles: 7},
	0xe0: {op: opCPX, mode: addrModeIMM, cycles: 2},
	0xe1: {op: opSBC, mode: addrModeINDX, cycles: 6},
	0xe4: {op: opCPX, mode: addrModeZP, cycles: 3},
	0xe5: {op: opSBC, mode: addrModeZP, cycles: 3},
	0xe6: {op: opINC, mode: addrModeZP, cycles: 5},
	0xe8: {op: opINX, mode: addrModeIMP, cycles: 2},
	0xe9: {op: opSBC, mode: addrModeIMM, cycles: 2},
	0xea: {op: opNOP, mode: addrModeIMP, cycles: 2},
	0xec: {op: opCPX, mode: addrModeABS, cycles: 4},
	0xed: {op: opSBC, mode: addrModeABS, cycles: 4},
	0xee: {op: opINC, mode: addrModeABS, cycles: 6},
	0xf0: {op: opBEQ, mode: addrModeREL, cycles: 2},
	0xf1: {op: opSBC, mode: addrModeINDY, cycles: 5, pageCycle: true},
	0xf5: {op: opSBC, mode: addrModeZPX, cycles: 4},
	0xf6: {op: opINC, mode: addrModeZPX, cycles: 6},
	0xf8: {op: opSED, mode: addrModeIMP, cycles: 2},
	0xf9: {op: opSBC, mode: addrModeABSY, cycles: 4, pageCycle: true},
	0xfd: {op: opSBC, mode: addrModeABSX, cycles: 4, pageCycle: true},
	0xfe: {op: opINC, mode: addrModeABSX, cycles: 7},
}

func opcodeIsSupported(opcode uint8) bool {
	return opcodes[opcode].valid()
}
