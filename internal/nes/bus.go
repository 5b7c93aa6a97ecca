package nes

// ppuDotsPerCycle is how many PPU dots elapse in one CPU cycle.
const ppuDotsPerCycle = 3

// Bus is the console: it owns the CPU, the memory map and the devices on it.
type Bus struct {
	cpu  *CPU
	ppu  *PPU
	ram  *RAM
	mem  *cpuMemory
	cart *Cart
}

func NewBus() *Bus {
	b := &Bus{}
	b.ram = NewRAM()
	b.ppu = NewPPU()
	b.mem = newCPUMemory(b.ram, b.ppu)
	b.cpu = NewCPU(b.mem)
	return b
}

func (b *Bus) LoadCart(cart *Cart) {
	b.cart = cart
	b.mem.cart = cart
	b.Reset()
}

// Reset restores the CPU registers and loads PC from the reset vector.
func (b *Bus) Reset() {
	b.cpu.Reset()
	b.cpu.SetPC(b.mem.Read16(resetVector))
}

// Step runs one CPU step and the PPU dots that elapse meanwhile.
func (b *Bus) Step() error {
	cycles, err := b.cpu.Step()
	if err != nil {
		return err
	}
	for i := uint64(0); i < cycles*ppuDotsPerCycle; i++ {
		if b.ppu.Tic() {
			b.cpu.NMI()
		}
	}
	return nil
}

// RunCycles steps until at least n CPU cycles have elapsed.
func (b *Bus) RunCycles(n uint64) error {
	target := b.cpu.Cycles() + n
	for b.cpu.Cycles() < target {
		if err := b.Step(); err != nil {
			return err
		}
	}
	return nil
}

// RunFrame steps until the PPU starts a new frame.
func (b *Bus) RunFrame() error {
	frame := b.ppu.Frame()
	for b.ppu.Frame() == frame {
		if err := b.Step(); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bus) Registers() Registers {
	return b.cpu.Registers()
}

func (b *Bus) SetPC(pc uint16) {
	b.cpu.SetPC(pc)
}

func (b *Bus) Cycles() uint64 {
	return b.cpu.Cycles()
}

func (b *Bus) Err() error {
	return b.cpu.Err()
}

func (b *Bus) Frame() uint64 {
	return b.ppu.Frame()
}

// Peek reads addr without side effects on the devices.
func (b *Bus) Peek(addr uint16) uint8 {
	return b.mem.Peek(addr)
}

func (b *Bus) Disassemble(from uint16, count int) []DisasmLine {
	return Disassemble(b.mem, from, count)
}

func (b *Bus) TraceLine() string {
	return b.cpu.TraceLine()
}
