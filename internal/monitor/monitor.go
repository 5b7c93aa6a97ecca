// Package monitor is an interactive machine-language monitor for the console:
// single stepping, breakpoints, memory and stack dumps.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/exp/maps"

	"github.com/nevisdale/redwhite/internal/nes"
)

// Machine is the part of the console the monitor drives.
type Machine interface {
	Step() error
	Reset()
	SetPC(pc uint16)
	Registers() nes.Registers
	Peek(addr uint16) uint8
	Disassemble(from uint16, count int) []nes.DisasmLine
}

// LineReader returns one line of input without its newline.
type LineReader interface {
	ReadLine() (string, error)
}

const help = `s [n]     step n instructions (default 1)
r         run until a breakpoint, an error or Ctrl-C
b addr    add a breakpoint
c         clear breakpoints
l         list breakpoints
m lo hi   dump memory
t         show the top of the stack
i         disassemble from PC
p addr    set PC
e         reset
q         quit`

const disasmLines = 8

type Monitor struct {
	mach   Machine
	in     LineReader
	out    io.Writer
	breaks map[uint16]struct{}
}

func New(mach Machine, in LineReader, out io.Writer) *Monitor {
	return &Monitor{
		mach:   mach,
		in:     in,
		out:    out,
		breaks: make(map[uint16]struct{}),
	}
}

// Run reads and executes commands until q, the end of input or ctx is done.
func (mon *Monitor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		mon.printRegisters()

		line, err := mon.in.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("couldn't read command: %w", err)
		}

		quit, err := mon.Exec(ctx, line)
		if err != nil {
			fmt.Fprintf(mon.out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

// Exec runs a single command line and reports whether it asked to quit.
func (mon *Monitor) Exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	args := fields[1:]

	switch strings.ToLower(fields[0]) {
	case "q", "quit":
		return true, nil
	case "h", "help", "?":
		fmt.Fprintln(mon.out, help)
	case "s", "step":
		n := 1
		if len(args) > 0 {
			v, err := strconv.Atoi(args[0])
			if err != nil || v < 1 {
				return false, fmt.Errorf("bad step count %q", args[0])
			}
			n = v
		}
		return false, mon.step(n)
	case "r", "run":
		return false, mon.run(ctx)
	case "b", "break":
		addr, err := addressArg(args, 0)
		if err != nil {
			return false, err
		}
		mon.breaks[addr] = struct{}{}
	case "c", "clear":
		clear(mon.breaks)
	case "l", "list":
		mon.listBreaks()
	case "m", "mem":
		lo, err := addressArg(args, 0)
		if err != nil {
			return false, err
		}
		hi, err := addressArg(args, 1)
		if err != nil {
			return false, err
		}
		if hi < lo {
			return false, fmt.Errorf("bad range $%04X-$%04X", lo, hi)
		}
		mon.dump(lo, hi)
	case "t", "stack":
		mon.stack()
	case "i", "dis":
		for _, l := range mon.mach.Disassemble(mon.mach.Registers().PC, disasmLines) {
			fmt.Fprintln(mon.out, l)
		}
	case "p", "pc":
		addr, err := addressArg(args, 0)
		if err != nil {
			return false, err
		}
		mon.mach.SetPC(addr)
	case "e", "reset":
		mon.mach.Reset()
	default:
		return false, fmt.Errorf("unknown command %q, h for help", fields[0])
	}
	return false, nil
}

func (mon *Monitor) step(n int) error {
	for i := 0; i < n; i++ {
		if err := mon.mach.Step(); err != nil {
			return err
		}
	}
	return nil
}

// run steps at least once, then until PC hits a breakpoint.
func (mon *Monitor) run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(mon.out, "interrupted")
			return nil
		default:
		}

		if err := mon.mach.Step(); err != nil {
			return err
		}
		pc := mon.mach.Registers().PC
		if _, ok := mon.breaks[pc]; ok {
			fmt.Fprintf(mon.out, "breakpoint at $%04X\n", pc)
			return nil
		}
	}
}

func (mon *Monitor) listBreaks() {
	addrs := maps.Keys(mon.breaks)
	slices.Sort(addrs)
	for _, addr := range addrs {
		fmt.Fprintf(mon.out, "$%04X\n", addr)
	}
}

func (mon *Monitor) dump(lo, hi uint16) {
	for addr := uint32(lo); addr <= uint32(hi); addr++ {
		if (addr-uint32(lo))%8 == 0 {
			if addr != uint32(lo) {
				fmt.Fprintln(mon.out)
			}
			fmt.Fprintf(mon.out, "$%04X:", addr)
		}
		fmt.Fprintf(mon.out, " %02X", mon.mach.Peek(uint16(addr)))
	}
	fmt.Fprintln(mon.out)
}

// stack shows up to three bytes above the stack pointer.
func (mon *Monitor) stack() {
	sp := mon.mach.Registers().SP
	for i := 1; i <= 3 && int(sp)+i <= 0xff; i++ {
		addr := 0x0100 | uint16(sp) + uint16(i)
		fmt.Fprintf(mon.out, "$%04X: %02X ", addr, mon.mach.Peek(addr))
	}
	fmt.Fprintln(mon.out)
}

func (mon *Monitor) printRegisters() {
	r := mon.mach.Registers()
	fmt.Fprintf(mon.out, "PC:%04X A:%02X X:%02X Y:%02X SP:%02X P:%s CYC:%d\n",
		r.PC, r.A, r.X, r.Y, r.SP, r.StatusString(), r.Cycles)
}

func addressArg(args []string, i int) (uint16, error) {
	if i >= len(args) {
		return 0, errors.New("missing address")
	}
	s := strings.TrimPrefix(strings.TrimPrefix(strings.ToLower(args[i]), "$"), "0x")
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("bad address %q", args[i])
	}
	return uint16(v), nil
}
