package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/profile"
	"golang.org/x/term"

	"github.com/nevisdale/redwhite/internal/monitor"
	"github.com/nevisdale/redwhite/internal/nes"
	"github.com/nevisdale/redwhite/internal/ui"
)

var (
	romFile     = flag.String("rom", "", "Path to the iNES ROM to run.")
	startPC     = flag.String("pc", "", "Start address in hex instead of the reset vector (eg: C000).")
	frames      = flag.Int("frames", 60, "Number of frames to run without the UI or monitor.")
	trace       = flag.Bool("trace", false, "Log every instruction in nestest format.")
	withUI      = flag.Bool("ui", false, "Open the debug viewer.")
	withMonitor = flag.Bool("monitor", false, "Start the terminal monitor.")
	profileMode = flag.String("profile", "", "Write a cpu or mem profile to the current directory.")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		log.Fatalln(err)
	}
}

func run() error {
	switch *profileMode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
	default:
		return fmt.Errorf("unknown profile mode %q", *profileMode)
	}

	if *romFile == "" {
		return errors.New("-rom is required")
	}
	cart, err := nes.NewCartFromFile(*romFile)
	if err != nil {
		return fmt.Errorf("couldn't load the cartridge: %w", err)
	}
	log.Printf("loaded %s, mapper %d", *romFile, cart.MapperID())

	bus := nes.NewBus()
	bus.LoadCart(cart)
	if *startPC != "" {
		pc, err := strconv.ParseUint(strings.TrimPrefix(*startPC, "$"), 16, 16)
		if err != nil {
			return fmt.Errorf("bad start address %q: %w", *startPC, err)
		}
		bus.SetPC(uint16(pc))
	}

	switch {
	case *withUI:
		return ui.RunUI(ui.New(bus))
	case *withMonitor:
		return runMonitor(bus)
	}
	return runFrames(bus, *frames)
}

func runFrames(bus *nes.Bus, n int) error {
	if !*trace {
		for i := 0; i < n; i++ {
			if err := bus.RunFrame(); err != nil {
				return err
			}
		}
		return nil
	}

	target := bus.Frame() + uint64(n)
	for bus.Frame() < target {
		log.Println(bus.TraceLine())
		if err := bus.Step(); err != nil {
			return err
		}
	}
	return nil
}

func runMonitor(bus *nes.Bus) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return monitor.New(bus, &lineScanner{bufio.NewScanner(os.Stdin)}, os.Stdout).Run(context.Background())
	}

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}, "> ")
	return monitor.New(bus, &termReader{fd: fd, t: t}, t).Run(context.Background())
}

// termReader puts the terminal in raw mode only while a line is edited, so
// Ctrl-C still interrupts a running program.
type termReader struct {
	fd int
	t  *term.Terminal
}

func (r *termReader) ReadLine() (string, error) {
	state, err := term.MakeRaw(r.fd)
	if err != nil {
		return "", fmt.Errorf("couldn't put the terminal in raw mode: %w", err)
	}
	defer term.Restore(r.fd, state)
	return r.t.ReadLine()
}

type lineScanner struct {
	s *bufio.Scanner
}

func (l *lineScanner) ReadLine() (string, error) {
	if !l.s.Scan() {
		if err := l.s.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return l.s.Text(), nil
}
