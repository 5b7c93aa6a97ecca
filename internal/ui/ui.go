package ui

import (
	"fmt"
	"image/color"
	"log"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/nevisdale/redwhite/internal/nes"
)

// P - pause
// R - one step and stop

type UI struct {
	bus    *nes.Bus
	paused bool
	err    error
}

func New(bus *nes.Bus) *UI {
	return &UI{
		bus: bus,
	}
}

func (ui *UI) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		ui.paused = !ui.paused
	}

	if ui.err != nil {
		return nil
	}

	var err error
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		ui.paused = true
		err = ui.bus.Step()
	case !ui.paused:
		err = ui.bus.RunFrame()
	}
	if err != nil {
		log.Printf("cpu halted: %v", err)
		ui.err = err
	}
	return nil
}

func (ui *UI) Draw(screen *ebiten.Image) {
	regs := ui.bus.Registers()

	var infoStr strings.Builder
	fmt.Fprintf(&infoStr, " FPS: %0.0f FRAME: %d\n", ebiten.ActualFPS(), ui.bus.Frame())
	fmt.Fprintf(&infoStr, " STATUS: %s\n", regs.StatusString())
	fmt.Fprintf(&infoStr, " PC: $%04X\n", regs.PC)
	fmt.Fprintf(&infoStr, " A: $%02X [%03d]\n", regs.A, regs.A)
	fmt.Fprintf(&infoStr, " X: $%02X [%03d]\n", regs.X, regs.X)
	fmt.Fprintf(&infoStr, " Y: $%02X [%03d]\n", regs.Y, regs.Y)
	fmt.Fprintf(&infoStr, " SP: $%02X\n", regs.SP)
	fmt.Fprintf(&infoStr, " CYC: %d\n\n", regs.Cycles)

	for i, line := range ui.bus.Disassemble(regs.PC, disasmLines) {
		marker := " "
		if i == 0 {
			marker = "*"
		}
		infoStr.WriteString(marker + line.String() + "\n")
	}

	vector.DrawFilledRect(screen, 0, 0, cpuPanelWidth, screenHeight, color.RGBA{50, 50, 50, 255}, false)
	ebitenutil.DebugPrintAt(screen, infoStr.String(), 0, 0)

	var memStr strings.Builder
	memStr.WriteString("ZERO PAGE\n")
	ui.dump(&memStr, 0x0000, 16)
	memStr.WriteString("STACK\n")
	ui.dump(&memStr, 0x0180, 8)
	ebitenutil.DebugPrintAt(screen, memStr.String(), cpuPanelWidth+10, 0)

	if ui.err != nil {
		vector.DrawFilledRect(screen, 0, screenHeight-lineHeight, screenWidth, lineHeight, color.RGBA{160, 30, 30, 255}, false)
		ebitenutil.DebugPrintAt(screen, " HALTED: "+ui.err.Error(), 0, screenHeight-lineHeight)
	} else if ui.paused {
		ebitenutil.DebugPrintAt(screen, " PAUSED (P resume, R step)", 0, screenHeight-lineHeight)
	}
}

// dump writes rows of 16 bytes starting at from.
func (ui *UI) dump(sb *strings.Builder, from uint16, rows int) {
	for r := 0; r < rows; r++ {
		addr := from + uint16(r*16)
		fmt.Fprintf(sb, "$%04X:", addr)
		for i := uint16(0); i < 16; i++ {
			fmt.Fprintf(sb, " %02X", ui.bus.Peek(addr+i))
		}
		sb.WriteString("\n")
	}
}

const (
	screenWidth   = 640
	screenHeight  = 480
	cpuPanelWidth = 250
	lineHeight    = 16
	disasmLines   = 16
)

func (ui *UI) Layout(_, _ int) (int, int) {
	return screenWidth, screenHeight
}

func RunUI(ui *UI) error {
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(screenWidth*2, screenHeight*2)
	ebiten.SetWindowTitle("redwhite")
	ebiten.SetTPS(60)
	return ebiten.RunGame(ui)
}
