package monitor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nevisdale/redwhite/internal/nes"
)

type machineMock struct {
	mock.Mock
}

func (m *machineMock) Step() error {
	return m.Called().Error(0)
}

func (m *machineMock) Reset() {
	m.Called()
}

func (m *machineMock) SetPC(pc uint16) {
	m.Called(pc)
}

func (m *machineMock) Registers() nes.Registers {
	return m.Called().Get(0).(nes.Registers)
}

func (m *machineMock) Peek(addr uint16) uint8 {
	return m.Called(addr).Get(0).(uint8)
}

func (m *machineMock) Disassemble(from uint16, count int) []nes.DisasmLine {
	return m.Called(from, count).Get(0).([]nes.DisasmLine)
}

// script feeds lines to the monitor and then reports io.EOF.
type script []string

func (s *script) ReadLine() (string, error) {
	if len(*s) == 0 {
		return "", io.EOF
	}
	line := (*s)[0]
	*s = (*s)[1:]
	return line, nil
}

func newTestMonitor(mach Machine) (*Monitor, *bytes.Buffer) {
	var out bytes.Buffer
	return New(mach, &script{}, &out), &out
}

func TestMonitor_Step(t *testing.T) {
	mach := new(machineMock)
	mach.On("Step").Return(nil).Times(3)
	mon, _ := newTestMonitor(mach)

	quit, err := mon.Exec(context.Background(), "s 3")

	require.NoError(t, err)
	assert.False(t, quit)
	mach.AssertExpectations(t)
}

func TestMonitor_StepStopsOnError(t *testing.T) {
	halt := errors.New("halted")
	mach := new(machineMock)
	mach.On("Step").Return(halt).Once()
	mon, _ := newTestMonitor(mach)

	_, err := mon.Exec(context.Background(), "s 5")

	assert.ErrorIs(t, err, halt)
	mach.AssertExpectations(t)
}

func TestMonitor_RunToBreakpoint(t *testing.T) {
	mach := new(machineMock)
	mach.On("Step").Return(nil)
	mach.On("Registers").Return(nes.Registers{PC: 0x8000}).Twice()
	mach.On("Registers").Return(nes.Registers{PC: 0x8005}).Once()
	mon, out := newTestMonitor(mach)

	_, err := mon.Exec(context.Background(), "b $8005")
	require.NoError(t, err)
	_, err = mon.Exec(context.Background(), "r")

	require.NoError(t, err)
	assert.Contains(t, out.String(), "breakpoint at $8005")
	mach.AssertNumberOfCalls(t, "Step", 3)
}

func TestMonitor_RunCancelled(t *testing.T) {
	mach := new(machineMock)
	mon, out := newTestMonitor(mach)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mon.Exec(ctx, "r")

	require.NoError(t, err)
	assert.Contains(t, out.String(), "interrupted")
	mach.AssertNotCalled(t, "Step")
}

func TestMonitor_Breakpoints(t *testing.T) {
	mon, out := newTestMonitor(new(machineMock))
	ctx := context.Background()

	for _, line := range []string{"b c000", "b 0x8000", "b $0600", "l"} {
		_, err := mon.Exec(ctx, line)
		require.NoError(t, err)
	}
	assert.Equal(t, "$0600\n$8000\n$C000\n", out.String())

	out.Reset()
	_, err := mon.Exec(ctx, "c")
	require.NoError(t, err)
	_, err = mon.Exec(ctx, "l")
	require.NoError(t, err)
	assert.Empty(t, out.String())
}

func TestMonitor_Memory(t *testing.T) {
	mach := new(machineMock)
	for addr := uint16(0x00f8); addr <= 0x0101; addr++ {
		mach.On("Peek", addr).Return(uint8(addr))
	}
	mon, out := newTestMonitor(mach)

	_, err := mon.Exec(context.Background(), "m f8 101")

	require.NoError(t, err)
	assert.Equal(t, "$00F8: F8 F9 FA FB FC FD FE FF\n$0100: 00 01\n", out.String())
}

func TestMonitor_Stack(t *testing.T) {
	mach := new(machineMock)
	mach.On("Registers").Return(nes.Registers{SP: 0xfd})
	mach.On("Peek", uint16(0x01fe)).Return(uint8(0x02))
	mach.On("Peek", uint16(0x01ff)).Return(uint8(0x80))
	mon, out := newTestMonitor(mach)

	_, err := mon.Exec(context.Background(), "t")

	require.NoError(t, err)
	assert.Equal(t, "$01FE: 02 $01FF: 80 \n", out.String())
}

func TestMonitor_Commands(t *testing.T) {
	mach := new(machineMock)
	mach.On("SetPC", uint16(0xc000)).Return().Once()
	mach.On("Reset").Return().Once()
	mach.On("Registers").Return(nes.Registers{PC: 0xc000})
	mach.On("Disassemble", uint16(0xc000), disasmLines).Return([]nes.DisasmLine{
		{Addr: 0xc000, Size: 3, Text: "JMP $C5F5 {ABS}"},
	}).Once()
	mon, out := newTestMonitor(mach)
	ctx := context.Background()

	_, err := mon.Exec(ctx, "p C000")
	require.NoError(t, err)
	_, err = mon.Exec(ctx, "e")
	require.NoError(t, err)
	_, err = mon.Exec(ctx, "i")
	require.NoError(t, err)

	assert.Contains(t, out.String(), "$C000: JMP $C5F5 {ABS}")
	mach.AssertExpectations(t)

	quit, err := mon.Exec(ctx, "Q")
	require.NoError(t, err)
	assert.True(t, quit)
}

func TestMonitor_BadInput(t *testing.T) {
	mon, _ := newTestMonitor(new(machineMock))
	ctx := context.Background()

	for _, line := range []string{"x", "b", "b zz", "s 0", "m 10", "m 20 10", "p 10000"} {
		_, err := mon.Exec(ctx, line)
		assert.Error(t, err, line)
	}

	quit, err := mon.Exec(ctx, "   ")
	assert.NoError(t, err)
	assert.False(t, quit)
}

func TestMonitor_Run(t *testing.T) {
	mach := new(machineMock)
	mach.On("Registers").Return(nes.Registers{PC: 0x8000, SP: 0xfd, P: nes.StatusFromByte(0x24), Cycles: 7})
	mach.On("Step").Return(nil).Once()
	var out bytes.Buffer
	in := &script{"s", "nope", "q", "s"}

	err := New(mach, in, &out).Run(context.Background())

	require.NoError(t, err)
	assert.Contains(t, out.String(), "PC:8000 A:00 X:00 Y:00 SP:FD P:nv-bdIzc CYC:7")
	assert.Contains(t, out.String(), `error: unknown command "nope"`)
	assert.Equal(t, script{"s"}, *in, "stops reading after q")
	mach.AssertExpectations(t)
}

func TestMonitor_RunEndOfInput(t *testing.T) {
	mach := new(machineMock)
	mach.On("Registers").Return(nes.Registers{})

	err := New(mach, &script{}, io.Discard).Run(context.Background())

	assert.NoError(t, err)
}

func TestMonitor_Integration(t *testing.T) {
	bus := nes.NewBus()
	var out bytes.Buffer
	mon := New(bus, &script{}, &out)
	ctx := context.Background()

	// RAM starts zeroed, so $0200 holds a BRK
	_, err := mon.Exec(ctx, "p 0200")
	require.NoError(t, err)
	_, err = mon.Exec(ctx, "s")
	require.NoError(t, err)

	regs := bus.Registers()
	assert.Equal(t, uint8(0xfa), regs.SP)
	assert.True(t, regs.P.InterruptDisable())
}
