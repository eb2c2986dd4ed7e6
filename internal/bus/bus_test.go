package bus

import (
	"bytes"
	"testing"

	"nesemu/internal/cartridge"
	"nesemu/internal/input"
)

func buildINES(prg, chr []uint8, flags6 uint8) []byte {
	header := make([]byte, 16)
	copy(header[0:4], "NES\x1A")
	header[4] = uint8(len(prg) / 16384)
	header[5] = uint8(len(chr) / 8192)
	header[6] = flags6

	buf := new(bytes.Buffer)
	buf.Write(header)
	buf.Write(prg)
	buf.Write(chr)
	return buf.Bytes()
}

// newTestConsole builds a console around a single NOP-filled PRG bank whose
// reset vector points at $8000, so Step can run freely without crashing
// into undefined opcodes.
func newTestConsole(t *testing.T) *Bus {
	t.Helper()
	prg := make([]uint8, 16384)
	for i := range prg {
		prg[i] = 0xEA // NOP
	}
	prg[0x3FFC] = 0x00
	prg[0x3FFD] = 0x80 // reset vector -> $8000
	chr := make([]uint8, 8192)

	data := buildINES(prg, chr, 0x00)
	cart, err := cartridge.LoadFromReader(bytes.NewReader(data), nil)
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	b := New(nil)
	b.LoadCartridge(cart)
	return b
}

func TestResetLoadsPCFromVector(t *testing.T) {
	b := newTestConsole(t)
	if b.CPU.PC != 0x8000 {
		t.Errorf("PC = %#04x, want 0x8000", b.CPU.PC)
	}
}

func TestStepRunsPPUThreeTimesPerCPUCycle(t *testing.T) {
	b := newTestConsole(t)

	// After reset the PPU sits at scanline 261, dot 0, and enters v-blank on
	// its 82524th dot (341 + 241*341 + 2). At three dots per CPU cycle and
	// 2-cycle NOPs, that is reached after exactly 27508 CPU cycles.
	for b.FrameCount() == 0 {
		if cycles := b.Step(); cycles == 0 {
			t.Fatalf("Step() consumed zero CPU cycles")
		}
	}
	if got := b.CycleCount(); got != 27508 {
		t.Errorf("v-blank reached after %d CPU cycles, want 27508", got)
	}
}

func TestRenderFullFrameFiresExactlyOneVBlank(t *testing.T) {
	b := newTestConsole(t)
	before := b.FrameCount()
	b.RenderFullFrame()
	after := b.FrameCount()

	if after != before+1 {
		t.Errorf("FrameCount advanced by %d, want 1", after-before)
	}
}

func TestOAMDMAStallsCPU(t *testing.T) {
	b := newTestConsole(t)

	b.Memory.Write(0x4014, 0x00)
	if !b.IsDMAInProgress() {
		t.Fatalf("DMA should be in progress immediately after a $4014 write")
	}

	total := uint64(0)
	for b.IsDMAInProgress() {
		total += b.Step()
	}
	if total < 513 {
		t.Errorf("OAM DMA stalled the CPU for %d cycles, want at least 513", total)
	}
}

func TestAttachAndDetachJoypad(t *testing.T) {
	b := newTestConsole(t)
	j := input.NewJoypad()
	b.AttachInput(0, j)

	b.JoypadSetButtons(0, uint8(input.ButtonA))
	if b.Input.Port0.(*input.Joypad) != j {
		t.Fatalf("AttachInput did not install the joypad at port 0")
	}

	b.DetachInput(0)
	if _, ok := b.Input.Port0.(input.Disconnected); !ok {
		t.Errorf("DetachInput should leave port 0 disconnected")
	}
}

func TestFrameRGBA8888Length(t *testing.T) {
	b := newTestConsole(t)
	pix := b.FrameRGBA8888()
	if len(pix) != 256*240*4 {
		t.Errorf("len(FrameRGBA8888()) = %d, want %d", len(pix), 256*240*4)
	}
}
