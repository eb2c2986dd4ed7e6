// Package bus wires the CPU, PPU, memory, cartridge, and controller ports
// into the console-level machine (spec §4.6, §6).
package bus

import (
	"nesemu/internal/cartridge"
	"nesemu/internal/cpu"
	"nesemu/internal/diag"
	"nesemu/internal/input"
	"nesemu/internal/memory"
	"nesemu/internal/palette"
	"nesemu/internal/ppu"
)

// Bus is the assembled NES console: CPU, PPU, CPU/PPU address spaces, the
// controller ports, and the cartridge currently loaded.
type Bus struct {
	CPU    *cpu.CPU
	PPU    *ppu.PPU
	Memory *memory.Memory
	Input  *input.Ports

	cartridge memory.CartridgeInterface
	ppuMemory *memory.PPUMemory
	log       *diag.Logger

	cpuCycles  uint64
	frameCount uint64

	dmaSuspendCycles uint64
	dmaInProgress    bool

	vblankHit bool
}

// New creates a console with no cartridge loaded. Load a cartridge with
// LoadCartridge before calling Reset or Step.
func New(log *diag.Logger) *Bus {
	if log == nil {
		log = diag.Discard
	}
	b := &Bus{log: log}

	b.PPU = ppu.New()
	b.Input = input.NewPorts()
	b.Memory = memory.New(b.PPU, nil)
	b.Memory.SetInputSystem(b.Input)
	b.CPU = cpu.New(b.Memory, log)

	b.PPU.SetNMICallback(func() { b.CPU.TriggerNMI() })
	b.PPU.SetVBlankCallback(b.handleVBlank)
	b.Memory.SetDMACallback(b.triggerOAMDMA)

	return b
}

// handleVBlank runs once per frame, synchronously at v-blank entry (spec
// §9: the PPU's single frame-ready callback).
func (b *Bus) handleVBlank() {
	b.frameCount++
	b.vblankHit = true
}

// LoadCartridge inserts a cartridge, rebuilding the PPU's nametable
// mirroring and resetting the console to its power-up state (spec §6
// load_cartridge).
func (b *Bus) LoadCartridge(cart *cartridge.Cartridge) {
	b.cartridge = cart
	b.Memory.SetCartridge(cart)

	b.ppuMemory = memory.NewPPUMemory(cart, cart.GetMirrorMode())
	b.PPU.SetMemory(b.ppuMemory)

	b.PowerOn()
}

// Reset performs the console-level soft reset (spec §4.6): the CPU's
// SP-=3/PC-from-vector reset, with the PPU and timing counters returned
// to their power-up state.
func (b *Bus) Reset() {
	b.CPU.SoftReset()
	b.PPU.Reset()
	b.cpuCycles = 0
	b.frameCount = 0
	b.dmaSuspendCycles = 0
	b.dmaInProgress = false
	b.vblankHit = false
}

// PowerOn performs a full power-up reset, re-initializing CPU registers
// and flags rather than preserving them (spec §4.6 contrasts this with
// the console's front-panel reset button).
func (b *Bus) PowerOn() {
	b.CPU.Reset()
	b.PPU.Reset()
	b.cpuCycles = 0
	b.frameCount = 0
	b.dmaSuspendCycles = 0
	b.dmaInProgress = false
	b.vblankHit = false
}

// Step executes one CPU instruction (or one DMA stall cycle), then clocks
// the PPU three times per CPU cycle consumed (spec §4.6).
func (b *Bus) Step() uint64 {
	var cpuCycles uint64

	if b.dmaSuspendCycles > 0 {
		cpuCycles = 1
		b.dmaSuspendCycles--
		if b.dmaSuspendCycles == 0 {
			b.dmaInProgress = false
		}
	} else {
		cpuCycles = b.CPU.Step()
	}

	for i := uint64(0); i < cpuCycles*3; i++ {
		b.PPU.Step()
	}

	b.cpuCycles += cpuCycles
	return cpuCycles
}

// RenderFullFrame steps the console until exactly one v-blank callback has
// fired, then returns the completed frame (spec §6 render_full_frame).
func (b *Bus) RenderFullFrame() []uint8 {
	b.vblankHit = false
	for !b.vblankHit {
		b.Step()
	}
	return b.PPU.FrameBuffer()
}

// triggerOAMDMA performs an OAM DMA transfer (spec §4.1): 256 bytes copied
// from sourcePage<<8 into OAM, stalling the CPU for 513 cycles (514 if the
// transfer starts on an odd CPU cycle).
func (b *Bus) triggerOAMDMA(sourcePage uint8) {
	if b.dmaInProgress {
		return
	}

	dmaCycles := uint64(513)
	if b.cpuCycles%2 == 1 {
		dmaCycles = 514
	}
	b.dmaInProgress = true
	b.dmaSuspendCycles = dmaCycles

	base := uint16(sourcePage) << 8
	for i := 0; i < 256; i++ {
		b.PPU.WriteOAM(b.Memory.Read(base + uint16(i)))
	}
}

// RequestIRQ raises a maskable interrupt request for the next instruction
// boundary (spec §6 request_irq debug hook).
func (b *Bus) RequestIRQ() { b.CPU.TriggerIRQ() }

// RequestNMI raises a non-maskable interrupt directly, bypassing the PPU
// (spec §6 request_nmi debug hook).
func (b *Bus) RequestNMI() { b.CPU.TriggerNMI() }

// AttachInput plugs a controller device into port 0 or 1 (spec §6
// attach_input).
func (b *Bus) AttachInput(port int, device input.Device) {
	b.Input.Attach(port, device)
}

// DetachInput disconnects port 0 or 1 (spec §6 detach_input).
func (b *Bus) DetachInput(port int) {
	b.Input.Detach(port)
}

// JoypadSetButtons replaces the full button bitmap held by a Joypad
// attached at the given port, if any.
func (b *Bus) JoypadSetButtons(port int, bitmap uint8) {
	var device input.Device
	switch port {
	case 0:
		device = b.Input.Port0
	case 1:
		device = b.Input.Port1
	}
	if j, ok := device.(*input.Joypad); ok {
		j.SetButtons(bitmap)
	}
}

// ZapperSet updates the trigger/light-sensed state of a LightGun attached
// at the given port, if any.
func (b *Bus) ZapperSet(port int, trigger, light bool) {
	var device input.Device
	switch port {
	case 0:
		device = b.Input.Port0
	case 1:
		device = b.Input.Port1
	}
	if g, ok := device.(*input.LightGun); ok {
		g.SetState(trigger, light)
	}
}

// FrameRGBA8888 returns the current frame expanded to 4-bytes-per-pixel
// RGBA, for host presentation layers that want a byte buffer.
func (b *Bus) FrameRGBA8888() []uint8 {
	src := b.PPU.FrameBuffer()
	dst := make([]uint8, len(src)*4)
	palette.RGBA8888(src, dst)
	return dst
}

// FrameRGB888 returns the current frame expanded to 3-bytes-per-pixel RGB.
func (b *Bus) FrameRGB888() []uint8 {
	src := b.PPU.FrameBuffer()
	dst := make([]uint8, len(src)*3)
	palette.RGB888(src, dst)
	return dst
}

// FrameRGB8888Packed returns the current frame expanded to one packed
// 0x00RRGGBB uint32 per pixel.
func (b *Bus) FrameRGB8888Packed() []uint32 {
	src := b.PPU.FrameBuffer()
	dst := make([]uint32, len(src))
	palette.RGB8888Packed(src, dst)
	return dst
}

// CycleCount returns the total CPU cycles executed since the last reset.
func (b *Bus) CycleCount() uint64 { return b.cpuCycles }

// FrameCount returns the number of frames rendered since the last reset.
func (b *Bus) FrameCount() uint64 { return b.frameCount }

// IsDMAInProgress reports whether an OAM DMA stall is in progress.
func (b *Bus) IsDMAInProgress() bool { return b.dmaInProgress }
