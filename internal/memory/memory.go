// Package memory implements the CPU-visible address space (spec §4.1):
// RAM mirroring, the PPU register window, controller ports, OAM DMA, and
// delegation to the cartridge mapper; and the PPU-visible address space
// (nametables, palette RAM, CHR via the mapper).
package memory

import "nesemu/internal/cartridge"

// MirrorMode is an alias of the cartridge's mirroring mode: the PPU
// memory's nametable mirroring is entirely cartridge-determined (spec
// §9, "cartridge mirroring mode... threaded through from the iNES
// header").
type MirrorMode = cartridge.MirrorMode

const (
	MirrorHorizontal    = cartridge.MirrorHorizontal
	MirrorVertical      = cartridge.MirrorVertical
	MirrorSingleScreen0 = cartridge.MirrorSingleScreen0
	MirrorSingleScreen1 = cartridge.MirrorSingleScreen1
	MirrorFourScreen    = cartridge.MirrorFourScreen
)

// PPUInterface is the capability set Memory needs from the PPU: the
// $2000-$2007 register window.
type PPUInterface interface {
	ReadRegister(address uint16) uint8
	WriteRegister(address uint16, value uint8)
}

// InputInterface is the capability set Memory needs from the controller
// ports: $4016/$4017.
type InputInterface interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// CartridgeInterface is the capability set Memory needs from the
// cartridge: PRG and CHR read/write, routed through the mapper.
type CartridgeInterface interface {
	ReadPRG(address uint16) uint8
	WritePRG(address uint16, value uint8)
	ReadCHR(address uint16) uint8
	WriteCHR(address uint16, value uint8)
}

// Memory is the CPU-visible address space (spec §4.1).
type Memory struct {
	ram [0x800]uint8

	ppuRegisters PPUInterface
	inputSystem  InputInterface
	cartridge    CartridgeInterface

	dmaCallback func(uint8)

	// openBusValue is the last byte that crossed the bus on any read; it
	// is returned for reads of unmapped regions (spec §9, "open-bus
	// value tracking... kept because it is already fully implemented").
	openBusValue uint8
}

// New creates a Memory with the given PPU register window and
// cartridge. cart may be nil until LoadCartridge wires one in later.
func New(ppu PPUInterface, cart CartridgeInterface) *Memory {
	mem := &Memory{
		ppuRegisters: ppu,
		cartridge:    cart,
	}
	mem.initializePowerUpRAM()
	return mem
}

// SetInputSystem attaches the controller ports for $4016/$4017 access.
func (m *Memory) SetInputSystem(input InputInterface) {
	m.inputSystem = input
}

// SetCartridge rebinds the cartridge, for console-level ROM loading.
func (m *Memory) SetCartridge(cart CartridgeInterface) {
	m.cartridge = cart
}

// SetDMACallback installs the callback Write uses to trigger OAM DMA on
// a $4014 write.
func (m *Memory) SetDMACallback(callback func(uint8)) {
	m.dmaCallback = callback
}

// initializePowerUpRAM fills RAM with the NES's well-known power-up
// pattern: mostly $FF with a handful of $00 bytes scattered through it.
func (m *Memory) initializePowerUpRAM() {
	for i := range m.ram {
		m.ram[i] = 0xFF
	}
	for i := 0; i < len(m.ram); i += 0x40 {
		m.ram[i] = 0x00
	}
}

// Read reads a byte from the CPU address space (spec §4.1).
func (m *Memory) Read(address uint16) uint8 {
	var value uint8

	switch {
	case address < 0x2000:
		value = m.ram[address&0x07FF]

	case address < 0x4000:
		value = m.ppuRegisters.ReadRegister(0x2000 + (address & 0x0007))

	case address < 0x4020:
		switch address {
		case 0x4016, 0x4017:
			if m.inputSystem != nil {
				value = m.inputSystem.Read(address)
			}
		default:
			// Remaining APU/IO registers are write-only or unimplemented
			// (APU is a Non-goal); reads return open bus (spec §4.1).
			value = m.openBusValue
		}

	case address >= 0x6000 && address < 0x8000:
		if m.cartridge != nil {
			value = m.cartridge.ReadPRG(address)
		} else {
			value = m.openBusValue
		}

	case address < 0x8000:
		// $4020-$5FFF: cartridge expansion area, unmapped for NROM.
		value = m.openBusValue

	default:
		if m.cartridge != nil {
			value = m.cartridge.ReadPRG(address)
		} else {
			value = m.openBusValue
		}
	}

	m.openBusValue = value
	return value
}

// Write writes a byte to the CPU address space (spec §4.1).
func (m *Memory) Write(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		m.ram[address&0x07FF] = value

	case address < 0x4000:
		m.ppuRegisters.WriteRegister(0x2000+(address&0x0007), value)

	case address < 0x4020:
		switch address {
		case 0x4014:
			if m.dmaCallback != nil {
				m.dmaCallback(value)
			} else {
				m.performOAMDMA(value)
			}
		case 0x4016:
			if m.inputSystem != nil {
				m.inputSystem.Write(address, value)
			}
		default:
			// Remaining APU/IO registers: no-op in scope (Non-goal).
		}

	case address >= 0x6000 && address < 0x8000:
		if m.cartridge != nil {
			m.cartridge.WritePRG(address, value)
		}

	case address < 0x8000:
		// $4020-$5FFF: unmapped, writes discarded.

	default:
		if m.cartridge != nil {
			m.cartridge.WritePRG(address, value)
		}
	}
}

// performOAMDMA is the fallback DMA path used when no callback is
// installed; the console normally installs one that also charges the
// 513/514-cycle stall (spec §4.1).
func (m *Memory) performOAMDMA(page uint8) {
	base := uint16(page) << 8
	for i := uint16(0); i < 256; i++ {
		value := m.Read(base + i)
		m.ppuRegisters.WriteRegister(0x2004, value)
	}
}

// PPUMemory is the PPU-visible address space: pattern tables via the
// mapper, nametable VRAM with cartridge-determined mirroring (2 KiB in
// use, all 4 KiB of the backing array in four-screen mode),
// and 32 bytes of palette RAM (spec §4.4 "VRAM address map").
type PPUMemory struct {
	vram       [0x1000]uint8
	paletteRAM [32]uint8
	cartridge  CartridgeInterface
	mirroring  MirrorMode
}

// NewPPUMemory creates a PPUMemory bound to a cartridge's CHR channel
// and nametable mirroring mode.
func NewPPUMemory(cart CartridgeInterface, mirroring MirrorMode) *PPUMemory {
	mem := &PPUMemory{cartridge: cart, mirroring: mirroring}
	for i := 0; i < 32; i += 4 {
		mem.paletteRAM[i] = 0x0F
	}
	return mem
}

// SetMirroring updates the nametable mirroring mode (e.g. on cartridge
// load).
func (pm *PPUMemory) SetMirroring(mode MirrorMode) { pm.mirroring = mode }

// Read reads from the 14-bit PPU address space (spec §4.4).
func (pm *PPUMemory) Read(address uint16) uint8 {
	address &= 0x3FFF

	switch {
	case address < 0x2000:
		return pm.cartridge.ReadCHR(address)
	case address < 0x3000:
		return pm.readNametable(address)
	case address < 0x3F00:
		return pm.readNametable(address - 0x1000)
	default:
		return pm.readPalette(address)
	}
}

// Write writes to the 14-bit PPU address space (spec §4.4).
func (pm *PPUMemory) Write(address uint16, value uint8) {
	address &= 0x3FFF

	switch {
	case address < 0x2000:
		pm.cartridge.WriteCHR(address, value)
	case address < 0x3000:
		pm.writeNametable(address, value)
	case address < 0x3F00:
		pm.writeNametable(address-0x1000, value)
	default:
		pm.writePalette(address, value)
	}
}

func (pm *PPUMemory) readNametable(address uint16) uint8 {
	return pm.vram[pm.getNametableIndex(address)]
}

func (pm *PPUMemory) writeNametable(address uint16, value uint8) {
	pm.vram[pm.getNametableIndex(address)] = value
}

// getNametableIndex folds a $2000-$2FFF address down to a VRAM index
// according to the cartridge's mirroring mode.
func (pm *PPUMemory) getNametableIndex(address uint16) uint16 {
	address &= 0x0FFF
	nametable := (address >> 10) & 3
	offset := address & 0x3FF

	switch pm.mirroring {
	case MirrorHorizontal:
		if nametable >= 2 {
			return 0x400 + offset
		}
		return offset

	case MirrorVertical:
		if nametable == 1 || nametable == 3 {
			return 0x400 + offset
		}
		return offset

	case MirrorSingleScreen0:
		return offset

	case MirrorSingleScreen1:
		return 0x400 + offset

	case MirrorFourScreen:
		return uint16(nametable)*0x400 + offset

	default:
		return offset
	}
}

// readPalette reads palette RAM, folding the background-mirror slots
// (spec §4.4: addr&3==0 aliases the universal backdrop).
func (pm *PPUMemory) readPalette(address uint16) uint8 {
	index := (address - 0x3F00) & 0x1F
	if index&0x03 == 0 {
		index &= 0x0F
	}
	return pm.paletteRAM[index]
}

func (pm *PPUMemory) writePalette(address uint16, value uint8) {
	index := (address - 0x3F00) & 0x1F
	if index&0x03 == 0 {
		index &= 0x0F
	}
	pm.paletteRAM[index] = value
}
