// Package ppu implements the NES Picture Processing Unit (2C02): the
// per-dot background/sprite pipeline, scroll register evolution, and the
// CPU-visible $2000-$2007 register window (spec §4.4).
package ppu

import "nesemu/internal/memory"

// PPU is the 2C02 state machine.
type PPU struct {
	// CPU-visible registers.
	ppuCtrl   uint8
	ppuMask   uint8
	ppuStatus uint8
	oamAddr   uint8

	// Internal scroll/address registers (spec §3: "v and t are 15 bits").
	v uint16
	t uint16
	x uint8
	w bool

	readBuffer uint8

	memory *memory.PPUMemory

	scanline   int // 0-261
	dot        int // 0-340
	frameCount uint64
	oddFrame   bool

	oam          [256]uint8
	secondaryOAM [32]uint8

	spriteCount      uint8
	spritePatternLo  [8]uint8
	spritePatternHi  [8]uint8
	spriteAttributes [8]uint8
	spriteX          [8]int16
	sprite0Slot      int // index into the above arrays holding OAM sprite 0, or -1
	sprite0Hit       bool
	spriteOverflow   bool

	// Background pipeline: two 16-bit pattern shift registers and two
	// 16-bit attribute shift registers (spec §3).
	bgPatternShiftLo uint16
	bgPatternShiftHi uint16
	bgAttribShiftLo  uint16
	bgAttribShiftHi  uint16

	ntLatch        uint8
	atLatch        uint8
	patternLatchLo uint8
	patternLatchHi uint8

	frameBuffer [256 * 240]uint8

	nmiCallback    func()
	vblankCallback func()
}

// New creates a PPU parked at the pre-render scanline, as on power-up.
func New() *PPU {
	return &PPU{scanline: 261, sprite0Slot: -1}
}

// Reset returns the PPU to its power-up state (spec §3).
func (p *PPU) Reset() {
	p.ppuCtrl = 0
	p.ppuMask = 0
	p.ppuStatus = 0xA0
	p.oamAddr = 0
	p.v, p.t, p.x = 0, 0, 0
	p.w = false
	p.readBuffer = 0
	p.scanline = 261
	p.dot = 0
	p.frameCount = 0
	p.oddFrame = false
	p.spriteCount = 0
	p.sprite0Slot = -1
	p.sprite0Hit = false
	p.spriteOverflow = false
	p.bgPatternShiftLo, p.bgPatternShiftHi = 0, 0
	p.bgAttribShiftLo, p.bgAttribShiftHi = 0, 0
	for i := range p.oam {
		p.oam[i] = 0
	}
	for i := range p.frameBuffer {
		p.frameBuffer[i] = 0
	}
}

func (p *PPU) SetMemory(mem *memory.PPUMemory) { p.memory = mem }
func (p *PPU) SetNMICallback(cb func())        { p.nmiCallback = cb }

// SetVBlankCallback installs the callback fired synchronously once per
// frame at v-blank entry (spec §9: "a single user-supplied callback
// installed at construction; invoke it synchronously at the v-blank
// entry").
func (p *PPU) SetVBlankCallback(cb func()) { p.vblankCallback = cb }

// FrameBuffer returns the current 256x240 palette-index framebuffer.
func (p *PPU) FrameBuffer() []uint8 { return p.frameBuffer[:] }

func (p *PPU) backgroundEnabled() bool   { return p.ppuMask&0x08 != 0 }
func (p *PPU) spritesEnabled() bool      { return p.ppuMask&0x10 != 0 }
func (p *PPU) renderingEnabled() bool    { return p.backgroundEnabled() || p.spritesEnabled() }
func (p *PPU) backgroundLeftClip() bool  { return p.ppuMask&0x02 == 0 }
func (p *PPU) spriteLeftClip() bool      { return p.ppuMask&0x04 == 0 }
func (p *PPU) vramIncrement() uint16 {
	if p.ppuCtrl&0x04 != 0 {
		return 32
	}
	return 1
}
func (p *PPU) backgroundPatternBase() uint16 {
	if p.ppuCtrl&0x10 != 0 {
		return 0x1000
	}
	return 0
}
func (p *PPU) spritePatternBase() uint16 {
	if p.ppuCtrl&0x08 != 0 {
		return 0x1000
	}
	return 0
}
func (p *PPU) spriteHeight() int {
	if p.ppuCtrl&0x20 != 0 {
		return 16
	}
	return 8
}
func (p *PPU) nmiEnabled() bool { return p.ppuCtrl&0x80 != 0 }
func (p *PPU) fineY() uint16    { return (p.v >> 12) & 0x7 }

// ReadRegister reads a CPU-visible PPU register ($2000-$2007).
func (p *PPU) ReadRegister(address uint16) uint8 {
	switch address {
	case 0x2002:
		status := p.ppuStatus
		p.ppuStatus &^= 0x80
		p.w = false
		return status
	case 0x2004:
		return p.oam[p.oamAddr]
	case 0x2007:
		return p.readPPUData()
	default:
		// $2000/$2001/$2003/$2005/$2006 are write-only; reads return 0
		// (spec §7.2: "PPU... reads from a write-only register... are
		// silently ignored").
		return 0
	}
}

// WriteRegister writes a CPU-visible PPU register ($2000-$2007).
func (p *PPU) WriteRegister(address uint16, value uint8) {
	switch address {
	case 0x2000:
		p.ppuCtrl = value
		p.t = (p.t & 0xF3FF) | ((uint16(value) & 0x03) << 10)
	case 0x2001:
		p.ppuMask = value
	case 0x2002:
		// read-only
	case 0x2003:
		p.oamAddr = value
	case 0x2004:
		p.oam[p.oamAddr] = value
		p.oamAddr++
	case 0x2005:
		p.writeScroll(value)
	case 0x2006:
		p.writeAddr(value)
	case 0x2007:
		p.writePPUData(value)
	}
}

func (p *PPU) writeScroll(value uint8) {
	if !p.w {
		p.t = (p.t & 0xFFE0) | (uint16(value) >> 3)
		p.x = value & 0x07
	} else {
		p.t = (p.t & 0xFC1F) | ((uint16(value) & 0xF8) << 2)
		p.t = (p.t & 0x8FFF) | ((uint16(value) & 0x07) << 12)
	}
	p.w = !p.w
}

func (p *PPU) writeAddr(value uint8) {
	if !p.w {
		p.t = (p.t & 0x00FF) | ((uint16(value) & 0x3F) << 8)
	} else {
		p.t = (p.t & 0xFF00) | uint16(value)
		p.v = p.t
	}
	p.w = !p.w
}

func (p *PPU) readPPUData() uint8 {
	addr := p.v & 0x3FFF
	var result uint8
	if addr >= 0x3F00 {
		result = p.memory.Read(addr)
		p.readBuffer = p.memory.Read(addr - 0x1000)
	} else {
		result = p.readBuffer
		p.readBuffer = p.memory.Read(addr)
	}
	p.v = (p.v + p.vramIncrement()) & 0x7FFF
	return result
}

func (p *PPU) writePPUData(value uint8) {
	p.memory.Write(p.v&0x3FFF, value)
	p.v = (p.v + p.vramIncrement()) & 0x7FFF
}

// WriteOAM writes the next byte of an OAM DMA transfer and advances
// OAMADDR, so repeated calls wrap through OAM exactly like OAMDATA
// writes (spec §4.1: "(i + current OAM address) mod 256").
func (p *PPU) WriteOAM(value uint8) {
	p.oam[p.oamAddr] = value
	p.oamAddr++
}

// Step advances the PPU by one dot (spec §4.4).
func (p *PPU) Step() {
	visible := p.scanline <= 239
	preRender := p.scanline == 261
	fetchLine := visible || preRender
	renderCycle := p.dot >= 1 && p.dot <= 256
	fetchCycle := fetchLine && (renderCycle || (p.dot >= 321 && p.dot <= 336))
	shiftCycle := fetchLine && ((p.dot >= 1 && p.dot <= 256) || (p.dot >= 321 && p.dot <= 336))

	if p.scanline == 241 && p.dot == 1 {
		p.ppuStatus |= 0x80
		if p.nmiEnabled() && p.nmiCallback != nil {
			p.nmiCallback()
		}
		if p.vblankCallback != nil {
			p.vblankCallback()
		}
	}
	if preRender && p.dot == 1 {
		p.ppuStatus &^= 0x80
		p.sprite0Hit = false
		p.spriteOverflow = false
	}

	if visible && renderCycle {
		p.renderPixel()
	}

	if p.renderingEnabled() {
		if shiftCycle {
			p.shiftBackgroundRegisters()
		}
		if fetchCycle {
			p.backgroundFetch()
		}
		if fetchLine {
			switch {
			case p.dot == 1:
				for i := range p.secondaryOAM {
					p.secondaryOAM[i] = 0xFF
				}
			case p.dot == 256:
				p.evaluateSprites()
			}
		}
		if p.dot == 257 {
			p.v = (p.v & 0x7BE0) | (p.t & 0x041F)
		}
		if preRender && p.dot >= 280 && p.dot <= 304 {
			p.v = (p.v & 0x041F) | (p.t & 0x7BE0)
		}
	}

	p.advanceDot()
}

func (p *PPU) advanceDot() {
	if p.oddFrame && p.renderingEnabled() && p.scanline == 261 && p.dot == 339 {
		p.dot = 0
		p.scanline = 0
		p.frameCount++
		p.oddFrame = !p.oddFrame
		return
	}
	p.dot++
	if p.dot > 340 {
		p.dot = 0
		p.scanline++
		if p.scanline > 261 {
			p.scanline = 0
			p.frameCount++
			p.oddFrame = !p.oddFrame
		}
	}
}

// backgroundFetch runs the 8-dot nametable/attribute/pattern fetch
// schedule (spec §4.4).
func (p *PPU) backgroundFetch() {
	switch p.dot % 8 {
	case 1:
		p.reloadShiftRegisters()
		p.ntLatch = p.memory.Read(0x2000 | (p.v & 0x0FFF))
	case 3:
		addr := 0x23C0 | (p.v & 0x0C00) | ((p.v >> 4) & 0x38) | ((p.v >> 2) & 0x07)
		p.atLatch = p.memory.Read(addr)
	case 5:
		base := p.backgroundPatternBase()
		p.patternLatchLo = p.memory.Read(base + uint16(p.ntLatch)*16 + p.fineY())
	case 7:
		base := p.backgroundPatternBase()
		p.patternLatchHi = p.memory.Read(base + uint16(p.ntLatch)*16 + p.fineY() + 8)
	case 0:
		p.incrementCoarseX()
		if p.dot == 256 {
			p.incrementY()
		}
	}
}

func (p *PPU) incrementCoarseX() {
	if p.v&0x001F == 31 {
		p.v &^= 0x001F
		p.v ^= 0x0400
	} else {
		p.v++
	}
}

func (p *PPU) incrementY() {
	if p.v&0x7000 != 0x7000 {
		p.v += 0x1000
	} else {
		p.v &^= 0x7000
		coarseY := (p.v & 0x03E0) >> 5
		switch coarseY {
		case 29:
			coarseY = 0
			p.v ^= 0x0800
		case 31:
			coarseY = 0
		default:
			coarseY++
		}
		p.v = (p.v &^ 0x03E0) | (coarseY << 5)
	}
}

func (p *PPU) reloadShiftRegisters() {
	p.bgPatternShiftLo = (p.bgPatternShiftLo & 0xFF00) | uint16(p.patternLatchLo)
	p.bgPatternShiftHi = (p.bgPatternShiftHi & 0xFF00) | uint16(p.patternLatchHi)

	shift := ((p.v >> 4) & 4) | (p.v & 2)
	atBits := (uint16(p.atLatch) >> shift) & 3

	if atBits&1 != 0 {
		p.bgAttribShiftLo |= 0x00FF
	} else {
		p.bgAttribShiftLo &^= 0x00FF
	}
	if atBits&2 != 0 {
		p.bgAttribShiftHi |= 0x00FF
	} else {
		p.bgAttribShiftHi &^= 0x00FF
	}
}

func (p *PPU) shiftBackgroundRegisters() {
	p.bgPatternShiftLo <<= 1
	p.bgPatternShiftHi <<= 1
	p.bgAttribShiftLo <<= 1
	p.bgAttribShiftHi <<= 1
}

// evaluateSprites scans primary OAM for sprites visible on the next
// scanline, filling secondary OAM state and fetching pattern bytes
// (spec §4.4, §9's "ninth in-range sprite sets overflow").
func (p *PPU) evaluateSprites() {
	height := p.spriteHeight()
	nextScanline := p.scanline + 1
	count := 0
	overflow := false
	p.sprite0Slot = -1

	for i := 0; i < 64; i++ {
		base := i * 4
		spriteY := int(p.oam[base])
		row := nextScanline - spriteY
		if row < 0 || row >= height {
			continue
		}
		if count == 8 {
			overflow = true
			continue
		}

		tileIndex := p.oam[base+1]
		attributes := p.oam[base+2]
		xPos := p.oam[base+3]

		flippedRow := row
		if attributes&0x80 != 0 {
			flippedRow = height - 1 - row
		}

		loAddr, hiAddr := p.spritePatternAddresses(tileIndex, flippedRow, height)
		p.spritePatternLo[count] = p.memory.Read(loAddr)
		p.spritePatternHi[count] = p.memory.Read(hiAddr)
		p.spriteAttributes[count] = attributes
		p.spriteX[count] = int16(xPos)
		if i == 0 {
			p.sprite0Slot = count
		}
		count++
	}

	for i := count; i < 8; i++ {
		p.spritePatternLo[i] = 0
		p.spritePatternHi[i] = 0
	}
	p.spriteCount = uint8(count)
	if overflow {
		p.spriteOverflow = true
	}
}

// spritePatternAddresses returns the low/high pattern table addresses
// for one row of a sprite tile, honoring 8x16 addressing (SPEC_FULL §3).
func (p *PPU) spritePatternAddresses(tileIndex uint8, row, height int) (lo, hi uint16) {
	if height == 16 {
		table := uint16(0)
		if tileIndex&1 != 0 {
			table = 0x1000
		}
		tileNum := uint16(tileIndex &^ 1)
		if row >= 8 {
			tileNum++
			row -= 8
		}
		lo = table + tileNum*16 + uint16(row)
		return lo, lo + 8
	}
	lo = p.spritePatternBase() + uint16(tileIndex)*16 + uint16(row)
	return lo, lo + 8
}

// renderPixel composites the background and sprite pixel for the
// current dot into the framebuffer (spec §4.4).
func (p *PPU) renderPixel() {
	x := p.dot - 1
	y := p.scanline

	bgColor, bgOpaque := p.backgroundPixel(x)
	sprColor, sprOpaque, sprFront, isSprite0 := p.spritePixel(x)

	if isSprite0 && bgOpaque && x != 255 &&
		!p.sprite0Hit && p.backgroundEnabled() && p.spritesEnabled() {
		if !(x < 8 && (p.backgroundLeftClip() || p.spriteLeftClip())) {
			p.sprite0Hit = true
		}
	}

	var out uint8
	switch {
	case sprOpaque && (sprFront || !bgOpaque):
		out = sprColor
	default:
		out = bgColor
	}
	p.frameBuffer[y*256+x] = out
}

func (p *PPU) backgroundPixel(x int) (color uint8, opaque bool) {
	if !p.backgroundEnabled() || (x < 8 && p.backgroundLeftClip()) {
		return p.memory.Read(0x3F00), false
	}
	bit := uint(15 - p.x)
	lo := (p.bgPatternShiftLo >> bit) & 1
	hi := (p.bgPatternShiftHi >> bit) & 1
	pattern := uint8((hi << 1) | lo)

	if pattern == 0 {
		return p.memory.Read(0x3F00), false
	}
	atLo := (p.bgAttribShiftLo >> bit) & 1
	atHi := (p.bgAttribShiftHi >> bit) & 1
	attr := uint16((atHi << 1) | atLo)
	return p.memory.Read(0x3F00 | (attr << 2) | uint16(pattern)), true
}

// spritePixel returns the pixel the highest-priority active sprite
// contributes at x (color/opaque/front), plus isSprite0 reporting
// whether OAM sprite 0's own pixel is opaque here, independent of
// drawing priority (spec §4.4: sprite-0-hit fires on sprite 0's own
// collision with an opaque background pixel, not on which sprite wins
// the draw).
func (p *PPU) spritePixel(x int) (color uint8, opaque, front, isSprite0 bool) {
	if !p.spritesEnabled() || (x < 8 && p.spriteLeftClip()) {
		p.decrementSpriteCounters()
		return 0, false, false, false
	}

	for i := 0; i < int(p.spriteCount); i++ {
		counter := p.spriteX[i]
		if counter > 0 || counter <= -8 {
			continue
		}
		bitIndex := 7 + counter
		if p.spriteAttributes[i]&0x40 != 0 {
			bitIndex = 7 - bitIndex
		}
		lo := (p.spritePatternLo[i] >> uint(bitIndex)) & 1
		hi := (p.spritePatternHi[i] >> uint(bitIndex)) & 1
		pattern := (hi << 1) | lo
		if pattern == 0 {
			continue
		}
		if i == p.sprite0Slot {
			isSprite0 = true
		}
		if opaque {
			continue // lower index already won drawing priority this dot
		}
		palette := (p.spriteAttributes[i] & 0x03) + 4
		color = p.memory.Read(0x3F00 | (uint16(palette) << 2) | uint16(pattern))
		opaque = true
		front = p.spriteAttributes[i]&0x20 == 0
	}

	p.decrementSpriteCounters()
	return color, opaque, front, isSprite0
}

func (p *PPU) decrementSpriteCounters() {
	for i := 0; i < int(p.spriteCount); i++ {
		p.spriteX[i]--
	}
}
