package ppu

import (
	"testing"

	"nesemu/internal/cartridge"
	"nesemu/internal/memory"
)

func newTestPPU() *PPU {
	p := New()
	cart := cartridge.NewMockCartridge()
	p.SetMemory(memory.NewPPUMemory(cart, memory.MirrorHorizontal))
	return p
}

func TestPPUScrollWriteSequence(t *testing.T) {
	p := newTestPPU()

	p.WriteRegister(0x2005, 0x7D) // coarse X = 15, fine X = 5
	if p.x != 5 {
		t.Errorf("fine X = %d, want 5", p.x)
	}
	if p.t&0x1F != 15 {
		t.Errorf("coarse X in t = %d, want 15", p.t&0x1F)
	}

	p.WriteRegister(0x2005, 0x5E) // coarse Y = 11, fine Y = 6
	if (p.t>>5)&0x1F != 11 {
		t.Errorf("coarse Y in t = %d, want 11", (p.t>>5)&0x1F)
	}
	if (p.t>>12)&0x7 != 6 {
		t.Errorf("fine Y in t = %d, want 6", (p.t>>12)&0x7)
	}
	if p.w {
		t.Errorf("w should be false after the second write")
	}
}

func TestPPUAddrWriteSequenceLoadsV(t *testing.T) {
	p := newTestPPU()

	p.WriteRegister(0x2006, 0x21)
	p.WriteRegister(0x2006, 0x08)

	if p.v != 0x2108 {
		t.Errorf("v = %#04x, want 0x2108", p.v)
	}
}

func TestPPUDataReadIsBufferedExceptPalette(t *testing.T) {
	p := newTestPPU()
	p.memory.Write(0x2000, 0xAB)

	p.v = 0x2000
	first := p.ReadRegister(0x2007)
	if first != 0 {
		t.Errorf("first $2007 read should return the stale buffer (0), got %#02x", first)
	}
	second := p.ReadRegister(0x2007)
	// v auto-incremented after the first read, so this reads $2001's buffered byte.
	_ = second

	p.v = 0x3F00
	p.memory.Write(0x3F00, 0x30)
	palRead := p.ReadRegister(0x2007)
	if palRead != 0x30 {
		t.Errorf("palette reads are not buffered, got %#02x want 0x30", palRead)
	}
}

func TestStatusReadClearsVBlankAndWOnly(t *testing.T) {
	p := newTestPPU()
	p.ppuStatus = 0x80
	p.sprite0Hit = true
	p.w = true

	status := p.ReadRegister(0x2002)
	if status&0x80 == 0 {
		t.Errorf("returned status should still report VBL set")
	}
	if p.ppuStatus&0x80 != 0 {
		t.Errorf("VBL flag should be cleared after reading $2002")
	}
	if p.w {
		t.Errorf("w should be cleared after reading $2002")
	}
	if !p.sprite0Hit {
		t.Errorf("sprite0Hit must survive a $2002 read; it only clears at pre-render dot 1")
	}
}

func TestVBlankAndNMIFireAtScanline241Dot1(t *testing.T) {
	p := newTestPPU()
	p.ppuCtrl = 0x80 // NMI enabled

	nmiFired := false
	vblankFired := false
	p.SetNMICallback(func() { nmiFired = true })
	p.SetVBlankCallback(func() { vblankFired = true })

	p.scanline = 241
	p.dot = 1
	p.Step()

	if !nmiFired {
		t.Errorf("NMI callback should fire at scanline 241 dot 1")
	}
	if !vblankFired {
		t.Errorf("v-blank callback should fire at scanline 241 dot 1")
	}
	if p.ppuStatus&0x80 == 0 {
		t.Errorf("VBL flag should be set at scanline 241 dot 1")
	}
}

func TestPreRenderClearsStatusFlags(t *testing.T) {
	p := newTestPPU()
	p.scanline = 261
	p.dot = 1
	p.ppuStatus = 0x80
	p.sprite0Hit = true
	p.spriteOverflow = true

	p.Step()

	if p.sprite0Hit || p.spriteOverflow || p.ppuStatus&0x80 != 0 {
		t.Errorf("pre-render dot 1 should clear VBL/sprite0Hit/overflow")
	}
}

func TestWriteOAMAutoIncrements(t *testing.T) {
	p := newTestPPU()
	p.oamAddr = 0xFE

	p.WriteOAM(0x11)
	p.WriteOAM(0x22)
	p.WriteOAM(0x33)

	if p.oam[0xFE] != 0x11 || p.oam[0xFF] != 0x22 || p.oam[0x00] != 0x33 {
		t.Errorf("OAM DMA should wrap the address through uint8 overflow")
	}
	if p.oamAddr != 0x01 {
		t.Errorf("oamAddr = %#02x, want 0x01 after wrapping", p.oamAddr)
	}
}

func TestSpriteEvaluationTargetsNextScanline(t *testing.T) {
	p := newTestPPU()
	p.ppuMask = 0x18 // background + sprites enabled
	p.ppuCtrl = 0x00 // 8x8 sprites

	p.oam[0] = 10 // sprite Y
	p.oam[1] = 0x01
	p.oam[2] = 0x00
	p.oam[3] = 5

	p.scanline = 9 // next scanline is 10, matching the sprite's Y
	p.evaluateSprites()

	if p.spriteCount != 1 {
		t.Fatalf("spriteCount = %d, want 1 sprite in range for next scanline", p.spriteCount)
	}
	if p.sprite0Slot != 0 {
		t.Errorf("sprite0Slot = %d, want 0", p.sprite0Slot)
	}
}

func TestSpriteOverflowAtNinthSprite(t *testing.T) {
	p := newTestPPU()
	p.ppuMask = 0x18

	for i := 0; i < 9; i++ {
		base := i * 4
		p.oam[base] = 20 // all in range of next scanline 21
		p.oam[base+1] = 0
		p.oam[base+2] = 0
		p.oam[base+3] = uint8(i)
	}
	p.scanline = 20
	p.evaluateSprites()

	if !p.spriteOverflow {
		t.Errorf("9th in-range sprite should set spriteOverflow")
	}
	if p.spriteCount != 8 {
		t.Errorf("spriteCount = %d, want capped at 8", p.spriteCount)
	}
}

func TestOddFrameDotSkip(t *testing.T) {
	p := newTestPPU()
	p.ppuMask = 0x08 // rendering enabled
	p.oddFrame = true
	p.scanline = 261
	p.dot = 339

	p.Step()

	if p.scanline != 0 || p.dot != 0 {
		t.Errorf("odd frame should skip dot 340, got scanline=%d dot=%d", p.scanline, p.dot)
	}
}
