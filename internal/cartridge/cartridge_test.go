package cartridge

import (
	"bytes"
	"errors"
	"testing"
)

func buildINES(prgBanks, chrBanks int, flags6, flags7 uint8, prg, chr []uint8) []byte {
	header := make([]byte, 16)
	copy(header[0:4], "NES\x1A")
	header[4] = uint8(prgBanks)
	header[5] = uint8(chrBanks)
	header[6] = flags6
	header[7] = flags7

	buf := new(bytes.Buffer)
	buf.Write(header)
	buf.Write(prg)
	buf.Write(chr)
	return buf.Bytes()
}

func TestLoadFromReaderNROM(t *testing.T) {
	prg := make([]uint8, 16384)
	prg[0] = 0xEA
	chr := make([]uint8, 8192)
	chr[0] = 0x7E

	data := buildINES(1, 1, 0x00, 0x00, prg, chr)

	cart, err := LoadFromReader(bytes.NewReader(data), nil)
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if got := cart.ReadPRG(0x8000); got != 0xEA {
		t.Errorf("ReadPRG($8000) = %#02x, want 0xEA", got)
	}
	if got := cart.ReadPRG(0xC000); got != 0xEA {
		t.Errorf("16 KiB PRG should mirror into $C000, got %#02x", got)
	}
	if got := cart.ReadCHR(0x0000); got != 0x7E {
		t.Errorf("ReadCHR($0000) = %#02x, want 0x7E", got)
	}
	if cart.GetMirrorMode() != MirrorHorizontal {
		t.Errorf("flags6 bit0 clear should mean horizontal mirroring")
	}
}

func TestLoadFromReaderVerticalMirroring(t *testing.T) {
	prg := make([]uint8, 16384)
	chr := make([]uint8, 8192)
	data := buildINES(1, 1, 0x01, 0x00, prg, chr)

	cart, err := LoadFromReader(bytes.NewReader(data), nil)
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cart.GetMirrorMode() != MirrorVertical {
		t.Errorf("flags6 bit0 set should mean vertical mirroring")
	}
}

func TestLoadFromReaderRejectsBadMagic(t *testing.T) {
	data := make([]byte, 32)
	copy(data, "GARBAGE")
	if _, err := LoadFromReader(bytes.NewReader(data), nil); err == nil {
		t.Fatal("expected an error for a bad magic number")
	}
}

func TestLoadFromReaderRejectsUnsupportedMapper(t *testing.T) {
	prg := make([]uint8, 16384)
	chr := make([]uint8, 8192)
	data := buildINES(1, 1, 0x10, 0x00, prg, chr) // mapper id 1 (MMC1)

	_, err := LoadFromReader(bytes.NewReader(data), nil)
	if !errors.Is(err, ErrUnsupportedMapper) {
		t.Fatalf("err = %v, want ErrUnsupportedMapper", err)
	}
}

func TestLoadFromReaderCHRRAMWhenNoCHRBanks(t *testing.T) {
	prg := make([]uint8, 16384)
	data := buildINES(1, 0, 0x00, 0x00, prg, nil)

	cart, err := LoadFromReader(bytes.NewReader(data), nil)
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	cart.WriteCHR(0x0000, 0x42)
	if got := cart.ReadCHR(0x0000); got != 0x42 {
		t.Errorf("CHR RAM should be writable, got %#02x", got)
	}
}

func TestMapper000PRGRAMWindow(t *testing.T) {
	prg := make([]uint8, 16384)
	chr := make([]uint8, 8192)
	data := buildINES(1, 1, 0x00, 0x00, prg, chr)

	cart, err := LoadFromReader(bytes.NewReader(data), nil)
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	cart.WritePRG(0x6000, 0x99)
	if got := cart.ReadPRG(0x6000); got != 0x99 {
		t.Errorf("PRG RAM at $6000 = %#02x, want 0x99", got)
	}
}
