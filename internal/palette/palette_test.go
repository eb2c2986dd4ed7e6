package palette

import "testing"

func TestRGBKnownEntries(t *testing.T) {
	cases := []struct {
		index uint8
		want  uint32
	}{
		{0x00, 0x666666},
		{0x20, 0xFFFEFF},
		{0x0D, 0x000000},
	}
	for _, c := range cases {
		if got := RGB(c.index); got != c.want {
			t.Errorf("RGB(%#02x) = %#06x, want %#06x", c.index, got, c.want)
		}
	}
}

func TestRGBOutOfRangeIsBlack(t *testing.T) {
	for _, idx := range []uint8{64, 100, 255} {
		if got := RGB(idx); got != 0x000000 {
			t.Errorf("RGB(%d) = %#06x, want black", idx, got)
		}
	}
}

func TestRGBA8888(t *testing.T) {
	src := []uint8{0x00, 0x20}
	dst := make([]uint8, len(src)*4)
	RGBA8888(src, dst)

	if dst[3] != 0xFF || dst[7] != 0xFF {
		t.Fatalf("alpha channel not fully opaque: %v", dst)
	}
	want0 := RGB(0x00)
	if dst[0] != uint8(want0>>16) || dst[1] != uint8(want0>>8) || dst[2] != uint8(want0) {
		t.Errorf("pixel 0 = %v, want RGB of %#06x", dst[0:3], want0)
	}
}

func TestRGB8888Packed(t *testing.T) {
	src := []uint8{0x01, 0x21}
	dst := make([]uint32, 2)
	RGB8888Packed(src, dst)
	if dst[0] != RGB(0x01) || dst[1] != RGB(0x21) {
		t.Errorf("RGB8888Packed mismatch: %#06x %#06x", dst[0], dst[1])
	}
}
