// Package palette holds the fixed 64-entry NES color table (spec §6) and
// the pixel-format conversions the console's frame accessors use.
package palette

// Table is the canonical NTSC NES color table, index -> 0xRRGGBB.
var Table = [64]uint32{
	// 0x00-0x0F
	0x666666, 0x002A88, 0x1412A7, 0x3B00A4, 0x5C007E, 0x6E0040, 0x6C0600, 0x561D00,
	0x333500, 0x0B4800, 0x005200, 0x004F08, 0x00404D, 0x000000, 0x000000, 0x000000,
	// 0x10-0x1F
	0xADADAD, 0x155FD9, 0x4240FF, 0x7527FE, 0xA01ACC, 0xB71E7B, 0xB53120, 0x994E00,
	0x6B6D00, 0x388700, 0x0C9300, 0x008F32, 0x007C8D, 0x000000, 0x000000, 0x000000,
	// 0x20-0x2F
	0xFFFEFF, 0x64B0FF, 0x9290FF, 0xC676FF, 0xF36AFF, 0xFE6ECC, 0xFE8170, 0xEA9E22,
	0xBCBE00, 0x88D800, 0x5CE430, 0x45E082, 0x48CDDE, 0x4F4F4F, 0x000000, 0x000000,
	// 0x30-0x3F
	0xFFFEFF, 0xC0DFFF, 0xD3D2FF, 0xE8C8FF, 0xFBC2FF, 0xFEC4EA, 0xFECCC5, 0xF7D8A5,
	0xE4E594, 0xCFF29B, 0xBEFBB3, 0xB8F8D8, 0xB8F8F8, 0x000000, 0x000000, 0x000000,
}

// RGB looks up a palette index, returning 0x000000 (black) for indices 64
// and above (spec §6).
func RGB(index uint8) uint32 {
	if index >= 64 {
		return 0x000000
	}
	return Table[index]
}

// RGBA8888 expands a 256x240 palette-index framebuffer into an RGBA byte
// buffer (4 bytes per pixel, alpha always 0xFF). dst must be at least
// len(src)*4 bytes.
func RGBA8888(src []uint8, dst []uint8) {
	for i, idx := range src {
		rgb := RGB(idx)
		o := i * 4
		dst[o+0] = uint8(rgb >> 16)
		dst[o+1] = uint8(rgb >> 8)
		dst[o+2] = uint8(rgb)
		dst[o+3] = 0xFF
	}
}

// RGB888 expands a palette-index framebuffer into a packed 3-bytes-per-pixel
// RGB buffer. dst must be at least len(src)*3 bytes.
func RGB888(src []uint8, dst []uint8) {
	for i, idx := range src {
		rgb := RGB(idx)
		o := i * 3
		dst[o+0] = uint8(rgb >> 16)
		dst[o+1] = uint8(rgb >> 8)
		dst[o+2] = uint8(rgb)
	}
}

// RGB8888Packed expands a palette-index framebuffer into one uint32 per
// pixel, 0x00RRGGBB, the shape the teacher's graphics backend consumes.
func RGB8888Packed(src []uint8, dst []uint32) {
	for i, idx := range src {
		dst[i] = RGB(idx)
	}
}
