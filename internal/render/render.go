// Package render composites one RGB frame from PPU state. It runs once
// per VBlank, driven by the bus's frame callback, and never mutates PPU
// state except for the sprite-0-hit flag it is positioned to detect.
package render

import "nescore/internal/ppu"

// Render walks the PPU's nametables, attribute tables, pattern tables
// and OAM and produces one composited frame, honoring scroll position,
// nametable mirroring, and sprite priority/flip/sprite-0-hit.
func Render(p *ppu.PPU) *Frame {
	f := NewFrame()

	var bgOpaque [Width][Height]bool
	if p.ShowBackground() {
		renderBackground(p, f, &bgOpaque)
	}
	if p.ShowSprites() {
		renderSprites(p, f, &bgOpaque)
	}
	return f
}

// horizontalNeighbor and verticalNeighbor return the logical nametable
// reached by crossing the screen's right edge or bottom edge from
// main, respectively -- the 0x2000/0x2400 pairing is the horizontal
// axis, 0x2000/0x2800 (and 0x2400/0x2c00) is the vertical axis.
func horizontalNeighbor(main uint16) uint16 { return main ^ 0x0400 }
func verticalNeighbor(main uint16) uint16   { return main ^ 0x0800 }

func renderBackground(p *ppu.PPU, f *Frame, opaque *[Width][Height]bool) {
	scrollX, scrollY := int(p.ScrollX()), int(p.ScrollY())
	mainBase := p.NametableSelect()

	renderNametable(p, f, opaque, mainBase, -scrollX, -scrollY)

	switch {
	case scrollX > 0:
		renderNametable(p, f, opaque, horizontalNeighbor(mainBase), Width-scrollX, 0)
	case scrollY > 0:
		renderNametable(p, f, opaque, verticalNeighbor(mainBase), 0, Height-scrollY)
	}
}

// renderNametable draws the 32x30 tile grid starting at base, with
// (shiftX, shiftY) added to every pixel's screen position; pixels that
// land outside the frame are skipped.
func renderNametable(p *ppu.PPU, f *Frame, opaque *[Width][Height]bool, base uint16, shiftX, shiftY int) {
	bankOffset := p.BackgroundPatternBank()

	for row := 0; row < 30; row++ {
		for col := 0; col < 32; col++ {
			tileIndex := p.ReadNametableByte(base + uint16(row*32+col))
			palette := bgPalette(p, base, row, col)

			tileAddr := bankOffset + uint16(tileIndex)*16
			for y := 0; y < 8; y++ {
				lo := p.ReadCHR(tileAddr + uint16(y))
				hi := p.ReadCHR(tileAddr + uint16(y) + 8)
				for x := 0; x < 8; x++ {
					bit := uint(7 - x)
					value := (lo>>bit)&1 | ((hi>>bit)&1)<<1
					screenX := col*8 + x + shiftX
					screenY := row*8 + y + shiftY
					if screenX < 0 || screenX >= Width || screenY < 0 || screenY >= Height {
						continue
					}
					var c RGB
					if value == 0 {
						// Pixel value 0 is the universal background color, not
						// transparency -- it still counts as opaque background
						// for sprite-priority purposes.
						c = SystemPalette[p.Palette()[0]&0x3f]
					} else {
						c = SystemPalette[palette[value]&0x3f]
					}
					f.SetPixel(screenX, screenY, c)
					opaque[screenX][screenY] = true
				}
			}
		}
	}
}

// bgPalette returns the 4 palette-RAM indices for the tile at
// (col,row), selected from the attribute table's 2-bit quadrant field
// attribute byte covers a 4x4 tile block, split into
// four 2x2-tile quadrants.
func bgPalette(p *ppu.PPU, nametableBase uint16, row, col int) [4]uint8 {
	attrTableBase := nametableBase + 0x3c0
	attrIndex := (row/4)*8 + col/4
	attrByte := p.ReadNametableByte(attrTableBase + uint16(attrIndex))

	quadrantCol, quadrantRow := (col%4)/2, (row%4)/2
	shift := uint((quadrantRow*2 + quadrantCol) * 2)
	paletteSelect := (attrByte >> shift) & 0x03

	paletteRAM := p.Palette()
	base := uint16(paletteSelect) * 4
	return [4]uint8{
		paletteRAM[0],
		paletteRAM[base+1],
		paletteRAM[base+2],
		paletteRAM[base+3],
	}
}

// renderSprites draws OAM entries back-to-front (index 63 first) so
// lower-indexed sprites win overlap. Only 8x8
// sprites are supported; flip and priority bits are honored, and
// sprite 0 is checked for a hit against an opaque background pixel.
func renderSprites(p *ppu.PPU, f *Frame, bgOpaque *[Width][Height]bool) {
	oam := p.OAM()
	bankOffset := p.SpritePatternBank()

	for i := 63; i >= 0; i-- {
		base := i * 4
		spriteY := int(oam[base]) + 1
		tileIndex := oam[base+1]
		attr := oam[base+2]
		spriteX := int(oam[base+3])

		flipVert := attr&0x80 != 0
		flipHoriz := attr&0x40 != 0
		behindBg := attr&0x20 != 0
		paletteSelect := attr & 0x03

		tileAddr := bankOffset + uint16(tileIndex)*16
		for y := 0; y < 8; y++ {
			row := y
			if flipVert {
				row = 7 - y
			}
			lo := p.ReadCHR(tileAddr + uint16(row))
			hi := p.ReadCHR(tileAddr + uint16(row) + 8)
			for x := 0; x < 8; x++ {
				col := x
				if flipHoriz {
					col = 7 - x
				}
				bit := uint(7 - col)
				value := (lo>>bit)&1 | ((hi>>bit)&1)<<1
				if value == 0 {
					continue // transparent
				}

				screenX, screenY := spriteX+x, spriteY+y
				if screenX < 0 || screenX >= Width || screenY < 0 || screenY >= Height {
					continue
				}

				if i == 0 && bgOpaque[screenX][screenY] {
					p.SetSprite0Hit()
				}
				if behindBg && bgOpaque[screenX][screenY] {
					continue
				}

				paletteRAM := p.Palette()
				palBase := 0x10 + uint16(paletteSelect)*4
				idx := paletteRAM[palBase+uint16(value)-1]
				f.SetPixel(screenX, screenY, SystemPalette[idx&0x3f])
			}
		}
	}
}
