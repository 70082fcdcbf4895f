package hal

import "image/color"

// rgb565 packs c as rrrrrggggggbbbbb; alpha is ignored.
func rgb565(c color.RGBA) uint16 {
	return uint16(c.R>>3)<<11 | uint16(c.G>>2)<<5 | uint16(c.B>>3)
}

// expand565 widens p to 8 bits per channel, copying the top bits into the
// low ones so white stays 0xFF.
func expand565(p uint16) (r, g, b uint8) {
	r5, g6, b5 := uint8(p>>11&0x1F), uint8(p>>5&0x3F), uint8(p&0x1F)
	return r5<<3 | r5>>2, g6<<2 | g6>>4, b5<<3 | b5>>2
}
