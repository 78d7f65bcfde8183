package chip8

import (
	"image"
	"image/color"
	"image/png"
	"os"
)

const (
	DisplayWidth  = 64
	DisplayHeight = 32
)

// Display is the 64×32 monochrome framebuffer. Pixels are stored linearly,
// left to right, top to bottom.
type Display struct {
	pix [DisplayWidth * DisplayHeight]bool
}

// Clear unsets every pixel.
func (d *Display) Clear() {
	d.pix = [DisplayWidth * DisplayHeight]bool{}
}

// Pixel reports whether the pixel at (x, y) is set. Coordinates outside
// the display read as unset.
func (d *Display) Pixel(x, y int) bool {
	if x < 0 || x >= DisplayWidth || y < 0 || y >= DisplayHeight {
		return false
	}
	return d.pix[y*DisplayWidth+x]
}

// DrawSprite XORs a sprite into the framebuffer at (x, y) and reports
// whether any pixel went from set to unset. Each row byte is 8 pixels wide,
// MSB leftmost. Coordinates wrap modulo the display size; draw is the only
// place the machine wraps, memory access never does.
func (d *Display) DrawSprite(x, y byte, rows []byte) bool {
	collision := false

	for row, bits := range rows {
		py := (int(y) + row) % DisplayHeight

		for col := 0; col < 8; col++ {
			if bits&(0x80>>col) == 0 {
				continue
			}
			px := (int(x) + col) % DisplayWidth

			i := py*DisplayWidth + px
			if d.pix[i] {
				collision = true
			}
			d.pix[i] = !d.pix[i]
		}
	}

	return collision
}

// RGBA renders the framebuffer into a 64×32 RGBA8888 byte slice
// (length 64*32*4) using the given foreground and background colors.
func (d *Display) RGBA(fg, bg color.RGBA) []byte {
	pixels := make([]byte, DisplayWidth*DisplayHeight*4)

	for i, on := range d.pix {
		c := bg
		if on {
			c = fg
		}
		pixels[i*4+0] = c.R
		pixels[i*4+1] = c.G
		pixels[i*4+2] = c.B
		pixels[i*4+3] = c.A
	}

	return pixels
}

// Image returns the framebuffer as an *image.RGBA.
func (d *Display) Image(fg, bg color.RGBA) *image.RGBA {
	return &image.RGBA{
		Pix:    d.RGBA(fg, bg),
		Stride: DisplayWidth * 4,
		Rect:   image.Rect(0, 0, DisplayWidth, DisplayHeight),
	}
}

// SaveScreenshot encodes the framebuffer as a PNG and writes it to filename.
func (d *Display) SaveScreenshot(filename string, fg, bg color.RGBA) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, d.Image(fg, bg))
}
