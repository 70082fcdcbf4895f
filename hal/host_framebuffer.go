package hal

import (
	"image/color"
	"sync"

	"tinygo.org/x/drivers"
)

var (
	_ drivers.Displayer = (*hostFramebuffer)(nil)
	_ Framebuffer       = (*hostFramebuffer)(nil)
)

// hostFramebuffer is the window's backing store. It doubles as a
// drivers.Displayer so tinyfont can draw into it.
type hostFramebuffer struct {
	mu     sync.Mutex
	width  int
	height int
	stride int
	buf    []byte
}

func newHostFramebuffer(width, height int) *hostFramebuffer {
	stride := width * 2
	return &hostFramebuffer{
		width:  width,
		height: height,
		stride: stride,
		buf:    make([]byte, stride*height),
	}
}

func (f *hostFramebuffer) Width() int          { return f.width }
func (f *hostFramebuffer) Height() int         { return f.height }
func (f *hostFramebuffer) Format() PixelFormat { return PixelFormatRGB565 }
func (f *hostFramebuffer) StrideBytes() int    { return f.stride }
func (f *hostFramebuffer) Buffer() []byte      { return f.buf }
func (f *hostFramebuffer) Present() error      { return nil }

func (f *hostFramebuffer) ClearRGB(r, g, b uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pixel := rgb565(color.RGBA{R: r, G: g, B: b})
	lo := byte(pixel)
	hi := byte(pixel >> 8)
	for i := 0; i < len(f.buf); i += 2 {
		f.buf[i] = lo
		f.buf[i+1] = hi
	}
}

func (f *hostFramebuffer) Size() (x, y int16) { return int16(f.width), int16(f.height) }

func (f *hostFramebuffer) SetPixel(x, y int16, c color.RGBA) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setPixel(int(x), int(y), rgb565(c))
}

func (f *hostFramebuffer) setPixel(x, y int, p uint16) {
	if x < 0 || x >= f.width || y < 0 || y >= f.height {
		return
	}
	off := y*f.stride + x*2
	f.buf[off] = byte(p)
	f.buf[off+1] = byte(p >> 8)
}

// fillRect paints the rectangle [x, x+w) x [y, y+h).
func (f *hostFramebuffer) fillRect(x, y, w, h int, c color.RGBA) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := rgb565(c)
	for j := y; j < y+h; j++ {
		for i := x; i < x+w; i++ {
			f.setPixel(i, j, p)
		}
	}
}

func (f *hostFramebuffer) Display() error { return nil }

func (f *hostFramebuffer) snapshotRGB565(dst []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy(dst, f.buf)
}

// pixel returns the RGB565 value at (x, y).
func (f *hostFramebuffer) pixel(x, y int) uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	off := y*f.stride + x*2
	return uint16(f.buf[off]) | uint16(f.buf[off+1])<<8
}
