package hal

import (
	"fmt"
	"image/color"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"

	"firmsim/app"
	"firmsim/peripheral/st7920"
)

const (
	screenWidth  = 320
	screenHeight = 240

	lcdScale = 2
	lcdX     = (screenWidth - st7920.Width*lcdScale) / 2
	lcdY     = 8

	statusY    = lcdY + st7920.Height*lcdScale + 20
	lineHeight = 11
)

var (
	colorBackground = color.RGBA{R: 0x18, G: 0x18, B: 0x18, A: 0xFF}
	colorLCDOff     = color.RGBA{R: 0x10, G: 0x30, B: 0xC0, A: 0xFF}
	colorLCDOn      = color.RGBA{R: 0xE0, G: 0xF0, B: 0xFF, A: 0xFF}
	colorText       = color.RGBA{R: 0xD0, G: 0xD0, B: 0xD0, A: 0xFF}
	colorAlert      = color.RGBA{R: 0xFF, G: 0xC0, B: 0x00, A: 0xFF}
)

// screen renders snapshots into a framebuffer. It redraws the panel only
// when the frame changed.
type screen struct {
	fb        *hostFramebuffer
	lastFrame uint64
	drawn     bool
}

func newScreen() *screen {
	return &screen{fb: newHostFramebuffer(screenWidth, screenHeight)}
}

func (s *screen) draw(snap app.Snapshot) {
	if !s.drawn {
		s.fb.ClearRGB(colorBackground.R, colorBackground.G, colorBackground.B)
		s.drawn = true
		s.lastFrame = snap.FrameID + 1
	}
	if snap.FrameID != s.lastFrame {
		s.drawLCD(&snap.Frame)
		s.lastFrame = snap.FrameID
	}
	s.fb.fillRect(0, statusY-lineHeight, screenWidth, screenHeight-statusY+lineHeight, colorBackground)
	for i, line := range statusLines(snap) {
		c := colorText
		if i == 0 && snap.Beeping {
			c = colorAlert
		}
		tinyfont.WriteLine(s.fb, &proggy.TinySZ8pt7b, 4, int16(statusY+i*lineHeight), line, c)
	}
}

func (s *screen) drawLCD(fr *st7920.Frame) {
	for y := 0; y < st7920.Height; y++ {
		for x := 0; x < st7920.Width; x++ {
			c := colorLCDOff
			if fr.Pixel(x, y) {
				c = colorLCDOn
			}
			s.fb.fillRect(lcdX+x*lcdScale, lcdY+y*lcdScale, lcdScale, lcdScale, c)
		}
	}
}

func statusLines(snap app.Snapshot) []string {
	state := fmt.Sprintf("x%.2f", snap.Scale)
	if snap.Scale == 0 {
		state = "fast"
	}
	if snap.Paused {
		state = "paused"
	}
	lines := []string{
		fmt.Sprintf("T %6.1fC  X %7.2fmm  %s", snap.Temp, snap.X, beep(snap.Beeping)),
		fmt.Sprintf("B %6.1fC  Y %7.2f  Z %6.2f  probe %s", snap.BedTemp, snap.Y, snap.Z, onOff(snap.Probe)),
		fmt.Sprintf("t %10.3fs  %s", snap.Seconds, state),
		fmt.Sprintf("SD %s  runout %s  LED %s", sdState(snap), onOff(snap.Runout), onOff(snap.LED)),
	}
	var late uint64
	var worst uint64
	for _, st := range snap.Stats {
		late += st.Late
		worst = max(worst, st.MaxLateness)
	}
	lines = append(lines, fmt.Sprintf("late %d  worst %d ticks", late, worst))
	return lines
}

func beep(on bool) string {
	if on {
		return "BEEP"
	}
	return ""
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func sdState(snap app.Snapshot) string {
	switch {
	case !snap.SDCard:
		return "none"
	case snap.SDBusy:
		return "busy"
	}
	return "idle"
}
