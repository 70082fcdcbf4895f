package hal

import (
	"errors"
	"fmt"
	"image/color"
	"strings"
	"unicode/utf8"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"

	"firmsim/kernel"
)

var (
	colorPanicBackground = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	colorPanicText       = color.RGBA{A: 0xFF}
)

// panicLines describes why the firmware stopped.
func panicLines(err error) []string {
	var pe *kernel.PanicError
	if !errors.As(err, &pe) {
		return []string{"Firmware stopped:", err.Error()}
	}
	lines := []string{
		"Firmware panic:",
		"source: " + pe.Source,
		fmt.Sprintf("panic: %v", pe.Value),
	}
	if len(pe.Stack) == 0 {
		return append(lines, "stack: unavailable")
	}
	lines = append(lines, "stack:")
	for _, line := range strings.Split(string(pe.Stack), "\n") {
		if line != "" {
			lines = append(lines, strings.ReplaceAll(line, "\t", "  "))
		}
	}
	return lines
}

// drawPanic replaces the screen with the error, wrapping long lines and
// dropping what does not fit.
func drawPanic(fb *hostFramebuffer, err error) {
	fb.ClearRGB(colorPanicBackground.R, colorPanicBackground.G, colorPanicBackground.B)

	font := &proggy.TinySZ8pt7b
	_, w := tinyfont.LineWidth(font, "0")
	cols := 1
	if w > 0 {
		cols = max(fb.Width()/int(w), 1)
	}
	y := lineHeight
	for _, line := range panicLines(err) {
		for len(line) > 0 {
			if y > fb.Height() {
				return
			}
			chunk, rest := takeRunes(line, cols)
			tinyfont.WriteLine(fb, font, 0, int16(y), chunk, colorPanicText)
			y += lineHeight
			line = strings.TrimLeft(rest, " ")
		}
	}
}

func takeRunes(s string, n int) (head, tail string) {
	if utf8.RuneCountInString(s) <= n {
		return s, ""
	}
	i := 0
	for j := range s {
		if i == n {
			return s[:j], s[j:]
		}
		i++
	}
	return s, ""
}
