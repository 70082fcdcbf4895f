package hal

import (
	"errors"
	"fmt"
	"testing"

	"firmsim/kernel"
)

func TestPanicLines(t *testing.T) {
	err := fmt.Errorf("run: %w", &kernel.PanicError{Source: "stepper", Value: "boom", Stack: []byte("main.f()\n\tf.go:1\n")})
	lines := panicLines(err)
	want := []string{"Firmware panic:", "source: stepper", "panic: boom", "stack:", "main.f()", "  f.go:1"}
	if len(lines) != len(want) {
		t.Fatalf("panicLines() = %q, want %q", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("panicLines()[%d] = %q, want %q", i, lines[i], want[i])
		}
	}

	lines = panicLines(errors.New("disk full"))
	if len(lines) != 2 || lines[1] != "disk full" {
		t.Fatalf("panicLines(plain) = %q", lines)
	}
}

func TestTakeRunes(t *testing.T) {
	head, tail := takeRunes("héllo", 2)
	if head != "hé" || tail != "llo" {
		t.Fatalf("takeRunes() = %q, %q", head, tail)
	}
	head, tail = takeRunes("ok", 5)
	if head != "ok" || tail != "" {
		t.Fatalf("takeRunes() = %q, %q", head, tail)
	}
}

func TestDrawPanic(t *testing.T) {
	s := newScreen()
	drawPanic(s.fb, errors.New("stopped"))
	white := rgb565(colorPanicBackground)
	if got := s.fb.pixel(screenWidth-1, screenHeight-1); got != white {
		t.Fatalf("corner pixel = %#04x, want %#04x", got, white)
	}
	var dark int
	for y := 0; y < 2*lineHeight; y++ {
		for x := 0; x < screenWidth; x++ {
			if s.fb.pixel(x, y) != white {
				dark++
			}
		}
	}
	if dark == 0 {
		t.Fatal("no text drawn")
	}
}
