//go:build cgo

package hal

import (
	"context"
	"errors"

	"github.com/hajimehoshi/ebiten/v2"
	"golang.org/x/sync/errgroup"

	"firmsim/app"
	"firmsim/internal/buildinfo"
)

// RunWindow shows the board in a desktop window and forwards keyboard and
// mouse input to the control panel. It must be called from the main
// goroutine and blocks until the window closes or ctx is done.
func RunWindow(ctx context.Context, sim *app.Simulation, cfg Config) error {
	h, err := newHost(sim, cfg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sim.Run(gctx) })
	h.start(gctx, g)
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	game := &hostGame{h: h, scr: newScreen(), kbd: newHostKeyboard(), done: done}
	if b, err := newHostBeeper(); err != nil {
		h.cfg.Log.Warnf("beeper: %v", err)
	} else {
		game.beeper = b
		defer b.Close()
	}

	ebiten.SetWindowTitle("firmsim (" + buildinfo.Short() + ")")
	ebiten.SetWindowSize(screenWidth*2, screenHeight*2)
	ebiten.SetTPS(h.cfg.Hz)
	err = ebiten.RunGame(game)
	if errors.Is(err, ebiten.Termination) {
		err = nil
	}
	if !game.finished {
		cancel()
		game.simErr = <-done
	}
	if err == nil {
		err = game.simErr
	}
	if ferr := h.finish(); err == nil {
		err = ferr
	}
	return err
}

type hostGame struct {
	h      *host
	scr    *screen
	kbd    *hostKeyboard
	beeper *hostBeeper

	done     <-chan error
	finished bool
	simErr   error

	touching bool
	touchAt  [2]int

	img     *ebiten.Image
	scratch []byte
	rgba    []byte
}

func (g *hostGame) Update() error {
	if !g.finished {
		select {
		case err := <-g.done:
			g.finished, g.simErr = true, err
			if err == nil {
				return ebiten.Termination
			}
			g.h.cfg.Log.Errorf("%v", err)
			drawPanic(g.scr.fb, err)
		default:
		}
	}
	if g.finished {
		if g.beeper != nil {
			g.beeper.set(false)
		}
		return nil
	}

	g.kbd.poll()
	for drained := false; !drained; {
		select {
		case ev := <-g.kbd.Events():
			applyKey(g.h.sim, ev)
		default:
			drained = true
		}
	}
	g.pollTouch()

	snap, err := g.h.frame()
	if err != nil {
		return err
	}
	g.scr.draw(snap)
	if g.beeper != nil {
		g.beeper.set(snap.Beeping)
	}
	return nil
}

// pollTouch presses the touch panel with the left mouse button.
func (g *hostGame) pollTouch() {
	pressed := ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	x, y := ebiten.CursorPosition()
	switch {
	case pressed && (!g.touching || g.touchAt != [2]int{x, y}):
		g.h.sim.Send(app.Input{Kind: app.InputTouch, Pressed: true, X: x, Y: y})
	case !pressed && g.touching:
		g.h.sim.Send(app.Input{Kind: app.InputTouch})
	}
	g.touching, g.touchAt = pressed, [2]int{x, y}
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	fb := g.scr.fb
	if g.img == nil {
		g.img = ebiten.NewImage(fb.width, fb.height)
		g.scratch = make([]byte, len(fb.buf))
		g.rgba = make([]byte, fb.width*fb.height*4)
	}
	fb.snapshotRGB565(g.scratch)
	for i := 0; i+1 < len(g.scratch); i += 2 {
		r, gg, b := expand565(uint16(g.scratch[i]) | uint16(g.scratch[i+1])<<8)
		j := i * 2
		g.rgba[j+0] = r
		g.rgba[j+1] = gg
		g.rgba[j+2] = b
		g.rgba[j+3] = 0xFF
	}
	g.img.WritePixels(g.rgba)
	screen.DrawImage(g.img, nil)
}

func (g *hostGame) Layout(_, _ int) (int, int) {
	return g.scr.fb.width, g.scr.fb.height
}
