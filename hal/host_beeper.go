//go:build cgo

package hal

import (
	"sync/atomic"
	"time"

	"github.com/hajimehoshi/ebiten/v2/audio"
)

const (
	beeperSampleRate = 44100
	beeperTone       = 2700 // Hz, a typical piezo buzzer
	beeperVolume     = 0.2
)

// hostBeeper plays a square wave while the panel beeper pin is driven.
type hostBeeper struct {
	on     atomic.Bool
	player *audio.Player
}

func newHostBeeper() (*hostBeeper, error) {
	b := &hostBeeper{}
	ctx := audio.NewContext(beeperSampleRate)
	p, err := ctx.NewPlayer(&squareWave{on: &b.on})
	if err != nil {
		return nil, err
	}
	p.SetBufferSize(50 * time.Millisecond)
	p.SetVolume(beeperVolume)
	p.Play()
	b.player = p
	return b, nil
}

func (b *hostBeeper) set(on bool) { b.on.Store(on) }

func (b *hostBeeper) Close() error { return b.player.Close() }

// squareWave is an endless 16-bit stereo stream, silent while on is false.
type squareWave struct {
	on    *atomic.Bool
	phase int
}

func (w *squareWave) Read(p []byte) (int, error) {
	const half = beeperSampleRate / beeperTone / 2
	on := w.on.Load()
	n := len(p) / 4 * 4
	for i := 0; i < n; i += 4 {
		var s int16
		if on {
			s = 0x3000
			if w.phase >= half {
				s = -s
			}
		}
		w.phase = (w.phase + 1) % (2 * half)
		p[i+0] = byte(s)
		p[i+1] = byte(s >> 8)
		p[i+2] = byte(s)
		p[i+3] = byte(s >> 8)
	}
	return n, nil
}
