package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"firmsim/gpio"
	"firmsim/peripheral"
)

type position float64

func (p *position) Position() float64 { return float64(*p) }

func TestLevelBed(t *testing.T) {
	b := NewBed(200, 200)
	assert.Equal(t, 0.0, b.ZAt(0, 0))
	assert.Equal(t, 0.0, b.ZAt(150, 20))
}

func TestTiltedBed(t *testing.T) {
	b := NewBed(200, 200)
	require.NoError(t, b.Tilt(r3.Vec{}, r3.Vec{X: 200, Z: 2}, r3.Vec{Y: 200}))
	assert.InDelta(t, 0, b.ZAt(0, 0), 1e-9)
	assert.InDelta(t, 1, b.ZAt(100, 100), 1e-9)
	assert.InDelta(t, 2, b.ZAt(200, 50), 1e-9)

	// Point order does not flip the surface.
	require.NoError(t, b.Tilt(r3.Vec{}, r3.Vec{Y: 200}, r3.Vec{X: 200, Z: 2}))
	assert.InDelta(t, 2, b.ZAt(200, 0), 1e-9)
}

func TestTiltRejectsDegeneratePoints(t *testing.T) {
	b := NewBed(200, 200)
	assert.Error(t, b.Tilt(r3.Vec{}, r3.Vec{X: 1}, r3.Vec{X: 2}))
	assert.Error(t, b.Tilt(r3.Vec{}, r3.Vec{X: 1}, r3.Vec{Z: 1}))
	assert.Equal(t, 0.0, b.ZAt(10, 10), "failed tilt left the bed unchanged")
}

func TestProbeAnswersQueries(t *testing.T) {
	for _, hit := range []uint16{0, 1} {
		var x, y, z position = 50, 50, 5
		f := gpio.New(nil)
		bed := NewBed(200, 200)
		p := New(f, bed, Config{Pin: 12, X: &x, Y: &y, Z: &z, Offset: r3.Vec{X: 10, Z: -1}, Hit: hit})
		w := peripheral.NewWiring()
		p.Connect(w)
		w.Apply(f)

		assert.NotEqual(t, hit, f.Get(12), "hit=%d high above bed", hit)
		z = 1.5
		assert.NotEqual(t, hit, f.Get(12), "hit=%d tip 0.5 mm above bed", hit)
		z = 1
		assert.Equal(t, hit, f.Get(12), "hit=%d tip touching", hit)
		assert.Equal(t, uint64(3), p.Reads())

		assert.False(t, p.Shown())
		p.Update()
		assert.True(t, p.Shown())
	}
}

func TestProbeUsesOffsetOnTiltedBed(t *testing.T) {
	var x, y, z position = 0, 0, 1.5
	f := gpio.New(nil)
	bed := NewBed(200, 200)
	require.NoError(t, bed.Tilt(r3.Vec{}, r3.Vec{X: 200, Z: 2}, r3.Vec{Y: 200}))
	p := New(f, bed, Config{Pin: 3, X: &x, Y: &y, Z: &z, Offset: r3.Vec{X: 100}, Hit: 1})

	// The tip sits over x=100 where the bed is 1 mm high.
	assert.False(t, p.Triggered())
	z = 1
	assert.True(t, p.Triggered())
}
