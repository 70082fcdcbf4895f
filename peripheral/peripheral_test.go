package peripheral

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firmsim/gpio"
)

type counter struct{ n int }

func (c *counter) Update()              { c.n++ }
func (c *counter) OnEvent(e gpio.Event) { c.n += 10 }

func TestGroupUpdate(t *testing.T) {
	var g Group
	a, b := &counter{}, &counter{}
	g.Add(a)
	g.Add(nil)
	g.Add(b)
	g.Update()
	g.Update()
	assert.Equal(t, 2, g.Len())
	assert.Equal(t, 2, a.n)
	assert.Equal(t, 2, b.n)
}

func TestWiringSharesPins(t *testing.T) {
	f := gpio.New(nil)
	w := NewWiring()
	a, b := &counter{}, &counter{}
	w.On(4, a)
	w.On(4, b)
	w.On(5, a)
	w.On(gpio.NoPin, a)
	w.Apply(f)

	require.Equal(t, []gpio.Pin{4, 5}, w.Pins())
	f.SetHigh(4)
	assert.Equal(t, 10, a.n)
	assert.Equal(t, 10, b.n)
	f.SetHigh(5)
	assert.Equal(t, 20, a.n)
}
