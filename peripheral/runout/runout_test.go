package runout

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"firmsim/gpio"
	"firmsim/peripheral"
)

func TestRunoutSwitch(t *testing.T) {
	for _, trigger := range []uint16{0, 1} {
		f := gpio.New(nil)
		s := New(f, 9, trigger)
		w := peripheral.NewWiring()
		s.Connect(w)
		w.Apply(f)

		assert.NotEqual(t, trigger, f.Get(9), "trigger=%d loaded", trigger)
		s.SetPresent(false)
		assert.Equal(t, trigger, f.Get(9), "trigger=%d empty", trigger)
		assert.True(t, s.Shown())
		s.Update()
		assert.False(t, s.Shown())
	}
}
