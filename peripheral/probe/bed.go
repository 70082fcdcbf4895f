package probe

import (
	"math"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"
)

// Bed is a flat print surface, possibly tilted, spanning Width x Depth mm
// from the origin.
type Bed struct {
	Width, Depth float64

	mu     sync.RWMutex
	center r3.Vec
	normal r3.Vec
}

// NewBed returns a level bed at Z = 0.
func NewBed(width, depth float64) *Bed {
	return &Bed{
		Width:  width,
		Depth:  depth,
		center: r3.Vec{X: width / 2, Y: depth / 2},
		normal: r3.Vec{Z: 1},
	}
}

// Tilt fits the bed plane through three points. The plane keeps passing
// over the bed centre.
func (b *Bed) Tilt(p1, p2, p3 r3.Vec) error {
	n := r3.Cross(r3.Sub(p2, p1), r3.Sub(p3, p1))
	if r3.Norm(n) == 0 {
		return errors.New("bed points are collinear")
	}
	n = r3.Unit(n)
	if math.Abs(n.Z) < 1e-9 {
		return errors.New("bed plane is vertical")
	}
	if n.Z < 0 {
		n = r3.Scale(-1, n)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.normal = n
	b.center.Z = p1.Z - (n.X*(b.center.X-p1.X)+n.Y*(b.center.Y-p1.Y))/n.Z
	return nil
}

// ZAt is the height of the bed surface under (x, y).
func (b *Bed) ZAt(x, y float64) float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n, c := b.normal, b.center
	return c.Z - (n.X*(x-c.X)+n.Y*(y-c.Y))/n.Z
}
