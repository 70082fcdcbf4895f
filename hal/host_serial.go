package hal

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
)

// serialPort is the console side of the simulation.
type serialPort interface {
	WriteSerial(p []byte) int
	ReadSerial(p []byte) int
}

// flushSerial copies pending console output to w.
func flushSerial(sim serialPort, w io.Writer) error {
	var buf [512]byte
	for {
		n := sim.ReadSerial(buf[:])
		if n == 0 {
			return nil
		}
		if _, err := w.Write(buf[:n]); err != nil {
			return errors.Wrap(err, "serial out")
		}
	}
}

// feedSerial forwards r to the console input until r ends or ctx is done.
// When the receive buffer is full it waits for the firmware to drain it.
func feedSerial(ctx context.Context, sim serialPort, r io.Reader) error {
	buf := make([]byte, 256)
	for {
		n, err := r.Read(buf)
		p := buf[:n]
		for len(p) > 0 {
			m := sim.WriteSerial(p)
			p = p[m:]
			if len(p) == 0 {
				break
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Millisecond):
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "serial in")
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}
