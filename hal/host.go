package hal

import (
	"context"
	"io"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"firmsim/app"
	"firmsim/internal/log"
)

// Config controls how a simulation is connected to the host.
type Config struct {
	// Hz is the frame rate for publishing peripheral state.
	Hz int
	// Frames stops a headless run after that many frames (0 = forever).
	Frames uint64

	// In and Out carry the firmware console. Out defaults to stdout; In
	// is optional.
	In  io.Reader
	Out io.Writer
	// PTY exposes the console on a pseudo terminal instead of In/Out.
	PTY bool
	// Telemetry is the websocket listen address; empty disables it.
	Telemetry string

	Log log.Logger
}

func (c *Config) defaults() {
	if c.Hz <= 0 {
		c.Hz = 60
	}
	if c.Out == nil {
		c.Out = os.Stdout
	}
	if c.Log == nil {
		c.Log = log.NewNullLogger()
	}
}

// host is the plumbing shared by the window and headless runners: the
// console, an optional pseudo terminal and the telemetry server.
type host struct {
	sim *app.Simulation
	cfg Config
	out io.Writer
	tel *telemetry
	pty *pty
}

func newHost(sim *app.Simulation, cfg Config) (*host, error) {
	cfg.defaults()
	h := &host{sim: sim, cfg: cfg, out: cfg.Out}
	if cfg.PTY {
		p, err := openPTY()
		if err != nil {
			return nil, err
		}
		h.pty = p
		h.out = p
		cfg.Log.Infof("console on %s", p.Name())
	}
	if cfg.Telemetry != "" {
		h.tel = newTelemetry(sim, cfg.Log)
		h.out = io.MultiWriter(h.out, h.tel)
	}
	return h, nil
}

// start launches the host services on g. Reading a plain In stream is
// not cancellable, so it runs outside the group.
func (h *host) start(ctx context.Context, g *errgroup.Group) {
	if h.pty != nil {
		g.Go(func() error { return feedSerial(ctx, h.sim, h.pty) })
		g.Go(func() error {
			<-ctx.Done()
			return h.pty.Close()
		})
	} else if h.cfg.In != nil {
		go func() {
			if err := feedSerial(ctx, h.sim, h.cfg.In); err != nil {
				h.cfg.Log.Warnf("console: %v", err)
			}
		}()
	}
	if h.tel != nil {
		g.Go(func() error { return h.tel.serve(ctx, h.cfg.Telemetry) })
	}
}

// frame publishes the board state and console output.
func (h *host) frame() (app.Snapshot, error) {
	h.sim.Update()
	snap := h.sim.Snapshot()
	if h.tel != nil {
		h.tel.publish(snap)
	}
	return snap, flushSerial(h.sim, h.out)
}

// finish flushes what the firmware printed last. The PTY is closed by then.
func (h *host) finish() error {
	if h.pty != nil {
		return nil
	}
	_, err := h.frame()
	return err
}

func (h *host) period() time.Duration {
	return time.Second / time.Duration(h.cfg.Hz)
}
