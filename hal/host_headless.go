package hal

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"firmsim/app"
)

// RunHeadless runs sim without a window until ctx is done, the firmware
// fails or cfg.Frames frames were published.
func RunHeadless(ctx context.Context, sim *app.Simulation, cfg Config) error {
	h, err := newHost(sim, cfg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return sim.Run(gctx)
	})
	h.start(gctx, g)
	g.Go(func() error {
		t := time.NewTicker(h.period())
		defer t.Stop()
		var frames uint64
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
			}
			if _, err := h.frame(); err != nil {
				return err
			}
			frames++
			if cfg.Frames > 0 && frames >= cfg.Frames {
				cancel()
				return nil
			}
		}
	})
	err = g.Wait()
	if ferr := h.finish(); err == nil {
		err = ferr
	}
	return err
}
