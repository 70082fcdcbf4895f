package hal

import (
	"testing"

	"firmsim/app"
)

func newTestSim(t *testing.T) *app.Simulation {
	t.Helper()
	cfg := app.DefaultConfig()
	cfg.Clock.Scale = 0
	sim, err := app.New(cfg, nil)
	if err != nil {
		t.Fatalf("app.New() = %v", err)
	}
	t.Cleanup(func() { sim.Close() })
	return sim
}
