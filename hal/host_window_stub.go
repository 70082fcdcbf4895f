//go:build !cgo

package hal

import (
	"context"
	"errors"

	"firmsim/app"
)

func RunWindow(_ context.Context, _ *app.Simulation, _ Config) error {
	return errors.New("window mode requires cgo (build with CGO_ENABLED=1), or use -headless")
}
