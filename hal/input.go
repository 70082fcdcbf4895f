package hal

import "firmsim/app"

const (
	minScale = 1.0 / 64
	maxScale = 64
)

// applyKey maps the host keyboard onto the control panel and the pacer.
func applyKey(sim *app.Simulation, ev KeyEvent) {
	switch ev.Code {
	case KeyLeft, KeyRight:
		if ev.Press {
			sim.Rotate(ev.Code == KeyRight)
		}
		return
	case KeyEnter:
		sim.Send(app.Input{Kind: app.InputButton, Pressed: ev.Press})
		return
	case KeyEscape:
		sim.Send(app.Input{Kind: app.InputKill, Pressed: ev.Press})
		return
	}
	if !ev.Press {
		return
	}
	switch ev.Code {
	case KeyF1:
		sim.Pacer.SetPaused(!sim.Pacer.Paused())
	case KeyF2:
		sim.Pacer.SetScale(nextScale(sim.Pacer.Scale(), 0.5))
	case KeyF3:
		sim.Pacer.SetScale(nextScale(sim.Pacer.Scale(), 2))
	}
	switch ev.Rune {
	case 'r', 'R':
		sim.Send(app.Input{Kind: app.InputRunout, Present: !sim.Runout.Present()})
	}
}

// nextScale multiplies the time scale, leaving unthrottled mode at 1.
func nextScale(scale, factor float64) float64 {
	if scale == 0 {
		return 1
	}
	scale *= factor
	return min(max(scale, minScale), maxScale)
}
