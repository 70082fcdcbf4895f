// Command simtrace runs the board unthrottled and plots the hot end
// temperature and the X position over virtual time.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"firmsim/app"
	"firmsim/internal/log"
)

type options struct {
	config  string
	seconds float64
	step    float64
	target  float64
	move    float64
}

type trace struct {
	temp plotter.XYs
	x    plotter.XYs
	late uint64
}

func main() {
	var (
		o       options
		tempOut = flag.String("out", "temperature.png", "Temperature plot (.png, .svg or .pdf).")
		xOut    = flag.String("xout", "", "Optional X position plot.")
		debug   = flag.Bool("debug", false, "Log scheduler details.")
	)
	flag.StringVar(&o.config, "config", "", "Board config (YAML); empty uses the built-in board.")
	flag.Float64Var(&o.seconds, "seconds", 120, "Virtual seconds to simulate.")
	flag.Float64Var(&o.step, "step", 0.25, "Sample interval in virtual seconds.")
	flag.Float64Var(&o.target, "target", 200, "Hot end target, °C (M104).")
	flag.Float64Var(&o.move, "move", -1, "Move X to this position after homing; negative skips the move.")
	flag.Parse()

	tr, err := run(o, log.New(*debug))
	if err != nil {
		fatalf("simtrace: %v", err)
	}
	if err := render(*tempOut, "Hot end", "°C", tr.temp, o.target); err != nil {
		fatalf("simtrace: %v", err)
	}
	if *xOut != "" {
		if err := render(*xOut, "X axis", "mm", tr.x, o.move); err != nil {
			fatalf("simtrace: %v", err)
		}
	}
	fmt.Printf("%d samples, %d late firings\n", len(tr.temp), tr.late)
}

func fatalf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func run(o options, l log.Logger) (*trace, error) {
	if o.step <= 0 || o.seconds <= 0 {
		return nil, fmt.Errorf("seconds and step must be positive")
	}
	cfg := app.DefaultConfig()
	if o.config != "" {
		var err error
		if cfg, err = app.LoadConfig(o.config); err != nil {
			return nil, err
		}
	}
	cfg.Clock.Scale = 0
	sim, err := app.New(cfg, l)
	if err != nil {
		return nil, err
	}
	defer sim.Close()

	script := fmt.Sprintf("M104 S%g\n", o.target)
	if o.move >= 0 {
		script += fmt.Sprintf("G28\nG1 X%g\n", o.move)
	}
	if n := sim.WriteSerial([]byte(script)); n != len(script) {
		return nil, fmt.Errorf("console accepted %d of %d bytes", n, len(script))
	}

	tr := &trace{}
	buf := make([]byte, 256)
	for t := o.step; t <= o.seconds+o.step/2; t += o.step {
		if err := sim.AdvanceSeconds(o.step); err != nil {
			return nil, err
		}
		for sim.ReadSerial(buf) > 0 {
		}
		sim.Update()
		snap := sim.Snapshot()
		tr.temp = append(tr.temp, plotter.XY{X: snap.Seconds, Y: snap.Temp})
		tr.x = append(tr.x, plotter.XY{X: snap.Seconds, Y: snap.X})
	}
	for _, st := range sim.Kernel.Stats() {
		tr.late += st.Late
	}
	return tr, nil
}

// render plots samples with a dashed reference line at ref (skipped when
// negative) and saves the plot; the format follows the file extension.
func render(path, title, unit string, samples plotter.XYs, ref float64) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "virtual time (s)"
	p.Y.Label.Text = unit
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(samples)
	if err != nil {
		return err
	}
	line.Color = color.RGBA{R: 0xD0, G: 0x30, B: 0x20, A: 0xFF}
	p.Add(line)
	p.Legend.Add("measured", line)

	if ref >= 0 {
		target := plotter.NewFunction(func(float64) float64 { return ref })
		target.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
		p.Add(target)
		p.Legend.Add("target", target)
	}
	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}
