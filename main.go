package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"firmsim/app"
	"firmsim/hal"
	"firmsim/internal/buildinfo"
	"firmsim/internal/log"
)

func main() {
	var (
		cfg      hal.Config
		headless bool
		path     string
		sdImage  string
		scale    float64
		debug    bool
		version  bool
	)
	flag.BoolVar(&headless, "headless", false, "Run without a window.")
	flag.IntVar(&cfg.Hz, "hz", 60, "Frame rate for the display and telemetry.")
	flag.Uint64Var(&cfg.Frames, "ticks", 0, "Stop after N frames in headless mode (0 = run forever).")
	flag.StringVar(&path, "config", "", "Board config (YAML); empty uses the built-in board.")
	flag.StringVar(&cfg.Telemetry, "telemetry", "", "Serve websocket telemetry on this address, e.g. :8080.")
	flag.StringVar(&sdImage, "sd", "", "SD card image (see mksdimg).")
	flag.Float64Var(&scale, "scale", -1, "Virtual seconds per real second (0 = unthrottled); negative keeps the config value.")
	flag.BoolVar(&cfg.PTY, "pty", false, "Expose the console on a pseudo terminal.")
	flag.BoolVar(&debug, "debug", false, "Verbose logging.")
	flag.BoolVar(&version, "version", false, "Print the version and exit.")
	flag.Parse()

	if version {
		fmt.Println(buildinfo.String())
		return
	}

	l := log.New(debug)
	cfg.Log = l
	if err := run(headless, path, sdImage, scale, debug, cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(headless bool, path, sdImage string, scale float64, debug bool, cfg hal.Config) error {
	board := app.DefaultConfig()
	if path != "" {
		var err error
		if board, err = app.LoadConfig(path); err != nil {
			return err
		}
	}
	if sdImage != "" {
		board.SD.Image = sdImage
	}
	if scale >= 0 {
		board.Clock.Scale = scale
	}
	board.Debug = board.Debug || debug

	sim, err := app.New(board, cfg.Log)
	if err != nil {
		return err
	}
	defer sim.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if !cfg.PTY {
		cfg.In = os.Stdin
	}
	if headless {
		return hal.RunHeadless(ctx, sim, cfg)
	}
	return hal.RunWindow(ctx, sim, cfg)
}
