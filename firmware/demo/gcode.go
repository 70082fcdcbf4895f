package demo

import (
	"strconv"
	"strings"

	"firmsim/gpio"
)

const maxLine = 96

// receive collects one console byte and runs complete lines.
func (d *Demo) receive(b byte) error {
	switch b {
	case '\n', '\r':
		line := string(d.line)
		d.line = d.line[:0]
		if d.overflow {
			d.overflow = false
			d.println("Error:Line too long")
			return nil
		}
		if strings.TrimSpace(line) == "" {
			return nil
		}
		return d.execute(line)
	default:
		if len(d.line) == maxLine {
			d.overflow = true
			return nil
		}
		d.line = append(d.line, b)
	}
	return nil
}

type command struct {
	code   string
	params map[byte]float64
}

func (c command) has(p byte) bool {
	_, ok := c.params[p]
	return ok
}

// parseCommand splits "G1 X10.5 F3000 ; comment" into its word and
// parameters. Malformed numbers are dropped.
func parseCommand(line string) command {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	fields := strings.Fields(strings.ToUpper(line))
	c := command{params: make(map[byte]float64)}
	if len(fields) == 0 {
		return c
	}
	c.code = fields[0]
	for _, f := range fields[1:] {
		if len(f) < 2 {
			continue
		}
		v, err := strconv.ParseFloat(f[1:], 64)
		if err != nil {
			continue
		}
		c.params[f[0]] = v
	}
	return c
}

func (d *Demo) execute(line string) error {
	c := parseCommand(line)
	if d.killed && c.code != "M999" {
		d.println("echo:Printer halted, send M999")
		return nil
	}
	switch c.code {
	case "":
	case "G0", "G1":
		if c.has('X') {
			d.moveTo(c.params['X'])
		}
	case "G28":
		if err := d.home(); err != nil {
			return err
		}
	case "G30":
		if err := d.probeBed(); err != nil {
			return err
		}
	case "M20":
		if !d.sdReady {
			d.println("echo:No SD card")
			break
		}
		d.println("Begin file list")
		for _, e := range d.files {
			d.printf("%s %d", e.Name, e.Size)
		}
		d.println("End file list")
	case "M21":
		if err := d.mountSD(); err != nil {
			return err
		}
	case "M104":
		if c.has('S') {
			d.setTarget(c.params['S'])
		}
	case "M105":
		power := 0
		if d.heating {
			power = 127
		}
		if d.p.BedThermistor.Valid() {
			d.printf("ok T:%.2f /%.2f B:%.2f /%.2f @:%d", d.temp, d.setpoint, d.bed.temp, d.bed.setpoint, power)
			return nil
		}
		d.printf("ok T:%.2f /%.2f @:%d", d.temp, d.setpoint, power)
		return nil
	case "M140":
		if c.has('S') {
			d.setBedTarget(c.params['S'])
		}
	case "M114":
		d.printf("X:%.2f Count X:%d", float64(d.position)/d.cfg.StepsPerMM, d.position)
	case "M119":
		d.println("Reporting endstop status")
		d.printf("x_min: %s", d.endstop(d.p.XMin))
		d.printf("x_max: %s", d.endstop(d.p.XMax))
		if d.p.YMin.Valid() {
			d.printf("y_min: %s", d.endstop(d.p.YMin))
		}
		if d.p.ZMin.Valid() {
			d.printf("z_min: %s", d.endstop(d.p.ZMin))
		}
		if d.p.Probe.Valid() {
			state := "open"
			if d.f.Get(d.p.Probe) == d.cfg.ProbeHit {
				state = "TRIGGERED"
			}
			d.printf("z_probe: %s", state)
		}
	case "M123":
		d.printf("echo:fan tach %d Hz", d.tachHz)
	case "M300":
		ms := uint64(100)
		if c.has('P') && c.params['P'] > 0 {
			ms = uint64(c.params['P'])
		}
		d.beep(ms)
	case "M999":
		d.killed = false
		d.println("echo:Resumed")
	default:
		d.printf("echo:Unknown command: \"%s\"", strings.TrimSpace(line))
	}
	d.println("ok")
	return nil
}

func (d *Demo) endstop(p gpio.Pin) string {
	if p.Valid() && d.f.Get(p) == d.cfg.EndstopHit {
		return "TRIGGERED"
	}
	return "open"
}
