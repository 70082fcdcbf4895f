// Package sdcard models an SD card in SPI mode on top of a raw image file.
package sdcard

import (
	"sync"
	"sync/atomic"

	"firmsim/gpio"
	"firmsim/internal/log"
	"firmsim/peripheral"
	"firmsim/peripheral/spi"
)

// Card commands.
const (
	cmd0   = 0  // GO_IDLE_STATE
	cmd8   = 8  // SEND_IF_COND
	cmd13  = 13 // SEND_STATUS
	cmd16  = 16 // SET_BLOCKLEN
	cmd17  = 17 // READ_SINGLE_BLOCK
	cmd24  = 24 // WRITE_BLOCK
	acmd41 = 41 // SD_SEND_OP_COND
	cmd55  = 55 // APP_CMD
	cmd58  = 58 // READ_OCR
)

// R1 response bits and data tokens.
const (
	r1Ready          = 0x00
	r1Idle           = 0x01
	r1IllegalCommand = 0x04
	r1AddressError   = 0x20

	dataStartBlock   = 0xFE
	dataResAccepted  = 0x05
	dataResWriteFail = 0x0D
)

type state uint8

const (
	stateCommand state = iota
	stateWriteToken
	stateWriteData
)

type Config struct {
	spi.Config
	// Detect is the card-detect switch, pulled low while a card is in.
	Detect gpio.Pin
}

// Card answers the SPI command set printer firmware uses to read and
// write blocks. Block addresses are byte offsets (standard capacity card).
type Card struct {
	f     *gpio.Fabric
	cfg   Config
	slave *spi.Slave
	log   log.Logger

	mu  sync.Mutex
	img *Image

	cmd    int
	arg    uint32
	argN   int
	appCmd bool
	idle   bool
	st     state
	lba    uint32
	buf    []byte

	reads, writes atomic.Uint64
	lastIO        uint64
	busy          atomic.Bool
}

func New(f *gpio.Fabric, cfg Config, img *Image, l log.Logger) *Card {
	if l == nil {
		l = log.NewNullLogger()
	}
	c := &Card{f: f, cfg: cfg, img: img, log: l, cmd: -1, buf: make([]byte, 0, BlockSize+3)}
	c.slave = spi.NewSlave(f, cfg.Config, c)
	return c
}

func (c *Card) Connect(w *peripheral.Wiring) {
	c.slave.Connect(w)
	w.On(c.cfg.Detect, c)
}

// OnEvent answers card-detect queries.
func (c *Card) OnEvent(e gpio.Event) {
	if e.Pin == c.cfg.Detect && e.Kind == gpio.EventQuery {
		v := uint16(1)
		if c.Inserted() {
			v = 0
		}
		c.f.Store(e.Pin, v)
	}
}

// Insert swaps the card image. A nil image ejects the card. Safe from any
// goroutine; the previous image is returned for the caller to close.
func (c *Card) Insert(img *Image) *Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	old := c.img
	c.img = img
	return old
}

func (c *Card) Inserted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.img != nil
}

func (c *Card) image() *Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.img
}

// Reads and Writes count block transfers.
func (c *Card) Reads() uint64  { return c.reads.Load() }
func (c *Card) Writes() uint64 { return c.writes.Load() }

// Busy reports whether a block moved during the last frame.
func (c *Card) Busy() bool { return c.busy.Load() }

func (c *Card) Update() {
	n := c.reads.Load() + c.writes.Load()
	c.busy.Store(n != c.lastIO)
	c.lastIO = n
}

func (c *Card) OnEnd() {
	// A deselect aborts a half-received command.
	if c.st == stateCommand {
		c.cmd = -1
	}
}

func (c *Card) OnBegin() {}

func (c *Card) OnByte(b byte) {
	switch c.st {
	case stateWriteToken:
		if b == dataStartBlock {
			c.st = stateWriteData
			c.buf = c.buf[:0]
		}
		return
	case stateWriteData:
		c.buf = append(c.buf, b)
		if len(c.buf) == BlockSize+2 {
			c.finishWrite()
		}
		return
	}

	if c.cmd < 0 {
		if b&0xC0 != 0x40 {
			return
		}
		c.cmd = int(b & 0x3F)
		c.arg, c.argN = 0, 0
		return
	}
	if c.argN < 4 {
		c.arg = c.arg<<8 | uint32(b)
		c.argN++
		return
	}
	// b is the CRC; it is not checked.
	cmd, app := c.cmd, c.appCmd
	c.cmd = -1
	c.appCmd = false
	c.execute(cmd, app)
}

func (c *Card) r1() byte {
	if c.idle {
		return r1Idle
	}
	return r1Ready
}

func (c *Card) execute(cmd int, app bool) {
	img := c.image()
	if img == nil {
		// No card: the bus floats high.
		return
	}
	switch {
	case cmd == cmd0:
		c.idle = true
		c.st = stateCommand
		c.slave.Reset()
		c.slave.Respond(r1Idle)
	case cmd == cmd8:
		c.slave.Respond(r1IllegalCommand | c.r1())
	case cmd == cmd13:
		c.slave.Respond(c.r1(), 0x00)
	case cmd == cmd16:
		if c.arg != BlockSize {
			c.slave.Respond(c.r1() | r1AddressError)
			return
		}
		c.slave.Respond(c.r1())
	case cmd == cmd55:
		c.appCmd = true
		c.slave.Respond(c.r1())
	case cmd == acmd41 && app:
		c.idle = false
		c.slave.Respond(r1Ready)
	case cmd == cmd58:
		c.slave.Respond(c.r1(), 0x80, 0xFF, 0x80, 0x00)
	case cmd == cmd17:
		c.read(img, c.arg/BlockSize)
	case cmd == cmd24:
		if c.arg/BlockSize >= img.Blocks() || img.ReadOnly() {
			c.slave.Respond(c.r1() | r1AddressError)
			return
		}
		c.lba = c.arg / BlockSize
		c.st = stateWriteToken
		c.slave.Respond(c.r1())
	default:
		c.log.Debugf("sdcard: unsupported command %d (app=%v)", cmd, app)
		c.slave.Respond(c.r1() | r1IllegalCommand)
	}
}

func (c *Card) read(img *Image, lba uint32) {
	block := make([]byte, BlockSize)
	if err := img.ReadBlock(lba, block); err != nil {
		c.log.Debugf("sdcard: %v", err)
		c.slave.Respond(c.r1() | r1AddressError)
		return
	}
	c.reads.Add(1)
	c.slave.Respond(c.r1(), dataStartBlock)
	c.slave.Respond(block...)
	c.slave.Respond(0xFF, 0xFF)
}

func (c *Card) finishWrite() {
	c.st = stateCommand
	img := c.image()
	if img == nil {
		c.slave.Respond(dataResWriteFail)
		return
	}
	if err := img.WriteBlock(c.lba, c.buf[:BlockSize]); err != nil {
		c.log.Errorf("sdcard: %v", err)
		c.slave.Respond(dataResWriteFail)
		return
	}
	c.writes.Add(1)
	c.slave.Respond(dataResAccepted)
}
