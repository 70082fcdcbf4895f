package demo

import (
	"errors"
	"fmt"

	"firmsim/kernel"
	"firmsim/peripheral/sdcard"
)

const (
	sdCmd0   = 0
	sdCmd8   = 8
	sdCmd16  = 16
	sdCmd17  = 17
	sdCmd55  = 55
	sdAcmd41 = 41

	sdStartBlock = 0xFE
	sdInitTries  = 100
)

// spiXfer exchanges one byte in SPI mode 0.
func (d *Demo) spiXfer(out byte) byte {
	var in byte
	for i := 7; i >= 0; i-- {
		d.f.Set(d.p.SPIMOSI, uint16(out>>i)&1)
		in = in<<1 | byte(d.f.Get(d.p.SPIMISO)&1)
		d.f.SetHigh(d.p.SPIClock)
		d.f.Clear(d.p.SPIClock)
	}
	return in
}

func (d *Demo) sdCommand(cmd byte, arg uint32) byte {
	crc := byte(0x01)
	switch cmd {
	case sdCmd0:
		crc = 0x95
	case sdCmd8:
		crc = 0x87
	}
	d.spiXfer(0x40 | cmd)
	d.spiXfer(byte(arg >> 24))
	d.spiXfer(byte(arg >> 16))
	d.spiXfer(byte(arg >> 8))
	d.spiXfer(byte(arg))
	d.spiXfer(crc)
	for i := 0; i < 8; i++ {
		if r := d.spiXfer(0xFF); r != 0xFF {
			return r
		}
	}
	return 0xFF
}

func (d *Demo) sdInit() error {
	if !d.p.SDSelect.Valid() || d.f.Get(d.p.SDDetect) != 0 {
		return errNoCard
	}
	d.f.SetHigh(d.p.SDSelect)
	for i := 0; i < 10; i++ {
		d.spiXfer(0xFF)
	}
	d.f.Clear(d.p.SDSelect)
	defer d.f.SetHigh(d.p.SDSelect)

	if r := d.sdCommand(sdCmd0, 0); r != 0x01 {
		return fmt.Errorf("CMD0 returned %#02x", r)
	}
	d.sdCommand(sdCmd8, 0x1AA)
	for i := 0; ; i++ {
		d.sdCommand(sdCmd55, 0)
		if d.sdCommand(sdAcmd41, 0) == 0 {
			break
		}
		if i == sdInitTries {
			return errors.New("card stayed idle")
		}
		if err := d.k.DelayMillis(1); err != nil {
			return err
		}
	}
	if r := d.sdCommand(sdCmd16, sdcard.BlockSize); r != 0 {
		return fmt.Errorf("CMD16 returned %#02x", r)
	}
	return nil
}

func (d *Demo) sdRead(lba uint32, dst []byte) error {
	d.f.Clear(d.p.SDSelect)
	defer d.f.SetHigh(d.p.SDSelect)
	if r := d.sdCommand(sdCmd17, lba*sdcard.BlockSize); r != 0 {
		return fmt.Errorf("CMD17 returned %#02x", r)
	}
	token := byte(0xFF)
	for i := 0; i < 100 && token == 0xFF; i++ {
		token = d.spiXfer(0xFF)
	}
	if token != sdStartBlock {
		return fmt.Errorf("bad data token %#02x", token)
	}
	for i := range dst[:sdcard.BlockSize] {
		dst[i] = d.spiXfer(0xFF)
	}
	d.spiXfer(0xFF)
	d.spiXfer(0xFF)
	return nil
}

// mountSD reads the file list. Card problems are reported on the console;
// only scheduler errors are returned.
func (d *Demo) mountSD() error {
	d.sdReady = false
	d.files = nil
	err := d.sdInit()
	if err == nil {
		block := make([]byte, sdcard.BlockSize)
		if err = d.sdRead(0, block); err == nil {
			d.files, err = sdcard.ParseDirectory(block)
		}
	}
	switch {
	case errors.Is(err, kernel.ErrCancelled):
		return err
	case errors.Is(err, errNoCard):
		d.println("echo:No SD card")
	case err != nil:
		d.printf("echo:SD init fail: %v", err)
	default:
		d.sdReady = true
		d.println("echo:SD card ok")
	}
	return nil
}
