package sdcard

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Block 0 of a simulator image holds a flat directory:
//
//	magic "FSD1" | count uint16 | reserved uint16 | count * entry
//	entry: name [24]byte NUL padded | first block uint32 | size uint32
//
// Integers are little endian. Files occupy whole consecutive blocks.
const (
	dirMagic     = "FSD1"
	dirHeader    = 8
	dirEntrySize = 32
	MaxNameLen   = 24

	// MaxEntries is how many entries fit in block 0.
	MaxEntries = (BlockSize - dirHeader) / dirEntrySize
)

var ErrNoDirectory = errors.New("sdcard: block 0 is not a directory")

type Entry struct {
	Name  string
	Block uint32
	Size  uint32
}

// Blocks is the number of blocks the entry occupies.
func (e Entry) Blocks() uint32 { return (e.Size + BlockSize - 1) / BlockSize }

// MarshalDirectory encodes entries into a block 0 image.
func MarshalDirectory(entries []Entry) ([]byte, error) {
	if len(entries) > MaxEntries {
		return nil, fmt.Errorf("sdcard: %d entries, at most %d fit", len(entries), MaxEntries)
	}
	block := make([]byte, BlockSize)
	copy(block, dirMagic)
	binary.LittleEndian.PutUint16(block[4:], uint16(len(entries)))
	for i, e := range entries {
		if e.Name == "" || len(e.Name) > MaxNameLen {
			return nil, fmt.Errorf("sdcard: bad file name %q", e.Name)
		}
		off := dirHeader + i*dirEntrySize
		copy(block[off:off+MaxNameLen], e.Name)
		binary.LittleEndian.PutUint32(block[off+24:], e.Block)
		binary.LittleEndian.PutUint32(block[off+28:], e.Size)
	}
	return block, nil
}

// ParseDirectory decodes block 0.
func ParseDirectory(block []byte) ([]Entry, error) {
	if len(block) < BlockSize || string(block[:4]) != dirMagic {
		return nil, ErrNoDirectory
	}
	n := int(binary.LittleEndian.Uint16(block[4:]))
	if n > MaxEntries {
		return nil, fmt.Errorf("sdcard: directory claims %d entries", n)
	}
	entries := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		off := dirHeader + i*dirEntrySize
		name := block[off : off+MaxNameLen]
		if j := bytes.IndexByte(name, 0); j >= 0 {
			name = name[:j]
		}
		entries = append(entries, Entry{
			Name:  string(name),
			Block: binary.LittleEndian.Uint32(block[off+24:]),
			Size:  binary.LittleEndian.Uint32(block[off+28:]),
		})
	}
	return entries, nil
}
