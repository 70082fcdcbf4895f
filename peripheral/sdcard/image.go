package sdcard

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// BlockSize is the only block length the card supports.
const BlockSize = 512

var (
	ErrNoImage    = errors.New("sdcard: no image")
	ErrOutOfRange = errors.New("sdcard: block out of range")
)

// Image is a raw card image backed by a host file.
type Image struct {
	mu   sync.Mutex
	f    *os.File
	size int64
	ro   bool
}

// OpenImage opens an existing image. It falls back to read-only when the
// file cannot be opened for writing.
func OpenImage(path string) (*Image, error) {
	ro := false
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		f, err = os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open sd image %q: %w", path, err)
		}
		ro = true
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat sd image %q: %w", path, err)
	}
	if st.Size() < BlockSize {
		_ = f.Close()
		return nil, fmt.Errorf("sd image %q: %d bytes is smaller than one block", path, st.Size())
	}
	return &Image{f: f, size: st.Size() - st.Size()%BlockSize, ro: ro}, nil
}

// CreateImage creates (or truncates) an image of blocks zeroed blocks.
func CreateImage(path string, blocks uint32) (*Image, error) {
	if blocks == 0 {
		return nil, fmt.Errorf("create sd image %q: zero blocks", path)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create sd image %q: %w", path, err)
	}
	size := int64(blocks) * BlockSize
	if err := f.Truncate(size); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("truncate sd image %q to %d: %w", path, size, err)
	}
	return &Image{f: f, size: size}, nil
}

func (im *Image) Blocks() uint32 { return uint32(im.size / BlockSize) }
func (im *Image) ReadOnly() bool { return im.ro }

func (im *Image) ReadBlock(lba uint32, dst []byte) error {
	im.mu.Lock()
	defer im.mu.Unlock()
	if im.f == nil {
		return ErrNoImage
	}
	if lba >= im.Blocks() {
		return fmt.Errorf("read block %d: %w", lba, ErrOutOfRange)
	}
	if _, err := im.f.ReadAt(dst[:BlockSize], int64(lba)*BlockSize); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read block %d: %w", lba, err)
	}
	return nil
}

func (im *Image) WriteBlock(lba uint32, src []byte) error {
	im.mu.Lock()
	defer im.mu.Unlock()
	if im.f == nil {
		return ErrNoImage
	}
	if im.ro {
		return fmt.Errorf("write block %d: %w", lba, os.ErrPermission)
	}
	if lba >= im.Blocks() {
		return fmt.Errorf("write block %d: %w", lba, ErrOutOfRange)
	}
	if _, err := im.f.WriteAt(src[:BlockSize], int64(lba)*BlockSize); err != nil {
		return fmt.Errorf("write block %d: %w", lba, err)
	}
	return nil
}

func (im *Image) Close() error {
	im.mu.Lock()
	defer im.mu.Unlock()
	if im.f == nil {
		return nil
	}
	err := im.f.Close()
	im.f = nil
	return err
}
