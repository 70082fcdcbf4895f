//go:build !linux

package hal

type pty struct{}

func openPTY() (*pty, error) { return nil, ErrNotImplemented }

func (p *pty) Name() string                { return "" }
func (p *pty) Read(b []byte) (int, error)  { return 0, ErrNotImplemented }
func (p *pty) Write(b []byte) (int, error) { return 0, ErrNotImplemented }
func (p *pty) Close() error                { return nil }
