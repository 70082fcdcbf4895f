//go:build linux

package hal

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// pty is a pseudo terminal whose slave side a host program (a terminal,
// a print host) opens as if it were the board's USB serial port.
type pty struct {
	master *os.File
	slave  *os.File
	name   string
}

func openPTY() (*pty, error) {
	fd, err := unix.Open("/dev/ptmx", unix.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, errors.Wrap(err, "open /dev/ptmx")
	}
	master := os.NewFile(uintptr(fd), "/dev/ptmx")
	if err := unix.IoctlSetPointerInt(fd, unix.TIOCSPTLCK, 0); err != nil {
		master.Close()
		return nil, errors.Wrap(err, "unlock pty")
	}
	n, err := unix.IoctlGetInt(fd, unix.TIOCGPTN)
	if err != nil {
		master.Close()
		return nil, errors.Wrap(err, "pty number")
	}
	name := fmt.Sprintf("/dev/pts/%d", n)

	sfd, err := unix.Open(name, unix.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		master.Close()
		return nil, errors.Wrapf(err, "open %s", name)
	}
	if err := makeRaw(sfd); err != nil {
		unix.Close(sfd)
		master.Close()
		return nil, err
	}
	// Holding the slave open keeps reads on the master from failing with
	// EIO while no client is attached.
	return &pty{master: master, slave: os.NewFile(uintptr(sfd), name), name: name}, nil
}

func makeRaw(fd int) error {
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return errors.Wrap(err, "get termios")
	}
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB
	t.Cflag |= unix.CS8
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0
	return errors.Wrap(unix.IoctlSetTermios(fd, unix.TCSETS, t), "set termios")
}

func (p *pty) Name() string                { return p.name }
func (p *pty) Read(b []byte) (int, error)  { return p.master.Read(b) }
func (p *pty) Write(b []byte) (int, error) { return p.master.Write(b) }

func (p *pty) Close() error {
	p.slave.Close()
	return p.master.Close()
}
