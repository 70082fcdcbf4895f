package hal

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

// slowSerial accepts at most three bytes per write.
type slowSerial struct {
	in  bytes.Buffer
	out []byte
}

func (s *slowSerial) WriteSerial(p []byte) int {
	n := min(len(p), 3)
	s.in.Write(p[:n])
	return n
}

func (s *slowSerial) ReadSerial(p []byte) int {
	n := copy(p, s.out)
	s.out = s.out[n:]
	return n
}

func TestFeedSerial(t *testing.T) {
	s := &slowSerial{}
	if err := feedSerial(context.Background(), s, strings.NewReader("M105\nM114\n")); err != nil {
		t.Fatalf("feedSerial() = %v", err)
	}
	if got := s.in.String(); got != "M105\nM114\n" {
		t.Fatalf("input = %q", got)
	}
}

func TestFlushSerial(t *testing.T) {
	s := &slowSerial{out: bytes.Repeat([]byte("ok\n"), 300)}
	var buf bytes.Buffer
	if err := flushSerial(s, &buf); err != nil {
		t.Fatalf("flushSerial() = %v", err)
	}
	if buf.Len() != 900 || len(s.out) != 0 {
		t.Fatalf("flushed %d bytes, %d left", buf.Len(), len(s.out))
	}
}
