package procman

import (
	"bytes"
	"errors"
	"io"
	"os"
)

// stream is one output channel of a child process. The child writes to w, we
// read back through an independent handle on the same file, so a read never
// blocks on a process that has nothing to say.
type stream struct {
	w       *os.File
	r       *os.File
	partial []byte
	lines   []string
	buf     []byte
}

func openStream(path string) (*stream, error) {
	w, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, err
	}
	r, err := os.Open(path)
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	return &stream{w: w, r: r, buf: make([]byte, 32*1024)}, nil
}

// drain reads everything appended since the last call. Complete lines are
// queued; a trailing fragment is held back until its terminator arrives, or
// until final is set because the writer is gone.
func (s *stream) drain(final bool) error {
	for {
		n, err := s.r.Read(s.buf)
		if n > 0 {
			s.split(s.buf[:n])
		}
		if errors.Is(err, io.EOF) || n == 0 {
			break
		}
		if err != nil {
			return err
		}
	}
	if final && len(s.partial) > 0 {
		s.lines = append(s.lines, string(s.partial))
		s.partial = nil
	}
	return nil
}

// split treats both \n and \r as terminators; progress meters redraw with \r.
// Blank lines are dropped.
func (s *stream) split(chunk []byte) {
	data := append(s.partial, chunk...)
	for {
		i := bytes.IndexAny(data, "\r\n")
		if i < 0 {
			break
		}
		if i > 0 {
			s.lines = append(s.lines, string(data[:i]))
		}
		data = data[i+1:]
	}
	s.partial = append([]byte(nil), data...)
}

func (s *stream) take() []string {
	lines := s.lines
	s.lines = nil
	return lines
}

func (s *stream) close() error {
	return errors.Join(s.w.Close(), s.r.Close())
}
