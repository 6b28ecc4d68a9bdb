// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Voltlog

package vedirect

import (
	"errors"
	"io"
)

// LineSource supplies one newline-terminated byte record at a time from the
// transport. The returned line includes its terminator bytes; they
// participate in the frame checksum.
//
// A zero-length line with a nil error signals that the transport read timed
// out (or reached EOF) before any byte of a new record arrived. A read that
// times out mid-record returns the partial record.
type LineSource interface {
	ReadLine() ([]byte, error)
	Close() error
}

// ReaderSource adapts an io.ReadCloser into a LineSource. The underlying
// reader must implement the zero-read timeout convention: a Read returning
// (0, nil) means the configured read timeout expired. go.bug.st/serial ports
// behave this way once SetReadTimeout is applied.
type ReaderSource struct {
	rc      io.ReadCloser
	buf     []byte
	pending []byte
}

// NewReaderSource wraps rc in a line-oriented source.
func NewReaderSource(rc io.ReadCloser) *ReaderSource {
	return &ReaderSource{
		rc:  rc,
		buf: make([]byte, 256),
	}
}

// ReadLine reads up to and including the next newline byte.
func (s *ReaderSource) ReadLine() ([]byte, error) {
	line := make([]byte, 0, 32)
	for {
		for len(s.pending) > 0 {
			b := s.pending[0]
			s.pending = s.pending[1:]
			line = append(line, b)
			if b == '\n' {
				return line, nil
			}
		}

		n, err := s.rc.Read(s.buf)
		if n > 0 {
			s.pending = s.buf[:n]
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		// Timeout or EOF: return whatever accumulated, possibly nothing.
		return line, nil
	}
}

// Close closes the underlying transport.
func (s *ReaderSource) Close() error {
	return s.rc.Close()
}
