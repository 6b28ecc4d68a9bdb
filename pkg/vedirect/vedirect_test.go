// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Voltlog

package vedirect

import (
	"bytes"
	"io"
)

// ============================================================
// Test Helpers
// ============================================================

// buildBurst renders fields as "KEY\tVALUE\r\n" lines and appends a
// Checksum line whose value byte closes the modulo-256 sum to zero.
func buildBurst(fields ...[2]string) []byte {
	var b bytes.Buffer
	for _, f := range fields {
		b.WriteString(f[0])
		b.WriteByte('\t')
		b.WriteString(f[1])
		b.WriteString("\r\n")
	}
	b.WriteString(KeyChecksum)
	b.WriteByte('\t')

	var sum byte
	for _, c := range b.Bytes() {
		sum += c
	}
	sum += '\r' + '\n'
	b.WriteByte(-sum)
	b.WriteString("\r\n")
	return b.Bytes()
}

// splitLines cuts a raw byte stream into lines, keeping terminators, the
// way a LineSource delivers them.
func splitLines(data []byte) PDU {
	var pdu PDU
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			pdu = append(pdu, data)
			break
		}
		pdu = append(pdu, data[:i+1])
		data = data[i+1:]
	}
	return pdu
}

// newStreamSource serves a fixed byte stream; exhaustion reads as a
// transport timeout.
func newStreamSource(data []byte) *ReaderSource {
	return NewReaderSource(io.NopCloser(bytes.NewReader(data)))
}

// closeTracker wraps a reader and records whether Close was called.
type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

// errReader fails every read with err.
type errReader struct {
	err error
}

func (e *errReader) Read([]byte) (int, error) {
	return 0, e.err
}

func (e *errReader) Close() error {
	return nil
}
