// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Voltlog

package vedirect

import (
	"bytes"
	"fmt"
)

// PDU is one complete burst of raw lines as received from the device,
// starting with the PID field. Terminator bytes are preserved on every line.
type PDU [][]byte

// Assembler finds frame boundaries in the line stream and accumulates one
// PDU per call. Two states: seeking the start marker, then accumulating
// until the next start marker or a read timeout.
type Assembler struct {
	src LineSource
}

// NewAssembler creates an assembler reading from src.
func NewAssembler(src LineSource) *Assembler {
	return &Assembler{src: src}
}

// ReadFrame reads lines until one complete PDU is assembled.
//
// The burst is considered complete when either the next PID line arrives or
// the source reports a timeout. The PID line that ends a burst belongs to
// the following burst and is discarded, not carried forward; the device
// repeats it every cycle so nothing is lost. A timeout before any start
// marker is seen returns ErrNoFrame.
func (a *Assembler) ReadFrame() (PDU, error) {
	var pdu PDU

	// Seek the start marker, discarding noise and mid-burst lines.
	for {
		line, err := a.src.ReadLine()
		if err != nil {
			return nil, fmt.Errorf("reading for frame start: %w", err)
		}
		if len(line) == 0 {
			return nil, ErrNoFrame
		}
		if isFrameStart(line) {
			pdu = append(pdu, line)
			break
		}
	}

	// Accumulate until the next start marker or the inter-burst pause.
	for {
		line, err := a.src.ReadLine()
		if err != nil {
			return nil, fmt.Errorf("reading frame body: %w", err)
		}
		if len(line) == 0 || isFrameStart(line) {
			return pdu, nil
		}
		pdu = append(pdu, line)
	}
}

func isFrameStart(line []byte) bool {
	return bytes.HasPrefix(line, []byte(FieldProductID))
}
