// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Voltlog

package vedirect

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

// ============================================================
// ReaderSource Tests
// ============================================================

func TestReadLine_KeepsTerminator(t *testing.T) {
	src := newStreamSource([]byte("V\t12800\r\nI\t1500\r\n"))

	line, err := src.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if string(line) != "V\t12800\r\n" {
		t.Errorf("unexpected line: %q", line)
	}

	line, err = src.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if string(line) != "I\t1500\r\n" {
		t.Errorf("unexpected line: %q", line)
	}
}

func TestReadLine_TimeoutReturnsEmpty(t *testing.T) {
	src := newStreamSource(nil)

	line, err := src.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if len(line) != 0 {
		t.Errorf("expected empty line on exhausted source, got %q", line)
	}
}

func TestReadLine_PartialLineAtEOF(t *testing.T) {
	src := newStreamSource([]byte("V\t128"))

	line, err := src.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if string(line) != "V\t128" {
		t.Errorf("expected partial line, got %q", line)
	}
}

func TestReadLine_TransportError(t *testing.T) {
	wantErr := errors.New("device unplugged")
	src := NewReaderSource(&errReader{err: wantErr})

	if _, err := src.ReadLine(); !errors.Is(err, wantErr) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

// ============================================================
// Assembler Tests
// ============================================================

func TestReadFrame_SingleBurst(t *testing.T) {
	burst := buildBurst(
		[2]string{"PID", "0xA053"},
		[2]string{"V", "12800"},
		[2]string{"I", "1500"},
	)
	a := NewAssembler(newStreamSource(burst))

	pdu, err := a.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}

	// PID, V, I and the Checksum line all belong to the PDU.
	if len(pdu) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(pdu))
	}
	if !bytes.HasPrefix(pdu[0], []byte("PID")) {
		t.Errorf("frame does not start with PID: %q", pdu[0])
	}
	if !bytes.HasPrefix(pdu[3], []byte("Checksum")) {
		t.Errorf("last line is not the checksum: %q", pdu[3])
	}
}

func TestReadFrame_LeadingNoiseDiscarded(t *testing.T) {
	stream := append([]byte("I\t900\r\ngarbage\r\n"), buildBurst(
		[2]string{"PID", "0xA053"},
		[2]string{"V", "12800"},
	)...)
	a := NewAssembler(newStreamSource(stream))

	pdu, err := a.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !bytes.HasPrefix(pdu[0], []byte("PID")) {
		t.Errorf("noise not discarded, frame starts with %q", pdu[0])
	}
	if err := VerifyChecksum(pdu); err != nil {
		t.Errorf("assembled frame fails checksum: %v", err)
	}
}

func TestReadFrame_NextMarkerEndsBurst(t *testing.T) {
	burst1 := buildBurst(
		[2]string{"PID", "0xA053"},
		[2]string{"V", "12800"},
	)
	burst2 := buildBurst(
		[2]string{"PID", "0xA053"},
		[2]string{"V", "12790"},
	)
	src := newStreamSource(append(append([]byte{}, burst1...), burst2...))
	a := NewAssembler(src)

	pdu, err := a.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if len(pdu) != 3 {
		t.Fatalf("expected 3 lines from first burst, got %d", len(pdu))
	}
	if err := VerifyChecksum(pdu); err != nil {
		t.Errorf("first burst fails checksum: %v", err)
	}

	// The second burst's PID line was consumed as the boundary marker, so
	// a subsequent pass on the same stream finds no start before EOF.
	if _, err := a.ReadFrame(); !errors.Is(err, ErrNoFrame) {
		t.Fatalf("expected ErrNoFrame after boundary discard, got %v", err)
	}
}

func TestReadFrame_TimeoutEndsBurst(t *testing.T) {
	// A burst not followed by another PID line completes at the read
	// timeout (here: stream exhaustion).
	burst := buildBurst(
		[2]string{"PID", "0xA053"},
		[2]string{"VPV", "36500"},
	)
	a := NewAssembler(newStreamSource(burst))

	pdu, err := a.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if len(pdu) != 3 {
		t.Errorf("expected 3 lines, got %d", len(pdu))
	}
}

func TestReadFrame_NoStartFound(t *testing.T) {
	a := NewAssembler(newStreamSource([]byte("V\t12800\r\nI\t1500\r\n")))

	if _, err := a.ReadFrame(); !errors.Is(err, ErrNoFrame) {
		t.Fatalf("expected ErrNoFrame, got %v", err)
	}
}

func TestReadFrame_EmptyStream(t *testing.T) {
	a := NewAssembler(newStreamSource(nil))

	if _, err := a.ReadFrame(); !errors.Is(err, ErrNoFrame) {
		t.Fatalf("expected ErrNoFrame, got %v", err)
	}
}

func TestReadFrame_TransportErrorPropagates(t *testing.T) {
	wantErr := io.ErrUnexpectedEOF
	a := NewAssembler(NewReaderSource(&errReader{err: wantErr}))

	if _, err := a.ReadFrame(); !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
}
