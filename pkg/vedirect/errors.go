// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Voltlog

package vedirect

import "errors"

// Decoder-level failures returned from Device.Refresh. Callers discriminate
// with errors.Is: a checksum mismatch is recoverable (retry a fresh
// refresh), while a missing frame start usually means the device is not
// transmitting at all.
var (
	// ErrNoFrame is returned when the read timeout expires before a frame
	// start marker is seen.
	ErrNoFrame = errors.New("vedirect: no frame start before read timeout")

	// ErrChecksum is returned when a completed frame fails the modulo-256
	// checksum. The frame is discarded and the previous snapshot kept.
	ErrChecksum = errors.New("vedirect: frame checksum mismatch")
)
