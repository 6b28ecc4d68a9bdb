// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Voltlog

package vedirect

import "fmt"

// Checksum returns the modulo-256 sum of every byte of every line in the
// PDU, terminators and Checksum line included. The device picks its
// checksum byte so that a clean burst sums to exactly zero.
func Checksum(pdu PDU) byte {
	var sum byte
	for _, line := range pdu {
		for _, b := range line {
			sum += b
		}
	}
	return sum
}

// VerifyChecksum accepts the PDU iff its byte sum is zero mod 256.
func VerifyChecksum(pdu PDU) error {
	if sum := Checksum(pdu); sum != 0 {
		return fmt.Errorf("%w: byte sum %d", ErrChecksum, sum)
	}
	return nil
}
