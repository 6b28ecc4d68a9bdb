// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Voltlog

package vedirect

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// Record maps VE.Direct field keys to their raw string values.
type Record map[string]string

// ParseRecord converts a checksum-validated PDU into a field record.
//
// Lines that are not well-formed key/value pairs are dropped rather than
// failing the whole record: the Checksum line carries no usable value, a
// line without a tab is a truncated field, and a line that is not valid
// UTF-8 is line noise. If a key repeats within one PDU the last occurrence
// wins. ParseRecord itself never fails.
func ParseRecord(pdu PDU) Record {
	rec := make(Record, len(pdu))
	for _, line := range pdu {
		if bytes.HasPrefix(line, []byte(KeyChecksum)) {
			continue
		}
		trimmed := bytes.TrimSpace(line)
		if !utf8.Valid(trimmed) {
			continue
		}
		key, value, ok := strings.Cut(string(trimmed), "\t")
		if !ok {
			continue
		}
		rec[key] = value
	}
	return rec
}
