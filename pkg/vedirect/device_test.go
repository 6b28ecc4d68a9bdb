// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Voltlog

package vedirect

import (
	"bytes"
	"errors"
	"testing"
)

func openStream(data []byte) OpenFunc {
	return func() (LineSource, error) {
		return newStreamSource(data), nil
	}
}

// openSequence serves a different stream on each Refresh call.
func openSequence(streams ...[]byte) OpenFunc {
	i := 0
	return func() (LineSource, error) {
		data := streams[i]
		if i < len(streams)-1 {
			i++
		}
		return newStreamSource(data), nil
	}
}

// ============================================================
// Refresh Tests
// ============================================================

func TestRefresh_EndToEnd(t *testing.T) {
	burst := buildBurst(
		[2]string{"PID", "0xA389"},
		[2]string{"V", "12800"},
		[2]string{"I", "1500"},
	)
	d := NewDevice(openStream(burst))

	if err := d.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	volts, err := d.BatteryVolts()
	if err != nil || volts != 12.8 {
		t.Errorf("BatteryVolts = %v, %v; want 12.8", volts, err)
	}
	amps, err := d.BatteryAmps()
	if err != nil || amps != 1.5 {
		t.Errorf("BatteryAmps = %v, %v; want 1.5", amps, err)
	}
	if name := d.ProductName(); name != "SmartSolar MPPT RS 450/100" {
		t.Errorf("ProductName = %q", name)
	}
}

func TestRefresh_NoFrame(t *testing.T) {
	d := NewDevice(openStream([]byte("V\t12800\r\n")))

	if err := d.Refresh(); !errors.Is(err, ErrNoFrame) {
		t.Fatalf("expected ErrNoFrame, got %v", err)
	}
}

func TestRefresh_ChecksumMismatch(t *testing.T) {
	burst := buildBurst(
		[2]string{"PID", "0xA053"},
		[2]string{"V", "12800"},
	)
	corrupted := bytes.Replace(burst, []byte("12800"), []byte("12801"), 1)
	d := NewDevice(openStream(corrupted))

	if err := d.Refresh(); !errors.Is(err, ErrChecksum) {
		t.Fatalf("expected ErrChecksum, got %v", err)
	}
}

func TestRefresh_FailureKeepsPreviousSnapshot(t *testing.T) {
	good := buildBurst(
		[2]string{"PID", "0xA053"},
		[2]string{"V", "12800"},
	)
	bad := bytes.Replace(good, []byte("12800"), []byte("12801"), 1)
	d := NewDevice(openSequence(good, bad))

	if err := d.Refresh(); err != nil {
		t.Fatalf("first Refresh: %v", err)
	}
	if err := d.Refresh(); !errors.Is(err, ErrChecksum) {
		t.Fatalf("expected ErrChecksum on second Refresh, got %v", err)
	}

	// The corrupt burst must not disturb the prior snapshot.
	volts, err := d.BatteryVolts()
	if err != nil || volts != 12.8 {
		t.Errorf("snapshot disturbed by failed refresh: %v, %v", volts, err)
	}
}

func TestRefresh_ReplacesSnapshotWholesale(t *testing.T) {
	first := buildBurst(
		[2]string{"PID", "0xA053"},
		[2]string{"V", "12800"},
		[2]string{"I", "1500"},
	)
	second := buildBurst(
		[2]string{"PID", "0xA053"},
		[2]string{"VPV", "36500"},
	)
	d := NewDevice(openSequence(first, second))

	if err := d.Refresh(); err != nil {
		t.Fatalf("first Refresh: %v", err)
	}
	if err := d.Refresh(); err != nil {
		t.Fatalf("second Refresh: %v", err)
	}

	// Keys exclusive to the first burst must be gone, not merged.
	if _, ok := d.Record()["V"]; ok {
		t.Error("stale V field survived the second refresh")
	}
	volts, err := d.BatteryVolts()
	if err != nil || volts != 0.0 {
		t.Errorf("BatteryVolts after replacement = %v, %v; want 0", volts, err)
	}
	pv, err := d.SolarVolts()
	if err != nil || pv != 36.5 {
		t.Errorf("SolarVolts = %v, %v; want 36.5", pv, err)
	}
}

func TestRefresh_ClosesTransportOnEveryPath(t *testing.T) {
	good := buildBurst([2]string{"PID", "0xA053"})
	bad := bytes.Replace(good, []byte("0xA053"), []byte("0xA054"), 1)

	tests := []struct {
		name   string
		stream []byte
	}{
		{"success", good},
		{"checksum failure", bad},
		{"no frame", []byte("noise\r\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := &closeTracker{Reader: bytes.NewReader(tt.stream)}
			d := NewDevice(func() (LineSource, error) {
				return NewReaderSource(tracker), nil
			})

			_ = d.Refresh()
			if !tracker.closed {
				t.Error("transport left open")
			}
		})
	}
}

// ============================================================
// Accessor Tests
// ============================================================

func refreshed(t *testing.T, fields ...[2]string) *Device {
	t.Helper()
	d := NewDevice(openStream(buildBurst(fields...)))
	if err := d.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	return d
}

func TestAccessors_MissingKeysReadAsZero(t *testing.T) {
	d := refreshed(t, [2]string{"PID", "0xA053"})

	if v, err := d.BatteryVolts(); err != nil || v != 0.0 {
		t.Errorf("BatteryVolts = %v, %v; want 0", v, err)
	}
	if a, err := d.BatteryAmps(); err != nil || a != 0.0 {
		t.Errorf("BatteryAmps = %v, %v; want 0", a, err)
	}
	if w, err := d.SolarWatts(); err != nil || w != 0.0 {
		t.Errorf("SolarWatts = %v, %v; want 0", w, err)
	}
}

func TestAccessors_NonNumericValueFails(t *testing.T) {
	d := refreshed(t,
		[2]string{"PID", "0xA053"},
		[2]string{"V", "12V8"},
	)

	if _, err := d.BatteryVolts(); err == nil {
		t.Error("expected value-format error for non-numeric V")
	}
	// Other accessors stay usable.
	if a, err := d.BatteryAmps(); err != nil || a != 0.0 {
		t.Errorf("BatteryAmps = %v, %v; want 0", a, err)
	}
}

func TestAccessors_StringDefaults(t *testing.T) {
	d := refreshed(t, [2]string{"PID", "0x9999"})

	if s := d.SerialNumber(); s != "Unknown" {
		t.Errorf("SerialNumber = %q; want Unknown", s)
	}
	if f := d.Firmware(); f != "Unknown" {
		t.Errorf("Firmware = %q; want Unknown", f)
	}
	// PID outside the table renders raw.
	if p := d.ProductName(); p != "0x9999" {
		t.Errorf("ProductName = %q; want raw PID", p)
	}
}

func TestTrackerState(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    MPPTState
		wantErr bool
	}{
		{"off", "0", MPPTOff, false},
		{"limited", "1", MPPTLimited, false},
		{"active", "2", MPPTActive, false},
		{"out of range", "7", 0, true},
		{"negative", "-1", 0, true},
		{"non-numeric", "on", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := refreshed(t,
				[2]string{"PID", "0xA053"},
				[2]string{"MPPT", tt.value},
			)

			got, err := d.TrackerState()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for MPPT=%q", tt.value)
				}
				return
			}
			if err != nil {
				t.Fatalf("TrackerState: %v", err)
			}
			if got != tt.want {
				t.Errorf("TrackerState = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestOperatingState(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"off", "0", "Off"},
		{"bulk", "3", "Bulk"},
		{"float", "5", "Float"},
		{"external control", "252", "External Control"},
		{"outside table", "200", "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := refreshed(t,
				[2]string{"PID", "0xA053"},
				[2]string{"CS", tt.value},
			)

			got, err := d.OperatingState()
			if err != nil {
				t.Fatalf("OperatingState: %v", err)
			}
			if got != tt.want {
				t.Errorf("OperatingState = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestOffReasons(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []string
	}{
		{"no input and remote", "0x00000011", []string{"No input power", "Remote input"}},
		{"single bit", "0x00000002", []string{"Switched off (power switch)"}},
		{"zero mask", "0x00000000", []string{"Unknown"}},
		{"unknown bits only", "0x00001000", []string{"Unknown"}},
		{"unparsable", "bogus", []string{"Unknown"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := refreshed(t,
				[2]string{"PID", "0xA053"},
				[2]string{"OR", tt.value},
			)

			got := d.OffReasons()
			if len(got) != len(tt.want) {
				t.Fatalf("OffReasons = %v; want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("OffReasons[%d] = %q; want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestErrorText(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"no error", "0", "No error"},
		{"over temperature", "17", "Charger temperature too high"},
		{"unknown code", "999", "unknown error code 999"},
		{"unparsable", "x", "unknown error code -1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := refreshed(t,
				[2]string{"PID", "0xA053"},
				[2]string{"ERR", tt.value},
			)

			if got := d.ErrorText(); got != tt.want {
				t.Errorf("ErrorText = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestYieldAccessors(t *testing.T) {
	d := refreshed(t,
		[2]string{"PID", "0xA053"},
		[2]string{"H19", "12345"},
		[2]string{"H20", "150"},
		[2]string{"H21", "420"},
		[2]string{"HSDS", "42"},
	)

	if kwh, err := d.YieldTotalKWh(); err != nil || kwh != 123.45 {
		t.Errorf("YieldTotalKWh = %v, %v; want 123.45", kwh, err)
	}
	if kwh, err := d.YieldTodayKWh(); err != nil || kwh != 1.5 {
		t.Errorf("YieldTodayKWh = %v, %v; want 1.5", kwh, err)
	}
	if w, err := d.MaxPowerTodayWatts(); err != nil || w != 420 {
		t.Errorf("MaxPowerTodayWatts = %v, %v; want 420", w, err)
	}
	if n, err := d.DaySequence(); err != nil || n != 42 {
		t.Errorf("DaySequence = %v, %v; want 42", n, err)
	}
}
