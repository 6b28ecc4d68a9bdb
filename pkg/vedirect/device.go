// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Voltlog

package vedirect

import (
	"fmt"
	"maps"
	"strconv"
)

// OpenFunc opens the transport for one refresh pass. The returned source is
// closed before Refresh returns, on every exit path.
type OpenFunc func() (LineSource, error)

// Device exposes the latest decoded telemetry snapshot of a VE.Direct
// charge controller. The snapshot starts empty and is replaced wholesale by
// each successful Refresh; a failed refresh leaves it untouched.
//
// Device is not safe for concurrent use. The expected pattern is a single
// caller alternating Refresh with accessor reads.
type Device struct {
	open OpenFunc
	rec  Record
}

// NewDevice creates a device that opens its transport through open on each
// Refresh call.
func NewDevice(open OpenFunc) *Device {
	return &Device{open: open, rec: Record{}}
}

// Refresh performs one synchronous acquisition pass: open the transport,
// assemble one frame, validate its checksum, and replace the snapshot with
// the parsed record.
//
// Returns ErrNoFrame if no frame start was seen before the read timeout and
// ErrChecksum if the frame failed validation; both leave the previous
// snapshot in place. Transport errors propagate wrapped.
func (d *Device) Refresh() error {
	src, err := d.open()
	if err != nil {
		return fmt.Errorf("opening transport: %w", err)
	}
	defer src.Close()

	pdu, err := NewAssembler(src).ReadFrame()
	if err != nil {
		return err
	}
	if err := VerifyChecksum(pdu); err != nil {
		return err
	}
	d.rec = ParseRecord(pdu)
	return nil
}

// Record returns a copy of the field record from the last successful
// refresh.
func (d *Device) Record() Record {
	return maps.Clone(d.rec)
}

// get reads a field, defaulting to "0" when absent. Missing numeric fields
// read as zero rather than erroring; the device only transmits fields its
// model supports.
func (d *Device) get(key string) string {
	if v, ok := d.rec[key]; ok {
		return v
	}
	return "0"
}

// scaled parses a numeric field and divides by div.
func (d *Device) scaled(key string, div float64) (float64, error) {
	f, err := strconv.ParseFloat(d.get(key), 64)
	if err != nil {
		return 0, fmt.Errorf("vedirect: field %s: %w", key, err)
	}
	return f / div, nil
}

// BatteryVolts returns the battery voltage in volts.
func (d *Device) BatteryVolts() (float64, error) {
	return d.scaled(FieldBatteryVoltage, 1000)
}

// BatteryAmps returns the battery charging current in amps.
func (d *Device) BatteryAmps() (float64, error) {
	return d.scaled(FieldBatteryCurrent, 1000)
}

// SolarVolts returns the solar array voltage in volts.
func (d *Device) SolarVolts() (float64, error) {
	return d.scaled(FieldPanelVoltage, 1000)
}

// SolarWatts returns the solar array power in watts.
func (d *Device) SolarWatts() (float64, error) {
	return d.scaled(FieldPanelPower, 1)
}

// LoadAmps returns the load output current in amps.
func (d *Device) LoadAmps() (float64, error) {
	return d.scaled(FieldLoadCurrent, 1000)
}

// YieldTotalKWh returns the lifetime yield in kWh.
func (d *Device) YieldTotalKWh() (float64, error) {
	return d.scaled(FieldYieldTotal, 100)
}

// YieldTodayKWh returns today's yield in kWh.
func (d *Device) YieldTodayKWh() (float64, error) {
	return d.scaled(FieldYieldToday, 100)
}

// YieldYesterdayKWh returns yesterday's yield in kWh.
func (d *Device) YieldYesterdayKWh() (float64, error) {
	return d.scaled(FieldYieldYesterday, 100)
}

// MaxPowerTodayWatts returns today's maximum power in watts.
func (d *Device) MaxPowerTodayWatts() (float64, error) {
	return d.scaled(FieldMaxPowerToday, 1)
}

// MaxPowerYesterdayWatts returns yesterday's maximum power in watts.
func (d *Device) MaxPowerYesterdayWatts() (float64, error) {
	return d.scaled(FieldMaxPowerYesterday, 1)
}

// DaySequence returns the HSDS day sequence number (0..364).
func (d *Device) DaySequence() (int, error) {
	n, err := strconv.Atoi(d.get(FieldDaySequence))
	if err != nil {
		return 0, fmt.Errorf("vedirect: field %s: %w", FieldDaySequence, err)
	}
	return n, nil
}

// SerialNumber returns the device serial number, or "Unknown" if the device
// has not reported one.
func (d *Device) SerialNumber() string {
	if v, ok := d.rec[FieldSerial]; ok {
		return v
	}
	return "Unknown"
}

// Firmware returns the firmware version string, or "Unknown".
func (d *Device) Firmware() string {
	if v, ok := d.rec[FieldFirmware]; ok {
		return v
	}
	return "Unknown"
}

// ProductName returns the product name for the reported PID. A PID outside
// the table renders as the raw PID value; no PID at all reads as "Unknown".
func (d *Device) ProductName() string {
	pid, ok := d.rec[FieldProductID]
	if !ok {
		return "Unknown"
	}
	if name, ok := productNames[pid]; ok {
		return name
	}
	return pid
}

// TrackerState returns the MPPT tracker operation mode. Codes outside the
// defined set are a contract violation and return an error.
func (d *Device) TrackerState() (MPPTState, error) {
	code, err := strconv.Atoi(d.get(FieldMPPT))
	if err != nil {
		return 0, fmt.Errorf("vedirect: field %s: %w", FieldMPPT, err)
	}
	state := MPPTState(code)
	if state < MPPTOff || state > MPPTActive {
		return 0, fmt.Errorf("vedirect: MPPT state out of range: %d", code)
	}
	return state, nil
}

// OperatingState returns the charger operating state name for the CS code.
// Codes outside the table degrade to "Unknown" rather than failing; the
// table is deliberately non-exhaustive.
func (d *Device) OperatingState() (string, error) {
	code, err := strconv.Atoi(d.get(FieldOperatingState))
	if err != nil {
		return "", fmt.Errorf("vedirect: field %s: %w", FieldOperatingState, err)
	}
	if name, ok := operatingStates[code]; ok {
		return name, nil
	}
	return "Unknown", nil
}

// OffReasons decomposes the OR bitmask into the set of reasons the charger
// reports for being switched off. An unparsable mask reads as 0; if no
// known bit matches the result is a singleton "Unknown".
func (d *Device) OffReasons() []string {
	mask64, err := strconv.ParseUint(d.get(FieldOffReason), 0, 32)
	if err != nil {
		mask64 = 0
	}
	mask := uint32(mask64)

	var reasons []string
	for _, f := range offReasonFlags {
		if mask&f.mask != 0 {
			reasons = append(reasons, f.name)
		}
	}
	if len(reasons) == 0 {
		return []string{"Unknown"}
	}
	return reasons
}

// ErrorText returns the charger error description for the ERR code. An
// unparsable code reads as -1; codes outside the table render as
// "unknown error code N".
func (d *Device) ErrorText() string {
	code, err := strconv.Atoi(d.get(FieldError))
	if err != nil {
		code = -1
	}
	if name, ok := errorNames[code]; ok {
		return name
	}
	return fmt.Sprintf("unknown error code %d", code)
}
