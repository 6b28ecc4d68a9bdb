// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Voltlog

// Package vedirect decodes the VE.Direct text protocol emitted by Victron
// solar charge controllers over a serial link.
//
// The device transmits telemetry in bursts of tab-separated text lines. Each
// burst starts with a PID field and ends with a Checksum line whose value
// byte makes the modulo-256 sum of every byte in the burst equal zero. This
// package provides frame assembly, checksum validation, field record parsing,
// and typed accessors over the latest record.
package vedirect

// Field keys from the VE.Direct text protocol.
const (
	FieldProductID         = "PID"
	FieldFirmware          = "FW"
	FieldSerial            = "SER#"
	FieldBatteryVoltage    = "V"   // mV
	FieldBatteryCurrent    = "I"   // mA
	FieldPanelVoltage      = "VPV" // mV
	FieldPanelPower        = "PPV" // W
	FieldLoadCurrent       = "IL"  // mA
	FieldOperatingState    = "CS"
	FieldMPPT              = "MPPT"
	FieldOffReason         = "OR" // hex bitmask
	FieldError             = "ERR"
	FieldDaySequence       = "HSDS"
	FieldYieldTotal        = "H19" // 0.01 kWh
	FieldYieldToday        = "H20" // 0.01 kWh
	FieldMaxPowerToday     = "H21" // W
	FieldYieldYesterday    = "H22" // 0.01 kWh
	FieldMaxPowerYesterday = "H23" // W
)

// KeyChecksum marks the line that closes a burst. It is consumed by the
// checksum validator and never becomes a record field.
const KeyChecksum = "Checksum"

// MPPTState represents the maximum power point tracker operation mode.
type MPPTState int

// MPPT tracker states
const (
	MPPTOff MPPTState = iota
	MPPTLimited
	MPPTActive
)

func (s MPPTState) String() string {
	switch s {
	case MPPTOff:
		return "Off"
	case MPPTLimited:
		return "Limited"
	case MPPTActive:
		return "Active"
	default:
		return "Invalid"
	}
}

// operatingStates maps CS codes to state names. The table is deliberately
// non-exhaustive; codes outside it read as "Unknown".
var operatingStates = map[int]string{
	0:   "Off",
	1:   "Low power",
	2:   "Fault",
	3:   "Bulk",
	4:   "Absorption",
	5:   "Float",
	6:   "Storage",
	7:   "Equalize (manual)",
	9:   "Inverting",
	11:  "Power supply",
	245: "Starting-up",
	246: "Repeated absorption",
	247: "Auto equalize / Recondition",
	248: "BatterySafe",
	252: "External Control",
}

// offReasonFlags decomposes the OR bitmask. Order matters: reasons are
// reported lowest bit first.
var offReasonFlags = []struct {
	mask uint32
	name string
}{
	{0x001, "No input power"},
	{0x002, "Switched off (power switch)"},
	{0x004, "Switched off (device mode register)"},
	{0x008, "Protection active"},
	{0x010, "Remote input"},
	{0x020, "Paygo"},
	{0x040, "BMS"},
	{0x080, "Engine shutdown detection"},
	{0x100, "Analysing input voltage"},
}

// errorNames maps ERR codes to charger error descriptions.
var errorNames = map[int]string{
	0:   "No error",
	2:   "Battery voltage too high",
	17:  "Charger temperature too high",
	18:  "Charger over current",
	19:  "Charger current reversed",
	20:  "Bulk time limit exceeded",
	21:  "Current sensor issue",
	26:  "Terminals overheated",
	28:  "Converter issue",
	33:  "Input voltage too high (solar panel)",
	34:  "Input current too high (solar panel)",
	38:  "Input shutdown (excessive battery voltage)",
	39:  "Input shutdown (due to current flow during off mode)",
	65:  "Lost communication with one of devices",
	66:  "Synchronised charging device configuration issue",
	67:  "BMS connection lost",
	68:  "Network misconfigured",
	116: "Factory calibration data lost",
	117: "Invalid/incompatible firmware",
	119: "User settings invalid",
}

// productNames maps PID values to product names for the models commonly
// seen on VE.Direct links.
var productNames = map[string]string{
	"0xA042": "BlueSolar MPPT 75/15",
	"0xA043": "BlueSolar MPPT 100/15",
	"0xA044": "BlueSolar MPPT 100/30",
	"0xA046": "BlueSolar MPPT 150/70",
	"0xA047": "BlueSolar MPPT 150/100",
	"0xA050": "SmartSolar MPPT 250/100",
	"0xA051": "SmartSolar MPPT 150/100",
	"0xA052": "SmartSolar MPPT 150/85",
	"0xA053": "SmartSolar MPPT 75/15",
	"0xA054": "SmartSolar MPPT 75/10",
	"0xA055": "SmartSolar MPPT 100/15",
	"0xA056": "SmartSolar MPPT 100/30",
	"0xA057": "SmartSolar MPPT 100/50",
	"0xA058": "SmartSolar MPPT 150/35",
	"0xA05F": "SmartSolar MPPT 100/20",
	"0xA060": "SmartSolar MPPT 100/20 48V",
	"0xA389": "SmartSolar MPPT RS 450/100",
}
