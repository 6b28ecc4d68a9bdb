// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Voltlog

package cmd

import (
	"github.com/spf13/cobra"
	"github.com/voltlog/vestat/internal/logging"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Shared decoder settings
	readTimeout int
	configPath  string
)

var rootCmd = &cobra.Command{
	Use:   "vestat",
	Short: "VE.Direct solar charger telemetry reader",
	Long: `Vestat - A CLI tool for reading telemetry from Victron solar charge
controllers speaking the VE.Direct text protocol.

Each command performs synchronous frame acquisition over the configured
transport: the charger broadcasts a burst of tab-separated fields roughly
once per second, vestat synchronizes to the burst boundary, validates the
modulo-256 checksum, and decodes the fields into typed values.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 19200]
             With no --port, the first /dev/ttyUSB* or /dev/tty.usbserial*
             device is used.
  WebSocket: --url ws://host/path [--username user]
             For chargers exposed through a serial-over-WebSocket bridge.

For WebSocket authentication, the password is read from the VESTAT_PASSWORD
environment variable, or prompted interactively if not set.

Defaults may also be placed in a YAML config file (--config, or
~/.config/vestat/config.yaml); explicit flags win over file values.`,
	Version:           "1.2.0",
	PersistentPreRunE: applyConfig,
}

func init() {
	cobra.OnInitialize(func() {
		_ = logging.InitializeFromEnv()
	})

	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device (auto-detected if empty)")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 19200, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().IntVarP(&readTimeout, "timeout", "t", 4, "Transport read timeout in seconds")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path")
}

// Execute runs the root command
func Execute() error {
	defer logging.Sync()
	return rootCmd.Execute()
}
