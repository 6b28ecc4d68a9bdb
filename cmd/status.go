// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Voltlog

package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/voltlog/vestat/internal/logging"
	"github.com/voltlog/vestat/pkg/vedirect"
	"go.uber.org/zap"
)

// maxRefreshAttempts bounds retries on corrupted frames; a noisy line can
// mangle a burst occasionally without the charger being gone.
const maxRefreshAttempts = 3

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Read one telemetry frame and print a decoded summary",
	Long: `Reads a single telemetry burst from the charge controller and prints
the decoded values: battery and panel measurements, charger state, and
daily yield history.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// refreshWithRetry runs Refresh, retrying a bounded number of times when
// the frame fails its checksum. Other errors are returned immediately.
func refreshWithRetry(dev *vedirect.Device) error {
	var err error
	for attempt := 1; attempt <= maxRefreshAttempts; attempt++ {
		err = dev.Refresh()
		if err == nil {
			return nil
		}
		if !errors.Is(err, vedirect.ErrChecksum) {
			return err
		}
		logging.Warn("discarding corrupted frame",
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	return err
}

func runStatus(cmd *cobra.Command, args []string) error {
	dev, desc, err := newDecoder()
	if err != nil {
		return err
	}

	fmt.Printf("Connection: %s\n", desc)

	if err := refreshWithRetry(dev); err != nil {
		return fmt.Errorf("reading telemetry: %w", err)
	}

	fmt.Printf("Product:       %s\n", dev.ProductName())
	fmt.Printf("Serial:        %s\n", dev.SerialNumber())
	fmt.Printf("Firmware:      %s\n", dev.Firmware())
	fmt.Println()

	printVolts := func(label string, f func() (float64, error)) {
		if v, err := f(); err == nil {
			fmt.Printf("%-14s %.2f V\n", label+":", v)
		}
	}
	printVolts("Battery", dev.BatteryVolts)
	if a, err := dev.BatteryAmps(); err == nil {
		fmt.Printf("%-14s %.2f A\n", "Current:", a)
	}
	printVolts("Panel", dev.SolarVolts)
	if w, err := dev.SolarWatts(); err == nil {
		fmt.Printf("%-14s %.0f W\n", "Panel power:", w)
	}
	if a, err := dev.LoadAmps(); err == nil {
		fmt.Printf("%-14s %.2f A\n", "Load:", a)
	}
	fmt.Println()

	if state, err := dev.OperatingState(); err == nil {
		fmt.Printf("%-14s %s\n", "State:", state)
	}
	if mppt, err := dev.TrackerState(); err == nil {
		fmt.Printf("%-14s %s\n", "MPPT:", mppt)
	}
	fmt.Printf("%-14s %s\n", "Off reasons:", strings.Join(dev.OffReasons(), ", "))
	fmt.Printf("%-14s %s\n", "Error:", dev.ErrorText())
	fmt.Println()

	if y, err := dev.YieldTotalKWh(); err == nil {
		fmt.Printf("%-14s %.2f kWh\n", "Yield total:", y)
	}
	if y, err := dev.YieldTodayKWh(); err == nil {
		fmt.Printf("%-14s %.2f kWh\n", "Yield today:", y)
	}
	if w, err := dev.MaxPowerTodayWatts(); err == nil {
		fmt.Printf("%-14s %.0f W\n", "Peak today:", w)
	}
	if y, err := dev.YieldYesterdayKWh(); err == nil {
		fmt.Printf("%-14s %.2f kWh\n", "Yield yest.:", y)
	}
	if w, err := dev.MaxPowerYesterdayWatts(); err == nil {
		fmt.Printf("%-14s %.0f W\n", "Peak yest.:", w)
	}
	if d, err := dev.DaySequence(); err == nil {
		fmt.Printf("%-14s %d\n", "Day seq.:", d)
	}

	return nil
}
