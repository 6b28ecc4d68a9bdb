// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Voltlog

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/cobra"
	"github.com/voltlog/vestat/internal/logging"
	"github.com/voltlog/vestat/pkg/vedirect"
	"go.uber.org/zap"
)

var (
	recordOut      string
	recordInterval float64
	recordCount    int
)

// telemetryEntry is one recorded sample: a Unix timestamp and the raw field
// record as transmitted.
type telemetryEntry struct {
	Timestamp int64             `cbor:"ts"`
	Fields    map[string]string `cbor:"fields"`
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Log telemetry frames to a CBOR file",
	Long: `Polls the charge controller at a fixed interval and appends each raw
field record, timestamped, to a CBOR stream file. Corrupted frames are
skipped and logged. Stop with Ctrl-C or limit with --count.`,
	RunE: runRecord,
}

func init() {
	recordCmd.Flags().StringVarP(&recordOut, "out", "o", "", "Output file (CBOR stream)")
	recordCmd.Flags().Float64VarP(&recordInterval, "interval", "i", 2.0, "Seconds between samples")
	recordCmd.Flags().IntVarP(&recordCount, "count", "n", 0, "Number of samples to record (0 = until interrupted)")
	recordCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command, args []string) error {
	dev, desc, err := newDecoder()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(recordOut, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening output file: %w", err)
	}
	defer f.Close()
	enc := cbor.NewEncoder(f)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("Connection: %s\n", desc)
	fmt.Printf("Recording to %s every %.1fs (Ctrl-C to stop)\n", recordOut, recordInterval)

	interval := time.Duration(recordInterval * float64(time.Second))
	written := 0

	for {
		if err := dev.Refresh(); err != nil {
			if errors.Is(err, vedirect.ErrChecksum) || errors.Is(err, vedirect.ErrNoFrame) {
				logging.Warn("skipping sample", zap.Error(err))
			} else {
				return fmt.Errorf("reading telemetry: %w", err)
			}
		} else {
			entry := telemetryEntry{
				Timestamp: time.Now().Unix(),
				Fields:    dev.Record(),
			}
			if err := enc.Encode(entry); err != nil {
				return fmt.Errorf("writing sample: %w", err)
			}
			written++
			if recordCount > 0 && written >= recordCount {
				break
			}
		}

		select {
		case <-ctx.Done():
			fmt.Println()
			fmt.Printf("Recorded %d samples\n", written)
			return nil
		case <-time.After(interval):
		}
	}

	fmt.Printf("Recorded %d samples\n", written)
	return nil
}
