// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Voltlog

package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "Read one telemetry frame and dump the raw field record",
	Long: `Reads a single telemetry burst and prints every key/value pair as
transmitted, without scaling or decoding. Useful for inspecting fields
not covered by the status summary.`,
	RunE: runFields,
}

func init() {
	rootCmd.AddCommand(fieldsCmd)
}

func runFields(cmd *cobra.Command, args []string) error {
	dev, desc, err := newDecoder()
	if err != nil {
		return err
	}

	fmt.Printf("Connection: %s\n\n", desc)

	if err := refreshWithRetry(dev); err != nil {
		return fmt.Errorf("reading telemetry: %w", err)
	}

	rec := dev.Record()
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Printf("%-8s %s\n", k, rec[k])
	}
	return nil
}
