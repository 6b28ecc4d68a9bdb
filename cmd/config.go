// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Voltlog

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/voltlog/vestat/internal/logging"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// fileConfig holds defaults loaded from the YAML config file. Every field
// is optional; explicit command-line flags win over file values.
type fileConfig struct {
	Port           string `yaml:"port"`
	Baud           int    `yaml:"baud"`
	URL            string `yaml:"url"`
	Username       string `yaml:"username"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "vestat", "config.yaml")
}

func loadConfig(path string) (*fileConfig, error) {
	explicit := path != ""
	if path == "" {
		path = defaultConfigPath()
		if path == "" {
			return &fileConfig{}, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		// A missing default config is not an error; a missing --config is.
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return &fileConfig{}, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	logging.Debug("config loaded",
		zap.String("path", path),
		zap.String("port", cfg.Port),
		zap.String("url", cfg.URL),
	)
	return &cfg, nil
}

// applyConfig merges config file values under any flags the user did not
// set explicitly.
func applyConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if cfg.Port != "" && !flags.Changed("port") {
		portName = cfg.Port
	}
	if cfg.Baud != 0 && !flags.Changed("baud") {
		baudRate = cfg.Baud
	}
	if cfg.URL != "" && !flags.Changed("url") {
		wsURL = cfg.URL
	}
	if cfg.Username != "" && !flags.Changed("username") {
		wsUsername = cfg.Username
	}
	if cfg.TimeoutSeconds != 0 && !flags.Changed("timeout") {
		readTimeout = cfg.TimeoutSeconds
	}
	return nil
}
