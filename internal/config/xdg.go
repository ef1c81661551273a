// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package config

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const appName = "roo"

// ConfigDir returns the XDG config directory for roo.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DataDir returns the XDG data directory for roo, where snapshots live by
// default. Checks XDG_DATA_HOME first, falls back to ~/.local/share.
func DataDir() string {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// StateDir returns the XDG state directory for roo.
// Checks XDG_STATE_HOME first, falls back to ~/.local/state.
func StateDir() string {
	return xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func xdgDir(env, fallback string) string {
	base := os.Getenv(env)
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), fallback)
	}
	return filepath.Join(base, appName)
}

// EnsureDir creates a directory and all parent directories if they don't exist.
// Directories are created with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return oops.In("config").With("dir", path).Wrapf(err, "create directory")
	}
	return nil
}
