// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomoo/roo/internal/config"
)

func TestXDGDirs(t *testing.T) {
	tests := []struct {
		name string
		env  string
		dir  func() string
		want string
		home string
	}{
		{"config from env", "/custom/config", config.ConfigDir, "/custom/config/roo", ""},
		{"config default", "", config.ConfigDir, "/home/testuser/.config/roo", "/home/testuser"},
		{"data from env", "/custom/data", config.DataDir, "/custom/data/roo", ""},
		{"data default", "", config.DataDir, "/home/testuser/.local/share/roo", "/home/testuser"},
		{"state from env", "/custom/state", config.StateDir, "/custom/state/roo", ""},
		{"state default", "", config.StateDir, "/home/testuser/.local/state/roo", "/home/testuser"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_CONFIG_HOME", tt.env)
			t.Setenv("XDG_DATA_HOME", tt.env)
			t.Setenv("XDG_STATE_HOME", tt.env)
			if tt.home != "" {
				t.Setenv("HOME", tt.home)
			}
			assert.Equal(t, tt.want, tt.dir())
		})
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, config.EnsureDir(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())

	require.NoError(t, config.EnsureDir(dir), "existing directory")
}
