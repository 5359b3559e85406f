// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AllianceGate Contributors

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	// No explicit file, and XDG config redirected to an empty dir.
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
database_url: postgres://db.internal/gate
log_format: json
metrics_addr: ":9100"
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://db.internal/gate", cfg.DatabaseURL)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, ":9100", cfg.MetricsAddr)
	// Keys absent from the file keep their defaults.
	assert.Equal(t, Default().StateDir, cfg.StateDir)
}

func TestFlagsOverrideFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "log_format: json\n")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)
	require.NoError(t, flags.Parse([]string{"--log-format=text", "--state-dir=/tmp/state"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "/tmp/state", cfg.StateDir)
}

func TestUnchangedFlagDoesNotClobberFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "log_format: json\n")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	t.Run("missing explicit file", func(t *testing.T) {
		t.Parallel()
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
		assert.Error(t, err)
	})

	t.Run("invalid log format", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, "log_format: xml\n")
		_, err := Load(path, nil)
		assert.Error(t, err)
	})

	t.Run("empty database url", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, `database_url: ""`+"\n")
		_, err := Load(path, nil)
		assert.Error(t, err)
	})
}
