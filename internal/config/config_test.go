// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curioloop/parallelqp/pqp"
)

// fakeBinder wraps a pflag.FlagSet to satisfy the flagBinder interface.
type fakeBinder struct {
	fs *pflag.FlagSet
}

func (f *fakeBinder) Flags() *pflag.FlagSet { return f.fs }

func newFlagBinder(t *testing.T, defaults Config, args ...string) *fakeBinder {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)
	require.NoError(t, fs.Parse(args))
	return &fakeBinder{fs: fs}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, pqp.DefaultMaxIterations, cfg.Solver.MaxIterations)
	assert.Equal(t, pqp.DefaultCheckEvery, cfg.Solver.CheckEvery)
	assert.Equal(t, pqp.DefaultEpsilon, cfg.Solver.Epsilon)
	assert.Zero(t, cfg.Solver.Threshold)
	assert.Equal(t, "simple", cfg.Solver.Split)
	assert.Equal(t, 1, cfg.Solver.Workers)
	assert.Equal(t, -1, cfg.Solver.Verbosity)
	assert.Equal(t, "none", cfg.Telemetry.Traces)
	assert.Equal(t, "none", cfg.Telemetry.Metrics)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestRegisterFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, DefaultConfig())

	for _, fk := range flagKeys {
		assert.NotNil(t, fs.Lookup(fk.flag), "flag %q not registered", fk.flag)
	}

	checks := map[string]string{
		"solver-max-iterations": "10000",
		"solver-check-every":    "32",
		"solver-split":          "simple",
		"telemetry-traces":      "none",
		"log-level":             "info",
	}
	for flag, want := range checks {
		f := fs.Lookup(flag)
		require.NotNil(t, f, flag)
		assert.Equal(t, want, f.DefValue, flag)
	}
}

func TestLoad_Defaults(t *testing.T) {
	defaults := DefaultConfig()

	cfg, err := Load(LoadOptions{
		Cmd:      newFlagBinder(t, defaults),
		Defaults: defaults,
	})
	require.NoError(t, err)
	assert.Equal(t, defaults, cfg)
}

func TestLoad_FlagOverride(t *testing.T) {
	defaults := DefaultConfig()

	cfg, err := Load(LoadOptions{
		Cmd: newFlagBinder(t, defaults,
			"--solver-max-iterations=50",
			"--solver-split=abs",
			"--solver-workers=4",
			"--solver-async",
			"--solver-epsilon=1e-9",
			"--telemetry-traces=stdout",
			"--log-level=debug",
		),
		Defaults: defaults,
	})
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Solver.MaxIterations)
	assert.Equal(t, "abs", cfg.Solver.Split)
	assert.Equal(t, 4, cfg.Solver.Workers)
	assert.True(t, cfg.Solver.Async)
	assert.Equal(t, 1e-9, cfg.Solver.Epsilon)
	assert.Equal(t, "stdout", cfg.Telemetry.Traces)
	assert.Equal(t, "debug", cfg.LogLevel)
	// untouched flags keep their defaults
	assert.Equal(t, defaults.Solver.CheckEvery, cfg.Solver.CheckEvery)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PQP_LOG_LEVEL", "warn")
	t.Setenv("PQP_SOLVER_SPLIT", "diagonal")
	t.Setenv("PQP_SOLVER_MAX_ITERATIONS", "77")

	cfg, err := Load(LoadOptions{Defaults: DefaultConfig()})
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "diagonal", cfg.Solver.Split)
	assert.Equal(t, 77, cfg.Solver.MaxIterations)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "pqp.yaml")

	content := `
log_level: error
solver:
  max_iterations: 123
  split: abs
  track_objective: true
telemetry:
  metrics: stdout
`
	require.NoError(t, os.WriteFile(cfgFile, []byte(content), 0o644))

	defaults := DefaultConfig()
	cfg, err := Load(LoadOptions{
		Cmd:        newFlagBinder(t, defaults, "--solver-split=diagonal"),
		ConfigFile: cfgFile,
		Defaults:   defaults,
	})
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, 123, cfg.Solver.MaxIterations)
	assert.True(t, cfg.Solver.TrackObjective)
	assert.Equal(t, "stdout", cfg.Telemetry.Metrics)
	// an explicit flag beats the file
	assert.Equal(t, "diagonal", cfg.Solver.Split)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(LoadOptions{
		ConfigFile: filepath.Join(t.TempDir(), "missing.yaml"),
		Defaults:   DefaultConfig(),
	})
	require.Error(t, err)
}

func TestSolverConfig_Apply(t *testing.T) {
	c := DefaultConfig().Solver
	c.Split = "diagonal"
	c.Workers = 3
	c.Async = true
	c.Threshold = 1e-3
	c.TrackObjective = true

	var p pqp.Problem
	require.NoError(t, c.Apply(&p))

	assert.Equal(t, pqp.SplitDiagonal, p.Split)
	assert.Equal(t, pqp.Termination{
		MaxIterations: pqp.DefaultMaxIterations,
		CheckEvery:    pqp.DefaultCheckEvery,
		Epsilon:       pqp.DefaultEpsilon,
		Threshold:     1e-3,
	}, p.Stop)
	assert.Equal(t, pqp.Schedule{Workers: 3, MinRows: pqp.DefaultMinRows, Async: true}, p.Sched)
	assert.True(t, p.TrackObjective)

	c.Split = "cholesky"
	err := c.Apply(&p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
	assert.True(t, errors.Is(err, pqp.ErrBadConfig))
}

func TestSolverConfig_Logger(t *testing.T) {
	c := DefaultConfig().Solver
	assert.Nil(t, c.Logger(nil, nil))

	var msg, out bytes.Buffer
	c.Verbosity = 5
	l := c.Logger(&msg, &out)
	require.NotNil(t, l)
	assert.Equal(t, pqp.LogLevel(5), l.Level)
	assert.Same(t, &msg, l.Msg)
	assert.Same(t, &out, l.Out)
}
