// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads solver and CLI settings from defaults, a config file,
// PQP_* environment variables and command line flags, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/curioloop/parallelqp/pqp"
)

type Config struct {
	Solver    SolverConfig    `mapstructure:"solver"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	LogLevel  string          `mapstructure:"log_level"`
}

type SolverConfig struct {
	MaxIterations  int     `mapstructure:"max_iterations"`
	CheckEvery     int     `mapstructure:"check_every"`
	Epsilon        float64 `mapstructure:"epsilon"`
	Threshold      float64 `mapstructure:"threshold"`
	Split          string  `mapstructure:"split"`
	Workers        int     `mapstructure:"workers"`
	MinRows        int     `mapstructure:"min_rows"`
	Async          bool    `mapstructure:"async"`
	TrackObjective bool    `mapstructure:"track_objective"`
	Verbosity      int     `mapstructure:"verbosity"`
}

type TelemetryConfig struct {
	Traces  string `mapstructure:"traces"`
	Metrics string `mapstructure:"metrics"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

// ErrInvalid reports a setting that can not be mapped onto the solver.
var ErrInvalid = errors.New("invalid configuration")

func DefaultConfig() Config {
	return Config{
		Solver: SolverConfig{
			MaxIterations: pqp.DefaultMaxIterations,
			CheckEvery:    pqp.DefaultCheckEvery,
			Epsilon:       pqp.DefaultEpsilon,
			Threshold:     0,
			Split:         pqp.SplitSimple.String(),
			Workers:       1,
			MinRows:       pqp.DefaultMinRows,
			Verbosity:     int(pqp.LogNoop),
		},
		Telemetry: TelemetryConfig{
			Traces:  "none",
			Metrics: "none",
		},
		LogLevel: "info",
	}
}

// flagKeys maps every command line flag onto its config key.
var flagKeys = []struct{ flag, key string }{
	{"solver-max-iterations", "solver.max_iterations"},
	{"solver-check-every", "solver.check_every"},
	{"solver-epsilon", "solver.epsilon"},
	{"solver-threshold", "solver.threshold"},
	{"solver-split", "solver.split"},
	{"solver-workers", "solver.workers"},
	{"solver-min-rows", "solver.min_rows"},
	{"solver-async", "solver.async"},
	{"solver-track-objective", "solver.track_objective"},
	{"solver-verbosity", "solver.verbosity"},
	{"telemetry-traces", "telemetry.traces"},
	{"telemetry-metrics", "telemetry.metrics"},
	{"log-level", "log_level"},
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.Int("solver-max-iterations", defaults.Solver.MaxIterations, "Iteration budget")
	fs.Int("solver-check-every", defaults.Solver.CheckEvery, "Test the KKT residual every N iterations")
	fs.Float64("solver-epsilon", defaults.Solver.Epsilon, "Floor of the iterate and diagonal regularizer")
	fs.Float64("solver-threshold", defaults.Solver.Threshold, "KKT residual threshold (0 means n*epsilon)")
	fs.String("solver-split", defaults.Solver.Split, "Split policy: simple|diagonal|abs")
	fs.Int("solver-workers", defaults.Solver.Workers, "Goroutines computing row blocks")
	fs.Int("solver-min-rows", defaults.Solver.MinRows, "Minimum rows per block")
	fs.Bool("solver-async", defaults.Solver.Async, "Use the asynchronous Gauss-Seidel sweep")
	fs.Bool("solver-track-objective", defaults.Solver.TrackObjective, "Record the objective after every iteration")
	fs.Int("solver-verbosity", defaults.Solver.Verbosity, "Solver trace level (-1 silent, 0 summary, k every k iterations, 101 everything)")
	fs.String("telemetry-traces", defaults.Telemetry.Traces, "Trace exporter: none|stdout")
	fs.String("telemetry-metrics", defaults.Telemetry.Metrics, "Metric exporter: none|stdout")
	fs.String("log-level", defaults.LogLevel, "Log level: debug|info|warn|error")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		fs := opts.Cmd.Flags()
		for _, fk := range flagKeys {
			f := fs.Lookup(fk.flag)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(fk.key, f); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", fk.flag, err)
			}
		}
	}

	v.SetEnvPrefix("PQP")
	replacer := strings.NewReplacer("-", "_", ".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("pqp")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("solver.max_iterations", c.Solver.MaxIterations)
	v.SetDefault("solver.check_every", c.Solver.CheckEvery)
	v.SetDefault("solver.epsilon", c.Solver.Epsilon)
	v.SetDefault("solver.threshold", c.Solver.Threshold)
	v.SetDefault("solver.split", c.Solver.Split)
	v.SetDefault("solver.workers", c.Solver.Workers)
	v.SetDefault("solver.min_rows", c.Solver.MinRows)
	v.SetDefault("solver.async", c.Solver.Async)
	v.SetDefault("solver.track_objective", c.Solver.TrackObjective)
	v.SetDefault("solver.verbosity", c.Solver.Verbosity)
	v.SetDefault("telemetry.traces", c.Telemetry.Traces)
	v.SetDefault("telemetry.metrics", c.Telemetry.Metrics)
	v.SetDefault("log_level", c.LogLevel)
}

// Termination maps the solver settings onto the stopping criteria.
func (c SolverConfig) Termination() pqp.Termination {
	return pqp.Termination{
		MaxIterations: c.MaxIterations,
		CheckEvery:    c.CheckEvery,
		Epsilon:       c.Epsilon,
		Threshold:     c.Threshold,
	}
}

// Schedule maps the solver settings onto the execution schedule.
func (c SolverConfig) Schedule() pqp.Schedule {
	return pqp.Schedule{
		Workers: c.Workers,
		MinRows: c.MinRows,
		Async:   c.Async,
	}
}

// Apply copies the solver settings into p, leaving Q, H and MaxVal alone.
func (c SolverConfig) Apply(p *pqp.Problem) error {
	split, err := pqp.ParseSplit(c.Split)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	p.Split = split
	p.Stop = c.Termination()
	p.Sched = c.Schedule()
	p.TrackObjective = c.TrackObjective
	return nil
}

// Logger builds the solver trace logger for the configured verbosity.
// Negative verbosity yields nil, which keeps the solver silent.
func (c SolverConfig) Logger(msg, out io.Writer) *pqp.Logger {
	if c.Verbosity < 0 {
		return nil
	}
	return &pqp.Logger{
		Level: pqp.LogLevel(c.Verbosity),
		Msg:   msg,
		Out:   out,
	}
}
