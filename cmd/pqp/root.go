// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/curioloop/parallelqp/internal/config"
	"github.com/curioloop/parallelqp/internal/problem"
	"github.com/curioloop/parallelqp/internal/telemetry"
	"github.com/curioloop/parallelqp/pqp"
)

// version is overridden at link time.
var version = "dev"

// app is the state shared by the commands of one root command.
type app struct {
	cfgFile string
	cfg     config.Config
	tel     *telemetry.Provider
}

func NewRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()
	a := new(app)

	cmd := &cobra.Command{
		Use:           "pqp",
		Short:         "Parallel quadratic programming solver",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(config.LoadOptions{
				Cmd:        cmd,
				ConfigFile: a.cfgFile,
				Defaults:   defaults,
			})
			if err != nil {
				return err
			}
			a.cfg = loaded
			setupLogger(cmd.ErrOrStderr(), loaded.LogLevel)

			a.tel, err = telemetry.Init(cmd.Context(), telemetry.Config{
				ServiceVersion: version,
				Traces:         loaded.Telemetry.Traces,
				Metrics:        loaded.Telemetry.Metrics,
				Writer:         cmd.ErrOrStderr(),
			})
			return err
		},
	}

	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "Optional config file (yaml|toml|json)")
	config.RegisterFlags(cmd.PersistentFlags(), defaults)

	cmd.AddCommand(newSolveCmd(a))
	cmd.AddCommand(newKKTCmd(a))

	return cmd
}

// close flushes telemetry, it is safe to call more than once.
func (a *app) close(ctx context.Context) {
	if a.tel == nil {
		return
	}
	if err := a.tel.Shutdown(ctx); err != nil {
		slog.Warn("telemetry shutdown failed", "error", err)
	}
}

// setupLogger configures the process-wide slog default logger.
func setupLogger(w io.Writer, levelStr string) {
	lvl, err := ParseLogLevel(levelStr)
	if err != nil {
		lvl = slog.LevelInfo
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(h))
}

// ParseLogLevel converts a level name to slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}

// loadProblem reads the problem file and applies the solver settings.
func (a *app) loadProblem(path string) (pqp.Problem, []float64, error) {
	f, err := problem.Load(path)
	if err != nil {
		return pqp.Problem{}, nil, err
	}
	p, err := f.Problem()
	if err != nil {
		return pqp.Problem{}, nil, fmt.Errorf("%s: %w", path, err)
	}
	if err = a.cfg.Solver.Apply(&p); err != nil {
		return pqp.Problem{}, nil, err
	}
	return p, f.X0, nil
}
