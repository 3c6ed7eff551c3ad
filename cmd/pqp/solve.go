// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/curioloop/parallelqp/internal/problem"
	"github.com/curioloop/parallelqp/internal/telemetry"
	"github.com/curioloop/parallelqp/pqp"
)

func newSolveCmd(a *app) *cobra.Command {
	var (
		problemPath string
		outputPath  string
		format      string
	)

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Solve the problem file and write x, f and the convergence summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer a.close(cmd.Context())

			fmtOut, err := problem.ParseFormat(format)
			if err != nil {
				return err
			}

			p, x0, err := a.loadProblem(problemPath)
			if err != nil {
				return err
			}

			o, err := p.New(a.cfg.Solver.Logger(cmd.ErrOrStderr(), cmd.ErrOrStderr()))
			if err != nil {
				return err
			}

			ctx, span := a.tel.StartSolve(cmd.Context(), telemetry.SolveInfo{
				N:       len(p.H),
				Split:   p.Split.String(),
				Workers: p.Sched.Workers,
				Async:   p.Sched.Async,
			})

			start := time.Now()
			res := o.Fit(x0, o.Init())
			elapsed := time.Since(start)

			if res.Status == pqp.ZeroDiagonal {
				err = fmt.Errorf("%w: supply x0 in %s", pqp.ErrZeroDiagonal, problemPath)
				a.tel.EndSolve(ctx, span, telemetry.Outcome{Status: res.Status.String(), Err: err})
				return err
			}
			a.tel.EndSolve(ctx, span, telemetry.Outcome{
				Status:     res.Status.String(),
				Iterations: res.NumIter,
				Residual:   res.Residual,
				Converged:  res.OK,
				Duration:   elapsed,
			})

			log := slog.With("problem", problemPath, "n", len(p.H), "split", p.Split.String(), "kernel", pqp.KernelDesc())
			if res.OK {
				log.Info("solve converged", "iterations", res.NumIter, "residual", res.Residual, "f", res.F, "elapsed", elapsed)
			} else {
				log.Warn("iteration budget exhausted", "iterations", res.NumIter, "residual", res.Residual, "f", res.F, "elapsed", elapsed)
			}

			var buf bytes.Buffer
			if err = problem.NewResult(res).Write(&buf, fmtOut); err != nil {
				return fmt.Errorf("encode result: %w", err)
			}
			if outputPath == "" || outputPath == "-" {
				_, err = cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err = os.WriteFile(outputPath, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write result: %w", err)
			}
			log.Debug("result written", "output", outputPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&problemPath, "problem", "", "Problem file (yaml|json)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "-", "Result file, - for stdout")
	cmd.Flags().StringVar(&format, "format", "yaml", "Result format: yaml|json")
	_ = cmd.MarkFlagRequired("problem")

	return cmd
}
