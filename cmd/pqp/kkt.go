// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/curioloop/parallelqp/internal/problem"
	"github.com/curioloop/parallelqp/pqp"
)

// kktReport describes how far a candidate solution is from optimal.
type kktReport struct {
	F        float64 `yaml:"f"`
	Residual float64 `yaml:"residual"`
	// smallest gradient element among x ≤ ε, negative values violate dual feasibility
	MinGradient float64 `yaml:"min_gradient"`
	// largest violation of 0 ≤ x ≤ maxval
	BoundViolation float64 `yaml:"bound_violation"`
	Converged      bool    `yaml:"converged"`
}

func newKKTCmd(a *app) *cobra.Command {
	var (
		problemPath  string
		solutionPath string
	)

	cmd := &cobra.Command{
		Use:   "kkt",
		Short: "Report the objective and KKT residual of a stored solution",
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer a.close(cmd.Context())

			p, _, err := a.loadProblem(problemPath)
			if err != nil {
				return err
			}
			sol, err := problem.LoadResult(solutionPath)
			if err != nil {
				return err
			}

			e, err := pqp.Evaluate(p.Q, p.H, sol.X)
			if err != nil {
				return fmt.Errorf("%s: %w", solutionPath, err)
			}

			eps := p.Stop.Epsilon
			if eps == 0 {
				eps = pqp.DefaultEpsilon
			}
			threshold := p.Stop.Threshold
			if threshold == 0 {
				threshold = float64(len(p.H)) * eps
			}

			r := kktReport{
				F:           e.F,
				Residual:    e.Residual,
				MinGradient: math.Inf(1),
			}
			for i, x := range sol.X {
				if x <= eps {
					r.MinGradient = math.Min(r.MinGradient, e.G[i])
				}
				r.BoundViolation = math.Max(r.BoundViolation, -x)
				if u := bound(p.MaxVal, i); x > u {
					r.BoundViolation = math.Max(r.BoundViolation, x-u)
				}
			}
			if math.IsInf(r.MinGradient, 1) {
				r.MinGradient = 0
			}

			r.Converged = r.Residual < threshold && r.BoundViolation == 0

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err = enc.Encode(r); err != nil {
				return err
			}
			return enc.Close()
		},
	}

	cmd.Flags().StringVar(&problemPath, "problem", "", "Problem file (yaml|json)")
	cmd.Flags().StringVar(&solutionPath, "solution", "", "Result file written by solve")
	_ = cmd.MarkFlagRequired("problem")
	_ = cmd.MarkFlagRequired("solution")

	return cmd
}

// bound returns the upper bound of element i, +Inf when unbounded.
func bound(maxval []float64, i int) float64 {
	switch len(maxval) {
	case 0:
		return math.Inf(1)
	case 1:
		return maxval[0]
	default:
		return maxval[i]
	}
}
