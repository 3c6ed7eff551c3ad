// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pqp

const (
	zero = 0.0
	half = 0.5
	one  = 1.0
)

const (
	// DefaultMaxIterations is the iteration budget used when Termination.MaxIterations is 0.
	DefaultMaxIterations = 10000
	// DefaultCheckEvery is the period of the KKT residual test.
	DefaultCheckEvery = 32
	// DefaultEpsilon is the floor of the iterate and the diagonal regularizer of the split.
	DefaultEpsilon = 1e-6
	// DefaultMinRows is the smallest row block handed to a worker.
	DefaultMinRows = 64
)

// Status is the final state of a solve.
type Status int

const (
	// Converged the KKT residual dropped below the threshold.
	Converged Status = iota
	// ExceedMaxIter the iteration budget was exhausted, X is a best-effort result.
	ExceedMaxIter
	// ZeroDiagonal the initial guess heuristic found a non-positive diagonal entry of Q.
	ZeroDiagonal
)

func (s Status) String() string {
	switch s {
	case Converged:
		return "converged"
	case ExceedMaxIter:
		return "exceed-max-iter"
	case ZeroDiagonal:
		return "zero-diagonal"
	default:
		return "unknown"
	}
}

// Termination specifies the stopping criteria of the fixpoint iteration.
type Termination struct {
	// The iteration stop when the number of iteration exceeds limit (0 means DefaultMaxIterations).
	MaxIterations int
	// The KKT residual is tested every CheckEvery iterations (0 means DefaultCheckEvery).
	CheckEvery int
	// Negligible positive value that bounds x away from zero (0 means DefaultEpsilon).
	Epsilon float64
	// The iteration will stop when the KKT residual satisfied:
	//   𝚖𝚊𝚡( xᵢ·|(Qx - h)ᵢ| ) < 𝚝𝚑𝚛𝚎𝚜𝚑𝚘𝚕𝚍
	// 0 means n × Epsilon.
	Threshold float64
}

// Schedule specifies how the work inside one iteration is executed.
type Schedule struct {
	// Number of goroutines computing row blocks (0 means 1).
	Workers int
	// Minimum rows per block (0 means DefaultMinRows).
	MinRows int
	// Async enables the Gauss-Seidel variant: elements are updated in place
	// using possibly stale neighbour values. The objective is no longer
	// guaranteed to decrease monotonically.
	Async bool
}
