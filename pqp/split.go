// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pqp

import (
	"fmt"
	"math"
	"strings"
)

// Split selects how 𝐐 and 𝐡 are decomposed into non-negative parts
//
//	𝐐 = 𝐐⁺ - 𝐐⁻   𝐡 = 𝐡⁺ - 𝐡⁻   (𝐐⁺, 𝐐⁻, 𝐡⁺, 𝐡⁻ ≥ 0 elementwise)
//
// so that 𝐐⁻𝐱 + 𝐡⁺ and 𝐐⁺𝐱 + 𝐡⁻ are the gradients of two quadratic forms whose
// difference is the gradient 𝐐𝐱 - 𝐡 of the objective. Their ratio drives the
// multiplicative update 𝐱 ← 𝐱 ⊙ (𝐐⁻𝐱 + 𝐡⁺) ⊘ (𝐐⁺𝐱 + 𝐡⁻).
type Split int

const (
	// SplitSimple takes 𝐐⁺ = 𝚖𝚊𝚡(𝐐,0) directly.
	// It keeps the sparsity pattern of 𝐐 and is the fastest, but has the
	// weakest convergence guarantee for semidefinite 𝐐.
	SplitSimple Split = iota
	// SplitDiagonal adds the row sums of 𝐐⁺ - 𝐐 to the diagonal of 𝚖𝚊𝚡(𝐐,0),
	// forcing 𝐐⁺ into diagonal dominance.
	SplitDiagonal
	// SplitAbs takes 𝐐⁺ = |𝐐|. Denser, but robust for ill-conditioned 𝐐.
	SplitAbs
)

var splitNames = [...]string{
	SplitSimple:   "simple",
	SplitDiagonal: "diagonal",
	SplitAbs:      "abs",
}

func (s Split) String() string {
	if s < 0 || int(s) >= len(splitNames) {
		return fmt.Sprintf("Split(%d)", int(s))
	}
	return splitNames[s]
}

// ParseSplit maps a policy name to its Split. The empty string selects SplitSimple.
func ParseSplit(name string) (Split, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "simple":
		return SplitSimple, nil
	case "diagonal", "diagonal-dominance", "diagonal_dominance":
		return SplitDiagonal, nil
	case "abs", "abs-value", "abs_value":
		return SplitAbs, nil
	default:
		return SplitSimple, fmt.Errorf("%w: unknown split %q (want simple|diagonal|abs)", ErrBadConfig, name)
	}
}

// splitParts holds the decomposition, constant across iterations.
type splitParts struct {
	qp, qn []float64 // n × n
	hp, hn []float64 // n
}

// splitFunc builds 𝐐⁺ from 𝐐 into qp.
type splitFunc func(n int, q, qp []float64)

func (s Split) positive() splitFunc {
	switch s {
	case SplitDiagonal:
		return splitDiagonal
	case SplitAbs:
		return splitAbs
	default:
		return splitSimple
	}
}

func splitSimple(n int, q, qp []float64) {
	for k, v := range q[:n*n] {
		qp[k] = math.Max(v, zero)
	}
}

func splitDiagonal(n int, q, qp []float64) {
	splitSimple(n, q, qp)
	for i := 0; i < n; i++ {
		row, pos := q[i*n:(i+1)*n], qp[i*n:(i+1)*n]
		sum := zero
		for j, v := range row {
			sum += pos[j] - v
		}
		pos[i] += sum
	}
}

func splitAbs(n int, q, qp []float64) {
	for k, v := range q[:n*n] {
		qp[k] = math.Abs(v)
	}
}

// newSplit decomposes (𝐐, 𝐡) under policy s and regularizes the result:
//
//	𝐐⁺ᵢᵢ += ε   𝐡⁺ ×= (1+ε)   𝐐⁻ = 𝐐⁺ - 𝐐   𝐡⁻ = 𝐡⁺ - 𝐡
//
// The regularization keeps the denominator 𝐐⁺𝐱 + 𝐡⁻ strictly positive for 𝐱 ≥ ε
// while leaving 𝐐⁺ - 𝐐⁻ and 𝐡⁺ - 𝐡⁻ unchanged.
func newSplit(s Split, n int, q, h []float64, eps float64) *splitParts {
	sp := &splitParts{
		qp: make([]float64, n*n),
		qn: make([]float64, n*n),
		hp: make([]float64, n),
		hn: make([]float64, n),
	}

	s.positive()(n, q, sp.qp)
	for i := 0; i < n; i++ {
		sp.qp[i*n+i] += eps
	}
	for k, v := range q[:n*n] {
		// round-off may leave -0 or a tiny negative on the diagonal
		sp.qn[k] = math.Max(sp.qp[k]-v, zero)
	}

	for i, v := range h[:n] {
		sp.hp[i] = math.Max(v, zero) * (one + eps)
		sp.hn[i] = math.Max(sp.hp[i]-v, zero)
	}
	return sp
}
