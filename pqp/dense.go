// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pqp

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// NewProblem builds a Problem from gonum types, copying q into row-major storage.
// Any mat.Matrix works, mat.SymDense being the natural choice.
func NewProblem(q mat.Matrix, h mat.Vector) (Problem, error) {
	if q == nil || h == nil {
		return Problem{}, fmt.Errorf("%w: matrix Q and vector h are required", ErrMissingArgument)
	}

	r, c := q.Dims()
	n := h.Len()
	switch {
	case n == 0:
		return Problem{}, fmt.Errorf("%w: vector h is empty", ErrMissingArgument)
	case r != c:
		return Problem{}, fmt.Errorf("%w: Q is %d×%d, want a square matrix", ErrDimensionMismatch, r, c)
	case r != n:
		return Problem{}, fmt.Errorf("%w: Q is %d×%d but h has length %d", ErrDimensionMismatch, r, c, n)
	}

	dq := mat.NewDense(n, n, nil)
	dq.Copy(q)

	p := Problem{
		N: n,
		Q: dq.RawMatrix().Data,
		H: make([]float64, n),
	}
	for i := range p.H {
		p.H[i] = h.AtVec(i)
	}
	return p, nil
}
