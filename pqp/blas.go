// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pqp

import "math"

// ddot computes the dot product of two contiguous vectors.
func ddot(n int, dx, dy []float64) (dot float64) {
	if n <= 0 {
		return zero
	}
	m := uint(n % 5)
	if uint(n) > uint(len(dx)) || uint(n) > uint(len(dy)) {
		panic("bound check error")
	}
	for i := uint(0); i < m; i++ {
		dot += dx[i] * dy[i]
	}
	if n < 5 {
		return dot
	}
	for i := m; i < uint(n); i += 5 {
		x := dx[i : i+5 : i+5]
		y := dy[i : i+5 : i+5]
		dot += x[0]*y[0] + x[1]*y[1] + x[2]*y[2] + x[3]*y[3] + x[4]*y[4]
	}
	return dot
}

// ddotFMA computes the dot product with four independent fused accumulators.
// The summation order differs from ddot, results agree up to rounding.
func ddotFMA(n int, dx, dy []float64) float64 {
	if n <= 0 {
		return zero
	}
	if uint(n) > uint(len(dx)) || uint(n) > uint(len(dy)) {
		panic("bound check error")
	}
	var s0, s1, s2, s3 float64
	i := 0
	for ; i+4 <= n; i += 4 {
		x := dx[i : i+4 : i+4]
		y := dy[i : i+4 : i+4]
		s0 = math.FMA(x[0], y[0], s0)
		s1 = math.FMA(x[1], y[1], s1)
		s2 = math.FMA(x[2], y[2], s2)
		s3 = math.FMA(x[3], y[3], s3)
	}
	for ; i < n; i++ {
		s0 = math.FMA(dx[i], dy[i], s0)
	}
	return (s0 + s1) + (s2 + s3)
}

// dgemv computes rows [lo,hi) of y = A·x for a row-major n × n matrix A.
func dgemv(n int, a, x, y []float64, lo, hi int) {
	if lo < 0 || hi > n || len(a) < n*n || len(x) < n || len(y) < n {
		panic("bound check error")
	}
	for i := lo; i < hi; i++ {
		y[i] = dotKernel(n, a[i*n:(i+1)*n], x)
	}
}

// dcopy copies a vector, x, to a vector, y.
func dcopy(n int, dx, dy []float64) {
	if n <= 0 {
		return
	}
	copy(dy[:n], dx[:n])
}
