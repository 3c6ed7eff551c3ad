// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pqp

import "math"

// zeroDiagonal returns the first index i with 𝐐ᵢᵢ ≤ 0 (or NaN), -1 if none.
func zeroDiagonal(n int, q []float64) int {
	for i := 0; i < n; i++ {
		if !(q[i*n+i] > zero) {
			return i
		}
	}
	return -1
}

// initialGuess fills x with the heuristic starting point
//
//	𝐱₀ᵢ = (𝚖𝚎𝚊𝚗(|𝐡|) + |𝐡ᵢ|) / 𝐐ᵢᵢ
//
// which is strictly positive whenever 𝐡 ≠ 0 and 𝐐ᵢᵢ > 0.
// The caller must have checked the diagonal with zeroDiagonal.
func initialGuess(n int, q, h, x []float64) {
	mean := zero
	for _, v := range h[:n] {
		mean += math.Abs(v)
	}
	mean /= float64(n)
	for i := 0; i < n; i++ {
		x[i] = (mean + math.Abs(h[i])) / q[i*n+i]
	}
}
