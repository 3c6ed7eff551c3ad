// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pqp solves box constrained quadratic programs
//
//	𝚖𝚒𝚗 𝒇(𝐱) = ½𝐱ᵀ𝐐𝐱 - 𝐡ᵀ𝐱   subject to   𝐱 ≥ 0  (and optionally 𝐱 ≤ 𝐮)
//
// for symmetric positive semidefinite 𝐐 with a parallel multiplicative fixpoint iteration.
//
// # Multiplicative Update
//
// Split 𝐐 = 𝐐⁺ - 𝐐⁻ and 𝐡 = 𝐡⁺ - 𝐡⁻ into elementwise non-negative parts (see Split).
// The gradient of the objective becomes the difference of two non-negative vectors
//
//	𝜵𝒇(𝐱) = 𝐐𝐱 - 𝐡 = (𝐐⁺𝐱 + 𝐡⁻) - (𝐐⁻𝐱 + 𝐡⁺)
//
// and the iteration rescales every element by the ratio of the two parts:
//
//	𝐱 ← 𝐱 ⊙ (𝐐⁻𝐱 + 𝐡⁺) ⊘ (𝐐⁺𝐱 + 𝐡⁻)
//
// Writing 𝐃 = 𝚍𝚒𝚊𝚐(𝐱 ⊘ (𝐐⁺𝐱 + 𝐡⁻)) the step is 𝐱 ← 𝐱 - 𝐃𝜵𝒇(𝐱), a diagonally scaled
// gradient step that never leaves the positive orthant. The step does not increase 𝒇
// as long as 2𝐃⁻¹ - 𝐐 ⪰ 0. Since 𝚍𝚒𝚊𝚐(𝐐⁺𝐱 ⊘ 𝐱) - 𝐐⁺ ⪰ 0 for any non-negative symmetric 𝐐⁺,
// this holds for SplitDiagonal and SplitAbs on every positive 𝐱, and for SplitSimple
// whenever 𝐐 is diagonally dominant.
//
// A positive fixpoint satisfies 𝐐⁻𝐱 + 𝐡⁺ = 𝐐⁺𝐱 + 𝐡⁻, i.e. (𝐐𝐱 - 𝐡)ᵢ = 0, while
// elements driven to zero keep (𝐐𝐱 - 𝐡)ᵢ ≥ 0. Both together are the KKT conditions:
//   - 𝐱 ≥ 0
//   - 𝐐𝐱 - 𝐡 ≥ 0           (dual feasibility)
//   - xᵢ·(𝐐𝐱 - 𝐡)ᵢ = 0 ∀i  (complementary slackness)
//
// so the solver stops once 𝚖𝚊𝚡( xᵢ·|(𝐐𝐱 - 𝐡)ᵢ| ) drops below the threshold.
//
// The two mat-vec products are row reductions and the update is elementwise, so one
// iteration is data-parallel (see Schedule). Iterations themselves are sequential.
//
// # References
//
//	M. Brand, D. Chen, 'Parallel quadratic programming for image processing',
//	18th IEEE International Conference on Image Processing, 2011.
//	F. Sha, Y. Lin, L.K. Saul, D.D. Lee, 'Multiplicative updates for nonnegative
//	quadratic programming', Neural Computation 19(8), 2007.
package pqp
