// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pqp

import "math"

// publish stores the current location into the shared cells.
func (d *iterDriver) publish() {
	ctx, loc := &d.workspace.iterCtx, d.location
	for i, x := range loc.x {
		ctx.cells[i].Store(x)
	}
}

// sweep performs one asynchronous (Gauss-Seidel) pass over all elements.
//
// Each worker walks its own row block in order and immediately publishes every
// updated xᵢ, so later rows (of any block) may already read the new value while
// other rows still see the previous one. Staleness is bounded by one sweep:
// the only barrier is at the end of the pass.
//
// Every single-element step is still a majorization-minimization step on the
// coordinate, but the joint step is not, so the objective may not decrease
// monotonically when several workers interleave.
func (d *iterDriver) sweep() {
	o, ctx, loc := d.optimizer, &d.workspace.iterCtx, d.location
	n, eps, sp, ub := o.n, o.stop.Epsilon, o.split, o.upper
	cells := ctx.cells

	forBlocks(n, o.sched, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			qn := sp.qn[i*n : (i+1)*n]
			qp := sp.qp[i*n : (i+1)*n]
			num, den := sp.hp[i], sp.hn[i]
			for j := 0; j < n; j++ {
				xj := math.Max(cells[j].Load(), eps)
				num += qn[j] * xj
				den += qp[j] * xj
			}
			xi := math.Max(cells[i].Load(), eps) * num / den
			if ub != nil {
				xi = math.Min(xi, ub[i])
			}
			cells[i].Store(xi)
		}
	})

	for i := range loc.x {
		loc.x[i] = cells[i].Load()
	}
}
