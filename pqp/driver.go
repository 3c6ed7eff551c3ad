// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pqp

import (
	"math"
	"time"

	"go.uber.org/atomic"
)

type iterLoc struct {
	f      float64
	x      []float64 // n
	g      []float64 // n
	values []float64
}

type iterCtx struct {
	// iteration counter.
	iter int
	// KKT residual at the last evaluation.
	resid float64
	// whether loc.f, loc.g and resid describe the current x.
	fresh bool
	// 𝐐⁻𝐱 + 𝐡⁺ and 𝐐⁺𝐱 + 𝐡⁻ of the current iteration.
	num []float64 // n
	den []float64 // n
	// iterate shared by the asynchronous schedule.
	cells []atomic.Float64 // n
	start time.Time
}

func (c *iterCtx) clear() {
	c.iter = 0
	c.resid = math.Inf(1)
	c.fresh = false
	c.start = time.Now()
}

// iterDriver is the main driver for iterations in an optimization process,
// responsible for managing the flow of the optimization.
type iterDriver struct {
	optimizer *Optimizer
	workspace *Workspace
	location  *iterLoc
}

// evaluate refreshes 𝒇(𝐱), 𝐠 = 𝐐𝐱 - 𝐡 and the KKT residual at the current location.
func (d *iterDriver) evaluate() {
	o, ctx, loc := d.optimizer, &d.workspace.iterCtx, d.location
	if !ctx.fresh {
		loc.f, ctx.resid = objective(o.n, o.q, o.h, loc.x, loc.g)
		ctx.fresh = true
	}
}

// checkConvergence tests complementary slackness and dual feasibility
//
//	𝚖𝚊𝚡( xᵢ·|(𝐐𝐱 - 𝐡)ᵢ| ) < 𝚝𝚑𝚛𝚎𝚜𝚑𝚘𝚕𝚍
//
// on every CheckEvery-th iteration.
func (d *iterDriver) checkConvergence(status Status) Status {
	o, ctx := d.optimizer, &d.workspace.iterCtx
	if ctx.iter%o.stop.CheckEvery == 0 {
		d.evaluate()
		if ctx.resid < o.stop.Threshold {
			status = Converged
		}
	}
	return status
}

// mainLoop is the main execution loop: INITIALIZING → ITERATING → {CONVERGED, BUDGET_EXHAUSTED}.
func (d *iterDriver) mainLoop() (status Status) {

	o, ctx, loc := d.optimizer, &d.workspace.iterCtx, d.location
	log := o.logger

	ctx.clear()
	d.printInit()

	if o.track {
		d.evaluate()
		loc.values = make([]float64, 1, min(o.stop.MaxIterations, 1<<16)+1)
		loc.values[0] = loc.f
	}

	if o.sched.Async {
		d.publish()
	}

	status = ExceedMaxIter
	for ctx.iter < o.stop.MaxIterations {

		if log.enable(LogTrace) {
			log.log("\n\nITERATION %5d\n", ctx.iter+1)
		}

		if o.sched.Async {
			d.sweep()
		} else {
			d.update()
		}
		ctx.iter++
		ctx.fresh = false

		if o.track {
			d.evaluate()
			loc.values = append(loc.values, loc.f)
		}

		status = d.checkConvergence(status)
		d.printIter()

		if status == Converged {
			break
		}
	}

	d.evaluate()
	d.printExit(status)
	return
}

// update performs one synchronous multiplicative step
//
//	𝐱 ← 𝚖𝚒𝚗( 𝐮, 𝐱 ⊙ (𝐐⁻𝐱 + 𝐡⁺) ⊘ (𝐐⁺𝐱 + 𝐡⁻) )   with 𝐱 ≥ ε
//
// Both products read the complete iterate before any element is overwritten.
func (d *iterDriver) update() {
	o, ctx, loc := d.optimizer, &d.workspace.iterCtx, d.location
	n, eps, sp, ub := o.n, o.stop.Epsilon, o.split, o.upper
	x, num, den := loc.x, ctx.num, ctx.den

	// an element stuck at exactly 0 could never recover
	for i := range x {
		x[i] = math.Max(x[i], eps)
	}

	forBlocks(n, o.sched, func(lo, hi int) {
		dgemv(n, sp.qn, x, num, lo, hi)
		dgemv(n, sp.qp, x, den, lo, hi)
	})

	forBlocks(n, o.sched, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			x[i] *= (num[i] + sp.hp[i]) / (den[i] + sp.hn[i])
			if ub != nil {
				x[i] = math.Min(x[i], ub[i])
			}
		}
	})
}

// printInit logs the problem setup.
func (d *iterDriver) printInit() {

	loc := d.location
	spec := &d.optimizer.iterSpec

	log := spec.logger

	if log.enable(LogLast) {
		log.log("RUNNING THE PQP CODE\n")
		log.log("           * * *\n")
		log.log("Epsilon = %10.3e    Threshold = %10.3e\n", spec.stop.Epsilon, spec.stop.Threshold)
		log.log("N = %d    SPLIT = %v    KERNEL = %s\n", spec.n, spec.policy, KernelDesc())
		log.log("WORKERS = %d    ASYNC = %t\n", spec.sched.Workers, spec.sched.Async)

		if log.enable(LogEval) {
			log.out("RUNNING THE PQP CODE\n\n")
			log.out("N = %d    SPLIT = %v\n", spec.n, spec.policy)
			log.out("\n   it         f         resid\n")

			if log.enable(LogVerbose) {
				log.log("\nX0 = ")
				for i, x := range loc.x {
					log.log("%.2e ", x)
					if (i+1)%6 == 0 {
						log.log("\n     ")
					}
				}
				if spec.upper != nil {
					log.log("\nU  = ")
					for i, u := range spec.upper {
						log.log("%.2e ", u)
						if (i+1)%6 == 0 {
							log.log("\n     ")
						}
					}
				}
				log.log("\n")
			}
		}
	}
}

// printIter logs the current iteration when the level asks for it.
// It evaluates the objective only on iterations that are printed.
func (d *iterDriver) printIter() {

	loc := d.location
	spec := &d.optimizer.iterSpec
	ctx := &d.workspace.iterCtx

	log := spec.logger
	if !log.enable(LogEval) {
		return
	}

	if log.enable(LogTrace) || ctx.iter%int(log.Level) == 0 {
		d.evaluate()
		log.log("At iterate %5d    f= %12.5e    |kkt|= %12.5e\n", ctx.iter, loc.f, ctx.resid)
		log.out("%5d %12.5e %12.5e\n", ctx.iter, loc.f, ctx.resid)
	}

	if log.enable(LogVerbose) {
		log.log("\n X = ")
		for i := 0; i < spec.n; i++ {
			log.log("%.2e ", loc.x[i])
			if (i+1)%6 == 0 {
				log.log("\n     ")
			}
		}
		log.log("\n")
	}
}

// printExit logs the final statistics and exit conditions of the optimization process.
func (d *iterDriver) printExit(status Status) {

	loc := d.location
	spec := &d.optimizer.iterSpec
	ctx := &d.workspace.iterCtx

	log := spec.logger
	if !log.enable(LogLast) {
		return
	}

	log.log("\n           * * *\n")
	log.log("Tit   = total number of iterations\n")
	log.log("Resid = final KKT residual\n")
	log.log("F     = final function value\n")
	log.log("\n           * * *\n")
	log.log("\n   N      Tit     Resid         F\n")
	log.log("%5d %8d %9.2e %12.5e\n", spec.n, ctx.iter, ctx.resid, loc.f)

	if log.enable(LogChange) {
		log.log("\n X =")
		for i := 0; i < spec.n; i++ {
			log.log(" %.2e", loc.x[i])
			if (i+1)%6 == 0 {
				log.log("\n     ")
			}
		}
		log.log("\n")
	}

	switch status {
	case Converged:
		log.log("\nCONVERGENCE: KKT_RESIDUAL_<_THRESHOLD\n")
	case ExceedMaxIter:
		log.log("\nSTOP: TOTAL NO. of ITERATIONS REACHED LIMIT\n")
	}
	log.log("\n Total time: %v\n", time.Since(ctx.start))
}
