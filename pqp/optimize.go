// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pqp

import (
	"fmt"
	"io"
	"math"
	"os"
	"slices"

	"go.uber.org/atomic"
)

// LogLevel controls the frequency and type of logger output
type LogLevel int

const (
	// LogNoop no output is generated (level < 0)
	LogNoop LogLevel = -1
	// LogLast print only one line at the last iteration
	LogLast LogLevel = 0
	// LogEval print also f and the KKT residual every `level` iterations for any (0 < level < 99)
	LogEval LogLevel = 1
	// LogTrace print details of every iteration except n-vectors
	LogTrace LogLevel = 99
	// LogChange print also the final x
	LogChange LogLevel = 100
	// LogVerbose print details of every iteration including x (level > 100)
	LogVerbose LogLevel = 101
)

// Logger handles logging output for the solver.
// Note the writers must be thread-safe.
type Logger struct {
	Level LogLevel
	Msg   io.Writer // Writer to output log messages.
	Out   io.Writer // Writer for output data.
}

func (l *Logger) enable(level LogLevel) bool {
	return l.Level >= level
}

func (l *Logger) log(format string, a ...any) {
	if len(a) > 0 {
		_, _ = fmt.Fprintf(l.Msg, format, a...)
	} else {
		_, _ = fmt.Fprint(l.Msg, format)
	}
}

func (l *Logger) out(format string, a ...any) {
	if len(a) > 0 {
		_, _ = fmt.Fprintf(l.Out, format, a...)
	} else {
		_, _ = fmt.Fprint(l.Out, format)
	}
}

// Problem specifies the box constrained quadratic program
//
//	𝚖𝚒𝚗 ½𝐱ᵀ𝐐𝐱 - 𝐡ᵀ𝐱   subject to   0 ≤ 𝐱 ≤ 𝐮
//
// for symmetric positive semidefinite 𝐐. Symmetry and definiteness are assumed,
// not checked: violating them yields meaningless results rather than an error.
type Problem struct {
	N      int       // The problem dimension (optional, defaults to len(H))
	Q      []float64 // Row-major N × N matrix, must not be modified while the optimizer is in use
	H      []float64 // Linear term
	MaxVal []float64 // Optional upper bound 𝐮, a scalar (length 1) or one bound per variable
	Split  Split     // Split policy
	Stop   Termination
	Sched  Schedule
	// TrackObjective records 𝒇(𝐱₀) and 𝒇(𝐱ₖ) after each iteration into Result.Values.
	TrackObjective bool
}

// New creates a new PQP optimizer for given problem.
func (p *Problem) New(logger *Logger) (optimizer *Optimizer, err error) {

	if logger == nil {
		logger = new(Logger)
		logger.Level = LogNoop
	}
	if logger.Msg == nil {
		logger.Msg = os.Stdout
	}
	if logger.Out == nil {
		logger.Out = os.Stderr
	}

	n := p.N
	if n == 0 {
		n = len(p.H)
	}
	stop, sched := p.Stop, p.Sched

	switch {
	case len(p.Q) == 0:
		err = fmt.Errorf("%w: matrix Q is required", ErrMissingArgument)
	case len(p.H) == 0:
		err = fmt.Errorf("%w: vector h is required", ErrMissingArgument)
	case n <= 0:
		err = fmt.Errorf("%w: problem dimension must greater than 0", ErrDimensionMismatch)
	case len(p.H) != n:
		err = fmt.Errorf("%w: h has length %d, want %d", ErrDimensionMismatch, len(p.H), n)
	case len(p.Q) != n*n:
		err = fmt.Errorf("%w: Q has %d elements, want %d×%d", ErrDimensionMismatch, len(p.Q), n, n)
	case len(p.MaxVal) > 1 && len(p.MaxVal) != n:
		err = fmt.Errorf("%w: maxval has length %d, want 1 or %d", ErrDimensionMismatch, len(p.MaxVal), n)
	case p.Split < SplitSimple || p.Split > SplitAbs:
		err = fmt.Errorf("%w: unknown split %v", ErrBadConfig, p.Split)
	case stop.MaxIterations < 0:
		err = fmt.Errorf("%w: max iteration must not less than 0", ErrBadConfig)
	case stop.CheckEvery < 0:
		err = fmt.Errorf("%w: check period must not less than 0", ErrBadConfig)
	case math.IsNaN(stop.Epsilon) || stop.Epsilon < zero:
		err = fmt.Errorf("%w: epsilon must not less than 0", ErrBadConfig)
	case math.IsNaN(stop.Threshold) || stop.Threshold < zero:
		err = fmt.Errorf("%w: threshold must not less than 0", ErrBadConfig)
	case sched.Workers < 0:
		err = fmt.Errorf("%w: workers must not less than 0", ErrBadConfig)
	case sched.MinRows < 0:
		err = fmt.Errorf("%w: min rows must not less than 0", ErrBadConfig)
	}

	for k, u := range p.MaxVal {
		if err != nil {
			break
		}
		if math.IsNaN(u) || u < zero {
			err = fmt.Errorf("%w: maxval at %d has no feasible solution", ErrBadConfig, k)
		}
	}

	if err != nil {
		return
	}

	if stop.MaxIterations == 0 {
		stop.MaxIterations = DefaultMaxIterations
	}
	if stop.CheckEvery == 0 {
		stop.CheckEvery = DefaultCheckEvery
	}
	if stop.Epsilon == 0 {
		stop.Epsilon = DefaultEpsilon
	}
	if stop.Threshold == 0 {
		stop.Threshold = float64(n) * stop.Epsilon
	}
	if sched.Workers == 0 {
		sched.Workers = 1
	}
	if sched.MinRows == 0 {
		sched.MinRows = DefaultMinRows
	}

	var upper []float64
	switch len(p.MaxVal) {
	case 0:
	case 1:
		upper = slices.Repeat(p.MaxVal, n)
	default:
		upper = slices.Clone(p.MaxVal)
	}

	optimizer = &Optimizer{
		iterSpec{
			n:      n,
			q:      p.Q,
			h:      p.H,
			upper:  upper,
			policy: p.Split,
			split:  newSplit(p.Split, n, p.Q, p.H, stop.Epsilon),
			diag:   zeroDiagonal(n, p.Q),
			stop:   stop,
			sched:  sched,
			track:  p.TrackObjective,
			logger: *logger,
		},
	}
	return
}

type iterSpec struct {
	n      int
	q, h   []float64
	upper  []float64 // nil when unbounded above
	policy Split
	split  *splitParts
	diag   int // first index with 𝐐ᵢᵢ ≤ 0, or -1
	stop   Termination
	sched  Schedule
	track  bool
	logger Logger
}

// Optimizer implemented using the multiplicative PQP fixpoint iteration.
type Optimizer struct {
	iterSpec
}

// Workspace contains the state and context of the optimization process.
// Given problem dimension n the work space is float64[3×n],
// plus n atomic cells for the asynchronous schedule.
type Workspace struct {
	n int
	iterCtx
}

// Result contains the final result of the optimization process.
type Result struct {
	OK      bool      // Whether the optimization was converged.
	F       float64   // Final function value.
	X, G    []float64 // Final solution and gradient 𝐐𝐱 - 𝐡.
	Values  []float64 // Objective history, nil unless Problem.TrackObjective.
	Summary           // Optimization summary.
}

// Summary contains a summary of the optimization process.
type Summary struct {
	Status   Status  // Final status after optimization.
	NumIter  int     // Number of iterations performed.
	Residual float64 // KKT residual 𝚖𝚊𝚡( xᵢ·|gᵢ| ) at X.
}

// Init allocate the workspace for PQP optimizer.
// To avoid race conditions, separate workspaces need to be created for each goroutine.
// But multiple workspaces could share one optimizer.
func (o *Optimizer) Init() *Workspace {
	w := new(Workspace)
	w.n = o.n
	w.num = make([]float64, o.n)
	w.den = make([]float64, o.n)
	if o.sched.Async {
		w.cells = make([]atomic.Float64, o.n)
	}
	return w
}

// Fit runs the optimization process from the initial guess x0 using workspace w.
// A nil x0 selects the heuristic starting point (𝚖𝚎𝚊𝚗(|𝐡|) + |𝐡ᵢ|) / 𝐐ᵢᵢ.
func (o *Optimizer) Fit(x0 []float64, w *Workspace) *Result {

	if x0 != nil && len(x0) != o.n {
		panic("initial x dimension not match spec")
	}

	if w.n != o.n || (o.sched.Async && len(w.cells) != o.n) {
		panic("workspace dimension not match spec")
	}

	loc := iterLoc{
		x: make([]float64, o.n),
		g: make([]float64, o.n),
	}

	if x0 != nil {
		dcopy(o.n, x0, loc.x)
	} else if o.diag >= 0 {
		if log := o.logger; log.enable(LogLast) {
			log.log("ABNORMAL_TERMINATION: Q[%d][%d] = %g IS NOT POSITIVE\n", o.diag, o.diag, o.q[o.diag*o.n+o.diag])
		}
		return &Result{Summary: Summary{Status: ZeroDiagonal, Residual: math.NaN()}, F: math.NaN()}
	} else {
		initialGuess(o.n, o.q, o.h, loc.x)
	}

	driver := iterDriver{
		optimizer: o,
		workspace: w,
		location:  &loc,
	}

	res := driver.mainLoop()
	return &Result{
		OK: res == Converged,
		X:  loc.x, F: loc.f, G: loc.g,
		Values: loc.values,
		Summary: Summary{
			Status:   res,
			NumIter:  w.iter,
			Residual: w.resid,
		},
	}
}

// Solve is the one-shot entry point: it validates p, picks the heuristic starting
// point when x0 is nil and runs the iteration without logging.
// Structural problems are reported before any iteration. Running out of
// iterations is not an error, check Result.OK.
func Solve(p Problem, x0 []float64) (*Result, error) {
	o, err := p.New(nil)
	if err != nil {
		return nil, err
	}
	if x0 != nil && len(x0) != o.n {
		return nil, fmt.Errorf("%w: x0 has length %d, want %d", ErrDimensionMismatch, len(x0), o.n)
	}
	if x0 == nil && o.diag >= 0 {
		return nil, fmt.Errorf("%w: Q[%d][%d] = %g", ErrZeroDiagonal, o.diag, o.diag, o.q[o.diag*o.n+o.diag])
	}
	return o.Fit(x0, o.Init()), nil
}

// Evaluation reports the objective at a given point.
type Evaluation struct {
	F        float64   // ½𝐱ᵀ𝐐𝐱 - 𝐡ᵀ𝐱
	G        []float64 // 𝐐𝐱 - 𝐡
	Residual float64   // 𝚖𝚊𝚡( xᵢ·|gᵢ| )
}

// Evaluate computes the objective, gradient and KKT residual of x for the
// row-major matrix q and vector h.
func Evaluate(q, h, x []float64) (*Evaluation, error) {
	n := len(h)
	switch {
	case len(q) == 0 || n == 0:
		return nil, fmt.Errorf("%w: Q and h are required", ErrMissingArgument)
	case len(q) != n*n:
		return nil, fmt.Errorf("%w: Q has %d elements, want %d×%d", ErrDimensionMismatch, len(q), n, n)
	case len(x) != n:
		return nil, fmt.Errorf("%w: x has length %d, want %d", ErrDimensionMismatch, len(x), n)
	}
	e := &Evaluation{G: make([]float64, n)}
	e.F, e.Residual = objective(n, q, h, x, e.G)
	return e, nil
}

// objective computes g = 𝐐𝐱 - 𝐡 and returns 𝒇(𝐱) = ½𝐱ᵀ(𝐠 - 𝐡) and the KKT residual.
func objective(n int, q, h, x, g []float64) (f, resid float64) {
	dgemv(n, q, x, g, 0, n)
	for i := 0; i < n; i++ {
		g[i] -= h[i]
		resid = math.Max(resid, x[i]*math.Abs(g[i]))
	}
	// 𝐱ᵀ𝐐𝐱 = 𝐱ᵀ(𝐠 + 𝐡)  →  𝒇 = ½𝐱ᵀ𝐠 + ½𝐡ᵀ𝐱 - 𝐡ᵀ𝐱 = ½𝐱ᵀ(𝐠 - 𝐡)
	f = half * (ddot(n, x, g) - ddot(n, x, h))
	return
}
