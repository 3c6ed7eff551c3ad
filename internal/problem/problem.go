// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package problem reads problem files and writes solver results.
//
// A problem file is YAML (JSON is accepted too, being a subset):
//
//	q: [[2, 0], [0, 2]]
//	h: [1, 1]
//	x0: [1, 1]   # optional starting point
//	maxval: 2    # optional, scalar or one bound per variable
package problem

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/curioloop/parallelqp/pqp"
)

// Bound is an upper bound given either as a scalar or as a list.
type Bound []float64

func (b *Bound) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var u float64
		if err := value.Decode(&u); err != nil {
			return err
		}
		*b = Bound{u}
		return nil
	case yaml.SequenceNode:
		var u []float64
		if err := value.Decode(&u); err != nil {
			return err
		}
		*b = u
		return nil
	default:
		return fmt.Errorf("line %d: maxval must be a number or a list of numbers", value.Line)
	}
}

func (b Bound) MarshalYAML() (any, error) {
	if len(b) == 1 {
		return b[0], nil
	}
	return []float64(b), nil
}

// File is the on-disk form of a problem.
type File struct {
	Q      [][]float64 `yaml:"q"`
	H      []float64   `yaml:"h"`
	X0     []float64   `yaml:"x0,omitempty"`
	MaxVal Bound       `yaml:"maxval,omitempty"`
}

// Decode parses a problem file.
func Decode(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: empty problem file", pqp.ErrMissingArgument)
		}
		return nil, fmt.Errorf("parse problem: %w", err)
	}
	return &f, nil
}

// Load reads the problem file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Problem flattens the file into a solver problem.
// Solver settings are left at their zero values.
func (f *File) Problem() (pqp.Problem, error) {
	n := len(f.H)
	switch {
	case len(f.Q) == 0:
		return pqp.Problem{}, fmt.Errorf("%w: q is missing", pqp.ErrMissingArgument)
	case n == 0:
		return pqp.Problem{}, fmt.Errorf("%w: h is missing", pqp.ErrMissingArgument)
	case len(f.Q) != n:
		return pqp.Problem{}, fmt.Errorf("%w: q has %d rows, h has %d elements", pqp.ErrDimensionMismatch, len(f.Q), n)
	case len(f.MaxVal) > 1 && len(f.MaxVal) != n:
		return pqp.Problem{}, fmt.Errorf("%w: maxval has %d elements, want 1 or %d", pqp.ErrDimensionMismatch, len(f.MaxVal), n)
	case f.X0 != nil && len(f.X0) != n:
		return pqp.Problem{}, fmt.Errorf("%w: x0 has %d elements, want %d", pqp.ErrDimensionMismatch, len(f.X0), n)
	}

	q := make([]float64, 0, n*n)
	for i, row := range f.Q {
		if len(row) != n {
			return pqp.Problem{}, fmt.Errorf("%w: row %d of q has %d elements, want %d", pqp.ErrDimensionMismatch, i, len(row), n)
		}
		q = append(q, row...)
	}

	return pqp.Problem{
		N:      n,
		Q:      q,
		H:      f.H,
		MaxVal: f.MaxVal,
	}, nil
}

// Result is the on-disk form of a solve.
type Result struct {
	X          []float64 `yaml:"x" json:"x"`
	F          float64   `yaml:"f" json:"f"`
	G          []float64 `yaml:"g" json:"g"`
	Values     []float64 `yaml:"values,omitempty" json:"values,omitempty"`
	Status     string    `yaml:"status" json:"status"`
	Iterations int       `yaml:"iterations" json:"iterations"`
	Residual   float64   `yaml:"residual" json:"residual"`
	Converged  bool      `yaml:"converged" json:"converged"`
}

// NewResult converts a solver result.
func NewResult(r *pqp.Result) *Result {
	return &Result{
		X:          r.X,
		F:          r.F,
		G:          r.G,
		Values:     r.Values,
		Status:     r.Status.String(),
		Iterations: r.NumIter,
		Residual:   r.Residual,
		Converged:  r.OK,
	}
}

// Format selects the result encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat accepts yaml, yml and json.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown format %q (want yaml|json)", s)
	}
}

// Write encodes r to w.
func (r *Result) Write(w io.Writer, format Format) error {
	switch format {
	case FormatJSON:
		if !finite(r.F) || !finite(r.Residual) {
			return fmt.Errorf("result is not finite: f=%v residual=%v", r.F, r.Residual)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// LoadResult reads a result file written by Write in either format.
func LoadResult(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Result
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%s: parse result: %w", path, err)
	}
	if len(r.X) == 0 {
		return nil, fmt.Errorf("%s: %w: x is missing", path, pqp.ErrMissingArgument)
	}
	return &r, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
