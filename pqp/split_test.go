// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pqp

import (
	"errors"
	"math"
	"testing"
)

func TestSplitIdentity(t *testing.T) {

	const n = 3
	const eps = 1e-6

	Q := []float64{
		4, -1, 0.5,
		-1, 3, -2,
		0.5, -2, 5,
	}
	h := []float64{1, -2, 0}

	for _, s := range []Split{SplitSimple, SplitDiagonal, SplitAbs} {
		sp := newSplit(s, n, Q, h, eps)
		for k := range Q {
			if sp.qp[k] < 0 || sp.qn[k] < 0 {
				t.Fatalf("%v: negative matrix part at %d", s, k)
			}
			if !almostEqual(sp.qp[k]-sp.qn[k], Q[k], 1e-12) {
				t.Fatalf("%v: Qp - Qn != Q at %d", s, k)
			}
		}
		for i := range h {
			if sp.hp[i] < 0 || sp.hn[i] < 0 {
				t.Fatalf("%v: negative vector part at %d", s, i)
			}
			if !almostEqual(sp.hp[i]-sp.hn[i], h[i], 1e-12) {
				t.Fatalf("%v: hp - hn != h at %d", s, i)
			}
		}
		// regularized diagonal
		for i := 0; i < n; i++ {
			if sp.qp[i*n+i] < Q[i*n+i]+eps*(1-1e-9) {
				t.Fatalf("%v: diagonal %d not regularized", s, i)
			}
		}
		if !almostEqual(sp.hp[0], 1+eps, 1e-15) || sp.hn[1] != 2 || sp.hp[2] != 0 || sp.hn[2] != 0 {
			t.Fatalf("%v: unexpected vector split %v %v", s, sp.hp, sp.hn)
		}
	}
}

func TestSplitPolicies(t *testing.T) {

	const n = 2

	Q := []float64{
		2, -1,
		-1, 2,
	}
	h := []float64{1, 1}

	// 𝐐⁺ before the ε regularization of the diagonal
	tests := []struct {
		split Split
		qp    []float64
	}{
		{SplitSimple, []float64{2, 0, 0, 2}},
		{SplitDiagonal, []float64{3, 0, 0, 3}},
		{SplitAbs, []float64{2, 1, 1, 2}},
	}

	for _, tt := range tests {
		sp := newSplit(tt.split, n, Q, h, 0)
		if !almostEqual(sp.qp, tt.qp, 0) {
			t.Fatalf("%v: Qp = %v, want %v", tt.split, sp.qp, tt.qp)
		}
	}

	// the diagonal split dominates both off-diagonal parts
	sp := newSplit(SplitDiagonal, n, Q, h, 0)
	for i := 0; i < n; i++ {
		off := zero
		for j := 0; j < n; j++ {
			if j != i {
				off += math.Abs(sp.qp[i*n+j]) + math.Abs(sp.qn[i*n+j])
			}
		}
		if sp.qp[i*n+i] < off {
			t.Fatalf("row %d of the diagonal split is not dominant", i)
		}
	}
}

func TestParseSplit(t *testing.T) {

	tests := []struct {
		name string
		want Split
		err  bool
	}{
		{"", SplitSimple, false},
		{"simple", SplitSimple, false},
		{" Diagonal ", SplitDiagonal, false},
		{"diagonal-dominance", SplitDiagonal, false},
		{"ABS", SplitAbs, false},
		{"abs_value", SplitAbs, false},
		{"cholesky", SplitSimple, true},
	}

	for _, tt := range tests {
		got, err := ParseSplit(tt.name)
		switch {
		case tt.err && !errors.Is(err, ErrBadConfig):
			t.Fatalf("ParseSplit(%q) error = %v, want ErrBadConfig", tt.name, err)
		case !tt.err && err != nil:
			t.Fatalf("ParseSplit(%q) unexpected error %v", tt.name, err)
		case got != tt.want:
			t.Fatalf("ParseSplit(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}

	for _, s := range []Split{SplitSimple, SplitDiagonal, SplitAbs} {
		if got, err := ParseSplit(s.String()); err != nil || got != s {
			t.Fatalf("round trip of %v failed", s)
		}
	}
	if Split(7).String() != "Split(7)" {
		t.Fatal("unexpected name of unknown split")
	}
}
