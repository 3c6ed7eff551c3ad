// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pqp

import "errors"

var (
	// ErrMissingArgument Q or h was not supplied.
	ErrMissingArgument = errors.New("pqp: missing argument")
	// ErrDimensionMismatch the shapes of Q, h, x0 or maxval disagree.
	ErrDimensionMismatch = errors.New("pqp: dimension mismatch")
	// ErrZeroDiagonal the default initial guess divides by a non-positive Qᵢᵢ.
	ErrZeroDiagonal = errors.New("pqp: non-positive diagonal entry")
	// ErrBadConfig a termination or schedule parameter is out of range.
	ErrBadConfig = errors.New("pqp: bad config")
)
