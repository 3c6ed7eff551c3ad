// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package telemetry

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestInit_None(t *testing.T) {
	p, err := Init(context.Background(), Config{Traces: ExporterNone, Metrics: ExporterNone})
	require.NoError(t, err)

	ctx, span := p.StartSolve(context.Background(), SolveInfo{N: 2, Split: "simple"})
	p.EndSolve(ctx, span, Outcome{Status: "converged", Iterations: 32, Converged: true})
	assert.False(t, span.IsRecording())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestInit_UnknownExporter(t *testing.T) {
	_, err := Init(context.Background(), Config{Traces: "otlp"})
	assert.ErrorIs(t, err, ErrUnknownExporter)

	_, err = Init(context.Background(), Config{Metrics: "prometheus"})
	assert.ErrorIs(t, err, ErrUnknownExporter)
}

func TestInit_NilContext(t *testing.T) {
	//nolint:staticcheck // nil context is the case under test
	_, err := Init(nil, Config{})
	assert.Error(t, err)
}

func TestStdoutExporters(t *testing.T) {
	var out syncBuffer
	p, err := Init(context.Background(), Config{
		ServiceVersion: "test",
		Traces:         ExporterStdout,
		Metrics:        ExporterStdout,
		Writer:         &out,
	})
	require.NoError(t, err)

	ctx, span := p.StartSolve(context.Background(), SolveInfo{N: 3, Split: "abs", Workers: 2})
	assert.True(t, span.IsRecording())
	p.EndSolve(ctx, span, Outcome{
		Status:     "exceed-max-iter",
		Iterations: 100,
		Residual:   16,
		Duration:   5 * time.Millisecond,
	})

	_, span = p.StartSolve(context.Background(), SolveInfo{N: 1})
	p.EndSolve(context.Background(), span, Outcome{Err: errors.New("boom")})

	require.NoError(t, p.Shutdown(context.Background()))

	got := out.String()
	for _, want := range []string{
		"pqp.Solve",
		"pqp.split",
		"exceed-max-iter",
		"boom",
		"pqp_solve_total",
		"pqp_solve_iterations",
		"pqp_solve_duration_seconds",
	} {
		assert.Contains(t, got, want)
	}

	// a second shutdown is a no-op
	assert.NoError(t, p.Shutdown(context.Background()))
}
