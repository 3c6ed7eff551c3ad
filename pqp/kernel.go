// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pqp

import "golang.org/x/sys/cpu"

var (
	dotKernel     func(n int, dx, dy []float64) float64
	dotKernelDesc string
)

func init() {
	// math.FMA is only an intrinsic when the CPU executes fused multiply-add,
	// otherwise it falls back to a slow software emulation.
	if cpu.X86.HasFMA || cpu.ARM64.HasASIMD {
		dotKernel = ddotFMA
		dotKernelDesc = "FMA"
	} else {
		dotKernel = ddot
		dotKernelDesc = "Go"
	}
}

// KernelDesc returns a description of the dot product kernel used by the mat-vec products.
func KernelDesc() string {
	return dotKernelDesc
}
