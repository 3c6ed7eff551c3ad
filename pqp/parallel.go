// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pqp

import "golang.org/x/sync/errgroup"

// forBlocks calls fn on consecutive row blocks [lo,hi) covering [0,n) and
// returns once every block is done. Blocks hold at least s.MinRows rows and
// at most s.Workers of them run at once. Small problems run inline.
func forBlocks(n int, s Schedule, fn func(lo, hi int)) {
	workers := max(s.Workers, 1)
	if workers == 1 || n < 2*s.MinRows {
		fn(0, n)
		return
	}

	size := max((n+workers-1)/workers, s.MinRows)

	var g errgroup.Group
	g.SetLimit(workers)
	for lo := 0; lo < n; lo += size {
		hi := min(lo+size, n)
		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}
	_ = g.Wait()
}
