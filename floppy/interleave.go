// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package floppy

// physicalOrder computes, for one track, the physical-slot -> logical-sector
// mapping described in spec §4.3: starting from secShift, each logical
// sector advances the physical cursor by interleave (wrapping modulo
// nsectors), searching forward for the next free slot on collision.
//
// interleave of 1 with 11 sectors per track is promoted to 2, matching the
// spec's explicit carve-out to avoid a degenerate zero-effective-interleave
// layout.
func physicalOrder(nsectors, interleave, secShift int) []int {
	if nsectors == 11 && interleave == 1 {
		interleave = 2
	}
	order := make([]int, nsectors)
	occupied := make([]bool, nsectors)
	for i := range order {
		order[i] = -1
	}
	secNo := mod(secShift, nsectors)
	for logical := 0; logical < nsectors; logical++ {
		for occupied[secNo] {
			secNo = mod(secNo+1, nsectors)
		}
		order[secNo] = logical
		occupied[secNo] = true
		secNo = mod(secNo+interleave, nsectors)
	}
	return order
}

// nextSecShift decrements secShift by (nsectors - skew), wrapping to stay
// non-negative, as required between successive tracks.
func nextSecShift(secShift, nsectors, skew int) int {
	return mod(secShift-(nsectors-skew), nsectors)
}

func mod(a, n int) int {
	a %= n
	if a < 0 {
		a += n
	}
	return a
}
