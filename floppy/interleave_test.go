// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package floppy

import "testing"

func TestPhysicalOrderIsPermutation(t *testing.T) {
	for _, n := range []int{9, 10, 11} {
		for interleave := 1; interleave <= 3; interleave++ {
			for shift := 0; shift < n; shift++ {
				order := physicalOrder(n, interleave, shift)
				seen := make([]bool, n)
				for _, logical := range order {
					if logical < 0 || logical >= n || seen[logical] {
						t.Fatalf("n=%d interleave=%d shift=%d: order %v is not a permutation", n, interleave, shift, order)
					}
					seen[logical] = true
				}
			}
		}
	}
}

// TestElevenSectorInterleaveOnePromoted checks the spec's explicit carve-out:
// interleave=1 with 11 sectors/track is promoted to 2 to avoid a degenerate
// identity layout.
func TestElevenSectorInterleaveOnePromoted(t *testing.T) {
	got := physicalOrder(11, 1, 0)
	identity := physicalOrder(11, 2, 0)
	for i := range got {
		if got[i] != identity[i] {
			t.Fatalf("physicalOrder(11,1,0) = %v, want promotion to interleave=2 layout %v", got, identity)
		}
	}
}

func TestNextSecShiftStaysInRange(t *testing.T) {
	shift := 3
	for i := 0; i < 50; i++ {
		shift = nextSecShift(shift, 9, 3)
		if shift < 0 || shift >= 9 {
			t.Fatalf("nextSecShift produced out-of-range shift %d", shift)
		}
	}
}
