// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gemdos

// PexecSegments describes the text/data/bss sizes, in bytes, of a
// 3-segment executable the guest asked Pexec to load.
type PexecSegments struct {
	Text, Data, Bss uint32
}

// wrmemChunkSize is the usable payload per WRMEM action: 512*DMABufSize
// bytes of staging buffer minus the stub's 8-byte chunk header.
const wrmemChunkSize = 512*DMABufSize - 8

// Pexec0 implements Pexec modes 0 and 3 (spec §4.5 / Testable Property 9):
// it issues exactly one inner GEMDOS(Pexec mode 5) action asking the stub
// to create a base page, streams the relocated program image into guest
// memory via WRMEM chunks of wrmemChunkSize bytes, and - only for mode 0 -
// finishes by rewriting the guest's call frame into a Pexec(4) against the
// new base page via MODSTACK. Dispatch has no case for OpPexec and never
// calls Pexec0: a Pexec trap of any mode that reaches Dispatch posts
// FALLBACK.
func (d *Dispatcher) Pexec0(mode int, seg PexecSegments, image []byte, newBasepage uint32) []Action {
	actions := []Action{{Code: ActionGEMDOS, Value: 0x4B05}}

	total := int(seg.Text + seg.Data + seg.Bss + 256)
	chunks := ceilDiv(total, wrmemChunkSize)
	offset := 0
	for i := 0; i < chunks; i++ {
		n := wrmemChunkSize
		if offset+n > len(image) {
			n = len(image) - offset
		}
		if n < 0 {
			n = 0
		}
		var data []byte
		if n > 0 {
			data = image[offset : offset+n]
		}
		actions = append(actions, Action{Code: ActionWRMEM, Addr: newBasepage + uint32(offset), Data: data})
		offset += n
	}

	if mode == 0 {
		actions = append(actions, Action{Code: ActionMODSTACK, Value: 4, Addr: newBasepage})
	}
	return actions
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
