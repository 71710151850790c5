// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gemdos

import "testing"

func TestPexec0ActionSequence(t *testing.T) {
	d := NewDispatcher(t.TempDir(), 'C')
	seg := PexecSegments{Text: 1000, Data: 200, Bss: 50}
	total := int(seg.Text + seg.Data + seg.Bss + 256)
	image := make([]byte, total)

	actions := d.Pexec0(0, seg, image, 0x100000)

	if actions[0].Code != ActionGEMDOS || actions[0].Value != 0x4B05 {
		t.Fatalf("actions[0] = %+v, want inner Pexec(mode 5) GEMDOS action", actions[0])
	}

	wantChunks := ceilDiv(total, wrmemChunkSize)
	gotChunks := 0
	for _, a := range actions[1 : len(actions)-1] {
		if a.Code != ActionWRMEM {
			t.Fatalf("expected only WRMEM actions between GEMDOS and MODSTACK, got %+v", a)
		}
		gotChunks++
	}
	if gotChunks != wantChunks {
		t.Fatalf("WRMEM chunk count = %d, want %d", gotChunks, wantChunks)
	}

	last := actions[len(actions)-1]
	if last.Code != ActionMODSTACK || last.Value != 4 || last.Addr != 0x100000 {
		t.Fatalf("last action = %+v, want MODSTACK to Pexec(4) at new basepage", last)
	}
}

func TestPexec3NoModstack(t *testing.T) {
	d := NewDispatcher(t.TempDir(), 'C')
	seg := PexecSegments{Text: 10, Data: 0, Bss: 0}
	image := make([]byte, 256+10)

	actions := d.Pexec0(3, seg, image, 0x200000)

	for _, a := range actions {
		if a.Code == ActionMODSTACK {
			t.Fatalf("mode 3 must not post MODSTACK, got %+v", actions)
		}
	}
}

func TestWrmemChunkSizeMatchesFormula(t *testing.T) {
	if wrmemChunkSize != 512*DMABufSize-8 {
		t.Fatalf("wrmemChunkSize = %d, want %d", wrmemChunkSize, 512*DMABufSize-8)
	}
}
