// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gemdos

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpenHandleAboveBase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	d := NewDispatcher(dir, 'C')
	h, err := d.openHandle(path, os.O_RDONLY, 0)
	if err != nil {
		t.Fatalf("openHandle: %v", err)
	}
	if h < HandleBase {
		t.Fatalf("handle %#x below HandleBase %#x", h, HandleBase)
	}

	if _, ok := d.handleOf(h - HandleBase - 1); ok {
		t.Fatalf("handleOf accepted a value below HandleBase")
	}

	data, err := d.readHandle(h, 5)
	if err != nil {
		t.Fatalf("readHandle: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("readHandle = %q, want %q", data, "hello")
	}

	if err := d.closeHandle(h); err != nil {
		t.Fatalf("closeHandle: %v", err)
	}
	if _, ok := d.handleOf(h); ok {
		t.Fatalf("handle still live after close")
	}
}

func TestHandleBelowBaseRejected(t *testing.T) {
	d := NewDispatcher(t.TempDir(), 'C')
	if _, ok := d.handleOf(5); ok {
		t.Fatalf("handleOf(5) should report ok=false - belongs to TOS")
	}
	if err := d.closeHandle(5); err == nil {
		t.Fatalf("closeHandle(5) should fail")
	}
}

func TestFcloseBelowBaseFallsBack(t *testing.T) {
	d := NewDispatcher(t.TempDir(), 'C')
	actions := d.Dispatch(Call{Opcode: OpFclose, Args: []uint32{3}}, nil)
	if len(actions) != 1 || actions[0].Code != ActionFallback {
		t.Fatalf("fclose(3) = %+v, want single ActionFallback", actions)
	}
}
