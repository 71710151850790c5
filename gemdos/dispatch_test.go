// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gemdos

import (
	"os"
	"path/filepath"
	"testing"
)

// fakeMemory is a flat byte array standing in for guest RAM, addressed the
// same way the real RDMEM/WRMEM ACSI plumbing would address it.
type fakeMemory struct {
	buf []byte
}

func newFakeMemory(size int) *fakeMemory { return &fakeMemory{buf: make([]byte, size)} }

func (m *fakeMemory) ReadBytes(addr uint32, n int) ([]byte, error) {
	return append([]byte(nil), m.buf[addr:int(addr)+n]...), nil
}

func (m *fakeMemory) ReadU32(addr uint32) (uint32, error) {
	b := m.buf[addr : addr+4]
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

func (m *fakeMemory) ReadU16(addr uint32) (uint16, error) {
	b := m.buf[addr : addr+2]
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

func (m *fakeMemory) WriteBytes(addr uint32, data []byte) error {
	copy(m.buf[addr:], data)
	return nil
}

func (m *fakeMemory) putPath(addr uint32, path string) {
	copy(m.buf[addr:], path)
	m.buf[addr+uint32(len(path))] = 0
}

func TestDispatchDsetdrvDgetdrv(t *testing.T) {
	d := NewDispatcher(t.TempDir(), 'C')
	mem := newFakeMemory(4096)

	actions := d.Dispatch(Call{Opcode: OpDsetdrv, Args: []uint32{2}}, mem)
	if len(actions) != 1 || actions[0].Code != ActionReturn || actions[0].Value != 1<<2 {
		t.Fatalf("Dsetdrv actions = %+v", actions)
	}

	actions = d.Dispatch(Call{Opcode: OpDgetdrv}, mem)
	if actions[0].Value != 2 {
		t.Fatalf("Dgetdrv = %d, want 2", actions[0].Value)
	}
}

func TestDispatchFcreateFopenFwriteFreadFclose(t *testing.T) {
	root := t.TempDir()
	d := NewDispatcher(root, 'C')
	mem := newFakeMemory(0x4000)
	mem.putPath(0x1000, `\NEW.TXT`)

	actions := d.Dispatch(Call{Opcode: OpFcreate, Args: []uint32{0x1000, 0}}, mem)
	if actions[0].Code != ActionReturn || actions[0].Value < HandleBase {
		t.Fatalf("Fcreate actions = %+v", actions)
	}
	h := uint32(actions[0].Value)

	mem.putPath(0x2000, "hello")
	actions = d.Dispatch(Call{Opcode: OpFwrite, Args: []uint32{h, 5, 0x2000}}, mem)
	if actions[0].Value != 5 {
		t.Fatalf("Fwrite wrote %d bytes, want 5", actions[0].Value)
	}

	actions = d.Dispatch(Call{Opcode: OpFclose, Args: []uint32{h}}, mem)
	if actions[0].Value != 0 {
		t.Fatalf("Fclose = %+v, want 0", actions)
	}

	data, err := os.ReadFile(filepath.Join(root, "NEW.TXT"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("file contents = %q, want %q", data, "hello")
	}

	actions = d.Dispatch(Call{Opcode: OpFopen, Args: []uint32{0x1000, 0}}, mem)
	if actions[0].Code != ActionReturn || actions[0].Value < HandleBase {
		t.Fatalf("Fopen actions = %+v", actions)
	}
	h2 := uint32(actions[0].Value)

	actions = d.Dispatch(Call{Opcode: OpFread, Args: []uint32{h2, 5, 0x3000}}, mem)
	if len(actions) != 2 || actions[0].Code != ActionWRMEM || string(actions[0].Data) != "hello" {
		t.Fatalf("Fread actions = %+v", actions)
	}
	if actions[1].Value != 5 {
		t.Fatalf("Fread count = %d, want 5", actions[1].Value)
	}
}

func TestDispatchUnknownOpcodeFallsBack(t *testing.T) {
	d := NewDispatcher(t.TempDir(), 'C')
	actions := d.Dispatch(Call{Opcode: 0x99}, newFakeMemory(16))
	if len(actions) != 1 || actions[0].Code != ActionFallback {
		t.Fatalf("unknown opcode = %+v, want ActionFallback", actions)
	}
}

func TestDispatchFsfirstFsnext(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "A.TXT"), []byte("1"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "B.TXT"), []byte("2"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	d := NewDispatcher(root, 'C')
	mem := newFakeMemory(0x4000)
	mem.putPath(0x1000, `\*.TXT`)

	actions := d.Dispatch(Call{Opcode: OpFsfirst, Args: []uint32{0x1000}, DTA: 0x2000}, mem)
	if len(actions) != 2 || actions[0].Code != ActionWRMEM || actions[1].Value != 0 {
		t.Fatalf("Fsfirst actions = %+v", actions)
	}
	// The stub carries out the WRMEM action; do the same on the fake memory.
	mem.WriteBytes(actions[0].Addr, actions[0].Data)
	if string(mem.buf[0x2000:0x2004]) != dtaMagic {
		t.Fatalf("DTA magic missing at start of reserved area")
	}

	searchID := actions[0].Addr
	_ = searchID
	var id uint32
	for i := 0; i < 4; i++ {
		id = id<<8 | uint32(mem.buf[0x2004+i])
	}

	actions = d.Dispatch(Call{Opcode: OpFsnext, Args: []uint32{id}, DTA: 0x2000}, mem)
	if len(actions) != 2 || actions[1].Value != 0 {
		t.Fatalf("Fsnext actions = %+v", actions)
	}

	actions = d.Dispatch(Call{Opcode: OpFsnext, Args: []uint32{id}, DTA: 0x2000}, mem)
	if actions[0].Value != ENMFIL {
		t.Fatalf("third Fsnext = %+v, want ENMFIL", actions)
	}
}
