// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package acsi

import (
	"encoding/binary"
	"testing"

	"github.com/zest-project/zest/gemdos"
	"github.com/zest-project/zest/host/zestwin"
)

// gemdosHeader builds the 6-byte wire header for opcode 0x11 (spec §6.3):
// {0x11|targetID<<5, op, arg_hi, arg_lo, 'z', 'S'}.
func gemdosHeader(targetID int, op byte, arg uint16) []byte {
	return []byte{byte(targetID)<<5 | 0x11, op, byte(arg >> 8), byte(arg), 'z', 'S'}
}

// TestGEMDOSEnvelopeIntake drives OnACSIEvent through a full 0x11 OP_GEMDOS
// envelope: the command header, the engine's resulting guest→host DMA read
// of the 16-byte stack snapshot, and the bridge/dispatcher answering with
// the driver-init action - the §8 "Boot from virtual drive" scenario.
func TestGEMDOSEnvelopeIntake(t *testing.T) {
	w := zestwin.NewMemWindow(zestwin.MappedSize)
	bridge := &Bridge{Dispatcher: gemdos.NewDispatcher(t.TempDir(), 'C')}
	target := &Target{DeviceType: 0x0A, ProductName: "GEMDOS", GEMDOS: bridge.HandleCommand}
	e := &Engine{Window: w, Targets: [8]*Target{1: target}}

	sendCommand(e, w, gemdosHeader(1, gemdos.OpGEMDOS, 0))

	if e.gemdosIn == nil {
		t.Fatalf("cmdGEMDOS did not start a DMA intake")
	}
	if e.gemdosIn.nbytes != gemdosStackBytes {
		t.Fatalf("intake size = %d, want %d", e.gemdosIn.nbytes, gemdosStackBytes)
	}
	wantBurst := postBurstN(false, 0, 1)
	if got := w.ACSIRegister(); got != wantBurst {
		t.Fatalf("DMA read request = %#x, want %#x", got, wantBurst)
	}

	stack := make([]byte, gemdosStackBytes)
	binary.BigEndian.PutUint16(stack[0:2], 0xFFFF) // driver-init opcode
	copy(w.DMABuffer(0), stack)

	e.OnACSIEvent()

	if e.gemdosIn != nil {
		t.Fatalf("DMA intake did not clear after completion")
	}
	if status := w.ACSIRegister() & 0xFF; status != statusOK {
		t.Fatalf("status = %#x, want OK", status)
	}
	reply := w.DMABuffer(0)
	if reply[0] != byte(gemdos.ActionReturn) {
		t.Fatalf("action code = %d, want ActionReturn", reply[0])
	}
	if got := int32(binary.BigEndian.Uint32(reply[5:9])); got != 2 {
		t.Fatalf("driver-init return value = %d, want 2 (drive C: is index 2)", got)
	}
}

// TestGEMDOSResultZeroLength checks that an OP_RESULT with a zero-length
// payload is delivered to the callback without triggering a DMA read.
func TestGEMDOSResultZeroLength(t *testing.T) {
	w := zestwin.NewMemWindow(zestwin.MappedSize)
	var gotCmd []byte
	target := &Target{GEMDOS: func(cmd []byte) ([]byte, byte) {
		gotCmd = append([]byte{}, cmd...)
		return nil, statusOK
	}}
	e := &Engine{Window: w, Targets: [8]*Target{0: target}}

	sendCommand(e, w, gemdosHeader(0, gemdos.OpResult, 0))

	if e.gemdosIn != nil {
		t.Fatalf("zero-length OP_RESULT should not start a DMA intake")
	}
	if len(gotCmd) != 1 || gotCmd[0] != gemdos.OpResult {
		t.Fatalf("callback cmd = %v, want [OpResult]", gotCmd)
	}
}
