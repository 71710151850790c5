// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package acsi

import "github.com/zest-project/zest/gemdos"

// cmdRequestSense replies with the short (4-byte) or extended (18-byte)
// sense form depending on the requested allocation length, then clears the
// target's latched sense.
func (e *Engine) cmdRequestSense(t *Target, cmd []byte) {
	allocLen := int(cmd[4])
	var reply []byte
	if allocLen <= 4 {
		reply = shortSense(t.sense, t.reportLBA, t.senseLBA)
	} else {
		reply = extendedSense(t.sense, t.reportLBA, t.senseLBA)
	}
	e.postReply(reply, statusOK)
	t.setSense(SenseOK, false, 0)
}

// cmdInquiry replies with the fixed 48-byte INQUIRY string.
func (e *Engine) cmdInquiry(t *Target) {
	buf := make([]byte, 48)
	buf[0] = t.DeviceType
	copy(buf[8:16], []byte("zeST    "))
	name := t.ProductName
	if len(name) > 16 {
		name = name[:16]
	}
	copy(buf[16:32], []byte(name))
	e.postReply(buf, statusOK)
}

// geometryCHS picks the largest head count h in [1..255] such that the
// disk's sector count divides evenly (truncating the cylinder count when
// it doesn't), per spec's MODE SENSE page 4 rule.
func geometryCHS(sectors int64) (cylinders int64, heads int) {
	for h := 255; h >= 1; h-- {
		if sectors%int64(h) == 0 {
			return sectors / int64(h), h
		}
	}
	return sectors, 1
}

func modeSensePage0(sectors int64) []byte {
	buf := make([]byte, 16)
	buf[0] = byte(len(buf) - 1)
	buf[3] = 8 // block descriptor length
	buf[4] = byte(sectors >> 16)
	buf[5] = byte(sectors >> 8)
	buf[6] = byte(sectors)
	buf[9] = byte(512 >> 16)
	buf[10] = byte(512 >> 8)
	buf[11] = byte(512)
	return buf
}

func modeSensePage4(sectors int64) []byte {
	buf := make([]byte, 24)
	buf[0] = byte(len(buf) - 1)
	cyl, heads := geometryCHS(sectors)
	buf[4] = 0x04 // page code
	buf[5] = 0x16 // page length, 22
	buf[6] = byte(cyl >> 16)
	buf[7] = byte(cyl >> 8)
	buf[8] = byte(cyl)
	buf[9] = byte(heads)
	return buf
}

func (e *Engine) cmdModeSense(t *Target, cmd []byte) {
	if t.Disk == nil {
		t.setSense(SenseNoSector, false, 0)
		e.postStatusOnly(statusError)
		return
	}
	page := cmd[2] & 0x3F
	switch page {
	case 0x00:
		e.postReply(modeSensePage0(t.Disk.Sectors), statusOK)
	case 0x04:
		e.postReply(modeSensePage4(t.Disk.Sectors), statusOK)
	case 0x3F:
		buf := make([]byte, 0, 44)
		header := make([]byte, 4)
		header[0] = 43
		buf = append(buf, header...)
		buf = append(buf, modeSensePage0(t.Disk.Sectors)...)
		buf = append(buf, modeSensePage4(t.Disk.Sectors)...)
		e.postReply(buf, statusOK)
	default:
		t.setSense(SenseInvArg, false, 0)
		e.postStatusOnly(statusError)
	}
}

func (e *Engine) cmdReadCapacity(t *Target) {
	if t.Disk == nil {
		t.setSense(SenseNoSector, false, 0)
		e.postStatusOnly(statusError)
		return
	}
	lastLBA := uint32(t.Disk.Sectors - 1)
	buf := make([]byte, 8)
	buf[0] = byte(lastLBA >> 24)
	buf[1] = byte(lastLBA >> 16)
	buf[2] = byte(lastLBA >> 8)
	buf[3] = byte(lastLBA)
	buf[4], buf[5], buf[6], buf[7] = 0x00, 0x00, 0x02, 0x00
	e.postReply(buf, statusOK)
}

// cmdGEMDOS handles opcode 0x11, the GEMDOS RPC envelope (spec §6.3): cmd is
// the 6-byte wire header {0x11, op, arg_hi, arg_lo, 'z', 'S'}. A target with
// no callback wired answers ERROR/OPCODE like any other unsupported command.
//
// op==OP_GEMDOS starts a trap: the host first pulls the guest's 16-byte
// stack snapshot via DMA (spec §4.5), then hands the callback the sub-op
// plus that snapshot. op==OP_RESULT carries its own payload length in
// arg_hi/arg_lo; a zero length delivers immediately, otherwise the host
// pulls that many bytes via DMA first. Either way the callback never sees
// the raw wire header - finishGEMDOS assembles {subop, payload...} once
// the DMA (if any) has completed.
func (e *Engine) cmdGEMDOS(t *Target, cmd []byte) {
	if t.GEMDOS == nil {
		t.setSense(SenseOpcode, false, 0)
		e.postStatusOnly(statusError)
		return
	}
	subop := cmd[1]
	switch subop {
	case gemdos.OpGEMDOS:
		e.beginGEMDOSIntake(t, subop, gemdosStackBytes)
	case gemdos.OpResult:
		n := int(cmd[2])<<8 | int(cmd[3])
		if n == 0 {
			e.finishGEMDOS(t, subop, nil)
			return
		}
		e.beginGEMDOSIntake(t, subop, n)
	default:
		t.setSense(SenseInvArg, false, 0)
		e.postStatusOnly(statusError)
	}
}
