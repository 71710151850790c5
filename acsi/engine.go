// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package acsi

import (
	"log"
	"sync"

	"github.com/zest-project/zest/host/zestwin"
)

const dmaBlocks = 32 // 512 bytes / 16-byte FPGA burst unit

// gemdosStackBytes is the fixed size of the guest stack snapshot the host
// pulls via DMA when servicing an OP_GEMDOS envelope (spec §4.5: "requests
// a guest→host DMA write of 16 stack bytes").
const gemdosStackBytes = 16

// xfer tracks an in-flight READ(6)/WRITE(6) DMA ping-pong transfer.
type xfer struct {
	target int
	write  bool
	lba    int64
	count  int
	done   int
	bufID  int
	disk   *Disk
}

// gemdosIntake tracks an in-flight guest→host DMA read requested while
// servicing a 0x11 GEMDOS envelope: either the OP_GEMDOS trap's 16-byte
// stack snapshot, or an OP_RESULT action reply's variable-length payload
// (spec §4.5/§6.3). Unlike xfer, it is always a single-burst read - the
// GEMDOS envelope never pings-pongs, since its payload is small enough to
// fit in one DMA buffer.
type gemdosIntake struct {
	t      *Target
	subop  byte
	nbytes int
}

// Engine is the ACSI/SCSI command state machine: byte-at-a-time command
// framing, opcode dispatch, and the DMA ping-pong engine, all serialized
// behind one mutex per spec's "all device-register writes happen on T-IRQ
// in program order" guarantee (the engine is only ever driven from T-IRQ,
// but the mutex lets tests call in safely too).
type Engine struct {
	Window  *zestwin.Window
	Targets [8]*Target
	Logger  *log.Logger

	mu sync.Mutex

	inCommand  bool
	extended   bool
	wantOpcode bool
	cmdBuf     []byte
	cmdSize    int

	xfer     *xfer
	gemdosIn *gemdosIntake
}

// cmdSizeFor returns the command block length for a true opcode byte, per
// the leading-nibble rule in spec §4.4.
func cmdSizeFor(op byte) int {
	switch {
	case op < 0x20:
		return 6
	case op < 0x80:
		return 10
	case op < 0xA0:
		return 16
	default:
		return 12
	}
}

// OnACSIEvent is the T-IRQ handler registered as Handlers.ACSI. It either
// advances command-byte framing or, mid-transfer, services the next DMA
// ping-pong step.
func (e *Engine) OnACSIEvent() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.xfer != nil {
		e.serviceDMA()
		return
	}
	if e.gemdosIn != nil {
		e.serviceGEMDOSDMA()
		return
	}

	v := e.Window.ACSIRegister()
	a1 := v&0x100 != 0
	b := byte(v)
	e.pushCommandByte(a1, b)
}

func (e *Engine) pushCommandByte(a1 bool, b byte) {
	if !e.inCommand {
		if a1 {
			return // bus-idle byte outside a command
		}
		e.cmdBuf = []byte{b}
		e.inCommand = true
		op := b & 0x1F
		if op == 0x1F {
			e.extended = true
			e.wantOpcode = true
			e.cmdSize = 0
		} else {
			e.extended = false
			e.wantOpcode = false
			e.cmdSize = cmdSizeFor(op)
		}
		e.maybeDispatch()
		return
	}

	if a1 {
		// Unexpected idle byte mid-command: a protocol violation per the
		// error taxonomy. Reset framing and let the next command byte
		// start fresh.
		if e.Logger != nil {
			e.Logger.Printf("acsi: protocol violation: idle byte mid-command")
		}
		e.inCommand = false
		e.cmdBuf = nil
		return
	}

	e.cmdBuf = append(e.cmdBuf, b)
	if e.wantOpcode {
		e.cmdSize = cmdSizeFor(b)
		e.wantOpcode = false
	}
	e.maybeDispatch()
}

func (e *Engine) maybeDispatch() {
	if e.wantOpcode || e.cmdSize == 0 || len(e.cmdBuf) < e.cmdSize {
		return
	}
	cmd := e.cmdBuf
	e.inCommand = false
	e.cmdBuf = nil
	e.dispatch(cmd)
}

func (e *Engine) trueOpcode(cmd []byte) byte {
	if e.extended {
		return cmd[1]
	}
	return cmd[0] & 0x1F
}

func (e *Engine) dispatch(cmd []byte) {
	targetID := int(cmd[0] >> 5)
	op := e.trueOpcode(cmd)

	t := e.Targets[targetID]
	if t == nil {
		e.postStatusOnly(statusError)
		return
	}

	switch op {
	case 0x00: // TEST UNIT READY
		if t.Disk == nil {
			t.setSense(SenseNoSector, false, 0)
			e.postStatusOnly(statusError)
			return
		}
		t.setSense(SenseOK, false, 0)
		e.postStatusOnly(statusOK)
	case 0x03: // REQUEST SENSE
		e.cmdRequestSense(t, cmd)
	case 0x08: // READ(6)
		e.cmdReadWrite(t, targetID, cmd, false)
	case 0x0A: // WRITE(6)
		e.cmdReadWrite(t, targetID, cmd, true)
	case 0x11: // GEMDOS RPC envelope
		e.cmdGEMDOS(t, cmd)
	case 0x12: // INQUIRY
		e.cmdInquiry(t)
	case 0x1A: // MODE SENSE
		e.cmdModeSense(t, cmd)
	case 0x25: // READ CAPACITY
		e.cmdReadCapacity(t)
	default:
		t.setSense(SenseOpcode, false, 0)
		e.postStatusOnly(statusError)
	}
}

func (e *Engine) postStatusOnly(status byte) {
	e.Window.SetACSIRegister(uint32(status))
}

// postReply copies data into DMA buffer 0 and posts status; used by every
// opcode whose reply fits in a single 512-byte block and doesn't need the
// ping-pong engine.
func (e *Engine) postReply(data []byte, status byte) {
	copy(e.Window.DMABuffer(0), data)
	e.postStatusOnly(status)
}

// postBurstN posts a DMA burst request for an arbitrary block count; used
// directly by the GEMDOS envelope's variable-length intake, and by
// postBurst for the fixed 32-block READ(6)/WRITE(6) bursts.
func postBurstN(write bool, bufID, blocks int) uint32 {
	base := uint32(0x100)
	if write {
		base = 0x200
	}
	return base | uint32(blocks-1)<<3 | uint32(bufID)
}

func postBurst(write bool, bufID int) uint32 {
	return postBurstN(write, bufID, dmaBlocks)
}

// beginGEMDOSIntake requests the guest→host DMA read of nbytes that a
// GEMDOS envelope sub-opcode needs before it can be handed to the target's
// callback, rounding up to whole 16-byte blocks per spec §4.5.
func (e *Engine) beginGEMDOSIntake(t *Target, subop byte, nbytes int) {
	e.gemdosIn = &gemdosIntake{t: t, subop: subop, nbytes: nbytes}
	blocks := (nbytes + 15) / 16
	e.Window.SetACSIRegister(postBurstN(false, 0, blocks))
}

// serviceGEMDOSDMA completes the intake started by beginGEMDOSIntake once
// the FPGA reports the burst done, then hands the assembled payload to the
// target's callback.
func (e *Engine) serviceGEMDOSDMA() {
	in := e.gemdosIn
	e.gemdosIn = nil
	data := append([]byte(nil), e.Window.DMABuffer(0)[:in.nbytes]...)
	e.finishGEMDOS(in.t, in.subop, data)
}

// finishGEMDOS assembles the sub-op and its payload into the shape
// Target.GEMDOS expects and posts whatever it replies with.
func (e *Engine) finishGEMDOS(t *Target, subop byte, data []byte) {
	full := append([]byte{subop}, data...)
	reply, status := t.GEMDOS(full)
	if reply != nil {
		e.postReply(reply, status)
		return
	}
	e.postStatusOnly(status)
}

// bounds6 decodes the 21-bit LBA and byte-count fields common to
// READ(6)/WRITE(6) and checks them against the target's sector count.
func bounds6(cmd []byte, sectors int64) (lba int64, count int, ok bool) {
	lba = int64(cmd[1]&0x1F)<<16 | int64(cmd[2])<<8 | int64(cmd[3])
	count = int(cmd[4])
	if lba >= sectors || lba+int64(count) > sectors {
		return lba, count, false
	}
	return lba, count, true
}

func (e *Engine) cmdReadWrite(t *Target, targetID int, cmd []byte, write bool) {
	if t.Disk == nil {
		t.setSense(SenseNoSector, false, 0)
		e.postStatusOnly(statusError)
		return
	}
	lba, count, ok := bounds6(cmd, t.Disk.Sectors)
	if !ok {
		t.setSense(SenseInvAddr, true, uint32(t.Disk.Sectors))
		e.postStatusOnly(statusError)
		return
	}
	if write && t.Disk.ReadOnly {
		t.setSense(SenseWriteErr, false, 0)
		e.postStatusOnly(statusError)
		return
	}

	x := &xfer{target: targetID, write: write, lba: lba, count: count, disk: t.Disk}
	e.xfer = x

	if write {
		e.Window.SetACSIRegister(postBurst(true, 0))
		return
	}
	if err := x.disk.readSector(x.lba, e.Window.DMABuffer(0)); err != nil {
		t.setSense(SenseNoSector, false, 0)
		e.postStatusOnly(statusError)
		e.xfer = nil
		return
	}
	x.lba++
	x.done = 1
	e.Window.SetACSIRegister(postBurst(false, 0))
}

// serviceDMA advances the in-flight transfer by one DMA-complete event:
// for a read it loads the next sector into the buffer the FPGA just
// finished with; for a write it drains the buffer the FPGA just filled.
// The final event of the transfer posts STATUS_OK and clears the state
// machine instead of requesting another burst.
func (e *Engine) serviceDMA() {
	x := e.xfer
	t := e.Targets[x.target]

	if x.write {
		buf := e.Window.DMABuffer(x.bufID)
		if err := x.disk.writeSector(x.lba, buf); err != nil {
			t.setSense(SenseWriteErr, false, 0)
			e.postStatusOnly(statusError)
			e.xfer = nil
			return
		}
		x.lba++
		x.done++
		if x.done >= x.count {
			e.postStatusOnly(statusOK)
			e.xfer = nil
			return
		}
		x.bufID ^= 1
		e.Window.SetACSIRegister(postBurst(true, x.bufID))
		return
	}

	if x.done >= x.count {
		e.postStatusOnly(statusOK)
		e.xfer = nil
		return
	}
	next := x.bufID ^ 1
	if err := x.disk.readSector(x.lba, e.Window.DMABuffer(next)); err != nil {
		t.setSense(SenseNoSector, false, 0)
		e.postStatusOnly(statusError)
		e.xfer = nil
		return
	}
	x.lba++
	x.bufID = next
	x.done++
	e.Window.SetACSIRegister(postBurst(false, next))
}
