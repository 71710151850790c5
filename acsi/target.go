// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package acsi

// Target is one of the 8 ACSI/SCSI IDs the engine answers for.
type Target struct {
	Disk        *Disk  // nil means no medium: TEST UNIT READY and data ops fail
	DeviceType  byte   // 0x00 ACSI disk, 0x0A GEMDOS drive
	ProductName string // truncated/padded to 16 bytes in INQUIRY

	// GEMDOS, if non-nil, is called for opcode 0x11 against this target.
	// cmd[0] is the envelope sub-opcode (gemdos.OpGEMDOS/OpResult); cmd[1:]
	// is its payload - the DMA-read stack snapshot or OP_RESULT bytes the
	// engine already pulled off the bus before calling in. It returns the
	// reply bytes to post, if any, and the ACSI status to post afterwards.
	GEMDOS func(cmd []byte) (reply []byte, status byte)

	sense     uint32
	senseLBA  uint32
	reportLBA bool
}

func (t *Target) setSense(code uint32, reportLBA bool, lba uint32) {
	t.sense = code
	t.reportLBA = reportLBA
	t.senseLBA = lba
}
