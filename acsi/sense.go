// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package acsi

// Sense codes, packed as 0xAAQQSS: AA is the additional sense code, QQ the
// qualifier, SS the sense key. REQUEST SENSE unpacks these into the
// standard fixed or extended reply forms.
const (
	SenseOK       = 0x000000
	SenseNoSector = 0x010004
	SenseWriteErr = 0x030002
	SenseOpcode   = 0x200005
	SenseInvAddr  = 0x21000D
	SenseInvArg   = 0x240005
	SenseInvLUN   = 0x250005
)

// ACSI register status-post values.
const (
	statusOK    = 0x00
	statusError = 0x02
)

func senseParts(code uint32) (asc, ascq, key byte) {
	return byte(code >> 16), byte(code >> 8), byte(code)
}

// shortSense packs a sense code into the 4-byte short REQUEST SENSE reply:
// byte 0 carries the sense key (bit 7 set when the LBA field is valid),
// bytes 1-3 the 21-bit LBA - the same field width the READ(6)/WRITE(6) CDB
// uses, just without the extended form's separate ASC/ASCQ bytes, which the
// short form has no room for. Property 5's clamped sector count round-trips
// through this path the same way it does through extendedSense.
func shortSense(code uint32, reportLBA bool, lba uint32) []byte {
	_, _, key := senseParts(code)
	buf := make([]byte, 4)
	buf[0] = key
	if reportLBA {
		buf[0] |= 0x80
		buf[1] = byte(lba >> 16)
		buf[2] = byte(lba >> 8)
		buf[3] = byte(lba)
	}
	return buf
}

// extendedSense packs the 18-byte REQUEST SENSE reply, with the LBA field
// populated and marked valid only when reportLBA is set.
func extendedSense(code uint32, reportLBA bool, lba uint32) []byte {
	asc, ascq, key := senseParts(code)
	buf := make([]byte, 18)
	buf[0] = 0x70
	if reportLBA {
		buf[0] |= 0x80
		buf[3] = byte(lba >> 24)
		buf[4] = byte(lba >> 16)
		buf[5] = byte(lba >> 8)
		buf[6] = byte(lba)
	}
	buf[2] = key
	buf[7] = 10
	buf[12] = asc
	buf[13] = ascq
	return buf
}
