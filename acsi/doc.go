// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package acsi implements the ACSI/SCSI target engine: command-byte framing
// with the A1 sideband convention, the opcode table (TEST UNIT READY,
// REQUEST SENSE, READ/WRITE(6), INQUIRY, MODE SENSE, READ CAPACITY, and the
// GEMDOS RPC envelope), sense-code bookkeeping, and the DMA ping-pong engine
// that drains or fills the device window's two 512-byte buffers a sector at
// a time.
//
// The framing and buffer accounting follow the same fixed-offset,
// named-accessor idiom as host/zestwin - a byte or word position is always
// reached through a function with a name, never a bare magic index.
package acsi
