// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package floppy implements the floppy drive emulator: the image codec
// (raw MFM, ST, MSA, with CRC16 track synthesis) and the positional MFM
// stream handler that feeds and drains it against the FPGA's rotating
// track position.
//
// The byte-level register plumbing follows the same bit-packing idiom the
// retrieved host-access library uses for its memory-mapped register
// windows (conn/mmr): fixed-offset fields decoded with small, named
// accessor functions rather than ad hoc indexing scattered through the
// codec.
package floppy
