// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package zestwin owns the single memory-mapped register window the FPGA
// fabric exposes to the host, plus the UIO interrupt channel that signals
// new work on it.
//
// It is modelled the way the host access layer this core is grounded on
// models physical memory (host/pmem.View in the retrieved periph.io
// library): one Window acquired once at program start, holding a []byte
// view of the mapped region plus typed accessors (StatusWord, FloppyStage,
// ACSIRegister, DMABuffer, MIDIRegister) for the logical registers that
// live at fixed offsets inside it, so the aliasing and word-width rules are
// enforced by Go's type system rather than by scattered offset arithmetic.
package zestwin
