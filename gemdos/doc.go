// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package gemdos implements the GEMDOS drive RPC dispatcher: the host side
// of the guest stub's "action mode" protocol (decode a GEMDOS opcode,
// answer by posting one or more actions against guest memory), path
// resolution onto a host directory, POSIX file-handle translation, the
// Fsfirst/Fsnext DTA search-context bracketing scheme, DOS time/date
// conversion, and a Pexec program-loading flow.
//
// The dispatcher talks to guest state only through the GuestMemory
// interface, the same seam the retrieved host-access library draws between
// a register window and the logical values read out of it: every concrete
// wire detail (RDMEM/WRMEM chunking over the ACSI bus) lives on the other
// side of that interface, in the code that wires a Dispatcher to the ACSI
// engine's GEMDOS envelope handler.
package gemdos
