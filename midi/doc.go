// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package midi bridges an ALSA-style MIDI character device to the FPGA's
// ACIA register (spec §4.6). One thread polls the configured "in" device
// with a short timeout and shovels received bytes into the ACIA data
// register; the interrupt demultiplexer's MIDI handler calls Drain on each
// MIDI interrupt, and when the ACIA status bit reports tx_full this package
// writes that byte back out to the "out" device.
//
// Polling follows the same golang.org/x/sys/unix.Poll idiom used by
// zest/host/zestwin for the UIO descriptor, rather than the teacher's
// epoll-based host/sysfs GPIO edge detection - a plain character device has
// no edge-triggered epoll semantics to exploit, so poll() on a short budget
// is the simpler, equally-grounded choice (see DESIGN.md).
package midi
