// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package zestwin

import (
	"fmt"
)

// Driver acquires the device window as a zest.Driver (see package zest).
// It has no prerequisites; the floppy, ACSI and MIDI drivers depend on it.
type Driver struct {
	UIODevice string // e.g. "/dev/uio0"
	Size      int    // 0 means MappedSize

	win *Window
}

// String identifies this driver in zest.Init() reports.
func (d *Driver) String() string { return "zest/window" }

// Prerequisites is empty: the device window is the root dependency.
func (d *Driver) Prerequisites() []string { return nil }

// Init acquires the mapped region and UIO channel. Failure here is the one
// DeviceUnavailable condition spec.md §7 treats as fatal at startup.
func (d *Driver) Init() (bool, error) {
	size := d.Size
	if size == 0 {
		size = MappedSize
	}
	w, err := Acquire(d.UIODevice, size)
	if err != nil {
		return true, fmt.Errorf("zestwin: %w", err)
	}
	d.win = w
	return true, nil
}

// Window returns the acquired Window. It is only valid after a successful
// Init().
func (d *Driver) Window() *Window { return d.win }

// NewTestDriver returns a Driver that already holds w, as if Init() had
// acquired it, for other packages' driver tests to depend on without a real
// UIO device.
func NewTestDriver(w *Window) *Driver { return &Driver{win: w} }
