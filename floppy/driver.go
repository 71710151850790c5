// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package floppy

import (
	"fmt"
	"log"

	"github.com/zest-project/zest/config"
	"github.com/zest-project/zest/host/zestwin"
)

// defaultSkew and defaultInterleave are applied to configured images; the
// configuration contract (spec §6.5) only names a path/enable/write-protect
// triple per drive, not per-image skew/interleave, so every image loads
// with the non-skewed, non-interleaved layout unless a future config
// revision adds the knobs back.
const (
	defaultSkew       = 0
	defaultInterleave = 1
)

// Driver brings up the floppy Stream and loads the two drives' configured
// images (spec §4.2/§4.3). WindowDriver is the dependency it reads its
// *zestwin.Window from once zest.Init() has brought that driver up; being a
// pointer to the driver rather than the Window itself, Driver can be built
// and registered before the window is actually acquired.
type Driver struct {
	Config       *config.Config
	Logger       *log.Logger
	WindowDriver *zestwin.Driver

	stream *Stream
}

// String identifies this driver in zest.Init() reports.
func (d *Driver) String() string { return "zest/floppy" }

// Prerequisites names the device window driver.
func (d *Driver) Prerequisites() []string { return []string{d.WindowDriver.String()} }

// Init loads whichever of drive A/B the configuration enables with a
// non-empty path. A drive left unconfigured is simply left empty (spec's
// "missing image silently produces empty reads" failure model), not an
// error.
func (d *Driver) Init() (bool, error) {
	win := d.WindowDriver.Window()
	if win == nil {
		return true, fmt.Errorf("floppy: driver: window was never acquired")
	}
	d.stream = NewStream(win)
	d.stream.Logger = d.Logger

	// The floppy handler is wired to the IRQ demux unconditionally: even
	// with nothing mounted, an "empty drive" is a legitimate, spec-defined
	// state (reads leave the staging area untouched, writes are dropped),
	// not an absent subsystem.
	for drive, fc := range []config.Floppy{d.Config.FloppyA, d.Config.FloppyB} {
		if !fc.Enable || fc.Path == "" {
			continue
		}
		img, err := Open(fc.Path, fc.WriteProtect, defaultSkew, defaultInterleave)
		if err != nil {
			if d.Logger != nil {
				d.Logger.Printf("floppy: drive %d: %v", drive, err)
			}
			continue
		}
		if err := d.stream.ChangeImage(drive, img); err != nil {
			return true, fmt.Errorf("floppy: drive %d: %w", drive, err)
		}
	}
	return true, nil
}

// Stream returns the running Stream, wired to the device window, for the
// IRQ demultiplexer and the jukebox driver to use.
func (d *Driver) Stream() *Stream { return d.stream }

// NewTestDriver returns a Driver that already holds s, as if Init() had
// constructed it, for jukebox's driver tests to depend on without a real
// device window.
func NewTestDriver(s *Stream) *Driver { return &Driver{stream: s} }
