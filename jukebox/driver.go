// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package jukebox

import (
	"fmt"
	"log"
	"time"

	"github.com/zest-project/zest/config"
	"github.com/zest-project/zest/floppy"
)

// Driver brings up a Rotator from the jukebox section of the configuration
// snapshot (spec §6.5). It depends on the floppy driver for the Stream to
// rotate images into.
type Driver struct {
	Config       *config.Config
	Logger       *log.Logger
	Seed         int64
	FloppyDriver *floppy.Driver

	rotator *Rotator
}

// String identifies this driver in zest.Init() reports.
func (d *Driver) String() string { return "zest/jukebox" }

// Prerequisites names the floppy driver.
func (d *Driver) Prerequisites() []string { return []string{d.FloppyDriver.String()} }

// Init constructs the Rotator. If the configuration disables the jukebox,
// Init returns (false, nil).
func (d *Driver) Init() (bool, error) {
	if !d.Config.Jukebox.Enabled || d.Config.Jukebox.Path == "" {
		return false, nil
	}
	stream := d.FloppyDriver.Stream()
	if stream == nil {
		return true, fmt.Errorf("jukebox: driver: floppy stream was never started")
	}
	r := New(stream, d.Seed)
	r.Path = d.Config.Jukebox.Path
	r.Timeout = time.Duration(d.Config.Jukebox.Timeout) * time.Second
	r.Logger = d.Logger
	d.rotator = r
	return true, nil
}

// Rotator returns the constructed Rotator for cmd/zest-host to run as its
// own goroutine.
func (d *Driver) Rotator() *Rotator { return d.rotator }
