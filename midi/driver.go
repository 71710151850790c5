// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package midi

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/zest-project/zest/config"
	"github.com/zest-project/zest/host/zestwin"
)

// devSnd is the directory the configuration's midi_in/midi_out leaf names
// are resolved against (spec §6.5).
const devSnd = "/dev/snd"

// Driver brings up the Bridge and binds it to the configured character
// device leaf names. Its only hard dependency is the device window driver,
// read through WindowDriver once zest.Init() has brought it up.
type Driver struct {
	Config       *config.Config
	Logger       *log.Logger
	WindowDriver *zestwin.Driver

	bridge *Bridge
}

// String identifies this driver in zest.Init() reports.
func (d *Driver) String() string { return "zest/midi" }

// Prerequisites names the device window driver.
func (d *Driver) Prerequisites() []string { return []string{d.WindowDriver.String()} }

// Init opens the configured in/out device paths. Neither configured means
// the MIDI bridge is irrelevant; Init then returns (false, nil).
func (d *Driver) Init() (bool, error) {
	if d.Config.MIDIIn == "" && d.Config.MIDIOut == "" {
		return false, nil
	}
	win := d.WindowDriver.Window()
	if win == nil {
		return true, fmt.Errorf("midi: driver: window was never acquired")
	}
	d.bridge = New(win, d.Logger)
	in, out := resolve(d.Config.MIDIIn), resolve(d.Config.MIDIOut)
	if err := d.bridge.Reconfigure(in, out); err != nil {
		return true, err
	}
	return true, nil
}

func resolve(leaf string) string {
	if leaf == "" {
		return ""
	}
	return filepath.Join(devSnd, leaf)
}

// Bridge returns the running Bridge for the IRQ demultiplexer (Drain, on
// the ACIA tx_full bit) and the T-MIDI poll loop (Run) to share.
func (d *Driver) Bridge() *Bridge { return d.bridge }
