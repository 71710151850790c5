// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gemdos

import (
	"fmt"
	"os"

	"github.com/zest-project/zest/config"
)

// Driver brings up the Dispatcher rooted at the configured GEMDOS
// directory (spec §4.5/§6.5). It has no device-window dependency of its
// own: the dispatcher only ever touches the host filesystem and its
// command intake box, which the acsi.Bridge hands to it.
type Driver struct {
	Config *config.Config
	Drive  byte // drive letter the dispatcher answers for, e.g. 'C'

	dispatcher *Dispatcher
}

// String identifies this driver in zest.Init() reports.
func (d *Driver) String() string { return "zest/gemdos" }

// Prerequisites is empty: the GEMDOS dispatcher only needs a filesystem.
func (d *Driver) Prerequisites() []string { return nil }

// Init validates the configured root exists and is a directory, then
// constructs the Dispatcher. A blank Config.GEMDOS means no virtual drive
// is exposed; Init then returns (false, nil) rather than failing.
func (d *Driver) Init() (bool, error) {
	root := d.Config.GEMDOS
	if root == "" {
		return false, nil
	}
	fi, err := os.Stat(root)
	if err != nil {
		return true, fmt.Errorf("gemdos: root %s: %w", root, err)
	}
	if !fi.IsDir() {
		return true, fmt.Errorf("gemdos: root %s: not a directory", root)
	}
	drive := d.Drive
	if drive == 0 {
		drive = 'C'
	}
	disp := NewDispatcher(root, drive)
	disp.Timezone = d.Config.Timezone
	d.dispatcher = disp
	return true, nil
}

// Dispatcher returns the constructed Dispatcher. Only valid after a
// successful Init() that didn't skip.
func (d *Driver) Dispatcher() *Dispatcher { return d.dispatcher }

// NewTestDriver returns a Driver that already holds disp, as if Init() had
// constructed it, for acsi's driver tests to depend on without a real
// filesystem root.
func NewTestDriver(disp *Dispatcher) *Driver { return &Driver{dispatcher: disp} }
