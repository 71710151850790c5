// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package acsi

import (
	"fmt"
	"log"

	"github.com/zest-project/zest/config"
	"github.com/zest-project/zest/gemdos"
	"github.com/zest-project/zest/host/zestwin"
)

// bootSectors is the sector count the GEMDOS target's boot device reports;
// just enough to cover the embedded boot blob (spec §8 "Boot from virtual
// drive": sectors 0 and 1..3 are read before the stub installs itself).
const bootSectors = 4

// Driver brings up the Engine, one Disk per configured ACSI target, and -
// when a GEMDOS dispatcher driver loaded - the GEMDOS pseudo-target at the
// first unconfigured ID (spec §4.4/§4.5). GEMDOSDriver is allowed to have
// been skipped by zest.Init() (no GEMDOS drive configured); Init() then
// just leaves the GEMDOS pseudo-target unconfigured.
type Driver struct {
	Config       *config.Config
	WindowDriver *zestwin.Driver
	GEMDOSDriver *gemdos.Driver
	Logger       *log.Logger

	engine *Engine
	bridge *Bridge
	disks  [8]*Disk
}

// String identifies this driver in zest.Init() reports.
func (d *Driver) String() string { return "zest/acsi" }

// Prerequisites names the device window and GEMDOS dispatcher drivers.
func (d *Driver) Prerequisites() []string {
	return []string{d.WindowDriver.String(), d.GEMDOSDriver.String()}
}

// Init opens every configured ACSI target's backing image and, if a GEMDOS
// dispatcher is present, installs the GEMDOS pseudo-target.
func (d *Driver) Init() (bool, error) {
	win := d.WindowDriver.Window()
	if win == nil {
		return true, fmt.Errorf("acsi: driver: window was never acquired")
	}
	d.engine = &Engine{Window: win, Logger: d.Logger}

	gemdosID := -1
	for i, ac := range d.Config.ACSI {
		if ac.Path == "" {
			if gemdosID == -1 {
				gemdosID = i
			}
			continue
		}
		disk, err := OpenDisk(ac.Path, false)
		if err != nil {
			if d.Logger != nil {
				d.Logger.Printf("acsi: target %d: %v", i, err)
			}
			continue
		}
		d.disks[i] = disk
		d.engine.Targets[i] = &Target{
			Disk:        disk,
			DeviceType:  0x00,
			ProductName: "ACSI HD",
		}
	}

	if disp := d.GEMDOSDriver.Dispatcher(); disp != nil && gemdosID != -1 {
		d.bridge = &Bridge{Dispatcher: disp, Logger: d.Logger}
		d.engine.Targets[gemdosID] = &Target{
			Disk:        NewBootDisk(bootBlob, bootSectors),
			DeviceType:  0x0A,
			ProductName: "GEMDOS",
			GEMDOS:      d.bridge.HandleCommand,
		}
	}

	return true, nil
}

// Engine returns the running Engine for the IRQ demultiplexer to wire as
// Handlers.ACSI (via OnACSIEvent).
func (d *Driver) Engine() *Engine { return d.engine }

// Close releases every opened disk's backing file.
func (d *Driver) Close() error {
	var first error
	for _, disk := range d.disks {
		if disk == nil {
			continue
		}
		if err := disk.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
