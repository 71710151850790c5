// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package acsi

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zest-project/zest/config"
	"github.com/zest-project/zest/gemdos"
	"github.com/zest-project/zest/host/zestwin"
)

func TestDriverFailsWithoutWindow(t *testing.T) {
	d := &Driver{
		Config:       config.Default(),
		WindowDriver: &zestwin.Driver{},
		GEMDOSDriver: &gemdos.Driver{},
	}
	ok, err := d.Init()
	if !ok || err == nil {
		t.Fatalf("Init() = (%v, %v), want (true, non-nil error)", ok, err)
	}
}

func TestDriverOpensConfiguredTargets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "disk0.img")
	if err := os.WriteFile(path, make([]byte, 512*32), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg := config.Default()
	cfg.ACSI[0].Path = path

	win := zestwin.NewMemWindow(zestwin.MappedSize)
	d := &Driver{
		Config:       cfg,
		WindowDriver: zestwin.NewTestDriver(win),
		GEMDOSDriver: &gemdos.Driver{},
	}
	ok, err := d.Init()
	if !ok || err != nil {
		t.Fatalf("Init() = (%v, %v), want (true, nil)", ok, err)
	}
	if d.Engine() == nil || d.Engine().Targets[0] == nil {
		t.Fatalf("target 0 not installed")
	}
	if d.Engine().Targets[0].DeviceType != 0x00 {
		t.Fatalf("target 0 DeviceType = %#x, want 0x00", d.Engine().Targets[0].DeviceType)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestDriverSkipsBadTargetWithoutFailing(t *testing.T) {
	cfg := config.Default()
	cfg.ACSI[0].Path = "/no/such/image"

	win := zestwin.NewMemWindow(zestwin.MappedSize)
	d := &Driver{
		Config:       cfg,
		WindowDriver: zestwin.NewTestDriver(win),
		GEMDOSDriver: &gemdos.Driver{},
	}
	ok, err := d.Init()
	if !ok || err != nil {
		t.Fatalf("Init() = (%v, %v), want (true, nil)", ok, err)
	}
	if d.Engine().Targets[0] != nil {
		t.Fatalf("target 0 should be left unconfigured after a failed open")
	}
}

func TestDriverInstallsGEMDOSPseudoTargetAtFirstFreeID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "disk0.img")
	if err := os.WriteFile(path, make([]byte, 512*32), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg := config.Default()
	cfg.ACSI[0].Path = path

	win := zestwin.NewMemWindow(zestwin.MappedSize)
	disp := gemdos.NewDispatcher(dir, 'C')
	d := &Driver{
		Config:       cfg,
		WindowDriver: zestwin.NewTestDriver(win),
		GEMDOSDriver: gemdos.NewTestDriver(disp),
	}
	ok, err := d.Init()
	if !ok || err != nil {
		t.Fatalf("Init() = (%v, %v), want (true, nil)", ok, err)
	}
	tgt := d.Engine().Targets[1]
	if tgt == nil {
		t.Fatalf("expected GEMDOS pseudo-target at ID 1 (first free slot)")
	}
	if tgt.DeviceType != 0x0A {
		t.Fatalf("GEMDOS target DeviceType = %#x, want 0x0A", tgt.DeviceType)
	}
	if tgt.GEMDOS == nil {
		t.Fatalf("GEMDOS target has no GEMDOS callback wired")
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestDriverLeavesGEMDOSUnwiredWhenDispatcherAbsent(t *testing.T) {
	win := zestwin.NewMemWindow(zestwin.MappedSize)
	d := &Driver{
		Config:       config.Default(),
		WindowDriver: zestwin.NewTestDriver(win),
		GEMDOSDriver: &gemdos.Driver{},
	}
	ok, err := d.Init()
	if !ok || err != nil {
		t.Fatalf("Init() = (%v, %v), want (true, nil)", ok, err)
	}
	for i, tgt := range d.Engine().Targets {
		if tgt != nil {
			t.Fatalf("target %d unexpectedly installed with no images or dispatcher configured", i)
		}
	}
}
