// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package zest is the host-side peripheral emulation plane for a
// cycle-accurate Atari ST clone whose CPU, video, sound and glue logic live
// in an FPGA fabric.
//
// The FPGA is reached through a single memory-mapped register window plus
// one UIO interrupt line (see zest/host/zestwin). Everything riding that
// window - the floppy drive emulator, the ACSI/SCSI target engine and
// GEMDOS drive, and the MIDI bridge - is modelled here as a zest.Driver,
// following the same registration/dependency-ordering discipline a
// peripheral I/O library uses for its host drivers: the program registers
// each subsystem's driver with zest.Register (cmd/zest-host registers all
// six, the device window included) and brings everything up in one
// zest.Init() call once the configuration snapshot (zest/config) is loaded.
//
// → host/zestwin contains the mmap+UIO device window and the interrupt
// demultiplexer.
//
// → floppy contains the floppy image codec and the positional MFM stream
// handler.
//
// → acsi contains the ACSI/SCSI target engine, its DMA ping-pong and the
// GEMDOS opcode (0x11) hand-off.
//
// → gemdos contains the GEMDOS drive dispatcher invoked from acsi.
//
// → midi contains the MIDI bridge thread.
//
// → jukebox contains the background floppy-rotation driver.
//
// → config contains the read-only configuration snapshot contract.
package zest

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Driver is a subsystem that can be brought up once the program has a
// device window and a configuration snapshot.
type Driver interface {
	// String returns the name of the driver, as presented in logs. It must be
	// unique across all registered drivers.
	String() string
	// Prerequisites returns the names of drivers that must have initialized
	// successfully before this driver is started.
	//
	// A driver listing a prerequisite that was never registered is a fatal
	// failure at Init() time.
	Prerequisites() []string
	// Init starts the driver.
	//
	// On success it returns true, nil. When the driver is irrelevant given
	// the current configuration (e.g. no floppy image configured for drive
	// B:) it returns false, nil. On failure it returns true, err describing
	// why.
	Init() (bool, error)
}

// DriverFailure pairs a driver with why it didn't load.
type DriverFailure struct {
	D   Driver
	Err error
}

func (d DriverFailure) String() string {
	return fmt.Sprintf("%s: %v", d.D, d.Err)
}

// State is the result of Init(): which drivers came up, which were skipped,
// and which failed outright.
type State struct {
	Loaded  []Driver
	Skipped []DriverFailure
	Failed  []DriverFailure
}

var (
	mu         sync.Mutex
	allDrivers []Driver
	byName     = map[string]Driver{}
	state      *State
)

// Register registers a driver to be brought up by Init().
//
// It is an error to call Register after Init() has already run.
func Register(d Driver) error {
	mu.Lock()
	defer mu.Unlock()
	if state != nil {
		return errors.New("zest: can't call Register() after Init()")
	}
	n := d.String()
	if _, ok := byName[n]; ok {
		return fmt.Errorf("zest: driver with same name %q was already registered", n)
	}
	byName[n] = d
	allDrivers = append(allDrivers, d)
	return nil
}

// MustRegister calls Register and panics on failure.
func MustRegister(d Driver) {
	if err := Register(d); err != nil {
		panic(err)
	}
}

// Init brings up every registered driver, respecting Prerequisites().
//
// Drivers within one dependency stage are started concurrently; stages run
// in dependency order. It is safe to call Init() multiple times: the first
// call's result is cached and returned again.
func Init() (*State, error) {
	mu.Lock()
	defer mu.Unlock()
	if state != nil {
		return state, nil
	}
	state = &State{}
	cD := make(chan Driver)
	cS := make(chan DriverFailure)
	cE := make(chan DriverFailure)
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for d := range cD {
			state.Loaded = append(state.Loaded, d)
		}
	}()
	go func() {
		defer wg.Done()
		for f := range cS {
			state.Skipped = append(state.Skipped, f)
		}
	}()
	go func() {
		defer wg.Done()
		for f := range cE {
			state.Failed = append(state.Failed, f)
		}
	}()

	stages, err := explodeStages(allDrivers)
	if err != nil {
		return state, err
	}
	loaded := map[string]struct{}{}
	for _, drvs := range stages {
		loadStage(drvs, loaded, cD, cS, cE)
	}
	close(cD)
	close(cS)
	close(cE)
	wg.Wait()

	sort.Sort(drivers(state.Loaded))
	sort.Sort(failures(state.Skipped))
	sort.Sort(failures(state.Failed))
	return state, nil
}

// explodeStages groups drivers into dependency-ordered stages so that every
// driver in a stage only depends on drivers in earlier stages.
func explodeStages(drvs []Driver) ([][]Driver, error) {
	dependencies := map[string]map[string]struct{}{}
	for _, d := range drvs {
		dependencies[d.String()] = map[string]struct{}{}
	}
	for _, d := range drvs {
		name := d.String()
		for _, depName := range d.Prerequisites() {
			if _, ok := byName[depName]; !ok {
				return nil, fmt.Errorf("zest: unsatisfied dependency %q->%q", name, depName)
			}
			dependencies[name][depName] = struct{}{}
		}
	}

	var stages [][]Driver
	for len(dependencies) != 0 {
		var stage []string
		var l []Driver
		for name, deps := range dependencies {
			if len(deps) == 0 {
				stage = append(stage, name)
				l = append(l, byName[name])
				delete(dependencies, name)
			}
		}
		if len(stage) == 0 {
			return nil, fmt.Errorf("zest: found cycle(s) in driver dependencies: %v", dependencies)
		}
		stages = append(stages, l)
		for _, passed := range stage {
			for name := range dependencies {
				delete(dependencies[name], passed)
			}
		}
	}
	return stages, nil
}

// loadStage starts every driver in a single stage concurrently. A driver
// whose prerequisite failed, or was itself skipped for an unloaded
// prerequisite, in an earlier stage is skipped without calling Init().
func loadStage(drvs []Driver, loaded map[string]struct{}, cD chan<- Driver, cS, cE chan<- DriverFailure) {
	skip := make([]error, len(drvs))
	for i, d := range drvs {
		for _, dep := range d.Prerequisites() {
			if _, ok := loaded[dep]; !ok {
				skip[i] = fmt.Errorf("dependency not loaded: %q", dep)
				break
			}
		}
	}

	// failed[i] records whether drvs[i] hard-failed its own Init() (true,
	// err!=nil). Skipped-as-irrelevant (false, nil) is not a failure: a
	// dependent that only needs its prerequisite to have had the chance to
	// run - not to have actually found something to do - still proceeds
	// (e.g. zest/acsi depends on zest/gemdos only to read whatever
	// Dispatcher, if any, it produced; no GEMDOS drive configured is a
	// valid zero case, not an error).
	failed := make([]bool, len(drvs))

	var wg sync.WaitGroup
	for i, drv := range drvs {
		if skip[i] != nil {
			cS <- DriverFailure{drv, skip[i]}
			failed[i] = true
			continue
		}
		wg.Add(1)
		go func(i int, d Driver) {
			defer wg.Done()
			ok, err := d.Init()
			if ok {
				if err == nil {
					cD <- d
					return
				}
				cE <- DriverFailure{d, err}
				failed[i] = true
				return
			}
			cS <- DriverFailure{d, err}
		}(i, drv)
	}
	wg.Wait()
	for i, d := range drvs {
		if skip[i] == nil && !failed[i] {
			loaded[d.String()] = struct{}{}
		}
	}
}

type drivers []Driver

func (d drivers) Len() int           { return len(d) }
func (d drivers) Less(i, j int) bool { return d[i].String() < d[j].String() }
func (d drivers) Swap(i, j int)      { d[i], d[j] = d[j], d[i] }

type failures []DriverFailure

func (f failures) Len() int           { return len(f) }
func (f failures) Less(i, j int) bool { return f[i].D.String() < f[j].D.String() }
func (f failures) Swap(i, j int)      { f[i], f[j] = f[j], f[i] }

// reset is used by tests to run Init() more than once within a process.
func reset() {
	mu.Lock()
	defer mu.Unlock()
	state = nil
	allDrivers = nil
	byName = map[string]Driver{}
}
