// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package zestwin

import (
	"log"
	"time"
)

// PollBudget is the default timeout WaitInterrupt is called with, chosen so
// a shutdown request is observed within a handful of milliseconds.
const PollBudget = 5 * time.Millisecond

// Handlers groups the three per-subsystem callbacks the demultiplexer
// invokes, always in this order, against one latched status snapshot.
type Handlers struct {
	Floppy func(status uint32)
	ACSI   func()
	MIDI   func()
}

// Demux waits on a Window's UIO channel and fans each interrupt out to the
// registered handlers, synchronously, on the calling goroutine (T-IRQ).
type Demux struct {
	Window   *Window
	Handlers Handlers
	Logger   *log.Logger
}

// Run services interrupts until shutdown is closed. It returns when
// shutdown fires or a non-recoverable wait error occurs.
//
// Ordering guarantee: handlers within one event see a single coherent
// latched status snapshot; status bits raised while a handler runs are
// only picked up on the next event.
func (d *Demux) Run(shutdown <-chan struct{}) error {
	for {
		ev, err := d.Window.WaitInterrupt(PollBudget, shutdown)
		if err != nil {
			return err
		}
		if ev.Shutdown {
			return nil
		}
		if ev.Timeout {
			continue
		}
		d.dispatch(ev.Mask)
		if err := d.Window.Rearm(); err != nil {
			return err
		}
	}
}

func (d *Demux) dispatch(mask uint32) {
	status := d.Window.StatusWord()
	if ReservedBitsSet(status) {
		if d.Logger != nil {
			d.Logger.Printf("zestwin: reserved status bit set: %#x", status)
		}
		return
	}
	if mask&StatusFloppy != 0 && d.Handlers.Floppy != nil {
		d.Handlers.Floppy(status)
	}
	if mask&StatusHDDDRQ != 0 && d.Handlers.ACSI != nil {
		d.Handlers.ACSI()
	}
	if mask&StatusMIDI != 0 && d.Handlers.MIDI != nil {
		d.Handlers.MIDI()
	}
}
