// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package floppy

import (
	"log"
	"sync"

	"github.com/zest-project/zest/host/zestwin"
)

// rotation is the modulus the FPGA's address field counts through in one
// physical revolution. 6250 track bytes don't divide evenly into 16-byte
// slices, so the address wraps one slice short of 391*16.
const rotation = 391

const sliceLen = 16

// pending records where one issued read slice came from in the track
// buffer, so a write arriving two events later knows where to land.
type pending struct {
	dest  []byte
	valid bool
}

type driveStream struct {
	image    *Image
	havePrev bool
	prevAddr uint16
	fifo     [3]pending // fifo[0] newest, fifo[2] oldest
}

// Stream is the positional MFM stream handler described in spec §4.2: it
// tracks the FPGA's rotating read/write address per drive and shuffles
// 16-byte slices between the device window's staging area and the
// in-memory track buffer, two events behind on the write side to match the
// hardware's read-ahead/write-behind pipeline.
//
// Stream holds its mutex for the duration of a single event, so
// ChangeImage can swap a drive's backing image between events without the
// handler ever observing a half-changed image.
type Stream struct {
	mu     sync.Mutex
	window *zestwin.Window
	Logger *log.Logger

	drives [2]driveStream
}

// NewStream wires a Stream to the device window it stages slices through.
func NewStream(w *zestwin.Window) *Stream {
	return &Stream{window: w}
}

// ChangeImage installs (or, with img nil, clears) the backing image for
// drive (0=A, 1=B), flushing any write-back pending on the outgoing image
// first. It takes the same mutex OnFloppyEvent holds, so a reconfiguration
// never races a in-flight event.
func (s *Stream) ChangeImage(drive int, img *Image) error {
	if drive != 0 && drive != 1 {
		panic("floppy: ChangeImage: drive must be 0 or 1")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if old := s.drives[drive].image; old != nil {
		if err := old.Sync(); err != nil {
			return err
		}
	}
	s.drives[drive] = driveStream{image: img}
	return nil
}

// Image returns the drive's currently installed image, or nil if empty.
func (s *Stream) Image(drive int) *Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drives[drive].image
}

// Close flushes any pending write-back on both drives.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.drives {
		if img := s.drives[i].image; img != nil {
			if err := img.Sync(); err != nil {
				return err
			}
		}
	}
	return nil
}

// OnFloppyEvent is the T-IRQ handler registered as Handlers.Floppy: it
// decodes the packed position descriptor out of a latched status word,
// advances the drive's rotation tracking, and copies data between the
// staging area and the track buffer.
//
// Track, in the descriptor, already addresses a flat (cylinder, side)
// track slot - the FPGA multiplies side into it before ever raising the
// interrupt, so the host never needs a separate side signal.
//
// An empty drive (no image installed) leaves the staging area untouched on
// reads and drops writes: the FPGA side has no way to be told "no disk" beyond
// whatever the guest later makes of an unformatted-looking track.
func (s *Stream) OnFloppyEvent(status uint32) {
	desc := zestwin.DecodeFloppyDescriptor(status)

	s.mu.Lock()
	defer s.mu.Unlock()

	ds := &s.drives[desc.Drive]
	if ds.havePrev && desc.Addr == ds.prevAddr {
		return
	}
	if ds.havePrev {
		want := uint16((int(ds.prevAddr) + 1) % rotation)
		if desc.Addr != want && s.Logger != nil {
			s.Logger.Printf("floppy: drive %d: address miss: got %d, want %d", desc.Drive, desc.Addr, want)
		}
	}
	ds.prevAddr = desc.Addr
	ds.havePrev = true

	stage := s.window.FloppyStage()

	// Write-back is serviced against the FIFO as it stood before this
	// event's own read (if any) pushes a new entry in - the slot two
	// events deep is always the read issued two interrupts ago, never one
	// issued this same tick.
	if desc.Write {
		if landing := ds.fifo[2]; landing.valid && ds.image != nil {
			copy(landing.dest, stage[:len(landing.dest)])
			ds.image.MarkDirty()
		}
	}

	if desc.Read {
		pos := int(desc.Addr)*sliceLen + sliceLen
		if pos >= TrackSize {
			pos = 0
		}
		n := sliceLen
		if pos+sliceLen > TrackSize {
			n = TrackSize - pos
		}

		var dest []byte
		if ds.image != nil {
			trackBuf := ds.image.TrackPosFlat(int(desc.Track))
			dest = trackBuf[pos : pos+n]
			copy(stage[:n], dest)
		}
		// No image: the staging area is left untouched (spec's "missing
		// image silently produces empty reads" failure model) and the FIFO
		// entry below carries dest=nil, valid=false - an empty slice, not a
		// zeroed one.
		ds.fifo[2] = ds.fifo[1]
		ds.fifo[1] = ds.fifo[0]
		ds.fifo[0] = pending{dest: dest, valid: dest != nil}
	}
}
