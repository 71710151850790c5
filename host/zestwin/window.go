// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package zestwin

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// Register offsets and sizes, in bytes, within the mapped region. See
// spec §6.1.
const (
	offStatus      = 0x0000 // word 0
	offFloppyStage = 0x0020 // words 8..(8+16), a 64-byte staging window
	floppyStageLen = 64
	offMIDI        = 0x0030 // word 12, inside the floppy staging window
	offACSI        = 0x4000
	offDMA         = 0x4800
	dmaBufLen      = 512

	// MinSize is the minimum region size the device window requires.
	MinSize = offDMA + 2*dmaBufLen
	// MappedSize rounds MinSize up to whole 4KiB pages, matching the "at
	// least 20 KiB, page-mapped" requirement.
	MappedSize = 5 * 4096
)

// Status bits within word 0, low bits.
const (
	StatusFloppy = 1 << 0
	StatusHDDDRQ = 1 << 1
	StatusMIDI   = 1 << 2
	statusKnown  = StatusFloppy | StatusHDDDRQ | StatusMIDI
)

// MIDI ACIA register bits, within word 12.
const (
	MIDIRxFull = 1 << 8
	MIDITxFull = 1 << 9
)

// Window is a scoped acquisition of the FPGA's memory-mapped register
// region plus its UIO interrupt channel.
//
// It is shared, lock-free, mutable state across every core thread: word 0
// is only ever read by the interrupt thread, the ACSI data register is
// only ever written by the interrupt thread, and the two DMA buffers are
// owned by whichever side the current handshake names - so no internal
// mutex is needed here. Callers that need their own critical sections
// (e.g. the floppy handler serialising against image reconfiguration) own
// that locking themselves.
type Window struct {
	mem []byte
	uio *os.File

	rearmed uint32 // last interrupt count echoed back to the kernel
}

// Event is the outcome of a single WaitInterrupt call.
type Event struct {
	// Timeout is true if the poll budget elapsed with no interrupt.
	Timeout bool
	// Shutdown is true if the caller's shutdown channel fired.
	Shutdown bool
	// Mask carries {StatusFloppy, StatusHDDDRQ, StatusMIDI} bits latched from
	// word 0 at the moment of the interrupt. Zero when Timeout or Shutdown.
	Mask uint32
}

// Acquire maps the device region rooted at uioDevice (e.g. "/dev/uio0") and
// opens its interrupt channel.
//
// size must be at least MinSize; callers normally pass MappedSize.
func Acquire(uioDevice string, size int) (*Window, error) {
	if size < MinSize {
		return nil, fmt.Errorf("zestwin: acquire: region size %d smaller than minimum %d", size, MinSize)
	}
	f, err := os.OpenFile(uioDevice, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("zestwin: acquire: open %s: %w", uioDevice, err)
	}
	mem, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("zestwin: acquire: mmap %s: %w", uioDevice, err)
	}
	return &Window{mem: mem, uio: f}, nil
}

// NewMemWindow builds a Window over a plain in-memory buffer, bypassing
// mmap and the UIO device node entirely. It exists for tests that exercise
// register-level logic (the floppy stream handler, the IRQ demultiplexer's
// dispatch logic) without real hardware; WaitInterrupt and Rearm are
// unusable on a Window built this way, since there is no backing UIO file -
// nor is Release, for the same reason.
func NewMemWindow(size int) *Window {
	return &Window{mem: make([]byte, size)}
}

// Release unmaps the region and closes the UIO file.
func (w *Window) Release() error {
	err := unix.Munmap(w.mem)
	if cerr := w.uio.Close(); err == nil {
		err = cerr
	}
	return err
}

// WaitInterrupt blocks for at most budget waiting for the UIO descriptor to
// become readable, reads the interrupt count, and latches the status word.
//
// shutdown, if non-nil and closed, makes WaitInterrupt return a Shutdown
// event promptly instead of waiting out the full budget; T-IRQ polls with a
// short budget precisely so a closed shutdown channel is observed quickly
// even without this parameter, but passing it avoids an extra wakeup.
func (w *Window) WaitInterrupt(budget time.Duration, shutdown <-chan struct{}) (Event, error) {
	select {
	case <-shutdown:
		return Event{Shutdown: true}, nil
	default:
	}

	fds := []unix.PollFd{{Fd: int32(w.uio.Fd()), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, int(budget/time.Millisecond))
	if err != nil {
		if err == unix.EINTR {
			return Event{Timeout: true}, nil
		}
		return Event{}, fmt.Errorf("zestwin: wait_interrupt: poll: %w", err)
	}
	if n == 0 {
		return Event{Timeout: true}, nil
	}

	var count [4]byte
	if _, err := w.uio.Read(count[:]); err != nil {
		return Event{}, fmt.Errorf("zestwin: wait_interrupt: read: %w", err)
	}

	status := w.StatusWord()
	return Event{Mask: status & 0x7}, nil
}

// floppyDescMask covers bits 12..31, the packed floppy-position descriptor.
const floppyDescMask = 0xFFFFF000

// Rearm must be called after every serviced event before the next one will
// be delivered - the UIO channel is edge-masked until this confirmation
// write.
func (w *Window) Rearm() error {
	w.rearmed++
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], w.rearmed)
	if _, err := w.uio.Write(buf[:]); err != nil {
		return fmt.Errorf("zestwin: rearm: %w", err)
	}
	return nil
}

// StatusWord reads word 0 once. It never blocks.
func (w *Window) StatusWord() uint32 {
	return w.word(offStatus)
}

// ReservedBitsSet reports whether any bit outside the known status and
// floppy-descriptor bits is set in the given status snapshot.
func ReservedBitsSet(status uint32) bool {
	return status&^uint32(statusKnown|floppyDescMask) != 0
}

// FloppyDescriptor is the decoded packed floppy-position field from word 0,
// bits 12..31.
type FloppyDescriptor struct {
	Read  bool
	Write bool
	Addr  uint16 // 0..511, bits 21..29
	Track uint8  // bits 13..20
	Drive uint8  // bit 12, 0 or 1
}

// DecodeFloppyDescriptor extracts the floppy-position descriptor from a
// latched status word.
func DecodeFloppyDescriptor(status uint32) FloppyDescriptor {
	return FloppyDescriptor{
		Read:  status&(1<<31) != 0,
		Write: status&(1<<30) != 0,
		Addr:  uint16((status >> 21) & 0x1FF),
		Track: uint8((status >> 13) & 0xFF),
		Drive: uint8((status >> 12) & 0x1),
	}
}

// FloppyStage returns the 64-byte floppy track slice staging area (words
// 8..23), shared between the interrupt thread and the floppy handler.
func (w *Window) FloppyStage() []byte {
	return w.mem[offFloppyStage : offFloppyStage+floppyStageLen]
}

// MIDIRegister reads and writes the ACIA status/data word that lives inside
// the floppy staging window (word 12).
func (w *Window) MIDIRegister() uint32 {
	return w.word(offMIDI)
}

// SetMIDIRegister writes the ACIA status/data word.
func (w *Window) SetMIDIRegister(v uint32) {
	w.setWord(offMIDI, v)
}

// ACSIRegister reads the single ACSI register word (received byte, bit 8 is
// the A1 sideband flag).
func (w *Window) ACSIRegister() uint32 {
	return w.word(offACSI)
}

// SetACSIRegister posts a command or status word to the ACSI register.
func (w *Window) SetACSIRegister(v uint32) {
	w.setWord(offACSI, v)
}

// DMABuffer returns buffer 0 or 1 of the 512-byte ACSI ping-pong DMA area.
func (w *Window) DMABuffer(id int) []byte {
	if id != 0 && id != 1 {
		panic("zestwin: DMABuffer: id must be 0 or 1")
	}
	start := offDMA + id*dmaBufLen
	return w.mem[start : start+dmaBufLen]
}

func (w *Window) word(off int) uint32 {
	return binary.LittleEndian.Uint32(w.mem[off : off+4])
}

func (w *Window) setWord(off int, v uint32) {
	binary.LittleEndian.PutUint32(w.mem[off:off+4], v)
}
