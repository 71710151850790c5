// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package midi

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/zest-project/zest/host/zestwin"
)

// PollBudget is the timeout the in-device poll loop blocks for between
// shutdown checks, matching T-IRQ's 5 ms UIO poll budget (spec §5).
const PollBudget = 5 * time.Millisecond

// ACIARegister is the subset of zestwin.Window the bridge needs. It is an
// interface so tests can exercise Bridge against a fake register instead of
// a real mapped window.
type ACIARegister interface {
	MIDIRegister() uint32
	SetMIDIRegister(v uint32)
}

// Bridge binds one or two MIDI character device paths (in and out may name
// the same device) to the FPGA's ACIA register.
//
// Port names are mutable at runtime: the menu thread may call Reconfigure
// to close and reopen the file descriptors while T-MIDI's poll loop is
// live. The two cooperate through fdMu, which Reconfigure holds only long
// enough to swap the descriptors, never across a blocking read or write.
type Bridge struct {
	ACIA   ACIARegister
	Logger *log.Logger

	fdMu    sync.Mutex
	inPath  string
	outPath string
	in      *os.File
	out     *os.File
}

// New returns a Bridge with no device bound yet; call Reconfigure to open
// the in/out paths before Run.
func New(acia ACIARegister, logger *log.Logger) *Bridge {
	return &Bridge{ACIA: acia, Logger: logger}
}

// Reconfigure closes whatever descriptors are currently open and reopens
// inPath/outPath. inPath and outPath may be equal, in which case a single
// descriptor is opened read/write and shared. An empty path leaves that
// side unbound (Run then has nothing to poll; Drain then has nowhere to
// write).
func (b *Bridge) Reconfigure(inPath, outPath string) error {
	b.fdMu.Lock()
	defer b.fdMu.Unlock()

	b.closeLocked()
	b.inPath, b.outPath = inPath, outPath

	if inPath != "" && inPath == outPath {
		f, err := os.OpenFile(inPath, os.O_RDWR, 0)
		if err != nil {
			return fmt.Errorf("midi: reconfigure: open %s: %w", inPath, err)
		}
		b.in, b.out = f, f
		return nil
	}
	if inPath != "" {
		f, err := os.OpenFile(inPath, os.O_RDONLY, 0)
		if err != nil {
			return fmt.Errorf("midi: reconfigure: open in %s: %w", inPath, err)
		}
		b.in = f
	}
	if outPath != "" {
		f, err := os.OpenFile(outPath, os.O_WRONLY, 0)
		if err != nil {
			return fmt.Errorf("midi: reconfigure: open out %s: %w", outPath, err)
		}
		b.out = f
	}
	return nil
}

func (b *Bridge) closeLocked() {
	if b.in != nil && b.in != b.out {
		b.in.Close()
	}
	if b.out != nil {
		b.out.Close()
	}
	b.in, b.out = nil, nil
}

// Close releases any open descriptors.
func (b *Bridge) Close() error {
	b.fdMu.Lock()
	defer b.fdMu.Unlock()
	b.closeLocked()
	return nil
}

// Run polls the in-device until shutdown is closed, forwarding each byte
// read into the ACIA data register with the rx_full bit set.
func (b *Bridge) Run(shutdown <-chan struct{}) error {
	for {
		select {
		case <-shutdown:
			return nil
		default:
		}

		fd, ok := b.inFd()
		if !ok {
			// Nothing bound; idle at the poll budget so reconfiguration and
			// shutdown are still observed promptly.
			time.Sleep(PollBudget)
			continue
		}

		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, int(PollBudget/time.Millisecond))
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("midi: run: poll: %w", err)
		}
		if n == 0 {
			continue
		}

		var buf [1]byte
		if _, err := b.readIn(buf[:]); err != nil {
			if b.Logger != nil {
				b.Logger.Printf("midi: read: %v", err)
			}
			continue
		}
		b.ACIA.SetMIDIRegister(zestwin.MIDIRxFull | uint32(buf[0]))
	}
}

func (b *Bridge) inFd() (uintptr, bool) {
	b.fdMu.Lock()
	defer b.fdMu.Unlock()
	if b.in == nil {
		return 0, false
	}
	return b.in.Fd(), true
}

func (b *Bridge) readIn(p []byte) (int, error) {
	b.fdMu.Lock()
	f := b.in
	b.fdMu.Unlock()
	if f == nil {
		return 0, fmt.Errorf("midi: no in device bound")
	}
	return f.Read(p)
}

// Drain is called from the interrupt demultiplexer's MIDI handler on every
// MIDI interrupt. When the ACIA status bit reports tx_full it pulls the low
// 8 data bits and writes them to the out-device; otherwise it does nothing.
func (b *Bridge) Drain() error {
	status := b.ACIA.MIDIRegister()
	if status&zestwin.MIDITxFull == 0 {
		return nil
	}
	data := byte(status)

	b.fdMu.Lock()
	f := b.out
	b.fdMu.Unlock()
	if f == nil {
		return nil
	}
	if _, err := f.Write([]byte{data}); err != nil {
		return fmt.Errorf("midi: drain: write: %w", err)
	}
	return nil
}
