// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package midi

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/zest-project/zest/host/zestwin"
)

type fakeACIA struct {
	mu  sync.Mutex
	reg uint32
}

func (f *fakeACIA) MIDIRegister() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reg
}

func (f *fakeACIA) SetMIDIRegister(v uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reg = v
}

// TestRunForwardsInboundByte exercises the "MIDI echo" scenario's first
// half (spec §8): a byte written by an external producer to the in-device
// is read by the poll loop and lands in the ACIA register with rx_full
// set.
func TestRunForwardsInboundByte(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	acia := &fakeACIA{}
	b := New(acia, nil)
	t.Cleanup(func() { b.Close() })
	b.fdMu.Lock()
	b.in = r
	b.fdMu.Unlock()

	shutdown := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- b.Run(shutdown) }()

	if _, err := w.Write([]byte{0x42}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		if acia.MIDIRegister() == zestwin.MIDIRxFull|0x42 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for byte to reach ACIA register, got %#x", acia.MIDIRegister())
		case <-time.After(time.Millisecond):
		}
	}

	close(shutdown)
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

// TestDrainWritesOutboundByte exercises the "MIDI echo" scenario's second
// half: the IRQ-path Drain call, invoked when tx_full is set, writes the
// low 8 bits out to the out-device.
func TestDrainWritesOutboundByte(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	acia := &fakeACIA{}
	b := New(acia, nil)
	t.Cleanup(func() { b.Close() })
	b.fdMu.Lock()
	b.out = w
	b.fdMu.Unlock()

	acia.SetMIDIRegister(zestwin.MIDITxFull | 0x55)
	if err := b.Drain(); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	buf := make([]byte, 1)
	r.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := r.Read(buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if buf[0] != 0x55 {
		t.Fatalf("got byte %#x, want 0x55", buf[0])
	}
}

// TestDrainNoopWithoutTxFull checks Drain does nothing when tx_full isn't
// set - the demultiplexer's MIDI handler calls it unconditionally on every
// MIDI event, so a no-op path must be safe and side-effect free.
func TestDrainNoopWithoutTxFull(t *testing.T) {
	acia := &fakeACIA{}
	b := New(acia, nil)
	acia.SetMIDIRegister(0x12)
	if err := b.Drain(); err != nil {
		t.Fatalf("Drain: %v", err)
	}
}

// TestReconfigureSharedDevice checks that equal in/out paths share one
// descriptor instead of opening the device twice.
func TestReconfigureSharedDevice(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/midi0"
	// Character devices can't be created in a test sandbox; use a regular
	// file opened O_RDWR instead, which exercises the same code path
	// (Reconfigure only cares about the descriptor, not the device class).
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	b := New(&fakeACIA{}, nil)
	if err := b.Reconfigure(path, path); err != nil {
		t.Fatalf("Reconfigure: %v", err)
	}
	defer b.Close()
	if b.in != b.out {
		t.Fatalf("expected in and out to share one descriptor")
	}
}
