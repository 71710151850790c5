// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gemdos

import (
	"io"
	"os"
)

// openHandle opens path and registers it, returning the DOS-visible handle
// (Testable Property 7: every returned handle is >= HandleBase).
func (d *Dispatcher) openHandle(path string, flag int, perm os.FileMode) (int, error) {
	f, err := os.OpenFile(path, flag, perm)
	if err != nil {
		return 0, err
	}
	fd := int(f.Fd())
	d.mu.Lock()
	d.handles[fd] = &fileHandle{f: f, fd: fd}
	d.mu.Unlock()
	return HandleBase + fd, nil
}

// handleOf resolves a DOS handle to its fileHandle, reporting ok=false for
// anything below HandleBase - those belong to TOS and the dispatcher must
// reply with a no-action-required ActionFallback, never touch its own
// table.
func (d *Dispatcher) handleOf(h int) (*fileHandle, bool) {
	if h < HandleBase {
		return nil, false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	fh, ok := d.handles[h-HandleBase]
	return fh, ok
}

func (d *Dispatcher) closeHandle(h int) error {
	fh, ok := d.handleOf(h)
	if !ok {
		return os.ErrInvalid
	}
	d.mu.Lock()
	delete(d.handles, fh.fd)
	d.mu.Unlock()
	return fh.f.Close()
}

func (d *Dispatcher) readHandle(h int, n int) ([]byte, error) {
	fh, ok := d.handleOf(h)
	if !ok {
		return nil, os.ErrInvalid
	}
	buf := make([]byte, n)
	nr, err := fh.f.Read(buf)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf[:nr], nil
}

func (d *Dispatcher) writeHandle(h int, data []byte) (int, error) {
	fh, ok := d.handleOf(h)
	if !ok {
		return 0, os.ErrInvalid
	}
	return fh.f.Write(data)
}

func (d *Dispatcher) seekHandle(h int, offset int64, whence int) (int64, error) {
	fh, ok := d.handleOf(h)
	if !ok {
		return 0, os.ErrInvalid
	}
	return fh.f.Seek(offset, whence)
}
