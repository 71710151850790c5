// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package acsi

import (
	"fmt"
	"io"
	"os"
)

// backing is the narrow file-like surface Disk needs: os.File satisfies it
// directly, and a bootROMDisk (an in-memory byte buffer served read-only
// for the GEMDOS target's boot sectors) satisfies it without ever touching
// the filesystem.
type backing interface {
	io.ReaderAt
	io.WriterAt
	io.Closer
}

// Disk is one ACSI/SCSI target's backing store: a flat file of 512-byte
// sectors.
type Disk struct {
	f        backing
	Sectors  int64
	ReadOnly bool
}

// OpenDisk opens path as a flat sector file. Sector count is derived from
// the file size.
func OpenDisk(path string, readOnly bool) (*Disk, error) {
	flag := os.O_RDONLY
	if !readOnly {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &Disk{f: f, Sectors: fi.Size() / 512, ReadOnly: readOnly}, nil
}

// Close releases the backing file.
func (d *Disk) Close() error { return d.f.Close() }

func (d *Disk) readSector(lba int64, buf []byte) error {
	_, err := d.f.ReadAt(buf, lba*512)
	return err
}

func (d *Disk) writeSector(lba int64, buf []byte) error {
	_, err := d.f.WriteAt(buf, lba*512)
	return err
}

// bootROMDisk serves a fixed byte slice read-only, used to back the GEMDOS
// target's boot sectors (spec §4.5 "Guest-side boot") without a backing
// file on the host filesystem.
type bootROMDisk struct {
	data []byte
}

func (b *bootROMDisk) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b.data)) {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}
	n := copy(p, b.data[off:])
	for i := n; i < len(p); i++ {
		p[i] = 0
	}
	return len(p), nil
}

func (b *bootROMDisk) WriteAt(p []byte, off int64) (int, error) {
	return 0, fmt.Errorf("acsi: boot rom disk is read-only")
}

func (b *bootROMDisk) Close() error { return nil }

// NewBootDisk wraps a boot blob (spec §8 scenario "Boot from virtual
// drive") as a read-only Disk of the given sector count. Sectors beyond the
// blob's length read as zero.
func NewBootDisk(blob []byte, sectors int64) *Disk {
	return &Disk{f: &bootROMDisk{data: blob}, Sectors: sectors, ReadOnly: true}
}
