// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package floppy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format identifies the on-disk encoding an Image was loaded from.
type Format int

// Recognised formats, selected by file extension.
const (
	FormatMFM Format = iota
	FormatST
	FormatMSA
)

func (f Format) String() string {
	switch f {
	case FormatMFM:
		return "mfm"
	case FormatST:
		return "st"
	case FormatMSA:
		return "msa"
	default:
		return "unknown"
	}
}

// Image is a fully decoded floppy image: a flat buffer of TrackSize-byte
// MFM tracks, one per (track, side), regardless of the on-disk format it
// was loaded from.
type Image struct {
	Format   Format
	ReadOnly bool
	NSides   int
	NTracks  int
	NSectors int

	skew       int
	interleave int

	buf []byte // NTracks*NSides*TrackSize bytes

	dirty   bool
	path    string
	backing *os.File
}

// detectFormat maps a file extension to a Format.
func detectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mfm":
		return FormatMFM, nil
	case ".st":
		return FormatST, nil
	case ".msa":
		return FormatMSA, nil
	default:
		return 0, fmt.Errorf("floppy: open %s: unrecognised extension", path)
	}
}

// Open loads a floppy image from path. skew and interleave are only
// consulted for ST/MSA images, which are synthesized into MFM on load.
func Open(path string, readonly bool, skew, interleave int) (*Image, error) {
	format, err := detectFormat(path)
	if err != nil {
		return nil, err
	}
	flag := os.O_RDONLY
	if !readonly {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, fmt.Errorf("floppy: open %s: %w", path, err)
	}
	raw, err := readAll(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("floppy: open %s: %w", path, err)
	}

	img := &Image{
		Format:     format,
		ReadOnly:   readonly,
		skew:       skew,
		interleave: interleave,
		path:       path,
		backing:    f,
	}

	switch format {
	case FormatMFM:
		err = img.loadMFM(raw)
	case FormatST:
		err = img.loadST(raw)
	case FormatMSA:
		err = img.loadMSA(raw)
	}
	if err != nil {
		f.Close()
		return nil, err
	}
	return img, nil
}

func readAll(f *os.File) ([]byte, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, fi.Size())
	if _, err := f.ReadAt(buf, 0); err != nil && len(buf) > 0 {
		return nil, err
	}
	return buf, nil
}

// TrackPos returns the TrackSize-byte window for (track, side). It panics
// if track/side are out of range, the same way indexing a Go slice does -
// callers are expected to have validated against NTracks/NSides already
// (the floppy handler never reports positions the image disagrees with).
func (img *Image) TrackPos(track, side int) []byte {
	idx := img.trackIndex(track, side)
	start := idx * TrackSize
	return img.buf[start : start+TrackSize]
}

func (img *Image) trackIndex(track, side int) int {
	return track*img.NSides + side
}

// TrackPosFlat addresses a track buffer directly by the flat index the FPGA
// reports in its floppy-position descriptor (cylinder*NSides + side,
// matching the layout TrackPos builds from separate track/side arguments).
func (img *Image) TrackPosFlat(idx int) []byte {
	start := idx * TrackSize
	return img.buf[start : start+TrackSize]
}

// MarkDirty latches the write-back-pending flag, consumed by Sync.
func (img *Image) MarkDirty() {
	img.dirty = true
}

// Sync flushes a dirty image back to its backing format, then clears the
// dirty flag. It is a no-op on a clean or read-only image.
func (img *Image) Sync() error {
	if !img.dirty || img.ReadOnly {
		return nil
	}
	var err error
	switch img.Format {
	case FormatMFM:
		err = img.saveMFM()
	case FormatST:
		err = img.saveST()
	case FormatMSA:
		err = img.saveMSA()
	}
	if err != nil {
		return err
	}
	img.dirty = false
	return nil
}

// Close flushes any pending write-back and releases the backing file.
func (img *Image) Close() error {
	err := img.Sync()
	if cerr := img.backing.Close(); err == nil {
		err = cerr
	}
	return err
}
