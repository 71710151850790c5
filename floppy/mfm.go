// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package floppy

// loadMFM accepts a raw MFM image byte-for-byte: it is already the track
// buffer. Geometry is discovered either from the BPB embedded in sector 1
// of track 0 side 0, or guessed from the file size when no BPB can be
// trusted.
func (img *Image) loadMFM(raw []byte) error {
	sides, tracks, sectors := 1, 0, 0
	if off := findSector(firstWindow(raw), 0, 0, 1); off >= 0 && off+0x1C <= len(raw) {
		if b, ok := parseBPB(raw[off:]); ok {
			sides, tracks, sectors = b.sides, b.tracks(), b.sectorsPerTrk
		}
	}
	if tracks == 0 {
		sides, tracks = guessGeometryFromSize(len(raw))
	}

	img.NSides = sides
	img.NTracks = tracks
	img.NSectors = sectors

	want := tracks * sides * TrackSize
	buf := make([]byte, want)
	copy(buf, raw)
	img.buf = buf
	return nil
}

// firstWindow returns the leading TrackSize-byte slice of raw (or all of
// raw if shorter), the only place track 0 side 0 can live.
func firstWindow(raw []byte) []byte {
	if len(raw) > TrackSize {
		return raw[:TrackSize]
	}
	return raw
}

// saveMFM writes the in-memory buffer back verbatim.
func (img *Image) saveMFM() error {
	if _, err := img.backing.WriteAt(img.buf, 0); err != nil {
		return err
	}
	return img.backing.Truncate(int64(len(img.buf)))
}
