// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package floppy

import "fmt"

// loadST synthesizes MFM tracks from a concatenated-sector .ST image: for
// each track, side 0's sectors followed by side 1's.
func (img *Image) loadST(raw []byte) error {
	tracks, sectors, sides, ok := 0, 0, 0, false
	if len(raw) >= 512 {
		if b, valid := parseBPB(raw); valid {
			tracks, sectors, sides, ok = b.tracks(), b.sectorsPerTrk, b.sides, true
		}
	}
	if !ok {
		var got bool
		tracks, sectors, sides, got = guessSTGeometry(len(raw))
		if !got {
			return fmt.Errorf("floppy: load ST: could not determine geometry for %d-byte image", len(raw))
		}
	}

	img.NSides = sides
	img.NTracks = tracks
	img.NSectors = sectors
	img.buf = make([]byte, tracks*sides*TrackSize)

	secShift := img.skew
	pos := 0
	for t := 0; t < tracks; t++ {
		for s := 0; s < sides; s++ {
			if pos+sectors*512 > len(raw) {
				return fmt.Errorf("floppy: load ST: truncated at track %d side %d", t, s)
			}
			trackRaw := raw[pos : pos+sectors*512]
			pos += sectors * 512
			order := physicalOrder(sectors, img.interleave, secShift)
			trackBuf, err := synthesizeTrack(t, s, sectors, order, func(logical int) []byte {
				return trackRaw[logical*512 : logical*512+512]
			})
			if err != nil {
				return fmt.Errorf("floppy: load ST: track %d side %d: %w", t, s, err)
			}
			copy(img.TrackPos(t, s), trackBuf)
			secShift = nextSecShift(secShift, sectors, img.skew)
		}
	}
	return nil
}

// saveST walks each (track, side, sector) in BPB order, locating each
// sector's payload via findSector and emitting it contiguously.
func (img *Image) saveST() error {
	out := make([]byte, 0, img.NTracks*img.NSides*img.NSectors*512)
	for t := 0; t < img.NTracks; t++ {
		for s := 0; s < img.NSides; s++ {
			trackBuf := img.TrackPos(t, s)
			for sec := 1; sec <= img.NSectors; sec++ {
				off := findSector(trackBuf, t, s, sec)
				if off < 0 {
					return fmt.Errorf("floppy: save ST: sector %d not found on track %d side %d", sec, t, s)
				}
				out = append(out, trackBuf[off:off+512]...)
			}
		}
	}
	if _, err := img.backing.WriteAt(out, 0); err != nil {
		return err
	}
	return img.backing.Truncate(int64(len(out)))
}
