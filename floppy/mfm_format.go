// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package floppy

import (
	"encoding/binary"
	"fmt"
)

// TrackSize is the fixed size, in bytes, of one synthesized MFM track
// (one side of one cylinder), regardless of sector count.
const TrackSize = 6250

// MaxTracks is the largest cylinder count an image may declare.
const MaxTracks = 86

const (
	syncByte  = 0xA1
	gapByte   = 0x4E
	idAM      = 0xFE
	dataAM    = 0xFB
	sizeCode2 = 0x02 // 512-byte sectors only
)

// gapLayout is the {gap1, gap2, gap4, gap5} quadruple chosen by sector
// count, per spec §4.3. The sum gap1 + n*(gap2+gap4+562) + gap5 always
// equals TrackSize for the three supported sector counts.
type gapLayout struct{ gap1, gap2, gap4, gap5 int }

var gapLayouts = map[int]gapLayout{
	11: {gap1: 10, gap2: 3, gap4: 1, gap5: 14},
	10: {gap1: 60, gap2: 12, gap4: 40, gap5: 50},
	9:  {gap1: 60, gap2: 12, gap4: 40, gap5: 664},
}

// fixed interior gap bytes between the ID-AM's CRC and the data field's
// sync, constant across all supported sector counts.
const (
	idamToDamGap4E = 22
	idamToDamGap00 = 12
)

// sectorSpan is the total byte length a single sector (gap2 through gap4,
// inclusive) occupies on the track, for a given gapLayout.
func (g gapLayout) sectorSpan() int {
	return g.gap2 + 3 + 1 + 4 + 2 + idamToDamGap4E + idamToDamGap00 + 3 + 1 + 512 + 2 + g.gap4
}

// synthesizeTrack writes one complete MFM track for nsectors logical
// sectors, in physical order physOrder (physOrder[slot] = logical sector
// index, 0-based), reading each logical sector's 512-byte payload from
// payload(logical).
func synthesizeTrack(track, side, nsectors int, physOrder []int, payload func(logical int) []byte) ([]byte, error) {
	g, ok := gapLayouts[nsectors]
	if !ok {
		return nil, fmt.Errorf("floppy: synthesize track: unsupported sector count %d", nsectors)
	}
	buf := make([]byte, 0, TrackSize)
	buf = append(buf, repeat(gapByte, g.gap1)...)
	for slot := 0; slot < nsectors; slot++ {
		logical := physOrder[slot]
		sectorNo := logical + 1
		buf = append(buf, repeat(0x00, g.gap2)...)
		buf = append(buf, syncByte, syncByte, syncByte)
		idam := []byte{idAM, byte(track), byte(side), byte(sectorNo), sizeCode2}
		buf = append(buf, idam...)
		idamCRC := crc16(idam)
		buf = append(buf, byte(idamCRC>>8), byte(idamCRC))

		buf = append(buf, repeat(gapByte, idamToDamGap4E)...)
		buf = append(buf, repeat(0x00, idamToDamGap00)...)
		buf = append(buf, syncByte, syncByte, syncByte)

		data := payload(logical)
		if len(data) != 512 {
			return nil, fmt.Errorf("floppy: synthesize track: sector %d payload is %d bytes, want 512", sectorNo, len(data))
		}
		dam := make([]byte, 0, 513)
		dam = append(dam, dataAM)
		dam = append(dam, data...)
		damCRC := crc16(dam)
		buf = append(buf, dam...)
		buf = append(buf, byte(damCRC>>8), byte(damCRC))

		buf = append(buf, repeat(gapByte, g.gap4)...)
	}
	buf = append(buf, repeat(gapByte, g.gap5)...)
	if len(buf) != TrackSize {
		return nil, fmt.Errorf("floppy: synthesize track: produced %d bytes, want %d", len(buf), TrackSize)
	}
	return buf, nil
}

func repeat(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

// findSector scans a single 6250-byte track for the ID-AM/DAM pair of
// sector k (1-based) on the given track/side, returning the offset of its
// 512-byte payload. It returns -1 if not found.
func findSector(trackBuf []byte, track, side, sector int) int {
	head := []byte{0, 0, 0, syncByte, syncByte, syncByte}
	for i := 0; i+6+5 <= len(trackBuf); i++ {
		if !matches(trackBuf[i:], head) {
			continue
		}
		idamStart := i + 6
		if trackBuf[idamStart] != idAM {
			continue
		}
		if int(trackBuf[idamStart+1]) != track || int(trackBuf[idamStart+2]) != side || int(trackBuf[idamStart+3]) != sector {
			continue
		}
		damSyncOffset := idamStart + 5 + 2 + idamToDamGap4E + idamToDamGap00
		if damSyncOffset+4 > len(trackBuf) {
			continue
		}
		damSync := trackBuf[damSyncOffset : damSyncOffset+4]
		if damSync[0] != syncByte || damSync[1] != syncByte || damSync[2] != syncByte || damSync[3] != dataAM {
			continue
		}
		payloadStart := damSyncOffset + 4
		if payloadStart+512 > len(trackBuf) {
			continue
		}
		return payloadStart
	}
	return -1
}

func matches(buf, pattern []byte) bool {
	if len(buf) < len(pattern) {
		return false
	}
	for i, b := range pattern {
		if buf[i] != b {
			return false
		}
	}
	return true
}

// bpb describes the subset of the Atari ST / FAT12-style BIOS Parameter
// Block this core reads to discover image geometry when it isn't given
// explicitly. Offsets match the standard boot-sector layout.
type bpb struct {
	bytesPerSector int
	totalSectors   int
	sectorsPerTrk  int
	sides          int
}

func parseBPB(sector []byte) (bpb, bool) {
	if len(sector) < 0x1C {
		return bpb{}, false
	}
	b := bpb{
		bytesPerSector: int(binary.LittleEndian.Uint16(sector[0x0B:])),
		totalSectors:   int(binary.LittleEndian.Uint16(sector[0x13:])),
		sectorsPerTrk:  int(binary.LittleEndian.Uint16(sector[0x18:])),
		sides:          int(binary.LittleEndian.Uint16(sector[0x1A:])),
	}
	if b.bytesPerSector != 512 {
		return bpb{}, false
	}
	if b.sectorsPerTrk < 9 || b.sectorsPerTrk > 11 {
		return bpb{}, false
	}
	if b.sides != 1 && b.sides != 2 {
		return bpb{}, false
	}
	if b.totalSectors == 0 || b.totalSectors%(b.sectorsPerTrk*b.sides) != 0 {
		return bpb{}, false
	}
	return b, true
}

func (b bpb) tracks() int {
	return b.totalSectors / (b.sectorsPerTrk * b.sides)
}

// guessGeometryFromSize applies the spec's file-size heuristic when no BPB
// can be trusted: 2 sides if size > 6250*100, else 1; tracks = size /
// (6250*sides).
func guessGeometryFromSize(size int) (sides, tracks int) {
	sides = 1
	if size > TrackSize*100 {
		sides = 2
	}
	tracks = size / (TrackSize * sides)
	return sides, tracks
}

// guessSTGeometry implements the ST fallback pass: try track counts 1..86,
// sector counts 9..11, side counts 1..2, in that nesting order, and return
// the first combination whose product exactly divides the file size.
func guessSTGeometry(size int) (tracks, sectors, sides int, ok bool) {
	for t := 1; t <= MaxTracks; t++ {
		for s := 9; s <= 11; s++ {
			for sd := 1; sd <= 2; sd++ {
				if t*s*sd*512 == size {
					return t, s, sd, true
				}
			}
		}
	}
	return 0, 0, 0, false
}
