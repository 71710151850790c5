// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gemdos

import (
	"os"
	"strings"
)

// dtaMagic brackets the dispatcher-assigned search ID stuffed into the
// DTA's reserved area, so Fsnext can recover it without the guest being
// able to forge one by accident.
const dtaMagic = "zeST"

// searchContext is one live Fsfirst/Fsnext enumeration.
type searchContext struct {
	dir     string
	pattern string
	entries []os.DirEntry
	pos     int
}

// DTAEntry is what Fsfirst/Fsnext writes into the guest's 44-byte DTA
// (minus the bracketing magic tag, which the caller embeds around the
// dispatcher-assigned search ID).
type DTAEntry struct {
	Name   string // upper-cased 8.3
	Size   uint32
	Date   uint16
	Time   uint16
	Attrib byte
}

// Fsfirst opens dir and returns the dispatcher-assigned search ID (to be
// embedded, magic-tag bracketed, into the guest's DTA) plus the first
// matching entry. ok is false if no entry in dir matches pattern.
func (d *Dispatcher) Fsfirst(dir, pattern string) (searchID uint32, entry DTAEntry, ok bool, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, DTAEntry{}, false, err
	}
	sc := &searchContext{dir: dir, pattern: pattern, entries: entries}

	d.mu.Lock()
	d.nextSearchID++
	id := d.nextSearchID
	d.searches[id] = sc
	d.mu.Unlock()

	entry, ok = d.advance(sc)
	return id, entry, ok, nil
}

// Fsnext recovers the search context by searchID (as extracted from the
// magic-tag-bracketed DTA field) and returns the next match. ok is false,
// with a nil err, once the directory is exhausted; an unknown searchID
// gives os.ErrInvalid.
func (d *Dispatcher) Fsnext(searchID uint32) (entry DTAEntry, ok bool, err error) {
	d.mu.Lock()
	sc, found := d.searches[searchID]
	d.mu.Unlock()
	if !found {
		return DTAEntry{}, false, os.ErrInvalid
	}
	entry, ok = d.advance(sc)
	if !ok {
		d.mu.Lock()
		delete(d.searches, searchID)
		d.mu.Unlock()
	}
	return entry, ok, nil
}

func (d *Dispatcher) advance(sc *searchContext) (DTAEntry, bool) {
	for sc.pos < len(sc.entries) {
		e := sc.entries[sc.pos]
		sc.pos++
		if !matchWildcard(sc.pattern, e.Name()) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		date, dtime := DOSDateTime(fi.ModTime(), d.Timezone)
		attrib := byte(0)
		if fi.IsDir() {
			attrib = 0x10
		}
		return DTAEntry{
			Name:   strings.ToUpper(e.Name()),
			Size:   uint32(fi.Size()),
			Date:   date,
			Time:   dtime,
			Attrib: attrib,
		}, true
	}
	return DTAEntry{}, false
}
