// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gemdos

import (
	"os"
)

// GEMDOS opcodes recognised per spec §4.5.
const (
	OpDsetdrv  = 0x0E
	OpDgetdrv  = 0x19
	OpFsetdta  = 0x1A
	OpDfree    = 0x36
	OpDcreate  = 0x39
	OpDdelete  = 0x3A
	OpDsetpath = 0x3B
	OpFcreate  = 0x3C
	OpFopen    = 0x3D
	OpFclose   = 0x3E
	OpFread    = 0x3F
	OpFwrite   = 0x40
	OpFdelete  = 0x41
	OpFseek    = 0x42
	OpFattrib  = 0x43
	OpDgetpath = 0x47
	OpPexec    = 0x4B
	OpFsfirst  = 0x4E
	OpFsnext   = 0x4F
	OpFrename  = 0x56
	OpFdatime  = 0x57
	OpDriverInit = 0xFFFF
)

func fallback() []Action { return []Action{{Code: ActionFallback}} }
func ret(v int32) []Action { return []Action{{Code: ActionReturn, Value: v}} }

// Call is a decoded GEMDOS trap: the opcode plus whatever arguments the
// stub's stack snapshot (relayed through mem) carries for it. Handlers
// read additional arguments from mem themselves via the addresses the
// guest stack snapshot names - the exact layout of that snapshot is a stub
// wire detail outside this package's scope, so Dispatch takes pre-decoded
// arguments rather than a raw stack blob.
type Call struct {
	Opcode uint16
	Args   []uint32
	DTA    uint32 // current DTA address, for Fsfirst/Fsnext
}

// Dispatch decodes one GEMDOS trap and returns the ordered Action sequence
// the host replies with. Any opcode not in the supported subset (or any
// opcode whose guest path resolves with code -2, "not on this drive")
// posts FALLBACK, per spec.
func (d *Dispatcher) Dispatch(c Call, mem GuestMemory) []Action {
	switch c.Opcode {
	case OpDsetdrv:
		d.mu.Lock()
		d.currentDrive = 'A' + byte(c.Args[0])
		d.mu.Unlock()
		return ret(1 << (c.Args[0]))
	case OpDgetdrv:
		d.mu.Lock()
		drv := d.currentDrive - 'A'
		d.mu.Unlock()
		return ret(int32(drv))
	case OpFsetdta:
		return ret(0)
	case OpDfree:
		return d.dfree()
	case OpDcreate:
		return d.dcreate(c, mem)
	case OpDdelete:
		return d.ddelete(c, mem)
	case OpDsetpath:
		return d.dsetpath(c, mem)
	case OpFcreate:
		return d.fcreate(c, mem)
	case OpFopen:
		return d.fopen(c, mem)
	case OpFclose:
		return d.fclose(c)
	case OpFread:
		return d.fread(c, mem)
	case OpFwrite:
		return d.fwrite(c, mem)
	case OpFdelete:
		return d.fdelete(c, mem)
	case OpFseek:
		return d.fseek(c)
	case OpFattrib:
		return d.fattrib(c, mem)
	case OpDgetpath:
		return d.dgetpath(c)
	case OpFsfirst:
		return d.fsfirst(c, mem)
	case OpFsnext:
		return d.fsnext(c)
	case OpFrename:
		return d.frename(c, mem)
	case OpFdatime:
		return d.fdatime(c, mem)
	case OpDriverInit:
		return d.driverInit()
	default:
		return fallback()
	}
}

func readPathArg(mem GuestMemory, addr uint32) (string, error) {
	raw, err := mem.ReadBytes(addr, 256)
	if err != nil {
		return "", err
	}
	n := 0
	for n < len(raw) && raw[n] != 0 {
		n++
	}
	return string(raw[:n]), nil
}

// resolveOrFallback resolves a guest path argument, returning (hostPath,
// code, actions). actions is non-nil only when the reply is already
// decided: a -2 "not our drive" result, which always means FALLBACK, or a
// path argument that could not be read from guest memory, which returns
// EIHNDL.
func (d *Dispatcher) resolveOrFallback(mem GuestMemory, addr uint32) (string, int, []Action) {
	guestPath, err := readPathArg(mem, addr)
	if err != nil {
		return "", -1, ret(EIHNDL)
	}
	host, code := d.Resolve(guestPath)
	if code == -2 {
		return "", code, fallback()
	}
	return host, code, nil
}

func (d *Dispatcher) dfree() []Action {
	var stat struct{ free, total, secsize, clustersize uint32 }
	stat.secsize = 512
	stat.clustersize = 2
	stat.total = 1 << 20
	stat.free = stat.total / 2
	// Packed big-endian per the stub wire convention: free, total,
	// secsize, clustersize.
	buf := make([]byte, 16)
	putU32(buf[0:], stat.free)
	putU32(buf[4:], stat.total)
	putU32(buf[8:], stat.secsize)
	putU32(buf[12:], stat.clustersize)
	return []Action{{Code: ActionWRMEM0, Data: buf}}
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func (d *Dispatcher) dcreate(c Call, mem GuestMemory) []Action {
	host, code, fb := d.resolveOrFallback(mem, c.Args[0])
	if fb != nil {
		return fb
	}
	if code == 0 {
		return ret(EACCDN)
	}
	if code != 2 {
		return ret(EPTHNF)
	}
	if err := os.Mkdir(host, 0o755); err != nil {
		return ret(EACCDN)
	}
	return ret(0)
}

func (d *Dispatcher) ddelete(c Call, mem GuestMemory) []Action {
	host, code, fb := d.resolveOrFallback(mem, c.Args[0])
	if fb != nil {
		return fb
	}
	if code != 0 {
		return ret(EPTHNF)
	}
	if err := os.Remove(host); err != nil {
		return ret(EACCDN)
	}
	return ret(0)
}

func (d *Dispatcher) dsetpath(c Call, mem GuestMemory) []Action {
	_, code, fb := d.resolveOrFallback(mem, c.Args[0])
	if fb != nil {
		return fb
	}
	if code != 0 {
		return ret(EPTHNF)
	}
	return ret(0)
}

func (d *Dispatcher) dgetpath(c Call) []Action {
	d.mu.Lock()
	p := d.currentPath
	d.mu.Unlock()
	return []Action{{Code: ActionWRMEM0, Data: []byte(p + "\x00")}}
}

func (d *Dispatcher) fcreate(c Call, mem GuestMemory) []Action {
	host, code, fb := d.resolveOrFallback(mem, c.Args[0])
	if fb != nil {
		return fb
	}
	if code == -1 {
		return ret(EPTHNF)
	}
	h, err := d.openHandle(host, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return ret(EACCDN)
	}
	return ret(int32(h))
}

func (d *Dispatcher) fopen(c Call, mem GuestMemory) []Action {
	host, code, fb := d.resolveOrFallback(mem, c.Args[0])
	if fb != nil {
		return fb
	}
	if code != 1 {
		return ret(EFILNF)
	}
	mode := os.O_RDONLY
	if len(c.Args) > 1 && c.Args[1] != 0 {
		mode = os.O_RDWR
	}
	h, err := d.openHandle(host, mode, 0)
	if err != nil {
		return ret(EACCDN)
	}
	return ret(int32(h))
}

func (d *Dispatcher) fclose(c Call) []Action {
	h := int(c.Args[0])
	if h < HandleBase {
		return fallback()
	}
	if err := d.closeHandle(h); err != nil {
		return ret(EIHNDL)
	}
	return ret(0)
}

func (d *Dispatcher) fread(c Call, mem GuestMemory) []Action {
	h := int(c.Args[0])
	if h < HandleBase {
		return fallback()
	}
	n := int(c.Args[1])
	data, err := d.readHandle(h, n)
	if err != nil {
		return ret(EIHNDL)
	}
	return []Action{{Code: ActionWRMEM, Addr: c.Args[2], Data: data}, {Code: ActionReturn, Value: int32(len(data))}}
}

func (d *Dispatcher) fwrite(c Call, mem GuestMemory) []Action {
	h := int(c.Args[0])
	if h < HandleBase {
		return fallback()
	}
	n := int(c.Args[1])
	data, err := mem.ReadBytes(c.Args[2], n)
	if err != nil {
		return ret(EIHNDL)
	}
	written, err := d.writeHandle(h, data)
	if err != nil {
		return ret(EACCDN)
	}
	return ret(int32(written))
}

func (d *Dispatcher) fseek(c Call) []Action {
	h := int(c.Args[0])
	if h < HandleBase {
		return fallback()
	}
	offset := int64(int32(c.Args[1]))
	whence := int(c.Args[2])
	pos, err := d.seekHandle(h, offset, whence)
	if err != nil {
		return ret(EIHNDL)
	}
	return ret(int32(pos))
}

func (d *Dispatcher) fdelete(c Call, mem GuestMemory) []Action {
	host, code, fb := d.resolveOrFallback(mem, c.Args[0])
	if fb != nil {
		return fb
	}
	if code != 1 {
		return ret(EFILNF)
	}
	if err := os.Remove(host); err != nil {
		return ret(EACCDN)
	}
	return ret(0)
}

func (d *Dispatcher) fattrib(c Call, mem GuestMemory) []Action {
	host, code, fb := d.resolveOrFallback(mem, c.Args[0])
	if fb != nil {
		return fb
	}
	if code != 0 && code != 1 {
		return ret(EFILNF)
	}
	fi, err := os.Stat(host)
	if err != nil {
		return ret(EFILNF)
	}
	attrib := int32(0)
	if fi.IsDir() {
		attrib = 0x10
	}
	return ret(attrib)
}

func (d *Dispatcher) frename(c Call, mem GuestMemory) []Action {
	oldHost, oldCode, fb := d.resolveOrFallback(mem, c.Args[0])
	if fb != nil {
		return fb
	}
	if oldCode != 1 && oldCode != 0 {
		return ret(EFILNF)
	}
	newHost, newCode, fb := d.resolveOrFallback(mem, c.Args[1])
	if fb != nil {
		return fb
	}
	if newCode == 1 || newCode == 0 {
		return ret(ENSAME)
	}
	if err := os.Rename(oldHost, newHost); err != nil {
		return ret(EACCDN)
	}
	return ret(0)
}

func (d *Dispatcher) fdatime(c Call, mem GuestMemory) []Action {
	h := int(c.Args[0])
	if h < HandleBase {
		return fallback()
	}
	fh, ok := d.handleOf(h)
	if !ok {
		return ret(EIHNDL)
	}
	write := len(c.Args) > 2 && c.Args[2] != 0
	if write {
		date := uint16(c.Args[3])
		dtime := uint16(c.Args[4])
		t := FromDOSDateTime(date, dtime, d.Timezone)
		if err := os.Chtimes(fh.f.Name(), t, t); err != nil {
			return ret(EACCDN)
		}
		return ret(0)
	}
	fi, err := fh.f.Stat()
	if err != nil {
		return ret(EIHNDL)
	}
	date, dtime := DOSDateTime(fi.ModTime(), d.Timezone)
	return []Action{{Code: ActionWRMEM0, Data: packU16(date, dtime)}}
}

func packU16(a, b uint16) []byte {
	return []byte{byte(a >> 8), byte(a), byte(b >> 8), byte(b)}
}

func (d *Dispatcher) fsfirst(c Call, mem GuestMemory) []Action {
	guestPattern, err := readPathArg(mem, c.Args[0])
	if err != nil {
		return ret(EFILNF)
	}
	dirPath, pattern := splitPattern(guestPattern)
	host, code := d.Resolve(dirPath)
	if code == -2 {
		return fallback()
	}
	if code != 0 {
		host = d.Root
	}
	id, entry, ok, err := d.Fsfirst(host, pattern)
	if err != nil || !ok {
		return ret(ENMFIL)
	}
	return append(dtaActions(c.DTA, id, entry), Action{Code: ActionReturn, Value: 0})
}

func (d *Dispatcher) fsnext(c Call) []Action {
	id := c.Args[0]
	entry, ok, err := d.Fsnext(id)
	if err != nil || !ok {
		return ret(ENMFIL)
	}
	return append(dtaActions(c.DTA, id, entry), Action{Code: ActionReturn, Value: 0})
}

// dtaActions builds the WRMEM write that populates the guest's DTA: the
// search ID bracketed by two copies of the magic tag in the reserved area,
// followed by the matched entry's attrib/time/date/size/name fields.
func dtaActions(dtaAddr uint32, searchID uint32, entry DTAEntry) []Action {
	buf := make([]byte, 44)
	copy(buf[0:4], dtaMagic)
	putU32(buf[4:8], searchID)
	copy(buf[8:12], dtaMagic)
	buf[21] = entry.Attrib
	buf[22] = byte(entry.Time >> 8)
	buf[23] = byte(entry.Time)
	buf[24] = byte(entry.Date >> 8)
	buf[25] = byte(entry.Date)
	putU32(buf[26:30], entry.Size)
	name := entry.Name
	if len(name) > 13 {
		name = name[:13]
	}
	copy(buf[30:], name)
	return []Action{{Code: ActionWRMEM, Addr: dtaAddr, Data: buf}}
}

// splitPattern peels the filename-matching tail off a guest Fsfirst path,
// returning the directory portion (resolved through Resolve) and the
// pattern matched against each entry in it.
func splitPattern(guestPath string) (dir, pattern string) {
	i := len(guestPath) - 1
	for i >= 0 && guestPath[i] != '\\' && guestPath[i] != '/' && guestPath[i] != ':' {
		i--
	}
	return guestPath[:i+1], guestPath[i+1:]
}

func (d *Dispatcher) driverInit() []Action {
	if d.Logger != nil {
		d.Logger.Printf("GEMDOS drive installed as drive %c:", d.Drive)
	}
	return []Action{{Code: ActionReturn, Value: int32(d.Drive - 'A')}}
}
