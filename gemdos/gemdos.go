// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gemdos

import (
	"log"
	"os"
	"sync"
)

// Operation codes carried in the stub's ACSI command envelope.
const (
	OpGEMDOS = 1
	OpAction = 2
	OpResult = 3
)

// Action codes the dispatcher posts back to the stub while it's in action
// mode.
const (
	ActionFallback = 0
	ActionReturn   = 1
	ActionRDMEM    = 2
	ActionWRMEM    = 3
	ActionWRMEM0   = 4
	ActionGEMDOS   = 5
	ActionMODSTACK = 6
)

// HandleBase is added to a POSIX file descriptor to produce the handle
// value returned to the guest; any handle below this belongs to TOS.
const HandleBase = 0x7A00

// GEMDOS error codes, returned as negative ActionReturn values per the
// standard TOS error table.
const (
	EACCDN = -36 // access denied
	EFILNF = -33 // file not found
	EPTHNF = -34 // path not found
	EIHNDL = -37 // invalid handle
	ENSAME = -48 // rename across different media/targets
	ENMFIL = -49 // no more files
)

// DMABufSize is the size, in 512-byte units, of the RDMEM/WRMEM staging
// buffer the stub exposes - the same constant the Pexec chunking formula in
// spec §4.5 is defined against.
const DMABufSize = 1

// Action is one step of the dispatcher's reply to the stub, expressed
// independently of the ACSI wire encoding in spec §6.3.
type Action struct {
	Code  int
	Value int32  // ActionReturn's result value
	Addr  uint32 // guest address for RDMEM/WRMEM/MODSTACK
	Data  []byte // payload for WRMEM/WRMEM0
	Len   int    // requested length for RDMEM
}

// GuestMemory is the narrow interface the dispatcher needs against guest
// RAM. The concrete implementation relays these calls as RDMEM/WRMEM
// actions over the ACSI bus; none of that wire detail belongs here.
type GuestMemory interface {
	ReadBytes(addr uint32, n int) ([]byte, error)
	ReadU32(addr uint32) (uint32, error)
	ReadU16(addr uint32) (uint16, error)
	WriteBytes(addr uint32, data []byte) error
}

// fileHandle is the dispatcher's view of one open file: the *os.File plus
// the POSIX fd it was translated from.
type fileHandle struct {
	f  *os.File
	fd int
}

// Dispatcher is the GEMDOS drive RPC dispatcher (spec §4.5): it answers
// GEMDOS opcodes by reading/writing the host filesystem rooted at Root and
// translating POSIX handles/paths/times to their DOS-visible forms.
type Dispatcher struct {
	Root     string // host directory exposed as the GEMDOS drive
	Drive    byte   // drive letter this dispatcher answers for, e.g. 'C'
	Timezone int    // hours, -12..12, applied to DOS time conversion
	Logger   *log.Logger

	mu           sync.Mutex
	currentDrive byte
	currentPath  string // relative to Root, "" = root
	handles      map[int]*fileHandle
	searches     map[uint32]*searchContext
	nextSearchID uint32
}

// NewDispatcher returns a Dispatcher rooted at root, answering for drive.
func NewDispatcher(root string, drive byte) *Dispatcher {
	return &Dispatcher{
		Root:         root,
		Drive:        drive,
		currentDrive: drive,
		handles:      make(map[int]*fileHandle),
		searches:     make(map[uint32]*searchContext),
	}
}
