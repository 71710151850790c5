// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package zest

import "fmt"

// Kind classifies a zest error per the taxonomy in the core design: every
// error the core can produce falls into exactly one of these buckets, which
// in turn decides how it's handled (logged and absorbed locally, versus the
// one kind - DeviceUnavailable - that is fatal at startup).
type Kind int

const (
	// DeviceUnavailable means mmap or the UIO device node could not be
	// acquired. Fatal, but only at startup.
	DeviceUnavailable Kind = iota
	// ImageIOError means a floppy or ACSI backing file is missing, truncated
	// or unwritable. The affected drive is treated as empty.
	ImageIOError
	// FormatError means an MSA/ST/MFM structural invariant was violated.
	// The image fails to load.
	FormatError
	// ProtocolViolation means unexpected ACSI bus framing, e.g. a bus-idle
	// byte (A1=1) arriving mid-command.
	ProtocolViolation
	// Timeout means a GEMDOS rendezvous between the bus and the dispatcher
	// exceeded its budget. The call is abandoned and the guest falls back to ROM.
	Timeout
	// GuestError wraps an errno translated to a GEMDOS error code.
	GuestError
)

func (k Kind) String() string {
	switch k {
	case DeviceUnavailable:
		return "device unavailable"
	case ImageIOError:
		return "image I/O error"
	case FormatError:
		return "format error"
	case ProtocolViolation:
		return "protocol violation"
	case Timeout:
		return "timeout"
	case GuestError:
		return "guest error"
	default:
		return "unknown"
	}
}

// Error is a zest core error tagged with its Kind so that callers can branch
// on errors.As without string matching.
type Error struct {
	Kind Kind
	Op   string // component + operation, e.g. "floppy: open"
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("zest: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("zest: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an *Error, wrapping an optional underlying cause.
func Errorf(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// GEMDOS errno mapping, per spec.md §7.
const (
	EFILNF = -33
	EPTHNF = -34
	EACCDN = -36
	EIHNDL = -37
	ENSAME = -48
	ENMFIL = -49
	EINTRN = -65
)
