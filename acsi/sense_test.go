// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package acsi

import "testing"

func TestSenseParts(t *testing.T) {
	asc, ascq, key := senseParts(SenseInvAddr)
	if asc != 0x21 || ascq != 0x00 || key != 0x0D {
		t.Fatalf("senseParts(INVADDR) = (%#x,%#x,%#x), want (0x21,0x00,0x0D)", asc, ascq, key)
	}
}

func TestExtendedSenseReportsLBA(t *testing.T) {
	buf := extendedSense(SenseInvAddr, true, 42)
	if len(buf) != 18 {
		t.Fatalf("len = %d, want 18", len(buf))
	}
	if buf[0]&0x80 == 0 {
		t.Fatalf("valid bit not set when reportLBA=true")
	}
	gotLBA := uint32(buf[3])<<24 | uint32(buf[4])<<16 | uint32(buf[5])<<8 | uint32(buf[6])
	if gotLBA != 42 {
		t.Fatalf("lba = %d, want 42", gotLBA)
	}
}

func TestGeometryCHSDivides(t *testing.T) {
	cyl, heads := geometryCHS(800)
	if int64(heads)*cyl != 800 {
		t.Fatalf("heads*cyl = %d, want 800", int64(heads)*cyl)
	}
	if heads < 1 || heads > 255 {
		t.Fatalf("heads = %d out of range", heads)
	}
}
