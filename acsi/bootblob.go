// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package acsi

// bootBlob backs the GEMDOS target's first four sectors (spec §4.5 "Guest
// side boot", §8 scenario "Boot from virtual drive"). The real image is the
// small m68k stub program that installs the GEMDOS drive via Ptermres; its
// assembly is named out of scope by spec §1 ("the boot loader and m68k
// stub programs... their wire protocol is documented here, not their
// assembly"). This placeholder carries only the wire-visible shape that
// matters to the host: a recognisable two-byte TOS program magic at offset
// 0 so a guest or test can tell a real boot sector apart from an
// all-zero/unformatted one, padded out to exactly four 512-byte sectors.
//
// A production build replaces bootBlob's contents with the assembled stub
// binary; nothing in this package's logic depends on what's inside it
// beyond its length.
var bootBlob = func() []byte {
	b := make([]byte, 4*512)
	// TOS program header magic (0x601A), big-endian, as the first word of
	// any relocatable GEMDOS program.
	b[0] = 0x60
	b[1] = 0x1A
	return b
}()
