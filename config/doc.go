// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config holds the read-only configuration snapshot consumed by the
// zest core.
//
// The actual INI-format file on disk is owned by an external loader (the
// on-screen menu subsystem writes it, the boot process reads it before the
// core ever starts); this package only defines the contract - the struct
// shape and the minimal reader needed to turn a key=value-per-section file
// into that struct for the core's own command-line tools and tests. It is
// deliberately not a general purpose INI library: no comments-with-escapes,
// no multi-line values, no type coercion beyond what the core's options
// need.
package config
