// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gemdos

import (
	"os"
	"path/filepath"
	"strings"
)

// Resolve implements the path-resolution contract in spec §4.5 / Testable
// Property 8: component-by-component, case-insensitive matching against
// host directory entries.
//
// Returns:
//
//	-2  the drive letter is present and matches neither the GEMDOS drive
//	    nor the current drive (caller should FALLBACK)
//	-1  some parent component does not exist on disk
//	 0  the resolved path is an existing directory
//	 1  the resolved path is an existing file
//	 2  the parent exists but the leaf does not (used by *create calls)
func (d *Dispatcher) Resolve(guestPath string) (hostPath string, code int) {
	drive, rest := splitDrive(guestPath)
	d.mu.Lock()
	current := d.currentDrive
	d.mu.Unlock()
	if drive != 0 && drive != d.Drive && drive != current {
		return "", -2
	}

	rest = strings.ReplaceAll(rest, "\\", "/")
	rest = strings.TrimPrefix(rest, "/")
	var comps []string
	for _, c := range strings.Split(rest, "/") {
		if c != "" {
			comps = append(comps, c)
		}
	}

	hostCurrent := d.Root
	for i, c := range comps {
		entries, err := os.ReadDir(hostCurrent)
		if err != nil {
			return "", -1
		}
		match := ""
		for _, e := range entries {
			if strings.EqualFold(e.Name(), c) {
				match = e.Name()
				break
			}
		}
		last := i == len(comps)-1
		if match == "" {
			if last {
				return filepath.Join(hostCurrent, c), 2
			}
			return "", -1
		}
		hostCurrent = filepath.Join(hostCurrent, match)
	}

	fi, err := os.Stat(hostCurrent)
	if err != nil {
		return "", -1
	}
	if fi.IsDir() {
		return hostCurrent, 0
	}
	return hostCurrent, 1
}

// splitDrive peels an optional "X:" prefix off a guest path, returning the
// upper-cased drive letter (0 if absent) and the remainder.
func splitDrive(path string) (drive byte, rest string) {
	if len(path) >= 2 && path[1] == ':' {
		d := path[0]
		if d >= 'a' && d <= 'z' {
			d -= 'a' - 'A'
		}
		return d, path[2:]
	}
	return 0, path
}

// matchWildcard implements DOS 8.3 wildcard matching: '*' matches any run
// not crossing the dot, '?' matches any single character, and a trailing
// ".*" matches anything following the dot (including no extension). Names
// that aren't 8.3-shaped (more than one dot, or more than 8 characters
// before it) never match.
func matchWildcard(pattern, name string) bool {
	pBase, pExt := split83(pattern)
	nBase, nExt := split83(name)
	if !is83Shaped(nBase, nExt) {
		return false
	}
	return matchPart(pBase, nBase) && matchExt(pExt, nExt)
}

func split83(s string) (base, ext string) {
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, ""
}

// is83Shaped rejects names that aren't 8.3-shaped: more than 8 characters
// before the dot, more than 3 after it, or more than one dot. split83 splits
// on the last dot, so a second, earlier dot surfaces as a literal '.' still
// inside base - catching it here is what makes "A.B.C" fail where a naive
// length check on base="A.B", ext="C" would pass.
func is83Shaped(base, ext string) bool {
	return len(base) <= 8 && len(ext) <= 3 && !strings.ContainsRune(base, '.')
}

func matchExt(pExt, nExt string) bool {
	if pExt == "*" {
		return true
	}
	return matchPart(pExt, nExt)
}

func matchPart(pattern, name string) bool {
	pattern = strings.ToUpper(pattern)
	name = strings.ToUpper(name)
	return globMatch(pattern, name)
}

func globMatch(pattern, s string) bool {
	if pattern == "" {
		return s == ""
	}
	switch pattern[0] {
	case '*':
		for i := 0; i <= len(s); i++ {
			if globMatch(pattern[1:], s[i:]) {
				return true
			}
		}
		return false
	case '?':
		if s == "" {
			return false
		}
		return globMatch(pattern[1:], s[1:])
	default:
		if s == "" || s[0] != pattern[0] {
			return false
		}
		return globMatch(pattern[1:], s[1:])
	}
}
