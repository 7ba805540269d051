// go-txsigner
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-txsigner.
//
// go-txsigner is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-txsigner is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-txsigner; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.


package detection

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultBlocklist returns USB devices that should never be probed.
// Format: VID:PID in hexadecimal (case-insensitive).
func DefaultBlocklist() []string {
	return []string{
		"1915:520F", // Nordic dongles reset when DTR toggles
		"2C7C:0125", // Quectel modems treat stray bytes as AT input
	}
}

// knownBoards maps VID:PID pairs of USB serial bridges that signer
// firmware is commonly flashed onto.
var knownBoards = map[string]string{
	"2341:0043": "Arduino Uno",
	"2341:0001": "Arduino Uno",
	"2A03:0043": "Arduino Uno",
	"1A86:7523": "CH340 serial bridge",
	"1A86:55D4": "CH9102 serial bridge",
	"10C4:EA60": "CP210x serial bridge",
	"0403:6001": "FTDI serial bridge",
	"303A:1001": "ESP32-S3 USB JTAG/serial",
	"2E8A:000A": "Raspberry Pi Pico",
}

// KnownBoard reports whether vidpid belongs to a board signer firmware runs
// on, returning its description.
func KnownBoard(vidpid string) (string, bool) {
	name, ok := knownBoards[FormatVIDPID(vidpid)]
	return name, ok
}

// FormatVIDPID normalises a VID:PID pair to upper case with zero padding.
// Inputs that are not a pair of hex numbers are returned trimmed and upper cased.
func FormatVIDPID(vidpid string) string {
	vidpid = strings.ToUpper(strings.TrimSpace(vidpid))
	vidStr, pidStr, found := strings.Cut(vidpid, ":")
	if !found || !isHex(vidStr) || !isHex(pidStr) {
		return vidpid
	}
	vid, vidErr := strconv.ParseUint(vidStr, 16, 16)
	pid, pidErr := strconv.ParseUint(pidStr, 16, 16)
	if vidErr != nil || pidErr != nil {
		return vidpid
	}
	return fmt.Sprintf("%04X:%04X", vid, pid)
}

// IsBlocked checks if a USB device is in the blocklist.
func IsBlocked(vidpid string, blocklist []string) bool {
	vidpid = FormatVIDPID(vidpid)
	for _, blocked := range blocklist {
		if vidpid == FormatVIDPID(blocked) {
			return true
		}
	}
	return false
}

// isHex checks if a string contains only hexadecimal characters.
func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'A' || r > 'F') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

// IsPathIgnored checks if a device path should be ignored.
// Paths are compared after cleaning and case folding.
func IsPathIgnored(devicePath string, ignorePaths []string) bool {
	if devicePath == "" || len(ignorePaths) == 0 {
		return false
	}

	normalizedDevice := normalizedPath(devicePath)
	for _, ignorePath := range ignorePaths {
		if ignorePath == "" {
			continue
		}
		if devicePath == ignorePath || normalizedDevice == normalizedPath(ignorePath) {
			return true
		}
	}
	return false
}

// normalizedPath normalizes a device path for comparison.
// Lower casing covers Windows COM names.
func normalizedPath(path string) string {
	return strings.ToLower(filepath.Clean(path))
}
