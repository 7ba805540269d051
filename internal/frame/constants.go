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

package frame

// Frame markers. Both directions open with the same two bytes.
const (
	Magic1 = 0x5A
	Magic2 = 0xA5
)

// Status bytes that carry protocol meaning on the host side
const (
	StatusOK       = 0x00 // Result frame follows
	StatusDeclined = 0xFE // Device produced no result
)

// Field sizes
const (
	MagicSize    = 2
	LengthSize   = 2
	ChecksumSize = 4
	StatusSize   = 1

	// HeaderSize is magic + length for a request frame
	HeaderSize = MagicSize + LengthSize
	// Overhead is everything in a request frame that is not payload
	Overhead = HeaderSize + ChecksumSize
)

// Size limits
const (
	MaxPayloadLength = 0xFFFF // Length field is an unsigned 16-bit integer
	ResetLength      = 16     // Zero bytes written to resynchronise the device
)

// Magic is the frame preamble in wire order
var Magic = [MagicSize]byte{Magic1, Magic2}
