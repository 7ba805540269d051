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

import (
	"encoding/binary"
	"errors"
)

var (
	// ErrPayloadTooLarge is returned when a payload does not fit the 16-bit length field
	ErrPayloadTooLarge = errors.New("payload exceeds 65535 bytes")
	// ErrShortFrame is returned when a buffer ends before the frame does
	ErrShortFrame = errors.New("frame truncated")
	// ErrBadMagic is returned when a frame does not start with 5A A5
	ErrBadMagic = errors.New("frame preamble mismatch")
	// ErrBadChecksum is returned when a frame's CRC does not cover its payload
	ErrBadChecksum = errors.New("frame checksum mismatch")
)

// EncodeRequest builds a complete request frame:
// magic, little-endian length, payload, little-endian CRC-32 of payload.
func EncodeRequest(payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadLength {
		return nil, ErrPayloadTooLarge
	}

	frm := make([]byte, 0, Overhead+len(payload))
	frm = append(frm, Magic1, Magic2)
	frm = binary.LittleEndian.AppendUint16(frm, uint16(len(payload)))
	frm = append(frm, payload...)
	frm = binary.LittleEndian.AppendUint32(frm, Checksum(payload))
	return frm, nil
}

// EncodeResponse builds a successful response frame carrying payload.
func EncodeResponse(payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadLength {
		return nil, ErrPayloadTooLarge
	}

	frm := make([]byte, 0, Overhead+StatusSize+len(payload))
	frm = append(frm, Magic1, Magic2, StatusOK)
	frm = binary.LittleEndian.AppendUint16(frm, uint16(len(payload)))
	frm = append(frm, payload...)
	frm = binary.LittleEndian.AppendUint32(frm, Checksum(payload))
	return frm, nil
}

// EncodeStatus builds a bodyless response frame: magic followed by a status byte.
// Used for the declined outcome and for device error codes.
func EncodeStatus(status byte) []byte {
	return []byte{Magic1, Magic2, status}
}

// DecodeRequest parses a request frame from the start of buf.
// It returns the payload and the number of bytes consumed.
func DecodeRequest(buf []byte) (payload []byte, consumed int, err error) {
	if len(buf) < HeaderSize {
		return nil, 0, ErrShortFrame
	}
	if buf[0] != Magic1 || buf[1] != Magic2 {
		return nil, 0, ErrBadMagic
	}

	length := int(binary.LittleEndian.Uint16(buf[MagicSize:HeaderSize]))
	total := Overhead + length
	if len(buf) < total {
		return nil, 0, ErrShortFrame
	}

	payload = buf[HeaderSize : HeaderSize+length]
	expected := binary.LittleEndian.Uint32(buf[HeaderSize+length : total])
	if !ValidChecksum(payload, expected) {
		return nil, total, ErrBadChecksum
	}

	out := make([]byte, length)
	copy(out, payload)
	return out, total, nil
}
