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

package txsigner

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ZaparooProject/go-txsigner/internal/frame"
)

// MaxTransactionSize is the largest transaction the length field can describe
const MaxTransactionSize = frame.MaxPayloadLength

// resetSequence is written once per session to bring the device parser back
// to the point where it scans for a preamble.
var resetSequence [frame.ResetLength]byte

// Initialize writes the 16-byte zero reset sequence. No response is expected.
func Initialize(w io.Writer) error {
	return writeFull(w, resetSequence[:], "initialize")
}

// Sign performs one request/response exchange over rw.
//
// The full request frame is written before anything is read. A declined
// response is returned as a Result with OutcomeDeclined and a nil error.
// Failures are one of *TransportError, *FramingError, *DeviceError or
// *ChecksumError; see KindOf. Nothing is retried.
func Sign(rw io.ReadWriter, tx []byte) (Result, error) {
	req, err := EncodeRequest(tx)
	if err != nil {
		return Result{}, err
	}

	if err := writeFull(rw, req, "write request"); err != nil {
		return Result{}, err
	}

	return ReadResponse(rw)
}

// EncodeRequest returns the request frame Sign would write for tx
func EncodeRequest(tx []byte) ([]byte, error) {
	req, err := frame.EncodeRequest(tx)
	if errors.Is(err, frame.ErrPayloadTooLarge) {
		return nil, fmt.Errorf("%w: %d bytes", ErrTransactionTooLarge, len(tx))
	} else if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return req, nil
}

// ReadResponse reads and validates one response frame from r
func ReadResponse(r io.Reader) (Result, error) {
	var preamble [frame.MagicSize]byte
	if err := readField(r, preamble[:], "preamble"); err != nil {
		return Result{}, err
	}
	if preamble != frame.Magic {
		return Result{}, &FramingError{Preamble: preamble}
	}

	var status [frame.StatusSize]byte
	if err := readField(r, status[:], "status"); err != nil {
		return Result{}, err
	}

	switch StatusCode(status[0]) {
	case StatusOK:
	case StatusDeclined:
		return Result{Outcome: OutcomeDeclined}, nil
	default:
		return Result{}, &DeviceError{Status: StatusCode(status[0])}
	}

	var length [frame.LengthSize]byte
	if err := readField(r, length[:], "length"); err != nil {
		return Result{}, err
	}

	result := make([]byte, binary.LittleEndian.Uint16(length[:]))
	if err := readField(r, result, "result"); err != nil {
		return Result{}, err
	}

	var checksum [frame.ChecksumSize]byte
	if err := readField(r, checksum[:], "checksum"); err != nil {
		return Result{}, err
	}

	expected := binary.LittleEndian.Uint32(checksum[:])
	if actual := frame.Checksum(result); actual != expected {
		return Result{}, &ChecksumError{Expected: expected, Actual: actual, Length: len(result)}
	}

	return Result{Outcome: OutcomeSigned, Signature: result}, nil
}

// readField reads exactly len(buf) bytes. Any shortfall is a transport error.
func readField(r io.Reader, buf []byte, field string) error {
	if len(buf) == 0 {
		return nil
	}

	n, err := io.ReadFull(r, buf)
	if err == nil {
		return nil
	}

	op := "read " + field
	var te *TransportError
	switch {
	case errors.As(err, &te):
		return fmt.Errorf("%s after %d of %d bytes: %w", op, n, len(buf), err)
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return NewTransportError(op, "",
			fmt.Errorf("%w (%d of %d bytes): %w", ErrShortRead, n, len(buf), err), ErrorTypePermanent)
	default:
		return NewTransportReadError(op, "", err)
	}
}

// writeFull writes buf in a single call and treats a short count as failure
func writeFull(w io.Writer, buf []byte, op string) error {
	n, err := w.Write(buf)
	if err != nil {
		var te *TransportError
		if errors.As(err, &te) {
			return fmt.Errorf("%s: %w", op, err)
		}
		return NewTransportWriteError(op, "", err)
	}
	if n != len(buf) {
		return NewTransportWriteError(op, "", fmt.Errorf("%w: %d of %d bytes", ErrShortWrite, n, len(buf)))
	}
	return nil
}
