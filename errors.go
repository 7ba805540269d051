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
	"errors"
	"fmt"
	"io"
	"runtime"
	"syscall"
)

// Error categories
var (
	// Transport errors
	ErrTransportTimeout = errors.New("transport timeout")
	ErrTransportWrite   = errors.New("transport write failed")
	ErrTransportRead    = errors.New("transport read failed")
	ErrTransportClosed  = errors.New("transport is closed")
	ErrShortRead        = errors.New("stream ended before field was complete")
	ErrShortWrite       = errors.New("stream accepted fewer bytes than written")

	// Protocol errors
	ErrUnexpectedPreamble = errors.New("unexpected response preamble")
	ErrChecksumMismatch   = errors.New("response checksum mismatch")
	ErrDeviceStatus       = errors.New("device reported an error")

	// Caller errors, raised before anything reaches the wire
	ErrTransactionTooLarge = errors.New("transaction exceeds 65535 bytes")
	ErrNilTransport        = errors.New("transport is nil")
	ErrDeviceNotFound      = errors.New("device not found")
)

// ErrorKind is the closed set of ways a signing exchange can fail
type ErrorKind int

const (
	// KindUnknown is reported for nil and for errors that did not come from an exchange
	KindUnknown ErrorKind = iota
	// KindTransport means the stream failed or ended early
	KindTransport
	// KindFraming means the response preamble was wrong
	KindFraming
	// KindDevice means the device answered with an error status
	KindDevice
	// KindChecksum means the result bytes did not match their CRC
	KindChecksum
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindFraming:
		return "framing"
	case KindDevice:
		return "device"
	case KindChecksum:
		return "checksum"
	default:
		return "unknown"
	}
}

// ErrorType tells a caller whether reopening the port is worth trying
type ErrorType int

const (
	// ErrorTypeTransient indicates a potentially recoverable error
	ErrorTypeTransient ErrorType = iota
	// ErrorTypePermanent indicates the transport is unusable
	ErrorTypePermanent
	// ErrorTypeTimeout indicates a read timed out
	ErrorTypeTimeout
)

// TransportError wraps stream-level failures with additional context
type TransportError struct {
	Err  error     // Underlying error
	Op   string    // Operation that failed
	Port string    // Port or device identifier
	Type ErrorType // Error category
}

func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// FramingError reports a response that did not open with 5A A5
type FramingError struct {
	Preamble [2]byte
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("%v: got %02X %02X", ErrUnexpectedPreamble, e.Preamble[0], e.Preamble[1])
}

func (*FramingError) Unwrap() error {
	return ErrUnexpectedPreamble
}

// DeviceError carries a non-success status byte from the device
type DeviceError struct {
	Status StatusCode
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("signer error 0x%02X (%s)", byte(e.Status), e.Status)
}

func (*DeviceError) Unwrap() error {
	return ErrDeviceStatus
}

// IsPolicyRejection returns true if the device refused the transaction contents
func (e *DeviceError) IsPolicyRejection() bool {
	return e.Status.IsVerifierStatus()
}

// ChecksumError reports a result whose CRC-32 did not match the transmitted value
type ChecksumError struct {
	Expected uint32
	Actual   uint32
	Length   int
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("%v: expected %08X, computed %08X over %d bytes",
		ErrChecksumMismatch, e.Expected, e.Actual, e.Length)
}

func (*ChecksumError) Unwrap() error {
	return ErrChecksumMismatch
}

// KindOf classifies err into one of the exchange failure kinds
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	var (
		fe *FramingError
		de *DeviceError
		ce *ChecksumError
		te *TransportError
	)
	switch {
	case errors.As(err, &fe):
		return KindFraming
	case errors.As(err, &de):
		return KindDevice
	case errors.As(err, &ce):
		return KindChecksum
	case errors.As(err, &te):
		return KindTransport
	default:
		return KindUnknown
	}
}

// DeviceStatus extracts the status code from a device error
func DeviceStatus(err error) (StatusCode, bool) {
	var de *DeviceError
	if errors.As(err, &de) {
		return de.Status, true
	}
	return 0, false
}

// IsFatal returns true if the error indicates the port is gone and must be
// reopened before another exchange. Framing, device and checksum errors leave
// the port usable.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) && te.Type == ErrorTypePermanent {
		return true
	}

	if isDeviceGoneError(err) {
		return true
	}

	switch {
	case errors.Is(err, ErrTransportClosed),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrClosedPipe):
		return true
	default:
		return false
	}
}

// Windows error codes for device disconnection detection.
// These are defined here because they're not available on non-Windows platforms.
const (
	errAccessDenied syscall.Errno = 5   // ERROR_ACCESS_DENIED
	errGenFailure   syscall.Errno = 31  // ERROR_GEN_FAILURE
	errNoSuchDevice syscall.Errno = 433 // ERROR_NO_SUCH_DEVICE
)

// isDeviceGoneError checks for OS-level errors raised when a USB serial
// adapter is unplugged during I/O.
func isDeviceGoneError(err error) bool {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return false
	}

	//nolint:exhaustive // Only checking specific device-gone errors, not all errno values
	switch errno {
	case syscall.EIO, syscall.ENXIO, syscall.ENODEV:
		return true
	}

	if runtime.GOOS == "windows" {
		//nolint:exhaustive // Only checking specific device-gone errors, not all errno values
		switch errno {
		case errAccessDenied, errGenFailure, errNoSuchDevice:
			return true
		}
	}

	return false
}

// NewTransportError creates a standard transport error with consistent formatting
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:   op,
		Port: port,
		Err:  err,
		Type: errType,
	}
}

// NewTimeoutError creates a timeout error for transport operations
func NewTimeoutError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportTimeout, ErrorTypeTimeout)
}

// NewTransportWriteError creates a write error
func NewTransportWriteError(op, port string, err error) *TransportError {
	if err == nil {
		err = ErrTransportWrite
	} else {
		err = fmt.Errorf("%w: %w", ErrTransportWrite, err)
	}
	return NewTransportError(op, port, err, ErrorTypeTransient)
}

// NewTransportReadError creates a read error
func NewTransportReadError(op, port string, err error) *TransportError {
	if err == nil {
		err = ErrTransportRead
	} else {
		err = fmt.Errorf("%w: %w", ErrTransportRead, err)
	}
	return NewTransportError(op, port, err, ErrorTypeTransient)
}

// NewClosedError creates an error for I/O on a closed transport
func NewClosedError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportClosed, ErrorTypePermanent)
}
