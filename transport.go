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

//go:generate mockgen -destination=mocks/transport.go -package=mocks github.com/ZaparooProject/go-txsigner Transport

import (
	"bytes"
	"io"
	"time"

	"github.com/ZaparooProject/go-txsigner/internal/syncutil"
)

// Transport is a duplex byte stream to a signer.
//
// Read must block until at least one byte is available, the read timeout
// expires, or the stream fails. Implementations report an expired timeout as
// an error (never as a zero-length read with a nil error) so that exact-length
// reads terminate.
type Transport interface {
	io.Reader
	io.Writer

	// Close closes the transport connection
	Close() error

	// SetTimeout sets the read timeout for the transport. Zero blocks forever.
	SetTimeout(timeout time.Duration) error

	// Type returns the transport type
	Type() TransportType
}

// PortNamer is implemented by transports that know their device path
type PortNamer interface {
	PortName() string
}

// InputResetter is implemented by transports that can discard received but
// unread bytes
type InputResetter interface {
	ResetInput() error
}

// TransportType represents the type of transport
type TransportType string

const (
	// TransportUART represents UART/serial transport.
	TransportUART TransportType = "uart"
	// TransportEmulator represents an in-process emulated signer
	TransportEmulator TransportType = "emulator"
	// TransportMock represents a mock transport for testing
	TransportMock TransportType = "mock"
)

// MockTransport is a scripted in-memory Transport for testing.
// Writes are captured; reads are served from a queued response buffer and
// return io.EOF once it is drained.
type MockTransport struct {
	writeErr error
	readErr  error
	written  bytes.Buffer
	pending  bytes.Buffer
	timeout  time.Duration
	writes   int
	mu       syncutil.Mutex
	closed   bool
}

// NewMockTransport creates a new mock transport
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// Write implements io.Writer
func (m *MockTransport) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, NewClosedError("write", "mock")
	}
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	m.writes++
	return m.written.Write(p) //nolint:wrapcheck // bytes.Buffer never fails
}

// Read implements io.Reader
func (m *MockTransport) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, NewClosedError("read", "mock")
	}
	if m.pending.Len() == 0 {
		if m.readErr != nil {
			return 0, m.readErr
		}
		return 0, io.EOF
	}
	return m.pending.Read(p) //nolint:wrapcheck // bytes.Buffer only returns io.EOF
}

// Close implements Transport interface
func (m *MockTransport) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// SetTimeout implements Transport interface
func (m *MockTransport) SetTimeout(timeout time.Duration) error {
	m.mu.Lock()
	m.timeout = timeout
	m.mu.Unlock()
	return nil
}

// Type implements Transport interface
func (*MockTransport) Type() TransportType {
	return TransportMock
}

// Test helper methods

// QueueResponse appends bytes the device will "send"
func (m *MockTransport) QueueResponse(data []byte) {
	m.mu.Lock()
	_, _ = m.pending.Write(data)
	m.mu.Unlock()
}

// SetWriteError makes every following write fail with err
func (m *MockTransport) SetWriteError(err error) {
	m.mu.Lock()
	m.writeErr = err
	m.mu.Unlock()
}

// SetReadError makes reads fail with err once the queued response is drained
func (m *MockTransport) SetReadError(err error) {
	m.mu.Lock()
	m.readErr = err
	m.mu.Unlock()
}

// Written returns a copy of everything written so far
func (m *MockTransport) Written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return bytes.Clone(m.written.Bytes())
}

// WriteCalls returns how many successful Write calls were made
func (m *MockTransport) WriteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Timeout returns the last timeout set
func (m *MockTransport) Timeout() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timeout
}

// IsClosed reports whether Close was called
func (m *MockTransport) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Reset clears captured writes, queued responses and injected errors
func (m *MockTransport) Reset() {
	m.mu.Lock()
	m.written.Reset()
	m.pending.Reset()
	m.writeErr = nil
	m.readErr = nil
	m.writes = 0
	m.closed = false
	m.mu.Unlock()
}

var _ Transport = (*MockTransport)(nil)
