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


// Package uart implements the signer transport over a serial port.
package uart

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"

	txsigner "github.com/ZaparooProject/go-txsigner"
	"github.com/ZaparooProject/go-txsigner/internal/syncutil"
)

// DefaultBaudRate matches the signer firmware's serial configuration
const DefaultBaudRate = 115200

// openPort is swapped out in tests
var openPort = serial.Open

type config struct {
	baudRate    int
	readTimeout time.Duration
}

// Option configures a UART transport
type Option func(*config)

// WithBaudRate overrides the default 115200 baud
func WithBaudRate(baud int) Option {
	return func(c *config) {
		c.baudRate = baud
	}
}

// WithReadTimeout sets the initial read timeout. Zero blocks until data arrives.
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *config) {
		c.readTimeout = timeout
	}
}

// Transport implements txsigner.Transport for a serial port.
type Transport struct {
	port     serial.Port
	portName string
	timeout  time.Duration
	mu       syncutil.Mutex
	closed   bool
}

// New opens portName as 8N1 at the configured baud rate.
func New(portName string, opts ...Option) (*Transport, error) {
	cfg := config{baudRate: DefaultBaudRate}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.baudRate <= 0 {
		return nil, fmt.Errorf("invalid baud rate %d", cfg.baudRate)
	}

	port, err := openPort(portName, &serial.Mode{
		BaudRate: cfg.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open UART port %s: %w", portName, err)
	}

	t := &Transport{port: port, portName: portName}
	if err := t.SetTimeout(cfg.readTimeout); err != nil {
		_ = port.Close()
		return nil, err
	}

	// Discard anything the board printed before we attached
	if err := port.ResetInputBuffer(); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("UART reset input buffer failed: %w", err)
	}

	return t, nil
}

// Read reads at least one byte. An expired read timeout is returned as a
// timeout TransportError.
func (t *Transport) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if t.isClosed() {
		return 0, txsigner.NewClosedError("read", t.portName)
	}

	for {
		n, err := t.port.Read(p)
		switch {
		case err != nil && isInterruptedSystemCall(err):
			continue
		case err != nil:
			if t.isClosed() {
				return n, txsigner.NewClosedError("read", t.portName)
			}
			return n, txsigner.NewTransportReadError("read", t.portName, err)
		case n == 0:
			return 0, txsigner.NewTimeoutError("read", t.portName)
		default:
			return n, nil
		}
	}
}

// Write writes p and waits for the OS to flush it to the wire.
func (t *Transport) Write(p []byte) (int, error) {
	if t.isClosed() {
		return 0, txsigner.NewClosedError("write", t.portName)
	}

	n, err := t.port.Write(p)
	if err != nil {
		return n, txsigner.NewTransportWriteError("write", t.portName, err)
	}
	if n != len(p) {
		return n, txsigner.NewTransportWriteError("write", t.portName, txsigner.ErrShortWrite)
	}
	if err := t.drainWithRetry("write"); err != nil {
		return n, txsigner.NewTransportWriteError("drain", t.portName, err)
	}
	return n, nil
}

// SetTimeout sets the read timeout for the transport. Zero blocks forever.
func (t *Transport) SetTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	portTimeout := timeout
	if timeout <= 0 {
		portTimeout = serial.NoTimeout
	}
	if err := t.port.SetReadTimeout(portTimeout); err != nil {
		return fmt.Errorf("UART set timeout failed: %w", err)
	}
	t.timeout = timeout
	return nil
}

// Timeout returns the current read timeout
func (t *Transport) Timeout() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timeout
}

// ResetInput discards received bytes that have not been read yet
func (t *Transport) ResetInput() error {
	if t.isClosed() {
		return txsigner.NewClosedError("reset input", t.portName)
	}
	if err := t.port.ResetInputBuffer(); err != nil {
		return txsigner.NewTransportError("reset input", t.portName, err, txsigner.ErrorTypeTransient)
	}
	return nil
}

// Close closes the port. Closing twice is a no-op.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	if err := t.port.Close(); err != nil {
		return fmt.Errorf("UART close failed: %w", err)
	}
	return nil
}

// IsConnected returns true until the transport is closed
func (t *Transport) IsConnected() bool {
	return !t.isClosed()
}

// Type returns the transport type
func (*Transport) Type() txsigner.TransportType {
	return txsigner.TransportUART
}

// PortName returns the device path the transport was opened on
func (t *Transport) PortName() string {
	return t.portName
}

func (t *Transport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// isInterruptedSystemCall checks if an error is caused by an interrupted system call
func isInterruptedSystemCall(err error) bool {
	if err == nil {
		return false
	}
	var portErr *serial.PortError
	if errors.As(err, &portErr) && portErr.Code() == serial.PortClosed {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "interrupted system call") ||
		strings.Contains(errStr, "eintr")
}

// drainWithRetry waits for pending output, retrying interrupted system calls
func (t *Transport) drainWithRetry(operation string) error {
	const maxRetries = 3
	baseDelay := 2 * time.Millisecond

	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = t.port.Drain()
		if err == nil {
			return nil
		}
		if !isInterruptedSystemCall(err) {
			return fmt.Errorf("UART %s drain failed: %w", operation, err)
		}
		time.Sleep(baseDelay << attempt)
	}
	return fmt.Errorf("UART %s drain failed after %d retries: %w", operation, maxRetries, err)
}
