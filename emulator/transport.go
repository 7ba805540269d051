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

package emulator

import (
	"errors"
	"io"
	"time"

	txsigner "github.com/ZaparooProject/go-txsigner"
	"github.com/ZaparooProject/go-txsigner/internal/syncutil"
)

// Transport connects a txsigner.Device directly to an emulated board.
// A read with no response pending fails with a timeout error, the way a
// serial port with a read timeout would.
type Transport struct {
	dev     *Device
	timeout time.Duration
	mu      syncutil.Mutex
	closed  bool
}

// NewTransport wraps dev as a txsigner.Transport
func NewTransport(dev *Device) *Transport {
	return &Transport{dev: dev}
}

// Read implements io.Reader
func (t *Transport) Read(p []byte) (int, error) {
	if t.isClosed() {
		return 0, txsigner.NewClosedError("read", t.PortName())
	}
	n, err := t.dev.Read(p)
	if errors.Is(err, io.EOF) {
		return 0, txsigner.NewTimeoutError("read", t.PortName())
	}
	return n, err
}

// Write implements io.Writer
func (t *Transport) Write(p []byte) (int, error) {
	if t.isClosed() {
		return 0, txsigner.NewClosedError("write", t.PortName())
	}
	return t.dev.Write(p)
}

// SetTimeout records the timeout. Reads never block, so it has no effect.
func (t *Transport) SetTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeout = timeout
	return nil
}

// Timeout returns the last timeout set
func (t *Transport) Timeout() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timeout
}

// ResetInput discards response bytes left over from a failed exchange
func (t *Transport) ResetInput() error {
	_, err := io.Copy(io.Discard, t.dev)
	return err
}

// Close marks the transport closed. The board keeps its state.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// Type implements txsigner.Transport
func (*Transport) Type() txsigner.TransportType {
	return txsigner.TransportEmulator
}

// PortName implements txsigner.PortNamer
func (*Transport) PortName() string {
	return "emulator"
}

func (t *Transport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

var (
	_ txsigner.Transport     = (*Transport)(nil)
	_ txsigner.InputResetter = (*Transport)(nil)
)
