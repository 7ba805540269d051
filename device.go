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
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ZaparooProject/go-txsigner/internal/syncutil"
)

// ErrUnexpectedPong is returned by Ping when the device signs an empty payload
var ErrUnexpectedPong = errors.New("device returned a result for an empty transaction")

// DeviceConfig contains configuration options for the Device
type DeviceConfig struct {
	// Timeout is the transport read timeout. Zero blocks until data arrives.
	Timeout time.Duration
	// TraceDepth is how many wire chunks are kept for error traces
	TraceDepth int
}

// DefaultDeviceConfig returns default device configuration
func DefaultDeviceConfig() *DeviceConfig {
	return &DeviceConfig{
		Timeout:    0,
		TraceDepth: 16,
	}
}

// Option configures a Device
type Option func(*Device) error

// WithTimeout sets the transport read timeout when the device is created
func WithTimeout(timeout time.Duration) Option {
	return func(d *Device) error {
		if timeout < 0 {
			return fmt.Errorf("timeout must not be negative, got %v", timeout)
		}
		d.config.Timeout = timeout
		return d.applyTimeout(timeout)
	}
}

// WithTraceDepth sets how many wire chunks a failed exchange reports
func WithTraceDepth(depth int) Option {
	return func(d *Device) error {
		if depth < 1 {
			return fmt.Errorf("trace depth must be at least 1, got %d", depth)
		}
		d.config.TraceDepth = depth
		return nil
	}
}

// Device is a signer reached through one Transport.
//
// Exchanges are serialised: concurrent calls on the same Device wait for the
// exchange in flight, so the stream only ever carries one request and its
// response at a time.
type Device struct {
	transport Transport
	config    *DeviceConfig
	mu        syncutil.Mutex
}

// New creates a new signer device with the given transport
func New(transport Transport, opts ...Option) (*Device, error) {
	if transport == nil {
		return nil, ErrNilTransport
	}

	device := &Device{
		transport: transport,
		config:    DefaultDeviceConfig(),
	}

	for _, opt := range opts {
		if err := opt(device); err != nil {
			return nil, err
		}
	}

	return device, nil
}

// Transport returns the underlying transport
func (d *Device) Transport() Transport {
	return d.transport
}

// Init writes the reset sequence. Call it once per session and again after a
// framing error to resynchronise the device. Transports implementing
// InputResetter first drop any stale response bytes.
func (d *Device) Init(ctx context.Context) error {
	_, err := d.exchange(ctx, "init", func(rw io.ReadWriter) (Result, error) {
		if ir, ok := d.transport.(InputResetter); ok {
			if err := ir.ResetInput(); err != nil {
				return Result{}, err
			}
		}
		return Result{}, Initialize(rw)
	})
	return err
}

// Sign submits tx and returns the device's answer
func (d *Device) Sign(ctx context.Context, tx []byte) (Result, error) {
	if len(tx) > MaxTransactionSize {
		return Result{}, fmt.Errorf("%w: %d bytes", ErrTransactionTooLarge, len(tx))
	}

	res, err := d.exchange(ctx, "sign", func(rw io.ReadWriter) (Result, error) {
		return Sign(rw, tx)
	})
	if err != nil {
		return Result{}, err
	}

	if res.Declined() {
		Debugf("sign: device declined %d byte transaction", len(tx))
	} else {
		Debugf("sign: received %d byte result", len(res.Signature))
	}
	return res, nil
}

// Ping sends an empty transaction. The firmware answers with the declined
// status, which proves the link and the frame parser are working.
func (d *Device) Ping(ctx context.Context) error {
	res, err := d.exchange(ctx, "ping", func(rw io.ReadWriter) (Result, error) {
		return Sign(rw, nil)
	})
	if err != nil {
		return err
	}
	if !res.Declined() {
		return ErrUnexpectedPong
	}
	return nil
}

// SetTimeout sets the transport read timeout
func (d *Device) SetTimeout(timeout time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.config.Timeout = timeout
	return d.applyTimeout(timeout)
}

// Close closes the device connection. A blocked exchange on another
// goroutine is released with a transport error.
func (d *Device) Close() error {
	if err := d.transport.Close(); err != nil {
		return fmt.Errorf("failed to close transport: %w", err)
	}
	return nil
}

func (d *Device) applyTimeout(timeout time.Duration) error {
	if err := d.transport.SetTimeout(timeout); err != nil {
		return fmt.Errorf("failed to set timeout on transport: %w", err)
	}
	return nil
}

func (d *Device) portName() string {
	if pn, ok := d.transport.(PortNamer); ok {
		return pn.PortName()
	}
	return ""
}

// exchange runs fn with exclusive use of the transport and attaches the
// wire trace to any failure.
func (d *Device) exchange(
	ctx context.Context, op string, fn func(io.ReadWriter) (Result, error),
) (Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	trace := NewTraceBuffer(string(d.transport.Type()), d.portName(), d.config.TraceDepth)
	stream := &tracingStream{rw: d.transport, trace: trace}

	res, err := fn(stream)
	if err != nil {
		Debugf("%s failed (%s error): %v", op, KindOf(err), err)
		return Result{}, trace.WrapError(fmt.Errorf("%s: %w", op, err))
	}
	return res, nil
}
