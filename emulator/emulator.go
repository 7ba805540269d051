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


// Package emulator is a software signer that speaks the device wire protocol.
//
// Device implements io.ReadWriter: bytes written to it are parsed as request
// frames exactly as the firmware parses them, and responses queue up for
// Read. Serve attaches a Device to a real stream such as a serial port.
package emulator

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/binary"
	"errors"
	"io"

	"github.com/rs/zerolog"

	txsigner "github.com/ZaparooProject/go-txsigner"
	"github.com/ZaparooProject/go-txsigner/internal/frame"
	"github.com/ZaparooProject/go-txsigner/internal/syncutil"
	"github.com/ZaparooProject/go-txsigner/pkg/ethtx"
)

// MaxTransactionSize is the largest transaction the firmware will consider
const MaxTransactionSize = 32768

type parseState int

const (
	stateHunting parseState = iota // discarding bytes until the first magic byte
	stateMagic                     // first magic byte seen
	stateLength
	stateBody
)

// verifierStatuses maps policy rejections to the status byte the firmware sends
var verifierStatuses = []struct {
	err    error
	status txsigner.StatusCode
}{
	{ethtx.ErrNotAccessListTx, txsigner.StatusNotEIP2930},
	{ethtx.ErrRLPDecode, txsigner.StatusRLPDecodeFailed},
	{ethtx.ErrRLPInvalid, txsigner.StatusRLPInvalid},
	{ethtx.ErrChainID, txsigner.StatusChainIDInvalid},
	{ethtx.ErrContract, txsigner.StatusContractInvalid},
	{ethtx.ErrValueNotZero, txsigner.StatusValueNotZero},
	{ethtx.ErrAccessListNotEmpty, txsigner.StatusAccessListNotEmpty},
}

// Option configures a Device
type Option func(*Device)

// WithLogger sets the logger requests are reported to
func WithLogger(logger zerolog.Logger) Option {
	return func(d *Device) {
		d.log = logger
	}
}

// Device emulates one signer board.
type Device struct {
	key             *ecdsa.PrivateKey
	log             zerolog.Logger
	lastTransaction []byte
	policy          ethtx.Policy
	rxBuffer        bytes.Buffer
	txBuffer        bytes.Buffer
	bodyLength      int
	state           parseState
	requests        int
	truncateNext    int
	mu              syncutil.Mutex
	corruptNext     bool
	badMagicNext    bool
	dropNext        bool
}

// New creates an emulated signer holding key and enforcing policy.
func New(key *ecdsa.PrivateKey, policy ethtx.Policy, opts ...Option) *Device {
	d := &Device{
		key:    key,
		policy: policy,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Write implements io.Writer. Every complete request frame is answered
// before Write returns.
func (d *Device) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.rxBuffer.Write(p)
	d.process()
	return len(p), nil
}

// Read implements io.Reader. It returns io.EOF when no response is pending.
func (d *Device) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.txBuffer.Len() == 0 {
		return 0, io.EOF
	}
	return d.txBuffer.Read(p)
}

// Pending returns the number of response bytes waiting to be read
func (d *Device) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.txBuffer.Len()
}

// Requests returns how many request frames were parsed, including ones
// answered with an error status
func (d *Device) Requests() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.requests
}

// LastTransaction returns a copy of the payload of the last good frame
func (d *Device) LastTransaction() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return bytes.Clone(d.lastTransaction)
}

// InjectChecksumError corrupts the CRC of the next signed response
func (d *Device) InjectChecksumError() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.corruptNext = true
}

// InjectBadPreamble makes the next response start with the wrong magic
func (d *Device) InjectBadPreamble() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.badMagicNext = true
}

// TruncateNextResponse drops the last n bytes of the next response
func (d *Device) TruncateNextResponse(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.truncateNext = n
}

// DropNextResponse swallows the next request without answering
func (d *Device) DropNextResponse() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dropNext = true
}

// Reset clears buffers, parser state and pending faults
func (d *Device) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.rxBuffer.Reset()
	d.txBuffer.Reset()
	d.state = stateHunting
	d.bodyLength = 0
	d.lastTransaction = nil
	d.corruptNext = false
	d.badMagicNext = false
	d.dropNext = false
	d.truncateNext = 0
}

// process consumes as much of the receive buffer as forms whole fields
func (d *Device) process() {
	for {
		switch d.state {
		case stateHunting:
			b, err := d.rxBuffer.ReadByte()
			if err != nil {
				return
			}
			if b == frame.Magic1 {
				d.state = stateMagic
			}

		case stateMagic:
			b, err := d.rxBuffer.ReadByte()
			if err != nil {
				return
			}
			if b != frame.Magic2 {
				d.requests++
				d.log.Debug().Hex("byte", []byte{b}).Msg("bad second magic byte")
				d.respondStatus(txsigner.StatusSerialReadFailed)
				d.state = stateHunting
				continue
			}
			d.state = stateLength

		case stateLength:
			if d.rxBuffer.Len() < frame.LengthSize {
				return
			}
			d.bodyLength = int(binary.LittleEndian.Uint16(d.rxBuffer.Next(frame.LengthSize)))
			d.state = stateBody

		case stateBody:
			if d.rxBuffer.Len() < d.bodyLength+frame.ChecksumSize {
				return
			}
			payload := bytes.Clone(d.rxBuffer.Next(d.bodyLength))
			crc := binary.LittleEndian.Uint32(d.rxBuffer.Next(frame.ChecksumSize))
			d.state = stateHunting
			d.requests++
			d.handle(payload, crc)
		}
	}
}

// handle answers one complete request frame the way the firmware loop does
func (d *Device) handle(payload []byte, crc uint32) {
	if !frame.ValidChecksum(payload, crc) {
		d.log.Debug().Int("length", len(payload)).Msg("request checksum mismatch")
		d.respondStatus(txsigner.StatusSerialReadFailed)
		return
	}
	d.lastTransaction = payload

	if len(payload) == 0 {
		d.respondStatus(txsigner.StatusDeclined)
		return
	}
	if len(payload) > MaxTransactionSize {
		d.respondStatus(txsigner.StatusTransactionTooBig)
		return
	}

	if err := ethtx.Verify(payload, d.policy); err != nil {
		status := statusFor(err)
		d.log.Info().Err(err).Stringer("status", status).Msg("transaction rejected")
		d.respondStatus(status)
		return
	}

	signed, err := ethtx.Sign(payload, d.key)
	if err != nil {
		// Verify already accepted the payload, so only the key can fail here
		d.log.Error().Err(err).Msg("signing failed")
		d.respondStatus(txsigner.StatusRLPInvalid)
		return
	}

	resp, err := frame.EncodeResponse(signed)
	if err != nil {
		d.log.Error().Err(err).Msg("signed transaction does not fit in a frame")
		d.respondStatus(txsigner.StatusTransactionTooBig)
		return
	}
	if d.corruptNext {
		d.corruptNext = false
		resp[len(resp)-1] ^= 0xFF
	}
	d.log.Info().Int("length", len(signed)).Msg("transaction signed")
	d.queue(resp)
}

func (d *Device) respondStatus(status txsigner.StatusCode) {
	d.queue(frame.EncodeStatus(byte(status)))
}

// queue applies pending faults and appends resp to the transmit buffer
func (d *Device) queue(resp []byte) {
	if d.dropNext {
		d.dropNext = false
		return
	}
	if d.badMagicNext {
		d.badMagicNext = false
		resp[1] = 0x00
	}
	if d.truncateNext > 0 {
		cut := min(d.truncateNext, len(resp))
		resp = resp[:len(resp)-cut]
		d.truncateNext = 0
	}
	d.txBuffer.Write(resp)
}

func statusFor(err error) txsigner.StatusCode {
	for _, vs := range verifierStatuses {
		if errors.Is(err, vs.err) {
			return vs.status
		}
	}
	return txsigner.StatusRLPInvalid
}
