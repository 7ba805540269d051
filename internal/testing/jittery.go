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


// Package testing provides stream wrappers that reproduce the timing of
// USB-UART bridges for signer protocol tests.
package testing

import (
	"io"
	"math/rand/v2"
	"time"
)

// usbPacketSize is the bulk endpoint size of full-speed USB serial bridges
const usbPacketSize = 64

// JitterConfig configures the behavior of JitteryConnection.
type JitterConfig struct {
	// MaxLatency is the upper bound of the random delay before each read
	MaxLatency time.Duration
	// StallDuration is how long reads pause once StallAfterBytes is reached
	StallDuration time.Duration
	// FragmentMinBytes is the smallest fragment a read returns
	FragmentMinBytes int
	// StallAfterBytes triggers a single stall after this many bytes
	StallAfterBytes int
	// Seed makes fragmentation reproducible; zero picks a random seed
	Seed uint64
	// FragmentReads returns random-sized slices of the available data
	FragmentReads bool
	// FragmentWrites delivers writes to the backend in random-sized pieces
	FragmentWrites bool
	// USBBoundaryStress never returns data across a 64-byte boundary
	USBBoundaryStress bool
}

// DefaultJitterConfig returns a sensible default configuration for testing.
func DefaultJitterConfig() JitterConfig {
	return JitterConfig{
		MaxLatency:       5 * time.Millisecond,
		FragmentReads:    true,
		FragmentMinBytes: 1,
	}
}

// JitteryConnection wraps an io.ReadWriter to simulate USB-UART bridges
// (FTDI, CH340) that deliver data late and in arbitrary pieces. Data read
// from the backend is buffered, so fragmentation never loses bytes.
type JitteryConnection struct {
	backend             io.ReadWriter
	rng                 *rand.Rand
	readBuf             []byte
	config              JitterConfig
	bytesReadSinceStall int
	stallTriggered      bool
}

// NewJitteryConnection wraps a backend io.ReadWriter with jitter simulation.
func NewJitteryConnection(backend io.ReadWriter, config JitterConfig) *JitteryConnection {
	seed := config.Seed
	if seed == 0 {
		seed = rand.Uint64() //nolint:gosec // Test code, not crypto
	}
	if config.FragmentMinBytes < 1 {
		config.FragmentMinBytes = 1
	}

	return &JitteryConnection{
		backend: backend,
		config:  config,
		rng:     rand.New(rand.NewPCG(seed, seed^0xDEADBEEF)), //nolint:gosec // Test code, not crypto
		readBuf: make([]byte, 0, 1024),
	}
}

// Write passes data to the backend, split into random pieces when
// FragmentWrites is set.
func (j *JitteryConnection) Write(data []byte) (int, error) {
	if !j.config.FragmentWrites {
		return j.backend.Write(data) //nolint:wrapcheck // Pass-through wrapper
	}

	written := 0
	for written < len(data) {
		size := j.fragmentSize(len(data) - written)
		n, err := j.backend.Write(data[written : written+size])
		written += n
		if err != nil {
			return written, err //nolint:wrapcheck // Pass-through wrapper
		}
	}
	return written, nil
}

// Read returns buffered backend data with simulated latency and fragmentation.
func (j *JitteryConnection) Read(buf []byte) (int, error) {
	if j.config.MaxLatency > 0 {
		if delay := time.Duration(j.rng.Int64N(int64(j.config.MaxLatency) + 1)); delay > 0 {
			time.Sleep(delay)
		}
	}

	if len(j.readBuf) == 0 {
		tempBuf := make([]byte, 1024)
		n, err := j.backend.Read(tempBuf)
		if n == 0 {
			return 0, err //nolint:wrapcheck // Pass-through wrapper
		}
		j.readBuf = append(j.readBuf, tempBuf[:n]...)
	}

	toReturn := min(len(j.readBuf), len(buf))

	// Limit data before the stall point, then stall once
	if j.config.StallAfterBytes > 0 && !j.stallTriggered {
		if j.bytesReadSinceStall >= j.config.StallAfterBytes {
			j.stallTriggered = true
			if j.config.StallDuration > 0 {
				time.Sleep(j.config.StallDuration)
			}
		} else {
			toReturn = min(toReturn, j.config.StallAfterBytes-j.bytesReadSinceStall)
		}
	}

	if j.config.USBBoundaryStress && toReturn > 0 {
		untilBoundary := usbPacketSize - j.bytesReadSinceStall%usbPacketSize
		toReturn = min(toReturn, untilBoundary)
	}

	if j.config.FragmentReads {
		toReturn = j.fragmentSize(toReturn)
	}

	copy(buf, j.readBuf[:toReturn])
	j.readBuf = j.readBuf[toReturn:]
	j.bytesReadSinceStall += toReturn

	return toReturn, nil
}

// Buffered returns the number of bytes read from the backend but not yet returned
func (j *JitteryConnection) Buffered() int {
	return len(j.readBuf)
}

// ResetStallState resets the stall tracking state.
func (j *JitteryConnection) ResetStallState() {
	j.bytesReadSinceStall = 0
	j.stallTriggered = false
}

// ClearBuffer discards any buffered read data.
func (j *JitteryConnection) ClearBuffer() {
	j.readBuf = j.readBuf[:0]
}

// fragmentSize picks a size between FragmentMinBytes and upTo
func (j *JitteryConnection) fragmentSize(upTo int) int {
	minSize := j.config.FragmentMinBytes
	if upTo <= minSize {
		return upTo
	}
	return minSize + j.rng.IntN(upTo-minSize+1)
}
