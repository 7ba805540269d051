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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	txsigner "github.com/ZaparooProject/go-txsigner"
)

func TestTransport_ExchangesWithBoard(t *testing.T) {
	t.Parallel()
	dev := newTestDevice(t)
	transport := NewTransport(dev)

	res, err := txsigner.Sign(transport, sampleTx(t))
	require.NoError(t, err)
	assert.True(t, res.Signed())
	assert.Equal(t, txsigner.TransportEmulator, transport.Type())
	assert.Equal(t, "emulator", transport.PortName())
}

func TestTransport_IdleReadTimesOut(t *testing.T) {
	t.Parallel()
	transport := NewTransport(newTestDevice(t))

	_, err := transport.Read(make([]byte, 4))
	require.ErrorIs(t, err, txsigner.ErrTransportTimeout)
	assert.False(t, txsigner.IsFatal(err))
}

func TestTransport_ResetInputDropsLeftovers(t *testing.T) {
	t.Parallel()
	dev := newTestDevice(t)
	transport := NewTransport(dev)

	dev.InjectBadPreamble()
	_, err := txsigner.Sign(transport, sampleTx(t))
	require.Equal(t, txsigner.KindFraming, txsigner.KindOf(err))
	require.Positive(t, dev.Pending())

	require.NoError(t, transport.ResetInput())
	assert.Zero(t, dev.Pending())
}

func TestTransport_Close(t *testing.T) {
	t.Parallel()
	transport := NewTransport(newTestDevice(t))

	require.NoError(t, transport.SetTimeout(time.Second))
	assert.Equal(t, time.Second, transport.Timeout())

	require.NoError(t, transport.Close())
	_, err := transport.Write([]byte{0x00})
	assert.ErrorIs(t, err, txsigner.ErrTransportClosed)
	_, err = transport.Read(make([]byte, 1))
	assert.True(t, txsigner.IsFatal(err))
}
