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

package txsigner_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	txsigner "github.com/ZaparooProject/go-txsigner"
	"github.com/ZaparooProject/go-txsigner/mocks"
)

// readsFrom answers Read calls from r
func readsFrom(r *bytes.Reader) func([]byte) (int, error) {
	return r.Read
}

func TestDevice_WithGoMockTransport(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	transport := mocks.NewMockTransport(ctl)
	transport.EXPECT().SetTimeout(2 * time.Second).Return(nil).Times(1)
	transport.EXPECT().Type().Return(txsigner.TransportUART).AnyTimes()

	request, err := txsigner.EncodeRequest([]byte{0x01, 0x02})
	require.NoError(t, err)
	transport.EXPECT().Write(request).Return(len(request), nil).Times(1)

	response := bytes.NewReader([]byte{0x5A, 0xA5, 0xFE})
	transport.EXPECT().Read(gomock.Any()).DoAndReturn(readsFrom(response)).MinTimes(1)

	device, err := txsigner.New(transport, txsigner.WithTimeout(2*time.Second))
	require.NoError(t, err)

	res, err := device.Sign(context.Background(), []byte{0x01, 0x02})
	require.NoError(t, err)
	assert.True(t, res.Declined())
}

func TestDevice_GoMockWriteFailure(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	transport := mocks.NewMockTransport(ctl)
	transport.EXPECT().Type().Return(txsigner.TransportUART).AnyTimes()
	transport.EXPECT().Write(gomock.Any()).Return(0, errors.New("usb stall")).Times(1)
	transport.EXPECT().Read(gomock.Any()).Times(0)

	device, err := txsigner.New(transport)
	require.NoError(t, err)

	_, err = device.Sign(context.Background(), []byte{0x01})
	require.Error(t, err)
	assert.Equal(t, txsigner.KindTransport, txsigner.KindOf(err))
	assert.ErrorIs(t, err, txsigner.ErrTransportWrite)

	te := txsigner.GetTrace(err)
	require.NotNil(t, te)
	assert.Equal(t, "uart", te.Transport)
}

func TestDevice_GoMockCloseError(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	transport := mocks.NewMockTransport(ctl)
	transport.EXPECT().Close().Return(errors.New("busy")).Times(1)

	device, err := txsigner.New(transport)
	require.NoError(t, err)

	err = device.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to close transport: busy")
}

func TestDevice_GoMockTimeoutSurfaces(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	transport := mocks.NewMockTransport(ctl)
	transport.EXPECT().Type().Return(txsigner.TransportUART).AnyTimes()
	transport.EXPECT().Write(gomock.Any()).DoAndReturn(func(p []byte) (int, error) {
		return len(p), nil
	}).Times(1)
	transport.EXPECT().Read(gomock.Any()).Return(0, txsigner.NewTimeoutError("read", "COM5")).Times(1)

	device, err := txsigner.New(transport)
	require.NoError(t, err)

	err = device.Ping(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, txsigner.ErrTransportTimeout)
	assert.False(t, txsigner.IsFatal(err))
}
