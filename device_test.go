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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-txsigner/internal/frame"
)

// resettingTransport records calls to ResetInput
type resettingTransport struct {
	*MockTransport
	err    error
	resets int
}

func (r *resettingTransport) ResetInput() error {
	r.resets++
	return r.err
}

func newTestDevice(t *testing.T, opts ...Option) (*Device, *MockTransport) {
	t.Helper()
	mock := NewMockTransport()
	device, err := New(mock, opts...)
	require.NoError(t, err)
	return device, mock
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		transport Transport
		name      string
		opts      []Option
		wantErr   bool
	}{
		{name: "mock transport", transport: NewMockTransport()},
		{name: "nil transport", transport: nil, wantErr: true},
		{name: "with timeout", transport: NewMockTransport(), opts: []Option{WithTimeout(time.Second)}},
		{name: "negative timeout", transport: NewMockTransport(), opts: []Option{WithTimeout(-1)}, wantErr: true},
		{name: "zero trace depth", transport: NewMockTransport(), opts: []Option{WithTraceDepth(0)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			device, err := New(tt.transport, tt.opts...)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, device)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.transport, device.Transport())
		})
	}
}

func TestNew_NilTransportSentinel(t *testing.T) {
	t.Parallel()

	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNilTransport)
}

func TestDevice_TimeoutReachesTransport(t *testing.T) {
	t.Parallel()

	device, mock := newTestDevice(t, WithTimeout(250*time.Millisecond))
	assert.Equal(t, 250*time.Millisecond, mock.Timeout())

	require.NoError(t, device.SetTimeout(time.Second))
	assert.Equal(t, time.Second, mock.Timeout())
}

func TestDevice_Init(t *testing.T) {
	t.Parallel()

	device, mock := newTestDevice(t)
	require.NoError(t, device.Init(context.Background()))
	assert.Equal(t, make([]byte, frame.ResetLength), mock.Written())
}

func TestDevice_InitResetsInput(t *testing.T) {
	t.Parallel()

	rt := &resettingTransport{MockTransport: NewMockTransport()}
	device, err := New(rt)
	require.NoError(t, err)

	require.NoError(t, device.Init(context.Background()))
	assert.Equal(t, 1, rt.resets)

	rt.err = errors.New("flush failed")
	err = device.Init(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init: flush failed")
}

func TestDevice_Sign(t *testing.T) {
	t.Parallel()

	device, mock := newTestDevice(t)
	resp, err := frame.EncodeResponse([]byte{0xAA, 0xBB})
	require.NoError(t, err)
	mock.QueueResponse(resp)

	res, err := device.Sign(context.Background(), []byte{0x01, 0x02})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB}, res.Signature)
}

func TestDevice_SignDeclined(t *testing.T) {
	t.Parallel()

	device, mock := newTestDevice(t)
	mock.QueueResponse(frame.EncodeStatus(frame.StatusDeclined))

	res, err := device.Sign(context.Background(), []byte{0x01})
	require.NoError(t, err)
	assert.True(t, res.Declined())
}

func TestDevice_SignTooLarge(t *testing.T) {
	t.Parallel()

	device, mock := newTestDevice(t)
	_, err := device.Sign(context.Background(), make([]byte, MaxTransactionSize+1))
	require.ErrorIs(t, err, ErrTransactionTooLarge)
	assert.Zero(t, mock.WriteCalls())
}

func TestDevice_SignErrorCarriesTrace(t *testing.T) {
	t.Parallel()

	device, mock := newTestDevice(t, WithTraceDepth(4))
	mock.QueueResponse(frame.EncodeStatus(byte(StatusChainIDInvalid)))

	_, err := device.Sign(context.Background(), []byte{0x01, 0xC0})
	require.Error(t, err)
	assert.Equal(t, KindDevice, KindOf(err))
	assert.Contains(t, err.Error(), "sign: signer error 0x14")

	te := GetTrace(err)
	require.NotNil(t, te)
	assert.Equal(t, "mock", te.Transport)
	require.NotEmpty(t, te.Trace)
	assert.Equal(t, TraceTX, te.Trace[0].Direction)
	assert.Equal(t, []byte{0x5A, 0xA5, 0x02, 0x00, 0x01, 0xC0}, te.Trace[0].Data[:6])
}

func TestDevice_Ping(t *testing.T) {
	t.Parallel()

	device, mock := newTestDevice(t)
	mock.QueueResponse(frame.EncodeStatus(frame.StatusDeclined))
	require.NoError(t, device.Ping(context.Background()))
	assert.Equal(t, []byte{0x5A, 0xA5, 0, 0, 0, 0, 0, 0}, mock.Written())

	resp, err := frame.EncodeResponse([]byte{0x01})
	require.NoError(t, err)
	mock.QueueResponse(resp)
	assert.ErrorIs(t, device.Ping(context.Background()), ErrUnexpectedPong)
}

func TestDevice_CancelledContext(t *testing.T) {
	t.Parallel()

	device, mock := newTestDevice(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := device.Sign(ctx, []byte{0x01})
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, device.Init(ctx), context.Canceled)
	assert.Zero(t, mock.WriteCalls())
}

func TestDevice_CloseReleasesTransport(t *testing.T) {
	t.Parallel()

	device, mock := newTestDevice(t)
	require.NoError(t, device.Close())
	assert.True(t, mock.IsClosed())

	_, err := device.Sign(context.Background(), []byte{0x01})
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.ErrorIs(t, err, ErrTransportClosed)
}

func TestDevice_ConcurrentSignsAreSerialised(t *testing.T) {
	t.Parallel()

	const workers = 8
	device, mock := newTestDevice(t)
	for i := range workers {
		resp, err := frame.EncodeResponse([]byte{byte(i), 0xEE, 0xFF})
		require.NoError(t, err)
		mock.QueueResponse(resp)
	}

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := device.Sign(context.Background(), []byte{0x01})
			if err == nil && len(res.Signature) != 3 {
				err = errors.New("torn response")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, workers, mock.WriteCalls())
}
