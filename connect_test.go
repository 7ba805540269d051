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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-txsigner/detection"
	"github.com/ZaparooProject/go-txsigner/internal/frame"
)

// pongTransport returns a mock that answers one ping
func pongTransport() *MockTransport {
	mock := NewMockTransport()
	mock.QueueResponse(frame.EncodeStatus(frame.StatusDeclined))
	return mock
}

func TestConnectDevice_ManualPath(t *testing.T) {
	t.Parallel()

	mock := pongTransport()
	var openedPath string
	factory := func(path string) (Transport, error) {
		openedPath = path
		return mock, nil
	}

	device, err := ConnectDevice(context.Background(), "/dev/ttyACM0", WithTransportFactory(factory))
	require.NoError(t, err)
	require.NotNil(t, device)

	assert.Equal(t, "/dev/ttyACM0", openedPath)
	assert.Equal(t, 5*time.Second, mock.Timeout())

	reset := make([]byte, frame.ResetLength)
	ping, err := EncodeRequest(nil)
	require.NoError(t, err)
	assert.Equal(t, append(reset, ping...), mock.Written())
}

func TestConnectDevice_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		path    string
		errText string
		opts    []ConnectOption
	}{
		{
			name:    "no factory",
			path:    "COM3",
			errText: "transport factory not provided",
		},
		{
			name: "factory fails",
			path: "COM3",
			opts: []ConnectOption{WithTransportFactory(func(string) (Transport, error) {
				return nil, errors.New("port busy")
			})},
			errText: "failed to create transport for path COM3: port busy",
		},
		{
			name:    "negative timeout",
			path:    "COM3",
			opts:    []ConnectOption{WithConnectTimeout(-time.Second)},
			errText: "connect timeout must not be negative",
		},
		{
			name:    "auto detect without factory",
			opts:    []ConnectOption{WithAutoDetection()},
			errText: "transport device factory not provided",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			device, err := ConnectDevice(context.Background(), tt.path, tt.opts...)
			require.Error(t, err)
			assert.Nil(t, device)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestConnectDevice_SilentDeviceClosesTransport(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	factory := func(string) (Transport, error) { return mock, nil }

	_, err := ConnectDevice(context.Background(), "COM3", WithTransportFactory(factory))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device did not answer ping")
	assert.ErrorIs(t, err, ErrShortRead)
	assert.True(t, mock.IsClosed())
}

func TestConnectDevice_SkipInit(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	factory := func(string) (Transport, error) { return mock, nil }

	device, err := ConnectDevice(context.Background(), "COM3",
		WithTransportFactory(factory),
		WithSkipInit(),
		WithConnectTimeout(time.Second),
		WithDeviceOptions(WithTraceDepth(2)))
	require.NoError(t, err)
	require.NotNil(t, device)
	assert.Empty(t, mock.Written())
	assert.Equal(t, time.Second, mock.Timeout())
	assert.Equal(t, 2, device.config.TraceDepth)
}

func TestConnectDevice_AutoDetectPicksMostConfident(t *testing.T) {
	t.Parallel()

	detector := func(_ context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
		assert.Equal(t, detection.Passive, opts.Mode)
		return []detection.DeviceInfo{
			{Transport: "uart", Path: "/dev/ttyUSB0", Confidence: detection.Low},
			{Transport: "uart", Path: "/dev/ttyACM1", Confidence: detection.High},
			{Transport: "uart", Path: "/dev/ttyACM0", Confidence: detection.Medium},
		}, nil
	}

	var opened string
	fromDevice := func(d detection.DeviceInfo) (Transport, error) {
		opened = d.Path
		return pongTransport(), nil
	}

	detOpts := detection.DefaultOptions()
	detOpts.Mode = detection.Passive

	device, err := ConnectDevice(context.Background(), "",
		WithDeviceDetector(detector),
		WithDetectionOptions(detOpts),
		WithTransportFromDeviceFactory(fromDevice))
	require.NoError(t, err)
	require.NotNil(t, device)
	assert.Equal(t, "/dev/ttyACM1", opened)
}

func TestConnectDevice_AutoDetectFailures(t *testing.T) {
	t.Parallel()

	fromDevice := func(detection.DeviceInfo) (Transport, error) { return pongTransport(), nil }

	empty := func(context.Context, *detection.Options) ([]detection.DeviceInfo, error) {
		return nil, nil
	}
	_, err := ConnectDevice(context.Background(), "",
		WithAutoDetection(),
		WithDeviceDetector(empty),
		WithTransportFromDeviceFactory(fromDevice))
	require.ErrorIs(t, err, ErrDeviceNotFound)

	failing := func(context.Context, *detection.Options) ([]detection.DeviceInfo, error) {
		return nil, detection.ErrNoDevicesFound
	}
	_, err = ConnectDevice(context.Background(), "",
		WithAutoDetection(),
		WithDeviceDetector(failing),
		WithTransportFromDeviceFactory(fromDevice))
	require.ErrorIs(t, err, detection.ErrNoDevicesFound)
	assert.Contains(t, err.Error(), "failed to detect devices")
}
