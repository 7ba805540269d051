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

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	txsigner "github.com/ZaparooProject/go-txsigner"
	"github.com/ZaparooProject/go-txsigner/detection"
	_ "github.com/ZaparooProject/go-txsigner/detection/uart"
	"github.com/ZaparooProject/go-txsigner/internal/config"
	"github.com/ZaparooProject/go-txsigner/transport/uart"
)

// newTransport opens a serial port with the configured line settings
func newTransport(cfg config.Config) txsigner.TransportFactory {
	return func(path string) (txsigner.Transport, error) {
		if path == "" {
			return nil, errors.New("empty device path")
		}
		transport, err := uart.New(path,
			uart.WithBaudRate(cfg.Baud),
			uart.WithReadTimeout(cfg.ReadTimeout()))
		if err != nil {
			return nil, fmt.Errorf("failed to create UART transport for %s: %w", path, err)
		}
		return transport, nil
	}
}

// newTransportFromDevice opens a transport for a detected device
func newTransportFromDevice(cfg config.Config) txsigner.TransportFromDeviceFactory {
	return func(device detection.DeviceInfo) (txsigner.Transport, error) {
		switch strings.ToLower(device.Transport) {
		case "uart":
			return newTransport(cfg)(device.Path)
		default:
			return nil, fmt.Errorf("unsupported transport type: %s", device.Transport)
		}
	}
}

func detectionOptions(cfg config.Config) detection.Options {
	opts := detection.DefaultOptions()
	opts.BaudRate = cfg.Baud
	return opts
}

func connectToDevice(ctx context.Context, cfg config.Config) (*txsigner.Device, error) {
	connectOpts := []txsigner.ConnectOption{
		txsigner.WithConnectTimeout(cfg.ReadTimeout()),
	}

	if cfg.Device == "" {
		log.Debug().Msg("auto-detecting signer devices")
		connectOpts = append(connectOpts,
			txsigner.WithAutoDetection(),
			txsigner.WithDetectionOptions(detectionOptions(cfg)),
			txsigner.WithTransportFromDeviceFactory(newTransportFromDevice(cfg)))
	} else {
		log.Debug().Str("device", cfg.Device).Msg("opening device")
		connectOpts = append(connectOpts, txsigner.WithTransportFactory(newTransport(cfg)))
	}

	device, err := txsigner.ConnectDevice(ctx, cfg.Device, connectOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to signer: %w", err)
	}
	return device, nil
}

// withDevice connects, runs fn and closes the device
func withDevice(m *metadata, fn func(*txsigner.Device) error) error {
	device, err := m.connect(m.ctx, m.cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := device.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close device")
		}
	}()
	return fn(device)
}
