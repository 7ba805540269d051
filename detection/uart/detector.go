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


// Package uart registers a detector that finds signers on serial ports.
package uart

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial/enumerator"

	txsigner "github.com/ZaparooProject/go-txsigner"
	"github.com/ZaparooProject/go-txsigner/detection"
	"github.com/ZaparooProject/go-txsigner/transport/uart"
)

const (
	probeTimeout     = 2 * time.Second
	probeReadTimeout = 500 * time.Millisecond
)

// Swapped out in tests
var (
	listPortsFn   = enumerator.GetDetailedPortsList
	probeDeviceFn = probeDevice
)

// productKeywords mark USB product strings of boards running signer firmware
var productKeywords = []string{"arduino", "pico", "esp32", "signer"}

// detector implements the Detector interface for UART devices.
type detector struct{}

// New creates a new UART detector
func New() detection.Detector {
	return &detector{}
}

func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() string {
	return string(txsigner.TransportUART)
}

// Detect searches for signers on serial ports
func (d *detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	ports, err := enumeratePorts()
	if err != nil {
		return nil, err
	}

	devices := d.processPorts(ctx, filterPorts(ports, opts), opts)
	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

// serialPort represents a serial port with metadata
type serialPort struct {
	Path         string
	VIDPID       string
	Product      string
	SerialNumber string
	IsUSB        bool
}

// enumeratePorts lists serial ports with USB metadata where available
func enumeratePorts() ([]serialPort, error) {
	details, err := listPortsFn()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	if len(details) == 0 {
		return nil, detection.ErrNoDevicesFound
	}

	ports := make([]serialPort, 0, len(details))
	for _, pd := range details {
		if pd == nil {
			continue
		}
		port := serialPort{
			Path:         pd.Name,
			Product:      pd.Product,
			SerialNumber: pd.SerialNumber,
			IsUSB:        pd.IsUSB,
		}
		if pd.IsUSB && pd.VID != "" && pd.PID != "" {
			port.VIDPID = detection.FormatVIDPID(pd.VID + ":" + pd.PID)
		}
		ports = append(ports, port)
	}
	return ports, nil
}

// filterPorts removes blocked and ignored ports
func filterPorts(ports []serialPort, opts *detection.Options) []serialPort {
	var filtered []serialPort
	for _, port := range ports {
		if port.VIDPID != "" && detection.IsBlocked(port.VIDPID, opts.Blocklist) {
			continue
		}
		if detection.IsPathIgnored(port.Path, opts.IgnorePaths) {
			continue
		}
		filtered = append(filtered, port)
	}
	return filtered
}

func (d *detector) processPorts(ctx context.Context, ports []serialPort,
	opts *detection.Options,
) []detection.DeviceInfo {
	var devices []detection.DeviceInfo
	for i := range ports {
		if ctx.Err() != nil {
			return devices
		}
		if device, ok := d.processPort(ctx, &ports[i], opts); ok {
			devices = append(devices, device)
		}
	}
	return devices
}

// processPort decides, per mode, whether a port is reported and how confidently.
// A probe that fails always drops the port.
func (*detector) processPort(ctx context.Context, port *serialPort,
	opts *detection.Options,
) (detection.DeviceInfo, bool) {
	likely := isLikelySigner(port)

	switch opts.Mode {
	case detection.Passive:
		if !likely {
			return detection.DeviceInfo{}, false
		}
		return createDeviceInfo(port, detection.Medium), true

	case detection.Safe:
		if !likely {
			return detection.DeviceInfo{}, false
		}

	case detection.Full:

	default:
		return detection.DeviceInfo{}, false
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if !probeDeviceFn(probeCtx, port.Path, opts.BaudRate) {
		return detection.DeviceInfo{}, false
	}
	return createDeviceInfo(port, detection.High), true
}

// createDeviceInfo builds a DeviceInfo struct from port data
func createDeviceInfo(port *serialPort, confidence detection.Confidence) detection.DeviceInfo {
	device := detection.DeviceInfo{
		Transport:  string(txsigner.TransportUART),
		Path:       port.Path,
		Name:       port.Product,
		Confidence: confidence,
		Metadata:   make(map[string]string),
	}
	if board, ok := detection.KnownBoard(port.VIDPID); ok {
		device.Name = board
	}
	if device.Name == "" {
		device.Name = "serial port"
	}

	if port.VIDPID != "" {
		device.Metadata["vidpid"] = port.VIDPID
	}
	if port.Product != "" {
		device.Metadata["product"] = port.Product
	}
	if port.SerialNumber != "" {
		device.Metadata["serial"] = port.SerialNumber
	}
	return device
}

// isLikelySigner checks USB descriptors against boards signer firmware runs on
func isLikelySigner(port *serialPort) bool {
	if _, ok := detection.KnownBoard(port.VIDPID); ok {
		return true
	}

	product := strings.ToLower(port.Product)
	for _, keyword := range productKeywords {
		if strings.Contains(product, keyword) {
			return true
		}
	}
	return false
}

// probeDevice opens the port, resets the firmware parser and sends a ping.
// Only a declined ping counts as a signer.
//
// There is a single attempt per port: retrying on ports that belong to other
// hardware only delays detection.
func probeDevice(ctx context.Context, path string, baud int) bool {
	opts := []uart.Option{uart.WithReadTimeout(probeReadTimeout)}
	if baud > 0 {
		opts = append(opts, uart.WithBaudRate(baud))
	}

	transport, err := uart.New(path, opts...)
	if err != nil {
		txsigner.Debugf("probe %s: %v", path, err)
		return false
	}
	defer func() { _ = transport.Close() }()

	device, err := txsigner.New(transport)
	if err != nil {
		return false
	}
	if err := device.Init(ctx); err != nil {
		txsigner.Debugf("probe %s: %v", path, err)
		return false
	}
	if err := device.Ping(ctx); err != nil {
		txsigner.Debugf("probe %s: %v", path, err)
		return false
	}
	return true
}
