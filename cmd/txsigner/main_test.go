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

//nolint:paralleltest // The app configures process-wide logging
package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	txsigner "github.com/ZaparooProject/go-txsigner"
	"github.com/ZaparooProject/go-txsigner/detection"
	"github.com/ZaparooProject/go-txsigner/emulator"
	"github.com/ZaparooProject/go-txsigner/internal/config"
)

const (
	sampleTxHex = "01f88882210504835c84a0825f8d94a7f1b7b98ee6704afb743a0e38c282ca9b850e8280b864" +
		"ec01413d" +
		"0000000000000000000000000000000000000000000000000000000000000020" +
		"0000000000000000000000000000000000000000000000000000000000000005" +
		"3132333435000000000000000000000000000000000000000000000000000000" +
		"c0"
	sampleContract = "0xa7f1b7b98ee6704afb743a0e38c282ca9b850e82"
	testKeyHex     = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
)

// sampleData is the call data of sampleTxHex, between the rlp string header
// and the empty access list
var sampleData = sampleTxHex[len(sampleTxHex)-202 : len(sampleTxHex)-2]

type appResult struct {
	stdout string
	stderr string
	code   int
}

// emulatedConnect connects the app to an in-process board enforcing the
// sample policy
func emulatedConnect(t *testing.T) (connectFunc, *emulator.Device) {
	t.Helper()
	key, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.ChainID = 0x2105
	cfg.Contract = sampleContract
	board := emulator.New(key, cfg.Policy())

	connect := func(ctx context.Context, _ config.Config) (*txsigner.Device, error) {
		return txsigner.ConnectDevice(ctx, "emulator",
			txsigner.WithTransportFactory(func(string) (txsigner.Transport, error) {
				return emulator.NewTransport(board), nil
			}))
	}
	return connect, board
}

func runApp(t *testing.T, connect connectFunc, args ...string) appResult {
	t.Helper()
	t.Cleanup(func() { txsigner.SetDebugEnabled(false) })

	var stdout, stderr bytes.Buffer
	m := &metadata{ctx: context.Background(), w: &stdout, e: &stderr, connect: connect}
	code := exitCode(newApp(m).Run(append([]string{"txsigner"}, args...)), m)
	return appResult{stdout: stdout.String(), stderr: stderr.String(), code: code}
}

func TestSign_PrintsSignature(t *testing.T) {
	connect, board := emulatedConnect(t)

	res := runApp(t, connect, "sign", "--decode", "0x"+sampleTxHex)
	require.Equal(t, exitOK, res.code, res.stderr)

	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "01f8"), lines[0])

	key, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)
	assert.Equal(t, "from:  "+crypto.PubkeyToAddress(key.PublicKey).Hex(), lines[2])
	assert.Equal(t, "chain: 8453", lines[3])
	assert.Equal(t, "nonce: 4", lines[4])
	assert.Equal(t, common.FromHex(sampleTxHex), board.LastTransaction())
}

func TestSign_FromStdin(t *testing.T) {
	tx, err := readTransaction("-", strings.NewReader("  0x0102\n"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, tx)

	_, err = readTransaction("", nil)
	require.Error(t, err)

	_, err = readTransaction("zz", nil)
	assert.ErrorContains(t, err, "not valid hex")
}

func TestSign_DeclinedExitCode(t *testing.T) {
	connect, _ := emulatedConnect(t)

	res := runApp(t, connect, "sign", "0x")
	assert.Equal(t, exitDeclined, res.code)
	assert.Equal(t, "declined\n", res.stdout)
}

func TestSign_RejectedExitCode(t *testing.T) {
	connect, _ := emulatedConnect(t)

	res := runApp(t, connect, "sign", "02c0")
	assert.Equal(t, exitError, res.code)
	assert.Contains(t, res.stderr, "signer error 0x11")
	assert.Empty(t, res.stdout)
}

func TestSign_ErrorPrintsTraceWhenDebugging(t *testing.T) {
	connect, board := emulatedConnect(t)
	board.DropNextResponse()

	// ConnectDevice's ping is dropped
	res := runApp(t, connect, "--debug", "ping")
	assert.Equal(t, exitError, res.code)
	assert.Contains(t, res.stderr, "Error: device did not answer ping")
	assert.Contains(t, res.stderr, "Wire trace")
}

func TestPing(t *testing.T) {
	connect, board := emulatedConnect(t)

	res := runApp(t, connect, "ping")
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.Equal(t, "device answered\n", res.stdout)
	assert.Equal(t, 2, board.Requests())
}

func TestConnectFailure(t *testing.T) {
	failing := func(context.Context, config.Config) (*txsigner.Device, error) {
		return nil, errors.New("no such port")
	}

	res := runApp(t, failing, "ping")
	assert.Equal(t, exitError, res.code)
	assert.Contains(t, res.stderr, "Error: no such port")
}

func TestBuild_ReproducesSample(t *testing.T) {
	res := runApp(t, nil, "build",
		"--chain-id", "8453",
		"--nonce", "4",
		"--gas-price", "6063264",
		"--gas", "24461",
		"--to", sampleContract,
		"--data", sampleData)

	require.Equal(t, exitOK, res.code, res.stderr)
	assert.Equal(t, "0x"+sampleTxHex+"\n", res.stdout)
}

func TestBuild_UsesConfigPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "txsigner.toml")
	require.NoError(t, os.WriteFile(path, []byte("chain_id = 1\ncontract = \""+sampleContract+"\"\n"), 0o600))

	res := runApp(t, nil, "--config", path, "build", "--gas-price", "0x10")
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.True(t, strings.HasPrefix(res.stdout, "0x01"), res.stdout)

	// A chain id other than the configured one would be refused
	res = runApp(t, nil, "--config", path, "build", "--chain-id", "5")
	assert.Equal(t, exitError, res.code)
	assert.Contains(t, res.stderr, "transaction would be rejected")
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name    string
		errText string
		args    []string
	}{
		{name: "no chain", args: []string{"build", "--to", sampleContract}, errText: "chain id is required"},
		{name: "bad address", args: []string{"build", "--chain-id", "1", "--to", "0x12"}, errText: "not valid"},
		{
			name:    "bad gas price",
			args:    []string{"build", "--chain-id", "1", "--to", sampleContract, "--gas-price", "lots"},
			errText: "gas price",
		},
		{
			name:    "bad data",
			args:    []string{"build", "--chain-id", "1", "--to", sampleContract, "--data", "0xabc"},
			errText: "call data is not valid hex",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runApp(t, nil, tt.args...)
			assert.Equal(t, exitError, res.code)
			assert.Contains(t, res.stderr, tt.errText)
		})
	}
}

func TestDetect_ListsDevices(t *testing.T) {
	orig := detectFunc
	t.Cleanup(func() { detectFunc = orig })

	var gotMode detection.Mode
	detectFunc = func(_ context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
		gotMode = opts.Mode
		return []detection.DeviceInfo{{
			Transport:  "uart",
			Path:       "/dev/ttyACM0",
			Name:       "Arduino",
			Confidence: detection.Medium,
			Metadata:   map[string]string{"vidpid": "2341:0043"},
		}}, nil
	}

	res := runApp(t, nil, "detect", "--mode", "passive")
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.Equal(t, detection.Passive, gotMode)
	assert.Equal(t, "uart device at /dev/ttyACM0 (confidence: medium) Arduino [2341:0043]\n", res.stdout)
}

func TestDetect_NothingFound(t *testing.T) {
	orig := detectFunc
	t.Cleanup(func() { detectFunc = orig })
	detectFunc = func(context.Context, *detection.Options) ([]detection.DeviceInfo, error) {
		return nil, detection.ErrNoDevicesFound
	}

	res := runApp(t, nil, "detect")
	assert.Equal(t, exitOK, res.code)
	assert.Equal(t, "no signer devices found\n", res.stdout)

	res = runApp(t, nil, "detect", "--mode", "loud")
	assert.Equal(t, exitError, res.code)
	assert.Contains(t, res.stderr, "unknown detection mode")
}

func TestConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "txsigner.toml")
	require.NoError(t, os.WriteFile(path, []byte("device = \"/dev/ttyUSB0\"\nbaud = 9600\n"), 0o600))

	res := runApp(t, nil, "--config", path, "--device", "/dev/ttyACM3", "--timeout", "2s", "config")
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.Regexp(t, `device = ['"]/dev/ttyACM3['"]`, res.stdout)
	assert.Contains(t, res.stdout, "baud = 9600")
	assert.Regexp(t, `timeout = ['"]2s['"]`, res.stdout)
}

func TestConfig_InvalidSettings(t *testing.T) {
	res := runApp(t, nil, "--baud", "0", "config")
	assert.Equal(t, exitError, res.code)
	assert.Contains(t, res.stderr, "baud must be positive")
}

func TestSessionLog(t *testing.T) {
	dir := t.TempDir()

	res := runApp(t, nil, "--session-log", dir, "config")
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.Empty(t, txsigner.GetSessionLogPath(), "session log must be closed on exit")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "txsigner_"))
}
