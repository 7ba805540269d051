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

package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "txsigner.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_FullFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
device = "/dev/ttyACM0"
baud = 57600
timeout = "1500ms"
debug = true
chain_id = 8453
contract = "0xa7f1b7b98ee6704afb743a0e38c282ca9b850e82"
session_log = "/tmp/logs"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", cfg.Device)
	assert.Equal(t, 57600, cfg.Baud)
	assert.Equal(t, 1500*time.Millisecond, cfg.ReadTimeout())
	assert.True(t, cfg.Debug)
	assert.Equal(t, "/tmp/logs", cfg.SessionLog)
	require.True(t, cfg.HasPolicy())

	policy := cfg.Policy()
	assert.Equal(t, 0, policy.ChainID.Cmp(big.NewInt(0x2105)))
	assert.Equal(t, common.HexToAddress("0xa7f1b7b98ee6704afb743a0e38c282ca9b850e82"), policy.Contract)
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, `device = "COM4"`))
	require.NoError(t, err)
	assert.Equal(t, "COM4", cfg.Device)
	assert.Equal(t, DefaultBaudRate, cfg.Baud)
	assert.Zero(t, cfg.ReadTimeout())
	assert.False(t, cfg.HasPolicy())
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		errText string
	}{
		{name: "syntax", content: `baud = `, errText: "config parse failed"},
		{name: "unknown key", content: `port = "COM1"`, errText: "config parse failed"},
		{name: "bad duration", content: `timeout = "soon"`, errText: "invalid duration"},
		{name: "zero baud", content: `baud = 0`, errText: "baud must be positive"},
		{name: "negative timeout", content: `timeout = "-1s"`, errText: "timeout must not be negative"},
		{name: "bad contract", content: `contract = "0x1234"`, errText: "not a hex address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEncode_LoadsBack(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Device = "/dev/ttyUSB1"
	cfg.Timeout = Duration(2 * time.Second)
	cfg.ChainID = 1

	out, err := Encode(cfg)
	require.NoError(t, err)
	assert.Regexp(t, `timeout = ['"]2s['"]`, string(out))

	loaded, err := Load(writeConfig(t, string(out)))
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
