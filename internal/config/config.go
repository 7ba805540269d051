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

// Package config loads the command line tools' TOML settings file.
package config

import (
	"bytes"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pelletier/go-toml/v2"

	"github.com/ZaparooProject/go-txsigner/pkg/ethtx"
)

// DefaultBaudRate matches the firmware's serial setup
const DefaultBaudRate = 115200

// Duration is a time.Duration written as a Go duration string ("1500ms")
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config holds the settings shared by txsigner and signer-emu
type Config struct {
	Device     string   `toml:"device"`
	Contract   string   `toml:"contract"`
	SessionLog string   `toml:"session_log"`
	Baud       int      `toml:"baud"`
	Timeout    Duration `toml:"timeout"`
	ChainID    uint64   `toml:"chain_id"`
	Debug      bool     `toml:"debug"`
}

// Default returns the settings used when no file is given
func Default() Config {
	return Config{
		Baud: DefaultBaudRate,
	}
}

// Load reads path over the defaults and validates the result
func Load(path string) (Config, error) {
	cfg := Default()
	if err := loadToml(path, &cfg); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is chosen by the user
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

// Validate checks values a file could get wrong
func Validate(cfg Config) error {
	if cfg.Baud <= 0 {
		return fmt.Errorf("baud must be positive, got %d", cfg.Baud)
	}
	if cfg.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %v", time.Duration(cfg.Timeout))
	}
	if c := strings.TrimSpace(cfg.Contract); c != "" && !common.IsHexAddress(c) {
		return fmt.Errorf("contract %q is not a hex address", c)
	}
	return nil
}

// Encode renders cfg as TOML
func Encode(cfg Config) ([]byte, error) {
	out, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("config encode failed: %w", err)
	}
	return out, nil
}

// ReadTimeout returns the transport read timeout
func (c Config) ReadTimeout() time.Duration {
	return time.Duration(c.Timeout)
}

// HasPolicy reports whether both chain id and contract are set
func (c Config) HasPolicy() bool {
	return c.ChainID != 0 && strings.TrimSpace(c.Contract) != ""
}

// Policy returns the signing policy the settings describe
func (c Config) Policy() ethtx.Policy {
	return ethtx.Policy{
		ChainID:  new(big.Int).SetUint64(c.ChainID),
		Contract: common.HexToAddress(strings.TrimSpace(c.Contract)),
	}
}
