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
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli"

	"github.com/ZaparooProject/go-txsigner/detection"
	"github.com/ZaparooProject/go-txsigner/internal/config"
	"github.com/ZaparooProject/go-txsigner/pkg/ethtx"
)

// detectFunc is swapped out in tests
var detectFunc = detection.DetectAll

func parseMode(s string) (detection.Mode, error) {
	switch strings.ToLower(s) {
	case "passive":
		return detection.Passive, nil
	case "safe", "":
		return detection.Safe, nil
	case "full":
		return detection.Full, nil
	default:
		return 0, fmt.Errorf("unknown detection mode %q", s)
	}
}

func runDetect(c *cli.Context, m *metadata) error {
	mode, err := parseMode(c.String("mode"))
	if err != nil {
		return err
	}

	opts := detectionOptions(m.cfg)
	opts.Mode = mode
	opts.EnableCache = false

	devices, err := detectFunc(m.ctx, &opts)
	if errors.Is(err, detection.ErrNoDevicesFound) {
		_, _ = fmt.Fprintln(m.w, "no signer devices found")
		return nil
	}
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}

	for _, d := range devices {
		line := d.String()
		if name := d.Name; name != "" {
			line += " " + name
		}
		if vidpid, ok := d.Metadata["vidpid"]; ok {
			line += " [" + vidpid + "]"
		}
		_, _ = fmt.Fprintln(m.w, line)
	}
	return nil
}

func runBuild(c *cli.Context, m *metadata) error {
	tx, err := unsignedFromFlags(c, m.cfg)
	if err != nil {
		return err
	}

	raw, err := ethtx.BuildUnsigned(tx)
	if err != nil {
		return err
	}
	if m.cfg.HasPolicy() {
		if err := ethtx.Verify(raw, m.cfg.Policy()); err != nil {
			return fmt.Errorf("transaction would be rejected: %w", err)
		}
	}

	_, _ = fmt.Fprintln(m.w, hexutil.Encode(raw))
	return nil
}

func unsignedFromFlags(c *cli.Context, cfg config.Config) (ethtx.UnsignedTx, error) {
	chainID := c.Uint64("chain-id")
	if chainID == 0 {
		chainID = cfg.ChainID
	}
	if chainID == 0 {
		return ethtx.UnsignedTx{}, errors.New("chain id is required (--chain-id or chain_id)")
	}

	to := c.String("to")
	if to == "" {
		to = cfg.Contract
	}
	if !common.IsHexAddress(to) {
		return ethtx.UnsignedTx{}, fmt.Errorf("contract address %q is not valid", to)
	}

	gasPrice, ok := new(big.Int).SetString(c.String("gas-price"), 0)
	if !ok || gasPrice.Sign() < 0 {
		return ethtx.UnsignedTx{}, fmt.Errorf("gas price %q is not a non-negative integer", c.String("gas-price"))
	}

	var data []byte
	if s := c.String("data"); s != "" {
		decoded, err := hexutil.Decode(ensureHexPrefix(s))
		if err != nil {
			return ethtx.UnsignedTx{}, fmt.Errorf("call data is not valid hex: %w", err)
		}
		data = decoded
	}

	return ethtx.UnsignedTx{
		ChainID:  new(big.Int).SetUint64(chainID),
		Nonce:    c.Uint64("nonce"),
		GasPrice: gasPrice,
		Gas:      c.Uint64("gas"),
		To:       common.HexToAddress(to),
		Data:     data,
	}, nil
}

func ensureHexPrefix(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s
	}
	return "0x" + s
}

func runConfig(_ *cli.Context, m *metadata) error {
	out, err := config.Encode(m.cfg)
	if err != nil {
		return err
	}
	_, err = m.w.Write(out)
	return err
}
