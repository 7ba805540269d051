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
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli"

	txsigner "github.com/ZaparooProject/go-txsigner"
	"github.com/ZaparooProject/go-txsigner/pkg/ethtx"
)

func runSign(c *cli.Context, m *metadata) error {
	tx, err := readTransaction(c.Args().First(), os.Stdin)
	if err != nil {
		return err
	}

	return withDevice(m, func(device *txsigner.Device) error {
		res, err := device.Sign(m.ctx, tx)
		if err != nil {
			return err
		}
		if res.Declined() {
			_, _ = fmt.Fprintln(m.w, "declined")
			return errDeclined
		}

		_, _ = fmt.Fprintln(m.w, res.String())
		if !c.Bool("decode") {
			return nil
		}
		return printDecoded(m, res.Signature)
	})
}

func printDecoded(m *metadata, signed []byte) error {
	var chainID *big.Int
	if m.cfg.ChainID != 0 {
		chainID = new(big.Int).SetUint64(m.cfg.ChainID)
	}

	decoded, from, err := ethtx.DecodeSigned(signed, chainID)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(m.w, "hash:  %s\n", decoded.Hash().Hex())
	_, _ = fmt.Fprintf(m.w, "from:  %s\n", from.Hex())
	_, _ = fmt.Fprintf(m.w, "chain: %s\n", decoded.ChainId())
	_, _ = fmt.Fprintf(m.w, "nonce: %d\n", decoded.Nonce())
	return nil
}

// readTransaction decodes arg as hex, or stdin when arg is "-"
func readTransaction(arg string, stdin io.Reader) ([]byte, error) {
	if arg == "" {
		return nil, errors.New("missing transaction HEX argument")
	}
	if arg == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		arg = string(data)
	}

	arg = strings.TrimPrefix(strings.TrimSpace(arg), "0x")
	tx, err := hex.DecodeString(arg)
	if err != nil {
		return nil, fmt.Errorf("transaction is not valid hex: %w", err)
	}
	return tx, nil
}

func runPing(_ *cli.Context, m *metadata) error {
	return withDevice(m, func(device *txsigner.Device) error {
		if err := device.Ping(m.ctx); err != nil {
			return err
		}
		log.Debug().Msg("ping answered")
		_, _ = fmt.Fprintln(m.w, "device answered")
		return nil
	})
}
