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

// Command signer-emu serves the signer protocol on a serial port, signing with
// a software key. Pair it with a virtual null-modem cable to run txsigner
// without hardware.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli"

	"github.com/ZaparooProject/go-txsigner/emulator"
	"github.com/ZaparooProject/go-txsigner/internal/config"
	"github.com/ZaparooProject/go-txsigner/internal/logging"
	"github.com/ZaparooProject/go-txsigner/pkg/ethtx"
	"github.com/ZaparooProject/go-txsigner/transport/uart"
)

// pollInterval bounds how long a blocked read delays shutdown
const pollInterval = 200 * time.Millisecond

type openFunc func(path string, baud int) (io.ReadWriteCloser, error)

type metadata struct {
	ctx  context.Context
	w    io.Writer
	e    io.Writer
	open openFunc
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := &metadata{ctx: ctx, w: os.Stdout, e: os.Stderr, open: openSerial}
	if err := newApp(m).Run(os.Args); err != nil {
		_, _ = fmt.Fprintf(m.e, "Error: %v\n", err)
		stop()
		os.Exit(1) //nolint:gocritic // stop already ran
	}
}

func openSerial(path string, baud int) (io.ReadWriteCloser, error) {
	return uart.New(path, uart.WithBaudRate(baud), uart.WithReadTimeout(pollInterval))
}

func newApp(m *metadata) *cli.App {
	app := cli.NewApp()
	app.Name = "signer-emu"
	app.Usage = "emulate a transaction signer board on a serial port"
	app.Writer = m.w
	app.ErrWriter = m.e

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: " take chain_id, contract and baud from TOML `FILE`",
		},
		cli.StringFlag{
			Name:  "port, p",
			Usage: " serial `PORT` to serve on",
		},
		cli.IntFlag{
			Name:  "baud, b",
			Value: config.DefaultBaudRate,
			Usage: " serial `RATE`",
		},
		cli.StringFlag{
			Name:   "key, k",
			EnvVar: "SIGNER_EMU_KEY",
			Usage:  " secp256k1 private key as `HEX`",
		},
		cli.Uint64Flag{
			Name:  "chain-id",
			Usage: " only sign for chain `ID`",
		},
		cli.StringFlag{
			Name:  "contract",
			Usage: " only sign calls to contract `ADDRESS`",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: " log every frame",
		},
	}

	app.Action = func(c *cli.Context) error {
		logging.Init(app.Name, m.e, c.Bool("debug"))
		return run(c, m)
	}

	return app
}

func run(c *cli.Context, m *metadata) error {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if c.IsSet("baud") {
		cfg.Baud = c.Int("baud")
	}
	if c.IsSet("chain-id") {
		cfg.ChainID = c.Uint64("chain-id")
	}
	if c.IsSet("contract") {
		cfg.Contract = c.String("contract")
	}

	policy, err := policyFrom(cfg)
	if err != nil {
		return err
	}

	keyHex := strings.TrimPrefix(strings.TrimSpace(c.String("key")), "0x")
	if keyHex == "" {
		return errors.New("a signing key is required (--key or SIGNER_EMU_KEY)")
	}
	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return fmt.Errorf("invalid signing key: %w", err)
	}

	path := c.String("port")
	if path == "" {
		return errors.New("a serial port is required (--port)")
	}
	port, err := m.open(path, cfg.Baud)
	if err != nil {
		return err
	}
	defer func() {
		if err := port.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close port")
		}
	}()

	log.Info().
		Str("port", path).
		Str("address", crypto.PubkeyToAddress(key.PublicKey).Hex()).
		Stringer("chain_id", policy.ChainID).
		Str("contract", policy.Contract.Hex()).
		Msg("serving")

	board := emulator.New(key, policy, emulator.WithLogger(log.Logger))
	if err := board.Serve(m.ctx, port); err != nil {
		return err
	}
	log.Info().Int("requests", board.Requests()).Msg("stopped")
	return nil
}

// policyFrom requires both halves of the policy; the firmware has no
// permissive mode
func policyFrom(cfg config.Config) (ethtx.Policy, error) {
	if cfg.ChainID == 0 {
		return ethtx.Policy{}, errors.New("a chain id is required (--chain-id or chain_id)")
	}
	if !common.IsHexAddress(cfg.Contract) {
		return ethtx.Policy{}, fmt.Errorf("contract address %q is not valid", cfg.Contract)
	}
	return cfg.Policy(), nil
}
