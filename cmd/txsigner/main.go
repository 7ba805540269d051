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

// Command txsigner talks to a signer board over a serial port.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli"

	txsigner "github.com/ZaparooProject/go-txsigner"
	"github.com/ZaparooProject/go-txsigner/internal/config"
	"github.com/ZaparooProject/go-txsigner/internal/logging"
)

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "dev"

// Exit statuses
const (
	exitOK       = 0
	exitError    = 1
	exitDeclined = 2
)

// errDeclined is returned by sign when the device produced no signature
var errDeclined = errors.New("device declined the transaction")

// connectFunc opens and handshakes a device, swapped out in tests
type connectFunc func(ctx context.Context, cfg config.Config) (*txsigner.Device, error)

type metadata struct {
	ctx     context.Context
	w       io.Writer
	e       io.Writer
	connect connectFunc
	cfg     config.Config
}

func main() {
	os.Exit(mainWithExitCode(os.Args))
}

func mainWithExitCode(args []string) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			log.Warn().Msg("shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	m := &metadata{ctx: ctx, w: os.Stdout, e: os.Stderr, connect: connectToDevice}
	return exitCode(newApp(m).Run(args), m)
}

// exitCode maps a command result to the process exit status
func exitCode(err error, m *metadata) int {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return exitOK
	case errors.Is(err, errDeclined):
		return exitDeclined
	}

	_, _ = fmt.Fprintf(m.e, "Error: %v\n", err)
	if te := txsigner.GetTrace(err); te != nil && m.cfg.Debug {
		_, _ = fmt.Fprint(m.e, te.FormatTrace())
	}
	return exitError
}

func newApp(m *metadata) *cli.App {
	app := cli.NewApp()
	app.Name = "txsigner"
	app.Usage = "sign EIP-2930 transactions with a serial-attached signer"
	app.Version = version
	app.Writer = m.w
	app.ErrWriter = m.e

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config, c",
			EnvVar: "TXSIGNER_CONFIG",
			Usage:  " read settings from TOML `FILE`",
		},
		cli.StringFlag{
			Name:   "device, d",
			EnvVar: "TXSIGNER_DEVICE",
			Usage:  " serial `PORT`, auto-detected when empty",
		},
		cli.IntFlag{
			Name:  "baud, b",
			Value: config.DefaultBaudRate,
			Usage: " serial `RATE`",
		},
		cli.DurationFlag{
			Name:  "timeout, t",
			Usage: " read `TIMEOUT`, 0 waits forever",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: " print wire-level debug output",
		},
		cli.StringFlag{
			Name:  "session-log",
			Usage: " write a session log file into `DIR`",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:      "sign",
			Usage:     "sign a hex-encoded transaction",
			ArgsUsage: "HEX (- reads from stdin)",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "decode",
					Usage: " decode the signed transaction and recover its sender",
				},
			},
			Action: func(c *cli.Context) error { return runSign(c, m) },
		},
		{
			Name:   "ping",
			Usage:  "check that the device answers",
			Action: func(c *cli.Context) error { return runPing(c, m) },
		},
		{
			Name:  "detect",
			Usage: "list serial ports that may be signers",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "mode, m",
					Value: "safe",
					Usage: " detection `MODE` [passive|safe|full]",
				},
			},
			Action: func(c *cli.Context) error { return runDetect(c, m) },
		},
		{
			Name:  "build",
			Usage: "build an unsigned EIP-2930 transaction",
			Flags: []cli.Flag{
				cli.Uint64Flag{
					Name:  "chain-id",
					Usage: " chain `ID`, defaults to the config file's chain_id",
				},
				cli.Uint64Flag{
					Name:  "nonce",
					Usage: " account `NONCE`",
				},
				cli.StringFlag{
					Name:  "gas-price",
					Value: "0",
					Usage: " gas price in `WEI`",
				},
				cli.Uint64Flag{
					Name:  "gas",
					Value: 100000,
					Usage: " gas `LIMIT`",
				},
				cli.StringFlag{
					Name:  "to",
					Usage: " contract `ADDRESS`, defaults to the config file's contract",
				},
				cli.StringFlag{
					Name:  "data",
					Usage: " call data as `HEX`",
				},
			},
			Action: func(c *cli.Context) error { return runBuild(c, m) },
		},
		{
			Name:   "config",
			Usage:  "print the effective settings as TOML",
			Action: func(c *cli.Context) error { return runConfig(c, m) },
		},
	}

	app.Before = func(c *cli.Context) error {
		cfg, err := resolveConfig(c)
		if err != nil {
			return err
		}
		m.cfg = cfg

		logging.Init(app.Name, m.e, cfg.Debug)
		txsigner.SetDebugEnabled(cfg.Debug)

		if cfg.SessionLog != "" {
			path, err := txsigner.InitSessionLog(cfg.SessionLog)
			if err != nil {
				return err
			}
			log.Info().Str("path", path).Msg("session log started")
		}
		return nil
	}

	app.After = func(*cli.Context) error {
		return txsigner.CloseSessionLog()
	}

	return app
}

// resolveConfig layers global flags over the config file over defaults
func resolveConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	if c.IsSet("device") {
		cfg.Device = c.String("device")
	}
	if c.IsSet("baud") {
		cfg.Baud = c.Int("baud")
	}
	if c.IsSet("timeout") {
		cfg.Timeout = config.Duration(c.Duration("timeout"))
	}
	if c.Bool("debug") {
		cfg.Debug = true
	}
	if c.IsSet("session-log") {
		cfg.SessionLog = c.String("session-log")
	}

	if err := config.Validate(cfg); err != nil {
		return config.Config{}, fmt.Errorf("invalid settings: %w", err)
	}
	return cfg, nil
}
