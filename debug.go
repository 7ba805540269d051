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
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// debugEnabled controls whether debug lines reach the console
var debugEnabled atomic.Bool

// consoleLogger writes human-readable debug lines, stderr unless redirected
var consoleLogger atomic.Pointer[zerolog.Logger]

func newConsoleLogger(w io.Writer, noColor bool) *zerolog.Logger {
	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    noColor,
		TimeFormat: "15:04:05.000",
	}).With().Timestamp().Str("component", "txsigner").Logger()
	return &logger
}

func init() {
	consoleLogger.Store(newConsoleLogger(os.Stderr, false))

	if os.Getenv("TXSIGNER_DEBUG") != "" || os.Getenv("DEBUG") != "" {
		debugEnabled.Store(true)
	}
}

// Debugf prints debug information.
// Always writes to the session log file (if initialized).
// Only prints to the console when debug mode is enabled.
func Debugf(format string, args ...any) {
	message := fmt.Sprintf(format, args...)

	if l := currentSessionLogger(); l != nil {
		l.Debug().Msg(message)
	}

	if debugEnabled.Load() {
		consoleLogger.Load().Debug().Msg(message)
	}
}

// Debugln prints debug information with fmt.Sprint formatting.
func Debugln(args ...any) {
	Debugf("%s", fmt.Sprint(args...))
}

// SetDebugEnabled allows programmatic control of debug logging
func SetDebugEnabled(enabled bool) {
	debugEnabled.Store(enabled)
}

// DebugEnabled reports whether console debug output is on
func DebugEnabled() bool {
	return debugEnabled.Load()
}

// SetDebugOutput redirects console debug output, mainly for tests. It is
// safe to call while other goroutines log.
func SetDebugOutput(w io.Writer) {
	consoleLogger.Store(newConsoleLogger(w, true))
}
