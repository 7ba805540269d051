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


package emulator

import (
	"context"
	"errors"
	"fmt"
	"io"

	txsigner "github.com/ZaparooProject/go-txsigner"
)

const serveChunkSize = 256

// Serve answers requests arriving on port until ctx is cancelled or the
// stream ends. port should have a read timeout so cancellation is noticed;
// timeout errors from a txsigner transport are treated as idle ticks.
func (d *Device) Serve(ctx context.Context, port io.ReadWriter) error {
	buf := make([]byte, serveChunkSize)
	for {
		if ctx.Err() != nil {
			return nil
		}

		n, err := port.Read(buf)
		if n > 0 {
			_, _ = d.Write(buf[:n])
			if flushErr := d.flushTo(port); flushErr != nil {
				return flushErr
			}
		}

		switch {
		case err == nil:
		case errors.Is(err, txsigner.ErrTransportTimeout):
		case errors.Is(err, io.EOF):
			d.log.Debug().Msg("stream closed")
			return nil
		default:
			return fmt.Errorf("emulator read failed: %w", err)
		}
	}
}

// flushTo writes every pending response byte to w
func (d *Device) flushTo(w io.Writer) error {
	d.mu.Lock()
	pending := d.txBuffer.Bytes()
	out := make([]byte, len(pending))
	copy(out, pending)
	d.txBuffer.Reset()
	d.mu.Unlock()

	if len(out) == 0 {
		return nil
	}
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("emulator write failed: %w", err)
	}
	return nil
}
