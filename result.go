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

import "encoding/hex"

// Outcome distinguishes the two successful ends of an exchange
type Outcome int

const (
	// OutcomeSigned means the device returned result bytes
	OutcomeSigned Outcome = iota
	// OutcomeDeclined means the device answered 0xFE and produced nothing
	OutcomeDeclined
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSigned:
		return "signed"
	case OutcomeDeclined:
		return "declined"
	default:
		return "unknown"
	}
}

// Result is the value of a completed exchange.
// Signature is set only when Outcome is OutcomeSigned.
type Result struct {
	Signature []byte
	Outcome   Outcome
}

// Signed returns true if the device produced a result
func (r Result) Signed() bool {
	return r.Outcome == OutcomeSigned
}

// Declined returns true if the device refused to produce a result
func (r Result) Declined() bool {
	return r.Outcome == OutcomeDeclined
}

// String formats the result for display
func (r Result) String() string {
	if r.Declined() {
		return "declined"
	}
	return hex.EncodeToString(r.Signature)
}
