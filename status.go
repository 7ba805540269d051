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

// StatusCode is the byte that follows the magic marker in every response
type StatusCode byte

// Status codes sent by the signer firmware
const (
	StatusOK                StatusCode = 0x00
	StatusSerialReadFailed  StatusCode = 0x01
	StatusTransactionTooBig StatusCode = 0x02

	// Verifier rejections, 0x11 through 0x18
	StatusNotEIP2930         StatusCode = 0x11
	StatusRLPDecodeFailed    StatusCode = 0x12
	StatusRLPInvalid         StatusCode = 0x13
	StatusChainIDInvalid     StatusCode = 0x14
	StatusContractInvalid    StatusCode = 0x15
	StatusValueNotZero       StatusCode = 0x16
	StatusAccessListNotEmpty StatusCode = 0x17
	StatusDataInvalid        StatusCode = 0x18

	StatusDeclined StatusCode = 0xFE
)

var statusMeanings = map[StatusCode]string{
	StatusOK:                 "success",
	StatusSerialReadFailed:   "request frame could not be read",
	StatusTransactionTooBig:  "transaction is too big",
	StatusNotEIP2930:         "transaction is not EIP-2930",
	StatusRLPDecodeFailed:    "RLP decode failed",
	StatusRLPInvalid:         "RLP structure invalid",
	StatusChainIDInvalid:     "chain ID not allowed",
	StatusContractInvalid:    "contract address not allowed",
	StatusValueNotZero:       "value is not zero",
	StatusAccessListNotEmpty: "access list is not empty",
	StatusDataInvalid:        "call data not allowed",
	StatusDeclined:           "declined",
}

// String returns a human-readable meaning for the status code
func (s StatusCode) String() string {
	if m, ok := statusMeanings[s]; ok {
		return m
	}
	return "unknown error"
}

// IsVerifierStatus reports whether the device rejected the transaction contents
// rather than the frame carrying it.
func (s StatusCode) IsVerifierStatus() bool {
	return s >= StatusNotEIP2930 && s <= StatusDataInvalid
}
