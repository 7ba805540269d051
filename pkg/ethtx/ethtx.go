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


// Package ethtx parses, checks and signs the EIP-2930 transactions a signer
// accepts.
//
// A transaction submitted for signing is the type byte 0x01 followed by the
// RLP list [chainId, nonce, gasPrice, gas, to, value, data, accessList]. The
// signed form appends [yParity, r, s] to that list.
package ethtx

import (
	"bytes"
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
)

// AccessListTxType is the EIP-2718 type byte of EIP-2930 transactions
const AccessListTxType = 0x01

const unsignedFieldCount = 8

// Signature positions in the signed list, after yParity
const (
	fieldR = unsignedFieldCount + 1 + iota
	fieldS
)

// Field positions in the unsigned list
const (
	fieldChainID = iota
	fieldNonce
	fieldGasPrice
	fieldGas
	fieldTo
	fieldValue
	fieldData
	fieldAccessList
)

// Policy rejections, in the order Verify checks them
var (
	ErrNotAccessListTx    = errors.New("transaction is not an EIP-2930 access list transaction")
	ErrRLPDecode          = errors.New("transaction body is not a single RLP value")
	ErrRLPInvalid         = errors.New("transaction body has an unexpected RLP shape")
	ErrChainID            = errors.New("chain id does not match policy")
	ErrContract           = errors.New("recipient is not the policy contract")
	ErrValueNotZero       = errors.New("transaction transfers value")
	ErrAccessListNotEmpty = errors.New("access list is not empty")
)

// Policy is what a signer is willing to sign: zero-value calls to one
// contract on one chain.
type Policy struct {
	ChainID  *big.Int
	Contract common.Address
}

// UnsignedTx holds the fields of an unsigned EIP-2930 transaction
type UnsignedTx struct {
	ChainID  *big.Int
	GasPrice *big.Int
	Value    *big.Int
	Data     []byte
	Nonce    uint64
	Gas      uint64
	To       common.Address
}

type item struct {
	raw     rlp.RawValue
	content []byte
	kind    rlp.Kind
}

// BuildUnsigned encodes tx in the form a signer expects
func BuildUnsigned(tx UnsignedTx) ([]byte, error) {
	if tx.ChainID == nil {
		return nil, errors.New("chain id is required")
	}
	payload := []interface{}{
		tx.ChainID,
		tx.Nonce,
		tx.GasPrice,
		tx.Gas,
		tx.To,
		tx.Value,
		tx.Data,
		types.AccessList{},
	}

	enc, err := rlp.EncodeToBytes(payload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to RLP encode transaction")
	}
	return append([]byte{AccessListTxType}, enc...), nil
}

// Verify reports why p would refuse to sign tx, or nil if it would sign.
// The call data is passed through unchecked, as the firmware does.
func Verify(tx []byte, p Policy) error {
	items, err := split(tx)
	if err != nil {
		return err
	}

	chainID := items[fieldChainID]
	if chainID.kind == rlp.List {
		return errors.Wrap(ErrRLPInvalid, "chain id is a list")
	}
	if !bytes.Equal(chainID.content, chainIDBytes(p.ChainID)) {
		return errors.Wrapf(ErrChainID, "got 0x%x", chainID.content)
	}

	to := items[fieldTo]
	if to.kind == rlp.List {
		return errors.Wrap(ErrRLPInvalid, "recipient is a list")
	}
	if !bytes.Equal(to.content, p.Contract.Bytes()) {
		return errors.Wrapf(ErrContract, "got 0x%x", to.content)
	}

	value := items[fieldValue]
	if value.kind == rlp.List {
		return errors.Wrap(ErrRLPInvalid, "value is a list")
	}
	if len(value.content) != 0 {
		return errors.Wrapf(ErrValueNotZero, "got 0x%x", value.content)
	}

	accessList := items[fieldAccessList]
	if accessList.kind != rlp.List {
		return errors.Wrap(ErrRLPInvalid, "access list is not a list")
	}
	if len(accessList.content) != 0 {
		return ErrAccessListNotEmpty
	}
	return nil
}

// Sign signs tx with key the way the signer firmware does: the hash is
// keccak256 over the whole payload including the type byte, and the result
// is the payload's list extended with yParity, r and s. r and s are written
// as fixed 32-byte strings, leading zeros included.
func Sign(tx []byte, key *ecdsa.PrivateKey) ([]byte, error) {
	items, err := split(tx)
	if err != nil {
		return nil, err
	}

	sig, err := crypto.Sign(crypto.Keccak256(tx), key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign transaction hash")
	}

	fields := make([]interface{}, 0, fieldS+1)
	for _, it := range items {
		fields = append(fields, it.raw)
	}
	fields = append(fields,
		uint64(sig[crypto.RecoveryIDOffset]),
		sig[:32],
		sig[32:64],
	)

	enc, err := rlp.EncodeToBytes(fields)
	if err != nil {
		return nil, errors.Wrap(err, "failed to RLP encode signed transaction")
	}
	return append([]byte{AccessListTxType}, enc...), nil
}

// DecodeSigned parses a signed transaction and recovers its sender. A nil
// chainID accepts the chain id the transaction carries.
func DecodeSigned(raw []byte, chainID *big.Int) (*types.Transaction, common.Address, error) {
	canonical, err := canonicalSignature(raw)
	if err != nil {
		return nil, common.Address{}, err
	}

	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(canonical); err != nil {
		return nil, common.Address{}, errors.Wrap(err, "failed to decode signed transaction")
	}
	if tx.Type() != types.AccessListTxType {
		return nil, common.Address{}, errors.Wrapf(ErrNotAccessListTx, "type %d", tx.Type())
	}
	if chainID == nil {
		chainID = tx.ChainId()
	}

	from, err := types.Sender(types.NewEIP2930Signer(chainID), tx)
	if err != nil {
		return nil, common.Address{}, errors.Wrap(err, "failed to recover sender")
	}
	return tx, from, nil
}

// canonicalSignature strips leading zero bytes from r and s so the
// transaction decodes as minimal integers
func canonicalSignature(raw []byte) ([]byte, error) {
	if len(raw) == 0 || raw[0] != AccessListTxType {
		return nil, ErrNotAccessListTx
	}

	content, rest, err := rlp.SplitList(raw[1:])
	if err != nil {
		return nil, errors.Wrap(ErrRLPDecode, err.Error())
	}
	if len(rest) != 0 {
		return nil, errors.Wrapf(ErrRLPDecode, "%d trailing bytes", len(rest))
	}

	fields := make([]rlp.RawValue, 0, fieldS+1)
	for len(content) > 0 {
		kind, c, r, err := rlp.Split(content)
		if err != nil {
			return nil, errors.Wrap(ErrRLPDecode, err.Error())
		}
		field := rlp.RawValue(content[:len(content)-len(r)])
		if idx := len(fields); (idx == fieldR || idx == fieldS) && kind == rlp.String {
			field, err = rlp.EncodeToBytes(bytes.TrimLeft(c, "\x00"))
			if err != nil {
				return nil, errors.Wrap(err, "failed to re-encode signature value")
			}
		}
		fields = append(fields, field)
		content = r
	}

	enc, err := rlp.EncodeToBytes(fields)
	if err != nil {
		return nil, errors.Wrap(err, "failed to RLP encode signed transaction")
	}
	return append([]byte{AccessListTxType}, enc...), nil
}

// split checks the envelope and returns the eight top-level list items
func split(tx []byte) ([]item, error) {
	if len(tx) == 0 || tx[0] != AccessListTxType {
		return nil, ErrNotAccessListTx
	}

	kind, content, rest, err := rlp.Split(tx[1:])
	if err != nil {
		return nil, errors.Wrap(ErrRLPDecode, err.Error())
	}
	if len(rest) != 0 {
		return nil, errors.Wrapf(ErrRLPDecode, "%d trailing bytes", len(rest))
	}
	if err := validateNested(kind, content); err != nil {
		return nil, errors.Wrap(ErrRLPDecode, err.Error())
	}
	if kind != rlp.List {
		return nil, errors.Wrap(ErrRLPInvalid, "body is not a list")
	}

	items := make([]item, 0, unsignedFieldCount)
	for len(content) > 0 {
		k, c, r, err := rlp.Split(content)
		if err != nil {
			return nil, errors.Wrap(ErrRLPDecode, err.Error())
		}
		items = append(items, item{
			raw:     rlp.RawValue(content[:len(content)-len(r)]),
			content: c,
			kind:    k,
		})
		content = r
	}
	if len(items) != unsignedFieldCount {
		return nil, errors.Wrapf(ErrRLPInvalid, "%d fields, want %d", len(items), unsignedFieldCount)
	}
	return items, nil
}

// validateNested walks every list below a value so malformed inner
// encodings fail the same way as a malformed envelope.
func validateNested(kind rlp.Kind, content []byte) error {
	if kind != rlp.List {
		return nil
	}
	for len(content) > 0 {
		k, c, rest, err := rlp.Split(content)
		if err != nil {
			return err
		}
		if err := validateNested(k, c); err != nil {
			return err
		}
		content = rest
	}
	return nil
}

func chainIDBytes(id *big.Int) []byte {
	if id == nil {
		return nil
	}
	return id.Bytes()
}
