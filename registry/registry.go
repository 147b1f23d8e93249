// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package registry implements token ownership lookups used to decide
// validator eligibility.
package registry

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/tr3dao/tr3dao/governance"
)

// Supported registry standards.
const (
	StandardERC721  = "erc721"
	StandardERC1155 = "erc1155"
	StandardMemory  = "memory"
)

var ErrUnknownStandard = errors.New("unknown token registry standard")

// revertErrorCode is the JSON-RPC error code of a reverted eth_call.
const revertErrorCode = 3

const erc721ABI = `[
	{"type":"function","name":"ownerOf","stateMutability":"view",
	 "inputs":[{"name":"tokenId","type":"uint256"}],
	 "outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"isApprovedForAll","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"},{"name":"operator","type":"address"}],
	 "outputs":[{"name":"","type":"bool"}]}
]`

const erc1155ABI = `[
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"account","type":"address"},{"name":"id","type":"uint256"}],
	 "outputs":[{"name":"","type":"uint256"}]}
]`

var (
	erc721  = mustParseABI(erc721ABI)
	erc1155 = mustParseABI(erc1155ABI)
)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("invalid registry ABI: %v", err))
	}
	return parsed
}

// ContractCaller executes read-only contract calls. *ethclient.Client
// satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Dial connects to the JSON-RPC endpoint serving the token registry.
func Dial(ctx context.Context, rawurl string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rawurl)
	if err != nil {
		return nil, fmt.Errorf("dial registry endpoint %s: %w", rawurl, err)
	}
	return client, nil
}

// New returns the registry implementation for standard. The memory
// standard ignores caller.
func New(standard string, caller ContractCaller, includeOperators bool) (governance.TokenRegistry, error) {
	switch strings.ToLower(standard) {
	case StandardERC721, "":
		return &ERC721Registry{caller: caller, IncludeOperators: includeOperators}, nil
	case StandardERC1155:
		return &ERC1155Registry{caller: caller}, nil
	case StandardMemory:
		return NewMemoryRegistry(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStandard, standard)
	}
}

// ERC721Registry treats holder as controlling tokenID when it is the
// token owner or, with IncludeOperators, an approved operator of the owner.
type ERC721Registry struct {
	caller ContractCaller

	IncludeOperators bool
}

// NewERC721Registry creates an ERC-721 backed registry.
func NewERC721Registry(caller ContractCaller) *ERC721Registry {
	return &ERC721Registry{caller: caller}
}

func (r *ERC721Registry) Controls(ctx context.Context, registry common.Address, holder common.Address, tokenID *big.Int) (bool, error) {
	out, err := call(ctx, r.caller, erc721, registry, "ownerOf", tokenID)
	if err != nil {
		// ownerOf reverts for burned and unminted tokens.
		if isReverted(err) {
			log.Debug("Validator token has no owner", "registry", registry, "token", tokenID)
			return false, nil
		}
		return false, err
	}
	owner := out[0].(common.Address)
	if owner == holder {
		return true, nil
	}
	if !r.IncludeOperators || owner == (common.Address{}) {
		return false, nil
	}
	out, err = call(ctx, r.caller, erc721, registry, "isApprovedForAll", owner, holder)
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

// ERC1155Registry treats any positive balance of tokenID as control.
type ERC1155Registry struct {
	caller ContractCaller
}

// NewERC1155Registry creates an ERC-1155 backed registry.
func NewERC1155Registry(caller ContractCaller) *ERC1155Registry {
	return &ERC1155Registry{caller: caller}
}

func (r *ERC1155Registry) Controls(ctx context.Context, registry common.Address, holder common.Address, tokenID *big.Int) (bool, error) {
	out, err := call(ctx, r.caller, erc1155, registry, "balanceOf", holder, tokenID)
	if err != nil {
		return false, err
	}
	return out[0].(*big.Int).Sign() > 0, nil
}

func isReverted(err error) bool {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == revertErrorCode {
		return true
	}
	return strings.Contains(err.Error(), "execution reverted")
}

func call(ctx context.Context, caller ContractCaller, contract abi.ABI, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	res, err := caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		log.Debug("Registry call failed", "registry", to, "method", method, "err", err)
		return nil, fmt.Errorf("call %s on %s: %w", method, to.Hex(), err)
	}
	out, err := contract.Unpack(method, res)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty %s result from %s", method, to.Hex())
	}
	return out, nil
}
