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

package governance

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// AccessGate decides validator eligibility by asking an external token
// registry whether an identity controls the validator token.
type AccessGate struct {
	registry TokenRegistry
	address  common.Address
	tokenID  *big.Int
}

// NewAccessGate creates a gate for tokenID on the registry at address.
func NewAccessGate(registry TokenRegistry, address common.Address, tokenID *big.Int) *AccessGate {
	return &AccessGate{
		registry: registry,
		address:  address,
		tokenID:  new(big.Int).Set(tokenID),
	}
}

// IsAuthorized reports whether identity holds the validator credential.
// Registry failures are wrapped in ErrRegistryUnavailable.
func (g *AccessGate) IsAuthorized(ctx context.Context, identity common.Address) (bool, error) {
	ok, err := g.registry.Controls(ctx, g.address, identity, g.tokenID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
	return ok, nil
}

// authorize turns the gate answer into an operation error.
func (g *AccessGate) authorize(ctx context.Context, identity common.Address) error {
	ok, err := g.IsAuthorized(ctx, identity)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAuthorized
	}
	return nil
}
