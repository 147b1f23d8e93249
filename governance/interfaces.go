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
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Clock supplies the monotonically increasing current time, in unix seconds.
type Clock interface {
	Now() uint64
}

// TokenRegistry answers ownership questions about an external token contract.
type TokenRegistry interface {
	// Controls reports whether holder owns or controls tokenID on the
	// registry deployed at registry.
	Controls(ctx context.Context, registry common.Address, holder common.Address, tokenID *big.Int) (bool, error)
}

// ApprovalPolicy decides whether a proposal whose voting window has ended
// may be executed.
type ApprovalPolicy interface {
	Approved(p *Proposal) bool
}

// Executor performs the downstream action of an executed proposal.
// It runs after the executed flag has been committed.
type Executor interface {
	Execute(ctx context.Context, p *Proposal) error
}

// Persister durably records state changes. Persist is called while the DAO
// holds its write lock and before memory is updated; an error aborts the
// operation.
type Persister interface {
	Persist(change *StateChange) error
}
