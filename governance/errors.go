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
	"errors"
	"fmt"
)

// Proposal errors
var (
	ErrInvalidProposalID    = errors.New("invalid proposal id")
	ErrAlreadyExecuted      = errors.New("proposal already executed")
	ErrVotingPeriodNotEnded = errors.New("voting period has not ended")
	ErrProposalNotApproved  = errors.New("proposal has not been approved")
)

// Voting errors
var (
	ErrAlreadyVoted  = errors.New("already voted")
	ErrQuotaExceeded = errors.New("exceeded max yes votes")
	ErrNotAuthorized = errors.New("caller does not hold the validator credential")
)

// Collaborator errors
var (
	ErrRegistryUnavailable = errors.New("validator registry unavailable")
	ErrExecutionHook       = errors.New("execution hook failed")
	ErrPersist             = errors.New("failed to persist governance state")
	ErrInvalidConfig       = errors.New("invalid governance config")
	ErrInconsistentState   = errors.New("inconsistent governance state")
)

func wrapConfigErr(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, reason)
}
