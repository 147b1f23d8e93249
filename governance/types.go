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
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Proposal is a single decision item tracked by the proposal store.
type Proposal struct {
	ID          uint64 // Sequential id, starting at 0
	Description string // Free-form text supplied by the creator
	YesVotes    uint64 // Affirmative votes
	NoVotes     uint64 // Negative votes
	StartTime   uint64 // Clock time at creation (unix seconds)
	Executed    bool   // Set once by ExecuteProposal
}

// VotingEndsAt returns the first instant at which the proposal may be executed.
func (p *Proposal) VotingEndsAt(duration uint64) uint64 {
	return p.StartTime + duration
}

// AccessPolicy selects which operations require the caller to hold the
// validator credential. The zero value leaves every operation open.
type AccessPolicy struct {
	Create  bool // Proposal creation
	Vote    bool // Casting a vote
	Execute bool // Executing an approved proposal
}

// Config holds the immutable governance parameters fixed at construction.
type Config struct {
	ValidatorRegistry   common.Address // Token registry holding the validator credential
	ValidatorTokenID    *big.Int       // Token id representing the credential
	MaxYesVotesPerVoter uint64         // Global cap on yes votes per voter
	VotingDuration      uint64         // Seconds between creation and earliest execution
	Access              AccessPolicy   // Operations gated by the credential
}

// DefaultConfig returns the parameters used by the reference deployment.
func DefaultConfig() *Config {
	return &Config{
		ValidatorTokenID:    big.NewInt(1),
		MaxYesVotesPerVoter: 5,    // yes votes per voter, lifetime
		VotingDuration:      3600, // 1 hour
	}
}

// Copy returns a deep copy of the config.
func (c *Config) Copy() *Config {
	cpy := *c
	if c.ValidatorTokenID != nil {
		cpy.ValidatorTokenID = new(big.Int).Set(c.ValidatorTokenID)
	}
	return &cpy
}

// Validate checks the config for values the core can not operate with.
func (c *Config) Validate() error {
	if c.ValidatorTokenID == nil || c.ValidatorTokenID.Sign() < 0 {
		return wrapConfigErr("validator token id must be a non-negative integer")
	}
	if c.Access != (AccessPolicy{}) && c.ValidatorRegistry == (common.Address{}) {
		return wrapConfigErr("access policy requires a validator registry address")
	}
	return nil
}

// State is a point-in-time copy of the whole governance state, used to
// restore a DAO from persistent storage.
type State struct {
	Proposals []*Proposal
	Votes     []VoteRecord
	YesQuota  map[common.Address]uint64
}

// VoteKey identifies a single (voter, proposal) vote record.
type VoteKey struct {
	Voter      common.Address
	ProposalID uint64
}

// VoteRecord is a cast vote together with its direction.
type VoteRecord struct {
	Voter      common.Address
	ProposalID uint64
	Support    bool
}

// Key returns the (voter, proposal) pair the record occupies.
func (r VoteRecord) Key() VoteKey {
	return VoteKey{Voter: r.Voter, ProposalID: r.ProposalID}
}

// StateChange describes the records touched by one committed operation.
// Persisters receive it before the in-memory state is updated.
type StateChange struct {
	Proposal *Proposal   // Proposal record after the operation
	Vote     *VoteRecord // Vote record added, if any
	YesQuota *QuotaEntry // Voter quota after the operation, if changed
}

// QuotaEntry is the yes-vote counter of a single voter.
type QuotaEntry struct {
	Voter common.Address
	Used  uint64
}
