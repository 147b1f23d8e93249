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
	"github.com/ethereum/go-ethereum/common"
)

// voteLedger owns vote records and the per-voter yes-vote counters.
// Like proposalStore it relies on the DAO for serialization.
type voteLedger struct {
	maxYes uint64
	voted  map[VoteKey]bool // vote direction per pair
	quota  map[common.Address]uint64
}

func newVoteLedger(maxYes uint64) *voteLedger {
	return &voteLedger{
		maxYes: maxYes,
		voted:  make(map[VoteKey]bool),
		quota:  make(map[common.Address]uint64),
	}
}

func (vl *voteLedger) hasVoted(voter common.Address, id uint64) bool {
	_, ok := vl.voted[VoteKey{Voter: voter, ProposalID: id}]
	return ok
}

func (vl *voteLedger) yesCast(voter common.Address) uint64 {
	return vl.quota[voter]
}

func (vl *voteLedger) remaining(voter common.Address) uint64 {
	used := vl.quota[voter]
	if used >= vl.maxYes {
		return 0
	}
	return vl.maxYes - used
}

// check validates a vote against the ledger. Proposal existence is checked
// by the caller first.
func (vl *voteLedger) check(voter common.Address, id uint64, support bool) error {
	if vl.hasVoted(voter, id) {
		return ErrAlreadyVoted
	}
	if support && vl.quota[voter] >= vl.maxYes {
		return ErrQuotaExceeded
	}
	return nil
}

// plan computes the records a valid vote produces, leaving the ledger and
// the proposal untouched.
func (vl *voteLedger) plan(p *Proposal, voter common.Address, support bool) *StateChange {
	updated := *p
	change := &StateChange{
		Proposal: &updated,
		Vote:     &VoteRecord{Voter: voter, ProposalID: p.ID, Support: support},
	}
	if support {
		updated.YesVotes++
		change.YesQuota = &QuotaEntry{Voter: voter, Used: vl.quota[voter] + 1}
	} else {
		updated.NoVotes++
	}
	return change
}

// apply records a planned vote.
func (vl *voteLedger) apply(change *StateChange) {
	vl.voted[change.Vote.Key()] = change.Vote.Support
	if change.YesQuota != nil {
		vl.quota[change.YesQuota.Voter] = change.YesQuota.Used
	}
}

// records returns every vote, in no particular order.
func (vl *voteLedger) records() []VoteRecord {
	out := make([]VoteRecord, 0, len(vl.voted))
	for k, support := range vl.voted {
		out = append(out, VoteRecord{Voter: k.Voter, ProposalID: k.ProposalID, Support: support})
	}
	return out
}

func (vl *voteLedger) quotas() map[common.Address]uint64 {
	out := make(map[common.Address]uint64, len(vl.quota))
	for k, v := range vl.quota {
		out[k] = v
	}
	return out
}
