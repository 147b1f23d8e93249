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

import "github.com/ethereum/go-ethereum/common"

// Event is published on the DAO feed after each committed operation.
// Sequence is the commit order of the operation within one DAO, starting
// at 1. Events are sent after the state lock is released, so concurrent
// operations may be delivered out of order; subscribers that need commit
// order sort by Sequence.
type Event interface {
	ProposalID() uint64
	Sequence() uint64
}

// ProposalCreatedEvent is sent when a proposal is registered.
type ProposalCreatedEvent struct {
	Seq         uint64
	ID          uint64
	Creator     common.Address
	Description string
	StartTime   uint64
}

func (e ProposalCreatedEvent) ProposalID() uint64 { return e.ID }
func (e ProposalCreatedEvent) Sequence() uint64 { return e.Seq }

// VoteCastEvent is sent when a vote is recorded.
type VoteCastEvent struct {
	Seq     uint64
	ID      uint64
	Voter   common.Address
	Support bool
}

func (e VoteCastEvent) ProposalID() uint64 { return e.ID }
func (e VoteCastEvent) Sequence() uint64 { return e.Seq }

// ProposalExecutedEvent is sent when a proposal is marked executed.
type ProposalExecutedEvent struct {
	Seq      uint64
	ID       uint64
	Executor common.Address
	YesVotes uint64
	NoVotes  uint64
}

func (e ProposalExecutedEvent) ProposalID() uint64 { return e.ID }
func (e ProposalExecutedEvent) Sequence() uint64 { return e.Seq }
