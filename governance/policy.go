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

// SimpleMajority approves a proposal with strictly more yes than no votes.
// Ties are not approved.
type SimpleMajority struct{}

func (SimpleMajority) Approved(p *Proposal) bool {
	return p.YesVotes > p.NoVotes
}

// Supermajority approves a proposal when yes votes make up at least Percent
// of the votes cast. Proposals without votes are never approved.
type Supermajority struct {
	Percent uint64 // e.g. 67 for two thirds
}

func (s Supermajority) Approved(p *Proposal) bool {
	total := p.YesVotes + p.NoVotes
	if total == 0 {
		return false
	}
	return p.YesVotes*100 >= s.Percent*total
}
