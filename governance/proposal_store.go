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

// proposalStore owns proposal records. Ids are slice indices, so they stay
// dense and zero-based. It performs no locking; the DAO serializes access.
type proposalStore struct {
	proposals []*Proposal
}

func newProposalStore() *proposalStore {
	return &proposalStore{
		proposals: make([]*Proposal, 0),
	}
}

// nextID returns the id the next created proposal will receive.
func (ps *proposalStore) nextID() uint64 {
	return uint64(len(ps.proposals))
}

// draft builds the record for a new proposal without storing it.
func (ps *proposalStore) draft(description string, now uint64) *Proposal {
	return &Proposal{
		ID:          ps.nextID(),
		Description: description,
		StartTime:   now,
	}
}

// insert appends a drafted proposal. The caller guarantees p.ID == nextID().
func (ps *proposalStore) insert(p *Proposal) {
	ps.proposals = append(ps.proposals, p)
}

// get returns the live record for id.
func (ps *proposalStore) get(id uint64) (*Proposal, error) {
	if id >= uint64(len(ps.proposals)) {
		return nil, ErrInvalidProposalID
	}
	return ps.proposals[id], nil
}

// replace swaps in an updated copy of an existing record.
func (ps *proposalStore) replace(p *Proposal) {
	ps.proposals[p.ID] = p
}

func (ps *proposalStore) count() uint64 {
	return uint64(len(ps.proposals))
}

// snapshot returns copies of every proposal in id order.
func (ps *proposalStore) snapshot() []*Proposal {
	out := make([]*Proposal, len(ps.proposals))
	for i, p := range ps.proposals {
		cpy := *p
		out[i] = &cpy
	}
	return out
}
