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

package registry

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

type tokenKey struct {
	registry common.Address
	tokenID  string
}

// MemoryRegistry keeps token owners in process memory.
type MemoryRegistry struct {
	mu     sync.RWMutex
	owners map[tokenKey]common.Address
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		owners: make(map[tokenKey]common.Address),
	}
}

// SetOwner assigns tokenID on registry to owner.
func (m *MemoryRegistry) SetOwner(registry common.Address, tokenID *big.Int, owner common.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.owners[tokenKey{registry, tokenID.String()}] = owner
}

// Burn removes tokenID from registry.
func (m *MemoryRegistry) Burn(registry common.Address, tokenID *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.owners, tokenKey{registry, tokenID.String()})
}

func (m *MemoryRegistry) Controls(ctx context.Context, registry common.Address, holder common.Address, tokenID *big.Int) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	owner, ok := m.owners[tokenKey{registry, tokenID.String()}]
	return ok && owner == holder, nil
}
