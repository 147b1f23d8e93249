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

// Package storage persists governance state in a LevelDB database.
package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/syndtr/goleveldb/leveldb"
	leveldbOpt "github.com/syndtr/goleveldb/leveldb/opt"
	leveldbStorage "github.com/syndtr/goleveldb/leveldb/storage"
	leveldbUtil "github.com/syndtr/goleveldb/leveldb/util"

	"github.com/tr3dao/tr3dao/governance"
)

var (
	// Key prefixes
	proposalPrefix = []byte("p") // proposalPrefix + id (uint64 big endian) -> proposalData
	votePrefix     = []byte("v") // votePrefix + voter address + id -> support (bool)
	quotaPrefix    = []byte("q") // quotaPrefix + voter address -> uint64

	ErrUnknownScheme = errors.New("unknown storage scheme")
	ErrCorrupted     = errors.New("corrupted governance database")
)

// proposalData is the RLP layout of a stored proposal.
type proposalData struct {
	ID          uint64
	Description string
	YesVotes    uint64
	NoVotes     uint64
	StartTime   uint64
	Executed    bool
}

// Database stores governance records. It implements governance.Persister.
type Database struct {
	db   *leveldb.DB
	sync bool
	log  log.Logger
}

// Open opens the database described by config.
func Open(config *Config) (*Database, error) {
	var (
		db  *leveldb.DB
		err error
	)
	switch config.Scheme {
	case SchemeFile:
		db, err = leveldb.OpenFile(config.Path, nil)
	case SchemeMemory:
		db, err = leveldb.Open(leveldbStorage.NewMemStorage(), nil)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, config.Scheme)
	}
	if err != nil {
		return nil, fmt.Errorf("open governance database: %w", err)
	}
	d := &Database{
		db:   db,
		sync: config.Sync,
		log:  log.New("module", "storage", "scheme", config.Scheme),
	}
	d.log.Debug("Opened governance database", "path", config.Path)
	return d, nil
}

// OpenMemory opens an in-memory database.
func OpenMemory() (*Database, error) {
	return Open(&Config{Scheme: SchemeMemory})
}

// Close releases the database.
func (d *Database) Close() error {
	return d.db.Close()
}

// Persist writes all records of one state change in a single batch.
func (d *Database) Persist(change *governance.StateChange) error {
	batch := new(leveldb.Batch)
	if change.Proposal != nil {
		enc, err := rlp.EncodeToBytes(&proposalData{
			ID:          change.Proposal.ID,
			Description: change.Proposal.Description,
			YesVotes:    change.Proposal.YesVotes,
			NoVotes:     change.Proposal.NoVotes,
			StartTime:   change.Proposal.StartTime,
			Executed:    change.Proposal.Executed,
		})
		if err != nil {
			return err
		}
		batch.Put(proposalKey(change.Proposal.ID), enc)
	}
	if change.Vote != nil {
		enc, err := rlp.EncodeToBytes(change.Vote.Support)
		if err != nil {
			return err
		}
		batch.Put(voteKey(change.Vote.Voter, change.Vote.ProposalID), enc)
	}
	if change.YesQuota != nil {
		enc, err := rlp.EncodeToBytes(change.YesQuota.Used)
		if err != nil {
			return err
		}
		batch.Put(quotaKey(change.YesQuota.Voter), enc)
	}
	return d.db.Write(batch, &leveldbOpt.WriteOptions{Sync: d.sync})
}

// Load reads the complete governance state.
func (d *Database) Load() (*governance.State, error) {
	state := &governance.State{
		Proposals: make([]*governance.Proposal, 0),
		Votes:     make([]governance.VoteRecord, 0),
		YesQuota:  make(map[common.Address]uint64),
	}

	it := d.db.NewIterator(leveldbUtil.BytesPrefix(proposalPrefix), nil)
	for it.Next() {
		var data proposalData
		if err := rlp.DecodeBytes(it.Value(), &data); err != nil {
			it.Release()
			return nil, fmt.Errorf("%w: proposal %x: %v", ErrCorrupted, it.Key(), err)
		}
		state.Proposals = append(state.Proposals, &governance.Proposal{
			ID:          data.ID,
			Description: data.Description,
			YesVotes:    data.YesVotes,
			NoVotes:     data.NoVotes,
			StartTime:   data.StartTime,
			Executed:    data.Executed,
		})
	}
	it.Release()
	if err := it.Error(); err != nil {
		return nil, err
	}
	// Big endian keys iterate in id order already; keep the guarantee explicit.
	sort.Slice(state.Proposals, func(i, j int) bool {
		return state.Proposals[i].ID < state.Proposals[j].ID
	})

	it = d.db.NewIterator(leveldbUtil.BytesPrefix(votePrefix), nil)
	for it.Next() {
		key := it.Key()[len(votePrefix):]
		if len(key) != common.AddressLength+8 {
			it.Release()
			return nil, fmt.Errorf("%w: vote key %x", ErrCorrupted, it.Key())
		}
		var support bool
		if err := rlp.DecodeBytes(it.Value(), &support); err != nil {
			it.Release()
			return nil, fmt.Errorf("%w: vote %x: %v", ErrCorrupted, it.Key(), err)
		}
		state.Votes = append(state.Votes, governance.VoteRecord{
			Voter:      common.BytesToAddress(key[:common.AddressLength]),
			ProposalID: binary.BigEndian.Uint64(key[common.AddressLength:]),
			Support:    support,
		})
	}
	it.Release()
	if err := it.Error(); err != nil {
		return nil, err
	}

	it = d.db.NewIterator(leveldbUtil.BytesPrefix(quotaPrefix), nil)
	for it.Next() {
		key := it.Key()[len(quotaPrefix):]
		var used uint64
		if len(key) != common.AddressLength {
			it.Release()
			return nil, fmt.Errorf("%w: quota key %x", ErrCorrupted, it.Key())
		}
		if err := rlp.DecodeBytes(it.Value(), &used); err != nil {
			it.Release()
			return nil, fmt.Errorf("%w: quota %x: %v", ErrCorrupted, it.Key(), err)
		}
		state.YesQuota[common.BytesToAddress(key)] = used
	}
	it.Release()
	if err := it.Error(); err != nil {
		return nil, err
	}

	d.log.Debug("Loaded governance state", "proposals", len(state.Proposals), "votes", len(state.Votes))
	return state, nil
}

func proposalKey(id uint64) []byte {
	key := make([]byte, len(proposalPrefix)+8)
	copy(key, proposalPrefix)
	binary.BigEndian.PutUint64(key[len(proposalPrefix):], id)
	return key
}

func voteKey(voter common.Address, id uint64) []byte {
	key := make([]byte, 0, len(votePrefix)+common.AddressLength+8)
	key = append(key, votePrefix...)
	key = append(key, voter.Bytes()...)
	return binary.BigEndian.AppendUint64(key, id)
}

func quotaKey(voter common.Address) []byte {
	key := make([]byte, 0, len(quotaPrefix)+common.AddressLength)
	key = append(key, quotaPrefix...)
	return append(key, voter.Bytes()...)
}
