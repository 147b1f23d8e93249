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

// Package config loads tr3dao settings from a TOML file and the environment.
package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"

	"github.com/tr3dao/tr3dao/governance"
	"github.com/tr3dao/tr3dao/registry"
)

// Config is the complete tr3dao configuration.
type Config struct {
	Governance GovernanceConfig
	Registry   RegistryConfig
	Node       NodeConfig
}

// GovernanceConfig holds the deployment parameters of the DAO.
type GovernanceConfig struct {
	ValidatorRegistry   string // Token registry address, hex
	ValidatorTokenID    string // Decimal token id
	MaxYesVotesPerVoter uint64
	VotingDuration      uint64 // Seconds
	ApprovalPercent     uint64 // 0 selects simple majority

	CreateRequiresValidator  bool
	VoteRequiresValidator    bool
	ExecuteRequiresValidator bool
}

// RegistryConfig describes how validator tokens are looked up.
type RegistryConfig struct {
	Standard         string // erc721, erc1155 or memory
	RPC              string // JSON-RPC endpoint of the registry chain
	IncludeOperators bool   // ERC-721 approved operators count as holders
}

// NodeConfig holds local runtime settings.
type NodeConfig struct {
	DataDir string
	NoSync  bool
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	gov := governance.DefaultConfig()
	return &Config{
		Governance: GovernanceConfig{
			ValidatorRegistry:   "0x1234567890abcdef1234567890abcdef12345678",
			ValidatorTokenID:    gov.ValidatorTokenID.String(),
			MaxYesVotesPerVoter: gov.MaxYesVotesPerVoter,
			VotingDuration:      gov.VotingDuration,
		},
		Registry: RegistryConfig{
			Standard: registry.StandardERC721,
		},
		Node: NodeConfig{
			DataDir: "tr3dao-data",
		},
	}
}

// Override adjusts a loaded config before it is validated.
type Override func(*Config)

// Load reads path over the defaults, then applies environment overrides
// and finally the given overrides. An empty path skips the file.
func Load(path string, overrides ...Override) (*Config, error) {
	cfg := Default()
	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found", path)
			}
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config %s: unknown field %q", path, undecoded[0].String())
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	for _, override := range overrides {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GovernanceParams converts the file settings into core parameters.
func (c *Config) GovernanceParams() (*governance.Config, error) {
	tokenID, ok := new(big.Int).SetString(c.Governance.ValidatorTokenID, 10)
	if !ok {
		return nil, fmt.Errorf("%w: token id %q is not a decimal integer", governance.ErrInvalidConfig, c.Governance.ValidatorTokenID)
	}
	params := &governance.Config{
		ValidatorRegistry:   common.HexToAddress(c.Governance.ValidatorRegistry),
		ValidatorTokenID:    tokenID,
		MaxYesVotesPerVoter: c.Governance.MaxYesVotesPerVoter,
		VotingDuration:      c.Governance.VotingDuration,
		Access: governance.AccessPolicy{
			Create:  c.Governance.CreateRequiresValidator,
			Vote:    c.Governance.VoteRequiresValidator,
			Execute: c.Governance.ExecuteRequiresValidator,
		},
	}
	return params, params.Validate()
}

// ApprovalPolicy returns the execution threshold selected by the config.
func (c *Config) ApprovalPolicy() governance.ApprovalPolicy {
	if c.Governance.ApprovalPercent == 0 {
		return governance.SimpleMajority{}
	}
	return governance.Supermajority{Percent: c.Governance.ApprovalPercent}
}

// Gated reports whether any operation consults the token registry.
func (c *Config) Gated() bool {
	g := c.Governance
	return g.CreateRequiresValidator || g.VoteRequiresValidator || g.ExecuteRequiresValidator
}
