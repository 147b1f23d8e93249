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

package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tr3dao/tr3dao/governance"
	"github.com/tr3dao/tr3dao/registry"
)

// Environment variables overriding file values.
const (
	EnvDataDir  = "TR3DAO_DATADIR"
	EnvRPC      = "TR3DAO_RPC"
	EnvRegistry = "TR3DAO_REGISTRY"
	EnvTokenID  = "TR3DAO_TOKEN_ID"
	EnvMaxYes   = "TR3DAO_MAX_YES_VOTES"
	EnvDuration = "TR3DAO_VOTING_DURATION"
	EnvStandard = "TR3DAO_REGISTRY_STANDARD"
)

// Validate checks cross-field consistency of the configuration.
func (c *Config) Validate() error {
	g := c.Governance
	if !common.IsHexAddress(g.ValidatorRegistry) {
		return fmt.Errorf("%w: validator registry %q is not a hex address", governance.ErrInvalidConfig, g.ValidatorRegistry)
	}
	if id, ok := new(big.Int).SetString(g.ValidatorTokenID, 10); !ok || id.Sign() < 0 {
		return fmt.Errorf("%w: token id %q is not a non-negative decimal integer", governance.ErrInvalidConfig, g.ValidatorTokenID)
	}
	if g.ApprovalPercent > 100 {
		return fmt.Errorf("%w: approval percent %d exceeds 100", governance.ErrInvalidConfig, g.ApprovalPercent)
	}
	switch strings.ToLower(c.Registry.Standard) {
	case registry.StandardERC721, registry.StandardERC1155:
		if c.Gated() && c.Registry.RPC == "" {
			return fmt.Errorf("%w: %s registry requires an RPC endpoint when operations are gated", governance.ErrInvalidConfig, c.Registry.Standard)
		}
	case registry.StandardMemory:
	default:
		return fmt.Errorf("%w: unknown registry standard %q", governance.ErrInvalidConfig, c.Registry.Standard)
	}
	if c.Node.DataDir == "" {
		return fmt.Errorf("%w: data directory must be set", governance.ErrInvalidConfig)
	}
	return nil
}

// applyEnv overrides file values with environment variables.
func applyEnv(c *Config) error {
	var err error
	c.Node.DataDir = getEnvOrDefault(EnvDataDir, c.Node.DataDir)
	c.Registry.RPC = getEnvOrDefault(EnvRPC, c.Registry.RPC)
	c.Registry.Standard = getEnvOrDefault(EnvStandard, c.Registry.Standard)
	c.Governance.ValidatorRegistry = getEnvOrDefault(EnvRegistry, c.Governance.ValidatorRegistry)
	c.Governance.ValidatorTokenID = getEnvOrDefault(EnvTokenID, c.Governance.ValidatorTokenID)
	if c.Governance.MaxYesVotesPerVoter, err = getEnvUintOrDefault(EnvMaxYes, c.Governance.MaxYesVotesPerVoter); err != nil {
		return err
	}
	if c.Governance.VotingDuration, err = getEnvUintOrDefault(EnvDuration, c.Governance.VotingDuration); err != nil {
		return err
	}
	return nil
}

// getEnvOrDefault retrieves an environment variable or returns a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvUintOrDefault is getEnvOrDefault for unsigned integers.
func getEnvUintOrDefault(key string, defaultValue uint64) (uint64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an unsigned integer", governance.ErrInvalidConfig, key, value)
	}
	return n, nil
}
