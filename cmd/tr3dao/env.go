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

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/urfave/cli/v2"

	"github.com/tr3dao/tr3dao/governance"
	"github.com/tr3dao/tr3dao/internal/config"
	"github.com/tr3dao/tr3dao/registry"
	"github.com/tr3dao/tr3dao/storage"
)

var (
	configFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	dataDirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "Directory holding the governance database (overrides config)",
	}
	fromFlag = &cli.StringFlag{
		Name:  "from",
		Usage: "Address of the calling account",
	}
	nowFlag = &cli.Uint64Flag{
		Name:  "now",
		Usage: "Current time as unix seconds (defaults to the system clock)",
	}
	rpcFlag = &cli.StringFlag{
		Name:  "rpc",
		Usage: "JSON-RPC endpoint of the validator token registry (overrides config)",
	}
	registryOwnerFlag = &cli.StringSliceFlag{
		Name:  "registry.owner",
		Usage: "Validator token holder for the memory registry (repeatable)",
	}
)

var errNoCaller = errors.New("--from is required for this command")

// environment bundles everything a command needs to talk to the DAO.
type environment struct {
	cfg   *config.Config
	dao   *governance.DAO
	db    *storage.Database
	close func()
}

func (env *environment) Close() {
	env.close()
}

// loadConfig reads the config file and applies command line overrides.
func loadConfig(ctx *cli.Context) (*config.Config, *governance.Config, error) {
	cfg, err := config.Load(ctx.String(configFileFlag.Name), func(cfg *config.Config) {
		if ctx.IsSet(dataDirFlag.Name) {
			cfg.Node.DataDir = ctx.String(dataDirFlag.Name)
		}
		if ctx.IsSet(rpcFlag.Name) {
			cfg.Registry.RPC = ctx.String(rpcFlag.Name)
		}
	})
	if err != nil {
		return nil, nil, err
	}
	params, err := cfg.GovernanceParams()
	if err != nil {
		return nil, nil, err
	}
	return cfg, params, nil
}

// openEnvironment loads config, opens the database and restores the DAO.
func openEnvironment(ctx *cli.Context) (*environment, error) {
	cfg, params, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	closers := make([]func(), 0, 2)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	dbConfig := storage.DefaultConfig(cfg.Node.DataDir)
	dbConfig.Sync = !cfg.Node.NoSync
	db, err := storage.Open(dbConfig)
	if err != nil {
		return nil, err
	}
	closers = append(closers, func() { db.Close() })

	state, err := db.Load()
	if err != nil {
		closeAll()
		return nil, err
	}

	opts := []governance.Option{
		governance.WithPersister(db),
		governance.WithApprovalPolicy(cfg.ApprovalPolicy()),
	}
	if ctx.IsSet(nowFlag.Name) {
		opts = append(opts, governance.WithClock(governance.NewManualClock(ctx.Uint64(nowFlag.Name))))
	}
	if cfg.Gated() {
		reg, closeReg, err := openRegistry(ctx, cfg, params)
		if err != nil {
			closeAll()
			return nil, err
		}
		closers = append(closers, closeReg)
		opts = append(opts, governance.WithRegistry(reg))
	}

	dao, err := governance.Restore(params, state, opts...)
	if err != nil {
		closeAll()
		return nil, err
	}
	closers = append(closers, dao.Close)
	if ctx.Bool(metricsFlag.Name) {
		w := ctx.App.ErrWriter
		closers = append(closers, func() { metrics.WriteOnce(dao.Metrics(), w) })
	}
	return &environment{cfg: cfg, dao: dao, db: db, close: closeAll}, nil
}

func openRegistry(ctx *cli.Context, cfg *config.Config, params *governance.Config) (governance.TokenRegistry, func(), error) {
	if strings.EqualFold(cfg.Registry.Standard, registry.StandardMemory) {
		mem := registry.NewMemoryRegistry()
		for _, hex := range ctx.StringSlice(registryOwnerFlag.Name) {
			if !common.IsHexAddress(hex) {
				return nil, nil, fmt.Errorf("invalid registry owner %q", hex)
			}
			mem.SetOwner(params.ValidatorRegistry, params.ValidatorTokenID, common.HexToAddress(hex))
		}
		return mem, func() {}, nil
	}
	client, err := registry.Dial(context.Background(), cfg.Registry.RPC)
	if err != nil {
		return nil, nil, err
	}
	reg, err := registry.New(cfg.Registry.Standard, client, cfg.Registry.IncludeOperators)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	log.Debug("Connected to validator registry", "rpc", cfg.Registry.RPC, "standard", cfg.Registry.Standard)
	return reg, client.Close, nil
}

// caller parses --from.
func caller(ctx *cli.Context) (common.Address, error) {
	from := ctx.String(fromFlag.Name)
	if from == "" {
		return common.Address{}, errNoCaller
	}
	if !common.IsHexAddress(from) {
		return common.Address{}, fmt.Errorf("invalid --from address %q", from)
	}
	return common.HexToAddress(from), nil
}
