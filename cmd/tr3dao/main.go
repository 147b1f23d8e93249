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

// tr3dao is a command line front end for the governance engine.
package main

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/urfave/cli/v2"
)

var metricsFlag = &cli.BoolFlag{
	Name:  "metrics",
	Usage: "Enable metrics collection and print the governance counters after the command",
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "tr3dao",
		Usage: "create, vote on and execute governance proposals",
		Flags: []cli.Flag{
			configFileFlag,
			dataDirFlag,
			fromFlag,
			nowFlag,
			rpcFlag,
			registryOwnerFlag,
			verbosityFlag,
			logFileFlag,
			logJSONFlag,
			metricsFlag,
		},
		Before: func(ctx *cli.Context) error {
			if ctx.Bool(metricsFlag.Name) {
				metrics.Enabled = true
			}
			return setupLogging(ctx)
		},
		Commands: []*cli.Command{
			createCommand,
			voteCommand,
			executeCommand,
			proposalCommand,
			countCommand,
			topCommand,
			listCommand,
			validatorCommand,
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Error("Command failed", "err", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
