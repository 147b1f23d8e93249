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
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"github.com/tr3dao/tr3dao/governance"
	"github.com/tr3dao/tr3dao/registry"
)

var (
	createCommand = &cli.Command{
		Name:      "create",
		Usage:     "Register a new proposal",
		ArgsUsage: "<description>",
		Action:    createProposal,
	}
	voteCommand = &cli.Command{
		Name:      "vote",
		Usage:     "Vote yes or no on a proposal",
		ArgsUsage: "<id> <yes|no>",
		Action:    vote,
	}
	executeCommand = &cli.Command{
		Name:      "execute",
		Usage:     "Execute an approved proposal after its voting window",
		ArgsUsage: "<id>",
		Action:    executeProposal,
	}
	proposalCommand = &cli.Command{
		Name:      "proposal",
		Usage:     "Show proposal details",
		ArgsUsage: "<id>",
		Action:    showProposal,
	}
	countCommand = &cli.Command{
		Name:   "count",
		Usage:  "Print the number of proposals",
		Action: countProposals,
	}
	topCommand = &cli.Command{
		Name:      "top",
		Usage:     "Show the proposals with the most yes votes",
		ArgsUsage: "<k>",
		Action:    topProposals,
	}
	listCommand = &cli.Command{
		Name:   "list",
		Usage:  "Show every proposal",
		Action: listProposals,
	}
	validatorCommand = &cli.Command{
		Name:      "validator",
		Usage:     "Check whether an address holds the validator credential",
		ArgsUsage: "<address>",
		Action:    checkValidator,
	}
)

func createProposal(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return fmt.Errorf("usage: %s %s", ctx.Command.Name, ctx.Command.ArgsUsage)
	}
	from, err := caller(ctx)
	if err != nil {
		return err
	}
	env, err := openEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	id, err := env.dao.CreateProposal(ctx.Context, from, strings.Join(ctx.Args().Slice(), " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "Proposal created: %d\n", id)
	return nil
}

func vote(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		return fmt.Errorf("usage: %s %s", ctx.Command.Name, ctx.Command.ArgsUsage)
	}
	id, err := parseID(ctx.Args().Get(0))
	if err != nil {
		return err
	}
	var support bool
	switch strings.ToLower(ctx.Args().Get(1)) {
	case "yes", "y", "true":
		support = true
	case "no", "n", "false":
	default:
		return fmt.Errorf("vote must be yes or no, got %q", ctx.Args().Get(1))
	}
	from, err := caller(ctx)
	if err != nil {
		return err
	}
	env, err := openEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.dao.Vote(ctx.Context, from, id, support); err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "Voted %s on proposal %d (%d yes votes left)\n",
		yesNo(support), id, env.dao.RemainingYesVotes(from))
	return nil
}

func executeProposal(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("usage: %s %s", ctx.Command.Name, ctx.Command.ArgsUsage)
	}
	id, err := parseID(ctx.Args().Get(0))
	if err != nil {
		return err
	}
	from, err := caller(ctx)
	if err != nil {
		return err
	}
	env, err := openEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.dao.ExecuteProposal(ctx.Context, from, id); err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "Proposal %d executed\n", id)
	return nil
}

func showProposal(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("usage: %s %s", ctx.Command.Name, ctx.Command.ArgsUsage)
	}
	id, err := parseID(ctx.Args().Get(0))
	if err != nil {
		return err
	}
	env, err := openEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	p, err := env.dao.GetProposal(id)
	if err != nil {
		return err
	}
	printProposal(ctx.App.Writer, fmt.Sprintf("Proposal %d", id), p, env.dao.Config().VotingDuration)
	return nil
}

func countProposals(ctx *cli.Context) error {
	env, err := openEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	fmt.Fprintln(ctx.App.Writer, env.dao.ProposalsCount())
	return nil
}

func topProposals(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("usage: %s %s", ctx.Command.Name, ctx.Command.ArgsUsage)
	}
	k, err := strconv.Atoi(ctx.Args().Get(0))
	if err != nil || k < 0 {
		return fmt.Errorf("invalid proposal count %q", ctx.Args().Get(0))
	}
	env, err := openEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	ids := env.dao.TopProposals(k)
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = strconv.FormatUint(id, 10)
	}
	fmt.Fprintf(ctx.App.Writer, "Top %d proposal IDs: [%s]\n", k, strings.Join(strs, ", "))

	duration := env.dao.Config().VotingDuration
	for i, id := range ids {
		p, err := env.dao.GetProposal(id)
		if err != nil {
			return err
		}
		printProposal(ctx.App.Writer, fmt.Sprintf("Top Proposal %d", i+1), p, duration)
	}
	return nil
}

func listProposals(ctx *cli.Context) error {
	env, err := openEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	duration := env.dao.Config().VotingDuration
	for _, p := range env.dao.Proposals() {
		printProposal(ctx.App.Writer, fmt.Sprintf("Proposal %d", p.ID), p, duration)
	}
	return nil
}

func checkValidator(ctx *cli.Context) error {
	if ctx.NArg() != 1 || !common.IsHexAddress(ctx.Args().Get(0)) {
		return fmt.Errorf("usage: %s %s", ctx.Command.Name, ctx.Command.ArgsUsage)
	}
	holder := common.HexToAddress(ctx.Args().Get(0))
	cfg, params, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if cfg.Registry.RPC == "" && !strings.EqualFold(cfg.Registry.Standard, registry.StandardMemory) {
		return fmt.Errorf("--%s is required to query a %s registry", rpcFlag.Name, cfg.Registry.Standard)
	}
	reg, closeReg, err := openRegistry(ctx, cfg, params)
	if err != nil {
		return err
	}
	defer closeReg()

	gate := governance.NewAccessGate(reg, params.ValidatorRegistry, params.ValidatorTokenID)
	ok, err := gate.IsAuthorized(ctx.Context, holder)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "%s validator (token %s on %s): %t\n",
		holder.Hex(), params.ValidatorTokenID, params.ValidatorRegistry.Hex(), ok)
	return nil
}

func printProposal(w io.Writer, title string, p *governance.Proposal, duration uint64) {
	fmt.Fprintf(w, "%s details:\n", title)
	fmt.Fprintf(w, "  Description: %s\n", p.Description)
	fmt.Fprintf(w, "  Yes Votes:   %d\n", p.YesVotes)
	fmt.Fprintf(w, "  No Votes:    %d\n", p.NoVotes)
	fmt.Fprintf(w, "  Start Time:  %s\n", formatTime(p.StartTime))
	fmt.Fprintf(w, "  Voting Ends: %s\n", formatTime(p.VotingEndsAt(duration)))
	fmt.Fprintf(w, "  Executed:    %t\n", p.Executed)
}

func formatTime(unix uint64) string {
	return time.Unix(int64(unix), 0).UTC().Format(time.RFC3339)
}

func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid proposal id %q", s)
	}
	return id, nil
}

func yesNo(support bool) string {
	if support {
		return "yes"
	}
	return "no"
}
