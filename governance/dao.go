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

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
)

// Option configures optional DAO collaborators.
type Option func(*DAO)

// WithClock sets the time source. Defaults to SystemClock.
func WithClock(c Clock) Option {
	return func(d *DAO) { d.clock = c }
}

// WithRegistry sets the token registry consulted by the access gate.
func WithRegistry(r TokenRegistry) Option {
	return func(d *DAO) { d.registry = r }
}

// WithApprovalPolicy replaces the default SimpleMajority threshold.
func WithApprovalPolicy(p ApprovalPolicy) Option {
	return func(d *DAO) { d.approval = p }
}

// WithExecutor installs the downstream action run after execution.
func WithExecutor(e Executor) Option {
	return func(d *DAO) { d.executor = e }
}

// WithPersister makes every committed change durable.
func WithPersister(p Persister) Option {
	return func(d *DAO) { d.persister = p }
}

// WithLogger replaces the default module logger.
func WithLogger(l log.Logger) Option {
	return func(d *DAO) { d.log = l }
}

// WithMetrics registers the DAO counters in r instead of a private registry.
func WithMetrics(r metrics.Registry) Option {
	return func(d *DAO) { d.metricsRegistry = r }
}

// DAO is the governance core. Every operation is a single indivisible
// transition: mutations take the write lock, queries the read lock.
type DAO struct {
	config    *Config
	clock     Clock
	registry  TokenRegistry
	gate      *AccessGate
	approval  ApprovalPolicy
	executor  Executor
	persister Persister
	log       log.Logger

	metricsRegistry metrics.Registry
	metrics         *daoMetrics

	mu        sync.RWMutex
	proposals *proposalStore
	ledger    *voteLedger
	seq       uint64 // commit counter, guarded by mu

	feed  event.FeedOf[Event]
	scope event.SubscriptionScope
}

// New creates an empty DAO. The config is copied and never changes afterwards.
func New(config *Config, opts ...Option) (*DAO, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	d := &DAO{
		config:   config.Copy(),
		clock:    SystemClock{},
		approval: SimpleMajority{},
		log:      log.New("module", "governance"),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.metricsRegistry == nil {
		d.metricsRegistry = metrics.NewRegistry()
	}
	d.metrics = newDAOMetrics(d.metricsRegistry)
	if d.registry != nil {
		d.gate = NewAccessGate(d.registry, d.config.ValidatorRegistry, d.config.ValidatorTokenID)
	} else if d.config.Access != (AccessPolicy{}) {
		return nil, wrapConfigErr("access policy set but no token registry configured")
	}
	d.proposals = newProposalStore()
	d.ledger = newVoteLedger(d.config.MaxYesVotesPerVoter)
	return d, nil
}

// Restore creates a DAO holding a previously saved state. Each proposal
// tally and each voter quota must equal the count derived from the vote
// records; any mismatch is rejected with ErrInconsistentState.
func Restore(config *Config, state *State, opts ...Option) (*DAO, error) {
	d, err := New(config, opts...)
	if err != nil {
		return nil, err
	}
	for i, p := range state.Proposals {
		if p.ID != uint64(i) {
			return nil, fmt.Errorf("%w: proposal at position %d has id %d", ErrInvalidProposalID, i, p.ID)
		}
		cpy := *p
		d.proposals.insert(&cpy)
	}

	var (
		yesTally = make([]uint64, d.proposals.count())
		noTally  = make([]uint64, d.proposals.count())
		quota    = make(map[common.Address]uint64)
	)
	for _, v := range state.Votes {
		if v.ProposalID >= d.proposals.count() {
			return nil, fmt.Errorf("%w: vote by %s references proposal %d", ErrInvalidProposalID, v.Voter.Hex(), v.ProposalID)
		}
		if _, dup := d.ledger.voted[v.Key()]; dup {
			return nil, fmt.Errorf("%w: duplicate vote by %s on proposal %d", ErrInconsistentState, v.Voter.Hex(), v.ProposalID)
		}
		d.ledger.voted[v.Key()] = v.Support
		if v.Support {
			yesTally[v.ProposalID]++
			quota[v.Voter]++
		} else {
			noTally[v.ProposalID]++
		}
	}
	for _, p := range d.proposals.proposals {
		if p.YesVotes != yesTally[p.ID] || p.NoVotes != noTally[p.ID] {
			return nil, fmt.Errorf("%w: proposal %d tallies %d/%d but records hold %d/%d",
				ErrInconsistentState, p.ID, p.YesVotes, p.NoVotes, yesTally[p.ID], noTally[p.ID])
		}
	}
	for voter, used := range state.YesQuota {
		if used > d.config.MaxYesVotesPerVoter {
			return nil, fmt.Errorf("%w: voter %s has %d yes votes", ErrQuotaExceeded, voter.Hex(), used)
		}
	}
	for voter, used := range quota {
		if used > d.config.MaxYesVotesPerVoter {
			return nil, fmt.Errorf("%w: voter %s has %d yes votes", ErrQuotaExceeded, voter.Hex(), used)
		}
	}
	for voter, used := range state.YesQuota {
		if used != quota[voter] {
			return nil, fmt.Errorf("%w: voter %s quota %d but records hold %d yes votes",
				ErrInconsistentState, voter.Hex(), used, quota[voter])
		}
	}
	for voter, used := range quota {
		if _, ok := state.YesQuota[voter]; !ok {
			return nil, fmt.Errorf("%w: voter %s has %d yes votes but no quota record",
				ErrInconsistentState, voter.Hex(), used)
		}
	}
	d.ledger.quota = quota
	d.log.Info("Restored governance state", "proposals", d.proposals.count(), "votes", len(state.Votes))
	return d, nil
}

// Close ends all event subscriptions.
func (d *DAO) Close() {
	d.scope.Close()
}

// Config returns a copy of the construction parameters.
func (d *DAO) Config() *Config {
	return d.config.Copy()
}

// Metrics returns the registry holding the DAO counters.
func (d *DAO) Metrics() metrics.Registry {
	return d.metricsRegistry
}

// SubscribeEvents delivers every committed operation to ch. Delivery
// follows the send order, not necessarily the commit order; see
// Event.Sequence. The feed blocks until ch accepts the event.
func (d *DAO) SubscribeEvents(ch chan<- Event) event.Subscription {
	return d.scope.Track(d.feed.Subscribe(ch))
}

// CreateProposal registers a new proposal and returns its id.
func (d *DAO) CreateProposal(ctx context.Context, creator common.Address, description string) (uint64, error) {
	if d.config.Access.Create {
		if err := d.gate.authorize(ctx, creator); err != nil {
			d.log.Debug("Proposal creation rejected", "creator", creator, "err", err)
			return 0, err
		}
	}

	d.mu.Lock()
	p := d.proposals.draft(description, d.clock.Now())
	if err := d.persist(&StateChange{Proposal: p}); err != nil {
		d.mu.Unlock()
		return 0, err
	}
	d.proposals.insert(p)
	d.seq++
	seq := d.seq
	d.mu.Unlock()

	d.metrics.proposalsCreated.Inc(1)
	d.log.Info("Proposal created", "id", p.ID, "creator", creator, "start", p.StartTime)
	d.feed.Send(ProposalCreatedEvent{
		Seq:         seq,
		ID:          p.ID,
		Creator:     creator,
		Description: p.Description,
		StartTime:   p.StartTime,
	})
	return p.ID, nil
}

// GetProposal returns a copy of the proposal with the given id.
func (d *DAO) GetProposal(id uint64) (*Proposal, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, err := d.proposals.get(id)
	if err != nil {
		return nil, err
	}
	cpy := *p
	return &cpy, nil
}

// ProposalsCount returns the number of proposals ever created.
func (d *DAO) ProposalsCount() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.proposals.count()
}

// Proposals returns copies of all proposals in id order.
func (d *DAO) Proposals() []*Proposal {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.proposals.snapshot()
}

// Vote records voter's vote on a proposal. Checks run in order: the
// proposal exists, voter has not voted on it, a yes vote fits the voter's
// remaining quota, and, when voting is gated, voter holds the credential.
func (d *DAO) Vote(ctx context.Context, voter common.Address, id uint64, support bool) error {
	if d.config.Access.Vote {
		d.mu.RLock()
		_, err := d.checkVote(voter, id, support)
		d.mu.RUnlock()
		if err == nil {
			err = d.gate.authorize(ctx, voter)
		}
		if err != nil {
			return d.rejectVote(voter, id, support, err)
		}
	}

	d.mu.Lock()
	// State may have moved while the registry was consulted.
	p, err := d.checkVote(voter, id, support)
	if err != nil {
		d.mu.Unlock()
		return d.rejectVote(voter, id, support, err)
	}
	change := d.ledger.plan(p, voter, support)
	if err := d.persist(change); err != nil {
		d.mu.Unlock()
		return err
	}
	d.proposals.replace(change.Proposal)
	d.ledger.apply(change)
	yes, no := change.Proposal.YesVotes, change.Proposal.NoVotes
	d.seq++
	seq := d.seq
	d.mu.Unlock()

	if support {
		d.metrics.yesVotes.Inc(1)
	} else {
		d.metrics.noVotes.Inc(1)
	}
	d.log.Debug("Vote recorded", "id", id, "voter", voter, "support", support, "yes", yes, "no", no)
	d.feed.Send(VoteCastEvent{Seq: seq, ID: id, Voter: voter, Support: support})
	return nil
}

func (d *DAO) checkVote(voter common.Address, id uint64, support bool) (*Proposal, error) {
	p, err := d.proposals.get(id)
	if err != nil {
		return nil, err
	}
	if err := d.ledger.check(voter, id, support); err != nil {
		return nil, err
	}
	return p, nil
}

func (d *DAO) rejectVote(voter common.Address, id uint64, support bool, err error) error {
	d.metrics.rejectedVotes.Inc(1)
	d.log.Debug("Vote rejected", "id", id, "voter", voter, "support", support, "err", err)
	return err
}

// HasVoted reports whether voter has a vote recorded on proposal id.
func (d *DAO) HasVoted(voter common.Address, id uint64) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.ledger.hasVoted(voter, id)
}

// YesVotesCast returns the number of yes votes voter has cast so far.
func (d *DAO) YesVotesCast(voter common.Address) uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.ledger.yesCast(voter)
}

// RemainingYesVotes returns how many more yes votes voter may cast.
func (d *DAO) RemainingYesVotes(voter common.Address) uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.ledger.remaining(voter)
}

// ExecuteProposal marks an approved proposal executed once its voting
// window has ended, then runs the configured Executor, if any. A hook
// failure is reported wrapped in ErrExecutionHook; the proposal stays
// executed.
func (d *DAO) ExecuteProposal(ctx context.Context, caller common.Address, id uint64) error {
	if d.config.Access.Execute {
		d.mu.RLock()
		_, err := d.checkExecute(id)
		d.mu.RUnlock()
		if err == nil {
			err = d.gate.authorize(ctx, caller)
		}
		if err != nil {
			return d.rejectExecute(caller, id, err)
		}
	}

	d.mu.Lock()
	p, err := d.checkExecute(id)
	if err != nil {
		d.mu.Unlock()
		return d.rejectExecute(caller, id, err)
	}
	updated := *p
	updated.Executed = true
	if err := d.persist(&StateChange{Proposal: &updated}); err != nil {
		d.mu.Unlock()
		return err
	}
	d.proposals.replace(&updated)
	d.seq++
	seq := d.seq
	d.mu.Unlock()

	d.metrics.executed.Inc(1)
	d.log.Info("Proposal executed", "id", id, "caller", caller, "yes", updated.YesVotes, "no", updated.NoVotes)
	d.feed.Send(ProposalExecutedEvent{
		Seq:      seq,
		ID:       id,
		Executor: caller,
		YesVotes: updated.YesVotes,
		NoVotes:  updated.NoVotes,
	})

	if d.executor != nil {
		result := updated
		if err := d.executor.Execute(ctx, &result); err != nil {
			d.log.Warn("Execution hook failed", "id", id, "err", err)
			return fmt.Errorf("%w: proposal %d: %v", ErrExecutionHook, id, err)
		}
	}
	return nil
}

func (d *DAO) checkExecute(id uint64) (*Proposal, error) {
	p, err := d.proposals.get(id)
	if err != nil {
		return nil, err
	}
	if p.Executed {
		return nil, ErrAlreadyExecuted
	}
	if d.clock.Now() < p.VotingEndsAt(d.config.VotingDuration) {
		return nil, ErrVotingPeriodNotEnded
	}
	if !d.approval.Approved(p) {
		return nil, ErrProposalNotApproved
	}
	return p, nil
}

func (d *DAO) rejectExecute(caller common.Address, id uint64, err error) error {
	if errors.Is(err, ErrProposalNotApproved) {
		d.metrics.rejectedExec.Inc(1)
	}
	d.log.Debug("Execution rejected", "id", id, "caller", caller, "err", err)
	return err
}

// TopProposals returns up to k proposal ids ordered by descending yes votes,
// ties broken by ascending id.
func (d *DAO) TopProposals(k int) []uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return RankTop(d.proposals.proposals, k)
}

// State returns a copy of the full governance state.
func (d *DAO) State() *State {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return &State{
		Proposals: d.proposals.snapshot(),
		Votes:     d.ledger.records(),
		YesQuota:  d.ledger.quotas(),
	}
}

func (d *DAO) persist(change *StateChange) error {
	if d.persister == nil {
		return nil
	}
	if err := d.persister.Persist(change); err != nil {
		d.log.Error("Failed to persist governance change", "id", change.Proposal.ID, "err", err)
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}
