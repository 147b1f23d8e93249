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
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/metrics"
)

var (
	testRegistry = common.HexToAddress("0x1234567890abcdef1234567890abcdef12345678")
	voterA       = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	voterB       = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	voterC       = common.HexToAddress("0x00000000000000000000000000000000000000c3")
)

// MockTokenRegistry is a token registry backed by an owner set.
type MockTokenRegistry struct {
	mu      sync.Mutex
	owners  map[common.Address]bool
	err     error
	calls   int
	onCheck func()
}

func NewMockTokenRegistry(owners ...common.Address) *MockTokenRegistry {
	m := &MockTokenRegistry{owners: make(map[common.Address]bool)}
	for _, o := range owners {
		m.owners[o] = true
	}
	return m
}

func (m *MockTokenRegistry) Controls(ctx context.Context, registry common.Address, holder common.Address, tokenID *big.Int) (bool, error) {
	m.mu.Lock()
	m.calls++
	hook := m.onCheck
	err := m.err
	ok := m.owners[holder]
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return false, err
	}
	return ok, nil
}

// MockPersister records changes and optionally fails.
type MockPersister struct {
	changes []*StateChange
	fail    error
}

func (m *MockPersister) Persist(change *StateChange) error {
	if m.fail != nil {
		return m.fail
	}
	m.changes = append(m.changes, change)
	return nil
}

// MockExecutor records executed proposals.
type MockExecutor struct {
	executed []uint64
	fail     error
}

func (m *MockExecutor) Execute(ctx context.Context, p *Proposal) error {
	m.executed = append(m.executed, p.ID)
	return m.fail
}

func testConfig(maxYes uint64) *Config {
	config := DefaultConfig()
	config.ValidatorRegistry = testRegistry
	config.MaxYesVotesPerVoter = maxYes
	config.VotingDuration = 3600
	return config
}

func newTestDAO(t *testing.T, maxYes uint64, opts ...Option) (*DAO, *ManualClock) {
	t.Helper()
	clock := NewManualClock(1_700_000_000)
	dao, err := New(testConfig(maxYes), append([]Option{WithClock(clock)}, opts...)...)
	if err != nil {
		t.Fatalf("failed to create DAO: %v", err)
	}
	return dao, clock
}

func mustCreate(t *testing.T, dao *DAO, descriptions ...string) {
	t.Helper()
	for _, desc := range descriptions {
		if _, err := dao.CreateProposal(context.Background(), voterA, desc); err != nil {
			t.Fatalf("failed to create proposal %q: %v", desc, err)
		}
	}
}

func mustVote(t *testing.T, dao *DAO, voter common.Address, id uint64, support bool) {
	t.Helper()
	if err := dao.Vote(context.Background(), voter, id, support); err != nil {
		t.Fatalf("vote by %s on %d failed: %v", voter.Hex(), id, err)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	config := testConfig(3)
	config.ValidatorTokenID = nil
	if _, err := New(config); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for nil token id, got %v", err)
	}

	config = testConfig(3)
	config.Access.Vote = true
	if _, err := New(config); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for gated voting without registry, got %v", err)
	}

	config.ValidatorRegistry = common.Address{}
	if _, err := New(config, WithRegistry(NewMockTokenRegistry())); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for gated voting without registry address, got %v", err)
	}
}

func TestDAO_ConfigIsImmutable(t *testing.T) {
	config := testConfig(3)
	dao, err := New(config)
	if err != nil {
		t.Fatalf("failed to create DAO: %v", err)
	}
	config.MaxYesVotesPerVoter = 100
	config.ValidatorTokenID.SetInt64(42)

	got := dao.Config()
	if got.MaxYesVotesPerVoter != 3 {
		t.Errorf("expected max yes votes 3, got %d", got.MaxYesVotesPerVoter)
	}
	if got.ValidatorTokenID.Int64() != 1 {
		t.Errorf("expected token id 1, got %s", got.ValidatorTokenID)
	}
}

func TestDAO_ExecuteProposal(t *testing.T) {
	dao, clock := newTestDAO(t, 3)
	mustCreate(t, dao, "Proposal 1: Improve community engagement")
	mustVote(t, dao, voterA, 0, true)

	ctx := context.Background()
	if err := dao.ExecuteProposal(ctx, voterB, 0); !errors.Is(err, ErrVotingPeriodNotEnded) {
		t.Fatalf("expected ErrVotingPeriodNotEnded, got %v", err)
	}

	clock.Advance(3599)
	if err := dao.ExecuteProposal(ctx, voterB, 0); !errors.Is(err, ErrVotingPeriodNotEnded) {
		t.Fatalf("expected ErrVotingPeriodNotEnded one second early, got %v", err)
	}

	clock.Advance(1)
	if err := dao.ExecuteProposal(ctx, voterB, 0); err != nil {
		t.Fatalf("execution failed: %v", err)
	}
	p, _ := dao.GetProposal(0)
	if !p.Executed {
		t.Error("proposal should be executed")
	}

	if err := dao.ExecuteProposal(ctx, voterB, 0); !errors.Is(err, ErrAlreadyExecuted) {
		t.Errorf("expected ErrAlreadyExecuted, got %v", err)
	}
	if err := dao.ExecuteProposal(ctx, voterB, 7); !errors.Is(err, ErrInvalidProposalID) {
		t.Errorf("expected ErrInvalidProposalID, got %v", err)
	}
}

func TestDAO_ExecuteBeforeWindowIgnoresTally(t *testing.T) {
	dao, _ := newTestDAO(t, 3)
	mustCreate(t, dao, "approved early", "rejected early")
	mustVote(t, dao, voterA, 0, true)
	mustVote(t, dao, voterB, 0, true)
	mustVote(t, dao, voterA, 1, false)

	for id := uint64(0); id < 2; id++ {
		if err := dao.ExecuteProposal(context.Background(), voterC, id); !errors.Is(err, ErrVotingPeriodNotEnded) {
			t.Errorf("proposal %d: expected ErrVotingPeriodNotEnded, got %v", id, err)
		}
	}
}

func TestDAO_ExecuteNotApproved(t *testing.T) {
	dao, clock := newTestDAO(t, 3)
	mustCreate(t, dao, "tie", "no votes", "rejected")
	mustVote(t, dao, voterA, 0, true)
	mustVote(t, dao, voterB, 0, false)
	mustVote(t, dao, voterA, 2, false)
	clock.Advance(3600)

	for id := uint64(0); id < 3; id++ {
		if err := dao.ExecuteProposal(context.Background(), voterC, id); !errors.Is(err, ErrProposalNotApproved) {
			t.Errorf("proposal %d: expected ErrProposalNotApproved, got %v", id, err)
		}
		p, _ := dao.GetProposal(id)
		if p.Executed {
			t.Errorf("proposal %d should not be executed", id)
		}
	}
}

func TestDAO_ExecuteWithSupermajority(t *testing.T) {
	dao, clock := newTestDAO(t, 3, WithApprovalPolicy(Supermajority{Percent: 67}))
	mustCreate(t, dao, "needs two thirds")
	mustVote(t, dao, voterA, 0, true)
	mustVote(t, dao, voterB, 0, true)
	mustVote(t, dao, voterC, 0, false)
	clock.Advance(3600)

	if err := dao.ExecuteProposal(context.Background(), voterA, 0); !errors.Is(err, ErrProposalNotApproved) {
		t.Errorf("2 of 3 is below 67%%, expected ErrProposalNotApproved, got %v", err)
	}
}

func TestDAO_ExecutorHook(t *testing.T) {
	executor := &MockExecutor{}
	dao, clock := newTestDAO(t, 3, WithExecutor(executor))
	mustCreate(t, dao, "runs hook")
	mustVote(t, dao, voterA, 0, true)
	clock.Advance(3600)

	if err := dao.ExecuteProposal(context.Background(), voterA, 0); err != nil {
		t.Fatalf("execution failed: %v", err)
	}
	if len(executor.executed) != 1 || executor.executed[0] != 0 {
		t.Errorf("expected hook to run for proposal 0, got %v", executor.executed)
	}
}

func TestDAO_ExecutorHookFailure(t *testing.T) {
	executor := &MockExecutor{fail: errors.New("downstream unavailable")}
	dao, clock := newTestDAO(t, 3, WithExecutor(executor))
	mustCreate(t, dao, "hook fails")
	mustVote(t, dao, voterA, 0, true)
	clock.Advance(3600)

	if err := dao.ExecuteProposal(context.Background(), voterA, 0); !errors.Is(err, ErrExecutionHook) {
		t.Fatalf("expected ErrExecutionHook, got %v", err)
	}
	p, _ := dao.GetProposal(0)
	if !p.Executed {
		t.Error("proposal should stay executed after a hook failure")
	}
	if err := dao.ExecuteProposal(context.Background(), voterA, 0); !errors.Is(err, ErrAlreadyExecuted) {
		t.Errorf("expected ErrAlreadyExecuted, got %v", err)
	}
}

func TestDAO_GatedVoting(t *testing.T) {
	registry := NewMockTokenRegistry(voterA)
	config := testConfig(3)
	config.Access.Vote = true
	dao, err := New(config, WithRegistry(registry))
	if err != nil {
		t.Fatalf("failed to create DAO: %v", err)
	}
	mustCreate(t, dao, "gated")

	mustVote(t, dao, voterA, 0, true)
	if err := dao.Vote(context.Background(), voterB, 0, true); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	p, _ := dao.GetProposal(0)
	if p.YesVotes != 1 {
		t.Errorf("expected 1 yes vote, got %d", p.YesVotes)
	}
	if dao.HasVoted(voterB, 0) {
		t.Error("rejected voter should have no vote record")
	}
}

func TestDAO_GateConsultedAfterLocalChecks(t *testing.T) {
	registry := NewMockTokenRegistry(voterA)
	config := testConfig(3)
	config.Access.Vote = true
	dao, err := New(config, WithRegistry(registry))
	if err != nil {
		t.Fatalf("failed to create DAO: %v", err)
	}

	if err := dao.Vote(context.Background(), voterB, 0, true); !errors.Is(err, ErrInvalidProposalID) {
		t.Errorf("expected ErrInvalidProposalID before authorization, got %v", err)
	}
	if registry.calls != 0 {
		t.Errorf("registry should not be consulted for an invalid proposal, got %d calls", registry.calls)
	}
}

func TestDAO_RegistryFailure(t *testing.T) {
	registry := NewMockTokenRegistry(voterA)
	registry.err = errors.New("connection refused")
	config := testConfig(3)
	config.Access.Create = true
	dao, err := New(config, WithRegistry(registry))
	if err != nil {
		t.Fatalf("failed to create DAO: %v", err)
	}

	if _, err := dao.CreateProposal(context.Background(), voterA, "unreachable"); !errors.Is(err, ErrRegistryUnavailable) {
		t.Fatalf("expected ErrRegistryUnavailable, got %v", err)
	}
	if dao.ProposalsCount() != 0 {
		t.Errorf("expected no proposals, got %d", dao.ProposalsCount())
	}
}

func TestDAO_GatedExecution(t *testing.T) {
	registry := NewMockTokenRegistry(voterA)
	config := testConfig(3)
	config.Access.Execute = true
	clock := NewManualClock(100)
	dao, err := New(config, WithRegistry(registry), WithClock(clock))
	if err != nil {
		t.Fatalf("failed to create DAO: %v", err)
	}
	mustCreate(t, dao, "gated execution")
	mustVote(t, dao, voterB, 0, true)
	clock.Advance(3600)

	if err := dao.ExecuteProposal(context.Background(), voterB, 0); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if err := dao.ExecuteProposal(context.Background(), voterA, 0); err != nil {
		t.Fatalf("validator execution failed: %v", err)
	}
}

func TestDAO_ReentrantRegistry(t *testing.T) {
	registry := NewMockTokenRegistry(voterA)
	config := testConfig(3)
	config.Access.Vote = true
	dao, err := New(config, WithRegistry(registry))
	if err != nil {
		t.Fatalf("failed to create DAO: %v", err)
	}
	mustCreate(t, dao, "reentrant")

	// The registry casts the same vote while the outer call is in flight.
	var inner error
	registry.onCheck = func() {
		registry.onCheck = nil
		inner = dao.Vote(context.Background(), voterA, 0, true)
	}
	outer := dao.Vote(context.Background(), voterA, 0, true)

	if inner != nil {
		t.Fatalf("inner vote failed: %v", inner)
	}
	if !errors.Is(outer, ErrAlreadyVoted) {
		t.Fatalf("expected outer vote to fail with ErrAlreadyVoted, got %v", outer)
	}
	p, _ := dao.GetProposal(0)
	if p.YesVotes != 1 {
		t.Errorf("expected exactly 1 yes vote, got %d", p.YesVotes)
	}
	if dao.YesVotesCast(voterA) != 1 {
		t.Errorf("expected quota 1, got %d", dao.YesVotesCast(voterA))
	}
}

func TestDAO_PersistFailureLeavesStateUnchanged(t *testing.T) {
	persister := &MockPersister{}
	dao, _ := newTestDAO(t, 3, WithPersister(persister))
	mustCreate(t, dao, "persisted")
	mustVote(t, dao, voterA, 0, true)
	if len(persister.changes) != 2 {
		t.Fatalf("expected 2 persisted changes, got %d", len(persister.changes))
	}

	persister.fail = errors.New("disk full")
	if err := dao.Vote(context.Background(), voterB, 0, true); !errors.Is(err, ErrPersist) {
		t.Fatalf("expected ErrPersist, got %v", err)
	}
	if _, err := dao.CreateProposal(context.Background(), voterB, "lost"); !errors.Is(err, ErrPersist) {
		t.Fatalf("expected ErrPersist, got %v", err)
	}

	p, _ := dao.GetProposal(0)
	if p.YesVotes != 1 {
		t.Errorf("expected 1 yes vote, got %d", p.YesVotes)
	}
	if dao.HasVoted(voterB, 0) || dao.YesVotesCast(voterB) != 0 {
		t.Error("failed vote should leave no record")
	}
	if dao.ProposalsCount() != 1 {
		t.Errorf("expected 1 proposal, got %d", dao.ProposalsCount())
	}
}

func TestDAO_Events(t *testing.T) {
	dao, clock := newTestDAO(t, 3)
	defer dao.Close()

	ch := make(chan Event, 8)
	sub := dao.SubscribeEvents(ch)
	defer sub.Unsubscribe()

	mustCreate(t, dao, "observed")
	mustVote(t, dao, voterB, 0, true)
	clock.Advance(3600)
	if err := dao.ExecuteProposal(context.Background(), voterC, 0); err != nil {
		t.Fatalf("execution failed: %v", err)
	}

	created, ok := (<-ch).(ProposalCreatedEvent)
	if !ok || created.Description != "observed" || created.Creator != voterA {
		t.Errorf("unexpected created event: %+v", created)
	}
	cast, ok := (<-ch).(VoteCastEvent)
	if !ok || cast.Voter != voterB || !cast.Support {
		t.Errorf("unexpected vote event: %+v", cast)
	}
	executed, ok := (<-ch).(ProposalExecutedEvent)
	if !ok || executed.Executor != voterC || executed.YesVotes != 1 {
		t.Errorf("unexpected executed event: %+v", executed)
	}
	if created.Sequence() != 1 || cast.Sequence() != 2 || executed.Sequence() != 3 {
		t.Errorf("unexpected sequence numbers %d, %d, %d", created.Sequence(), cast.Sequence(), executed.Sequence())
	}
}

func TestDAO_EventSequenceFollowsCommits(t *testing.T) {
	dao, _ := newTestDAO(t, 100)
	defer dao.Close()

	const n = 50
	ch := make(chan Event, n+1)
	sub := dao.SubscribeEvents(ch)
	defer sub.Unsubscribe()
	mustCreate(t, dao, "busy")

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			voter := common.BigToAddress(big.NewInt(int64(i + 1)))
			if err := dao.Vote(context.Background(), voter, 0, i%2 == 0); err != nil {
				t.Errorf("vote %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[uint64]bool)
	for i := 0; i < n+1; i++ {
		seq := (<-ch).Sequence()
		if seq == 0 || seq > n+1 || seen[seq] {
			t.Fatalf("unexpected sequence number %d", seq)
		}
		seen[seq] = true
	}
}

func TestRestore(t *testing.T) {
	dao, _ := newTestDAO(t, 3)
	mustCreate(t, dao, "first", "second")
	mustVote(t, dao, voterA, 0, true)
	mustVote(t, dao, voterA, 1, false)
	mustVote(t, dao, voterB, 1, true)

	restored, err := Restore(testConfig(3), dao.State())
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if restored.ProposalsCount() != 2 {
		t.Fatalf("expected 2 proposals, got %d", restored.ProposalsCount())
	}
	if !restored.HasVoted(voterA, 1) || restored.YesVotesCast(voterA) != 1 {
		t.Error("vote records were not restored")
	}
	if err := restored.Vote(context.Background(), voterA, 0, false); !errors.Is(err, ErrAlreadyVoted) {
		t.Errorf("expected ErrAlreadyVoted after restore, got %v", err)
	}
	id, err := restored.CreateProposal(context.Background(), voterC, "third")
	if err != nil || id != 2 {
		t.Errorf("expected id 2 after restore, got %d (%v)", id, err)
	}
}

func TestRestore_RejectsBrokenState(t *testing.T) {
	state := &State{Proposals: []*Proposal{{ID: 1}}}
	if _, err := Restore(testConfig(3), state); !errors.Is(err, ErrInvalidProposalID) {
		t.Errorf("expected ErrInvalidProposalID for sparse ids, got %v", err)
	}

	state = &State{
		Proposals: []*Proposal{{ID: 0}},
		YesQuota:  map[common.Address]uint64{voterA: 4},
	}
	if _, err := Restore(testConfig(3), state); !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("expected ErrQuotaExceeded for oversized quota, got %v", err)
	}
}

func TestRestore_RejectsInconsistentState(t *testing.T) {
	tests := []struct {
		name  string
		state *State
	}{
		{
			name: "tally without records",
			state: &State{
				Proposals: []*Proposal{{ID: 0, YesVotes: 7}},
			},
		},
		{
			name: "no tally disagrees",
			state: &State{
				Proposals: []*Proposal{{ID: 0, NoVotes: 2}},
				Votes:     []VoteRecord{{Voter: voterA, ProposalID: 0}},
			},
		},
		{
			name: "quota without yes votes",
			state: &State{
				Proposals: []*Proposal{{ID: 0}},
				YesQuota:  map[common.Address]uint64{voterA: 2},
			},
		},
		{
			name: "yes votes without quota",
			state: &State{
				Proposals: []*Proposal{{ID: 0, YesVotes: 1}},
				Votes:     []VoteRecord{{Voter: voterA, ProposalID: 0, Support: true}},
			},
		},
		{
			name: "duplicate vote record",
			state: &State{
				Proposals: []*Proposal{{ID: 0, YesVotes: 2}},
				Votes: []VoteRecord{
					{Voter: voterA, ProposalID: 0, Support: true},
					{Voter: voterA, ProposalID: 0, Support: true},
				},
				YesQuota: map[common.Address]uint64{voterA: 2},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Restore(testConfig(3), tt.state); !errors.Is(err, ErrInconsistentState) {
				t.Errorf("expected ErrInconsistentState, got %v", err)
			}
		})
	}
}

func TestRestore_DerivesQuotaFromRecords(t *testing.T) {
	state := &State{
		Proposals: []*Proposal{{ID: 0, YesVotes: 1}, {ID: 1, NoVotes: 1}},
		Votes: []VoteRecord{
			{Voter: voterA, ProposalID: 0, Support: true},
			{Voter: voterA, ProposalID: 1, Support: false},
		},
		YesQuota: map[common.Address]uint64{voterA: 1, voterB: 0},
	}
	dao, err := Restore(testConfig(3), state)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if got := dao.RemainingYesVotes(voterA); got != 2 {
		t.Errorf("expected 2 remaining yes votes, got %d", got)
	}
}

func TestDAO_Metrics(t *testing.T) {
	dao, _ := newTestDAO(t, 1)
	mustCreate(t, dao, "counted", "second")
	mustVote(t, dao, voterA, 0, true)
	mustVote(t, dao, voterB, 0, false)
	if err := dao.Vote(context.Background(), voterA, 1, true); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}

	counts := map[string]int64{
		"governance/proposals/created":  2,
		"governance/votes/yes":          1,
		"governance/votes/no":           1,
		"governance/votes/rejected":     1,
		"governance/proposals/executed": 0,
	}
	for name, want := range counts {
		c, ok := dao.Metrics().Get(name).(metrics.Counter)
		if !ok {
			t.Fatalf("counter %s not registered", name)
		}
		if got := c.Snapshot().Count(); got != want {
			t.Errorf("counter %s: have %d, want %d", name, got, want)
		}
	}
}

func TestDAO_MetricsSharedRegistry(t *testing.T) {
	registry := metrics.NewRegistry()
	first, err := New(testConfig(3), WithMetrics(registry))
	if err != nil {
		t.Fatalf("failed to create DAO: %v", err)
	}
	second, err := New(testConfig(3), WithMetrics(registry))
	if err != nil {
		t.Fatalf("failed to create DAO: %v", err)
	}
	mustCreate(t, first, "one")
	mustCreate(t, second, "two")

	c := registry.Get("governance/proposals/created").(metrics.Counter)
	if got := c.Snapshot().Count(); got != 2 {
		t.Errorf("expected 2 proposals counted in shared registry, got %d", got)
	}
}
