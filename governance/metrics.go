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

import "github.com/ethereum/go-ethereum/metrics"

// daoMetrics counts committed and rejected transitions of one DAO. The
// counters are forced so they count regardless of metrics.Enabled.
type daoMetrics struct {
	proposalsCreated metrics.Counter
	yesVotes         metrics.Counter
	noVotes          metrics.Counter
	rejectedVotes    metrics.Counter
	executed         metrics.Counter
	rejectedExec     metrics.Counter
}

func newDAOMetrics(r metrics.Registry) *daoMetrics {
	return &daoMetrics{
		proposalsCreated: metrics.GetOrRegisterCounterForced("governance/proposals/created", r),
		yesVotes:         metrics.GetOrRegisterCounterForced("governance/votes/yes", r),
		noVotes:          metrics.GetOrRegisterCounterForced("governance/votes/no", r),
		rejectedVotes:    metrics.GetOrRegisterCounterForced("governance/votes/rejected", r),
		executed:         metrics.GetOrRegisterCounterForced("governance/proposals/executed", r),
		rejectedExec:     metrics.GetOrRegisterCounterForced("governance/proposals/rejected", r),
	}
}
