package model

import (
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// VotingPower holds the LQTY amounts and offsets used for time-weighted voting.
type VotingPower struct {
	AllocatedLQTY     *big.Int `json:"allocatedLQTY"`
	AllocatedOffset   *big.Int `json:"allocatedOffset"`
	UnallocatedLQTY   *big.Int `json:"unallocatedLQTY"`
	UnallocatedOffset *big.Int `json:"unallocatedOffset"`
}

// GovernanceGlobalData lists registered initiatives and total voting power.
type GovernanceGlobalData struct {
	RegisteredInitiatives []common.Address `json:"registeredInitiatives"`
	TotalVotingPower      VotingPower      `json:"totalVotingPower"`
}

// Allocation is a user's vote/veto allocation to an initiative for one epoch.
type Allocation struct {
	Epoch      int64    `json:"epoch"`
	Initiative string   `json:"initiative"`
	VoteLQTY   *big.Int `json:"voteLQTY"`
	VetoLQTY   *big.Int `json:"vetoLQTY"`
	VoteOffset *big.Int `json:"voteOffset"`
	VetoOffset *big.Int `json:"vetoOffset"`
}

// TotalAllocation is an initiative's aggregate allocation for one epoch.
type TotalAllocation struct {
	Epoch      int64    `json:"epoch"`
	VoteLQTY   *big.Int `json:"voteLQTY"`
	VetoLQTY   *big.Int `json:"vetoLQTY"`
	VoteOffset *big.Int `json:"voteOffset"`
	VetoOffset *big.Int `json:"vetoOffset"`
}

// SortAllocationsByEpochDesc orders allocations newest epoch first.
func SortAllocationsByEpochDesc(a []Allocation) {
	sort.SliceStable(a, func(i, j int) bool { return a[i].Epoch > a[j].Epoch })
}

// SortTotalAllocationsByEpochDesc orders total allocations newest epoch first.
func SortTotalAllocationsByEpochDesc(a []TotalAllocation) {
	sort.SliceStable(a, func(i, j int) bool { return a[i].Epoch > a[j].Epoch })
}
