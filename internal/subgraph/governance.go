package subgraph

import (
	"context"
	"math/big"
	"strings"

	"TroveDesk/internal/model"

	"github.com/ethereum/go-ethereum/common"
)

type allocationRow struct {
	Epoch      flexInt `json:"epoch"`
	Initiative *struct {
		ID string `json:"id"`
	} `json:"initiative"`
	VoteLQTY   bigInt `json:"voteLQTY"`
	VetoLQTY   bigInt `json:"vetoLQTY"`
	VoteOffset bigInt `json:"voteOffset"`
	VetoOffset bigInt `json:"vetoOffset"`
}

// GovernanceGlobalData returns the registered initiatives and total voting power.
func (c *Client) GovernanceGlobalData(ctx context.Context) (model.GovernanceGlobalData, error) {
	var out struct {
		GovernanceInitiatives []struct {
			ID string `json:"id"`
		} `json:"governanceInitiatives"`
		GovernanceVotingPower *struct {
			AllocatedLQTY     bigInt `json:"allocatedLQTY"`
			AllocatedOffset   bigInt `json:"allocatedOffset"`
			UnallocatedLQTY   bigInt `json:"unallocatedLQTY"`
			UnallocatedOffset bigInt `json:"unallocatedOffset"`
		} `json:"governanceVotingPower"`
	}
	if err := c.query(ctx, "GovernanceGlobalData", governanceGlobalDataQuery, nil, &out); err != nil {
		return model.GovernanceGlobalData{}, err
	}

	data := model.GovernanceGlobalData{
		RegisteredInitiatives: make([]common.Address, 0, len(out.GovernanceInitiatives)),
	}
	for _, in := range out.GovernanceInitiatives {
		data.RegisteredInitiatives = append(data.RegisteredInitiatives, common.HexToAddress(in.ID))
	}
	data.TotalVotingPower = model.VotingPower{
		AllocatedLQTY:     new(big.Int),
		AllocatedOffset:   new(big.Int),
		UnallocatedLQTY:   new(big.Int),
		UnallocatedOffset: new(big.Int),
	}
	if p := out.GovernanceVotingPower; p != nil {
		data.TotalVotingPower = model.VotingPower{
			AllocatedLQTY:     p.AllocatedLQTY.Big(),
			AllocatedOffset:   p.AllocatedOffset.Big(),
			UnallocatedLQTY:   p.UnallocatedLQTY.Big(),
			UnallocatedOffset: p.UnallocatedOffset.Big(),
		}
	}
	return data, nil
}

// UserAllocationHistory returns a user's allocations, newest epoch first.
func (c *Client) UserAllocationHistory(ctx context.Context, user common.Address) ([]model.Allocation, error) {
	var out struct {
		GovernanceAllocations []allocationRow `json:"governanceAllocations"`
	}
	vars := map[string]any{"user": strings.ToLower(user.Hex())}
	if err := c.query(ctx, "UserAllocationHistory", userAllocationHistoryQuery, vars, &out); err != nil {
		return nil, err
	}
	allocs := make([]model.Allocation, 0, len(out.GovernanceAllocations))
	for _, a := range out.GovernanceAllocations {
		initiative := ""
		if a.Initiative != nil {
			initiative = a.Initiative.ID
		}
		allocs = append(allocs, model.Allocation{
			Epoch:      int64(a.Epoch),
			Initiative: initiative,
			VoteLQTY:   a.VoteLQTY.Big(),
			VetoLQTY:   a.VetoLQTY.Big(),
			VoteOffset: a.VoteOffset.Big(),
			VetoOffset: a.VetoOffset.Big(),
		})
	}
	model.SortAllocationsByEpochDesc(allocs)
	return allocs, nil
}

// TotalAllocationHistory returns an initiative's aggregate allocations, newest epoch first.
func (c *Client) TotalAllocationHistory(ctx context.Context, initiative common.Address) ([]model.TotalAllocation, error) {
	var out struct {
		GovernanceAllocations []allocationRow `json:"governanceAllocations"`
	}
	vars := map[string]any{"initiative": strings.ToLower(initiative.Hex())}
	if err := c.query(ctx, "TotalAllocationHistory", totalAllocationHistoryQuery, vars, &out); err != nil {
		return nil, err
	}
	allocs := make([]model.TotalAllocation, 0, len(out.GovernanceAllocations))
	for _, a := range out.GovernanceAllocations {
		allocs = append(allocs, model.TotalAllocation{
			Epoch:      int64(a.Epoch),
			VoteLQTY:   a.VoteLQTY.Big(),
			VetoLQTY:   a.VetoLQTY.Big(),
			VoteOffset: a.VoteOffset.Big(),
			VetoOffset: a.VetoOffset.Big(),
		})
	}
	model.SortTotalAllocationsByEpochDesc(allocs)
	return allocs, nil
}
