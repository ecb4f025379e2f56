package subgraph

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"TroveDesk/internal/model"

	"github.com/ethereum/go-ethereum/common"
)

type collateralRef struct {
	CollIndex flexInt `json:"collIndex"`
}

// InterestBatches returns the batches managed by the given addresses on a branch.
func (c *Client) InterestBatches(ctx context.Context, branch int, managers []common.Address) ([]model.InterestBatch, error) {
	ids := make([]string, 0, len(managers))
	for _, m := range managers {
		ids = append(ids, fmt.Sprintf("%d:%s", branch, strings.ToLower(m.Hex())))
	}
	var out struct {
		InterestBatches []struct {
			Collateral          collateralRef `json:"collateral"`
			BatchManager        string        `json:"batchManager"`
			Debt                bigInt        `json:"debt"`
			Coll                bigInt        `json:"coll"`
			AnnualInterestRate  bigInt        `json:"annualInterestRate"`
			AnnualManagementFee bigInt        `json:"annualManagementFee"`
		} `json:"interestBatches"`
	}
	if err := c.query(ctx, "InterestBatches", interestBatchesQuery, map[string]any{"ids": ids}, &out); err != nil {
		return nil, err
	}
	batches := make([]model.InterestBatch, 0, len(out.InterestBatches))
	for _, b := range out.InterestBatches {
		batches = append(batches, model.InterestBatch{
			BatchManager: common.HexToAddress(b.BatchManager),
			Debt:         b.Debt.Dnum(),
			Coll:         b.Coll.Dnum(),
			InterestRate: b.AnnualInterestRate.Dnum(),
			Fee:          b.AnnualManagementFee.Dnum(),
		})
	}
	return batches, nil
}

// AllInterestRateBrackets returns every bracket with debt across branches,
// ascending by rate. Returns an empty slice when both sources fail.
func (c *Client) AllInterestRateBrackets(ctx context.Context) []model.InterestRateBracket {
	var out struct {
		InterestRateBrackets []struct {
			Collateral collateralRef `json:"collateral"`
			Rate       bigInt        `json:"rate"`
			TotalDebt  bigInt        `json:"totalDebt"`
		} `json:"interestRateBrackets"`
	}
	err := c.query(ctx, "AllInterestRateBrackets", allInterestRateBracketsQuery, nil, &out)
	if err == nil {
		brackets := make([]model.InterestRateBracket, 0, len(out.InterestRateBrackets))
		for _, b := range out.InterestRateBrackets {
			brackets = append(brackets, model.InterestRateBracket{
				BranchID:  int(b.Collateral.CollIndex),
				Rate:      b.Rate.Dnum(),
				TotalDebt: b.TotalDebt.Dnum(),
			})
		}
		model.SortBracketsByRate(brackets)
		return brackets
	}

	c.logger.Warn("subgraph query failed, attempting backup read calls", "accessor", "AllInterestRateBrackets", "err", err)
	brackets, fbErr := c.bracketsFromChain(ctx)
	c.noteFallback("AllInterestRateBrackets", fbErr)
	if fbErr != nil {
		return []model.InterestRateBracket{}
	}
	return brackets
}

func (c *Client) bracketsFromChain(ctx context.Context) ([]model.InterestRateBracket, error) {
	if c.chain == nil {
		return nil, errNoChainReader
	}
	perBranch, err := c.chain.GetAllDebtPerInterestRate(ctx)
	if err != nil {
		return nil, err
	}
	branches := make([]int, 0, len(perBranch))
	for b := range perBranch {
		branches = append(branches, b)
	}
	sort.Ints(branches)

	var brackets []model.InterestRateBracket
	for _, b := range branches {
		for _, d := range perBranch[b] {
			brackets = append(brackets, model.InterestRateBracket{
				BranchID:  b,
				Rate:      d.InterestRate,
				TotalDebt: d.Debt,
			})
		}
	}
	if brackets == nil {
		brackets = []model.InterestRateBracket{}
	}
	model.SortBracketsByRate(brackets)
	return brackets, nil
}
