package model

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// InterestRateBracket is the aggregate debt held at one interest rate.
type InterestRateBracket struct {
	BranchID  int  `json:"branchId"`
	Rate      Dnum `json:"rate"`
	TotalDebt Dnum `json:"totalDebt"`
}

// SortBracketsByRate orders brackets ascending by rate, keeping input order for ties.
func SortBracketsByRate(brackets []InterestRateBracket) {
	sort.SliceStable(brackets, func(i, j int) bool {
		return brackets[i].Rate.LessThan(brackets[j].Rate)
	})
}

// InterestBatch is a batch manager's delegated position on one branch.
type InterestBatch struct {
	BatchManager common.Address `json:"batchManager"`
	Debt         Dnum           `json:"debt"`
	Coll         Dnum           `json:"coll"`
	InterestRate Dnum           `json:"interestRate"`
	Fee          Dnum           `json:"fee"`
}

// DebtPerInterestRate is one entry of the on-chain debt-by-rate listing.
type DebtPerInterestRate struct {
	InterestBatchManager common.Address
	InterestRate         Dnum
	Debt                 Dnum
}
