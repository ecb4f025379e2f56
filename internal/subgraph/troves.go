package subgraph

import (
	"context"
	"fmt"
	"strings"

	"TroveDesk/internal/model"

	"github.com/ethereum/go-ethereum/common"
)

type indexedTrove struct {
	ID               string  `json:"id"`
	Borrower         string  `json:"borrower"`
	PreviousOwner    string  `json:"previousOwner"`
	ClosedAt         *bigInt `json:"closedAt"`
	CreatedAt        bigInt  `json:"createdAt"`
	LastUserActionAt bigInt  `json:"lastUserActionAt"`
	MightBeLeveraged bool    `json:"mightBeLeveraged"`
	Status           string  `json:"status"`
	Debt             bigInt  `json:"debt"`
	RedemptionCount  flexInt `json:"redemptionCount"`
	RedeemedColl     bigInt  `json:"redeemedColl"`
	RedeemedDebt     bigInt  `json:"redeemedDebt"`
}

func (t indexedTrove) toModel(borrower common.Address) model.Trove {
	var closedAt *int64
	if t.ClosedAt != nil && t.ClosedAt.v != nil {
		ms := t.ClosedAt.Int64() * 1000
		closedAt = &ms
	}
	return model.TroveFromIndexer(model.Trove{
		ID:               t.ID,
		Borrower:         borrower,
		ClosedAt:         closedAt,
		CreatedAt:        t.CreatedAt.Int64() * 1000,
		LastUserActionAt: t.LastUserActionAt.Int64() * 1000,
		MightBeLeveraged: t.MightBeLeveraged,
		Status:           model.TroveStatus(t.Status),
		Debt:             t.Debt.Dnum(),
		RedemptionCount:  int(t.RedemptionCount),
		RedeemedColl:     t.RedeemedColl.Dnum(),
		RedeemedDebt:     t.RedeemedDebt.Dnum(),
	})
}

// IndexedBlockNumber returns the last block processed by the indexer, -1 when unknown.
func (c *Client) IndexedBlockNumber(ctx context.Context) (int64, error) {
	var out struct {
		Meta *struct {
			Block struct {
				Number flexInt `json:"number"`
			} `json:"block"`
		} `json:"_meta"`
	}
	if err := c.query(ctx, "BlockNumber", blockNumberQuery, nil, &out); err != nil {
		return 0, err
	}
	if out.Meta == nil {
		return -1, nil
	}
	return int64(out.Meta.Block.Number), nil
}

// NextOwnerIndex returns the next owner index the borrower would use on a
// branch. Failures yield 0.
func (c *Client) NextOwnerIndex(ctx context.Context, branch int, borrower common.Address) int {
	var out struct {
		BorrowerInfo *struct {
			NextOwnerIndexes []flexInt `json:"nextOwnerIndexes"`
		} `json:"borrowerInfo"`
	}
	vars := map[string]any{"id": strings.ToLower(borrower.Hex())}
	if err := c.query(ctx, "NextOwnerIndexesByBorrower", nextOwnerIndexesByBorrowerQuery, vars, &out); err != nil {
		c.logger.Warn("subgraph query failed for next owner index, returning default", "err", err)
		return 0
	}
	if out.BorrowerInfo == nil || branch < 0 || branch >= len(out.BorrowerInfo.NextOwnerIndexes) {
		return 0
	}
	return int(out.BorrowerInfo.NextOwnerIndexes[branch])
}

// TrovesByAccount lists the account's active, redeemed and liquidated troves,
// most recently updated first. Chain-read results are ordered newest owner
// index first per branch. Returns an empty slice when both sources fail.
func (c *Client) TrovesByAccount(ctx context.Context, account common.Address) []model.Trove {
	var out struct {
		Troves []indexedTrove `json:"troves"`
	}
	vars := map[string]any{"account": strings.ToLower(account.Hex())}
	err := c.query(ctx, "TrovesByAccount", trovesByAccountQuery, vars, &out)
	if err == nil {
		troves := make([]model.Trove, 0, len(out.Troves))
		for _, t := range out.Troves {
			troves = append(troves, t.toModel(account))
		}
		return troves
	}

	c.logger.Warn("subgraph query failed, attempting backup read calls", "accessor", "TrovesByAccount", "err", err)
	troves, fbErr := c.trovesByAccountFromChain(ctx, account)
	c.noteFallback("TrovesByAccount", fbErr)
	if fbErr != nil {
		return []model.Trove{}
	}
	return troves
}

func (c *Client) trovesByAccountFromChain(ctx context.Context, account common.Address) ([]model.Trove, error) {
	if c.chain == nil {
		return nil, errNoChainReader
	}
	read, err := c.chain.GetTrovesByAccount(ctx, account)
	if err != nil {
		return nil, err
	}
	troves := make([]model.Trove, 0, len(read))
	for _, ct := range read {
		ct.Borrower = account
		troves = append(troves, model.TroveFromChainRead(ct))
	}
	return troves, nil
}

// TroveByID returns a trove, or nil when it does not exist or when both
// sources fail.
func (c *Client) TroveByID(ctx context.Context, id model.PrefixedTroveID) *model.Trove {
	t, _ := c.LookupTroveByID(ctx, id)
	return t
}

// LookupTroveByID is TroveByID with the failure made visible: a nil trove
// with a nil error means not found, ErrUnavailable means neither source answered.
func (c *Client) LookupTroveByID(ctx context.Context, id model.PrefixedTroveID) (*model.Trove, error) {
	var out struct {
		Trove *indexedTrove `json:"trove"`
	}
	err := c.query(ctx, "TroveById", troveByIDQuery, map[string]any{"id": id.String()}, &out)
	if err == nil {
		if out.Trove == nil {
			return nil, nil
		}
		borrower := out.Trove.Borrower
		if out.Trove.Status == string(model.TroveLiquidated) {
			borrower = out.Trove.PreviousOwner
		}
		t := out.Trove.toModel(common.HexToAddress(borrower))
		return &t, nil
	}

	c.logger.Warn("subgraph query failed, attempting backup read calls", "accessor", "TroveByID", "err", err)
	t, fbErr := c.troveByIDFromChain(ctx, id)
	c.noteFallback("TroveByID", fbErr)
	if fbErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, fbErr)
	}
	return t, nil
}

func (c *Client) troveByIDFromChain(ctx context.Context, id model.PrefixedTroveID) (*model.Trove, error) {
	if c.chain == nil {
		return nil, errNoChainReader
	}
	ct, err := c.chain.GetTroveByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ct == nil {
		return nil, nil
	}
	ct.ID = id.String()
	t := model.TroveFromChainRead(*ct)
	return &t, nil
}
