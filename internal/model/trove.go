package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TroveStatus is the lifecycle state of a trove as shown to users.
type TroveStatus string

const (
	TroveActive     TroveStatus = "active"
	TroveClosed     TroveStatus = "closed"
	TroveLiquidated TroveStatus = "liquidated"
	TroveRedeemed   TroveStatus = "redeemed"
)

// ChainTroveStatus is the TroveManager status enum as stored on-chain.
type ChainTroveStatus uint8

const (
	ChainNonExistent ChainTroveStatus = iota
	ChainActive
	ChainClosedByOwner
	ChainClosedByLiquidation
	ChainZombie
)

func (s ChainTroveStatus) String() string {
	switch s {
	case ChainNonExistent:
		return "nonExistent"
	case ChainActive:
		return "active"
	case ChainClosedByOwner:
		return "closedByOwner"
	case ChainClosedByLiquidation:
		return "closedByLiquidation"
	case ChainZombie:
		return "zombie"
	default:
		return "unknown"
	}
}

// MapChainStatus converts an on-chain status into a TroveStatus.
// Unknown values map to closed.
func MapChainStatus(s ChainTroveStatus) TroveStatus {
	switch s {
	case ChainActive:
		return TroveActive
	case ChainClosedByOwner:
		return TroveClosed
	case ChainClosedByLiquidation:
		return TroveLiquidated
	case ChainZombie:
		return TroveRedeemed
	default:
		return TroveClosed
	}
}

// Source tags where a record was produced.
type Source string

const (
	// SourceIndexer records carry full history from the subgraph.
	SourceIndexer Source = "indexer"
	// SourceChainRead records are rebuilt from contract reads; timestamps and
	// redemption counters are unavailable and zeroed.
	SourceChainRead Source = "chain"
)

// Trove is a read-only projection of a single collateralized debt position.
type Trove struct {
	ID               string         `json:"id"`
	Borrower         common.Address `json:"borrower"`
	ClosedAt         *int64         `json:"closedAt"` // ms, nil while open
	CreatedAt        int64          `json:"createdAt"`
	LastUserActionAt int64          `json:"lastUserActionAt"`
	MightBeLeveraged bool           `json:"mightBeLeveraged"`
	Status           TroveStatus    `json:"status"`
	Debt             Dnum           `json:"debt"`
	RedemptionCount  int            `json:"redemptionCount"`
	RedeemedColl     Dnum           `json:"redeemedColl"`
	RedeemedDebt     Dnum           `json:"redeemedDebt"`
	Source           Source         `json:"source"`
}

// ChainTrove is the raw trove state returned by contract reads.
type ChainTrove struct {
	ID       string
	Borrower common.Address
	Status   ChainTroveStatus
	Debt     *big.Int
}

// TroveFromChainRead builds the degraded Trove record for a contract read.
func TroveFromChainRead(ct ChainTrove) Trove {
	status := MapChainStatus(ct.Status)
	var closedAt *int64
	if status != TroveActive {
		zero := int64(0)
		closedAt = &zero
	}
	return Trove{
		ID:               ct.ID,
		Borrower:         ct.Borrower,
		ClosedAt:         closedAt,
		CreatedAt:        0,
		LastUserActionAt: 0,
		MightBeLeveraged: false,
		Status:           status,
		Debt:             Dnum18(ct.Debt),
		RedemptionCount:  0,
		RedeemedColl:     Dnum18(nil),
		RedeemedDebt:     Dnum18(nil),
		Source:           SourceChainRead,
	}
}

// TroveFromIndexer tags a fully mapped subgraph record with its source.
func TroveFromIndexer(t Trove) Trove {
	t.Source = SourceIndexer
	return t
}
