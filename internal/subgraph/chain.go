package subgraph

import (
	"context"
	"errors"

	"TroveDesk/internal/model"
	"TroveDesk/internal/recorder"

	"github.com/ethereum/go-ethereum/common"
)

// ChainReader rebuilds lower-fidelity records from contract reads.
type ChainReader interface {
	// GetTrovesByAccount returns the troves the account has opened within
	// the scanned owner indexes. Results are grouped by branch and ordered
	// newest first only within a branch; there is no global recency order.
	GetTrovesByAccount(ctx context.Context, account common.Address) ([]model.ChainTrove, error)
	// GetTroveByID returns nil when the trove does not exist.
	GetTroveByID(ctx context.Context, id model.PrefixedTroveID) (*model.ChainTrove, error)
	// GetAllDebtPerInterestRate returns debt per rate keyed by branch id.
	GetAllDebtPerInterestRate(ctx context.Context) (map[int][]model.DebtPerInterestRate, error)
}

var errNoChainReader = errors.New("no chain reader configured")

func (c *Client) noteFallback(accessor string, err error) {
	result, detail := "ok", ""
	if err != nil {
		result, detail = "error", err.Error()
		c.logger.Error("backup read calls also failed", "accessor", accessor, "err", err)
	}
	c.metrics.ObserveFallback(accessor, result)
	if recErr := c.recorder.RecordFallback(&recorder.FallbackEvent{Accessor: accessor, Result: result, Detail: detail}); recErr != nil {
		c.logger.Warn("record fallback failed", "err", recErr)
	}
}
