package loanview

import (
	"context"
	"errors"
	"strings"

	"TroveDesk/internal/logging"
	"TroveDesk/internal/model"
	"TroveDesk/internal/whitelabel"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// TroveSource looks up a trove; a nil trove with a nil error means not found.
type TroveSource interface {
	LookupTroveByID(ctx context.Context, id model.PrefixedTroveID) (*model.Trove, error)
}

// PriceSource returns the USD price of a symbol.
type PriceSource interface {
	Price(ctx context.Context, symbol string) (model.Dnum, error)
}

// SurplusSource returns the collateral surplus claimable by a liquidated borrower.
type SurplusSource interface {
	GetCollateralSurplus(ctx context.Context, branch int, borrower common.Address) (model.Dnum, error)
}

// Explorer is an external trove history link template. URL may contain
// {branch} (collateral name) and {troveId} (decimal id).
type Explorer struct {
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url" yaml:"url"`
}

// Link is a rendered explorer link.
type Link struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// View is the loan screen payload. Data fields are only set on success.
type View struct {
	State            State        `json:"state"`
	ID               string       `json:"id"`
	Trove            *model.Trove `json:"trove,omitempty"`
	CollateralSymbol string       `json:"collateralSymbol,omitempty"`
	CollPriceUSD     *model.Dnum  `json:"collPriceUsd,omitempty"`
	CollSurplus      *model.Dnum  `json:"collSurplus,omitempty"`
	// CollSurplusUnavailable marks a liquidated trove whose surplus could
	// not be looked up, as opposed to one with no surplus.
	CollSurplusUnavailable bool   `json:"collSurplusUnavailable,omitempty"`
	FullyRedeemed          bool   `json:"fullyRedeemed"`
	Explorers              []Link `json:"explorers,omitempty"`
}

// Service assembles loan views.
type Service struct {
	troves    TroveSource
	prices    PriceSource
	surplus   SurplusSource
	wl        whitelabel.Config
	explorers []Explorer
	logger    logging.Logger
}

// NewService wires a Service. surplus may be nil when no chain endpoint is configured.
func NewService(troves TroveSource, prices PriceSource, surplus SurplusSource, wl whitelabel.Config, explorers []Explorer, logger logging.Logger) *Service {
	return &Service{
		troves:    troves,
		prices:    prices,
		surplus:   surplus,
		wl:        wl,
		explorers: explorers,
		logger:    logging.OrDiscard(logger),
	}
}

// Load parses prefixedID and builds the view. Only a malformed id is an error.
func (s *Service) Load(ctx context.Context, prefixedID string) (View, error) {
	id, err := model.ParsePrefixedTroveID(prefixedID)
	if err != nil {
		return View{}, err
	}
	view := View{ID: id.String()}

	coll, ok := s.wl.CollateralByBranch(id.BranchID)
	if !ok {
		view.State = StateNotFound
		return view, nil
	}

	var (
		trove         *model.Trove
		price         model.Dnum
		loanQ, priceQ Query
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.troves.LookupTroveByID(gctx, id)
		switch {
		case err != nil:
			s.logger.Warn("loan lookup failed", "id", view.ID, "err", err)
			loanQ = Failed()
		case t == nil:
			loanQ = ResolvedNull()
		default:
			trove, loanQ = t, Resolved()
		}
		return nil
	})
	g.Go(func() error {
		p, err := s.prices.Price(gctx, coll.Symbol)
		if err != nil {
			s.logger.Warn("collateral price lookup failed", "symbol", coll.Symbol, "err", err)
			priceQ = Failed()
			return nil
		}
		price, priceQ = p, Resolved()
		return nil
	})
	_ = g.Wait()

	liquidated := trove != nil && trove.Status == model.TroveLiquidated
	var surplus *model.Dnum
	surplusQ := Query{Status: StatusSuccess}
	if liquidated {
		surplus, surplusQ = s.loadSurplus(ctx, id.BranchID, trove.Borrower)
	}

	view.State = Derive(loanQ, priceQ, SurplusInput(liquidated, surplusQ))
	if view.State != StateSuccess {
		return view, nil
	}

	view.Trove = trove
	view.CollateralSymbol = coll.Symbol
	view.CollPriceUSD = &price
	view.CollSurplus = surplus
	view.CollSurplusUnavailable = liquidated && surplus == nil
	view.FullyRedeemed = trove.Status == model.TroveRedeemed && trove.Debt.IsZero()
	view.Explorers = s.links(coll, id)
	return view, nil
}

func (s *Service) loadSurplus(ctx context.Context, branch int, borrower common.Address) (*model.Dnum, Query) {
	if s.surplus == nil {
		return nil, Query{Status: StatusSuccess, Data: DataNull}
	}
	// Liquidation burns the trove NFT, so chain reads cannot recover the
	// borrower and the pool would report zero for the zero address.
	if borrower == (common.Address{}) {
		s.logger.Debug("collateral surplus not available without borrower", "branch", branch)
		return nil, Query{Status: StatusSuccess, Data: DataNull}
	}
	v, err := s.surplus.GetCollateralSurplus(ctx, branch, borrower)
	if errors.Is(err, whitelabel.ErrContractNotConfigured) {
		s.logger.Debug("collateral surplus not available", "branch", branch, "err", err)
		return nil, Query{Status: StatusSuccess, Data: DataNull}
	}
	if err != nil {
		s.logger.Warn("collateral surplus lookup failed", "branch", branch, "err", err)
		return nil, Failed()
	}
	return &v, Resolved()
}

func (s *Service) links(coll whitelabel.Collateral, id model.PrefixedTroveID) []Link {
	var links []Link
	for _, e := range s.explorers {
		if strings.TrimSpace(e.URL) == "" {
			continue
		}
		url := strings.Replace(e.URL, "{branch}", coll.Name, 1)
		url = strings.Replace(url, "{troveId}", id.TroveID.String(), 1)
		links = append(links, Link{Name: e.Name, URL: url})
	}
	return links
}
