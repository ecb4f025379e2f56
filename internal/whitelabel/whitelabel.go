// Package whitelabel holds the static deployment table for the EVRO portal.
package whitelabel

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrContractNotConfigured is returned when a required contract address is zero.
var ErrContractNotConfigured = errors.New("contract address not configured")

// GnosisChainID is the only chain the portal is deployed on.
const GnosisChainID = 100

// CoreDeployment lists the protocol-wide contracts on one chain.
type CoreDeployment struct {
	Token              common.Address
	CollateralRegistry common.Address
	Governance         common.Address
	HintHelpers        common.Address
	MultiTroveGetter   common.Address
	ExchangeHelpers    common.Address
}

// BranchDeployment lists the per-collateral contracts on one chain.
type BranchDeployment struct {
	CollToken      common.Address
	LeverageZapper common.Address
	StabilityPool  common.Address
	TroveManager   common.Address
	// CollSurplusPool is not part of the published table; it stays zero
	// unless set through configuration.
	CollSurplusPool common.Address
}

// Collateral is one borrowing branch. Its position in Collaterals is the branch id.
type Collateral struct {
	Symbol          string
	Name            string
	CollateralRatio float64
	MaxDeposit      string
	MaxLTV          float64
	Deployments     map[int]BranchDeployment
}

// Token describes the main stablecoin.
type Token struct {
	Name        string
	Symbol      string
	Decimals    int
	Description string
	Deployments map[int]CoreDeployment
}

// CustomPool is an earn pool beyond the collateral stability pools.
type CustomPool struct {
	Symbol  string
	Name    string
	Enabled bool
}

// EarnPool is an entry of AvailableEarnPools.
type EarnPool struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Type   string `json:"type"`
}

// Branding carries the identity and links shown by the portal.
type Branding struct {
	AppName        string
	BrandName      string
	AppTagline     string
	AppDescription string
	AppURL         string
	Docs           map[string]string
	ShowBorrow     bool
	ShowEarn       bool
	ShowStake      bool
}

// Config is the full white-label table.
type Config struct {
	MainToken             Token
	Collaterals           []Collateral
	Branding              Branding
	EnableStakedMainToken bool
	EnableStabilityPools  bool
	CustomPools           []CustomPool
}

func addr(s string) common.Address { return common.HexToAddress(s) }

// Default is the EVRO deployment.
var Default = Config{
	MainToken: Token{
		Name:        "EVRO",
		Symbol:      "EVRO",
		Decimals:    18,
		Description: "Euro-pegged stablecoin by EVRO Finance",
		Deployments: map[int]CoreDeployment{
			GnosisChainID: {
				Token:              addr("0x08b8a74e622f810ef67e4850c102b3093627f630"),
				CollateralRegistry: addr("0x78f975dafc51ffce9eda2e6559adf742cf4fe518"),
				Governance:         addr("0x09d5bd4a4f1da1a965fe24ea54bce3d37661e056"),
				HintHelpers:        addr("0x619f3e62aad50f647f445ab1de8daaf0e60362fd"),
				MultiTroveGetter:   addr("0x593c9d9fd8320a2392404fc7b0b581f2fb54d0ba"),
				ExchangeHelpers:    common.Address{},
			},
		},
	},
	Collaterals: []Collateral{
		{
			Symbol: "WXDAI", Name: "wxDAI", CollateralRatio: 1.1, MaxDeposit: "100000000", MaxLTV: 0.9091,
			Deployments: map[int]BranchDeployment{GnosisChainID: {
				CollToken:     addr("0x6a023ccd1ff6f2045c3309768ead9e68f978f6e1"),
				StabilityPool: addr("0x172b2bb699c354a8758075b00c121126a4a6ee18"),
				TroveManager:  addr("0x9c7987c8bed7a669b6857f014459e0e98ebd723d"),
			}},
		},
		{
			Symbol: "GNO", Name: "Gnosis", CollateralRatio: 1.4, MaxDeposit: "25000000", MaxLTV: 0.7143,
			Deployments: map[int]BranchDeployment{GnosisChainID: {
				CollToken:     addr("0x9c58bacc331c9aa871afd802db6379a98e80cedb"),
				StabilityPool: addr("0x7cb2a8624f3bbc25c46d251d097ce971840eb0a5"),
				TroveManager:  addr("0x7e3f9edf299aa789e7b69af6d4f3c599ccaac4e6"),
			}},
		},
		{
			Symbol: "SDAI", Name: "Savings xDAI", CollateralRatio: 1.3, MaxDeposit: "25000000", MaxLTV: 0.7692,
			Deployments: map[int]BranchDeployment{GnosisChainID: {
				CollToken:     addr("0xaf204776c7245bf4147c2612bf6e5972ee483701"),
				StabilityPool: addr("0x4feb230c602a813674f261072ea2d31115ce1ab3"),
				TroveManager:  addr("0x5c21c09b120907262824a542d4cfd818e9e1a32f"),
			}},
		},
		{
			Symbol: "WWBTC", Name: "Gnosis xDai Bridged WBTC", CollateralRatio: 1.15, MaxDeposit: "25000000", MaxLTV: 0.8696,
			Deployments: map[int]BranchDeployment{GnosisChainID: {
				CollToken:     addr("0x95c0302bd25fb04258377d280e3d7f9c96d7b407"),
				StabilityPool: addr("0xf653fa22fa6e4d982db4f084e54ad0f39cbf73b3"),
				TroveManager:  addr("0x0b99b1a449160af496d4b50885c08d11704f2583"),
			}},
		},
		{
			Symbol: "OSGNO", Name: "StakeWise Staked GNO", CollateralRatio: 1.4, MaxDeposit: "25000000", MaxLTV: 0.7143,
			Deployments: map[int]BranchDeployment{GnosisChainID: {
				CollToken:     addr("0xf490c80aae5f2616d3e3bda2483e30c4cb21d1a0"),
				StabilityPool: addr("0x434696ce4b3c3d02e82931c37de7b9a8fa208fbd"),
				TroveManager:  addr("0x4d83ac3a1131c6ca5b0add168bde6d24a3ad889a"),
			}},
		},
	},
	Branding: Branding{
		AppName:        "EVRO Portal",
		BrandName:      "EVRO",
		AppTagline:     "Multi-chain stablecoin protocol",
		AppDescription: "Borrow EVRO against multiple collateral types",
		AppURL:         "https://app.evro.finance/",
		Docs: map[string]string{
			"base":          "https://docs.evro.finance/",
			"redemptions":   "https://docs.evrofinance.com/redemptions",
			"liquidations":  "https://docs.evro.finance/liquidations",
			"delegation":    "https://docs.evro.finance/delegation",
			"interestRates": "https://docs.evro.finance/interest-rates",
			"earn":          "https://docs.evro.finance/earn",
			"staking":       "https://docs.evro.finance/staking",
		},
		ShowBorrow: true,
		ShowEarn:   true,
		ShowStake:  false,
	},
	EnableStakedMainToken: false,
	EnableStabilityPools:  true,
}

// CollateralByBranch returns the collateral for a branch id.
func (c Config) CollateralByBranch(branch int) (Collateral, bool) {
	if branch < 0 || branch >= len(c.Collaterals) {
		return Collateral{}, false
	}
	return c.Collaterals[branch], true
}

// BranchBySymbol returns the branch id of a collateral symbol, case-insensitively.
func (c Config) BranchBySymbol(symbol string) (int, bool) {
	for i, coll := range c.Collaterals {
		if strings.EqualFold(coll.Symbol, symbol) {
			return i, true
		}
	}
	return -1, false
}

// CollateralSymbols returns the lower-cased collateral symbols in branch order.
func (c Config) CollateralSymbols() []string {
	out := make([]string, 0, len(c.Collaterals))
	for _, coll := range c.Collaterals {
		out = append(out, strings.ToLower(coll.Symbol))
	}
	return out
}

// AvailableEarnPools lists the stability pools (when enabled) followed by the enabled custom pools.
func (c Config) AvailableEarnPools() []EarnPool {
	var pools []EarnPool
	if c.EnableStabilityPools {
		for _, coll := range c.Collaterals {
			pools = append(pools, EarnPool{
				Symbol: strings.ToLower(coll.Symbol),
				Name:   coll.Name + " Stability Pool",
				Type:   "stability",
			})
		}
	}
	for _, p := range c.CustomPools {
		if p.Enabled {
			pools = append(pools, EarnPool{
				Symbol: strings.ToLower(p.Symbol),
				Name:   p.Name,
				Type:   "custom",
			})
		}
	}
	return pools
}

// EarnPoolSymbols returns the symbols of AvailableEarnPools.
func (c Config) EarnPoolSymbols() []string {
	pools := c.AvailableEarnPools()
	out := make([]string, 0, len(pools))
	for _, p := range pools {
		out = append(out, p.Symbol)
	}
	return out
}

// Branch is a collateral branch resolved for a chain.
type Branch struct {
	ID         int
	Collateral Collateral
	Contracts  BranchDeployment
}

// Branches resolves every collateral branch deployed on chainID.
func (c Config) Branches(chainID int) ([]Branch, error) {
	branches := make([]Branch, 0, len(c.Collaterals))
	for i, coll := range c.Collaterals {
		d, ok := coll.Deployments[chainID]
		if !ok {
			return nil, fmt.Errorf("collateral %s has no deployment on chain %d", coll.Symbol, chainID)
		}
		branches = append(branches, Branch{ID: i, Collateral: coll, Contracts: d})
	}
	return branches, nil
}

// Core returns the protocol-wide contracts on chainID.
func (c Config) Core(chainID int) (CoreDeployment, error) {
	d, ok := c.MainToken.Deployments[chainID]
	if !ok {
		return CoreDeployment{}, fmt.Errorf("no core deployment on chain %d", chainID)
	}
	return d, nil
}

// WithCollSurplusPools returns a copy of c with the given pool addresses
// set on chainID, keyed by branch id.
func (c Config) WithCollSurplusPools(chainID int, pools map[int]common.Address) Config {
	out := c
	out.Collaterals = make([]Collateral, len(c.Collaterals))
	for i, coll := range c.Collaterals {
		deployments := make(map[int]BranchDeployment, len(coll.Deployments))
		for k, v := range coll.Deployments {
			deployments[k] = v
		}
		if pool, ok := pools[i]; ok {
			if d, ok := deployments[chainID]; ok {
				d.CollSurplusPool = pool
				deployments[chainID] = d
			}
		}
		coll.Deployments = deployments
		out.Collaterals[i] = coll
	}
	return out
}
