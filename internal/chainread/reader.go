// Package chainread reads trove state directly from the protocol contracts.
package chainread

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"TroveDesk/internal/logging"
	"TroveDesk/internal/model"
	"TroveDesk/internal/whitelabel"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/sync/errgroup"
)

const (
	defaultOwnerIndexScan = 10
	defaultPageSize       = 1000
	maxPages              = 100
)

// ContractCaller is the subset of the Ethereum RPC used by the reader.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Dial connects to an EVM JSON-RPC endpoint.
func Dial(ctx context.Context, endpoint string) (*ethclient.Client, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("rpc endpoint required")
	}
	return ethclient.DialContext(ctx, trimmed)
}

// Config tunes the reader.
type Config struct {
	ChainID        int
	OwnerIndexScan int
	PageSize       int
}

// Reader rebuilds trove records from contract reads.
type Reader struct {
	caller           ContractCaller
	branches         []whitelabel.Branch
	multiTroveGetter common.Address
	ownerIndexScan   int
	pageSize         int
	logger           logging.Logger

	mu       sync.Mutex
	nftCache map[int]common.Address
}

// NewReader resolves the contract addresses of cfg.ChainID from wl.
func NewReader(caller ContractCaller, wl whitelabel.Config, cfg Config, logger logging.Logger) (*Reader, error) {
	if caller == nil {
		return nil, errors.New("contract caller required")
	}
	branches, err := wl.Branches(cfg.ChainID)
	if err != nil {
		return nil, err
	}
	core, err := wl.Core(cfg.ChainID)
	if err != nil {
		return nil, err
	}
	r := &Reader{
		caller:           caller,
		branches:         branches,
		multiTroveGetter: core.MultiTroveGetter,
		ownerIndexScan:   cfg.OwnerIndexScan,
		pageSize:         cfg.PageSize,
		logger:           logging.OrDiscard(logger),
		nftCache:         make(map[int]common.Address),
	}
	if r.ownerIndexScan <= 0 {
		r.ownerIndexScan = defaultOwnerIndexScan
	}
	if r.pageSize <= 0 {
		r.pageSize = defaultPageSize
	}
	return r, nil
}

// TroveID derives the id of the trove opened by owner at ownerIndex:
// uint256(keccak256(abi.encode(owner, owner, ownerIndex))).
func TroveID(owner common.Address, ownerIndex uint64) *big.Int {
	buf := make([]byte, 0, 96)
	buf = append(buf, common.LeftPadBytes(owner.Bytes(), 32)...)
	buf = append(buf, common.LeftPadBytes(owner.Bytes(), 32)...)
	buf = append(buf, common.LeftPadBytes(new(big.Int).SetUint64(ownerIndex).Bytes(), 32)...)
	return new(big.Int).SetBytes(crypto.Keccak256(buf))
}

func (r *Reader) branch(id int) (whitelabel.Branch, error) {
	if id < 0 || id >= len(r.branches) {
		return whitelabel.Branch{}, fmt.Errorf("unknown branch %d", id)
	}
	return r.branches[id], nil
}

func (r *Reader) call(ctx context.Context, contract abi.ABI, to common.Address, method string, args ...any) ([]any, error) {
	input, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	output, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, to.Hex(), err)
	}
	out, err := contract.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return out, nil
}

func (r *Reader) troveStatus(ctx context.Context, b whitelabel.Branch, troveID *big.Int) (model.ChainTroveStatus, error) {
	out, err := r.call(ctx, troveManagerABI, b.Contracts.TroveManager, "getTroveStatus", troveID)
	if err != nil {
		return 0, err
	}
	return model.ChainTroveStatus(*abi.ConvertType(out[0], new(uint8)).(*uint8)), nil
}

func (r *Reader) troveDebt(ctx context.Context, b whitelabel.Branch, troveID *big.Int) (*big.Int, error) {
	out, err := r.call(ctx, troveManagerABI, b.Contracts.TroveManager, "getLatestTroveData", troveID)
	if err != nil {
		return nil, err
	}
	data := *abi.ConvertType(out[0], new(latestTroveData)).(*latestTroveData)
	return data.EntireDebt, nil
}

func (r *Reader) troveNFT(ctx context.Context, b whitelabel.Branch) (common.Address, error) {
	r.mu.Lock()
	nft, ok := r.nftCache[b.ID]
	r.mu.Unlock()
	if ok {
		return nft, nil
	}
	out, err := r.call(ctx, troveManagerABI, b.Contracts.TroveManager, "troveNFT")
	if err != nil {
		return common.Address{}, err
	}
	nft = *abi.ConvertType(out[0], new(common.Address)).(*common.Address)
	r.mu.Lock()
	r.nftCache[b.ID] = nft
	r.mu.Unlock()
	return nft, nil
}

func (r *Reader) owner(ctx context.Context, b whitelabel.Branch, troveID *big.Int, status model.ChainTroveStatus) (common.Address, error) {
	nft, err := r.troveNFT(ctx, b)
	if err != nil {
		return common.Address{}, err
	}
	out, err := r.call(ctx, troveNFTABI, nft, "ownerOf", troveID)
	if err != nil {
		// closed troves have their NFT burned and ownerOf reverts
		if status != model.ChainActive {
			return common.Address{}, nil
		}
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

// GetTroveByID returns nil when the trove does not exist.
func (r *Reader) GetTroveByID(ctx context.Context, id model.PrefixedTroveID) (*model.ChainTrove, error) {
	b, err := r.branch(id.BranchID)
	if err != nil {
		return nil, err
	}
	status, err := r.troveStatus(ctx, b, id.TroveID)
	if err != nil {
		return nil, err
	}
	if status == model.ChainNonExistent {
		return nil, nil
	}
	debt, err := r.troveDebt(ctx, b, id.TroveID)
	if err != nil {
		return nil, err
	}
	borrower, err := r.owner(ctx, b, id.TroveID, status)
	if err != nil {
		return nil, err
	}
	return &model.ChainTrove{
		ID:       id.String(),
		Borrower: borrower,
		Status:   status,
		Debt:     debt,
	}, nil
}

// GetTrovesByAccount scans the first owner indexes of every branch for
// troves the account opened. Results are grouped by branch in branch
// order, newest owner index first within a branch. Chain reads carry no
// creation timestamps, so troves are not ordered by recency across branches.
func (r *Reader) GetTrovesByAccount(ctx context.Context, account common.Address) ([]model.ChainTrove, error) {
	perBranch := make([][]model.ChainTrove, len(r.branches))

	g, gctx := errgroup.WithContext(ctx)
	for i, b := range r.branches {
		g.Go(func() error {
			troves, err := r.scanBranch(gctx, b, account)
			if err != nil {
				return fmt.Errorf("branch %d: %w", b.ID, err)
			}
			perBranch[i] = troves
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []model.ChainTrove
	for _, troves := range perBranch {
		all = append(all, troves...)
	}
	return all, nil
}

func (r *Reader) scanBranch(ctx context.Context, b whitelabel.Branch, account common.Address) ([]model.ChainTrove, error) {
	var troves []model.ChainTrove
	for idx := r.ownerIndexScan - 1; idx >= 0; idx-- {
		troveID := TroveID(account, uint64(idx))
		status, err := r.troveStatus(ctx, b, troveID)
		if err != nil {
			return nil, err
		}
		if status == model.ChainNonExistent {
			continue
		}
		debt, err := r.troveDebt(ctx, b, troveID)
		if err != nil {
			return nil, err
		}
		troves = append(troves, model.ChainTrove{
			ID:       model.PrefixedTroveID{BranchID: b.ID, TroveID: troveID}.String(),
			Borrower: account,
			Status:   status,
			Debt:     debt,
		})
	}
	return troves, nil
}

// GetAllDebtPerInterestRate pages through MultiTroveGetter for every branch.
func (r *Reader) GetAllDebtPerInterestRate(ctx context.Context) (map[int][]model.DebtPerInterestRate, error) {
	result := make(map[int][]model.DebtPerInterestRate, len(r.branches))
	for _, b := range r.branches {
		entries, err := r.debtPerInterestRate(ctx, b.ID)
		if err != nil {
			return nil, fmt.Errorf("branch %d: %w", b.ID, err)
		}
		result[b.ID] = entries
	}
	return result, nil
}

func (r *Reader) debtPerInterestRate(ctx context.Context, branch int) ([]model.DebtPerInterestRate, error) {
	var entries []model.DebtPerInterestRate
	start := new(big.Int)
	for page := 0; page < maxPages; page++ {
		out, err := r.call(ctx, multiTroveGetterABI, r.multiTroveGetter, "getDebtPerInterestRateAscending",
			big.NewInt(int64(branch)), start, big.NewInt(int64(r.pageSize)))
		if err != nil {
			return nil, err
		}
		data := *abi.ConvertType(out[0], new([]debtPerInterestRate)).(*[]debtPerInterestRate)
		next := *abi.ConvertType(out[1], new(*big.Int)).(**big.Int)

		for _, d := range data {
			if d.Debt == nil || d.Debt.Sign() == 0 {
				continue
			}
			entries = append(entries, model.DebtPerInterestRate{
				InterestBatchManager: d.InterestBatchManager,
				InterestRate:         model.Dnum18(d.InterestRate),
				Debt:                 model.Dnum18(d.Debt),
			})
		}
		if next == nil || next.Sign() == 0 {
			return entries, nil
		}
		start = next
	}
	r.logger.Warn("debt per interest rate paging stopped early", "branch", branch, "pages", maxPages)
	return entries, nil
}

// GetCollateralSurplus returns the claimable collateral left to a liquidated borrower.
func (r *Reader) GetCollateralSurplus(ctx context.Context, branch int, borrower common.Address) (model.Dnum, error) {
	b, err := r.branch(branch)
	if err != nil {
		return model.Dnum{}, err
	}
	pool := b.Contracts.CollSurplusPool
	if pool == (common.Address{}) {
		return model.Dnum{}, fmt.Errorf("%w: coll surplus pool on branch %d", whitelabel.ErrContractNotConfigured, branch)
	}
	out, err := r.call(ctx, collSurplusPoolABI, pool, "getCollateral", borrower)
	if err != nil {
		return model.Dnum{}, err
	}
	return model.Dnum18(*abi.ConvertType(out[0], new(*big.Int)).(**big.Int)), nil
}
