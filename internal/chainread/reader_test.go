package chainread

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"TroveDesk/internal/model"
	"TroveDesk/internal/whitelabel"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	nftAddr  = common.HexToAddress("0x000000000000000000000000000000000000f001")
	poolAddr = common.HexToAddress("0x000000000000000000000000000000000000f002")
	borrower = common.HexToAddress("0x00000000000000000000000000000000000000ab")
)

type fakeTrove struct {
	status uint8
	debt   *big.Int
	owner  common.Address
}

// fakeChain answers contract calls by target address and selector.
type fakeChain struct {
	t        *testing.T
	troveMgr map[common.Address]int
	troves   map[int]map[string]fakeTrove
	pages    map[int][][]debtPerInterestRate
	surplus  *big.Int
	failAll  error
	mu       sync.Mutex
	calls    map[string]int
}

func (f *fakeChain) isTroveManager(addr common.Address) bool {
	_, ok := f.troveMgr[addr]
	return ok
}

func newFakeChain(t *testing.T) *fakeChain {
	f := &fakeChain{
		t:        t,
		troveMgr: map[common.Address]int{},
		troves:   map[int]map[string]fakeTrove{},
		pages:    map[int][][]debtPerInterestRate{},
		calls:    map[string]int{},
	}
	branches, err := whitelabel.Default.Branches(whitelabel.GnosisChainID)
	require.NoError(t, err)
	for _, b := range branches {
		f.troveMgr[b.Contracts.TroveManager] = b.ID
		f.troves[b.ID] = map[string]fakeTrove{}
	}
	return f
}

func (f *fakeChain) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	to := *msg.To
	var contract abi.ABI
	switch {
	case f.isTroveManager(to):
		contract = troveManagerABI
	case to == nftAddr:
		contract = troveNFTABI
	case to == poolAddr:
		contract = collSurplusPoolABI
	default:
		contract = multiTroveGetterABI
	}
	method, err := contract.MethodById(msg.Data[:4])
	require.NoError(f.t, err)
	args, err := method.Inputs.Unpack(msg.Data[4:])
	require.NoError(f.t, err)
	f.mu.Lock()
	f.calls[method.Name]++
	f.mu.Unlock()

	switch method.Name {
	case "getTroveStatus":
		tr := f.troves[f.troveMgr[to]][args[0].(*big.Int).String()]
		return method.Outputs.Pack(tr.status)
	case "getLatestTroveData":
		tr := f.troves[f.troveMgr[to]][args[0].(*big.Int).String()]
		debt := tr.debt
		if debt == nil {
			debt = new(big.Int)
		}
		zero := new(big.Int)
		return method.Outputs.Pack(latestTroveData{
			EntireDebt: debt, EntireColl: zero, RedistBoldDebtGain: zero, RedistCollGain: zero,
			AccruedInterest: zero, RecordedDebt: debt, AnnualInterestRate: zero,
			WeightedRecordedDebt: zero, AccruedBatchManagementFee: zero, LastInterestRateAdjTime: zero,
		})
	case "troveNFT":
		return method.Outputs.Pack(nftAddr)
	case "ownerOf":
		for _, troves := range f.troves {
			if tr, ok := troves[args[0].(*big.Int).String()]; ok && tr.owner != (common.Address{}) {
				return method.Outputs.Pack(tr.owner)
			}
		}
		return nil, errors.New("execution reverted")
	case "getCollateral":
		return method.Outputs.Pack(f.surplus)
	case "getDebtPerInterestRateAscending":
		branch := int(args[0].(*big.Int).Int64())
		page := int(args[1].(*big.Int).Int64())
		pages := f.pages[branch]
		if len(pages) == 0 {
			return method.Outputs.Pack([]debtPerInterestRate{}, new(big.Int))
		}
		next := new(big.Int)
		if page+1 < len(pages) {
			next = big.NewInt(int64(page + 1))
		}
		return method.Outputs.Pack(pages[page], next)
	}
	f.t.Fatalf("unexpected method %s", method.Name)
	return nil, nil
}

func newTestReader(t *testing.T, f *fakeChain, scan int) *Reader {
	t.Helper()
	wl := whitelabel.Default.WithCollSurplusPools(whitelabel.GnosisChainID, map[int]common.Address{1: poolAddr})
	r, err := NewReader(f, wl, Config{ChainID: whitelabel.GnosisChainID, OwnerIndexScan: scan}, nil)
	require.NoError(t, err)
	return r
}

func e18(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func TestTroveIDIsDeterministic(t *testing.T) {
	a := TroveID(borrower, 0)
	b := TroveID(borrower, 1)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, TroveID(borrower, 0))
	assert.True(t, a.Sign() > 0)
}

func TestNewReaderUnknownChain(t *testing.T) {
	_, err := NewReader(newFakeChain(t), whitelabel.Default, Config{ChainID: 1}, nil)
	assert.Error(t, err)
}

func TestGetTroveByID(t *testing.T) {
	f := newFakeChain(t)
	id := TroveID(borrower, 0)
	f.troves[2][id.String()] = fakeTrove{status: uint8(model.ChainActive), debt: e18(2500), owner: borrower}
	r := newTestReader(t, f, 3)

	got, err := r.GetTroveByID(context.Background(), model.PrefixedTroveID{BranchID: 2, TroveID: id})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.ChainActive, got.Status)
	assert.Equal(t, borrower, got.Borrower)
	assert.Equal(t, 0, got.Debt.Cmp(e18(2500)))
	assert.Equal(t, "2:0x"+id.Text(16), got.ID)
}

func TestGetTroveByIDNonExistent(t *testing.T) {
	r := newTestReader(t, newFakeChain(t), 3)
	got, err := r.GetTroveByID(context.Background(), model.PrefixedTroveID{BranchID: 0, TroveID: big.NewInt(7)})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetTroveByIDClosedBurnedNFT(t *testing.T) {
	f := newFakeChain(t)
	f.troves[0]["9"] = fakeTrove{status: uint8(model.ChainClosedByOwner)}
	r := newTestReader(t, f, 3)

	got, err := r.GetTroveByID(context.Background(), model.PrefixedTroveID{BranchID: 0, TroveID: big.NewInt(9)})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, common.Address{}, got.Borrower)
	assert.Equal(t, model.ChainClosedByOwner, got.Status)
}

func TestGetTroveByIDUnknownBranch(t *testing.T) {
	r := newTestReader(t, newFakeChain(t), 3)
	_, err := r.GetTroveByID(context.Background(), model.PrefixedTroveID{BranchID: 7, TroveID: big.NewInt(1)})
	assert.Error(t, err)
}

func TestGetTrovesByAccount(t *testing.T) {
	f := newFakeChain(t)
	f.troves[0][TroveID(borrower, 0).String()] = fakeTrove{status: uint8(model.ChainClosedByOwner)}
	f.troves[0][TroveID(borrower, 2).String()] = fakeTrove{status: uint8(model.ChainActive), debt: e18(10)}
	f.troves[3][TroveID(borrower, 1).String()] = fakeTrove{status: uint8(model.ChainZombie), debt: e18(1)}
	r := newTestReader(t, f, 3)

	troves, err := r.GetTrovesByAccount(context.Background(), borrower)
	require.NoError(t, err)
	require.Len(t, troves, 3)

	assert.Equal(t, model.PrefixedTroveID{BranchID: 0, TroveID: TroveID(borrower, 2)}.String(), troves[0].ID)
	assert.Equal(t, model.ChainActive, troves[0].Status)
	assert.Equal(t, model.PrefixedTroveID{BranchID: 0, TroveID: TroveID(borrower, 0)}.String(), troves[1].ID)
	assert.Equal(t, model.ChainZombie, troves[2].Status)
	for _, tr := range troves {
		assert.Equal(t, borrower, tr.Borrower)
	}
}

func TestGetTrovesByAccountGroupsByBranch(t *testing.T) {
	f := newFakeChain(t)
	f.troves[0][TroveID(borrower, 0).String()] = fakeTrove{status: uint8(model.ChainActive), debt: e18(1)}
	f.troves[3][TroveID(borrower, 2).String()] = fakeTrove{status: uint8(model.ChainActive), debt: e18(1)}
	f.troves[3][TroveID(borrower, 1).String()] = fakeTrove{status: uint8(model.ChainActive), debt: e18(1)}
	r := newTestReader(t, f, 3)

	troves, err := r.GetTrovesByAccount(context.Background(), borrower)
	require.NoError(t, err)
	require.Len(t, troves, 3)

	// Branch order wins over owner index; the newer branch 3 troves follow branch 0.
	assert.Equal(t, model.PrefixedTroveID{BranchID: 0, TroveID: TroveID(borrower, 0)}.String(), troves[0].ID)
	assert.Equal(t, model.PrefixedTroveID{BranchID: 3, TroveID: TroveID(borrower, 2)}.String(), troves[1].ID)
	assert.Equal(t, model.PrefixedTroveID{BranchID: 3, TroveID: TroveID(borrower, 1)}.String(), troves[2].ID)
}

func TestGetTrovesByAccountPropagatesErrors(t *testing.T) {
	f := newFakeChain(t)
	f.failAll = errors.New("rpc down")
	r := newTestReader(t, f, 2)

	_, err := r.GetTrovesByAccount(context.Background(), borrower)
	assert.Error(t, err)
}

func TestGetAllDebtPerInterestRatePages(t *testing.T) {
	f := newFakeChain(t)
	f.pages[1] = [][]debtPerInterestRate{
		{{InterestRate: big.NewInt(5e16), Debt: e18(100)}, {InterestRate: big.NewInt(6e16), Debt: new(big.Int)}},
		{{InterestRate: big.NewInt(7e16), Debt: e18(3)}},
	}
	r := newTestReader(t, f, 1)

	got, err := r.GetAllDebtPerInterestRate(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 5)
	require.Len(t, got[1], 2)
	assert.True(t, got[1][0].InterestRate.Equal(decimal.RequireFromString("0.05")))
	assert.True(t, got[1][1].Debt.Equal(decimal.RequireFromString("3")))
	assert.Empty(t, got[0])
	assert.Equal(t, 6, f.calls["getDebtPerInterestRateAscending"])
}

func TestGetCollateralSurplus(t *testing.T) {
	f := newFakeChain(t)
	f.surplus = e18(4)
	r := newTestReader(t, f, 1)

	got, err := r.GetCollateralSurplus(context.Background(), 1, borrower)
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(4)))

	_, err = r.GetCollateralSurplus(context.Background(), 0, borrower)
	assert.ErrorIs(t, err, whitelabel.ErrContractNotConfigured)
}
