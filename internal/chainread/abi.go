package chainread

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const troveManagerJSON = `[
  {"type":"function","name":"getTroveStatus","stateMutability":"view",
   "inputs":[{"name":"_troveId","type":"uint256"}],
   "outputs":[{"name":"","type":"uint8"}]},
  {"type":"function","name":"getLatestTroveData","stateMutability":"view",
   "inputs":[{"name":"_troveId","type":"uint256"}],
   "outputs":[{"name":"trove","type":"tuple","components":[
     {"name":"entireDebt","type":"uint256"},
     {"name":"entireColl","type":"uint256"},
     {"name":"redistBoldDebtGain","type":"uint256"},
     {"name":"redistCollGain","type":"uint256"},
     {"name":"accruedInterest","type":"uint256"},
     {"name":"recordedDebt","type":"uint256"},
     {"name":"annualInterestRate","type":"uint256"},
     {"name":"weightedRecordedDebt","type":"uint256"},
     {"name":"accruedBatchManagementFee","type":"uint256"},
     {"name":"lastInterestRateAdjTime","type":"uint256"}]}]},
  {"type":"function","name":"troveNFT","stateMutability":"view",
   "inputs":[],
   "outputs":[{"name":"","type":"address"}]}
]`

const troveNFTJSON = `[
  {"type":"function","name":"ownerOf","stateMutability":"view",
   "inputs":[{"name":"tokenId","type":"uint256"}],
   "outputs":[{"name":"","type":"address"}]}
]`

const multiTroveGetterJSON = `[
  {"type":"function","name":"getDebtPerInterestRateAscending","stateMutability":"view",
   "inputs":[
     {"name":"_collIndex","type":"uint256"},
     {"name":"_startId","type":"uint256"},
     {"name":"_maxIterations","type":"uint256"}],
   "outputs":[
     {"name":"data","type":"tuple[]","components":[
       {"name":"interestBatchManager","type":"address"},
       {"name":"interestRate","type":"uint256"},
       {"name":"debt","type":"uint256"}]},
     {"name":"currId","type":"uint256"}]}
]`

const collSurplusPoolJSON = `[
  {"type":"function","name":"getCollateral","stateMutability":"view",
   "inputs":[{"name":"_account","type":"address"}],
   "outputs":[{"name":"","type":"uint256"}]}
]`

var (
	troveManagerABI     = mustParseABI(troveManagerJSON)
	troveNFTABI         = mustParseABI(troveNFTJSON)
	multiTroveGetterABI = mustParseABI(multiTroveGetterJSON)
	collSurplusPoolABI  = mustParseABI(collSurplusPoolJSON)
)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

// latestTroveData mirrors the LatestTroveData struct returned by the TroveManager.
type latestTroveData struct {
	EntireDebt                *big.Int
	EntireColl                *big.Int
	RedistBoldDebtGain        *big.Int
	RedistCollGain            *big.Int
	AccruedInterest           *big.Int
	RecordedDebt              *big.Int
	AnnualInterestRate        *big.Int
	WeightedRecordedDebt      *big.Int
	AccruedBatchManagementFee *big.Int
	LastInterestRateAdjTime   *big.Int
}

// debtPerInterestRate mirrors the MultiTroveGetter.DebtPerInterestRate struct.
type debtPerInterestRate struct {
	InterestBatchManager common.Address
	InterestRate         *big.Int
	Debt                 *big.Int
}
