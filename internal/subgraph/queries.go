package subgraph

const blockNumberQuery = `
query BlockNumber {
  _meta {
    block {
      number
    }
  }
}`

const nextOwnerIndexesByBorrowerQuery = `
query NextOwnerIndexesByBorrower($id: ID!) {
  borrowerInfo(id: $id) {
    nextOwnerIndexes
  }
}`

const trovesByAccountQuery = `
query TrovesByAccount($account: Bytes!) {
  troves(
    where: {
      or: [
        { previousOwner: $account, status: liquidated },
        { borrower: $account, status_in: [active,redeemed] }
      ],
    }
    orderBy: updatedAt
    orderDirection: desc
  ) {
    id
    closedAt
    createdAt
    lastUserActionAt
    mightBeLeveraged
    status
    debt
    redemptionCount
    redeemedColl
    redeemedDebt
  }
}`

const troveByIDQuery = `
query TroveById($id: ID!) {
  trove(id: $id) {
    id
    borrower
    closedAt
    createdAt
    lastUserActionAt
    mightBeLeveraged
    previousOwner
    status
    debt
    redemptionCount
    redeemedColl
    redeemedDebt
  }
}`

const interestBatchesQuery = `
query InterestBatches($ids: [ID!]!) {
  interestBatches(where: { id_in: $ids }) {
    collateral {
      collIndex
    }
    batchManager
    debt
    coll
    annualInterestRate
    annualManagementFee
  }
}`

const allInterestRateBracketsQuery = `
query AllInterestRateBrackets {
  interestRateBrackets(
    first: 1000
    where: { totalDebt_gt: 0 }
    orderBy: rate
  ) {
    collateral {
      collIndex
    }
    rate
    totalDebt
  }
}`

const governanceGlobalDataQuery = `
query GovernanceGlobalData {
  governanceInitiatives {
    id
  }
  governanceVotingPower(id: "total") {
    allocatedLQTY
    allocatedOffset
    unallocatedLQTY
    unallocatedOffset
  }
}`

const userAllocationHistoryQuery = `
query UserAllocationHistory($user: String) {
  governanceAllocations(
    where: { user: $user }
    orderBy: epoch
    orderDirection: desc
    first: 1000
  ) {
    epoch
    initiative { id }
    voteLQTY
    vetoLQTY
    voteOffset
    vetoOffset
  }
}`

const totalAllocationHistoryQuery = `
query TotalAllocationHistory($initiative: String) {
  governanceAllocations(
    where: { initiative: $initiative, user: null }
    orderBy: epoch
    orderDirection: desc
    first: 1000
  ) {
    epoch
    voteLQTY
    vetoLQTY
    voteOffset
    vetoOffset
  }
}`
