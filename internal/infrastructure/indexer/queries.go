package indexer

const holdingsQuery = `
query Holdings($token: String!, $first: Int!) {
  holdings(
    where: { token: $token, balance_gt: "0" }
    orderBy: balance
    orderDirection: desc
    first: $first
  ) {
    account
    token
    balance
  }
}`

const accountsHoldingsQuery = `
query AccountsHoldings($accounts: [String!]!, $first: Int!, $skip: Int!) {
  holdings(
    where: { account_in: $accounts, balance_gt: "0" }
    first: $first
    skip: $skip
  ) {
    account
    token
    balance
  }
}`

const transfersQuery = `
query Transfers($token: String!, $since: BigInt!, $first: Int!, $skip: Int!) {
  transfers(
    where: { token: $token, timestamp_gte: $since }
    orderBy: timestamp
    orderDirection: asc
    first: $first
    skip: $skip
  ) {
    from
    to
    value
    timestamp
    blockNumber
    logIndex
    transactionHash
  }
}`

const tradesQuery = `
query Trades($token: String!, $since: BigInt!, $first: Int!, $skip: Int!) {
  trades(
    where: { token: $token, timestamp_gte: $since }
    orderBy: timestamp
    orderDirection: asc
    first: $first
    skip: $skip
  ) {
    trader
    isBuy
    tokenAmount
    nativeAmount
    timestamp
    transactionHash
  }
}`

const createdTokensQuery = `
query CreatedTokens($creator: String!, $first: Int!) {
  tokens(
    where: { creator: $creator }
    orderBy: createdAt
    orderDirection: desc
    first: $first
  ) {
    id
    name
    symbol
    createdAt
  }
}`
