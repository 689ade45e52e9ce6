package analytics

import (
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/bimakw/nadfun-gateway/internal/domain/entities"
	"github.com/bimakw/nadfun-gateway/internal/testutil"
)

var testNow = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func req(tf Timeframe) Request {
	return Request{Token: testutil.TokenAddress, Timeframe: tf, Now: testNow}
}

func assertFinite(t *testing.T, name string, v float64) {
	t.Helper()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		t.Errorf("%s is not finite: %v", name, v)
	}
}

func TestClassifyHolder(t *testing.T) {
	supply := big.NewInt(100000)

	tests := []struct {
		name    string
		balance *big.Int
		want    entities.HolderClass
	}{
		{"exactly one percent", big.NewInt(1000), entities.HolderWhale},
		{"above one percent", big.NewInt(5000), entities.HolderWhale},
		{"exactly a tenth of a percent", big.NewInt(100), entities.HolderMedium},
		{"just below medium", big.NewInt(99), entities.HolderSmall},
		{"nil balance", nil, entities.HolderSmall},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyHolder(tt.balance, supply); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}

	if got := ClassifyHolder(big.NewInt(5), big.NewInt(0)); got != entities.HolderSmall {
		t.Errorf("expected small for unknown supply, got %s", got)
	}
}

func TestDeriveHolderStats(t *testing.T) {
	supply := testutil.Ether(1000)
	in := HolderInput{
		TotalSupply: supply,
		Holdings: []entities.Holding{
			testutil.CreateTestHolding(testutil.AliceAddress, testutil.Ether(100)), // 10% whale
			testutil.CreateTestHolding(testutil.BobAddress, big.NewInt(0)),         // ignored
			testutil.CreateTestHolding(testutil.CharlieAddr, testutil.Ether(1)),    // 0.1% medium
			testutil.CreateTestHolding(testutil.CreatorAddress, big.NewInt(1)),     // small
		},
	}

	stats := DeriveHolderStats(in, req(Timeframe24h))

	if stats.HolderCount != 3 {
		t.Errorf("expected 3 holders, got %d", stats.HolderCount)
	}
	if stats.Whales != 1 || stats.Medium != 1 || stats.Small != 1 {
		t.Errorf("unexpected classes: whales=%d medium=%d small=%d", stats.Whales, stats.Medium, stats.Small)
	}
	if math.Abs(stats.Top10Percent-10.1) > 0.001 {
		t.Errorf("expected top10 10.1%%, got %f", stats.Top10Percent)
	}
	if stats.TotalSupply != "1000" {
		t.Errorf("expected total supply 1000, got %s", stats.TotalSupply)
	}
}

func TestDeriveHolderStats_Empty(t *testing.T) {
	stats := DeriveHolderStats(HolderInput{}, req(Timeframe24h))

	if stats.HolderCount != 0 || stats.Whales != 0 || stats.Top10Percent != 0 {
		t.Errorf("expected zero stats, got %+v", stats)
	}
	if stats.AverageBalance != "0" {
		t.Errorf("expected average 0, got %s", stats.AverageBalance)
	}
	assertFinite(t, "top10", stats.Top10Percent)
}

func TestDeriveHoldingTime(t *testing.T) {
	mint := testutil.WithFromAddress(entities.ZeroAddress)
	transfers := []entities.Transfer{
		// Alice acquires at -2h and still holds
		testutil.CreateTestTransfer(mint, testutil.WithToAddress(testutil.AliceAddress),
			testutil.WithTimestamp(testNow.Add(-2*time.Hour)), testutil.WithValue(big.NewInt(100))),
		// Bob acquires at -3h and exits fully at -2h
		testutil.CreateTestTransfer(mint, testutil.WithToAddress(testutil.BobAddress),
			testutil.WithTimestamp(testNow.Add(-3*time.Hour)), testutil.WithValue(big.NewInt(50))),
		testutil.CreateTestTransfer(testutil.WithFromAddress(testutil.BobAddress), testutil.WithToAddress(testutil.CharlieAddr),
			testutil.WithTimestamp(testNow.Add(-2*time.Hour)), testutil.WithValue(big.NewInt(50))),
	}

	ht := DeriveHoldingTime(transfers, req(Timeframe24h))

	if ht.CurrentHolders != 2 {
		t.Errorf("expected 2 current holders, got %d", ht.CurrentHolders)
	}
	if ht.ExitedHolders != 1 {
		t.Errorf("expected 1 exited holder, got %d", ht.ExitedHolders)
	}

	// Alice 2h, Bob 1h, Charlie 2h
	wantAvg := (2*3600.0 + 3600.0 + 2*3600.0) / 3
	if math.Abs(ht.AverageSeconds-wantAvg) > 0.001 {
		t.Errorf("expected average %f, got %f", wantAvg, ht.AverageSeconds)
	}
	if ht.MedianSeconds != 7200 {
		t.Errorf("expected median 7200, got %f", ht.MedianSeconds)
	}
}

func TestDeriveHoldingTime_Empty(t *testing.T) {
	ht := DeriveHoldingTime(nil, req(Timeframe24h))
	if ht != (HoldingTime{}) {
		t.Errorf("expected zero result, got %+v", ht)
	}
}

func TestDeriveAlsoBought(t *testing.T) {
	in := AlsoBoughtInput{
		Holders: []string{testutil.AliceAddress, testutil.BobAddress, testutil.CharlieAddr, testutil.CreatorAddress},
		Holdings: []entities.Holding{
			{Account: testutil.AliceAddress, TokenAddress: testutil.OtherTokenAddress, Balance: big.NewInt(1)},
			{Account: testutil.BobAddress, TokenAddress: testutil.OtherTokenAddress, Balance: big.NewInt(1)},
			{Account: testutil.BobAddress, TokenAddress: testutil.OtherTokenAddress, Balance: big.NewInt(2)},
			{Account: testutil.CharlieAddr, TokenAddress: "0xcccccccccccccccccccccccccccccccccccccccc", Balance: big.NewInt(1)},
			// the token itself is excluded
			{Account: testutil.AliceAddress, TokenAddress: testutil.TokenAddress, Balance: big.NewInt(1)},
			// holders outside the sample are ignored
			{Account: "0x9999999999999999999999999999999999999999", TokenAddress: "0xdddddddddddddddddddddddddddddddddddddddd", Balance: big.NewInt(1)},
		},
	}

	ab := DeriveAlsoBought(in, req(Timeframe24h))

	if ab.SampledHolders != 4 {
		t.Errorf("expected 4 sampled holders, got %d", ab.SampledHolders)
	}
	if len(ab.Tokens) != 2 {
		t.Fatalf("expected 2 tokens, got %d", len(ab.Tokens))
	}
	if ab.Tokens[0].Address != testutil.OtherTokenAddress || ab.Tokens[0].Holders != 2 {
		t.Errorf("unexpected top token: %+v", ab.Tokens[0])
	}
	if ab.Tokens[0].Percent != 50 {
		t.Errorf("expected 50%%, got %f", ab.Tokens[0].Percent)
	}
}

func TestDeriveAlsoBought_Empty(t *testing.T) {
	ab := DeriveAlsoBought(AlsoBoughtInput{}, req(Timeframe24h))
	if ab.Tokens == nil {
		t.Error("expected empty slice, got nil")
	}
	if ab.SampledHolders != 0 {
		t.Errorf("expected 0 sampled holders, got %d", ab.SampledHolders)
	}
}

func TestDeriveVelocity(t *testing.T) {
	trades := []entities.Trade{
		testutil.CreateTestTrade(testutil.TradeWithTimestamp(testNow.Add(-10*time.Minute)),
			testutil.TradeWithAmounts(testutil.Ether(10), testutil.Ether(2))),
		testutil.CreateTestTrade(testutil.TradeWithTimestamp(testNow.Add(-20*time.Minute)),
			testutil.TradeWithTrader(testutil.BobAddress)),
		testutil.CreateTestTrade(testutil.TradeWithTimestamp(testNow.Add(-30*time.Minute)),
			testutil.TradeWithSell(), testutil.TradeWithTrader(testutil.BobAddress)),
		// outside the window
		testutil.CreateTestTrade(testutil.TradeWithTimestamp(testNow.Add(-2 * time.Hour))),
	}

	v := DeriveVelocity(trades, req(Timeframe1h))

	if len(v.Buckets) != 12 {
		t.Fatalf("expected 12 buckets, got %d", len(v.Buckets))
	}
	if v.TotalBuys != 2 || v.TotalSells != 1 || v.TotalTrades != 3 {
		t.Errorf("unexpected totals: buys=%d sells=%d total=%d", v.TotalBuys, v.TotalSells, v.TotalTrades)
	}
	if v.BuyVolume != "3" {
		t.Errorf("expected buy volume 3, got %s", v.BuyVolume)
	}
	if v.SellVolume != "1" {
		t.Errorf("expected sell volume 1, got %s", v.SellVolume)
	}
	if v.BuySellRatio != 2 {
		t.Errorf("expected ratio 2, got %f", v.BuySellRatio)
	}
	if v.TradesPerHour != 3 {
		t.Errorf("expected 3 trades per hour, got %f", v.TradesPerHour)
	}
	if v.UniqueTraders != 2 {
		t.Errorf("expected 2 unique traders, got %d", v.UniqueTraders)
	}

	// -10m lands in the last-but-one bucket of 5 minutes
	if v.Buckets[10].Buys != 1 {
		t.Errorf("expected a buy in bucket 10, got %+v", v.Buckets[10])
	}
}

func TestDeriveVelocity_ZeroTrades(t *testing.T) {
	for _, tf := range []Timeframe{Timeframe1h, Timeframe6h, Timeframe24h, Timeframe7d} {
		t.Run(string(tf), func(t *testing.T) {
			v := DeriveVelocity(nil, req(tf))

			if v.TotalTrades != 0 || v.TotalBuys != 0 || v.TotalSells != 0 || v.UniqueTraders != 0 {
				t.Errorf("expected zero totals, got %+v", v)
			}
			if v.BuyVolume != "0" || v.SellVolume != "0" {
				t.Errorf("expected zero volumes, got %s/%s", v.BuyVolume, v.SellVolume)
			}
			assertFinite(t, "trades per hour", v.TradesPerHour)
			assertFinite(t, "buy/sell ratio", v.BuySellRatio)
			if v.TradesPerHour != 0 || v.BuySellRatio != 0 {
				t.Errorf("expected zero rates, got %f/%f", v.TradesPerHour, v.BuySellRatio)
			}
			if len(v.Buckets) != tf.Buckets() {
				t.Errorf("expected %d buckets, got %d", tf.Buckets(), len(v.Buckets))
			}
		})
	}
}

func TestDeriveWalletGrowth(t *testing.T) {
	at := func(d time.Duration) testutil.TransferOption {
		return testutil.WithTimestamp(testNow.Add(-d))
	}
	transfers := []entities.Transfer{
		testutil.CreateTestTransfer(testutil.WithToAddress(testutil.AliceAddress), at(55*time.Minute)),
		testutil.CreateTestTransfer(testutil.WithToAddress(testutil.AliceAddress), at(5*time.Minute)),
		testutil.CreateTestTransfer(testutil.WithToAddress(testutil.BobAddress), at(30*time.Minute)),
		testutil.CreateTestTransfer(testutil.WithToAddress(testutil.CharlieAddr), at(2*time.Minute)),
		// burns are not wallets
		testutil.CreateTestTransfer(testutil.WithToAddress(entities.ZeroAddress), at(2*time.Minute)),
	}

	g := DeriveWalletGrowth(transfers, req(Timeframe1h))

	if g.TotalWallets != 3 {
		t.Errorf("expected 3 wallets, got %d", g.TotalWallets)
	}
	if g.Buckets[1].NewWallets != 1 {
		t.Errorf("expected Alice in bucket 1, got %+v", g.Buckets[1])
	}
	last := g.Buckets[len(g.Buckets)-1]
	if last.CumulativeWallets != 3 {
		t.Errorf("expected cumulative 3, got %d", last.CumulativeWallets)
	}
	// first bucket is empty so any growth counts as 100%
	if g.GrowthPercent != 100 {
		t.Errorf("expected 100%% growth, got %f", g.GrowthPercent)
	}
}

func TestDeriveWalletGrowth_FromNonZeroStart(t *testing.T) {
	transfers := []entities.Transfer{
		testutil.CreateTestTransfer(testutil.WithToAddress(testutil.AliceAddress), testutil.WithTimestamp(testNow.Add(-59*time.Minute))),
		testutil.CreateTestTransfer(testutil.WithToAddress(testutil.BobAddress), testutil.WithTimestamp(testNow.Add(-1*time.Minute))),
	}

	g := DeriveWalletGrowth(transfers, req(Timeframe1h))
	if g.GrowthPercent != 100 {
		t.Errorf("expected 100%% growth from 1 to 2 wallets, got %f", g.GrowthPercent)
	}

	empty := DeriveWalletGrowth(nil, req(Timeframe1h))
	if empty.GrowthPercent != 0 || empty.TotalWallets != 0 {
		t.Errorf("expected zero growth, got %+v", empty)
	}
}

func TestDeriveCreatorInsights(t *testing.T) {
	in := CreatorInput{
		Creator:     testutil.CreatorAddress,
		Balance:     testutil.Ether(50),
		TotalSupply: testutil.Ether(1000),
		Trades: []entities.Trade{
			testutil.CreateTestTrade(testutil.TradeWithTrader(testutil.CreatorAddress), testutil.TradeWithSell(),
				testutil.TradeWithAmounts(testutil.Ether(10), testutil.Ether(1))),
			testutil.CreateTestTrade(testutil.TradeWithTrader(testutil.CreatorAddress), testutil.TradeWithSell(),
				testutil.TradeWithAmounts(testutil.Ether(5), testutil.Ether(1))),
			// creator buys and other sellers do not count
			testutil.CreateTestTrade(testutil.TradeWithTrader(testutil.CreatorAddress)),
			testutil.CreateTestTrade(testutil.TradeWithSell()),
		},
		Created: []entities.CreatedToken{{Address: testutil.TokenAddress}, {Address: testutil.OtherTokenAddress}},
	}

	ci := DeriveCreatorInsights(in, req(Timeframe24h))

	if ci.SupplyPercent != 5 {
		t.Errorf("expected 5%%, got %f", ci.SupplyPercent)
	}
	if ci.SellCount != 2 {
		t.Errorf("expected 2 sells, got %d", ci.SellCount)
	}
	if ci.TokensSold != "15" || ci.SellVolume != "2" {
		t.Errorf("unexpected sold/volume: %s/%s", ci.TokensSold, ci.SellVolume)
	}
	if ci.TokensCreated != 2 {
		t.Errorf("expected 2 created tokens, got %d", ci.TokensCreated)
	}
	if ci.Balance != "50" {
		t.Errorf("expected balance 50, got %s", ci.Balance)
	}
}

func TestDeriveCreatorInsights_Empty(t *testing.T) {
	ci := DeriveCreatorInsights(CreatorInput{}, req(Timeframe24h))
	if ci.SellCount != 0 || ci.SupplyPercent != 0 || ci.Balance != "0" {
		t.Errorf("expected zero insights, got %+v", ci)
	}
}

func TestParseTimeframe(t *testing.T) {
	if ParseTimeframe("6h") != Timeframe6h {
		t.Error("expected 6h")
	}
	if ParseTimeframe("1y") != Timeframe24h {
		t.Error("expected default 24h")
	}
	if Timeframe7d.Buckets() != 14 {
		t.Errorf("expected 14 buckets for 7d, got %d", Timeframe7d.Buckets())
	}
}
