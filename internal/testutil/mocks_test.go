package testutil

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/bimakw/nadfun-gateway/internal/domain/entities"
)

func TestMockMarketRepository_ListTokens(t *testing.T) {
	repo := NewMockMarketRepository()

	tokens := make([]entities.Token, 0)
	for i := 0; i < 5; i++ {
		tokens = append(tokens, *CreateTestToken(TokenWithSymbol("TKN" + string(rune('A'+i)))))
	}
	repo.SetListing(entities.TokenListRecent, tokens...)

	ctx := context.Background()

	page, err := repo.ListTokens(ctx, entities.TokenListRecent, entities.PageQuery{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.TotalCount != 5 {
		t.Errorf("expected total 5, got %d", page.TotalCount)
	}
	if len(page.Tokens) != 2 {
		t.Fatalf("expected 2 tokens, got %d", len(page.Tokens))
	}
	if page.Tokens[0].Symbol != "TKNC" {
		t.Errorf("expected TKNC, got %s", page.Tokens[0].Symbol)
	}

	// Out of range page is empty, not an error
	page, err = repo.ListTokens(ctx, entities.TokenListRecent, entities.PageQuery{Page: 9, Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Tokens) != 0 {
		t.Errorf("expected 0 tokens, got %d", len(page.Tokens))
	}

	if repo.CallCount("ListTokens") != 2 {
		t.Errorf("expected 2 calls, got %d", repo.CallCount("ListTokens"))
	}
}

func TestMockMarketRepository_SearchTokens(t *testing.T) {
	repo := NewMockMarketRepository()
	repo.AddToken(CreateTestToken(TokenWithAddress(TokenAddress), TokenWithName("Nad Cat")))
	repo.AddToken(CreateTestToken(TokenWithAddress(OtherTokenAddress), TokenWithName("Moon Dog"), TokenWithSymbol("MDOG")))

	page, err := repo.SearchTokens(context.Background(), "dog", entities.DefaultPageQuery())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Tokens) != 1 || page.Tokens[0].Symbol != "MDOG" {
		t.Errorf("expected MDOG only, got %+v", page.Tokens)
	}
}

func TestMockIndexerRepository_GetHoldings(t *testing.T) {
	repo := NewMockIndexerRepository()
	repo.AddHoldings(
		CreateTestHolding(AliceAddress, big.NewInt(100)),
		CreateTestHolding(BobAddress, big.NewInt(300)),
		CreateTestHolding(CharlieAddr, big.NewInt(0)),
	)

	holdings, err := repo.GetHoldings(context.Background(), TokenAddress, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(holdings) != 2 {
		t.Fatalf("expected 2 non-zero holdings, got %d", len(holdings))
	}
	if holdings[0].Account != BobAddress {
		t.Errorf("expected largest holder first, got %s", holdings[0].Account)
	}
}

func TestMockIndexerRepository_GetTransfersSince(t *testing.T) {
	repo := NewMockIndexerRepository()
	repo.AddTransfers(CreateMultipleTransfers(5)...)

	since := BaseTime.Add(2 * time.Minute)
	transfers, err := repo.GetTransfers(context.Background(), TokenAddress, since)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(transfers) != 3 {
		t.Errorf("expected 3 transfers, got %d", len(transfers))
	}
}

func TestMockJournalRepository_Lifecycle(t *testing.T) {
	repo := NewMockJournalRepository()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		err := repo.Insert(ctx, &entities.JournalEntry{ID: id, Account: AliceAddress, Status: entities.JournalPending})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if err := repo.UpdateStatus(ctx, "b", entities.JournalSuccess, "0xabc", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.UpdateStatus(ctx, "missing", entities.JournalFailed, "", "boom"); err == nil {
		t.Error("expected error for unknown id")
	}

	entries, err := repo.ListByAccount(ctx, AliceAddress, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID != "c" {
		t.Errorf("expected newest entry first, got %s", entries[0].ID)
	}
	if entries[1].Status != entities.JournalSuccess || entries[1].TxHash != "0xabc" {
		t.Errorf("unexpected entry: %+v", entries[1])
	}
}

func TestMockHealthChecker(t *testing.T) {
	checker := NewMockHealthChecker(true)
	ctx := context.Background()

	if err := checker.HealthCheck(ctx); err != nil {
		t.Errorf("expected healthy, got error: %v", err)
	}

	checker.SetHealthy(false)
	if err := checker.HealthCheck(ctx); err == nil {
		t.Error("expected error when unhealthy")
	}

	if len(checker.Calls) != 2 {
		t.Errorf("expected 2 calls, got %d", len(checker.Calls))
	}
}
