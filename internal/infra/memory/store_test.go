package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/boddenberg/finbuddy-assistant-go/internal/domain"
	"github.com/boddenberg/finbuddy-assistant-go/internal/infra/memory"
)

func TestStore_ProjectLifecycle(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()

	if _, err := s.CreateProject(ctx, "  Home "); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := s.CreateProject(ctx, "Home")
	var conflict *domain.ErrConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	_, err = s.CreateProject(ctx, "   ")
	var ve *domain.ErrValidation
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}

	list, _ := s.ListProjects(ctx)
	if len(list) != 1 || list[0].Name != "Home" {
		t.Fatalf("unexpected projects %+v", list)
	}
}

func TestStore_TransactionCRUD(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	s.CreateProject(ctx, "Home")

	added, err := s.AddTransaction(ctx, "Home", domain.Transaction{Category: "Rent", Amount: decimal.NewFromInt(100)})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if added.ID == "" {
		t.Fatal("expected generated ID")
	}

	added.Amount = decimal.NewFromInt(150)
	if _, err := s.UpdateTransaction(ctx, "Home", *added); err != nil {
		t.Fatalf("update: %v", err)
	}
	txs, _ := s.ListTransactions(ctx, "Home")
	if len(txs) != 1 || !txs[0].Amount.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("unexpected table %+v", txs)
	}

	// Returned slices are copies.
	txs[0].Category = "mutated"
	again, _ := s.ListTransactions(ctx, "Home")
	if again[0].Category != "Rent" {
		t.Fatal("store leaked its internal slice")
	}

	if err := s.DeleteTransaction(ctx, "Home", added.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var nf *domain.ErrNotFound
	if err := s.DeleteTransaction(ctx, "Home", added.ID); !errors.As(err, &nf) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStore_UnknownProject(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()

	var nf *domain.ErrNotFound
	if _, err := s.ListTransactions(ctx, "ghost"); !errors.As(err, &nf) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.AppendTransactions(ctx, "ghost", nil); !errors.As(err, &nf) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStore_AppendTransactions(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	s.CreateProject(ctx, "Trip")

	batch := []domain.Transaction{{Category: "Fuel"}, {Category: "Food"}}
	if err := s.AppendTransactions(ctx, "Trip", batch); err != nil {
		t.Fatalf("append: %v", err)
	}
	txs, _ := s.ListTransactions(ctx, "Trip")
	if len(txs) != 2 || txs[0].ID == "" || txs[0].ID == txs[1].ID {
		t.Fatalf("unexpected table %+v", txs)
	}
}
