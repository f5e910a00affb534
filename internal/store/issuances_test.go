package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erazemk/zaloga/internal/db"
	"github.com/erazemk/zaloga/internal/model"
)

func TestCreateAndListIssuances(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	cement, _ := CreateItem(ctx, database, newItem("Cement", 100))
	sand, _ := CreateItem(ctx, database, newItem("Sand", 100))

	first, err := CreateIssuance(ctx, database, model.Issuance{
		ItemID:         cement.ID,
		ItemName:       cement.Name,
		QuantityIssued: 30,
		DateIssued:     time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		DepartmentName: "Construction",
	})
	if err != nil {
		t.Fatalf("CreateIssuance: %v", err)
	}
	if first.ItemName != "Cement" || first.QuantityIssued != 30 || first.DepartmentName != "Construction" {
		t.Errorf("unexpected record %+v", first)
	}
	if first.IssuedBy != nil {
		t.Errorf("expected no issuer, got %d", *first.IssuedBy)
	}

	CreateIssuance(ctx, database, model.Issuance{
		ItemID: sand.ID, ItemName: sand.Name, QuantityIssued: 1,
		DateIssued: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), DepartmentName: "Garden",
	})

	all, err := ListIssuances(ctx, database, 0)
	if err != nil {
		t.Fatalf("ListIssuances: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 records, got %d", len(all))
	}
	if all[0].ItemName != "Sand" {
		t.Errorf("expected earliest record first, got %s", all[0].ItemName)
	}

	forCement, _ := ListIssuances(ctx, database, cement.ID)
	if len(forCement) != 1 || forCement[0].ID != first.ID {
		t.Errorf("expected only the cement record, got %+v", forCement)
	}
}

func TestCreateIssuanceConstraints(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	base := model.Issuance{ItemID: 1, ItemName: "X", QuantityIssued: 1, DateIssued: time.Now(), DepartmentName: "Ops"}

	zero := base
	zero.QuantityIssued = 0
	if _, err := CreateIssuance(ctx, database, zero); err == nil {
		t.Error("expected zero quantity to be rejected")
	}

	noDept := base
	noDept.DepartmentName = ""
	if _, err := CreateIssuance(ctx, database, noDept); err == nil {
		t.Error("expected empty department to be rejected")
	}
}

func TestGetIssuanceNotFound(t *testing.T) {
	database := db.NewTestDB(t)

	if _, err := GetIssuance(context.Background(), database, 7); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
