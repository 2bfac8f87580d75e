package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/singhkkrish/traceit/internal/db"
	"github.com/singhkkrish/traceit/internal/model"
)

func newFoundItem(finder *model.User, name, category, location string) *model.FoundItem {
	return &model.FoundItem{
		ItemName:         name,
		Category:         category,
		LocationFound:    location,
		DateFound:        "2024-05-02",
		SecurityQuestion: "What is on the case?",
		FoundBy:          finder.ID,
	}
}

func mustCreateFoundItem(t *testing.T, database *sql.DB, item *model.FoundItem, answer string) *model.FoundItem {
	t.Helper()
	got, err := CreateFoundItem(context.Background(), database, item, answer)
	if err != nil {
		t.Fatalf("CreateFoundItem: %v", err)
	}
	return got
}

func TestCreateFoundItemAndSecret(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	finn := mustCreateUser(t, database, "Finn", "finn@example.com", "555-0199")

	in := newFoundItem(finn, "Phone", model.CategoryElectronics, "Bus stop")
	in.Phone = "555-0100"
	item := mustCreateFoundItem(t, database, in, "red case")

	if item.Status != model.FoundStatusFound {
		t.Errorf("expected status 'found', got %q", item.Status)
	}
	if item.FoundBy != finn.ID {
		t.Errorf("expected foundBy %q, got %q", finn.ID, item.FoundBy)
	}
	if item.Phone != "555-0100" {
		t.Errorf("expected report phone, got %q", item.Phone)
	}

	secret, err := GetFoundItemSecret(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("GetFoundItemSecret: %v", err)
	}
	if secret == nil {
		t.Fatal("expected secret projection")
	}
	if secret.Answer != "red case" {
		t.Errorf("expected stored answer, got %q", secret.Answer)
	}
	if secret.ItemPhone != "555-0100" || secret.FinderName != "Finn" ||
		secret.FinderEmail != "finn@example.com" || secret.FinderPhone != "555-0199" {
		t.Errorf("unexpected contact fields: %+v", *secret)
	}

	missing, err := GetFoundItemSecret(ctx, database, "nope")
	if err != nil {
		t.Fatalf("GetFoundItemSecret: %v", err)
	}
	if missing != nil {
		t.Error("expected nil secret for unknown id")
	}
}

func TestListFoundItems(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	finn := mustCreateUser(t, database, "Finn", "finn@example.com", "")
	gina := mustCreateUser(t, database, "Gina", "gina@example.com", "")

	mustCreateFoundItem(t, database, newFoundItem(finn, "Backpack", model.CategoryBags, "Gym"), "green")
	claimed := mustCreateFoundItem(t, database, newFoundItem(finn, "Keys", model.CategoryKeys, "Lobby"), "three keys")
	mustCreateFoundItem(t, database, newFoundItem(gina, "Textbook", model.CategoryBooks, "Lecture hall"), "calculus")

	if err := SetFoundItemStatus(ctx, database, claimed.ID, model.FoundStatusClaimed); err != nil {
		t.Fatalf("SetFoundItemStatus: %v", err)
	}

	open, _ := ListFoundItems(ctx, database, FoundItemFilter{Status: model.FoundStatusFound})
	if len(open) != 2 {
		t.Fatalf("expected 2 unclaimed items, got %d", len(open))
	}
	if open[0].ItemName != "Textbook" {
		t.Errorf("expected newest first, got %q", open[0].ItemName)
	}

	byQuery, _ := ListFoundItems(ctx, database, FoundItemFilter{Query: "lecture"})
	if len(byQuery) != 1 || byQuery[0].ItemName != "Textbook" {
		t.Errorf("expected location match, got %v", byQuery)
	}

	mine, _ := ListFoundItems(ctx, database, FoundItemFilter{FoundBy: finn.ID})
	if len(mine) != 2 {
		t.Errorf("expected finn's 2 reports, got %d", len(mine))
	}
}

func TestUpdateFoundItemKeepsAnswerWhenEmpty(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	finn := mustCreateUser(t, database, "Finn", "finn@example.com", "")

	item := mustCreateFoundItem(t, database, newFoundItem(finn, "Scarf", model.CategoryClothing, "Park"), "wool")

	item.LocationFound = "Park bench"
	if err := UpdateFoundItem(ctx, database, item, ""); err != nil {
		t.Fatalf("UpdateFoundItem: %v", err)
	}
	secret, _ := GetFoundItemSecret(ctx, database, item.ID)
	if secret.Answer != "wool" {
		t.Errorf("expected answer kept, got %q", secret.Answer)
	}

	if err := UpdateFoundItem(ctx, database, item, "cashmere"); err != nil {
		t.Fatalf("UpdateFoundItem: %v", err)
	}
	secret, _ = GetFoundItemSecret(ctx, database, item.ID)
	if secret.Answer != "cashmere" {
		t.Errorf("expected answer replaced, got %q", secret.Answer)
	}

	got, _ := GetFoundItem(ctx, database, item.ID)
	if got.LocationFound != "Park bench" {
		t.Errorf("expected location updated, got %q", got.LocationFound)
	}
}

func TestDeleteFoundItemHidesSecret(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	finn := mustCreateUser(t, database, "Finn", "finn@example.com", "")

	item := mustCreateFoundItem(t, database, newFoundItem(finn, "Ring", model.CategoryAccessories, "Beach"), "engraved")
	if err := DeleteFoundItem(ctx, database, item.ID); err != nil {
		t.Fatalf("DeleteFoundItem: %v", err)
	}

	if got, _ := GetFoundItem(ctx, database, item.ID); got != nil {
		t.Error("expected deleted item to be hidden")
	}
	if secret, _ := GetFoundItemSecret(ctx, database, item.ID); secret != nil {
		t.Error("expected deleted item to have no verifiable secret")
	}
}
