package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"namiokai-backend/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	alice = uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa")
	bob   = uuid.MustParse("bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb")
)

// fakeBillStore serves canned bills per space and fails on demand.
type fakeBillStore struct {
	bills   map[uuid.UUID][]models.Bill
	failing map[uuid.UUID]bool
	calls   int
}

func (f *fakeBillStore) BillsForPeriod(ctx context.Context, spaceID uuid.UUID, period models.Period) ([]models.Bill, error) {
	f.calls++
	if f.failing[spaceID] {
		return nil, errors.New("connection refused")
	}
	return f.bills[spaceID], nil
}

func testSpace(name string) models.Space {
	return models.Space{ID: uuid.New(), Name: name, Recurrence: models.RecurrenceMonthly}
}

func testBill(spaceID uuid.UUID, payer uuid.UUID, split []uuid.UUID, amount float64) models.Bill {
	uids := make(pq.StringArray, len(split))
	for i, id := range split {
		uids[i] = id.String()
	}
	return models.Bill{
		ID:        uuid.New(),
		SpaceID:   spaceID,
		Type:      models.BillTypePurchase,
		PaidBy:    payer,
		SplitUIDs: uids,
		Amount:    amount,
		Date:      time.Now(),
	}
}

func TestSpaceDebtsFor(t *testing.T) {
	space := testSpace("Flat")
	store := &fakeBillStore{
		bills: map[uuid.UUID][]models.Bill{
			space.ID: {testBill(space.ID, alice, []uuid.UUID{alice, bob}, 20.0)},
		},
	}
	svc := NewDebtsService(store, nil)

	result := svc.SpaceDebtsFor(context.Background(), space, bob, time.Now())

	if result.FetchError != "" {
		t.Fatalf("FetchError = %q, want empty", result.FetchError)
	}
	if got := result.Debts.Debt(bob, alice); math.Abs(got-10.0) > 0.001 {
		t.Errorf("Debt(bob, alice) = %v, want 10.0", got)
	}
	if len(result.CurrentUserDebts) != 1 {
		t.Errorf("CurrentUserDebts has %d creditors, want 1", len(result.CurrentUserDebts))
	}
	if result.Period.Start.IsZero() || !result.Period.Contains(time.Now()) {
		t.Errorf("Period does not contain now: %+v", result.Period)
	}
}

func TestSpaceDebtsForFetchFailure(t *testing.T) {
	space := testSpace("Flat")
	store := &fakeBillStore{failing: map[uuid.UUID]bool{space.ID: true}}
	svc := NewDebtsService(store, nil)

	result := svc.SpaceDebtsFor(context.Background(), space, alice, time.Now())

	// A failed fetch must stay distinguishable from "no bills"
	if result.FetchError == "" {
		t.Fatalf("FetchError empty, want the fetch error surfaced")
	}
	if result.Debts == nil || !result.Debts.IsEmpty() {
		t.Errorf("expected an empty ledger alongside the fetch error")
	}
}

func TestCalculateAllIsolatesFailures(t *testing.T) {
	healthy := testSpace("Flat")
	broken := testSpace("Car")
	quiet := testSpace("Cottage")

	store := &fakeBillStore{
		bills: map[uuid.UUID][]models.Bill{
			healthy.ID: {testBill(healthy.ID, alice, []uuid.UUID{bob}, 8.0)},
		},
		failing: map[uuid.UUID]bool{broken.ID: true},
	}
	svc := NewDebtsService(store, nil)

	results := svc.CalculateAll(context.Background(), []models.Space{healthy, broken, quiet}, bob)

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	// Results keep input order
	if results[0].Space.ID != healthy.ID || results[1].Space.ID != broken.ID || results[2].Space.ID != quiet.ID {
		t.Fatalf("results out of order")
	}

	if results[0].FetchError != "" {
		t.Errorf("healthy space has FetchError %q", results[0].FetchError)
	}
	if got := results[0].Debts.Debt(bob, alice); math.Abs(got-8.0) > 0.001 {
		t.Errorf("healthy space Debt(bob, alice) = %v, want 8.0", got)
	}

	if results[1].FetchError == "" {
		t.Errorf("broken space did not surface its fetch error")
	}
	if !results[1].Debts.IsEmpty() {
		t.Errorf("broken space ledger not empty")
	}

	// Legitimately empty space: no error, empty ledger
	if results[2].FetchError != "" || !results[2].Debts.IsEmpty() {
		t.Errorf("quiet space: FetchError=%q IsEmpty=%v", results[2].FetchError, results[2].Debts.IsEmpty())
	}
}
