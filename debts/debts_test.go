package debts

import (
	"math"
	"math/rand"
	"reflect"
	"testing"

	"namiokai-backend/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	userM = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	userS = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	userD = uuid.MustParse("33333333-3333-3333-3333-333333333333")
	userP = uuid.MustParse("44444444-4444-4444-4444-444444444444")
)

func purchaseBill(payer uuid.UUID, split []uuid.UUID, amount float64) models.Bill {
	return models.Bill{
		ID:          uuid.New(),
		Type:        models.BillTypePurchase,
		PaidBy:      payer,
		SplitUIDs:   toStringArray(split),
		Description: "groceries",
		Amount:      amount,
	}
}

func tripBill(payer uuid.UUID, split []uuid.UUID, pricePerUser float64) models.Bill {
	return models.Bill{
		ID:               uuid.New(),
		Type:             models.BillTypeTrip,
		PaidBy:           payer,
		SplitUIDs:        toStringArray(split),
		TripPricePerUser: pricePerUser,
		Destination:      "Kaunas",
	}
}

func toStringArray(ids []uuid.UUID) pq.StringArray {
	out := make(pq.StringArray, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.001
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name     string
		bills    []models.Bill
		validate func(t *testing.T, ledger *DebtsMap)
	}{
		{
			name:  "empty bill list yields empty ledger",
			bills: nil,
			validate: func(t *testing.T, ledger *DebtsMap) {
				if !ledger.IsEmpty() {
					t.Errorf("IsEmpty() = false, want true")
				}
			},
		},
		{
			name: "single bill, payer excluded from own debt",
			bills: []models.Bill{
				purchaseBill(userM, []uuid.UUID{userS, userM}, 15.0),
			},
			validate: func(t *testing.T, ledger *DebtsMap) {
				if got := ledger.Debt(userS, userM); !almostEqual(got, 7.5) {
					t.Errorf("Debt(S, M) = %v, want 7.5", got)
				}
				if got := ledger.Debt(userM, userM); got != 0 {
					t.Errorf("Debt(M, M) = %v, want 0 (payer never owes themselves)", got)
				}
				if got := ledger.Debt(userM, userS); got != 0 {
					t.Errorf("Debt(M, S) = %v, want 0", got)
				}
			},
		},
		{
			name: "mutual debts net to a single direction",
			bills: []models.Bill{
				purchaseBill(userM, []uuid.UUID{userS, userM}, 15.0),
				purchaseBill(userS, []uuid.UUID{userS, userM}, 15.0),
				purchaseBill(userS, []uuid.UUID{userM}, 15.0),
				purchaseBill(userM, []uuid.UUID{userS, userM}, 15.0),
			},
			validate: func(t *testing.T, ledger *DebtsMap) {
				if got := ledger.Debt(userS, userM); !almostEqual(got, 0.0) {
					t.Errorf("Debt(S, M) = %v, want 0.0", got)
				}
				if got := ledger.Debt(userM, userS); !almostEqual(got, 7.5) {
					t.Errorf("Debt(M, S) = %v, want 7.5", got)
				}
				// The cancelled direction must be absent, not stored as zero
				if entries := ledger.Debts(userS, userM); len(entries) != 0 {
					t.Errorf("Debts(S, M) has %d entries, want none", len(entries))
				}
			},
		},
		{
			name: "exactly cancelling debts remove both directions",
			bills: []models.Bill{
				purchaseBill(userM, []uuid.UUID{userS}, 10.0),
				purchaseBill(userS, []uuid.UUID{userM}, 10.0),
			},
			validate: func(t *testing.T, ledger *DebtsMap) {
				if !ledger.IsEmpty() {
					t.Errorf("IsEmpty() = false, want true after full cancellation")
				}
			},
		},
		{
			name: "trip bill charges fixed price per user",
			bills: []models.Bill{
				tripBill(userD, []uuid.UUID{userD, userP, userM}, 5.0),
			},
			validate: func(t *testing.T, ledger *DebtsMap) {
				if got := ledger.Debt(userP, userD); !almostEqual(got, 5.0) {
					t.Errorf("Debt(P, D) = %v, want 5.0", got)
				}
				if got := ledger.Debt(userM, userD); !almostEqual(got, 5.0) {
					t.Errorf("Debt(M, D) = %v, want 5.0", got)
				}
				if got := ledger.Debt(userD, userP); got != 0 {
					t.Errorf("Debt(D, P) = %v, want 0", got)
				}
			},
		},
		{
			name: "invalid bill is skipped",
			bills: []models.Bill{
				{Type: models.BillTypePurchase, PaidBy: userM, Amount: 10.0}, // empty split list
				purchaseBill(userM, []uuid.UUID{userS}, 10.0),
			},
			validate: func(t *testing.T, ledger *DebtsMap) {
				if got := ledger.Debt(userS, userM); !almostEqual(got, 10.0) {
					t.Errorf("Debt(S, M) = %v, want 10.0", got)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.validate(t, Calculate(tt.bills))
		})
	}
}

func TestCalculateZeroSumInvariant(t *testing.T) {
	// After processing, at most one direction per pair carries debt.
	bills := []models.Bill{
		purchaseBill(userM, []uuid.UUID{userS, userD, userM}, 30.0),
		purchaseBill(userS, []uuid.UUID{userM, userD}, 24.0),
		purchaseBill(userD, []uuid.UUID{userM, userS, userD}, 18.0),
		tripBill(userM, []uuid.UUID{userS, userD}, 4.0),
	}

	ledger := Calculate(bills)

	users := []uuid.UUID{userM, userS, userD}
	for _, a := range users {
		for _, b := range users {
			if a == b {
				continue
			}
			forward := ledger.Debt(a, b)
			backward := ledger.Debt(b, a)
			if forward > epsilon && backward > epsilon {
				t.Errorf("both directions non-zero for pair %s/%s: %v and %v", a, b, forward, backward)
			}
		}
	}
}

func TestCalculateConservation(t *testing.T) {
	// One bill, payer not in split set: recorded contributions must sum to
	// splitPricePerUser * |split|.
	bill := purchaseBill(userM, []uuid.UUID{userS, userD, userP}, 20.0)
	ledger := Calculate([]models.Bill{bill})

	want := bill.SplitPricePerUser() * 3
	got := ledger.Debt(userS, userM) + ledger.Debt(userD, userM) + ledger.Debt(userP, userM)
	if !almostEqual(got, want) {
		t.Errorf("sum of contributions = %v, want %v", got, want)
	}
	if got := ledger.TotalOwedToYou(userM); !almostEqual(got, want) {
		t.Errorf("TotalOwedToYou(M) = %v, want %v", got, want)
	}
}

func TestCalculateIdempotent(t *testing.T) {
	bills := []models.Bill{
		purchaseBill(userM, []uuid.UUID{userS, userM}, 15.0),
		purchaseBill(userS, []uuid.UUID{userS, userM}, 15.0),
		tripBill(userD, []uuid.UUID{userD, userM, userS}, 5.0),
	}

	first := Calculate(bills)
	second := Calculate(bills)

	if !reflect.DeepEqual(first.AllDebts(), second.AllDebts()) {
		t.Errorf("recomputation on the same input produced a different ledger")
	}
}

func TestCalculateOrderIndependence(t *testing.T) {
	bills := []models.Bill{
		purchaseBill(userM, []uuid.UUID{userS, userM}, 15.0),
		purchaseBill(userS, []uuid.UUID{userS, userM}, 15.0),
		purchaseBill(userS, []uuid.UUID{userM}, 15.0),
		purchaseBill(userM, []uuid.UUID{userS, userM}, 15.0),
		tripBill(userD, []uuid.UUID{userM, userS}, 8.0),
	}

	reference := Calculate(bills)
	users := []uuid.UUID{userM, userS, userD, userP}

	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 10; run++ {
		shuffled := append([]models.Bill(nil), bills...)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		ledger := Calculate(shuffled)
		for _, a := range users {
			for _, b := range users {
				if a == b {
					continue
				}
				if got, want := ledger.Debt(a, b), reference.Debt(a, b); !almostEqual(got, want) {
					t.Fatalf("run %d: Debt(%s, %s) = %v, want %v", run, a, b, got, want)
				}
			}
		}
	}
}

func TestDebtsMapQueries(t *testing.T) {
	bills := []models.Bill{
		purchaseBill(userS, []uuid.UUID{userM, userD}, 20.0), // M and D each owe S 10
		purchaseBill(userD, []uuid.UUID{userM}, 4.0),         // M owes D 4
	}

	ledger := Calculate(bills)

	if got := ledger.TotalDebt(userM); !almostEqual(got, 14.0) {
		t.Errorf("TotalDebt(M) = %v, want 14.0", got)
	}
	if got := ledger.TotalDebtsCount(userM); got != 2 {
		t.Errorf("TotalDebtsCount(M) = %v, want 2 (distinct creditors, not bills)", got)
	}
	if got := ledger.TotalOwedToYou(userS); !almostEqual(got, 20.0) {
		t.Errorf("TotalOwedToYou(S) = %v, want 20.0", got)
	}
	if got := ledger.TotalDebtsCount(userS); got != 0 {
		t.Errorf("TotalDebtsCount(S) = %v, want 0", got)
	}

	userDebts := ledger.UserDebts(userM)
	if len(userDebts) != 2 {
		t.Fatalf("UserDebts(M) has %d creditors, want 2", len(userDebts))
	}
	if entries := userDebts[userS]; len(entries) != 1 || !almostEqual(entries[0].Amount, 10.0) {
		t.Errorf("UserDebts(M)[S] = %v, want one entry of 10.0", entries)
	}

	// Attribution survives netting: the entry remembers its bill
	entries := ledger.Debts(userM, userD)
	if len(entries) != 1 {
		t.Fatalf("Debts(M, D) has %d entries, want 1", len(entries))
	}
	if entries[0].Bill.PaidBy != userD {
		t.Errorf("attributed bill payer = %s, want %s", entries[0].Bill.PaidBy, userD)
	}
}

func TestDebtsMapQueriesAreCopies(t *testing.T) {
	ledger := Calculate([]models.Bill{
		purchaseBill(userS, []uuid.UUID{userM}, 10.0),
	})

	all := ledger.AllDebts()
	delete(all, userM)
	all2 := ledger.AllDebts()
	if len(all2) != 1 {
		t.Errorf("mutating an AllDebts snapshot changed the ledger")
	}

	entries := ledger.Debts(userM, userS)
	entries[0].Amount = 999
	if got := ledger.Debt(userM, userS); !almostEqual(got, 10.0) {
		t.Errorf("mutating a Debts result changed the ledger: %v", got)
	}
}

func TestDebtsMapJSONRoundTrip(t *testing.T) {
	ledger := Calculate([]models.Bill{
		purchaseBill(userS, []uuid.UUID{userM, userD}, 20.0),
		tripBill(userD, []uuid.UUID{userM}, 6.0),
	})

	data, err := ledger.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}

	restored := &DebtsMap{}
	if err := restored.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON failed: %v", err)
	}

	if got, want := restored.Debt(userM, userS), ledger.Debt(userM, userS); !almostEqual(got, want) {
		t.Errorf("restored Debt(M, S) = %v, want %v", got, want)
	}
	if got, want := restored.TotalDebt(userM), ledger.TotalDebt(userM); !almostEqual(got, want) {
		t.Errorf("restored TotalDebt(M) = %v, want %v", got, want)
	}
}

func TestAddDebtPartialNetting(t *testing.T) {
	// A owes B 10 from two bills; B then pays a bill that puts 7 the other
	// way. The smaller direction is fully cancelled, the larger keeps the
	// excess consumed oldest-first.
	ledger := NewMutableDebtsMap()
	billA := purchaseBill(userM, []uuid.UUID{userS}, 6.0)
	billB := purchaseBill(userM, []uuid.UUID{userS}, 4.0)
	billC := purchaseBill(userS, []uuid.UUID{userM}, 7.0)

	ledger.AddBill(billA)
	ledger.AddBill(billB)
	ledger.AddBill(billC)

	result := ledger.AsDebtsMap()
	if got := result.Debt(userS, userM); !almostEqual(got, 3.0) {
		t.Errorf("Debt(S, M) = %v, want 3.0", got)
	}
	if got := result.Debt(userM, userS); got != 0 {
		t.Errorf("Debt(M, S) = %v, want 0", got)
	}

	// 7 consumed: bill A (6) fully, bill B reduced to 3
	entries := result.Debts(userS, userM)
	if len(entries) != 1 {
		t.Fatalf("Debts(S, M) has %d entries, want 1", len(entries))
	}
	if entries[0].Bill.ID != billB.ID {
		t.Errorf("remaining entry attributed to wrong bill")
	}
}
