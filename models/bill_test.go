package models

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	payerID  = uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa")
	memberID = uuid.MustParse("bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb")
	thirdID  = uuid.MustParse("cccccccc-cccc-cccc-cccc-cccccccccccc")
)

func TestBillTotal(t *testing.T) {
	tests := []struct {
		name string
		bill Bill
		want float64
	}{
		{
			name: "purchase total is the stored amount",
			bill: Bill{
				Type:      BillTypePurchase,
				PaidBy:    payerID,
				SplitUIDs: pq.StringArray{payerID.String(), memberID.String()},
				Amount:    15.0,
			},
			want: 15.0,
		},
		{
			name: "flat total is the stored amount",
			bill: Bill{
				Type:      BillTypeFlat,
				PaidBy:    payerID,
				SplitUIDs: pq.StringArray{memberID.String()},
				Amount:    42.5,
			},
			want: 42.5,
		},
		{
			name: "trip total counts paymaster already in split without +1",
			bill: Bill{
				Type:             BillTypeTrip,
				PaidBy:           payerID,
				SplitUIDs:        pq.StringArray{payerID.String(), memberID.String(), thirdID.String()},
				TripPricePerUser: 5.0,
				Destination:      "Vilnius",
			},
			want: 15.0,
		},
		{
			name: "trip total adds one head for a paymaster outside the split",
			bill: Bill{
				Type:             BillTypeTrip,
				PaidBy:           payerID,
				SplitUIDs:        pq.StringArray{memberID.String(), thirdID.String()},
				TripPricePerUser: 5.0,
				Destination:      "Vilnius",
			},
			want: 15.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.bill.Total(); math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Total() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBillSplitPricePerUser(t *testing.T) {
	tests := []struct {
		name string
		bill Bill
		want float64
	}{
		{
			name: "purchase divides evenly",
			bill: Bill{
				Type:      BillTypePurchase,
				PaidBy:    payerID,
				SplitUIDs: pq.StringArray{payerID.String(), memberID.String()},
				Amount:    15.0,
			},
			want: 7.5,
		},
		{
			name: "uneven division rounds to cents",
			bill: Bill{
				Type:      BillTypeFlat,
				PaidBy:    payerID,
				SplitUIDs: pq.StringArray{payerID.String(), memberID.String(), thirdID.String()},
				Amount:    10.0,
			},
			want: 3.33,
		},
		{
			name: "trip charges the fixed per-user price, not re-divided",
			bill: Bill{
				Type:             BillTypeTrip,
				PaidBy:           payerID,
				SplitUIDs:        pq.StringArray{memberID.String(), thirdID.String()},
				TripPricePerUser: 5.0,
				Destination:      "Vilnius",
			},
			want: 5.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.bill.SplitPricePerUser(); math.Abs(got-tt.want) > 0.001 {
				t.Errorf("SplitPricePerUser() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBillIsValid(t *testing.T) {
	valid := Bill{
		Type:      BillTypePurchase,
		PaidBy:    payerID,
		SplitUIDs: pq.StringArray{memberID.String()},
		Amount:    10.0,
	}

	tests := []struct {
		name   string
		mutate func(b *Bill)
		want   bool
	}{
		{"valid purchase", func(b *Bill) {}, true},
		{"missing payer", func(b *Bill) { b.PaidBy = uuid.Nil }, false},
		{"empty split list", func(b *Bill) { b.SplitUIDs = nil }, false},
		{"zero amount purchase", func(b *Bill) { b.Amount = 0 }, false},
		{"negative amount flat", func(b *Bill) { b.Type = BillTypeFlat; b.Amount = -5 }, false},
		{"unknown type", func(b *Bill) { b.Type = "subscription" }, false},
		{
			"trip without destination",
			func(b *Bill) { b.Type = BillTypeTrip; b.TripPricePerUser = 5; b.Destination = "" },
			false,
		},
		{
			"trip ignores amount but needs destination and price",
			func(b *Bill) {
				b.Type = BillTypeTrip
				b.Amount = 0
				b.TripPricePerUser = 5
				b.Destination = "Klaipėda"
			},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bill := valid
			tt.mutate(&bill)
			if got := bill.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBillSplitUserIDs(t *testing.T) {
	bill := Bill{
		SplitUIDs: pq.StringArray{payerID.String(), "not-a-uuid", memberID.String()},
	}

	ids := bill.SplitUserIDs()
	if len(ids) != 2 {
		t.Fatalf("SplitUserIDs() returned %d ids, want 2 (malformed skipped)", len(ids))
	}
	if ids[0] != payerID || ids[1] != memberID {
		t.Errorf("SplitUserIDs() = %v", ids)
	}

	if !bill.HasSplitUser(payerID) {
		t.Errorf("HasSplitUser(payer) = false, want true")
	}
	if bill.HasSplitUser(thirdID) {
		t.Errorf("HasSplitUser(third) = true, want false")
	}
}
