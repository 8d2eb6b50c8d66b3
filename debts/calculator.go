package debts

import "namiokai-backend/models"

// Calculate builds the netted ledger for one space-and-period bill snapshot,
// processing bills in input order. The final net amounts do not depend on
// that order; only the enumeration order of the per-pair attribution lists
// does.
//
// Bill create/update handlers reject invalid bills before persistence, so an
// invalid bill here would be bad legacy data; it is skipped rather than
// allowed to divide by an empty split list.
func Calculate(bills []models.Bill) *DebtsMap {
	ledger := NewMutableDebtsMap()
	for _, bill := range bills {
		if !bill.IsValid() {
			continue
		}
		ledger.AddBill(bill)
	}
	return ledger.AsDebtsMap()
}
