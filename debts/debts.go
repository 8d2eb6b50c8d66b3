// Package debts computes the netted pairwise debt ledger for a set of bills.
//
// The ledger maps debtor -> creditor -> the list of bill contributions that
// make up the debt. Mutual debts between two users are netted as bills are
// added, so at most one direction between any pair ever holds a non-zero
// amount. A ledger is always rebuilt from scratch from a bill snapshot and
// never mutated after it is published to readers.
package debts

import (
	"encoding/json"

	"namiokai-backend/models"

	"github.com/google/uuid"
)

// epsilon absorbs float64 noise when netted amounts should cancel to zero.
const epsilon = 1e-9

// DebtBill is one bill's contribution to a directed debt, kept so the ledger
// can answer "which bills make up this debt".
type DebtBill struct {
	Amount float64     `json:"amount"`
	Bill   models.Bill `json:"bill"`
}

func sumDebts(entries []DebtBill) float64 {
	var total float64
	for _, e := range entries {
		total += e.Amount
	}
	return total
}

// MutableDebtsMap is the build-phase ledger. Build it with AddBill/AddDebt,
// then freeze it with AsDebtsMap before handing it to readers.
type MutableDebtsMap struct {
	debts map[uuid.UUID]map[uuid.UUID][]DebtBill
}

func NewMutableDebtsMap() *MutableDebtsMap {
	return &MutableDebtsMap{debts: make(map[uuid.UUID]map[uuid.UUID][]DebtBill)}
}

// AddBill records every split participant's share against the paymaster.
// The paymaster never owes themselves.
func (m *MutableDebtsMap) AddBill(bill models.Bill) {
	amount := bill.SplitPricePerUser()
	for _, participant := range bill.SplitUserIDs() {
		if participant == bill.PaidBy {
			continue
		}
		m.AddDebt(participant, bill.PaidBy, amount, bill)
	}
}

// AddDebt adds one contribution from debtor to creditor and immediately nets
// it against any debt running the opposite way: the smaller direction is
// cancelled entirely, the larger keeps only the excess. Directions whose
// amount reaches zero are removed from the ledger, never stored as zeros.
func (m *MutableDebtsMap) AddDebt(debtor, creditor uuid.UUID, amount float64, bill models.Bill) {
	if amount <= 0 {
		return
	}

	forward := append(m.entries(debtor, creditor), DebtBill{Amount: amount, Bill: bill})
	backward := m.entries(creditor, debtor)

	net := sumDebts(forward)
	if b := sumDebts(backward); b < net {
		net = b
	}
	if net > 0 {
		forward = consume(forward, net)
		backward = consume(backward, net)
	}

	m.set(debtor, creditor, forward)
	m.set(creditor, debtor, backward)
}

func (m *MutableDebtsMap) entries(debtor, creditor uuid.UUID) []DebtBill {
	if inner, ok := m.debts[debtor]; ok {
		return inner[creditor]
	}
	return nil
}

func (m *MutableDebtsMap) set(debtor, creditor uuid.UUID, entries []DebtBill) {
	if len(entries) == 0 {
		if inner, ok := m.debts[debtor]; ok {
			delete(inner, creditor)
			if len(inner) == 0 {
				delete(m.debts, debtor)
			}
		}
		return
	}
	if m.debts[debtor] == nil {
		m.debts[debtor] = make(map[uuid.UUID][]DebtBill)
	}
	m.debts[debtor][creditor] = entries
}

// consume cancels amount from the contribution list oldest-first.
func consume(entries []DebtBill, amount float64) []DebtBill {
	for len(entries) > 0 && amount > epsilon {
		head := entries[0]
		if head.Amount <= amount+epsilon {
			amount -= head.Amount
			entries = entries[1:]
			continue
		}
		entries = append([]DebtBill{{Amount: head.Amount - amount, Bill: head.Bill}}, entries[1:]...)
		amount = 0
	}
	return entries
}

// AsDebtsMap freezes the builder into a read-only ledger. The builder must
// not be used afterwards.
func (m *MutableDebtsMap) AsDebtsMap() *DebtsMap {
	return &DebtsMap{debts: m.debts}
}

// DebtsMap is the published, read-only ledger. All query methods are free of
// side effects and safe for concurrent readers; returned maps and slices are
// copies.
type DebtsMap struct {
	debts map[uuid.UUID]map[uuid.UUID][]DebtBill
}

// Debts returns the itemized contributions from one debtor to one creditor,
// or an empty slice when no debt runs that way.
func (d *DebtsMap) Debts(from, to uuid.UUID) []DebtBill {
	if inner, ok := d.debts[from]; ok {
		return append([]DebtBill(nil), inner[to]...)
	}
	return nil
}

// Debt is the summed amount from owes to.
func (d *DebtsMap) Debt(from, to uuid.UUID) float64 {
	return sumDebts(d.Debts(from, to))
}

// AllDebts returns a full snapshot of the ledger.
func (d *DebtsMap) AllDebts() map[uuid.UUID]map[uuid.UUID][]DebtBill {
	out := make(map[uuid.UUID]map[uuid.UUID][]DebtBill, len(d.debts))
	for debtor := range d.debts {
		out[debtor] = d.UserDebts(debtor)
	}
	return out
}

// UserDebts returns everything one user owes, grouped by creditor.
func (d *DebtsMap) UserDebts(userID uuid.UUID) map[uuid.UUID][]DebtBill {
	inner, ok := d.debts[userID]
	if !ok {
		return map[uuid.UUID][]DebtBill{}
	}
	out := make(map[uuid.UUID][]DebtBill, len(inner))
	for creditor, entries := range inner {
		out[creditor] = append([]DebtBill(nil), entries...)
	}
	return out
}

// TotalDebt is the sum of everything userID owes across all creditors.
func (d *DebtsMap) TotalDebt(userID uuid.UUID) float64 {
	var total float64
	for _, entries := range d.debts[userID] {
		total += sumDebts(entries)
	}
	return total
}

// TotalDebtsCount is the number of distinct creditors userID owes money to.
func (d *DebtsMap) TotalDebtsCount(userID uuid.UUID) int {
	return len(d.debts[userID])
}

// TotalOwedToYou is the sum other users owe to userID.
func (d *DebtsMap) TotalOwedToYou(userID uuid.UUID) float64 {
	var total float64
	for _, inner := range d.debts {
		total += sumDebts(inner[userID])
	}
	return total
}

func (d *DebtsMap) IsEmpty() bool {
	return len(d.debts) == 0
}

// MarshalJSON serializes the ledger as debtor -> creditor -> contributions,
// for the Redis cache and backup export.
func (d *DebtsMap) MarshalJSON() ([]byte, error) {
	out := make(map[string]map[string][]DebtBill, len(d.debts))
	for debtor, inner := range d.debts {
		m := make(map[string][]DebtBill, len(inner))
		for creditor, entries := range inner {
			m[creditor.String()] = entries
		}
		out[debtor.String()] = m
	}
	return json.Marshal(out)
}

func (d *DebtsMap) UnmarshalJSON(data []byte) error {
	var raw map[string]map[string][]DebtBill
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.debts = make(map[uuid.UUID]map[uuid.UUID][]DebtBill, len(raw))
	for debtorStr, inner := range raw {
		debtor, err := uuid.Parse(debtorStr)
		if err != nil {
			return err
		}
		m := make(map[uuid.UUID][]DebtBill, len(inner))
		for creditorStr, entries := range inner {
			creditor, err := uuid.Parse(creditorStr)
			if err != nil {
				return err
			}
			m[creditor] = entries
		}
		d.debts[debtor] = m
	}
	return nil
}
