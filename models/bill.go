package models

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

func roundToTwo(val float64) float64 {
	return math.Round(val*100) / 100
}

// BillType discriminates the closed set of bill variants.
type BillType string

const (
	BillTypePurchase BillType = "purchase"
	BillTypeTrip     BillType = "trip"
	BillTypeFlat     BillType = "flat"
)

// Bill is one financial event: somebody paid, a set of participants split the
// cost. The three variants share one table; variant-specific fields are zero
// for the other kinds.
type Bill struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SpaceID     uuid.UUID      `gorm:"type:uuid;index" json:"space_id"`
	Space       Space          `gorm:"foreignKey:SpaceID" json:"-"`
	Type        BillType       `gorm:"not null;size:20" json:"type"`
	CreatedBy   uuid.UUID      `gorm:"type:uuid" json:"created_by"`
	PaidBy      uuid.UUID      `gorm:"type:uuid" json:"paid_by"` // the paymaster
	SplitUIDs   pq.StringArray `gorm:"type:text[]" json:"split_uids"`
	Description string         `gorm:"size:255" json:"description"`

	// Amount is the stored total for purchase and flat bills. Trip bills
	// derive their total from TripPricePerUser instead.
	Amount           float64 `gorm:"type:decimal(12,2)" json:"amount"`
	TripPricePerUser float64 `gorm:"type:decimal(12,2)" json:"trip_price_per_user,omitempty"`
	Destination      string  `gorm:"size:100" json:"destination,omitempty"`

	// Date is set by the submitting client and used only for period
	// filtering and display, never for debt calculation.
	Date      time.Time `gorm:"index" json:"date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Bill) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// SplitUserIDs returns the split participants as parsed UUIDs.
// Malformed entries are skipped.
func (b *Bill) SplitUserIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(b.SplitUIDs))
	for _, s := range b.SplitUIDs {
		id, err := uuid.Parse(s)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// HasSplitUser reports whether uid is among the split participants.
func (b *Bill) HasSplitUser(uid uuid.UUID) bool {
	for _, s := range b.SplitUIDs {
		if s == uid.String() {
			return true
		}
	}
	return false
}

// Total is the full cost of the bill. Trip bills charge TripPricePerUser per
// head; the paymaster counts as an extra head when not already in the split
// list.
func (b *Bill) Total() float64 {
	switch b.Type {
	case BillTypeTrip:
		n := len(b.SplitUIDs)
		if !b.HasSplitUser(b.PaidBy) {
			n++
		}
		return b.TripPricePerUser * float64(n)
	default:
		return b.Amount
	}
}

// SplitPricePerUser is the share each split participant owes. Purchase and
// flat bills divide the total evenly, rounded to cents; trip bills charge the
// fixed per-user price without re-dividing. Undefined for an empty split
// list, which IsValid rejects before a bill is ever persisted.
func (b *Bill) SplitPricePerUser() float64 {
	switch b.Type {
	case BillTypeTrip:
		return b.TripPricePerUser
	default:
		return roundToTwo(b.Amount / float64(len(b.SplitUIDs)))
	}
}

// IsValid is the validation gate every create/update path must pass before
// persisting a bill.
func (b *Bill) IsValid() bool {
	if b.PaidBy == uuid.Nil || len(b.SplitUIDs) == 0 {
		return false
	}
	switch b.Type {
	case BillTypePurchase, BillTypeFlat:
		return b.Amount > 0
	case BillTypeTrip:
		return b.Destination != "" && b.TripPricePerUser > 0
	default:
		return false
	}
}

// Request structs
type CreateBillRequest struct {
	Type             BillType `json:"type" binding:"required,oneof=purchase trip flat"`
	PaidBy           string   `json:"paid_by" binding:"required"`
	SplitUIDs        []string `json:"split_uids" binding:"required"`
	Description      string   `json:"description"`
	Amount           float64  `json:"amount"`
	TripPricePerUser float64  `json:"trip_price_per_user"`
	Destination      string   `json:"destination"`
	Date             string   `json:"date"` // YYYY-MM-DD, defaults to today
}

type UpdateBillRequest struct {
	PaidBy           string   `json:"paid_by"`
	SplitUIDs        []string `json:"split_uids"`
	Description      string   `json:"description"`
	Amount           float64  `json:"amount"`
	TripPricePerUser float64  `json:"trip_price_per_user"`
	Destination      string   `json:"destination"`
	Date             string   `json:"date"`
}

// Response
type BillResponse struct {
	ID                uuid.UUID `json:"id"`
	SpaceID           uuid.UUID `json:"space_id"`
	Type              BillType  `json:"type"`
	CreatedBy         uuid.UUID `json:"created_by"`
	PaidBy            uuid.UUID `json:"paid_by"`
	PayerName         string    `json:"payer_name"`
	SplitUIDs         []string  `json:"split_uids"`
	Description       string    `json:"description"`
	Destination       string    `json:"destination,omitempty"`
	Total             float64   `json:"total"`
	SplitPricePerUser float64   `json:"split_price_per_user"`
	Date              time.Time `json:"date"`
	CreatedAt         time.Time `json:"created_at"`
}
