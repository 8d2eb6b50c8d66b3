package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecurrenceRule determines how a space's accounting periods roll over.
type RecurrenceRule string

const (
	RecurrenceDaily   RecurrenceRule = "daily"
	RecurrenceWeekly  RecurrenceRule = "weekly"
	RecurrenceMonthly RecurrenceRule = "monthly"
)

// Space is a named group of users sharing expenses, each with its own
// accounting recurrence rule.
type Space struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string         `gorm:"not null;size:100" json:"name"`
	Recurrence RecurrenceRule `gorm:"default:monthly;size:20" json:"recurrence"`
	CreatedBy  uuid.UUID      `gorm:"type:uuid" json:"created_by"`
	Creator    User           `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	Members    []SpaceMember  `gorm:"foreignKey:SpaceID" json:"members,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (s *Space) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

type SpaceMember struct {
	SpaceID  uuid.UUID `gorm:"type:uuid;primaryKey" json:"space_id"`
	UserID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	User     User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role     string    `gorm:"default:member;size:20" json:"role"` // admin, member
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

// Period is one concrete accounting window: [Start, End).
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// CurrentPeriod resolves the accounting window containing now for the
// space's recurrence rule. Weekly periods start on Monday, monthly on the
// first of the month.
func (s *Space) CurrentPeriod(now time.Time) Period {
	return PeriodAt(s.Recurrence, now)
}

func PeriodAt(rule RecurrenceRule, now time.Time) Period {
	year, month, day := now.Date()
	midnight := time.Date(year, month, day, 0, 0, 0, 0, now.Location())

	switch rule {
	case RecurrenceDaily:
		return Period{Start: midnight, End: midnight.AddDate(0, 0, 1)}
	case RecurrenceWeekly:
		weekday := int(midnight.Weekday())
		if weekday == 0 { // Sunday belongs to the week that started last Monday
			weekday = 7
		}
		start := midnight.AddDate(0, 0, -(weekday - 1))
		return Period{Start: start, End: start.AddDate(0, 0, 7)}
	default: // monthly
		start := time.Date(year, month, 1, 0, 0, 0, 0, now.Location())
		return Period{Start: start, End: start.AddDate(0, 1, 0)}
	}
}

// Request structs
type CreateSpaceRequest struct {
	Name       string   `json:"name" binding:"required"`
	Recurrence string   `json:"recurrence" binding:"omitempty,oneof=daily weekly monthly"`
	Members    []string `json:"members"` // user IDs to add alongside the creator
}

type UpdateSpaceRequest struct {
	Name       string `json:"name"`
	Recurrence string `json:"recurrence" binding:"omitempty,oneof=daily weekly monthly"`
}

type AddMemberRequest struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Response structs
type SpaceResponse struct {
	ID         uuid.UUID             `json:"id"`
	Name       string                `json:"name"`
	Recurrence RecurrenceRule        `json:"recurrence"`
	CreatedBy  uuid.UUID             `json:"created_by"`
	Members    []SpaceMemberResponse `json:"members"`
	CreatedAt  time.Time             `json:"created_at"`
}

type SpaceMemberResponse struct {
	UserID   uuid.UUID `json:"user_id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}
