package domain

import (
	"context"
	"strings"
	"time"

	"github.com/akamensky/base58"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type SeriesRole string

const (
	SeriesRoleStandalone SeriesRole = "standalone"
	SeriesRoleParent     SeriesRole = "series_parent"
	SeriesRoleChild      SeriesRole = "series_child"
)

type Booking struct {
	bun.BaseModel `bun:"table:bookings,alias:b"`

	ID            uuid.UUID  `bun:"id,pk,type:uuid"`
	RoomID        uuid.UUID  `bun:"room_id,notnull,type:uuid"`
	OwnerID       string     `bun:"owner_id,notnull"`
	StartTime     time.Time  `bun:"start_time,notnull"`
	EndTime       time.Time  `bun:"end_time,notnull"`
	Pattern       Pattern    `bun:"recurrence_pattern,nullzero"`
	SeriesEndDate *time.Time `bun:"series_end_date"`
	Role          SeriesRole `bun:"series_role,notnull"`
	ParentID      *uuid.UUID `bun:"parent_id,type:uuid"`
	CreatedAt     time.Time  `bun:"created_at,notnull"`
	UpdatedAt     time.Time  `bun:"updated_at,notnull"`

	Owner *Owner `bun:"rel:belongs-to,join:owner_id=id"`
}

func (b *Booking) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if b.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			b.ID = id
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
		if b.UpdatedAt.IsZero() {
			b.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		b.UpdatedAt = now
	}
	return nil
}

func (b Booking) Interval() Interval {
	return NewInterval(b.StartTime, b.EndTime)
}

// SeriesID is the id of the series parent, which is the booking itself for
// parents and standalone bookings.
func (b Booking) SeriesID() uuid.UUID {
	if b.Role == SeriesRoleChild && b.ParentID != nil {
		return *b.ParentID
	}
	return b.ID
}

func (b Booking) IsRecurring() bool {
	return b.Role == SeriesRoleParent || b.Role == SeriesRoleChild
}

// Recurrence returns the recurrence of a series member, or nil for a
// standalone booking.
func (b Booking) Recurrence() *Recurrence {
	if !b.IsRecurring() || b.Pattern == "" {
		return nil
	}
	return &Recurrence{Pattern: b.Pattern, SeriesEndDate: b.SeriesEndDate}
}

// Reference is a short, human-friendly rendering of the booking id.
func (b Booking) Reference() string {
	if b.ID == uuid.Nil {
		return ""
	}
	return base58.Encode(b.ID[:])
}

func (b Booking) OwnerDisplayName() string {
	if b.Owner != nil {
		if name := b.Owner.DisplayName(); name != "" {
			return name
		}
	}
	return b.OwnerID
}

// Series is a parent booking and its children ordered by start time. A
// standalone booking is a series with no children.
type Series struct {
	Parent   Booking
	Children []Booking
}

func (s Series) Len() int {
	return 1 + len(s.Children)
}

func (s Series) Occurrences() []Booking {
	out := make([]Booking, 0, s.Len())
	out = append(out, s.Parent)
	return append(out, s.Children...)
}

type Owner struct {
	bun.BaseModel `bun:"table:users,alias:owner"`

	ID        string `bun:"id,pk"`
	FirstName string `bun:"first_name"`
	LastName  string `bun:"last_name"`
}

func (o Owner) DisplayName() string {
	return strings.TrimSpace(o.FirstName + " " + o.LastName)
}

type Room struct {
	bun.BaseModel `bun:"table:rooms,alias:r"`

	ID         uuid.UUID `bun:"id,pk,type:uuid"`
	LocationID uuid.UUID `bun:"location_id,notnull,type:uuid"`
	Name       string    `bun:"name,notnull"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleSuperUser Role = "super_user"
	RoleAdmin     Role = "admin"
)

// Requester is the authenticated caller of a booking operation.
type Requester struct {
	ID   string `validate:"required,max=128"`
	Role Role   `validate:"required,oneof=user super_user admin"`
}
