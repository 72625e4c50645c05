package bookings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"roombook/backend/internal/domain"
	"roombook/backend/internal/events"
	"roombook/backend/internal/store"
)

type AdmitInput struct {
	RoomID    uuid.UUID `validate:"required"`
	Requester domain.Requester
	// OnBehalfOf books for another user. Only super users and admins may
	// set it; for anyone else the requester stays the owner.
	OnBehalfOf     string `validate:"omitempty,max=128"`
	Start          time.Time
	End            time.Time
	Recurrence     *RecurrenceInput
	IdempotencyKey string `validate:"omitempty,max=256"`
}

type RecurrenceInput struct {
	// Pattern defaults to weekly when empty.
	Pattern       string
	SeriesEndDate *time.Time
}

type admissionPlan struct {
	occurrences []domain.Interval
	pattern     domain.Pattern
	seriesEnd   *time.Time
}

// Admit validates a booking request and persists it as a standalone booking
// or as a whole series. A series is stored all or nothing: the first
// conflicting occurrence aborts the request with a *domain.ConflictError.
func (s *Service) Admit(ctx context.Context, in AdmitInput) (_ domain.Series, err error) {
	ctx, span := s.tracer.Start(ctx, "bookings.admit", trace.WithAttributes(
		attribute.String("room_id", in.RoomID.String()),
		attribute.Bool("recurring", in.Recurrence != nil),
	))
	defer func() { s.finish(ctx, span, "admit", err) }()

	if err := validateInput(in); err != nil {
		return domain.Series{}, err
	}

	first := domain.NewInterval(in.Start, in.End)
	if err := domain.ValidateInterval(first, s.clock(), s.policy.MinDuration); err != nil {
		return domain.Series{}, err
	}

	owner := in.Requester.ID
	if behalf := strings.TrimSpace(in.OnBehalfOf); behalf != "" && s.authz.CanActOnBehalf(in.Requester) {
		owner = behalf
	}

	exists, err := s.rooms.RoomExists(ctx, in.RoomID)
	if err != nil {
		return domain.Series{}, fmt.Errorf("room lookup: %w", err)
	}
	if !exists {
		return domain.Series{}, domain.NewError(domain.KindResourceNotFound, fmt.Sprintf("room %s not found", in.RoomID))
	}

	plan, err := s.plan(first, in.Recurrence)
	if err != nil {
		return domain.Series{}, err
	}
	span.SetAttributes(attribute.Int("occurrences", len(plan.occurrences)))

	key := strings.TrimSpace(in.IdempotencyKey)
	parent, children, err := buildRows(in.RoomID, owner, key, plan)
	if err != nil {
		return domain.Series{}, err
	}

	var (
		out      domain.Series
		replayed bool
	)
	err = s.repo.InRoomTransaction(ctx, in.RoomID, func(ctx context.Context, tx store.BookingTx) error {
		if key != "" {
			existing, err := replay(ctx, tx, parent)
			if err != nil {
				return err
			}
			if existing != nil {
				out, replayed = *existing, true
				return nil
			}
		}

		checker := newConflictChecker(tx, in.RoomID)
		for i, row := range append([]domain.Booking{parent}, children...) {
			iv := row.Interval()
			conflict, err := checker.check(ctx, iv, nil)
			if err != nil {
				return err
			}
			if conflict != nil {
				return &domain.ConflictError{Index: i, Occurrence: iv, Booking: conflict}
			}
			checker.stage(row)
		}

		created, err := tx.CreateSeries(ctx, parent, children)
		if err != nil {
			if errors.Is(err, store.ErrConflict) {
				// Caught by the store's own overlap guard, so the blocking
				// booking is unknown.
				return &domain.ConflictError{
					Index:      -1,
					Occurrence: domain.Interval{Start: parent.StartTime, End: lastEnd(parent, children)},
					Err:        err,
				}
			}
			if errors.Is(err, store.ErrNotFound) {
				return domain.NewError(domain.KindResourceNotFound, fmt.Sprintf("room %s not found", in.RoomID), err)
			}
			return fmt.Errorf("create series: %w", err)
		}
		out = created
		return nil
	})
	if err != nil {
		return domain.Series{}, err
	}

	if !replayed {
		s.publish(ctx, events.ForSeries(out, s.clock()))
	}
	return out, nil
}

func (s *Service) plan(first domain.Interval, rec *RecurrenceInput) (admissionPlan, error) {
	if rec == nil {
		return admissionPlan{occurrences: []domain.Interval{first}}, nil
	}

	pattern, err := domain.ParsePattern(rec.Pattern)
	if err != nil {
		return admissionPlan{}, err
	}

	end := first.Start.Add(s.policy.DefaultHorizon)
	if rec.SeriesEndDate != nil {
		raw := rec.SeriesEndDate.UTC()
		if !raw.After(first.Start) {
			return admissionPlan{}, domain.NewError(domain.KindInvalidRecurrenceEnd, "series end date must be after the first occurrence")
		}
		end = domain.InclusiveSeriesEnd(raw)
	}

	occs, err := domain.ExpandOccurrences(first, pattern, end)
	if err != nil {
		return admissionPlan{}, err
	}
	if limit := s.policy.MaxOccurrences; limit > 0 && len(occs) > limit {
		return admissionPlan{}, domain.NewError(domain.KindInvalidRecurrenceEnd,
			fmt.Sprintf("series would have %d occurrences, at most %d are allowed", len(occs), limit))
	}
	return admissionPlan{occurrences: occs, pattern: pattern, seriesEnd: &end}, nil
}

func buildRows(roomID uuid.UUID, owner, key string, plan admissionPlan) (domain.Booking, []domain.Booking, error) {
	parentID, err := newParentID(owner, key)
	if err != nil {
		return domain.Booking{}, nil, err
	}

	first := plan.occurrences[0]
	parent := domain.Booking{
		ID:        parentID,
		RoomID:    roomID,
		OwnerID:   owner,
		StartTime: first.Start,
		EndTime:   first.End,
		Role:      domain.SeriesRoleStandalone,
	}
	if len(plan.occurrences) == 1 && plan.pattern == "" {
		return parent, nil, nil
	}

	parent.Role = domain.SeriesRoleParent
	parent.Pattern = plan.pattern
	parent.SeriesEndDate = plan.seriesEnd

	children := make([]domain.Booking, 0, len(plan.occurrences)-1)
	for _, occ := range plan.occurrences[1:] {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.Booking{}, nil, err
		}
		children = append(children, domain.Booking{
			ID:        id,
			RoomID:    roomID,
			OwnerID:   owner,
			StartTime: occ.Start,
			EndTime:   occ.End,
			Pattern:   plan.pattern,
			Role:      domain.SeriesRoleChild,
			ParentID:  &parentID,
		})
	}
	return parent, children, nil
}

func newParentID(owner, key string) (uuid.UUID, error) {
	if key != "" {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte("roombook:admit:"+owner+":"+key)), nil
	}
	return uuid.NewV7()
}

// replay returns the series already stored under parent's id when it was
// admitted with the same content, and ErrIdempotencyConflict when the key
// was used for a different request.
func replay(ctx context.Context, tx store.BookingTx, parent domain.Booking) (*domain.Series, error) {
	existing, err := tx.GetBooking(ctx, parent.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("idempotency lookup: %w", err)
	}

	same := existing.RoomID == parent.RoomID &&
		existing.OwnerID == parent.OwnerID &&
		existing.StartTime.Equal(parent.StartTime) &&
		existing.EndTime.Equal(parent.EndTime) &&
		existing.Pattern == parent.Pattern &&
		sameSeriesEnd(existing.SeriesEndDate, parent.SeriesEndDate)
	if !same {
		return nil, fmt.Errorf("%w: key already used for booking %s", store.ErrIdempotencyConflict, existing.ID)
	}

	rows, err := tx.ListSeries(ctx, parent.ID)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	series := seriesFromRows(parent.ID, rows)
	return &series, nil
}

func sameSeriesEnd(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Truncate(domain.SeriesEndPrecision).Equal(b.Truncate(domain.SeriesEndPrecision))
}

func seriesFromRows(parentID uuid.UUID, rows []domain.Booking) domain.Series {
	var out domain.Series
	for _, b := range rows {
		if b.ID == parentID {
			out.Parent = b
			continue
		}
		out.Children = append(out.Children, b)
	}
	return out
}

func lastEnd(parent domain.Booking, children []domain.Booking) time.Time {
	if len(children) == 0 {
		return parent.EndTime
	}
	return children[len(children)-1].EndTime
}
