// Package bookings admits, truncates and cancels room bookings. Every write
// runs as one store transaction holding the room's lock, and conflict checks
// see both committed bookings and the occurrences staged earlier in the same
// request.
package bookings

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"roombook/backend/internal/authz"
	"roombook/backend/internal/domain"
	"roombook/backend/internal/events"
	"roombook/backend/internal/logging"
	"roombook/backend/internal/store"
)

const tracerName = "roombook/backend/internal/service/bookings"

// Authorizer makes the access decisions the service branches on.
type Authorizer interface {
	CanMutate(requester domain.Requester, booking domain.Booking) bool
	CanActOnBehalf(requester domain.Requester) bool
}

type Policy struct {
	MinDuration    time.Duration
	DefaultHorizon time.Duration
	// MaxOccurrences caps the size of one series. Zero means no cap.
	MaxOccurrences int
}

func DefaultPolicy() Policy {
	return Policy{
		MinDuration:    domain.MinBookingDuration,
		DefaultHorizon: domain.DefaultSeriesHorizon,
	}
}

type Service struct {
	repo      store.BookingRepository
	rooms     store.RoomDirectory
	authz     Authorizer
	publisher events.Publisher
	log       *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
	policy    Policy
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithAuthorizer(a Authorizer) Option {
	return func(s *Service) { s.authz = a }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

func WithPolicy(p Policy) Option {
	return func(s *Service) {
		if p.MinDuration <= 0 {
			p.MinDuration = domain.MinBookingDuration
		}
		if p.DefaultHorizon <= 0 {
			p.DefaultHorizon = domain.DefaultSeriesHorizon
		}
		if p.MaxOccurrences < 0 {
			p.MaxOccurrences = 0
		}
		s.policy = p
	}
}

func NewService(repo store.BookingRepository, rooms store.RoomDirectory, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		rooms:     rooms,
		authz:     authz.RoleAuthorizer{},
		publisher: events.Noop{},
		log:       slog.Default(),
		tracer:    otel.Tracer(tracerName),
		now:       time.Now,
		policy:    DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(slog.String("component", "bookings"))
	return s
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.log.ErrorContext(ctx, "event publish failed",
			slog.String("event_type", string(e.Type)),
			slog.String("booking_id", e.BookingID.String()),
			slog.Any(logging.ErrKey, err),
		)
	}
}

// finish records err on the span and logs it at a level matching how
// expected the outcome is.
func (s *Service) finish(ctx context.Context, span trace.Span, op string, err error) {
	defer span.End()
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	kind := domain.KindOf(err)
	attrs := []any{slog.String("op", op), slog.Any(logging.ErrKey, err)}
	switch {
	case kind == domain.KindConflictDetected:
		s.log.InfoContext(ctx, "booking conflict", attrs...)
	case kind != "", errors.Is(err, store.ErrIdempotencyConflict):
		s.log.WarnContext(ctx, "booking request rejected", append(attrs, slog.String("kind", string(kind)))...)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.log.WarnContext(ctx, "booking request aborted", attrs...)
	default:
		s.log.ErrorContext(ctx, "booking store failure", attrs...)
	}
}
