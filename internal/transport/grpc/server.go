package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"roombook/backend/internal/authz"
	"roombook/backend/internal/domain"
	"roombook/backend/internal/logging"
	"roombook/backend/internal/service/bookings"
	"roombook/backend/internal/store"
)

const (
	requesterIDHeader   = "x-requester-id"
	requesterRoleHeader = "x-requester-role"

	errorDomain    = "roombook.v1"
	reasonConflict = "BOOKING_CONFLICT"
)

type bookingsService interface {
	Admit(ctx context.Context, in bookings.AdmitInput) (domain.Series, error)
	TruncateFrom(ctx context.Context, in bookings.TruncateInput) (bookings.TruncateResult, error)
	Cancel(ctx context.Context, in bookings.CancelInput) (int, error)
	GetSeries(ctx context.Context, bookingID uuid.UUID) (domain.Series, error)
	ListForOwner(ctx context.Context, ownerID string, window *domain.Interval) ([]domain.Booking, error)
	ListForRoom(ctx context.Context, roomID uuid.UUID, window domain.Interval) ([]domain.Booking, error)
	ListForLocation(ctx context.Context, locationID uuid.UUID, window domain.Interval) ([]domain.Booking, error)
}

type Server struct {
	svc   bookingsService
	authz authz.RoleAuthorizer
	log   *slog.Logger
}

func NewServer(svc bookingsService, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		svc: svc,
		log: log.With(slog.String("component", "grpc.bookings")),
	}
}

func (s *Server) Admit(ctx context.Context, req *AdmitRequest) (*SeriesResponse, error) {
	log := s.log.With(slog.String("rpc", "Admit"))

	requester, err := requesterFrom(ctx)
	if err != nil {
		return nil, err
	}
	if req.StartTime.IsZero() || req.EndTime.IsZero() {
		log.WarnContext(ctx, "invalid request", slog.String("reason", "missing_times"))
		return nil, status.Error(codes.InvalidArgument, "start_time and end_time are required")
	}
	roomID, err := parseID("room_id", req.RoomID)
	if err != nil {
		log.WarnContext(ctx, "invalid request", slog.String("reason", "invalid_uuid"))
		return nil, err
	}

	in := bookings.AdmitInput{
		RoomID:         roomID,
		Requester:      requester,
		OnBehalfOf:     req.OnBehalfOf,
		Start:          req.StartTime,
		End:            req.EndTime,
		IdempotencyKey: idempotencyKey(ctx),
	}
	if req.Recurrence != nil {
		in.Recurrence = &bookings.RecurrenceInput{
			Pattern:       req.Recurrence.Pattern,
			SeriesEndDate: req.Recurrence.SeriesEndDate,
		}
	}

	series, err := s.svc.Admit(ctx, in)
	if err != nil {
		return nil, s.statusFor(ctx, log, err)
	}

	log.InfoContext(ctx, "booking admitted",
		slog.String("booking_id", series.Parent.ID.String()),
		slog.String("room_id", roomID.String()),
		slog.String("owner_id", series.Parent.OwnerID),
		slog.Int("occurrences", series.Len()),
	)
	return toSeriesResponse(series), nil
}

func (s *Server) TruncateSeries(ctx context.Context, req *TruncateSeriesRequest) (*TruncateSeriesResponse, error) {
	log := s.log.With(slog.String("rpc", "TruncateSeries"))

	requester, err := requesterFrom(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseID("booking_id", req.BookingID)
	if err != nil {
		return nil, err
	}
	if req.From.IsZero() {
		return nil, status.Error(codes.InvalidArgument, "from is required")
	}

	res, err := s.svc.TruncateFrom(ctx, bookings.TruncateInput{BookingID: id, From: req.From, Requester: requester})
	if err != nil {
		return nil, s.statusFor(ctx, log, err)
	}

	log.InfoContext(ctx, "series truncated",
		slog.String("series_id", res.SeriesID.String()),
		slog.Int("deleted", res.DeletedCount),
		slog.Time("from", req.From),
	)
	return &TruncateSeriesResponse{
		SeriesID:      res.SeriesID.String(),
		DeletedCount:  res.DeletedCount,
		ParentDeleted: res.ParentDeleted,
	}, nil
}

func (s *Server) Cancel(ctx context.Context, req *CancelRequest) (*CancelResponse, error) {
	log := s.log.With(slog.String("rpc", "Cancel"))

	requester, err := requesterFrom(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseID("booking_id", req.BookingID)
	if err != nil {
		return nil, err
	}

	n, err := s.svc.Cancel(ctx, bookings.CancelInput{BookingID: id, Requester: requester})
	if err != nil {
		return nil, s.statusFor(ctx, log, err)
	}

	log.InfoContext(ctx, "booking cancelled", slog.String("booking_id", id.String()), slog.Int("deleted", n))
	return &CancelResponse{DeletedCount: n}, nil
}

func (s *Server) GetSeries(ctx context.Context, req *GetSeriesRequest) (*SeriesResponse, error) {
	log := s.log.With(slog.String("rpc", "GetSeries"))

	if _, err := requesterFrom(ctx); err != nil {
		return nil, err
	}
	id, err := parseID("booking_id", req.BookingID)
	if err != nil {
		return nil, err
	}

	series, err := s.svc.GetSeries(ctx, id)
	if err != nil {
		return nil, s.statusFor(ctx, log, err)
	}
	return toSeriesResponse(series), nil
}

func (s *Server) ListOwnerBookings(ctx context.Context, req *ListOwnerBookingsRequest) (*ListBookingsResponse, error) {
	log := s.log.With(slog.String("rpc", "ListOwnerBookings"))

	requester, err := requesterFrom(ctx)
	if err != nil {
		return nil, err
	}
	owner := strings.TrimSpace(req.OwnerID)
	if owner == "" {
		owner = requester.ID
	}
	if owner != requester.ID && !s.authz.CanActOnBehalf(requester) {
		return nil, status.Error(codes.PermissionDenied, "not allowed to list another user's bookings")
	}

	var window *domain.Interval
	switch {
	case req.WindowStart != nil && req.WindowEnd != nil:
		w := domain.NewInterval(*req.WindowStart, *req.WindowEnd)
		window = &w
	case req.WindowStart != nil || req.WindowEnd != nil:
		return nil, status.Error(codes.InvalidArgument, "window_start and window_end must be set together")
	}

	rows, err := s.svc.ListForOwner(ctx, owner, window)
	if err != nil {
		return nil, s.statusFor(ctx, log, err)
	}
	log.DebugContext(ctx, "owner bookings listed", slog.String("owner_id", owner), slog.Int("count", len(rows)))
	return toListResponse(rows), nil
}

func (s *Server) ListRoomBookings(ctx context.Context, req *ListRoomBookingsRequest) (*ListBookingsResponse, error) {
	log := s.log.With(slog.String("rpc", "ListRoomBookings"))

	if _, err := requesterFrom(ctx); err != nil {
		return nil, err
	}
	roomID, err := parseID("room_id", req.RoomID)
	if err != nil {
		return nil, err
	}
	if req.WindowStart.IsZero() || req.WindowEnd.IsZero() {
		return nil, status.Error(codes.InvalidArgument, "window_start and window_end are required")
	}

	rows, err := s.svc.ListForRoom(ctx, roomID, domain.NewInterval(req.WindowStart, req.WindowEnd))
	if err != nil {
		return nil, s.statusFor(ctx, log, err)
	}
	log.DebugContext(ctx, "room bookings listed", slog.String("room_id", roomID.String()), slog.Int("count", len(rows)))
	return toListResponse(rows), nil
}

func (s *Server) ListLocationBookings(ctx context.Context, req *ListLocationBookingsRequest) (*ListBookingsResponse, error) {
	log := s.log.With(slog.String("rpc", "ListLocationBookings"))

	if _, err := requesterFrom(ctx); err != nil {
		return nil, err
	}
	locationID, err := parseID("location_id", req.LocationID)
	if err != nil {
		return nil, err
	}
	if req.WindowStart.IsZero() || req.WindowEnd.IsZero() {
		return nil, status.Error(codes.InvalidArgument, "window_start and window_end are required")
	}

	rows, err := s.svc.ListForLocation(ctx, locationID, domain.NewInterval(req.WindowStart, req.WindowEnd))
	if err != nil {
		return nil, s.statusFor(ctx, log, err)
	}
	log.DebugContext(ctx, "location bookings listed", slog.String("location_id", locationID.String()), slog.Int("count", len(rows)))
	return toListResponse(rows), nil
}

func (s *Server) statusFor(ctx context.Context, log *slog.Logger, err error) error {
	var conflict *domain.ConflictError
	if errors.As(err, &conflict) {
		return conflictStatus(conflict)
	}
	if errors.Is(err, store.ErrIdempotencyConflict) {
		return status.Error(codes.FailedPrecondition, "This request key was already used for a different booking. Try again.")
	}

	var dErr *domain.Error
	if errors.As(err, &dErr) {
		msg := dErr.Error()
		switch dErr.Kind {
		case domain.KindInvalidInterval, domain.KindTooShort, domain.KindInvalidRecurrenceEnd,
			domain.KindUnsupportedPattern, domain.KindInvalidRequest:
			return status.Error(codes.InvalidArgument, msg)
		case domain.KindInThePast:
			return status.Error(codes.FailedPrecondition, msg)
		case domain.KindResourceNotFound, domain.KindSeriesNotFound, domain.KindBookingNotFound:
			return status.Error(codes.NotFound, msg)
		case domain.KindUnauthorized:
			return status.Error(codes.PermissionDenied, msg)
		}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request timed out")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request cancelled")
	}

	log.ErrorContext(ctx, "request failed", slog.Any(logging.ErrKey, err))
	return status.Error(codes.Internal, "internal error")
}

func conflictStatus(c *domain.ConflictError) error {
	st := status.New(codes.FailedPrecondition, "That room is already booked during the requested time. Pick a different slot.")
	info := &errdetails.ErrorInfo{
		Reason: reasonConflict,
		Domain: errorDomain,
		Metadata: map[string]string{
			"occurrence_index": fmt.Sprint(c.Index),
			"occurrence_start": c.Occurrence.Start.UTC().Format(time.RFC3339),
			"occurrence_end":   c.Occurrence.End.UTC().Format(time.RFC3339),
		},
	}
	if b := c.Booking; b != nil {
		st = status.New(codes.FailedPrecondition, fmt.Sprintf(
			"That room is already booked from %s to %s by %s. Pick a different slot.",
			b.StartTime.UTC().Format(time.RFC3339), b.EndTime.UTC().Format(time.RFC3339), b.OwnerDisplayName(),
		))
		info.Metadata["booking_id"] = b.ID.String()
		info.Metadata["booking_start"] = b.StartTime.UTC().Format(time.RFC3339)
		info.Metadata["booking_end"] = b.EndTime.UTC().Format(time.RFC3339)
		info.Metadata["booked_by"] = b.OwnerDisplayName()
	}
	if detailed, err := st.WithDetails(info); err == nil {
		st = detailed
	}
	return st.Err()
}

func requesterFrom(ctx context.Context) (domain.Requester, error) {
	id := firstHeader(ctx, requesterIDHeader)
	if id == "" {
		return domain.Requester{}, status.Error(codes.Unauthenticated, "x-requester-id metadata is required")
	}
	role := domain.Role(strings.ToLower(firstHeader(ctx, requesterRoleHeader)))
	if role == "" {
		role = domain.RoleUser
	}
	return domain.Requester{ID: id, Role: role}, nil
}

func idempotencyKey(ctx context.Context) string {
	if key := firstHeader(ctx, "idempotency-key"); key != "" {
		return key
	}
	return firstHeader(ctx, "x-idempotency-key")
}

func firstHeader(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(key)
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "%s must be a UUID", field)
	}
	return id, nil
}

func toBooking(b domain.Booking) Booking {
	out := Booking{
		ID:         b.ID.String(),
		Reference:  b.Reference(),
		RoomID:     b.RoomID.String(),
		OwnerID:    b.OwnerID,
		OwnerName:  b.OwnerDisplayName(),
		StartTime:  b.StartTime.UTC(),
		EndTime:    b.EndTime.UTC(),
		SeriesRole: string(b.Role),
		Pattern:    string(b.Pattern),
		CreatedAt:  b.CreatedAt.UTC(),
	}
	if b.ParentID != nil {
		out.ParentID = b.ParentID.String()
	}
	if b.SeriesEndDate != nil {
		end := b.SeriesEndDate.UTC()
		out.SeriesEndDate = &end
	}
	if rec := b.Recurrence(); rec != nil && b.Role == domain.SeriesRoleParent {
		if rule, err := rec.RRule(b.StartTime); err == nil {
			out.RRule = rule
		}
	}
	return out
}

func toSeriesResponse(s domain.Series) *SeriesResponse {
	out := &SeriesResponse{
		Parent:   toBooking(s.Parent),
		Children: make([]Booking, 0, len(s.Children)),
	}
	for _, c := range s.Children {
		out.Children = append(out.Children, toBooking(c))
	}
	return out
}

func toListResponse(rows []domain.Booking) *ListBookingsResponse {
	out := &ListBookingsResponse{Bookings: make([]Booking, 0, len(rows))}
	for _, b := range rows {
		out.Bookings = append(out.Bookings, toBooking(b))
	}
	return out
}
