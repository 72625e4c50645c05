package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"roombook/backend/internal/domain"
	"roombook/backend/internal/store"
)

const (
	noOverlapConstraint = "bookings_no_overlap"

	sqlStateExclusionViolation  = "23P01"
	sqlStateUniqueViolation     = "23505"
	sqlStateForeignKeyViolation = "23503"
)

type BookingRepo struct {
	db *bun.DB
}

func NewBookingRepo(db *bun.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

type bookingTx struct {
	tx bun.Tx
}

func (r *BookingRepo) InTransaction(ctx context.Context, fn func(ctx context.Context, tx store.BookingTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, bookingTx{tx: tx})
	})
}

func (r *BookingRepo) InRoomTransaction(ctx context.Context, roomID uuid.UUID, fn func(ctx context.Context, tx store.BookingTx) error) error {
	return r.InTransaction(ctx, func(ctx context.Context, tx store.BookingTx) error {
		if err := tx.LockRoom(ctx, roomID); err != nil {
			return err
		}
		return fn(ctx, tx)
	})
}

func (r *BookingRepo) ListForOwner(ctx context.Context, ownerID string, window *domain.Interval) ([]domain.Booking, error) {
	var rows []domain.Booking
	q := r.db.NewSelect().
		Model(&rows).
		Relation("Owner").
		Where("b.owner_id = ?", ownerID).
		OrderExpr("b.start_time ASC")
	if window != nil {
		q = q.Where("b.start_time >= ?", window.Start).Where("b.end_time <= ?", window.End)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BookingRepo) ListForRoom(ctx context.Context, roomID uuid.UUID, window domain.Interval) ([]domain.Booking, error) {
	var rows []domain.Booking
	err := r.db.NewSelect().
		Model(&rows).
		Relation("Owner").
		Where("b.room_id = ?", roomID).
		Where("b.start_time < ?", window.End).
		Where("b.end_time > ?", window.Start).
		OrderExpr("b.start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BookingRepo) ListForLocation(ctx context.Context, locationID uuid.UUID, window domain.Interval) ([]domain.Booking, error) {
	var rows []domain.Booking
	err := r.db.NewSelect().
		Model(&rows).
		Relation("Owner").
		Join("JOIN rooms AS r ON r.id = b.room_id").
		Where("r.location_id = ?", locationID).
		Where("b.start_time < ?", window.End).
		Where("b.end_time > ?", window.Start).
		OrderExpr("b.start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BookingRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r bookingTx) LockRoom(ctx context.Context, roomID uuid.UUID) error {
	_, err := r.tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", roomID.String()).Exec(ctx)
	return err
}

func (r bookingTx) FindOverlapping(ctx context.Context, roomID uuid.UUID, iv domain.Interval, excludeID *uuid.UUID) ([]domain.Booking, error) {
	var rows []domain.Booking
	q := r.tx.NewSelect().
		Model(&rows).
		Relation("Owner").
		Where("b.room_id = ?", roomID).
		Where("b.start_time < ?", iv.End).
		Where("b.end_time > ?", iv.Start).
		OrderExpr("b.start_time ASC")
	if excludeID != nil {
		q = q.Where("b.id <> ?", *excludeID)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r bookingTx) GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	var b domain.Booking
	err := r.tx.NewSelect().
		Model(&b).
		Relation("Owner").
		Where("b.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Booking{}, store.ErrNotFound
		}
		return domain.Booking{}, err
	}
	return b, nil
}

func (r bookingTx) ListSeries(ctx context.Context, parentID uuid.UUID) ([]domain.Booking, error) {
	var rows []domain.Booking
	err := r.tx.NewSelect().
		Model(&rows).
		Relation("Owner").
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("b.id = ?", parentID).WhereOr("b.parent_id = ?", parentID)
		}).
		OrderExpr("b.start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, store.ErrNotFound
	}
	return rows, nil
}

func (r bookingTx) CreateSeries(ctx context.Context, parent domain.Booking, children []domain.Booking) (domain.Series, error) {
	now := time.Now().UTC()
	stamp := func(b *domain.Booking) {
		b.CreatedAt = now
		b.UpdatedAt = now
		b.Owner = nil
	}

	stamp(&parent)
	if _, err := r.tx.NewInsert().Model(&parent).Exec(ctx); err != nil {
		return domain.Series{}, translateWriteError(err)
	}

	if len(children) > 0 {
		rows := make([]domain.Booking, len(children))
		copy(rows, children)
		for i := range rows {
			stamp(&rows[i])
			rows[i].ParentID = &parent.ID
		}
		if _, err := r.tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return domain.Series{}, translateWriteError(err)
		}
		children = rows
	}

	return domain.Series{Parent: parent, Children: children}, nil
}

func (r bookingTx) DeleteSeriesFrom(ctx context.Context, parentID uuid.UUID, from time.Time) (int, error) {
	res, err := r.tx.NewDelete().
		Model((*domain.Booking)(nil)).
		WhereGroup(" AND ", func(q *bun.DeleteQuery) *bun.DeleteQuery {
			return q.Where("id = ?", parentID).WhereOr("parent_id = ?", parentID)
		}).
		Where("start_time >= ?", from).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res)
}

func (r bookingTx) DeleteBooking(ctx context.Context, id uuid.UUID) (int, error) {
	res, err := r.tx.NewDelete().
		Model((*domain.Booking)(nil)).
		Where("id = ?", id).
		WhereOr("parent_id = ?", id).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	n, err := rowsAffected(res)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, store.ErrNotFound
	}
	return n, nil
}

func (r bookingTx) UpdateSeriesEndDate(ctx context.Context, parentID uuid.UUID, end time.Time) error {
	res, err := r.tx.NewUpdate().
		Model((*domain.Booking)(nil)).
		Set("series_end_date = ?", end.UTC()).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", parentID).
		Exec(ctx)
	if err != nil {
		return err
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func rowsAffected(res sql.Result) (int, error) {
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func translateWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch {
	case pgErr.Code == sqlStateExclusionViolation && pgErr.ConstraintName == noOverlapConstraint:
		return fmt.Errorf("%w: %s", store.ErrConflict, pgErr.Message)
	case pgErr.Code == sqlStateUniqueViolation:
		return fmt.Errorf("%w: %s", store.ErrIdempotencyConflict, pgErr.Message)
	case pgErr.Code == sqlStateForeignKeyViolation:
		return fmt.Errorf("%w: %s", store.ErrNotFound, pgErr.Message)
	}
	return err
}
