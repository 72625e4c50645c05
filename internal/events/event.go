// Package events publishes booking lifecycle events after a mutation commits.
package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"roombook/backend/internal/domain"
)

type Type string

const (
	TypeBookingCreated  Type = "booking.created"
	TypeSeriesCreated   Type = "booking.series_created"
	TypeBookingCanceled Type = "booking.cancelled"
	TypeSeriesTruncated Type = "booking.series_truncated"
)

type Event struct {
	ID         uuid.UUID  `json:"id"`
	Type       Type       `json:"type"`
	OccurredAt time.Time  `json:"occurred_at"`
	BookingID  uuid.UUID  `json:"booking_id"`
	SeriesID   uuid.UUID  `json:"series_id"`
	RoomID     uuid.UUID  `json:"room_id"`
	OwnerID    string     `json:"owner_id"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    time.Time  `json:"end_time"`
	Count      int        `json:"count"`
	From       *time.Time `json:"from,omitempty"`
}

// ForSeries describes a newly admitted booking or series.
func ForSeries(s domain.Series, at time.Time) Event {
	typ := TypeBookingCreated
	if s.Parent.Role == domain.SeriesRoleParent {
		typ = TypeSeriesCreated
	}
	return newEvent(typ, s.Parent, s.Len(), at)
}

func ForCancel(b domain.Booking, count int, at time.Time) Event {
	return newEvent(TypeBookingCanceled, b, count, at)
}

func ForTruncate(parent domain.Booking, from time.Time, count int, at time.Time) Event {
	e := newEvent(TypeSeriesTruncated, parent, count, at)
	from = from.UTC()
	e.From = &from
	return e
}

func newEvent(typ Type, b domain.Booking, count int, at time.Time) Event {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return Event{
		ID:         id,
		Type:       typ,
		OccurredAt: at.UTC(),
		BookingID:  b.ID,
		SeriesID:   b.SeriesID(),
		RoomID:     b.RoomID,
		OwnerID:    b.OwnerID,
		StartTime:  b.StartTime.UTC(),
		EndTime:    b.EndTime.UTC(),
		Count:      count,
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

// Fanout publishes every event to all of its publishers and joins their
// errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Close() error {
	var errs []error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Config struct {
	Backends          []string
	NATSURL           string
	NATSSubjectPrefix string
	KafkaBrokers      []string
	KafkaTopic        string
	AMQPURL           string
	AMQPExchange      string
}

// New connects a publisher for every configured backend. No backend, or only
// "none", yields Noop.
func New(cfg Config) (Publisher, error) {
	var out Fanout
	for _, backend := range cfg.Backends {
		var (
			p   Publisher
			err error
		)
		switch strings.ToLower(strings.TrimSpace(backend)) {
		case "", "none":
			continue
		case "nats":
			p, err = DialNATS(cfg.NATSURL, cfg.NATSSubjectPrefix)
		case "kafka":
			p, err = NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		case "amqp":
			p, err = DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		default:
			err = fmt.Errorf("unknown events backend %q", backend)
		}
		if err != nil {
			_ = out.Close()
			return nil, err
		}
		out = append(out, p)
	}

	switch len(out) {
	case 0:
		return Noop{}, nil
	case 1:
		return out[0], nil
	}
	return out, nil
}
