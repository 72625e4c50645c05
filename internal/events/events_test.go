package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roombook/backend/internal/domain"
)

type fakeNATSConn struct {
	subjects []string
	payloads [][]byte
	drained  bool
}

func (f *fakeNATSConn) Publish(subj string, data []byte) error {
	f.subjects = append(f.subjects, subj)
	f.payloads = append(f.payloads, data)
	return nil
}

func (f *fakeNATSConn) FlushWithContext(context.Context) error { return nil }

func (f *fakeNATSConn) Drain() error {
	f.drained = true
	return nil
}

type fakeKafkaWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeKafkaWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeKafkaWriter) Close() error { return nil }

type fakeAMQPChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

func (f *fakeAMQPChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return nil
}

func (f *fakeAMQPChannel) Close() error { return nil }

var (
	at     = time.Date(2030, 1, 1, 8, 0, 0, 0, time.UTC)
	roomID = uuid.MustParse("00000000-0000-0000-0000-0000000000a1")
)

func sampleSeries() domain.Series {
	parentID := uuid.MustParse("00000000-0000-0000-0000-0000000000b1")
	start := time.Date(2030, 1, 7, 9, 0, 0, 0, time.UTC)
	return domain.Series{
		Parent: domain.Booking{ID: parentID, RoomID: roomID, OwnerID: "u1", StartTime: start, EndTime: start.Add(time.Hour), Role: domain.SeriesRoleParent},
		Children: []domain.Booking{
			{ID: uuid.New(), RoomID: roomID, OwnerID: "u1", ParentID: &parentID, Role: domain.SeriesRoleChild},
		},
	}
}

func TestForSeries(t *testing.T) {
	s := sampleSeries()
	e := ForSeries(s, at)
	assert.Equal(t, TypeSeriesCreated, e.Type)
	assert.Equal(t, 2, e.Count)
	assert.Equal(t, s.Parent.ID, e.SeriesID)

	s.Children = nil
	assert.Equal(t, TypeSeriesCreated, ForSeries(s, at).Type, "a one-occurrence series is still a series")

	s.Parent.Role = domain.SeriesRoleStandalone
	assert.Equal(t, TypeBookingCreated, ForSeries(s, at).Type)
	s.Parent.Role = domain.SeriesRoleParent

	from := time.Date(2030, 1, 14, 0, 0, 0, 0, time.UTC)
	tr := ForTruncate(s.Parent, from, 3, at)
	require.NotNil(t, tr.From)
	assert.Equal(t, from, *tr.From)
	assert.Equal(t, TypeSeriesTruncated, tr.Type)
}

func TestNATSPublish(t *testing.T) {
	conn := &fakeNATSConn{}
	p := NewNATS(conn, "")
	require.NoError(t, p.Publish(context.Background(), ForSeries(sampleSeries(), at)))
	require.NoError(t, p.Close())

	require.Equal(t, []string{"roombook.booking.series_created"}, conn.subjects)
	var got Event
	require.NoError(t, json.Unmarshal(conn.payloads[0], &got))
	assert.Equal(t, TypeSeriesCreated, got.Type)
	assert.Equal(t, roomID, got.RoomID)
	assert.True(t, conn.drained)
}

func TestKafkaPublishKeysByRoom(t *testing.T) {
	w := &fakeKafkaWriter{}
	k := &Kafka{w: w}
	require.NoError(t, k.Publish(context.Background(), ForSeries(sampleSeries(), at)))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, roomID.String(), string(w.msgs[0].Key))
	require.Len(t, w.msgs[0].Headers, 1)
	assert.Equal(t, "booking.series_created", string(w.msgs[0].Headers[0].Value))
}

func TestAMQPPublishRoutesByType(t *testing.T) {
	ch := &fakeAMQPChannel{}
	a := NewAMQP(ch, "roombook")
	e := ForCancel(sampleSeries().Parent, 2, at)
	require.NoError(t, a.Publish(context.Background(), e))

	assert.Equal(t, "roombook", ch.exchange)
	assert.Equal(t, "booking.cancelled", ch.key)
	assert.Equal(t, "application/json", ch.msg.ContentType)
	assert.Equal(t, e.ID.String(), ch.msg.MessageId)
	require.NoError(t, a.Close())
}

func TestFanoutJoinsErrors(t *testing.T) {
	boom := errors.New("broker down")
	ok := &fakeKafkaWriter{}
	f := Fanout{&Kafka{w: &fakeKafkaWriter{err: boom}}, &Kafka{w: ok}}

	err := f.Publish(context.Background(), ForSeries(sampleSeries(), at))
	require.ErrorIs(t, err, boom)
	assert.Len(t, ok.msgs, 1)
}

func TestNewWithoutBackendsIsNoop(t *testing.T) {
	p, err := New(Config{Backends: []string{"none"}})
	require.NoError(t, err)
	assert.IsType(t, Noop{}, p)

	_, err = New(Config{Backends: []string{"carrier-pigeon"}})
	require.Error(t, err)

	_, err = New(Config{Backends: []string{"kafka"}})
	require.Error(t, err)
}
