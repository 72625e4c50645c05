package grpc

import "time"

type Booking struct {
	ID            string     `msgpack:"id"`
	Reference     string     `msgpack:"reference"`
	RoomID        string     `msgpack:"room_id"`
	OwnerID       string     `msgpack:"owner_id"`
	OwnerName     string     `msgpack:"owner_name"`
	StartTime     time.Time  `msgpack:"start_time"`
	EndTime       time.Time  `msgpack:"end_time"`
	SeriesRole    string     `msgpack:"series_role"`
	ParentID      string     `msgpack:"parent_id,omitempty"`
	Pattern       string     `msgpack:"recurrence_pattern,omitempty"`
	SeriesEndDate *time.Time `msgpack:"series_end_date,omitempty"`
	RRule         string     `msgpack:"rrule,omitempty"`
	CreatedAt     time.Time  `msgpack:"created_at"`
}

type Recurrence struct {
	Pattern       string     `msgpack:"pattern"`
	SeriesEndDate *time.Time `msgpack:"series_end_date,omitempty"`
}

type AdmitRequest struct {
	RoomID     string      `msgpack:"room_id"`
	StartTime  time.Time   `msgpack:"start_time"`
	EndTime    time.Time   `msgpack:"end_time"`
	OnBehalfOf string      `msgpack:"on_behalf_of,omitempty"`
	Recurrence *Recurrence `msgpack:"recurrence,omitempty"`
}

type SeriesResponse struct {
	Parent   Booking   `msgpack:"parent"`
	Children []Booking `msgpack:"children"`
}

type TruncateSeriesRequest struct {
	BookingID string    `msgpack:"booking_id"`
	From      time.Time `msgpack:"from"`
}

type TruncateSeriesResponse struct {
	SeriesID      string `msgpack:"series_id"`
	DeletedCount  int    `msgpack:"deleted_count"`
	ParentDeleted bool   `msgpack:"parent_deleted"`
}

type CancelRequest struct {
	BookingID string `msgpack:"booking_id"`
}

type CancelResponse struct {
	DeletedCount int `msgpack:"deleted_count"`
}

type GetSeriesRequest struct {
	BookingID string `msgpack:"booking_id"`
}

type ListOwnerBookingsRequest struct {
	// OwnerID defaults to the requester.
	OwnerID     string     `msgpack:"owner_id,omitempty"`
	WindowStart *time.Time `msgpack:"window_start,omitempty"`
	WindowEnd   *time.Time `msgpack:"window_end,omitempty"`
}

type ListRoomBookingsRequest struct {
	RoomID      string    `msgpack:"room_id"`
	WindowStart time.Time `msgpack:"window_start"`
	WindowEnd   time.Time `msgpack:"window_end"`
}

type ListLocationBookingsRequest struct {
	LocationID  string    `msgpack:"location_id"`
	WindowStart time.Time `msgpack:"window_start"`
	WindowEnd   time.Time `msgpack:"window_end"`
}

type ListBookingsResponse struct {
	Bookings []Booking `msgpack:"bookings"`
}
