package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "roombook.v1.Bookings"

type BookingsServer interface {
	Admit(ctx context.Context, req *AdmitRequest) (*SeriesResponse, error)
	TruncateSeries(ctx context.Context, req *TruncateSeriesRequest) (*TruncateSeriesResponse, error)
	Cancel(ctx context.Context, req *CancelRequest) (*CancelResponse, error)
	GetSeries(ctx context.Context, req *GetSeriesRequest) (*SeriesResponse, error)
	ListOwnerBookings(ctx context.Context, req *ListOwnerBookingsRequest) (*ListBookingsResponse, error)
	ListRoomBookings(ctx context.Context, req *ListRoomBookingsRequest) (*ListBookingsResponse, error)
	ListLocationBookings(ctx context.Context, req *ListLocationBookingsRequest) (*ListBookingsResponse, error)
}

var BookingsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BookingsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Admit", Handler: unaryHandler("Admit", BookingsServer.Admit)},
		{MethodName: "TruncateSeries", Handler: unaryHandler("TruncateSeries", BookingsServer.TruncateSeries)},
		{MethodName: "Cancel", Handler: unaryHandler("Cancel", BookingsServer.Cancel)},
		{MethodName: "GetSeries", Handler: unaryHandler("GetSeries", BookingsServer.GetSeries)},
		{MethodName: "ListOwnerBookings", Handler: unaryHandler("ListOwnerBookings", BookingsServer.ListOwnerBookings)},
		{MethodName: "ListRoomBookings", Handler: unaryHandler("ListRoomBookings", BookingsServer.ListRoomBookings)},
		{MethodName: "ListLocationBookings", Handler: unaryHandler("ListLocationBookings", BookingsServer.ListLocationBookings)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "roombook/v1/bookings",
}

func RegisterBookingsServer(s grpc.ServiceRegistrar, srv BookingsServer) {
	s.RegisterService(&BookingsServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unaryHandler[Req, Resp any](method string, call func(BookingsServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BookingsServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(BookingsServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Client calls the bookings service with the msgpack codec.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Admit(ctx context.Context, in *AdmitRequest, opts ...grpc.CallOption) (*SeriesResponse, error) {
	return invoke[SeriesResponse](ctx, c.cc, "Admit", in, opts)
}

func (c *Client) TruncateSeries(ctx context.Context, in *TruncateSeriesRequest, opts ...grpc.CallOption) (*TruncateSeriesResponse, error) {
	return invoke[TruncateSeriesResponse](ctx, c.cc, "TruncateSeries", in, opts)
}

func (c *Client) Cancel(ctx context.Context, in *CancelRequest, opts ...grpc.CallOption) (*CancelResponse, error) {
	return invoke[CancelResponse](ctx, c.cc, "Cancel", in, opts)
}

func (c *Client) GetSeries(ctx context.Context, in *GetSeriesRequest, opts ...grpc.CallOption) (*SeriesResponse, error) {
	return invoke[SeriesResponse](ctx, c.cc, "GetSeries", in, opts)
}

func (c *Client) ListOwnerBookings(ctx context.Context, in *ListOwnerBookingsRequest, opts ...grpc.CallOption) (*ListBookingsResponse, error) {
	return invoke[ListBookingsResponse](ctx, c.cc, "ListOwnerBookings", in, opts)
}

func (c *Client) ListRoomBookings(ctx context.Context, in *ListRoomBookingsRequest, opts ...grpc.CallOption) (*ListBookingsResponse, error) {
	return invoke[ListBookingsResponse](ctx, c.cc, "ListRoomBookings", in, opts)
}

func (c *Client) ListLocationBookings(ctx context.Context, in *ListLocationBookingsRequest, opts ...grpc.CallOption) (*ListBookingsResponse, error) {
	return invoke[ListBookingsResponse](ctx, c.cc, "ListLocationBookings", in, opts)
}
