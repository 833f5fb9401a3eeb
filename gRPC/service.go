package proto

import (
	iface "CentroidTrack/interface"
	"context"

	"google.golang.org/grpc"
)

const serviceName = "centroidtrack.TrackService"

type Empty struct{}

type InitTrackerRequest struct {
	MatchThreshold float64 `json:"matchThreshold"`
	MatchMode      string  `json:"matchMode"`
	Description    string  `json:"description"`
}

type InitTrackerResponse struct {
	Success bool   `json:"success"`
	Id      string `json:"id"`
	Message string `json:"message"`
}

// UpdateRequest carries raw [x, y, w, h] boxes. They are validated by the handler so a
// malformed box maps to InvalidArgument instead of failing the codec.
type UpdateRequest struct {
	Id         string      `json:"id"`
	Detections [][]float64 `json:"detections"`
}

type UpdateResponse struct {
	Success bool                     `json:"success"`
	Results []iface.TrackedDetection `json:"results"`
}

type TrackerRequest struct {
	Id string `json:"id"`
}

type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type TrackerInfo struct {
	Id             string               `json:"id"`
	Description    string               `json:"description"`
	State          string               `json:"state"`
	MatchThreshold float64              `json:"matchThreshold"`
	MatchMode      string               `json:"matchMode"`
	Tracks         map[int]iface.Center `json:"tracks"`
	NextId         int                  `json:"nextId"`
	Updates        uint64               `json:"updates"`
}

type CheckTrackerResponse struct {
	Success bool         `json:"success"`
	Tracker *TrackerInfo `json:"tracker"`
	Message string       `json:"message"`
}

type CheckAllTrackerResponse struct {
	Success  bool           `json:"success"`
	Trackers []*TrackerInfo `json:"trackers"`
	Message  string         `json:"message"`
}

type TrackServiceServer interface {
	InitTracker(context.Context, *InitTrackerRequest) (*InitTrackerResponse, error)
	Update(context.Context, *UpdateRequest) (*UpdateResponse, error)
	ResetTracker(context.Context, *TrackerRequest) (*StatusResponse, error)
	CheckTracker(context.Context, *TrackerRequest) (*CheckTrackerResponse, error)
	CheckAllTracker(context.Context, *Empty) (*CheckAllTrackerResponse, error)
	DestroyTracker(context.Context, *TrackerRequest) (*StatusResponse, error)
	Shutdown(context.Context, *Empty) (*Empty, error)
}

func unaryMethod[Req, Resp any](name string, call func(TrackServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(TrackServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + name}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(TrackServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var TrackService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*TrackServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("InitTracker", TrackServiceServer.InitTracker),
		unaryMethod("Update", TrackServiceServer.Update),
		unaryMethod("ResetTracker", TrackServiceServer.ResetTracker),
		unaryMethod("CheckTracker", TrackServiceServer.CheckTracker),
		unaryMethod("CheckAllTracker", TrackServiceServer.CheckAllTracker),
		unaryMethod("DestroyTracker", TrackServiceServer.DestroyTracker),
		unaryMethod("Shutdown", TrackServiceServer.Shutdown),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "track_service",
}

func RegisterTrackServiceServer(s grpc.ServiceRegistrar, srv TrackServiceServer) {
	s.RegisterService(&TrackService_ServiceDesc, srv)
}

type TrackServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewTrackServiceClient(cc grpc.ClientConnInterface) *TrackServiceClient {
	return &TrackServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TrackServiceClient) InitTracker(ctx context.Context, in *InitTrackerRequest, opts ...grpc.CallOption) (*InitTrackerResponse, error) {
	return invoke[InitTrackerResponse](ctx, c.cc, "InitTracker", in, opts)
}

func (c *TrackServiceClient) Update(ctx context.Context, in *UpdateRequest, opts ...grpc.CallOption) (*UpdateResponse, error) {
	return invoke[UpdateResponse](ctx, c.cc, "Update", in, opts)
}

func (c *TrackServiceClient) ResetTracker(ctx context.Context, in *TrackerRequest, opts ...grpc.CallOption) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c.cc, "ResetTracker", in, opts)
}

func (c *TrackServiceClient) CheckTracker(ctx context.Context, in *TrackerRequest, opts ...grpc.CallOption) (*CheckTrackerResponse, error) {
	return invoke[CheckTrackerResponse](ctx, c.cc, "CheckTracker", in, opts)
}

func (c *TrackServiceClient) CheckAllTracker(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*CheckAllTrackerResponse, error) {
	return invoke[CheckAllTrackerResponse](ctx, c.cc, "CheckAllTracker", in, opts)
}

func (c *TrackServiceClient) DestroyTracker(ctx context.Context, in *TrackerRequest, opts ...grpc.CallOption) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c.cc, "DestroyTracker", in, opts)
}

func (c *TrackServiceClient) Shutdown(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "Shutdown", in, opts)
}
