package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/facegate/internal/facegate/service"
	"github.com/BrandonDHaskell/facegate/internal/facegate/types"
	"github.com/BrandonDHaskell/facegate/internal/facegate/wire"
)

const (
	ServiceName  = "facegate.v1.AccessControl"
	DecideMethod = "/" + ServiceName + "/Decide"
)

// AccessControlServer decides on one probe per call. Requests and responses
// are google.protobuf.Struct in the same shape as the JSON HTTP API.
type AccessControlServer interface {
	Decide(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

func decideHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AccessControlServer).Decide(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: DecideMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AccessControlServer).Decide(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var AccessControlServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AccessControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Decide", Handler: decideHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "facegate/v1/access_control.proto",
}

func RegisterAccessControlServer(s grpc.ServiceRegistrar, srv AccessControlServer) {
	s.RegisterService(&AccessControlServiceDesc, srv)
}

// Client is a thin AccessControl client over any connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

func (c *Client) Decide(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, DecideMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

type accessControl struct {
	access *service.AccessService
}

func (a *accessControl) Decide(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := wire.AccessRequestFromStruct(in)
	if err != nil {
		return nil, toStatus(err)
	}

	var d types.Decision
	if req.Image != nil {
		d, err = a.access.Analyze(ctx, service.AnalyzeRequest{
			Image:          req.Image,
			TerminalID:     req.TerminalID,
			MinAccessLevel: req.MinAccessLevel,
		})
	} else {
		d, err = a.access.DecideVector(ctx, req.AccessRequest)
	}
	if err != nil {
		return nil, toStatus(err)
	}

	out, err := wire.AccessResponseToStruct(types.NewAccessResponse(d))
	if err != nil {
		return nil, toStatus(err)
	}
	return out, nil
}
