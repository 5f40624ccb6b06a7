package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "hotelbilling.BillingService"

// BillingServiceServer is the server side of hotelbilling.BillingService.
// Every message is a google.protobuf.Struct carrying the same JSON document
// the HTTP API accepts and returns.
type BillingServiceServer interface {
	Subscribe(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	CancelSubscription(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetUserActivePlan(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	ListActivePlans(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(srv BillingServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BillingServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + ServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(BillingServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var BillingServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BillingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Subscribe",
			Handler: unaryHandler("Subscribe", func(srv BillingServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.Subscribe(ctx, in)
			}),
		},
		{
			MethodName: "CancelSubscription",
			Handler: unaryHandler("CancelSubscription", func(srv BillingServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.CancelSubscription(ctx, in)
			}),
		},
		{
			MethodName: "GetUserActivePlan",
			Handler: unaryHandler("GetUserActivePlan", func(srv BillingServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.GetUserActivePlan(ctx, in)
			}),
		},
		{
			MethodName: "ListActivePlans",
			Handler: unaryHandler("ListActivePlans", func(srv BillingServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.ListActivePlans(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "hotelbilling/billing.proto",
}

func RegisterBillingServiceServer(registrar grpc.ServiceRegistrar, srv BillingServiceServer) {
	registrar.RegisterService(&BillingServiceDesc, srv)
}

// BillingClient calls hotelbilling.BillingService over an existing
// connection.
type BillingClient struct {
	conn grpc.ClientConnInterface
}

func NewBillingClient(conn grpc.ClientConnInterface) *BillingClient {
	return &BillingClient{conn: conn}
}

func (c *BillingClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BillingClient) Subscribe(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Subscribe", in, opts...)
}

func (c *BillingClient) CancelSubscription(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "CancelSubscription", in, opts...)
}

func (c *BillingClient) GetUserActivePlan(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetUserActivePlan", in, opts...)
}

func (c *BillingClient) ListActivePlans(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ListActivePlans", in, opts...)
}
