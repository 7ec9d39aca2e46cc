package rpcpb

import (
	"context"

	"google.golang.org/grpc"
)

// GatewayServiceServer is the interface the gateway process implements
type GatewayServiceServer interface {
	Authenticate(context.Context, *AuthenticateRequest) (*AuthenticateResponse, error)
	CheckBalance(context.Context, *CheckBalanceRequest) (*CheckBalanceResponse, error)
	ProcessPayment(context.Context, *ProcessPaymentRequest) (*ProcessPaymentResponse, error)
	GetTransactionHistory(context.Context, *GetGatewayTransactionHistoryRequest) (*GetGatewayTransactionHistoryResponse, error)
}

func RegisterGatewayServiceServer(s grpc.ServiceRegistrar, srv GatewayServiceServer) {
	s.RegisterService(&gatewayServiceDesc, srv)
}

func gatewayAuthenticateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(AuthenticateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GatewayServiceServer).Authenticate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/paymentgateway.GatewayService/Authenticate"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GatewayServiceServer).Authenticate(ctx, req.(*AuthenticateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func gatewayCheckBalanceHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CheckBalanceRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GatewayServiceServer).CheckBalance(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/paymentgateway.GatewayService/CheckBalance"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GatewayServiceServer).CheckBalance(ctx, req.(*CheckBalanceRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func gatewayProcessPaymentHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ProcessPaymentRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GatewayServiceServer).ProcessPayment(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/paymentgateway.GatewayService/ProcessPayment"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GatewayServiceServer).ProcessPayment(ctx, req.(*ProcessPaymentRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func gatewayGetTransactionHistoryHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetGatewayTransactionHistoryRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GatewayServiceServer).GetTransactionHistory(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/paymentgateway.GatewayService/GetTransactionHistory"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GatewayServiceServer).GetTransactionHistory(ctx, req.(*GetGatewayTransactionHistoryRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var gatewayServiceDesc = grpc.ServiceDesc{
	ServiceName: "paymentgateway.GatewayService",
	HandlerType: (*GatewayServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Authenticate", Handler: gatewayAuthenticateHandler},
		{MethodName: "CheckBalance", Handler: gatewayCheckBalanceHandler},
		{MethodName: "ProcessPayment", Handler: gatewayProcessPaymentHandler},
		{MethodName: "GetTransactionHistory", Handler: gatewayGetTransactionHistoryHandler},
	},
	Metadata: "paymentgateway/gateway_service.proto",
}

// GatewayServiceClient is the stub the CLI client dials.
type GatewayServiceClient interface {
	Authenticate(ctx context.Context, in *AuthenticateRequest, opts ...grpc.CallOption) (*AuthenticateResponse, error)
	CheckBalance(ctx context.Context, in *CheckBalanceRequest, opts ...grpc.CallOption) (*CheckBalanceResponse, error)
	ProcessPayment(ctx context.Context, in *ProcessPaymentRequest, opts ...grpc.CallOption) (*ProcessPaymentResponse, error)
	GetTransactionHistory(ctx context.Context, in *GetGatewayTransactionHistoryRequest, opts ...grpc.CallOption) (*GetGatewayTransactionHistoryResponse, error)
}

type gatewayServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewGatewayServiceClient(cc grpc.ClientConnInterface) GatewayServiceClient {
	return &gatewayServiceClient{cc: cc}
}

func (c *gatewayServiceClient) call(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	opts = append([]grpc.CallOption{WithJSONCodec()}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}

func (c *gatewayServiceClient) Authenticate(ctx context.Context, in *AuthenticateRequest, opts ...grpc.CallOption) (*AuthenticateResponse, error) {
	out := new(AuthenticateResponse)
	if err := c.call(ctx, "/paymentgateway.GatewayService/Authenticate", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *gatewayServiceClient) CheckBalance(ctx context.Context, in *CheckBalanceRequest, opts ...grpc.CallOption) (*CheckBalanceResponse, error) {
	out := new(CheckBalanceResponse)
	if err := c.call(ctx, "/paymentgateway.GatewayService/CheckBalance", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *gatewayServiceClient) ProcessPayment(ctx context.Context, in *ProcessPaymentRequest, opts ...grpc.CallOption) (*ProcessPaymentResponse, error) {
	out := new(ProcessPaymentResponse)
	if err := c.call(ctx, "/paymentgateway.GatewayService/ProcessPayment", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *gatewayServiceClient) GetTransactionHistory(ctx context.Context, in *GetGatewayTransactionHistoryRequest, opts ...grpc.CallOption) (*GetGatewayTransactionHistoryResponse, error) {
	out := new(GetGatewayTransactionHistoryResponse)
	if err := c.call(ctx, "/paymentgateway.GatewayService/GetTransactionHistory", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
