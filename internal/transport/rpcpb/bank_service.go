package rpcpb

import (
	"context"

	"google.golang.org/grpc"
)

// BankServiceServer is the interface a bank process implements.
type BankServiceServer interface {
	VerifyCredentials(context.Context, *VerifyCredentialsRequest) (*VerifyCredentialsResponse, error)
	GetBalance(context.Context, *GetBalanceRequest) (*GetBalanceResponse, error)
	GetTransactionHistory(context.Context, *GetTransactionHistoryRequest) (*GetTransactionHistoryResponse, error)
	ProcessTransaction(context.Context, *ProcessTransactionRequest) (*ProcessTransactionResponse, error)
	PrepareTransaction(context.Context, *PrepareTransactionRequest) (*PrepareTransactionResponse, error)
	CommitTransaction(context.Context, *CommitTransactionRequest) (*CommitTransactionResponse, error)
	AbortTransaction(context.Context, *AbortTransactionRequest) (*AbortTransactionResponse, error)
}

// RegisterBankServiceServer wires srv into s the way a protoc-gen-go-grpc
// output would, via the hand-written ServiceDesc below.
func RegisterBankServiceServer(s grpc.ServiceRegistrar, srv BankServiceServer) {
	s.RegisterService(&bankServiceDesc, srv)
}

func bankVerifyCredentialsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(VerifyCredentialsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BankServiceServer).VerifyCredentials(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/paymentgateway.BankService/VerifyCredentials"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BankServiceServer).VerifyCredentials(ctx, req.(*VerifyCredentialsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func bankGetBalanceHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetBalanceRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BankServiceServer).GetBalance(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/paymentgateway.BankService/GetBalance"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BankServiceServer).GetBalance(ctx, req.(*GetBalanceRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func bankGetTransactionHistoryHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetTransactionHistoryRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BankServiceServer).GetTransactionHistory(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/paymentgateway.BankService/GetTransactionHistory"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BankServiceServer).GetTransactionHistory(ctx, req.(*GetTransactionHistoryRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func bankProcessTransactionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ProcessTransactionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BankServiceServer).ProcessTransaction(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/paymentgateway.BankService/ProcessTransaction"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BankServiceServer).ProcessTransaction(ctx, req.(*ProcessTransactionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func bankPrepareTransactionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PrepareTransactionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BankServiceServer).PrepareTransaction(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/paymentgateway.BankService/PrepareTransaction"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BankServiceServer).PrepareTransaction(ctx, req.(*PrepareTransactionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func bankCommitTransactionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CommitTransactionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BankServiceServer).CommitTransaction(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/paymentgateway.BankService/CommitTransaction"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BankServiceServer).CommitTransaction(ctx, req.(*CommitTransactionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func bankAbortTransactionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(AbortTransactionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BankServiceServer).AbortTransaction(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/paymentgateway.BankService/AbortTransaction"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BankServiceServer).AbortTransaction(ctx, req.(*AbortTransactionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var bankServiceDesc = grpc.ServiceDesc{
	ServiceName: "paymentgateway.BankService",
	HandlerType: (*BankServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "VerifyCredentials", Handler: bankVerifyCredentialsHandler},
		{MethodName: "GetBalance", Handler: bankGetBalanceHandler},
		{MethodName: "GetTransactionHistory", Handler: bankGetTransactionHistoryHandler},
		{MethodName: "ProcessTransaction", Handler: bankProcessTransactionHandler},
		{MethodName: "PrepareTransaction", Handler: bankPrepareTransactionHandler},
		{MethodName: "CommitTransaction", Handler: bankCommitTransactionHandler},
		{MethodName: "AbortTransaction", Handler: bankAbortTransactionHandler},
	},
	Metadata: "paymentgateway/bank_service.proto",
}

// BankServiceClient is the client-side stub a gateway bank-stub holds.
type BankServiceClient interface {
	VerifyCredentials(ctx context.Context, in *VerifyCredentialsRequest, opts ...grpc.CallOption) (*VerifyCredentialsResponse, error)
	GetBalance(ctx context.Context, in *GetBalanceRequest, opts ...grpc.CallOption) (*GetBalanceResponse, error)
	GetTransactionHistory(ctx context.Context, in *GetTransactionHistoryRequest, opts ...grpc.CallOption) (*GetTransactionHistoryResponse, error)
	ProcessTransaction(ctx context.Context, in *ProcessTransactionRequest, opts ...grpc.CallOption) (*ProcessTransactionResponse, error)
	PrepareTransaction(ctx context.Context, in *PrepareTransactionRequest, opts ...grpc.CallOption) (*PrepareTransactionResponse, error)
	CommitTransaction(ctx context.Context, in *CommitTransactionRequest, opts ...grpc.CallOption) (*CommitTransactionResponse, error)
	AbortTransaction(ctx context.Context, in *AbortTransactionRequest, opts ...grpc.CallOption) (*AbortTransactionResponse, error)
}

type bankServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewBankServiceClient wraps a dialed connection.
func NewBankServiceClient(cc grpc.ClientConnInterface) BankServiceClient {
	return &bankServiceClient{cc: cc}
}

func (c *bankServiceClient) call(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	opts = append([]grpc.CallOption{WithJSONCodec()}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}

func (c *bankServiceClient) VerifyCredentials(ctx context.Context, in *VerifyCredentialsRequest, opts ...grpc.CallOption) (*VerifyCredentialsResponse, error) {
	out := new(VerifyCredentialsResponse)
	if err := c.call(ctx, "/paymentgateway.BankService/VerifyCredentials", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *bankServiceClient) GetBalance(ctx context.Context, in *GetBalanceRequest, opts ...grpc.CallOption) (*GetBalanceResponse, error) {
	out := new(GetBalanceResponse)
	if err := c.call(ctx, "/paymentgateway.BankService/GetBalance", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *bankServiceClient) GetTransactionHistory(ctx context.Context, in *GetTransactionHistoryRequest, opts ...grpc.CallOption) (*GetTransactionHistoryResponse, error) {
	out := new(GetTransactionHistoryResponse)
	if err := c.call(ctx, "/paymentgateway.BankService/GetTransactionHistory", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *bankServiceClient) ProcessTransaction(ctx context.Context, in *ProcessTransactionRequest, opts ...grpc.CallOption) (*ProcessTransactionResponse, error) {
	out := new(ProcessTransactionResponse)
	if err := c.call(ctx, "/paymentgateway.BankService/ProcessTransaction", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *bankServiceClient) PrepareTransaction(ctx context.Context, in *PrepareTransactionRequest, opts ...grpc.CallOption) (*PrepareTransactionResponse, error) {
	out := new(PrepareTransactionResponse)
	if err := c.call(ctx, "/paymentgateway.BankService/PrepareTransaction", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *bankServiceClient) CommitTransaction(ctx context.Context, in *CommitTransactionRequest, opts ...grpc.CallOption) (*CommitTransactionResponse, error) {
	out := new(CommitTransactionResponse)
	if err := c.call(ctx, "/paymentgateway.BankService/CommitTransaction", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *bankServiceClient) AbortTransaction(ctx context.Context, in *AbortTransactionRequest, opts ...grpc.CallOption) (*AbortTransactionResponse, error) {
	out := new(AbortTransactionResponse)
	if err := c.call(ctx, "/paymentgateway.BankService/AbortTransaction", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
