// Package authinterceptor implements the gateway's token layer as a
// gRPC unary server interceptor: every non-auth RPC must carry a token
// in request metadata, and a missing, unknown, or expired token is
// rejected before the service method runs.
package authinterceptor

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const TokenMetadataKey = "authorization"

// TokenChecker validates a token string and reports whether it is
// currently valid. It is satisfied by the gateway's token store.
type TokenChecker interface {
	Check(ctx context.Context, token string) bool
}

// exemptMethods never require a token: Authenticate is how a token is
// obtained in the first place.
var exemptMethods = map[string]bool{
	"/paymentgateway.GatewayService/Authenticate": true,
}

// Unary returns a grpc.UnaryServerInterceptor enforcing the token layer.
func Unary(checker TokenChecker) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if exemptMethods[info.FullMethod] {
			return handler(ctx, req)
		}

		token, err := tokenFromContext(ctx)
		if err != nil {
			return nil, err
		}

		if !checker.Check(ctx, token) {
			return nil, status.Error(codes.Unauthenticated, "missing, unknown, or expired token")
		}

		return handler(ctx, req)
	}
}

func tokenFromContext(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "no request metadata")
	}
	values := md.Get(TokenMetadataKey)
	if len(values) == 0 || values[0] == "" {
		return "", status.Error(codes.Unauthenticated, "missing token")
	}
	return values[0], nil
}

// WithToken attaches a token to an outgoing client context, the
// counterpart callers use before invoking a gateway RPC.
func WithToken(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, TokenMetadataKey, token)
}
