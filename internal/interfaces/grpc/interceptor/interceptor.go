package interceptor

import (
	middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// A panic in a handler must not take the wallet down with it.
var recoveryOpt = grpc_recovery.WithRecoveryHandler(func(p interface{}) error {
	log.Errorf("grpc handler panic: %v", p)
	return status.Error(codes.Internal, "internal error")
})

// UnaryInterceptor chains call logging and panic recovery for unary calls.
func UnaryInterceptor() grpc.ServerOption {
	return grpc.UnaryInterceptor(middleware.ChainUnaryServer(
		grpc_recovery.UnaryServerInterceptor(recoveryOpt),
		unaryLogger,
	))
}

// StreamInterceptor chains the same interceptors for streams, used by the
// health Watch rpc.
func StreamInterceptor() grpc.ServerOption {
	return grpc.StreamInterceptor(middleware.ChainStreamServer(
		grpc_recovery.StreamServerInterceptor(recoveryOpt),
		streamLogger,
	))
}
