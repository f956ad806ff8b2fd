package interceptor

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

func unaryLogger(
	ctx context.Context,
	req interface{},
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (interface{}, error) {
	start := time.Now()
	res, err := handler(ctx, req)
	callEntry(ctx, info.FullMethod, start, err).Debug("grpc call")
	return res, err
}

func streamLogger(
	srv interface{},
	stream grpc.ServerStream,
	info *grpc.StreamServerInfo,
	handler grpc.StreamHandler,
) error {
	start := time.Now()
	err := handler(srv, stream)
	callEntry(stream.Context(), info.FullMethod, start, err).Debug("grpc stream closed")
	return err
}

func callEntry(
	ctx context.Context, method string, start time.Time, err error,
) *log.Entry {
	fields := log.Fields{
		"method":  method,
		"code":    status.Code(err).String(),
		"elapsed": time.Since(start).String(),
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		fields["peer"] = p.Addr.String()
	}
	return log.WithFields(fields)
}
