package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/newsletter/internal/correlation"
)

// correlationInterceptor takes the correlation id from incoming metadata,
// or makes one up, and echoes it in the response header.
func (s *GRPCServer) correlationInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	var id string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(correlation.MetadataKey); len(values) > 0 {
			id = values[0]
		}
	}
	if id == "" {
		id = correlation.NewID()
	}
	ctx = correlation.WithID(ctx, id)
	_ = grpc.SetHeader(ctx, metadata.Pairs(correlation.MetadataKey, id))

	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Debug(ctx, "grpc call", "method", info.FullMethod, "code", status.Code(err).String(), "duration", time.Since(start))
	return resp, err
}
