package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	pb "github.com/dmitrijs2005/gophauth/internal/rpc"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const userKey ctxKey = "user"

// requestIDMetadataKey is shared with the HTTP transport's X-Request-ID.
const requestIDMetadataKey = "x-request-id"

// authenticatedMethods need a valid bearer token.
var authenticatedMethods = map[string]bool{
	pb.MethodMe:        true,
	pb.MethodListUsers: true,
}

func userFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey).(*models.User)
	return u, ok && u != nil
}

// requestInterceptor tags the call with a request id, taken from incoming
// metadata or freshly generated, and logs its outcome.
func (s *GRPCServer) requestInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	id := firstMetadata(ctx, requestIDMetadataKey)
	if id == "" {
		id = uuid.NewString()
	}
	ctx = logging.WithRequestID(ctx, id)
	_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDMetadataKey, id))

	start := time.Now()
	resp, err := handler(ctx, req)

	s.logger.Info(ctx, "grpc request",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration", time.Since(start),
	)
	return resp, err
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if !authenticatedMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	token, ok := common.ParseBearer(firstMetadata(ctx, common.AuthorizationHeaderName))
	if !ok {
		return nil, status.Error(codes.Unauthenticated, msgUnauthenticated)
	}

	u, err := s.users.CurrentUser(ctx, token)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return handler(context.WithValue(ctx, userKey, u), req)
}

func firstMetadata(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(key); len(values) > 0 {
		return values[0]
	}
	return ""
}
