package interceptor

import (
	"context"
	"log"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	models "github.com/Mr-Leon909/tsutsuji-app/model"
)

// ContextKey type for context keys
type ContextKey string

const (
	UserKey ContextKey = "user"
)

// TokenVerifier turns a bearer token into the user it was issued to.
type TokenVerifier interface {
	Decode(token []byte) (*models.User, error)
}

// AuthInterceptor requires a session token on every method that is not public.
type AuthInterceptor struct {
	verifier      TokenVerifier
	publicMethods map[string]bool
}

// NewAuthInterceptor creates a new auth interceptor with public methods
func NewAuthInterceptor(verifier TokenVerifier, publicMethods []string) *AuthInterceptor {
	methodMap := make(map[string]bool)
	for _, method := range publicMethods {
		methodMap[method] = true
	}

	return &AuthInterceptor{
		verifier:      verifier,
		publicMethods: methodMap,
	}
}

// Unary returns a server interceptor function to authenticate unary RPC
func (interceptor *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if interceptor.publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}

		user, err := interceptor.authorize(ctx)
		if err != nil {
			return nil, err
		}

		return handler(context.WithValue(ctx, UserKey, user), req)
	}
}

// Stream returns a server interceptor function to authenticate stream RPC
func (interceptor *AuthInterceptor) Stream() grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		stream grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if interceptor.publicMethods[info.FullMethod] {
			return handler(srv, stream)
		}

		user, err := interceptor.authorize(stream.Context())
		if err != nil {
			return err
		}

		return handler(srv, &wrappedStream{
			ServerStream: stream,
			ctx:          context.WithValue(stream.Context(), UserKey, user),
		})
	}
}

func (interceptor *AuthInterceptor) authorize(ctx context.Context) (*models.User, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "metadata is not provided")
	}

	values := md["authorization"]
	if len(values) == 0 {
		return nil, status.Error(codes.Unauthenticated, "authorization token is not provided")
	}

	token, found := strings.CutPrefix(values[0], "Bearer ")
	if !found {
		return nil, status.Error(codes.Unauthenticated, "invalid authorization format")
	}

	user, err := interceptor.verifier.Decode([]byte(token))
	if err != nil {
		return nil, status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
	}
	return user, nil
}

// wrappedStream wraps grpc.ServerStream with a custom context
type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context {
	return w.ctx
}

// UserFromContext returns the user set by the interceptor, or nil.
func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(UserKey).(*models.User)
	return user
}

func LoggingUnary(
	ctx context.Context,
	req interface{},
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	log.Printf("[%s] %s - %v (took %v)", statusLabel(err), info.FullMethod, err, time.Since(start))
	return resp, err
}

func LoggingStream(
	srv interface{},
	stream grpc.ServerStream,
	info *grpc.StreamServerInfo,
	handler grpc.StreamHandler,
) error {
	start := time.Now()
	err := handler(srv, stream)
	log.Printf("[%s] %s stream - %v (took %v)", statusLabel(err), info.FullMethod, err, time.Since(start))
	return err
}

func statusLabel(err error) string {
	if err != nil {
		return "ERR"
	}
	return "OK"
}
