package readout

import (
	"context"
	"testing"

	"github.com/signalsfoundry/efis-adapter/internal/logging"
	"github.com/signalsfoundry/efis-adapter/internal/sanitize"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

func TestRequestIDInterceptorUsesSanitizedHeader(t *testing.T) {
	icpt := RequestIDUnaryServerInterceptor(logging.Noop(), sanitize.NewHTML(0))
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(requestIDMetadataKey, "<b>req-42</b>"))

	var gotID string
	var gotLogger logging.Logger
	_, err := icpt(ctx, nil, &grpc.UnaryServerInfo{FullMethod: fullMethod(MethodHSI)}, func(ctx context.Context, req interface{}) (interface{}, error) {
		gotID = logging.RequestIDFromContext(ctx)
		gotLogger = logging.LoggerFromContext(ctx)
		return nil, nil
	})
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if gotID != "req-42" {
		t.Fatalf("request id = %q, want req-42", gotID)
	}
	if gotLogger == nil {
		t.Fatalf("expected request logger on context")
	}
}

func TestRequestIDInterceptorGeneratesID(t *testing.T) {
	icpt := RequestIDUnaryServerInterceptor(nil, nil)
	var gotID string
	_, _ = icpt(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: fullMethod(MethodVSI)}, func(ctx context.Context, req interface{}) (interface{}, error) {
		gotID = logging.RequestIDFromContext(ctx)
		return nil, nil
	})
	if gotID == "" {
		t.Fatalf("expected generated request id")
	}
}
