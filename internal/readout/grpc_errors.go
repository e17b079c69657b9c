package readout

import (
	"context"
	"errors"

	"github.com/signalsfoundry/efis-adapter/core"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrInvalidRequest marks a malformed RPC request.
var ErrInvalidRequest = errors.New("invalid request")

// ToStatusError maps readout errors onto gRPC status codes. Degraded
// readouts are not errors and never reach here.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var rejected *RejectedError
	switch {
	case errors.As(err, &rejected),
		errors.Is(err, core.ErrUnknownCategory),
		errors.Is(err, ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())

	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}
