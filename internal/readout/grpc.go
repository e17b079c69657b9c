package readout

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/signalsfoundry/efis-adapter/model"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "efis.readout.v1.ReadoutService"

// RPC method names.
const (
	MethodHSI          = "HSI"
	MethodVSI          = "VSI"
	MethodSpeed        = "Speed"
	MethodNavMode      = "NavMode"
	MethodInclinometer = "Inclinometer"
	MethodAbout        = "About"
)

// Request fields.
const (
	FieldCategoryID = "category_id"
	FieldSensorKey  = "sensor_key"
)

// ReadoutServer is the server API for ReadoutService. Requests and responses
// are google.protobuf.Struct messages holding the JSON form of a Readout.
type ReadoutServer interface {
	HSI(context.Context, *structpb.Struct) (*structpb.Struct, error)
	VSI(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Speed(context.Context, *structpb.Struct) (*structpb.Struct, error)
	NavMode(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Inclinometer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	About(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes ReadoutService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ReadoutServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodHSI, Handler: unaryHandler(MethodHSI, ReadoutServer.HSI)},
		{MethodName: MethodVSI, Handler: unaryHandler(MethodVSI, ReadoutServer.VSI)},
		{MethodName: MethodSpeed, Handler: unaryHandler(MethodSpeed, ReadoutServer.Speed)},
		{MethodName: MethodNavMode, Handler: unaryHandler(MethodNavMode, ReadoutServer.NavMode)},
		{MethodName: MethodInclinometer, Handler: unaryHandler(MethodInclinometer, ReadoutServer.Inclinometer)},
		{MethodName: MethodAbout, Handler: unaryHandler(MethodAbout, ReadoutServer.About)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "efis/readout/v1/readout.proto",
}

// RegisterReadoutServer registers srv on s.
func RegisterReadoutServer(s grpc.ServiceRegistrar, srv ReadoutServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func fullMethod(method string) string { return "/" + ServiceName + "/" + method }

func unaryHandler(method string, call func(ReadoutServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ReadoutServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(ReadoutServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// GRPCServer adapts a Service to ReadoutServer.
type GRPCServer struct {
	svc *Service
}

var _ ReadoutServer = (*GRPCServer)(nil)

// NewGRPCServer wraps svc.
func NewGRPCServer(svc *Service) *GRPCServer {
	return &GRPCServer{svc: svc}
}

func (g *GRPCServer) HSI(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := categoryField(in)
	if err != nil {
		return nil, ToStatusError(err)
	}
	out, err := g.svc.HSI(ctx, id)
	return respond(out, err)
}

func (g *GRPCServer) VSI(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := categoryField(in)
	if err != nil {
		return nil, ToStatusError(err)
	}
	out, err := g.svc.VSI(ctx, id)
	return respond(out, err)
}

func (g *GRPCServer) Speed(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := categoryField(in)
	if err != nil {
		return nil, ToStatusError(err)
	}
	out, err := g.svc.Speed(ctx, id)
	return respond(out, err)
}

func (g *GRPCServer) NavMode(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := categoryField(in)
	if err != nil {
		return nil, ToStatusError(err)
	}
	out, err := g.svc.NavMode(ctx, id)
	return respond(out, err)
}

func (g *GRPCServer) Inclinometer(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := categoryField(in)
	if err != nil {
		return nil, ToStatusError(err)
	}
	key, err := stringField(in, FieldSensorKey, false)
	if err != nil {
		return nil, ToStatusError(err)
	}
	out, err := g.svc.Inclinometer(ctx, id, key)
	return respond(out, err)
}

func (g *GRPCServer) About(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	out, err := toStruct(g.svc.About())
	return out, ToStatusError(err)
}

func categoryField(in *structpb.Struct) (string, error) {
	return stringField(in, FieldCategoryID, true)
}

func stringField(in *structpb.Struct, name string, required bool) (string, error) {
	v, ok := in.GetFields()[name]
	if !ok {
		if required {
			return "", fmt.Errorf("%w: %s is required", ErrInvalidRequest, name)
		}
		return "", nil
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", ErrInvalidRequest, name)
	}
	return sv.StringValue, nil
}

func respond[V any](out Readout[V], err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, ToStatusError(err)
	}
	resp, err := toStruct(out)
	return resp, ToStatusError(err)
}

func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return out, nil
}

func fromStruct(in *structpb.Struct, v any) error {
	raw, err := protojson.Marshal(in)
	if err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Client calls ReadoutService over a gRPC connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient returns a client using cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Raw invokes method with the given request fields and returns the response
// as a Struct.
func (c *Client) Raw(ctx context.Context, method string, fields map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func invoke[V any](ctx context.Context, c *Client, method string, fields map[string]any, opts ...grpc.CallOption) (Readout[V], error) {
	var out Readout[V]
	resp, err := c.Raw(ctx, method, fields, opts...)
	if err != nil {
		return out, err
	}
	err = fromStruct(resp, &out)
	return out, err
}

func (c *Client) HSI(ctx context.Context, categoryID string, opts ...grpc.CallOption) (Readout[model.HSIView], error) {
	return invoke[model.HSIView](ctx, c, MethodHSI, map[string]any{FieldCategoryID: categoryID}, opts...)
}

func (c *Client) VSI(ctx context.Context, categoryID string, opts ...grpc.CallOption) (Readout[model.VSIView], error) {
	return invoke[model.VSIView](ctx, c, MethodVSI, map[string]any{FieldCategoryID: categoryID}, opts...)
}

func (c *Client) Speed(ctx context.Context, categoryID string, opts ...grpc.CallOption) (Readout[model.VelocityView], error) {
	return invoke[model.VelocityView](ctx, c, MethodSpeed, map[string]any{FieldCategoryID: categoryID}, opts...)
}

func (c *Client) NavMode(ctx context.Context, categoryID string, opts ...grpc.CallOption) (Readout[model.NavModeView], error) {
	return invoke[model.NavModeView](ctx, c, MethodNavMode, map[string]any{FieldCategoryID: categoryID}, opts...)
}

func (c *Client) Inclinometer(ctx context.Context, categoryID, sensorKey string, opts ...grpc.CallOption) (Readout[[]model.InclinometerView], error) {
	return invoke[[]model.InclinometerView](ctx, c, MethodInclinometer, map[string]any{
		FieldCategoryID: categoryID,
		FieldSensorKey:  sensorKey,
	}, opts...)
}

func (c *Client) About(ctx context.Context, opts ...grpc.CallOption) (About, error) {
	var out About
	resp, err := c.Raw(ctx, MethodAbout, map[string]any{}, opts...)
	if err != nil {
		return out, err
	}
	err = fromStruct(resp, &out)
	return out, err
}
