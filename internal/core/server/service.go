package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Full method names of the validation service.
const (
	ServiceName           = "ruleblocks.v1.Validation"
	validateMethod        = "/" + ServiceName + "/Validate"
	validateBatchMethod   = "/" + ServiceName + "/ValidateBatch"
	validationServiceFile = "ruleblocks/v1/validation.proto"
)

// ValidationServer is the server API for the validation service.
//
// Messages are google.protobuf.Struct so rule set inputs stay schemaless
// and no protoc step is needed.
//
//	Validate      {rule_set, input}  -> {ok, run_id, errors, captures}
//	ValidateBatch {rule_set, inputs} -> {results}
type ValidationServer interface {
	Validate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ValidateBatch(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedValidationServer can be embedded to have forward compatible implementations.
type UnimplementedValidationServer struct{}

func (UnimplementedValidationServer) Validate(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Validate not implemented")
}
func (UnimplementedValidationServer) ValidateBatch(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ValidateBatch not implemented")
}

// RegisterValidationServer registers the validation service on a gRPC server.
func RegisterValidationServer(s grpc.ServiceRegistrar, srv ValidationServer) {
	s.RegisterService(&Validation_ServiceDesc, srv)
}

// ValidationClient is the client API for the validation service.
type ValidationClient interface {
	Validate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ValidateBatch(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type validationClient struct{ cc grpc.ClientConnInterface }

func NewValidationClient(cc grpc.ClientConnInterface) ValidationClient {
	return &validationClient{cc: cc}
}

func (c *validationClient) Validate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, validateMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *validationClient) ValidateBatch(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, validateBatchMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func _Validation_Validate_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ValidationServer).Validate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: validateMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ValidationServer).Validate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _Validation_ValidateBatch_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ValidationServer).ValidateBatch(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: validateBatchMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ValidationServer).ValidateBatch(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Validation_ServiceDesc is the grpc.ServiceDesc for the validation service.
var Validation_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ValidationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Validate", Handler: _Validation_Validate_Handler},
		{MethodName: "ValidateBatch", Handler: _Validation_ValidateBatch_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: validationServiceFile,
}
