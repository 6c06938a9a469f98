package grpc

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"user-service/internal/usecase/user"
	pkgerrors "user-service/pkg/errors"
	"user-service/pkg/logger"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "user.v1.UserService"

// UserServiceHandler is the server API of user.v1.UserService.
type UserServiceHandler interface {
	ListUsers(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	GetUser(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	CreateUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteUser(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
}

// ServiceDesc describes user.v1.UserService. Messages are protobuf
// well-known types, so no generated code is needed on either side.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*UserServiceHandler)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListUsers", Handler: unary("ListUsers", UserServiceHandler.ListUsers)},
		{MethodName: "GetUser", Handler: unary("GetUser", UserServiceHandler.GetUser)},
		{MethodName: "CreateUser", Handler: unary("CreateUser", UserServiceHandler.CreateUser)},
		{MethodName: "UpdateUser", Handler: unary("UpdateUser", UserServiceHandler.UpdateUser)},
		{MethodName: "DeleteUser", Handler: unary("DeleteUser", UserServiceHandler.DeleteUser)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "user/v1/user.proto",
}

// RegisterUserServiceServer registers srv on s.
func RegisterUserServiceServer(s grpc.ServiceRegistrar, srv UserServiceHandler) {
	s.RegisterService(&ServiceDesc, srv)
}

// unary adapts a typed handler method to grpc.MethodHandler.
func unary[Req any, PReq interface {
	*Req
	proto.Message
}, Resp proto.Message](method string, call func(UserServiceHandler, context.Context, PReq) (Resp, error)) grpc.MethodHandler {
	fullMethod := "/" + ServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := PReq(new(Req))
		if err := dec(in); err != nil {
			return nil, err
		}
		h := srv.(UserServiceHandler)
		if interceptor == nil {
			return call(h, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(h, ctx, req.(PReq))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// UserServiceServer implements the gRPC user service
type UserServiceServer struct {
	svc user.Service
	log *zap.Logger
}

var _ UserServiceHandler = (*UserServiceServer)(nil)

// NewUserServiceServer creates a new gRPC user service server
func NewUserServiceServer(svc user.Service, log *zap.Logger) *UserServiceServer {
	return &UserServiceServer{svc: svc, log: log}
}

// ListUsers handles gRPC ListUsers request
func (s *UserServiceServer) ListUsers(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	users, err := s.svc.FindAllUsers(ctx)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return usersToList(users), nil
}

// GetUser handles gRPC GetUser request
func (s *UserServiceServer) GetUser(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	u, err := s.svc.FindUserByID(ctx, req.GetValue())
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return userToStruct(*u), nil
}

// CreateUser handles gRPC CreateUser request
func (s *UserServiceServer) CreateUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name, err := optionalString(req, "name")
	if err != nil {
		return nil, err
	}
	email, err := optionalString(req, "email")
	if err != nil {
		return nil, err
	}

	in := user.CreateUserInput{}
	if name != nil {
		in.Name = *name
	}
	if email != nil {
		in.Email = *email
	}

	u, err := s.svc.CreateUser(ctx, in)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return userToStruct(*u), nil
}

// UpdateUser handles gRPC UpdateUser request. The struct carries the id and
// the fields to change.
func (s *UserServiceServer) UpdateUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := optionalString(req, "id")
	if err != nil {
		return nil, err
	}
	if id == nil || *id == "" {
		return nil, s.toStatus(ctx, pkgerrors.NewValidationError("id", `field "id" is required`))
	}

	var in user.UpdateUserInput
	if in.Name, err = optionalString(req, "name"); err != nil {
		return nil, err
	}
	if in.Email, err = optionalString(req, "email"); err != nil {
		return nil, err
	}

	u, err := s.svc.UpdateUser(ctx, *id, in)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return userToStruct(*u), nil
}

// DeleteUser handles gRPC DeleteUser request
func (s *UserServiceServer) DeleteUser(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	deleted, err := s.svc.DeleteUser(ctx, req.GetValue())
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return wrapperspb.Bool(deleted), nil
}

// toStatus keeps the status of typed service errors and hides anything
// else behind a generic Internal status.
func (s *UserServiceServer) toStatus(ctx context.Context, err error) error {
	var gs pkgerrors.GRPCStatuser
	if errors.As(err, &gs) {
		st := gs.GRPCStatus()
		if st.Code() == codes.Internal {
			logger.WithContext(ctx, s.log).Error("grpc request failed", zap.Error(err))
		}
		return st.Err()
	}
	logger.WithContext(ctx, s.log).Error("grpc request failed", zap.Error(err))
	return status.Error(codes.Internal, "An internal error occurred")
}
