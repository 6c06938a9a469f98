package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	domain "user-service/internal/domain/user"
)

// Client is a typed client for user.v1.UserService.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient creates a client over cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func method(name string) string {
	return "/" + ServiceName + "/" + name
}

// ListUsers returns every user.
func (c *Client) ListUsers(ctx context.Context, opts ...grpc.CallOption) ([]domain.User, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, method("ListUsers"), &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return usersFromList(out)
}

// GetUser returns the user with the given id.
func (c *Client) GetUser(ctx context.Context, id string, opts ...grpc.CallOption) (*domain.User, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method("GetUser"), wrapperspb.String(id), out, opts...); err != nil {
		return nil, err
	}
	u := userFromStruct(out)
	return &u, nil
}

// CreateUser creates a user.
func (c *Client) CreateUser(ctx context.Context, name, email string, opts ...grpc.CallOption) (*domain.User, error) {
	in := &structpb.Struct{Fields: map[string]*structpb.Value{
		"name":  structpb.NewStringValue(name),
		"email": structpb.NewStringValue(email),
	}}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method("CreateUser"), in, out, opts...); err != nil {
		return nil, err
	}
	u := userFromStruct(out)
	return &u, nil
}

// UpdateUser changes the fields present in p.
func (c *Client) UpdateUser(ctx context.Context, id string, p domain.Patch, opts ...grpc.CallOption) (*domain.User, error) {
	in := &structpb.Struct{Fields: map[string]*structpb.Value{
		"id": structpb.NewStringValue(id),
	}}
	if p.Name != nil {
		in.Fields["name"] = structpb.NewStringValue(*p.Name)
	}
	if p.Email != nil {
		in.Fields["email"] = structpb.NewStringValue(*p.Email)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method("UpdateUser"), in, out, opts...); err != nil {
		return nil, err
	}
	u := userFromStruct(out)
	return &u, nil
}

// DeleteUser deletes a user and reports whether a record was removed.
func (c *Client) DeleteUser(ctx context.Context, id string, opts ...grpc.CallOption) (bool, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, method("DeleteUser"), wrapperspb.String(id), out, opts...); err != nil {
		return false, err
	}
	return out.GetValue(), nil
}
