package grpc

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
	"gorm.io/gorm"

	"user-service/internal/adapter/db/postgres"
	domain "user-service/internal/domain/user"
	"user-service/internal/usecase/user"
	"user-service/pkg/logger"
)

const bufSize = 1024 * 1024

// startServer serves svc over an in-memory listener and returns a client.
func startServer(t *testing.T, svc user.Service, opts ...grpc.ServerOption) (*Client, *grpc.ClientConn) {
	lis := bufconn.Listen(bufSize)
	s := grpc.NewServer(opts...)
	RegisterUserServiceServer(s, NewUserServiceServer(svc, zaptest.NewLogger(t)))
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return NewClient(conn), conn
}

func newService(t *testing.T) user.Service {
	log := zaptest.NewLogger(t)
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, postgres.Migrate(db))

	return user.New(postgres.NewUserRepoPG(db, log), nil, nil, log)
}

func strPtr(s string) *string { return &s }

func TestUserService_Lifecycle(t *testing.T) {
	client, _ := startServer(t, newService(t))
	ctx := context.Background()

	created, err := client.CreateUser(ctx, "Valid User", "valid@email.com")
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "Valid User", created.Name)

	users, err := client.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.User{*created}, users)

	got, err := client.GetUser(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	updated, err := client.UpdateUser(ctx, created.ID, domain.Patch{Name: strPtr("Updated Name")})
	require.NoError(t, err)
	assert.Equal(t, "Updated Name", updated.Name)
	assert.Equal(t, "valid@email.com", updated.Email)

	deleted, err := client.DeleteUser(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = client.GetUser(ctx, created.ID)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestUserService_ListEmpty(t *testing.T) {
	client, _ := startServer(t, newService(t))

	users, err := client.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestUserService_ValidationDetails(t *testing.T) {
	client, _ := startServer(t, newService(t))

	_, err := client.CreateUser(context.Background(), "", "")

	st := status.Convert(err)
	require.Equal(t, codes.InvalidArgument, st.Code())
	require.Len(t, st.Details(), 1)
	br, ok := st.Details()[0].(*errdetails.BadRequest)
	require.True(t, ok)

	var msgs []string
	for _, v := range br.GetFieldViolations() {
		msgs = append(msgs, v.GetDescription())
	}
	assert.Contains(t, msgs, "O campo nome não pode ser vazio.")
	assert.Contains(t, msgs, "O campo email não pode ser vazio.")
}

func TestUserService_UpdateRequiresID(t *testing.T) {
	_, conn := startServer(t, newService(t))

	in := &structpb.Struct{Fields: map[string]*structpb.Value{"name": structpb.NewStringValue("x")}}
	err := conn.Invoke(context.Background(), method("UpdateUser"), in, new(structpb.Struct))

	st := status.Convert(err)
	require.Equal(t, codes.InvalidArgument, st.Code())
	require.Len(t, st.Details(), 1)
	br, ok := st.Details()[0].(*errdetails.BadRequest)
	require.True(t, ok)
	require.Len(t, br.GetFieldViolations(), 1)
	assert.Equal(t, "id", br.GetFieldViolations()[0].GetField())
}

func TestUserService_RejectsNonStringField(t *testing.T) {
	_, conn := startServer(t, newService(t))

	in := &structpb.Struct{Fields: map[string]*structpb.Value{
		"name":  structpb.NewNumberValue(42),
		"email": structpb.NewStringValue("valid@email.com"),
	}}
	err := conn.Invoke(context.Background(), method("CreateUser"), in, new(structpb.Struct))

	st := status.Convert(err)
	assert.Equal(t, codes.InvalidArgument, st.Code())
	assert.Contains(t, st.Message(), `"name"`)
}

func TestUserService_UpdateNullFieldIsAbsent(t *testing.T) {
	client, conn := startServer(t, newService(t))
	ctx := context.Background()
	created, err := client.CreateUser(ctx, "Valid User", "valid@email.com")
	require.NoError(t, err)

	in := &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":    structpb.NewStringValue(created.ID),
		"name":  structpb.NewNullValue(),
		"email": structpb.NewStringValue("new@email.com"),
	}}
	out := new(structpb.Struct)
	require.NoError(t, conn.Invoke(ctx, method("UpdateUser"), in, out))

	assert.Equal(t, domain.User{ID: created.ID, Name: "Valid User", Email: "new@email.com"}, userFromStruct(out))
}

func TestUserService_DeleteMissing(t *testing.T) {
	client, _ := startServer(t, newService(t))

	_, err := client.DeleteUser(context.Background(), "missing")
	assert.Equal(t, codes.NotFound, status.Code(err))
}

// failingService fails every listing with an untyped error.
type failingService struct {
	user.Service
}

func (failingService) FindAllUsers(context.Context) ([]domain.User, error) {
	return nil, errors.New("connection reset by peer")
}

func TestUserService_HidesUntypedErrors(t *testing.T) {
	client, _ := startServer(t, failingService{})

	_, err := client.ListUsers(context.Background())

	st := status.Convert(err)
	assert.Equal(t, codes.Internal, st.Code())
	assert.Equal(t, "An internal error occurred", st.Message())
}

func TestUserService_Interceptors(t *testing.T) {
	var seen []string
	record := func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		seen = append(seen, info.FullMethod)
		return handler(ctx, req)
	}
	_, conn := startServer(t, newService(t), grpc.ChainUnaryInterceptor(logger.RequestIDInterceptor(), record))
	client := NewClient(conn)

	var header metadata.MD
	ctx := metadata.AppendToOutgoingContext(context.Background(), logger.RequestIDHeader, "req-7")
	_, err := client.ListUsers(ctx, grpc.Header(&header))
	require.NoError(t, err)

	assert.Equal(t, []string{"/user.v1.UserService/ListUsers"}, seen)
	assert.Equal(t, []string{"req-7"}, header.Get(logger.RequestIDHeader))
}
