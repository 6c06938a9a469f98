package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	domain "user-service/internal/domain/user"
	usecase "user-service/internal/usecase/user"
	pkgerrors "user-service/pkg/errors"
)

// MockService is a mock implementation of user.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) FindAllUsers(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockService) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockService) CreateUser(ctx context.Context, in usecase.CreateUserInput) (*domain.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockService) UpdateUser(ctx context.Context, id string, in usecase.UpdateUserInput) (*domain.User, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockService) DeleteUser(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func setupTest(t *testing.T) (*gin.Engine, *MockService) {
	gin.SetMode(gin.TestMode)
	svc := new(MockService)
	t.Cleanup(func() { svc.AssertExpectations(t) })

	h := NewUserHandler(svc, zaptest.NewLogger(t))
	r := gin.New()
	r.GET("/users", h.ListUsers)
	r.GET("/users/:id", h.GetUser)
	r.POST("/users", h.CreateUser)
	r.PUT("/users/:id", h.UpdateUser)
	r.PATCH("/users/:id", h.UpdateUser)
	r.DELETE("/users/:id", h.DeleteUser)
	return r, svc
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func strPtr(s string) *string { return &s }

func TestListUsers(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, svc := setupTest(t)
		users := []domain.User{
			{ID: "1", Name: "Valid User", Email: "valid@email.com"},
			{ID: "2", Name: "Other User", Email: "other@email.com"},
		}
		svc.On("FindAllUsers", mock.Anything).Return(users, nil)

		w := do(r, http.MethodGet, "/users", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, users, decode[ListUsersResponse](t, w).Users)
	})

	t.Run("Empty", func(t *testing.T) {
		r, svc := setupTest(t)
		svc.On("FindAllUsers", mock.Anything).Return([]domain.User{}, nil)

		w := do(r, http.MethodGet, "/users", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"users":[]}`, w.Body.String())
	})

	t.Run("Repository Error", func(t *testing.T) {
		r, svc := setupTest(t)
		svc.On("FindAllUsers", mock.Anything).Return(nil, errors.New("connection refused"))

		w := do(r, http.MethodGet, "/users", "")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		resp := decode[ErrorResponse](t, w)
		assert.Equal(t, "internal_error", resp.Error)
		assert.Equal(t, "An internal error occurred", resp.Message)
	})
}

func TestGetUser(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, svc := setupTest(t)
		u := &domain.User{ID: "10", Name: "Valid User", Email: "valid@email.com"}
		svc.On("FindUserByID", mock.Anything, "10").Return(u, nil)

		w := do(r, http.MethodGet, "/users/10", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, *u, decode[domain.User](t, w))
	})

	t.Run("Not Found", func(t *testing.T) {
		r, svc := setupTest(t)
		svc.On("FindUserByID", mock.Anything, "10").Return(nil, pkgerrors.NewNotFoundError("user", "10"))

		w := do(r, http.MethodGet, "/users/10", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		resp := decode[ErrorResponse](t, w)
		assert.Equal(t, "not_found", resp.Error)
		assert.Equal(t, "user not found: id=10", resp.Message)
	})
}

func TestCreateUser(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, svc := setupTest(t)
		in := usecase.CreateUserInput{Name: "Valid User", Email: "valid@email.com"}
		svc.On("CreateUser", mock.Anything, in).
			Return(&domain.User{ID: "1", Name: in.Name, Email: in.Email}, nil)

		w := do(r, http.MethodPost, "/users", `{"name":"Valid User","email":"valid@email.com"}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, domain.User{ID: "1", Name: in.Name, Email: in.Email}, decode[domain.User](t, w))
	})

	t.Run("Invalid Request Body", func(t *testing.T) {
		r, _ := setupTest(t)

		w := do(r, http.MethodPost, "/users", "invalid json")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_request", decode[ErrorResponse](t, w).Error)
	})

	t.Run("Validation Error", func(t *testing.T) {
		r, svc := setupTest(t)
		verr := &pkgerrors.ValidationError{Fields: []pkgerrors.FieldError{
			{Field: "name", Message: "O campo nome não pode ser vazio."},
			{Field: "email", Message: "Informe um email valido."},
		}}
		svc.On("CreateUser", mock.Anything, usecase.CreateUserInput{Email: "nope"}).Return(nil, verr)

		w := do(r, http.MethodPost, "/users", `{"email":"nope"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode[ErrorResponse](t, w)
		assert.Equal(t, "validation_error", resp.Error)
		assert.Equal(t, verr.Fields, resp.Details)
	})

	t.Run("Save Failed", func(t *testing.T) {
		r, svc := setupTest(t)
		svc.On("CreateUser", mock.Anything, mock.Anything).
			Return(nil, pkgerrors.NewInternalError(pkgerrors.MsgCreateUser, errors.New("disk full")))

		w := do(r, http.MethodPost, "/users", `{"name":"Valid User","email":"valid@email.com"}`)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		resp := decode[ErrorResponse](t, w)
		assert.Equal(t, "internal_error", resp.Error)
		assert.Equal(t, "Problema para criar um usuario", resp.Message)
	})
}

func TestUpdateUser(t *testing.T) {
	for _, method := range []string{http.MethodPut, http.MethodPatch} {
		t.Run(method+" Partial", func(t *testing.T) {
			r, svc := setupTest(t)
			in := usecase.UpdateUserInput{Name: strPtr("Updated Name")}
			svc.On("UpdateUser", mock.Anything, "1", in).
				Return(&domain.User{ID: "1", Name: "Updated Name", Email: "valid@email.com"}, nil)

			w := do(r, method, "/users/1", `{"name":"Updated Name"}`)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "Updated Name", decode[domain.User](t, w).Name)
		})
	}

	t.Run("Not Found", func(t *testing.T) {
		r, svc := setupTest(t)
		svc.On("UpdateUser", mock.Anything, "404", mock.Anything).
			Return(nil, pkgerrors.NewNotFoundError("user", "404"))

		w := do(r, http.MethodPut, "/users/404", `{"name":"Updated Name"}`)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Invalid Request Body", func(t *testing.T) {
		r, _ := setupTest(t)

		w := do(r, http.MethodPatch, "/users/1", `{"name":`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDeleteUser(t *testing.T) {
	tests := []struct {
		name     string
		deleted  bool
		err      error
		wantCode int
		wantBody string
	}{
		{name: "Deleted", deleted: true, wantCode: http.StatusOK, wantBody: `{"deleted":true}`},
		{name: "Nothing Removed", deleted: false, wantCode: http.StatusOK, wantBody: `{"deleted":false}`},
		{
			name:     "Not Found",
			err:      pkgerrors.NewNotFoundError("user", "1"),
			wantCode: http.StatusNotFound,
			wantBody: `{"error":"not_found","message":"user not found: id=1"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, svc := setupTest(t)
			svc.On("DeleteUser", mock.Anything, "1").Return(tt.deleted, tt.err)

			w := do(r, http.MethodDelete, "/users/1", "")

			assert.Equal(t, tt.wantCode, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}
