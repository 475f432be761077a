package handler

import (
	"context"
	"net/http"
	"testing"

	"repricer/internal/dto"
	"repricer/internal/middleware"
	"repricer/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuth struct {
	loginErr error
	users    map[uuid.UUID]string
}

func (s *stubAuth) Register(_ context.Context, req dto.RegisterRequest) (*dto.LoginResponse, error) {
	for _, name := range s.users {
		if name == req.Username {
			return nil, service.ErrUsernameTaken
		}
	}
	return &dto.LoginResponse{AccessToken: "token", TokenType: "bearer", User: dto.UserResponse{Username: req.Username}}, nil
}

func (s *stubAuth) Login(_ context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return &dto.LoginResponse{AccessToken: "token", TokenType: "bearer", User: dto.UserResponse{Username: req.Username}}, nil
}

func (s *stubAuth) CurrentUser(_ context.Context, userID uuid.UUID) (*dto.UserResponse, error) {
	name, ok := s.users[userID]
	if !ok {
		return nil, service.ErrUnauthorized
	}
	return &dto.UserResponse{ID: userID.String(), Username: name}, nil
}

func newAuthEngine(svc service.AuthService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewAuthHandler(svc)
	r.POST("/api/register", h.Register)
	r.POST("/api/login", h.Login)
	r.GET("/api/user", middleware.JWTAuth(testSecret), h.Me)
	return r
}

func TestAuth_Register(t *testing.T) {
	existing := uuid.New()
	r := newAuthEngine(&stubAuth{users: map[uuid.UUID]string{existing: "taken"}})

	w := doRequest(r, http.MethodPost, "/api/register", "", map[string]string{"username": "newbie", "password": "long-enough"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(r, http.MethodPost, "/api/register", "", map[string]string{"username": "taken", "password": "long-enough"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doRequest(r, http.MethodPost, "/api/register", "", map[string]string{"username": "x", "password": "short"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doRequest(r, http.MethodPost, "/api/register", "", map[string]string{"username": "mailer", "password": "long-enough", "email": "nope"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestAuth_LoginInvalidCredentials(t *testing.T) {
	r := newAuthEngine(&stubAuth{loginErr: service.ErrInvalidCredentials})
	w := doRequest(r, http.MethodPost, "/api/login", "", map[string]string{"username": "a", "password": "b"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_credentials", errorCode(t, w))
}

func TestAuth_Me(t *testing.T) {
	userID := uuid.New()
	r := newAuthEngine(&stubAuth{users: map[uuid.UUID]string{userID: "seller"}})

	w := doRequest(r, http.MethodGet, "/api/user", signToken(t, userID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"seller"`)

	// Valid token for a user that no longer exists.
	w = doRequest(r, http.MethodGet, "/api/user", signToken(t, uuid.New()), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
