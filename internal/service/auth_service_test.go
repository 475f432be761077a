package service

import (
	"context"
	"testing"

	"repricer/internal/config"
	"repricer/internal/dto"
	"repricer/internal/model"
	"repricer/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type stubUserRepo struct {
	users map[string]*model.User
}

func newStubUserRepo() *stubUserRepo { return &stubUserRepo{users: map[string]*model.User{}} }

func (r *stubUserRepo) Create(_ context.Context, u *model.User) error {
	if _, ok := r.users[u.Username]; ok {
		return gorm.ErrDuplicatedKey
	}
	r.users[u.Username] = u
	return nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	u, ok := r.users[username]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

var _ repository.UserRepository = (*stubUserRepo)(nil)

func newAuthSvc(t *testing.T) (AuthService, *config.Config) {
	t.Helper()
	prev := bcryptCost
	bcryptCost = bcrypt.MinCost
	t.Cleanup(func() { bcryptCost = prev })

	cfg := &config.Config{JWTSecret: "test-secret", JWTExpirationHours: 1}
	return NewAuthService(newStubUserRepo(), cfg), cfg
}

func TestAuth_RegisterLoginRoundTrip(t *testing.T) {
	svc, cfg := newAuthSvc(t)

	reg, err := svc.Register(context.Background(), dto.RegisterRequest{Username: "seller", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", reg.TokenType)
	assert.Equal(t, 3600, reg.ExpiresIn)

	login, err := svc.Login(context.Background(), dto.LoginRequest{Username: "seller", Password: "s3cret-pass"})
	require.NoError(t, err)

	token, err := jwt.Parse(login.AccessToken, func(*jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, reg.User.ID, claims["user_id"])

	me, err := svc.CurrentUser(context.Background(), uuid.MustParse(reg.User.ID))
	require.NoError(t, err)
	assert.Equal(t, "seller", me.Username)
}

func TestAuth_DuplicateUsername(t *testing.T) {
	svc, _ := newAuthSvc(t)
	_, err := svc.Register(context.Background(), dto.RegisterRequest{Username: "seller", Password: "password1"})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), dto.RegisterRequest{Username: "seller", Password: "password2"})
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestAuth_BadCredentials(t *testing.T) {
	svc, _ := newAuthSvc(t)
	_, err := svc.Register(context.Background(), dto.RegisterRequest{Username: "seller", Password: "password1"})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), dto.LoginRequest{Username: "seller", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(context.Background(), dto.LoginRequest{Username: "nobody", Password: "password1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.CurrentUser(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrUnauthorized)
}
