package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ezrank_service/internal/app/repository"
)

func newTestAuthService(t *testing.T) *AuthService {
	t.Helper()
	db := setupTestDB(t)
	return NewAuthService(repository.NewUserRepository(db), "test-secret")
}

func signup() SignupRequest {
	return SignupRequest{
		ID:       "user123",
		Password: "password123",
		Email:    "user@example.com",
		Name:     "Tester",
		IsAgree:  true,
	}
}

func TestRegisterLoginAndTokenRoundtrip(t *testing.T) {
	svc := newTestAuthService(t)

	reg, err := svc.Register(signup())
	require.NoError(t, err)
	require.NotEmpty(t, reg.Token)
	assert.Equal(t, "user123", reg.User.UserID)

	idx, ok := svc.CurrentUserIdx(reg.Token)
	require.True(t, ok)
	assert.Equal(t, reg.User.UserIdx, idx)

	// The Authorization header arrives with the scheme prefix.
	idx, ok = svc.CurrentUserIdx("Bearer " + reg.Token)
	require.True(t, ok)
	assert.Equal(t, reg.User.UserIdx, idx)

	id, ok := svc.CurrentUserID(reg.Token)
	require.True(t, ok)
	assert.Equal(t, "user123", id)

	login, err := svc.Login(LoginRequest{Username: "user123", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, reg.User.UserIdx, login.User.UserIdx)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestAuthService(t)
	_, err := svc.Register(signup())
	require.NoError(t, err)

	// Unknown id and wrong password fail with the same error.
	_, err = svc.Login(LoginRequest{Username: "nobody", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(LoginRequest{Username: "user123", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	svc := newTestAuthService(t)
	_, err := svc.Register(signup())
	require.NoError(t, err)

	_, err = svc.Register(signup())
	assert.ErrorIs(t, err, ErrDuplicateUserID)

	other := signup()
	other.ID = "user456"
	_, err = svc.Register(other)
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestAuthService(t)

	req := SignupRequest{ID: "ab", Password: "123", Email: "not-an-email", Name: "x"}
	_, err := svc.Register(req)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Problems, 4)
}

func TestForgedTokenRejected(t *testing.T) {
	svc := newTestAuthService(t)
	reg, err := svc.Register(signup())
	require.NoError(t, err)

	other := NewAuthService(nil, "different-secret")
	_, ok := other.CurrentUserIdx(reg.Token)
	assert.False(t, ok)

	_, ok = svc.CurrentUserIdx("garbage")
	assert.False(t, ok)
	_, ok = svc.CurrentUserIdx("")
	assert.False(t, ok)
}

func TestChangePassword(t *testing.T) {
	svc := newTestAuthService(t)
	reg, err := svc.Register(signup())
	require.NoError(t, err)

	err = svc.ChangePassword(ChangePasswordRequest{
		UserID:   "user123",
		UserIdx:  reg.User.UserIdx,
		Password: "newpassword",
	})
	require.NoError(t, err)

	_, err = svc.Login(LoginRequest{Username: "user123", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(LoginRequest{Username: "user123", Password: "newpassword"})
	assert.NoError(t, err)
}

func TestValidateIDAndEmail(t *testing.T) {
	svc := newTestAuthService(t)
	_, err := svc.Register(signup())
	require.NoError(t, err)

	available, err := svc.ValidateID("user123")
	require.NoError(t, err)
	assert.False(t, available)
	available, err = svc.ValidateID("fresh-id")
	require.NoError(t, err)
	assert.True(t, available)

	available, err = svc.ValidateEmail("user@example.com")
	require.NoError(t, err)
	assert.False(t, available)
	available, err = svc.ValidateEmail("fresh@example.com")
	require.NoError(t, err)
	assert.True(t, available)
}

func TestLeaveUser(t *testing.T) {
	svc := newTestAuthService(t)
	reg, err := svc.Register(signup())
	require.NoError(t, err)

	err = svc.LeaveUser(LeaveUserRequest{UserID: "user123", UserIdx: reg.User.UserIdx + 1})
	assert.ErrorIs(t, err, ErrUserNotFound)

	err = svc.LeaveUser(LeaveUserRequest{UserID: "user123", UserIdx: reg.User.UserIdx})
	require.NoError(t, err)

	_, err = svc.Login(LoginRequest{Username: "user123", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
