package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"roomchat/internal/auth"
	"roomchat/internal/mocks"
	"roomchat/internal/models"
	"roomchat/internal/repositories"
)

type staticTokens struct{}

func (staticTokens) IssueToken(userID string) (string, error) { return "token-" + userID, nil }

type invalidations struct{ ids []string }

func (i *invalidations) InvalidateSender(userID string) { i.ids = append(i.ids, userID) }

func TestRegisterHashesAndLowercases(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	svc := NewAccountService(users, staticTokens{}, &invalidations{})

	users.On("CreateUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
		return u.Email == "alice@example.com" && u.Username == "alice" && u.Avatar == models.DefaultAvatar &&
			u.ID != "" && auth.CheckPassword(u.PasswordHash, "hunter22")
	})).Return(func(_ context.Context, u models.User) models.User { return u }, nil).Once()

	session, err := svc.Register(context.Background(), RegisterInput{Username: "alice", Email: " Alice@Example.com ", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", session.Email)
	assert.Equal(t, "token-"+session.ID, session.Token)
	users.AssertExpectations(t)
}

func TestRegisterDuplicate(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	svc := NewAccountService(users, staticTokens{}, &invalidations{})
	users.On("CreateUser", mock.Anything, mock.Anything).Return(nil, repositories.ErrUserExists).Once()

	_, err := svc.Register(context.Background(), RegisterInput{Username: "alice", Email: "a@b.c", Password: "pw"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "User already exists", ClientMessage(err))
}

func TestLogin(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	svc := NewAccountService(users, staticTokens{}, &invalidations{})
	hash, err := auth.HashPassword("hunter22")
	require.NoError(t, err)
	stored := models.User{ID: "u1", Username: "alice", Email: "alice@example.com", PasswordHash: hash}
	users.On("FindByLogin", mock.Anything, "alice").Return(stored, nil)
	users.On("FindByLogin", mock.Anything, "nobody").Return(nil, repositories.ErrUserNotFound)

	session, err := svc.Login(context.Background(), "alice", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "token-u1", session.Token)

	_, err = svc.Login(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(context.Background(), "nobody", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUpdateAvatarInvalidatesSender(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	inv := &invalidations{}
	svc := NewAccountService(users, staticTokens{}, inv)
	users.On("UpdateAvatar", mock.Anything, "u1", "new.png").Return(models.PublicUser{ID: "u1", Avatar: "new.png"}, nil).Once()

	user, err := svc.UpdateAvatar(context.Background(), "u1", "new.png")
	require.NoError(t, err)
	assert.Equal(t, "new.png", user.Avatar)
	assert.Equal(t, []string{"u1"}, inv.ids)

	_, err = svc.UpdateAvatar(context.Background(), "u1", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSearchNeverReturnsNil(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	svc := NewAccountService(users, staticTokens{}, &invalidations{})
	users.On("SearchUsers", mock.Anything, "zz", "u1").Return(nil, nil).Once()

	found, err := svc.Search(context.Background(), "u1", " zz ")
	require.NoError(t, err)
	assert.NotNil(t, found)
	assert.Empty(t, found)
}
