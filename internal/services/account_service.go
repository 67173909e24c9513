package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"roomchat/internal/auth"
	"roomchat/internal/models"
	"roomchat/internal/repositories"
)

// TokenIssuer signs credentials for a user id.
type TokenIssuer interface {
	IssueToken(userID string) (string, error)
}

// SenderInvalidator drops cached sender projections.
type SenderInvalidator interface {
	InvalidateSender(userID string)
}

// Session is what register and login hand back to the client.
type Session struct {
	models.PublicUser
	Token string `json:"token"`
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// AccountService handles registration, login and profile updates.
type AccountService struct {
	users   repositories.UserRepository
	tokens  TokenIssuer
	senders SenderInvalidator
}

func NewAccountService(users repositories.UserRepository, tokens TokenIssuer, senders SenderInvalidator) *AccountService {
	return &AccountService{users: users, tokens: tokens, senders: senders}
}

func (s *AccountService) Register(ctx context.Context, in RegisterInput) (Session, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if username == "" || email == "" || in.Password == "" {
		return Session{}, validationError("Please fill all the fields")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return Session{}, err
	}
	user, err := s.users.CreateUser(ctx, models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Avatar:       models.DefaultAvatar,
	})
	if errors.Is(err, repositories.ErrUserExists) {
		return Session{}, validationError("User already exists")
	}
	if err != nil {
		return Session{}, storeErr(err)
	}
	return s.session(user.Public())
}

func (s *AccountService) Login(ctx context.Context, login, password string) (Session, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return Session{}, validationError("Please fill all the fields")
	}
	user, err := s.users.FindByLogin(ctx, login)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, storeErr(err)
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return Session{}, ErrInvalidCredentials
	}
	return s.session(user.Public())
}

func (s *AccountService) session(user models.PublicUser) (Session, error) {
	token, err := s.tokens.IssueToken(user.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{PublicUser: user, Token: token}, nil
}

func (s *AccountService) Me(ctx context.Context, userID string) (models.PublicUser, error) {
	user, err := s.users.GetPublicUser(ctx, userID)
	if err != nil {
		return models.PublicUser{}, storeErr(err)
	}
	return user, nil
}

// Search matches keyword against username and email, excluding the caller.
func (s *AccountService) Search(ctx context.Context, userID, keyword string) ([]models.PublicUser, error) {
	users, err := s.users.SearchUsers(ctx, strings.TrimSpace(keyword), userID)
	if err != nil {
		return nil, storeErr(err)
	}
	if users == nil {
		users = []models.PublicUser{}
	}
	return users, nil
}

func (s *AccountService) UpdateAvatar(ctx context.Context, userID, avatar string) (models.PublicUser, error) {
	avatar = strings.TrimSpace(avatar)
	if avatar == "" {
		return models.PublicUser{}, validationError("avatar is required")
	}
	user, err := s.users.UpdateAvatar(ctx, userID, avatar)
	if err != nil {
		return models.PublicUser{}, storeErr(err)
	}
	s.senders.InvalidateSender(userID)
	return user, nil
}
