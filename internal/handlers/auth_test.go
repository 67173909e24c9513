package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"roomchat/internal/auth"
	"roomchat/internal/mocks"
	"roomchat/internal/models"
	"roomchat/internal/services"
	"roomchat/internal/telemetry"
)

func newTestAudit(p *mocks.PublisherMock) *telemetry.AuditEmitter {
	return telemetry.NewAuditEmitter(p, "audit.roomchat", "roomchat", "test")
}

type noCache struct{}

func (noCache) InvalidateSender(string) {}

func setupAuthRouter(t *testing.T) (*gin.Engine, *mocks.UserRepositoryMock, *mocks.PublisherMock) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	users := new(mocks.UserRepositoryMock)
	audit := new(mocks.PublisherMock)
	audit.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	authenticator := auth.NewAuthenticator("secret", time.Hour, users)
	accounts := services.NewAccountService(users, authenticator, noCache{})
	authHandler := NewAuthHandler(accounts, newTestAudit(audit))
	userHandler := NewUserHandler(accounts)

	r := gin.New()
	withUser := func(c *gin.Context) {
		c.Set("userID", "u1")
		c.Next()
	}
	r.POST("/api/auth/register", authHandler.Register)
	r.POST("/api/auth/login", authHandler.Login)
	r.GET("/api/auth/me", withUser, authHandler.Me)
	r.GET("/api/users", withUser, userHandler.Search)
	r.PATCH("/api/users/me", withUser, userHandler.UpdateAvatar)
	return r, users, audit
}

func TestRegisterReturnsTokenWithoutPasswordHash(t *testing.T) {
	router, users, _ := setupAuthRouter(t)
	users.On("CreateUser", mock.Anything, mock.Anything).
		Return(func(_ context.Context, u models.User) models.User { return u }, nil).Once()

	body := bytes.NewBufferString(`{"username":"alice","email":"Alice@Example.com","password":"hunter22"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "alice@example.com", resp["email"])
	assert.NotEmpty(t, resp["token"])
}

func TestRegisterInvalidPayload(t *testing.T) {
	router, _, _ := setupAuthRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBufferString(`{"username":"alice"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	router, users, _ := setupAuthRouter(t)
	hash, err := auth.HashPassword("hunter22")
	require.NoError(t, err)
	users.On("FindByLogin", mock.Anything, "alice").Return(models.User{ID: "u1", Username: "alice", PasswordHash: hash}, nil).Twice()

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(`{"emailOrUsername":"alice","password":"wrong"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(`{"emailOrUsername":"alice","password":"hunter22"}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token"`)
}

func TestMe(t *testing.T) {
	router, users, _ := setupAuthRouter(t)
	users.On("GetPublicUser", mock.Anything, "u1").Return(models.PublicUser{ID: "u1", Username: "alice"}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"alice"`)
}

func TestSearchUsers(t *testing.T) {
	router, users, _ := setupAuthRouter(t)
	users.On("SearchUsers", mock.Anything, "bo", "u1").Return([]models.PublicUser{{ID: "u2", Username: "bob"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/users?search=bo", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []models.PublicUser
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "bob", resp[0].Username)
}

func TestUpdateAvatar(t *testing.T) {
	router, users, _ := setupAuthRouter(t)
	users.On("UpdateAvatar", mock.Anything, "u1", "cat.png").Return(models.PublicUser{ID: "u1", Avatar: "cat.png"}, nil).Once()

	req := httptest.NewRequest(http.MethodPatch, "/api/users/me", bytes.NewBufferString(`{"avatar":"cat.png"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	users.AssertExpectations(t)
}
