package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edupay-dashboard/internal/middleware"
	"github.com/noah-isme/edupay-dashboard/internal/models"
	appErrors "github.com/noah-isme/edupay-dashboard/pkg/errors"
)

type fakeAuthService struct {
	loginReq  models.LoginRequest
	loginErr  error
	loggedOut bool
	current   *models.User
}

func (f *fakeAuthService) Login(_ context.Context, req models.LoginRequest) (*models.User, error) {
	f.loginReq = req
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &models.User{ID: "u-1", Email: req.Email}, nil
}

func (f *fakeAuthService) Register(_ context.Context, req models.RegisterRequest) (*models.User, error) {
	return &models.User{ID: "u-2", Email: req.Email, Username: req.Username}, nil
}

func (f *fakeAuthService) Logout(context.Context) error {
	f.loggedOut = true
	return nil
}

func (f *fakeAuthService) Current() (*models.User, error) {
	if f.current == nil {
		return nil, appErrors.ErrUnauthenticated
	}
	return f.current, nil
}

func newAuthRouter(svc authService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(svc)
	router := gin.New()
	router.Use(func(c *gin.Context) { c.Set(middleware.ContextLoginURLKey, "/login") })
	router.POST("/auth/login", handler.Login)
	router.POST("/auth/register", handler.Register)
	router.POST("/auth/logout", handler.Logout)
	router.GET("/auth/session", handler.Session)
	return router
}

func TestAuthHandlerLogin(t *testing.T) {
	svc := &fakeAuthService{}
	router := newAuthRouter(svc)

	rec := serve(router, http.MethodPost, "/auth/login", `{"email":"admin@school.test","password":"secret"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin@school.test", svc.loginReq.Email)
	assert.Contains(t, string(decodeEnvelope(t, rec).Data), `"id":"u-1"`)

	rec = serve(router, http.MethodPost, "/auth/login", `{"email":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandlerLoginRejected(t *testing.T) {
	router := newAuthRouter(&fakeAuthService{loginErr: appErrors.ErrInvalidCredentials})
	rec := serve(router, http.MethodPost, "/auth/login", `{"email":"a@b.co","password":"bad"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decodeEnvelope(t, rec).Error.Code)
}

func TestAuthHandlerRegister(t *testing.T) {
	router := newAuthRouter(&fakeAuthService{})
	rec := serve(router, http.MethodPost, "/auth/register", `{"username":"newbie","email":"n@school.test","password":"secret1"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAuthHandlerSessionAndLogout(t *testing.T) {
	svc := &fakeAuthService{}
	router := newAuthRouter(svc)

	rec := serve(router, http.MethodGet, "/auth/session", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "/login", decodeEnvelope(t, rec).Meta["login_url"])

	svc.current = &models.User{ID: "u-9"}
	rec = serve(router, http.MethodGet, "/auth/session", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, http.MethodPost, "/auth/logout", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, svc.loggedOut)
}
