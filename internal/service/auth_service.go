package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/edupay-dashboard/internal/models"
	"github.com/noah-isme/edupay-dashboard/internal/session"
	appErrors "github.com/noah-isme/edupay-dashboard/pkg/errors"
)

type authGateway interface {
	Login(ctx context.Context, req models.LoginRequest) (models.LoginResponse, error)
	Register(ctx context.Context, req models.RegisterRequest) (json.RawMessage, error)
}

type identityHolder interface {
	SetIdentity(ctx context.Context, token string, user models.User) error
	Teardown(ctx context.Context, reason session.Reason) error
	Identity() (models.Identity, bool)
}

// AuthService signs the dashboard in and out of the payments gateway.
type AuthService struct {
	gateway   authGateway
	session   identityHolder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(gateway authGateway, sess identityHolder, validate *validator.Validate, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{gateway: gateway, session: sess, validator: validate, logger: logger}
}

// Login authenticates against the gateway and stores the issued identity.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	resp, err := s.gateway.Login(ctx, req)
	if err != nil {
		s.logger.Info("login rejected", zap.String("email", req.Email), zap.Error(err))
		return nil, err
	}

	if err := s.session.SetIdentity(ctx, resp.AccessToken, resp.User); err != nil {
		if errors.Is(err, session.ErrCorrupt) {
			return nil, appErrors.Clone(appErrors.ErrGateway, "login response is missing the user record")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist session")
	}
	s.logger.Info("signed in", zap.String("user_id", resp.User.ID), zap.String("role", resp.User.Role))
	user := resp.User
	return &user, nil
}

// Register creates an account and immediately signs in with it.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	if _, err := s.gateway.Register(ctx, req); err != nil {
		return nil, err
	}
	return s.Login(ctx, models.LoginRequest{Email: req.Email, Password: req.Password})
}

// Logout tears the session down.
func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.session.Teardown(ctx, session.ReasonLogout); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear session")
	}
	return nil
}

// Current returns the signed-in user.
func (s *AuthService) Current() (*models.User, error) {
	identity, ok := s.session.Identity()
	if !ok {
		return nil, appErrors.ErrUnauthenticated
	}
	user := identity.User
	return &user, nil
}
