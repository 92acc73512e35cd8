package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/noah-isme/edupay-dashboard/internal/models"
	appErrors "github.com/noah-isme/edupay-dashboard/pkg/errors"
)

// Login exchanges credentials for an access token. The gateway wraps the
// token in {success, message, data: {access_token, user}}.
func (c *Client) Login(ctx context.Context, req models.LoginRequest) (models.LoginResponse, error) {
	var env struct {
		Data *models.LoginResponse `json:"data"`
	}
	if err := c.do(ctx, EndpointLogin, http.MethodPost, "/auth/login", nil, req, &env); err != nil {
		if appErrors.IsCode(err, appErrors.ErrUnauthenticated.Code) {
			return models.LoginResponse{}, appErrors.ErrInvalidCredentials
		}
		return models.LoginResponse{}, err
	}
	if env.Data == nil || env.Data.AccessToken == "" {
		return models.LoginResponse{}, appErrors.Clone(appErrors.ErrGateway, "login response did not include an access token")
	}
	return *env.Data, nil
}

// Register creates an account. The response body is passed through untouched.
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.do(ctx, EndpointRegister, http.MethodPost, "/auth/register", nil, req, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Profile returns the user behind the current token.
func (c *Client) Profile(ctx context.Context) (models.User, error) {
	var raw json.RawMessage
	if err := c.do(ctx, EndpointProfile, http.MethodGet, "/auth/profile", nil, nil, &raw); err != nil {
		return models.User{}, err
	}
	var env struct {
		Data *models.User `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && env.Data != nil {
		return *env.Data, nil
	}
	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return models.User{}, appErrors.Wrap(err, appErrors.ErrGateway.Code, appErrors.ErrGateway.Status, "malformed profile response")
	}
	return user, nil
}
