package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
)

// AuthClient implements the authentication collaborator over REST. Login
// and Register return the credential token explicitly so the caller can
// hand it to the push channel without scanning shared cookie storage.
type AuthClient struct {
	*Client
}

// NewAuthClient creates an auth collaborator on the shared REST client.
func NewAuthClient(client *Client) *AuthClient {
	return &AuthClient{Client: client}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authResponse is the body of a successful login/register call.
type authResponse struct {
	Message string `json:"message"`
	UserID  int    `json:"user_id"`
}

// Login establishes a server-side session and returns the access token.
func (c *AuthClient) Login(ctx context.Context, email, password string) (string, error) {
	var body authResponse
	resp, err := c.doJSON(ctx, http.MethodPost, c.cfg.AuthPath+"/login", "", loginRequest{
		Email:    email,
		Password: password,
	}, &body)
	if err != nil {
		return "", err
	}

	token := c.tokenFromResponse(resp)
	if token == "" {
		return "", fmt.Errorf("login succeeded but no %s cookie was set", c.cfg.TokenCookieName)
	}

	slog.Debug("Login accepted", "user_id", body.UserID)
	return token, nil
}

// Register creates an account, establishes a session and returns the
// access token. Same contract as Login.
func (c *AuthClient) Register(ctx context.Context, name, email, password string) (string, error) {
	var body authResponse
	resp, err := c.doJSON(ctx, http.MethodPost, c.cfg.AuthPath+"/register", "", registerRequest{
		Name:     name,
		Email:    email,
		Password: password,
	}, &body)
	if err != nil {
		return "", err
	}

	token := c.tokenFromResponse(resp)
	if token == "" {
		return "", fmt.Errorf("registration succeeded but no %s cookie was set", c.cfg.TokenCookieName)
	}

	slog.Debug("Registration accepted", "user_id", body.UserID)
	return token, nil
}

// Logout ends the server-side session. Best effort: the session store
// swallows failures here, teardown proceeds regardless.
func (c *AuthClient) Logout(ctx context.Context) error {
	_, err := c.doJSON(ctx, http.MethodPost, c.cfg.AuthPath+"/logout", "", nil, nil)
	return err
}
