package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"regexp"

	autherr "go.pilab.hu/eduflow/errors"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	// Password policy: at least 8 characters with one lowercase, one
	// uppercase, one digit and one special character. Go's regexp has no
	// lookahead, so each class is checked separately.
	passwordLower   = regexp.MustCompile(`[a-z]`)
	passwordUpper   = regexp.MustCompile(`[A-Z]`)
	passwordDigit   = regexp.MustCompile(`\d`)
	passwordSpecial = regexp.MustCompile(`[@$!%*?&]`)
)

func validatePassword(password string) bool {
	return len(password) >= 8 &&
		passwordLower.MatchString(password) &&
		passwordUpper.MatchString(password) &&
		passwordDigit.MatchString(password) &&
		passwordSpecial.MatchString(password)
}

// Login exchanges credentials for a token pair. The client-side attempt
// limiter rejects before any network call once the identifier exhausts its
// budget.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	if email == "" || password == "" {
		return nil, autherr.NewInvalidCredentials("email and password are required")
	}

	if !c.attempts.Allow("login:" + email) {
		return nil, autherr.NewRateLimited("too many login attempts, please try again later")
	}

	var out AuthResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/local", LoginRequest{
		Identifier: email,
		Password:   password,
	}, &out, requestOptions{})
	if err != nil {
		return nil, mapLoginError(err)
	}

	c.attempts.Reset("login:" + email)

	return &out, nil
}

// mapLoginError narrows a login failure: a rate-limit stays as-is, any other
// backend rejection reads as bad credentials.
func mapLoginError(err error) error {
	if errors.Is(err, autherr.ErrRateLimited) {
		return err
	}
	return autherr.NewInvalidCredentials("invalid email or password")
}

// Register creates a new account and returns a fresh token pair. Password
// strength and email format are validated locally before any network call.
func (c *Client) Register(ctx context.Context, username, email, password, name string) (*AuthResponse, error) {
	if !emailPattern.MatchString(email) {
		return nil, autherr.NewValidationFailed("please enter a valid email address")
	}
	if !validatePassword(password) {
		return nil, autherr.NewValidationFailed(
			"password must be at least 8 characters long and contain an uppercase letter, a lowercase letter, a number and a special character")
	}

	if !c.attempts.Allow("register:" + email) {
		return nil, autherr.NewRateLimited("too many registration attempts, please try again later")
	}

	var out AuthResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/local/register", RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
		Name:     name,
	}, &out, requestOptions{})
	if err != nil {
		return nil, mapRegisterError(err)
	}

	return &out, nil
}

// mapRegisterError keeps a rate-limit as-is and surfaces the server's own
// message verbatim as a validation failure when one was reported.
func mapRegisterError(err error) error {
	if errors.Is(err, autherr.ErrRateLimited) {
		return err
	}
	var authErr *autherr.AuthError
	if errors.As(err, &authErr) && authErr.Description != "" {
		return autherr.NewValidationFailed(authErr.Description)
	}
	return autherr.NewValidationFailed("registration failed, please try again")
}

// RefreshToken exchanges the current pair for a new one. The old access
// token authenticates the call.
func (c *Client) RefreshToken(ctx context.Context, accessToken, refreshToken string) (*RefreshResponse, error) {
	var out RefreshResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/refresh-token", RefreshRequest{
		RefreshToken: refreshToken,
	}, &out, requestOptions{bearer: accessToken})
	if err != nil {
		return nil, err
	}

	return &out, nil
}

// ForgotPassword triggers the backend's password-reset email flow.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return autherr.NewRequestFailed("email is required")
	}

	return c.doJSON(ctx, http.MethodPost, "/auth/forgot-password", ForgotPasswordRequest{
		Email: email,
	}, nil, requestOptions{})
}

// ResetPassword completes the reset flow; the backend returns a fresh token
// pair, so a successful reset also signs the user in.
func (c *Client) ResetPassword(ctx context.Context, code, password, passwordConfirmation string) (*AuthResponse, error) {
	var out AuthResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/reset-password", ResetPasswordRequest{
		Code:                 code,
		Password:             password,
		PasswordConfirmation: passwordConfirmation,
	}, &out, requestOptions{})
	if err != nil {
		return nil, err
	}

	return &out, nil
}

// VerifyEmail confirms an address with the token from the confirmation mail.
func (c *Client) VerifyEmail(ctx context.Context, confirmation string) error {
	if confirmation == "" {
		return autherr.NewRequestFailed("confirmation token is required")
	}

	path := "/auth/email-confirmation?confirmation=" + url.QueryEscape(confirmation)
	return c.doJSON(ctx, http.MethodGet, path, nil, nil, requestOptions{})
}

// SendEmailConfirmation asks the backend to resend the confirmation mail.
func (c *Client) SendEmailConfirmation(ctx context.Context, email string) error {
	if email == "" {
		return autherr.NewRequestFailed("email is required")
	}

	return c.doJSON(ctx, http.MethodPost, "/auth/send-email-confirmation", SendEmailConfirmationRequest{
		Email: email,
	}, nil, requestOptions{})
}

// ChangePassword updates the password of the authenticated user. The caller
// supplies the bearer token explicitly; the session manager guards against
// calling this without one.
func (c *Client) ChangePassword(ctx context.Context, accessToken, currentPassword, newPassword string, userID int) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/change-password", ChangePasswordRequest{
		CurrentPassword: currentPassword,
		NewPassword:     newPassword,
		UserID:          userID,
	}, nil, requestOptions{bearer: accessToken})
}
