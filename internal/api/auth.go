// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"

	"github.com/ksfoundation/ksf-web/internal/model"
)

// Credentials is the login payload. CaptchaToken carries the reCAPTCHA
// response the backend verifies server-side.
type Credentials struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	CaptchaToken string `json:"recaptcha_token,omitempty"`
}

// Registration is the public sign-up payload. Staff registration reuses it
// through RegisterStaff, which targets the staff endpoint where accounts
// await admin approval.
type Registration struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	MobileNumber  string `json:"mobile_number,omitempty"`
	VillageStreet string `json:"village_street,omitempty"`
	Upazilla      string `json:"upazilla,omitempty"`
	District      string `json:"district,omitempty"`
	Division      string `json:"division,omitempty"`
	Country       string `json:"country,omitempty"`
}

// Login exchanges credentials for a token pair. The endpoint is exempt from
// the expiry cascade so a bad password reads as a form error, not a logout.
func (c *Client) Login(ctx context.Context, creds Credentials) (model.TokenPair, error) {
	var pair model.TokenPair
	err := c.postJSON(ctx, "/auth/login/", creds, &pair)
	return pair, err
}

// Refresh exchanges a refresh token for a fresh access token.
func (c *Client) Refresh(ctx context.Context, refresh string) (model.TokenPair, error) {
	var pair model.TokenPair
	err := c.postJSON(ctx, "/auth/token/refresh/", map[string]string{"refresh": refresh}, &pair)
	if err == nil && pair.Refresh == "" {
		pair.Refresh = refresh
	}
	return pair, err
}

// Me fetches the authenticated user's profile. Exempt from the cascade:
// a 401 here is how the session layer probes token validity.
func (c *Client) Me(ctx context.Context) (model.User, error) {
	var u model.User
	err := c.get(ctx, "/auth/me/", nil, &u)
	return u, err
}

// UpdateProfile patches the caller's own profile. Pass a *Form to include a
// profile picture, or any JSON-marshalable payload otherwise.
func (c *Client) UpdateProfile(ctx context.Context, payload any) (model.User, error) {
	var u model.User
	var err error
	if f, ok := payload.(*Form); ok {
		err = c.patchForm(ctx, "/auth/me/", f, &u)
	} else {
		err = c.patchJSON(ctx, "/auth/me/", payload, &u)
	}
	return u, err
}

// Register creates a regular account. The backend sends the verification
// mail, so the response body carries only a confirmation detail.
func (c *Client) Register(ctx context.Context, reg Registration) error {
	return c.postJSON(ctx, "/auth/register/", reg, nil)
}

// RegisterStaff creates a staff account pending admin approval.
func (c *Client) RegisterStaff(ctx context.Context, reg Registration) error {
	return c.postJSON(ctx, "/auth/register/staff/", reg, nil)
}

// VerifyEmail confirms an address using the emailed token.
func (c *Client) VerifyEmail(ctx context.Context, token string) error {
	return c.postJSON(ctx, "/auth/verify-email/", map[string]string{"token": token}, nil)
}

// ResendVerification requests a fresh verification mail.
func (c *Client) ResendVerification(ctx context.Context, email string) error {
	return c.postJSON(ctx, "/auth/resend-verification/", map[string]string{"email": email}, nil)
}

// ChangePassword rotates the caller's password. The backend re-checks
// that next and confirm match, so both are sent through.
func (c *Client) ChangePassword(ctx context.Context, old, next, confirm string) error {
	payload := map[string]string{
		"old_password":     old,
		"new_password":     next,
		"confirm_password": confirm,
	}
	return c.patchJSON(ctx, "/auth/change-password/", payload, nil)
}

// RequestPasswordReset starts the forgot-password flow. The backend
// responds identically whether or not the address exists.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return c.postJSON(ctx, "/auth/password-reset/", map[string]string{"email": email}, nil)
}

// ConfirmPasswordReset completes the flow. The emailed link carries both
// the base64 user id and the one-time token, and the backend wants them
// alongside the new password pair.
func (c *Client) ConfirmPasswordReset(ctx context.Context, uid, token, password, confirm string) error {
	payload := map[string]string{
		"password":         password,
		"confirm_password": confirm,
		"token":            token,
		"uidb64":           uid,
	}
	return c.patchJSON(ctx, "/auth/password-reset-confirm/", payload, nil)
}

// DashboardStats fetches the admin dashboard aggregate counts.
func (c *Client) DashboardStats(ctx context.Context) (model.DashboardStats, error) {
	var stats model.DashboardStats
	err := c.get(ctx, "/auth/dashboard/stats/", nil, &stats)
	return stats, err
}

// Users returns the user-management resource. Listing supports ?search=
// over name and email plus a role filter.
func (c *Client) Users() Resource[model.User] {
	return NewResource[model.User](c, "/auth/manage/")
}

// ToggleStaff flips a user's approved-staff flag and returns the updated
// record.
func (c *Client) ToggleStaff(ctx context.Context, id int64) (model.User, error) {
	var u model.User
	err := c.Users().Do(ctx, id, "toggle-staff", &u)
	return u, err
}
