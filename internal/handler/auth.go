// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mileusna/useragent"

	"github.com/ksfoundation/ksf-web/internal/api"
	"github.com/ksfoundation/ksf-web/internal/middleware"
	"github.com/ksfoundation/ksf-web/internal/model"
	"github.com/ksfoundation/ksf-web/internal/render"
	"github.com/ksfoundation/ksf-web/internal/session"
)

// MaxUploadSize caps profile picture and attachment uploads before they
// are forwarded to the backend. Overridden from configuration at startup.
var MaxUploadSize int64 = 5 << 20

// AuthHandler serves login, logout, registration, email verification,
// password recovery, and the profile screens.
type AuthHandler struct {
	sessions   *session.Store
	renderer   *render.Renderer
	protection *middleware.LoginProtection
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(sessions *session.Store, renderer *render.Renderer, protection *middleware.LoginProtection) *AuthHandler {
	return &AuthHandler{sessions: sessions, renderer: renderer, protection: protection}
}

// LoginData holds data for the login template.
type LoginData struct {
	Email string
	Next  string
}

// LoginShow handles GET /login.
func (h *AuthHandler) LoginShow(w http.ResponseWriter, r *http.Request) {
	if h.sessions.LoggedIn(r.Context()) {
		http.Redirect(w, r, safeNext(r, "/"), http.StatusSeeOther)
		return
	}
	h.render(w, r, "auth/login", "Sign In", LoginData{Next: safeNext(r, "/")})
}

// LoginSubmit handles POST /login. IP throttling runs in the router
// middleware; per-account lockout is checked here so the message can name
// the wait time.
func (h *AuthHandler) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, "/login") {
		return
	}

	email := strings.ToLower(strings.TrimSpace(r.FormValue("email")))
	password := r.FormValue("password")
	next := safeNext(r, "")
	loginURL := "/login"
	if next != "" {
		loginURL = loginURLFor(r)
	}

	if email == "" || password == "" {
		flashError(w, r, h.renderer, loginURL, "Email and password are required.")
		return
	}

	if locked, remaining := h.protection.IsAccountLocked(email); locked {
		flashError(w, r, h.renderer, loginURL,
			fmt.Sprintf("Account temporarily locked. Try again in %s.", formatLockout(remaining)))
		return
	}

	_, err := h.sessions.Login(r.Context(), api.Credentials{
		Email:        email,
		Password:     password,
		CaptchaToken: r.FormValue("g-recaptcha-response"),
	})
	ua := useragent.Parse(r.UserAgent())
	if err != nil {
		lockedNow, lockFor := h.protection.RecordFailedAttempt(email)
		slog.Warn("login failed",
			"category", "auth", "email", email,
			"ip", middleware.GetClientIP(r),
			"browser", ua.Name, "os", ua.OS, "error", err)
		switch {
		case lockedNow:
			flashError(w, r, h.renderer, loginURL,
				fmt.Sprintf("Too many failed attempts. Account locked for %s.", formatLockout(lockFor)))
		case errors.Is(err, api.ErrCaptcha):
			flashError(w, r, h.renderer, loginURL, "Captcha verification failed. Please try again.")
		default:
			flashError(w, r, h.renderer, loginURL, "Invalid email or password.")
		}
		return
	}

	h.protection.RecordSuccessfulLogin(email)
	slog.Info("login succeeded",
		"category", "auth", "email", email,
		"ip", middleware.GetClientIP(r),
		"browser", ua.Name, "os", ua.OS)

	if next == "" {
		next = "/"
		if user, _ := h.sessions.FetchUser(r.Context()); user != nil && user.IsStaff() {
			next = "/admin"
		}
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// Logout handles POST /logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Logout(r.Context())
	flashSuccess(w, r, h.renderer, "/", "You have been signed out.")
}

// RegisterData holds data for the registration templates.
type RegisterData struct {
	Form   api.Registration
	Errors map[string]string
	Staff  bool
}

// RegisterShow handles GET /register.
func (h *AuthHandler) RegisterShow(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "auth/register", "Create Account", RegisterData{})
}

// RegisterSubmit handles POST /register.
func (h *AuthHandler) RegisterSubmit(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, false)
}

// StaffRegisterShow handles GET /register/staff - the staff application
// form. Accounts created here stay in the pending state until an admin
// approves them.
func (h *AuthHandler) StaffRegisterShow(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "auth/register", "Staff Application", RegisterData{Staff: true})
}

// StaffRegisterSubmit handles POST /register/staff.
func (h *AuthHandler) StaffRegisterSubmit(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, true)
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request, staff bool) {
	formURL := "/register"
	title := "Create Account"
	if staff {
		formURL = "/register/staff"
		title = "Staff Application"
	}
	if !parseFormOrRedirect(w, r, h.renderer, formURL) {
		return
	}

	reg := api.Registration{
		Email:         strings.ToLower(strings.TrimSpace(r.FormValue("email"))),
		Password:      r.FormValue("password"),
		FirstName:     strings.TrimSpace(r.FormValue("first_name")),
		LastName:      strings.TrimSpace(r.FormValue("last_name")),
		MobileNumber:  strings.TrimSpace(r.FormValue("mobile_number")),
		VillageStreet: strings.TrimSpace(r.FormValue("village_street")),
		Upazilla:      strings.TrimSpace(r.FormValue("upazilla")),
		District:      strings.TrimSpace(r.FormValue("district")),
		Division:      strings.TrimSpace(r.FormValue("division")),
		Country:       strings.TrimSpace(r.FormValue("country")),
	}

	if reg.Password != r.FormValue("confirm_password") {
		h.render(w, r, "auth/register", title, RegisterData{
			Form:   reg,
			Errors: map[string]string{"confirm_password": "Passwords do not match."},
			Staff:  staff,
		})
		return
	}

	var err error
	if staff {
		err = h.sessions.Anonymous().RegisterStaff(r.Context(), reg)
	} else {
		err = h.sessions.Anonymous().Register(r.Context(), reg)
	}
	if err != nil {
		if errs := fieldErrors(err); errs != nil {
			h.render(w, r, "auth/register", title, RegisterData{Form: reg, Errors: errs, Staff: staff})
			return
		}
		handleAPIError(w, r, h.renderer, formURL, err)
		return
	}

	slog.Info("account registered", "category", "auth", "email", reg.Email, "staff", staff)
	flashSuccess(w, r, h.renderer, "/login",
		"Account created. Check your email for a verification link.")
}

// VerifyEmail handles GET /verify-email?token=... from the email link.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		flashError(w, r, h.renderer, "/login", "Verification link is invalid.")
		return
	}
	if err := h.sessions.Anonymous().VerifyEmail(r.Context(), token); err != nil {
		flashError(w, r, h.renderer, "/login", "Verification link is invalid or has expired.")
		return
	}
	flashSuccess(w, r, h.renderer, "/login", "Email verified. You can sign in now.")
}

// ResendVerification handles POST /resend-verification. The response does
// not reveal whether the address exists.
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, "/login") {
		return
	}
	email := strings.ToLower(strings.TrimSpace(r.FormValue("email")))
	if email != "" {
		if err := h.sessions.Anonymous().ResendVerification(r.Context(), email); err != nil {
			slog.Warn("resending verification failed", "category", "auth", "error", err)
		}
	}
	flashSuccess(w, r, h.renderer, "/login",
		"If the address is registered, a new verification email is on its way.")
}

// ForgotShow handles GET /forgot-password.
func (h *AuthHandler) ForgotShow(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "auth/forgot_password", "Forgot Password", nil)
}

// ForgotSubmit handles POST /forgot-password. Same non-disclosure rule as
// ResendVerification.
func (h *AuthHandler) ForgotSubmit(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, "/forgot-password") {
		return
	}
	email := strings.ToLower(strings.TrimSpace(r.FormValue("email")))
	if email != "" {
		if err := h.sessions.Anonymous().RequestPasswordReset(r.Context(), email); err != nil {
			slog.Warn("password reset request failed", "category", "auth", "error", err)
		}
	}
	flashSuccess(w, r, h.renderer, "/login",
		"If the address is registered, a reset link is on its way.")
}

// ResetData holds data for the reset-password template.
type ResetData struct {
	UID   string
	Token string
}

// ResetShow handles GET /password-reset/{uid}/{token}, the link the
// backend mails out.
func (h *AuthHandler) ResetShow(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	token := chi.URLParam(r, "token")
	if uid == "" || token == "" {
		flashError(w, r, h.renderer, "/login", "Reset link is invalid.")
		return
	}
	h.render(w, r, "auth/reset_password", "Reset Password", ResetData{UID: uid, Token: token})
}

// ResetSubmit handles POST /password-reset/{uid}/{token}.
func (h *AuthHandler) ResetSubmit(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, "/forgot-password") {
		return
	}
	uid := chi.URLParam(r, "uid")
	token := chi.URLParam(r, "token")
	password := r.FormValue("password")
	confirm := r.FormValue("confirm_password")
	if uid == "" || token == "" || password == "" {
		flashError(w, r, h.renderer, "/forgot-password", "Reset link is invalid.")
		return
	}
	if password != confirm {
		flashError(w, r, h.renderer, "/password-reset/"+uid+"/"+token, "Passwords do not match.")
		return
	}
	if err := h.sessions.Anonymous().ConfirmPasswordReset(r.Context(), uid, token, password, confirm); err != nil {
		flashError(w, r, h.renderer, "/forgot-password", "Reset link is invalid or has expired.")
		return
	}
	flashSuccess(w, r, h.renderer, "/login", "Password updated. Sign in with your new password.")
}

// ProfileData holds data for the profile template.
type ProfileData struct {
	Profile *model.User
	Errors  map[string]string
}

// ProfileShow handles GET /profile.
func (h *AuthHandler) ProfileShow(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "auth/profile", "My Profile", ProfileData{Profile: middleware.GetUser(r)})
}

// ProfileUpdate handles POST /profile. A picture upload switches the
// request to multipart; otherwise a JSON patch is sent. The cached identity
// is replaced with the backend's response so the header updates immediately.
func (h *AuthHandler) ProfileUpdate(w http.ResponseWriter, r *http.Request) {
	if err := parseUpload(r); err != nil {
		flashError(w, r, h.renderer, "/profile", "Invalid form submission.")
		return
	}

	form := api.NewForm().
		Set("first_name", strings.TrimSpace(r.FormValue("first_name"))).
		Set("last_name", strings.TrimSpace(r.FormValue("last_name"))).
		Set("mobile_number", strings.TrimSpace(r.FormValue("mobile_number"))).
		Set("village_street", strings.TrimSpace(r.FormValue("village_street"))).
		Set("upazilla", strings.TrimSpace(r.FormValue("upazilla"))).
		Set("district", strings.TrimSpace(r.FormValue("district"))).
		Set("division", strings.TrimSpace(r.FormValue("division"))).
		Set("country", strings.TrimSpace(r.FormValue("country")))

	if file, header, err := r.FormFile("profile_picture"); err == nil {
		defer func() { _ = file.Close() }()
		if err := form.AddImage("profile_picture", header.Filename, file, MaxUploadSize); err != nil {
			msg := "Uploading the picture failed."
			switch {
			case errors.Is(err, api.ErrUploadTooLarge):
				msg = "The picture is too large. The maximum file size that can be uploaded is 5MB."
			case errors.Is(err, api.ErrUnsupportedImage):
				msg = "Unsupported image format. Use JPEG or PNG."
			}
			flashError(w, r, h.renderer, "/profile", msg)
			return
		}
	}

	user, err := h.sessions.Client(r.Context()).UpdateProfile(r.Context(), form)
	if err != nil {
		if errs := fieldErrors(err); errs != nil {
			h.render(w, r, "auth/profile", "My Profile", ProfileData{
				Profile: middleware.GetUser(r),
				Errors:  errs,
			})
			return
		}
		handleAPIError(w, r, h.renderer, "/profile", err)
		return
	}

	h.sessions.SetUser(r.Context(), &user)
	slog.Info("profile updated", "category", "user", "user_id", user.ID)
	flashSuccess(w, r, h.renderer, "/profile", "Profile updated.")
}

// ChangePassword handles POST /profile/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, "/profile") {
		return
	}

	old := r.FormValue("old_password")
	next := r.FormValue("new_password")
	confirm := r.FormValue("confirm_password")
	if old == "" || next == "" {
		flashError(w, r, h.renderer, "/profile", "Both current and new password are required.")
		return
	}
	if next != confirm {
		flashError(w, r, h.renderer, "/profile", "Passwords do not match.")
		return
	}

	if err := h.sessions.Client(r.Context()).ChangePassword(r.Context(), old, next, confirm); err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
			flashError(w, r, h.renderer, "/profile", "Current password is incorrect.")
			return
		}
		handleAPIError(w, r, h.renderer, "/profile", err)
		return
	}

	slog.Info("password changed", "category", "user", "ip", middleware.GetClientIP(r))
	flashSuccess(w, r, h.renderer, "/profile", "Password changed.")
}

// formatLockout rounds a lockout duration to a friendly unit.
func formatLockout(d time.Duration) string {
	if d < time.Minute {
		return "less than a minute"
	}
	minutes := int(d.Round(time.Minute) / time.Minute)
	if minutes < 60 {
		return fmt.Sprintf("%d minutes", minutes)
	}
	return fmt.Sprintf("%.0f hours", d.Round(time.Hour).Hours())
}

func (h *AuthHandler) render(w http.ResponseWriter, r *http.Request, name, title string, data any) {
	err := h.renderer.Render(w, r, name, render.TemplateData{
		Title: title,
		User:  middleware.GetUser(r),
		Path:  r.URL.Path,
		Data:  data,
	})
	if err != nil {
		logAndInternalError(w, "rendering page failed", "template", name, "error", err)
	}
}
