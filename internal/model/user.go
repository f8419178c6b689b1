// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the wire-format records exchanged with the content
// API, including User, Book, Notice, and the other managed entities.
package model

// User roles as reported by the content API.
const (
	RoleUser  = "USER"
	RoleStaff = "STAFF"
	RoleAdmin = "ADMIN"
)

// User represents the authenticated user record returned by /auth/me/.
type User struct {
	ID              int64   `json:"id"`
	Email           string  `json:"email"`
	FirstName       string  `json:"first_name"`
	LastName        string  `json:"last_name"`
	Role            string  `json:"role"`
	IsVerified      bool    `json:"is_verified"`
	IsApprovedStaff bool    `json:"is_approved_staff"`
	IsSuperuser     bool    `json:"is_superuser"`
	VillageStreet   *string `json:"village_street,omitempty"`
	Upazilla        *string `json:"upazilla,omitempty"`
	District        *string `json:"district,omitempty"`
	Division        *string `json:"division,omitempty"`
	Country         *string `json:"country,omitempty"`
	MobileNumber    *string `json:"mobile_number,omitempty"`
	ProfilePicture  *string `json:"profile_picture,omitempty"`
}

// DisplayName returns the user's full name, falling back to the email.
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Email
	}
}

// IsAdmin returns true if the user has the ADMIN role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsStaff returns true if the user holds an approved back-office role.
// Staff applicants awaiting approval act as regular users.
func (u User) IsStaff() bool {
	if u.Role == RoleAdmin {
		return true
	}
	return u.Role == RoleStaff && u.IsApprovedStaff
}

// HasRole reports whether the user's role is one of the given roles.
func (u User) HasRole(roles ...string) bool {
	for _, role := range roles {
		if u.Role == role {
			return true
		}
	}
	return false
}

// TokenPair is the access/refresh token pair issued on login.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	Role    string `json:"role,omitempty"`
	UserID  int64  `json:"user_id,omitempty"`
	Email   string `json:"email,omitempty"`
}

// DashboardStats is the aggregate counters block shown on the admin dashboard.
type DashboardStats struct {
	TotalUsers       int `json:"total_users"`
	AdminUsers       int `json:"admin_users"`
	StaffUsers       int `json:"staff_users"`
	RegularUsers     int `json:"regular_users"`
	TotalBooks       int `json:"total_books"`
	TotalBorrowed    int `json:"total_borrowed"`
	TotalReturned    int `json:"total_returned"`
	TotalMembers     int `json:"total_members"`
	TotalNotices     int `json:"total_notices"`
	TotalMessages    int `json:"total_messages"`
	UnreadMessages   int `json:"unread_messages"`
	TotalHealthCamps int `json:"total_health_camps"`
	TotalPosts       int `json:"total_posts"`
}
