// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// HealthCamp is a free health-camp event listing.
type HealthCamp struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Location    string    `json:"location"`
	DateTime    time.Time `json:"date_time"`
	DoctorName  string    `json:"doctor_name"`
	Description string    `json:"description"`
	Image       *string   `json:"image,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsUpcoming reports whether the camp is scheduled in the future.
func (c HealthCamp) IsUpcoming() bool {
	return c.DateTime.After(time.Now())
}
