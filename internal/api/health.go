// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import "github.com/ksfoundation/ksf-web/internal/model"

// Camps returns the health-camp resource. Listing supports ?search= over
// name and location plus a status filter (upcoming, completed).
func (c *Client) Camps() Resource[model.HealthCamp] {
	return NewResource[model.HealthCamp](c, "/health/camps/")
}
