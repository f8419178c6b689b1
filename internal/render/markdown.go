// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"bytes"
	"html/template"
	"log/slog"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// htmlSanitizer strips dangerous markup from rendered content. Blog posts
// and notices come from the backend, but staff accounts author them, so
// they are treated as user-generated content.
var htmlSanitizer = bluemonday.UGCPolicy()

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// RenderMarkdown converts markdown to sanitized HTML for template embedding.
// On conversion failure the raw text is returned escaped rather than lost.
func RenderMarkdown(source string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		slog.Warn("markdown conversion failed", "category", "content", "error", err)
		return template.HTML(template.HTMLEscapeString(source)) //nolint:gosec // escaped above
	}
	return template.HTML(htmlSanitizer.SanitizeBytes(buf.Bytes())) //nolint:gosec // sanitized above
}
