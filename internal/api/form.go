// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"sort"
)

// Form is a draft payload for create/edit submissions. It serializes as
// multipart/form-data when it carries a file part, which is how the content
// API expects image and attachment fields.
type Form struct {
	values map[string]string
	files  []filePart
}

type filePart struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

// NewForm creates an empty form.
func NewForm() *Form {
	return &Form{values: make(map[string]string)}
}

// Set assigns a scalar field.
func (f *Form) Set(key, value string) *Form {
	f.values[key] = value
	return f
}

// SetBool assigns a boolean field in the backend's expected representation.
func (f *Form) SetBool(key string, value bool) *Form {
	if value {
		return f.Set(key, "true")
	}
	return f.Set(key, "false")
}

// SetInt assigns an integer field.
func (f *Form) SetInt(key string, value int64) *Form {
	return f.Set(key, fmt.Sprintf("%d", value))
}

// Get returns the current value of a scalar field.
func (f *Form) Get(key string) string {
	return f.values[key]
}

// HasFile reports whether the form carries at least one file part.
func (f *Form) HasFile() bool {
	return len(f.files) > 0
}

// addFilePart attaches raw bytes as a file field.
func (f *Form) addFilePart(field, filename, contentType string, data []byte) {
	f.files = append(f.files, filePart{
		field:       field,
		filename:    filename,
		contentType: contentType,
		data:        data,
	})
}

// Encode serializes the form as multipart/form-data and returns the body
// reader plus the Content-Type header value.
func (f *Form) Encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	// Deterministic field order keeps request bodies reproducible in tests.
	keys := make([]string, 0, len(f.values))
	for k := range f.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := w.WriteField(key, f.values[key]); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", key, err)
		}
	}

	for _, part := range f.files {
		fw, err := w.CreateFormFile(part.field, part.filename)
		if err != nil {
			return nil, "", fmt.Errorf("writing file %s: %w", part.field, err)
		}
		if _, err := fw.Write(part.data); err != nil {
			return nil, "", fmt.Errorf("writing file %s: %w", part.field, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
