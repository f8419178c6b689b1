// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Page is one page of a collection response. The content API returns either
// a bare JSON array or a {results, next, count} envelope depending on the
// endpoint; both shapes are decoded here, exhaustively, so call sites never
// sniff response bodies.
type Page[T any] struct {
	Results []T
	// Next is the opaque cursor (an absolute URL) for the following page.
	// Empty when pagination is exhausted or the endpoint is unpaginated.
	Next  string
	Count int
}

// HasNext reports whether a further page is available.
func (p Page[T]) HasNext() bool {
	return p.Next != ""
}

type pageEnvelope[T any] struct {
	Results []T     `json:"results"`
	Next    *string `json:"next"`
	Count   int     `json:"count"`
}

// UnmarshalJSON decodes either response shape.
func (p *Page[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return fmt.Errorf("empty collection response")
	}

	switch trimmed[0] {
	case '[':
		var results []T
		if err := json.Unmarshal(data, &results); err != nil {
			return fmt.Errorf("decoding array response: %w", err)
		}
		p.Results = results
		p.Next = ""
		p.Count = len(results)
		return nil
	case '{':
		var env pageEnvelope[T]
		if err := json.Unmarshal(data, &env); err != nil {
			return fmt.Errorf("decoding envelope response: %w", err)
		}
		p.Results = env.Results
		if env.Next != nil {
			p.Next = *env.Next
		} else {
			p.Next = ""
		}
		p.Count = env.Count
		if p.Count == 0 {
			p.Count = len(env.Results)
		}
		return nil
	default:
		return fmt.Errorf("unexpected collection response shape: %q", trimmed[0])
	}
}
