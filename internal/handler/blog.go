// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ksfoundation/ksf-web/internal/api"
	"github.com/ksfoundation/ksf-web/internal/middleware"
	"github.com/ksfoundation/ksf-web/internal/model"
	"github.com/ksfoundation/ksf-web/internal/render"
	"github.com/ksfoundation/ksf-web/internal/session"
)

// BlogPerPage is the post list page size.
const BlogPerPage = 9

// CommentsInitial is how many comments a post shows before "show more".
const CommentsInitial = 10

// BlogHandler serves the public blog: the post list, post detail with
// comments, and comment posting/deletion for logged-in readers.
type BlogHandler struct {
	sessions *session.Store
	renderer *render.Renderer
}

// NewBlogHandler creates a new BlogHandler.
func NewBlogHandler(sessions *session.Store, renderer *render.Renderer) *BlogHandler {
	return &BlogHandler{sessions: sessions, renderer: renderer}
}

// BlogListData holds data for the post list template.
type BlogListData struct {
	Posts   []model.BlogPost
	Count   int
	Search  string
	Pages   int
	HasMore bool
}

// List handles GET /blog - the post list with search and load-more.
func (h *BlogHandler) List(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	q := api.Query{Search: search, PageSize: BlogPerPage}

	pages := pagesParam(r)
	posts, count, hasMore, err := fetchPages(r.Context(), h.client(r).Posts(), q, pages)
	if err != nil {
		handleAPIError(w, r, h.renderer, "/", err)
		return
	}

	data := BlogListData{
		Posts:   posts,
		Count:   count,
		Search:  search,
		Pages:   pages,
		HasMore: hasMore,
	}
	h.render(w, r, "public/blog_list", "Blog", data)
}

// BlogDetailData holds data for the post detail template.
type BlogDetailData struct {
	Post              model.BlogPost
	Comments          []model.Comment
	CommentsShown     int
	CommentsRemaining int
	CanComment        bool
	CommentError      string
}

// Detail handles GET /blog/{id} - one post with its comment thread. The
// read counter is bumped at most once per session per post.
func (h *BlogHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	client := h.client(r)
	post, err := client.Posts().Get(r.Context(), id)
	if err != nil {
		handleAPIError(w, r, h.renderer, "/blog", err)
		return
	}

	if !h.sessions.PostCounted(r.Context(), id) {
		if err := client.IncrementRead(r.Context(), id); err != nil {
			slog.Warn("incrementing read count failed",
				"category", "content", "post_id", id, "error", err)
		} else {
			post.ReadCount++
			h.sessions.MarkPostCounted(r.Context(), id)
		}
	}

	comments, err := client.PostComments(r.Context(), id)
	if err != nil {
		slog.Warn("loading comments failed",
			"category", "content", "post_id", id, "error", err)
	}

	shown := showParam(r, CommentsInitial, len(comments.Results))

	data := BlogDetailData{
		Post:              post,
		Comments:          comments.Results[:shown],
		CommentsShown:     shown,
		CommentsRemaining: len(comments.Results) - shown,
		CanComment:        middleware.GetUser(r) != nil,
	}
	h.render(w, r, "public/blog_detail", post.Title, data)
}

// CommentPost handles POST /blog/{id}/comments - adds a comment. Requires
// a logged-in session (enforced by the router).
func (h *BlogHandler) CommentPost(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	postURL := fmt.Sprintf("/blog/%d", id)
	if !parseFormOrRedirect(w, r, h.renderer, postURL) {
		return
	}

	text := strings.TrimSpace(r.FormValue("text"))
	if text == "" {
		flashError(w, r, h.renderer, postURL, "Comment cannot be empty.")
		return
	}

	_, err = h.client(r).Comments().Create(r.Context(), map[string]any{
		"post": id,
		"text": text,
	})
	if err != nil {
		handleAPIError(w, r, h.renderer, postURL, err)
		return
	}

	flashSuccess(w, r, h.renderer, postURL, "Comment posted.")
}

// CommentDelete handles POST /blog/{id}/comments/{commentID}/delete.
// Owners may delete their own comments; admins may delete any. The backend
// enforces the same rule; the check here only shapes the error message.
func (h *BlogHandler) CommentDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	postURL := fmt.Sprintf("/blog/%d", id)

	commentID, err := int64Param(r, "commentID")
	if err != nil {
		http.NotFound(w, r)
		return
	}

	client := h.client(r)
	comment, err := client.Comments().Get(r.Context(), commentID)
	if err != nil {
		handleAPIError(w, r, h.renderer, postURL, err)
		return
	}
	if !comment.CanModify(middleware.GetUser(r)) {
		flashError(w, r, h.renderer, postURL, "You can only delete your own comments.")
		return
	}

	if err := client.Comments().Delete(r.Context(), commentID); err != nil {
		handleAPIError(w, r, h.renderer, postURL, err)
		return
	}

	flashSuccess(w, r, h.renderer, postURL, "Comment deleted.")
}

// client returns the session-scoped API client for the request.
func (h *BlogHandler) client(r *http.Request) *api.Client {
	return h.sessions.Client(r.Context())
}

func (h *BlogHandler) render(w http.ResponseWriter, r *http.Request, name, title string, data any) {
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
