// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ksfoundation/ksf-web/internal/api"
	"github.com/ksfoundation/ksf-web/internal/middleware"
	"github.com/ksfoundation/ksf-web/internal/render"
	"github.com/ksfoundation/ksf-web/internal/session"
)

// AdminPerPage is the default back-office list page size.
const AdminPerPage = 20

// screenAction is a per-record operation beyond plain CRUD, mounted at
// POST /admin/{slug}/{id}/{action}.
type screenAction[T any] struct {
	// Run performs the action and returns the flash message shown after.
	Run func(ctx context.Context, client *api.Client, id int64) (string, error)
}

// screenConfig describes one managed collection.
type screenConfig[T any] struct {
	slug     string // URL segment and template prefix, e.g. "books"
	title    string // list page heading, e.g. "Books"
	singular string // flash noun, e.g. "Book"

	resource func(*api.Client) api.Resource[T]
	idOf     func(T) int64
	describe func(T) string // one-line label for the delete confirmation

	// decode turns the posted form into a backend payload (*api.Form for
	// multipart, anything else for JSON). A non-nil fieldErrs re-renders
	// the form inline without hitting the backend.
	decode func(r *http.Request) (payload any, fieldErrs map[string]string, err error)

	// formData supplies extra template data for the create/edit form
	// (select options and the like). Optional.
	formData func(ctx context.Context, client *api.Client) any

	filters  []string              // query params forwarded to the backend
	actions  map[string]screenAction[T]
	readOnly bool // no create/edit forms (messages, users)

	// afterWrite runs once after any successful create/update/delete or
	// action, used to evict derived public caches. Optional.
	afterWrite func(ctx context.Context)

	// extraRoutes mounts additional per-screen routes on the subrouter.
	extraRoutes func(r chi.Router)
}

// resourceScreen is the generic back-office screen: list with search,
// filters, and load-more; create/edit forms; a two-step delete; custom
// actions; and a JSON fragment feed for the live search box. All nine
// admin collections are instantiations of this one type.
type resourceScreen[T any] struct {
	cfg      screenConfig[T]
	sessions *session.Store
	renderer *render.Renderer
}

func newResourceScreen[T any](sessions *session.Store, renderer *render.Renderer, cfg screenConfig[T]) *resourceScreen[T] {
	return &resourceScreen[T]{cfg: cfg, sessions: sessions, renderer: renderer}
}

// Mount registers the screen's routes on an /admin subrouter.
func (s *resourceScreen[T]) Mount(r chi.Router) {
	r.Route("/"+s.cfg.slug, func(r chi.Router) {
		r.Get("/", s.List)
		r.Get("/data.json", s.ListJSON)
		if !s.cfg.readOnly {
			r.Get("/new", s.New)
			r.Post("/new", s.Create)
			r.Get("/{id}/edit", s.Edit)
			r.Post("/{id}/edit", s.Update)
		}
		r.Get("/{id}/delete", s.ConfirmDelete)
		r.Post("/{id}/delete", s.Delete)
		for name := range s.cfg.actions {
			r.Post("/{id}/"+name, s.action(name))
		}
		if s.cfg.extraRoutes != nil {
			s.cfg.extraRoutes(r)
		}
	})
}

func (s *resourceScreen[T]) basePath() string { return "/admin/" + s.cfg.slug }

// ScreenData holds data for a resource list template.
type ScreenData[T any] struct {
	Title   string
	Slug    string
	Items   []T
	Count   int
	Search  string
	Filters map[string]string
	Pages   int
	HasMore bool
	CanEdit bool
}

// query assembles the backend query from the request.
func (s *resourceScreen[T]) query(r *http.Request) (api.Query, map[string]string) {
	q := api.Query{Search: r.URL.Query().Get("search"), PageSize: AdminPerPage}
	active := make(map[string]string, len(s.cfg.filters))
	for _, name := range s.cfg.filters {
		if val := r.URL.Query().Get(name); val != "" {
			q = q.WithFilter(name, val)
			active[name] = val
		}
	}
	return q, active
}

// List handles GET /admin/{slug}.
func (s *resourceScreen[T]) List(w http.ResponseWriter, r *http.Request) {
	q, active := s.query(r)
	pages := pagesParam(r)

	items, count, hasMore, err := fetchPages(r.Context(), s.resource(r), q, pages)
	if err != nil {
		handleAPIError(w, r, s.renderer, "/admin", err)
		return
	}

	data := ScreenData[T]{
		Title:   s.cfg.title,
		Slug:    s.cfg.slug,
		Items:   items,
		Count:   count,
		Search:  q.Search,
		Filters: active,
		Pages:   pages,
		HasMore: hasMore,
		CanEdit: !s.cfg.readOnly,
	}
	s.render(w, r, "admin/"+s.cfg.slug, s.cfg.title, data)
}

// ListJSON handles GET /admin/{slug}/data.json - the feed behind the
// debounced live search box. Same query surface as List.
func (s *resourceScreen[T]) ListJSON(w http.ResponseWriter, r *http.Request) {
	q, _ := s.query(r)
	pages := pagesParam(r)

	items, count, hasMore, err := fetchPages(r.Context(), s.resource(r), q, pages)
	if err != nil {
		if api.IsUnauthorized(err) {
			writeJSONError(w, http.StatusUnauthorized, "Session expired")
			return
		}
		slog.Error("listing resource failed",
			"category", "api", "resource", s.cfg.slug, "error", err)
		writeJSONError(w, http.StatusBadGateway, "Loading "+s.cfg.title+" failed")
		return
	}

	writeJSONSuccess(w, map[string]any{
		"items":    items,
		"count":    count,
		"has_more": hasMore,
	})
}

// FormData holds data for a create/edit form template.
type FormData[T any] struct {
	Title  string
	Slug   string
	Item   *T   // nil on create
	IsEdit bool
	Extra  any  // per-screen select options etc.
	Errors map[string]string
}

// New handles GET /admin/{slug}/new.
func (s *resourceScreen[T]) New(w http.ResponseWriter, r *http.Request) {
	s.renderForm(w, r, FormData[T]{
		Title: "New " + s.cfg.singular,
		Slug:  s.cfg.slug,
		Extra: s.extra(r),
	})
}

// Create handles POST /admin/{slug}/new.
func (s *resourceScreen[T]) Create(w http.ResponseWriter, r *http.Request) {
	payload, fieldErrs, err := s.cfg.decode(r)
	if err != nil {
		flashError(w, r, s.renderer, s.basePath()+"/new", "Invalid form submission.")
		return
	}
	if fieldErrs != nil {
		s.renderForm(w, r, FormData[T]{
			Title: "New " + s.cfg.singular, Slug: s.cfg.slug,
			Extra: s.extra(r), Errors: fieldErrs,
		})
		return
	}

	item, err := s.resource(r).Create(r.Context(), payload)
	if err != nil {
		if errs := fieldErrors(err); errs != nil {
			s.renderForm(w, r, FormData[T]{
				Title: "New " + s.cfg.singular, Slug: s.cfg.slug,
				Extra: s.extra(r), Errors: errs,
			})
			return
		}
		handleAPIError(w, r, s.renderer, s.basePath(), err)
		return
	}

	s.wrote(r)
	slog.Info("resource created", "category", "content",
		"resource", s.cfg.slug, "id", s.cfg.idOf(item))
	flashSuccess(w, r, s.renderer, s.basePath(), s.cfg.singular+" created.")
}

// Edit handles GET /admin/{slug}/{id}/edit.
func (s *resourceScreen[T]) Edit(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	item, err := s.resource(r).Get(r.Context(), id)
	if err != nil {
		handleAPIError(w, r, s.renderer, s.basePath(), err)
		return
	}
	s.renderForm(w, r, FormData[T]{
		Title: "Edit " + s.cfg.singular, Slug: s.cfg.slug,
		Item: &item, IsEdit: true, Extra: s.extra(r),
	})
}

// Update handles POST /admin/{slug}/{id}/edit.
func (s *resourceScreen[T]) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	editURL := s.itemPath(id) + "/edit"

	payload, fieldErrs, err := s.cfg.decode(r)
	if err != nil {
		flashError(w, r, s.renderer, editURL, "Invalid form submission.")
		return
	}
	if fieldErrs != nil {
		s.renderFormWithItem(w, r, id, fieldErrs)
		return
	}

	item, err := s.resource(r).Update(r.Context(), id, payload)
	if err != nil {
		if errs := fieldErrors(err); errs != nil {
			s.renderFormWithItem(w, r, id, errs)
			return
		}
		handleAPIError(w, r, s.renderer, s.basePath(), err)
		return
	}

	s.wrote(r)
	slog.Info("resource updated", "category", "content",
		"resource", s.cfg.slug, "id", s.cfg.idOf(item))
	flashSuccess(w, r, s.renderer, s.basePath(), s.cfg.singular+" updated.")
}

// ConfirmData holds data for the shared delete confirmation template.
type ConfirmData struct {
	Title    string
	Slug     string
	Label    string
	DeleteTo string
	CancelTo string
}

// ConfirmDelete handles GET /admin/{slug}/{id}/delete - the confirmation
// page. Nothing is deleted until the form on it is posted.
func (s *resourceScreen[T]) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	item, err := s.resource(r).Get(r.Context(), id)
	if err != nil {
		handleAPIError(w, r, s.renderer, s.basePath(), err)
		return
	}
	s.render(w, r, "admin/confirm_delete", "Delete "+s.cfg.singular, ConfirmData{
		Title:    "Delete " + s.cfg.singular,
		Slug:     s.cfg.slug,
		Label:    s.cfg.describe(item),
		DeleteTo: s.itemPath(id) + "/delete",
		CancelTo: s.basePath(),
	})
}

// Delete handles POST /admin/{slug}/{id}/delete.
func (s *resourceScreen[T]) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := s.resource(r).Delete(r.Context(), id); err != nil {
		handleAPIError(w, r, s.renderer, s.basePath(), err)
		return
	}
	s.wrote(r)
	slog.Info("resource deleted", "category", "content",
		"resource", s.cfg.slug, "id", id)
	flashSuccess(w, r, s.renderer, s.basePath(), s.cfg.singular+" deleted.")
}

// action builds the handler for one custom per-record operation.
func (s *resourceScreen[T]) action(name string) http.HandlerFunc {
	act := s.cfg.actions[name]
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		msg, err := act.Run(r.Context(), s.client(r), id)
		if err != nil {
			handleAPIError(w, r, s.renderer, s.basePath(), err)
			return
		}
		s.wrote(r)
		slog.Info("resource action", "category", "content",
			"resource", s.cfg.slug, "action", name, "id", id)
		flashSuccess(w, r, s.renderer, s.basePath(), msg)
	}
}

func (s *resourceScreen[T]) renderFormWithItem(w http.ResponseWriter, r *http.Request, id int64, errs map[string]string) {
	item, err := s.resource(r).Get(r.Context(), id)
	if err != nil {
		handleAPIError(w, r, s.renderer, s.basePath(), err)
		return
	}
	s.renderForm(w, r, FormData[T]{
		Title: "Edit " + s.cfg.singular, Slug: s.cfg.slug,
		Item: &item, IsEdit: true, Extra: s.extra(r), Errors: errs,
	})
}

func (s *resourceScreen[T]) renderForm(w http.ResponseWriter, r *http.Request, data FormData[T]) {
	s.render(w, r, "admin/"+s.cfg.slug+"_form", data.Title, data)
}

func (s *resourceScreen[T]) extra(r *http.Request) any {
	if s.cfg.formData == nil {
		return nil
	}
	return s.cfg.formData(r.Context(), s.client(r))
}

func (s *resourceScreen[T]) wrote(r *http.Request) {
	if s.cfg.afterWrite != nil {
		s.cfg.afterWrite(r.Context())
	}
}

func (s *resourceScreen[T]) client(r *http.Request) *api.Client {
	return s.sessions.Client(r.Context())
}

func (s *resourceScreen[T]) resource(r *http.Request) api.Resource[T] {
	return s.cfg.resource(s.client(r))
}

func (s *resourceScreen[T]) itemPath(id int64) string {
	return s.basePath() + "/" + formatID(id)
}

func (s *resourceScreen[T]) render(w http.ResponseWriter, r *http.Request, name, title string, data any) {
	err := s.renderer.Render(w, r, name, render.TemplateData{
		Title: title,
		User:  middleware.GetUser(r),
		Path:  r.URL.Path,
		Data:  data,
	})
	if err != nil {
		logAndInternalError(w, "rendering page failed", "template", name, "error", err)
	}
}
