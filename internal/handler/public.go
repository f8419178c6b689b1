// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler contains the HTTP handlers: the public site, the auth
// screens, and the admin back-office resource screens.
package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/ksfoundation/ksf-web/internal/api"
	"github.com/ksfoundation/ksf-web/internal/cache"
	"github.com/ksfoundation/ksf-web/internal/middleware"
	"github.com/ksfoundation/ksf-web/internal/model"
	"github.com/ksfoundation/ksf-web/internal/render"
	"github.com/ksfoundation/ksf-web/internal/session"
)

// CarouselInterval is the home carousel auto-advance interval handed to the
// front-end script.
const CarouselInterval = 5 * time.Second

// NoticesInitial is how many notices the board shows before "show more".
const NoticesInitial = 5

// publicCacheTTL bounds how stale the anonymous content pages may get.
const publicCacheTTL = 10 * time.Minute

// fallbackSlide is rendered when no active slides exist or the fetch fails:
// the home page never shows an empty carousel.
var fallbackSlide = model.CarouselSlide{
	Title:    "Serving the Community",
	Caption:  "Dedicated to education and health.",
	IsActive: true,
}

// PublicHandler serves the anonymous site: home, members, notices, the
// library catalog, health camps, and the vision page. All content reads go
// through short-lived caches so page loads rarely touch the backend.
type PublicHandler struct {
	sessions *session.Store
	renderer *render.Renderer

	slides  *cache.Typed[[]model.CarouselSlide]
	members *cache.Typed[[]model.Member]
	notices *cache.Typed[[]model.Notice]
	camps   *cache.Typed[[]model.HealthCamp]
}

// NewPublicHandler creates a new PublicHandler.
func NewPublicHandler(sessions *session.Store, renderer *render.Renderer, c cache.Cache) *PublicHandler {
	return &PublicHandler{
		sessions: sessions,
		renderer: renderer,
		slides:   cache.NewTyped[[]model.CarouselSlide](c, publicCacheTTL),
		members:  cache.NewTyped[[]model.Member](c, publicCacheTTL),
		notices:  cache.NewTyped[[]model.Notice](c, publicCacheTTL),
		camps:    cache.NewTyped[[]model.HealthCamp](c, publicCacheTTL),
	}
}

// HomeData holds data for the home page template.
type HomeData struct {
	Slides           []model.CarouselSlide
	CarouselMillis   int64
	Notices          []model.Notice
	NoticesShown     int
	NoticesRemaining int
	UpcomingCamps    []model.HealthCamp
}

// Home handles GET / - the carousel, notice board, and upcoming camps.
func (h *PublicHandler) Home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	slides := h.activeSlides(ctx)
	notices := h.activeNotices(ctx)
	camps := h.upcomingCamps(ctx, 3)

	shown := showParam(r, NoticesInitial, len(notices))

	data := HomeData{
		Slides:           slides,
		CarouselMillis:   CarouselInterval.Milliseconds(),
		Notices:          notices[:shown],
		NoticesShown:     shown,
		NoticesRemaining: len(notices) - shown,
		UpcomingCamps:    camps,
	}

	h.render(w, r, "public/home", "KS Foundation", data)
}

// Vision handles GET /vision - the static mission statement page.
func (h *PublicHandler) Vision(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "public/vision", "Our Vision", nil)
}

// MembersData holds data for the members page template.
type MembersData struct {
	Members []model.Member
}

// Members handles GET /members - the committee listing, ordered by position.
func (h *PublicHandler) Members(w http.ResponseWriter, r *http.Request) {
	members, err := h.members.GetOrFill(r.Context(), "public:members", func() (*[]model.Member, error) {
		page, err := h.sessions.Anonymous().Members().List(r.Context(), api.Query{})
		if err != nil {
			return nil, err
		}
		sort.SliceStable(page.Results, func(i, j int) bool {
			return page.Results[i].Order < page.Results[j].Order
		})
		return &page.Results, nil
	})
	if err != nil {
		handleAPIError(w, r, h.renderer, "/", err)
		return
	}

	h.render(w, r, "public/members", "Our Members", MembersData{Members: *members})
}

// NoticesData holds data for the notices page template.
type NoticesData struct {
	Notices   []model.Notice
	Shown     int
	Remaining int
}

// Notices handles GET /notices - the full notice board with show-more.
func (h *PublicHandler) Notices(w http.ResponseWriter, r *http.Request) {
	notices := h.activeNotices(r.Context())
	shown := showParam(r, NoticesInitial, len(notices))

	data := NoticesData{
		Notices:   notices[:shown],
		Shown:     shown,
		Remaining: len(notices) - shown,
	}
	h.render(w, r, "public/notices", "Notices", data)
}

// LibraryPerPage is the catalog page size requested from the backend.
const LibraryPerPage = 12

// LibraryData holds data for the public catalog template.
type LibraryData struct {
	Books      []model.Book
	Count      int
	Search     string
	Category   string
	Categories []string
	Status     string
	Pages      int
	HasMore    bool
}

// Library handles GET /library - the public catalog with search, category
// and availability filters, and cursor-driven load-more (?pages=N re-walks
// the cursor chain server-side).
func (h *PublicHandler) Library(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	category := r.URL.Query().Get("category")
	status := r.URL.Query().Get("status")

	q := api.Query{Search: search, PageSize: LibraryPerPage}
	if category != "" && category != "All" {
		q = q.WithFilter("category", category)
	}
	if status == "available" || status == "unavailable" {
		q = q.WithFilter("status", status)
	}

	pages := pagesParam(r)
	books, count, hasMore, err := fetchPages(r.Context(), h.sessions.Anonymous().Books(), q, pages)
	if err != nil {
		handleAPIError(w, r, h.renderer, "/", err)
		return
	}

	data := LibraryData{
		Books:      books,
		Count:      count,
		Search:     search,
		Category:   category,
		Categories: model.BookCategories,
		Status:     status,
		Pages:      pages,
		HasMore:    hasMore,
	}
	h.render(w, r, "public/library", "Library", data)
}

// HealthCampsData holds data for the health camps template.
type HealthCampsData struct {
	Upcoming  []model.HealthCamp
	Completed []model.HealthCamp
}

// HealthCamps handles GET /healthcamps - upcoming and past camps.
func (h *PublicHandler) HealthCamps(w http.ResponseWriter, r *http.Request) {
	camps, err := h.camps.GetOrFill(r.Context(), "public:camps", func() (*[]model.HealthCamp, error) {
		page, err := h.sessions.Anonymous().Camps().List(r.Context(), api.Query{})
		if err != nil {
			return nil, err
		}
		return &page.Results, nil
	})
	if err != nil {
		handleAPIError(w, r, h.renderer, "/", err)
		return
	}

	var data HealthCampsData
	for _, camp := range *camps {
		if camp.IsUpcoming() {
			data.Upcoming = append(data.Upcoming, camp)
		} else {
			data.Completed = append(data.Completed, camp)
		}
	}
	h.render(w, r, "public/healthcamps", "Health Camps", data)
}

// Warm pre-fills the public content caches, walking every page of each
// collection so the cached copies are complete. Run by the scheduler so
// the first visitor after a cache expiry does not pay the backend round
// trips.
func (h *PublicHandler) Warm(ctx context.Context) error {
	client := h.sessions.Anonymous()

	slides, err := collectAll(ctx, client.Carousel(), func(s model.CarouselSlide) int64 { return s.ID })
	if err != nil {
		return err
	}
	active := activeOnlySlides(slides)
	_ = h.slides.Set(ctx, "public:slides", &active)

	if notices, err := collectAll(ctx, client.Notices(), func(n model.Notice) int64 { return n.ID }); err == nil {
		active := activeOnlyNotices(notices)
		_ = h.notices.Set(ctx, "public:notices", &active)
	}
	if members, err := collectAll(ctx, client.Members(), func(m model.Member) int64 { return m.ID }); err == nil {
		sort.SliceStable(members, func(i, j int) bool { return members[i].Order < members[j].Order })
		_ = h.members.Set(ctx, "public:members", &members)
	}
	if camps, err := collectAll(ctx, client.Camps(), func(c model.HealthCamp) int64 { return c.ID }); err == nil {
		_ = h.camps.Set(ctx, "public:camps", &camps)
	}
	return nil
}

// EvictSlides drops the cached carousel after a back-office write.
func (h *PublicHandler) EvictSlides(ctx context.Context) {
	_ = h.slides.Delete(ctx, "public:slides")
}

// EvictNotices drops the cached notice board after a back-office write.
func (h *PublicHandler) EvictNotices(ctx context.Context) {
	_ = h.notices.Delete(ctx, "public:notices")
}

// EvictMembers drops the cached members listing after a back-office write.
func (h *PublicHandler) EvictMembers(ctx context.Context) {
	_ = h.members.Delete(ctx, "public:members")
}

// EvictCamps drops the cached camps listing after a back-office write.
func (h *PublicHandler) EvictCamps(ctx context.Context) {
	_ = h.camps.Delete(ctx, "public:camps")
}

// collectAll accumulates every page of a collection through a Manager.
func collectAll[T any](ctx context.Context, res api.Resource[T], idOf func(T) int64) ([]T, error) {
	m := api.NewManager(res, idOf)
	defer m.Close()

	if err := m.Refresh(ctx); err != nil {
		return nil, err
	}
	for m.HasMore() {
		if err := m.LoadMore(ctx); err != nil {
			return nil, err
		}
	}
	return m.Items(), nil
}

// activeSlides returns ordered active slides, or the fallback slide.
func (h *PublicHandler) activeSlides(ctx context.Context) []model.CarouselSlide {
	slides, err := h.slides.GetOrFill(ctx, "public:slides", func() (*[]model.CarouselSlide, error) {
		page, err := h.sessions.Anonymous().Carousel().List(ctx, api.Query{})
		if err != nil {
			return nil, err
		}
		active := activeOnlySlides(page.Results)
		return &active, nil
	})
	if err != nil || len(*slides) == 0 {
		return []model.CarouselSlide{fallbackSlide}
	}
	return *slides
}

func (h *PublicHandler) activeNotices(ctx context.Context) []model.Notice {
	notices, err := h.notices.GetOrFill(ctx, "public:notices", func() (*[]model.Notice, error) {
		page, err := h.sessions.Anonymous().Notices().List(ctx, api.Query{})
		if err != nil {
			return nil, err
		}
		active := activeOnlyNotices(page.Results)
		return &active, nil
	})
	if err != nil {
		return nil
	}
	return *notices
}

func (h *PublicHandler) upcomingCamps(ctx context.Context, limit int) []model.HealthCamp {
	camps, err := h.camps.GetOrFill(ctx, "public:camps", func() (*[]model.HealthCamp, error) {
		page, err := h.sessions.Anonymous().Camps().List(ctx, api.Query{})
		if err != nil {
			return nil, err
		}
		return &page.Results, nil
	})
	if err != nil {
		return nil
	}
	var upcoming []model.HealthCamp
	for _, camp := range *camps {
		if camp.IsUpcoming() {
			upcoming = append(upcoming, camp)
			if len(upcoming) == limit {
				break
			}
		}
	}
	return upcoming
}

func activeOnlySlides(slides []model.CarouselSlide) []model.CarouselSlide {
	active := make([]model.CarouselSlide, 0, len(slides))
	for _, s := range slides {
		if s.IsActive {
			active = append(active, s)
		}
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].Order < active[j].Order })
	return active
}

func activeOnlyNotices(notices []model.Notice) []model.Notice {
	active := make([]model.Notice, 0, len(notices))
	for _, n := range notices {
		if n.IsActive {
			active = append(active, n)
		}
	}
	return active
}

// render wraps the renderer with the request's user and path.
func (h *PublicHandler) render(w http.ResponseWriter, r *http.Request, name, title string, data any) {
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
