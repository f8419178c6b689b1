// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ksfoundation/ksf-web/internal/api"
	"github.com/ksfoundation/ksf-web/internal/middleware"
	"github.com/ksfoundation/ksf-web/internal/model"
	"github.com/ksfoundation/ksf-web/internal/render"
	"github.com/ksfoundation/ksf-web/internal/session"
)

// AdminScreens bundles the nine managed collections plus the book
// checkout flow. Route guarding (STAFF for most, ADMIN for users) happens
// in Mount.
type AdminScreens struct {
	sessions *session.Store
	renderer *render.Renderer
	public   *PublicHandler

	users    *resourceScreen[model.User]
	books    *resourceScreen[model.Book]
	loans    *resourceScreen[model.BorrowedBook]
	members  *resourceScreen[model.Member]
	notices  *resourceScreen[model.Notice]
	camps    *resourceScreen[model.HealthCamp]
	posts    *resourceScreen[model.BlogPost]
	slides   *resourceScreen[model.CarouselSlide]
	messages *resourceScreen[model.ContactMessage]
}

// NewAdminScreens wires the resource screens. public is used to evict the
// derived public-page caches after back-office writes.
func NewAdminScreens(sessions *session.Store, renderer *render.Renderer, public *PublicHandler) *AdminScreens {
	a := &AdminScreens{sessions: sessions, renderer: renderer, public: public}

	a.users = newResourceScreen(sessions, renderer, screenConfig[model.User]{
		slug: "users", title: "Users", singular: "User",
		resource: func(c *api.Client) api.Resource[model.User] { return c.Users() },
		idOf:     func(u model.User) int64 { return u.ID },
		describe: func(u model.User) string { return u.Email },
		readOnly: true,
		actions: map[string]screenAction[model.User]{
			"toggle-staff": {Run: func(ctx context.Context, c *api.Client, id int64) (string, error) {
				u, err := c.ToggleStaff(ctx, id)
				if err != nil {
					return "", err
				}
				if u.IsApprovedStaff {
					return u.Email + " approved as staff.", nil
				}
				return u.Email + " is no longer staff.", nil
			}},
		},
	})

	a.books = newResourceScreen(sessions, renderer, screenConfig[model.Book]{
		slug: "books", title: "Books", singular: "Book",
		resource: func(c *api.Client) api.Resource[model.Book] { return c.Books() },
		idOf:     func(b model.Book) int64 { return b.ID },
		describe: func(b model.Book) string { return b.Title + " (" + b.SerialNumber + ")" },
		filters:  []string{"category", "status"},
		decode:   decodeBookForm,
		formData: func(context.Context, *api.Client) any { return model.BookCategories },
		extraRoutes: func(r chi.Router) {
			r.Get("/{id}/checkout", a.CheckoutShow)
			r.Post("/{id}/checkout", a.CheckoutSubmit)
		},
	})

	a.loans = newResourceScreen(sessions, renderer, screenConfig[model.BorrowedBook]{
		slug: "loans", title: "Borrowed Books", singular: "Loan",
		resource: func(c *api.Client) api.Resource[model.BorrowedBook] { return c.BorrowedBooks() },
		idOf:     func(l model.BorrowedBook) int64 { return l.ID },
		describe: func(l model.BorrowedBook) string {
			return l.BookTitle + " lent to " + l.BorrowerName
		},
		filters: []string{"status"},
		decode:  decodeLoanForm,
		actions: map[string]screenAction[model.BorrowedBook]{
			"mark-returned": {Run: func(ctx context.Context, c *api.Client, id int64) (string, error) {
				if _, err := c.MarkReturned(ctx, id); err != nil {
					return "", err
				}
				return "Loan marked as returned.", nil
			}},
		},
	})

	a.members = newResourceScreen(sessions, renderer, screenConfig[model.Member]{
		slug: "members", title: "Members", singular: "Member",
		resource:   func(c *api.Client) api.Resource[model.Member] { return c.Members() },
		idOf:       func(m model.Member) int64 { return m.ID },
		describe:   func(m model.Member) string { return m.Name },
		decode:     decodeMemberForm,
		afterWrite: func(ctx context.Context) { public.EvictMembers(ctx) },
	})

	a.notices = newResourceScreen(sessions, renderer, screenConfig[model.Notice]{
		slug: "notices", title: "Notices", singular: "Notice",
		resource:   func(c *api.Client) api.Resource[model.Notice] { return c.Notices() },
		idOf:       func(n model.Notice) int64 { return n.ID },
		describe:   func(n model.Notice) string { return n.Title },
		decode:     decodeNoticeForm,
		afterWrite: func(ctx context.Context) { public.EvictNotices(ctx) },
	})

	a.camps = newResourceScreen(sessions, renderer, screenConfig[model.HealthCamp]{
		slug: "camps", title: "Health Camps", singular: "Health camp",
		resource:   func(c *api.Client) api.Resource[model.HealthCamp] { return c.Camps() },
		idOf:       func(h model.HealthCamp) int64 { return h.ID },
		describe:   func(h model.HealthCamp) string { return h.Title + " at " + h.Location },
		decode:     decodeCampForm,
		afterWrite: func(ctx context.Context) { public.EvictCamps(ctx) },
	})

	a.posts = newResourceScreen(sessions, renderer, screenConfig[model.BlogPost]{
		slug: "posts", title: "Blog Posts", singular: "Post",
		resource: func(c *api.Client) api.Resource[model.BlogPost] { return c.Posts() },
		idOf:     func(p model.BlogPost) int64 { return p.ID },
		describe: func(p model.BlogPost) string { return p.Title },
		decode:   decodePostForm,
	})

	a.slides = newResourceScreen(sessions, renderer, screenConfig[model.CarouselSlide]{
		slug: "slides", title: "Carousel", singular: "Slide",
		resource:   func(c *api.Client) api.Resource[model.CarouselSlide] { return c.Carousel() },
		idOf:       func(s model.CarouselSlide) int64 { return s.ID },
		describe:   func(s model.CarouselSlide) string { return s.Title },
		decode:     decodeSlideForm,
		afterWrite: func(ctx context.Context) { public.EvictSlides(ctx) },
	})

	a.messages = newResourceScreen(sessions, renderer, screenConfig[model.ContactMessage]{
		slug: "messages", title: "Contact Messages", singular: "Message",
		resource: func(c *api.Client) api.Resource[model.ContactMessage] { return c.ContactMessages() },
		idOf:     func(m model.ContactMessage) int64 { return m.ID },
		describe: func(m model.ContactMessage) string {
			return m.Subject + " from " + m.Name
		},
		filters:  []string{"is_read"},
		readOnly: true,
		actions: map[string]screenAction[model.ContactMessage]{
			"mark-read": {Run: func(ctx context.Context, c *api.Client, id int64) (string, error) {
				if _, err := c.MarkMessageRead(ctx, id); err != nil {
					return "", err
				}
				return "Message marked as read.", nil
			}},
		},
	})

	return a
}

// Mount registers all admin screens. Users management is additionally
// restricted to the ADMIN role.
func (a *AdminScreens) Mount(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(model.RoleAdmin))
		a.users.Mount(r)
	})
	a.books.Mount(r)
	a.loans.Mount(r)
	a.members.Mount(r)
	a.notices.Mount(r)
	a.camps.Mount(r)
	a.posts.Mount(r)
	a.slides.Mount(r)
	a.messages.Mount(r)
}

// CheckoutData holds data for the book checkout form.
type CheckoutData struct {
	Book   model.Book
	Errors map[string]string
}

// CheckoutShow handles GET /admin/books/{id}/checkout - the lend form.
func (a *AdminScreens) CheckoutShow(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	book, err := a.sessions.Client(r.Context()).Books().Get(r.Context(), id)
	if err != nil {
		handleAPIError(w, r, a.renderer, "/admin/books", err)
		return
	}
	a.renderCheckout(w, r, CheckoutData{Book: book})
}

// CheckoutSubmit handles POST /admin/books/{id}/checkout - creates the
// loan record against the selected book.
func (a *AdminScreens) CheckoutSubmit(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if !parseFormOrRedirect(w, r, a.renderer, "/admin/books") {
		return
	}

	borrower := strings.TrimSpace(r.FormValue("borrower_name"))
	borrowDate := r.FormValue("borrow_date")
	returnDate := r.FormValue("return_date")

	errs := map[string]string{}
	if borrower == "" {
		errs["borrower_name"] = "Borrower name is required."
	}
	if borrowDate == "" {
		errs["borrow_date"] = "Borrow date is required."
	}
	if returnDate == "" {
		errs["return_date"] = "Return date is required."
	}

	client := a.sessions.Client(r.Context())
	if len(errs) > 0 {
		book, err := client.Books().Get(r.Context(), id)
		if err != nil {
			handleAPIError(w, r, a.renderer, "/admin/books", err)
			return
		}
		a.renderCheckout(w, r, CheckoutData{Book: book, Errors: errs})
		return
	}

	_, err = client.BorrowedBooks().Create(r.Context(), map[string]any{
		"book":          id,
		"borrower_name": borrower,
		"borrow_date":   borrowDate,
		"return_date":   returnDate,
	})
	if err != nil {
		handleAPIError(w, r, a.renderer, fmt.Sprintf("/admin/books/%d/checkout", id), err)
		return
	}

	flashSuccess(w, r, a.renderer, "/admin/loans", "Book checked out to "+borrower+".")
}

func (a *AdminScreens) renderCheckout(w http.ResponseWriter, r *http.Request, data CheckoutData) {
	err := a.renderer.Render(w, r, "admin/checkout", render.TemplateData{
		Title: "Check Out Book",
		User:  middleware.GetUser(r),
		Path:  r.URL.Path,
		Data:  data,
	})
	if err != nil {
		logAndInternalError(w, "rendering page failed", "template", "admin/checkout", "error", err)
	}
}

// decodeBookForm builds the multipart payload for book create/update.
func decodeBookForm(r *http.Request) (any, map[string]string, error) {
	if err := parseUpload(r); err != nil {
		return nil, nil, err
	}

	errs := map[string]string{}
	title := strings.TrimSpace(r.FormValue("title"))
	author := strings.TrimSpace(r.FormValue("author"))
	serial := strings.TrimSpace(r.FormValue("serial_number"))
	if title == "" {
		errs["title"] = "Title is required."
	}
	if author == "" {
		errs["author"] = "Author is required."
	}
	if serial == "" {
		errs["serial_number"] = "Serial number is required."
	}
	if len(errs) > 0 {
		return nil, errs, nil
	}

	quantity := int64(1)
	if raw := r.FormValue("quantity"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			return nil, map[string]string{"quantity": "Quantity must be a non-negative number."}, nil
		}
		quantity = n
	}

	form := api.NewForm().
		Set("title", title).
		Set("bengali_title", strings.TrimSpace(r.FormValue("bengali_title"))).
		Set("author", author).
		Set("category", r.FormValue("category")).
		Set("serial_number", serial).
		Set("description", strings.TrimSpace(r.FormValue("description"))).
		SetBool("is_available", r.FormValue("is_available") != "").
		SetInt("quantity", quantity)

	if errs, err := attachImage(r, form, "cover_image"); errs != nil || err != nil {
		return nil, errs, err
	}
	return form, nil, nil
}

// decodeLoanForm builds the JSON payload for loan create/update.
func decodeLoanForm(r *http.Request) (any, map[string]string, error) {
	if err := r.ParseForm(); err != nil {
		return nil, nil, err
	}

	bookID, err := strconv.ParseInt(r.FormValue("book"), 10, 64)
	if err != nil {
		return nil, map[string]string{"book": "A book must be selected."}, nil
	}
	borrower := strings.TrimSpace(r.FormValue("borrower_name"))
	if borrower == "" {
		return nil, map[string]string{"borrower_name": "Borrower name is required."}, nil
	}

	return map[string]any{
		"book":          bookID,
		"borrower_name": borrower,
		"borrow_date":   r.FormValue("borrow_date"),
		"return_date":   r.FormValue("return_date"),
	}, nil, nil
}

// decodeMemberForm builds the multipart payload for member create/update.
func decodeMemberForm(r *http.Request) (any, map[string]string, error) {
	if err := parseUpload(r); err != nil {
		return nil, nil, err
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		return nil, map[string]string{"name": "Name is required."}, nil
	}
	order := int64(0)
	if raw := r.FormValue("order"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, map[string]string{"order": "Order must be a number."}, nil
		}
		order = n
	}

	form := api.NewForm().
		Set("name", name).
		Set("designation", strings.TrimSpace(r.FormValue("designation"))).
		Set("bio", strings.TrimSpace(r.FormValue("bio"))).
		Set("contact_number", strings.TrimSpace(r.FormValue("contact_number"))).
		Set("email", strings.TrimSpace(r.FormValue("email"))).
		SetInt("order", order)

	if errs, err := attachImage(r, form, "image"); errs != nil || err != nil {
		return nil, errs, err
	}
	return form, nil, nil
}

// decodeNoticeForm builds the multipart payload for notice create/update.
// Notices may carry an arbitrary attachment, not just images.
func decodeNoticeForm(r *http.Request) (any, map[string]string, error) {
	if err := parseUpload(r); err != nil {
		return nil, nil, err
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		return nil, map[string]string{"title": "Title is required."}, nil
	}

	form := api.NewForm().
		Set("title", title).
		Set("content", strings.TrimSpace(r.FormValue("content"))).
		SetBool("is_active", r.FormValue("is_active") != "")

	if file, header, err := r.FormFile("attachment"); err == nil {
		defer func() { _ = file.Close() }()
		if err := form.AddAttachment("attachment", header.Filename, file, MaxUploadSize); err != nil {
			if errors.Is(err, api.ErrUploadTooLarge) {
				return nil, map[string]string{"attachment": "The file is too large. The maximum file size that can be uploaded is 5MB."}, nil
			}
			return nil, nil, err
		}
	}
	return form, nil, nil
}

// decodeCampForm builds the multipart payload for health camp create/update.
func decodeCampForm(r *http.Request) (any, map[string]string, error) {
	if err := parseUpload(r); err != nil {
		return nil, nil, err
	}

	errs := map[string]string{}
	title := strings.TrimSpace(r.FormValue("title"))
	location := strings.TrimSpace(r.FormValue("location"))
	dateTime := r.FormValue("date_time")
	if title == "" {
		errs["title"] = "Title is required."
	}
	if location == "" {
		errs["location"] = "Location is required."
	}
	if dateTime == "" {
		errs["date_time"] = "Date and time are required."
	}
	if len(errs) > 0 {
		return nil, errs, nil
	}

	form := api.NewForm().
		Set("title", title).
		Set("location", location).
		Set("date_time", dateTime).
		Set("doctor_name", strings.TrimSpace(r.FormValue("doctor_name"))).
		Set("description", strings.TrimSpace(r.FormValue("description")))

	if errs, err := attachImage(r, form, "image"); errs != nil || err != nil {
		return nil, errs, err
	}
	return form, nil, nil
}

// decodePostForm builds the multipart payload for blog post create/update.
func decodePostForm(r *http.Request) (any, map[string]string, error) {
	if err := parseUpload(r); err != nil {
		return nil, nil, err
	}

	errs := map[string]string{}
	title := strings.TrimSpace(r.FormValue("title"))
	content := strings.TrimSpace(r.FormValue("content"))
	if title == "" {
		errs["title"] = "Title is required."
	}
	if content == "" {
		errs["content"] = "Content is required."
	}
	if len(errs) > 0 {
		return nil, errs, nil
	}

	form := api.NewForm().
		Set("title", title).
		Set("content", content).
		Set("author_name", strings.TrimSpace(r.FormValue("author_name")))

	if errs, err := attachImage(r, form, "image"); errs != nil || err != nil {
		return nil, errs, err
	}
	return form, nil, nil
}

// decodeSlideForm builds the multipart payload for carousel create/update.
func decodeSlideForm(r *http.Request) (any, map[string]string, error) {
	if err := parseUpload(r); err != nil {
		return nil, nil, err
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		return nil, map[string]string{"title": "Title is required."}, nil
	}
	order := int64(0)
	if raw := r.FormValue("order"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, map[string]string{"order": "Order must be a number."}, nil
		}
		order = n
	}

	form := api.NewForm().
		Set("title", title).
		Set("caption", strings.TrimSpace(r.FormValue("caption"))).
		SetBool("is_active", r.FormValue("is_active") != "").
		SetInt("order", order)

	if errs, err := attachImage(r, form, "image"); errs != nil || err != nil {
		return nil, errs, err
	}
	return form, nil, nil
}

// attachImage adds an optional image part from the posted form, turning
// upload-validation failures into field errors.
func attachImage(r *http.Request, form *api.Form, field string) (map[string]string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil // no file posted
	}
	defer func() { _ = file.Close() }()

	if err := form.AddImage(field, header.Filename, file, MaxUploadSize); err != nil {
		switch {
		case errors.Is(err, api.ErrUploadTooLarge):
			return map[string]string{field: "The image is too large. The maximum file size that can be uploaded is 5MB."}, nil
		case errors.Is(err, api.ErrUnsupportedImage):
			return map[string]string{field: "Unsupported image format. Use JPEG or PNG."}, nil
		}
		return nil, err
	}
	return nil, nil
}
