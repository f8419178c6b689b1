// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"io"
	"io/fs"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/ksfoundation/ksf-web/internal/api"
	"github.com/ksfoundation/ksf-web/internal/cache"
	"github.com/ksfoundation/ksf-web/internal/logging"
	"github.com/ksfoundation/ksf-web/internal/middleware"
	"github.com/ksfoundation/ksf-web/internal/render"
	"github.com/ksfoundation/ksf-web/internal/session"
	"github.com/ksfoundation/ksf-web/internal/version"
	"github.com/ksfoundation/ksf-web/web"
)

// fakeBackend is an httptest-backed stand-in for the content API. Routes
// are registered per test; every request is recorded as "METHOD path".
type fakeBackend struct {
	mu    sync.Mutex
	calls []string
	mux   *http.ServeMux
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{mux: http.NewServeMux()}
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.calls = append(b.calls, r.Method+" "+r.URL.Path)
	b.mu.Unlock()
	b.mux.ServeHTTP(w, r)
}

func (b *fakeBackend) handle(pattern string, fn http.HandlerFunc) {
	b.mux.HandleFunc(pattern, fn)
}

// countCalls returns how many recorded calls match the "METHOD path" prefix.
func (b *fakeBackend) countCalls(prefix string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, call := range b.calls {
		if strings.HasPrefix(call, prefix) {
			n++
		}
	}
	return n
}

func jsonResponse(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func emptyPage() http.HandlerFunc {
	return jsonResponse(`{"count": 0, "next": null, "previous": null, "results": []}`)
}

// signedToken builds an HS256 token with the given expiry. Only the claims
// matter to the session store; the signing key does not.
func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	return token
}

// allowLogin registers /auth/login/ and /auth/me/ so credential submissions
// succeed with the given role.
func (b *fakeBackend) allowLogin(t *testing.T, role string, approved bool) {
	t.Helper()
	access := signedToken(t, time.Now().Add(time.Hour))
	b.handle("/auth/login/", jsonResponse(
		`{"access": "`+access+`", "refresh": "refresh-1", "role": "`+role+`", "user_id": 7}`))
	me := `{"id": 7, "email": "staff@ksf.org", "first_name": "Test", "last_name": "Staff", "role": "` + role + `", "is_verified": true`
	if approved {
		me += `, "is_approved_staff": true`
	}
	me += `}`
	b.handle("/auth/me/", jsonResponse(me))
}

// testApp runs the full middleware/routing chain against a fake backend,
// driven over HTTP with a cookie-jarred client so sessions behave like a
// browser's.
type testApp struct {
	t       *testing.T
	backend *fakeBackend
	server  *httptest.Server
	client  *http.Client
	public  *PublicHandler
}

func newTestApp(t *testing.T, backend *fakeBackend) *testApp {
	t.Helper()

	backendSrv := httptest.NewServer(backend)
	t.Cleanup(backendSrv.Close)

	sm := scs.New()
	sm.Lifetime = time.Hour

	apiClient := api.NewClient(backendSrv.URL)
	memCache := cache.NewMemoryCache(cache.MemoryCacheOptions{})
	sessions := session.NewStore(sm, apiClient, memCache)

	tmplFS, err := fs.Sub(web.Templates, "templates")
	require.NoError(t, err)
	renderer, err := render.New(render.Config{TemplatesFS: tmplFS, SessionManager: sm})
	require.NoError(t, err)

	protection := middleware.NewLoginProtection(middleware.LoginProtectionConfig{
		IPRateLimit:       1000,
		IPBurst:           1000,
		MaxFailedAttempts: 5,
		LockoutDuration:   time.Minute,
		AttemptWindow:     time.Minute,
	})

	publicH := NewPublicHandler(sessions, renderer, memCache)
	blogH := NewBlogHandler(sessions, renderer)
	contactH := NewContactHandler(sessions, renderer)
	authH := NewAuthHandler(sessions, renderer, protection)
	adminH := NewAdminHandler(sessions, renderer, logging.NewEventBuffer(50), version.Info{Version: "test"})
	screens := NewAdminScreens(sessions, renderer, publicH)

	r := chi.NewRouter()
	r.Use(sm.LoadAndSave)
	r.Use(middleware.LoadUser(sessions))

	r.Get("/", publicH.Home)
	r.Get("/members", publicH.Members)
	r.Get("/notices", publicH.Notices)
	r.Get("/library", publicH.Library)
	r.Get("/healthcamps", publicH.HealthCamps)
	r.Get("/blog", blogH.List)
	r.Get("/blog/{id}", blogH.Detail)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth())
		r.Post("/blog/{id}/comments", blogH.CommentPost)
		r.Post("/blog/{id}/comments/{commentID}/delete", blogH.CommentDelete)
	})
	r.Get("/contact", contactH.Show)
	r.Post("/contact", contactH.Submit)

	r.Get("/login", authH.LoginShow)
	r.Post("/login", authH.LoginSubmit)
	r.Post("/logout", authH.Logout)
	r.Get("/password-reset/{uid}/{token}", authH.ResetShow)
	r.Post("/password-reset/{uid}/{token}", authH.ResetSubmit)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth())
		r.Get("/profile", authH.ProfileShow)
		r.Post("/profile/password", authH.ChangePassword)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Auth())
		r.Use(middleware.RequireRole(StaffRoles...))
		r.Get("/", adminH.Dashboard)
		screens.Mount(r)
	})

	appSrv := httptest.NewServer(r)
	t.Cleanup(appSrv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testApp{
		t:       t,
		backend: backend,
		server:  appSrv,
		public:  publicH,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// get issues a GET without following redirects and returns the response
// plus its body.
func (a *testApp) get(path string) (*http.Response, string) {
	a.t.Helper()
	resp, err := a.client.Get(a.server.URL + path)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	return resp, string(body)
}

// postForm issues a form POST without following redirects.
func (a *testApp) postForm(path string, form url.Values) (*http.Response, string) {
	a.t.Helper()
	resp, err := a.client.PostForm(a.server.URL+path, form)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	return resp, string(body)
}

// login submits credentials and requires a successful redirect.
func (a *testApp) login(email, password string) *http.Response {
	a.t.Helper()
	resp, _ := a.postForm("/login", url.Values{
		"email":    {email},
		"password": {password},
	})
	require.Equal(a.t, http.StatusSeeOther, resp.StatusCode, "login did not redirect")
	return resp
}
