package site

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makstark/studio-web/internal/backend"
	"github.com/makstark/studio-web/internal/content"
	"github.com/makstark/studio-web/internal/datastore"
	portfolio "github.com/makstark/studio-web/internal/portfolio/domain"
	"github.com/makstark/studio-web/internal/session"
	"github.com/makstark/studio-web/internal/web"
)

type fakeAuth struct {
	loginErr error
	meErr    error
	token    string
	profile  backend.Profile
	meCalls  int
}

func (f *fakeAuth) Login(_ context.Context, email, password string) (*backend.LoginResponse, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &backend.LoginResponse{AccessToken: f.token, TokenType: "bearer"}, nil
}

func (f *fakeAuth) Me(_ context.Context, token string) (*backend.Profile, error) {
	f.meCalls++
	if f.meErr != nil {
		return nil, f.meErr
	}
	p := f.profile
	return &p, nil
}

type fakeCards struct{ n int }

func (f fakeCards) Cards(context.Context) ([]portfolio.Card, error) {
	return make([]portfolio.Card, f.n), nil
}

type fakeStore struct {
	total    int64
	recent   []datastore.Project
	profile  *datastore.Profile
	settings map[string]any
	saved    map[string]any
	err      error
}

func (f *fakeStore) CountProjects(context.Context) (int64, error) { return f.total, f.err }

func (f *fakeStore) ListProjects(context.Context, int) ([]datastore.Project, error) {
	return f.recent, f.err
}

func (f *fakeStore) GetProfile(_ context.Context, id string) (*datastore.Profile, error) {
	if f.profile == nil || f.profile.ID != id {
		return nil, datastore.ErrNotFound
	}
	return f.profile, nil
}

func (f *fakeStore) GetSettings(context.Context, string) (map[string]any, error) {
	if f.settings == nil {
		return nil, datastore.ErrNotFound
	}
	return f.settings, nil
}

func (f *fakeStore) UpdateSettings(_ context.Context, _ string, s map[string]any) error {
	f.saved = s
	return f.err
}

type fixture struct {
	router   *gin.Engine
	sessions *session.Manager
	auth     *fakeAuth
	handler  *Handler
	torn     []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	catalog, err := content.Load()
	require.NoError(t, err)
	tmpl, err := web.Templates()
	require.NoError(t, err)

	fx := &fixture{auth: &fakeAuth{token: "opaque-token", profile: backend.Profile{Username: "admin", Role: "owner"}}}
	fx.sessions = session.NewManager(client, time.Hour, false)
	fx.sessions.OnTeardown(func(_ context.Context, sid string) error {
		fx.torn = append(fx.torn, sid)
		return nil
	})
	fx.handler = New(catalog, fx.auth, fx.sessions, fakeCards{n: 2}, log)

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.Use(fx.sessions.Middleware(log))
	fx.handler.RegisterPublic(r)
	fx.handler.RegisterDashboard(r.Group("/dashboard", session.RequireAuth(loginPath), fx.handler.Shell()))
	r.NoRoute(fx.handler.NotFound)
	fx.router = r
	return fx
}

func (fx *fixture) login(t *testing.T) *session.State {
	t.Helper()
	st := fx.sessions.NewState()
	require.NoError(t, fx.sessions.Authenticate(context.Background(), st, fx.auth.token))
	return st
}

func (fx *fixture) do(method, path string, form url.Values, st *session.State) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if st != nil {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: st.ID})
	}
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)
	return w
}

func TestPublicPagesRender(t *testing.T) {
	fx := newFixture(t)
	for path, want := range map[string]string{
		"/":         "Mak Stark",
		"/about":    "Our team",
		"/services": "Services",
		"/contact":  "Send on WhatsApp",
		"/login":    "Operator login",
	} {
		w := fx.do(http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Body.String(), want, path)
	}
}

func TestUnknownPathRedirectsHome(t *testing.T) {
	fx := newFixture(t)
	w := fx.do(http.MethodGet, "/no/such/page", nil, nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestWhatsAppLink(t *testing.T) {
	link := WhatsAppLink("+91 98765 43210", "Hi there & welcome")
	assert.Equal(t, "https://wa.me/919876543210?text=Hi%20there%20%26%20welcome", link)
}

func TestContact(t *testing.T) {
	fx := newFixture(t)

	t.Run("missing message", func(t *testing.T) {
		w := fx.do(http.MethodPost, "/contact", url.Values{"name": {"Asha"}}, nil)
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/contact?error=Please+enter+your+name+and+message", w.Header().Get("Location"))
	})

	t.Run("redirects to whatsapp", func(t *testing.T) {
		w := fx.do(http.MethodPost, "/contact", url.Values{
			"name":    {"Asha"},
			"email":   {"asha@example.com"},
			"service": {"Studio"},
			"message": {"Need a wedding shoot"},
		}, nil)
		assert.Equal(t, http.StatusSeeOther, w.Code)

		loc, err := url.Parse(w.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "wa.me", loc.Host)
		assert.Equal(t, "/919876543210", loc.Path)
		assert.Equal(t, "Hi! I'm Asha (asha@example.com).\nService: Studio\nNeed a wedding shoot", loc.Query().Get("text"))
	})
}

func TestLogin(t *testing.T) {
	t.Run("backend rejection carries its detail", func(t *testing.T) {
		fx := newFixture(t)
		fx.auth.loginErr = &backend.HTTPError{StatusCode: http.StatusUnauthorized, Detail: "Incorrect email or password"}

		w := fx.do(http.MethodPost, "/login", url.Values{"email": {"a@b.c"}, "password": {"x"}}, nil)
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/login?error=Incorrect+email+or+password", w.Header().Get("Location"))
	})

	t.Run("transport failure uses the generic message", func(t *testing.T) {
		fx := newFixture(t)
		fx.auth.loginErr = errors.New("dial tcp: connection refused")

		w := fx.do(http.MethodPost, "/login", url.Values{"email": {"a@b.c"}, "password": {"x"}}, nil)
		assert.Equal(t, "/login?error=Invalid+email+or+password", w.Header().Get("Location"))
	})

	t.Run("blank credentials never reach the backend", func(t *testing.T) {
		fx := newFixture(t)
		fx.auth.loginErr = errors.New("must not be called")

		w := fx.do(http.MethodPost, "/login", url.Values{"email": {" "}}, nil)
		assert.Equal(t, "/login?error=Please+enter+your+email+and+password", w.Header().Get("Location"))
	})

	t.Run("success stores the token", func(t *testing.T) {
		fx := newFixture(t)
		w := fx.do(http.MethodPost, "/login", url.Values{"email": {"a@b.c"}, "password": {"x"}}, nil)
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/dashboard", w.Header().Get("Location"))

		var sid string
		for _, c := range w.Result().Cookies() {
			if c.Name == session.CookieName {
				sid = c.Value
			}
		}
		require.NotEmpty(t, sid)
		st, err := fx.sessions.Load(context.Background(), sid)
		require.NoError(t, err)
		assert.True(t, st.Authenticated)
		assert.Equal(t, "opaque-token", st.Token)
		assert.Empty(t, fx.torn)
	})

	t.Run("relogin tears down the previous session", func(t *testing.T) {
		fx := newFixture(t)
		old := fx.login(t)

		w := fx.do(http.MethodPost, "/login", url.Values{"email": {"a@b.c"}, "password": {"x"}}, old)
		assert.Equal(t, "/dashboard", w.Header().Get("Location"))
		assert.Equal(t, []string{old.ID}, fx.torn)

		_, err := fx.sessions.Load(context.Background(), old.ID)
		assert.ErrorIs(t, err, session.ErrNotFound)

		for _, c := range w.Result().Cookies() {
			if c.Name == session.CookieName {
				assert.NotEqual(t, old.ID, c.Value)
			}
		}
	})

	t.Run("failed relogin keeps the current session", func(t *testing.T) {
		fx := newFixture(t)
		fx.auth.loginErr = errors.New("dial tcp: connection refused")
		old := fx.login(t)

		fx.do(http.MethodPost, "/login", url.Values{"email": {"a@b.c"}, "password": {"x"}}, old)
		assert.Empty(t, fx.torn)
		_, err := fx.sessions.Load(context.Background(), old.ID)
		assert.NoError(t, err)
	})

	t.Run("logged-in operators skip the form", func(t *testing.T) {
		fx := newFixture(t)
		w := fx.do(http.MethodGet, "/login", nil, fx.login(t))
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/dashboard", w.Header().Get("Location"))
	})
}

func TestLogout_TearsDownSession(t *testing.T) {
	fx := newFixture(t)
	st := fx.login(t)

	w := fx.do(http.MethodPost, "/logout", nil, st)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	assert.Equal(t, []string{st.ID}, fx.torn)

	_, err := fx.sessions.Load(context.Background(), st.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestDashboard(t *testing.T) {
	t.Run("requires login", func(t *testing.T) {
		fx := newFixture(t)
		w := fx.do(http.MethodGet, "/dashboard", nil, nil)
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/login", w.Header().Get("Location"))
	})

	t.Run("sample stats without a store", func(t *testing.T) {
		fx := newFixture(t)
		st := fx.login(t)
		w := fx.do(http.MethodGet, "/dashboard", nil, st)
		assert.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, "156")
		assert.Contains(t, body, "admin")
		assert.Contains(t, body, "sample figures")
		assert.Equal(t, 1, fx.auth.meCalls)

		stored, err := fx.sessions.Load(context.Background(), st.ID)
		require.NoError(t, err)
		assert.Equal(t, "admin", stored.Username)
		assert.Equal(t, "owner", stored.Role)
	})

	t.Run("live stats from the store", func(t *testing.T) {
		fx := newFixture(t)
		fx.handler.WithStore(&fakeStore{total: 7, recent: []datastore.Project{
			{Name: "Tech Summit", ClientName: "Acme", Amount: "50000", CreatedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		}})
		w := fx.do(http.MethodGet, "/dashboard", nil, fx.login(t))
		assert.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, "Tech Summit")
		assert.Contains(t, body, "01 Mar 2025")
		assert.NotContains(t, body, "sample figures")
	})

	t.Run("expired token logs out", func(t *testing.T) {
		fx := newFixture(t)
		fx.auth.meErr = &backend.HTTPError{StatusCode: http.StatusUnauthorized}
		st := fx.login(t)

		w := fx.do(http.MethodGet, "/dashboard", nil, st)
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "/login?error="))
		assert.Equal(t, []string{st.ID}, fx.torn)
	})

	t.Run("other /me failures keep the session", func(t *testing.T) {
		fx := newFixture(t)
		fx.auth.meErr = errors.New("timeout")
		w := fx.do(http.MethodGet, "/dashboard", nil, fx.login(t))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, fx.torn)
	})
}

func TestSettings(t *testing.T) {
	fx := newFixture(t)
	store := &fakeStore{profile: &datastore.Profile{ID: "admin", Username: "admin", FullName: "Mak Admin", Role: "owner"}}
	fx.handler.WithStore(store)
	st := fx.login(t)

	w := fx.do(http.MethodGet, "/dashboard/settings", nil, st)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Mak Admin")
	assert.Contains(t, w.Body.String(), "hello@makstark.com")

	w = fx.do(http.MethodPost, "/dashboard/settings", url.Values{
		"companyName": {"Mak Stark Studios"},
		"email":       {"studio@makstark.com"},
		"phone":       {"+91 90000 00000"},
		"address":     {"Kolkata"},
	}, st)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/dashboard/settings?notice=Settings+saved+successfully%21", w.Header().Get("Location"))
	assert.Equal(t, "Mak Stark Studios", store.saved["companyName"])
	assert.Equal(t, "Kolkata", store.saved["address"])
}

func TestSettings_NoStore(t *testing.T) {
	fx := newFixture(t)
	st := fx.login(t)

	w := fx.do(http.MethodGet, "/dashboard/settings", nil, st)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Settings are unavailable")

	w = fx.do(http.MethodPost, "/dashboard/settings", url.Values{"companyName": {"x"}}, st)
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "/dashboard/settings?error="))
}
