package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zachkp/resume-terminal/internal/analytics"
	"github.com/Zachkp/resume-terminal/internal/config"
	"github.com/Zachkp/resume-terminal/internal/resume"
	"github.com/Zachkp/resume-terminal/internal/sqlengine"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeStore struct {
	mu       sync.Mutex
	visits   []analytics.Visit
	queries  []analytics.QueryEvent
	cutoffs  []time.Time
	statsErr error
	pingErr  error
}

func (f *fakeStore) RecordVisit(_ context.Context, v analytics.Visit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visits = append(f.visits, v)
	return nil
}

func (f *fakeStore) RecordQuery(_ context.Context, q analytics.QueryEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return nil
}

func (f *fakeStore) Stats(_ context.Context, now time.Time) (*analytics.Stats, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return &analytics.Stats{
		TotalVisitors:  int64(len(f.visits)),
		TotalQueries:   int64(len(f.queries)),
		TopQueries:     []analytics.QueryCount{{Query: "SHOW TABLES;", Count: 4}},
		RecentVisitors: []analytics.Visit{{HashedIP: "feedface00000000", Path: "/", Time: now}},
		GeneratedAt:    now,
	}, nil
}

func (f *fakeStore) RecentQueries(context.Context, int) ([]analytics.QueryEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]analytics.QueryEvent(nil), f.queries...), nil
}

func (f *fakeStore) RecentVisitors(context.Context, int) ([]analytics.Visit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]analytics.Visit(nil), f.visits...), nil
}

func (f *fakeStore) Cleanup(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return 7, nil
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func testConfig() *config.Config {
	return &config.Config{
		Port:          8080,
		Mode:          gin.ReleaseMode,
		Format:        "table",
		Admin:         config.AdminConfig{Username: "admin", Password: "s3cret"},
		RateLimit:     config.RateLimitConfig{PerMinute: 60, Burst: 20},
		RetentionDays: 365,
		SMTP:          config.SMTPConfig{Host: "smtp.example.com", Port: "587"},
	}
}

type testServer struct {
	*server
	store  *fakeStore
	router http.Handler
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}
	doc, err := resume.Default()
	require.NoError(t, err)

	store := &fakeStore{}
	s, err := newServer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), doc, store)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC) }
	return &testServer{server: s, store: store, router: s.routes()}
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	if req.RemoteAddr == "" || req.RemoteAddr == "192.0.2.1:1234" {
		req.RemoteAddr = "203.0.113.9:5555"
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	ts.bg.Wait()
	return w
}

func (ts *testServer) get(path string) *httptest.ResponseRecorder {
	return ts.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (ts *testServer) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return ts.do(req)
}

func TestIndex(t *testing.T) {
	ts := newTestServer(t, nil)
	w := ts.get("/")
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "Bhavana K.")
	assert.Contains(t, body, "Welcome to Bhavana&#39;s SQL Terminal!")
	assert.Contains(t, body, "Disease Prediction Model")
	assert.Contains(t, body, `hx-get="/projects/3"`)
	assert.Contains(t, body, "Feature Engineering")
}

func TestFragments(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.get("/work-content")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Northwind Analytics")
	assert.Contains(t, w.Body.String(), "<strong>")

	w = ts.get("/education-content")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "IBM Data Science Professional Certificate")

	w = ts.get("/contact-form")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `<option value="Hiring" selected>`)
}

func TestProjectDetail(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.get("/projects/2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Retail Sales Dashboard")
	assert.Contains(t, w.Body.String(), "Row-level security per region")

	for _, p := range []string{"/projects/0", "/projects/4", "/projects/abc"} {
		w = ts.get(p)
		assert.Equal(t, http.StatusNotFound, w.Code, p)
		assert.Contains(t, w.Body.String(), "Project not found", p)
	}
}

func TestTerminalQueryFragment(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.postForm("/terminal/query", url.Values{"query": {"SELECT name, proficiency FROM skills WHERE proficiency > 85;"}})
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "<th>name</th>")
	assert.Contains(t, body, "<td>Power BI</td>")
	assert.Contains(t, body, "3 row(s) returned")

	require.Len(t, ts.store.queries, 1)
	q := ts.store.queries[0]
	assert.Equal(t, "select", q.Kind)
	assert.True(t, q.Success)
	assert.Equal(t, 3, q.Rows)
	assert.Len(t, q.HashedIP, 16)
	assert.NotContains(t, q.HashedIP, "203.0.113.9")
	assert.NotEmpty(t, q.SessionID)

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookie {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.Equal(t, q.SessionID, session.Value)
}

func TestTerminalQueryMessages(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.postForm("/terminal/query", url.Values{"query": {"DROP TABLE skills;"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Error: Unsupported query.")

	w = ts.postForm("/terminal/query", url.Values{"query": {"SELECT * FROM skills WHERE proficiency > 100;"}})
	assert.Contains(t, w.Body.String(), "Query executed successfully. No rows returned.")

	w = ts.postForm("/terminal/query", url.Values{"query": {strings.Repeat("x", maxQueryLength+1)}})
	assert.Contains(t, w.Body.String(), "Error: Query too long")
	assert.Len(t, ts.store.queries, 2, "over-long queries are not evaluated or stored")
}

func TestTerminalQueryRespectsDNT(t *testing.T) {
	ts := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/terminal/query", strings.NewReader("query=SHOW+TABLES"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("DNT", "1")

	w := ts.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "certifications")
	assert.Empty(t, ts.store.queries)
}

func TestAPIQuery(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"query":"SELECT title FROM projects LIMIT 1;"}`))
	req.Header.Set("Content-Type", "application/json")
	w := ts.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":[{"title":"Disease Prediction Model"}],"message":"","columns":["title"]}`, w.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"query":""}`))
	req.Header.Set("Content-Type", "application/json")
	w = ts.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	var res sqlengine.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.False(t, res.Success)
	assert.Equal(t, "Empty query", res.Message)

	req = httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`not json`))
	req.Header.Set("Content-Type", "application/json")
	w = ts.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"code":400`)
}

func TestQueryRateLimit(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) { c.RateLimit = config.RateLimitConfig{PerMinute: 1, Burst: 2} })

	form := url.Values{"query": {"SHOW TABLES;"}}
	assert.Equal(t, http.StatusOK, ts.postForm("/terminal/query", form).Code)
	assert.Equal(t, http.StatusOK, ts.postForm("/terminal/query", form).Code)

	w := ts.postForm("/terminal/query", form)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"code":429,"message":"rate limit exceeded"}`, w.Body.String())

	assert.Equal(t, http.StatusOK, ts.get("/").Code, "pages are not rate limited")
}

func contactValues() url.Values {
	return url.Values{
		"name":        {"  Grace Hopper "},
		"email":       {"grace@example.com"},
		"subject":     {"Hello & welcome"},
		"inquiryType": {""},
		"message":     {"Line one\nLine two"},
	}
}

func TestContactSuccess(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.postForm("/contact", contactValues())
	require.Equal(t, http.StatusOK, w.Code)

	want := "mailto:hello@bhavana.example?subject=%5BHiring%5D%20Hello%20%26%20welcome" +
		"&body=Name%3A%20Grace%20Hopper%0AEmail%3A%20grace%40example.com%0A%0ALine%20one%0ALine%20two"
	assert.Equal(t, want, w.Header().Get("HX-Redirect"))
	assert.Contains(t, w.Body.String(), ContactSuccess)
}

func TestContactValidation(t *testing.T) {
	ts := newTestServer(t, nil)

	form := url.Values{
		"name":        {"   "},
		"email":       {"not-an-email"},
		"subject":     {strings.Repeat("s", 201)},
		"inquiryType": {"Spam"},
		"message":     {"hi"},
	}
	w := ts.postForm("/contact", form)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, ContactInvalid)
	assert.Contains(t, body, "Name is required (max 100 characters)")
	assert.Contains(t, body, "Valid email is required (max 255 characters)")
	assert.Contains(t, body, "Subject is required (max 200 characters)")
	assert.Contains(t, body, "Choose an inquiry type from the list")
	assert.NotContains(t, body, "Message is required")
	assert.Empty(t, w.Header().Get("HX-Redirect"))
}

func TestContactSendsMailWhenConfigured(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) {
		c.SMTP.User = "site@example.com"
		c.SMTP.Pass = "app-password"
	})

	var (
		addr string
		to   []string
		msg  string
	)
	ts.sendMail = func(a string, _ smtp.Auth, _ string, rcpt []string, m []byte) error {
		addr, to, msg = a, rcpt, string(m)
		return nil
	}

	form := contactValues()
	form.Set("subject", "Hi\r\nBcc: victim@example.com")
	w := ts.postForm("/contact", form)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "smtp.example.com:587", addr)
	assert.Equal(t, []string{"hello@bhavana.example"}, to)
	assert.Contains(t, msg, "Subject: Portfolio Contact: [Hiring] Hi  Bcc: victim@example.com\r\n")
	assert.Contains(t, msg, "Reply-To: grace@example.com\r\n")
	assert.Contains(t, msg, "Name: Grace Hopper")
}

func TestVisitorTracking(t *testing.T) {
	ts := newTestServer(t, nil)

	ts.get("/")
	ts.get("/work-content")
	ts.get("/static/site.css")
	ts.get("/privacy")
	ts.get("/healthz")

	dnt := httptest.NewRequest(http.MethodGet, "/", nil)
	dnt.Header.Set("DNT", "1")
	ts.do(dnt)

	require.Len(t, ts.store.visits, 2)
	assert.Equal(t, "/", ts.store.visits[0].Path)
	assert.Equal(t, "/work-content", ts.store.visits[1].Path)
	assert.Equal(t, ts.store.visits[0].HashedIP, ts.store.visits[1].HashedIP)
}

func TestStaticAndPrivacy(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.get("/static/terminal.js")
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.get("/privacy")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "older than 365 days")

	w = ts.get("/nowhere")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Page not found")
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, nil)
	w := ts.get("/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	ts.store.pingErr = assert.AnError
	w = ts.get("/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.postForm("/terminal/query", url.Values{"query": {"SHOW TABLES;"}})

	w := ts.get("/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `portfolio_terminal_queries_total{kind="show_tables",outcome="success"}`)
}

func TestAdminDisabledWithoutPassword(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) { c.Admin.Password = "" })
	assert.Equal(t, http.StatusNotFound, ts.get("/admin/login").Code)
	assert.Equal(t, http.StatusNotFound, ts.get("/admin/dashboard").Code)
}

func TestAdminDebugDefaultPassword(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) {
		c.Admin.Password = ""
		c.Mode = gin.DebugMode
	})
	require.NotNil(t, ts.admin)
	assert.True(t, ts.admin.check("admin", devAdminPassword))
}

func login(t *testing.T, ts *testServer) *http.Cookie {
	t.Helper()
	w := ts.postForm("/admin/login", url.Values{"username": {"admin"}, "password": {"s3cret"}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/dashboard", w.Header().Get("Location"))
	for _, c := range w.Result().Cookies() {
		if c.Name == adminCookie {
			return c
		}
	}
	t.Fatal("no admin cookie set")
	return nil
}

func TestAdminLogin(t *testing.T) {
	ts := newTestServer(t, nil)

	assert.Equal(t, http.StatusOK, ts.get("/admin/login").Code)

	w := ts.postForm("/admin/login", url.Values{"username": {"admin"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid credentials")

	w = ts.get("/admin/dashboard")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/login", w.Header().Get("Location"))

	cookie := login(t, ts)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/admin", cookie.Path)
}

func (ts *testServer) adminGet(path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.AddCookie(cookie)
	return ts.do(req)
}

func TestAdminPages(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.postForm("/terminal/query", url.Values{"query": {"DESCRIBE skills;"}})
	ts.get("/")
	cookie := login(t, ts)

	w := ts.adminGet("/admin/dashboard", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "SHOW TABLES;")
	assert.Contains(t, w.Body.String(), "feedface00000000")

	w = ts.adminGet("/admin/queries", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "DESCRIBE skills;")
	assert.Contains(t, w.Body.String(), "describe")

	w = ts.adminGet("/admin/visitors", cookie)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.adminGet("/admin/api/stats", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	var stats analytics.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.TotalQueries)

	w = ts.adminGet("/admin/export/stats", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "attachment; filename=portfolio-stats.json", w.Header().Get("Content-Disposition"))
}

func TestAdminStatsFailure(t *testing.T) {
	ts := newTestServer(t, nil)
	cookie := login(t, ts)
	ts.store.statsErr = assert.AnError

	w := ts.adminGet("/admin/dashboard", cookie)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to load statistics")

	w = ts.adminGet("/admin/api/stats", cookie)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}

func TestAdminPrivacyCleanup(t *testing.T) {
	ts := newTestServer(t, nil)
	cookie := login(t, ts)

	req := httptest.NewRequest(http.MethodPost, "/admin/privacy/cleanup", nil)
	req.AddCookie(cookie)
	w := ts.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Privacy cleanup complete","removed":7}`, w.Body.String())

	require.Len(t, ts.store.cutoffs, 1)
	assert.Equal(t, time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC), ts.store.cutoffs[0])
}

func TestEmphasis(t *testing.T) {
	assert.Equal(t, "Cut churn by <strong>12%</strong> &lt;fast&gt;", string(emphasis("Cut churn by **12%** <fast>")))
	assert.Equal(t, "a ** b", string(emphasis("a ** b")))
	assert.Equal(t, "<strong>x</strong> and **y", string(emphasis("**x** and **y")))
}

func TestMailtoLink(t *testing.T) {
	link := mailtoLink("me@example.com", contactForm{
		Name: "Ada", Email: "ada@example.com", Subject: "Chat?", InquiryType: "Other", Message: "50% sure",
	})
	assert.Equal(t, "mailto:me@example.com?subject=%5BOther%5D%20Chat%3F&body=Name%3A%20Ada%0AEmail%3A%20ada%40example.com%0A%0A50%25%20sure", link)
}

func TestBackgroundAfterStop(t *testing.T) {
	ts := newTestServer(t, nil)

	ran := make(chan struct{}, 1)
	ts.background("first", func(context.Context) error {
		ran <- struct{}{}
		return nil
	})
	ts.stopBackground()
	require.Len(t, ran, 1, "work submitted before stop completes")

	ts.background("late", func(context.Context) error {
		ran <- struct{}{}
		return nil
	})
	ts.bg.Wait()
	assert.Len(t, ran, 1, "work submitted after stop is dropped")

	w := ts.get("/")
	assert.Equal(t, http.StatusOK, w.Code, "requests still succeed while shutting down")
	assert.Empty(t, ts.store.visits)
}
