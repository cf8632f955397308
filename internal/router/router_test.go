package router

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"turtlecrossing/internal/config"
	"turtlecrossing/internal/db/dbtest"
	"turtlecrossing/internal/metrics"
	"turtlecrossing/internal/models"
	"turtlecrossing/internal/services"
	"turtlecrossing/internal/utils"
	"turtlecrossing/internal/voting"
)

const testTemplates = `
{{define "error.html"}}error: {{.Error}}{{end}}
{{define "story/list.html"}}{{range .Stories}}[{{.Title}} {{.Score}}]{{end}}{{end}}
{{define "story/detail.html"}}{{.Story.Title}}{{range .Flashes}} flash: {{.}}{{end}}{{range .Comments}} comment: {{.Text}}{{end}}{{end}}
{{define "story/create.html"}}create {{.Error}}{{end}}
{{define "auth/login.html"}}login {{.Error}}{{end}}
{{define "auth/register.html"}}register {{.Error}}{{end}}
{{define "user/public.html"}}{{.User.Username}} karma {{.User.Karma}}{{end}}
`

func init() {
	gin.SetMode(gin.TestMode)
}

type testApp struct {
	t      *testing.T
	router *gin.Engine
	db     *gorm.DB
	engine *voting.Engine
	clock  *clockwork.FakeClock
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	reg := prometheus.NewRegistry()
	gdb, engine := dbtest.NewSite(t, clock, voting.WithObserver(metrics.NewVotingMetrics(reg)))
	cache, err := utils.NewCache(50, clock)
	require.NoError(t, err)

	karma := services.NewKarmaService(gdb)
	karma.Attach(engine.Hooks())
	cfg := &config.Config{SiteURL: "https://turtles.example", VoteRatePerSecond: 100, VoteRateBurst: 100}

	r := gin.New()
	r.SetHTMLTemplate(template.Must(template.New("").Parse(testTemplates)))
	r.Use(sessions.Sessions("test_session", cookie.NewStore([]byte("secret"))))
	RegisterRoutes(r, Deps{
		Config:   cfg,
		DB:       gdb,
		Engine:   engine,
		Clock:    clock,
		Stories:  services.NewStoryService(gdb, engine, clock, cache, 24),
		Users:    services.NewUserService(gdb, clock),
		Karma:    karma,
		Registry: reg,
	})
	return &testApp{t: t, router: r, db: gdb, engine: engine, clock: clock}
}

// client keeps the session cookie of one browser.
type client struct {
	app     *testApp
	cookies map[string]*http.Cookie
}

func (a *testApp) client() *client {
	return &client{app: a, cookies: map[string]*http.Cookie{}}
}

func (cl *client) do(req *http.Request) *httptest.ResponseRecorder {
	for _, ck := range cl.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	cl.app.router.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		cl.cookies[ck.Name] = ck
	}
	return w
}

func (cl *client) get(path string) *httptest.ResponseRecorder {
	return cl.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (cl *client) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return cl.do(req)
}

func (cl *client) postJSON(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	return cl.do(req)
}

func (a *testApp) signup(username string) *client {
	a.t.Helper()
	cl := a.client()
	w := cl.post("/signup", url.Values{
		"username": {username},
		"email":    {username + "@example.com"},
		"password": {"hunter22"},
	})
	require.Equal(a.t, http.StatusFound, w.Code, w.Body.String())
	return cl
}

func (a *testApp) submit(cl *client, title, link string) uint {
	a.t.Helper()
	w := cl.post("/submit", url.Values{"title": {title}, "url": {link}})
	require.Equal(a.t, http.StatusFound, w.Code, w.Body.String())
	var id uint
	_, err := fmt.Sscanf(w.Header().Get("Location"), "/s/%d", &id)
	require.NoError(a.t, err)
	return id
}

type voteState struct {
	Up        int    `json:"up"`
	Down      int    `json:"down"`
	Direction int8   `json:"direction"`
	Reason    string `json:"reason"`
}

func decodeState(t *testing.T, w *httptest.ResponseRecorder) voteState {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var s voteState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	return s
}

func TestVotingFlow(t *testing.T) {
	app := newTestApp(t)
	alice := app.signup("alice")
	bob := app.signup("bob")

	id := app.submit(alice, "Turtles", "https://example.com/turtles")
	path := fmt.Sprintf("/vote/story/%d", id)

	state := decodeState(t, bob.postJSON(path, url.Values{"direction": {"1"}}))
	assert.Equal(t, voteState{Up: 2, Down: 0, Direction: 1}, state)

	state = decodeState(t, bob.postJSON(path, url.Values{"direction": {"-1"}}))
	assert.Equal(t, voteState{Up: 1, Down: 1, Direction: -1}, state)

	state = decodeState(t, bob.postJSON(path+"/remove", nil))
	assert.Equal(t, voteState{Up: 1, Down: 0}, state)

	// Removing again is a no-op
	state = decodeState(t, bob.postJSON(path+"/remove", nil))
	assert.Equal(t, 1, state.Up)

	assert.Contains(t, app.client().get("/").Body.String(), "[Turtles 1]")
}

func TestVoteRejectsBadInput(t *testing.T) {
	app := newTestApp(t)
	alice := app.signup("alice")
	id := app.submit(alice, "Turtles", "https://example.com/turtles")
	path := fmt.Sprintf("/vote/story/%d", id)

	assert.Equal(t, http.StatusBadRequest, alice.postJSON(path, url.Values{"direction": {"2"}}).Code)
	assert.Equal(t, http.StatusBadRequest, alice.postJSON(path, url.Values{"direction": {"1"}, "reason": {"Tasty"}}).Code)
	assert.Equal(t, http.StatusNotFound, alice.postJSON("/vote/poll/1", url.Values{"direction": {"1"}}).Code)
	assert.Equal(t, http.StatusNotFound, alice.postJSON("/vote/story/999", url.Values{"direction": {"1"}}).Code)

	// Comments take upvotes only
	w := alice.post(fmt.Sprintf("/s/%d/comment", id), url.Values{"text": {"nice"}})
	require.Equal(t, http.StatusFound, w.Code)
	var comment models.Comment
	require.NoError(t, app.db.First(&comment).Error)
	commentPath := fmt.Sprintf("/vote/comment/%d", comment.ID)
	assert.Equal(t, http.StatusBadRequest, alice.postJSON(commentPath, url.Values{"direction": {"-1"}}).Code)
	state := decodeState(t, alice.postJSON(commentPath, url.Values{"direction": {"1"}}))
	assert.Equal(t, 1, state.Up)
}

func TestVoteRequiresLogin(t *testing.T) {
	app := newTestApp(t)
	alice := app.signup("alice")
	id := app.submit(alice, "Turtles", "https://example.com/turtles")

	w := app.client().postJSON(fmt.Sprintf("/vote/story/%d", id), url.Values{"direction": {"1"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVoteFormRedirectsBack(t *testing.T) {
	app := newTestApp(t)
	alice := app.signup("alice")
	bob := app.signup("bob")
	id := app.submit(alice, "Turtles", "https://example.com/turtles")

	w := bob.post(fmt.Sprintf("/vote/story/%d", id), url.Values{"direction": {"1"}, "next": {fmt.Sprintf("/s/%d", id)}})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, fmt.Sprintf("/s/%d", id), w.Header().Get("Location"))

	// Karma shows on the profile
	assert.Contains(t, app.client().get("/u/alice").Body.String(), "alice karma 1")
}

func TestReasonsEndpointAndAdmin(t *testing.T) {
	app := newTestApp(t)
	alice := app.signup("alice")
	id := app.submit(alice, "Turtles", "https://example.com/turtles")
	reasonsPath := fmt.Sprintf("/vote/story/%d/reasons", id)

	var body struct {
		DownvotesAllowed bool `json:"downvotes_allowed"`
		Reasons          []struct {
			ID          uint   `json:"id"`
			Direction   int8   `json:"direction"`
			Reason      string `json:"reason"`
			Description string `json:"description"`
		} `json:"reasons"`
	}
	w := app.client().get(reasonsPath)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.DownvotesAllowed)
	require.Len(t, body.Reasons, 2)
	assert.Equal(t, "+1", body.Reasons[0].Description)

	// Only staff may edit reasons
	form := url.Values{"content_type": {"story"}, "direction": {"1"}, "reason": {"Insightful"}}
	assert.Equal(t, http.StatusForbidden, alice.postJSON("/admin/reasons", form).Code)

	require.NoError(t, app.db.Model(&models.User{}).Where("username = ?", "alice").Update("is_staff", true).Error)
	w = alice.postJSON("/admin/reasons", form)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, http.StatusBadRequest, alice.postJSON("/admin/reasons", form).Code)

	w = app.client().get(reasonsPath)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Reasons, 1)
	assert.Equal(t, "Insightful", body.Reasons[0].Reason)

	// The old blank reason is gone, the new one works
	votePath := fmt.Sprintf("/vote/story/%d", id)
	assert.Equal(t, http.StatusBadRequest, alice.postJSON(votePath, url.Values{"direction": {"1"}}).Code)
	state := decodeState(t, alice.postJSON(votePath, url.Values{"direction": {"1"}, "reason": {"Insightful"}}))
	assert.Equal(t, "Insightful", state.Reason)

	w = alice.postJSON(fmt.Sprintf("/admin/reasons/%d/delete", body.Reasons[0].ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, http.StatusNotFound, alice.postJSON(fmt.Sprintf("/admin/reasons/%d/delete", body.Reasons[0].ID), nil).Code)

	w = app.client().get(reasonsPath)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Reasons, 2)
}

func TestDuplicateSubmissionFlashes(t *testing.T) {
	app := newTestApp(t)
	alice := app.signup("alice")
	bob := app.signup("bob")

	first := app.submit(alice, "Turtles", "https://example.com/turtles")
	second := app.submit(bob, "Turtles again", "https://example.com/turtles")
	assert.Equal(t, first, second)

	body := bob.get(fmt.Sprintf("/s/%d", second)).Body.String()
	assert.Contains(t, body, "flash: This link was submitted recently")
	assert.NotContains(t, bob.get(fmt.Sprintf("/s/%d", second)).Body.String(), "flash:")
}

func TestLoginAndLogout(t *testing.T) {
	app := newTestApp(t)
	app.signup("alice")

	cl := app.client()
	w := cl.post("/login", url.Values{"username": {"alice"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = cl.post("/login", url.Values{"username": {"alice"}, "password": {"hunter22"}, "next": {"/submit"}})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/submit", w.Header().Get("Location"))
	assert.Equal(t, http.StatusOK, cl.get("/submit").Code)

	cl.get("/logout")
	assert.Equal(t, http.StatusFound, cl.get("/submit").Code)
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t)
	alice := app.signup("alice")
	app.submit(alice, "Turtles", "https://example.com/turtles")

	w := app.client().get("/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = app.client().get("/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `turtlecrossing_votes_recorded_total{action="add",content_type="story",result="success"} 1`)
}

func TestSitemapListsPublishedStories(t *testing.T) {
	app := newTestApp(t)
	alice := app.signup("alice")
	id := app.submit(alice, "Turtles", "https://example.com/turtles")
	hidden := app.submit(alice, "Hidden", "https://example.com/hidden")
	require.NoError(t, app.db.Model(&models.Story{}).Where("id = ?", hidden).Update("published", false).Error)

	w := app.client().get("/sitemap.xml")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "<loc>https://turtles.example/</loc>")
	assert.Contains(t, body, fmt.Sprintf("<loc>https://turtles.example/s/%d</loc>", id))
	assert.NotContains(t, body, fmt.Sprintf("/s/%d</loc>", hidden))
	assert.Contains(t, body, "<priority>0.8</priority>")

	robots := app.client().get("/robots.txt").Body.String()
	assert.Contains(t, robots, "Sitemap: https://turtles.example/sitemap.xml")
}
