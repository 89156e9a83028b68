package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/sutki/internal/economy"
	"github.com/talgya/sutki/internal/game"
	"github.com/talgya/sutki/internal/persistence"
)

type fakeHistory struct {
	recs []persistence.Record
	err  error
}

func (f fakeHistory) History(context.Context) ([]persistence.Record, error) {
	return f.recs, f.err
}

func newTestServer(t *testing.T) (*Server, *economy.State) {
	t.Helper()
	catalog := economy.DefaultCatalog()
	state := economy.NewState(catalog)
	clock := game.NewFakeClock(time.Date(2026, 1, 6, 15, 0, 0, 0, time.UTC))
	sess := game.NewSession(state, catalog, game.Options{Clock: clock})
	return &Server{Session: sess, AdminKey: "secret"}, state
}

func do(t *testing.T, h http.Handler, method, path, body string, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStatus(t *testing.T) {
	srv, state := newTestServer(t)
	state.Currency = 42

	rec := do(t, srv.Handler(), http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var v game.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, 42.0, v.Currency)
	assert.Equal(t, 5, v.Day)
	assert.Len(t, v.Units, 31)
}

func TestUnitsAndUpgrades(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/api/v1/units", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var units []game.UnitView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &units))
	assert.Len(t, units, 31)

	rec = do(t, h, http.MethodGet, "/api/v1/upgrades", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var ups []game.UpgradeView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ups))
	assert.Len(t, ups, len(economy.DefaultCatalog()))
}

func TestBuyUnit(t *testing.T) {
	srv, state := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, "/api/v1/buy/unit", `{"index": 5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var res commandResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Performed)
	require.NotNil(t, res.View)
	assert.Equal(t, 1, res.View.Units[5].Owned)
	assert.Equal(t, 1, state.Units[5].Owned)

	// Now broke: refused with a reason.
	rec = do(t, h, http.MethodPost, "/api/v1/buy/unit", `{"index": 6}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	res = commandResult{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.Performed)
	assert.Equal(t, economy.ErrInsufficientFunds.Error(), res.Reason)
}

func TestBuyBadRequests(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/v1/buy/unit", `nope`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/v1/buy/unit", `{}`).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/api/v1/buy/unit", `{"index": 31}`).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/api/v1/buy/upgrade", `{"index": -1}`).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodGet, "/api/v1/buy/unit", "").Code)
}

func TestPrestigeAndBoost(t *testing.T) {
	srv, state := newTestServer(t)
	h := srv.Handler()

	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodPost, "/api/v1/buy/boost", `{"index": 0}`).Code)
	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodPost, "/api/v1/prestige", "").Code)

	for i := 0; i < 30; i++ {
		state.Units[i].Owned = 2
	}
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/v1/prestige", "").Code)
	assert.InDelta(t, 1.0, state.PrestigeCurrency, 1e-12)
	assert.True(t, state.PrestigeUnlocked)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/v1/buy/boost", `{"index": 3}`).Code)
	assert.Equal(t, 1, state.Units[3].BoostLevel)
}

func TestResetRequiresAdmin(t *testing.T) {
	srv, state := newTestServer(t)
	state.Currency = 500
	h := srv.Handler()

	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodPost, "/api/v1/reset", "").Code)
	assert.Equal(t, http.StatusUnauthorized,
		do(t, h, http.MethodPost, "/api/v1/reset", "", "Authorization", "Bearer wrong").Code)
	assert.Equal(t, 500.0, state.Currency)

	rec := do(t, h, http.MethodPost, "/api/v1/reset", "", "Authorization", "Bearer secret")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, economy.StartCurrency, state.Currency)

	srv.AdminKey = ""
	assert.Equal(t, http.StatusForbidden,
		do(t, srv.Handler(), http.MethodPost, "/api/v1/reset", "", "Authorization", "Bearer ").Code)
}

func TestSaves(t *testing.T) {
	srv, _ := newTestServer(t)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, srv.Handler(), http.MethodGet, "/api/v1/saves", "").Code)

	srv.Saves = fakeHistory{recs: []persistence.Record{{SaveID: "b"}, {SaveID: "a"}}}
	rec := do(t, srv.Handler(), http.MethodGet, "/api/v1/saves", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var recs []persistence.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recs))
	require.Len(t, recs, 2)
	assert.Equal(t, "b", recs[0].SaveID)

	srv.Saves = fakeHistory{err: errors.New("boom")}
	assert.Equal(t, http.StatusInternalServerError, do(t, srv.Handler(), http.MethodGet, "/api/v1/saves", "").Code)
}

func TestSaveWithoutStore(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv.Handler(), http.MethodPost, "/api/v1/save", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCommandsAreRateLimited(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.Limiter = NewRateLimiter(0.001, 2)
	h := srv.Handler()

	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodPost, "/api/v1/prestige", "").Code)
	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodPost, "/api/v1/prestige", "").Code)
	rec := do(t, h, http.MethodPost, "/api/v1/prestige", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// Reads are not limited.
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/v1/status", "").Code)
}

func TestStream(t *testing.T) {
	srv, state := newTestServer(t)
	srv.StreamInterval = 10 * time.Millisecond
	state.Currency = 7
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	for i := 0; i < 2; i++ {
		var v game.View
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		require.NoError(t, conn.ReadJSON(&v))
		assert.Equal(t, 7.0, v.Currency)
	}
}

func TestStream_ListeningClientOutlivesPongWait(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.StreamInterval = 50 * time.Millisecond
	srv.pongWait = 200 * time.Millisecond
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The client never writes; its pongs to server pings are all that keeps
	// the connection alive.
	start := time.Now()
	for time.Since(start) < 5*srv.pongWait {
		var v game.View
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		require.NoError(t, conn.ReadJSON(&v), "stream died after %s", time.Since(start))
	}
}

func TestCORS(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.CORSOrigins = []string{" https://sutki.example "}
	h := srv.Handler()

	rec := do(t, h, http.MethodOptions, "/api/v1/buy/unit", "", "Origin", "https://sutki.example")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://sutki.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")

	rec = do(t, h, http.MethodGet, "/api/v1/status", "", "Origin", "http://localhost:5173")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(t, h, http.MethodGet, "/api/v1/status", "", "Origin", "https://evil.example")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
