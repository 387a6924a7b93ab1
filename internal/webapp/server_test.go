package webapp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildgate/guildgate-bot/internal/securebox"
	"github.com/guildgate/guildgate-bot/internal/storage"
)

func testStore(t *testing.T) *storage.Store {
	t.Helper()

	cipher, err := securebox.New([]byte("facade-test-secret"))
	require.NoError(t, err)

	store := storage.New(filepath.Join(t.TempDir(), "state.bin"), cipher, nil)
	require.NoError(t, store.Load())
	return store
}

func serve(t *testing.T, store *storage.Store, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	router := NewRouter(store, nil, nil)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestPendingApplicationsEndpoint(t *testing.T) {
	store := testStore(t)
	_, err := store.Submit(storage.SubmitRequest{UserID: 1, FullName: "Ada", Answer: "let me in"})
	require.NoError(t, err)

	rec := serve(t, store, http.MethodGet, "/api/applications/pending", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var apps []storage.Application
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apps))
	require.Len(t, apps, 1)
	assert.Equal(t, int64(1), apps[0].UserID)
}

func TestApplicationStatusEndpoint(t *testing.T) {
	store := testStore(t)
	_, err := store.Submit(storage.SubmitRequest{UserID: 7, FullName: "Ada", Answer: "hi"})
	require.NoError(t, err)

	rec := serve(t, store, http.MethodGet, "/api/applications/7/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var entry storage.HistoryEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	assert.Equal(t, "pending", string(entry.Status))
}

func TestApplicationStatusNotFound(t *testing.T) {
	rec := serve(t, testStore(t), http.MethodGet, "/api/applications/99/status", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApplicationStatusRejectsBadID(t *testing.T) {
	rec := serve(t, testStore(t), http.MethodGet, "/api/applications/abc/status", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminLifecycleEndpoints(t *testing.T) {
	store := testStore(t)

	rec := serve(t, store, http.MethodPost, "/api/admins", `{"user_id":5,"username":"ada","full_name":"Ada Lovelace"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"added":true}`, rec.Body.String())

	rec = serve(t, store, http.MethodGet, "/api/admins", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var admins []storage.AdminProfile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &admins))
	require.Len(t, admins, 1)
	assert.Equal(t, "ada", admins[0].Username)

	rec = serve(t, store, http.MethodDelete, "/api/admins/5", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, store, http.MethodDelete, "/api/admins/5", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddAdminRejectsMissingUserID(t *testing.T) {
	rec := serve(t, testStore(t), http.MethodPost, "/api/admins", `{"username":"ada"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLeaderboardEndpoint(t *testing.T) {
	store := testStore(t)
	_, err := store.AddXP(-100, 1, 5)
	require.NoError(t, err)
	_, err = store.AddXP(-100, 2, 15)
	require.NoError(t, err)

	rec := serve(t, store, http.MethodGet, "/api/xp?chat_id=-100&limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []storage.LeaderboardEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, int64(2), entries[0].UserID)
}

func TestLeaderboardRequiresChatID(t *testing.T) {
	rec := serve(t, testStore(t), http.MethodGet, "/api/xp", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCupsEndpoint(t *testing.T) {
	store := testStore(t)
	require.NoError(t, store.AddCup(-100, "Spring Cup", "Monthly quiz", []string{"alice"}))

	rec := serve(t, store, http.MethodGet, "/api/cups?chat_id=-100", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var cups []storage.Cup
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cups))
	require.Len(t, cups, 1)
	assert.Equal(t, "Spring Cup", cups[0].Title)
}

func TestInsightsEndpoint(t *testing.T) {
	store := testStore(t)
	_, err := store.Submit(storage.SubmitRequest{UserID: 3, FullName: "Ada", Answer: "hello"})
	require.NoError(t, err)

	rec := serve(t, store, http.MethodGet, "/api/applications/insights", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats storage.Statistics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Total)
}

func TestHealthEndpointWithoutChecker(t *testing.T) {
	rec := serve(t, testStore(t), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(t, testStore(t), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestCorrelationIDHeader(t *testing.T) {
	rec := serve(t, testStore(t), http.MethodGet, "/api/admins", "")
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
}
