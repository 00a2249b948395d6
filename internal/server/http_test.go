package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanonone/wikihop/pkg/search"
	"github.com/sanonone/wikihop/pkg/table"
)

func newTestServer(t *testing.T, token string) *httptest.Server {
	t.Helper()
	store := table.NewMemory()
	store.Set("Bedford", table.Page("Paul Singer (businessman)", "X"))
	store.Set("Bedfordshire", table.RedirectTo("Bedford"))
	store.Set("Paul Singer (businessman)", table.Page("Elliott Management"))
	store.Set("Elliott Management", table.Page())

	eng, err := search.New(store, search.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)

	s, err := NewServer(eng, "", token, nil)
	require.NoError(t, err)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Shutdown(time.Second)
	})
	return ts
}

func getJSON(t *testing.T, url, token string, out any) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthzAndAuth(t *testing.T) {
	ts := newTestServer(t, "test-secret-token")

	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/healthz", "", nil))

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	url := ts.URL + "/v1/path?from=Bedford&to=Bedford"
	assert.Equal(t, http.StatusUnauthorized, getJSON(t, url, "", nil))
	assert.Equal(t, http.StatusUnauthorized, getJSON(t, url, "wrong", nil))
	assert.Equal(t, http.StatusOK, getJSON(t, url, "test-secret-token", nil))
}

func TestFindPath(t *testing.T) {
	ts := newTestServer(t, "")

	var body struct {
		Outcome string `json:"outcome"`
		Path    []struct {
			Title string `json:"title"`
			Kind  string `json:"kind"`
		} `json:"path"`
		URLs []string `json:"urls"`
	}
	status := getJSON(t, ts.URL+"/v1/path?from=bedfordshire&to=Elliott+Management", "", &body)

	// "bedfordshire" is canonicalized to the stored title before searching.
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "found", body.Outcome)
	require.Len(t, body.Path, 4)
	assert.Equal(t, "Bedfordshire", body.Path[0].Title)
	assert.Equal(t, "redirect", body.Path[1].Kind)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Elliott%20Management", body.URLs[3])

	var nope map[string]string
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/v1/path?from=Bedford&to=Nowhere", "", &nope))
	assert.Contains(t, nope["error"], "Nowhere")

	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/v1/path?from=Bedford", "", nil))
}

func TestAsyncSearch(t *testing.T) {
	ts := newTestServer(t, "")

	payload, _ := json.Marshal(SearchRequest{From: "Bedford", To: "Paul Singer (businessman)"})
	resp, err := http.Post(ts.URL+"/v1/searches", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	var task TaskView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&task))
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.NotEmpty(t, task.ID)

	require.Eventually(t, func() bool {
		var view TaskView
		getJSON(t, ts.URL+"/v1/searches/"+task.ID, "", &view)
		task = view
		return view.Status == TaskStatusCompleted || view.Status == TaskStatusFailed
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, TaskStatusCompleted, task.Status)
	require.NotNil(t, task.Result)
	assert.Equal(t, search.Found, task.Result.Outcome)
	assert.Equal(t, 1, task.Result.DirectHops())
	assert.NotNil(t, task.FinishedAt)

	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/v1/searches/unknown", "", nil))

	resp, err = http.Post(ts.URL+"/v1/searches", "application/json", bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTitles(t *testing.T) {
	ts := newTestServer(t, "")

	var body TitlesResponse
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/titles?prefix=Bed", "", &body))
	assert.Equal(t, []string{"Bedford", "Bedfordshire"}, body.Titles)

	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/titles?prefix=Bed&limit=1", "", &body))
	assert.Equal(t, []string{"Bedford"}, body.Titles)

	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/titles?prefix=Zz", "", &body))
	assert.Empty(t, body.Titles)

	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/v1/titles?limit=-3", "", nil))
}

func TestTaskExpire(t *testing.T) {
	tm := NewTaskManager()
	done := tm.NewTask("A", "B")
	done.Complete(&search.Result{Outcome: search.Exhausted})
	tm.NewTask("C", "D")

	assert.Equal(t, 0, tm.Expire(time.Now().Add(-time.Minute)))
	assert.Equal(t, 1, tm.Expire(time.Now().Add(time.Minute)))
	assert.Equal(t, 1, tm.Len())
	_, ok := tm.GetTask(done.ID())
	assert.False(t, ok)
}
