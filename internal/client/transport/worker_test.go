package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNet answers from a fixed table and can be switched offline.
type fakeNet struct {
	mu      sync.Mutex
	offline bool
	bodies  map[string]string
	calls   int
}

func (f *fakeNet) setOffline(v bool) {
	f.mu.Lock()
	f.offline = v
	f.mu.Unlock()
}

func (f *fakeNet) setBody(path, body string) {
	f.mu.Lock()
	f.bodies[path] = body
	f.mu.Unlock()
}

func (f *fakeNet) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.offline {
		return nil, errors.New("dial tcp: connection refused")
	}
	body, ok := f.bodies[req.URL.Path]
	code := http.StatusOK
	if !ok {
		code = http.StatusNotFound
	}
	return &http.Response{
		StatusCode: code,
		Header:     http.Header{"Content-Type": []string{"text/plain"}},
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}, nil
}

func newFakeNet() *fakeNet {
	return &fakeNet{bodies: map[string]string{
		"/":           "shell",
		"/index.html": "index",
		"/api/tasks":  `{"success":true,"data":{"items":[],"next":null}}`,
		"/api/sync":   `{"success":true,"data":{"synced":0,"total":0}}`,
	}}
}

func testConfig() Config {
	cfg := DefaultConfig("http://app.local")
	cfg.ProgressAt = [3]time.Duration{time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond}
	return cfg
}

func activeWorker(t *testing.T, net *fakeNet) *Worker {
	t.Helper()
	w := NewWorker(testConfig(), net, nil)
	require.NoError(t, w.Install(context.Background()))
	require.NoError(t, w.Activate(context.Background()))
	return w
}

func get(t *testing.T, w *Worker, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := w.RoundTrip(req)
	require.NoError(t, err)
	return resp
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestLifecycle_InstallActivatePurgesOldCaches(t *testing.T) {
	w := NewWorker(testConfig(), newFakeNet(), nil)
	assert.Equal(t, StateNew, w.State())
	require.ErrorIs(t, w.Activate(context.Background()), ErrNotInstalled)

	require.NoError(t, w.AdoptCache("suitewaste-os-cache-v0"))
	require.NoError(t, w.Install(context.Background()))
	assert.Equal(t, StateInstalled, w.State())
	assert.ElementsMatch(t, []string{"suitewaste-os-cache-v0", "suitewaste-os-cache-v1"}, w.CacheNames())

	require.NoError(t, w.Activate(context.Background()))
	assert.Equal(t, StateActive, w.State())
	assert.Equal(t, []string{"suitewaste-os-cache-v1"}, w.CacheNames())
}

func TestInstall_FailsWhenShellAssetMissing(t *testing.T) {
	net := newFakeNet()
	delete(net.bodies, "/index.html")

	w := NewWorker(testConfig(), net, nil)
	require.Error(t, w.Install(context.Background()))
	assert.Equal(t, StateNew, w.State())
}

func TestRoundTrip_NotInterceptedBeforeActivation(t *testing.T) {
	net := newFakeNet()
	w := NewWorker(testConfig(), net, nil)
	net.setOffline(true)

	req, _ := http.NewRequest(http.MethodPost, "http://app.local/api/sync", nil)
	_, err := w.RoundTrip(req)
	require.Error(t, err)
}

func TestShell_CacheFirstWithoutRecaching(t *testing.T) {
	net := newFakeNet()
	w := activeWorker(t, net)
	net.setOffline(true)

	assert.Equal(t, "shell", body(t, get(t, w, "http://app.local/")))

	net.setOffline(false)
	net.setBody("/app.js", "v1")
	assert.Equal(t, "v1", body(t, get(t, w, "http://app.local/app.js")))

	net.setBody("/app.js", "v2")
	assert.Equal(t, "v2", body(t, get(t, w, "http://app.local/app.js")), "non-shell assets are not cached")

	net.setBody("/", "new shell")
	assert.Equal(t, "shell", body(t, get(t, w, "http://app.local/")), "shell stays cached until the cache name changes")
}

func TestAPI_NetworkFirstThenCachedGet(t *testing.T) {
	net := newFakeNet()
	w := activeWorker(t, net)

	assert.Contains(t, body(t, get(t, w, "http://app.local/api/tasks")), `"items":[]`)
	net.setBody("/api/tasks", `{"success":true,"data":{"items":[{"id":"x"}],"next":null}}`)
	assert.Contains(t, body(t, get(t, w, "http://app.local/api/tasks")), `"x"`, "network answer wins while online")

	net.setOffline(true)
	assert.Contains(t, body(t, get(t, w, "http://app.local/api/tasks")), `"x"`, "last good answer is replayed")
}

func TestAPI_OfflineFallbackResponse(t *testing.T) {
	net := newFakeNet()
	w := activeWorker(t, net)
	net.setOffline(true)

	req, _ := http.NewRequest(http.MethodPost, "http://app.local/api/sync", strings.NewReader(`{"items":[]}`))
	resp, err := w.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"success":false,"error":"Offline"}`, body(t, resp))

	resp = get(t, w, "http://app.local/api/payments")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp.Body.Close()
}

func TestAPI_HealthProbeIsNeverServedFromCache(t *testing.T) {
	net := newFakeNet()
	net.setBody(HealthPath, `{"success":true}`)
	w := activeWorker(t, net)

	resp := get(t, w, "http://app.local"+HealthPath)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	net.setOffline(true)
	resp = get(t, w, "http://app.local"+HealthPath)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.JSONEq(t, offlineBody, body(t, resp))
}

func TestAPI_CanceledRequestIsNotMaskedAsOffline(t *testing.T) {
	net := newFakeNet()
	w := activeWorker(t, net)
	net.setOffline(true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://app.local/api/tasks", nil)
	_, err := w.RoundTrip(req)
	require.Error(t, err)
}

func TestManualSync_ProgressThenCompleteToOriginator(t *testing.T) {
	w := activeWorker(t, newFakeNet())
	ctx := context.Background()

	mine := w.Connect("page-1")
	other := w.Connect("page-2")

	w.Post(ctx, "page-1", Message{Type: MsgManualSync})
	w.Wait()

	require.Len(t, mine, 3)
	first, second, last := <-mine, <-mine, <-mine
	assert.Equal(t, Message{Type: MsgSyncProgress, Progress: 25}, first)
	assert.Equal(t, Message{Type: MsgSyncProgress, Progress: 75}, second)
	assert.Equal(t, MsgSyncComplete, last.Type)
	require.NotNil(t, last.Result)
	assert.True(t, last.Result.Success)
	_, err := time.Parse(time.RFC3339Nano, last.Result.Timestamp)
	require.NoError(t, err)

	assert.Empty(t, other)
}

func TestPost_IgnoresOtherMessagesAndHonoursCancel(t *testing.T) {
	w := activeWorker(t, newFakeNet())
	box := w.Connect("p")

	w.Post(context.Background(), "p", Message{Type: MsgSyncProgress})
	w.Wait()
	assert.Empty(t, box)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Post(ctx, "p", Message{Type: MsgManualSync})
	w.Wait()
	assert.Empty(t, box)
}
