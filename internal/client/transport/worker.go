// Package transport implements the client's background network layer. A
// Worker sits between the API client and the network as an
// http.RoundTripper: API calls go to the network first and degrade to a
// cached answer or a structured offline response, everything else is served
// from the shell cache first.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/suitewaste/internal/logging"
	lru "github.com/hashicorp/golang-lru/v2"
)

type State string

const (
	StateNew        State = "new"
	StateInstalling State = "installing"
	StateInstalled  State = "installed"
	StateActive     State = "active"
)

// APIPrefix marks the requests handled network-first.
const APIPrefix = "/api/"

// HealthPath is the connectivity probe. It is never cached nor answered from
// the cache, so a failed probe always reports offline.
const HealthPath = "/api/health"

var ErrNotInstalled = errors.New("worker is not installed")

// Config describes one worker version.
type Config struct {
	// CacheName identifies the cache of this version; caches with other
	// names are purged on activation.
	CacheName string
	// Origin is prepended to relative ShellURLs.
	Origin    string
	ShellURLs []string
	// CacheSize bounds every cache, in entries.
	CacheSize int
	// ProgressAt are the offsets from a MANUAL_SYNC at which progress 25,
	// progress 75 and the completion are delivered.
	ProgressAt [3]time.Duration
}

func DefaultConfig(origin string) Config {
	return Config{
		CacheName:  "suitewaste-os-cache-v1",
		Origin:     origin,
		ShellURLs:  []string{"/", "/index.html"},
		CacheSize:  256,
		ProgressAt: [3]time.Duration{500 * time.Millisecond, 1500 * time.Millisecond, 2500 * time.Millisecond},
	}
}

type cachedResponse struct {
	status int
	header http.Header
	body   []byte
}

func (c cachedResponse) response(req *http.Request) *http.Response {
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", c.status, http.StatusText(c.status)),
		StatusCode:    c.status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        c.header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(c.body)),
		ContentLength: int64(len(c.body)),
		Request:       req,
	}
}

type Worker struct {
	cfg  Config
	next http.RoundTripper
	log  logging.Logger

	mu      sync.RWMutex
	state   State
	claimed bool
	caches  map[string]*lru.Cache[string, cachedResponse]

	boxMu     sync.Mutex
	mailboxes map[string]chan Message
	wg        sync.WaitGroup
}

// NewWorker wraps next, which performs the real network I/O. A nil next
// selects http.DefaultTransport.
func NewWorker(cfg Config, next http.RoundTripper, log logging.Logger) *Worker {
	if next == nil {
		next = http.DefaultTransport
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 256
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Worker{
		cfg:       cfg,
		next:      next,
		log:       log,
		state:     StateNew,
		caches:    make(map[string]*lru.Cache[string, cachedResponse]),
		mailboxes: make(map[string]chan Message),
	}
}

func (w *Worker) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// CacheNames lists the caches currently held.
func (w *Worker) CacheNames() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	names := make([]string, 0, len(w.caches))
	for n := range w.caches {
		names = append(names, n)
	}
	return names
}

// AdoptCache registers an existing cache, as left behind by a previous
// worker version.
func (w *Worker) AdoptCache(name string) error {
	c, err := lru.New[string, cachedResponse](w.cfg.CacheSize)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.caches[name]; !ok {
		w.caches[name] = c
	}
	return nil
}

// Install pre-caches the shell URLs into the cache of this version. Any
// failed fetch fails the install and leaves the worker uninstalled.
func (w *Worker) Install(ctx context.Context) error {
	w.mu.Lock()
	w.state = StateInstalling
	w.mu.Unlock()

	cache, err := lru.New[string, cachedResponse](w.cfg.CacheSize)
	if err != nil {
		return err
	}

	for _, u := range w.cfg.ShellURLs {
		if !strings.Contains(u, "://") {
			u = strings.TrimRight(w.cfg.Origin, "/") + u
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			w.setState(StateNew)
			return err
		}
		entry, err := w.fetch(req)
		if err != nil {
			w.setState(StateNew)
			return fmt.Errorf("precache %s: %w", u, err)
		}
		if entry.status < 200 || entry.status > 299 {
			w.setState(StateNew)
			return fmt.Errorf("precache %s: status %d", u, entry.status)
		}
		cache.Add(cacheKey(req), entry)
	}

	w.mu.Lock()
	w.caches[w.cfg.CacheName] = cache
	w.state = StateInstalled
	w.mu.Unlock()

	w.log.Info(ctx, "worker installed", "cache", w.cfg.CacheName, "assets", len(w.cfg.ShellURLs))
	return nil
}

// Activate purges caches of other versions and starts intercepting requests.
func (w *Worker) Activate(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateInstalled && w.state != StateActive {
		return ErrNotInstalled
	}
	for name := range w.caches {
		if name != w.cfg.CacheName {
			delete(w.caches, name)
			w.log.Info(ctx, "deleted old cache", "cache", name)
		}
	}
	w.state = StateActive
	w.claimed = true
	return nil
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

// RoundTrip implements http.RoundTripper.
func (w *Worker) RoundTrip(req *http.Request) (*http.Response, error) {
	w.mu.RLock()
	claimed := w.claimed
	w.mu.RUnlock()

	if !claimed {
		return w.next.RoundTrip(req)
	}
	if strings.HasPrefix(req.URL.Path, APIPrefix) {
		return w.networkFirst(req)
	}
	return w.cacheFirst(req)
}

func (w *Worker) networkFirst(req *http.Request) (*http.Response, error) {
	probe := req.URL.Path == HealthPath
	entry, err := w.fetch(req)
	if err == nil {
		if !probe && req.Method == http.MethodGet && entry.status >= 200 && entry.status <= 299 {
			w.put(req, entry)
		}
		return entry.response(req), nil
	}

	if ctxErr := req.Context().Err(); ctxErr != nil {
		return nil, err
	}

	if !probe && req.Method == http.MethodGet {
		if cached, ok := w.lookup(req); ok {
			w.log.Debug(req.Context(), "serving cached api response", "url", req.URL.String())
			return cached.response(req), nil
		}
	}

	w.log.Debug(req.Context(), "network unavailable", "url", req.URL.String(), "error", err)
	return offlineResponse(req), nil
}

func (w *Worker) cacheFirst(req *http.Request) (*http.Response, error) {
	if cached, ok := w.lookup(req); ok {
		return cached.response(req), nil
	}
	return w.next.RoundTrip(req)
}

// fetch performs the request on the network and buffers the response.
func (w *Worker) fetch(req *http.Request) (cachedResponse, error) {
	resp, err := w.next.RoundTrip(req)
	if err != nil {
		return cachedResponse{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return cachedResponse{}, err
	}
	return cachedResponse{status: resp.StatusCode, header: resp.Header.Clone(), body: body}, nil
}

func (w *Worker) put(req *http.Request, entry cachedResponse) {
	w.mu.RLock()
	cache := w.caches[w.cfg.CacheName]
	w.mu.RUnlock()
	if cache != nil {
		cache.Add(cacheKey(req), entry)
	}
}

func (w *Worker) lookup(req *http.Request) (cachedResponse, bool) {
	if req.Method != http.MethodGet {
		return cachedResponse{}, false
	}
	w.mu.RLock()
	cache := w.caches[w.cfg.CacheName]
	w.mu.RUnlock()
	if cache == nil {
		return cachedResponse{}, false
	}
	return cache.Get(cacheKey(req))
}

func cacheKey(req *http.Request) string {
	return req.Method + " " + req.URL.String()
}

const offlineBody = `{"success":false,"error":"Offline"}`

func offlineResponse(req *http.Request) *http.Response {
	return cachedResponse{
		status: http.StatusServiceUnavailable,
		header: http.Header{"Content-Type": []string{"application/json"}},
		body:   []byte(offlineBody),
	}.response(req)
}
