package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/openmined/plugsync/internal/client/config"
	"github.com/openmined/plugsync/internal/client/syncer"
	"github.com/openmined/plugsync/internal/client/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "test-token"

// plugServer is an in-memory stand-in for the remote plug API.
type plugServer struct {
	mu      sync.Mutex
	files   map[string]string // content id -> content
	plugs   map[string]string // plug id -> content id
	calls   map[string]int
	nextID  int
	lastReq map[string]any
}

func newPlugServer(t *testing.T) (*plugServer, *httptest.Server) {
	t.Helper()
	ps := &plugServer{
		files: make(map[string]string),
		plugs: make(map[string]string),
		calls: make(map[string]int),
	}
	srv := httptest.NewServer(ps)
	t.Cleanup(srv.Close)
	return ps, srv
}

func (s *plugServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer "+testToken {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	s.lastReq = body
	s.calls[r.Method+" "+routeOf(r.URL.Path)]++

	s.nextID++
	id := fmt.Sprintf("id-%d", s.nextID)

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/v1/agents/files":
		s.files[id] = body["content"].(string)
	case r.Method == http.MethodPost && r.URL.Path == "/v1/agents/plugs":
		s.plugs[id] = body["file_id"].(string)
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/v1/agents/plugs/"):
		id = strings.TrimPrefix(r.URL.Path, "/v1/agents/plugs/")
		s.plugs[id] = body["file_id"].(string)
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"id": id})
}

func routeOf(path string) string {
	if strings.HasPrefix(path, "/v1/agents/plugs/") {
		return "/v1/agents/plugs/{id}"
	}
	return path
}

func (s *plugServer) count(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

func testConfig(t *testing.T, serverURL string) *config.Config {
	t.Helper()
	t.Setenv("PLUGSYNC_TEST_TOKEN", testToken)

	tmp := t.TempDir()
	src := filepath.Join(tmp, "src")
	require.NoError(t, os.MkdirAll(src, 0o755))

	cfg := &config.Config{
		Directories:    []string{src},
		FileTypes:      []string{"py"},
		ServerURL:      serverURL + "/v1",
		Interval:       time.Minute,
		RetryInterval:  10 * time.Second,
		Debounce:       50 * time.Millisecond,
		RequestTimeout: 2 * time.Second,
		Workers:        2,
		DataDir:        filepath.Join(tmp, "data"),
	}
	cfg.Credential.Env = "PLUGSYNC_TEST_TOKEN"
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestClient_RunOnce(t *testing.T) {
	ps, srv := newPlugServer(t)
	cfg := testConfig(t, srv.URL)
	cfg.JournalPath = filepath.Join(cfg.DataDir, "journal.db")

	src := cfg.Directories[0]
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.py"), []byte("print('a')\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "notes.txt"), []byte("skip"), 0o644))

	c, err := New(t.Context(), cfg)
	require.NoError(t, err)

	report, err := c.RunOnce(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, ps.count("POST /v1/agents/files"))
	assert.Equal(t, 1, ps.count("POST /v1/agents/plugs"))

	report, err = c.RunOnce(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Unchanged)
	assert.Equal(t, 1, ps.count("POST /v1/agents/files"))

	records := c.Records()
	require.Len(t, records, 1)
	require.NoError(t, c.Close())

	// the journal carries the plug across restarts, so an edit becomes an update
	path := filepath.Join(src, "a.py")
	require.NoError(t, os.WriteFile(path, []byte("print('b')\n"), 0o644))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	c, err = New(t.Context(), cfg)
	require.NoError(t, err)
	defer c.Close()

	report, err = c.RunOnce(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, ps.count("POST /v1/agents/plugs"), "plug is never created twice")
	assert.Equal(t, 1, ps.count("PUT /v1/agents/plugs/{id}"))

	ps.mu.Lock()
	assert.NotEmpty(t, records[0].RemoteRef)
	assert.Contains(t, ps.plugs, records[0].RemoteRef)
	ps.mu.Unlock()
}

func TestClient_MissingCredentialIsConfigError(t *testing.T) {
	_, srv := newPlugServer(t)
	cfg := testConfig(t, srv.URL)
	cfg.Credential.Env = "PLUGSYNC_TEST_UNSET_TOKEN"

	_, err := New(t.Context(), cfg)
	require.Error(t, err)
	assert.True(t, config.IsConfigError(err))
}

func TestClient_SingleInstance(t *testing.T) {
	_, srv := newPlugServer(t)
	cfg := testConfig(t, srv.URL)

	c, err := New(t.Context(), cfg)
	require.NoError(t, err)
	defer c.Close()

	_, err = New(t.Context(), cfg)
	assert.ErrorIs(t, err, workspace.ErrWorkspaceLocked)
}

func TestClient_StartServesControlPlane(t *testing.T) {
	_, srv := newPlugServer(t)
	cfg := testConfig(t, srv.URL)
	cfg.Watch = false

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	cfg.HTTPAddr = ln.Addr().String()
	require.NoError(t, ln.Close())

	c, err := New(t.Context(), cfg)
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool {
		report, _ := c.LastReport()
		return report != nil && c.SchedulerState() == syncer.StateIdle
	}, 3*time.Second, 20*time.Millisecond)

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get("http://" + cfg.HTTPAddr + "/v1/status")
		return err == nil
	}, 3*time.Second, 20*time.Millisecond)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "daemon did not stop")
	}
}
