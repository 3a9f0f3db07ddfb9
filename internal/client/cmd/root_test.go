package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/api"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/garage"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/registration"
)

// fakeGarageAPI serves the few routes the command tests touch and counts hits.
type fakeGarageAPI struct {
	mu    sync.Mutex
	hits  map[string]int
	token string
}

func (f *fakeGarageAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.hits[r.Method+" "+r.URL.Path]++
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	if r.Header.Get("Authorization") != "Bearer gw-test" {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"success":false,"message":"Invalid API key"}`)
		return
	}
	switch r.Method + " " + r.URL.Path {
	case "POST /auth/login":
		fmt.Fprint(w, `{"success":true,"message":"ok","data":{"access_token":"acc-1","refresh_token":"ref-1","user":{"id":"u1","email":"ops@garage.ae"}}}`)
	case "POST /auth/logout":
		fmt.Fprint(w, `{"success":true,"message":"ok"}`)
	case "GET /bookings":
		if r.Header.Get(api.HeaderAccessToken) != "acc-1" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"success":false,"message":"Not signed in"}`)
			return
		}
		fmt.Fprint(w, `{"success":true,"message":"ok","data":{"bookings":[{"id":"3f2a9c1e-0000-4000-8000-000000000001","customer_name":"Sara","vehicle_make":"Toyota","vehicle_model":"Camry","status":"confirmed"}],"total":1,"page":1,"limit":20}}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"success":false,"message":"Route not found"}`)
	}
}

func (f *fakeGarageAPI) count(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[route]
}

type harness struct {
	t       *testing.T
	api     *fakeGarageAPI
	apiURL  string
	dataDir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	for _, k := range []string{"GARAGE_API_URL", "GARAGE_DATA_DIR", "GARAGE_CACHE_BACKEND", "GARAGE_POLICY_FILE", "GARAGE_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	t.Setenv("GARAGE_GATEWAY_KEY", "gw-test")
	fake := &fakeGarageAPI{hits: map[string]int{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return &harness{t: t, api: fake, apiURL: srv.URL, dataDir: t.TempDir()}
}

// run executes one garagectl invocation, as a fresh process would.
func (h *harness) run(stdin string, args ...string) (string, error) {
	root := NewRootCmd("1.0.0", "2026-03-01")
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(new(bytes.Buffer))
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--api-url", h.apiURL, "--data-dir", h.dataDir, "--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestRoot_VersionAndVault(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("", "version")
	require.NoError(t, err)
	assert.Equal(t, "garagectl 1.0.0 (2026-03-01)\n", out)

	out, err = h.run("", "version", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "go: go")

	out, err = h.run("", "vault", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "not initialized")

	_, err = h.run("", "vault", "init")
	require.NoError(t, err)
	out, err = h.run("", "vault", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "ready")
}

func TestLoginThenListServedFromPersistentCache(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("ops@garage.ae\ns3cret-pass\n", "auth", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as ops@garage.ae")

	raw, err := os.ReadFile(filepath.Join(h.dataDir, "session", "tokens.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "acc-1")

	out, err = h.run("", "bookings", "list")
	require.NoError(t, err)
	assert.Contains(t, out, `"vehicle": "Toyota Camry"`)
	assert.Contains(t, out, `"number": "#3F2A9C1E"`)

	// A second process reads the sealed bolt layer instead of the network.
	_, err = h.run("", "bookings", "list")
	require.NoError(t, err)
	assert.Equal(t, 1, h.api.count("GET /bookings"))

	_, err = h.run("", "bookings", "list", "--fresh")
	require.NoError(t, err)
	assert.Equal(t, 2, h.api.count("GET /bookings"))

	_, err = h.run("", "auth", "logout")
	require.NoError(t, err)
	assert.Equal(t, 1, h.api.count("POST /auth/logout"))

	_, err = h.run("", "bookings", "list")
	require.Error(t, err)
	assert.Equal(t, "Not signed in", Describe(err))
}

func TestLockedCacheFileFallsBackToMemory(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("ops@garage.ae\ns3cret-pass\n", "auth", "login")
	require.NoError(t, err)

	// Another garagectl holds the bolt file lock.
	holder, err := newApp(context.Background(), &rootOptions{apiURL: h.apiURL, dataDir: h.dataDir, logLevel: "error"}, io.Discard)
	require.NoError(t, err)
	t.Cleanup(func() { _ = holder.Close() })

	out, err := h.run("", "bookings", "list")
	require.NoError(t, err)
	assert.Contains(t, out, `"vehicle": "Toyota Camry"`)
	_, err = h.run("", "bookings", "list")
	require.NoError(t, err)
	assert.Equal(t, 2, h.api.count("GET /bookings"))
}

func TestInteractiveSearchRunsLastQuery(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("ops@garage.ae\ns3cret-pass\n", "auth", "login")
	require.NoError(t, err)

	out, err := h.run("t\nto\ntoyota\n", "bookings", "search", "-i")
	require.NoError(t, err)
	assert.Contains(t, out, `"vehicle": "Toyota Camry"`)
	assert.Equal(t, 1, h.api.count("GET /bookings"))
}

func TestCacheCommands(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("ops@garage.ae\ns3cret-pass\n", "auth", "login")
	require.NoError(t, err)
	_, err = h.run("", "bookings", "list")
	require.NoError(t, err)

	out, err := h.run("", "cache", "invalidate", "/bookings")
	require.NoError(t, err)
	assert.Equal(t, "Invalidated 1 entries\n", out)

	_, err = h.run("", "bookings", "list")
	require.NoError(t, err)
	assert.Equal(t, 2, h.api.count("GET /bookings"))

	out, err = h.run("", "cache", "clear")
	require.NoError(t, err)
	assert.Equal(t, "Cache cleared\n", out)
}

func TestCreateRequiresPayload(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("", "bookings", "create")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JSON payload is required")

	_, err = h.run(`{"customer_name":"S"}`, "bookings", "create", "-f", "-")
	require.Error(t, err)
	assert.Contains(t, Describe(err), "Please check:")
	assert.Zero(t, h.api.count("POST /bookings"))
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "", Describe(nil))
	assert.Equal(t, "canceled", Describe(&api.CanceledError{Method: "GET", Path: "/bookings"}))
	assert.Equal(t, "Email already registered", Describe(&api.Error{Status: http.StatusConflict, Message: "Email already registered"}))
	assert.Equal(t, registration.ErrSessionExpired.Error(), Describe(registration.ErrSessionExpired))
	assert.Equal(t, "An id is required.", Describe(garage.ErrMissingID))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"engine", "ac repair"}, splitList(" engine, ,ac repair ,"))
	assert.Nil(t, splitList(""))
}
