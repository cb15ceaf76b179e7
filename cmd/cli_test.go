package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bnema/gestation-osc/internal/adapters/httpapi"
	"github.com/bnema/gestation-osc/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionPrintsBuildVersion(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", stdout)
}

func TestStatusRendersDaemonState(t *testing.T) {
	api := newFakeAPI(t)

	stdout, _, err := executeCLI(t, t.TempDir(), "status", "--api-url", api.URL)
	require.NoError(t, err)
	assert.Contains(t, stdout, "status: active")
	assert.Contains(t, stdout, "Avatar: avtr_1")
	assert.Contains(t, stdout, "3 / 12")
}

func TestStatusJSONOutput(t *testing.T) {
	api := newFakeAPI(t)

	stdout, _, err := executeCLI(t, t.TempDir(), "status", "--api-url", api.URL, "--json")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(stdout)))
	assert.Contains(t, stdout, "\"avatar_id\": \"avtr_1\"")
	assert.Contains(t, stdout, "\"child_count\": 3")
}

func TestStatusReportsUnreachableDaemon(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, _, err := executeCLI(t, t.TempDir(), "status", "--api-url", server.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, httpapi.ErrAPI)
}

func TestRecheckCallsDaemon(t *testing.T) {
	api := newFakeAPI(t)

	stdout, _, err := executeCLI(t, t.TempDir(), "recheck", "--api-url", api.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(1), api.rechecks.Load())
	assert.Contains(t, stdout, "Avatar: avtr_1")
}

func TestConfigShowPrintsEffectiveConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("GESTATION_STORE_DRIVER", "sqlite")

	stdout, _, err := executeCLI(t, home, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "[transport]")
	assert.Contains(t, stdout, "direct")
	assert.Contains(t, stdout, "sqlite")
	assert.Contains(t, stdout, filepath.Join(home, ".config", "gestation", "save.db"))
}

func TestConfigInitWritesOnce(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "config", "init")
	require.NoError(t, err)
	path := filepath.Join(home, ".config", "gestation", "config.toml")
	assert.Contains(t, stdout, path)
	_, err = os.Stat(path)
	require.NoError(t, err)

	_, _, err = executeCLI(t, home, "config", "init")
	require.ErrorIs(t, err, config.ErrConfigExists)

	_, _, err = executeCLI(t, home, "config", "init", "--force")
	require.NoError(t, err)
}

func TestServeRejectsInvalidMode(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "serve", "--mode", "pigeon")
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestServeRunsUntilCanceled(t *testing.T) {
	home := t.TempDir()
	t.Setenv("GESTATION_TRANSPORT_WARMUP", "0s")

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	_, stderr, err := executeCLIContext(ctx, t, home,
		"serve",
		"--port", "0",
		"--discovery=false",
		"--api-addr", "127.0.0.1:0",
		"--store-path", filepath.Join(home, "save.json"),
	)
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stderr, "starting relay")
	assert.Contains(t, stderr, "relay stopped")
}

type fakeAPI struct {
	*httptest.Server
	rechecks atomic.Int32
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()

	conceived := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	state := httpapi.StateResponse{
		Phase:    "active",
		AvatarID: "avtr_1",
		Record: &httpapi.RecordResponse{
			ConceptionTime: &conceived,
			GestationTime:  8,
			Unit:           "Hours",
			UnitValue:      0,
			ChildCount:     3,
		},
		Progress:         0.5,
		RemainingSeconds: 4 * 3600,
		At:               conceived.Add(4 * time.Hour),
	}

	api := &fakeAPI{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/state", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(state)
	})
	mux.HandleFunc("POST /v1/avatar/recheck", func(w http.ResponseWriter, _ *http.Request) {
		api.rechecks.Add(1)
		_ = json.NewEncoder(w).Encode(state)
	})
	api.Server = httptest.NewServer(mux)
	t.Cleanup(api.Close)
	return api
}

func executeCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	return executeCLIContext(context.Background(), t, home, args...)
}

func executeCLIContext(ctx context.Context, t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(append(args, "--env-file", filepath.Join(home, ".env")))

	err := root.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}
