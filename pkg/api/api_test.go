package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mproffitt/folden/pkg/config"
	"github.com/mproffitt/folden/pkg/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 5 * time.Second

type fixture struct {
	supervisor *server.Server
	client     *Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	c := config.Default()
	c.MappingStatePath = filepath.Join(t.TempDir(), "mapping.toml")
	c.MappingStatusStrategy = config.StrategyNone

	supervisor := server.New(c, nil)
	ts := httptest.NewServer(NewServer("", supervisor).Handler())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		_ = supervisor.Shutdown(ctx)
		ts.Close()
	})

	client, err := NewClient(ts.URL)
	require.NoError(t, err)
	return &fixture{supervisor: supervisor, client: client}
}

func moveWorkflow(t *testing.T, dest string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workflow.toml")
	doc := fmt.Sprintf("[event]\nevents = [\"create\"]\n\n[[actions]]\n[actions.MoveToDir]\ndirectory_path = %q\n", dest)
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestClientLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dir := t.TempDir()

	_, err := f.client.Register(ctx, server.RegisterRequest{
		Directory:         dir,
		HandlerTypeName:   "workflow",
		HandlerConfigPath: moveWorkflow(t, t.TempDir()),
	})
	require.NoError(t, err)

	status, err := f.client.Status(ctx, dir, false)
	require.NoError(t, err)
	require.Contains(t, status, dir)
	assert.False(t, status[dir].Running)

	_, err = f.client.Start(ctx, dir)
	require.NoError(t, err)

	_, err = f.client.Start(ctx, dir)
	assert.ErrorIs(t, err, server.ErrAlreadyRunning)

	status, err = f.client.Status(ctx, "", true)
	require.NoError(t, err)
	assert.True(t, status[dir].Running)

	require.NoError(t, f.client.Stop(ctx, dir))
	assert.ErrorIs(t, f.client.Stop(ctx, dir), server.ErrNotRunning)
}

func TestClientErrorsMapToSentinels(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.client.Start(ctx, t.TempDir())
	assert.ErrorIs(t, err, server.ErrNotRegistered)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "not_registered", apiErr.Code)

	_, err = f.client.Register(ctx, server.RegisterRequest{
		Directory:         t.TempDir(),
		HandlerTypeName:   "teleport",
		HandlerConfigPath: moveWorkflow(t, t.TempDir()),
	})
	assert.ErrorIs(t, err, server.ErrUnknownHandlerType)

	_, err = f.client.Modify(ctx, server.ModifyRequest{Directory: t.TempDir()})
	assert.ErrorIs(t, err, server.ErrNotRegistered)
}

func TestStatusUnknownDirectoryIsEmpty(t *testing.T) {
	f := newFixture(t)
	status, err := f.client.Status(context.Background(), t.TempDir(), false)
	require.NoError(t, err)
	assert.Empty(t, status)
}

func TestTypes(t *testing.T) {
	f := newFixture(t)
	types, err := f.client.Types(context.Background())
	require.NoError(t, err)

	var names []string
	for _, ht := range types {
		names = append(names, ht.Name)
	}
	assert.Contains(t, names, "workflow")
	assert.Contains(t, names, "move-to-dir")
}

func TestTraceStream(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watched, dest := t.TempDir(), t.TempDir()
	_, err := f.client.Register(ctx, server.RegisterRequest{
		Directory:         watched,
		HandlerTypeName:   "workflow",
		HandlerConfigPath: moveWorkflow(t, dest),
		Start:             true,
	})
	require.NoError(t, err)

	records, err := f.client.Trace(ctx, watched)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(watched, "a.txt"), []byte("x"), 0o644))

	select {
	case r, ok := <-records:
		require.True(t, ok)
		assert.Equal(t, "MoveToDir", r.ActionName)
		assert.True(t, r.Success)
		assert.Equal(t, watched, r.Directory)
	case <-time.After(waitFor):
		t.Fatal("no trace record received")
	}

	require.NoError(t, f.client.Stop(ctx, watched))
	select {
	case _, ok := <-records:
		assert.False(t, ok)
	case <-time.After(waitFor):
		t.Fatal("trace stream not closed after stop")
	}
}

func TestTraceNotRunning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dir := t.TempDir()
	_, err := f.client.Register(ctx, server.RegisterRequest{
		Directory:         dir,
		HandlerTypeName:   "workflow",
		HandlerConfigPath: moveWorkflow(t, t.TempDir()),
	})
	require.NoError(t, err)

	_, err = f.client.Trace(ctx, dir)
	assert.ErrorIs(t, err, server.ErrNotRunning)
}

func TestRejectsBadRequests(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(NewServer("", f.supervisor).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/register")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/api/start", "application/json", strings.NewReader(`{"dir": 1}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	err = decodeError(resp)
	resp.Body.Close()
	assert.ErrorIs(t, err, server.ErrBadRequest)
}

func TestNewClientAddress(t *testing.T) {
	c, err := NewClient("127.0.0.1:8080")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8080/api/status?all=true", c.endpoint("/api/status", map[string][]string{"all": {"true"}}).String())

	_, err = NewClient("ftp://127.0.0.1")
	assert.Error(t, err)
}

func TestServerStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewServer("127.0.0.1:0", server.New(nil, nil))
	require.NoError(t, s.Start(ctx))
	require.NotEmpty(t, s.Addr())

	client, err := NewClient(s.Addr())
	require.NoError(t, err)
	types, err := client.Types(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, types)
}
