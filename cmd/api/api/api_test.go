package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/onkernel/hypedesk/cmd/api/config"
	"github.com/onkernel/hypedesk/lib/engine"
	"github.com/onkernel/hypedesk/lib/engine/enginetest"
	"github.com/onkernel/hypedesk/lib/events"
	"github.com/onkernel/hypedesk/lib/instances"
	mw "github.com/onkernel/hypedesk/lib/middleware"
	"github.com/onkernel/hypedesk/lib/monitor"
	"github.com/onkernel/hypedesk/lib/oapi"
	"github.com/onkernel/hypedesk/lib/paths"
	"github.com/onkernel/hypedesk/lib/ports"
	"github.com/onkernel/hypedesk/lib/sqlitepool"
	"github.com/onkernel/hypedesk/lib/templates"
	"github.com/onkernel/hypedesk/lib/terminal"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type testEnv struct {
	svc    *ApiService
	fake   *enginetest.Fake
	server *httptest.Server
}

// newTestService creates an ApiService backed by the in-memory runtime and
// a temporary database.
func newTestService(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{DataDir: dir, JwtSecret: testSecret, OtelServiceName: "hypedesk-test"}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:      filepath.Join(dir, "hypedesk.db"),
		OnConnect: instances.ApplySchema,
	})
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	fake := enginetest.New()
	bus, err := events.NewBus(nil)
	require.NoError(t, err)
	t.Cleanup(bus.Close)
	catalog := templates.DefaultCatalog()

	mgr, err := instances.NewManager(pool, fake, catalog, ports.NewAllocator(fake), bus, paths.New(dir), nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })

	term, err := terminal.NewManager(fake, nil)
	require.NoError(t, err)
	t.Cleanup(term.Shutdown)

	mon, err := monitor.New(fake, bus, monitor.Config{Services: catalog.CanonicalNames()}, nil)
	require.NoError(t, err)

	svc := New(cfg, mgr, catalog, term, bus, fake, mon)
	handler, err := svc.Handler(slog.New(slog.DiscardHandler), nil)
	require.NoError(t, err)

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return &testEnv{svc: svc, fake: fake, server: server}
}

func token(t *testing.T, sub string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func (e *testEnv) do(t *testing.T, method, path, owner string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if owner != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, owner))
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// createInstance creates an instance over HTTP and waits for provisioning.
func (e *testEnv) createInstance(t *testing.T, owner, templateID string) oapi.Instance {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/instances", owner, oapi.CreateInstanceRequest{TemplateId: templateID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[oapi.Instance](t, resp)
	assert.Equal(t, oapi.InstanceStatusPending, created.Status)

	require.NoError(t, e.svc.InstanceManager.Close())

	resp = e.do(t, http.MethodGet, "/instances/"+created.Id, owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decode[oapi.Instance](t, resp)
}

func ctxWithUser(owner string) context.Context {
	return mw.WithUserID(context.Background(), owner)
}

func TestHealthz(t *testing.T) {
	env := newTestService(t)

	resp := env.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	health := decode[oapi.Health](t, resp)
	assert.Equal(t, oapi.HealthStatusOk, health.Status)
	assert.Equal(t, "ok", health.Runtime)
}

func TestHealthzDegraded(t *testing.T) {
	env := newTestService(t)
	env.fake.PingErr = errors.New("Cannot connect to the Docker daemon")

	resp, err := env.svc.GetHealth(context.Background(), oapi.GetHealthRequestObject{})
	require.NoError(t, err)
	degraded, ok := resp.(oapi.GetHealth503JSONResponse)
	require.True(t, ok, "got %T", resp)
	assert.Equal(t, oapi.HealthStatusDegraded, degraded.Status)
	assert.Contains(t, degraded.Runtime, "Docker daemon")
}

func TestRequiresToken(t *testing.T) {
	env := newTestService(t)

	for _, path := range []string{"/templates", "/instances", "/instances/abc", "/events", "/ws"} {
		resp := env.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
}

func TestServesSpec(t *testing.T) {
	env := newTestService(t)

	resp := env.do(t, http.MethodGet, "/spec.yaml", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/vnd.oai.openapi", resp.Header.Get("Content-Type"))

	resp = env.do(t, http.MethodGet, "/spec.json", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := decode[map[string]any](t, resp)
	assert.Equal(t, "3.0.3", doc["openapi"])
}

func TestListTemplates(t *testing.T) {
	env := newTestService(t)

	resp := env.do(t, http.MethodGet, "/templates", "u1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]oapi.Template](t, resp)

	byID := lo.KeyBy(list, func(tmpl oapi.Template) string { return tmpl.Id })
	require.Contains(t, byID, "ubuntu-desktop")
	ubuntu := byID["ubuntu-desktop"]
	assert.Equal(t, []int{3000}, ubuntu.Ports)
	assert.Equal(t, "hypedesk-ubuntu-desktop", lo.FromPtr(ubuntu.CanonicalName))
	require.NotNil(t, ubuntu.Volumes)
	assert.Equal(t, "/config", (*ubuntu.Volumes)[0].Target)
}

func TestInstanceLifecycle(t *testing.T) {
	env := newTestService(t)

	inst := env.createInstance(t, "u1", "ubuntu-desktop")
	assert.Equal(t, oapi.InstanceStatusStopped, inst.Status)
	require.NotNil(t, inst.ContainerRef)
	assert.Equal(t, "http://localhost:3000", lo.FromPtr(inst.AccessUrl))

	resp := env.do(t, http.MethodPost, "/instances/"+inst.Id+"/start", "u1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, oapi.InstanceStatusRunning, decode[oapi.Instance](t, resp).Status)

	resp = env.do(t, http.MethodPost, "/instances/"+inst.Id+"/restart", "u1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, oapi.InstanceStatusRunning, decode[oapi.Instance](t, resp).Status)

	resp = env.do(t, http.MethodPost, "/instances/"+inst.Id+"/stop", "u1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, oapi.InstanceStatusStopped, decode[oapi.Instance](t, resp).Status)

	resp = env.do(t, http.MethodGet, "/instances", "u1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]oapi.Instance](t, resp), 1)

	resp = env.do(t, http.MethodDelete, "/instances/"+inst.Id, "u1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, oapi.InstanceStatusTerminated, decode[oapi.Instance](t, resp).Status)
	assert.Equal(t, 0, env.fake.Len())

	resp = env.do(t, http.MethodPost, "/instances/"+inst.Id+"/start", "u1", nil)
	assert.Equal(t, http.StatusGone, resp.StatusCode)
	assert.Equal(t, "container_gone", decode[oapi.Error](t, resp).Code)
}

func TestErrorMapping(t *testing.T) {
	env := newTestService(t)

	resp := env.do(t, http.MethodPost, "/instances", "u1", oapi.CreateInstanceRequest{TemplateId: "windows-xp"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_request", decode[oapi.Error](t, resp).Code)

	resp = env.do(t, http.MethodPost, "/instances", "u1", oapi.CreateInstanceRequest{
		TemplateId: "ubuntu-desktop",
		Resources:  &oapi.Resources{Memory: lo.ToPtr("lots")},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/instances/missing", "u1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", decode[oapi.Error](t, resp).Code)
}

func TestRequestValidation(t *testing.T) {
	env := newTestService(t)

	post := func(body, contentType string) *http.Response {
		req, err := http.NewRequest(http.MethodPost, env.server.URL+"/instances", bytes.NewBufferString(body))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token(t, "u1"))
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	tests := []struct {
		name        string
		body        string
		contentType string
	}{
		{"malformed JSON", "{", "application/json"},
		{"missing template_id", `{"name":"dev"}`, "application/json"},
		{"empty template_id", `{"template_id":""}`, "application/json"},
		{"wrong type", `{"template_id":42}`, "application/json"},
		{"not JSON", "template_id=ubuntu-desktop", "application/x-www-form-urlencoded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(tt.body, tt.contentType)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "invalid_request", decode[oapi.Error](t, resp).Code)
		})
	}

	// Rejected before reaching the manager.
	list, err := env.svc.InstanceManager.ListInstances(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStrictHandlers(t *testing.T) {
	env := newTestService(t)
	ctx := ctxWithUser("u1")

	created, err := env.svc.CreateInstance(ctx, oapi.CreateInstanceRequestObject{
		Body: &oapi.CreateInstanceJSONRequestBody{TemplateId: "alpine-desktop", Name: lo.ToPtr("dev")},
	})
	require.NoError(t, err)
	inst, ok := created.(oapi.CreateInstance201JSONResponse)
	require.True(t, ok, "got %T", created)
	assert.Equal(t, "dev", inst.Name)
	assert.Equal(t, "1", lo.FromPtr(inst.Resources.Cpu), "template default resources apply")
	require.NoError(t, env.svc.InstanceManager.Close())

	got, err := env.svc.GetInstance(ctx, oapi.GetInstanceRequestObject{Id: inst.Id})
	require.NoError(t, err)
	require.IsType(t, oapi.GetInstance200JSONResponse{}, got)
	assert.Equal(t, []int{3001}, got.(oapi.GetInstance200JSONResponse).Ports)

	// Another owner sees nothing.
	other, err := env.svc.StartInstance(ctxWithUser("u2"), oapi.StartInstanceRequestObject{Id: inst.Id})
	require.NoError(t, err)
	assert.IsType(t, oapi.StartInstance404JSONResponse{}, other)

	env.fake.ActionErr = fmt.Errorf("start: %w", engine.ErrUnavailable)
	unavailable, err := env.svc.StartInstance(ctx, oapi.StartInstanceRequestObject{Id: inst.Id})
	require.NoError(t, err)
	require.IsType(t, oapi.StartInstance503JSONResponse{}, unavailable)
	assert.Equal(t, "runtime_unavailable", unavailable.(oapi.StartInstance503JSONResponse).Code)
}

func TestInstancesScopedToOwner(t *testing.T) {
	env := newTestService(t)
	inst := env.createInstance(t, "u1", "ubuntu-desktop")

	resp := env.do(t, http.MethodGet, "/instances/"+inst.Id, "u2", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/instances", "u2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]oapi.Instance](t, resp))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{instances.ErrInvalidTemplate, http.StatusBadRequest},
		{instances.ErrInvalidResources, http.StatusBadRequest},
		{instances.ErrNotFound, http.StatusNotFound},
		{instances.ErrContainerGone, http.StatusGone},
		{instances.ErrRuntimeUnavailable, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, _ := statusFor(tt.err)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestVisibleTo(t *testing.T) {
	own := events.New(events.TypeInstanceStatus, events.InstanceStatus{InstanceID: "i1", OwnerID: "u1"})
	broadcast := events.New(events.TypeServiceStatus, events.ServiceStatus{Name: "hypedesk-ubuntu-desktop"})

	assert.True(t, visibleTo(own, "u1"))
	assert.False(t, visibleTo(own, "u2"))
	assert.True(t, visibleTo(broadcast, "u2"))
}

func TestForOwnerFilters(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := make(chan events.Event, 3)
	sub <- events.New(events.TypeInstanceStatus, events.InstanceStatus{InstanceID: "i1", OwnerID: "u2"})
	sub <- events.New(events.TypeInstanceStatus, events.InstanceStatus{InstanceID: "i2", OwnerID: "u1"})
	sub <- events.New(events.TypeContainersUpdate, events.ContainersUpdate{})
	close(sub)

	var got []events.Event
	for e := range forOwner(ctx, sub, "u1") {
		got = append(got, e)
	}
	require.Len(t, got, 2)
	assert.Equal(t, "u1", events.OwnerOf(got[0]))
	assert.Equal(t, events.TypeContainersUpdate, got[1].Type)
}
