package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timzifer/rfbridge/settings"
	"github.com/timzifer/rfbridge/storage"
)

func newTestServer(t *testing.T, mem *storage.Memory, opts ...ServerOption) (*Service, *Hub, *httptest.Server) {
	t.Helper()
	svc := newTestService(t, mem)
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(zerolog.Nop())
	go hub.Run(ctx)
	srv := httptest.NewServer(NewServer(svc, hub, zerolog.Nop(), opts...).Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return svc, hub, srv
}

func do(t *testing.T, method, url, body string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func TestGetSettings(t *testing.T) {
	_, _, srv := newTestServer(t, storage.NewMemory())

	resp, body := do(t, http.MethodGet, srv.URL+"/settings", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	def := settings.Default()
	require.Equal(t, def.ToJSON(false), body)

	_, body = do(t, http.MethodGet, srv.URL+"/settings?pretty=1", "")
	require.Equal(t, def.ToJSON(true), body)
}

func TestPutSettingsPatchesAndSaves(t *testing.T) {
	mem := storage.NewMemory()
	svc, _, srv := newTestServer(t, mem)

	resp, body := do(t, http.MethodPut, srv.URL+"/settings", `{"hostname":"bridge","csn_pin":"nope"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "1", resp.Header.Get(SkippedHeader))
	require.Contains(t, body, `"hostname":"bridge"`)
	require.Equal(t, "bridge", svc.Snapshot().Hostname)

	stored, _ := mem.Get(settings.FileName)
	require.Equal(t, body, string(stored))
}

func TestPutSettingsRejectsBadBodies(t *testing.T) {
	_, _, srv := newTestServer(t, storage.NewMemory())

	for _, body := range []string{`[1,2]`, `"text"`, ``, `{"hostname":`} {
		resp, _ := do(t, http.MethodPut, srv.URL+"/settings", body)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, "body %q", body)
	}
}

func TestPutSettingsSaveFailure(t *testing.T) {
	mem := storage.NewMemory()
	svc, _, srv := newTestServer(t, mem)
	mem.FailWrites = true

	resp, body := do(t, http.MethodPut, srv.URL+"/settings", `{"hostname":"bridge"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, "the update is live even if it was not stored")
	require.NotEmpty(t, resp.Header.Get(SaveErrorHeader))
	require.Contains(t, body, `"hostname":"bridge"`)
	require.Equal(t, "bridge", svc.Snapshot().Hostname)
	require.False(t, mem.Exists(settings.FileName))

	mem.FailWrites = false
	resp, _ = do(t, http.MethodPut, srv.URL+"/settings", `{}`)
	require.Empty(t, resp.Header.Get(SaveErrorHeader))
}

func TestPutSettingsIsRateLimited(t *testing.T) {
	_, _, srv := newTestServer(t, storage.NewMemory(), WithRateLimit(0.001, 1))

	resp, _ := do(t, http.MethodPut, srv.URL+"/settings", `{}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = do(t, http.MethodPut, srv.URL+"/settings", `{}`)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestPostSettingsReloads(t *testing.T) {
	mem := storage.NewMemory()
	svc, _, srv := newTestServer(t, mem)
	mem.Put(settings.FileName, []byte(`{"hostname":"edited"}`))

	resp, body := do(t, http.MethodPost, srv.URL+"/settings", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `"hostname":"edited"`)
	require.Equal(t, "edited", svc.Snapshot().Hostname)
}

func TestUnsupportedMethod(t *testing.T) {
	_, _, srv := newTestServer(t, storage.NewMemory())
	resp, _ := do(t, http.MethodDelete, srv.URL+"/settings", "")
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestBasicAuthFollowsSettings(t *testing.T) {
	mem := storage.NewMemory()
	_, _, srv := newTestServer(t, mem)

	resp, _ := do(t, http.MethodPut, srv.URL+"/settings", `{"admin_username":"admin","admin_password":"secret"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/settings", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, resp.Header.Get("WWW-Authenticate"), "Basic")

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/settings", nil)
	require.NoError(t, err)
	req.SetBasicAuth("admin", "wrong")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req.SetBasicAuth("admin", "secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsRoute(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	_, _, srv := newTestServer(t, storage.NewMemory(), WithMetrics(metrics))
	resp, body := do(t, http.MethodGet, srv.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", body)
}

func TestWebSocketReceivesCurrentAndUpdatedSettings(t *testing.T) {
	svc, hub, srv := newTestServer(t, storage.NewMemory())

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/settings/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	_, message, err := conn.ReadMessage()
	require.NoError(t, err)
	def := settings.Default()
	require.Equal(t, def.ToJSON(false), string(message))

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)
	_, _, err = svc.Patch(parse(t, `{"hostname":"pushed"}`), "test")
	require.NoError(t, err)

	_, message, err = conn.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(message), `"hostname":"pushed"`)
}

func TestWebSocketOriginCheck(t *testing.T) {
	_, _, srv := newTestServer(t, storage.NewMemory(), WithAllowedOrigins([]string{"http://allowed"}))
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/settings/ws"

	header := http.Header{"Origin": []string{"http://evil"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestPatchDoesNotWaitForStoppedHub(t *testing.T) {
	svc := newTestService(t, storage.NewMemory())
	hub := NewHub(zerolog.Nop())
	NewServer(svc, hub, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			_, _, err := svc.Patch(parse(t, fmt.Sprintf(`{"listen_repeats":%d}`, i)), "test")
			assert.NoError(t, err)
		}
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("patch blocked on a hub that is not running")
	}

	require.Len(t, hub.broadcast, cap(hub.broadcast))
	var last []byte
	for len(hub.broadcast) > 0 {
		last = <-hub.broadcast
	}
	require.Contains(t, string(last), `"listen_repeats":19`)
}
