package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/timzifer/rfbridge/persist"
	"github.com/timzifer/rfbridge/service"
	"github.com/timzifer/rfbridge/storage"
)

func newBridge(t *testing.T) (*storage.Memory, *httptest.Server) {
	t.Helper()
	mem := storage.NewMemory()
	svc := service.New(persist.New(mem, zerolog.Nop()), zerolog.Nop())
	srv := httptest.NewServer(service.NewServer(svc, nil, zerolog.Nop()).Handler())
	t.Cleanup(srv.Close)
	return mem, srv
}

func TestNewHTTPClientFactoryRequiresAddress(t *testing.T) {
	factory := NewHTTPClientFactory()
	_, err := factory(Endpoint{})
	require.Error(t, err)
}

func TestNewHTTPClientFactoryConfigures(t *testing.T) {
	factory := NewHTTPClientFactory()
	client, err := factory(Endpoint{Address: "bridge.local:8080/"})
	require.NoError(t, err)

	h, ok := client.(*httpClient)
	require.True(t, ok, "expected *httpClient")
	require.Equal(t, "http://bridge.local:8080/settings", h.url)
	require.Equal(t, 5*time.Second, h.client.Timeout)
}

func TestClientRoundTrip(t *testing.T) {
	mem, srv := newBridge(t)
	client, err := NewHTTPClientFactory()(Endpoint{Address: srv.URL})
	require.NoError(t, err)
	ctx := context.Background()

	current, err := client.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "milight-hub", current.Hostname)

	result, err := client.Put(ctx, []byte(`{"hostname":"bridge","ce_pin":"x"}`))
	require.NoError(t, err)
	require.Equal(t, "bridge", result.Settings.Hostname)
	require.Equal(t, 1, result.Skipped)

	mem.Put("settings.json", []byte(`{"hostname":"edited"}`))
	current, err = client.Reload(ctx)
	require.NoError(t, err)
	require.Equal(t, "edited", current.Hostname)
}

func TestClientReportsUnsavedUpdates(t *testing.T) {
	mem, srv := newBridge(t)
	mem.FailWrites = true
	client, err := NewHTTPClientFactory()(Endpoint{Address: srv.URL})
	require.NoError(t, err)

	result, err := client.Put(context.Background(), []byte(`{"hostname":"bridge"}`))
	require.NoError(t, err)
	require.Equal(t, "bridge", result.Settings.Hostname)
	require.NotEmpty(t, result.SaveError)
}

func TestClientReportsStatusErrors(t *testing.T) {
	_, srv := newBridge(t)
	client, err := NewHTTPClientFactory()(Endpoint{Address: srv.URL})
	require.NoError(t, err)

	_, err = client.Put(context.Background(), []byte(`[1]`))
	var status *StatusError
	require.True(t, errors.As(err, &status))
	require.Equal(t, http.StatusBadRequest, status.Code)
	require.True(t, strings.Contains(status.Message, "object"))
}

func TestClientSendsCredentials(t *testing.T) {
	var user, pass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, _ = r.BasicAuth()
		_, _ = w.Write([]byte(`{"hostname":"auth"}`))
	}))
	defer srv.Close()

	client, err := NewHTTPClientFactory()(Endpoint{Address: srv.URL, Username: "admin", Password: "secret"})
	require.NoError(t, err)
	current, err := client.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, "auth", current.Hostname)
	require.Equal(t, "admin", user)
	require.Equal(t, "secret", pass)
}
