package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medvault/medvault/internal/config"
	"github.com/medvault/medvault/internal/records"
	"github.com/medvault/medvault/internal/session"
)

func newRuntime(t *testing.T, handler http.Handler) *Runtime {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	t.Setenv("MEDVAULT_API_URL", ts.URL)
	t.Setenv("MEDVAULT_STATE_DIR", t.TempDir())
	rt, err := New(config.Load())
	require.NoError(t, err)
	t.Cleanup(func() { rt.Close() })
	return rt
}

func TestLogoutClearsMirror(t *testing.T) {
	rt := newRuntime(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			json.NewEncoder(w).Encode(map[string]any{
				"access_token": "t1",
				"user":         map[string]any{"id": 7, "role": "doctor"},
			})
		case "/patients":
			json.NewEncoder(w).Encode([]records.Patient{{ID: 1, Name: "Ann"}})
		default:
			http.NotFound(w, r)
		}
	}))
	ctx := context.Background()

	require.NoError(t, rt.Session.Login(ctx, "doc@example.com", "secret"))
	_, err := rt.Records.List(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, rt.Records.Patients())

	rt.Logout(ctx)
	assert.Equal(t, session.StateAnonymous, rt.Session.State())
	assert.Empty(t, rt.Records.Patients(), "patient data must not outlive the session")
}

func TestUnknownSessionStoreRejected(t *testing.T) {
	t.Setenv("MEDVAULT_SESSION_STORE", "vault")
	_, err := New(config.Load())
	require.Error(t, err)
}

func TestRedisStoreRequiresAddr(t *testing.T) {
	t.Setenv("MEDVAULT_SESSION_STORE", "redis")
	t.Setenv("MEDVAULT_REDIS_ADDR", "")
	_, err := New(config.Load())
	require.Error(t, err)
}
