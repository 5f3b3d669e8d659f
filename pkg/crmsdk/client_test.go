package crmsdk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pancarangroup/crmportal/pkg/eventbus"
)

// seededStore returns a MemoryStore holding a live-looking session.
func seededStore(t *testing.T) *MemoryStore {
	t.Helper()

	store := NewMemoryStore()
	err := store.Save(context.Background(), Snapshot{
		AccessToken: "session-jwt",
		Profile: &UserProfile{
			ID:       "u1",
			Username: "jdoe",
			Email:    "jdoe@pancaran.example",
			RoleID:   "r1",
			Roles:    []Role{{ID: "r1", Name: "Finance"}},
		},
		AbilityRules: []AbilityRule{{Action: "manage", Subject: "invoices"}},
		TenantType:   "CUSTOMER",
		FeatureRoles: []string{"invoices"},
	})
	require.NoError(t, err)
	return store
}

// logoutCounter subscribes to the bus and counts logout broadcasts.
func logoutCounter(bus *eventbus.Bus) *int {
	count := new(int)
	bus.Subscribe(eventbus.EventLogout, func() { *count++ })
	return count
}

func TestDoDecoratesRequest(t *testing.T) {
	t.Parallel()

	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	store := seededStore(t)
	client := NewCRMClient(server.URL, "Bearer service-cred", store, eventbus.New(), nil)

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, client.Get(context.Background(), "/user/profile", &out))
	require.True(t, out.OK)

	require.Equal(t, "Bearer service-cred", got.Get("Authorization"))
	require.Equal(t, "session-jwt", got.Get("X-JWT"))
	require.Equal(t, "application/json", got.Get("Content-Type"))
	require.Equal(t, "en-GB,en;q=0.9", got.Get("Accept-Language"))
	require.NotEmpty(t, got.Get("X-Request-Id"))
}

func TestDoWithoutTokenFailsBeforeTransmit(t *testing.T) {
	t.Parallel()

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	store := NewMemoryStore()
	bus := eventbus.New()
	logouts := logoutCounter(bus)
	client := NewCRMClient(server.URL, "cred", store, bus, nil)

	err := client.Get(context.Background(), "/user/profile", nil)
	require.ErrorIs(t, err, ErrAuthRequired)
	require.Zero(t, calls, "nothing must be transmitted without a session token")
	require.Equal(t, 1, *logouts)
}

func TestDoSkipAuthTransmitsWithoutToken(t *testing.T) {
	t.Parallel()

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		require.Empty(t, r.Header.Get("X-JWT"))
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewCRMClient(server.URL, "cred", NewMemoryStore(), eventbus.New(), nil)

	require.NoError(t, client.Get(context.Background(), "/user/jdoe/default-role", nil, SkipAuth()))
	require.Equal(t, 1, calls)
}

func TestDoUnauthorizedTearsDownOnce(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	store := seededStore(t)
	bus := eventbus.New()
	logouts := logoutCounter(bus)
	client := NewCRMClient(server.URL, "cred", store, bus, nil)

	err := client.Get(context.Background(), "/user/profile", nil)
	require.ErrorIs(t, err, ErrInvalidToken)
	require.Equal(t, 1, *logouts, "logout must be broadcast exactly once")

	snap, loadErr := store.Load(context.Background())
	require.NoError(t, loadErr)
	require.Equal(t, Snapshot{}, snap, "store must be fully cleared")
}

func TestDoTokenMarkerTearsDown(t *testing.T) {
	t.Parallel()

	markers := []string{
		`{"messageKey":"Invalid or Expired Token"}`,
		`{"messageKey":"Token Expired"}`,
		`{"messageKey":"Invalid Token"}`,
		`{"messageKey":"common.invalid_request"}`,
		`{"message":"Invalid or Expired Token"}`, // v2/user-store variant shape
	}

	for _, body := range markers {
		t.Run(body, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(body))
			}))
			defer server.Close()

			store := seededStore(t)
			bus := eventbus.New()
			logouts := logoutCounter(bus)
			client := NewCRMClient(server.URL, "cred", store, bus, nil)

			err := client.Get(context.Background(), "/user/profile", nil)
			require.ErrorIs(t, err, ErrInvalidToken)
			require.Equal(t, 1, *logouts)

			token, _ := store.AccessToken(context.Background())
			require.Empty(t, token)
		})
	}
}

func TestDoStructuredErrorSurfacesVerbatim(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"messageKey":"common.field_value.exists","message":"Username already exists"}`))
	}))
	defer server.Close()

	store := seededStore(t)
	bus := eventbus.New()
	logouts := logoutCounter(bus)
	client := NewCRMClient(server.URL, "cred", store, bus, nil)

	err := client.Get(context.Background(), "/admin/user/u2", nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusConflict, apiErr.StatusCode)
	require.Equal(t, "common.field_value.exists", apiErr.MessageKey)
	require.Equal(t, "Username already exists", apiErr.Message)

	// Non-auth errors must not tear the session down.
	require.Zero(t, *logouts)
	token, _ := store.AccessToken(context.Background())
	require.Equal(t, "session-jwt", token)
}

func TestDoUnstructuredErrorIsGeneric(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream blew up"))
	}))
	defer server.Close()

	client := NewCRMClient(server.URL, "cred", seededStore(t), eventbus.New(), nil)

	err := client.Get(context.Background(), "/user/profile", nil)
	require.ErrorIs(t, err, ErrRequestFailed)
}

func TestDoTransportFailureIsNetworkError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := NewCRMClient(server.URL, "cred", seededStore(t), eventbus.New(), nil)

	err := client.Get(context.Background(), "/user/profile", nil)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	require.Error(t, netErr.Unwrap())
}

func TestV2VariantHeaders(t *testing.T) {
	t.Parallel()

	var got http.Header
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		gotPath = r.URL.Path
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	store := seededStore(t)
	client := NewCRMV2Client(server.URL, "cred", store, eventbus.New(), nil)

	require.NoError(t, client.Get(context.Background(), "/reports", nil))
	require.Equal(t, "/v2/reports", gotPath)
	require.Equal(t, "session-jwt", got.Get("X-Token"))
	require.Equal(t, "jdoe@pancaran.example", got.Get("X-User-Id"))
	require.Empty(t, got.Get("X-JWT"))
}

func TestV2VariantAnonymousFallback(t *testing.T) {
	t.Parallel()

	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewCRMV2Client(server.URL, "cred", NewMemoryStore(), eventbus.New(), nil)

	require.NoError(t, client.Get(context.Background(), "/reports", nil, SkipAuth()))
	require.Equal(t, "anonymouse", got.Get("X-User-Id"))
}

func TestUserStoreVariantStatusFallback(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer server.Close()

	client := NewUserStoreClient(server.URL, "cred", seededStore(t), eventbus.New(), nil)

	err := client.Post(context.Background(), "/admin/user", map[string]string{"username": "jdoe"}, nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "username already exists", apiErr.Message)
}

func TestDoAppendsQuery(t *testing.T) {
	t.Parallel()

	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewCRMClient(server.URL, "cred", seededStore(t), eventbus.New(), nil)

	q := make(map[string][]string)
	q["page"] = []string{"2"}
	q["size"] = []string{"25"}
	require.NoError(t, client.Get(context.Background(), "/invoices/waiting-confirm", nil, WithQuery(q)))
	require.Equal(t, "page=2&size=25", gotQuery)
}
