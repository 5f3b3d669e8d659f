package crmsdk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pancarangroup/crmportal/pkg/eventbus"
)

func newUserService(t *testing.T, handler http.Handler) *UserService {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	crm := NewCRMClient(server.URL, "cred", seededStore(t), eventbus.New(), nil)
	return NewUserService(crm)
}

func TestFetchUser(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		users := newUserService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/admin/user/u2", r.URL.Path)
			w.Write([]byte(`{"resultCode":1,"data":{"id":"u2","username":"asmith","status":"ACTIVE"}}`))
		}))

		user, err := users.FetchUser(context.Background(), "u2")
		require.NoError(t, err)
		require.Equal(t, "asmith", user.Username)
	})

	t.Run("failure result code", func(t *testing.T) {
		users := newUserService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"resultCode":0,"message":"user not found"}`))
		}))

		_, err := users.FetchUser(context.Background(), "missing")

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, "user not found", apiErr.Message)
	})

	t.Run("validation", func(t *testing.T) {
		users := newUserService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		var validationErr *ValidationError
		_, err := users.FetchUser(context.Background(), "")
		require.ErrorAs(t, err, &validationErr)
	})
}

func TestUpdateUser(t *testing.T) {
	t.Parallel()

	users := newUserService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/admin/user/u2", r.URL.Path)
		w.Write([]byte(`{"resultCode":1,"data":{"id":"u2","name":"A. Smith"}}`))
	}))

	user, err := users.UpdateUser(context.Background(), "u2", AdminUserUpdate{Name: "A. Smith"})
	require.NoError(t, err)
	require.Equal(t, "A. Smith", user.Name)
}

func TestFetchTenantsCaches(t *testing.T) {
	t.Parallel()

	calls := 0
	users := newUserService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		require.Equal(t, "/common/tenant", r.URL.Path)
		w.Write([]byte(`[{"id":"t1","name":"Pancaran"},{"id":"t2","name":"Acme"}]`))
	}))

	first, err := users.FetchTenants(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := users.FetchTenants(context.Background())
	require.NoError(t, err)
	require.Equal(t, first, second)

	require.Equal(t, 1, calls, "second fetch must be served from cache")
}

func TestFetchFeaturePermissions(t *testing.T) {
	t.Parallel()

	t.Run("domains", func(t *testing.T) {
		users := newUserService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/admin/user/u2/permission/features/CUSTOMER", r.URL.Path)
			w.Write([]byte(`[{"id":"d1","name":"Invoicing","availableFeatures":[{"id":"f1","name":"Confirm","enabled":true}]}]`))
		}))

		domains, err := users.FetchFeaturePermissions(context.Background(), "u2", "CUSTOMER")
		require.NoError(t, err)
		require.Len(t, domains, 1)
		require.True(t, domains[0].AvailableFeatures[0].Enabled)
	})

	t.Run("degrades to empty", func(t *testing.T) {
		users := newUserService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`null`))
		}))

		domains, err := users.FetchFeaturePermissions(context.Background(), "u2", "CUSTOMER")
		require.NoError(t, err)
		require.Empty(t, domains)
		require.NotNil(t, domains)
	})
}

func TestFetchDataPermissions(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		body          string
		wantCustomers int
		wantSelected  []string
	}{
		"envelope shape": {
			body:          `{"resultCode":1,"data":{"customers":[{"id":"c1","name":"Acme"}],"selectedCustomers":["c1"]}}`,
			wantCustomers: 1,
			wantSelected:  []string{"c1"},
		},
		"bare array shape": {
			body:          `[{"id":"c1","name":"Acme"},{"id":"c2","name":"Globex"}]`,
			wantCustomers: 2,
			wantSelected:  []string{},
		},
		"unexpected shape degrades": {
			body:          `{"something":"else"}`,
			wantCustomers: 0,
			wantSelected:  []string{},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			users := newUserService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			}))

			perms, err := users.FetchDataPermissions(context.Background(), "u2", "CUSTOMER")
			require.NoError(t, err)
			require.Len(t, perms.Customers, tc.wantCustomers)
			require.Equal(t, tc.wantSelected, perms.SelectedCustomers)
		})
	}
}

func TestUpdatePermissions(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		users := newUserService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPatch, r.Method)
			require.Equal(t, "/admin/user/u2/permission/CUSTOMER", r.URL.Path)
			w.Write([]byte(`{"resultCode":1}`))
		}))

		err := users.UpdatePermissions(context.Background(), "u2", "CUSTOMER", map[string]any{"features": []string{"f1"}})
		require.NoError(t, err)
	})

	t.Run("rejected", func(t *testing.T) {
		users := newUserService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"resultCode":0,"message":"permission denied"}`))
		}))

		err := users.UpdatePermissions(context.Background(), "u2", "CUSTOMER", nil)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, "permission denied", apiErr.Message)
	})
}
