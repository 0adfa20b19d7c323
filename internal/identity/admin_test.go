package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRequiresCredentials(t *testing.T) {
	assert.Nil(t, NewClient("", "key", 0))
	assert.Nil(t, NewClient("https://x.supabase.co", "", 0))
	assert.NotNil(t, NewClient("https://x.supabase.co", "key", 0))
}

func TestListUsersPaginates(t *testing.T) {
	var pages []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/admin/users", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "secret", r.Header.Get("apikey"))

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		pages = append(pages, page)

		var users []adminUser
		switch page {
		case 1:
			users = []adminUser{
				{ID: "a", Email: "a@example.com", UserMetadata: map[string]any{"full_name": "Alpha"}},
				{ID: "b", Email: "b@example.com", UserMetadata: map[string]any{"name": "Beta"}},
			}
		case 2:
			users = []adminUser{{ID: "c"}}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(listUsersResponse{Users: users})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret", time.Second)
	c.perPage = 2

	users, err := c.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, pages)
	require.Len(t, users, 3)
	assert.Equal(t, "Alpha", users[0].Name)
	assert.Equal(t, "Beta", users[1].Name)
	assert.Equal(t, "", users[2].Email)
}

func TestListUsersErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"msg":"invalid JWT"}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "bad", time.Second).ListUsers(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "invalid JWT")
}
