package viewer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agbruneau/learning-events/internal/taxonomy"
	"github.com/agbruneau/learning-events/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientURL(t *testing.T) {
	c := NewClient("http://collector:8080/", WithLimit(50))

	assert.Equal(t, "http://collector:8080/api/learning-events/session/42", c.URL("42"))
	assert.Equal(t, "http://collector:8080/api/learning-events/session/a%2Fb%20c", c.URL("a/b c"))
	assert.Equal(t, "http://collector:8080/api/learning-events/all?limit=50", c.URL(""))

	assert.Equal(t, "http://collector:8080/api/learning-events/all?limit=500", NewClient("http://collector:8080", WithLimit(0)).URL(""))
}

func TestClientFetch(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(models.Batch{Events: []models.Event{
			ev("1", taxonomy.Clicked, models.SeverityInfo, models.CategoryNavigation),
			ev("2", taxonomy.OrderedLab, models.SeverityAction, models.CategoryClinical),
		}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithClientToken("s3cret"), WithHTTPClient(srv.Client()))
	events, err := c.Fetch(context.Background(), "42")
	require.NoError(t, err)

	assert.Equal(t, "/api/learning-events/session/42", gotPath)
	assert.Equal(t, "Bearer s3cret", gotAuth)
	assert.Equal(t, []string{"1", "2"}, ids(events))
	assert.Equal(t, models.SeverityAction, events[1].Severity)
}

func TestClientFetchEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"events":null}`))
	}))
	defer srv.Close()

	events, err := NewClient(srv.URL).Fetch(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestClientFetchErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"unauthorized", http.StatusUnauthorized, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrUnauthorized)
		}},
		{"forbidden", http.StatusForbidden, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrUnauthorized)
		}},
		{"server error", http.StatusInternalServerError, func(t *testing.T, err error) {
			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, http.StatusInternalServerError, se.Code)
			assert.EqualError(t, err, "viewer: HTTP 500")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			events, err := NewClient(srv.URL).Fetch(context.Background(), "42")
			assert.Nil(t, events)
			tt.check(t, err)
		})
	}
}

func TestClientFetchBadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Fetch(context.Background(), "42")
	assert.ErrorContains(t, err, "decode events")
}

func TestClientFetchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url).Fetch(context.Background(), "42")
	assert.ErrorContains(t, err, "fetch events")
}
