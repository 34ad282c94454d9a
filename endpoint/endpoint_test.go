package endpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayland-systems/graphql-inspector/errors"
	"github.com/wayland-systems/graphql-inspector/pkg/retry"
)

const introspectionResponse = `{
  "data": {
    "__schema": {
      "queryType": { "name": "Query" },
      "types": [
        {
          "kind": "OBJECT",
          "name": "Query",
          "fields": [
            {
              "name": "a",
              "args": [],
              "type": { "kind": "SCALAR", "name": "String", "ofType": null },
              "isDeprecated": false
            }
          ],
          "interfaces": []
        }
      ],
      "directives": []
    }
  }
}`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

func TestIntrospectAndPrint(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query string `json:"query"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotQuery = req.Query
		fmt.Fprint(w, introspectionResponse)
	}))
	defer srv.Close()

	c := New(testLogger(), WithRetry(fastRetry()))
	sdl, err := c.IntrospectAndPrint(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, gotQuery, "__schema")
	assert.Contains(t, sdl, "type Query")
	assert.Contains(t, sdl, "a: String")
}

func TestIntrospectAndPrint_RetriesServerErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			http.Error(w, "bad gateway", http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, introspectionResponse)
	}))
	defer srv.Close()

	c := New(testLogger(), WithRetry(fastRetry()))
	sdl, err := c.IntrospectAndPrint(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Contains(t, sdl, "type Query")
}

func TestIntrospectAndPrint_GraphQLErrorNotRetried(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		fmt.Fprint(w, `{"errors": [{"message": "introspection is disabled"}]}`)
	}))
	defer srv.Close()

	c := New(testLogger(), WithRetry(fastRetry()))
	_, err := c.IntrospectAndPrint(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrEndpointFailed)
	assert.Contains(t, err.Error(), "introspection is disabled")
	assert.Equal(t, 1, attempts)
}

func TestIntrospectAndPrint_Unreachable(t *testing.T) {
	c := New(testLogger(), WithRetry(retry.Config{MaxAttempts: 1, InitialDelay: time.Millisecond}))
	_, err := c.IntrospectAndPrint(context.Background(), "http://127.0.0.1:1/graphql")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrEndpointFailed)
}
