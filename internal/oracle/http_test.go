package oracle_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"vrflottery/internal/models"
	"vrflottery/internal/oracle"

	"github.com/stretchr/testify/require"
)

func TestNewHTTPCoordinator(t *testing.T) {
	_, err := oracle.NewHTTPCoordinator("not a url", "token")
	require.Error(t, err)

	_, err = oracle.NewHTTPCoordinator("http://oracle.local", "token")
	require.NoError(t, err)
}

func TestHTTPCoordinatorRequestRandomWords(t *testing.T) {
	testCases := []struct {
		description string
		status      int
		body        string
		expectedID  uint64
		expectErr   bool
	}{
		{
			description: "accepted",
			status:      http.StatusOK,
			body:        `{"requestId": 12}`,
			expectedID:  12,
		},
		{
			description: "error body",
			status:      http.StatusOK,
			body:        `{"status": "error", "error": "subscription not funded"}`,
			expectErr:   true,
		},
		{
			description: "server failure",
			status:      http.StatusInternalServerError,
			body:        `oops`,
			expectErr:   true,
		},
		{
			description: "missing request id",
			status:      http.StatusOK,
			body:        `{}`,
			expectErr:   true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			var received models.RandomnessRequest
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, http.MethodPost, r.Method)
				require.Equal(t, "/api/requests", r.URL.Path)
				require.Equal(t, "secret", r.Header.Get("X-Api-Token"))
				require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c, err := oracle.NewHTTPCoordinator(srv.URL+"/api", "secret")
			require.NoError(t, err)

			id, err := c.RequestRandomWords(context.Background(), request)
			require.Equal(t, request, received)
			if tc.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expectedID, id)
		})
	}
}
