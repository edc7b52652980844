package provision

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/config"
	"github.com/NikitaSkrynnik/huly-cef-mcp/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	return NewClient(Params{
		Config: &config.Config{
			ProvisionConfig: &config.ProvisionConfig{BaseURL: baseURL + "/", Timeout: 5 * time.Second},
		},
		Logger: zaptest.NewLogger(t),
	})
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantAddress string
		wantFailure string
		wantErr     bool
	}{
		{
			name:        "address returned",
			status:      http.StatusOK,
			body:        `{"data":{"address":"ws://10.0.0.5:40001"}}`,
			wantAddress: "ws://10.0.0.5:40001",
		},
		{
			name:        "error status with message",
			status:      http.StatusNotFound,
			body:        `{"error":"profile not found"}`,
			wantFailure: "profile not found",
		},
		{
			name:   "error status without body",
			status: http.StatusInternalServerError,
			body:   `oops`,
		},
		{
			name:        "ok status carrying error field",
			status:      http.StatusOK,
			body:        `{"data":null,"error":"profile busy"}`,
			wantFailure: "profile busy",
		},
		{
			name:    "ok status with garbage",
			status:  http.StatusOK,
			body:    `not json`,
			wantErr: true,
		},
		{
			name:    "ok status without address",
			status:  http.StatusOK,
			body:    `{"data":{}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			address, failure, err := newTestClient(t, srv.URL).Resolve(context.Background(), "work")

			assert.Equal(t, "/profiles/work/cef", gotPath)
			if tt.wantErr {
				require.Error(t, err)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddress, address)
			assert.Equal(t, tt.wantFailure, failure)
		})
	}
}

func TestResolveUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, _, err := newTestClient(t, srv.URL).Resolve(context.Background(), "work")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnavailable, apperr.CodeOf(err))
}
