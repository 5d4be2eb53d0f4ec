package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"shopscraper/pkg/errors"
	"shopscraper/pkg/logger"
)

func TestFetch(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/ok.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write([]byte("jpeg-bytes"))
		case "/empty.jpg":
			w.WriteHeader(http.StatusOK)
		case "/forbidden.jpg":
			w.WriteHeader(http.StatusForbidden)
		case "/broken.jpg":
			w.WriteHeader(http.StatusBadGateway)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewClient(5*time.Second, "", logger.NewTestLogger())

	tests := []struct {
		name     string
		path     string
		want     string
		wantCode int
	}{
		{name: "success", path: "/ok.jpg", want: "jpeg-bytes"},
		{name: "not found", path: "/missing.jpg", wantCode: http.StatusNotFound},
		{name: "forbidden", path: "/forbidden.jpg", wantCode: http.StatusForbidden},
		{name: "server error", path: "/broken.jpg", wantCode: http.StatusBadGateway},
		{name: "empty body", path: "/empty.jpg", wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := client.Fetch(context.Background(), server.URL+tt.path)
			if tt.want != "" {
				require.NoError(t, err)
				assert.Equal(t, tt.want, string(data))
				return
			}

			require.Error(t, err)
			var typed *errors.Error
			require.True(t, errors.As(err, &typed))
			assert.Equal(t, errors.ErrorTypeDownload, typed.Type)
			assert.Equal(t, tt.wantCode, typed.Code)
		})
	}

	assert.Equal(t, DefaultUserAgent, gotUA)
}

func TestFetchHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewClient(time.Minute, "test-agent", nil).Fetch(ctx, server.URL+"/slow.jpg")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, errors.ErrorTypeDownload, errors.TypeOf(err))
}

func TestFetchInvalidURL(t *testing.T) {
	_, err := NewClient(time.Second, "", logger.NewNopLogger()).Fetch(context.Background(), "://nope")
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeDownload, errors.TypeOf(err))
}

func TestNewClientLogsSettings(t *testing.T) {
	log := logger.NewTestLogger()
	NewClient(3*time.Second, "", log)

	msgs := log.GetMessagesByLevel("INFO")
	require.Len(t, msgs, 1)
	assert.Equal(t, "downloader", msgs[0].Fields["component"])
	assert.Equal(t, 3*time.Second, msgs[0].Fields["timeout"])
	assert.Equal(t, DefaultUserAgent, msgs[0].Fields["user_agent"])
}
