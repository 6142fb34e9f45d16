package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadToFile(t *testing.T) {
	payload := []byte("new-binary-content")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "VoiceAssistant updater/")
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	dst := filepath.Join(t.TempDir(), "app_new.tmp")
	require.NoError(t, os.WriteFile(dst, []byte("stale content that is longer than the payload"), 0o644))

	err := DownloadToFile(context.Background(), 0, srv.URL, dst)
	require.NoError(t, err)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestDownloadToFileFailures(t *testing.T) {
	testCases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "http error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "gone", http.StatusNotFound)
			},
		},
		{
			name: "zero length payload",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			dst := filepath.Join(t.TempDir(), "app_new.tmp")
			err := DownloadToFile(context.Background(), 0, srv.URL, dst)
			require.Error(t, err)

			_, statErr := os.Stat(dst)
			assert.True(t, os.IsNotExist(statErr), "partial download must be removed")
		})
	}
}

func TestDownloadToFileEmptyPayloadIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	err := DownloadToFile(context.Background(), time.Millisecond, srv.URL, filepath.Join(t.TempDir(), "a.tmp"))
	assert.ErrorIs(t, err, ErrEmptyPayload)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDownloadToFileRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	dst := filepath.Join(t.TempDir(), "a.tmp")
	require.NoError(t, DownloadToFile(context.Background(), time.Millisecond, srv.URL, dst))
	assert.Equal(t, int32(2), calls.Load())
}

func TestDownloadToFileTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	dst := filepath.Join(t.TempDir(), "a.tmp")
	err := DownloadToFile(ctx, 0, srv.URL, dst)
	require.Error(t, err)
	assert.False(t, fileExists(dst))
}

func TestDownloadToMemory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"version":"1.1.0"}`))
	}))
	defer srv.Close()

	data, err := DownloadToMemory(context.Background(), srv.URL, 8)
	require.NoError(t, err)
	assert.Equal(t, `{"versio`, string(data))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
