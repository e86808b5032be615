package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aihub/campus-companion/internal/config"
	apperrors "github.com/aihub/campus-companion/internal/errors"
)

func TestParseSource(t *testing.T) {
	tests := []struct {
		source  string
		bucket  string
		key     string
		remote  bool
		wantErr bool
	}{
		{source: "models/intent.json"},
		{source: "minio://models/intent/v3.json", bucket: "models", key: "intent/v3.json", remote: true},
		{source: "minio://models", remote: true, wantErr: true},
		{source: "minio:///intent.json", remote: true, wantErr: true},
		{source: "minio://models/", remote: true, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			bucket, key, remote, err := ParseSource(tt.source)
			assert.Equal(t, tt.remote, remote)
			if tt.wantErr {
				assert.True(t, apperrors.IsConfigurationError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestArtifactStore_OpenLocal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules: []"), 0o600))

	store, err := NewArtifactStore(config.StorageConfig{})
	require.NoError(t, err)

	rc, err := store.Open(context.Background(), path)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "rules: []", string(data))

	_, err = store.Open(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestArtifactStore_RemoteWithoutEndpoint(t *testing.T) {
	store, err := NewArtifactStore(config.StorageConfig{})
	require.NoError(t, err)

	_, err = store.Open(context.Background(), "minio://models/intent.json")
	assert.True(t, apperrors.IsConfigurationError(err))
}

func TestArtifactStore_OpenMinio(t *testing.T) {
	payload := `{"labels":["rag"]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/intent.json" {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>not found</Message></Error>`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		w.Header().Set("ETag", `"abc123"`)
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	store, err := NewArtifactStore(config.StorageConfig{Endpoint: srv.URL, AccessKey: "minio", SecretKey: "minio123"})
	require.NoError(t, err)

	rc, err := store.Open(context.Background(), "minio://models/intent.json")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, payload, string(data))

	_, err = store.Open(context.Background(), "minio://models/other.json")
	assert.Error(t, err)
}
