package s3

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/davidthor/auractl/pkg/state/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockS3Server serves the subset of the S3 REST API the backend uses.
type mockS3Server struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func newMockS3Server() *mockS3Server {
	return &mockS3Server{
		objects: make(map[string][]byte),
	}
}

func (m *mockS3Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Parse bucket and key from path: /bucket/key
	path := strings.TrimPrefix(r.URL.Path, "/")
	parts := strings.SplitN(path, "/", 2)

	if len(parts) < 1 || parts[0] == "" {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return
	}

	bucket := parts[0]
	key := ""
	if len(parts) > 1 {
		key = parts[1]
	}

	// Handle list objects
	if key == "" && r.URL.Query().Get("list-type") == "2" {
		m.handleListObjects(w, r, bucket)
		return
	}

	fullKey := bucket + "/" + key

	switch r.Method {
	case http.MethodGet:
		m.handleGet(w, fullKey)
	case http.MethodPut:
		m.handlePut(w, r, fullKey)
	case http.MethodDelete:
		m.handleDelete(w, fullKey)
	case http.MethodHead:
		m.handleHead(w, fullKey)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (m *mockS3Server) handleGet(w http.ResponseWriter, key string) {
	data, ok := m.objects[key]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code></Error>`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (m *mockS3Server) handlePut(w http.ResponseWriter, r *http.Request, key string) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	m.objects[key] = data
	w.WriteHeader(http.StatusOK)
}

func (m *mockS3Server) handleDelete(w http.ResponseWriter, key string) {
	delete(m.objects, key)
	w.WriteHeader(http.StatusNoContent)
}

func (m *mockS3Server) handleHead(w http.ResponseWriter, key string) {
	if _, ok := m.objects[key]; !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (m *mockS3Server) handleListObjects(w http.ResponseWriter, r *http.Request, bucket string) {
	prefix := r.URL.Query().Get("prefix")

	var keys []string
	for key := range m.objects {
		if strings.HasPrefix(key, bucket+"/") {
			objectKey := strings.TrimPrefix(key, bucket+"/")
			if prefix == "" || strings.HasPrefix(objectKey, prefix) {
				keys = append(keys, objectKey)
			}
		}
	}

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)

	response := `<?xml version="1.0" encoding="UTF-8"?><ListBucketResult><Name>` + bucket + `</Name>`
	for _, key := range keys {
		response += `<Contents><Key>` + key + `</Key></Contents>`
	}
	response += `</ListBucketResult>`
	_, _ = w.Write([]byte(response))
}

func newTestBackend(t *testing.T, extra map[string]string) (*Backend, *mockS3Server) {
	t.Helper()
	mock := newMockS3Server()
	server := httptest.NewServer(mock)
	t.Cleanup(server.Close)

	cfg := map[string]string{
		"bucket":           "records",
		"endpoint":         server.URL,
		"access_key":       "test-key",
		"secret_key":       "test-secret",
		"force_path_style": "true",
	}
	for k, v := range extra {
		cfg[k] = v
	}

	b, err := NewBackend(cfg)
	require.NoError(t, err)
	return b.(*Backend), mock
}

func TestNewBackend_Validation(t *testing.T) {
	tests := []struct {
		name   string
		config map[string]string
	}{
		{name: "empty config", config: map[string]string{}},
		{name: "empty bucket", config: map[string]string{"bucket": "", "region": "eu-west-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBackend(tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "bucket")
		})
	}
}

func TestNewBackend_Registered(t *testing.T) {
	assert.Contains(t, backend.Available(), "s3")
}

func TestBackend_Type(t *testing.T) {
	b, _ := newTestBackend(t, nil)
	assert.Equal(t, "s3", b.Type())
}

func TestBackend_KeyPrefix(t *testing.T) {
	b, _ := newTestBackend(t, map[string]string{"key": "/auractl/prod/"})
	assert.Equal(t, "auractl/prod", b.prefix)
	assert.Equal(t, "auractl/prod/runs/r1.run.json", b.fullPath("runs/r1.run.json"))
	assert.Equal(t, "runs/r1.run.json", b.relPath("auractl/prod/runs/r1.run.json"))
}

func TestBackend_fullPath(t *testing.T) {
	tests := []struct {
		name     string
		prefix   string
		path     string
		expected string
	}{
		{name: "no prefix", prefix: "", path: "runs/a.run.json", expected: "runs/a.run.json"},
		{name: "with prefix", prefix: "auractl", path: "runs/a.run.json", expected: "auractl/runs/a.run.json"},
		{name: "nested prefix", prefix: "teams/data", path: "runs/b.run.json", expected: "teams/data/runs/b.run.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Backend{prefix: tt.prefix}
			assert.Equal(t, tt.expected, b.fullPath(tt.path))
		})
	}
}

func TestBackend_ReadNotFound(t *testing.T) {
	b, _ := newTestBackend(t, nil)

	_, err := b.Read(context.Background(), "runs/missing.run.json")
	assert.ErrorIs(t, err, backend.ErrNotFound)
}

func TestBackend_ReadExisting(t *testing.T) {
	b, mock := newTestBackend(t, map[string]string{"key": "auractl"})
	mock.objects["records/auractl/runs/r1.run.json"] = []byte(`{"id":"r1"}`)

	rc, err := b.Read(context.Background(), "runs/r1.run.json")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"r1"}`, string(data))
}

func TestBackend_Exists(t *testing.T) {
	b, mock := newTestBackend(t, nil)
	mock.objects["records/runs/r1.run.json"] = []byte(`{}`)

	ok, err := b.Exists(context.Background(), "runs/r1.run.json")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Exists(context.Background(), "runs/r2.run.json")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBackend_Delete(t *testing.T) {
	b, mock := newTestBackend(t, nil)
	mock.objects["records/runs/r1.run.json"] = []byte(`{}`)

	require.NoError(t, b.Delete(context.Background(), "runs/r1.run.json"))
	_, ok := mock.objects["records/runs/r1.run.json"]
	assert.False(t, ok)
}

func TestMockServer_PutAndGet(t *testing.T) {
	mock := newMockS3Server()
	server := httptest.NewServer(mock)
	defer server.Close()

	data := []byte(`{"id": "r1"}`)
	req, _ := http.NewRequest(http.MethodPut, server.URL+"/bucket/runs/r1.run.json", bytes.NewReader(data))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(server.URL + "/bucket/runs/r1.run.json")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, data, body)
}

func TestMockServer_ListObjects(t *testing.T) {
	mock := newMockS3Server()
	server := httptest.NewServer(mock)
	defer server.Close()

	for _, obj := range []string{"runs/a.run.json", "runs/b.run.json", "other/file.txt"} {
		req, _ := http.NewRequest(http.MethodPut, server.URL+"/bucket/"+obj, bytes.NewReader([]byte("{}")))
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
	}

	resp, err := http.Get(server.URL + "/bucket/?list-type=2&prefix=runs/")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "runs/a.run.json")
	assert.NotContains(t, string(body), "other/file.txt")
}
