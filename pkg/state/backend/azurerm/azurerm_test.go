package azurerm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/davidthor/auractl/pkg/state/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Azurite's well-known development key.
const devAccountKey = "Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw=="

// mockAzureBlobServer serves blob GET, HEAD, PUT and DELETE under
// /<container>/<blob>.
type mockAzureBlobServer struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMockAzureBlobServer() *mockAzureBlobServer {
	return &mockAzureBlobServer{blobs: make(map[string][]byte)}
}

func (m *mockAzureBlobServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.TrimPrefix(r.URL.Path, "/")
	if !strings.Contains(key, "/") {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}

	data, ok := m.blobs[key]
	if !ok && r.Method != http.MethodPut {
		w.Header().Set("x-ms-error-code", "BlobNotFound")
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	case http.MethodHead:
		w.WriteHeader(http.StatusOK)
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		m.blobs[key] = body
		w.WriteHeader(http.StatusCreated)
	case http.MethodDelete:
		delete(m.blobs, key)
		w.WriteHeader(http.StatusAccepted)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func newTestBackend(t *testing.T, extra map[string]string) (*Backend, *mockAzureBlobServer) {
	t.Helper()
	mock := newMockAzureBlobServer()
	server := httptest.NewServer(mock)
	t.Cleanup(server.Close)

	cfg := map[string]string{
		"storage_account_name": "devstoreaccount1",
		"container_name":       "records",
		"connection_string": "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=" +
			devAccountKey + ";BlobEndpoint=" + server.URL + "/;",
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
		name    string
		config  map[string]string
		message string
	}{
		{
			name:    "missing storage account",
			config:  map[string]string{"container_name": "records"},
			message: "storage_account_name",
		},
		{
			name:    "missing container",
			config:  map[string]string{"storage_account_name": "acct"},
			message: "container_name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBackend(tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestNewBackend_Registered(t *testing.T) {
	assert.Contains(t, backend.Available(), "azurerm")
}

func TestNewBackend_SharedKey(t *testing.T) {
	b, err := NewBackend(map[string]string{
		"storage_account_name": "devstoreaccount1",
		"container_name":       "records",
		"access_key":           devAccountKey,
		"key":                  "auractl/",
	})
	require.NoError(t, err)
	assert.Equal(t, "azurerm", b.Type())
	assert.Equal(t, "auractl", b.(*Backend).prefix)
}

func TestBackend_Paths(t *testing.T) {
	tests := []struct {
		name     string
		prefix   string
		path     string
		expected string
	}{
		{name: "no prefix", prefix: "", path: "runs/a.run.json", expected: "runs/a.run.json"},
		{name: "with prefix", prefix: "auractl", path: "runs/a.run.json", expected: "auractl/runs/a.run.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Backend{prefix: tt.prefix}
			full := b.fullPath(tt.path)
			assert.Equal(t, tt.expected, full)
			assert.Equal(t, tt.path, b.relPath(full))
		})
	}
}

func TestBackend_ReadNotFound(t *testing.T) {
	b, _ := newTestBackend(t, nil)

	_, err := b.Read(context.Background(), "runs/missing.run.json")
	assert.ErrorIs(t, err, backend.ErrNotFound)
}

func TestBackend_ReadExisting(t *testing.T) {
	b, mock := newTestBackend(t, nil)
	mock.blobs["records/runs/r1.run.json"] = []byte(`{"id":"r1"}`)

	rc, err := b.Read(context.Background(), "runs/r1.run.json")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"r1"}`, string(data))
}

func TestBackend_Exists(t *testing.T) {
	b, mock := newTestBackend(t, nil)
	mock.blobs["records/runs/r1.run.json"] = []byte(`{}`)

	ok, err := b.Exists(context.Background(), "runs/r1.run.json")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Exists(context.Background(), "runs/r2.run.json")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBackend_DeleteIdempotent(t *testing.T) {
	b, mock := newTestBackend(t, nil)
	mock.blobs["records/runs/r1.run.json"] = []byte(`{}`)

	require.NoError(t, b.Delete(context.Background(), "runs/r1.run.json"))
	assert.NotContains(t, mock.blobs, "records/runs/r1.run.json")
	require.NoError(t, b.Delete(context.Background(), "runs/r1.run.json"))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(&azcore.ResponseError{StatusCode: http.StatusNotFound}))
	assert.False(t, isNotFound(&azcore.ResponseError{StatusCode: http.StatusForbidden}))
	assert.False(t, isNotFound(errors.New("boom")))
}

func TestToPtr(t *testing.T) {
	p := toPtr("application/json")
	require.NotNil(t, p)
	assert.Equal(t, "application/json", *p)
}
