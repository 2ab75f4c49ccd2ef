package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BAPONBARMON/file-server/internal/config"
	"github.com/BAPONBARMON/file-server/internal/database"
	"github.com/BAPONBARMON/file-server/internal/files"
	"github.com/BAPONBARMON/file-server/internal/storage"
	"github.com/BAPONBARMON/file-server/internal/websocket"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()

	blobs, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	hub := websocket.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	manager, err := files.NewManager(database.NewMemoryStore(), blobs,
		files.WithPhysicalFolders(true),
		files.WithPublisher(hub),
	)
	require.NoError(t, err)

	cfg := &config.Config{
		Upload: config.UploadConfig{MaxBytes: 8 << 20, MemoryBytes: 1 << 20},
	}
	server := NewServer(cfg, manager, hub)
	return server, server.Routes()
}

type namedContent struct {
	name    string
	content string
}

func multipartBody(t *testing.T, parent string, uploads ...namedContent) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, u := range uploads {
		part, err := writer.CreateFormFile("files", u.name)
		require.NoError(t, err)
		_, err = io.WriteString(part, u.content)
		require.NoError(t, err)
	}
	if parent != "" {
		require.NoError(t, writer.WriteField("parent", parent))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func do(t *testing.T, handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func upload(t *testing.T, handler http.Handler, parent string, uploads ...namedContent) (*httptest.ResponseRecorder, UploadResponse) {
	t.Helper()

	body, contentType := multipartBody(t, parent, uploads...)
	req := httptest.NewRequest(http.MethodPost, "/api/files", body)
	req.Header.Set("Content-Type", contentType)
	rr := do(t, handler, req)

	var resp UploadResponse
	if rr.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	}
	return rr, resp
}

func createFolder(t *testing.T, handler http.Handler, name, parent string) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(CreateFolderRequest{Name: name, Parent: parent})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/folders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return do(t, handler, req)
}
