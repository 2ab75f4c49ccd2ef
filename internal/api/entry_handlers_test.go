package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BAPONBARMON/file-server/internal/models"
	"github.com/stretchr/testify/require"
)

func listEntries(t *testing.T, handler http.Handler, parent string) []models.Entry {
	t.Helper()

	url := "/api/files"
	if parent != "" {
		url += "?parent=" + parent
	}
	rr := do(t, handler, httptest.NewRequest(http.MethodGet, url, nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var entries []models.Entry
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &entries))
	return entries
}

func TestAPI_UploadListDownloadDelete(t *testing.T) {
	_, handler := newTestServer(t)

	rr, resp := upload(t, handler, "",
		namedContent{"notes.txt", "hello world"},
		namedContent{"raport końcowy.pdf", "%PDF-1.4"},
	)
	require.Equal(t, http.StatusCreated, rr.Code)
	require.True(t, resp.Success)
	require.Len(t, resp.Files, 2)
	require.Equal(t, "notes.txt", resp.Files[0].Name)
	require.Equal(t, int64(len("hello world")), resp.Files[0].Size)
	require.NotEmpty(t, resp.Files[0].ID)

	entries := listEntries(t, handler, "")
	require.Len(t, entries, 2)
	require.Equal(t, resp.Files[0].ID, entries[0].ID)
	require.Equal(t, models.KindFile, entries[0].Kind)
	require.Equal(t, models.RootParentID, entries[0].ParentID)
	require.Equal(t, entries, listEntries(t, handler, "/"))

	rr = do(t, handler, httptest.NewRequest(http.MethodGet, "/api/files/"+resp.Files[0].ID, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "hello world", rr.Body.String())
	require.Equal(t, `attachment; filename=notes.txt`, rr.Header().Get("Content-Disposition"))
	require.Equal(t, "11", rr.Header().Get("Content-Length"))

	rr = do(t, handler, httptest.NewRequest(http.MethodGet, "/api/files/"+resp.Files[1].ID, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Header().Get("Content-Disposition"), "attachment")
	require.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))

	rr = do(t, handler, httptest.NewRequest(http.MethodDelete, "/api/files/"+resp.Files[0].ID, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"success":true}`, rr.Body.String())

	rr = do(t, handler, httptest.NewRequest(http.MethodGet, "/api/files/"+resp.Files[0].ID, nil))
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, handler, httptest.NewRequest(http.MethodDelete, "/api/files/"+resp.Files[0].ID, nil))
	require.Equal(t, http.StatusNotFound, rr.Code)

	require.Len(t, listEntries(t, handler, ""), 1)
}

func TestAPI_ListEmptyFolder(t *testing.T) {
	_, handler := newTestServer(t)

	rr := do(t, handler, httptest.NewRequest(http.MethodGet, "/api/files", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `[]`, rr.Body.String())
}

func TestAPI_UploadWithoutFiles(t *testing.T) {
	_, handler := newTestServer(t)

	rr, _ := upload(t, handler, "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPI_UploadNotMultipart(t *testing.T) {
	_, handler := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/files", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rr := do(t, handler, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPI_UploadTooLarge(t *testing.T) {
	server, handler := newTestServer(t)
	server.config.Upload.MaxBytes = 1024

	rr, _ := upload(t, handler, "", namedContent{"big.bin", strings.Repeat("x", 4096)})
	require.Contains(t, []int{http.StatusRequestEntityTooLarge, http.StatusBadRequest}, rr.Code)
	require.Empty(t, listEntries(t, handler, ""))
}

func TestAPI_UploadUnknownParent(t *testing.T) {
	_, handler := newTestServer(t)

	rr, _ := upload(t, handler, "missing", namedContent{"a.txt", "a"})
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAPI_CreateFolder(t *testing.T) {
	_, handler := newTestServer(t)

	rr := createFolder(t, handler, "Documents", "")
	require.Equal(t, http.StatusCreated, rr.Code)

	var created CreateFolderResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	require.True(t, created.Success)
	require.NotEmpty(t, created.ID)

	entries := listEntries(t, handler, "")
	require.Len(t, entries, 1)
	require.Equal(t, "Documents", entries[0].Name)
	require.Equal(t, models.KindFolder, entries[0].Kind)

	rr = createFolder(t, handler, "Nested", created.ID)
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Len(t, listEntries(t, handler, created.ID), 1)
}

func TestAPI_CreateFolder_Invalid(t *testing.T) {
	_, handler := newTestServer(t)

	rr := createFolder(t, handler, "   ", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = createFolder(t, handler, "a/b", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, handler, httptest.NewRequest(http.MethodPost, "/api/folders", strings.NewReader("not json")))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = createFolder(t, handler, "Orphan", "missing")
	require.Equal(t, http.StatusNotFound, rr.Code)

	_, resp := upload(t, handler, "", namedContent{"a.txt", "a"})
	rr = createFolder(t, handler, "Inside a file", resp.Files[0].ID)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPI_DownloadFolder(t *testing.T) {
	_, handler := newTestServer(t)

	rr := createFolder(t, handler, "Documents", "")
	var created CreateFolderResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))

	rr = do(t, handler, httptest.NewRequest(http.MethodGet, "/api/files/"+created.ID, nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPI_DeleteFolderCascades(t *testing.T) {
	_, handler := newTestServer(t)

	rr := createFolder(t, handler, "Documents", "")
	var created CreateFolderResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))

	rr, resp := upload(t, handler, created.ID,
		namedContent{"a.txt", "a"},
		namedContent{"b.txt", "b"},
	)
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Len(t, listEntries(t, handler, created.ID), 2)

	rr = do(t, handler, httptest.NewRequest(http.MethodDelete, "/api/files/"+created.ID, nil))
	require.Equal(t, http.StatusOK, rr.Code)

	require.Empty(t, listEntries(t, handler, ""))
	require.Empty(t, listEntries(t, handler, created.ID))

	for _, f := range resp.Files {
		rr = do(t, handler, httptest.NewRequest(http.MethodGet, "/api/files/"+f.ID, nil))
		require.Equal(t, http.StatusNotFound, rr.Code)
	}
}
