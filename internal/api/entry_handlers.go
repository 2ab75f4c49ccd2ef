package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/BAPONBARMON/file-server/internal/files"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const maxNameLength = 255

type CreateFolderRequest struct {
	Name   string `json:"name"`
	Parent string `json:"parent"`
}

// ListEntriesHandler godoc
// @Summary      List a folder
// @Description  Returns the direct children of a folder in creation order. The root folder is "/".
// @Tags         files
// @Produce      json
// @Param        parent  query     string  false  "Parent folder id"  default(/)
// @Success      200     {array}   models.Entry
// @Failure      500     {string}  string "Internal Server Error"
// @Router       /api/files [get]
func (s *Server) ListEntriesHandler(w http.ResponseWriter, r *http.Request) {
	entries, err := s.manager.ListEntries(r.Context(), r.URL.Query().Get("parent"))
	if err != nil {
		writeError(w, r, err, "Folder not found")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// UploadFilesHandler godoc
// @Summary      Upload files
// @Description  Stores every file of the multipart field "files" under the given parent. Each file succeeds or fails on its own.
// @Tags         files
// @Accept       multipart/form-data
// @Produce      json
// @Param        files   formData  file    true   "Files to upload"
// @Param        parent  formData  string  false  "Parent folder id"
// @Success      201     {object}  UploadResponse
// @Success      207     {object}  UploadResponse "Some files failed"
// @Failure      400     {string}  string "Invalid parent or missing files"
// @Failure      404     {string}  string "Parent folder not found"
// @Failure      413     {string}  string "Upload too large"
// @Failure      500     {object}  UploadResponse "All files failed"
// @Router       /api/files [post]
func (s *Server) UploadFilesHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.Upload.MaxBytes)

	if err := r.ParseMultipartForm(s.config.Upload.MemoryBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Upload too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Error parsing multipart form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		http.Error(w, "No files provided", http.StatusBadRequest)
		return
	}

	uploads := make([]files.FileUpload, 0, len(headers))
	opened := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()

	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			http.Error(w, "Error retrieving the file", http.StatusBadRequest)
			return
		}
		opened = append(opened, file)
		uploads = append(uploads, files.FileUpload{Name: header.Filename, Content: file})
	}

	results, err := s.manager.UploadFiles(r.Context(), r.FormValue("parent"), uploads)
	if err != nil {
		writeError(w, r, err, "Parent folder not found")
		return
	}

	resp := UploadResponse{Files: make([]FileResult, 0, len(results))}
	failed := 0
	for _, result := range results {
		fr := FileResult{Name: result.Name}
		if result.Err != nil {
			failed++
			fr.Error = "failed to store file"
		} else {
			fr.ID = result.Entry.ID
			fr.Size = result.Entry.SizeBytes
		}
		resp.Files = append(resp.Files, fr)
	}
	resp.Success = failed == 0

	switch {
	case failed == 0:
		writeJSON(w, http.StatusCreated, resp)
	case failed < len(results):
		writeJSON(w, http.StatusMultiStatus, resp)
	default:
		writeJSON(w, http.StatusInternalServerError, resp)
	}
}

// CreateFolderHandler godoc
// @Summary      Create a folder
// @Tags         folders
// @Accept       json
// @Produce      json
// @Param        folder  body      CreateFolderRequest  true  "Folder name and parent id"
// @Success      201     {object}  CreateFolderResponse
// @Failure      400     {string}  string "Invalid request body or parent"
// @Failure      404     {string}  string "Parent folder not found"
// @Failure      500     {string}  string "Internal Server Error"
// @Router       /api/folders [post]
func (s *Server) CreateFolderHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		http.Error(w, "Folder name cannot be empty", http.StatusBadRequest)
		return
	}
	if len(name) > maxNameLength || strings.ContainsAny(name, "/\\") {
		http.Error(w, "Invalid folder name", http.StatusBadRequest)
		return
	}

	folder, err := s.manager.CreateFolder(r.Context(), name, req.Parent)
	if err != nil {
		writeError(w, r, err, "Parent folder not found")
		return
	}

	writeJSON(w, http.StatusCreated, CreateFolderResponse{Success: true, ID: folder.ID})
}

// DownloadFileHandler godoc
// @Summary      Download a file
// @Description  Streams the file as an attachment under its original name.
// @Tags         files
// @Produce      octet-stream
// @Param        entryId  path      string  true  "Entry id"
// @Success      200      {file}    file
// @Failure      400      {string}  string "Cannot download a folder"
// @Failure      404      {string}  string "File not found"
// @Router       /api/files/{entryId} [get]
func (s *Server) DownloadFileHandler(w http.ResponseWriter, r *http.Request) {
	entryID := chi.URLParam(r, "entryId")

	stream, entry, err := s.manager.Download(r.Context(), entryID)
	if err != nil {
		writeError(w, r, err, "File not found")
		return
	}
	defer stream.Close()

	contentType := mime.TypeByExtension(path.Ext(entry.Name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": entry.Name})
	if disposition == "" {
		disposition = "attachment"
	}

	w.Header().Set("Content-Disposition", disposition)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(entry.SizeBytes, 10))

	if _, err := io.Copy(w, stream); err != nil {
		log.Warn().Err(err).Str("entry_id", entryID).Msg("download interrupted")
	}
}

// DeleteEntryHandler godoc
// @Summary      Delete a file or folder
// @Description  Deleting a folder removes everything below it.
// @Tags         files
// @Produce      json
// @Param        entryId  path      string  true  "Entry id"
// @Success      200      {object}  SuccessResponse
// @Failure      404      {string}  string "File not found"
// @Failure      500      {string}  string "Internal Server Error"
// @Router       /api/files/{entryId} [delete]
func (s *Server) DeleteEntryHandler(w http.ResponseWriter, r *http.Request) {
	entryID := chi.URLParam(r, "entryId")

	if err := s.manager.Delete(r.Context(), entryID); err != nil {
		writeError(w, r, err, "File not found")
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}
