package handler

import (
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/secure-file-share/internal/apperror"
	"github.com/sakif/secure-file-share/internal/auth"
	"github.com/sakif/secure-file-share/internal/service"
)

// maxUploadBytes caps multipart parsing memory/disk usage. Files beyond this
// size are rejected while parsing the form.
const maxUploadBytes = 64 << 20 // 64 MiB

// FileHandler exposes upload, listing, download-link issuance, and the
// token-gated download itself.
//
// ROUTES:
//   - POST /files/upload                 (bearer, ops only)
//   - GET  /files/files                  (bearer, client only)
//   - GET  /files/download-file/{file_id} (bearer, client only)
//   - GET  /files/download/{token}       (no session — the token authorizes)
type FileHandler struct {
	fileSvc *service.FileService
	logger  *slog.Logger
}

// NewFileHandler creates a FileHandler.
func NewFileHandler(fileSvc *service.FileService, logger *slog.Logger) *FileHandler {
	return &FileHandler{fileSvc: fileSvc, logger: logger}
}

// fileSummary is the listing item shape: just enough to pick a file and ask
// for its download link. Tokens and storage paths never appear here.
type fileSummary struct {
	ID       int64  `json:"id"`
	Filename string `json:"filename"`
}

// HandleUpload accepts a multipart upload from an ops user.
//
// HTTP: POST /files/upload
// BODY: multipart/form-data with a "file" part
func (h *FileHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("valid authentication required"))
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, apperror.ValidationFailed("file", "invalid multipart body"))
		return
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperror.ValidationFailed("file", "a file part is required"))
		return
	}
	defer part.Close()

	fileID, err := h.fileSvc.Upload(r.Context(), caller, header.Filename, part)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"file_id": fileID})
}

// HandleList returns every uploaded file's id and filename to a client user.
//
// HTTP: GET /files/files
func (h *FileHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("valid authentication required"))
		return
	}

	files, err := h.fileSvc.List(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}

	summaries := make([]fileSummary, 0, len(files))
	for _, f := range files {
		summaries = append(summaries, fileSummary{ID: f.ID, Filename: f.Filename})
	}

	writeJSON(w, http.StatusOK, summaries)
}

// HandleDownloadLink issues the token-bearing download path for a file.
//
// HTTP: GET /files/download-file/{file_id}
//
// The same file always yields the same link — the download token is minted
// once at upload time.
func (h *FileHandler) HandleDownloadLink(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("valid authentication required"))
		return
	}

	fileID, err := strconv.ParseInt(chi.URLParam(r, "file_id"), 10, 64)
	if err != nil {
		writeError(w, apperror.ValidationFailed("file_id", "file id must be an integer"))
		return
	}

	link, err := h.fileSvc.IssueDownloadLink(r.Context(), caller, fileID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"download_link": link,
		"message":       "success",
	})
}

// HandleDownload streams a stored file to whoever presents its download
// token. No session is required: the unguessable token is the credential.
//
// HTTP: GET /files/download/{token}
func (h *FileHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		writeError(w, apperror.NotFound("file", token))
		return
	}

	file, content, err := h.fileSvc.ResolveDownload(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}
	defer content.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment",
		map[string]string{"filename": file.Filename}))

	if _, err := io.Copy(w, content); err != nil {
		// Headers are gone; the client sees a truncated body. Log and move on.
		h.logger.Error("download stream interrupted",
			slog.Int64("fileID", file.ID),
			slog.String("error", err.Error()),
		)
	}
}
