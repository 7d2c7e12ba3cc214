// Package service — file upload, listing, and download-link business logic.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/secure-file-share/internal/apperror"
	"github.com/sakif/secure-file-share/internal/auth"
	"github.com/sakif/secure-file-share/internal/model"
	"github.com/sakif/secure-file-share/internal/repository"
	"github.com/sakif/secure-file-share/internal/storage"
)

// allowedExtensions is the upload allow-list. Only these three office
// document formats are accepted; the check runs on the lower-cased extension
// before anything touches storage.
var allowedExtensions = map[string]bool{
	".pptx": true,
	".docx": true,
	".xlsx": true,
}

// FileService handles the upload / list / download-link lifecycle.
//
// Every operation takes the caller (the principal resolved by the auth
// middleware) as an explicit parameter and performs its role check first,
// before any validation or mutation. Upload is ops-only; listing and
// download links are client-only.
type FileService struct {
	files  repository.FileRepository
	store  storage.Store
	logger *slog.Logger
}

// NewFileService creates a FileService.
func NewFileService(files repository.FileRepository, store storage.Store, logger *slog.Logger) *FileService {
	return &FileService{
		files:  files,
		store:  store,
		logger: logger,
	}
}

// Upload stores a new file and registers it, returning the new file's ID.
//
// ORDER OF CHECKS MATTERS:
//  1. role gate (Forbidden) — authorization before anything else
//  2. extension allow-list (validation error) — before any storage write
//  3. storage write under a fresh collision-free name
//  4. registry insert with an independent download token
//
// The storage name is an xid plus the original extension — unique per call,
// so concurrent uploads never collide on disk. The download token is a
// separate crypto-random string: the thing that names the file on disk must
// never double as the capability that authorizes fetching it.
//
// If the registry insert fails after the storage write, the written bytes
// are orphaned on disk. There is no recovery pass for that; the record
// simply never existed as far as clients are concerned.
func (s *FileService) Upload(ctx context.Context, caller *model.User, filename string, content io.Reader) (int64, error) {
	if caller.Role != model.RoleOps {
		return 0, apperror.Forbidden("only ops users can upload files")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return 0, apperror.ValidationFailed("file", "invalid file type")
	}

	storageName := xid.New().String() + ext
	if err := s.store.Save(storageName, content); err != nil {
		return 0, fmt.Errorf("service/file: storing upload %s: %w", filename, err)
	}

	downloadToken, err := auth.NewOpaqueToken()
	if err != nil {
		return 0, fmt.Errorf("service/file: generating download token: %w", err)
	}

	file := &model.File{
		Filename:      filename,
		StoragePath:   storageName,
		UploadedBy:    caller.ID,
		DownloadToken: downloadToken,
	}
	if err := s.files.Create(ctx, file); err != nil {
		return 0, fmt.Errorf("service/file: registering upload %s: %w", filename, err)
	}

	s.logger.Info("file uploaded",
		slog.Int64("fileID", file.ID),
		slog.String("filename", file.Filename),
		slog.Int64("uploadedBy", caller.ID),
	)

	return file.ID, nil
}

// List returns every registered file. Visibility is deliberately flat: any
// client sees every uploaded file, unfiltered by owner.
func (s *FileService) List(ctx context.Context, caller *model.User) ([]model.File, error) {
	if caller.Role != model.RoleClient {
		return nil, apperror.Forbidden("only client users can list files")
	}

	files, err := s.files.List(ctx)
	if err != nil {
		s.logger.Error("failed to list files", slog.String("error", err.Error()))
		return nil, fmt.Errorf("service/file: listing files: %w", err)
	}

	return files, nil
}

// IssueDownloadLink returns the retrieval path for a file, embedding its
// permanent download token. The link is stable: repeated calls for the same
// file always produce the same path, because the token is minted once at
// upload and never rotates.
func (s *FileService) IssueDownloadLink(ctx context.Context, caller *model.User, fileID int64) (string, error) {
	if caller.Role != model.RoleClient {
		return "", apperror.Forbidden("only client users can download files")
	}

	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return "", err // NotFound for unknown IDs
	}

	return "/files/download/" + file.DownloadToken, nil
}

// ResolveDownload exchanges a download token for the file record and an open
// reader on the stored content. The token alone authorizes retrieval — no
// session is involved, so issued links work from any client that holds them.
// The caller must close the reader.
func (s *FileService) ResolveDownload(ctx context.Context, token string) (*model.File, io.ReadCloser, error) {
	file, err := s.files.GetByDownloadToken(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	content, err := s.store.Open(file.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("service/file: opening stored file %s: %w", file.StoragePath, err)
	}

	return file, content, nil
}
