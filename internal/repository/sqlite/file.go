package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/sakif/secure-file-share/internal/apperror"
	"github.com/sakif/secure-file-share/internal/model"
	"github.com/sakif/secure-file-share/internal/repository"
)

// FileDB is the file-repository view of DB. Go forbids two methods named
// Create with different signatures on one receiver, so the file methods
// live on this view type rather than on *DB directly.
type FileDB DB

// Files returns the file-repository view of the database.
func (db *DB) Files() *FileDB { return (*FileDB)(db) }

// compile-time check that *FileDB implements repository.FileRepository
var _ repository.FileRepository = (*FileDB)(nil)

// Create inserts a new file record and fills in the generated ID and
// UploadedAt. StoragePath and DownloadToken are both UNIQUE — a violation
// here means token generation produced a duplicate, which is a server fault,
// not a client one, so it surfaces as a plain error rather than a conflict.
func (db *FileDB) Create(ctx context.Context, file *model.File) error {
	now := time.Now().UTC()

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO files (filename, storage_path, uploaded_at, uploaded_by, download_token)
		 VALUES (?, ?, ?, ?, ?)`,
		file.Filename,
		file.StoragePath,
		now,
		file.UploadedBy,
		file.DownloadToken,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting file %s: %w", file.Filename, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new file id: %w", err)
	}

	file.ID = id
	file.UploadedAt = now
	return nil
}

// GetByID retrieves a file record by its numeric ID.
// Returns apperror.ErrNotFound if no file exists with that ID.
func (db *FileDB) GetByID(ctx context.Context, id int64) (*model.File, error) {
	return db.getFile(ctx, `id = ?`, id, strconv.FormatInt(id, 10))
}

// GetByDownloadToken resolves a download token to its file record.
// The UNIQUE constraint guarantees at most one match.
func (db *FileDB) GetByDownloadToken(ctx context.Context, token string) (*model.File, error) {
	return db.getFile(ctx, `download_token = ?`, token, token)
}

// List returns every file record, oldest first. Visibility is flat — every
// client sees every file — so there is no owner filter.
func (db *FileDB) List(ctx context.Context) ([]model.File, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, filename, storage_path, uploaded_at, uploaded_by, download_token
		 FROM files ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing files: %w", err)
	}
	defer rows.Close()

	// Initialize to an empty slice (not nil) so the JSON encoding is []
	// rather than null when there are no files.
	files := []model.File{}
	for rows.Next() {
		var f model.File
		if err := rows.Scan(
			&f.ID,
			&f.Filename,
			&f.StoragePath,
			&f.UploadedAt,
			&f.UploadedBy,
			&f.DownloadToken,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning file row: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating file rows: %w", err)
	}

	return files, nil
}

func (db *FileDB) getFile(ctx context.Context, where string, arg any, label string) (*model.File, error) {
	var f model.File

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, filename, storage_path, uploaded_at, uploaded_by, download_token
		 FROM files WHERE `+where,
		arg,
	).Scan(
		&f.ID,
		&f.Filename,
		&f.StoragePath,
		&f.UploadedAt,
		&f.UploadedBy,
		&f.DownloadToken,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("file", label)
		}
		return nil, fmt.Errorf("sqlite: getting file: %w", err)
	}

	return &f, nil
}
