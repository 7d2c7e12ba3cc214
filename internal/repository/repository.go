package repository

import (
	"context"

	"github.com/sakif/secure-file-share/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByVerificationToken(ctx context.Context, token string) (*model.User, error)
	MarkVerified(ctx context.Context, id int64) error
}

type FileRepository interface {
	Create(ctx context.Context, file *model.File) error
	GetByID(ctx context.Context, id int64) (*model.File, error)
	GetByDownloadToken(ctx context.Context, token string) (*model.File, error)
	List(ctx context.Context) ([]model.File, error)
}
