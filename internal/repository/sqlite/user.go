package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/secure-file-share/internal/apperror"
	"github.com/sakif/secure-file-share/internal/model"
	"github.com/sakif/secure-file-share/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// Create inserts a new user and fills in the generated ID and CreatedAt.
//
// Email uniqueness is enforced here, by the UNIQUE constraint — not by a
// SELECT-then-INSERT check, which would race under concurrent signups.
// A constraint violation comes back as apperror.ErrConflict so the service
// layer (and ultimately the HTTP handler) can tell "duplicate email" apart
// from a real database failure.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, role, is_verified, verification_token, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.Email,
		user.PasswordHash,
		string(user.Role),
		user.IsVerified,
		user.VerificationToken,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("email", "email already registered")
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Email, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new user id: %w", err)
	}

	user.ID = id
	user.CreatedAt = now
	return nil
}

// GetByEmail retrieves a user by exact email match.
// Returns apperror.ErrNotFound if no user exists with that email.
func (db *DB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, `email = ?`, email)
}

// GetByVerificationToken retrieves the user holding a live verification
// token. Verified users have an empty token and can never match here, which
// is what makes verification tokens single-use.
func (db *DB) GetByVerificationToken(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		// Guard against matching the cleared-token sentinel value.
		return nil, apperror.NotFound("user", "")
	}
	return db.getUser(ctx, `verification_token = ?`, token)
}

// MarkVerified flips the user to verified and clears the verification token
// in a single UPDATE, so there is no window where a verified user still
// holds a live token.
func (db *DB) MarkVerified(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET is_verified = 1, verification_token = '' WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: marking user %d verified: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking verified update for user %d: %w", id, err)
	}
	if affected == 0 {
		return apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	return nil
}

func (db *DB) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, email, password_hash, role, is_verified, verification_token, created_at
		 FROM users WHERE `+where,
		arg,
	).Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.IsVerified,
		&u.VerificationToken,
		&u.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", fmt.Sprint(arg))
		}
		return nil, fmt.Errorf("sqlite: getting user: %w", err)
	}

	return &u, nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint error.
// modernc.org/sqlite doesn't export a typed error for this, so we match the
// stable message prefix the SQLite core produces.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
