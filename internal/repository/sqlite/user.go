package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/xid"
	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/model"
	"github.com/sakif/conduit/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, username, email, password_hash, bio, image, created_at, updated_at`

// CreateUser inserts a new user and fills in its ID and timestamps.
// A taken username or email is reported as apperror.ErrConflict on that field.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	t := now()
	user.ID = xid.New().String()
	user.CreatedAt = t
	user.UpdatedAt = t

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		nullString(user.Bio),
		nullString(user.Image),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if cerr := userConflict(err); cerr != nil {
			return cerr
		}
		return fmt.Errorf("sqlite: creating user %q: %w", user.Username, err)
	}
	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUserBy(ctx, "id", id)
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUserBy(ctx, "email", email)
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return db.getUserBy(ctx, "username", username)
}

// getUserBy looks a user up by one of its unique columns. column is never
// user input.
func (db *DB) getUserBy(ctx context.Context, column, value string) (*model.User, error) {
	var (
		u          model.User
		bio, image sql.NullString
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = ?`,
		value,
	).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&bio,
		&image,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", value)
		}
		return nil, fmt.Errorf("sqlite: getting user by %s %q: %w", column, value, err)
	}

	u.Bio = stringPtr(bio)
	u.Image = stringPtr(image)
	return &u, nil
}

// UpdateUser overwrites every mutable column of user.
func (db *DB) UpdateUser(ctx context.Context, user *model.User) error {
	user.UpdatedAt = now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET username = ?, email = ?, password_hash = ?, bio = ?, image = ?, updated_at = ?
		 WHERE id = ?`,
		user.Username,
		user.Email,
		user.PasswordHash,
		nullString(user.Bio),
		nullString(user.Image),
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if cerr := userConflict(err); cerr != nil {
			return cerr
		}
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("user", user.ID)
	}
	return nil
}

// Follow records that followerID follows followeeID. Following twice is a no-op.
func (db *DB) Follow(ctx context.Context, followerID, followeeID string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO follows (follower_id, followee_id, created_at) VALUES (?, ?, ?)`,
		followerID, followeeID, now(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: following %s -> %s: %w", followerID, followeeID, err)
	}
	return nil
}

// Unfollow removes the edge if present.
func (db *DB) Unfollow(ctx context.Context, followerID, followeeID string) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM follows WHERE follower_id = ? AND followee_id = ?`,
		followerID, followeeID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: unfollowing %s -> %s: %w", followerID, followeeID, err)
	}
	return nil
}

func (db *DB) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	if followerID == "" {
		return false, nil
	}

	var following bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM follows WHERE follower_id = ? AND followee_id = ?)`,
		followerID, followeeID,
	).Scan(&following)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking follow %s -> %s: %w", followerID, followeeID, err)
	}
	return following, nil
}

func userConflict(err error) error {
	switch {
	case isUniqueViolation(err, "users.username"):
		return apperror.Conflict("username", "has already been taken")
	case isUniqueViolation(err, "users.email"):
		return apperror.Conflict("email", "has already been taken")
	}
	return nil
}
