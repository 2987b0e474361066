package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/model"
)

// newTestDB opens a fresh in-memory database with the full schema applied.
// t.Cleanup closes it when the test (or subtest) finishes.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser inserts a user named username and fails the test on error.
func createTestUser(t *testing.T, db *DB, username string) *model.User {
	t.Helper()
	user := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$2a$04$not-a-real-hash",
	}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

func strPtr(s string) *string { return &s }

// =========================================================================
// CREATE / GET
// =========================================================================

func TestCreateUser(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{
		Username:     "jake",
		Email:        "jake@jake.jake",
		PasswordHash: "hash",
	}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	if user.ID == "" {
		t.Error("CreateUser() did not set user.ID")
	}
	if user.CreatedAt.IsZero() {
		t.Error("CreateUser() did not set user.CreatedAt")
	}
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "jake")

	err := db.CreateUser(context.Background(), &model.User{
		Username:     "jake",
		Email:        "other@example.com",
		PasswordHash: "hash",
	})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Field != "username" {
		t.Errorf("expected conflict on username, got %+v", appErr)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "jake")

	err := db.CreateUser(context.Background(), &model.User{
		Username:     "jacob",
		Email:        "jake@example.com",
		PasswordHash: "hash",
	})

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Field != "email" {
		t.Fatalf("expected conflict on email, got %v", err)
	}
}

func TestGetUser_Lookups(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	created := createTestUser(t, db, "jake")

	byID, err := db.GetUserByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if byID.Username != "jake" {
		t.Errorf("Username = %q, want %q", byID.Username, "jake")
	}
	if byID.Bio != nil || byID.Image != nil {
		t.Errorf("expected nil bio/image, got %v / %v", byID.Bio, byID.Image)
	}

	byEmail, err := db.GetUserByEmail(ctx, "jake@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if byEmail.ID != created.ID {
		t.Errorf("GetUserByEmail() ID = %q, want %q", byEmail.ID, created.ID)
	}

	byName, err := db.GetUserByUsername(ctx, "jake")
	if err != nil {
		t.Fatalf("GetUserByUsername() error = %v", err)
	}
	if byName.ID != created.ID {
		t.Errorf("GetUserByUsername() ID = %q, want %q", byName.ID, created.ID)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByUsername(context.Background(), "nobody")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// =========================================================================
// UPDATE
// =========================================================================

func TestUpdateUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "jake")

	user.Bio = strPtr("I work at statefarm")
	user.Image = strPtr("https://example.com/jake.png")
	if err := db.UpdateUser(ctx, user); err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}

	got, err := db.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if got.Bio == nil || *got.Bio != "I work at statefarm" {
		t.Errorf("Bio = %v, want %q", got.Bio, "I work at statefarm")
	}

	// Clearing back to NULL
	user.Bio = nil
	if err := db.UpdateUser(ctx, user); err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	got, _ = db.GetUserByID(ctx, user.ID)
	if got.Bio != nil {
		t.Errorf("Bio = %q, want nil", *got.Bio)
	}
}

func TestUpdateUser_Conflict(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "jake")
	other := createTestUser(t, db, "celeb")

	other.Username = "jake"
	err := db.UpdateUser(context.Background(), other)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestUpdateUser_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.UpdateUser(context.Background(), &model.User{ID: "missing", Username: "x", Email: "x@x.x"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// =========================================================================
// FOLLOW
// =========================================================================

func TestFollow_Idempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a := createTestUser(t, db, "alice")
	b := createTestUser(t, db, "bob")

	for i := 0; i < 2; i++ {
		if err := db.Follow(ctx, a.ID, b.ID); err != nil {
			t.Fatalf("Follow() #%d error = %v", i+1, err)
		}
	}

	following, err := db.IsFollowing(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("IsFollowing() error = %v", err)
	}
	if !following {
		t.Error("expected alice to follow bob")
	}

	reverse, _ := db.IsFollowing(ctx, b.ID, a.ID)
	if reverse {
		t.Error("follow edge should be one-directional")
	}

	if err := db.Unfollow(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("Unfollow() error = %v", err)
	}
	following, _ = db.IsFollowing(ctx, a.ID, b.ID)
	if following {
		t.Error("expected no edge after Unfollow")
	}

	// Unfollowing again is a no-op.
	if err := db.Unfollow(ctx, a.ID, b.ID); err != nil {
		t.Errorf("second Unfollow() error = %v", err)
	}
}

func TestIsFollowing_AnonymousViewer(t *testing.T) {
	db := newTestDB(t)
	b := createTestUser(t, db, "bob")

	following, err := db.IsFollowing(context.Background(), "", b.ID)
	if err != nil || following {
		t.Errorf("IsFollowing(\"\") = %v, %v; want false, nil", following, err)
	}
}
