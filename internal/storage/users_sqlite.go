package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/matsen/citegraph/internal/paper"
)

// User is an account allowed to own citation graphs.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

const selectUserFields = `id, username, password_hash, is_admin, created_at`

// CreateUser inserts a user and returns it with its assigned ID.
// An existing username yields paper.ErrDuplicate.
func (d *DB) CreateUser(ctx context.Context, username, passwordHash string, isAdmin bool) (*User, error) {
	var u *User
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		created := d.timestamp()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO users (username, password_hash, is_admin, created_at)
			VALUES (?, ?, ?, ?)
		`, username, passwordHash, isAdmin, created)
		if isUniqueViolation(err) {
			return fmt.Errorf("creating user %q: %w", username, paper.ErrDuplicate)
		}
		if err != nil {
			return fmt.Errorf("creating user %q: %w", username, err)
		}

		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading user id: %w", err)
		}
		createdAt, err := parseTime(created)
		if err != nil {
			return err
		}
		u = &User{ID: id, Username: username, PasswordHash: passwordHash, IsAdmin: isAdmin, CreatedAt: createdAt}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetUserByUsername returns the user with the given username.
func (d *DB) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+selectUserFields+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %q: %w", username, paper.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading user %q: %w", username, err)
	}
	return u, nil
}

// GetUserByID returns the user with the given ID.
func (d *DB) GetUserByID(ctx context.Context, id int64) (*User, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+selectUserFields+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %d: %w", id, paper.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading user %d: %w", id, err)
	}
	return u, nil
}

func scanUser(row scanner) (*User, error) {
	var u User
	var created string
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsAdmin, &created); err != nil {
		return nil, err
	}
	t, err := parseTime(created)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = t
	return &u, nil
}
