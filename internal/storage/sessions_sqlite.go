package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/matsen/citegraph/internal/paper"
)

// Session is a persisted login token.
type Session struct {
	Token     string
	UserID    int64
	TopicID   int64 // 0 when no topic is active
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// CreateSession persists a token for userID valid for ttl.
func (d *DB) CreateSession(ctx context.Context, token string, userID, topicID int64, ttl time.Duration) (*Session, error) {
	now := d.now().UTC().Truncate(time.Second)
	s := &Session{
		Token:     token,
		UserID:    userID,
		TopicID:   topicID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	err := d.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO session_tokens (token, user_id, topic_id, created_at, expires_at)
			VALUES (?, ?, ?, ?, ?)
		`, token, userID, nullableID(topicID), now.Format(time.RFC3339), s.ExpiresAt.Format(time.RFC3339))
		if isUniqueViolation(err) {
			return fmt.Errorf("creating session: %w", paper.ErrDuplicate)
		}
		if err != nil {
			return fmt.Errorf("creating session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetSession returns the session for a token. Expired sessions are still
// returned; callers decide with Session.Expired.
func (d *DB) GetSession(ctx context.Context, token string) (*Session, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT token, user_id, topic_id, created_at, expires_at FROM session_tokens WHERE token = ?
	`, token)

	var s Session
	var topicID sql.NullInt64
	var created, expires string
	err := row.Scan(&s.Token, &s.UserID, &topicID, &created, &expires)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session: %w", paper.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	s.TopicID = topicID.Int64
	if s.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if s.ExpiresAt, err = parseTime(expires); err != nil {
		return nil, err
	}
	return &s, nil
}

// SetSessionTopic records the active topic of a session.
func (d *DB) SetSessionTopic(ctx context.Context, token string, topicID int64) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE session_tokens SET topic_id = ? WHERE token = ?`, nullableID(topicID), token)
		if err != nil {
			return fmt.Errorf("updating session topic: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("updating session topic: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("session: %w", paper.ErrNotFound)
		}
		return nil
	})
}

// DeleteSession removes a token. Deleting an unknown token is a no-op.
func (d *DB) DeleteSession(ctx context.Context, token string) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM session_tokens WHERE token = ?`, token); err != nil {
			return fmt.Errorf("deleting session: %w", err)
		}
		return nil
	})
}

// DeleteSessionsForUser removes every token of a user and returns how many were removed.
func (d *DB) DeleteSessionsForUser(ctx context.Context, userID int64) (int, error) {
	var n int64
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM session_tokens WHERE user_id = ?`, userID)
		if err != nil {
			return fmt.Errorf("deleting sessions: %w", err)
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
