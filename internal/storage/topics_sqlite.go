package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/matsen/citegraph/internal/paper"
)

// DefaultTopic is the topic created for an owner on first login.
const DefaultTopic = "default"

// Topic is a named, independent citation graph of one owner.
type Topic struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Scope returns the graph scope of the topic.
func (t Topic) Scope() paper.Scope {
	return paper.Scope{OwnerID: t.OwnerID, TopicID: t.ID}
}

// CreateTopic creates a topic for an owner. An existing name yields paper.ErrDuplicate.
func (d *DB) CreateTopic(ctx context.Context, ownerID int64, name string) (*Topic, error) {
	var t *Topic
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		t, err = insertTopic(ctx, tx, ownerID, name, d.timestamp())
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// EnsureTopic returns the named topic, creating it if needed.
func (d *DB) EnsureTopic(ctx context.Context, ownerID int64, name string) (*Topic, error) {
	var t *Topic
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			SELECT id, owner_id, name, created_at FROM topics WHERE owner_id = ? AND name = ?
		`, ownerID, name)
		existing, err := scanTopic(row)
		if err == nil {
			t = existing
			return nil
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("reading topic %q: %w", name, err)
		}
		t, err = insertTopic(ctx, tx, ownerID, name, d.timestamp())
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListTopics returns the owner's topics ordered by name.
func (d *DB) ListTopics(ctx context.Context, ownerID int64) ([]Topic, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, owner_id, name, created_at FROM topics WHERE owner_id = ? ORDER BY name
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying topics: %w", err)
	}
	defer rows.Close()

	var topics []Topic
	for rows.Next() {
		t, err := scanTopic(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning topic: %w", err)
		}
		topics = append(topics, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating topics: %w", err)
	}
	return topics, nil
}

// GetTopicByName returns the owner's topic with the given name.
func (d *DB) GetTopicByName(ctx context.Context, ownerID int64, name string) (*Topic, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, created_at FROM topics WHERE owner_id = ? AND name = ?
	`, ownerID, name)
	t, err := scanTopic(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("topic %q: %w", name, paper.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading topic %q: %w", name, err)
	}
	return t, nil
}

// GetTopicByID returns the owner's topic with the given ID.
func (d *DB) GetTopicByID(ctx context.Context, ownerID, id int64) (*Topic, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, created_at FROM topics WHERE owner_id = ? AND id = ?
	`, ownerID, id)
	t, err := scanTopic(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("topic %d: %w", id, paper.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading topic %d: %w", id, err)
	}
	return t, nil
}

func insertTopic(ctx context.Context, tx *sql.Tx, ownerID int64, name, created string) (*Topic, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO topics (owner_id, name, created_at) VALUES (?, ?, ?)
	`, ownerID, name, created)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("creating topic %q: %w", name, paper.ErrDuplicate)
	}
	if err != nil {
		return nil, fmt.Errorf("creating topic %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading topic id: %w", err)
	}
	createdAt, err := parseTime(created)
	if err != nil {
		return nil, err
	}
	return &Topic{ID: id, OwnerID: ownerID, Name: name, CreatedAt: createdAt}, nil
}

func scanTopic(row scanner) (*Topic, error) {
	var t Topic
	var created string
	if err := row.Scan(&t.ID, &t.OwnerID, &t.Name, &created); err != nil {
		return nil, err
	}
	createdAt, err := parseTime(created)
	if err != nil {
		return nil, err
	}
	t.CreatedAt = createdAt
	return &t, nil
}
