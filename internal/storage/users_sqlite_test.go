package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/matsen/citegraph/internal/paper"
)

func TestDB_Users(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ctx := context.Background()

	u, err := db.CreateUser(ctx, "bob", "$2a$hash", false)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if u.ID == 0 {
		t.Error("expected assigned ID")
	}

	if _, err := db.CreateUser(ctx, "bob", "other", true); !errors.Is(err, paper.ErrDuplicate) {
		t.Errorf("duplicate CreateUser = %v, want ErrDuplicate", err)
	}

	byName, err := db.GetUserByUsername(ctx, "bob")
	if err != nil {
		t.Fatal(err)
	}
	byID, err := db.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if byName.ID != byID.ID || byName.PasswordHash != "$2a$hash" || byName.IsAdmin {
		t.Errorf("unexpected user: %+v / %+v", byName, byID)
	}

	if _, err := db.GetUserByUsername(ctx, "nobody"); !paper.IsNotFound(err) {
		t.Errorf("GetUserByUsername(missing) = %v, want not found", err)
	}
}

func TestDB_Topics(t *testing.T) {
	db, scope := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.CreateTopic(ctx, scope.OwnerID, DefaultTopic); !errors.Is(err, paper.ErrDuplicate) {
		t.Errorf("duplicate CreateTopic = %v, want ErrDuplicate", err)
	}

	ensured, err := db.EnsureTopic(ctx, scope.OwnerID, DefaultTopic)
	if err != nil {
		t.Fatal(err)
	}
	if ensured.ID != scope.TopicID {
		t.Errorf("EnsureTopic returned ID %d, want existing %d", ensured.ID, scope.TopicID)
	}

	created, err := db.EnsureTopic(ctx, scope.OwnerID, "antibodies")
	if err != nil {
		t.Fatal(err)
	}

	topics, err := db.ListTopics(ctx, scope.OwnerID)
	if err != nil {
		t.Fatal(err)
	}
	if len(topics) != 2 || topics[0].Name != "antibodies" || topics[1].Name != DefaultTopic {
		t.Errorf("topics = %+v", topics)
	}

	got, err := db.GetTopicByName(ctx, scope.OwnerID, "antibodies")
	if err != nil || got.ID != created.ID {
		t.Errorf("GetTopicByName = %+v, %v", got, err)
	}
	if _, err := db.GetTopicByID(ctx, scope.OwnerID, created.ID); err != nil {
		t.Errorf("GetTopicByID failed: %v", err)
	}
	if _, err := db.GetTopicByName(ctx, scope.OwnerID, "missing"); !paper.IsNotFound(err) {
		t.Errorf("GetTopicByName(missing) = %v, want not found", err)
	}
}

func TestDB_Sessions(t *testing.T) {
	db, scope := setupTestDB(t)
	ctx := context.Background()

	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	db.now = func() time.Time { return fixed }

	s, err := db.CreateSession(ctx, "tok-1", scope.OwnerID, scope.TopicID, time.Hour)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if !s.ExpiresAt.Equal(fixed.Add(time.Hour)) {
		t.Errorf("ExpiresAt = %v", s.ExpiresAt)
	}

	got, err := db.GetSession(ctx, "tok-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.UserID != scope.OwnerID || got.TopicID != scope.TopicID {
		t.Errorf("session = %+v", got)
	}
	if got.Expired(fixed) {
		t.Error("session expired at creation")
	}
	if !got.Expired(fixed.Add(time.Hour)) {
		t.Error("session not expired at expiry")
	}

	if err := db.SetSessionTopic(ctx, "tok-1", 0); err != nil {
		t.Fatal(err)
	}
	got, _ = db.GetSession(ctx, "tok-1")
	if got.TopicID != 0 {
		t.Errorf("TopicID = %d, want 0", got.TopicID)
	}

	if _, err := db.CreateSession(ctx, "tok-2", scope.OwnerID, 0, time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteSession(ctx, "tok-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.GetSession(ctx, "tok-1"); !paper.IsNotFound(err) {
		t.Errorf("GetSession(deleted) = %v, want not found", err)
	}

	n, err := db.DeleteSessionsForUser(ctx, scope.OwnerID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("DeleteSessionsForUser removed %d, want 1", n)
	}
}
