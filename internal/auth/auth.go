// Package auth gates access to citation graphs: admin accounts, password
// checks and persisted session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/matsen/citegraph/internal/paper"
	"github.com/matsen/citegraph/internal/storage"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultSessionTTL is how long a login stays valid.
	DefaultSessionTTL = 24 * time.Hour

	// sessionCacheSize bounds the in-process token lookup cache.
	sessionCacheSize = 1024

	// sessionCacheTTL bounds how long a resolved token is trusted without the database.
	sessionCacheTTL = 5 * time.Minute
)

// Store is the persistence the service needs. *storage.DB satisfies it.
type Store interface {
	CreateUser(ctx context.Context, username, passwordHash string, isAdmin bool) (*storage.User, error)
	GetUserByUsername(ctx context.Context, username string) (*storage.User, error)
	GetUserByID(ctx context.Context, id int64) (*storage.User, error)
	EnsureTopic(ctx context.Context, ownerID int64, name string) (*storage.Topic, error)
	GetTopicByName(ctx context.Context, ownerID int64, name string) (*storage.Topic, error)
	GetTopicByID(ctx context.Context, ownerID, id int64) (*storage.Topic, error)
	CreateSession(ctx context.Context, token string, userID, topicID int64, ttl time.Duration) (*storage.Session, error)
	GetSession(ctx context.Context, token string) (*storage.Session, error)
	SetSessionTopic(ctx context.Context, token string, topicID int64) error
	DeleteSession(ctx context.Context, token string) error
}

// Session is an authenticated login bound to one owner and one active topic.
// An unauthenticated caller has no Session.
type Session struct {
	Token     string
	User      storage.User
	Topic     storage.Topic
	ExpiresAt time.Time
}

// Scope returns the graph scope the session works in.
func (s *Session) Scope() paper.Scope {
	return s.Topic.Scope()
}

// Service authenticates admins and manages their sessions.
type Service struct {
	store      Store
	ttl        time.Duration
	bcryptCost int
	now        func() time.Time
	logger     zerolog.Logger
	cache      *lru.LRU[string, Session]
}

// Option configures a Service.
type Option func(*Service)

// WithSessionTTL sets how long sessions stay valid.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithBcryptCost sets the bcrypt cost for new password hashes.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		s.bcryptCost = cost
	}
}

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService creates an authentication service over store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:      store,
		ttl:        DefaultSessionTTL,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	cacheTTL := sessionCacheTTL
	if s.ttl < cacheTTL {
		cacheTTL = s.ttl
	}
	s.cache = lru.NewLRU[string, Session](sessionCacheSize, nil, cacheTTL)
	return s
}

// CreateAdmin provisions an admin account.
func (s *Service) CreateAdmin(ctx context.Context, username, password string) (*storage.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrEmptyUsername
	}

	hash, err := HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	u, err := s.store.CreateUser(ctx, username, hash, true)
	if errors.Is(err, paper.ErrDuplicate) {
		return nil, fmt.Errorf("%w: %s", ErrUserExists, username)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("username", username).Msg("admin created")
	return u, nil
}

// Authenticate checks credentials and admin rights.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*storage.User, error) {
	u, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if paper.IsNotFound(err) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := CheckPassword(u.PasswordHash, password); err != nil {
		return nil, err
	}
	if !u.IsAdmin {
		return nil, ErrNotAdmin
	}
	return u, nil
}

// Login authenticates and opens a session on the named topic, creating the
// topic if needed. An empty topic selects storage.DefaultTopic.
func (s *Service) Login(ctx context.Context, username, password, topic string) (*Session, error) {
	u, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	if topic = strings.TrimSpace(topic); topic == "" {
		topic = storage.DefaultTopic
	}
	t, err := s.store.EnsureTopic(ctx, u.ID, topic)
	if err != nil {
		return nil, fmt.Errorf("opening topic %q: %w", topic, err)
	}

	stored, err := s.store.CreateSession(ctx, uuid.NewString(), u.ID, t.ID, s.ttl)
	if err != nil {
		return nil, err
	}

	sess := Session{Token: stored.Token, User: *u, Topic: *t, ExpiresAt: stored.ExpiresAt}
	s.cache.Add(sess.Token, sess)

	s.logger.Info().Str("username", u.Username).Str("topic", t.Name).Msg("login")
	return &sess, nil
}

// Resolve returns the session for a token.
func (s *Service) Resolve(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	if sess, ok := s.cache.Get(token); ok {
		if s.now().Before(sess.ExpiresAt) {
			return &sess, nil
		}
		s.cache.Remove(token)
	}

	stored, err := s.store.GetSession(ctx, token)
	if paper.IsNotFound(err) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	if stored.Expired(s.now()) {
		if err := s.store.DeleteSession(ctx, token); err != nil {
			s.logger.Warn().Err(err).Msg("deleting expired session")
		}
		return nil, ErrUnauthenticated
	}

	u, err := s.store.GetUserByID(ctx, stored.UserID)
	if paper.IsNotFound(err) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}

	var t *storage.Topic
	if stored.TopicID != 0 {
		t, err = s.store.GetTopicByID(ctx, u.ID, stored.TopicID)
	} else {
		t, err = s.store.EnsureTopic(ctx, u.ID, storage.DefaultTopic)
	}
	if err != nil {
		return nil, fmt.Errorf("resolving session topic: %w", err)
	}

	sess := Session{Token: token, User: *u, Topic: *t, ExpiresAt: stored.ExpiresAt}
	s.cache.Add(token, sess)
	return &sess, nil
}

// SwitchTopic makes an existing topic the session's active topic.
func (s *Service) SwitchTopic(ctx context.Context, token, topic string) (*Session, error) {
	sess, err := s.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	t, err := s.store.GetTopicByName(ctx, sess.User.ID, topic)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetSessionTopic(ctx, token, t.ID); err != nil {
		return nil, err
	}

	sess.Topic = *t
	s.cache.Add(token, *sess)
	return sess, nil
}

// Logout invalidates a token. Logging out an unknown token is a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	s.cache.Remove(token)
	if err := s.store.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("logging out: %w", err)
	}
	return nil
}
