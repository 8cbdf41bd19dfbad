package main

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/matsen/citegraph/internal/auth"
	"github.com/matsen/citegraph/internal/graph"
	"github.com/matsen/citegraph/internal/openalex"
	"github.com/matsen/citegraph/internal/paper"
	"github.com/matsen/citegraph/internal/storage"
	"github.com/spf13/cobra"
)

// EnvPassword supplies the admin password when --password is not given.
const EnvPassword = "CITEGRAPH_PASSWORD"

var (
	sessionUser     string
	sessionPassword string
	sessionTopic    string
)

// addSessionFlags registers the credential flags on a command that works
// on a topic's graph.
func addSessionFlags(cmd *cobra.Command, withTopic bool) {
	cmd.Flags().StringVarP(&sessionUser, "user", "u", "", "Admin username (required)")
	cmd.Flags().StringVar(&sessionPassword, "password", "", "Admin password (default: $"+EnvPassword+")")
	cmd.MarkFlagRequired("user")
	if withTopic {
		cmd.Flags().StringVarP(&sessionTopic, "topic", "t", storage.DefaultTopic, "Topic whose graph to use")
	}
}

// cliSession is an authenticated owner working on one topic.
type cliSession struct {
	db     *storage.DB
	user   *storage.User
	topic  *storage.Topic
	client *openalex.Client
	cache  *openalex.Cache
	engine *graph.Engine
}

// Close releases the database.
func (s *cliSession) Close() {
	s.db.Close()
}

// password returns the flag value, falling back to the environment.
func password() string {
	if sessionPassword != "" {
		return sessionPassword
	}
	return os.Getenv(EnvPassword)
}

// mustAuthenticate opens the database and checks the admin credentials.
func mustAuthenticate(ctx context.Context) (*storage.DB, *storage.User) {
	db := mustOpenDatabase()

	svc := auth.NewService(db, auth.WithLogger(logger))
	u, err := svc.Authenticate(ctx, sessionUser, password())
	if err != nil {
		db.Close()
		exitOnError(err, "authenticating %s", sessionUser)
	}
	return db, u
}

// resolveTopic returns the named topic of the owner. The default topic is
// created on first use, like on first web login.
func resolveTopic(ctx context.Context, db *storage.DB, ownerID int64, name string) (*storage.Topic, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == storage.DefaultTopic {
		return db.EnsureTopic(ctx, ownerID, storage.DefaultTopic)
	}

	t, err := db.GetTopicByName(ctx, ownerID, name)
	if paper.IsNotFound(err) {
		return nil, errors.Join(err, errors.New("create it with 'citegraph topic create'"))
	}
	return t, err
}

// mustOpenSession authenticates and opens the topic's graph engine.
// The caller is responsible for calling Close() on the returned session.
func mustOpenSession(ctx context.Context) *cliSession {
	db, u := mustAuthenticate(ctx)

	t, err := resolveTopic(ctx, db, u.ID, sessionTopic)
	if err != nil {
		db.Close()
		exitOnError(err, "opening topic %q", sessionTopic)
	}

	client := newClient(nil)
	cache := newCache(client, nil)

	engineLogger := logger.With().Str("user", u.Username).Str("topic", t.Name).Logger()
	e, err := graph.Open(ctx, db.Graph(t.Scope()), cache, engineLogger)
	if err != nil {
		db.Close()
		exitOnError(err, "loading graph")
	}

	return &cliSession{db: db, user: u, topic: t, client: client, cache: cache, engine: e}
}
