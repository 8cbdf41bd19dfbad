package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/matsen/citegraph/internal/paper"
)

// GraphStore persists the nodes and edges of one scope.
// Every method runs in its own transaction.
type GraphStore struct {
	db    *DB
	scope paper.Scope
}

// Graph returns a store bound to scope.
func (d *DB) Graph(scope paper.Scope) *GraphStore {
	return &GraphStore{db: d, scope: scope}
}

// Scope returns the scope this store is bound to.
func (s *GraphStore) Scope() paper.Scope {
	return s.scope
}

// Load returns every node and edge of the scope, ordered by ID.
func (s *GraphStore) Load(ctx context.Context) ([]paper.Node, []paper.Edge, error) {
	var nodes []paper.Node
	var edges []paper.Edge

	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT external_id, label, title, authors, link, memo
			FROM nodes
			WHERE owner_id = ? AND topic_id = ?
			ORDER BY external_id
		`, s.scope.OwnerID, s.scope.TopicID)
		if err != nil {
			return fmt.Errorf("querying nodes: %w", err)
		}
		nodes, err = scanNodes(rows)
		if err != nil {
			return err
		}

		rows, err = tx.QueryContext(ctx, `
			SELECT source_id, target_id
			FROM edges
			WHERE owner_id = ? AND topic_id = ?
			ORDER BY source_id, target_id
		`, s.scope.OwnerID, s.scope.TopicID)
		if err != nil {
			return fmt.Errorf("querying edges: %w", err)
		}
		edges, err = scanEdges(rows)
		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("loading graph: %w", err)
	}

	return nodes, edges, nil
}

// InsertNode inserts one node. A node with the same external ID in the
// scope yields paper.ErrDuplicate.
func (s *GraphStore) InsertNode(ctx context.Context, n paper.Node) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO nodes (owner_id, topic_id, external_id, label, title, authors, link, memo, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, s.scope.OwnerID, s.scope.TopicID, n.ExternalID, n.Label, n.Title,
			nullableString(n.Authors), nullableString(n.Link), nullableString(n.Memo),
			s.db.timestamp())
		if isUniqueViolation(err) {
			return fmt.Errorf("inserting node %s: %w", n.ExternalID, paper.ErrDuplicate)
		}
		if err != nil {
			return fmt.Errorf("inserting node %s: %w", n.ExternalID, err)
		}
		return nil
	})
}

// InsertEdge inserts one edge. An existing (source, target) pair in the
// scope yields paper.ErrDuplicate.
func (s *GraphStore) InsertEdge(ctx context.Context, e paper.Edge) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO edges (owner_id, topic_id, source_id, target_id, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, s.scope.OwnerID, s.scope.TopicID, e.SourceID, e.TargetID, s.db.timestamp())
		if isUniqueViolation(err) {
			return fmt.Errorf("inserting edge %s -> %s: %w", e.SourceID, e.TargetID, paper.ErrDuplicate)
		}
		if err != nil {
			return fmt.Errorf("inserting edge %s -> %s: %w", e.SourceID, e.TargetID, err)
		}
		return nil
	})
}

// DeleteEdge removes the edge source -> target. Deleting a missing edge is a no-op.
func (s *GraphStore) DeleteEdge(ctx context.Context, sourceID, targetID string) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			DELETE FROM edges
			WHERE owner_id = ? AND topic_id = ? AND source_id = ? AND target_id = ?
		`, s.scope.OwnerID, s.scope.TopicID, sourceID, targetID)
		if err != nil {
			return fmt.Errorf("deleting edge %s -> %s: %w", sourceID, targetID, err)
		}
		return nil
	})
}

// DeleteNodeCascade removes a node and every edge touching it atomically.
// It returns the number of edges removed.
func (s *GraphStore) DeleteNodeCascade(ctx context.Context, id string) (int, error) {
	var removed int64
	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM edges
			WHERE owner_id = ? AND topic_id = ? AND (source_id = ? OR target_id = ?)
		`, s.scope.OwnerID, s.scope.TopicID, id, id)
		if err != nil {
			return fmt.Errorf("deleting edges of %s: %w", id, err)
		}
		removed, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("counting deleted edges: %w", err)
		}

		res, err = tx.ExecContext(ctx, `
			DELETE FROM nodes
			WHERE owner_id = ? AND topic_id = ? AND external_id = ?
		`, s.scope.OwnerID, s.scope.TopicID, id)
		if err != nil {
			return fmt.Errorf("deleting node %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("counting deleted nodes: %w", err)
		}
		if n == 0 {
			return paper.NodeNotFound(id)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(removed), nil
}

// UpdateNode applies a partial update to a node.
func (s *GraphStore) UpdateNode(ctx context.Context, id string, fields paper.NodeFields) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			SELECT external_id, label, title, authors, link, memo
			FROM nodes
			WHERE owner_id = ? AND topic_id = ? AND external_id = ?
		`, s.scope.OwnerID, s.scope.TopicID, id)
		n, err := scanNode(row)
		if err == sql.ErrNoRows {
			return paper.NodeNotFound(id)
		}
		if err != nil {
			return fmt.Errorf("reading node %s: %w", id, err)
		}

		fields.Apply(&n)

		_, err = tx.ExecContext(ctx, `
			UPDATE nodes SET label = ?, title = ?, authors = ?, link = ?, memo = ?
			WHERE owner_id = ? AND topic_id = ? AND external_id = ?
		`, n.Label, n.Title, nullableString(n.Authors), nullableString(n.Link), nullableString(n.Memo),
			s.scope.OwnerID, s.scope.TopicID, id)
		if err != nil {
			return fmt.Errorf("updating node %s: %w", id, err)
		}
		return nil
	})
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanNode(row scanner) (paper.Node, error) {
	var n paper.Node
	var authors, link, memo sql.NullString
	if err := row.Scan(&n.ExternalID, &n.Label, &n.Title, &authors, &link, &memo); err != nil {
		return paper.Node{}, err
	}
	n.Authors = authors.String
	n.Link = link.String
	n.Memo = memo.String
	return n, nil
}

func scanNodes(rows *sql.Rows) ([]paper.Node, error) {
	defer rows.Close()

	var nodes []paper.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning node: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating nodes: %w", err)
	}
	return nodes, nil
}

func scanEdges(rows *sql.Rows) ([]paper.Edge, error) {
	defer rows.Close()

	var edges []paper.Edge
	for rows.Next() {
		var e paper.Edge
		if err := rows.Scan(&e.SourceID, &e.TargetID); err != nil {
			return nil, fmt.Errorf("scanning edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating edges: %w", err)
	}
	return edges, nil
}
