package store

import (
	"database/sql"
	"fmt"
	"sort"
)

// SaveSnapshot replaces everything stored for snap.File.Path within a
// single transaction and returns the new file ID. Node, edge and component
// ordinals are taken from slice positions, so callers pass them in order.
func (s *Store) SaveSnapshot(snap *Snapshot) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("save snapshot: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM files WHERE path = ?", snap.File.Path); err != nil {
		return 0, fmt.Errorf("save snapshot: delete old file: %w", err)
	}

	res, err := tx.Exec(
		"INSERT INTO files (path, hash, line_count, last_indexed) VALUES (?, ?, ?, ?)",
		snap.File.Path, snap.File.Hash, snap.File.LineCount, snap.File.LastIndexed,
	)
	if err != nil {
		return 0, fmt.Errorf("save snapshot: insert file: %w", err)
	}
	fileID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("save snapshot: last insert id: %w", err)
	}

	if err := insertNodesTx(tx, fileID, snap.Nodes); err != nil {
		return 0, fmt.Errorf("save snapshot: %w", err)
	}
	if err := insertEdgesTx(tx, fileID, snap.Edges); err != nil {
		return 0, fmt.Errorf("save snapshot: %w", err)
	}
	if err := insertComponentsTx(tx, fileID, snap.Components); err != nil {
		return 0, fmt.Errorf("save snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("save snapshot: commit: %w", err)
	}
	snap.File.ID = fileID
	return fileID, nil
}

func insertNodesTx(tx *sql.Tx, fileID int64, nodes []Node) error {
	stmt, err := tx.Prepare("INSERT INTO nodes (file_id, name, ordinal, is_scope) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare nodes: %w", err)
	}
	defer stmt.Close()
	for i, n := range nodes {
		if _, err := stmt.Exec(fileID, n.Name, i, n.IsScope); err != nil {
			return fmt.Errorf("insert node %q: %w", n.Name, err)
		}
	}
	return nil
}

func insertEdgesTx(tx *sql.Tx, fileID int64, edges []Edge) error {
	stmt, err := tx.Prepare("INSERT INTO edges (file_id, caller, callee, ordinal) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare edges: %w", err)
	}
	defer stmt.Close()
	for i, e := range edges {
		if _, err := stmt.Exec(fileID, e.Caller, e.Callee, i); err != nil {
			return fmt.Errorf("insert edge %s->%s: %w", e.Caller, e.Callee, err)
		}
	}
	return nil
}

func insertComponentsTx(tx *sql.Tx, fileID int64, components map[string][][]string) error {
	if len(components) == 0 {
		return nil
	}
	stmt, err := tx.Prepare("INSERT INTO components (file_id, kind, ordinal, node) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare components: %w", err)
	}
	defer stmt.Close()

	kinds := make([]string, 0, len(components))
	for kind := range components {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		for i, group := range components[kind] {
			for _, node := range group {
				if _, err := stmt.Exec(fileID, kind, i, node); err != nil {
					return fmt.Errorf("insert %s component: %w", kind, err)
				}
			}
		}
	}
	return nil
}
