package store

import (
	"database/sql"
	"fmt"
)

// --- File operations ---

const fileCols = "id, path, hash, line_count, last_indexed"

func scanFile(scanner interface{ Scan(...any) error }) (*File, error) {
	f := &File{}
	if err := scanner.Scan(&f.ID, &f.Path, &f.Hash, &f.LineCount, &f.LastIndexed); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Store) FileByPath(path string) (*File, error) {
	f, err := scanFile(s.db.QueryRow("SELECT "+fileCols+" FROM files WHERE path = ?", path))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

// Files returns every stored file ordered by path.
func (s *Store) Files() ([]*File, error) {
	rows, err := s.db.Query("SELECT " + fileCols + " FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// DeleteFile removes a file and, through cascading foreign keys, its nodes,
// edges and components.
func (s *Store) DeleteFile(fileID int64) error {
	return s.DeleteFiles([]int64{fileID})
}

// DeleteFiles removes several files at once.
func (s *Store) DeleteFiles(fileIDs []int64) error {
	if len(fileIDs) == 0 {
		return nil
	}
	_, err := s.db.Exec(
		"DELETE FROM files WHERE id IN ("+placeholderList(len(fileIDs))+")",
		int64sToArgs(fileIDs)...,
	)
	if err != nil {
		return fmt.Errorf("delete files: %w", err)
	}
	return nil
}

// --- Graph operations ---

// LoadGraph returns a file's nodes and edges in their stored order.
func (s *Store) LoadGraph(fileID int64) ([]Node, []Edge, error) {
	nodes, err := s.Nodes(fileID)
	if err != nil {
		return nil, nil, err
	}
	edges, err := s.Edges(fileID)
	if err != nil {
		return nil, nil, err
	}
	return nodes, edges, nil
}

func (s *Store) Nodes(fileID int64) ([]Node, error) {
	rows, err := s.db.Query(
		"SELECT id, file_id, name, ordinal, is_scope FROM nodes WHERE file_id = ? ORDER BY ordinal", fileID,
	)
	if err != nil {
		return nil, fmt.Errorf("nodes: %w", err)
	}
	defer rows.Close()
	var nodes []Node
	for rows.Next() {
		var n Node
		if err := rows.Scan(&n.ID, &n.FileID, &n.Name, &n.Ordinal, &n.IsScope); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (s *Store) Edges(fileID int64) ([]Edge, error) {
	return s.queryEdges(
		"SELECT id, file_id, caller, callee, ordinal FROM edges WHERE file_id = ? ORDER BY ordinal", fileID,
	)
}

// EdgesByCallee returns every call site of callee across all files.
func (s *Store) EdgesByCallee(callee string) ([]Edge, error) {
	return s.queryEdges(
		"SELECT id, file_id, caller, callee, ordinal FROM edges WHERE callee = ? ORDER BY file_id, ordinal", callee,
	)
}

func (s *Store) queryEdges(query string, args ...any) ([]Edge, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("edges: %w", err)
	}
	defer rows.Close()
	var edges []Edge
	for rows.Next() {
		var e Edge
		if err := rows.Scan(&e.ID, &e.FileID, &e.Caller, &e.Callee, &e.Ordinal); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// Components returns the stored groups of the given kind, in ordinal order.
func (s *Store) Components(fileID int64, kind string) ([][]string, error) {
	rows, err := s.db.Query(
		"SELECT ordinal, node FROM components WHERE file_id = ? AND kind = ? ORDER BY ordinal, id",
		fileID, kind,
	)
	if err != nil {
		return nil, fmt.Errorf("components: %w", err)
	}
	defer rows.Close()

	var (
		groups [][]string
		last   = -1
	)
	for rows.Next() {
		var (
			ordinal int
			node    string
		)
		if err := rows.Scan(&ordinal, &node); err != nil {
			return nil, fmt.Errorf("scan component: %w", err)
		}
		if ordinal != last {
			groups = append(groups, nil)
			last = ordinal
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], node)
	}
	return groups, rows.Err()
}

// --- Metadata ---

func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata %q: %w", key, err)
	}
	return value, nil
}

func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata %q: %w", key, err)
	}
	return nil
}

// Summary counts stored files, nodes, scopes and call sites.
func (s *Store) Summary() (*Summary, error) {
	sum := &Summary{}
	err := s.db.QueryRow(`SELECT
		(SELECT COUNT(*) FROM files),
		(SELECT COUNT(*) FROM nodes),
		(SELECT COUNT(*) FROM nodes WHERE is_scope),
		(SELECT COUNT(*) FROM edges)`,
	).Scan(&sum.Files, &sum.Nodes, &sum.Scopes, &sum.Edges)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	return sum, nil
}
