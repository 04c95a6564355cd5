package storage

import (
	"sort"
	"strings"

	rpgerr "rpg/internal/errors"
	"rpg/internal/graph"
)

// ftsPrefilterMin is the graph size below which the in-memory scorer scans
// everything and the FTS prefilter adds nothing.
const ftsPrefilterMin = 2000

// RebuildFTS replaces the feature index with the graph's current state.
// Called after bulk mutations (build, update, finalize).
func (d *DB) RebuildFTS(g *graph.Graph) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return rpgerr.Wrap(rpgerr.CorruptStore, "failed to begin FTS rebuild", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM features_fts`); err != nil {
		return rpgerr.Wrap(rpgerr.CorruptStore, "failed to clear features_fts", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO features_fts (entity_id, name, features, file_path) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return rpgerr.Wrap(rpgerr.CorruptStore, "failed to prepare FTS insert", err)
	}
	defer stmt.Close()

	for _, id := range sortedIDs(g) {
		e := g.Entity(id)
		if _, err := stmt.Exec(id, e.Name, strings.Join(e.Features, " "), e.File); err != nil {
			return rpgerr.Wrap(rpgerr.CorruptStore, "failed to index entity", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return rpgerr.Wrap(rpgerr.CorruptStore, "failed to commit FTS rebuild", err)
	}
	return nil
}

// Prefilter returns candidate entity ids matching the query, or nil when the
// graph is small enough that scanning everything is cheaper. The scorer
// still applies its own filters and ranking on top.
func (d *DB) Prefilter(g *graph.Graph, query string, limit int) []string {
	if len(g.Entities) < ftsPrefilterMin {
		return nil
	}
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return nil
	}
	// OR-match any term; quoting guards FTS syntax characters.
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, ``) + `"`
	}
	match := strings.Join(terms, " OR ")

	rows, err := d.conn.Query(
		`SELECT entity_id FROM features_fts WHERE features_fts MATCH ? ORDER BY rank LIMIT ?`,
		match, limit)
	if err != nil {
		if d.logger != nil {
			d.logger.Debug("FTS prefilter failed, falling back to full scan", "error", err.Error())
		}
		return nil
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if rows.Scan(&id) == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func sortedIDs(g *graph.Graph) []string {
	ids := make([]string, 0, len(g.Entities))
	for id := range g.Entities {
		ids = append(ids, id)
	}
	// Insertion order into FTS does not affect results, but a stable order
	// keeps rebuilds reproducible.
	sort.Strings(ids)
	return ids
}
