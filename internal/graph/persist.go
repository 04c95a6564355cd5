package graph

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"

	rpgerr "rpg/internal/errors"
	"rpg/internal/paths"
)

// zstdMagic identifies a zstd-compressed graph file.
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// Marshal renders the graph into its deterministic JSON form: struct fields
// in declaration order, map keys sorted lexicographically (encoding/json),
// edges sorted by (source, target, kind), feature lists sorted and
// deduplicated.
func (g *Graph) Marshal() ([]byte, error) {
	sort.Slice(g.Edges, func(i, j int) bool { return g.Edges[i].Less(g.Edges[j]) })
	for _, e := range g.Entities {
		e.Features = NormalizeFeatures(e.Features)
	}
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Save writes the graph to <repoRoot>/.rpg/graph.json atomically
// (temp file, fsync, rename). When compress is true the JSON image is
// zstd-encoded; Load detects compression by magic bytes.
func (g *Graph) Save(repoRoot string, compress bool) error {
	if _, err := paths.EnsureRpgDir(repoRoot); err != nil {
		return rpgerr.Wrap(rpgerr.CorruptStore, "failed to create .rpg directory", err)
	}

	data, err := g.Marshal()
	if err != nil {
		return rpgerr.Wrap(rpgerr.InternalError, "failed to serialize graph", err)
	}

	if compress {
		var buf bytes.Buffer
		enc, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return rpgerr.Wrap(rpgerr.InternalError, "failed to init zstd encoder", err)
		}
		if _, err := enc.Write(data); err != nil {
			enc.Close()
			return rpgerr.Wrap(rpgerr.InternalError, "failed to compress graph", err)
		}
		if err := enc.Close(); err != nil {
			return rpgerr.Wrap(rpgerr.InternalError, "failed to finish zstd stream", err)
		}
		data = buf.Bytes()
	}

	return WriteFileAtomic(paths.GraphFile(repoRoot), data)
}

// Load reads the graph from disk, transparently decompressing zstd images,
// verifying the schema version, and rebuilding in-memory indices.
func Load(repoRoot string) (*Graph, error) {
	raw, err := os.ReadFile(paths.GraphFile(repoRoot))
	if err != nil {
		return nil, rpgerr.Wrap(rpgerr.CorruptStore, "failed to read graph.json", err)
	}

	if len(raw) >= 4 && bytes.Equal(raw[:4], zstdMagic) {
		dec, err := zstd.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, rpgerr.Wrap(rpgerr.CorruptStore, "failed to init zstd decoder", err)
		}
		defer dec.Close()
		raw, err = io.ReadAll(dec)
		if err != nil {
			return nil, rpgerr.Wrap(rpgerr.CorruptStore, "failed to decompress graph.json", err)
		}
	}

	var g Graph
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, rpgerr.Wrap(rpgerr.CorruptStore, "graph.json is not valid JSON", err)
	}
	if g.Schema != SchemaVersion {
		return nil, rpgerr.Newf(rpgerr.SchemaMismatch,
			"graph.json schema %d, this build reads schema %d", g.Schema, SchemaVersion)
	}
	if g.Entities == nil {
		g.Entities = make(map[string]*Entity)
	}
	if g.Hierarchy == nil {
		g.Hierarchy = make(map[string]*HierarchyNode)
	}
	g.RebuildIndexes()
	return &g, nil
}

// Backup copies the current graph file to graph.backup.json before a
// destructive operation. Returns false when no graph exists yet.
func Backup(repoRoot string) (bool, error) {
	src := paths.GraphFile(repoRoot)
	data, err := os.ReadFile(src)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := WriteFileAtomic(paths.GraphBackupFile(repoRoot), data); err != nil {
		return false, err
	}
	return true, nil
}

// WriteFileAtomic writes data via a temp file in the target directory,
// fsyncs, and renames over the destination. A failed write leaves the
// previous file intact.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return rpgerr.Wrap(rpgerr.CorruptStore, "failed to create temp file", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return rpgerr.Wrap(rpgerr.CorruptStore, "failed to write temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return rpgerr.Wrap(rpgerr.CorruptStore, "failed to sync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		return rpgerr.Wrap(rpgerr.CorruptStore, "failed to close temp file", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return rpgerr.Wrap(rpgerr.CorruptStore, "failed to rename temp file", err)
	}
	return nil
}
