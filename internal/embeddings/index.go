// Package embeddings maintains the per-feature vector cache keyed by entity
// feature fingerprints: invalidate on mutation, lazy rebuild on first query,
// detect-and-rebuild on corruption.
package embeddings

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"sort"

	rpgerr "rpg/internal/errors"
	"rpg/internal/graph"
	"rpg/internal/paths"
)

// Binary layout limits; reads past these indicate corruption.
const (
	maxIDLen     = 4096
	maxVectors   = 4096
	maxDimension = 8192
)

var indexMagic = []byte("RPGE")

const indexVersion = 1

// Index holds one vector per feature per entity.
type Index struct {
	Dimension int
	// Vectors maps entity id to its per-feature vectors, feature order
	// matching the entity's sorted feature list.
	Vectors map[string][][]float32
}

// NewIndex creates an empty index for the given dimension.
func NewIndex(dimension int) *Index {
	return &Index{Dimension: dimension, Vectors: make(map[string][][]float32)}
}

// Save writes .rpg/embeddings.bin: a header followed by length-prefixed
// blocks, one per entity, one vector per feature. Entities are written in
// sorted id order.
func (idx *Index) Save(repoRoot string) error {
	if _, err := paths.EnsureRpgDir(repoRoot); err != nil {
		return err
	}
	var buf bytes.Buffer
	buf.Write(indexMagic)
	writeU32(&buf, indexVersion)
	writeU32(&buf, uint32(idx.Dimension))
	writeU32(&buf, uint32(len(idx.Vectors)))

	ids := make([]string, 0, len(idx.Vectors))
	for id := range idx.Vectors {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		vectors := idx.Vectors[id]
		writeU32(&buf, uint32(len(id)))
		buf.WriteString(id)
		writeU32(&buf, uint32(len(vectors)))
		for _, v := range vectors {
			for _, x := range v {
				writeU32(&buf, math.Float32bits(x))
			}
		}
	}
	return graph.WriteFileAtomic(paths.EmbeddingsFile(repoRoot), buf.Bytes())
}

// LoadIndex reads .rpg/embeddings.bin. A missing file yields an empty index;
// any structural failure is reported as CorruptStore so the caller can
// delete and lazily rebuild.
func LoadIndex(repoRoot string, dimension int) (*Index, error) {
	raw, err := os.ReadFile(paths.EmbeddingsFile(repoRoot))
	if os.IsNotExist(err) {
		return NewIndex(dimension), nil
	}
	if err != nil {
		return nil, rpgerr.Wrap(rpgerr.CorruptStore, "failed to read embeddings.bin", err)
	}

	r := bytes.NewReader(raw)
	magic := make([]byte, 4)
	if _, err := r.Read(magic); err != nil || !bytes.Equal(magic, indexMagic) {
		return nil, rpgerr.New(rpgerr.CorruptStore, "embeddings.bin has wrong magic")
	}
	version, err := readU32(r)
	if err != nil || version != indexVersion {
		return nil, rpgerr.New(rpgerr.CorruptStore, "embeddings.bin has unknown version")
	}
	dim, err := readU32(r)
	if err != nil || dim == 0 || dim > maxDimension {
		return nil, rpgerr.New(rpgerr.CorruptStore, "embeddings.bin dimension out of range")
	}
	count, err := readU32(r)
	if err != nil {
		return nil, rpgerr.New(rpgerr.CorruptStore, "embeddings.bin truncated header")
	}

	idx := NewIndex(int(dim))
	for i := uint32(0); i < count; i++ {
		idLen, err := readU32(r)
		if err != nil || idLen == 0 || idLen > maxIDLen {
			return nil, rpgerr.New(rpgerr.CorruptStore, "embeddings.bin id length out of range")
		}
		idBytes := make([]byte, idLen)
		if _, err := r.Read(idBytes); err != nil {
			return nil, rpgerr.New(rpgerr.CorruptStore, "embeddings.bin truncated id")
		}
		vecCount, err := readU32(r)
		if err != nil || vecCount > maxVectors {
			return nil, rpgerr.New(rpgerr.CorruptStore, "embeddings.bin vector count out of range")
		}
		vectors := make([][]float32, 0, vecCount)
		for v := uint32(0); v < vecCount; v++ {
			vec := make([]float32, dim)
			for d := uint32(0); d < dim; d++ {
				bits, err := readU32(r)
				if err != nil {
					return nil, rpgerr.New(rpgerr.CorruptStore, "embeddings.bin truncated vector")
				}
				vec[d] = math.Float32frombits(bits)
			}
			vectors = append(vectors, vec)
		}
		idx.Vectors[string(idBytes)] = vectors
	}
	return idx, nil
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func readU32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := r.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// Meta maps entity id to the feature fingerprint its vectors were built
// from, driving incremental sync.
type Meta map[string]string

// SaveMeta writes .rpg/embeddings.meta.json deterministically.
func SaveMeta(repoRoot string, meta Meta) error {
	if _, err := paths.EnsureRpgDir(repoRoot); err != nil {
		return err
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return graph.WriteFileAtomic(paths.EmbeddingsMetaFile(repoRoot), append(data, '\n'))
}

// LoadMeta reads the fingerprint metadata; missing or corrupt files yield an
// empty map (forcing a rebuild, which is always safe).
func LoadMeta(repoRoot string) Meta {
	raw, err := os.ReadFile(paths.EmbeddingsMetaFile(repoRoot))
	if err != nil {
		return Meta{}
	}
	var meta Meta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return Meta{}
	}
	return meta
}
