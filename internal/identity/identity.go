// Package identity constructs stable entity identifiers and matches entities
// across renames so features and hierarchy placement survive file moves.
package identity

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// EntityID builds the stable identifier file_path:(ClassName::)?symbol.
// Methods embed their containing type to avoid cross-file collisions.
func EntityID(file, parentClass, symbol string) string {
	if parentClass != "" {
		return fmt.Sprintf("%s:%s::%s", file, parentClass, symbol)
	}
	return fmt.Sprintf("%s:%s", file, symbol)
}

// SplitID splits an entity id back into (file, parentClass, symbol).
// The file part may itself contain no colon; ids are produced by EntityID.
func SplitID(id string) (file, parentClass, symbol string) {
	i := strings.LastIndex(id, ":")
	if i < 0 {
		return id, "", ""
	}
	// Handle the ClassName::symbol form: the last ':' found above is the
	// second colon of "::" when a parent class is present.
	if i > 0 && id[i-1] == ':' {
		rest := id[:i-1]
		j := strings.LastIndex(rest, ":")
		if j >= 0 {
			return rest[:j], rest[j+1:], id[i+1:]
		}
	}
	return id[:i], "", id[i+1:]
}

// FeatureFingerprint hashes a normalized feature list for embedding sync.
// Identical feature sets yield identical fingerprints regardless of order.
func FeatureFingerprint(features []string) string {
	sorted := append([]string(nil), features...)
	sort.Strings(sorted)
	h, _ := blake2b.New256(nil)
	for _, f := range sorted {
		h.Write([]byte(f))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash hashes raw source bytes. Rename overlap detection uses
// LineOverlap, not this hash.
func ContentHash(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// LineOverlap computes the similarity of two sources as the Jaccard index of
// their non-blank line sets. Used to pair deleted+added files into renames.
func LineOverlap(a, b []byte) float64 {
	setA := lineSet(a)
	setB := lineSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}
	inter := 0
	for line := range setA {
		if _, ok := setB[line]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

func lineSet(data []byte) map[string]struct{} {
	set := make(map[string]struct{})
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		set[line] = struct{}{}
	}
	return set
}

// RekeyKey is the match key used to pair an entity in the prior revision with
// its successor after a rename: same symbol, same span, different file.
type RekeyKey struct {
	Symbol      string
	ParentClass string
	StartLine   int
	EndLine     int
}

// RekeyEntity pairs an entity id with its match key.
type RekeyEntity struct {
	ID  string
	Key RekeyKey
}

// MatchRenamed pairs old entity ids with new entity ids by
// (symbol, parentClass, span). Ambiguous keys are left unmatched; the caller
// treats unmatched old entities as deletions and unmatched new ones as
// insertions.
func MatchRenamed(old, renamed []RekeyEntity) map[string]string {
	byKey := make(map[RekeyKey][]string)
	for _, n := range renamed {
		byKey[n.Key] = append(byKey[n.Key], n.ID)
	}
	out := make(map[string]string)
	for _, o := range old {
		ids := byKey[o.Key]
		if len(ids) == 1 {
			out[o.ID] = ids[0]
		}
	}
	return out
}
