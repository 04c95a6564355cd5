// Package evolution reconciles the graph with a new filesystem state:
// diff classification, deletion with pruning, drift-aware modification,
// and insertion routing.
package evolution

import (
	"os/exec"
	"sort"
	"strings"

	rpgerr "rpg/internal/errors"
)

// ChangeKind classifies one file-level change.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeDeleted  ChangeKind = "deleted"
	ChangeRenamed  ChangeKind = "renamed"
)

// FileChange is one entry of a classified diff.
type FileChange struct {
	Kind    ChangeKind `json:"kind"`
	Path    string     `json:"path"`
	OldPath string     `json:"oldPath,omitempty"`
}

// GitProbe shells out to git for diff detection, mirroring how the rest of
// the toolchain observes repository state.
type GitProbe struct {
	RepoRoot string
}

func (p *GitProbe) git(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = p.RepoRoot
	out, err := cmd.Output()
	if err != nil {
		return "", rpgerr.Wrap(rpgerr.ParseError, "git "+strings.Join(args, " ")+" failed", err)
	}
	return string(out), nil
}

// Head returns the current HEAD commit SHA, or "" outside a git repository.
func (p *GitProbe) Head() string {
	out, err := p.git("rev-parse", "HEAD")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// IsRepo reports whether the root is inside a git work tree.
func (p *GitProbe) IsRepo() bool {
	out, err := p.git("rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(out) == "true"
}

// DetectChanges diffs the working tree (staged and unstaged included)
// against the given base commit, with rename detection enabled.
func (p *GitProbe) DetectChanges(base string) ([]FileChange, error) {
	if base == "" {
		return nil, rpgerr.New(rpgerr.ParseError, "no base commit to diff against")
	}
	out, err := p.git("diff", "--name-status", "-M", base)
	if err != nil {
		return nil, err
	}
	return parseNameStatus(out), nil
}

// ChangedFiles returns the set of files changed since the given commit,
// used by the search engine's diff-aware boosting.
func (p *GitProbe) ChangedFiles(since string) (map[string]bool, error) {
	changes, err := p.DetectChanges(since)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(changes))
	for _, c := range changes {
		set[c.Path] = true
	}
	return set, nil
}

// ShowAt returns a file's content at the given commit (rename matching).
func (p *GitProbe) ShowAt(commit, path string) ([]byte, error) {
	out, err := p.git("show", commit+":"+path)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// parseNameStatus parses `git diff --name-status -M` output.
func parseNameStatus(out string) []FileChange {
	var changes []FileChange
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		status := fields[0]
		switch {
		case status == "A" && len(fields) >= 2:
			changes = append(changes, FileChange{Kind: ChangeAdded, Path: fields[1]})
		case status == "M" && len(fields) >= 2:
			changes = append(changes, FileChange{Kind: ChangeModified, Path: fields[1]})
		case status == "D" && len(fields) >= 2:
			changes = append(changes, FileChange{Kind: ChangeDeleted, Path: fields[1]})
		case strings.HasPrefix(status, "R") && len(fields) >= 3:
			changes = append(changes, FileChange{Kind: ChangeRenamed, OldPath: fields[1], Path: fields[2]})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return changes
}

// renameOverlapThreshold is the minimum content overlap required to pair a
// deleted and an added file into a rename when git did not mark one.
const renameOverlapThreshold = 0.6

// PairRenames folds (deleted, added) pairs with high content overlap into
// renames. readOld fetches the deleted file's prior content; readNew the
// added file's current content. Pairing is greedy by best overlap with a
// deterministic path tie-break.
func PairRenames(changes []FileChange, readOld, readNew func(string) ([]byte, error), overlap func(a, b []byte) float64) []FileChange {
	var deleted, added, rest []FileChange
	for _, c := range changes {
		switch c.Kind {
		case ChangeDeleted:
			deleted = append(deleted, c)
		case ChangeAdded:
			added = append(added, c)
		default:
			rest = append(rest, c)
		}
	}
	if len(deleted) == 0 || len(added) == 0 {
		return changes
	}

	usedAdd := make(map[string]bool)
	for _, del := range deleted {
		oldContent, err := readOld(del.Path)
		if err != nil {
			rest = append(rest, del)
			continue
		}
		bestPath, bestScore := "", 0.0
		for _, add := range added {
			if usedAdd[add.Path] {
				continue
			}
			newContent, err := readNew(add.Path)
			if err != nil {
				continue
			}
			score := overlap(oldContent, newContent)
			if score > bestScore || (score == bestScore && bestPath != "" && add.Path < bestPath) {
				bestPath, bestScore = add.Path, score
			}
		}
		if bestScore >= renameOverlapThreshold {
			usedAdd[bestPath] = true
			rest = append(rest, FileChange{Kind: ChangeRenamed, OldPath: del.Path, Path: bestPath})
		} else {
			rest = append(rest, del)
		}
	}
	for _, add := range added {
		if !usedAdd[add.Path] {
			rest = append(rest, add)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].Path < rest[j].Path })
	return rest
}
