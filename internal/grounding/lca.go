// Package grounding anchors hierarchy nodes to directories via
// lowest-common-ancestor analysis over the file-path trie, and resolves the
// parser's symbolic dependency hints into concrete edges.
package grounding

import (
	"path"
	"strings"
)

// AnchorDir computes the anchor directory for a set of leaf file paths: the
// longest path prefix shared by all of them (LCA over the path trie).
//
// Edge cases: a single file anchors to its parent directory; files sharing no
// prefix beyond the repository root anchor to ".".
func AnchorDir(files []string) string {
	if len(files) == 0 {
		return ""
	}

	dirs := make([][]string, 0, len(files))
	for _, f := range files {
		dirs = append(dirs, splitDir(f))
	}

	prefix := dirs[0]
	for _, d := range dirs[1:] {
		prefix = commonPrefix(prefix, d)
		if len(prefix) == 0 {
			break
		}
	}

	if len(prefix) == 0 {
		return "."
	}
	return strings.Join(prefix, "/")
}

func splitDir(file string) []string {
	dir := path.Dir(strings.ReplaceAll(file, "\\", "/"))
	if dir == "." || dir == "/" {
		return nil
	}
	return strings.Split(strings.Trim(dir, "/"), "/")
}

func commonPrefix(a, b []string) []string {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[:i]
}
