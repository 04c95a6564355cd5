package parser

import (
	"bufio"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// Directories never indexed, regardless of .rpgignore.
var skipDirs = map[string]bool{
	".git":         true,
	".rpg":         true,
	"node_modules": true,
	"vendor":       true,
	"target":       true,
	"dist":         true,
	"build":        true,
	"__pycache__":  true,
}

// IgnoreMatcher applies gitignore-style exclusion patterns from .rpgignore.
// Supported subset: blank lines and # comments, `!` negation, trailing `/`
// directory patterns, leading `/` anchoring, `*`/`?` globs, and `**/` prefix
// matching any depth. Later patterns win.
type IgnoreMatcher struct {
	rules []ignoreRule
}

type ignoreRule struct {
	pattern  string
	negate   bool
	dirOnly  bool
	anchored bool
}

// LoadIgnore reads .rpgignore from the repository root. A missing file
// yields a matcher that ignores nothing.
func LoadIgnore(repoRoot string) (*IgnoreMatcher, error) {
	f, err := os.Open(filepath.Join(repoRoot, ".rpgignore"))
	if os.IsNotExist(err) {
		return &IgnoreMatcher{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m := &IgnoreMatcher{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rule := ignoreRule{pattern: line}
		if strings.HasPrefix(rule.pattern, "!") {
			rule.negate = true
			rule.pattern = rule.pattern[1:]
		}
		if strings.HasSuffix(rule.pattern, "/") {
			rule.dirOnly = true
			rule.pattern = strings.TrimSuffix(rule.pattern, "/")
		}
		if strings.HasPrefix(rule.pattern, "/") {
			rule.anchored = true
			rule.pattern = strings.TrimPrefix(rule.pattern, "/")
		} else if strings.Contains(rule.pattern, "/") && !strings.HasPrefix(rule.pattern, "**/") {
			// Gitignore treats patterns with an interior slash as anchored.
			rule.anchored = true
		}
		rule.pattern = strings.TrimPrefix(rule.pattern, "**/")
		m.rules = append(m.rules, rule)
	}
	return m, scanner.Err()
}

// Ignored reports whether the relative path is excluded. isDir must be true
// for directories so dir-only patterns apply.
func (m *IgnoreMatcher) Ignored(relPath string, isDir bool) bool {
	relPath = filepath.ToSlash(relPath)
	ignored := false
	for _, rule := range m.rules {
		if rule.dirOnly && !isDir {
			if m.underIgnoredDir(relPath, rule) {
				ignored = !rule.negate
			}
			continue
		}
		if rule.matches(relPath) {
			ignored = !rule.negate
		}
	}
	return ignored
}

// underIgnoredDir lets a dir-only rule exclude files beneath the directory.
func (m *IgnoreMatcher) underIgnoredDir(relPath string, rule ignoreRule) bool {
	dir := path.Dir(relPath)
	for dir != "." && dir != "/" {
		if rule.matches(dir) {
			return true
		}
		dir = path.Dir(dir)
	}
	return false
}

func (r ignoreRule) matches(relPath string) bool {
	if r.anchored {
		if ok, _ := path.Match(r.pattern, relPath); ok {
			return true
		}
		// Anchored directory prefix: "src/gen" matches "src/gen/a.go".
		return strings.HasPrefix(relPath, r.pattern+"/")
	}
	// Floating pattern: match against every path segment suffix.
	for suffix := relPath; ; {
		if ok, _ := path.Match(r.pattern, suffix); ok {
			return true
		}
		i := strings.Index(suffix, "/")
		if i < 0 {
			return false
		}
		suffix = suffix[i+1:]
	}
}

// DiscoverFiles walks the repository and returns the sorted relative paths of
// parseable source files, honoring .rpgignore and the built-in skip list.
func DiscoverFiles(repoRoot string) ([]string, error) {
	matcher, err := LoadIgnore(repoRoot)
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.WalkDir(repoRoot, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(repoRoot, p)
		if relErr != nil || rel == "." {
			return nil
		}
		if d.IsDir() {
			if skipDirs[d.Name()] || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if matcher.Ignored(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := LanguageFromExtension(filepath.Ext(p)); !ok {
			return nil
		}
		if matcher.Ignored(rel, false) {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
