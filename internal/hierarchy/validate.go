// Package hierarchy runs the two-phase agent dialog (domain discovery, then
// file assignment), validates assignments, installs V_H, and recomputes
// aggregated features.
package hierarchy

import (
	"regexp"
	"strings"

	rpgerr "rpg/internal/errors"
	"rpg/internal/graph"
)

var areaNamePattern = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)

// ValidateAreaName checks that an area is PascalCase.
func ValidateAreaName(name string) error {
	if !areaNamePattern.MatchString(name) {
		return rpgerr.Newf(rpgerr.InvalidHierarchyPath, "area %q must be PascalCase", name)
	}
	return nil
}

// validatePhrase checks a category or subcategory segment: a lowercase
// phrase of three to five words.
func validatePhrase(segment, level string) error {
	if segment != strings.ToLower(segment) {
		return rpgerr.Newf(rpgerr.InvalidHierarchyPath, "%s %q must be lowercase", level, segment)
	}
	words := strings.Fields(segment)
	if len(words) < 3 || len(words) > 5 {
		return rpgerr.Newf(rpgerr.InvalidHierarchyPath,
			"%s %q must be a three-to-five-word phrase", level, segment)
	}
	return nil
}

// ValidatePath checks a full three-segment assignment path against the
// discovered area set. All three levels are mandatory.
func ValidatePath(path string, knownAreas map[string]bool) error {
	segments := graph.SplitPath(path)
	if len(segments) != 3 {
		return rpgerr.Newf(rpgerr.InvalidHierarchyPath,
			"path %q must have exactly three segments (Area/category/subcategory)", path)
	}
	if err := ValidateAreaName(segments[0]); err != nil {
		return err
	}
	if knownAreas != nil && !knownAreas[segments[0]] {
		return rpgerr.Newf(rpgerr.InvalidHierarchyPath,
			"area %q is not in the discovered set", segments[0])
	}
	if err := validatePhrase(segments[1], "category"); err != nil {
		return err
	}
	return validatePhrase(segments[2], "subcategory")
}
