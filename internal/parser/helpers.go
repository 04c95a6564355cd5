package parser

import (
	"path/filepath"
	"strings"

	"rpg/internal/identity"
)

// ModuleEntityID is the id of the per-file Module entity.
func ModuleEntityID(file string) string {
	return identity.EntityID(file, "", fileStem(file))
}

func fileStem(file string) string {
	base := filepath.Base(file)
	if i := strings.LastIndex(base, "."); i > 0 {
		return base[:i]
	}
	return base
}
