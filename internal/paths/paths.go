// Package paths centralizes the on-disk layout of the .rpg directory.
package paths

import (
	"os"
	"path/filepath"
)

const rpgDirName = ".rpg"

// RpgDir returns <repoRoot>/.rpg
func RpgDir(repoRoot string) string {
	return filepath.Join(repoRoot, rpgDirName)
}

// GraphFile returns the path to the persisted graph
func GraphFile(repoRoot string) string {
	return filepath.Join(RpgDir(repoRoot), "graph.json")
}

// GraphBackupFile returns the path to the pre-destructive-operation backup
func GraphBackupFile(repoRoot string) string {
	return filepath.Join(RpgDir(repoRoot), "graph.backup.json")
}

// PendingRoutingFile returns the path to the pending-routing queue
func PendingRoutingFile(repoRoot string) string {
	return filepath.Join(RpgDir(repoRoot), "pending_routing.json")
}

// EmbeddingsFile returns the path to the binary embedding index
func EmbeddingsFile(repoRoot string) string {
	return filepath.Join(RpgDir(repoRoot), "embeddings.bin")
}

// EmbeddingsMetaFile returns the path to the per-entity fingerprint metadata
func EmbeddingsMetaFile(repoRoot string) string {
	return filepath.Join(RpgDir(repoRoot), "embeddings.meta.json")
}

// ConfigFile returns the path to the optional configuration file
func ConfigFile(repoRoot string) string {
	return filepath.Join(RpgDir(repoRoot), "config.toml")
}

// DatabaseFile returns the path to the SQLite database (FTS index + metrics)
func DatabaseFile(repoRoot string) string {
	return filepath.Join(RpgDir(repoRoot), "rpg.db")
}

// AreasSeedFile returns the path to the optional user-declared area seed file
func AreasSeedFile(repoRoot string) string {
	return filepath.Join(RpgDir(repoRoot), "areas.toml")
}

// IgnoreFile returns the path to .rpgignore at the repository root
func IgnoreFile(repoRoot string) string {
	return filepath.Join(repoRoot, ".rpgignore")
}

// LogsDir returns <repoRoot>/.rpg/logs
func LogsDir(repoRoot string) string {
	return filepath.Join(RpgDir(repoRoot), "logs")
}

// LogFile returns the path to a subsystem log file under .rpg/logs
func LogFile(repoRoot, subsystem string) string {
	return filepath.Join(LogsDir(repoRoot), subsystem+".log")
}

// EnsureRpgDir creates the .rpg directory if missing and returns its path
func EnsureRpgDir(repoRoot string) (string, error) {
	dir := RpgDir(repoRoot)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// EnsureLogsDir creates the .rpg/logs directory if missing and returns its path
func EnsureLogsDir(repoRoot string) (string, error) {
	dir := LogsDir(repoRoot)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// Exists reports whether a graph has been built for the given repository
func Exists(repoRoot string) bool {
	_, err := os.Stat(GraphFile(repoRoot))
	return err == nil
}
