package utils

import (
	"fmt"
	"path/filepath"
	"strings"

	coreconfig "github.com/AzielCF/az-social/core/config"
)

// ResolveMediaPath joins name onto dir and refuses anything that escapes it.
func ResolveMediaPath(dir, name string) (string, error) {
	clean := filepath.Clean("/" + filepath.ToSlash(name))
	if clean == "/" || strings.Contains(name, "\x00") {
		return "", fmt.Errorf("invalid media name %q", name)
	}
	full := filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(clean, "/")))
	rel, err := filepath.Rel(dir, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("media name %q escapes %s", name, dir)
	}
	return full, nil
}

// EnsureDirectories creates the storage layout for the configured paths.
func EnsureDirectories() error {
	return CreateFolder(
		coreconfig.Global.Paths.Statics,
		coreconfig.Global.Paths.Storages,
		coreconfig.Global.Paths.Media,
	)
}
