package internal

import (
	"strings"
	"sync"
)

var (
	ignorePackages string
	mu             sync.RWMutex
)

// SetIgnorePackages sets the comma-separated list of package paths to ignore.
// An entry ending in "/..." matches the package and everything below it.
func SetIgnorePackages(s string) {
	mu.Lock()
	ignorePackages = s
	mu.Unlock()
}

// ShouldIgnorePackage checks if a package path is in the ignore list.
// Ignored packages are not analyzed and their contracts are not applied.
func ShouldIgnorePackage(pkgPath string) bool {
	mu.RLock()
	pkgs := ignorePackages
	mu.RUnlock()

	if pkgs == "" {
		return false
	}
	for _, ignored := range strings.Split(pkgs, ",") {
		ignored = strings.TrimSpace(ignored)
		if ignored == "" {
			continue
		}
		if prefix, ok := strings.CutSuffix(ignored, "/..."); ok {
			if pkgPath == prefix || strings.HasPrefix(pkgPath, prefix+"/") {
				return true
			}
			continue
		}
		if ignored == pkgPath {
			return true
		}
	}
	return false
}
