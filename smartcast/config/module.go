package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/mod/modfile"
)

// Module is the module enclosing an analyzed package.
type Module struct {
	Root string // Directory holding go.mod
	Path string // Module path declared in go.mod
}

var (
	moduleCache = make(map[string]Module)
	moduleMutex sync.RWMutex

	loadCache = make(map[loadKey]*Contracts)
	loadMutex sync.Mutex
)

type loadKey struct {
	root, explicit string
}

// FindModule searches for go.mod by walking up the directory tree from dir.
// It returns the zero Module when none is found.
func FindModule(dir string) Module {
	moduleMutex.RLock()
	if cached, ok := moduleCache[dir]; ok {
		moduleMutex.RUnlock()
		return cached
	}
	moduleMutex.RUnlock()

	m := findModule(dir)

	moduleMutex.Lock()
	moduleCache[dir] = m
	moduleMutex.Unlock()

	return m
}

func findModule(dir string) Module {
	for {
		goModPath := filepath.Join(dir, "go.mod")
		if data, err := os.ReadFile(goModPath); err == nil {
			if modFile, err := modfile.Parse(goModPath, data, nil); err == nil && modFile.Module != nil {
				return Module{Root: dir, Path: modFile.Module.Mod.Path}
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return Module{}
}

// Load returns the contracts in effect for packages in dir: the embedded
// defaults, then ProjectFile at the module root, then the explicit file if
// one is given. Results are cached per module and explicit file.
func Load(dir, explicit string) (*Contracts, error) {
	m := FindModule(dir)
	key := loadKey{root: m.Root, explicit: explicit}

	loadMutex.Lock()
	defer loadMutex.Unlock()
	if c, ok := loadCache[key]; ok {
		return c, nil
	}

	files := []*File{Defaults()}
	if m.Root != "" {
		project := filepath.Join(m.Root, ProjectFile)
		if _, err := os.Stat(project); err == nil {
			f, err := LoadFile(project)
			if err != nil {
				return nil, err
			}
			files = append(files, f)
		}
	}
	if explicit != "" {
		f, err := LoadFile(explicit)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}

	c, err := NewContracts(m.Path, files...)
	if err != nil {
		return nil, fmt.Errorf("contracts for %s: %w", dir, err)
	}
	loadCache[key] = c
	return c, nil
}

// ResetCache clears the module and contract caches. Used in tests.
func ResetCache() {
	moduleMutex.Lock()
	moduleCache = make(map[string]Module)
	moduleMutex.Unlock()

	loadMutex.Lock()
	loadCache = make(map[loadKey]*Contracts)
	loadMutex.Unlock()
}
