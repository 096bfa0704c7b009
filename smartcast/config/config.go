// Package config loads contract files: contracts for functions whose source
// carries no directives, such as those of third-party modules.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/YuitoSato/gosmartcast/smartcast/contract"
)

// ProjectFile is the contract file looked up at the module root.
const ProjectFile = ".smartcast.yaml"

// placeholderModule stands in for the module path when module-relative names
// are validated outside of any module.
const placeholderModule = "module.invalid"

// ErrInvalidEntry is returned by Validate for an unusable contract entry.
var ErrInvalidEntry = errors.New("invalid contract entry")

//go:embed defaults.yaml
var defaultsYAML []byte

// Entry declares the effects of one function.
type Entry struct {
	// Func is the function's full name: "pkg/path.Func", "pkg/path.(*T).M",
	// "pkg/path.T.M" or types.Func.FullName form. A leading "./" makes the
	// package path relative to the module path.
	Func    string   `yaml:"func" msgpack:"func"`
	Effects []string `yaml:"effects" msgpack:"effects"`

	// ReflectNil marks a function whose nil checks look through interface
	// parameters, as reflection-based helpers do, so a nil pointer passed
	// as any still counts as nil.
	ReflectNil bool `yaml:"reflectNil,omitempty" msgpack:"reflectNil,omitempty"`
}

// File is the document stored in a contract file.
type File struct {
	Contracts []Entry `yaml:"contracts" msgpack:"contracts"`
}

// Format is the encoding of a contract file.
type Format int

const (
	FormatYAML Format = iota
	FormatMsgpack
)

// FormatOf infers the format from the file extension.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".msgpack", ".mpk":
		return FormatMsgpack
	default:
		return FormatYAML
	}
}

// Defaults returns the built-in contracts.
func Defaults() *File {
	f, err := Decode(defaultsYAML, FormatYAML)
	if err != nil {
		panic(fmt.Sprintf("smartcast: invalid embedded defaults: %v", err))
	}
	return f
}

// Decode parses a contract file.
func Decode(data []byte, format Format) (*File, error) {
	f := &File{}
	switch format {
	case FormatMsgpack:
		if err := msgpack.NewDecoder(bytes.NewReader(data)).Decode(f); err != nil {
			return nil, fmt.Errorf("failed to decode msgpack contracts: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, f); err != nil {
			return nil, fmt.Errorf("failed to parse yaml contracts: %w", err)
		}
	}
	return f, nil
}

// LoadFile reads and validates the contract file at path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read contract file %s: %w", path, err)
	}
	f, err := Decode(data, FormatOf(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Validate checks that every entry names a function and that every effect is
// syntactically valid. Names and types are resolved only when the contract
// is used.
func (f *File) Validate() error {
	for i, e := range f.Contracts {
		if strings.TrimSpace(e.Func) == "" {
			return fmt.Errorf("%w: contracts[%d]: missing func", ErrInvalidEntry, i)
		}
		if _, err := NormalizeFunc(e.Func, placeholderModule); err != nil {
			return fmt.Errorf("contracts[%d]: %w", i, err)
		}
		if len(e.Effects) == 0 {
			return fmt.Errorf("%w: contracts[%d] (%s): no effects", ErrInvalidEntry, i, e.Func)
		}
		for j, src := range e.Effects {
			if err := contract.CheckSyntax(src); err != nil {
				return fmt.Errorf("%w: contracts[%d] (%s) effects[%d]: %w", ErrInvalidEntry, i, e.Func, j, err)
			}
		}
	}
	return nil
}

// Encode writes f in the given format.
func (f *File) Encode(w io.Writer, format Format) error {
	switch format {
	case FormatMsgpack:
		return msgpack.NewEncoder(w).Encode(f)
	default:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(f); err != nil {
			return err
		}
		return enc.Close()
	}
}

// Save writes f to path in the format implied by its extension.
func (f *File) Save(path string) error {
	var buf bytes.Buffer
	if err := f.Encode(&buf, FormatOf(path)); err != nil {
		return fmt.Errorf("failed to encode contracts: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write contract file %s: %w", path, err)
	}
	return nil
}

// Contracts indexes contract entries by the full name of their function
// (types.Func.FullName).
type Contracts struct {
	byFunc map[string]Entry
}

// NewContracts merges files in order; an entry replaces the effects of an
// earlier entry for the same function.
func NewContracts(modulePath string, files ...*File) (*Contracts, error) {
	c := &Contracts{byFunc: make(map[string]Entry)}
	for _, f := range files {
		if f == nil {
			continue
		}
		for _, e := range f.Contracts {
			name, err := NormalizeFunc(e.Func, modulePath)
			if err != nil {
				return nil, err
			}
			c.byFunc[name] = Entry{
				Func:       name,
				Effects:    append([]string(nil), e.Effects...),
				ReflectNil: e.ReflectNil,
			}
		}
	}
	return c, nil
}

// Effects returns the effect sources declared for the function with the
// given full name.
func (c *Contracts) Effects(fullName string) ([]string, bool) {
	if c == nil {
		return nil, false
	}
	e, ok := c.byFunc[fullName]
	return e.Effects, ok
}

// ReflectNil reports whether the entry for the function with the given full
// name is marked reflectNil.
func (c *Contracts) ReflectNil(fullName string) bool {
	if c == nil {
		return false
	}
	return c.byFunc[fullName].ReflectNil
}

// Len returns the number of functions with contracts.
func (c *Contracts) Len() int {
	if c == nil {
		return 0
	}
	return len(c.byFunc)
}

// NormalizeFunc rewrites a contract file function name into
// types.Func.FullName form. "./sub.F" names package sub of the module and
// ".F" the module's root package.
func NormalizeFunc(name, modulePath string) (string, error) {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "(") {
		return name, nil
	}

	var pkg, rest string
	ok := true
	switch {
	case strings.HasPrefix(name, "."):
		if modulePath == "" {
			return "", fmt.Errorf("%w: %s: module-relative name outside a module", ErrInvalidEntry, name)
		}
		if sub, found := strings.CutPrefix(name, "./"); found {
			pkg, rest, ok = splitPackage(sub)
			pkg = modulePath + "/" + pkg
		} else {
			pkg, rest = modulePath, name[1:]
		}
	default:
		pkg, rest, ok = splitPackage(name)
	}
	if !ok || rest == "" {
		return "", fmt.Errorf("%w: %s: expected package path and function name", ErrInvalidEntry, name)
	}

	switch {
	case strings.HasPrefix(rest, "(*"):
		typ, method, ok := strings.Cut(rest[2:], ").")
		if !ok || typ == "" || method == "" {
			return "", fmt.Errorf("%w: %s: malformed method name", ErrInvalidEntry, name)
		}
		return "(*" + pkg + "." + typ + ")." + method, nil
	case strings.HasPrefix(rest, "("):
		typ, method, ok := strings.Cut(rest[1:], ").")
		if !ok || typ == "" || method == "" {
			return "", fmt.Errorf("%w: %s: malformed method name", ErrInvalidEntry, name)
		}
		return "(" + pkg + "." + typ + ")." + method, nil
	case strings.Contains(rest, "."):
		typ, method, _ := strings.Cut(rest, ".")
		if typ == "" || method == "" || strings.Contains(method, ".") {
			return "", fmt.Errorf("%w: %s: malformed method name", ErrInvalidEntry, name)
		}
		return "(" + pkg + "." + typ + ")." + method, nil
	default:
		return pkg + "." + rest, nil
	}
}

// splitPackage splits "a/b/pkg.Rest" after the package path.
func splitPackage(name string) (string, string, bool) {
	slash := strings.LastIndex(name, "/")
	tail := name[slash+1:]
	dot := strings.Index(tail, ".")
	if dot <= 0 {
		return "", "", false
	}
	return name[:slash+1+dot], tail[dot+1:], true
}
